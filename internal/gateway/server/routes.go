package server

import (
	"net/http"

	"chatrelay/internal/gateway/handler"
	"chatrelay/internal/gateway/middleware"

	"go.uber.org/zap"
)

func NewMux(
	chatHandler *handler.ChatHandler,
	archiveHandler *handler.ArchiveHandler,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.Index)
	mux.HandleFunc("GET /healthz", handler.Healthz)

	// Chat
	mux.HandleFunc("GET /stream", chatHandler.HandleStream)
	mux.HandleFunc("GET /ws", chatHandler.HandleWS)
	mux.HandleFunc("POST /api/message", chatHandler.PostMessage)
	mux.HandleFunc("GET /api/messages", chatHandler.ListMessages)
	mux.HandleFunc("POST /api/clear", chatHandler.Clear)

	// Archive
	mux.HandleFunc("GET /api/archives", archiveHandler.List)
	mux.HandleFunc("GET /api/archives/{key...}", archiveHandler.Get)

	// Middleware
	return middleware.Logging(logger)(middleware.CORS(mux))
}
