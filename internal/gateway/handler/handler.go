package handler

import (
	"net/http"
	"time"

	"chatrelay/internal/gateway/service/chat"
	"chatrelay/internal/util/jsonutil"

	"go.uber.org/zap"
)

// ChatHandler serves the room over plain JSON, SSE and websocket.
type ChatHandler struct {
	svc       *chat.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

func NewChatHandler(svc *chat.Service, logger *zap.Logger, heartbeat time.Duration) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = chat.DefaultHeartbeatInterval
	}
	return &ChatHandler{svc: svc, logger: logger, heartbeat: heartbeat}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
