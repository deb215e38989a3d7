package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatrelay/internal/gateway/config"
	"chatrelay/internal/gateway/handler"
	"chatrelay/internal/gateway/server"
	"chatrelay/internal/gateway/service/chat"
	"chatrelay/internal/logging"

	"go.uber.org/zap"
)

type App struct {
	server *server.Server
	stores *gatewayStores
	logger *zap.Logger
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return NewWithConfig(cfg, logger)
}

func NewWithConfig(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Dependencies
	stores, err := initStores(cfg, logger)
	if err != nil {
		return nil, err
	}
	chatSvc := chat.New(chat.Options{
		HistoryLimit: cfg.Chat.HistoryLimit,
		History:      stores.history,
		Archive:      stores.archive,
		Logger:       logger.Named("chat"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := chatSvc.Restore(ctx); err != nil {
		_ = stores.Close()
		return nil, fmt.Errorf("failed to restore chat history: %w", err)
	}

	chatHandler := handler.NewChatHandler(chatSvc, logger.Named("http"), cfg.Chat.HeartbeatInterval)
	archiveHandler := handler.NewArchiveHandler(stores.archive, logger.Named("http"))

	// Routing & Server
	mux := server.NewMux(chatHandler, archiveHandler, logger.Named("http"))
	srv := server.New(cfg.Port, mux, logger)

	return &App{
		server: srv,
		stores: stores,
		logger: logger,
	}, nil
}

func (a *App) Logger() *zap.Logger {
	return a.logger
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.stores.Close())
}
