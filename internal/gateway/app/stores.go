package app

import (
	"fmt"
	"strings"

	archivecache "chatrelay/internal/cache/archive"
	"chatrelay/internal/gateway/config"
	archiverepo "chatrelay/internal/gateway/repository/archive"
	historyrepo "chatrelay/internal/gateway/repository/history"

	"go.uber.org/zap"
)

type gatewayStores struct {
	history historyrepo.Store
	// archive is nil when no S3 endpoint is configured.
	archive archiverepo.Store
	logger  *zap.Logger
}

func (s *gatewayStores) Close() error {
	if s == nil {
		return nil
	}
	if cached, ok := s.archive.(*archivecache.CachedStore); ok && s.logger != nil {
		m := cached.Metrics()
		s.logger.Info("archive cache stats",
			zap.Uint64("blob_hits", m.BlobHits),
			zap.Uint64("blob_misses", m.BlobMisses),
			zap.Uint64("list_hits", m.ListHits),
			zap.Uint64("list_misses", m.ListMisses),
			zap.Uint64("origin_reads", m.OriginReads),
			zap.Uint64("origin_writes", m.OriginWrites),
			zap.Uint64("origin_read_errors", m.OriginReadErr),
			zap.Uint64("origin_write_errors", m.OriginWriteErr))
	}
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

func initStores(cfg *config.Config, logger *zap.Logger) (*gatewayStores, error) {
	history, err := initHistoryStore(cfg.History, cfg.Chat.HistoryLimit, logger)
	if err != nil {
		return nil, err
	}
	archive, err := initArchiveStore(cfg.Archive, logger)
	if err != nil {
		_ = history.Close()
		return nil, err
	}
	return &gatewayStores{history: history, archive: archive, logger: logger}, nil
}

func initHistoryStore(cfg config.HistoryConfig, limit int, logger *zap.Logger) (historyrepo.Store, error) {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		store, err := historyrepo.NewPostgresStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres history: %w", err)
		}
		logger.Info("history store: postgres")
		return store, nil
	}
	if path := strings.TrimSpace(cfg.SQLitePath); path != "" {
		store, err := historyrepo.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite history: %w", err)
		}
		logger.Info("history store: sqlite", zap.String("path", path))
		return store, nil
	}
	logger.Info("history store: in-memory")
	return historyrepo.NewMemoryStore(limit), nil
}

func initArchiveStore(cfg config.ArchiveConfig, logger *zap.Logger) (archiverepo.Store, error) {
	if !cfg.CanUseS3() {
		if strings.TrimSpace(cfg.Endpoint) != "" {
			logger.Warn("archive store disabled (s3 config incomplete)", zap.String("endpoint", cfg.Endpoint))
		}
		return nil, nil
	}
	s3Store, err := archiverepo.NewS3Store(archiverepo.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archive s3 store: %w", err)
	}
	logger.Info("archive store: s3", zap.String("bucket", cfg.Bucket), zap.String("endpoint", cfg.Endpoint))
	return archivecache.NewCachedStore(s3Store, archivecache.DefaultCacheConfig()), nil
}
