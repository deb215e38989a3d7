package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	archivecache "chatrelay/internal/cache/archive"
	"chatrelay/internal/gateway/config"
	"chatrelay/internal/gateway/entity"
	archiverepo "chatrelay/internal/gateway/repository/archive"
	historyrepo "chatrelay/internal/gateway/repository/history"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWithConfigSQLiteHistory(t *testing.T) {
	cfg := &config.Config{
		Port: "127.0.0.1:0",
		Env:  "test",
		Chat: config.ChatConfig{HistoryLimit: 10, HeartbeatInterval: time.Second},
		History: config.HistoryConfig{
			SQLitePath: filepath.Join(t.TempDir(), "history.db"),
		},
	}
	a, err := NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.stores.history)
	require.Nil(t, a.stores.archive)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
}

func TestIncompleteArchiveConfigDisablesArchive(t *testing.T) {
	store, err := initArchiveStore(config.ArchiveConfig{Endpoint: "minio:9000", Bucket: "b"}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, store)
}

func TestArchiveConfigBuildsCachedS3Store(t *testing.T) {
	store, err := initArchiveStore(config.ArchiveConfig{
		Endpoint:  "minio:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "chatrelay-archive",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestNewWithConfigMemoryHistoryIsBounded(t *testing.T) {
	cfg := &config.Config{
		Port: "127.0.0.1:0",
		Env:  "test",
		Chat: config.ChatConfig{HistoryLimit: 10, HeartbeatInterval: time.Second},
	}
	a, err := NewWithConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	for i := int64(1); i <= 50; i++ {
		require.NoError(t, a.stores.history.Append(ctx, entity.Message{ID: i, Role: entity.RoleUser, Content: "m"}))
	}
	got, err := a.stores.history.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 10)
	require.NoError(t, a.stores.Close())
}

func TestStoresCloseLogsArchiveCacheStats(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cached := archivecache.NewCachedStore(archiverepo.NewMemoryStore(), archivecache.DefaultCacheConfig())
	ctx := context.Background()
	require.NoError(t, cached.Put(ctx, "transcripts/1-1.json.xz", []byte("x")))
	_, err := cached.Get(ctx, "transcripts/1-1.json.xz")
	require.NoError(t, err)

	stores := &gatewayStores{
		history: historyrepo.NewMemoryStore(0),
		archive: cached,
		logger:  zap.New(core),
	}
	require.NoError(t, stores.Close())

	entries := logs.FilterMessage("archive cache stats").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, uint64(1), fields["blob_hits"])
	require.Equal(t, uint64(1), fields["origin_writes"])
}
