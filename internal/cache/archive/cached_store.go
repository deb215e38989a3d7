package archive

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	archiverepo "chatrelay/internal/gateway/repository/archive"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Store = archiverepo.Store

const listKey = "transcripts"

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int

	ListTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        10 * time.Minute,
		BlobMaxEntries: 256,
		ListTTL:        30 * time.Second,
	}
}

type MetricsSnapshot struct {
	BlobHits       uint64
	BlobMisses     uint64
	ListHits       uint64
	ListMisses     uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	blobHits       atomic.Uint64
	blobMisses     atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		BlobHits:       m.blobHits.Load(),
		BlobMisses:     m.blobMisses.Load(),
		ListHits:       m.listHits.Load(),
		ListMisses:     m.listMisses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

// CachedStore fronts an archive origin. Transcripts are write-once, so blob
// entries are never invalidated, only expired.
type CachedStore struct {
	origin Store

	blobCache *expirable.LRU[string, []byte]
	listCache *expirable.LRU[string, []string]
	metrics   Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	return &CachedStore{
		origin:    origin,
		blobCache: expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		listCache: expirable.NewLRU[string, []string](1, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, key string, content []byte) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, key, content); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}
	s.blobCache.Add(cacheKey(key), append([]byte(nil), content...))
	s.listCache.Remove(listKey)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	k := cacheKey(key)
	if raw, ok := s.blobCache.Get(k); ok {
		s.metrics.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.metrics.blobMisses.Add(1)
	s.metrics.originReads.Add(1)

	raw, err := s.origin.Get(ctx, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	copied := append([]byte(nil), raw...)
	s.blobCache.Add(k, copied)
	return append([]byte(nil), copied...), nil
}

func (s *CachedStore) List(ctx context.Context) ([]string, error) {
	if keys, ok := s.listCache.Get(listKey); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), keys...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	keys, err := s.origin.List(ctx)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	copied := append([]string(nil), keys...)
	s.listCache.Add(listKey, copied)
	return append([]string(nil), copied...), nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}

func cacheKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}
