package archive

import (
	"context"
	"errors"
	"strings"
)

// Store keeps cleared transcripts.
type Store interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

var ErrNotFound = errors.New("transcript not found")

func normalizeKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}
