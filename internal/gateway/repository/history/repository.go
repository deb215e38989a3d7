package history

import (
	"context"

	"chatrelay/internal/gateway/entity"
)

// Store persists relay history so ids and recent messages survive a restart.
type Store interface {
	Append(ctx context.Context, msg entity.Message) error
	// Recent returns at most limit messages, oldest first.
	Recent(ctx context.Context, limit int) ([]entity.Message, error)
	// MaxID is the highest id ever appended, including cleared messages.
	MaxID(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}
