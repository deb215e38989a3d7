package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"chatrelay/internal/gateway/entity"
	archiverepo "chatrelay/internal/gateway/repository/archive"
	historyrepo "chatrelay/internal/gateway/repository/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestPostValidation(t *testing.T) {
	svc := New(Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		role    string
		content string
		wantErr error
	}{
		{name: "bad role", role: "tool", content: "hi", wantErr: ErrInvalidRole},
		{name: "empty role", role: "", content: "hi", wantErr: ErrInvalidRole},
		{name: "blank content", role: "user", content: "   ", wantErr: ErrEmptyContent},
		{name: "role checked first", role: "nobody", content: "", wantErr: ErrInvalidRole},
		{name: "ok", role: " USER ", content: " hi "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := svc.Post(ctx, tt.role, tt.content, " ann ")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.RoleUser, msg.Role)
			assert.Equal(t, "hi", msg.Content)
			assert.Equal(t, "ann", msg.Name)
		})
	}
	assert.Len(t, svc.List(), 1)
}

func TestIDsNeverResetAcrossClear(t *testing.T) {
	svc := New(Options{Now: fixedClock()})
	ctx := context.Background()

	first, err := svc.Post(ctx, "user", "one", "")
	require.NoError(t, err)
	second, err := svc.Post(ctx, "assistant", "two", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)
	require.Greater(t, second.TS, first.TS)

	res, err := svc.Clear(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Epoch)
	require.Equal(t, 2, res.Cleared)
	require.Empty(t, svc.List())

	third, err := svc.Post(ctx, "system", "three", "")
	require.NoError(t, err)
	require.Equal(t, int64(3), third.ID)
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	svc := New(Options{HistoryLimit: 3})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Post(ctx, "user", fmt.Sprintf("m%d", i), "")
		require.NoError(t, err)
	}
	got := svc.List()
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(5), got[2].ID)
}

func TestSinceReturnsNewerMessages(t *testing.T) {
	svc := New(Options{})
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := svc.Post(ctx, "user", "m", "")
		require.NoError(t, err)
	}
	snap := svc.Since(2)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, int64(3), snap.Messages[0].ID)
	assert.Empty(t, svc.Since(10).Messages)
	assert.Len(t, svc.Since(0).Messages, 4)
}

func TestRestoreContinuesSequence(t *testing.T) {
	ctx := context.Background()
	store := historyrepo.NewMemoryStore(0)
	first := New(Options{History: store})
	for i := 0; i < 3; i++ {
		_, err := first.Post(ctx, "user", "m", "")
		require.NoError(t, err)
	}
	_, err := first.Clear(ctx)
	require.NoError(t, err)
	_, err = first.Post(ctx, "user", "after clear", "")
	require.NoError(t, err)

	second := New(Options{History: store})
	require.NoError(t, second.Restore(ctx))
	restored := second.List()
	require.Len(t, restored, 1)
	assert.Equal(t, "after clear", restored[0].Content)

	next, err := second.Post(ctx, "user", "next", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), next.ID)
}

type failingHistory struct {
	historyrepo.Store
	failAppend bool
	failClear  bool
}

func (f *failingHistory) Append(ctx context.Context, msg entity.Message) error {
	if f.failAppend {
		return errors.New("disk full")
	}
	return f.Store.Append(ctx, msg)
}

func (f *failingHistory) Clear(ctx context.Context) error {
	if f.failClear {
		return errors.New("locked")
	}
	return f.Store.Clear(ctx)
}

func TestPostPersistFailureDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	store := &failingHistory{Store: historyrepo.NewMemoryStore(0), failAppend: true}
	svc := New(Options{History: store})

	before := svc.Since(0).Changed
	_, err := svc.Post(ctx, "user", "lost", "")
	require.Error(t, err)
	require.Empty(t, svc.List())
	select {
	case <-before:
		t.Fatalf("subscribers woken for unpublished message")
	default:
	}

	store.failAppend = false
	msg, err := svc.Post(ctx, "user", "kept", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
}

func TestClearFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store := &failingHistory{Store: historyrepo.NewMemoryStore(0), failClear: true}
	svc := New(Options{History: store})
	_, err := svc.Post(ctx, "user", "m", "")
	require.NoError(t, err)

	_, err = svc.Clear(ctx)
	require.Error(t, err)
	assert.Len(t, svc.List(), 1)
	assert.Zero(t, svc.Epoch())
}

func TestClearArchivesTranscript(t *testing.T) {
	ctx := context.Background()
	arch := archiverepo.NewMemoryStore()
	svc := New(Options{Archive: arch, Now: fixedClock()})

	res, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey, "empty history is not archived")

	_, err = svc.Post(ctx, "user", "keep me", "ann")
	require.NoError(t, err)
	res, err = svc.Clear(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.ArchiveKey)

	raw, err := arch.Get(ctx, res.ArchiveKey)
	require.NoError(t, err)
	msgs, err := archiverepo.DecodeTranscript(raw)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "keep me", msgs[0].Content)
}

type brokenArchive struct{}

func (brokenArchive) Put(context.Context, string, []byte) error { return errors.New("s3 down") }
func (brokenArchive) Get(context.Context, string) ([]byte, error) {
	return nil, archiverepo.ErrNotFound
}
func (brokenArchive) List(context.Context) ([]string, error) { return nil, nil }

func TestArchiveFailureDoesNotBlockClear(t *testing.T) {
	ctx := context.Background()
	svc := New(Options{Archive: brokenArchive{}})
	_, err := svc.Post(ctx, "user", "m", "")
	require.NoError(t, err)

	res, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey)
	assert.Empty(t, svc.List())
	assert.Equal(t, int64(1), svc.Epoch())
}

type ctxRecordingArchive struct {
	*archiverepo.MemoryStore
	putErr error
}

func (a *ctxRecordingArchive) Put(ctx context.Context, key string, raw []byte) error {
	a.putErr = ctx.Err()
	if a.putErr != nil {
		return a.putErr
	}
	return a.MemoryStore.Put(ctx, key, raw)
}

func TestClearArchivesAfterCallerCancels(t *testing.T) {
	arch := &ctxRecordingArchive{MemoryStore: archiverepo.NewMemoryStore()}
	svc := New(Options{Archive: arch, Now: fixedClock()})
	_, err := svc.Post(context.Background(), "user", "m", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Clear(ctx)
	require.NoError(t, err)
	require.NoError(t, arch.putErr)
	require.NotEmpty(t, res.ArchiveKey)

	keys, err := arch.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{res.ArchiveKey}, keys)
}
