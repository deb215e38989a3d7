package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chatrelay/internal/gateway/entity"

	"github.com/stretchr/testify/require"
)

func TestTranscriptEncodeDecode(t *testing.T) {
	msgs := []entity.Message{
		{ID: 1, TS: 10.5, Role: entity.RoleUser, Content: "a < b & c", Name: "ann"},
		{ID: 2, TS: 11, Role: entity.RoleAssistant, Content: "ok"},
	}
	compressed, err := EncodeTranscript(msgs)
	require.NoError(t, err)

	raw, err := DecodeTranscriptJSON(compressed)
	require.NoError(t, err)
	require.Contains(t, string(raw), "a < b & c")

	got, err := DecodeTranscript(compressed)
	require.NoError(t, err)
	require.Equal(t, msgs, got)
}

func TestEncodeEmptyTranscriptIsArray(t *testing.T) {
	compressed, err := EncodeTranscript(nil)
	require.NoError(t, err)
	raw, err := DecodeTranscriptJSON(compressed)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestTranscriptKey(t *testing.T) {
	key := TranscriptKey(3, time.Unix(0, 42))
	require.Equal(t, "transcripts/3-42.json.xz", key)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "/transcripts/b", []byte("2")))
	require.NoError(t, store.Put(ctx, "transcripts/a", []byte("1")))
	require.Error(t, store.Put(ctx, "  ", nil))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"transcripts/a", "transcripts/b"}, keys)

	got, err := store.Get(ctx, "transcripts/b")
	require.NoError(t, err)
	require.Equal(t, "2", string(got))

	_, err = store.Get(ctx, "transcripts/missing")
	require.True(t, errors.Is(err, ErrNotFound))
	require.True(t, strings.HasPrefix(keys[0], KeyPrefix))
}
