package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chatrelay/internal/gateway/entity"
	archiverepo "chatrelay/internal/gateway/repository/archive"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func archiveMux(h *ArchiveHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/archives", h.List)
	mux.HandleFunc("GET /api/archives/{key...}", h.Get)
	return mux
}

func TestArchiveDisabled(t *testing.T) {
	mux := archiveMux(NewArchiveHandler(nil, nil))
	for _, path := range []string{"/api/archives", "/api/archives/transcripts/1.json.xz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestArchiveListAndGet(t *testing.T) {
	ctx := context.Background()
	store := archiverepo.NewMemoryStore()
	raw, err := archiverepo.EncodeTranscript([]entity.Message{{ID: 1, Role: entity.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "transcripts/1-5.json.xz", raw))
	mux := archiveMux(NewArchiveHandler(store, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var keys []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	assert.Equal(t, []string{"transcripts/1-5.json.xz"}, keys)

	for _, path := range []string{"/api/archives/transcripts/1-5.json.xz", "/api/archives/1-5.json.xz"} {
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		var msgs []entity.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Content)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveCorruptTranscript(t *testing.T) {
	store := archiverepo.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "transcripts/bad", []byte("not xz")))
	mux := archiveMux(NewArchiveHandler(store, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives/bad", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "corrupt"))
}
