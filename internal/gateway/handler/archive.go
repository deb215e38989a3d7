package handler

import (
	"errors"
	"net/http"
	"strings"

	archiverepo "chatrelay/internal/gateway/repository/archive"

	"go.uber.org/zap"
)

// ArchiveHandler exposes transcripts saved on clear. store may be nil when
// archiving is disabled; every route then answers 404.
type ArchiveHandler struct {
	store  archiverepo.Store
	logger *zap.Logger
}

func NewArchiveHandler(store archiverepo.Store, logger *zap.Logger) *ArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveHandler{store: store, logger: logger}
}

func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "archive is disabled")
		return
	}
	keys, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list transcripts failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to list transcripts")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// Get returns the decompressed JSON transcript for key.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "archive is disabled")
		return
	}
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if !strings.HasPrefix(key, archiverepo.KeyPrefix) {
		key = archiverepo.KeyPrefix + key
	}
	raw, err := h.store.Get(r.Context(), key)
	if errors.Is(err, archiverepo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	if err != nil {
		h.logger.Error("get transcript failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to read transcript")
		return
	}
	body, err := archiverepo.DecodeTranscriptJSON(raw)
	if err != nil {
		h.logger.Error("decode transcript failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "transcript is corrupt")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
