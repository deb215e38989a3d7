package handler

import (
	"errors"
	"net/http"

	"chatrelay/internal/gateway/service/chat"
	"chatrelay/internal/util/jsonutil"

	"go.uber.org/zap"
)

type postMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name"`
}

// PostMessage accepts {role, content, name}. A missing or malformed body is
// treated as an empty object so the caller gets a validation error.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var in postMessageRequest
	if !jsonutil.DecodeLenient(r.Body, &in) {
		in = postMessageRequest{}
	}
	msg, err := h.svc.Post(r.Context(), in.Role, in.Content, in.Name)
	switch {
	case errors.Is(err, chat.ErrInvalidRole), errors.Is(err, chat.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("post message failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store message")
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.List())
}

func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Clear(r.Context()); err != nil {
		h.logger.Error("clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
