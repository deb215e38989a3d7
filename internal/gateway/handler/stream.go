package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"chatrelay/internal/gateway/service/chat"
	"chatrelay/internal/util/jsonutil"

	"go.uber.org/zap"
)

// HandleStream serves the room as Server-Sent Events. A reconnecting
// EventSource resumes from its Last-Event-ID.
func (h *ChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	lastID := parseLastEventID(r.Header.Get("Last-Event-ID"))

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Accel-Buffering", "no")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("stream connected", zap.Int64("last_id", lastID), zap.String("remote", r.RemoteAddr))
	err := h.svc.Stream(r.Context(), lastID, h.heartbeat, func(ev chat.Event) error {
		if err := writeSSE(w, ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("stream ended", zap.Error(err))
		return
	}
	h.logger.Debug("stream disconnected", zap.String("remote", r.RemoteAddr))
}

func writeSSE(w io.Writer, ev chat.Event) error {
	switch ev.Kind {
	case chat.EventMessage:
		data, err := jsonutil.MarshalNoEscape(ev.Message)
		if err != nil {
			return fmt.Errorf("encode message %d: %w", ev.Message.ID, err)
		}
		_, err = fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", ev.Message.ID, data)
		return err
	case chat.EventClear:
		_, err := io.WriteString(w, "event: clear\ndata: {}\n\n")
		return err
	case chat.EventHeartbeat:
		_, err := io.WriteString(w, ": ping\n\n")
		return err
	}
	return nil
}

// parseLastEventID accepts only plain digits; anything else restarts from 0.
func parseLastEventID(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
