package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"chatrelay/internal/gateway/entity"
	"chatrelay/internal/gateway/service/chat"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

type wsOutbound struct {
	Type    string          `json:"type"`
	Message *entity.Message `json:"message,omitempty"`
	Status  string          `json:"status,omitempty"`
	Code    string          `json:"code,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// HandleWS is the websocket flavour of the stream. Clients receive the same
// message/clear sequence as /stream and may post or clear over the socket.
func (h *ChatHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	lastID := parseLastEventID(r.URL.Query().Get("last_id"))

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		h.logger.Warn("ws set read deadline failed", zap.Error(err))
		_ = conn.Close()
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// closing the conn unblocks the read loop below
		defer conn.Close()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(wsWriteWait))
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	push := func(out wsOutbound) error {
		select {
		case writeCh <- out:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		err := h.svc.Stream(ctx, lastID, 0, func(ev chat.Event) error {
			switch ev.Kind {
			case chat.EventMessage:
				m := ev.Message
				return push(wsOutbound{Type: "message", Message: &m})
			case chat.EventClear:
				return push(wsOutbound{Type: "clear"})
			}
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Debug("ws stream ended", zap.Error(err))
		}
	}()

	h.logger.Debug("ws connected", zap.Int64("last_id", lastID), zap.String("remote", r.RemoteAddr))
	defer func() {
		cancel()
		<-writerDone
		<-streamDone
		h.logger.Debug("ws disconnected", zap.String("remote", r.RemoteAddr))
	}()

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			_ = push(wsOutbound{Type: "pong"})
		case "send":
			if _, err := h.svc.Post(ctx, in.Role, in.Content, in.Name); err != nil {
				_ = push(wsErrorFor(err))
			}
		case "clear":
			if _, err := h.svc.Clear(ctx); err != nil {
				h.logger.Error("ws clear failed", zap.Error(err))
				_ = push(wsOutbound{Type: "error", Code: "internal", Error: "failed to clear messages"})
				continue
			}
			_ = push(wsOutbound{Type: "clear_ack", Status: "cleared"})
		case "":
			_ = push(wsOutbound{Type: "error", Code: "invalid_argument", Error: "type is required"})
		default:
			_ = push(wsOutbound{Type: "error", Code: "invalid_argument", Error: "unsupported type: " + in.Type})
		}
	}
}

func wsErrorFor(err error) wsOutbound {
	if errors.Is(err, chat.ErrInvalidRole) || errors.Is(err, chat.ErrEmptyContent) {
		return wsOutbound{Type: "error", Code: "invalid_argument", Error: err.Error()}
	}
	return wsOutbound{Type: "error", Code: "internal", Error: "failed to store message"}
}
