package chat

import (
	"context"
	"time"

	"chatrelay/internal/gateway/entity"
)

const DefaultHeartbeatInterval = 15 * time.Second

type EventKind int

const (
	EventMessage EventKind = iota
	EventClear
	EventHeartbeat
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventClear:
		return "clear"
	case EventHeartbeat:
		return "heartbeat"
	}
	return "unknown"
}

type Event struct {
	Kind    EventKind
	Message entity.Message
}

// Stream sends every message after lastID, then follows the room until ctx
// ends or emit fails. A clear is reported before any message posted after
// it; clears that happen between two wakeups coalesce into one event. The
// cursor is kept across clears because ids are never reused.
func (s *Service) Stream(ctx context.Context, lastID int64, heartbeat time.Duration, emit func(Event) error) error {
	snap := s.Since(lastID)
	epoch := snap.Epoch
	for _, m := range snap.Messages {
		if err := emit(Event{Kind: EventMessage, Message: m}); err != nil {
			return err
		}
		lastID = m.ID
	}

	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	changed := snap.Changed
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if err := emit(Event{Kind: EventHeartbeat}); err != nil {
				return err
			}
		case <-changed:
			snap = s.Since(lastID)
			changed = snap.Changed
			if snap.Epoch != epoch {
				epoch = snap.Epoch
				if err := emit(Event{Kind: EventClear}); err != nil {
					return err
				}
			}
			for _, m := range snap.Messages {
				if err := emit(Event{Kind: EventMessage, Message: m}); err != nil {
					return err
				}
				lastID = m.ID
			}
		}
	}
}
