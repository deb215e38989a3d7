package entity

import (
	"strings"
	"time"
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func NormalizeRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Message is a single entry in the relay history. TS is unix seconds with a
// fractional part so browser clients can feed it straight into Date.
type Message struct {
	ID      int64   `json:"id"`
	TS      float64 `json:"ts"`
	Role    Role    `json:"role"`
	Content string  `json:"content"`
	Name    string  `json:"name"`
}

func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
