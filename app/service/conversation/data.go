package conversation

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusAwaiting Status = "awaiting_reply"
)

var (
	// ErrEmptyInput rejects submissions that are empty after trimming.
	ErrEmptyInput = errors.New("empty input")
	// ErrInputTooLong rejects submissions over the configured length cap.
	ErrInputTooLong = errors.New("input too long")
	// ErrAlreadyPending rejects a submission while a reply is outstanding.
	ErrAlreadyPending = errors.New("reply already pending")
	// ErrStaleHandle rejects a resolution whose handle no longer matches
	// the outstanding submission. Callers should treat it as an
	// integration fault, not a user error.
	ErrStaleHandle = errors.New("stale pending handle")
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Pending identifies one accepted submission awaiting its reply.
type Pending struct {
	ID        uint64
	Utterance string
}

// Snapshot is a detached copy of the conversation for rendering.
type Snapshot struct {
	Messages []Message
	Pending  bool
}
