package domain

import (
	"time"
)

// OutboxOperation is the index action a pending sync marker asks for.
type OutboxOperation string

const (
	OutboxOpIndex  OutboxOperation = "index"
	OutboxOpRemove OutboxOperation = "remove"
)

// Outbox marker status constants.
const (
	OutboxStatusPending = "pending"
	OutboxStatusFailed  = "failed"
)

// MaxOutboxBackoff caps the delay between retries of one marker.
const MaxOutboxBackoff = 5 * time.Minute

// OutboxEntry is a pending index sync for one game. There is at most one
// entry per game; a newer mutation overwrites the older marker.
type OutboxEntry struct {
	GameID        string          `json:"game_id"`
	Operation     OutboxOperation `json:"operation"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OutboxBackoff returns the delay before retry number attempts,
// min(2^attempts seconds, MaxOutboxBackoff).
func OutboxBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= 9 {
		return MaxOutboxBackoff
	}
	d := time.Duration(1<<uint(attempts)) * time.Second
	if d > MaxOutboxBackoff {
		return MaxOutboxBackoff
	}
	return d
}
