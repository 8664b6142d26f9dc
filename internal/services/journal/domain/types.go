// Package domain defines the publish journal types
package domain

import (
	"context"
	"time"
)

// Entry is one published event in the local history
type Entry struct {
	ID        int64     `json:"id"`
	Kind      int       `json:"kind"`
	Identity  string    `json:"identity"` // owner/repo slug the event was built for
	EventID   string    `json:"event_id"`
	Relays    []string  `json:"relays"` // relays that accepted it
	CreatedAt time.Time `json:"created_at"`
}

// RecorderPort appends publish outcomes to the journal
type RecorderPort interface {
	Record(ctx context.Context, e Entry) error
}

// ReaderPort lists recent journal entries, newest first
type ReaderPort interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
