package domain

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// Conn is a live connection to one relay
type Conn interface {
	QuerySync(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
	Publish(ctx context.Context, ev nostr.Event) error
	Close() error
}

// Dialer opens a connection to the relay at url
type Dialer func(ctx context.Context, url string) (Conn, error)

// QueryPort looks up existing repo announcements across the configured relays
type QueryPort interface {
	FindRepoAnnouncement(ctx context.Context, owner, repo string) (*nostr.Event, error)
}

// PublishPort fans a signed event out to the configured relays, best effort
type PublishPort interface {
	Publish(ctx context.Context, ev nostr.Event) PublishReceipt
}
