package domain

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// Channel carries signing envelopes to the extension-side signer.
// Implementations are expected to be safe for concurrent Send calls
type Channel interface {
	Send(ctx context.Context, env Envelope) error
}

// SignerPort turns unsigned events into signed ones, however long the
// human on the other end takes to approve
type SignerPort interface {
	RequestSignature(ctx context.Context, unsigned *nostr.Event) (*nostr.Event, error)
}
