// Package domain defines the types and interfaces for the relay service
package domain

import "github.com/nbd-wtf/go-nostr"

// KindRepoAnnouncement mirrors events.KindRepoAnnouncement without importing it
// so the relay domain stays dependency-free of the builder
const KindRepoAnnouncement = 30617

// PublishReceipt records the outcome of a best-effort publish fan-out
type PublishReceipt struct {
	EventID  string
	Accepted []string // relay URLs that acked the event
	Failed   []string // relay URLs that refused or were unreachable
}

// AcceptedAny reports whether at least one relay took the event
func (r PublishReceipt) AcceptedAny() bool { return len(r.Accepted) > 0 }

// Candidate is a query match paired with the index of the relay that served it.
// The index is the position in the configured relay list, which is the primary
// tie-break when several relays return announcements for the same repo
type Candidate struct {
	Event      *nostr.Event
	RelayIndex int
}
