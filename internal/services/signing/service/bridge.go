// Package service implements the signing bridge that correlates SIGN_REQUEST
// frames with their SIGN_SUCCESS or SIGN_FAILURE replies
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"

	perr "gitstr/internal/platform/errors"
	"gitstr/internal/platform/logger"
	dom "gitstr/internal/services/signing/domain"
)

// Config for the signing bridge
type Config struct {
	// ApprovalTimeout optionally bounds how long we wait for the user to
	// approve or reject one signature. Zero means wait until ctx cancels;
	// the human deciding in a popup is not on our clock
	ApprovalTimeout time.Duration
}

// Bridge implements domain.SignerPort over a domain.Channel. Each in-flight
// request is keyed by its request id; replies arriving for unknown ids are
// dropped with a warning
type Bridge struct {
	cfg Config
	ch  dom.Channel
	log *logger.Logger

	mu      sync.Mutex
	pending map[string]chan dom.Envelope
	closed  bool
}

// NewBridge constructs a bridge over the given outbound channel
func NewBridge(cfg Config, ch dom.Channel) *Bridge {
	return &Bridge{
		cfg:     cfg,
		ch:      ch,
		log:     logger.Named("signing"),
		pending: make(map[string]chan dom.Envelope),
	}
}

// RequestSignature sends unsigned to the signer and blocks until a reply
// with the same request id arrives, the approval window lapses, or ctx is
// cancelled. A SIGN_FAILURE reply maps to a signer rejected error; transport
// trouble maps to signer unavailable
func (b *Bridge) RequestSignature(ctx context.Context, unsigned *nostr.Event) (*nostr.Event, error) {
	reqID := uuid.NewString()
	reply := make(chan dom.Envelope, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, perr.SignerUnavailablef("signing channel closed")
	}
	b.pending[reqID] = reply
	b.mu.Unlock()
	defer b.forget(reqID)

	env := dom.Envelope{Type: dom.TypeSignRequest, RequestID: reqID, Event: unsigned}
	if err := b.ch.Send(ctx, env); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSignerUnavailable, "send sign request")
	}
	b.log.Debug().Str("request_id", reqID).Int("kind", unsigned.Kind).Msg("sign request sent")

	var timeout <-chan time.Time
	if b.cfg.ApprovalTimeout > 0 {
		timer := time.NewTimer(b.cfg.ApprovalTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return nil, perr.SignerUnavailablef("signing channel closed while waiting")
		}
		return b.accept(reqID, resp)
	case <-timeout:
		return nil, perr.SignerUnavailablef("signer did not respond within %s", b.cfg.ApprovalTimeout)
	case <-ctx.Done():
		return nil, perr.Wrap(ctx.Err(), perr.ErrorCodeSignerUnavailable, "sign request cancelled")
	}
}

func (b *Bridge) accept(reqID string, resp dom.Envelope) (*nostr.Event, error) {
	switch resp.Type {
	case dom.TypeSignSuccess:
		if resp.Event == nil || resp.Event.Sig == "" {
			return nil, perr.SignerRejectedf("signer returned no signature")
		}
		b.log.Debug().Str("request_id", reqID).Str("event_id", resp.Event.ID).Msg("event signed")
		return resp.Event, nil
	case dom.TypeSignFailure:
		msg := resp.Error
		if msg == "" {
			msg = "signer declined"
		}
		return nil, perr.SignerRejectedf("%s", msg)
	default:
		return nil, perr.SignerRejectedf("unexpected reply type %q", resp.Type)
	}
}

// Deliver routes a signer reply to the request that is waiting for it.
// It returns false when no request with that id is pending
func (b *Bridge) Deliver(resp dom.Envelope) bool {
	b.mu.Lock()
	reply, ok := b.pending[resp.RequestID]
	if ok {
		delete(b.pending, resp.RequestID)
	}
	b.mu.Unlock()

	if !ok {
		b.log.Warn().Str("request_id", resp.RequestID).Str("type", resp.Type).Msg("reply for unknown request")
		return false
	}
	reply <- resp
	return true
}

// Close fails every pending request and rejects new ones. Called when the
// session that owns the channel goes away
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, reply := range b.pending {
		close(reply)
		delete(b.pending, id)
	}
}

func (b *Bridge) forget(reqID string) {
	b.mu.Lock()
	delete(b.pending, reqID)
	b.mu.Unlock()
}
