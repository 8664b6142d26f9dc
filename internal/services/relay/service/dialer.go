package service

import (
	"context"

	"github.com/nbd-wtf/go-nostr"

	perr "gitstr/internal/platform/errors"
	dom "gitstr/internal/services/relay/domain"
)

// NostrDialer opens a real websocket connection to a NIP-01 relay
func NostrDialer(ctx context.Context, url string) (dom.Conn, error) {
	r, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeRelayUnreachable, "dial %s", url)
	}
	return nostrConn{r: r}, nil
}

type nostrConn struct{ r *nostr.Relay }

func (c nostrConn) QuerySync(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	return c.r.QuerySync(ctx, filter)
}

func (c nostrConn) Publish(ctx context.Context, ev nostr.Event) error {
	return c.r.Publish(ctx, ev)
}

func (c nostrConn) Close() error { return c.r.Close() }
