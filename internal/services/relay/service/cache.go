package service

import (
	"context"
	"strings"
	"sync"

	"github.com/nbd-wtf/go-nostr"

	dom "gitstr/internal/services/relay/domain"
)

// Lookup is the memoized outcome of a single repo announcement query.
// Callers block on Wait; the underlying query runs at most once
type Lookup struct {
	done chan struct{}
	ev   *nostr.Event
	err  error
}

// Wait blocks until the lookup resolves or ctx expires
func (l *Lookup) Wait(ctx context.Context) (*nostr.Event, error) {
	select {
	case <-l.done:
		return l.ev, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ready reports whether the lookup has resolved without blocking
func (l *Lookup) Ready() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Cache memoizes repo announcement lookups for the lifetime of one session
// so that repeated page mutations never re-query the relays
type Cache struct {
	mu     sync.Mutex
	bySlug map[string]*Lookup
	query  dom.QueryPort
}

// NewCache constructs a session-scoped cache over the given query port
func NewCache(query dom.QueryPort) *Cache {
	return &Cache{bySlug: make(map[string]*Lookup), query: query}
}

// GetOrCreate returns the lookup for owner/repo, starting the relay query on
// first access. Subsequent calls for the same repo return the same *Lookup,
// including while the query is still in flight
func (c *Cache) GetOrCreate(ctx context.Context, owner, repo string) *Lookup {
	slug := strings.ToLower(owner + "/" + repo)

	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.bySlug[slug]; ok {
		return l
	}

	l := &Lookup{done: make(chan struct{})}
	c.bySlug[slug] = l

	// the query outlives the click that triggered it; later clicks in the
	// same session reuse the result
	qctx := context.WithoutCancel(ctx)
	go func() {
		l.ev, l.err = c.query.FindRepoAnnouncement(qctx, owner, repo)
		close(l.done)
	}()
	return l
}

// Put replaces the lookup for owner/repo with an already-resolved event,
// typically one the session just published
func (c *Cache) Put(owner, repo string, ev *nostr.Event) {
	slug := strings.ToLower(owner + "/" + repo)
	l := &Lookup{done: make(chan struct{}), ev: ev}
	close(l.done)

	c.mu.Lock()
	c.bySlug[slug] = l
	c.mu.Unlock()
}
