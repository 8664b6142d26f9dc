// Package service implements relay querying and publishing over NIP-01
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"gitstr/internal/platform/logger"
	dom "gitstr/internal/services/relay/domain"
)

// Config for the relay service
type Config struct {
	// Relays is the configured relay list, in priority order
	Relays []string

	// PerRelayTimeout bounds each dial+query or dial+publish attempt
	PerRelayTimeout time.Duration

	// QueryLimit caps how many announcements a single relay may return
	QueryLimit int
}

// Service implements domain.QueryPort and domain.PublishPort
type Service struct {
	cfg  Config
	dial dom.Dialer
	log  *logger.Logger
}

// New constructs a relay service. A nil dialer panics since nothing works without one
func New(cfg Config, dial dom.Dialer) *Service {
	if dial == nil {
		panic("relay service requires a dialer")
	}
	if cfg.PerRelayTimeout <= 0 {
		cfg.PerRelayTimeout = 7 * time.Second
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = 10
	}
	return &Service{cfg: cfg, dial: dial, log: logger.Named("relay")}
}

// Relays returns the configured relay list in priority order
func (s *Service) Relays() []string { return append([]string(nil), s.cfg.Relays...) }

// FindRepoAnnouncement queries every configured relay for a kind-30617
// announcement of owner/repo and returns the single winner, or (nil, nil)
// when no relay knows the repo. Per-relay failures are logged and skipped;
// only a repo that no reachable relay has announced yields a nil event
func (s *Service) FindRepoAnnouncement(ctx context.Context, owner, repo string) (*nostr.Event, error) {
	filter := nostr.Filter{
		Kinds: []int{dom.KindRepoAnnouncement},
		Tags:  nostr.TagMap{"d": []string{strings.ToLower(repo)}},
		Limit: s.cfg.QueryLimit,
	}

	var (
		mu         sync.Mutex
		candidates []dom.Candidate
		wg         sync.WaitGroup
	)
	for i, url := range s.cfg.Relays {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			evs, err := s.queryOne(ctx, url, filter)
			if err != nil {
				s.log.Warn().Err(err).Str("relay", url).Msg("repo announcement query failed")
				return
			}
			mu.Lock()
			for _, ev := range evs {
				if matchesRepo(ev, owner, repo) {
					candidates = append(candidates, dom.Candidate{Event: ev, RelayIndex: idx})
				}
			}
			mu.Unlock()
		}(i, url)
	}
	wg.Wait()

	return pickAnnouncement(candidates), nil
}

func (s *Service) queryOne(ctx context.Context, url string, filter nostr.Filter) ([]*nostr.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PerRelayTimeout)
	defer cancel()

	conn, err := s.dial(ctx, url)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.QuerySync(ctx, filter)
}

// matchesRepo requires a clone tag whose URL contains owner/repo verbatim so
// that a same-named repo announced by a different owner never shadows this one
func matchesRepo(ev *nostr.Event, owner, repo string) bool {
	if ev == nil {
		return false
	}
	needle := owner + "/" + repo
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != "clone" {
			continue
		}
		for _, u := range tag[1:] {
			if strings.Contains(u, needle) {
				return true
			}
		}
	}
	return false
}

// pickAnnouncement resolves ties deterministically: the relay earliest in the
// configured list wins, then the newer event, then the lexicographically
// smaller event id
func pickAnnouncement(cands []dom.Candidate) *nostr.Event {
	var best *dom.Candidate
	for i := range cands {
		c := &cands[i]
		if best == nil || betterCandidate(c, best) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.Event
}

func betterCandidate(a, b *dom.Candidate) bool {
	if a.RelayIndex != b.RelayIndex {
		return a.RelayIndex < b.RelayIndex
	}
	if a.Event.CreatedAt != b.Event.CreatedAt {
		return a.Event.CreatedAt > b.Event.CreatedAt
	}
	return a.Event.ID < b.Event.ID
}

// Publish fans ev out to every configured relay, best effort. Per-relay
// refusals are logged and collected in the receipt, never surfaced as an
// error; callers that care inspect the receipt
func (s *Service) Publish(ctx context.Context, ev nostr.Event) dom.PublishReceipt {
	receipt := dom.PublishReceipt{EventID: ev.ID}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, url := range s.cfg.Relays {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			err := s.publishOne(ctx, url, ev)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Debug().Err(err).Str("relay", url).Str("event_id", ev.ID).Msg("publish refused")
				receipt.Failed = append(receipt.Failed, url)
				return
			}
			receipt.Accepted = append(receipt.Accepted, url)
		}(url)
	}
	wg.Wait()

	s.log.Info().
		Str("event_id", ev.ID).
		Int("kind", ev.Kind).
		Int("accepted", len(receipt.Accepted)).
		Int("failed", len(receipt.Failed)).
		Msg("event published")
	return receipt
}

func (s *Service) publishOne(ctx context.Context, url string, ev nostr.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PerRelayTimeout)
	defer cancel()

	conn, err := s.dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Publish(ctx, ev)
}
