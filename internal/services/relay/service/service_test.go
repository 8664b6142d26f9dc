package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	dom "gitstr/internal/services/relay/domain"
)

type fakeConn struct {
	events     []*nostr.Event
	queryErr   error
	publishErr error
	published  *atomic.Int64
}

func (f fakeConn) QuerySync(context.Context, nostr.Filter) ([]*nostr.Event, error) {
	return f.events, f.queryErr
}

func (f fakeConn) Publish(context.Context, nostr.Event) error {
	if f.published != nil && f.publishErr == nil {
		f.published.Add(1)
	}
	return f.publishErr
}

func (f fakeConn) Close() error { return nil }

// dialerFor returns a Dialer backed by a fixed conn per relay URL
func dialerFor(conns map[string]dom.Conn) dom.Dialer {
	return func(_ context.Context, url string) (dom.Conn, error) {
		conn, ok := conns[url]
		if !ok {
			return nil, errors.New("dial refused")
		}
		return conn, nil
	}
}

func announcement(id, owner, repo string, createdAt int64) *nostr.Event {
	return &nostr.Event{
		ID:        id,
		Kind:      dom.KindRepoAnnouncement,
		CreatedAt: nostr.Timestamp(createdAt),
		Tags: nostr.Tags{
			{"d", repo},
			{"clone", "https://github.com/" + owner + "/" + repo + ".git"},
		},
	}
}

func TestFindRepoAnnouncementNoneFound(t *testing.T) {
	t.Parallel()

	svc := New(Config{Relays: []string{"wss://a", "wss://b"}}, dialerFor(map[string]dom.Conn{
		"wss://a": fakeConn{},
		"wss://b": fakeConn{},
	}))

	ev, err := svc.FindRepoAnnouncement(context.Background(), "acme", "widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil event, got %q", ev.ID)
	}
}

func TestFindRepoAnnouncementSkipsWrongOwner(t *testing.T) {
	t.Parallel()

	svc := New(Config{Relays: []string{"wss://a"}}, dialerFor(map[string]dom.Conn{
		"wss://a": fakeConn{events: []*nostr.Event{
			announcement("ev1", "someone-else", "widget", 100),
			announcement("ev2", "acme", "widget", 50),
		}},
	}))

	ev, err := svc.FindRepoAnnouncement(context.Background(), "acme", "widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev == nil || ev.ID != "ev2" {
		t.Fatalf("expected ev2, got %+v", ev)
	}
}

func TestMatchesRepoIsCaseSensitive(t *testing.T) {
	t.Parallel()

	ev := announcement("ev1", "Acme", "Widget", 10)
	if matchesRepo(ev, "acme", "widget") {
		t.Fatal("clone substring match must be case sensitive")
	}
	if !matchesRepo(ev, "Acme", "Widget") {
		t.Fatal("exact owner/repo should match")
	}
}

func TestFindRepoAnnouncementRelayOrderWins(t *testing.T) {
	t.Parallel()

	// the second relay has a newer event, but the first configured relay
	// that answered takes precedence
	svc := New(Config{Relays: []string{"wss://a", "wss://b"}}, dialerFor(map[string]dom.Conn{
		"wss://a": fakeConn{events: []*nostr.Event{announcement("older", "acme", "widget", 100)}},
		"wss://b": fakeConn{events: []*nostr.Event{announcement("newer", "acme", "widget", 200)}},
	}))

	ev, err := svc.FindRepoAnnouncement(context.Background(), "acme", "widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev == nil || ev.ID != "older" {
		t.Fatalf("expected event from first relay, got %+v", ev)
	}
}

func TestFindRepoAnnouncementSurvivesRelayFailure(t *testing.T) {
	t.Parallel()

	svc := New(Config{Relays: []string{"wss://down", "wss://up"}}, dialerFor(map[string]dom.Conn{
		"wss://up": fakeConn{events: []*nostr.Event{announcement("ev1", "acme", "widget", 10)}},
	}))

	ev, err := svc.FindRepoAnnouncement(context.Background(), "acme", "widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev == nil || ev.ID != "ev1" {
		t.Fatalf("expected ev1 despite first relay being down, got %+v", ev)
	}
}

func TestPickAnnouncementTieBreaks(t *testing.T) {
	t.Parallel()

	ev := func(id string, at int64) *nostr.Event {
		return &nostr.Event{ID: id, CreatedAt: nostr.Timestamp(at)}
	}

	tests := []struct {
		name  string
		cands []dom.Candidate
		want  string
	}{
		{"empty", nil, ""},
		{
			"lower relay index wins",
			[]dom.Candidate{
				{Event: ev("b", 200), RelayIndex: 1},
				{Event: ev("a", 100), RelayIndex: 0},
			},
			"a",
		},
		{
			"same relay newer wins",
			[]dom.Candidate{
				{Event: ev("old", 100), RelayIndex: 0},
				{Event: ev("new", 200), RelayIndex: 0},
			},
			"new",
		},
		{
			"same second smaller id wins",
			[]dom.Candidate{
				{Event: ev("ffff", 100), RelayIndex: 0},
				{Event: ev("aaaa", 100), RelayIndex: 0},
			},
			"aaaa",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pickAnnouncement(tc.cands)
			switch {
			case tc.want == "" && got != nil:
				t.Fatalf("expected nil, got %q", got.ID)
			case tc.want != "" && (got == nil || got.ID != tc.want):
				t.Fatalf("expected %q, got %+v", tc.want, got)
			}
		})
	}
}

func TestPublishPartialFailure(t *testing.T) {
	t.Parallel()

	var accepted atomic.Int64
	svc := New(Config{Relays: []string{"wss://ok", "wss://refuses", "wss://down"}}, dialerFor(map[string]dom.Conn{
		"wss://ok":      fakeConn{published: &accepted},
		"wss://refuses": fakeConn{publishErr: errors.New("blocked: rate limited")},
	}))

	receipt := svc.Publish(context.Background(), nostr.Event{ID: "evt"})
	if len(receipt.Accepted) != 1 || receipt.Accepted[0] != "wss://ok" {
		t.Fatalf("accepted = %v", receipt.Accepted)
	}
	if len(receipt.Failed) != 2 {
		t.Fatalf("failed = %v", receipt.Failed)
	}
	if accepted.Load() != 1 {
		t.Fatalf("expected exactly one delivery, got %d", accepted.Load())
	}
}

func TestPublishAllFailStaysQuiet(t *testing.T) {
	t.Parallel()

	svc := New(Config{Relays: []string{"wss://down1", "wss://down2"}}, dialerFor(nil))

	receipt := svc.Publish(context.Background(), nostr.Event{ID: "evt"})
	if receipt.AcceptedAny() {
		t.Fatalf("expected empty receipt, got %v", receipt.Accepted)
	}
	if len(receipt.Failed) != 2 {
		t.Fatalf("failed = %v", receipt.Failed)
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	svc := New(Config{}, dialerFor(nil))
	if svc.cfg.PerRelayTimeout != 7*time.Second {
		t.Fatalf("timeout default = %v", svc.cfg.PerRelayTimeout)
	}
	if svc.cfg.QueryLimit != 10 {
		t.Fatalf("query limit default = %d", svc.cfg.QueryLimit)
	}
}
