package service

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	dom "gitstr/internal/services/journal/domain"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	ctx := context.Background()

	entries := []dom.Entry{
		{Kind: 30617, Identity: "acme/widget", EventID: "ev-1", Relays: []string{"wss://a", "wss://b"}},
		{Kind: 1623, Identity: "acme/widget", EventID: "ev-2", Relays: []string{"wss://a"}},
		{Kind: 1621, Identity: "acme/gadget", EventID: "ev-3"},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("record %s: %v", e.EventID, err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// newest first
	if got[0].EventID != "ev-3" || got[2].EventID != "ev-1" {
		t.Fatalf("unexpected order: %s .. %s", got[0].EventID, got[2].EventID)
	}
	if !reflect.DeepEqual(got[2].Relays, []string{"wss://a", "wss://b"}) {
		t.Fatalf("relays = %v", got[2].Relays)
	}
	if got[1].Relays != nil && len(got[1].Relays) != 1 {
		t.Fatalf("relays = %v", got[1].Relays)
	}
	if got[0].Relays != nil {
		t.Fatalf("expected no relays, got %v", got[0].Relays)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("created_at not stamped")
	}
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		if err := j.Record(ctx, dom.Entry{Kind: 1337, Identity: "acme/widget", EventID: "ev"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != defaultRecentLimit {
		t.Fatalf("expected cap at %d, got %d", defaultRecentLimit, len(got))
	}

	got, err = j.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5, got %d", len(got))
	}
}

func TestRecordKeepsExplicitTimestamp(t *testing.T) {
	t.Parallel()

	j := openTest(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if err := j.Record(ctx, dom.Entry{Kind: 1622, Identity: "acme/widget", EventID: "ev", CreatedAt: at}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Fatalf("created_at = %v", got[0].CreatedAt)
	}
}
