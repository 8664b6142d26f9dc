package events

import (
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"gitstr/internal/core/gitref"
	perr "gitstr/internal/platform/errors"
)

func frozen(t time.Time) func() time.Time { return func() time.Time { return t } }

func widget() gitref.RepoIdentity {
	return gitref.RepoIdentity{Host: "host", Owner: "acme", Repo: "widget"}
}

func hasTag(ev nostr.Event, want nostr.Tag) bool {
	for _, tag := range ev.Tags {
		if len(tag) != len(want) {
			continue
		}
		same := true
		for i := range tag {
			if tag[i] != want[i] {
				same = false
			}
		}
		if same {
			return true
		}
	}
	return false
}

func TestRepoAnnouncementTags(t *testing.T) {
	b := NewAt(frozen(time.Unix(1700000000, 0)))
	relays := []string{"wss://a", "wss://b"}
	ev, err := b.RepoAnnouncement(widget(), gitref.RepoMetadata{
		Description: "widgets for everyone",
		Topics:      []string{"Tooling", "go"},
		License:     "MIT",
	}, "abc123", relays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.Kind != KindRepoAnnouncement {
		t.Fatalf("kind = %d", ev.Kind)
	}
	if ev.CreatedAt != nostr.Timestamp(1700000000) {
		t.Fatalf("created_at = %d", ev.CreatedAt)
	}
	if ev.Content != "" {
		t.Fatalf("content must be empty string, got %q", ev.Content)
	}
	for _, want := range []nostr.Tag{
		{"d", "widget"},
		{"name", "widget"},
		{"web", "https://host/acme/widget"},
		{"clone", "https://host/acme/widget.git"},
		{"description", "widgets for everyone"},
		{"t", "tooling"},
		{"t", "go"},
		{"t", "license-mit"},
		{"r", "abc123", "euc"},
		{"relay", "wss://a", "wss://b"},
	} {
		if !hasTag(ev, want) {
			t.Fatalf("missing tag %v in %v", want, ev.Tags)
		}
	}
	// unsigned: identity fields belong to the trusted signer
	if ev.ID != "" || ev.PubKey != "" || ev.Sig != "" {
		t.Fatalf("builder must not fill signer fields")
	}
}

func TestRepoAnnouncementOmitsUnknownOptionals(t *testing.T) {
	b := New()
	ev, err := b.RepoAnnouncement(widget(), gitref.RepoMetadata{}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tag := range ev.Tags {
		switch tag[0] {
		case "description", "r", "relay":
			t.Fatalf("unexpected optional tag %v", tag)
		}
	}
}

func TestRepoAnnouncementMissWithoutIdentity(t *testing.T) {
	b := New()
	_, err := b.RepoAnnouncement(gitref.RepoIdentity{Host: "host"}, gitref.RepoMetadata{}, "", nil)
	if !perr.IsCode(err, perr.ErrorCodeExtractionMiss) {
		t.Fatalf("want extraction miss, got %v", err)
	}
}

func TestRepoAnnouncementStableWithinSecond(t *testing.T) {
	at := time.Unix(1700000123, 250_000_000)
	b := NewAt(frozen(at))
	ev1, _ := b.RepoAnnouncement(widget(), gitref.RepoMetadata{}, "", nil)
	ev2, _ := b.RepoAnnouncement(widget(), gitref.RepoMetadata{}, "", nil)
	if ev1.CreatedAt != ev2.CreatedAt {
		t.Fatalf("created_at must match within a second: %d vs %d", ev1.CreatedAt, ev2.CreatedAt)
	}
	if len(ev1.Tags) != len(ev2.Tags) {
		t.Fatalf("tag lists differ")
	}
}

func TestStampNeverGoesBackwards(t *testing.T) {
	ts := time.Unix(2000, 0)
	b := NewAt(func() time.Time { return ts })
	first := b.stamp()
	ts = time.Unix(1500, 0) // clock skew backwards
	second := b.stamp()
	if second < first {
		t.Fatalf("stamp regressed: %d < %d", second, first)
	}
}

func TestCodeReferenceLineTag(t *testing.T) {
	b := New()
	sel := gitref.PermalinkSelection{
		Identity: widget(), Branch: "main", FilePath: "src/app.ts",
		StartLine: 10, EndLine: 25, Content: "line range",
	}
	ev, err := b.CodeReference(sel, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasTag(ev, nostr.Tag{"lines", "10", "25"}) {
		t.Fatalf("missing lines tag: %v", ev.Tags)
	}
	if !hasTag(ev, nostr.Tag{"extension", "ts"}) {
		t.Fatalf("missing extension tag: %v", ev.Tags)
	}
	if !hasTag(ev, nostr.Tag{"l", "typescript"}) {
		t.Fatalf("missing language tag: %v", ev.Tags)
	}

	sel.EndLine = 0
	ev, _ = b.CodeReference(sel, nil, nil)
	if !hasTag(ev, nostr.Tag{"lines", "10"}) {
		t.Fatalf("single line tag must have one field: %v", ev.Tags)
	}

	// an end without a start is not representable
	sel.StartLine, sel.EndLine = 0, 25
	ev, _ = b.CodeReference(sel, nil, nil)
	for _, tag := range ev.Tags {
		if tag[0] == "lines" {
			t.Fatalf("lines tag must be absent: %v", tag)
		}
	}
}

func TestCodeReferenceLinksAnnouncement(t *testing.T) {
	b := New()
	repoEvent := &nostr.Event{Kind: KindRepoAnnouncement, PubKey: "f00"}
	commit := &gitref.CommitInfo{FullHash: "deadbeef", ShortHash: "deadbee"}
	ev, err := b.CodeReference(gitref.PermalinkSelection{
		Identity: widget(), Branch: "main", FilePath: "pkg/x.go", StartLine: 3,
	}, repoEvent, commit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasTag(ev, nostr.Tag{"d", "30617:f00:widget"}) {
		t.Fatalf("missing announcement link: %v", ev.Tags)
	}
	if !hasTag(ev, nostr.Tag{"refs/heads/main", "deadbeef"}) {
		t.Fatalf("missing branch ref tag: %v", ev.Tags)
	}
}

func TestCodeSnippetDescriptionPrecedence(t *testing.T) {
	b := New()
	sel := gitref.SnippetSelection{
		Identity: widget(), Branch: "main", FilePath: "src/app.ts",
		Content: "let x = 1", Description: "from page", Runtime: "node 18",
	}

	ev, err := b.CodeSnippet(sel, &gitref.SnippetDescription{Description: "user says", Runtime: "node 20"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasTag(ev, nostr.Tag{"description", "user says"}) {
		t.Fatalf("user description must win: %v", ev.Tags)
	}
	if !hasTag(ev, nostr.Tag{"runtime", "node 20"}) {
		t.Fatalf("user runtime must win: %v", ev.Tags)
	}

	ev, _ = b.CodeSnippet(sel, nil)
	if !hasTag(ev, nostr.Tag{"description", "from page"}) {
		t.Fatalf("page description must be kept: %v", ev.Tags)
	}
}

func TestCodeSnippetLicenseOmittedWhenUnknown(t *testing.T) {
	b := New()
	ev, _ := b.CodeSnippet(gitref.SnippetSelection{
		Identity: widget(), FilePath: "x.py", Content: "pass", Description: "d",
	}, nil)
	for _, tag := range ev.Tags {
		if tag[0] == "license" {
			t.Fatalf("license must not be guessed: %v", tag)
		}
	}
}
