// Package events builds unsigned protocol events from typed page selections.
// Construction is deterministic given its inputs except for the wall-clock
// timestamp; the agent never computes ids or signatures itself - those belong
// to the user's trusted signer.
package events

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"gitstr/internal/core/gitref"
	"gitstr/internal/core/langhint"
	perr "gitstr/internal/platform/errors"
)

// Builder constructs unsigned events with a monotonic non-decreasing
// created_at stamp
type Builder struct {
	mu   sync.Mutex
	last nostr.Timestamp
	now  func() time.Time // seam for tests
}

// New returns a wall-clock backed Builder
func New() *Builder { return &Builder{now: time.Now} }

// NewAt returns a Builder with an injected clock
func NewAt(now func() time.Time) *Builder { return &Builder{now: now} }

// stamp returns unix seconds, clamped so consecutive builds never go backwards
func (b *Builder) stamp() nostr.Timestamp {
	b.mu.Lock()
	defer b.mu.Unlock()
	ts := nostr.Timestamp(b.now().Unix())
	if ts < b.last {
		ts = b.last
	}
	b.last = ts
	return ts
}

// RepoAnnouncement builds a repository announcement event. rootCommit and the
// optional metadata degrade to omitted tags when unknown; an identity that
// does not name owner/repo is an extraction miss.
func (b *Builder) RepoAnnouncement(
	id gitref.RepoIdentity,
	meta gitref.RepoMetadata,
	rootCommit string,
	relays []string,
) (nostr.Event, error) {
	if id.IsZero() {
		return nostr.Event{}, perr.ExtractionMissf("page url does not name owner/repo")
	}

	tags := nostr.Tags{
		nostr.Tag{"d", strings.ToLower(id.Repo)},
		nostr.Tag{"name", id.Repo},
		nostr.Tag{"web", id.WebURL()},
		nostr.Tag{"clone", id.CloneURL()},
		nostr.Tag{"alt", "git repository: " + id.Repo},
	}
	if meta.Description != "" {
		tags = append(tags, nostr.Tag{"description", meta.Description})
	}
	for _, topic := range meta.Topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			tags = append(tags, nostr.Tag{"t", strings.ToLower(topic)})
		}
	}
	if meta.License != "" {
		tags = append(tags, nostr.Tag{"t", "license-" + strings.ToLower(meta.License)})
	}
	if rootCommit != "" {
		tags = append(tags, nostr.Tag{"r", rootCommit, "euc"})
	}
	if len(relays) > 0 {
		tags = append(tags, append(nostr.Tag{"relay"}, relays...))
	}

	return nostr.Event{
		Kind:      KindRepoAnnouncement,
		CreatedAt: b.stamp(),
		Tags:      tags,
		Content:   "",
	}, nil
}

// CodeReference builds a permalink reference event. repoEvent, when present,
// is the canonical announcement the reference is linked to; commit is the
// page-derived latest commit for the viewed branch and may be nil.
func (b *Builder) CodeReference(
	sel gitref.PermalinkSelection,
	repoEvent *nostr.Event,
	commit *gitref.CommitInfo,
) (nostr.Event, error) {
	if sel.Identity.IsZero() {
		return nostr.Event{}, perr.ExtractionMissf("permalink without repository identity")
	}

	tags := nostr.Tags{
		nostr.Tag{"extension", gitref.Extension(sel.FilePath)},
		nostr.Tag{"repo", sel.Identity.WebURL()},
		nostr.Tag{"branch", sel.Branch},
		nostr.Tag{"file", gitref.FileName(sel.FilePath)},
		nostr.Tag{"alt", "git permalink: " + sel.FilePath},
	}
	if repoEvent != nil {
		tags = append(tags, nostr.Tag{"d", RepoAddress(repoEvent.PubKey, sel.Identity.Repo)})
	}
	tags = append(tags, nostr.Tag{"l", langhint.ForFilename(sel.FilePath)})

	// an end line without a start line is not representable
	switch {
	case sel.StartLine > 0 && sel.EndLine > 0:
		tags = append(tags, nostr.Tag{"lines", strconv.Itoa(sel.StartLine), strconv.Itoa(sel.EndLine)})
	case sel.StartLine > 0:
		tags = append(tags, nostr.Tag{"lines", strconv.Itoa(sel.StartLine)})
	}

	if commit != nil && commit.FullHash != "" {
		tags = append(tags, nostr.Tag{"refs/heads/" + sel.Branch, commit.FullHash})
	}

	return nostr.Event{
		Kind:      KindCodeReference,
		CreatedAt: b.stamp(),
		Tags:      tags,
		Content:   sel.Content,
	}, nil
}

// CodeSnippet builds a snippet event. A user-supplied description overrides
// the page-derived one; same precedence for runtime. The license tag is
// omitted when unknown rather than guessed.
func (b *Builder) CodeSnippet(
	sel gitref.SnippetSelection,
	userDesc *gitref.SnippetDescription,
) (nostr.Event, error) {
	if sel.Identity.IsZero() {
		return nostr.Event{}, perr.ExtractionMissf("snippet without repository identity")
	}

	description := sel.Description
	runtime := sel.Runtime
	if userDesc != nil {
		if userDesc.Description != "" {
			description = userDesc.Description
		}
		if userDesc.Runtime != "" {
			runtime = userDesc.Runtime
		}
	}

	name := gitref.FileName(sel.FilePath)
	if name == "" {
		name = "code"
	}

	tags := nostr.Tags{
		nostr.Tag{"extension", gitref.Extension(sel.FilePath)},
		nostr.Tag{"l", langhint.ForFilename(sel.FilePath)},
		nostr.Tag{"name", name},
		nostr.Tag{"description", description},
		nostr.Tag{"alt", "code snippet: " + sel.FilePath},
		nostr.Tag{"repo", sel.Identity.WebURL()},
	}
	if sel.License != "" {
		tags = append(tags, nostr.Tag{"license", sel.License})
	}
	if runtime != "" {
		tags = append(tags, nostr.Tag{"runtime", runtime})
	}

	return nostr.Event{
		Kind:      KindCodeSnippet,
		CreatedAt: b.stamp(),
		Tags:      tags,
		Content:   sel.Content,
	}, nil
}

// RepoAddress renders the addressable identifier of a repository
// announcement: kind:pubkey:repo
func RepoAddress(pubkey, repo string) string {
	return "30617:" + pubkey + ":" + strings.ToLower(repo)
}

// TagValue returns the first value of the named tag, "" when absent
func TagValue(ev *nostr.Event, name string) string {
	for _, t := range ev.Tags {
		if len(t) >= 2 && t[0] == name {
			return t[1]
		}
	}
	return ""
}
