package events

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"gitstr/internal/core/gitref"
	perr "gitstr/internal/platform/errors"
)

// IssueData is the upstream issue record the thread root is built from
type IssueData struct {
	Number int
	Title  string
	Body   string
	Author string
	URL    string
	Labels []string
}

// CommentData is one upstream comment within the thread
type CommentData struct {
	Body   string
	Author string
	URL    string
}

// PendingThread is the typed intermediate of the two-phase thread build: the
// root is ready for signing, the comments are held back until the root has a
// signature-derived identity to reference.
type PendingThread struct {
	Root     nostr.Event
	comments []nostr.Event
}

// CommentCount reports how many comments await finalization
func (p *PendingThread) CommentCount() int { return len(p.comments) }

// Finalize stamps the signed root's identity and author onto every held-back
// comment and returns the finished comment events in upstream order.
func (p *PendingThread) Finalize(rootID, rootPubkey string) []nostr.Event {
	out := make([]nostr.Event, len(p.comments))
	for i, c := range p.comments {
		linked := make(nostr.Tags, 0, len(c.Tags)+2)
		linked = append(linked,
			nostr.Tag{"e", rootID, "", "root"},
			nostr.Tag{"p", rootPubkey},
		)
		linked = append(linked, c.Tags...)
		c.Tags = linked
		out[i] = c
	}
	return out
}

// IssueThread builds the root event and the provisional comment events of an
// issue thread. repoEvent, when present, is the canonical announcement the
// root points at. The caller owns fetching issue and comments; a partial
// thread is never built here.
func (b *Builder) IssueThread(
	ref gitref.IssueRef,
	issue IssueData,
	comments []CommentData,
	repoEvent *nostr.Event,
	relays []string,
) (PendingThread, error) {
	if ref.Identity.IsZero() {
		return PendingThread{}, perr.ExtractionMissf("issue without repository identity")
	}

	rootTags := nostr.Tags{
		nostr.Tag{"subject", issue.Title},
		nostr.Tag{"alt", "git issue: " + issue.Title},
		nostr.Tag{"r", issue.URL},
	}
	if repoEvent != nil {
		addr := RepoAddress(repoEvent.PubKey, ref.Identity.Repo)
		if len(relays) > 0 {
			rootTags = append(rootTags, nostr.Tag{"a", addr, relays[0]})
		} else {
			rootTags = append(rootTags, nostr.Tag{"a", addr})
		}
	}
	for _, label := range issue.Labels {
		if label = strings.TrimSpace(label); label != "" {
			rootTags = append(rootTags, nostr.Tag{"t", strings.ToLower(label)})
		}
	}

	root := nostr.Event{
		Kind:      KindIssue,
		CreatedAt: b.stamp(),
		Tags:      rootTags,
		Content:   issueContent(issue),
	}

	pending := make([]nostr.Event, 0, len(comments))
	for _, c := range comments {
		tags := nostr.Tags{
			nostr.Tag{"alt", "git issue comment: " + issue.Title},
		}
		if c.URL != "" {
			tags = append(tags, nostr.Tag{"r", c.URL})
		}
		if repoEvent != nil {
			tags = append(tags, nostr.Tag{"a", RepoAddress(repoEvent.PubKey, ref.Identity.Repo)})
		}
		pending = append(pending, nostr.Event{
			Kind:      KindIssueComment,
			CreatedAt: b.stamp(),
			Tags:      tags,
			Content:   commentContent(c),
		})
	}

	return PendingThread{Root: root, comments: pending}, nil
}

func issueContent(issue IssueData) string {
	var sb strings.Builder
	sb.WriteString("## ")
	sb.WriteString(issue.Title)
	sb.WriteString("\n\n")
	sb.WriteString(issue.Body)
	if issue.Author != "" {
		sb.WriteString("\n\n_reported by ")
		sb.WriteString(issue.Author)
		sb.WriteString("_")
	}
	return sb.String()
}

func commentContent(c CommentData) string {
	if c.Author == "" {
		return c.Body
	}
	return c.Body + "\n\n_comment by " + c.Author + "_"
}
