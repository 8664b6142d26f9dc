// Package service implements the reconciliation that keeps injected
// affordances present and deduplicated as the host page mutates
package service

import (
	"sync"

	dom "gitstr/internal/services/inject/domain"
)

// Affordance labels shown on the page
const (
	labelLoading   = "Loading..."
	labelShare     = "Share"
	labelOpen      = "Open existing"
	labelPermalink = "Create Nostr permalink"
	labelSnippet   = "Share snippet on Nostr"
	labelIssue     = "Share issue on Nostr"
)

const iconNostr = "icons/nostr.svg"

// State is the controller's full state between reconcile passes
type State struct {
	RepoButton dom.RepoButtonState
}

// NewState returns the initial state for a fresh page load
func NewState() State {
	return State{RepoButton: dom.RepoButtonLoading}
}

// Reconcile compares the reported page against the desired set of
// affordances and returns the edits that close the gap. It is pure and
// idempotent: an affordance whose id is already present is never inserted
// again, so running it on every mutation report is safe
func Reconcile(page dom.PageState, st State) ([]dom.Edit, State) {
	var edits []dom.Edit

	if st.RepoButton != dom.RepoButtonRemoved &&
		page.HasAnchor(dom.AnchorRepoActions) &&
		!page.HasElement(dom.AffordanceRepoButton) {
		edits = append(edits, dom.Edit{
			Op:     dom.OpInsert,
			ID:     dom.AffordanceRepoButton,
			Anchor: dom.AnchorRepoActions,
			Label:  repoButtonLabel(st.RepoButton),
			Icon:   iconNostr,
		})
	}

	menus := []struct {
		anchor, id, label string
	}{
		{dom.AnchorPermalinkMenu, dom.AffordancePermalinkItem, labelPermalink},
		{dom.AnchorSnippetMenu, dom.AffordanceSnippetItem, labelSnippet},
		{dom.AnchorIssueHeader, dom.AffordanceIssueItem, labelIssue},
	}
	for _, m := range menus {
		if page.HasAnchor(m.anchor) && !page.HasElement(m.id) {
			edits = append(edits, dom.Edit{
				Op:     dom.OpInsert,
				ID:     m.id,
				Anchor: m.anchor,
				Label:  m.label,
				Icon:   iconNostr,
			})
		}
	}

	return edits, st
}

func repoButtonLabel(st dom.RepoButtonState) string {
	switch st {
	case dom.RepoButtonShare:
		return labelShare
	case dom.RepoButtonOpen:
		return labelOpen
	default:
		return labelLoading
	}
}

// Controller owns the state across a session and serializes access to it
type Controller struct {
	mu sync.Mutex
	st State
}

// NewController returns a controller in the fresh page-load state
func NewController() *Controller {
	return &Controller{st: NewState()}
}

// Reconcile runs a reconcile pass against the current state
func (c *Controller) Reconcile(page dom.PageState) []dom.Edit {
	c.mu.Lock()
	defer c.mu.Unlock()
	edits, st := Reconcile(page, c.st)
	c.st = st
	return edits
}

// ResolveLookup refines the repo button once the relay query result is in:
// an existing announcement flips it to "open", otherwise to "share". The
// label swaps in place; the element is not re-created
func (c *Controller) ResolveLookup(announcementExists bool) []dom.Edit {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st.RepoButton != dom.RepoButtonLoading {
		return nil
	}
	if announcementExists {
		c.st.RepoButton = dom.RepoButtonOpen
	} else {
		c.st.RepoButton = dom.RepoButtonShare
	}
	return []dom.Edit{{
		Op:    dom.OpUpdate,
		ID:    dom.AffordanceRepoButton,
		Label: repoButtonLabel(c.st.RepoButton),
		Icon:  iconNostr,
	}}
}

// OnAnnouncementPublished retires the repo button for the rest of the page
// load. Later reconcile passes will not bring it back
func (c *Controller) OnAnnouncementPublished() []dom.Edit {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st.RepoButton == dom.RepoButtonRemoved {
		return nil
	}
	c.st.RepoButton = dom.RepoButtonRemoved
	return []dom.Edit{{Op: dom.OpRemove, ID: dom.AffordanceRepoButton}}
}

// RepoButton exposes the current refinement state, mainly for tests and the
// session notice text
func (c *Controller) RepoButton() dom.RepoButtonState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.RepoButton
}
