package service

import (
	"testing"

	dom "gitstr/internal/services/inject/domain"
)

func repoPage(presentIDs ...string) dom.PageState {
	return dom.PageState{
		URL:        "https://github.com/acme/widget",
		Anchors:    []string{dom.AnchorRepoActions},
		PresentIDs: presentIDs,
	}
}

func editIDs(edits []dom.Edit) []string {
	ids := make([]string, 0, len(edits))
	for _, e := range edits {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestReconcileInsertsRepoButtonOnce(t *testing.T) {
	t.Parallel()

	c := NewController()

	edits := c.Reconcile(repoPage())
	if len(edits) != 1 || edits[0].Op != dom.OpInsert || edits[0].ID != dom.AffordanceRepoButton {
		t.Fatalf("unexpected edits: %+v", edits)
	}
	if edits[0].Label != "Loading..." {
		t.Fatalf("expected loading label, got %q", edits[0].Label)
	}
	if edits[0].Anchor != dom.AnchorRepoActions {
		t.Fatalf("expected anchor %q, got %q", dom.AnchorRepoActions, edits[0].Anchor)
	}

	// the element now exists; repeated mutation reports must not reinsert
	for i := 0; i < 5; i++ {
		if edits := c.Reconcile(repoPage(dom.AffordanceRepoButton)); len(edits) != 0 {
			t.Fatalf("pass %d reinserted: %+v", i, edits)
		}
	}
}

func TestReconcileNoAnchorNoEdit(t *testing.T) {
	t.Parallel()

	c := NewController()
	edits := c.Reconcile(dom.PageState{URL: "https://github.com", Anchors: nil})
	if len(edits) != 0 {
		t.Fatalf("expected no edits without anchors, got %+v", edits)
	}
}

func TestReconcileReinsertsAfterHostPageWipe(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Reconcile(repoPage())

	// host page re-rendered and dropped our element
	edits := c.Reconcile(repoPage())
	if len(edits) != 1 || edits[0].Op != dom.OpInsert {
		t.Fatalf("expected reinsert after wipe, got %+v", edits)
	}
}

func TestReconcileMenuItems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		anchor string
		id     string
		label  string
	}{
		{dom.AnchorPermalinkMenu, dom.AffordancePermalinkItem, "Create Nostr permalink"},
		{dom.AnchorSnippetMenu, dom.AffordanceSnippetItem, "Share snippet on Nostr"},
		{dom.AnchorIssueHeader, dom.AffordanceIssueItem, "Share issue on Nostr"},
	}
	for _, tc := range tests {
		t.Run(tc.anchor, func(t *testing.T) {
			c := NewController()
			page := dom.PageState{Anchors: []string{tc.anchor}}

			edits := c.Reconcile(page)
			if len(edits) != 1 || edits[0].ID != tc.id || edits[0].Label != tc.label {
				t.Fatalf("unexpected edits: %+v", edits)
			}

			page.PresentIDs = []string{tc.id}
			if edits := c.Reconcile(page); len(edits) != 0 {
				t.Fatalf("reinserted present item: %+v", edits)
			}
		})
	}
}

func TestResolveLookupShare(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Reconcile(repoPage())

	edits := c.ResolveLookup(false)
	if len(edits) != 1 || edits[0].Op != dom.OpUpdate || edits[0].Label != "Share" {
		t.Fatalf("unexpected edits: %+v", edits)
	}
	if c.RepoButton() != dom.RepoButtonShare {
		t.Fatalf("state = %s", c.RepoButton())
	}

	// resolving twice is a no-op
	if edits := c.ResolveLookup(true); edits != nil {
		t.Fatalf("second resolve produced edits: %+v", edits)
	}

	// later inserts carry the refined label
	edits = c.Reconcile(repoPage())
	if len(edits) != 1 || edits[0].Label != "Share" {
		t.Fatalf("expected refined label on reinsert, got %+v", edits)
	}
}

func TestResolveLookupOpen(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Reconcile(repoPage())

	edits := c.ResolveLookup(true)
	if len(edits) != 1 || edits[0].Label != "Open existing" {
		t.Fatalf("unexpected edits: %+v", edits)
	}
	if c.RepoButton() != dom.RepoButtonOpen {
		t.Fatalf("state = %s", c.RepoButton())
	}
}

func TestPublishedIsTerminal(t *testing.T) {
	t.Parallel()

	c := NewController()
	c.Reconcile(repoPage())
	c.ResolveLookup(false)

	edits := c.OnAnnouncementPublished()
	if len(edits) != 1 || edits[0].Op != dom.OpRemove || edits[0].ID != dom.AffordanceRepoButton {
		t.Fatalf("unexpected edits: %+v", edits)
	}
	if c.RepoButton() != dom.RepoButtonRemoved {
		t.Fatalf("state = %s", c.RepoButton())
	}

	// the button never comes back this page load
	for i := 0; i < 3; i++ {
		for _, id := range editIDs(c.Reconcile(repoPage())) {
			if id == dom.AffordanceRepoButton {
				t.Fatal("removed button reappeared")
			}
		}
	}
	if edits := c.OnAnnouncementPublished(); edits != nil {
		t.Fatalf("second publish produced edits: %+v", edits)
	}
}

func TestReconcilePureFunctionDoesNotMutateState(t *testing.T) {
	t.Parallel()

	st := NewState()
	_, out := Reconcile(repoPage(), st)
	if out != st {
		t.Fatalf("reconcile changed state: %+v -> %+v", st, out)
	}
}
