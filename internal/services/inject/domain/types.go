// Package domain defines the types for the injection controller
package domain

// Well-known element identifiers carried by injected affordances. The page
// side checks these before inserting, which is the sole dedup mechanism
const (
	AffordanceRepoButton    = "nostr-repo-button"
	AffordancePermalinkItem = "nostr-generate-event"
	AffordanceSnippetItem   = "nostr-share-snippet"
	AffordanceIssueItem     = "nostr-share-issue"
)

// Named page anchors. The extension maps these to live selectors; the agent
// only reasons about their presence
const (
	AnchorRepoActions   = "repo-actions"
	AnchorPermalinkMenu = "permalink-menu"
	AnchorSnippetMenu   = "snippet-menu"
	AnchorIssueHeader   = "issue-header"
)

// RepoButtonState is the refinement of the repo share/open affordance
type RepoButtonState string

// Repo button lifecycle. Removed is terminal for the page load
const (
	RepoButtonLoading RepoButtonState = "loading"
	RepoButtonShare   RepoButtonState = "share"
	RepoButtonOpen    RepoButtonState = "open"
	RepoButtonRemoved RepoButtonState = "removed"
)

// PageState is one snapshot of the page as reported by the extension
type PageState struct {
	URL        string   `json:"url"`
	Anchors    []string `json:"anchors"`
	PresentIDs []string `json:"present_ids"`
}

// HasAnchor reports whether the named anchor exists on the page
func (p PageState) HasAnchor(name string) bool {
	for _, a := range p.Anchors {
		if a == name {
			return true
		}
	}
	return false
}

// HasElement reports whether an element with the given affordance id exists
func (p PageState) HasElement(id string) bool {
	for _, e := range p.PresentIDs {
		if e == id {
			return true
		}
	}
	return false
}

// EditOp is the kind of DOM change the extension should apply
type EditOp string

// Edit operations
const (
	OpInsert EditOp = "insert"
	OpUpdate EditOp = "update"
	OpRemove EditOp = "remove"
)

// Edit is one instruction for the page side. Icon names a packaged asset;
// if the page fails to fetch it the affordance degrades to text only
type Edit struct {
	Op     EditOp `json:"op"`
	ID     string `json:"id"`
	Anchor string `json:"anchor,omitempty"`
	Label  string `json:"label,omitempty"`
	Icon   string `json:"icon,omitempty"`
}
