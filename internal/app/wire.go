// Package app wires page context, event construction, signing, and relay
// traffic into per-page-load sessions
package app

import (
	"github.com/nbd-wtf/go-nostr"

	"gitstr/internal/core/gitref"
	injectdom "gitstr/internal/services/inject/domain"
)

// Frame types exchanged with the extension over the session socket
const (
	FramePageState    = "PAGE_STATE"
	FramePageMutation = "PAGE_MUTATION"
	FrameClick        = "CLICK"
	FrameDialogResult = "DIALOG_RESULT"
	FrameSignRequest  = "SIGN_REQUEST"
	FrameSignSuccess  = "SIGN_SUCCESS"
	FrameSignFailure  = "SIGN_FAILURE"
	FrameApplyEdits   = "APPLY_EDITS"
	FrameNotice       = "NOTICE"
	FramePrompt       = "PROMPT_DESCRIPTION"
)

// Notice levels
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Frame is the wire union for session messages. Only the fields relevant to
// Type are populated
type Frame struct {
	Type string `json:"type"`

	// PAGE_STATE / PAGE_MUTATION
	Page  *injectdom.PageState `json:"page,omitempty"`
	Facts *PageFacts           `json:"facts,omitempty"`

	// CLICK
	Affordance string `json:"affordance,omitempty"`

	// SIGN_REQUEST / SIGN_SUCCESS / SIGN_FAILURE
	RequestID string       `json:"request_id,omitempty"`
	Event     *nostr.Event `json:"event,omitempty"`
	Error     string       `json:"error,omitempty"`

	// DIALOG_RESULT / PROMPT_DESCRIPTION
	Dialog *DialogResult `json:"dialog,omitempty"`
	Prompt *Prompt       `json:"prompt,omitempty"`

	// APPLY_EDITS
	Edits []injectdom.Edit `json:"edits,omitempty"`

	// NOTICE
	Notice *Notice `json:"notice,omitempty"`
}

// PageFacts is what the page extractor could read from the current document.
// All fields are optional; missing facts degrade the affordances that need
// them, never the session
type PageFacts struct {
	Meta      gitref.RepoMetadata        `json:"meta"`
	Commit    *gitref.CommitInfo         `json:"commit,omitempty"`
	Permalink *gitref.PermalinkSelection `json:"permalink,omitempty"`
	Snippet   *gitref.SnippetSelection   `json:"snippet,omitempty"`

	// BlobText is the full text of the viewed file when the extractor has
	// it; used to slice permalink content for a line range
	BlobText string `json:"blob_text,omitempty"`
}

// Prompt asks the extension to open the snippet description dialog
type Prompt struct {
	DialogID string `json:"dialog_id"`
	Title    string `json:"title"`
}

// DialogResult is the user's answer to a prompt
type DialogResult struct {
	DialogID    string `json:"dialog_id"`
	Accepted    bool   `json:"accepted"`
	Description string `json:"description,omitempty"`
	Runtime     string `json:"runtime,omitempty"`
}

// Notice is a transient, auto-dismissing status message for the page
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
