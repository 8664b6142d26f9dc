package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"

	"gitstr/internal/adapters/clipboard"
	"gitstr/internal/adapters/github"
	"gitstr/internal/core/events"
	"gitstr/internal/core/gitref"
	perr "gitstr/internal/platform/errors"
	"gitstr/internal/platform/logger"
	injectdom "gitstr/internal/services/inject/domain"
	injectsvc "gitstr/internal/services/inject/service"
	journaldom "gitstr/internal/services/journal/domain"
	relaydom "gitstr/internal/services/relay/domain"
	relaysvc "gitstr/internal/services/relay/service"
	signdom "gitstr/internal/services/signing/domain"
	signsvc "gitstr/internal/services/signing/service"
)

// Sender pushes frames to the extension side of the session socket
type Sender interface {
	Send(ctx context.Context, f Frame) error
}

// Session owns one page load: its relay lookups, its injected affordances,
// and its signing exchanges. All inbound frames flow through HandleFrame
// from the socket read loop; click pipelines run on their own goroutine and
// are serialized against each other
type Session struct {
	id   string
	log  *logger.Logger
	send Sender

	builder *events.Builder
	relays  []string
	pub     relaydom.PublishPort
	cache   *relaysvc.Cache
	bridge  *signsvc.Bridge
	ctrl    *injectsvc.Controller
	journal journaldom.RecorderPort
	clip    clipboard.Writer
	gh      *github.Client

	ctx    context.Context
	cancel context.CancelFunc

	// clickMu serializes user-triggered pipelines: one signing action at a
	// time per session
	clickMu sync.Mutex

	// stateMu guards the latest page snapshot
	stateMu    sync.Mutex
	page       injectdom.PageState
	facts      PageFacts
	identity   gitref.RepoIdentity
	refineSlug string

	dialogMu sync.Mutex
	dialogs  map[string]func(DialogResult)
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Close tears the session down: pending signatures fail, the page-load
// context is cancelled
func (s *Session) Close() {
	s.bridge.Close()
	s.cancel()
}

// HandleFrame processes one inbound frame. Signer replies are routed
// immediately; clicks spawn their pipeline so the read loop never blocks
// behind a signature wait
func (s *Session) HandleFrame(f Frame) {
	switch f.Type {
	case FramePageState, FramePageMutation:
		s.handlePage(f)
	case FrameClick:
		go s.handleClick(f.Affordance)
	case FrameSignSuccess, FrameSignFailure:
		s.bridge.Deliver(signdom.Envelope{
			Type:      f.Type,
			RequestID: f.RequestID,
			Event:     f.Event,
			Error:     f.Error,
		})
	case FrameDialogResult:
		s.handleDialogResult(f.Dialog)
	default:
		s.log.Warn().Str("type", f.Type).Msg("unknown frame type")
	}
}

// handlePage absorbs a page snapshot, reconciles affordances, and makes sure
// the repo lookup is underway. Every mutation report lands here; the work is
// cheap and idempotent
func (s *Session) handlePage(f Frame) {
	s.stateMu.Lock()
	if f.Page != nil {
		s.page = *f.Page
	}
	if f.Facts != nil {
		s.facts = *f.Facts
	}
	page := s.page
	s.stateMu.Unlock()

	if id, err := gitref.ParsePageURL(page.URL); err == nil {
		s.stateMu.Lock()
		s.identity = id
		// one refine waiter per repo; mutation storms must not pile up
		// goroutines all blocked on the same lookup
		spawn := s.refineSlug != id.Slug()
		if spawn {
			s.refineSlug = id.Slug()
		}
		s.stateMu.Unlock()

		lookup := s.cache.GetOrCreate(s.ctx, id.Owner, id.Repo)
		if spawn {
			go s.refineRepoButton(lookup)
		}
	}

	if edits := s.ctrl.Reconcile(page); len(edits) > 0 {
		s.sendFrame(Frame{Type: FrameApplyEdits, Edits: edits})
	}
}

// refineRepoButton resolves loading -> share|open once the lookup lands.
// The controller makes repeat calls no-ops, so every mutation pass may spawn
// this without flapping the button
func (s *Session) refineRepoButton(lookup *relaysvc.Lookup) {
	ev, err := lookup.Wait(s.ctx)
	if err != nil {
		return
	}
	if edits := s.ctrl.ResolveLookup(ev != nil); len(edits) > 0 {
		s.sendFrame(Frame{Type: FrameApplyEdits, Edits: edits})
	}
}

// handleClick is the error boundary of the pipeline: whatever goes wrong
// becomes one transient notice and the session keeps running
func (s *Session) handleClick(affordance string) {
	s.clickMu.Lock()
	defer s.clickMu.Unlock()

	var err error
	switch affordance {
	case injectdom.AffordanceRepoButton:
		err = s.repoButtonClick(s.ctx)
	case injectdom.AffordancePermalinkItem:
		err = s.permalinkClick(s.ctx)
	case injectdom.AffordanceSnippetItem:
		err = s.snippetClick(s.ctx)
	case injectdom.AffordanceIssueItem:
		err = s.issueClick(s.ctx)
	default:
		s.log.Warn().Str("affordance", affordance).Msg("click on unknown affordance")
		return
	}
	if err != nil {
		s.failClick(affordance, err)
	}
}

func (s *Session) failClick(affordance string, err error) {
	if perr.IsCode(err, perr.ErrorCodeExtractionMiss) {
		// nothing applicable on this page; a quiet no-op, not a failure
		s.log.Debug().Err(err).Str("affordance", affordance).Msg("extraction miss")
		s.notice(NoticeInfo, "Nothing to share on this page")
		return
	}
	s.log.Error().Err(err).Str("affordance", affordance).Msg("click pipeline failed")
	s.notice(NoticeError, userMessage(err))
}

// repoButtonClick dispatches on the button's refinement state
func (s *Session) repoButtonClick(ctx context.Context) error {
	id := s.currentIdentity()
	if id.IsZero() {
		return perr.ExtractionMissf("page url does not name owner/repo")
	}

	switch s.ctrl.RepoButton() {
	case injectdom.RepoButtonOpen:
		return s.copyExistingAnnouncement(ctx, id)
	case injectdom.RepoButtonShare:
		return s.publishAnnouncement(ctx, id)
	case injectdom.RepoButtonLoading:
		s.notice(NoticeInfo, "Still checking relays, try again in a moment")
		return nil
	default:
		return nil
	}
}

func (s *Session) copyExistingAnnouncement(ctx context.Context, id gitref.RepoIdentity) error {
	ev, err := s.cache.GetOrCreate(ctx, id.Owner, id.Repo).Wait(ctx)
	if err != nil || ev == nil {
		return perr.RelayUnreachablef("announcement lookup not available")
	}
	link, err := events.ShareLink(ev, s.relays)
	if err != nil {
		return err
	}
	s.copyLink(link)
	s.notice(NoticeSuccess, "Link to existing repository event copied")
	return nil
}

func (s *Session) publishAnnouncement(ctx context.Context, id gitref.RepoIdentity) error {
	s.stateMu.Lock()
	meta := s.facts.Meta
	s.stateMu.Unlock()

	// optional lookup; a failed fetch degrades to an announcement without
	// the root-commit tag
	var rootCommit string
	if s.gh != nil {
		if sha, err := s.gh.RootCommit(ctx, id.Owner, id.Repo); err == nil {
			rootCommit = sha
		} else {
			s.log.Debug().Err(err).Msg("root commit lookup failed, omitting")
		}
	}

	unsigned, err := s.builder.RepoAnnouncement(id, meta, rootCommit, s.relays)
	if err != nil {
		return err
	}
	signed, err := s.bridge.RequestSignature(ctx, &unsigned)
	if err != nil {
		return err
	}
	receipt := s.pub.Publish(ctx, *signed)
	if !receipt.AcceptedAny() {
		return perr.RelayUnreachablef("no relay accepted the announcement")
	}

	s.cache.Put(id.Owner, id.Repo, signed)
	if edits := s.ctrl.OnAnnouncementPublished(); len(edits) > 0 {
		s.sendFrame(Frame{Type: FrameApplyEdits, Edits: edits})
	}
	s.record(ctx, signed, id, receipt)
	s.copyShareLink(signed)
	s.notice(NoticeSuccess, "Repository announcement published")
	return nil
}

// permalinkClick shares the current file range as a code reference
func (s *Session) permalinkClick(ctx context.Context) error {
	s.stateMu.Lock()
	facts := s.facts
	pageURL := s.page.URL
	s.stateMu.Unlock()

	var sel gitref.PermalinkSelection
	if facts.Permalink != nil {
		sel = *facts.Permalink
	} else {
		parsed, err := gitref.ParseBlobURL(pageURL)
		if err != nil {
			return err
		}
		sel = parsed
	}
	if sel.Content == "" && facts.BlobText != "" && sel.StartLine > 0 {
		sel.Content = gitref.SliceLines(facts.BlobText, sel.StartLine, sel.EndLine)
	}

	repoEvent := s.resolvedAnnouncement(ctx, sel.Identity)
	unsigned, err := s.builder.CodeReference(sel, repoEvent, facts.Commit)
	if err != nil {
		return err
	}
	return s.signPublishNotify(ctx, unsigned, sel.Identity, "Permalink shared")
}

// snippetClick needs a user-supplied description first; the pipeline resumes
// when the dialog result comes back
func (s *Session) snippetClick(ctx context.Context) error {
	s.stateMu.Lock()
	snippet := s.facts.Snippet
	s.stateMu.Unlock()
	if snippet == nil {
		return perr.ExtractionMissf("no snippet selection on this page")
	}

	dialogID := uuid.NewString()
	s.setDialog(dialogID, func(res DialogResult) {
		go s.finishSnippet(*snippet, res)
	})
	s.sendFrame(Frame{Type: FramePrompt, Prompt: &Prompt{
		DialogID: dialogID,
		Title:    "Describe this snippet",
	}})
	return nil
}

func (s *Session) finishSnippet(sel gitref.SnippetSelection, res DialogResult) {
	s.clickMu.Lock()
	defer s.clickMu.Unlock()

	if !res.Accepted {
		s.notice(NoticeInfo, "Snippet sharing cancelled")
		return
	}
	desc := &gitref.SnippetDescription{Description: res.Description, Runtime: res.Runtime}
	unsigned, err := s.builder.CodeSnippet(sel, desc)
	if err != nil {
		s.failClick(injectdom.AffordanceSnippetItem, err)
		return
	}
	if err := s.signPublishNotify(s.ctx, unsigned, sel.Identity, "Snippet shared"); err != nil {
		s.failClick(injectdom.AffordanceSnippetItem, err)
	}
}

// issueClick mirrors the full thread: fetch everything first, then the
// two-phase publish (root, then comments carrying the root's identity).
// A partial thread is useless, so any fetch failure aborts the whole thing
func (s *Session) issueClick(ctx context.Context) error {
	s.stateMu.Lock()
	pageURL := s.page.URL
	s.stateMu.Unlock()

	ref, err := gitref.ParseIssueURL(pageURL)
	if err != nil {
		return err
	}
	if s.gh == nil {
		return perr.UpstreamFetchf("no source host client configured")
	}

	issue, err := s.gh.Issue(ctx, ref.Identity.Owner, ref.Identity.Repo, ref.Number)
	if err != nil {
		return err
	}
	comments, err := s.gh.IssueComments(ctx, ref.Identity.Owner, ref.Identity.Repo, ref.Number)
	if err != nil {
		return err
	}

	repoEvent := s.resolvedAnnouncement(ctx, ref.Identity)
	thread, err := s.builder.IssueThread(ref, issueData(issue), commentData(comments), repoEvent, s.relays)
	if err != nil {
		return err
	}

	signedRoot, err := s.bridge.RequestSignature(ctx, &thread.Root)
	if err != nil {
		return err
	}
	receipt := s.pub.Publish(ctx, *signedRoot)
	if !receipt.AcceptedAny() {
		return perr.RelayUnreachablef("no relay accepted the issue root")
	}
	s.record(ctx, signedRoot, ref.Identity, receipt)

	// the root is out; comments reference its signed identity
	published := 0
	for i, comment := range thread.Finalize(signedRoot.ID, signedRoot.PubKey) {
		signed, err := s.bridge.RequestSignature(ctx, &comment)
		if err != nil {
			s.log.Warn().Err(err).Int("comment", i).Msg("comment signature failed, stopping thread")
			break
		}
		r := s.pub.Publish(ctx, *signed)
		if r.AcceptedAny() {
			s.record(ctx, signed, ref.Identity, r)
			published++
		}
	}

	s.copyShareLink(signedRoot)
	if published == thread.CommentCount() {
		s.notice(NoticeSuccess, "Issue thread published")
	} else {
		s.notice(NoticeError, "Issue published, but some comments did not go out")
	}
	return nil
}

// signPublishNotify is the shared tail of the simple pipelines
func (s *Session) signPublishNotify(
	ctx context.Context,
	unsigned nostr.Event,
	id gitref.RepoIdentity,
	successMsg string,
) error {
	signed, err := s.bridge.RequestSignature(ctx, &unsigned)
	if err != nil {
		return err
	}
	receipt := s.pub.Publish(ctx, *signed)
	if !receipt.AcceptedAny() {
		return perr.RelayUnreachablef("no relay accepted the event")
	}
	s.record(ctx, signed, id, receipt)
	s.copyShareLink(signed)
	s.notice(NoticeSuccess, successMsg)
	return nil
}

// resolvedAnnouncement returns the canonical repo event when the lookup has
// it; a miss or a slow relay degrades to an unlinked event
func (s *Session) resolvedAnnouncement(ctx context.Context, id gitref.RepoIdentity) *nostr.Event {
	if id.IsZero() {
		return nil
	}
	ev, err := s.cache.GetOrCreate(ctx, id.Owner, id.Repo).Wait(ctx)
	if err != nil {
		return nil
	}
	return ev
}

func (s *Session) handleDialogResult(res *DialogResult) {
	if res == nil {
		return
	}
	s.dialogMu.Lock()
	cb, ok := s.dialogs[res.DialogID]
	if ok {
		delete(s.dialogs, res.DialogID)
	}
	s.dialogMu.Unlock()
	if !ok {
		s.log.Warn().Str("dialog_id", res.DialogID).Msg("result for unknown dialog")
		return
	}
	cb(*res)
}

func (s *Session) setDialog(id string, cb func(DialogResult)) {
	s.dialogMu.Lock()
	s.dialogs[id] = cb
	s.dialogMu.Unlock()
}

func (s *Session) currentIdentity() gitref.RepoIdentity {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.identity
}

// record appends to the journal; failure is logged, never surfaced
func (s *Session) record(ctx context.Context, ev *nostr.Event, id gitref.RepoIdentity, r relaydom.PublishReceipt) {
	if s.journal == nil {
		return
	}
	err := s.journal.Record(ctx, journaldom.Entry{
		Kind:     ev.Kind,
		Identity: id.Slug(),
		EventID:  ev.ID,
		Relays:   r.Accepted,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("journal write failed")
	}
}

// copyShareLink copies the event's bech32 reference; best effort
func (s *Session) copyShareLink(ev *nostr.Event) {
	link, err := events.ShareLink(ev, s.relays)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("share link encode failed")
		return
	}
	s.copyLink(link)
}

func (s *Session) copyLink(link string) {
	if s.clip == nil {
		return
	}
	if err := s.clip.Write(link); err != nil {
		s.log.Warn().Err(err).Msg("clipboard write failed")
	}
}

func (s *Session) notice(level, msg string) {
	s.sendFrame(Frame{Type: FrameNotice, Notice: &Notice{Level: level, Message: msg}})
}

func (s *Session) sendFrame(f Frame) {
	if err := s.send.Send(s.ctx, f); err != nil {
		s.log.Debug().Err(err).Str("type", f.Type).Msg("send failed")
	}
}

// userMessage maps pipeline errors to the transient notice text
func userMessage(err error) string {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeSignerUnavailable:
		return "No signer responded. Is your signer extension unlocked?"
	case perr.ErrorCodeSignerRejected:
		return "Signature request was declined"
	case perr.ErrorCodeRelayUnreachable:
		return "No relay accepted the event"
	case perr.ErrorCodeUpstreamFetch:
		return "Could not fetch the issue thread from the source host"
	default:
		return "Something went wrong, nothing was published"
	}
}

func issueData(in github.Issue) events.IssueData {
	labels := make([]string, 0, len(in.Labels))
	for _, l := range in.Labels {
		labels = append(labels, l.Name)
	}
	return events.IssueData{
		Number: in.Number,
		Title:  in.Title,
		Body:   in.Body,
		Author: in.User.Login,
		URL:    in.HTMLURL,
		Labels: labels,
	}
}

func commentData(in []github.Comment) []events.CommentData {
	out := make([]events.CommentData, 0, len(in))
	for _, c := range in {
		out = append(out, events.CommentData{
			Body:   c.Body,
			Author: c.User.Login,
			URL:    c.HTMLURL,
		})
	}
	return out
}
