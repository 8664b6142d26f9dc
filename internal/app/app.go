package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gitstr/internal/adapters/clipboard"
	"gitstr/internal/adapters/github"
	"gitstr/internal/core/events"
	"gitstr/internal/platform/config"
	perr "gitstr/internal/platform/errors"
	"gitstr/internal/platform/logger"
	injectsvc "gitstr/internal/services/inject/service"
	journaldom "gitstr/internal/services/journal/domain"
	journalsvc "gitstr/internal/services/journal/service"
	relaydom "gitstr/internal/services/relay/domain"
	relaysvc "gitstr/internal/services/relay/service"
	settingssvc "gitstr/internal/services/settings/service"
	signdom "gitstr/internal/services/signing/domain"
	signsvc "gitstr/internal/services/signing/service"
)

// App is the agent's long-lived composition: everything sessions share
type App struct {
	log      *logger.Logger
	builder  *events.Builder
	settings *settingssvc.Store
	journal  *journalsvc.Journal
	gh       *github.Client
	clip     clipboard.Writer
	dial     relaydom.Dialer

	relayTimeout time.Duration
}

// New builds the app from the environment. Keys: AGENT_STATE_DIR,
// AGENT_RELAY_QUERY_TIMEOUT, GITHUB_TOKEN, GITHUB_API_BASE
func New(cfg config.Conf) (*App, error) {
	log := logger.Named("app")

	stateDir := cfg.MayString("AGENT_STATE_DIR", defaultStateDir())
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeStorage, "create state dir")
	}

	settings := settingssvc.NewStore(filepath.Join(stateDir, "settings.json"))
	if err := settings.Load(); err != nil {
		return nil, err
	}
	if err := settings.Watch(); err != nil {
		log.Warn().Err(err).Msg("settings watch unavailable, edits need a restart")
	}

	journal, err := journalsvc.Open(filepath.Join(stateDir, "journal.db"))
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(github.Options{
		BaseURL: cfg.MayString("GITHUB_API_BASE", ""),
		Token:   cfg.MayString("GITHUB_TOKEN", ""),
		Timeout: cfg.MayDuration("GITHUB_TIMEOUT", 10*time.Second),
	})

	var clip clipboard.Writer = clipboard.System{}
	if cfg.MayBool("AGENT_NO_CLIPBOARD", false) {
		clip = clipboard.Discard{}
	}

	return &App{
		log:          log,
		builder:      events.New(),
		settings:     settings,
		journal:      journal,
		gh:           gh,
		clip:         clip,
		dial:         relaysvc.NostrDialer,
		relayTimeout: cfg.MayDuration("AGENT_RELAY_QUERY_TIMEOUT", 7*time.Second),
	}, nil
}

// Settings exposes the settings store for the HTTP surface
func (a *App) Settings() *settingssvc.Store { return a.settings }

// Journal exposes the publish history for the HTTP surface
func (a *App) Journal() journaldom.ReaderPort { return a.journal }

// Close releases the app's long-lived resources
func (a *App) Close() error {
	a.settings.Close()
	return a.journal.Close()
}

// NewSession spins up the per-page-load machinery around one socket. The
// relay list is snapshotted here: a page load keeps the endpoint set it
// started with
func (a *App) NewSession(send Sender) *Session {
	relays := a.settings.Relays()
	svc := relaysvc.New(relaysvc.Config{
		Relays:          relays,
		PerRelayTimeout: a.relayTimeout,
	}, a.dial)

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithRequest(ctx, "", id)

	s := &Session{
		id:      id,
		log:     logger.C(ctx),
		send:    send,
		builder: a.builder,
		relays:  relays,
		pub:     svc,
		cache:   relaysvc.NewCache(svc),
		ctrl:    injectsvc.NewController(),
		journal: a.journal,
		clip:    a.clip,
		gh:      a.gh,
		ctx:     ctx,
		cancel:  cancel,
		dialogs: make(map[string]func(DialogResult)),
	}
	s.bridge = signsvc.NewBridge(signsvc.Config{}, signChannel{s: s})
	return s
}

// signChannel adapts the session socket into the bridge's outbound channel
type signChannel struct{ s *Session }

func (c signChannel) Send(ctx context.Context, env signdom.Envelope) error {
	return c.s.send.Send(ctx, Frame{
		Type:      env.Type,
		RequestID: env.RequestID,
		Event:     env.Event,
		Error:     env.Error,
	})
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gitstr")
	}
	return ".gitstr"
}
