// Package service implements the file-backed settings store with hot reload
package service

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"

	perr "gitstr/internal/platform/errors"
	"gitstr/internal/platform/logger"
	dom "gitstr/internal/services/settings/domain"
)

const debounceDelay = 100 * time.Millisecond

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store owns the settings file and serves the current relay list
type Store struct {
	path string
	log  *logger.Logger

	mu       sync.RWMutex
	current  dom.Settings
	onChange []func(dom.Settings)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore points a store at the settings file under the agent state dir
func NewStore(path string) *Store {
	return &Store{path: path, log: logger.Named("settings"), done: make(chan struct{})}
}

// Load reads the settings file. A missing file is not an error; the
// defaults apply until the user saves a relay list
func (s *Store) Load() error {
	st, err := readFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
	return nil
}

// Relays returns the active relay endpoint set
func (s *Store) Relays() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Relays()
}

// SetRelays validates, persists, and applies a new relay list. An empty
// list clears the override and restores the defaults
func (s *Store) SetRelays(relays []string) error {
	st := dom.Settings{RelayList: relays}
	if err := Validate(st); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "encode settings")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "create state dir")
	}

	// write-then-rename so a watch reload never sees a half-written file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "write settings")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "replace settings")
	}

	s.apply(st)
	return nil
}

// Validate checks relay URIs: parseable, ws or wss scheme, non-empty host
func Validate(st dom.Settings) error {
	if err := validate.Struct(st); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "settings rejected")
	}
	for _, r := range st.RelayList {
		u, err := url.Parse(r)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeValidation, "relay %q", r)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return perr.Newf(perr.ErrorCodeValidation, "relay %q: scheme must be ws or wss", r)
		}
		if u.Host == "" {
			return perr.Newf(perr.ErrorCodeValidation, "relay %q: missing host", r)
		}
	}
	return nil
}

// OnChange registers a callback invoked whenever the active settings change.
// Register before Watch; not synchronized against it
func (s *Store) OnChange(cb func(dom.Settings)) {
	s.onChange = append(s.onChange, cb)
}

// Watch hot-reloads the settings file when it is edited out from under us
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "create watcher")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		w.Close()
		return perr.Wrap(err, perr.ErrorCodeStorage, "create state dir")
	}
	// watch the directory: editors and our own rename replace the file node
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return perr.Wrap(err, perr.ErrorCodeStorage, "watch state dir")
	}
	s.watcher = w
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	var debounce *time.Timer
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, s.reload)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("settings watcher error")
		}
	}
}

// Reload re-reads the file and applies it when valid; invalid edits are
// logged and the previous settings stay active
func (s *Store) Reload() error {
	st, err := readFile(s.path)
	if err != nil {
		return err
	}
	if err := Validate(st); err != nil {
		return err
	}
	s.apply(st)
	return nil
}

func (s *Store) reload() {
	if err := s.Reload(); err != nil {
		s.log.Warn().Err(err).Msg("settings reload rejected")
		return
	}
	s.log.Info().Int("relays", len(s.Relays())).Msg("settings reloaded")
}

func (s *Store) apply(st dom.Settings) {
	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
	for _, cb := range s.onChange {
		cb(st)
	}
}

// Close stops the watcher
func (s *Store) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func readFile(path string) (dom.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dom.Settings{}, nil
		}
		return dom.Settings{}, perr.Wrap(err, perr.ErrorCodeStorage, "read settings")
	}
	var st dom.Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return dom.Settings{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode settings")
	}
	return st, nil
}
