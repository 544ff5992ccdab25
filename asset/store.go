package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
)

// Handle is an opaque, copyable reference to an asset. A handle is valid
// from the moment a load is requested, before the asset resolves.
type Handle uint64

// LoadState describes an entry's lifecycle.
type LoadState uint8

const (
	LoadPending LoadState = iota // load requested, not yet complete
	LoadReady                    // script published and resolvable
	LoadFailed                   // load failed; no script was published
)

// String returns a human-readable name for the state.
func (s LoadState) String() string {
	switch s {
	case LoadPending:
		return "pending"
	case LoadReady:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", uint8(s))
	}
}

// Event is a load-completion notification.
type Event struct {
	Handle Handle
	Path   string // empty for in-memory assets
	Err    error  // nil on success
}

// Store owns loaded script assets and hands out handles. Loads run
// asynchronously; consumers poll Resolve until the handle reports a
// value. Published scripts are immutable — a reload publishes a fresh
// Script value under the same handle.
type Store struct {
	mu      sync.RWMutex
	loader  *Loader
	entries map[Handle]*entry
	byPath  map[string]Handle
	next    Handle

	events chan Event
	log    commonlog.Logger
}

// entry is the store-internal record for one handle.
type entry struct {
	path   string
	state  LoadState
	script *Script
	err    error
}

// eventBuffer bounds the notification channel. Publishes never block;
// when nobody drains the channel, notifications are dropped and the
// store's state remains authoritative.
const eventBuffer = 64

// NewStore creates a store that dispatches loads through the given loader.
func NewStore(loader *Loader) *Store {
	return &Store{
		loader:  loader,
		entries: make(map[Handle]*entry),
		byPath:  make(map[string]Handle),
		events:  make(chan Event, eventBuffer),
		log:     commonlog.GetLogger("fusabi.store"),
	}
}

// Load requests an asynchronous load of the file at path and returns its
// handle immediately. Loading the same path again returns the existing
// handle and re-reads the file.
func (s *Store) Load(path string) Handle {
	s.mu.Lock()
	h, known := s.byPath[path]
	if !known {
		s.next++
		h = s.next
		s.byPath[path] = h
		s.entries[h] = &entry{path: path, state: LoadPending}
	} else {
		s.entries[h].state = LoadPending
	}
	s.mu.Unlock()

	go s.load(h, path)
	return h
}

// Add publishes an in-memory script synchronously and returns its handle.
func (s *Store) Add(script *Script) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.entries[h] = &entry{state: LoadReady, script: script}
	return h
}

// Resolve returns the script for a handle, or false while the handle is
// unresolved (still loading, failed, or unknown).
func (s *Store) Resolve(h Handle) (*Script, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[h]
	if !ok || e.state != LoadReady {
		return nil, false
	}
	return e.script, true
}

// State returns a handle's load state and, for failed loads, the load
// error. Unknown handles report LoadFailed.
func (s *Store) State(h Handle) (LoadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[h]
	if !ok {
		return LoadFailed, fmt.Errorf("asset: unknown handle %d", h)
	}
	return e.state, e.err
}

// Events returns the load-completion notification channel.
func (s *Store) Events() <-chan Event {
	return s.events
}

// load performs one load attempt and publishes the outcome.
func (s *Store) load(h Handle, path string) {
	script, err := s.read(path)

	s.mu.Lock()
	e := s.entries[h]
	if err != nil {
		e.state = LoadFailed
		e.err = err
		// A failed reload keeps the previous script unpublished only if
		// there never was one; an already-published asset stays intact.
		if e.script != nil {
			e.state = LoadReady
		}
	} else {
		e.state = LoadReady
		e.script = script
		e.err = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Errorf("load %s: %v", path, err)
	} else {
		s.log.Infof("loaded %s", path)
	}
	s.publish(Event{Handle: h, Path: path, Err: err})
}

// read loads and converts one file.
func (s *Store) read(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Stage: StageIo, Name: path, Err: err}
	}
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	return s.loader.Load(data, name, ext)
}

// publish sends a notification without blocking.
func (s *Store) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warningf("event channel full, dropping notification for handle %d", ev.Handle)
	}
}

// paths returns the file paths with registered handles.
func (s *Store) paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		out = append(out, p)
	}
	return out
}
