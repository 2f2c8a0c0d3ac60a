// Package notes keeps free-text annotations keyed by case number.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/service"
)

// Key is the store key holding every note.
const Key = "caseNotes"

// ErrEmptyCaseNumber is returned when a note is saved without a case number.
var ErrEmptyCaseNumber = errors.New("case number cannot be empty")

// Store is an in-memory cache of the persisted notes, refreshed on every
// external change notification.
type Store struct {
	store     service.Store
	logger    *slog.Logger
	notes     map[string]string
	unsub     func()
	listeners []func()
	mu        sync.RWMutex
}

// New loads the notes from store and subscribes to changes.
func New(ctx context.Context, store service.Store) (*Store, error) {
	s := &Store{
		store:  store,
		logger: slog.Default().With("component", "notes"),
		notes:  make(map[string]string),
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.unsub = store.Subscribe(s.onChange)
	return s, nil
}

// Close stops listening for store changes.
func (s *Store) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

// OnUpdate registers fn to be called after every refresh triggered by a
// store change notification.
func (s *Store) OnUpdate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh replaces the cache with the persisted notes.
func (s *Store) Refresh(ctx context.Context) error {
	values, err := s.store.Get(ctx, service.NamespaceSync, Key)
	if err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}

	loaded := make(map[string]string)
	if raw, ok := values[Key]; ok {
		if err := json.Unmarshal(raw, &loaded); err != nil {
			s.logger.Warn("Ignoring undecodable notes", "error", err)
			loaded = make(map[string]string)
		}
	}

	s.mu.Lock()
	s.notes = loaded
	s.mu.Unlock()
	return nil
}

// Get returns the note for caseNumber.
func (s *Store) Get(caseNumber string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.notes[strings.TrimSpace(caseNumber)]
	return text, ok
}

// HasNote reports whether a non-empty note exists for caseNumber.
func (s *Store) HasNote(caseNumber string) bool {
	text, ok := s.Get(caseNumber)
	return ok && strings.TrimSpace(text) != ""
}

// Set stores the trimmed text for caseNumber, or removes the note when
// the text is empty or whitespace.
func (s *Store) Set(ctx context.Context, caseNumber, text string) error {
	caseNumber = strings.TrimSpace(caseNumber)
	if caseNumber == "" {
		return ErrEmptyCaseNumber
	}
	text = strings.TrimSpace(text)

	s.mu.Lock()
	next := make(map[string]string, len(s.notes)+1)
	for k, v := range s.notes {
		next[k] = v
	}
	if text == "" {
		delete(next, caseNumber)
	} else {
		next[caseNumber] = text
	}
	s.mu.Unlock()

	return s.persist(ctx, next)
}

// ClearAll removes every note.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.store.Remove(ctx, service.NamespaceSync, Key); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}

	s.mu.Lock()
	s.notes = make(map[string]string)
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of all notes.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.notes))
	for k, v := range s.notes {
		out[k] = v
	}
	return out
}

// List returns all notes ordered by case number.
func (s *Store) List() []model.Note {
	snap := s.Snapshot()
	out := make([]model.Note, 0, len(snap))
	for caseNumber, text := range snap {
		out = append(out, model.Note{CaseNumber: caseNumber, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseNumber < out[j].CaseNumber })
	return out
}

func (s *Store) persist(ctx context.Context, next map[string]string) error {
	if err := s.store.Set(ctx, service.NamespaceSync, map[string]any{Key: next}); err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}

	s.mu.Lock()
	s.notes = next
	s.mu.Unlock()
	return nil
}

func (s *Store) onChange(change service.Change) {
	if change.Namespace != service.NamespaceSync || !change.Has(Key) {
		return
	}
	if err := s.Refresh(context.Background()); err != nil {
		s.logger.Error("Failed to refresh notes", "error", err)
		return
	}

	s.mu.RLock()
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Snapshot is an immutable view of the notes taken at the start of a pass.
type Snapshot map[string]string

// Get returns the note for caseNumber.
func (n Snapshot) Get(caseNumber string) (string, bool) {
	text, ok := n[strings.TrimSpace(caseNumber)]
	return text, ok
}

// HasNote reports whether a non-empty note exists for caseNumber.
func (n Snapshot) HasNote(caseNumber string) bool {
	text, ok := n.Get(caseNumber)
	return ok && strings.TrimSpace(text) != ""
}
