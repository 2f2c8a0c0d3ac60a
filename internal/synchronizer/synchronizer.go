// Package synchronizer keeps a live list view in step with the rule engine's
// decisions, debouncing change signals and never running two passes at once.
package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/caselight/internal/common"
	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/rules"
	"github.com/Veraticus/caselight/internal/service"
)

// ErrPassRunning is returned by RunOnce when a pass is already in progress.
var ErrPassRunning = errors.New("a pass is already running")

// Config holds the synchronizer timing and retry settings.
type Config struct {
	Debounce     time.Duration
	InitialDelay time.Duration
	MaxRetries   int
	StaleAfter   time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:     750 * time.Millisecond,
		InitialDelay: 2 * time.Second,
		MaxRetries:   10,
		StaleAfter:   rules.DefaultStaleAfter,
	}
}

// RowResult is the decision applied to one row during a pass.
type RowResult struct {
	Row      model.Row
	Note     string
	Decision model.Decision
}

// Result summarizes one pass.
type Result struct {
	PassID   string
	Rows     []RowResult
	Cleaned  int
	Changed  bool
	Disabled bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock replaces the wall clock used for debouncing and rule evaluation.
func WithClock(c service.Clock) Option {
	return func(s *Synchronizer) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithPassHook registers fn to be called after every scheduled pass.
func WithPassHook(fn func(Result, error)) Option {
	return func(s *Synchronizer) { s.onPass = fn }
}

// Synchronizer schedules and runs passes over a view.
type Synchronizer struct {
	source   Source
	settings SettingsSource
	notes    NoteSource
	clock    service.Clock
	ctx      context.Context
	timer    service.Timer
	logger   *slog.Logger
	onPass   func(Result, error)
	config   Config
	gen      uint64
	retries  int
	passes   int
	mu       sync.Mutex
	running  bool
	rerun    bool
	started  bool
}

// New creates a synchronizer. It is idle until Start.
func New(source Source, settings SettingsSource, notes NoteSource, config Config, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		source:   source,
		settings: settings,
		notes:    notes,
		config:   config,
		clock:    service.SystemClock{},
		logger:   slog.Default().With("component", "synchronizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the initial pass after the configured initial delay.
// Passes run with ctx until Stop.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	s.started = true
	s.retries = 0
	s.scheduleLocked(s.config.InitialDelay)
	s.logger.Debug("Synchronizer started", "initial_delay", s.config.InitialDelay)
}

// Stop cancels any pending pass and ignores further signals.
// A pass already running completes.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	s.rerun = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Signal reports a change. Repeated signals inside the debounce window
// collapse into one pass; a signal arriving mid-pass queues one more pass.
func (s *Synchronizer) Signal(kind SignalKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if kind == SignalCosmetic {
		return
	}

	if kind.recognized() {
		s.retries = 0
	} else {
		if s.retries >= s.config.MaxRetries {
			s.logger.Debug("Ignoring signal, retry budget exhausted", "signal", kind, "retries", s.retries)
			return
		}
		s.retries++
	}

	if s.running {
		s.rerun = true
		return
	}
	s.scheduleLocked(s.config.Debounce)
}

// RunOnce runs a pass immediately on the calling goroutine.
func (s *Synchronizer) RunOnce(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Result{}, ErrPassRunning
	}
	s.running = true
	s.mu.Unlock()

	res, err := s.pass(ctx)

	s.mu.Lock()
	s.running = false
	s.passes++
	if s.rerun && s.started {
		s.rerun = false
		s.scheduleLocked(s.config.Debounce)
	}
	s.mu.Unlock()

	return res, err
}

// Passes returns the number of passes run so far.
func (s *Synchronizer) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

// Retries returns the retry attempts used since the last recognized signal.
func (s *Synchronizer) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// scheduleLocked replaces any pending pass with one due after d. Caller holds mu.
func (s *Synchronizer) scheduleLocked(d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Synchronizer) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.started {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if s.running {
		s.rerun = true
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx := s.ctx
	s.mu.Unlock()

	res, err := s.pass(ctx)

	s.mu.Lock()
	s.running = false
	s.passes++

	retry := false
	switch {
	case errors.Is(err, common.ErrViewIncomplete):
		if s.retries < s.config.MaxRetries {
			s.retries++
			retry = true
		} else {
			s.logger.Info("View still incomplete, going idle", "retries", s.retries)
		}
	case err != nil:
		s.logger.Error("Pass failed", "pass", res.PassID, "error", err)
	}

	if (s.rerun || retry) && s.started {
		s.rerun = false
		s.scheduleLocked(s.config.Debounce)
	}
	hook := s.onPass
	s.mu.Unlock()

	if hook != nil {
		hook(res, err)
	}
}

// pass reads the settings and notes snapshots once, then evaluates and
// applies every row of the current view.
func (s *Synchronizer) pass(ctx context.Context) (Result, error) {
	res := Result{PassID: uuid.NewString()}
	logger := s.logger.With("pass", res.PassID)

	cfg := s.settings.Snapshot()
	noteSnap := s.notes.Snapshot()

	doc, err := s.source.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load view: %w", err)
	}

	if !cfg.Enabled {
		res.Disabled = true
		res.Cleaned = doc.Cleanup()
		res.Changed = res.Cleaned > 0
		if res.Changed || !inPlace(s.source) {
			if err := s.source.Save(ctx, doc); err != nil {
				return res, fmt.Errorf("failed to save view: %w", err)
			}
		}
		logger.Debug("Highlighting disabled, cleaned view", "rows", res.Cleaned)
		return res, nil
	}

	rows, err := doc.Rows()
	if err != nil {
		logger.Debug("View not ready", "error", err)
		return res, err
	}

	ev := rules.NewEvaluator(cfg.Rules, s.clock.Now(), rules.WithStaleAfter(s.config.StaleAfter))
	for _, rv := range rows {
		caseNumber := rv.Row.CaseNumber()
		text, _ := noteSnap.Get(caseNumber)
		hasNote := caseNumber != "" && noteSnap.HasNote(caseNumber)

		dec := ev.Evaluate(rv.Row, hasNote)
		if rv.Apply(dec, text) {
			res.Changed = true
		}
		res.Rows = append(res.Rows, RowResult{Row: rv.Row, Decision: dec, Note: text})
	}

	if res.Changed || !inPlace(s.source) {
		if err := s.source.Save(ctx, doc); err != nil {
			return res, fmt.Errorf("failed to save view: %w", err)
		}
	}

	if res.Changed {
		logger.Info("Applied decisions", "rows", len(res.Rows))
	} else {
		logger.Debug("View already up to date", "rows", len(res.Rows))
	}
	return res, nil
}

// inPlace reports whether saving writes over the source being read.
func inPlace(src Source) bool {
	ip, ok := src.(interface{ InPlace() bool })
	return !ok || ip.InPlace()
}
