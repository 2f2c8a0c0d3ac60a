// Package watch turns file system events on a list view file into
// synchronizer change signals.
package watch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/caselight/internal/synchronizer"
	"github.com/Veraticus/caselight/internal/view"
)

// Signaler receives classified change signals.
type Signaler interface {
	Signal(kind synchronizer.SignalKind)
}

// FileWatcher watches the directory holding a view file and reports
// changes to that file.
type FileWatcher struct {
	file        *view.File
	signaler    Signaler
	watcher     *fsnotify.Watcher
	logger      *slog.Logger
	onRemoved   func(path string)
	path        string
	fingerprint string
	lastHash    [sha256.Size]byte
	mu          sync.Mutex
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *FileWatcher) { w.logger = l }
}

// OnRemoved registers fn to be called when the view file is removed or renamed away.
func OnRemoved(fn func(path string)) Option {
	return func(w *FileWatcher) { w.onRemoved = fn }
}

// New creates a watcher for file that reports to signaler.
func New(file *view.File, signaler Signaler, opts ...Option) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(file.Path())
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", file.Path(), err)
	}

	w := &FileWatcher{
		file:     file,
		signaler: signaler,
		watcher:  fsw,
		path:     abs,
		logger:   slog.Default().With("component", "watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start records the current file state and begins watching. Events are
// processed until ctx is canceled or Close is called.
func (w *FileWatcher) Start(ctx context.Context) error {
	if data, err := os.ReadFile(w.path); err == nil {
		w.remember(data)
	}

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go w.processEvents(ctx)

	w.logger.Info("Watching view file", "path", w.path)
	return nil
}

// Close stops watching.
func (w *FileWatcher) Close() error {
	return w.watcher.Close()
}

func (w *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if _, err := os.Stat(w.path); err == nil {
			return
		}
		w.logger.Info("View file removed", "path", w.path)
		if w.onRemoved != nil {
			w.onRemoved(w.path)
		}
		return
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("Failed to read view file", "path", w.path, "error", err)
		return
	}

	kind, ok := w.Classify(data)
	if !ok {
		return
	}
	w.logger.Debug("View file changed", "path", w.path, "signal", kind)
	w.signaler.Signal(kind)
}

// Classify decides which signal, if any, new file contents produce. Content
// the synchronizer wrote itself and unchanged content produce nothing.
// Contents whose grid rows differ from the last seen state are structural.
func (w *FileWatcher) Classify(data []byte) (synchronizer.SignalKind, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	hash := sha256.Sum256(data)
	if hash == w.lastHash {
		return synchronizer.SignalCosmetic, false
	}
	w.lastHash = hash

	if w.file.WroteContent(data) {
		return synchronizer.SignalCosmetic, false
	}

	fingerprint := fingerprintOf(data)
	if fingerprint != "" && fingerprint != w.fingerprint {
		w.fingerprint = fingerprint
		return synchronizer.SignalStructural, true
	}
	return synchronizer.SignalUnrecognized, true
}

func (w *FileWatcher) remember(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastHash = sha256.Sum256(data)
	w.fingerprint = fingerprintOf(data)
}

func fingerprintOf(data []byte) string {
	doc, err := view.ParseString(string(data))
	if err != nil {
		return ""
	}
	return doc.Fingerprint()
}
