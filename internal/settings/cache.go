package settings

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/Veraticus/caselight/internal/model"
	"github.com/Veraticus/caselight/internal/service"
)

// Cache keeps the latest settings snapshot, reloading on store changes.
type Cache struct {
	store     service.Store
	logger    *slog.Logger
	unsub     func()
	listeners []func(model.Settings)
	current   model.Settings
	mu        sync.RWMutex
}

// NewCache loads the initial snapshot and subscribes to store changes.
func NewCache(ctx context.Context, store service.Store) (*Cache, error) {
	c := &Cache{
		store:  store,
		logger: slog.Default().With("component", "settings"),
	}

	s, err := Load(ctx, store)
	if err != nil {
		return nil, err
	}
	c.current = s

	c.unsub = store.Subscribe(c.onChange)
	return c, nil
}

// Snapshot returns an immutable copy of the current settings.
func (c *Cache) Snapshot() model.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// OnUpdate registers fn to be called with every reloaded snapshot.
func (c *Cache) OnUpdate(fn func(model.Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Close stops listening for store changes.
func (c *Cache) Close() {
	if c.unsub != nil {
		c.unsub()
	}
}

// Reload re-reads the store.
func (c *Cache) Reload(ctx context.Context) error {
	s, err := Load(ctx, c.store)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = s
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s.Clone())
	}
	return nil
}

func (c *Cache) onChange(change service.Change) {
	if !c.relevant(change) {
		return
	}
	if err := c.Reload(context.Background()); err != nil {
		c.logger.Error("Failed to reload settings", "error", err, "keys", change.Keys)
	}
}

func (c *Cache) relevant(change service.Change) bool {
	if change.Namespace == service.NamespaceLocal {
		return change.Has(KeyLastRefreshTime)
	}
	for _, key := range change.Keys {
		if key != notesKey {
			return true
		}
	}
	return false
}

// notesKey is owned by the notes package; changes to it never affect settings.
const notesKey = "caseNotes"
