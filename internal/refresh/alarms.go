// Package refresh periodically reloads the list view from its upstream
// target and disables itself when the target disappears.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/caselight/internal/service"
)

// TickerAlarms runs each named alarm on its own ticker goroutine.
// Scheduling an existing name replaces it.
type TickerAlarms struct {
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]*alarmEntry
	wg      sync.WaitGroup
	mu      sync.Mutex
}

type alarmEntry struct {
	cancel context.CancelFunc
	period time.Duration
}

var _ service.Alarms = (*TickerAlarms)(nil)

// NewTickerAlarms creates an alarm set whose alarms stop when ctx is done.
func NewTickerAlarms(ctx context.Context) *TickerAlarms {
	ctx, cancel := context.WithCancel(ctx)
	return &TickerAlarms{
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*alarmEntry),
	}
}

// Schedule calls fn every period until the alarm is canceled or replaced.
func (a *TickerAlarms) Schedule(name string, period time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.entries[name]; ok {
		existing.cancel()
	}
	if period <= 0 {
		delete(a.entries, name)
		return
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.entries[name] = &alarmEntry{cancel: cancel, period: period}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Cancel stops the named alarm. It reports whether the alarm existed.
func (a *TickerAlarms) Cancel(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[name]
	if !ok {
		return false
	}
	entry.cancel()
	delete(a.entries, name)
	return true
}

// Period returns the period of a scheduled alarm.
func (a *TickerAlarms) Period(name string) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.entries[name]
	if !ok {
		return 0, false
	}
	return entry.period, true
}

// Close stops every alarm and waits for in-flight callbacks.
func (a *TickerAlarms) Close() {
	a.cancel()
	a.wg.Wait()

	a.mu.Lock()
	a.entries = make(map[string]*alarmEntry)
	a.mu.Unlock()
}
