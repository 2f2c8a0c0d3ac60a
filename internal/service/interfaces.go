// Package service defines the interfaces shared between caselight components.
package service

import (
	"context"
	"encoding/json"
	"slices"
	"time"
)

// Namespace partitions the persisted configuration store.
type Namespace string

// Store namespaces.
const (
	// NamespaceSync holds user settings, rules and notes.
	NamespaceSync Namespace = "sync"
	// NamespaceLocal holds machine-local session data.
	NamespaceLocal Namespace = "local"
)

// Valid reports whether n is a known namespace.
func (n Namespace) Valid() bool {
	return n == NamespaceSync || n == NamespaceLocal
}

// Change describes keys written or removed in one namespace.
type Change struct {
	Namespace Namespace
	Keys      []string
}

// Has reports whether key is part of the change.
func (c Change) Has(key string) bool {
	return slices.Contains(c.Keys, key)
}

// Store is the persisted key-value configuration store.
type Store interface {
	// Get returns the stored values for keys. With no keys it returns the whole namespace.
	// Missing keys are absent from the result.
	Get(ctx context.Context, ns Namespace, keys ...string) (map[string]json.RawMessage, error)
	// Set JSON-encodes and stores values.
	Set(ctx context.Context, ns Namespace, values map[string]any) error
	// Remove deletes keys.
	Remove(ctx context.Context, ns Namespace, keys ...string) error
	// Subscribe registers fn for change notifications and returns a cancel function.
	Subscribe(fn func(Change)) (cancel func())
}

// Alarms schedules named periodic callbacks.
type Alarms interface {
	Schedule(name string, period time.Duration, fn func())
	Cancel(name string) bool
}

// Clock abstracts time for components that schedule work.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc calls fn after d in its own goroutine.
func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
