// Package storage provides the persisted configuration store for caselight.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Veraticus/caselight/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements service.Store using SQLite.
type SQLiteStore struct {
	db          *sql.DB
	logger      *slog.Logger
	subscribers map[int]func(service.Change)
	ownRevs     map[int64]struct{}
	dbPath      string
	nextSubID   int
	subMu       sync.RWMutex
	revMu       sync.Mutex
}

var _ service.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{
		db:          db,
		dbPath:      dbPath,
		logger:      slog.Default().With("component", "store"),
		subscribers: make(map[int]func(service.Change)),
		ownRevs:     make(map[int64]struct{}),
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Subscribe registers fn for change notifications.
func (s *SQLiteStore) Subscribe(fn func(service.Change)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// notify delivers a change to every subscriber. Callers must not hold locks.
func (s *SQLiteStore) notify(change service.Change) {
	if len(change.Keys) == 0 {
		return
	}

	s.subMu.RLock()
	fns := make([]func(service.Change), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
