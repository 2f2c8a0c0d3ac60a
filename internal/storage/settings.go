package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/caselight/internal/service"
)

// Get returns the stored values for keys in ns. With no keys it returns the whole namespace.
func (s *SQLiteStore) Get(ctx context.Context, ns service.Namespace, keys ...string) (map[string]json.RawMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateNamespace(ns); err != nil {
		return nil, err
	}
	if err := validateKeys(keys); err != nil {
		return nil, err
	}

	query := `SELECT key, value FROM settings WHERE namespace = ?`
	args := []any{string(ns)}
	if len(keys) > 0 {
		query += ` AND key IN (?` + strings.Repeat(`, ?`, len(keys)-1) + `)`
		for _, key := range keys {
			args = append(args, key)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = json.RawMessage(value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return values, nil
}

// Set JSON-encodes and upserts values in one transaction, then notifies subscribers.
func (s *SQLiteStore) Set(ctx context.Context, ns service.Namespace, values map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNamespace(ns); err != nil {
		return err
	}
	if len(values) == 0 {
		return ErrEmptyValues
	}

	keys := sortedKeys(values)
	if err := validateKeys(keys); err != nil {
		return err
	}

	encoded := make(map[string]string, len(values))
	for _, key := range keys {
		data, err := json.Marshal(values[key])
		if err != nil {
			return fmt.Errorf("failed to encode %q: %w", key, err)
		}
		encoded[key] = string(data)
	}

	err := s.write(ctx, ns, keys, func(tx *sql.Tx, key string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (namespace, key, value, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(namespace, key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, string(ns), key, encoded[key])
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set settings: %w", err)
	}

	s.notify(service.Change{Namespace: ns, Keys: keys})
	return nil
}

// Remove deletes keys from ns, then notifies subscribers about keys that existed.
func (s *SQLiteStore) Remove(ctx context.Context, ns service.Namespace, keys ...string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNamespace(ns); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := validateKeys(keys); err != nil {
		return err
	}

	keys = dedupe(keys)
	var removed []string
	err := s.write(ctx, ns, keys, func(tx *sql.Tx, key string) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM settings WHERE namespace = ? AND key = ?`, string(ns), key)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n > 0 {
			removed = append(removed, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove settings: %w", err)
	}

	s.notify(service.Change{Namespace: ns, Keys: removed})
	return nil
}

// write runs op for every key inside one transaction and records each key in the change log.
func (s *SQLiteStore) write(ctx context.Context, ns service.Namespace, keys []string, op func(*sql.Tx, string) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	revs := make([]int64, 0, len(keys))
	for _, key := range keys {
		if err := op(tx, key); err != nil {
			_ = tx.Rollback()
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO changes (namespace, key) VALUES (?, ?)`, string(ns), key)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record change: %w", err)
		}
		rev, err := result.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to get change revision: %w", err)
		}
		revs = append(revs, rev)
	}

	if len(revs) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM changes WHERE rev <= ?`, revs[len(revs)-1]-changeLogRetention); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to prune change log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	s.revMu.Lock()
	for _, rev := range revs {
		s.ownRevs[rev] = struct{}{}
	}
	s.revMu.Unlock()

	if len(revs) > 0 {
		// Pruned revisions can no longer be polled.
		s.forgetOwnRevisions(revs[len(revs)-1] - changeLogRetention)
	}

	return nil
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
