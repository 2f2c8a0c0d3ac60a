package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/caselight/internal/service"
)

// changeLogRetention is how many change log revisions are kept.
const changeLogRetention = 1000

// LatestRevision returns the highest change log revision.
func (s *SQLiteStore) LatestRevision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(rev), 0) FROM changes`).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest revision: %w", err)
	}
	return rev, nil
}

// PollChanges delivers changes recorded after since by other writers and
// returns the new high-water revision. Writes made through this store were
// already delivered by Set/Remove and are skipped.
func (s *SQLiteStore) PollChanges(ctx context.Context, since int64) (int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rev, namespace, key FROM changes WHERE rev > ? ORDER BY rev`, since)
	if err != nil {
		return since, fmt.Errorf("failed to poll changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := since
	byNamespace := make(map[service.Namespace]map[string]bool)
	for rows.Next() {
		var rev int64
		var ns, key string
		if err := rows.Scan(&rev, &ns, &key); err != nil {
			return since, fmt.Errorf("failed to scan change: %w", err)
		}
		latest = rev

		s.revMu.Lock()
		_, own := s.ownRevs[rev]
		delete(s.ownRevs, rev)
		s.revMu.Unlock()
		if own {
			continue
		}

		namespace := service.Namespace(ns)
		if byNamespace[namespace] == nil {
			byNamespace[namespace] = make(map[string]bool)
		}
		byNamespace[namespace][key] = true
	}

	if err := rows.Err(); err != nil {
		return since, fmt.Errorf("error iterating changes: %w", err)
	}
	_ = rows.Close()

	for _, ns := range []service.Namespace{service.NamespaceSync, service.NamespaceLocal} {
		keys := byNamespace[ns]
		if len(keys) == 0 {
			continue
		}
		change := service.Change{Namespace: ns}
		for key := range keys {
			change.Keys = append(change.Keys, key)
		}
		sort.Strings(change.Keys)
		s.notify(change)
	}

	return latest, nil
}

// Watch polls the change log every interval until ctx is done, delivering
// writes made by other processes to subscribers.
func (s *SQLiteStore) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	since, err := s.LatestRevision(ctx)
	if err != nil {
		return err
	}
	s.forgetOwnRevisions(since)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			next, err := s.PollChanges(ctx, since)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("Failed to poll store changes", "error", err)
				continue
			}
			since = next
		}
	}
}

// forgetOwnRevisions drops bookkeeping for own writes at or below rev.
func (s *SQLiteStore) forgetOwnRevisions(rev int64) {
	s.revMu.Lock()
	defer s.revMu.Unlock()
	for own := range s.ownRevs {
		if own <= rev {
			delete(s.ownRevs, own)
		}
	}
}
