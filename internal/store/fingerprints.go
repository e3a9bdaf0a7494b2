package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetFingerprint returns the last-seen digest for (subscriber, item), or
// ErrNotFound on first observation.
func (s *Store) GetFingerprint(ctx context.Context, subscriberID, itemKey string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx,
		`SELECT digest FROM fingerprints WHERE subscriber_id = ? AND item_key = ?`,
		subscriberID, itemKey,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fingerprint get: %w", err)
	}
	return digest, nil
}

// SetFingerprint compares and records in one transaction. It returns false
// and writes nothing when the stored digest already equals digest; otherwise
// it upserts and returns true. Collapsing compare and record keeps callers
// from ever observing a change that was detected but not recorded.
func (s *Store) SetFingerprint(ctx context.Context, subscriberID, itemKey, digest string, kind ItemKind) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("fingerprint set: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored string
	err = tx.QueryRowContext(ctx,
		`SELECT digest FROM fingerprints WHERE subscriber_id = ? AND item_key = ?`,
		subscriberID, itemKey,
	).Scan(&stored)
	switch {
	case err == nil:
		if stored == digest {
			return false, nil
		}
	case errors.Is(err, sql.ErrNoRows):
		// first observation
	default:
		return false, fmt.Errorf("fingerprint set: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fingerprints(subscriber_id, item_key, kind, digest, updated_at)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(subscriber_id, item_key) DO UPDATE SET
		   digest=excluded.digest, kind=excluded.kind, updated_at=excluded.updated_at`,
		subscriberID, itemKey, string(kind), digest,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("fingerprint set: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("fingerprint set: %w", err)
	}
	return true, nil
}

// CountFingerprints reports how many items a subscriber has observed.
func (s *Store) CountFingerprints(ctx context.Context, subscriberID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fingerprints WHERE subscriber_id = ?`, subscriberID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("fingerprint count: %w", err)
	}
	return n, nil
}
