// ABOUTME: Named run locks with holder and expiry stored in run_locks
// ABOUTME: Acquire is a conditional upsert that only steals expired locks
package db

import (
	"context"
	"fmt"
	"time"
)

// AcquireLock takes the named lock for holder until now+ttl. It returns false
// when another holder owns an unexpired lock.
func (s *Store) AcquireLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := utc(s.now())
	res, err := s.exec(ctx, s.db, `
		INSERT INTO run_locks (name, holder, acquired_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			acquired_at = excluded.acquired_at,
			expires_at = excluded.expires_at
		WHERE run_locks.expires_at <= ?
	`, name, holder, now, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return affected > 0, nil
}

// ReleaseLock drops the named lock if holder still owns it.
func (s *Store) ReleaseLock(ctx context.Context, name, holder string) error {
	_, err := s.exec(ctx, s.db, `DELETE FROM run_locks WHERE name = ? AND holder = ?`, name, holder)
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
