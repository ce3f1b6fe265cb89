// ABOUTME: Database operations for the append-only sync_logs table
// ABOUTME: Provides the incremental watermark and the sync history query
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/oklog/ulid/v2"
)

// InsertSyncLog appends a sync log entry. ID and SyncTime are filled in when
// empty.
func (s *Store) InsertSyncLog(ctx context.Context, entry *models.SyncLogEntry) error {
	if entry.SyncTime.IsZero() {
		entry.SyncTime = s.now()
	}
	entry.SyncTime = utc(entry.SyncTime)
	if entry.ID == "" {
		entry.ID = ulid.MustNew(ulid.Timestamp(entry.SyncTime), ulid.DefaultEntropy()).String()
	}

	var errorMsg sql.NullString
	if entry.Error != "" {
		errorMsg = sql.NullString{String: entry.Error, Valid: true}
	}

	_, err := s.exec(ctx, s.db, `
		INSERT INTO sync_logs (id, sync_time, records_fetched, status, error)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.SyncTime, entry.RecordsFetched, entry.Status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to insert sync log: %w", err)
	}

	return nil
}

// LastSuccessfulSync returns the time of the most recent success entry, or
// nil when no sync has succeeded yet.
func (s *Store) LastSuccessfulSync(ctx context.Context) (*time.Time, error) {
	var syncTime sql.NullTime
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT sync_time FROM sync_logs
		WHERE status = ?
		ORDER BY sync_time DESC
		LIMIT 1
	`), models.SyncStatusSuccess).Scan(&syncTime)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark: %w", err)
	}

	return timePtr(syncTime), nil
}

// SyncHistory lists the newest entries first. A non-positive limit means 20.
func (s *Store) SyncHistory(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, sync_time, records_fetched, status, error
		FROM sync_logs
		ORDER BY sync_time DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []models.SyncLogEntry
	for rows.Next() {
		var entry models.SyncLogEntry
		var errorMsg sql.NullString
		if err := rows.Scan(&entry.ID, &entry.SyncTime, &entry.RecordsFetched, &entry.Status, &errorMsg); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		entry.SyncTime = entry.SyncTime.UTC()
		entry.Error = errorMsg.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync logs: %w", err)
	}

	return entries, nil
}
