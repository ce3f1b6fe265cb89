// ABOUTME: Database operations for daily briefings
// ABOUTME: Upsert by report date plus the dates / by-date / latest queries
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/models"
)

// SaveBriefing stores the long-form report for date, replacing any report
// already saved for that day.
func (s *Store) SaveBriefing(ctx context.Context, date, content string) error {
	if _, err := time.Parse(models.ReportDateLayout, date); err != nil {
		return fmt.Errorf("invalid report date %q: %w", date, err)
	}

	now := utc(s.now())
	_, err := s.exec(ctx, s.db, `
		INSERT INTO briefings (report_date, markdown_content, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(report_date) DO UPDATE SET
			markdown_content = excluded.markdown_content,
			updated_at = excluded.updated_at
	`, date, content, now, now)
	if err != nil {
		return fmt.Errorf("failed to save briefing: %w", err)
	}
	return nil
}

// GetBriefing returns the briefing for date, or nil when none exists.
func (s *Store) GetBriefing(ctx context.Context, date string) (*models.Briefing, error) {
	return s.scanBriefing(s.db.QueryRowContext(ctx, s.rebind(`
		SELECT report_date, markdown_content, created_at, updated_at
		FROM briefings
		WHERE report_date = ?
	`), date))
}

// LatestBriefing returns the most recent briefing, or nil when none exists.
func (s *Store) LatestBriefing(ctx context.Context) (*models.Briefing, error) {
	return s.scanBriefing(s.db.QueryRowContext(ctx, `
		SELECT report_date, markdown_content, created_at, updated_at
		FROM briefings
		ORDER BY report_date DESC
		LIMIT 1
	`))
}

func (s *Store) scanBriefing(row *sql.Row) (*models.Briefing, error) {
	var b models.Briefing
	err := row.Scan(&b.ReportDate, &b.MarkdownContent, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get briefing: %w", err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

// ListBriefingDates returns every stored report date, newest first.
func (s *Store) ListBriefingDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT report_date FROM briefings ORDER BY report_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query briefing dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan briefing date: %w", err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating briefing dates: %w", err)
	}
	return dates, nil
}
