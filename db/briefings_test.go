// ABOUTME: Tests for briefing persistence and lookup
// ABOUTME: Covers upsert-by-date, ordering and missing dates
package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveBriefingUpsertsByDate(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now, advance := fixedClock(time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC))
	store.SetClock(now)

	require.NoError(t, store.SaveBriefing(ctx, "2026-03-02", "first"))
	advance(time.Hour)
	require.NoError(t, store.SaveBriefing(ctx, "2026-03-02", "second"))

	b, err := store.GetBriefing(ctx, "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "second", b.MarkdownContent)
	assert.True(t, b.CreatedAt.Equal(time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)))
	assert.True(t, b.UpdatedAt.Equal(time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)))

	dates, err := store.ListBriefingDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-02"}, dates)
}

func TestBriefingQueries(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	latest, err := store.LatestBriefing(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, date := range []string{"2026-03-01", "2026-03-03", "2026-03-02"} {
		require.NoError(t, store.SaveBriefing(ctx, date, "report "+date))
	}

	dates, err := store.ListBriefingDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-03", "2026-03-02", "2026-03-01"}, dates)

	latest, err = store.LatestBriefing(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2026-03-03", latest.ReportDate)

	missing, err := store.GetBriefing(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveBriefingRejectsBadDate(t *testing.T) {
	store := setupTestDB(t)
	assert.Error(t, store.SaveBriefing(context.Background(), "03/02/2026", "x"))
}
