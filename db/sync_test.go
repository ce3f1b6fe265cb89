// ABOUTME: Tests for the sync log watermark and history
// ABOUTME: Only success entries move the watermark
package db

import (
	"context"
	"testing"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastSuccessfulSyncEmpty(t *testing.T) {
	store := setupTestDB(t)

	since, err := store.LastSuccessfulSync(context.Background())
	require.NoError(t, err)
	assert.Nil(t, since)
}

func TestLastSuccessfulSyncIgnoresFailures(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: t1, RecordsFetched: 10, Status: models.SyncStatusSuccess}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: t2, RecordsFetched: 4, Status: models.SyncStatusSuccess}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: t3, Status: models.SyncStatusFailed, Error: "fetch Deals: status 500"}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: t3, Status: models.SyncStatusPartial}))

	since, err := store.LastSuccessfulSync(ctx)
	require.NoError(t, err)
	require.NotNil(t, since)
	assert.True(t, t2.Equal(*since), "expected %s, got %s", t2, since)
}

func TestInsertSyncLogFillsDefaults(t *testing.T) {
	store := setupTestDB(t)
	now, _ := fixedClock(time.Date(2026, 3, 1, 8, 0, 0, 500, time.UTC))
	store.SetClock(now)

	entry := &models.SyncLogEntry{Status: models.SyncStatusSuccess}
	require.NoError(t, store.InsertSyncLog(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.True(t, entry.SyncTime.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)))
}

func TestSyncHistoryNewestFirst(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{
			SyncTime:       base.Add(time.Duration(i) * time.Hour),
			RecordsFetched: i,
			Status:         models.SyncStatusSuccess,
		}))
	}

	history, err := store.SyncHistory(ctx, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 4, history[0].RecordsFetched)
	assert.Equal(t, 3, history[1].RecordsFetched)
	assert.Equal(t, 2, history[2].RecordsFetched)
	assert.Equal(t, "", history[0].Error)
}
