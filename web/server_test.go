// ABOUTME: Tests for the dashboard HTTP API
// ABOUTME: Drives the chi router through httptest against a temp SQLite store
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/db"
	"github.com/keenanpereira/pulse/handlers"
	"github.com/keenanpereira/pulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := db.OpenDatabase(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveBriefing(ctx, "2026-03-09", "### 1. The Daily Pulse\n- quiet day"))
	require.NoError(t, store.SaveBriefing(ctx, "2026-03-10", "### 1. The Daily Pulse\n- 1 new lead"))

	created := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertLeads(ctx, []models.Lead{
		{ID: "L1", Owner: "Asha", Source: "Web", Status: "Contacted", CreatedTime: &created},
	}))
	require.NoError(t, store.UpsertDeals(ctx, []models.Deal{
		{ID: "D1", Owner: "Asha", DealName: "Acme", Stage: "Negotiation", Amount: 120000, ClosingDate: "2026-03-20", CreatedTime: &created},
	}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: created, RecordsFetched: 2, Status: models.SyncStatusSuccess}))

	analyticsHandlers := handlers.NewAnalyticsHandlers(
		analytics.NewAggregator(store, analytics.DefaultLabels(), time.UTC, nil),
		analytics.NewDetector(analytics.DefaultThresholds(), "₹"),
		time.UTC,
	)
	return NewServer("test", store, analyticsHandlers, nil).Handler()
}

func get(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	h := setupServer(t)

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	assert.Equal(t, http.StatusOK, get(t, h, "/health", &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "test", body.Version)
}

func TestListBriefings(t *testing.T) {
	h := setupServer(t)

	var out handlers.ListBriefingDatesOutput
	require.Equal(t, http.StatusOK, get(t, h, "/api/briefings", &out))
	assert.Equal(t, []string{"2026-03-10", "2026-03-09"}, out.Dates)

	require.Equal(t, http.StatusOK, get(t, h, "/api/briefings?limit=1", &out))
	assert.Equal(t, 1, out.Count)
}

func TestGetBriefing(t *testing.T) {
	h := setupServer(t)

	var out handlers.BriefingOutput
	require.Equal(t, http.StatusOK, get(t, h, "/api/briefings/latest", &out))
	assert.Equal(t, "2026-03-10", out.ReportDate)
	assert.Contains(t, out.MarkdownContent, "1 new lead")

	require.Equal(t, http.StatusOK, get(t, h, "/api/briefings/2026-03-09", &out))
	assert.Contains(t, out.MarkdownContent, "quiet day")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/briefings/2026-01-01", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/briefings/yesterday", nil))
}

func TestSyncHistory(t *testing.T) {
	h := setupServer(t)

	var out handlers.SyncHistoryOutput
	require.Equal(t, http.StatusOK, get(t, h, "/api/sync/history?limit=5", &out))
	require.Len(t, out.Entries, 1)
	assert.Equal(t, string(models.SyncStatusSuccess), out.Entries[0].Status)
}

func TestOverviewAndPayload(t *testing.T) {
	h := setupServer(t)

	var ov handlers.OverviewOutput
	require.Equal(t, http.StatusOK, get(t, h, "/api/overview?date=2026-03-10", &ov))
	assert.Equal(t, "2026-03-10", ov.ReportDate)
	assert.Equal(t, 1, ov.DealStages["Negotiation"])

	var p analytics.Payload
	require.Equal(t, http.StatusOK, get(t, h, "/api/payload?date=2026-03-10", &p))
	assert.Equal(t, "2026-03-10", p.ReportDate)
	assert.Equal(t, 1, p.DailyMetrics.NewLeadsToday)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/payload?date=10-03-2026", nil))
}

func TestAnalyticsRoutesOptional(t *testing.T) {
	store, err := db.OpenDatabase(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := NewServer("test", store, nil, nil).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/overview", nil))

	var out handlers.ListBriefingDatesOutput
	require.Equal(t, http.StatusOK, get(t, h, "/api/briefings", &out))
	assert.Empty(t, out.Dates)
}
