// ABOUTME: Tests for MCP briefing, analytics, resource and prompt handlers
// ABOUTME: Runs against a temp SQLite store and an in-memory MCP session
package handlers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/db"
	"github.com/keenanpereira/pulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *db.Store) {
	t.Helper()
	ctx := context.Background()
	for _, date := range []string{"2026-03-08", "2026-03-10", "2026-03-09"} {
		require.NoError(t, store.SaveBriefing(ctx, date, "### 1. The Daily Pulse\n- "+date))
	}
	created := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertLeads(ctx, []models.Lead{
		{ID: "L1", Owner: "Asha", Source: "Web", Status: "Contacted", CreatedTime: &created},
	}))
	require.NoError(t, store.UpsertDeals(ctx, []models.Deal{
		{ID: "D1", Owner: "Asha", DealName: "Acme", Stage: "Negotiation", Amount: 120000, ClosingDate: "2026-03-20", CreatedTime: &created},
	}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: created, RecordsFetched: 2, Status: models.SyncStatusSuccess}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: created.Add(time.Hour), Status: models.SyncStatusFailed, Error: "failed to fetch Deals: status 500"}))
}

func newAnalytics(store *db.Store) *AnalyticsHandlers {
	h := NewAnalyticsHandlers(
		analytics.NewAggregator(store, analytics.DefaultLabels(), time.UTC, nil),
		analytics.NewDetector(analytics.DefaultThresholds(), "₹"),
		time.UTC,
	)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestListBriefingDates(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)
	h := NewBriefingHandlers(store)

	_, out, err := h.ListBriefingDates(context.Background(), nil, ListBriefingDatesInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-10", "2026-03-09", "2026-03-08"}, out.Dates)
	assert.Equal(t, 3, out.Count)

	_, out, err = h.ListBriefingDates(context.Background(), nil, ListBriefingDatesInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-10"}, out.Dates)
}

func TestGetBriefing(t *testing.T) {
	store := setupTestDB(t)
	h := NewBriefingHandlers(store)

	_, _, err := h.GetBriefing(context.Background(), nil, GetBriefingInput{})
	assert.Error(t, err, "no briefings yet")

	seed(t, store)
	_, latest, err := h.GetBriefing(context.Background(), nil, GetBriefingInput{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", latest.ReportDate)

	_, byDate, err := h.GetBriefing(context.Background(), nil, GetBriefingInput{Date: "2026-03-09"})
	require.NoError(t, err)
	assert.Contains(t, byDate.MarkdownContent, "2026-03-09")

	_, _, err = h.GetBriefing(context.Background(), nil, GetBriefingInput{Date: "2026-01-01"})
	assert.Error(t, err)
	_, _, err = h.GetBriefing(context.Background(), nil, GetBriefingInput{Date: "yesterday"})
	assert.Error(t, err)
}

func TestSyncHistoryTool(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)

	_, out, err := NewBriefingHandlers(store).SyncHistory(context.Background(), nil, SyncHistoryInput{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)
	assert.Equal(t, models.SyncStatusFailed, out.Entries[0].Status)
	assert.Equal(t, "2026-03-10T04:00:00Z", out.Watermark)
}

func TestAnalyticsTools(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)
	h := newAnalytics(store)

	_, payload, err := h.GetBriefingPayload(context.Background(), nil, AnalyticsInput{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", payload.ReportDate)
	assert.Equal(t, 1, payload.DailyMetrics.NewLeadsToday)
	assert.Equal(t, "₹120,000", payload.DailyMetrics.PipelineValue)

	_, ov, err := h.GetOverview(context.Background(), nil, AnalyticsInput{Date: "2026-03-10"})
	require.NoError(t, err)
	assert.Equal(t, 1, ov.KPIs.Leads)
	require.Len(t, ov.ClosingSoon, 1)
	assert.Equal(t, "Acme", ov.ClosingSoon[0].Name)

	_, _, err = h.GetOverview(context.Background(), nil, AnalyticsInput{Date: "10/03/2026"})
	assert.Error(t, err)
}

func TestReadResource(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)
	h := NewResourceHandlers(store)
	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read("pulse://briefings")
	require.NoError(t, err)
	assert.JSONEq(t, `["2026-03-10","2026-03-09","2026-03-08"]`, res.Contents[0].Text)

	res, err = read("pulse://briefings/latest")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "2026-03-10")
	assert.Equal(t, "text/markdown", res.Contents[0].MIMEType)

	res, err = read("pulse://briefings/2026-03-08")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "2026-03-08")

	res, err = read("pulse://sync/history")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "records_fetched")

	_, err = read("pulse://briefings/2020-01-01")
	assert.Error(t, err)
	_, err = read("crm://contacts")
	assert.Error(t, err)
}

func TestDailyBriefingPrompt(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)
	h := NewPromptHandlers(store, newAnalytics(store))

	res, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "daily-briefing",
		Arguments: map[string]string{"date": "2026-03-10"},
	}})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "<DASHBOARD_REPORT>")
	assert.Contains(t, text, `"report_date": "2026-03-10"`)

	res, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "briefing-review"}})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "2026-03-10")

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "nope"}})
	assert.Error(t, err)
}

func TestServerListsTools(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)
	ctx := context.Background()

	server := NewServer("test", store, newAnalytics(store))
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_briefing_dates", "get_briefing", "sync_history", "get_dashboard_overview", "get_briefing_payload",
	}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "list_briefing_dates", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}
