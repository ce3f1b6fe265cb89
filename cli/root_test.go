// ABOUTME: Tests for the cobra command tree and the store-backed query commands
// ABOUTME: Runs commands against a temp SQLite database through --db-url
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/brief"
	"github.com/keenanpereira/pulse/db"
	"github.com/keenanpereira/pulse/models"
	"github.com/keenanpereira/pulse/pipeline"
	"github.com/keenanpereira/pulse/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("test")

	assert.Equal(t, "pulse", cmd.Use)
	assert.Equal(t, "test", cmd.Version)
	assert.NotEmpty(t, cmd.Short)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")

	for _, name := range []string{"run", "sync", "payload", "briefings", "history", "stats", "migrate", "mcp", "tui", "serve"} {
		t.Run(name, func(t *testing.T) {
			found, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, found.Name())
		})
	}

	for _, sub := range []string{"list", "show"} {
		found, _, err := cmd.Find([]string{"briefings", sub})
		require.NoError(t, err)
		assert.Equal(t, sub, found.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	for _, name := range []string{"config", "db-url", "db-path", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

// isolateEnv clears variables that would otherwise leak host configuration
// into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PULSE_CONFIG", "DATABASE_URL", "PULSE_DATABASE_URL",
		"ZOHO_CLIENT_ID", "ZOHO_CLIENT_SECRET", "ZOHO_REFRESH_TOKEN",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_NUMBER", "TARGET_WHATSAPP_NUMBER",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("PULSE_REPORT_TIMEZONE", "UTC")
}

func seededDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.db")
	store, err := db.OpenDatabase(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.SaveBriefing(ctx, "2026-03-09", "### 1. The Daily Pulse\n- quiet day"))
	require.NoError(t, store.SaveBriefing(ctx, "2026-03-10", "### 1. The Daily Pulse\n- 2 new leads"))

	created := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertLeads(ctx, []models.Lead{
		{ID: "L1", Owner: "Asha", Source: "Web", Status: "Contacted", CreatedTime: &created},
		{ID: "L2", Owner: "Asha", Source: "Web", Status: "Junk Lead", CreatedTime: &created},
	}))
	require.NoError(t, store.UpsertDeals(ctx, []models.Deal{
		{ID: "D1", Owner: "Asha", DealName: "Acme", Stage: "Negotiation", Amount: 250000, ClosingDate: "2026-03-20", CreatedTime: &created},
	}))
	require.NoError(t, store.InsertSyncLog(ctx, &models.SyncLogEntry{SyncTime: created, RecordsFetched: 3, Status: models.SyncStatusSuccess}))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestInvalidLogFormat(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "--log-format", "xml", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestBriefingsList(t *testing.T) {
	isolateEnv(t)
	url := "sqlite://" + seededDB(t)

	out, err := execute(t, "--db-url", url, "briefings", "list")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "2026-03-10"), strings.Index(out, "2026-03-09"))
	assert.Contains(t, out, "Total: 2 briefing(s)")

	out, err = execute(t, "--db-url", url, "briefings", "list", "--limit", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "2026-03-09")
}

func TestBriefingsShow(t *testing.T) {
	isolateEnv(t)
	url := "sqlite://" + seededDB(t)

	out, err := execute(t, "--db-url", url, "briefings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "DAILY BRIEFING 2026-03-10")
	assert.Contains(t, out, "2 new leads")

	out, err = execute(t, "--db-url", url, "briefings", "show", "2026-03-09")
	require.NoError(t, err)
	assert.Contains(t, out, "quiet day")

	_, err = execute(t, "--db-url", url, "briefings", "show", "2026-01-01")
	assert.Error(t, err)

	_, err = execute(t, "--db-url", url, "briefings", "show", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected YYYY-MM-DD")
}

func TestHistoryCommand(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "--db-url", "sqlite://"+seededDB(t), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "SYNC HISTORY")
	assert.Contains(t, out, "2026-03-10 04:00:00")
}

func TestPayloadCommand(t *testing.T) {
	isolateEnv(t)
	url := "sqlite://" + seededDB(t)

	out, err := execute(t, "--db-url", url, "payload", "--date", "2026-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, `"report_date": "2026-03-10"`)
	assert.Contains(t, out, `"new_leads_today": 2`)
	assert.Contains(t, out, analytics.BaselineNotice)

	out, err = execute(t, "--db-url", url, "payload", "--date", "2026-03-10", "--prompt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, brief.BuildPrompt(nil)[:40]))
	assert.Contains(t, out, "<WHATSAPP_REPORT>")
}

func TestStatsCommand(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "--db-url", "sqlite://"+seededDB(t), "stats", "--date", "2026-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "PULSE CRM DASHBOARD")
	assert.Contains(t, out, "2 leads")
}

func TestMigrateCommand(t *testing.T) {
	isolateEnv(t)
	out, err := execute(t, "--db-url", "sqlite://"+filepath.Join(t.TempDir(), "fresh.db"), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ sqlite schema at version 1")
}

func TestRunRequiresCredentials(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "--db-url", "sqlite://"+filepath.Join(t.TempDir(), "run.db"), "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration")
	assert.Contains(t, err.Error(), "ZOHO_CLIENT_ID")
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))

	locked := wrapExitError(ExitLocked, "skipped", pipeline.ErrLocked)
	assert.Equal(t, ExitLocked, ExitCode(fmt.Errorf("outer: %w", locked)))
	assert.ErrorIs(t, locked, pipeline.ErrLocked)
	assert.Equal(t, "skipped: pipeline run already in progress", locked.Error())
}

func TestParseReportDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC) }

	got, err := parseReportDate("", loc, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", got.Format(models.ReportDateLayout))

	got, err = parseReportDate("2026-03-10", loc, now)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())

	_, err = parseReportDate("03/10/2026", loc, now)
	assert.Error(t, err)
}

func TestPrintRunSummary(t *testing.T) {
	since := time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)
	summary := &pipeline.Summary{
		ReportDate: "2026-03-10",
		Sync: &sync.Result{
			Since:   &since,
			Status:  models.SyncStatusPartial,
			Total:   5,
			Fetched: map[models.Module]int{models.ModuleLeads: 5},
			Failures: []sync.ModuleFailure{
				{Module: models.ModuleDeals, Err: errors.New("status 500")},
			},
		},
		Payload: &analytics.Payload{Anomalies: []string{analytics.BaselineNotice}},
		Report:  &brief.Report{DashboardTier: brief.TierExactPair, ChannelTier: brief.TierDashboard},
		Outcome: &brief.Outcome{Saved: true, SendErr: errors.New("twilio unavailable")},
	}

	var buf bytes.Buffer
	printRunSummary(&buf, summary)
	out := buf.String()

	assert.Contains(t, out, "✓ Sync partial: 5 record(s) since 2026-03-09T06:00:00Z")
	assert.Contains(t, out, "✗ Deals: status 500")
	assert.Contains(t, out, "✓ Analytics for 2026-03-10: 1 anomaly flag(s)")
	assert.Contains(t, out, "dashboard: exact_pair, whatsapp: dashboard")
	assert.Contains(t, out, "✓ Dashboard report saved for 2026-03-10")
	assert.Contains(t, out, "✗ WhatsApp message not sent: twilio unavailable")

	buf.Reset()
	printRunSummary(&buf, &pipeline.Summary{ReportDate: "2026-03-10", Payload: &analytics.Payload{}})
	assert.Contains(t, buf.String(), "No briefing generated")
}
