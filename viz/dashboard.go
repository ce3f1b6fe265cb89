// ABOUTME: Terminal rendering for the analytics overview, sync history and briefings
// ABOUTME: Bar charts and tables styled with lipgloss
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Width(22)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// MoneyFormatter renders a monetary amount.
type MoneyFormatter func(float64) string

type OverviewOptions struct {
	Money      MoneyFormatter
	Thresholds analytics.Thresholds
	// MaxRows bounds each breakdown; defaults to 8.
	MaxRows int
}

// RenderOverview renders the dashboard view.
func RenderOverview(ov *analytics.Overview, opts OverviewOptions) string {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = 8
	}
	money := opts.Money
	if money == nil {
		money = func(v float64) string { return fmt.Sprintf("%.0f", v) }
	}
	var out strings.Builder

	out.WriteString(rule + "\n")
	out.WriteString("  " + titleStyle.Render("PULSE CRM DASHBOARD") + "\n")
	out.WriteString(rule + "\n\n")

	out.WriteString(headerStyle.Render("KPIs") + "\n")
	fmt.Fprintf(&out, "  %d leads  %d deals  %d contacts  %d accounts\n",
		ov.KPIs.Leads, ov.KPIs.Deals, ov.KPIs.Contacts, ov.KPIs.Accounts)
	fmt.Fprintf(&out, "  open pipeline %s  won %s  junk %d%%\n\n",
		money(ov.KPIs.OpenPipeline), money(ov.KPIs.WonValue), ov.KPIs.JunkPct)

	out.WriteString(headerStyle.Render("PERIODS") + "\n")
	for _, p := range []struct {
		name   string
		period analytics.Period
	}{
		{"Today", ov.Periods.Today},
		{"Last 7 days", ov.Periods.LastWeek},
		{"Last 30 days", ov.Periods.LastMonth},
	} {
		fmt.Fprintf(&out, "  %s %4d leads  %s\n", labelStyle.Render(p.name), p.period.Leads, money(p.period.Pipeline))
	}
	out.WriteString("\n")

	out.WriteString(headerStyle.Render("LEAD TREND") + "\n")
	out.WriteString("  " + Sparkline(ov.LeadTrend) + "\n\n")

	writeCounts(&out, "LEAD STATUSES", ov.LeadStatuses, maxRows)
	writeCounts(&out, "DEAL STAGES", ov.DealStages, maxRows)
	writeCounts(&out, "LEADS BY OWNER", ov.OwnerLeads, maxRows)
	writeCounts(&out, "ACCOUNTS BY INDUSTRY", ov.Industries, maxRows)

	out.WriteString(headerStyle.Render("WON / LOST") + "\n")
	fmt.Fprintf(&out, "  %s %d (%s)\n", okStyle.Render("won "), ov.WonLost.WonCount, money(ov.WonLost.WonValue))
	fmt.Fprintf(&out, "  %s %d (%s)\n\n", errorStyle.Render("lost"), ov.WonLost.LostCount, money(ov.WonLost.LostValue))

	if len(ov.ClosingSoon) > 0 {
		out.WriteString(headerStyle.Render("CLOSING SOON") + "\n")
		for i, d := range ov.ClosingSoon {
			if i == maxRows {
				fmt.Fprintf(&out, "  %s\n", mutedStyle.Render(fmt.Sprintf("... %d more", len(ov.ClosingSoon)-maxRows)))
				break
			}
			fmt.Fprintf(&out, "  %s  %s  %s  %s\n", d.ClosingDate, labelStyle.Render(d.DealName), d.Owner, money(d.Amount))
		}
		out.WriteString("\n")
	}

	var toxic []string
	for source, q := range ov.SourceQualityAllTime {
		if float64(q.JunkPct) >= opts.Thresholds.ToxicJunkPct && q.Total > opts.Thresholds.ToxicMinTotal {
			toxic = append(toxic, fmt.Sprintf("%s (%d leads, %d%% junk)", source, q.Total, q.JunkPct))
		}
	}
	if len(toxic) > 0 {
		sort.Strings(toxic)
		out.WriteString(headerStyle.Render("NEEDS ATTENTION") + "\n")
		for _, line := range toxic {
			out.WriteString("  " + warnStyle.Render("⚠ ") + line + "\n")
		}
	}

	return out.String()
}

type labelCount struct {
	label string
	count int
}

// sortedCounts orders by count descending, then label.
func sortedCounts(m map[string]int) []labelCount {
	out := make([]labelCount, 0, len(m))
	for k, v := range m {
		out = append(out, labelCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}

func writeCounts(out *strings.Builder, title string, counts map[string]int, maxRows int) {
	if len(counts) == 0 {
		return
	}
	out.WriteString(headerStyle.Render(title) + "\n")
	rows := sortedCounts(counts)
	maxCount := rows[0].count
	if maxCount == 0 {
		maxCount = 1
	}
	for i, r := range rows {
		if i == maxRows {
			fmt.Fprintf(out, "  %s\n", mutedStyle.Render(fmt.Sprintf("... %d more", len(rows)-maxRows)))
			break
		}
		fmt.Fprintf(out, "  %s %s %3d\n", labelStyle.Render(r.label), Bar(r.count, maxCount, 10), r.count)
	}
	out.WriteString("\n")
}

// Bar draws value relative to total as width blocks.
func Bar(value, total, width int) string {
	if total <= 0 || value < 0 {
		value = 0
		total = 1
	}
	n := value * width / total
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders daily counts as one character per day.
func Sparkline(days []analytics.DayCount) string {
	maxCount := 0
	for _, d := range days {
		maxCount = max(maxCount, d.Count)
	}
	var b strings.Builder
	for _, d := range days {
		if maxCount == 0 {
			b.WriteRune(sparkLevels[0])
			continue
		}
		b.WriteRune(sparkLevels[d.Count*(len(sparkLevels)-1)/maxCount])
	}
	return b.String()
}

// RenderSyncHistory renders sync log entries newest first.
func RenderSyncHistory(entries []models.SyncLogEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	if len(entries) == 0 {
		return mutedStyle.Render("No syncs recorded yet.") + "\n"
	}

	var out strings.Builder
	out.WriteString(headerStyle.Render("SYNC HISTORY") + "\n")
	for _, e := range entries {
		status := okStyle.Render(fmt.Sprintf("%-8s", e.Status))
		switch e.Status {
		case models.SyncStatusPartial:
			status = warnStyle.Render(fmt.Sprintf("%-8s", e.Status))
		case models.SyncStatusFailed:
			status = errorStyle.Render(fmt.Sprintf("%-8s", e.Status))
		}
		fmt.Fprintf(&out, "  %s  %s  %5d records", e.SyncTime.In(loc).Format("2006-01-02 15:04:05"), status, e.RecordsFetched)
		if e.Error != "" {
			fmt.Fprintf(&out, "  %s", mutedStyle.Render(e.Error))
		}
		out.WriteString("\n")
	}
	return out.String()
}

// RenderBriefing renders a stored dashboard report under a dated title.
func RenderBriefing(b *models.Briefing) string {
	var out strings.Builder
	out.WriteString(rule + "\n")
	out.WriteString("  " + titleStyle.Render("DAILY BRIEFING "+b.ReportDate) + "\n")
	out.WriteString(rule + "\n\n")
	out.WriteString(b.MarkdownContent)
	out.WriteString("\n\n")
	out.WriteString(mutedStyle.Render("updated "+b.UpdatedAt.UTC().Format(time.RFC3339)) + "\n")
	return out.String()
}
