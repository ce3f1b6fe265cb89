package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/keenanpereira/pulse/models"
)

type datesLoadedMsg struct {
	dates []string
	err   error
}

type briefingLoadedMsg struct {
	briefing *models.Briefing
	err      error
}

func dateColumns(width int) []table.Column {
	return []table.Column{
		{Title: "Report Date", Width: 14},
		{Title: "Day", Width: 12},
		{Title: "Age", Width: max(width-34, 10)},
	}
}

func dateRows(dates []string, loc *time.Location, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(dates))
	for _, d := range dates {
		var day, age string
		if t, err := time.ParseInLocation(models.ReportDateLayout, d, loc); err == nil {
			day = t.Weekday().String()
			age = formatTimeSince(t, now)
		}
		rows = append(rows, table.Row{d, day, age})
	}
	return rows
}

func (m Model) loadDates() tea.Cmd {
	return func() tea.Msg {
		dates, err := m.store.ListBriefingDates(m.ctx)
		return datesLoadedMsg{dates: dates, err: err}
	}
}

func (m Model) loadBriefing(date string) tea.Cmd {
	return func() tea.Msg {
		b, err := m.store.GetBriefing(m.ctx, date)
		if err == nil && b == nil {
			err = fmt.Errorf("briefing %s not found", date)
		}
		return briefingLoadedMsg{briefing: b, err: err}
	}
}

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PULSE BRIEFINGS"))
	s.WriteString("\n\n")

	if len(m.dates) == 0 {
		s.WriteString(syncMessageStyle.Render("No briefings stored yet. Run 'pulse run' to generate one."))
	} else {
		s.WriteString(m.table.View())
	}
	s.WriteString("\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	}

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Enter: Read briefing",
		"s: Sync history",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		row := m.table.SelectedRow()
		if row == nil {
			return m, nil
		}
		return m, m.loadBriefing(row[0])
	case "s":
		m.viewMode = ViewSync
		return m, m.loadHistory()
	case "r":
		return m, m.loadDates()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) renderBriefingView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DAILY BRIEFING " + m.current.ReportDate))
	s.WriteString("\n")
	s.WriteString(m.viewport.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(strings.Join([]string{
		"↑/↓: Scroll",
		"Esc: Back",
		"q: Quit",
	}, " • ")))

	return s.String()
}

func (m Model) handleBriefingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewList
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}
