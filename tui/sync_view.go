// ABOUTME: TUI view for CRM sync history and controls
// ABOUTME: Lists recent sync log entries and triggers a sync pass on demand
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keenanpereira/pulse/models"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// SyncCompleteMsg is sent when a sync operation completes.
type SyncCompleteMsg struct {
	Status string
	Total  int
	Error  error
}

type historyLoadedMsg struct {
	entries []models.SyncLogEntry
	err     error
}

func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.store.SyncHistory(m.ctx, 20)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("CRM Sync"))
	s.WriteString("\n\n")

	if m.syncInProgress {
		s.WriteString(syncSyncingStyle.Render("⟳ Syncing..."))
		s.WriteString("\n\n")
	}

	if len(m.history) == 0 {
		s.WriteString(syncMessageStyle.Render("No syncs recorded yet."))
		s.WriteString("\n\n")
	} else {
		s.WriteString(syncHeaderStyle.Render("Recent Syncs"))
		s.WriteString("\n\n")
		for _, e := range m.history {
			var status string
			switch e.Status {
			case models.SyncStatusSuccess:
				status = syncIdleStyle.Render("✓ " + e.Status)
			case models.SyncStatusPartial:
				status = syncSyncingStyle.Render("! " + e.Status)
			default:
				status = syncErrorStyle.Render("✗ " + e.Status)
			}
			fmt.Fprintf(&s, "  %s  %-12s %5d records  %s\n",
				e.SyncTime.In(m.loc).Format("2006-01-02 15:04"),
				status,
				e.RecordsFetched,
				syncMessageStyle.Render(formatTimeSince(e.SyncTime, m.now())))
			if e.Error != "" {
				s.WriteString(syncErrorStyle.Render("      " + e.Error))
				s.WriteString("\n")
			}
		}
		s.WriteString("\n")
	}

	// Recent messages
	if len(m.syncMessages) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		start := max(len(m.syncMessages)-5, 0)
		for _, msg := range m.syncMessages[start:] {
			s.WriteString(syncMessageStyle.Render("  " + msg))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	}

	s.WriteString(m.renderSyncHelp())

	return s.String()
}

func (m Model) renderSyncHelp() string {
	help := []string{"Enter: Sync now", "r: Refresh", "Esc: Back", "q: Quit"}
	if m.runSync == nil {
		help = help[1:]
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.runSync == nil || m.syncInProgress {
			return m, nil
		}
		m.syncInProgress = true
		m.addSyncMessage("Starting CRM sync...")
		return m, m.syncNow()
	case "r":
		return m, m.loadHistory()
	case "esc":
		m.viewMode = ViewList
	}

	return m, nil
}

// syncNow runs one sync pass off the update loop.
func (m Model) syncNow() tea.Cmd {
	return func() tea.Msg {
		result, err := m.runSync(m.ctx)
		msg := SyncCompleteMsg{Error: err}
		if result != nil {
			msg.Status = result.Status
			msg.Total = result.Total
		}
		return msg
	}
}

// addSyncMessage adds a message to the sync message log.
func (m *Model) addSyncMessage(msg string) {
	timestamp := m.now().In(m.loc).Format("15:04:05")
	m.syncMessages = append(m.syncMessages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

// handleSyncComplete records the outcome and reloads history.
func (m *Model) handleSyncComplete(msg SyncCompleteMsg) tea.Cmd {
	m.syncInProgress = false

	if msg.Error != nil {
		m.addSyncMessage(fmt.Sprintf("✗ sync failed: %v", msg.Error))
	} else {
		m.addSyncMessage(fmt.Sprintf("✓ sync %s: %d record(s)", msg.Status, msg.Total))
	}

	return m.loadHistory()
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(t, now time.Time) string {
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
