// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Browses stored briefings and sync history and can trigger a sync
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/keenanpereira/pulse/models"
	"github.com/keenanpereira/pulse/sync"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewBriefing
	ViewSync
)

// Reader is the read side of the store the TUI browses.
type Reader interface {
	ListBriefingDates(ctx context.Context) ([]string, error)
	GetBriefing(ctx context.Context, date string) (*models.Briefing, error)
	SyncHistory(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
}

// SyncFunc runs one sync pass. A nil SyncFunc disables sync from the TUI.
type SyncFunc func(ctx context.Context) (*sync.Result, error)

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	store    Reader
	runSync  SyncFunc
	loc      *time.Location
	now      func() time.Time
	viewMode ViewMode

	// List view state
	dates []string
	table table.Model

	// Briefing view state
	current  *models.Briefing
	viewport viewport.Model

	// Sync view state
	history        []models.SyncLogEntry
	syncInProgress bool
	syncMessages   []string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, store Reader, runSync SyncFunc, loc *time.Location) Model {
	if loc == nil {
		loc = time.UTC
	}
	t := table.New(
		table.WithColumns(dateColumns(80)),
		table.WithFocused(true),
		table.WithHeight(14),
	)
	return Model{
		ctx:      ctx,
		store:    store,
		runSync:  runSync,
		loc:      loc,
		now:      time.Now,
		viewMode: ViewList,
		table:    t,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadDates()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(m.height-8, 3))
		m.table.SetColumns(dateColumns(m.width))
		m.viewport.Width = m.width
		m.viewport.Height = max(m.height-4, 3)
		return m, nil
	case datesLoadedMsg:
		m.err = msg.err
		m.dates = msg.dates
		m.table.SetRows(dateRows(msg.dates, m.loc, m.now()))
		return m, nil
	case briefingLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.current = msg.briefing
		m.viewport.SetContent(m.current.MarkdownContent)
		m.viewport.GotoTop()
		m.viewMode = ViewBriefing
		return m, nil
	case historyLoadedMsg:
		m.err = msg.err
		m.history = msg.entries
		return m, nil
	case SyncCompleteMsg:
		return m, m.handleSyncComplete(msg)
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewBriefing:
		return m.renderBriefingView()
	case ViewSync:
		return m.renderSyncView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewBriefing:
		return m.handleBriefingKeys(msg)
	case ViewSync:
		return m.handleSyncKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
