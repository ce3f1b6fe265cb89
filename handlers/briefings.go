// ABOUTME: MCP tool handlers for stored briefings and sync history
// ABOUTME: Read-only query surface over the briefing and sync log tables
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Reader is the persisted query surface the handlers expose.
type Reader interface {
	ListBriefingDates(ctx context.Context) ([]string, error)
	GetBriefing(ctx context.Context, date string) (*models.Briefing, error)
	LatestBriefing(ctx context.Context) (*models.Briefing, error)
	SyncHistory(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
}

type BriefingHandlers struct {
	store Reader
}

func NewBriefingHandlers(store Reader) *BriefingHandlers {
	return &BriefingHandlers{store: store}
}

type ListBriefingDatesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum dates to return, newest first (default all)"`
}

type ListBriefingDatesOutput struct {
	Dates []string `json:"dates"`
	Count int      `json:"count"`
}

func (h *BriefingHandlers) ListBriefingDates(ctx context.Context, req *mcp.CallToolRequest, input ListBriefingDatesInput) (*mcp.CallToolResult, ListBriefingDatesOutput, error) {
	dates, err := h.store.ListBriefingDates(ctx)
	if err != nil {
		return nil, ListBriefingDatesOutput{}, fmt.Errorf("failed to list briefings: %w", err)
	}
	if input.Limit > 0 && len(dates) > input.Limit {
		dates = dates[:input.Limit]
	}
	if dates == nil {
		dates = []string{}
	}
	return &mcp.CallToolResult{}, ListBriefingDatesOutput{Dates: dates, Count: len(dates)}, nil
}

type GetBriefingInput struct {
	Date string `json:"date,omitempty" jsonschema:"Report date as YYYY-MM-DD (default most recent)"`
}

type BriefingOutput struct {
	ReportDate      string `json:"report_date"`
	MarkdownContent string `json:"markdown_content"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func (h *BriefingHandlers) GetBriefing(ctx context.Context, req *mcp.CallToolRequest, input GetBriefingInput) (*mcp.CallToolResult, BriefingOutput, error) {
	var (
		b   *models.Briefing
		err error
	)
	if input.Date == "" {
		b, err = h.store.LatestBriefing(ctx)
	} else {
		if _, perr := time.Parse(models.ReportDateLayout, input.Date); perr != nil {
			return nil, BriefingOutput{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", input.Date)
		}
		b, err = h.store.GetBriefing(ctx, input.Date)
	}
	if err != nil {
		return nil, BriefingOutput{}, fmt.Errorf("failed to get briefing: %w", err)
	}
	if b == nil {
		if input.Date == "" {
			return nil, BriefingOutput{}, fmt.Errorf("no briefings stored yet")
		}
		return nil, BriefingOutput{}, fmt.Errorf("no briefing for %s", input.Date)
	}
	return &mcp.CallToolResult{}, ToBriefingOutput(b), nil
}

// ToBriefingOutput is the wire shape shared by the MCP tool and the HTTP API.
func ToBriefingOutput(b *models.Briefing) BriefingOutput {
	return BriefingOutput{
		ReportDate:      b.ReportDate,
		MarkdownContent: b.MarkdownContent,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type SyncHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries to return (default 20)"`
}

type SyncLogOutput struct {
	ID             string `json:"id"`
	SyncTime       string `json:"sync_time"`
	RecordsFetched int    `json:"records_fetched"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
}

type SyncHistoryOutput struct {
	Entries []SyncLogOutput `json:"entries"`
	Count   int             `json:"count"`
	// Watermark is the most recent success in the returned window.
	Watermark string `json:"watermark,omitempty"`
}

func (h *BriefingHandlers) SyncHistory(ctx context.Context, req *mcp.CallToolRequest, input SyncHistoryInput) (*mcp.CallToolResult, SyncHistoryOutput, error) {
	entries, err := h.store.SyncHistory(ctx, input.Limit)
	if err != nil {
		return nil, SyncHistoryOutput{}, fmt.Errorf("failed to read sync history: %w", err)
	}

	out := SyncHistoryOutput{Entries: make([]SyncLogOutput, 0, len(entries))}
	for _, e := range entries {
		syncTime := e.SyncTime.UTC().Format(time.RFC3339)
		out.Entries = append(out.Entries, SyncLogOutput{
			ID:             e.ID,
			SyncTime:       syncTime,
			RecordsFetched: e.RecordsFetched,
			Status:         e.Status,
			Error:          e.Error,
		})
		if out.Watermark == "" && e.Status == models.SyncStatusSuccess {
			out.Watermark = syncTime
		}
	}
	out.Count = len(out.Entries)
	return &mcp.CallToolResult{}, out, nil
}
