// ABOUTME: MCP resource handlers exposing briefings and sync history by URI
// ABOUTME: pulse://briefings, pulse://briefings/latest, pulse://briefings/{date}, pulse://sync/history
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/keenanpereira/pulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "pulse://"

type ResourceHandlers struct {
	store Reader
}

func NewResourceHandlers(store Reader) *ResourceHandlers {
	return &ResourceHandlers{store: store}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	switch {
	case parts[0] == "briefings" && len(parts) == 1:
		return h.readBriefingDates(ctx, uri)
	case parts[0] == "briefings" && len(parts) == 2:
		return h.readBriefing(ctx, uri, parts[1])
	case parts[0] == "sync" && len(parts) == 2 && parts[1] == "history":
		return h.readSyncHistory(ctx, uri)
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func (h *ResourceHandlers) readBriefingDates(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	dates, err := h.store.ListBriefingDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefings: %w", err)
	}
	if dates == nil {
		dates = []string{}
	}
	return jsonResource(uri, dates)
}

func (h *ResourceHandlers) readBriefing(ctx context.Context, uri, date string) (*mcp.ReadResourceResult, error) {
	fetch := func() (*models.Briefing, error) { return h.store.GetBriefing(ctx, date) }
	if date == "latest" {
		fetch = func() (*models.Briefing, error) { return h.store.LatestBriefing(ctx) }
	}
	b, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch briefing: %w", err)
	}
	if b == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     b.MarkdownContent,
		},
	}}, nil
}

func (h *ResourceHandlers) readSyncHistory(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	entries, err := h.store.SyncHistory(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync history: %w", err)
	}
	return jsonResource(uri, entries)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
