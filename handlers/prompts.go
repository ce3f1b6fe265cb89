// ABOUTME: MCP prompt handlers for briefing workflows
// ABOUTME: daily-briefing renders the generator prompt; briefing-review critiques a stored report
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/keenanpereira/pulse/brief"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	store     Reader
	analytics *AnalyticsHandlers
}

func NewPromptHandlers(store Reader, analytics *AnalyticsHandlers) *PromptHandlers {
	return &PromptHandlers{store: store, analytics: analytics}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "daily-briefing":
		return h.getDailyBriefingPrompt(ctx, request.Params.Arguments)
	case "briefing-review":
		return h.getBriefingReviewPrompt(ctx, request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getDailyBriefingPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	if h.analytics == nil {
		return nil, fmt.Errorf("analytics are not available")
	}
	payload, err := h.analytics.Payload(ctx, args["date"])
	if err != nil {
		return nil, err
	}
	data, err := payload.JSON()
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Daily CRM briefing for %s", payload.ReportDate),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: brief.BuildPrompt(data)},
			},
		},
	}, nil
}

func (h *PromptHandlers) getBriefingReviewPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	handlers := NewBriefingHandlers(h.store)
	_, b, err := handlers.GetBriefing(ctx, nil, GetBriefingInput{Date: args["date"]})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Here is the stored CRM briefing for %s:\n\n", b.ReportDate)
	text.WriteString(b.MarkdownContent)
	text.WriteString("\n\nPlease review this briefing and provide:")
	text.WriteString("\n1. Any claims that are not backed by a specific number or name")
	text.WriteString("\n2. Whether the recommended actions address the flagged anomalies")
	text.WriteString("\n3. The single most important follow-up for the sales team today")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review of briefing %s", b.ReportDate),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text.String()},
			},
		},
	}, nil
}
