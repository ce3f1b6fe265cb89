// ABOUTME: MCP server assembly for the briefing query surface
// ABOUTME: Registers tools, resources and prompts over one store
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server. analyticsHandlers may be nil, in which
// case only the stored briefing and sync tools are registered.
func NewServer(version string, store Reader, analyticsHandlers *AnalyticsHandlers) *mcp.Server {
	briefings := NewBriefingHandlers(store)
	resources := NewResourceHandlers(store)
	prompts := NewPromptHandlers(store, analyticsHandlers)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pulse",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_briefing_dates",
		Description: "List the dates that have a stored dashboard briefing, newest first",
	}, briefings.ListBriefingDates)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_briefing",
		Description: "Get the dashboard briefing for a date, or the most recent one",
	}, briefings.GetBriefing)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_history",
		Description: "Show recent CRM sync runs with record counts and status",
	}, briefings.SyncHistory)

	if analyticsHandlers != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "get_dashboard_overview",
			Description: "All-time CRM overview: KPIs, lead trend, stage and owner breakdowns, deals closing soon",
		}, analyticsHandlers.GetOverview)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "get_briefing_payload",
			Description: "The analytics payload and detected anomalies used to generate a day's briefing",
		}, analyticsHandlers.GetBriefingPayload)

		server.AddPrompt(&mcp.Prompt{
			Name:        "daily-briefing",
			Description: "Generate the executive CRM briefing for a report date",
			Arguments: []*mcp.PromptArgument{
				{Name: "date", Description: "Report date as YYYY-MM-DD (default today)"},
			},
		}, prompts.GetPrompt)
	}

	server.AddPrompt(&mcp.Prompt{
		Name:        "briefing-review",
		Description: "Critique a stored briefing for unsupported claims and missed anomalies",
		Arguments: []*mcp.PromptArgument{
			{Name: "date", Description: "Report date as YYYY-MM-DD (default most recent)"},
		},
	}, prompts.GetPrompt)

	server.AddResource(&mcp.Resource{
		URI:         "pulse://briefings",
		Name:        "briefing-dates",
		Description: "Dates with a stored briefing",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         "pulse://briefings/latest",
		Name:        "latest-briefing",
		Description: "Most recent dashboard briefing",
		MIMEType:    "text/markdown",
	}, resources.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "pulse://briefings/{date}",
		Name:        "briefing",
		Description: "Dashboard briefing for a report date",
		MIMEType:    "text/markdown",
	}, resources.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         "pulse://sync/history",
		Name:        "sync-history",
		Description: "Recent sync log entries",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	return server
}
