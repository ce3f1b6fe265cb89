// ABOUTME: MCP tool handlers for live analytics over the synced CRM tables
// ABOUTME: Dashboard overview and the exact payload handed to the report generator
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type AnalyticsHandlers struct {
	aggregator *analytics.Aggregator
	detector   *analytics.Detector
	loc        *time.Location
	now        func() time.Time
}

func NewAnalyticsHandlers(aggregator *analytics.Aggregator, detector *analytics.Detector, loc *time.Location) *AnalyticsHandlers {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsHandlers{aggregator: aggregator, detector: detector, loc: loc, now: time.Now}
}

type AnalyticsInput struct {
	Date string `json:"date,omitempty" jsonschema:"Report date as YYYY-MM-DD in the report time zone (default today)"`
}

// asOf resolves the requested report day.
func (h *AnalyticsHandlers) asOf(date string) (time.Time, error) {
	if date == "" {
		return h.now(), nil
	}
	t, err := time.ParseInLocation(models.ReportDateLayout, date, h.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return t, nil
}

// Payload builds the generator payload for a report date.
func (h *AnalyticsHandlers) Payload(ctx context.Context, date string) (*analytics.Payload, error) {
	asOf, err := h.asOf(date)
	if err != nil {
		return nil, err
	}
	snap, err := h.aggregator.Aggregate(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	return analytics.BuildPayload(snap, h.detector), nil
}

func (h *AnalyticsHandlers) GetBriefingPayload(ctx context.Context, req *mcp.CallToolRequest, input AnalyticsInput) (*mcp.CallToolResult, analytics.Payload, error) {
	p, err := h.Payload(ctx, input.Date)
	if err != nil {
		return nil, analytics.Payload{}, err
	}
	return &mcp.CallToolResult{}, *p, nil
}

type ClosingDealOutput struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Owner       string  `json:"owner"`
	Stage       string  `json:"stage"`
	Amount      float64 `json:"amount"`
	ClosingDate string  `json:"closing_date"`
}

type OverviewOutput struct {
	ReportDate           string                             `json:"report_date"`
	KPIs                 analytics.KPIs                     `json:"kpis"`
	Periods              analytics.PeriodStats              `json:"period_stats"`
	LeadTrend            []analytics.DayCount               `json:"lead_trend"`
	LeadStatuses         map[string]int                     `json:"lead_statuses"`
	OwnerLeads           map[string]int                     `json:"owner_leads"`
	DealStages           map[string]int                     `json:"deal_stages"`
	DealValueByOwner     map[string]float64                 `json:"deal_value_by_owner"`
	ClosingSoon          []ClosingDealOutput                `json:"closing_soon"`
	WonLost              analytics.WonLost                  `json:"won_lost"`
	ContactOwners        map[string]int                     `json:"contact_owners"`
	Industries           map[string]int                     `json:"industries"`
	SourceQualityAllTime map[string]analytics.SourceQuality `json:"source_quality_all_time"`
}

func (h *AnalyticsHandlers) GetOverview(ctx context.Context, req *mcp.CallToolRequest, input AnalyticsInput) (*mcp.CallToolResult, OverviewOutput, error) {
	asOf, err := h.asOf(input.Date)
	if err != nil {
		return nil, OverviewOutput{}, err
	}
	ov, err := h.aggregator.Overview(ctx, asOf)
	if err != nil {
		return nil, OverviewOutput{}, fmt.Errorf("failed to build overview: %w", err)
	}

	out := OverviewOutput{
		ReportDate:           h.aggregator.ReportDate(asOf),
		KPIs:                 ov.KPIs,
		Periods:              ov.Periods,
		LeadTrend:            ov.LeadTrend,
		LeadStatuses:         ov.LeadStatuses,
		OwnerLeads:           ov.OwnerLeads,
		DealStages:           ov.DealStages,
		DealValueByOwner:     ov.DealValueByOwner,
		ClosingSoon:          make([]ClosingDealOutput, 0, len(ov.ClosingSoon)),
		WonLost:              ov.WonLost,
		ContactOwners:        ov.ContactOwners,
		Industries:           ov.Industries,
		SourceQualityAllTime: ov.SourceQualityAllTime,
	}
	for _, d := range ov.ClosingSoon {
		out.ClosingSoon = append(out.ClosingSoon, ClosingDealOutput{
			ID:          d.ID,
			Name:        d.DealName,
			Owner:       d.Owner,
			Stage:       string(d.Stage),
			Amount:      d.Amount,
			ClosingDate: d.ClosingDate,
		})
	}
	return &mcp.CallToolResult{}, out, nil
}
