// ABOUTME: huma operations and handlers for the dashboard API
// ABOUTME: Input and output shapes reuse the MCP handler types so both surfaces agree
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/handlers"
	"github.com/keenanpereira/pulse/models"
)

type healthOutput struct {
	Body struct {
		Status  string `json:"status" example:"OK"`
		Version string `json:"version"`
	}
}

type briefingDatesInput struct {
	Limit int `query:"limit" minimum:"0" doc:"Maximum dates to return, newest first (0 for all)"`
}

type briefingDatesOutput struct {
	Body handlers.ListBriefingDatesOutput
}

type briefingInput struct {
	Date string `path:"date" doc:"Report date as YYYY-MM-DD, or latest"`
}

type briefingOutput struct {
	Body handlers.BriefingOutput
}

type syncHistoryInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"500" doc:"Maximum entries to return (default 20)"`
}

type syncHistoryOutput struct {
	Body handlers.SyncHistoryOutput
}

type dateInput struct {
	Date string `query:"date" doc:"Report date as YYYY-MM-DD in the report time zone (default today)"`
}

type overviewOutput struct {
	Body handlers.OverviewOutput
}

type payloadOutput struct {
	Body analytics.Payload
}

// SetupRoutes registers every operation on api.
func (s *Server) SetupRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"health"},
	}, s.health)

	huma.Register(api, huma.Operation{
		OperationID: "briefings-list",
		Method:      http.MethodGet,
		Path:        "/api/briefings",
		Summary:     "Report dates with a stored briefing",
		Tags:        []string{"briefings"},
	}, s.listBriefings)

	huma.Register(api, huma.Operation{
		OperationID: "briefings-get",
		Method:      http.MethodGet,
		Path:        "/api/briefings/{date}",
		Summary:     "Dashboard briefing for a date",
		Tags:        []string{"briefings"},
	}, s.getBriefing)

	huma.Register(api, huma.Operation{
		OperationID: "sync-history",
		Method:      http.MethodGet,
		Path:        "/api/sync/history",
		Summary:     "Recent sync runs",
		Tags:        []string{"sync"},
	}, s.syncHistory)

	if s.analytics == nil {
		return
	}

	huma.Register(api, huma.Operation{
		OperationID: "overview",
		Method:      http.MethodGet,
		Path:        "/api/overview",
		Summary:     "All-time CRM overview",
		Tags:        []string{"analytics"},
	}, s.overview)

	huma.Register(api, huma.Operation{
		OperationID: "payload",
		Method:      http.MethodGet,
		Path:        "/api/payload",
		Summary:     "Analytics payload and anomaly flags for a report date",
		Tags:        []string{"analytics"},
	}, s.payload)
}

func (s *Server) health(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Status = "OK"
	out.Body.Version = s.version
	return out, nil
}

func (s *Server) listBriefings(ctx context.Context, input *briefingDatesInput) (*briefingDatesOutput, error) {
	_, out, err := s.briefings.ListBriefingDates(ctx, nil, handlers.ListBriefingDatesInput{Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return &briefingDatesOutput{Body: out}, nil
}

func (s *Server) getBriefing(ctx context.Context, input *briefingInput) (*briefingOutput, error) {
	var (
		b   *models.Briefing
		err error
	)
	if input.Date == "latest" {
		b, err = s.store.LatestBriefing(ctx)
	} else {
		if _, perr := time.Parse(models.ReportDateLayout, input.Date); perr != nil {
			return nil, huma.Error400BadRequest("date must be YYYY-MM-DD or latest")
		}
		b, err = s.store.GetBriefing(ctx, input.Date)
	}
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, huma.Error404NotFound("briefing not found")
	}
	return &briefingOutput{Body: handlers.ToBriefingOutput(b)}, nil
}

func (s *Server) syncHistory(ctx context.Context, input *syncHistoryInput) (*syncHistoryOutput, error) {
	_, out, err := s.briefings.SyncHistory(ctx, nil, handlers.SyncHistoryInput{Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return &syncHistoryOutput{Body: out}, nil
}

func (s *Server) overview(ctx context.Context, input *dateInput) (*overviewOutput, error) {
	if err := checkDate(input.Date); err != nil {
		return nil, err
	}
	_, out, err := s.analytics.GetOverview(ctx, nil, handlers.AnalyticsInput{Date: input.Date})
	if err != nil {
		return nil, err
	}
	return &overviewOutput{Body: out}, nil
}

func (s *Server) payload(ctx context.Context, input *dateInput) (*payloadOutput, error) {
	if err := checkDate(input.Date); err != nil {
		return nil, err
	}
	p, err := s.analytics.Payload(ctx, input.Date)
	if err != nil {
		return nil, err
	}
	return &payloadOutput{Body: *p}, nil
}

func checkDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(models.ReportDateLayout, date); err != nil {
		return huma.Error400BadRequest("date must be YYYY-MM-DD")
	}
	return nil
}
