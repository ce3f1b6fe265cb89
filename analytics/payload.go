// ABOUTME: Structured payload handed to the report generator
// ABOUTME: Built from a snapshot plus detected anomalies; map keys serialize sorted
package analytics

import (
	"encoding/json"
	"fmt"
)

type DailyMetrics struct {
	NewLeadsToday       int    `json:"new_leads_today"`
	SevenDayLeadAverage int    `json:"seven_day_lead_average"`
	PercentChangeLeads  string `json:"percent_change_leads"`
	PipelineValue       string `json:"pipeline_value"`
}

type Payload struct {
	ReportDate          string                   `json:"report_date"`
	DailyMetrics        DailyMetrics             `json:"daily_metrics"`
	PipelineFunnel      map[string]int           `json:"pipeline_funnel"`
	SourceBreakdown     map[string]int           `json:"source_breakdown"`
	SourceQualityMatrix map[string]SourceQuality `json:"source_quality_matrix"`
	RepPipelineMatrix   map[string]OwnerLoad     `json:"rep_pipeline_matrix"`
	WonLost             WonLost                  `json:"won_lost"`
	PeriodStats         PeriodStats              `json:"period_stats"`
	Anomalies           []string                 `json:"anomalies_detected_by_math"`
}

// BuildPayload assembles the generator input for a snapshot.
func BuildPayload(snap *Snapshot, detector *Detector) *Payload {
	funnel, _ := snap.Funnel.Merged()

	p := &Payload{
		ReportDate: snap.ReportDate,
		DailyMetrics: DailyMetrics{
			NewLeadsToday:       snap.Volume.Today,
			SevenDayLeadAverage: snap.Volume.SevenDayAverage,
			PercentChangeLeads:  snap.Volume.PercentChange,
			PipelineValue:       detector.FormatAmount(snap.OpenPipeline),
		},
		PipelineFunnel:      funnel,
		SourceBreakdown:     nonNil(snap.SourceBreakdown),
		SourceQualityMatrix: nonNil(snap.SourceQuality),
		RepPipelineMatrix:   nonNil(snap.Owners),
		WonLost:             snap.WonLost,
		PeriodStats:         snap.Periods,
		Anomalies:           detector.Detect(snap),
	}
	return p
}

// JSON renders the payload with two-space indentation.
func (p *Payload) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

func nonNil[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}
