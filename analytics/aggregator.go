// ABOUTME: Analytics aggregator computing daily volume, funnel, source and owner matrices
// ABOUTME: Re-reads the store on every call; windows use the report time zone
package analytics

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/models"
)

// Store is the read side the aggregator scans.
type Store interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	ListDeals(ctx context.Context) ([]models.Deal, error)
	ListContacts(ctx context.Context) ([]models.Contact, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

type Volume struct {
	Today             int    `json:"today"`
	PreviousSevenDays int    `json:"previous_seven_days"`
	SevenDayAverage   int    `json:"seven_day_average"`
	PercentChange     string `json:"percent_change"`
}

type SourceQuality struct {
	Total      int `json:"total_leads"`
	Junk       int `json:"junk_or_unqualified"`
	InPipeline int `json:"in_pipeline"`
	JunkPct    int `json:"junk_pct"`
}

type OwnerLoad struct {
	ActiveLeads   int     `json:"active_leads"`
	PipelineValue float64 `json:"total_pipeline_value"`
}

type Period struct {
	Leads    int     `json:"leads"`
	Pipeline float64 `json:"pipeline_value"`
}

type PeriodStats struct {
	Today     Period `json:"today"`
	LastWeek  Period `json:"last_7_days"`
	LastMonth Period `json:"last_30_days"`
}

type WonLost struct {
	WonCount  int     `json:"won_count"`
	WonValue  float64 `json:"won_value"`
	LostCount int     `json:"lost_count"`
	LostValue float64 `json:"lost_value"`
}

// Snapshot is everything derived for one report date.
type Snapshot struct {
	ReportDate      string
	Volume          Volume
	Funnel          Funnel
	SourceBreakdown map[string]int
	OpenPipeline    float64
	SourceQuality   map[string]SourceQuality
	Owners          map[string]OwnerLoad
	Periods         PeriodStats
	WonLost         WonLost
}

type Aggregator struct {
	store  Store
	labels Labels
	loc    *time.Location
	logger *log.Logger
}

func NewAggregator(store Store, labels Labels, loc *time.Location, logger *log.Logger) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Aggregator{store: store, labels: labels, loc: loc, logger: logger}
}

// window is a half-open [start, end) interval.
type window struct {
	start, end time.Time
}

func (w window) contains(t *time.Time) bool {
	return t != nil && !t.Before(w.start) && t.Before(w.end)
}

// dayStart returns local midnight of the calendar day containing t.
func (a *Aggregator) dayStart(t time.Time) time.Time {
	local := t.In(a.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, a.loc)
}

// ReportDate formats the report day of asOf in the report time zone.
func (a *Aggregator) ReportDate(asOf time.Time) string {
	return a.dayStart(asOf).Format(models.ReportDateLayout)
}

// loadDeals reads every deal, zeroing amounts that are not finite so sums
// stay encodable.
func (a *Aggregator) loadDeals(ctx context.Context) ([]models.Deal, error) {
	deals, err := a.store.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	for i := range deals {
		if math.IsNaN(deals[i].Amount) || math.IsInf(deals[i].Amount, 0) {
			a.logger.Warn("ignoring non-finite deal amount", "deal", deals[i].ID)
			deals[i].Amount = 0
		}
	}
	return deals, nil
}

// Aggregate derives the snapshot for the calendar day containing asOf.
func (a *Aggregator) Aggregate(ctx context.Context, asOf time.Time) (*Snapshot, error) {
	leads, err := a.store.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	deals, err := a.loadDeals(ctx)
	if err != nil {
		return nil, err
	}

	day := a.dayStart(asOf)
	today := window{day, day.AddDate(0, 0, 1)}
	prevWeek := window{day.AddDate(0, 0, -7), day}

	snap := &Snapshot{
		ReportDate:      day.Format(models.ReportDateLayout),
		Funnel:          newFunnel(),
		SourceBreakdown: make(map[string]int),
	}

	snap.Volume = volume(leads, today, prevWeek)
	snap.Periods = a.periods(leads, deals, day)
	snap.WonLost = a.wonLost(deals)
	snap.OpenPipeline = a.openPipeline(deals)
	snap.Owners = a.owners(leads, deals)

	for _, l := range leads {
		snap.Funnel.Leads[l.Status]++
	}
	for _, d := range deals {
		snap.Funnel.Deals[d.Stage]++
	}
	if _, collisions := snap.Funnel.Merged(); len(collisions) > 0 {
		a.logger.Warn("lead status and deal stage share labels", "labels", collisions)
	}

	for _, l := range leads {
		if today.contains(l.CreatedTime) {
			snap.SourceBreakdown[l.Source]++
		}
	}
	for _, d := range deals {
		if today.contains(d.CreatedTime) {
			snap.SourceBreakdown[d.Source]++
		}
	}

	snap.SourceQuality = a.sourceQuality(leads, func(l models.Lead) bool { return today.contains(l.CreatedTime) })

	a.logger.Debug("aggregated snapshot", "date", snap.ReportDate, "leads", len(leads), "deals", len(deals))
	return snap, nil
}

func volume(leads []models.Lead, today, prevWeek window) Volume {
	var v Volume
	for _, l := range leads {
		switch {
		case today.contains(l.CreatedTime):
			v.Today++
		case prevWeek.contains(l.CreatedTime):
			v.PreviousSevenDays++
		}
	}
	v.SevenDayAverage = int(math.Round(float64(v.PreviousSevenDays) / 7))
	v.PercentChange = PercentChange(v.Today, v.SevenDayAverage)
	return v
}

// PercentChange renders (current-avg)/avg as a signed whole percentage. A
// zero average renders as "0%".
func PercentChange(current, avg int) string {
	if avg == 0 {
		return "0%"
	}
	pct := int(math.Round(float64(current-avg) / float64(avg) * 100))
	switch {
	case pct > 0:
		return fmt.Sprintf("+%d%%", pct)
	case pct < 0:
		return fmt.Sprintf("%d%%", pct)
	default:
		return "0%"
	}
}

// JunkPct returns round(junk/total*100), 0 for an empty total.
func JunkPct(junk, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(junk) / float64(total) * 100))
	return max(0, min(100, pct))
}

func (a *Aggregator) sourceQuality(leads []models.Lead, include func(models.Lead) bool) map[string]SourceQuality {
	matrix := make(map[string]SourceQuality)
	for _, l := range leads {
		if !include(l) {
			continue
		}
		q := matrix[l.Source]
		q.Total++
		if a.labels.IsJunk(l.Status) {
			q.Junk++
		}
		matrix[l.Source] = q
	}
	for source, q := range matrix {
		q.InPipeline = q.Total - q.Junk
		q.JunkPct = JunkPct(q.Junk, q.Total)
		matrix[source] = q
	}
	return matrix
}

func (a *Aggregator) openPipeline(deals []models.Deal) float64 {
	var total float64
	for _, d := range deals {
		if !a.labels.IsLost(d.Stage) {
			total += d.Amount
		}
	}
	return total
}

// owners merges deal-derived load with lead counts for owners without open
// deals.
func (a *Aggregator) owners(leads []models.Lead, deals []models.Deal) map[string]OwnerLoad {
	matrix := make(map[string]OwnerLoad)
	for _, d := range deals {
		if a.labels.IsLost(d.Stage) {
			continue
		}
		load := matrix[d.Owner]
		load.ActiveLeads++
		load.PipelineValue += d.Amount
		matrix[d.Owner] = load
	}

	leadCounts := make(map[string]int)
	for _, l := range leads {
		leadCounts[l.Owner]++
	}
	for owner, n := range leadCounts {
		if _, ok := matrix[owner]; !ok {
			matrix[owner] = OwnerLoad{ActiveLeads: n}
		}
	}
	return matrix
}

func (a *Aggregator) periods(leads []models.Lead, deals []models.Deal, day time.Time) PeriodStats {
	end := day.AddDate(0, 0, 1)
	spans := []window{
		{day, end},
		{day.AddDate(0, 0, -6), end},
		{day.AddDate(0, 0, -29), end},
	}

	out := make([]Period, len(spans))
	for i, w := range spans {
		for _, l := range leads {
			if w.contains(l.CreatedTime) {
				out[i].Leads++
			}
		}
		for _, d := range deals {
			if w.contains(d.CreatedTime) && !a.labels.IsLost(d.Stage) {
				out[i].Pipeline += d.Amount
			}
		}
	}
	return PeriodStats{Today: out[0], LastWeek: out[1], LastMonth: out[2]}
}

func (a *Aggregator) wonLost(deals []models.Deal) WonLost {
	var wl WonLost
	for _, d := range deals {
		switch {
		case a.labels.IsWon(d.Stage):
			wl.WonCount++
			wl.WonValue += d.Amount
		case a.labels.IsLost(d.Stage):
			wl.LostCount++
			wl.LostValue += d.Amount
		}
	}
	return wl
}
