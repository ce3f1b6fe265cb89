// ABOUTME: All-time dashboard overview across leads, deals, contacts and accounts
// ABOUTME: KPIs, 30-day lead trend, stage and owner breakdowns, deals closing soon
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/keenanpereira/pulse/models"
)

// TrendDays is the length of the lead volume trend.
const TrendDays = 30

// ClosingSoonDays bounds the closing-soon deal list.
const ClosingSoonDays = 30

type KPIs struct {
	Leads        int     `json:"total_leads"`
	Deals        int     `json:"total_deals"`
	Contacts     int     `json:"total_contacts"`
	Accounts     int     `json:"total_accounts"`
	OpenPipeline float64 `json:"open_pipeline"`
	WonValue     float64 `json:"won_value"`
	JunkPct      int     `json:"junk_pct"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Overview struct {
	KPIs                 KPIs                     `json:"kpis"`
	Periods              PeriodStats              `json:"period_stats"`
	LeadTrend            []DayCount               `json:"lead_trend"`
	LeadStatuses         map[string]int           `json:"lead_statuses"`
	OwnerLeads           map[string]int           `json:"owner_leads"`
	DealStages           map[string]int           `json:"deal_stages"`
	DealValueByOwner     map[string]float64       `json:"deal_value_by_owner"`
	ClosingSoon          []models.Deal            `json:"closing_soon"`
	WonLost              WonLost                  `json:"won_lost"`
	ContactOwners        map[string]int           `json:"contact_owners"`
	Industries           map[string]int           `json:"industries"`
	SourceQualityAllTime map[string]SourceQuality `json:"source_quality_all_time"`
}

// Overview computes the dashboard view as of asOf.
func (a *Aggregator) Overview(ctx context.Context, asOf time.Time) (*Overview, error) {
	leads, err := a.store.ListLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	deals, err := a.loadDeals(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := a.store.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	accounts, err := a.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	day := a.dayStart(asOf)
	wonLost := a.wonLost(deals)

	ov := &Overview{
		Periods:              a.periods(leads, deals, day),
		LeadTrend:            a.leadTrend(leads, day),
		LeadStatuses:         make(map[string]int),
		OwnerLeads:           make(map[string]int),
		DealStages:           make(map[string]int),
		DealValueByOwner:     make(map[string]float64),
		ClosingSoon:          a.closingSoon(deals, day),
		WonLost:              wonLost,
		ContactOwners:        make(map[string]int),
		Industries:           make(map[string]int),
		SourceQualityAllTime: a.sourceQuality(leads, func(models.Lead) bool { return true }),
	}

	var junk int
	for _, l := range leads {
		ov.LeadStatuses[string(l.Status)]++
		ov.OwnerLeads[l.Owner]++
		if a.labels.IsJunk(l.Status) {
			junk++
		}
	}
	for _, d := range deals {
		ov.DealStages[string(d.Stage)]++
		if !a.labels.IsLost(d.Stage) {
			ov.DealValueByOwner[d.Owner] += d.Amount
		}
	}
	for _, c := range contacts {
		ov.ContactOwners[c.Owner]++
	}
	for _, acc := range accounts {
		ov.Industries[acc.Industry]++
	}

	ov.KPIs = KPIs{
		Leads:        len(leads),
		Deals:        len(deals),
		Contacts:     len(contacts),
		Accounts:     len(accounts),
		OpenPipeline: a.openPipeline(deals),
		WonValue:     wonLost.WonValue,
		JunkPct:      JunkPct(junk, len(leads)),
	}
	return ov, nil
}

// leadTrend counts leads per day for the TrendDays days ending on day.
func (a *Aggregator) leadTrend(leads []models.Lead, day time.Time) []DayCount {
	start := day.AddDate(0, 0, -(TrendDays - 1))
	trend := make([]DayCount, TrendDays)
	index := make(map[string]int, TrendDays)
	for i := range trend {
		date := start.AddDate(0, 0, i).Format(models.ReportDateLayout)
		trend[i] = DayCount{Date: date}
		index[date] = i
	}

	for _, l := range leads {
		if l.CreatedTime == nil {
			continue
		}
		if i, ok := index[a.dayStart(*l.CreatedTime).Format(models.ReportDateLayout)]; ok {
			trend[i].Count++
		}
	}
	return trend
}

// closingSoon lists open deals whose closing date falls within the next
// ClosingSoonDays days, earliest first.
func (a *Aggregator) closingSoon(deals []models.Deal, day time.Time) []models.Deal {
	first := day.Format(models.ReportDateLayout)
	last := day.AddDate(0, 0, ClosingSoonDays).Format(models.ReportDateLayout)

	var out []models.Deal
	for _, d := range deals {
		if a.labels.IsLost(d.Stage) || a.labels.IsWon(d.Stage) {
			continue
		}
		if _, err := time.Parse(models.ReportDateLayout, d.ClosingDate); err != nil {
			continue
		}
		if d.ClosingDate >= first && d.ClosingDate <= last {
			d.RawData = nil
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ClosingDate != out[j].ClosingDate {
			return out[i].ClosingDate < out[j].ClosingDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}
