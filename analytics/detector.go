// ABOUTME: Rule-based anomaly detector for rep overload and toxic lead sources
// ABOUTME: Deterministic output that always starts with a baseline notice
package analytics

import (
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BaselineNotice is the informational first entry; the list is never empty.
const BaselineNotice = "Historical database initialized. Incremental syncs logic tracking active."

type Thresholds struct {
	// An owner is overloaded above OverloadLeads active leads while holding
	// less than OverloadPipeline in open pipeline value.
	OverloadLeads    int
	OverloadPipeline float64
	// A source is toxic at ToxicJunkPct or more junk with more than
	// ToxicMinTotal leads.
	ToxicJunkPct  float64
	ToxicMinTotal int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		OverloadLeads:    100,
		OverloadPipeline: 5_000_000,
		ToxicJunkPct:     30,
		ToxicMinTotal:    5,
	}
}

type Detector struct {
	thresholds Thresholds
	currency   string
	printer    *message.Printer
}

func NewDetector(thresholds Thresholds, currency string) *Detector {
	return &Detector{
		thresholds: thresholds,
		currency:   currency,
		printer:    message.NewPrinter(language.English),
	}
}

// FormatAmount renders a monetary value rounded to whole units with
// thousands separators, e.g. ₹3,000,000.
// Non-finite values render as zero and magnitudes beyond int64 are clamped.
func (d *Detector) FormatAmount(v float64) string {
	var n int64
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		n = 0
	case v >= math.MaxInt64:
		n = math.MaxInt64
	case v <= math.MinInt64:
		n = math.MinInt64
	default:
		n = int64(math.Round(v))
	}
	return d.currency + d.printer.Sprintf("%d", n)
}

func (d *Detector) formatCount(n int) string {
	return d.printer.Sprintf("%d", n)
}

// Detect evaluates the overload and toxic-source rules over a snapshot.
// Owners come first, then sources, each sorted by name.
func (d *Detector) Detect(snap *Snapshot) []string {
	anomalies := []string{BaselineNotice}
	if snap == nil {
		return anomalies
	}

	owners := make([]string, 0, len(snap.Owners))
	for owner := range snap.Owners {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		load := snap.Owners[owner]
		if load.ActiveLeads > d.thresholds.OverloadLeads && load.PipelineValue < d.thresholds.OverloadPipeline {
			anomalies = append(anomalies, "OVERLOADED REP: "+owner+" holds "+d.formatCount(load.ActiveLeads)+
				" active leads but only "+d.FormatAmount(load.PipelineValue)+
				" in open pipeline value. Recommend pausing new lead assignment until conversion improves.")
		}
	}

	sources := make([]string, 0, len(snap.SourceQuality))
	for source := range snap.SourceQuality {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		q := snap.SourceQuality[source]
		if float64(q.JunkPct) >= d.thresholds.ToxicJunkPct && q.Total > d.thresholds.ToxicMinTotal {
			anomalies = append(anomalies, "TOXIC SOURCE: "+source+" delivered "+d.formatCount(q.Total)+
				" leads with "+d.formatCount(q.JunkPct)+"% junk or unqualified. Recommend reviewing targeting for this source.")
		}
	}

	return anomalies
}
