// ABOUTME: Pipeline funnel keeping lead statuses and deal stages as separate vocabularies
// ABOUTME: The two are merged into one label map only for presentation
package analytics

import (
	"slices"

	"github.com/keenanpereira/pulse/models"
)

type Funnel struct {
	Leads map[models.LeadStatus]int `json:"leads"`
	Deals map[models.DealStage]int  `json:"deals"`
}

func newFunnel() Funnel {
	return Funnel{
		Leads: make(map[models.LeadStatus]int),
		Deals: make(map[models.DealStage]int),
	}
}

// Merged combines both vocabularies into label to count. Labels present in
// both sets are summed and returned as collisions, sorted.
func (f Funnel) Merged() (map[string]int, []string) {
	merged := make(map[string]int, len(f.Leads)+len(f.Deals))
	for status, n := range f.Leads {
		merged[string(status)] = n
	}

	var collisions []string
	for stage, n := range f.Deals {
		if _, ok := f.Leads[models.LeadStatus(stage)]; ok {
			collisions = append(collisions, string(stage))
		}
		merged[string(stage)] += n
	}
	slices.Sort(collisions)
	return merged, collisions
}
