// ABOUTME: CRM label vocabulary used to classify leads and deals
// ABOUTME: Junk statuses and terminal won/lost stages are configuration
package analytics

import (
	"slices"

	"github.com/keenanpereira/pulse/models"
)

type Labels struct {
	JunkStatuses []models.LeadStatus
	Won          models.DealStage
	Lost         models.DealStage
}

func DefaultLabels() Labels {
	return Labels{
		JunkStatuses: []models.LeadStatus{models.LeadStatusJunk, models.LeadStatusNotQualified, models.LeadStatusLost},
		Won:          models.DealStageClosedWon,
		Lost:         models.DealStageClosedLost,
	}
}

// LabelsFrom builds Labels from plain strings, keeping defaults for blanks.
func LabelsFrom(junk []string, won, lost string) Labels {
	labels := DefaultLabels()
	if len(junk) > 0 {
		labels.JunkStatuses = make([]models.LeadStatus, 0, len(junk))
		for _, s := range junk {
			labels.JunkStatuses = append(labels.JunkStatuses, models.LeadStatus(s))
		}
	}
	if won != "" {
		labels.Won = models.DealStage(won)
	}
	if lost != "" {
		labels.Lost = models.DealStage(lost)
	}
	return labels
}

func (l Labels) IsJunk(status models.LeadStatus) bool {
	return slices.Contains(l.JunkStatuses, status)
}

func (l Labels) IsLost(stage models.DealStage) bool {
	return stage == l.Lost
}

func (l Labels) IsWon(stage models.DealStage) bool {
	return stage == l.Won
}
