// ABOUTME: Tests for per-module record normalization
// ABOUTME: Verifies field mapping and defaults for malformed input
package sync

import (
	"testing"

	"github.com/keenanpereira/pulse/crm"
	"github.com/keenanpereira/pulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLeadDefaults(t *testing.T) {
	lead, ok := NormalizeLead(crm.Record{"id": "L1", "Annual_Revenue": "not a number", "Owner": nil})
	require.True(t, ok)

	assert.Equal(t, models.OwnerUnassigned, lead.Owner)
	assert.Equal(t, models.UnknownValue, lead.FullName)
	assert.Equal(t, models.UnknownValue, lead.Source)
	assert.Equal(t, models.DefaultLeadStatus, lead.Status)
	assert.Equal(t, 0.0, lead.AnnualRevenue)
	assert.JSONEq(t, `{"id":"L1","Annual_Revenue":"not a number","Owner":null}`, string(lead.RawData))
}

func TestNormalizeDeal(t *testing.T) {
	deal, ok := NormalizeDeal(crm.Record{
		"id":           "D1",
		"Owner":        map[string]any{"name": "Vikram"},
		"Deal_Name":    "Acme",
		"Stage":        "Closed Won",
		"Lead_Source":  "Partner",
		"Amount":       1500.5,
		"Closing_Date": "2026-04-30",
		"Created_Time": "2026-03-01T10:00:00+05:30",
	})
	require.True(t, ok)

	assert.Equal(t, "Vikram", deal.Owner)
	assert.Equal(t, models.DealStageClosedWon, deal.Stage)
	assert.Equal(t, "Partner", deal.Source)
	assert.Equal(t, 1500.5, deal.Amount)
	assert.Equal(t, "2026-04-30", deal.ClosingDate)
	assert.NotNil(t, deal.CreatedTime)
}

func TestNormalizeSkipsMissingID(t *testing.T) {
	_, ok := NormalizeContact(crm.Record{"Email": "x@example.com"})
	assert.False(t, ok)

	account, ok := NormalizeAccount(crm.Record{"id": "A1"})
	require.True(t, ok)
	assert.Equal(t, models.UnknownValue, account.Industry)
}
