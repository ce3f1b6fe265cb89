// ABOUTME: Tests for record field accessors
// ABOUTME: Missing and malformed fields fall back to defaults
package crm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	records, err := DecodeRecords([]byte(`[{
		"id": 4876876000000123456,
		"Owner": {"name": "  Asha  ", "id": "1"},
		"Full_Name": "Ravi K",
		"Lead_Source": "",
		"Amount": "250000.50",
		"Annual_Revenue": null,
		"Bogus_Number": "n/a",
		"Nan_String": "NaN",
		"Inf_String": "Infinity",
		"Neg_Inf": "-Inf",
		"Huge": 1e400,
		"Created_Time": "2026-03-01T10:15:00+05:30"
	}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]

	assert.Equal(t, "4876876000000123456", r.ID(), "large ids keep full precision")
	assert.Equal(t, "Asha", r.Owner("Unassigned"))
	assert.Equal(t, "Ravi K", r.Text("Full_Name", "Unknown"))
	assert.Equal(t, "Unknown", r.Text("Lead_Source", "Unknown"))
	assert.Equal(t, "Unknown", r.Text("Missing", "Unknown"))
	assert.Equal(t, 250000.50, r.Number("Amount"))
	assert.Equal(t, 0.0, r.Number("Annual_Revenue"))
	assert.Equal(t, 0.0, r.Number("Bogus_Number"))
	assert.Equal(t, 0.0, r.Number("Nan_String"))
	assert.Equal(t, 0.0, r.Number("Inf_String"))
	assert.Equal(t, 0.0, r.Number("Neg_Inf"))
	assert.Equal(t, 0.0, r.Number("Huge"), "out of range json number")

	created := r.Time("Created_Time")
	require.NotNil(t, created)
	assert.True(t, created.Equal(time.Date(2026, 3, 1, 4, 45, 0, 0, time.UTC)))
	assert.Nil(t, r.Time("Modified_Time"))

	assert.Contains(t, string(r.Raw()), `"Full_Name":"Ravi K"`)
}

func TestRecordNumberNonFinite(t *testing.T) {
	assert.Equal(t, 0.0, Record{"Amount": math.NaN()}.Number("Amount"))
	assert.Equal(t, 0.0, Record{"Amount": math.Inf(1)}.Number("Amount"))
	assert.Equal(t, 0.0, Record{"Amount": " inf "}.Number("Amount"))
	assert.Equal(t, 42.0, Record{"Amount": 42}.Number("Amount"))
}

func TestRecordOwnerFallbacks(t *testing.T) {
	assert.Equal(t, "Unassigned", Record{}.Owner("Unassigned"))
	assert.Equal(t, "Unassigned", Record{"Owner": "Asha"}.Owner("Unassigned"))
	assert.Equal(t, "Unassigned", Record{"Owner": map[string]any{"name": ""}}.Owner("Unassigned"))
	assert.Equal(t, "", Record{}.ID())
}
