// ABOUTME: Projects raw CRM records onto typed rows per module
// ABOUTME: Owner, text and numeric defaults are applied here, never failing a row
package sync

import (
	"github.com/keenanpereira/pulse/crm"
	"github.com/keenanpereira/pulse/models"
)

// NormalizeLead maps a Leads record. ok is false when the record has no id.
func NormalizeLead(r crm.Record) (models.Lead, bool) {
	id := r.ID()
	if id == "" {
		return models.Lead{}, false
	}
	return models.Lead{
		ID:            id,
		Owner:         r.Owner(models.OwnerUnassigned),
		FullName:      r.Text("Full_Name", models.UnknownValue),
		Source:        r.Text("Lead_Source", models.UnknownValue),
		Status:        models.LeadStatus(r.Text("Lead_Status", string(models.DefaultLeadStatus))),
		AnnualRevenue: r.Number("Annual_Revenue"),
		CreatedTime:   r.Time("Created_Time"),
		ModifiedTime:  r.Time("Modified_Time"),
		RawData:       r.Raw(),
	}, true
}

func NormalizeDeal(r crm.Record) (models.Deal, bool) {
	id := r.ID()
	if id == "" {
		return models.Deal{}, false
	}
	return models.Deal{
		ID:           id,
		Owner:        r.Owner(models.OwnerUnassigned),
		DealName:     r.Text("Deal_Name", models.UnknownValue),
		Stage:        models.DealStage(r.Text("Stage", models.UnknownValue)),
		Source:       r.Text("Lead_Source", models.UnknownValue),
		Amount:       r.Number("Amount"),
		ClosingDate:  r.Text("Closing_Date", ""),
		CreatedTime:  r.Time("Created_Time"),
		ModifiedTime: r.Time("Modified_Time"),
		RawData:      r.Raw(),
	}, true
}

func NormalizeContact(r crm.Record) (models.Contact, bool) {
	id := r.ID()
	if id == "" {
		return models.Contact{}, false
	}
	return models.Contact{
		ID:           id,
		Owner:        r.Owner(models.OwnerUnassigned),
		FullName:     r.Text("Full_Name", models.UnknownValue),
		Email:        r.Text("Email", models.UnknownValue),
		CreatedTime:  r.Time("Created_Time"),
		ModifiedTime: r.Time("Modified_Time"),
		RawData:      r.Raw(),
	}, true
}

func NormalizeAccount(r crm.Record) (models.Account, bool) {
	id := r.ID()
	if id == "" {
		return models.Account{}, false
	}
	return models.Account{
		ID:           id,
		Owner:        r.Owner(models.OwnerUnassigned),
		AccountName:  r.Text("Account_Name", models.UnknownValue),
		Industry:     r.Text("Industry", models.UnknownValue),
		CreatedTime:  r.Time("Created_Time"),
		ModifiedTime: r.Time("Modified_Time"),
		RawData:      r.Raw(),
	}, true
}
