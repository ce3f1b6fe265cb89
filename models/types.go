// ABOUTME: Data models for synced CRM entities, sync logs and briefings
// ABOUTME: Defines Module, Lead, Deal, Contact, Account, SyncLogEntry and Briefing
package models

import (
	"encoding/json"
	"time"
)

// Module is a logical CRM entity type fetched and stored independently.
type Module string

const (
	ModuleLeads    Module = "Leads"
	ModuleDeals    Module = "Deals"
	ModuleContacts Module = "Contacts"
	ModuleAccounts Module = "Accounts"
)

// SyncModules is the fixed order in which modules are fetched.
var SyncModules = []Module{ModuleLeads, ModuleDeals, ModuleContacts, ModuleAccounts}

// Table returns the storage table for the module.
func (m Module) Table() string {
	switch m {
	case ModuleLeads:
		return "leads"
	case ModuleDeals:
		return "deals"
	case ModuleContacts:
		return "contacts"
	case ModuleAccounts:
		return "accounts"
	default:
		return ""
	}
}

// Valid reports whether m is one of the known modules.
func (m Module) Valid() bool {
	return m.Table() != ""
}

// OwnerUnassigned is used when a record carries no usable owner.
const OwnerUnassigned = "Unassigned"

// Placeholder values applied when the CRM omits a typed field.
const (
	UnknownValue      = "Unknown"
	DefaultLeadStatus = LeadStatus("New Lead")
)

// LeadStatus is the qualification label of a Lead.
type LeadStatus string

// DealStage is the pipeline stage label of a Deal.
type DealStage string

// Common Zoho labels. Classification sets (junk, won, lost) are configured,
// these constants are only defaults.
const (
	LeadStatusJunk         LeadStatus = "Junk Lead"
	LeadStatusNotQualified LeadStatus = "Not Qualified"
	LeadStatusLost         LeadStatus = "Lost Lead"

	DealStageClosedWon  DealStage = "Closed Won"
	DealStageClosedLost DealStage = "Closed Lost"
)

type Lead struct {
	ID            string          `json:"id"`
	Owner         string          `json:"owner"`
	FullName      string          `json:"full_name"`
	Source        string          `json:"lead_source"`
	Status        LeadStatus      `json:"lead_status"`
	AnnualRevenue float64         `json:"annual_revenue"`
	CreatedTime   *time.Time      `json:"created_time,omitempty"`
	ModifiedTime  *time.Time      `json:"modified_time,omitempty"`
	RawData       json.RawMessage `json:"raw_data"`
}

type Deal struct {
	ID           string          `json:"id"`
	Owner        string          `json:"owner"`
	DealName     string          `json:"deal_name"`
	Stage        DealStage       `json:"stage"`
	Source       string          `json:"source"`
	Amount       float64         `json:"amount"`
	ClosingDate  string          `json:"closing_date,omitempty"`
	CreatedTime  *time.Time      `json:"created_time,omitempty"`
	ModifiedTime *time.Time      `json:"modified_time,omitempty"`
	RawData      json.RawMessage `json:"raw_data"`
}

type Contact struct {
	ID           string          `json:"id"`
	Owner        string          `json:"owner"`
	FullName     string          `json:"full_name"`
	Email        string          `json:"email"`
	CreatedTime  *time.Time      `json:"created_time,omitempty"`
	ModifiedTime *time.Time      `json:"modified_time,omitempty"`
	RawData      json.RawMessage `json:"raw_data"`
}

type Account struct {
	ID           string          `json:"id"`
	Owner        string          `json:"owner"`
	AccountName  string          `json:"account_name"`
	Industry     string          `json:"industry"`
	CreatedTime  *time.Time      `json:"created_time,omitempty"`
	ModifiedTime *time.Time      `json:"modified_time,omitempty"`
	RawData      json.RawMessage `json:"raw_data"`
}

// Sync log status constants.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncLogEntry is an append-only record of one sync run. Only success entries
// move the watermark.
type SyncLogEntry struct {
	ID             string    `json:"id"`
	SyncTime       time.Time `json:"sync_time"`
	RecordsFetched int       `json:"records_fetched"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
}

// ReportDateLayout is the calendar-day key for briefings.
const ReportDateLayout = "2006-01-02"

// Briefing is the long-form report stored once per calendar day.
type Briefing struct {
	ReportDate      string    `json:"report_date"`
	MarkdownContent string    `json:"markdown_content"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
