// ABOUTME: Upsert and list operations for synced CRM records
// ABOUTME: Leads, deals, contacts and accounts keyed by CRM id, last write wins
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/keenanpereira/pulse/models"
)

const upsertLeadSQL = `
	INSERT INTO leads (id, owner, full_name, lead_source, lead_status, annual_revenue, created_time, modified_time, raw_data, synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner = excluded.owner,
		full_name = excluded.full_name,
		lead_source = excluded.lead_source,
		lead_status = excluded.lead_status,
		annual_revenue = excluded.annual_revenue,
		created_time = excluded.created_time,
		modified_time = excluded.modified_time,
		raw_data = excluded.raw_data,
		synced_at = excluded.synced_at
`

const upsertDealSQL = `
	INSERT INTO deals (id, owner, deal_name, stage, lead_source, amount, closing_date, created_time, modified_time, raw_data, synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner = excluded.owner,
		deal_name = excluded.deal_name,
		stage = excluded.stage,
		lead_source = excluded.lead_source,
		amount = excluded.amount,
		closing_date = excluded.closing_date,
		created_time = excluded.created_time,
		modified_time = excluded.modified_time,
		raw_data = excluded.raw_data,
		synced_at = excluded.synced_at
`

const upsertContactSQL = `
	INSERT INTO contacts (id, owner, full_name, email, created_time, modified_time, raw_data, synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner = excluded.owner,
		full_name = excluded.full_name,
		email = excluded.email,
		created_time = excluded.created_time,
		modified_time = excluded.modified_time,
		raw_data = excluded.raw_data,
		synced_at = excluded.synced_at
`

const upsertAccountSQL = `
	INSERT INTO accounts (id, owner, account_name, industry, created_time, modified_time, raw_data, synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner = excluded.owner,
		account_name = excluded.account_name,
		industry = excluded.industry,
		created_time = excluded.created_time,
		modified_time = excluded.modified_time,
		raw_data = excluded.raw_data,
		synced_at = excluded.synced_at
`

// upsertBatch writes all rows in a single transaction.
func (s *Store) upsertBatch(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.rebind(query))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to upsert record %v: %w", args[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func rawJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func (s *Store) UpsertLeads(ctx context.Context, leads []models.Lead) error {
	syncedAt := utc(s.now())
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []any{
			l.ID, l.Owner, l.FullName, l.Source, string(l.Status), l.AnnualRevenue,
			nullableTime(l.CreatedTime), nullableTime(l.ModifiedTime), rawJSON(l.RawData), syncedAt,
		})
	}
	if err := s.upsertBatch(ctx, upsertLeadSQL, rows); err != nil {
		return fmt.Errorf("failed to upsert leads: %w", err)
	}
	return nil
}

func (s *Store) UpsertDeals(ctx context.Context, deals []models.Deal) error {
	syncedAt := utc(s.now())
	rows := make([][]any, 0, len(deals))
	for _, d := range deals {
		var closing sql.NullString
		if d.ClosingDate != "" {
			closing = sql.NullString{String: d.ClosingDate, Valid: true}
		}
		rows = append(rows, []any{
			d.ID, d.Owner, d.DealName, string(d.Stage), d.Source, d.Amount, closing,
			nullableTime(d.CreatedTime), nullableTime(d.ModifiedTime), rawJSON(d.RawData), syncedAt,
		})
	}
	if err := s.upsertBatch(ctx, upsertDealSQL, rows); err != nil {
		return fmt.Errorf("failed to upsert deals: %w", err)
	}
	return nil
}

func (s *Store) UpsertContacts(ctx context.Context, contacts []models.Contact) error {
	syncedAt := utc(s.now())
	rows := make([][]any, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []any{
			c.ID, c.Owner, c.FullName, c.Email,
			nullableTime(c.CreatedTime), nullableTime(c.ModifiedTime), rawJSON(c.RawData), syncedAt,
		})
	}
	if err := s.upsertBatch(ctx, upsertContactSQL, rows); err != nil {
		return fmt.Errorf("failed to upsert contacts: %w", err)
	}
	return nil
}

func (s *Store) UpsertAccounts(ctx context.Context, accounts []models.Account) error {
	syncedAt := utc(s.now())
	rows := make([][]any, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []any{
			a.ID, a.Owner, a.AccountName, a.Industry,
			nullableTime(a.CreatedTime), nullableTime(a.ModifiedTime), rawJSON(a.RawData), syncedAt,
		})
	}
	if err := s.upsertBatch(ctx, upsertAccountSQL, rows); err != nil {
		return fmt.Errorf("failed to upsert accounts: %w", err)
	}
	return nil
}

// ListLeads returns every stored lead ordered by id.
func (s *Store) ListLeads(ctx context.Context) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, full_name, lead_source, lead_status, annual_revenue, created_time, modified_time, raw_data
		FROM leads
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		var status string
		var created, modified sql.NullTime
		var raw []byte
		if err := rows.Scan(&l.ID, &l.Owner, &l.FullName, &l.Source, &status, &l.AnnualRevenue, &created, &modified, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		l.Status = models.LeadStatus(status)
		l.CreatedTime = timePtr(created)
		l.ModifiedTime = timePtr(modified)
		l.RawData = json.RawMessage(raw)
		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}
	return leads, nil
}

// ListDeals returns every stored deal ordered by id.
func (s *Store) ListDeals(ctx context.Context) ([]models.Deal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, deal_name, stage, lead_source, amount, closing_date, created_time, modified_time, raw_data
		FROM deals
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deals []models.Deal
	for rows.Next() {
		var d models.Deal
		var stage string
		var closing sql.NullString
		var created, modified sql.NullTime
		var raw []byte
		if err := rows.Scan(&d.ID, &d.Owner, &d.DealName, &stage, &d.Source, &d.Amount, &closing, &created, &modified, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		d.Stage = models.DealStage(stage)
		d.ClosingDate = closing.String
		d.CreatedTime = timePtr(created)
		d.ModifiedTime = timePtr(modified)
		d.RawData = json.RawMessage(raw)
		deals = append(deals, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}
	return deals, nil
}

func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, full_name, email, created_time, modified_time, raw_data
		FROM contacts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		var created, modified sql.NullTime
		var raw []byte
		if err := rows.Scan(&c.ID, &c.Owner, &c.FullName, &c.Email, &created, &modified, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.CreatedTime = timePtr(created)
		c.ModifiedTime = timePtr(modified)
		c.RawData = json.RawMessage(raw)
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, account_name, industry, created_time, modified_time, raw_data
		FROM accounts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var created, modified sql.NullTime
		var raw []byte
		if err := rows.Scan(&a.ID, &a.Owner, &a.AccountName, &a.Industry, &created, &modified, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.CreatedTime = timePtr(created)
		a.ModifiedTime = timePtr(modified)
		a.RawData = json.RawMessage(raw)
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// CountRecords returns the number of stored rows for a module.
func (s *Store) CountRecords(ctx context.Context, module models.Module) (int, error) {
	table := module.Table()
	if table == "" {
		return 0, fmt.Errorf("unknown module %q", module)
	}

	var count int
	// table comes from a closed set, never from input
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
