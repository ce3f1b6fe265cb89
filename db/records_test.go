// ABOUTME: Tests for CRM record upserts and listings
// ABOUTME: Covers idempotence, last-write-wins and null handling
package db

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/keenanpereira/pulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertLeadsIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	leads := []models.Lead{
		{ID: "L1", Owner: "Asha", FullName: "Ravi K", Source: "Web", Status: "New Lead", AnnualRevenue: 1200, CreatedTime: &created, RawData: json.RawMessage(`{"id":"L1"}`)},
		{ID: "L2", Owner: models.OwnerUnassigned, FullName: "Meera", Source: "Referral", Status: "Junk Lead"},
	}

	require.NoError(t, store.UpsertLeads(ctx, leads))
	require.NoError(t, store.UpsertLeads(ctx, leads))

	got, err := store.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "L1", got[0].ID)
	assert.Equal(t, models.LeadStatus("New Lead"), got[0].Status)
	assert.InDelta(t, 1200, got[0].AnnualRevenue, 0.001)
	require.NotNil(t, got[0].CreatedTime)
	assert.True(t, created.Equal(*got[0].CreatedTime))
	assert.JSONEq(t, `{"id":"L1"}`, string(got[0].RawData))

	assert.Nil(t, got[1].CreatedTime)
	assert.JSONEq(t, `{}`, string(got[1].RawData))

	count, err := store.CountRecords(ctx, models.ModuleLeads)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertLeadsLastWriteWins(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertLeads(ctx, []models.Lead{{ID: "L1", Owner: "Asha", Status: "New Lead"}}))
	require.NoError(t, store.UpsertLeads(ctx, []models.Lead{{ID: "L1", Owner: "Vikram", Status: "Contacted"}}))

	got, err := store.ListLeads(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Vikram", got[0].Owner)
	assert.Equal(t, models.LeadStatus("Contacted"), got[0].Status)
}

func TestUpsertDeals(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	deals := []models.Deal{
		{ID: "D1", Owner: "Asha", DealName: "Acme renewal", Stage: "Negotiation", Source: "Web", Amount: 250000, ClosingDate: "2026-04-30"},
		{ID: "D2", Owner: "Vikram", DealName: "Globex", Stage: models.DealStageClosedLost, Source: "Partner", Amount: 90000},
	}
	require.NoError(t, store.UpsertDeals(ctx, deals))

	got, err := store.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-04-30", got[0].ClosingDate)
	assert.Equal(t, "", got[1].ClosingDate)
	assert.Equal(t, models.DealStageClosedLost, got[1].Stage)
}

func TestUpsertContactsAndAccounts(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertContacts(ctx, []models.Contact{{ID: "C1", Owner: "Asha", FullName: "Dev", Email: "dev@example.com"}}))
	require.NoError(t, store.UpsertAccounts(ctx, []models.Account{{ID: "A1", Owner: "Asha", AccountName: "Acme", Industry: "Retail"}}))

	contacts, err := store.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "dev@example.com", contacts[0].Email)

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Retail", accounts[0].Industry)
}

func TestUpsertEmptyBatch(t *testing.T) {
	store := setupTestDB(t)
	assert.NoError(t, store.UpsertLeads(context.Background(), nil))
}

func TestCountRecordsUnknownModule(t *testing.T) {
	store := setupTestDB(t)
	_, err := store.CountRecords(context.Background(), models.Module("Tasks"))
	assert.Error(t, err)
}
