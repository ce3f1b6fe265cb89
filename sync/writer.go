// ABOUTME: Upsert writer that normalizes fetched records and stores them by id
// ABOUTME: Records without an id are skipped; each module batch is one transaction
package sync

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/crm"
	"github.com/keenanpereira/pulse/models"
)

// RecordStore persists typed CRM rows.
type RecordStore interface {
	UpsertLeads(ctx context.Context, leads []models.Lead) error
	UpsertDeals(ctx context.Context, deals []models.Deal) error
	UpsertContacts(ctx context.Context, contacts []models.Contact) error
	UpsertAccounts(ctx context.Context, accounts []models.Account) error
}

type Writer struct {
	store  RecordStore
	logger *log.Logger
}

func NewWriter(store RecordStore, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Writer{store: store, logger: logger}
}

// Upsert writes records for module and returns how many were stored.
func (w *Writer) Upsert(ctx context.Context, module models.Module, records []crm.Record) (int, error) {
	var (
		written int
		err     error
	)

	switch module {
	case models.ModuleLeads:
		rows := collect(records, NormalizeLead)
		written, err = len(rows), w.store.UpsertLeads(ctx, rows)
	case models.ModuleDeals:
		rows := collect(records, NormalizeDeal)
		written, err = len(rows), w.store.UpsertDeals(ctx, rows)
	case models.ModuleContacts:
		rows := collect(records, NormalizeContact)
		written, err = len(rows), w.store.UpsertContacts(ctx, rows)
	case models.ModuleAccounts:
		rows := collect(records, NormalizeAccount)
		written, err = len(rows), w.store.UpsertAccounts(ctx, rows)
	default:
		return 0, fmt.Errorf("unknown module %q", module)
	}
	if err != nil {
		return 0, err
	}

	if skipped := len(records) - written; skipped > 0 {
		w.logger.Warn("skipped records without id", "module", module, "count", skipped)
	}
	w.logger.Info("upserted records", "module", module, "count", written)
	return written, nil
}

func collect[T any](records []crm.Record, normalize func(crm.Record) (T, bool)) []T {
	rows := make([]T, 0, len(records))
	for _, r := range records {
		if row, ok := normalize(r); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
