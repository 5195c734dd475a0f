package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

// TaxonomyMaxAge is how long a synced taxonomy is trusted before the worker
// reads it from Google Sheets again.
const TaxonomyMaxAge = 24 * time.Hour

// TaxonomyStore caches the category and payment method lists locally.
type TaxonomyStore interface {
	SyncTaxonomy(ctx context.Context, categories, paymentMethods []string) error
}

// MirrorWorker copies submitted expenses into Google Sheets and keeps the
// local taxonomy in step with the spreadsheet.
type MirrorWorker struct {
	sheets   sheets.ExpenseWriter
	taxonomy sheets.TaxonomyReader
	store    TaxonomyStore
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewMirrorWorker(sheetsWriter sheets.ExpenseWriter, taxonomy sheets.TaxonomyReader, store TaxonomyStore, logger *slog.Logger) *MirrorWorker {
	return &MirrorWorker{
		sheets:   sheetsWriter,
		taxonomy: taxonomy,
		store:    store,
		logger:   applog.ForComponent(logger, applog.ComponentSheets),
		now:      time.Now,
	}
}

// HandleExpenseSubmitted appends the announced expense to the spreadsheet.
// Events raised by the sheets backend itself are already there.
func (w *MirrorWorker) HandleExpenseSubmitted(ctx context.Context, msg *amqp.ExpenseSubmittedMessage) error {
	if msg.Backend == "sheets" {
		w.logger.DebugContext(ctx, "Skipping event already written to sheets", applog.FieldExpenseID, msg.ID)
		return nil
	}
	e, err := msg.Expense()
	if err != nil {
		return fmt.Errorf("decode expense %d: %w", msg.ID, err)
	}
	ref, err := w.sheets.Append(ctx, e)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror expense",
			applog.FieldExpenseID, msg.ID,
			applog.FieldBackend, msg.Backend,
			applog.FieldError, err)
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.logger.InfoContext(ctx, "Mirrored expense",
		applog.FieldExpenseID, msg.ID,
		applog.FieldUserID, msg.UserID,
		"source_ref", msg.Ref,
		"sheet_ref", ref)
	return nil
}

// SyncTaxonomyIfNeeded refreshes the local taxonomy when it has never been
// synced by this worker or is older than TaxonomyMaxAge.
func (w *MirrorWorker) SyncTaxonomyIfNeeded(ctx context.Context) error {
	w.mu.Lock()
	last := w.lastSync
	w.mu.Unlock()

	if !last.IsZero() {
		if age := w.now().Sub(last); age <= TaxonomyMaxAge {
			w.logger.DebugContext(ctx, "Taxonomy cache is fresh", "age", age.Round(time.Minute))
			return nil
		}
	}
	return w.SyncTaxonomy(ctx)
}

// SyncTaxonomy copies categories and payment methods from the spreadsheet
// into the local store.
func (w *MirrorWorker) SyncTaxonomy(ctx context.Context) error {
	cats, methods, err := w.taxonomy.List(ctx)
	if err != nil {
		return fmt.Errorf("load taxonomy from Google Sheets: %w", err)
	}
	if err := w.store.SyncTaxonomy(ctx, cats, methods); err != nil {
		return fmt.Errorf("store taxonomy: %w", err)
	}
	w.mu.Lock()
	w.lastSync = w.now()
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "Taxonomy synced",
		"category_count", len(cats),
		"payment_method_count", len(methods))
	return nil
}
