package backend

import (
	"context"
	"errors"

	"expensetracker/internal/kv"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
)

// Backend bundles the stores the web app runs on.
type Backend struct {
	Type     BackendType
	Expenses services.ExpenseStore
	Taxonomy sheets.TaxonomyReader
	Users    sheets.UserStore
	Drafts   kv.Store
	// Publisher is nil when no broker is configured.
	Publisher services.Publisher

	ready   func(ctx context.Context) error
	closers []func() error
}

// Ready reports whether the backing stores are reachable.
func (b *Backend) Ready(ctx context.Context) error {
	if b.ready == nil {
		return nil
	}
	return b.ready(ctx)
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite holds expenses for the sqlite backend and users and drafts for
	// both persistent backends.
	SQLiteDBPath string

	// Optional broker for expense.submitted events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleTaxonomySheet      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Seed lists for the memory backend.
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
