package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/kv"
	applog "expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/sheets/memory"
	"expensetracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	return &DefaultFactory{logger: applog.ForComponent(logger, applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		b   *Backend
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		b, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		b, err = f.createSheetsBackend(ctx, config)
	default:
		b = f.createMemoryBackend(config)
	}
	if err != nil {
		return nil, err
	}
	f.attachPublisher(b, config)
	return b, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Backend, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Backend{
		Type:     SQLiteBackend,
		Expenses: repo,
		Taxonomy: repo,
		Users:    repo,
		Drafts:   repo.Drafts(),
		ready:    repo.Ping,
		closers:  []func() error{repo.Close},
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Backend, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ExpensesSheet:      config.GoogleSheetName,
		TaxonomySheet:      config.GoogleTaxonomySheet,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return &Backend{
		Type:     SheetsBackend,
		Expenses: cli,
		Taxonomy: cli,
		Users:    repo,
		Drafts:   repo.Drafts(),
		ready:    repo.Ping,
		closers:  []func() error{repo.Close},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *Backend {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &Backend{
		Type:     MemoryBackend,
		Expenses: store,
		Taxonomy: store,
		Users:    store,
		Drafts:   kv.NewMemory(),
	}
}

// attachPublisher connects the optional broker. A broker that cannot be
// reached leaves the backend without event publishing.
func (f *DefaultFactory) attachPublisher(b *Backend, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	b.Publisher = client
	b.closers = append(b.closers, client.Close)
}
