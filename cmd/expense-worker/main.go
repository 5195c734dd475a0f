package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/storage"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.DataBackend == config.BackendMemory {
		logger.Error("The worker needs a persistent backend", applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	logger.Info("Starting expense worker", applog.FieldBackend, cfg.DataBackend, applog.FieldOperation, applog.OpStartup)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	g, gctx := errgroup.WithContext(ctx)

	janitor := worker.NewDraftJanitor(repo.Drafts(), cfg.DraftTTL, logger.Logger)
	g.Go(func() error {
		if err := janitor.PurgeExpired(gctx); err != nil {
			logger.Error("Initial draft purge failed", applog.FieldError, err)
		}
		return worker.RunPeriodic(gctx, cfg.PurgeInterval, "draft-purge", logger.Logger, janitor.PurgeExpired)
	})

	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	} else {
		sheetsClient, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ExpensesSheet:      cfg.GoogleSheetName,
			TaxonomySheet:      cfg.GoogleTaxonomySheet,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger.Logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror := worker.NewMirrorWorker(sheetsClient, sheetsClient, repo, logger.Logger)

		g.Go(func() error {
			if err := mirror.SyncTaxonomyIfNeeded(gctx); err != nil {
				logger.Error("Failed to sync taxonomy", applog.FieldError, err)
			}
			return worker.RunPeriodic(gctx, cfg.SyncInterval, "taxonomy-sync", logger.Logger, mirror.SyncTaxonomyIfNeeded)
		})

		if cfg.MirrorEnabled() && cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Logger)
			if err != nil {
				logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
				os.Exit(1)
			}
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeExpenseSubmitted(gctx, mirror.HandleExpenseSubmitted)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		} else {
			logger.Info("Skipping AMQP message consumption - mirroring not enabled")
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
