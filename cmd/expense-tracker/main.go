package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/auth"
	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	"expensetracker/internal/forms"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	appweb "expensetracker/web"
)

const (
	cacheCleanupInterval = time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	b, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	cats, methods, err := b.Taxonomy.List(ctx)
	if err != nil {
		logger.Warn("Failed to load taxonomy, forms will offer no choices", applog.FieldError, err)
	}
	formsFS, err := fs.Sub(appweb.FormsFS, "forms")
	if err != nil {
		logger.Error("Failed to mount form definitions", applog.FieldError, err)
		os.Exit(1)
	}
	registry, err := forms.Load(formsFS, forms.Lists{"categories": cats, "payment_methods": methods})
	if err != nil {
		logger.Error("Failed to load form definitions", applog.FieldError, err)
		os.Exit(1)
	}

	expenses := services.NewExpenseService(b.Expenses, b.Publisher, b.Type.String(), logger.Logger)
	caches := cache.NewManager(applog.ForComponent(logger.Logger, applog.ComponentCache))
	caches.Register(expenses.ListCache())

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		Logger:        logger,
		Expenses:      expenses,
		Auth:          auth.NewService(b.Users, []byte(cfg.AuthSecret), cfg.AuthTokenTTL, logger.Logger),
		Forms:         registry,
		Taxonomy:      b.Taxonomy,
		Drafts:        b.Drafts,
		DraftDebounce: cfg.DraftDebounce,
		Ready:         b,
		Caches:        caches,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return caches.Run(gctx, cacheCleanupInterval)
	})
	g.Go(func() error {
		logger.Info("Starting expense tracker",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend,
			"forms", registry.Keys(),
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
