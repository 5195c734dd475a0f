package backend

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
)

func quietFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:         "sheets",
		SQLiteDBPath:        "/tmp/x.db",
		GoogleSpreadsheetID: "sheet-id",
		GoogleSheetName:     "Expenses",
		GoogleTaxonomySheet: "Taxonomy",
	}
	got, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Type:                SheetsBackend,
		SQLiteDBPath:        "/tmp/x.db",
		GoogleSpreadsheetID: "sheet-id",
		GoogleSheetName:     "Expenses",
		GoogleTaxonomySheet: "Taxonomy",
		DataDirectory:       "data",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without spreadsheet", Config{Type: SheetsBackend, SQLiteDBPath: "x.db"}, true},
		{"sheets without sqlite", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("Rent\nFuel\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	b, err := quietFactory().CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	cats, methods, err := b.Taxonomy.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Rent", "Fuel"}, cats); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}
	if len(methods) == 0 {
		t.Error("payment methods should fall back to the built-in list")
	}
	if b.Publisher != nil {
		t.Error("publisher should be nil without AMQP_URL")
	}
	if err := b.Ready(ctx); err != nil {
		t.Errorf("Ready() = %v", err)
	}
	if err := b.Drafts.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.db")
	b, err := quietFactory().CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Ready(ctx); err != nil {
		t.Fatalf("Ready() = %v", err)
	}
	id, err := b.Users.CreateUser(ctx, core.User{Username: "asha", Email: "a@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Expenses.Append(ctx, core.Expense{
		UserID: id, Date: core.NewDate(2024, 9, 24), Time: "10:00",
		Amount: core.Money{Cents: 500}, Subject: "Tea",
	}); err != nil {
		t.Fatal(err)
	}
	if err := b.Drafts.Set(ctx, "draft_expense-form", `{"subject":"Tea"}`); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := quietFactory().CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	items, err := reopened.Expenses.ListExpenses(ctx, id)
	if err != nil || len(items) != 1 {
		t.Fatalf("expenses after reopen = %v, %v", items, err)
	}
	if v, ok, err := reopened.Drafts.Get(ctx, "draft_expense-form"); err != nil || !ok || v != `{"subject":"Tea"}` {
		t.Fatalf("draft after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestUnreachableBrokerLeavesPublisherNil(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	b, err := quietFactory().CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		DataDirectory: t.TempDir(),
		AMQPURL:       "amqp://guest:guest@" + addr + "/",
		AMQPExchange:  "expenses",
		AMQPQueue:     "expense_mirror",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if b.Publisher != nil {
		t.Fatal("publisher set for unreachable broker")
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := quietFactory().CreateBackend(context.Background(), Config{Type: SheetsBackend}); err == nil {
		t.Fatal("expected validation error")
	}
}
