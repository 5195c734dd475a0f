package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
)

// Publisher announces accepted expenses to downstream consumers.
type Publisher interface {
	PublishExpenseSubmitted(ctx context.Context, msg *amqp.ExpenseSubmittedMessage) error
}

// ExpenseStore is the backend the service writes to and lists from.
type ExpenseStore interface {
	sheets.ExpenseWriter
	sheets.ExpenseLister
}

const (
	listCacheSize = 256
	listCacheTTL  = 2 * time.Minute
)

// ExpenseService hands accepted submissions to the backend, announces them
// and serves per-user listings.
type ExpenseService struct {
	store     ExpenseStore
	publisher Publisher
	backend   string
	logger    *slog.Logger
	lists     *cache.LRU[int64, []core.Expense]
	now       func() time.Time
}

// NewExpenseService builds the service. publisher may be nil, in which case
// nothing is announced.
func NewExpenseService(store ExpenseStore, publisher Publisher, backend string, logger *slog.Logger) *ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		backend:   backend,
		logger:    applog.ForComponent(logger, applog.ComponentExpense),
		lists:     cache.NewLRU[int64, []core.Expense](listCacheSize, listCacheTTL),
		now:       time.Now,
	}
}

// ListCache exposes the listing cache so it can be registered for cleanup.
func (s *ExpenseService) ListCache() cache.Cleaner { return s.lists }

// ExpenseFromForm converts submitted form values into an expense owned by
// userID. Amounts accept "1,234.50" style grouping.
func ExpenseFromForm(userID int64, values map[string]string) (core.Expense, error) {
	amount := strings.ReplaceAll(strings.TrimSpace(values["amount"]), ",", "")
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.Expense{}, core.ErrInvalidAmount
	}
	e := core.Expense{
		UserID:        userID,
		Time:          strings.TrimSpace(values["time"]),
		Amount:        core.Money{Cents: cents},
		Subject:       strings.TrimSpace(values["subject"]),
		Description:   strings.TrimSpace(values["description"]),
		Category:      strings.TrimSpace(values["category"]),
		PaymentMethod: strings.TrimSpace(values["payment_method"]),
	}
	if d := strings.TrimSpace(values["date"]); d != "" {
		if e.Date, err = core.ParseDate(d); err != nil {
			return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, d)
		}
	}
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// CreateExpense writes e to the backend and then publishes it. A publish
// failure is logged and does not fail the call.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	ref, err := s.store.Append(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		e.ID = id
	}
	s.lists.Delete(e.UserID)

	s.logger.InfoContext(ctx, "Expense created",
		applog.FieldExpenseID, e.ID,
		applog.FieldUserID, e.UserID,
		applog.FieldAmount, e.Amount.Cents,
		applog.FieldCategory, e.Category,
		applog.FieldBackend, s.backend,
		"ref", ref)

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseSubmitted(ctx, amqp.NewExpenseSubmittedMessage(e, ref, s.backend)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish expense submitted message",
				applog.FieldExpenseID, e.ID,
				applog.FieldError, err,
				"circuit_open", errors.Is(err, amqp.ErrCircuitOpen))
		}
	}
	return e, nil
}

// ListExpenses returns the user's expenses selected and ordered by f.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64, f ListFilter) ([]core.Expense, error) {
	all, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.Apply(all, s.now()), nil
}

// Summary aggregates the user's expenses for the summary API.
func (s *ExpenseService) Summary(ctx context.Context, userID int64) (Summary, error) {
	all, err := s.all(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(all, s.now()), nil
}

// all returns the cached listing, newest first. Callers must not modify it.
func (s *ExpenseService) all(ctx context.Context, userID int64) ([]core.Expense, error) {
	if items, ok := s.lists.Get(userID); ok {
		return items, nil
	}
	items, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	s.lists.Set(userID, items)
	return items, nil
}

// Dashboard is the data of the signed-in landing page.
type Dashboard struct {
	Month  core.MonthSummary
	Recent []core.Expense
	// Count is the number of expenses ever recorded by the user.
	Count int
}

// Dashboard summarises the current month and lists the latest expenses.
func (s *ExpenseService) Dashboard(ctx context.Context, userID int64, recent int) (Dashboard, error) {
	all, err := s.all(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	now := s.now()
	d := Dashboard{
		Month: core.Summarize(all, now.Year(), int(now.Month())),
		Count: len(all),
	}
	if recent > len(all) {
		recent = len(all)
	}
	d.Recent = append([]core.Expense(nil), all[:recent]...)
	return d, nil
}

// Close releases the publisher when it holds a connection.
func (s *ExpenseService) Close() error {
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
