package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	ports "expensetracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// ExpensesSheet is the tab expenses are appended to (default "Expenses").
	ExpensesSheet string
	// TaxonomySheet holds categories in column A and payment methods in
	// column B, below a header row (default "Taxonomy").
	TaxonomySheet string

	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	taxonomySheet string
	logger        *slog.Logger
	now           func() time.Time

	// appendMu serialises id allocation for appended rows.
	appendMu sync.Mutex
}

var (
	_ ports.ExpenseWriter  = (*Client)(nil)
	_ ports.ExpenseLister  = (*Client)(nil)
	_ ports.TaxonomyReader = (*Client)(nil)
)

var errNoService = errors.New("sheets service not initialized")

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = applog.ForComponent(logger, applog.ComponentSheets)

	creds, err := serviceAccountCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"credentials_size", len(creds))
	return newClient(svc, cfg, logger), nil
}

func newClient(svc *gsheet.Service, cfg Config, logger *slog.Logger) *Client {
	expenses := strings.TrimSpace(cfg.ExpensesSheet)
	if expenses == "" {
		expenses = "Expenses"
	}
	taxonomy := strings.TrimSpace(cfg.TaxonomySheet)
	if taxonomy == "" {
		taxonomy = "Taxonomy"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		expensesSheet: expenses,
		taxonomySheet: taxonomy,
		logger:        logger,
		now:           time.Now,
	}
}

// serviceAccountCredentials picks inline JSON over a file path, falling back
// to GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling returns an HTTP client with connection pooling
// and bounded timeouts for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Append writes the expense on the first empty row of the expenses sheet and
// returns the written range. The expense id is the data row number.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errNoService
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.expensesSheet, err)
	}
	nextRow := len(resp.Values) + 1
	if nextRow == 1 {
		// Empty sheet: write the header first.
		if err := c.writeRow(ctx, 1, headerRow()); err != nil {
			return "", err
		}
		nextRow = 2
	}
	e.ID = int64(nextRow - 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}
	if err := c.writeRow(ctx, nextRow, expenseRow(e)); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s!A%d:%s%d", c.expensesSheet, nextRow, lastColumn, nextRow)
	c.logger.DebugContext(ctx, "Expense row written",
		applog.FieldExpenseID, e.ID,
		"range", ref)
	return ref, nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.expensesSheet, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// ListExpenses scans the expenses sheet for the user's rows, newest first.
func (c *Client) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	if c.svc == nil {
		return nil, errNoService
	}
	rng := fmt.Sprintf("%s!A:%s", c.expensesSheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out, skipped, err := parseExpenseRows(resp.Values, userID)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped unreadable expense rows",
			applog.FieldUserID, userID,
			"skipped", skipped)
	}
	core.SortNewestFirst(out)
	return out, nil
}

// List reads categories (column A) and payment methods (column B) from the
// taxonomy sheet. An empty column falls back to the built-in list.
func (c *Client) List(ctx context.Context) ([]string, []string, error) {
	if c.svc == nil {
		return nil, nil, errNoService
	}
	cats, err := c.readCol(ctx, c.taxonomySheet, "A2:A")
	if err != nil {
		return nil, nil, fmt.Errorf("read categories: %w", err)
	}
	methods, err := c.readCol(ctx, c.taxonomySheet, "B2:B")
	if err != nil {
		return nil, nil, fmt.Errorf("read payment methods: %w", err)
	}
	if len(cats) == 0 {
		cats = core.Categories()
	}
	if len(methods) == 0 {
		methods = core.PaymentMethods()
	}
	return cats, methods, nil
}

func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return columnValues(resp.Values), nil
}

// columnValues takes the first cell of each row, dropping blanks, "#"
// comments and repeats.
func columnValues(rows [][]any) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func expenseRow(e core.Expense) []any {
	return []any{
		strconv.FormatInt(e.ID, 10),
		strconv.FormatInt(e.UserID, 10),
		e.Date.String(),
		e.Time,
		e.Subject,
		e.Description,
		e.Category,
		e.PaymentMethod,
		e.Amount.Decimal(),
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
