package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/kv"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// connPragmas apply to every pooled connection.
var connPragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
}

var (
	_ sheets.ExpenseWriter  = (*SQLiteRepository)(nil)
	_ sheets.ExpenseLister  = (*SQLiteRepository)(nil)
	_ sheets.TaxonomyReader = (*SQLiteRepository)(nil)
	_ sheets.UserStore      = (*SQLiteRepository)(nil)
	_ kv.Store              = (*DraftKV)(nil)
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("sqlite db path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	db, err := sql.Open("sqlite", dbPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteRepository{
		db:     db,
		logger: applog.ForComponent(logger, applog.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements sheets.ExpenseWriter.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (string, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, amount_cents, subject, description, category, payment_method, date, time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Subject, e.Description, e.Category, e.PaymentMethod,
		e.Date.String(), e.Time, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		applog.FieldExpenseID, id,
		applog.FieldUserID, e.UserID,
		applog.FieldAmount, e.Amount.Cents,
		applog.FieldCategory, e.Category)
	return strconv.FormatInt(id, 10), nil
}

// ListExpenses implements sheets.ExpenseLister.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, subject, description, category, payment_method, date, time, created_at
		FROM expenses
		WHERE user_id = ?
		ORDER BY date DESC, time DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e               core.Expense
			date, createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Subject, &e.Description,
			&e.Category, &e.PaymentMethod, &date, &e.Time, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %d: bad date %q: %w", e.ID, date, err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// List implements sheets.TaxonomyReader.
func (r *SQLiteRepository) List(ctx context.Context) ([]string, []string, error) {
	cats, err := r.taxonomy(ctx, "category")
	if err != nil {
		return nil, nil, err
	}
	methods, err := r.taxonomy(ctx, "payment_method")
	if err != nil {
		return nil, nil, err
	}
	return cats, methods, nil
}

func (r *SQLiteRepository) taxonomy(ctx context.Context, kind string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM taxonomy WHERE kind = ? ORDER BY position, name`, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// SyncTaxonomy replaces the stored categories and payment methods. A nil
// list leaves that kind untouched.
func (r *SQLiteRepository) SyncTaxonomy(ctx context.Context, categories, paymentMethods []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for kind, names := range map[string][]string{"category": categories, "payment_method": paymentMethods} {
		if names == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM taxonomy WHERE kind = ?`, kind); err != nil {
			return fmt.Errorf("clear %s: %w", kind, err)
		}
		for i, name := range names {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO taxonomy (kind, name, position) VALUES (?, ?, ?)`,
				kind, name, i+1); err != nil {
				return fmt.Errorf("insert %s %q: %w", kind, name, err)
			}
		}
	}
	return tx.Commit()
}

// CreateUser implements sheets.UserStore.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrUserExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.user(ctx, `WHERE username = ?`, username)
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	return r.user(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepository) user(ctx context.Context, where string, arg any) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return u, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Drafts returns the key-value store backed by the drafts table.
func (r *SQLiteRepository) Drafts() *DraftKV {
	return &DraftKV{db: r.db, now: r.now}
}

// DraftKV is a kv.Store over the drafts table.
type DraftKV struct {
	db  *sql.DB
	now func() time.Time
}

func (d *DraftKV) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, kv.ErrEmptyKey
	}
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM drafts WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get draft %q: %w", key, err)
	}
	return v, true, nil
}

func (d *DraftKV) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return kv.ErrEmptyKey
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, d.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("set draft %q: %w", key, err)
	}
	return nil
}

func (d *DraftKV) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kv.ErrEmptyKey
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete draft %q: %w", key, err)
	}
	return nil
}

// PurgeBefore deletes drafts last written before cutoff and returns how many
// were removed.
func (d *DraftKV) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge drafts: %w", err)
	}
	return res.RowsAffected()
}
