package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
)

// Store keeps expenses and users in process memory.
type Store struct {
	mu       sync.Mutex
	cats     []string
	methods  []string
	items    []core.Expense
	users    []core.User
	now      func() time.Time
	nextExp  int64
	nextUser int64
}

func New(cats, methods []string) *Store {
	if len(cats) == 0 {
		cats = core.Categories()
	}
	if len(methods) == 0 {
		methods = core.PaymentMethods()
	}
	return &Store{cats: dedupe(cats), methods: dedupe(methods), now: time.Now}
}

// NewFromFiles seeds categories and payment methods from
// seed_categories.txt and seed_payment_methods.txt under base, falling back
// to the built-in lists for a missing or empty file.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	methods := readLines(filepath.Join(base, "seed_payment_methods.txt"))
	return New(cats, methods)
}

// Append stores the expense and returns its id as the row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExp++
	e.ID = s.nextExp
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.items = append(s.items, e)
	return fmt.Sprintf("%d", e.ID), nil
}

// ListExpenses returns the user's expenses, newest first.
func (s *Store) ListExpenses(_ context.Context, userID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	core.SortNewestFirst(out)
	return out, nil
}

// List returns categories and payment methods.
func (s *Store) List(_ context.Context) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats...), append([]string(nil), s.methods...), nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return 0, core.ErrUserExists
		}
	}
	s.nextUser++
	u.ID = s.nextUser
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims entries and drops blanks and repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
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
