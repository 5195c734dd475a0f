package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxAmountCents is the highest amount a single expense may carry (10,00,000.00).
	MaxAmountCents int64 = 1_000_000 * 100

	MaxSubjectLength     = 100
	MaxDescriptionLength = 500

	DefaultCategory      = "Other"
	DefaultPaymentMethod = "Cash"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID            int64
		UserID        int64
		Date          Date
		Time          string // HH:MM, 24h
		Amount        Money
		Subject       string
		Description   string
		Category      string
		PaymentMethod string
		CreatedAt     time.Time
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountTooLarge     = errors.New("amount cannot exceed ₹10,00,000")
	ErrEmptySubject       = errors.New("subject is required")
	ErrSubjectTooLong     = errors.New("subject cannot exceed 100 characters")
	ErrDescriptionTooLong = errors.New("description cannot exceed 500 characters")
	ErrMissingDate        = errors.New("expense date is required")
	ErrInvalidDate        = errors.New("expense date must be YYYY-MM-DD")
	ErrMissingTime        = errors.New("expense time is required")
	ErrInvalidTime        = errors.New("expense time must be HH:MM")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already registered")
)

var categories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Bills & Utilities",
	"Entertainment",
	"Healthcare",
	"Education",
	"Travel",
	"Groceries",
	"Gas",
	"Other",
}

var paymentMethods = []string{"Cash", "Card", "UPI", "Net Banking", "Wallet"}

// Categories returns the fixed list of expense categories.
func Categories() []string {
	return append([]string(nil), categories...)
}

// PaymentMethods returns the accepted payment methods.
func PaymentMethods() []string {
	return append([]string(nil), paymentMethods...)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// Validate applies the server-side expense rules. It is stricter than the
// form rules: the amount must be strictly positive here.
func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Subject) == "" {
		return ErrEmptySubject
	}
	if utf8.RuneCountInString(e.Subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if strings.TrimSpace(e.Time) == "" {
		return ErrMissingTime
	}
	if _, err := time.Parse("15:04", e.Time); err != nil {
		return ErrInvalidTime
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// Normalize fills optional fields with their defaults.
func (e *Expense) Normalize() {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = DefaultCategory
	}
	if strings.TrimSpace(e.PaymentMethod) == "" {
		e.PaymentMethod = DefaultPaymentMethod
	}
}
