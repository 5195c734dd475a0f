// Package formguard keeps forms with invalid required fields from being
// submitted and renders the reason next to each offending field.
package formguard

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"expensetracker/internal/form"
	applog "expensetracker/internal/log"
)

const (
	MsgRequired = "This field is required"
	MsgEmail    = "Please enter a valid email address"
	MsgPassword = "Password must be at least 6 characters long"
	MsgNumber   = "Please enter a valid positive number"
	MsgAmount   = "Amount cannot exceed ₹10,00,000"

	MinPasswordLength = 6
	// AmountField names the field the amount ceiling applies to.
	AmountField   = "amount"
	AmountCeiling = 1_000_000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateField checks one field. The first failing rule wins, in this
// order: required, email, password length, non-negative number, amount
// ceiling. An empty optional field is always valid.
func ValidateField(f form.Field) form.ValidationResult {
	value := strings.TrimSpace(f.Value)
	if value == "" {
		if f.Required {
			return form.Invalid(MsgRequired)
		}
		return form.Valid()
	}

	switch f.Kind {
	case form.KindEmail:
		if !emailPattern.MatchString(value) {
			return form.Invalid(MsgEmail)
		}
	case form.KindPassword:
		if utf8.RuneCountInString(value) < MinPasswordLength {
			return form.Invalid(MsgPassword)
		}
	case form.KindNumber:
		n, ok := parseFinite(value)
		if !ok || n < 0 {
			return form.Invalid(MsgNumber)
		}
	}

	if f.Name == AmountField {
		n, ok := parseFinite(value)
		if !ok {
			return form.Invalid(MsgNumber)
		}
		if n > AmountCeiling {
			return form.Invalid(MsgAmount)
		}
	}
	return form.Valid()
}

func parseFinite(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Guard wires validation into a form's events.
type Guard struct {
	logger *slog.Logger
}

// New returns a Guard. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Guard {
	return &Guard{logger: applog.ForComponent(logger, applog.ComponentForm)}
}

// Attach validates each required field on blur, clears its stale error on
// input without re-validating, and vetoes submission while any required
// field is invalid.
func (g *Guard) Attach(s form.Surface) {
	for _, f := range s.Fields() {
		if !f.Required {
			continue
		}
		name := f.Name
		s.OnBlur(name, func() { g.check(s, name) })
		s.OnInput(name, func() { s.MarkValidity(name, form.Valid()) })
	}
	s.OnSubmit(func() bool { return g.guardSubmit(s) })
}

// ValidateForm validates every required field, rendering or clearing each
// one's error, and reports whether all of them passed.
func (g *Guard) ValidateForm(s form.Surface) bool {
	ok, _ := g.validateAll(s)
	return ok
}

func (g *Guard) guardSubmit(s form.Surface) bool {
	ok, first := g.validateAll(s)
	if ok {
		return true
	}
	s.Focus(first)
	g.logger.Debug("Submission blocked by validation", applog.FieldFormID, s.ID(), applog.FieldField, first)
	return false
}

func (g *Guard) validateAll(s form.Surface) (bool, string) {
	ok, first := true, ""
	for _, f := range s.Fields() {
		if !f.Required {
			continue
		}
		res := ValidateField(f)
		s.MarkValidity(f.Name, res)
		if !res.Valid {
			if ok {
				first = f.Name
			}
			ok = false
		}
	}
	return ok, first
}

func (g *Guard) check(s form.Surface, name string) form.ValidationResult {
	f, found := s.Field(name)
	if !found {
		return form.Valid()
	}
	res := ValidateField(f)
	s.MarkValidity(name, res)
	return res
}
