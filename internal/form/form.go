// Package form defines the capabilities the form guard and the draft store
// need from a rendered form: enumerating fields, reading and writing values,
// marking validity, moving focus, reacting to events and scheduling work.
//
// Page is the in-memory implementation used by the HTTP host and by tests.
package form

import (
	"strings"
	"time"
)

// Kind classifies an input the way the validation rules care about.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindPassword Kind = "password"
	KindNumber   Kind = "number"
	KindOther    Kind = "other"
)

// KindFromType maps an HTML input type to a Kind.
func KindFromType(inputType string) Kind {
	switch strings.ToLower(strings.TrimSpace(inputType)) {
	case "", "text", "search", "tel", "url":
		return KindText
	case "email":
		return KindEmail
	case "password":
		return KindPassword
	case "number":
		return KindNumber
	default:
		return KindOther
	}
}

// Field is a named input within one form.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Value    string
}

// ValidationResult is the outcome of checking one field.
type ValidationResult struct {
	Valid   bool
	Message string
}

// Valid returns a passing result.
func Valid() ValidationResult { return ValidationResult{Valid: true} }

// Invalid returns a failing result carrying msg.
func Invalid(msg string) ValidationResult { return ValidationResult{Message: msg} }

// Snapshot maps field names to their current values for one form.
type Snapshot map[string]string

// Surface is what a rendered form exposes to the guard and the draft store.
//
// Handlers registered through the On* methods run synchronously, in
// registration order, on the goroutine that dispatches the event.
type Surface interface {
	// ID is the form's declared identifier; it may be empty.
	ID() string
	// AutoSave reports whether the form opted in to draft saving.
	AutoSave() bool

	Fields() []Field
	Field(name string) (Field, bool)
	SetValue(name, value string) bool

	// MarkValidity renders (or clears, when res.Valid) the inline error of a field.
	MarkValidity(name string, res ValidationResult)
	// Focus moves focus to a field and scrolls it into view.
	Focus(name string)

	OnBlur(name string, fn func())
	OnInput(name string, fn func())
	// OnAnyInput fires after the field-level input handlers of any field.
	OnAnyInput(fn func())
	// OnSubmit registers a guard; returning false vetoes the submission.
	OnSubmit(fn func() bool)
	// OnSubmitted runs only when no guard vetoed the submission.
	OnSubmitted(fn func())
}

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false when the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler schedules on the wall clock.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
