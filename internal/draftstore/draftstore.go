// Package draftstore keeps the in-progress values of auto-save forms in a
// key-value store so that a reload or an accidental navigation does not
// lose them.
//
// Drafts are stored under "form-data-<form id>" as a JSON object of field
// name to value. Saves are debounced per form id: only the last input of a
// burst is written, once the form has been quiet for the quiescence window.
package draftstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"expensetracker/internal/form"
	"expensetracker/internal/kv"
	applog "expensetracker/internal/log"
)

const (
	KeyPrefix = "form-data-"
	// FallbackID identifies every auto-save form that declares no id. Two
	// such forms share one draft.
	FallbackID = "default-form"

	DefaultQuiescence = time.Second
	// IndicatorDuration is how long the "Draft saved" indicator stays up.
	IndicatorDuration = 2 * time.Second

	defaultOpTimeout = 5 * time.Second
)

// Store saves, restores and discards drafts.
type Store struct {
	kv         kv.Store
	quiescence time.Duration
	sched      form.Scheduler
	now        func() time.Time
	logger     *slog.Logger
	opTimeout  time.Duration

	mu      sync.Mutex
	gen     uint64
	pending map[string]*pendingSave
	savedAt map[string]time.Time
}

type pendingSave struct {
	timer form.Timer
	gen   uint64
}

type Option func(*Store)

// WithQuiescence sets the debounce window. Non-positive values are ignored.
func WithQuiescence(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.quiescence = d
		}
	}
}

func WithScheduler(sched form.Scheduler) Option {
	return func(s *Store) { s.sched = sched }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a Store persisting into store.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:         store,
		quiescence: DefaultQuiescence,
		sched:      form.RealScheduler{},
		now:        time.Now,
		opTimeout:  defaultOpTimeout,
		pending:    make(map[string]*pendingSave),
		savedAt:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = applog.ForComponent(s.logger, applog.ComponentDraft)
	return s
}

// FormID is the draft identity of a form: its declared id or FallbackID.
func FormID(s form.Surface) string {
	if id := s.ID(); id != "" {
		return id
	}
	return FallbackID
}

// Key is the storage key of the draft for form id.
func Key(id string) string { return KeyPrefix + id }

// Attach restores the saved draft into an auto-save form and binds it. It
// reports the draft id and false for forms that did not opt in.
func (st *Store) Attach(ctx context.Context, s form.Surface) (string, bool) {
	if !s.AutoSave() {
		return "", false
	}
	id := FormID(s)
	st.Restore(ctx, s, id)
	st.Bind(s, id)
	return id, true
}

// Bind wires the save and discard handlers without restoring. The HTTP host
// uses it for forms rebuilt from posted values, where a restore would bring
// back values the user has since cleared.
func (st *Store) Bind(s form.Surface, id string) {
	s.OnAnyInput(func() { st.ScheduleSave(s, id) })
	s.OnSubmitted(func() {
		ctx, cancel := st.opContext()
		defer cancel()
		if err := st.Discard(ctx, id); err != nil {
			st.logger.Warn("Failed to discard draft", applog.FieldFormID, id, applog.FieldError, err)
		}
	})
}

// Restore fills empty fields of s from the draft saved for id and returns
// how many it filled. A missing, unreadable or corrupt draft restores
// nothing.
func (st *Store) Restore(ctx context.Context, s form.Surface, id string) int {
	key := Key(id)
	raw, ok, err := st.kv.Get(ctx, key)
	if err != nil {
		st.logger.Warn("Failed to read draft", applog.FieldDraftKey, key, applog.FieldError, err)
		return 0
	}
	if !ok {
		return 0
	}
	var snap form.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		st.logger.Warn("Ignoring corrupt draft", applog.FieldDraftKey, key, applog.FieldError, err)
		return 0
	}

	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	filled := 0
	for _, name := range names {
		value := snap[name]
		if value == "" {
			continue
		}
		f, ok := s.Field(name)
		if !ok || f.Value != "" {
			continue
		}
		if s.SetValue(name, value) {
			filled++
		}
	}
	if filled > 0 {
		st.logger.Debug("Draft restored", applog.FieldFormID, id, "fields", filled)
	}
	return filled
}

// ScheduleSave arms the save timer for id, replacing any pending one. When
// it fires, s is snapshotted as it is at that moment and written.
func (st *Store) ScheduleSave(s form.Surface, id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p, ok := st.pending[id]; ok {
		p.timer.Stop()
	}
	st.gen++
	gen := st.gen
	st.pending[id] = &pendingSave{
		timer: st.sched.AfterFunc(st.quiescence, func() { st.fire(s, id, gen) }),
		gen:   gen,
	}
}

func (st *Store) fire(s form.Surface, id string, gen uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	// A timer that lost the race with Stop finds a newer generation.
	if p, ok := st.pending[id]; !ok || p.gen != gen {
		return
	}
	delete(st.pending, id)

	ctx, cancel := st.opContext()
	defer cancel()
	if err := st.write(ctx, id, Snapshot(s)); err != nil {
		st.logger.Warn("Failed to save draft", applog.FieldFormID, id, applog.FieldError, err)
		return
	}
	st.savedAt[id] = st.now()
	st.logger.Debug("Draft saved", applog.FieldFormID, id)
}

func (st *Store) write(ctx context.Context, id string, snap form.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := st.kv.Set(ctx, Key(id), string(b)); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

// Snapshot returns the non-empty field values of s.
func Snapshot(s form.Surface) form.Snapshot {
	snap := make(form.Snapshot)
	for _, f := range s.Fields() {
		if f.Value != "" {
			snap[f.Name] = f.Value
		}
	}
	return snap
}

// Discard cancels any pending save for id and removes its draft.
func (st *Store) Discard(ctx context.Context, id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if p, ok := st.pending[id]; ok {
		p.timer.Stop()
		delete(st.pending, id)
	}
	delete(st.savedAt, id)
	if err := st.kv.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	st.logger.Debug("Draft discarded", applog.FieldFormID, id)
	return nil
}

// Pending reports whether a save is armed for id.
func (st *Store) Pending(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.pending[id]
	return ok
}

// HasPending reports whether any save is armed.
func (st *Store) HasPending() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending) > 0
}

// SavedAt returns when the draft for id was last written by this store.
func (st *Store) SavedAt(id string) (time.Time, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	t, ok := st.savedAt[id]
	return t, ok
}

// SavedRecently reports whether the "Draft saved" indicator should show.
func (st *Store) SavedRecently(id string) bool {
	t, ok := st.SavedAt(id)
	return ok && st.now().Sub(t) < IndicatorDuration
}

func (st *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), st.opTimeout)
}
