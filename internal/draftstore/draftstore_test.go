package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"expensetracker/internal/form"
	"expensetracker/internal/form/formtest"
	"expensetracker/internal/kv"
)

// countingKV records every write on top of an in-memory store.
type countingKV struct {
	*kv.Memory
	mu     sync.Mutex
	sets   []string
	getErr error
	setErr error
}

func newCountingKV() *countingKV { return &countingKV{Memory: kv.NewMemory()} }

func (c *countingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	return c.Memory.Get(ctx, key)
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	c.sets = append(c.sets, value)
	c.mu.Unlock()
	return c.Memory.Set(ctx, key, value)
}

func (c *countingKV) writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sets...)
}

var epoch = time.Date(2024, 9, 24, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T, store kv.Store) (*Store, *formtest.ManualScheduler) {
	t.Helper()
	sched := formtest.NewManualScheduler(epoch)
	return New(store, WithScheduler(sched), WithClock(sched.Now)), sched
}

func expenseForm(id string, autoSave bool) *form.Page {
	return form.NewPage(id, autoSave,
		form.Field{Name: "amount", Kind: form.KindNumber, Required: true},
		form.Field{Name: "subject", Kind: form.KindText, Required: true},
		form.Field{Name: "description", Kind: form.KindOther},
	)
}

func decode(t *testing.T, raw string) form.Snapshot {
	t.Helper()
	var snap form.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return snap
}

func TestFormIDFallsBack(t *testing.T) {
	if got := FormID(expenseForm("expense-form", true)); got != "expense-form" {
		t.Errorf("FormID = %q", got)
	}
	if got := FormID(expenseForm("", true)); got != FallbackID {
		t.Errorf("FormID = %q, want %q", got, FallbackID)
	}
	if got := Key("expense-form"); got != "form-data-expense-form" {
		t.Errorf("Key = %q", got)
	}
}

func TestAttachIgnoresFormsWithoutAutoSave(t *testing.T) {
	store := newCountingKV()
	st, sched := newStore(t, store)
	p := expenseForm("login-form", false)

	if _, ok := st.Attach(context.Background(), p); ok {
		t.Fatalf("Attach bound a form that did not opt in")
	}
	p.Input("amount", "5")
	sched.Advance(5 * time.Second)
	if len(store.writes()) != 0 {
		t.Fatalf("unexpected writes: %v", store.writes())
	}
}

func TestDebounceWritesOnceWithLastState(t *testing.T) {
	store := newCountingKV()
	st, sched := newStore(t, store)
	p := expenseForm("expense-form", true)
	if _, ok := st.Attach(context.Background(), p); !ok {
		t.Fatalf("Attach refused an auto-save form")
	}

	for _, v := range []string{"1", "12", "125"} {
		p.Input("amount", v)
		sched.Advance(300 * time.Millisecond)
	}
	p.Input("subject", "Lunch")
	if n := len(store.writes()); n != 0 {
		t.Fatalf("wrote %d times inside the quiescence window", n)
	}
	if sched.Pending() != 1 || !st.Pending("expense-form") {
		t.Fatalf("expected exactly one armed timer, got %d", sched.Pending())
	}

	sched.Advance(999 * time.Millisecond)
	if n := len(store.writes()); n != 0 {
		t.Fatalf("fired before quiescence elapsed")
	}
	sched.Advance(time.Millisecond)

	writes := store.writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	want := form.Snapshot{"amount": "125", "subject": "Lunch"}
	if diff := cmp.Diff(want, decode(t, writes[0])); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if st.Pending("expense-form") {
		t.Fatalf("timer still pending after firing")
	}
}

func TestSavedIndicatorLastsTwoSeconds(t *testing.T) {
	st, sched := newStore(t, kv.NewMemory())
	p := expenseForm("expense-form", true)
	st.Attach(context.Background(), p)

	p.Input("amount", "10")
	if st.SavedRecently("expense-form") {
		t.Fatalf("indicator shown before any save")
	}
	sched.Advance(DefaultQuiescence)
	if !st.SavedRecently("expense-form") {
		t.Fatalf("indicator not shown right after save")
	}
	sched.Advance(IndicatorDuration - time.Millisecond)
	if !st.SavedRecently("expense-form") {
		t.Fatalf("indicator hidden too early")
	}
	sched.Advance(time.Millisecond)
	if st.SavedRecently("expense-form") {
		t.Fatalf("indicator still shown after %s", IndicatorDuration)
	}
}

func TestRestoreIsFillOnly(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, Key("expense-form"), `{"amount":"50","subject":"Taxi","ghost":"x"}`)
	st, _ := newStore(t, store)

	prefilled := expenseForm("expense-form", true)
	prefilled.SetValue("amount", "75")
	if n := st.Restore(ctx, prefilled, "expense-form"); n != 1 {
		t.Fatalf("filled %d fields, want 1", n)
	}
	if f, _ := prefilled.Field("amount"); f.Value != "75" {
		t.Fatalf("restore overwrote amount: %q", f.Value)
	}
	if f, _ := prefilled.Field("subject"); f.Value != "Taxi" {
		t.Fatalf("subject = %q", f.Value)
	}

	empty := expenseForm("expense-form", true)
	st.Attach(ctx, empty)
	if f, _ := empty.Field("amount"); f.Value != "50" {
		t.Fatalf("restore did not fill empty amount: %q", f.Value)
	}
}

func TestRestoreFailsOpen(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(*countingKV){
		"corrupt json":  func(c *countingKV) { _ = c.Memory.Set(ctx, Key("f"), "{not json") },
		"wrong shape":   func(c *countingKV) { _ = c.Memory.Set(ctx, Key("f"), `{"amount":50}`) },
		"storage error": func(c *countingKV) { c.getErr = errors.New("disk gone") },
		"missing":       func(*countingKV) {},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			store := newCountingKV()
			setup(store)
			st, _ := newStore(t, store)
			p := expenseForm("f", true)
			if n := st.Restore(ctx, p, "f"); n != 0 {
				t.Fatalf("filled %d fields", n)
			}
			if diff := cmp.Diff(form.Snapshot{}, Snapshot(p)); diff != "" {
				t.Fatalf("form changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubmitDiscardsDraftAndPendingSave(t *testing.T) {
	ctx := context.Background()
	store := newCountingKV()
	st, sched := newStore(t, store)

	p := expenseForm("expense-form", true)
	st.Attach(ctx, p)
	p.Input("amount", "10")
	sched.Advance(DefaultQuiescence)
	p.Input("amount", "20")

	if !p.Submit() {
		t.Fatalf("submit vetoed without guards")
	}
	sched.Advance(5 * time.Second)

	if len(store.writes()) != 1 {
		t.Fatalf("pending save ran after discard: %v", store.writes())
	}
	if _, ok, _ := store.Get(ctx, Key("expense-form")); ok {
		t.Fatalf("draft survived submission")
	}

	// The next page load finds nothing to restore.
	next := expenseForm("expense-form", true)
	st.Attach(ctx, next)
	if diff := cmp.Diff(form.Snapshot{}, Snapshot(next)); diff != "" {
		t.Fatalf("restored after discard (-want +got):\n%s", diff)
	}
}

func TestVetoedSubmitKeepsDraft(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	st, sched := newStore(t, store)

	p := expenseForm("expense-form", true)
	p.OnSubmit(func() bool { return false })
	st.Attach(ctx, p)
	p.Input("amount", "10")
	sched.Advance(DefaultQuiescence)

	p.Submit()
	if _, ok, _ := store.Get(ctx, Key("expense-form")); !ok {
		t.Fatalf("vetoed submission discarded the draft")
	}
}

func TestFallbackIDFormsShareDraft(t *testing.T) {
	ctx := context.Background()
	st, sched := newStore(t, kv.NewMemory())

	a := form.NewPage("", true, form.Field{Name: "subject"})
	id, _ := st.Attach(ctx, a)
	if id != FallbackID {
		t.Fatalf("id = %q", id)
	}
	a.Input("subject", "from A")
	sched.Advance(DefaultQuiescence)

	b := form.NewPage("", true, form.Field{Name: "subject"}, form.Field{Name: "other"})
	st.Attach(ctx, b)
	if f, _ := b.Field("subject"); f.Value != "from A" {
		t.Fatalf("form B did not see form A's draft: %q", f.Value)
	}
}

func TestSaveFailureIsLoggedNotFatal(t *testing.T) {
	store := newCountingKV()
	store.setErr = errors.New("quota exceeded")
	st, sched := newStore(t, store)

	p := expenseForm("expense-form", true)
	st.Attach(context.Background(), p)
	p.Input("amount", "10")
	sched.Advance(DefaultQuiescence)

	if st.SavedRecently("expense-form") {
		t.Fatalf("indicator shown for a failed save")
	}
	if st.Pending("expense-form") {
		t.Fatalf("failed save left a timer armed")
	}
}

func TestBindSkipsRestore(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, Key("expense-form"), `{"subject":"old"}`)
	st, sched := newStore(t, store)

	p := expenseForm("expense-form", true)
	st.Bind(p, "expense-form")
	p.Input("amount", "9")
	sched.Advance(DefaultQuiescence)

	raw, _, _ := store.Get(ctx, Key("expense-form"))
	if diff := cmp.Diff(form.Snapshot{"amount": "9"}, decode(t, raw)); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestWithQuiescence(t *testing.T) {
	store := newCountingKV()
	sched := formtest.NewManualScheduler(epoch)
	st := New(store, WithScheduler(sched), WithQuiescence(250*time.Millisecond), WithQuiescence(0))

	p := expenseForm("expense-form", true)
	st.Attach(context.Background(), p)
	p.Input("amount", "1")
	sched.Advance(250 * time.Millisecond)
	if len(store.writes()) != 1 {
		t.Fatalf("custom quiescence not honoured")
	}
}

func TestHasPendingTracksArmedSaves(t *testing.T) {
	ctx := context.Background()
	st, sched := newStore(t, kv.NewMemory())

	p := expenseForm("expense-form", true)
	st.Attach(ctx, p)
	if st.HasPending() {
		t.Fatal("pending before any input")
	}
	p.Input("amount", "10")
	if !st.HasPending() {
		t.Fatal("input did not arm a save")
	}
	sched.Advance(DefaultQuiescence)
	if st.HasPending() {
		t.Fatal("save still armed after it ran")
	}

	p.Input("amount", "20")
	p.Submit()
	if st.HasPending() {
		t.Fatal("submit left a save armed")
	}
}
