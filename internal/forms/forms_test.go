package forms

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"expensetracker/internal/form"
	appweb "expensetracker/web"
)

var testLists = Lists{
	"categories":      {"Food & Dining", "Other"},
	"payment_methods": {"Cash", "UPI"},
}

func TestLoadEmbeddedForms(t *testing.T) {
	sub, err := fs.Sub(appweb.FormsFS, "forms")
	if err != nil {
		t.Fatal(err)
	}
	reg, err := Load(sub, testLists)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"expense", "login", "register"}, reg.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	expense, err := reg.Get("expense")
	if err != nil {
		t.Fatal(err)
	}
	if expense.ID != "expense-form" || !expense.AutoSave {
		t.Errorf("expense form id=%q autosave=%v", expense.ID, expense.AutoSave)
	}
	cat, ok := expense.Field("category")
	if !ok {
		t.Fatal("category field missing")
	}
	if diff := cmp.Diff(testLists["categories"], cat.Options); diff != "" {
		t.Errorf("category options mismatch (-want +got):\n%s", diff)
	}

	amount, _ := expense.Field("amount")
	if diff := cmp.Diff([]string{"50", "100", "200", "500", "1000"}, amount.Suggestions); diff != "" {
		t.Errorf("amount suggestions mismatch (-want +got):\n%s", diff)
	}
	if len(expense.QuickAdd) == 0 || expense.QuickAdd[0].Values["category"] != "Food & Dining" {
		t.Errorf("quick add = %+v", expense.QuickAdd)
	}

	login, _ := reg.Get("login")
	if login.AutoSave {
		t.Error("login form must not auto-save")
	}
}

func TestGetUnknownForm(t *testing.T) {
	reg, err := Load(fstest.MapFS{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get("nope"); !errors.Is(err, ErrUnknownForm) {
		t.Errorf("err = %v, want ErrUnknownForm", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no fields", "title: Empty\n"},
		{"unnamed field", "fields:\n  - label: X\n"},
		{"duplicate field", "fields:\n  - name: a\n  - name: a\n"},
		{"unknown list", "fields:\n  - name: a\n    options_from: colours\n"},
		{"bad yaml", "fields: [\n"},
		{"quick add unknown field", "fields:\n  - name: a\nquick_add:\n  - label: X\n    values: {b: \"1\"}\n"},
		{"quick add without label", "fields:\n  - name: a\nquick_add:\n  - values: {a: \"1\"}\n"},
		{"quick add without values", "fields:\n  - name: a\nquick_add:\n  - label: X\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), "k", testLists); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("key: same\nfields:\n  - name: x\n")},
		"b.yml":  {Data: []byte("key: same\nfields:\n  - name: y\n")},
		"c.txt":  {Data: []byte("ignored")},
	}
	if _, err := Load(fsys, nil); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestNewPage(t *testing.T) {
	def, err := Parse([]byte(`
id: expense-form
auto_save: true
fields:
  - name: amount
    type: number
    required: true
  - name: email
    type: email
  - name: notes
    type: textarea
`), "expense", nil)
	if err != nil {
		t.Fatal(err)
	}

	page := def.NewPage(map[string]string{"amount": "12", "stray": "x"})
	if page.ID() != "expense-form" || !page.AutoSave() {
		t.Errorf("page id=%q autosave=%v", page.ID(), page.AutoSave())
	}
	want := []form.Field{
		{Name: "amount", Kind: form.KindNumber, Required: true, Value: "12"},
		{Name: "email", Kind: form.KindEmail},
		{Name: "notes", Kind: form.KindOther},
	}
	if diff := cmp.Diff(want, page.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}
