package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKindFromType(t *testing.T) {
	cases := map[string]Kind{
		"":         KindText,
		"text":     KindText,
		"EMAIL":    KindEmail,
		"password": KindPassword,
		"number":   KindNumber,
		"date":     KindOther,
		"textarea": KindOther,
	}
	for in, want := range cases {
		if got := KindFromType(in); got != want {
			t.Errorf("KindFromType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewPageIgnoresDuplicateAndUnnamedFields(t *testing.T) {
	p := NewPage("f", false,
		Field{Name: "a", Value: "1"},
		Field{Name: ""},
		Field{Name: "a", Value: "2"},
		Field{Name: "b"},
	)
	want := []Field{{Name: "a", Value: "1"}, {Name: "b"}}
	if diff := cmp.Diff(want, p.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestPageInputDispatchOrder(t *testing.T) {
	p := NewPage("f", false, Field{Name: "a"}, Field{Name: "b"})
	var got []string
	p.OnAnyInput(func() { got = append(got, "form") })
	p.OnInput("a", func() { got = append(got, "a") })
	p.OnInput("b", func() { got = append(got, "b") })

	if !p.Input("a", "x") {
		t.Fatalf("Input on known field reported false")
	}
	if p.Input("missing", "x") {
		t.Fatalf("Input on unknown field reported true")
	}
	if diff := cmp.Diff([]string{"a", "form"}, got); diff != "" {
		t.Fatalf("dispatch order mismatch (-want +got):\n%s", diff)
	}
	if f, _ := p.Field("a"); f.Value != "x" {
		t.Fatalf("value not set: %q", f.Value)
	}
}

func TestPageSubmitVeto(t *testing.T) {
	p := NewPage("f", false, Field{Name: "a"})
	guards, after := 0, 0
	veto := true
	p.OnSubmit(func() bool { guards++; return !veto })
	p.OnSubmit(func() bool { guards++; return true })
	p.OnSubmitted(func() { after++ })

	if p.Submit() {
		t.Fatalf("expected veto")
	}
	if guards != 2 || after != 0 {
		t.Fatalf("guards=%d after=%d", guards, after)
	}

	veto = false
	if !p.Submit() {
		t.Fatalf("expected submission to proceed")
	}
	if after != 1 {
		t.Fatalf("submitted handlers ran %d times", after)
	}
}

func TestPageValidityAndFocus(t *testing.T) {
	p := NewPage("f", false, Field{Name: "a"})
	p.MarkValidity("a", Invalid("bad"))
	p.MarkValidity("ghost", Invalid("ignored"))
	if msg, ok := p.Error("a"); !ok || msg != "bad" {
		t.Fatalf("error not rendered: %q %v", msg, ok)
	}
	if len(p.Errors()) != 1 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	p.MarkValidity("a", Valid())
	if _, ok := p.Error("a"); ok {
		t.Fatalf("error not cleared")
	}

	p.Focus("ghost")
	if p.Focused() != "" {
		t.Fatalf("focus moved to unknown field")
	}
	p.Focus("a")
	if p.Focused() != "a" {
		t.Fatalf("focus = %q", p.Focused())
	}
}
