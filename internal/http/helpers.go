package http

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"expensetracker/internal/form"
	"expensetracker/internal/forms"
)

// stripControl removes control characters except tab, newline and carriage
// return. It does not trim: drafts keep what was typed.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
}

// textSanitizer strips markup from free text before it is stored. Entities
// are decoded again so "Fish & Chips" stays readable; html/template escapes
// on output.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *textSanitizer) Clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

// CleanValues sanitizes the free-text fields of def in values.
func (s *textSanitizer) CleanValues(def forms.Definition, values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for name, v := range values {
		out[name] = v
		f, ok := def.Field(name)
		if !ok {
			continue
		}
		if f.Kind() == form.KindText || strings.EqualFold(f.Type, "textarea") {
			out[name] = s.Clean(v)
		}
	}
	return out
}

// applyDefaults fills empty fields that declare a default. "today" and "now"
// resolve against now.
func applyDefaults(def forms.Definition, page *form.Page, now time.Time) {
	values := page.Values()
	for _, f := range def.Fields {
		if f.Default == "" || strings.TrimSpace(values[f.Name]) != "" {
			continue
		}
		switch f.Default {
		case "today":
			page.SetValue(f.Name, now.Format("2006-01-02"))
		case "now":
			page.SetValue(f.Name, now.Format("15:04"))
		default:
			page.SetValue(f.Name, f.Default)
		}
	}
}
