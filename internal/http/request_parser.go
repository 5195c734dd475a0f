// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// method checks, form parsing and the expense list filter.

package http

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"expensetracker/internal/forms"
	"expensetracker/internal/services"
)

var (
	listPeriods = []string{services.PeriodAll, services.PeriodToday, services.PeriodWeek, services.PeriodMonth, services.PeriodYear}
	listSorts   = []string{services.SortDateDesc, services.SortDateAsc, services.SortAmountDesc, services.SortAmountAsc, services.SortCategory}
)

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// PostedValues picks the values of def's fields out of a parsed form. Control
// characters are stripped from everything except passwords, which are kept
// byte for byte.
func PostedValues(def forms.Definition, form url.Values) map[string]string {
	values := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		v, ok := form[f.Name]
		if !ok || len(v) == 0 {
			continue
		}
		if strings.EqualFold(f.Type, "password") {
			values[f.Name] = v[0]
			continue
		}
		values[f.Name] = stripControl(v[0])
	}
	return values
}

// ParseListFilter reads the expense list query. Unknown periods and sort
// orders fall back to all and newest first.
func ParseListFilter(query url.Values) services.ListFilter {
	f := services.ListFilter{
		Term:     strings.TrimSpace(stripControl(query.Get("q"))),
		Period:   strings.ToLower(strings.TrimSpace(query.Get("period"))),
		Category: strings.TrimSpace(stripControl(query.Get("category"))),
		Sort:     strings.ToLower(strings.TrimSpace(query.Get("sort"))),
	}
	if !slices.Contains(listPeriods, f.Period) {
		f.Period = services.PeriodAll
	}
	if !slices.Contains(listSorts, f.Sort) {
		f.Sort = services.SortDateDesc
	}
	if f.Category == "" || strings.EqualFold(f.Category, "all") {
		f.Category = "all"
	}
	return f
}

// FilterQuery encodes f back into the list query, omitting defaults.
func FilterQuery(f services.ListFilter) url.Values {
	q := url.Values{}
	if f.Term != "" {
		q.Set("q", f.Term)
	}
	if f.Period != "" && f.Period != services.PeriodAll {
		q.Set("period", f.Period)
	}
	if f.Category != "" && f.Category != "all" {
		q.Set("category", f.Category)
	}
	if f.Sort != "" && f.Sort != services.SortDateDesc {
		q.Set("sort", f.Sort)
	}
	return q
}
