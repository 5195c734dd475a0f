package services

import (
	"sort"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/viewhelpers"
)

// Periods accepted by ListFilter.Period.
const (
	PeriodAll   = "all"
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// Sort orders accepted by ListFilter.Sort.
const (
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortAmountDesc = "amount_desc"
	SortAmountAsc  = "amount_asc"
	SortCategory   = "category"
)

// ListFilter narrows and orders an expense listing. Zero values mean all
// periods, all categories, no search and newest first.
type ListFilter struct {
	Term     string
	Period   string
	Category string
	Sort     string
}

// Apply returns the matching expenses in the requested order. now anchors
// the period windows; "week" starts seven days before today.
func (f ListFilter) Apply(items []core.Expense, now time.Time) []core.Expense {
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	term := strings.TrimSpace(f.Term)
	category := strings.TrimSpace(f.Category)
	if strings.EqualFold(category, "all") {
		category = ""
	}

	out := make([]core.Expense, 0, len(items))
	for _, e := range items {
		if !inPeriod(e.Date, today, f.Period) {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		if !viewhelpers.MatchesSearch(term, e.Subject, e.Description, e.Category) {
			continue
		}
		out = append(out, e)
	}
	sortExpenses(out, f.Sort)
	return out
}

func inPeriod(d, today core.Date, period string) bool {
	switch period {
	case PeriodToday:
		return d.Equal(today.Time)
	case PeriodWeek:
		return !d.Before(today.AddDate(0, 0, -7))
	case PeriodMonth:
		return d.Year() == today.Year() && d.Month() == today.Month()
	case PeriodYear:
		return d.Year() == today.Year()
	default:
		return true
	}
}

func sortExpenses(items []core.Expense, order string) {
	switch order {
	case SortDateAsc:
		core.SortNewestFirst(items)
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	case SortAmountDesc:
		sort.SliceStable(items, func(a, b int) bool { return items[a].Amount.Cents > items[b].Amount.Cents })
	case SortAmountAsc:
		sort.SliceStable(items, func(a, b int) bool { return items[a].Amount.Cents < items[b].Amount.Cents })
	case SortCategory:
		core.SortNewestFirst(items)
		sort.SliceStable(items, func(a, b int) bool { return items[a].Category < items[b].Category })
	default:
		core.SortNewestFirst(items)
	}
}

// Total sums the amounts of items.
func Total(items []core.Expense) core.Money {
	var m core.Money
	for _, e := range items {
		m.Cents += e.Amount.Cents
	}
	return m
}

// Categories lists the distinct categories used in items, sorted.
func Categories(items []core.Expense) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range items {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	sort.Strings(out)
	return out
}

// MonthTotal is the spend of one calendar month.
type MonthTotal struct {
	Month string `json:"month"` // YYYY-MM
	Total int64  `json:"total_cents"`
	Count int    `json:"count"`
}

// CategoryTotal is the all-time spend of one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total_cents"`
	Count    int    `json:"count"`
}

// Summary is served by the summary API.
type Summary struct {
	Monthly    []MonthTotal    `json:"monthly"`
	Categories []CategoryTotal `json:"categories"`
}

// Summarize builds per-month totals for the year of now, in month order, and
// all-time category totals, highest first.
func Summarize(items []core.Expense, now time.Time) Summary {
	months := map[string]*MonthTotal{}
	cats := map[string]*CategoryTotal{}
	for _, e := range items {
		if e.Date.Year() == now.Year() {
			key := e.Date.Format("2006-01")
			m, ok := months[key]
			if !ok {
				m = &MonthTotal{Month: key}
				months[key] = m
			}
			m.Total += e.Amount.Cents
			m.Count++
		}
		c, ok := cats[e.Category]
		if !ok {
			c = &CategoryTotal{Category: e.Category}
			cats[e.Category] = c
		}
		c.Total += e.Amount.Cents
		c.Count++
	}

	s := Summary{Monthly: []MonthTotal{}, Categories: []CategoryTotal{}}
	for _, m := range months {
		s.Monthly = append(s.Monthly, *m)
	}
	sort.Slice(s.Monthly, func(a, b int) bool { return s.Monthly[a].Month < s.Monthly[b].Month })
	for _, c := range cats {
		s.Categories = append(s.Categories, *c)
	}
	sort.Slice(s.Categories, func(a, b int) bool {
		if s.Categories[a].Total != s.Categories[b].Total {
			return s.Categories[a].Total > s.Categories[b].Total
		}
		return s.Categories[a].Category < s.Categories[b].Category
	})
	return s
}
