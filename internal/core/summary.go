package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
	Count  int
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}

// Summarize aggregates the expenses falling in year/month. Categories are
// ordered by total, highest first.
func Summarize(expenses []Expense, year, month int) MonthSummary {
	s := MonthSummary{Year: year, Month: month}
	idx := map[string]int{}
	for _, e := range expenses {
		if e.Date.Year() != year || int(e.Date.Month()) != month {
			continue
		}
		s.Total.Cents += e.Amount.Cents
		s.Count++
		i, ok := idx[e.Category]
		if !ok {
			i = len(s.ByCategory)
			idx[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryAmount{Name: e.Category})
		}
		s.ByCategory[i].Amount.Cents += e.Amount.Cents
		s.ByCategory[i].Count++
	}
	sort.SliceStable(s.ByCategory, func(a, b int) bool {
		return s.ByCategory[a].Amount.Cents > s.ByCategory[b].Amount.Cents
	})
	return s
}

// SortNewestFirst orders expenses by date then time, newest first.
func SortNewestFirst(expenses []Expense) {
	sort.SliceStable(expenses, func(a, b int) bool {
		da, db := expenses[a].Date, expenses[b].Date
		if !da.Equal(db.Time) {
			return da.After(db.Time)
		}
		return expenses[a].Time > expenses[b].Time
	})
}
