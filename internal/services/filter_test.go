package services

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"expensetracker/internal/core"
)

func sample() []core.Expense {
	mk := func(id int64, y, m, d int, hhmm string, cents int64, cat string) core.Expense {
		return core.Expense{ID: id, Date: core.NewDate(y, m, d), Time: hhmm, Amount: core.Money{Cents: cents}, Subject: "e", Category: cat}
	}
	return []core.Expense{
		mk(1, 2024, 9, 24, "18:00", 500, "Food & Dining"),
		mk(2, 2024, 9, 24, "09:00", 9000, "Travel"),
		mk(3, 2024, 9, 18, "12:00", 1500, "Food & Dining"),
		mk(4, 2024, 9, 16, "12:00", 100, "Other"),
		mk(5, 2024, 3, 1, "12:00", 7000, "Travel"),
		mk(6, 2023, 12, 31, "23:59", 2500, "Other"),
	}
}

func ids(items []core.Expense) []int64 {
	var out []int64
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}

func TestListFilterApply(t *testing.T) {
	now := time.Date(2024, 9, 24, 20, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter ListFilter
		want   []int64
	}{
		{"default newest first", ListFilter{}, []int64{1, 2, 3, 4, 5, 6}},
		{"today", ListFilter{Period: PeriodToday}, []int64{1, 2}},
		{"week includes seven days back", ListFilter{Period: PeriodWeek}, []int64{1, 2, 3}},
		{"month", ListFilter{Period: PeriodMonth}, []int64{1, 2, 3, 4}},
		{"year", ListFilter{Period: PeriodYear}, []int64{1, 2, 3, 4, 5}},
		{"category", ListFilter{Category: "Travel"}, []int64{2, 5}},
		{"category all", ListFilter{Category: "all"}, []int64{1, 2, 3, 4, 5, 6}},
		{"oldest first", ListFilter{Sort: SortDateAsc, Period: PeriodMonth}, []int64{4, 3, 2, 1}},
		{"amount desc", ListFilter{Sort: SortAmountDesc}, []int64{2, 5, 6, 3, 1, 4}},
		{"amount asc", ListFilter{Sort: SortAmountAsc, Period: PeriodToday}, []int64{1, 2}},
		{"by category then newest", ListFilter{Sort: SortCategory}, []int64{1, 3, 4, 6, 2, 5}},
		{"search", ListFilter{Term: "trav"}, []int64{2, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(tt.filter.Apply(sample(), now))); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTotalsAndCategories(t *testing.T) {
	items := sample()
	if got := Total(items).Cents; got != 20600 {
		t.Errorf("Total = %d", got)
	}
	if diff := cmp.Diff([]string{"Food & Dining", "Other", "Travel"}, Categories(items)); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sample(), time.Date(2024, 9, 24, 0, 0, 0, 0, time.UTC))
	want := Summary{
		Monthly: []MonthTotal{
			{Month: "2024-03", Total: 7000, Count: 1},
			{Month: "2024-09", Total: 11100, Count: 4},
		},
		Categories: []CategoryTotal{
			{Category: "Travel", Total: 16000, Count: 2},
			{Category: "Other", Total: 2600, Count: 2},
			{Category: "Food & Dining", Total: 2000, Count: 2},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if empty := Summarize(nil, time.Now()); empty.Monthly == nil || empty.Categories == nil {
		t.Fatal("empty summary should encode as empty arrays")
	}
}
