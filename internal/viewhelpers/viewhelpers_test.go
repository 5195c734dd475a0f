package viewhelpers

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"expensetracker/internal/core"
	"expensetracker/internal/form/formtest"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "₹0"},
		{5, "₹0.05"},
		{50, "₹0.5"},
		{10000, "₹100"},
		{123450, "₹1,234.5"},
		{123456, "₹1,234.56"},
		{10000000, "₹1,00,000"},
		{123456700, "₹12,34,567"},
		{core.MaxAmountCents, "₹10,00,000"},
		{-50000, "-₹500"},
		{math.MinInt64, "-₹92,23,37,20,36,85,47,758.08"},
	}
	for _, tt := range tests {
		if got := FormatCurrency(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("FormatCurrency(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		12345:      "12,345",
		123456:     "1,23,456",
		1234567890: "1,23,45,67,890",
		-1500:      "-1,500",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDateAndTime(t *testing.T) {
	if got := FormatDate(core.NewDate(2024, 9, 24)); got != "24 Sep 2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(core.NewDate(2024, 1, 5)); got != "5 Jan 2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate(core.Date{}); got != "" {
		t.Errorf("FormatDate(zero) = %q", got)
	}

	times := map[string]string{
		"14:30":    "02:30 pm",
		"00:05":    "12:05 am",
		"12:00":    "12:00 pm",
		"09:15:59": "09:15 am",
		"noon":     "noon",
	}
	for in, want := range times {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvertToCSV(t *testing.T) {
	rows := []CSVRow{
		{Date: "24 Sep 2024", Time: "02:30 pm", Title: "Lunch", Category: "Food & Dining", Amount: "₹250", Description: ""},
		{Title: `The "good" cafe`},
	}
	want := "Date,Time,Title,Category,Amount,Description\n" +
		`"24 Sep 2024","02:30 pm","Lunch","Food & Dining","₹250",""` + "\n" +
		`"","","The "good" cafe","","",""`
	if diff := cmp.Diff(want, ConvertToCSV(rows)); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
	if got := ConvertToCSV(nil); got != "Date,Time,Title,Category,Amount,Description" {
		t.Fatalf("empty export = %q", got)
	}
}

func TestExpenseRows(t *testing.T) {
	rows := ExpenseRows([]core.Expense{{
		Date: core.NewDate(2024, 9, 24), Time: "14:30", Amount: core.Money{Cents: 25000},
		Subject: "Lunch", Category: "Food & Dining", Description: "team",
	}})
	want := []CSVRow{{Date: "24 Sep 2024", Time: "02:30 pm", Title: "Lunch", Category: "Food & Dining", Amount: "₹250", Description: "team"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVFileName(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 9, 25, 2, 0, 0, 0, ist)
	if got := CSVFileName(now); got != "expenses_2024-09-24.csv" {
		t.Fatalf("CSVFileName = %q", got)
	}
}

func TestEaseOutQuart(t *testing.T) {
	for in, want := range map[float64]float64{0: 0, 1: 1, 0.5: 0.9375} {
		if got := EaseOutQuart(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("EaseOutQuart(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestParseAndSplitStat(t *testing.T) {
	tests := []struct {
		text           string
		value          float64
		ok             bool
		prefix, suffix string
	}{
		{"₹12,500", 12500, true, "₹", ""},
		{"42 items", 42, true, "", " items"},
		{"₹1,234.50 spent", 1234.5, true, "₹", " spent"},
		{"-₹500", -500, true, "-₹", ""},
		{"n/a", 0, false, "n/a", ""},
	}
	for _, tt := range tests {
		v, ok := ParseStatValue(tt.text)
		if ok != tt.ok || v != tt.value {
			t.Errorf("ParseStatValue(%q) = %v, %v", tt.text, v, ok)
		}
		p, s := SplitStatText(tt.text)
		if p != tt.prefix || s != tt.suffix {
			t.Errorf("SplitStatText(%q) = %q, %q", tt.text, p, s)
		}
	}
}

func TestCountUpRunsToCompletion(t *testing.T) {
	sched := formtest.NewManualScheduler(time.Unix(0, 0))
	var frames []string
	if !CountUp(sched, sched.Now, "₹1,00,000", func(s string) { frames = append(frames, s) }) {
		t.Fatalf("CountUp rejected a numeric stat")
	}
	if len(frames) != 1 || frames[0] != "₹0" {
		t.Fatalf("first frame = %v", frames)
	}

	// The last frame before the one-second mark is drawn at 992ms.
	sched.Advance(time.Second)
	if mid := frames[len(frames)-1]; mid != "₹93,547" {
		t.Fatalf("frame at 992ms = %q", mid)
	}

	sched.Advance(CountUpDuration)
	if got := frames[len(frames)-1]; got != "₹1,00,000" {
		t.Fatalf("last frame = %q", got)
	}
	if sched.Pending() != 0 {
		t.Fatalf("animation still scheduled after completion")
	}
	if len(frames) != 126 {
		t.Fatalf("rendered %d frames, want 126", len(frames))
	}
}

func TestCountUpFrames(t *testing.T) {
	frames := CountUpFrames("₹1,234.50 spent")
	if len(frames) != 126 {
		t.Fatalf("frames = %d", len(frames))
	}
	if frames[0] != "₹0 spent" {
		t.Errorf("first = %q", frames[0])
	}
	if frames[len(frames)-1] != "₹1,234.50 spent" {
		t.Errorf("last = %q", frames[len(frames)-1])
	}
	if CountUpFrames("no data") != nil {
		t.Errorf("non-numeric stat produced frames")
	}
}

func TestNormalizeNumberInput(t *testing.T) {
	tests := map[string]string{
		"1234":       "1234",
		"₹1,2a3.456": "123.45",
		"1.2.3":      "1.23",
		".5":         ".5",
		"12.":        "12.",
		"abc":        "",
		"-5":         "5",
	}
	for in, want := range tests {
		if got := NormalizeNumberInput(in); got != want {
			t.Errorf("NormalizeNumberInput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchesSearch(t *testing.T) {
	if !MatchesSearch("", "anything") {
		t.Error("empty term should match")
	}
	if !MatchesSearch("FOOD", "Lunch", "", "Food & Dining") {
		t.Error("category match is case-insensitive")
	}
	if MatchesSearch("taxi", "Lunch", "team", "Food & Dining") {
		t.Error("unexpected match")
	}
}
