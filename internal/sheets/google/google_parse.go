package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// Column headers of the expenses sheet, in write order.
const (
	colID          = "ID"
	colUser        = "User"
	colDate        = "Date"
	colTime        = "Time"
	colSubject     = "Subject"
	colDescription = "Description"
	colCategory    = "Category"
	colPayment     = "Payment Method"
	colAmount      = "Amount"
	colCreated     = "Created"

	lastColumn = "J"
)

func headerRow() []any {
	return []any{colID, colUser, colDate, colTime, colSubject, colDescription, colCategory, colPayment, colAmount, colCreated}
}

// parseExpenseRows converts a values matrix whose first row is the header
// into the expenses belonging to userID. Columns are located by header name,
// so reordered sheets still parse. Rows of the user that cannot be read are
// counted in skipped.
func parseExpenseRows(values [][]any, userID int64) (out []core.Expense, skipped int, err error) {
	if len(values) == 0 {
		return nil, 0, nil
	}
	headers := toStrings(values[0])
	idx := map[string]int{}
	var missing []string
	for _, name := range []string{colID, colUser, colDate, colTime, colSubject, colAmount} {
		i := indexOf(headers, name)
		if i == -1 {
			missing = append(missing, name)
		}
		idx[name] = i
	}
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("unexpected expenses header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	for _, name := range []string{colDescription, colCategory, colPayment, colCreated} {
		idx[name] = indexOf(headers, name)
	}

	want := strconv.FormatInt(userID, 10)
	for _, raw := range values[1:] {
		row := toStrings(raw)
		if safeGet(row, idx[colUser]) != want {
			continue
		}
		e, ok := parseExpenseRow(row, idx)
		if !ok {
			skipped++
			continue
		}
		e.UserID = userID
		out = append(out, e)
	}
	return out, skipped, nil
}

func parseExpenseRow(row []string, idx map[string]int) (core.Expense, bool) {
	id, err := strconv.ParseInt(safeGet(row, idx[colID]), 10, 64)
	if err != nil {
		return core.Expense{}, false
	}
	date, err := core.ParseDate(safeGet(row, idx[colDate]))
	if err != nil {
		return core.Expense{}, false
	}
	cents, ok := parseRupeesToCents(safeGet(row, idx[colAmount]))
	if !ok {
		return core.Expense{}, false
	}
	e := core.Expense{
		ID:            id,
		Date:          date,
		Time:          safeGet(row, idx[colTime]),
		Amount:        core.Money{Cents: cents},
		Subject:       safeGet(row, idx[colSubject]),
		Description:   safeGet(row, idx[colDescription]),
		Category:      safeGet(row, idx[colCategory]),
		PaymentMethod: safeGet(row, idx[colPayment]),
	}
	if ts := safeGet(row, idx[colCreated]); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.CreatedAt = t
		}
	}
	e.Normalize()
	return e, true
}

// parseRupeesToCents accepts "1234.5", "1,234.50" and "₹1,23,456".
// Commas are digit grouping, never a decimal separator.
func parseRupeesToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
