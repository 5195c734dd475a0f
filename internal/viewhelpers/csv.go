package viewhelpers

import (
	"strings"
	"time"

	"expensetracker/internal/core"
)

// CSVHeader is the header line of an expense export.
var CSVHeader = []string{"Date", "Time", "Title", "Category", "Amount", "Description"}

// CSVRow is one exported expense as it appears on the expense list.
type CSVRow struct {
	Date        string
	Time        string
	Title       string
	Category    string
	Amount      string
	Description string
}

func (r CSVRow) cells() []string {
	return []string{r.Date, r.Time, r.Title, r.Category, r.Amount, r.Description}
}

// ExpenseRows renders expenses the way the list shows them.
func ExpenseRows(expenses []core.Expense) []CSVRow {
	rows := make([]CSVRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, CSVRow{
			Date:        FormatDate(e.Date),
			Time:        FormatTime(e.Time),
			Title:       e.Subject,
			Category:    e.Category,
			Amount:      FormatCurrency(e.Amount),
			Description: e.Description,
		})
	}
	return rows
}

// ConvertToCSV writes the header and one line per row, joined by "\n".
// Every cell is wrapped in double quotes. Quotes inside a cell are NOT
// escaped, so a value containing '"' yields malformed CSV.
func ConvertToCSV(rows []CSVRow) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(CSVHeader, ","))
	for _, r := range rows {
		cells := r.cells()
		for i, c := range cells {
			cells[i] = `"` + c + `"`
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

// CSVFileName names an export made at now, using the UTC date.
func CSVFileName(now time.Time) string {
	return "expenses_" + now.UTC().Format("2006-01-02") + ".csv"
}
