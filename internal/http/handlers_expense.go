package http

import (
	"errors"
	"html/template"
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/viewhelpers"
)

const expenseForm = "expense"

// expenseValidationErrors are the rejections a user can fix by editing the
// form.
var expenseValidationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrAmountTooLarge,
	core.ErrEmptySubject,
	core.ErrSubjectTooLong,
	core.ErrDescriptionTooLong,
	core.ErrMissingDate,
	core.ErrInvalidDate,
	core.ErrMissingTime,
	core.ErrInvalidTime,
}

func isExpenseValidation(err error) bool {
	for _, target := range expenseValidationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleAddExpense shows the expense form, restoring the user's draft, and
// records submissions.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	def, err := s.forms.Get(expenseForm)
	if err != nil {
		InternalServerError("Expense form unavailable").Write(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.showForm(w, r, def)
	case http.MethodPost:
		s.createExpense(w, r, user, def)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request, user *auth.Claims, def forms.Definition) {
	page, ok := s.submitForm(w, r, def)
	if !ok {
		return
	}
	logger := applog.FromContext(r.Context())

	values := s.sanitizer.CleanValues(def, page.Values())
	e, err := services.ExpenseFromForm(user.UserID(), values)
	if err == nil {
		e, err = s.expenses.CreateExpense(r.Context(), e)
	}
	if err != nil {
		if isExpenseValidation(err) {
			logger.InfoContext(r.Context(), "Expense rejected",
				applog.FieldUserID, user.UserID(),
				applog.FieldError, err,
				applog.FieldOperation, applog.OpValidate)
			s.renderForm(w, r, http.StatusUnprocessableEntity, def, page, &Flash{Kind: FlashError, Message: sentence(err.Error())})
			return
		}
		logger.ErrorContext(r.Context(), "Failed to add expense",
			applog.FieldUserID, user.UserID(),
			applog.FieldError, err,
			applog.FieldOperation, applog.OpCreate)
		s.renderForm(w, r, http.StatusInternalServerError, def, page, &Flash{Kind: FlashError, Message: "Error adding expense. Please try again."})
		return
	}

	s.expensesCreated.Add(1)
	applog.NewStructuredLogger(logger).LogExpenseSubmitted(r.Context(), e.ID, e.Subject, e.Amount.Cents, e.Category)
	redirectWithFlash(w, r, "/dashboard", FlashSuccess, "Expense added successfully!")
}

type option struct {
	Value string
	Label string
}

var (
	periodOptions = []option{
		{services.PeriodAll, "All time"},
		{services.PeriodToday, "Today"},
		{services.PeriodWeek, "Last 7 days"},
		{services.PeriodMonth, "This month"},
		{services.PeriodYear, "This year"},
	}
	sortOptions = []option{
		{services.SortDateDesc, "Newest first"},
		{services.SortDateAsc, "Oldest first"},
		{services.SortAmountDesc, "Highest amount"},
		{services.SortAmountAsc, "Lowest amount"},
		{services.SortCategory, "Category"},
	}
)

type expenseRow struct {
	Date          string
	Time          string
	Subject       string
	Description   string
	Category      string
	PaymentMethod string
	Amount        string
}

type expensesView struct {
	Filter     services.ListFilter
	Periods    []option
	Sorts      []option
	Categories []string
	Query      template.URL
	Count      string
	Total      string
	Rows       []expenseRow
}

func expenseRows(items []core.Expense) []expenseRow {
	rows := make([]expenseRow, 0, len(items))
	for _, e := range items {
		rows = append(rows, expenseRow{
			Date:          viewhelpers.FormatDate(e.Date),
			Time:          viewhelpers.FormatTime(e.Time),
			Subject:       e.Subject,
			Description:   e.Description,
			Category:      e.Category,
			PaymentMethod: e.PaymentMethod,
			Amount:        viewhelpers.FormatCurrency(e.Amount),
		})
	}
	return rows
}

// handleViewExpenses lists the user's expenses with search, period, category
// and sort filters taken from the query string.
func (s *Server) handleViewExpenses(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	f := ParseListFilter(r.URL.Query())
	items, err := s.expenses.ListExpenses(r.Context(), user.UserID(), f)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list expenses",
			applog.FieldUserID, user.UserID(),
			applog.FieldError, err,
			applog.FieldOperation, applog.OpList)
		s.render(w, r, http.StatusInternalServerError, "expenses.html", "Expenses", expensesView{
			Filter:  f,
			Periods: periodOptions,
			Sorts:   sortOptions,
		}, &Flash{Kind: FlashError, Message: "Could not load expenses. Please try again."})
		return
	}

	s.render(w, r, http.StatusOK, "expenses.html", "Expenses", expensesView{
		Filter:     f,
		Periods:    periodOptions,
		Sorts:      sortOptions,
		Categories: s.categories(r, items),
		Query:      template.URL(FilterQuery(f).Encode()),
		Count:      viewhelpers.FormatNumber(int64(len(items))),
		Total:      viewhelpers.FormatCurrency(services.Total(items)),
		Rows:       expenseRows(items),
	}, nil)
}

// categories offers the configured categories, or those in use when the
// taxonomy is unavailable.
func (s *Server) categories(r *http.Request, items []core.Expense) []string {
	if s.taxonomy != nil {
		cats, _, err := s.taxonomy.List(r.Context())
		if err == nil && len(cats) > 0 {
			return cats
		}
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Taxonomy unavailable", applog.FieldError, err)
		}
	}
	return services.Categories(items)
}

// handleExportCSV downloads the filtered listing as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	f := ParseListFilter(r.URL.Query())
	items, err := s.expenses.ListExpenses(r.Context(), user.UserID(), f)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to export expenses",
			applog.FieldUserID, user.UserID(),
			applog.FieldError, err,
			applog.FieldOperation, applog.OpExport)
		InternalServerError("Export failed").Write(w)
		return
	}
	body := viewhelpers.ConvertToCSV(viewhelpers.ExpenseRows(items))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+viewhelpers.CSVFileName(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleSummaryAPI returns monthly and per-category totals as JSON.
func (s *Server) handleSummaryAPI(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	summary, err := s.expenses.Summary(r.Context(), user.UserID())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build summary",
			applog.FieldUserID, user.UserID(),
			applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load summary"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
