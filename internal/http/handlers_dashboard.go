package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/viewhelpers"
)

const dashboardRecent = 5

type categoryBar struct {
	Name   string
	Width  int
	Amount string
}

type recentRow struct {
	Date     string
	Time     string
	Subject  string
	Category string
	Amount   string
}

type dashboardView struct {
	Total       string
	TotalFrames []string
	MonthCount  int
	MonthName   string
	Count       string
	CountFrames []string
	ByCategory  []categoryBar
	Recent      []recentRow
}

// categoryBars scales each category against the largest one. Non-empty bars
// are at least 2% wide so they stay visible.
func categoryBars(cats []core.CategoryAmount) []categoryBar {
	var top int64
	for _, c := range cats {
		if c.Amount.Cents > top {
			top = c.Amount.Cents
		}
	}
	bars := make([]categoryBar, 0, len(cats))
	for _, c := range cats {
		width := 0
		if top > 0 {
			width = int(math.Round(float64(c.Amount.Cents) / float64(top) * 100))
		}
		if width < 2 && c.Amount.Cents > 0 {
			width = 2
		}
		if width > 100 {
			width = 100
		}
		bars = append(bars, categoryBar{Name: c.Name, Width: width, Amount: viewhelpers.FormatCurrency(c.Amount)})
	}
	return bars
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	d, err := s.expenses.Dashboard(r.Context(), user.UserID(), dashboardRecent)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load dashboard",
			applog.FieldUserID, user.UserID(),
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRead)
		s.render(w, r, http.StatusInternalServerError, "dashboard.html", "Dashboard", dashboardView{
			Total: viewhelpers.FormatCurrency(core.Money{}),
			Count: "0",
		}, &Flash{Kind: FlashError, Message: "Could not load your expenses. Please try again."})
		return
	}

	total := viewhelpers.FormatCurrency(d.Month.Total)
	count := viewhelpers.FormatNumber(int64(d.Count))
	view := dashboardView{
		Total:       total,
		TotalFrames: viewhelpers.CountUpFrames(total),
		MonthCount:  d.Month.Count,
		MonthName:   time.Month(d.Month.Month).String() + " " + strconv.Itoa(d.Month.Year),
		Count:       count,
		CountFrames: viewhelpers.CountUpFrames(count),
		ByCategory:  categoryBars(d.Month.ByCategory),
	}
	for _, e := range d.Recent {
		view.Recent = append(view.Recent, recentRow{
			Date:     viewhelpers.FormatDate(e.Date),
			Time:     viewhelpers.FormatTime(e.Time),
			Subject:  e.Subject,
			Category: e.Category,
			Amount:   viewhelpers.FormatCurrency(e.Amount),
		})
	}
	s.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", view, nil)
}
