package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseWriter is the backend an accepted expense submission is handed to.
	ExpenseWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// ExpenseLister returns a user's expenses, newest first.
	ExpenseLister interface {
		ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
	}

	// TaxonomyReader lists the choices offered by the expense form.
	TaxonomyReader interface {
		List(ctx context.Context) (categories []string, paymentMethods []string, err error)
	}

	// UserStore persists accounts.
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (int64, error)
		UserByUsername(ctx context.Context, username string) (core.User, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
	}
)
