package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

// RoutingKeyExpenseSubmitted routes accepted expense submissions.
const RoutingKeyExpenseSubmitted = "expense.submitted"

// ExpenseSubmittedMessage carries an accepted expense so consumers do not
// need access to the store it was written to.
type ExpenseSubmittedMessage struct {
	ID            int64     `json:"id"`
	Ref           string    `json:"ref"`
	Backend       string    `json:"backend"`
	UserID        int64     `json:"user_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	AmountCents   int64     `json:"amount_cents"`
	Subject       string    `json:"subject"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"payment_method"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewExpenseSubmittedMessage builds the message for an expense written to
// backend under ref.
func NewExpenseSubmittedMessage(e core.Expense, ref, backend string) *ExpenseSubmittedMessage {
	return &ExpenseSubmittedMessage{
		ID:            e.ID,
		Ref:           ref,
		Backend:       backend,
		UserID:        e.UserID,
		Date:          e.Date.String(),
		Time:          e.Time,
		AmountCents:   e.Amount.Cents,
		Subject:       e.Subject,
		Description:   e.Description,
		Category:      e.Category,
		PaymentMethod: e.PaymentMethod,
		Timestamp:     time.Now(),
	}
}

// Expense converts the message back into a domain expense.
func (m *ExpenseSubmittedMessage) Expense() (core.Expense, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("message date %q: %w", m.Date, err)
	}
	return core.Expense{
		ID:            m.ID,
		UserID:        m.UserID,
		Date:          d,
		Time:          m.Time,
		Amount:        core.Money{Cents: m.AmountCents},
		Subject:       m.Subject,
		Description:   m.Description,
		Category:      m.Category,
		PaymentMethod: m.PaymentMethod,
		CreatedAt:     m.Timestamp,
	}, nil
}

func (m *ExpenseSubmittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseSubmittedMessageFromJSON(data []byte) (*ExpenseSubmittedMessage, error) {
	var msg ExpenseSubmittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
