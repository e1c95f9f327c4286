package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetool/internal/core"
)

// EventType names what happened to an expense.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is published after a change has been persisted. Expense is
// nil for deletions.
type ExpenseEvent struct {
	Type      EventType     `json:"type"`
	ExpenseID string        `json:"expense_id"`
	UserID    string        `json:"user_id"`
	Expense   *core.Expense `json:"expense,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewExpenseEvent builds an event for e. Pass a nil expense for deletions.
func NewExpenseEvent(t EventType, expenseID, userID string, e *core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      t,
		ExpenseID: expenseID,
		UserID:    userID,
		Expense:   e,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ExpenseCreated, ExpenseUpdated:
		if msg.Expense == nil {
			return nil, fmt.Errorf("%s event without expense", msg.Type)
		}
	case ExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ExpenseID == "" {
		return nil, fmt.Errorf("%s event without expense id", msg.Type)
	}
	return &msg, nil
}
