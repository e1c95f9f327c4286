package sheets

import (
	"context"
	"strings"

	"expensetool/internal/core"
)

// Mirror keeps a spreadsheet copy of the stored expenses, one row per
// expense keyed by its id.
type Mirror interface {
	// Upsert writes e over its existing row, or appends a new one.
	Upsert(ctx context.Context, e core.Expense) error
	// Remove deletes the row of id. A missing row is not an error.
	Remove(ctx context.Context, id string) error
}

// Header is the first row of a mirror sheet.
var Header = []string{
	"ID", "User", "Date", "Description", "Amount", "Original Amount",
	"Original Currency", "Exchange Rate", "Category", "Subcategory",
	"Payment Method", "Payment Subcategory", "Tags", "Recurring",
}

// Row renders e in Header order.
func Row(e core.Expense) []any {
	recurring := ""
	if e.IsRecurring {
		recurring = string(e.RecurringFrequency)
		if recurring == "" {
			recurring = "yes"
		}
	}
	return []any{
		e.ID,
		e.UserID,
		e.Date.UTC().Format("2006-01-02"),
		e.Description,
		e.Amount,
		e.OriginalAmount,
		e.OriginalCurrency,
		e.ExchangeRate,
		e.Category,
		e.Subcategory,
		e.PaymentMethod,
		e.PaymentSubcategory,
		strings.Join(e.Tags, ", "),
		recurring,
	}
}
