package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"expensetool/internal/core"
	"expensetool/internal/pipeline"
	"expensetool/internal/services"
	"expensetool/internal/vocab"
)

const defaultLimit = services.DefaultListLimit

type AddInput struct {
	Amount             float64  `json:"amount"`
	Currency           string   `json:"currency"`
	Category           string   `json:"category"`
	Description        string   `json:"description"`
	PaymentMethod      string   `json:"payment_method"`
	PaymentSubcategory string   `json:"payment_subcategory"`
	Subcategory        string   `json:"subcategory"`
	Date               string   `json:"date"`
	Tags               []string `json:"tags"`
	IsRecurring        bool     `json:"is_recurring"`
	RecurringFrequency string   `json:"recurring_frequency"`
}

// GetInput lists expenses. A nil Limit means the default of 10.
type GetInput struct {
	Limit    *int   `json:"limit"`
	Category string `json:"category"`
}

type DeleteInput struct {
	Description string `json:"description"`
}

// UpdateInput selects an expense by description and carries the optional
// replacement values.
type UpdateInput struct {
	Description      string   `json:"description"`
	NewAmount        *float64 `json:"new_amount"`
	NewCurrency      *string  `json:"new_currency"`
	NewCategory      *string  `json:"new_category"`
	NewDescription   *string  `json:"new_description"`
	NewPaymentMethod *string  `json:"new_payment_method"`
	NewDate          *string  `json:"new_date"`
}

func (t *Tools) AddExpense(ctx context.Context, in AddInput) (reply string) {
	defer t.guard(ctx, opAdd, &reply)

	e, notes, err := t.svc.Add(ctx, core.Draft{
		Amount:             in.Amount,
		Currency:           in.Currency,
		Category:           in.Category,
		Subcategory:        in.Subcategory,
		Description:        in.Description,
		PaymentMethod:      in.PaymentMethod,
		PaymentSubcategory: in.PaymentSubcategory,
		Date:               in.Date,
		Tags:               in.Tags,
		IsRecurring:        in.IsRecurring,
		RecurringFrequency: in.RecurringFrequency,
	})
	if err != nil {
		t.logger.WarnContext(ctx, "Add expense failed", "error", err)
		return failure(opAdd, err)
	}

	base := t.conv.Base()
	var b strings.Builder
	b.WriteString("Expense added successfully!\n\n")
	fmt.Fprintf(&b, "Amount: %s\n", vocab.FormatAmount(e.OriginalCurrency, e.OriginalAmount))
	fmt.Fprintf(&b, "Category: %s\n", categoryLine(e))
	fmt.Fprintf(&b, "Description: %s\n", e.Description)
	fmt.Fprintf(&b, "Payment: %s", paymentLine(e))
	if e.OriginalCurrency != base {
		fmt.Fprintf(&b, "\nStored as: %s %s", vocab.FormatAmount(base, e.Amount), base)
		fmt.Fprintf(&b, "\nExchange rate: 1 %s = %.6f %s", e.OriginalCurrency, e.ExchangeRate, base)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(&b, "\nTags: %s", strings.Join(e.Tags, ", "))
	}
	if e.IsRecurring {
		freq := string(e.RecurringFrequency)
		if freq == "" {
			freq = "yes"
		}
		fmt.Fprintf(&b, "\nRecurring: %s", freq)
		if next, ok := services.NextDue(e); ok {
			fmt.Fprintf(&b, " (next due %s)", next.Format("Jan 02, 2006"))
		}
	}
	for _, n := range notes {
		fmt.Fprintf(&b, "\nNote: %s", n)
	}
	return b.String()
}

func (t *Tools) GetExpenses(ctx context.Context, in GetInput) (reply string) {
	defer t.guard(ctx, opGet, &reply)

	limit := defaultLimit
	if in.Limit != nil {
		limit = *in.Limit
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))

	expenses, err := t.svc.List(ctx, category, limit)
	if err != nil {
		t.logger.ErrorContext(ctx, "List expenses failed", "error", err)
		return failure(opGet, err)
	}
	if len(expenses) == 0 {
		if category != "" {
			return fmt.Sprintf("No expenses found in category '%s'", category)
		}
		return "No expenses found. Add your first expense to get started!"
	}

	var b strings.Builder
	if category != "" {
		fmt.Fprintf(&b, "Your %s Expenses (%d):\n\n", cases.Title(language.English).String(category), len(expenses))
	} else {
		fmt.Fprintf(&b, "Your Recent Expenses (%d):\n\n", len(expenses))
	}

	var total float64
	for i, e := range expenses {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, e.Description, vocab.FormatAmount(e.OriginalCurrency, e.OriginalAmount))
		fmt.Fprintf(&b, "   Category: %s\n", categoryLine(e))
		fmt.Fprintf(&b, "   Payment: %s\n", paymentLine(e))
		fmt.Fprintf(&b, "   Date: %s\n\n", e.Date.Format(pipeline.DisplayDateLayout))
		total += e.Amount
	}
	total = core.Round2(total)

	base := t.conv.Base()
	fmt.Fprintf(&b, "Total: %s %s", vocab.FormatAmount(base, total), base)
	if category != "" {
		fmt.Fprintf(&b, " (%s expenses)", category)
	}
	if uc := t.opts.UserCurrency; uc != "" && uc != base && vocab.IsCurrency(uc) {
		fmt.Fprintf(&b, "\n≈ %s %s", vocab.FormatAmount(uc, t.conv.ConvertFromBase(ctx, total, uc)), uc)
	}
	return b.String()
}

func (t *Tools) DeleteExpense(ctx context.Context, in DeleteInput) (reply string) {
	defer t.guard(ctx, opDelete, &reply)

	res, err := t.svc.Delete(ctx, in.Description)
	if err != nil {
		return failure(opDelete, err)
	}
	switch res.Kind() {
	case services.MatchNone:
		return t.notFound(ctx, res.Needle)
	case services.MatchMany:
		return multiple(res.MatchResult, "delete")
	}

	e := res.Deleted
	return fmt.Sprintf("Deleted expense: %s (%s) from %s",
		e.Description, vocab.FormatAmount(e.OriginalCurrency, e.OriginalAmount), e.Category)
}

func (t *Tools) UpdateExpense(ctx context.Context, in UpdateInput) (reply string) {
	defer t.guard(ctx, opUpdate, &reply)

	res, err := t.svc.Update(ctx, in.Description, core.Changes{
		Amount:        in.NewAmount,
		Currency:      in.NewCurrency,
		Category:      in.NewCategory,
		Description:   in.NewDescription,
		PaymentMethod: in.NewPaymentMethod,
		Date:          in.NewDate,
	})
	if errors.Is(err, services.ErrNoChanges) {
		return "No update fields provided. Specify at least one field to update."
	}
	if err != nil {
		return failure(opUpdate, err)
	}
	switch res.Kind() {
	case services.MatchNone:
		return t.notFound(ctx, res.Needle)
	case services.MatchMany:
		return multiple(res.MatchResult, "update")
	}

	if len(res.Changes) == 0 {
		return fmt.Sprintf("No changes were made to expense: %s", res.Before.Description)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Updated expense: %s\n\nChanges:", res.Before.Description)
	for _, c := range res.Changes {
		fmt.Fprintf(&b, "\n• %s: %s → %s", c.Field, c.From, c.To)
	}
	return b.String()
}

func (t *Tools) notFound(ctx context.Context, needle string) string {
	msg := fmt.Sprintf("No expense found matching '%s'. Please check the description and try again.", needle)
	if s, ok := t.svc.Suggest(ctx, needle); ok {
		msg += fmt.Sprintf("\nDid you mean '%s'?", s)
	}
	return msg
}

func multiple(m services.MatchResult, verb string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Multiple expenses found matching '%s':\n\n", m.Needle)
	for i, e := range m.Candidates {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, e.Description, vocab.FormatAmount(e.OriginalCurrency, e.OriginalAmount))
		fmt.Fprintf(&b, "   Category: %s | Date: %s\n\n", e.Category, e.Date.Format(pipeline.DisplayDateLayout))
	}
	fmt.Fprintf(&b, "Please be more specific about which expense to %s.", verb)
	return b.String()
}

func categoryLine(e core.Expense) string {
	if e.Subcategory == "" {
		return e.Category
	}
	return e.Category + " > " + e.Subcategory
}

func paymentLine(e core.Expense) string {
	if e.PaymentSubcategory == "" {
		return e.PaymentMethod
	}
	return fmt.Sprintf("%s (%s)", e.PaymentMethod, e.PaymentSubcategory)
}
