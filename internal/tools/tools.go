// Package tools exposes the expense operations as tool calls that always
// answer with a human-readable string.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	applog "expensetool/internal/log"
	"expensetool/internal/services"
)

// Tool names accepted by Call.
const (
	ToolAddExpense    = "add_expense"
	ToolGetExpenses   = "get_expenses"
	ToolDeleteExpense = "delete_expense"
	ToolUpdateExpense = "update_expense"
)

var ErrUnknownTool = errors.New("unknown tool")

// Converter is the slice of currency.Converter used to render amounts.
type Converter interface {
	Base() string
	ConvertFromBase(ctx context.Context, amount float64, to string) float64
}

type Options struct {
	// UserCurrency is the currency list totals are also shown in. Empty or
	// equal to the base currency disables the extra line.
	UserCurrency string
}

type Tools struct {
	svc    *services.ExpenseService
	conv   Converter
	opts   Options
	logger *applog.Logger
}

func New(svc *services.ExpenseService, conv Converter, opts Options) *Tools {
	return &Tools{
		svc:    svc,
		conv:   conv,
		opts:   opts,
		logger: applog.Default(applog.ComponentTools),
	}
}

// Names lists the tools Call understands.
func Names() []string {
	names := []string{ToolAddExpense, ToolGetExpenses, ToolDeleteExpense, ToolUpdateExpense}
	sort.Strings(names)
	return names
}

// Call decodes args as the JSON parameters of the named tool and runs it.
// An error is returned only for an unknown tool or undecodable arguments;
// every other outcome is in the reply text.
func (t *Tools) Call(ctx context.Context, name string, args []byte) (string, error) {
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}
	switch name {
	case ToolAddExpense:
		var in AddInput
		if err := decode(args, &in); err != nil {
			return "", err
		}
		return t.AddExpense(ctx, in), nil
	case ToolGetExpenses:
		var in GetInput
		if err := decode(args, &in); err != nil {
			return "", err
		}
		return t.GetExpenses(ctx, in), nil
	case ToolDeleteExpense:
		var in DeleteInput
		if err := decode(args, &in); err != nil {
			return "", err
		}
		return t.DeleteExpense(ctx, in), nil
	case ToolUpdateExpense:
		var in UpdateInput
		if err := decode(args, &in); err != nil {
			return "", err
		}
		return t.UpdateExpense(ctx, in), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

func decode(args []byte, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// guard turns a panic inside op into a failure reply.
func (t *Tools) guard(ctx context.Context, op string, reply *string) {
	if r := recover(); r != nil {
		t.logger.ErrorContext(ctx, "Tool panicked", applog.FieldOperation, op, "panic", r)
		*reply = failure(op, errors.New("internal error"))
	}
}

// Operation phrases used in failure replies.
const (
	opAdd    = "add expense"
	opGet    = "get expenses"
	opDelete = "delete expense"
	opUpdate = "update expense"
)

func failure(op string, err error) string {
	return fmt.Sprintf("Failed to %s: %v", op, err)
}
