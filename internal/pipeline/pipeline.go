// Package pipeline turns raw expense input into normalized records and
// computes the partial patches applied by updates.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"expensetool/internal/classify"
	"expensetool/internal/core"
	"expensetool/internal/vocab"
)

// Converter is the slice of currency.Converter the pipeline needs.
type Converter interface {
	ConvertToBase(ctx context.Context, amount float64, from string) (float64, float64)
	Base() string
}

// Notes are informational messages about input that was corrected rather
// than rejected.
type Notes []string

// Change describes one field an update modified, rendered for display.
type Change struct {
	Field string
	From  string
	To    string
}

// Pipeline builds normalized expenses. It holds no mutable state of its own.
type Pipeline struct {
	conv   Converter
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the time source used for missing or malformed dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func New(conv Converter, opts ...Option) *Pipeline {
	p := &Pipeline{conv: conv, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build validates the structural fields of d and resolves everything else
// against the vocabularies. Only a non-positive amount, an empty or
// overlong description, an empty user id or an unknown recurring frequency
// are rejected.
func (p *Pipeline) Build(ctx context.Context, d core.Draft) (core.Expense, Notes, error) {
	var notes Notes

	userID := strings.TrimSpace(d.UserID)
	if userID == "" {
		return core.Expense{}, nil, core.ErrEmptyUserID
	}
	if err := checkAmount(d.Amount); err != nil {
		return core.Expense{}, nil, err
	}
	desc, err := core.ValidateDescription(d.Description)
	if err != nil {
		return core.Expense{}, nil, err
	}
	freq, err := core.ParseFrequency(d.RecurringFrequency)
	if err != nil {
		return core.Expense{}, nil, err
	}
	if !d.IsRecurring {
		freq = ""
	}

	category := classify.ResolveCategory(d.Category, desc)
	if c := strings.ToLower(strings.TrimSpace(d.Category)); c != "" && c != category {
		notes = append(notes, fmt.Sprintf("category %q corrected to %q", d.Category, category))
	}

	var subcategory string
	if classify.ValidSubcategory(category, d.Subcategory) {
		subcategory = strings.ToLower(strings.TrimSpace(d.Subcategory))
	} else {
		subcategory = classify.ResolveSubcategory(category, desc)
	}

	method := classify.NormalizePaymentMethod(d.PaymentMethod)
	if strings.TrimSpace(d.PaymentMethod) != "" && method == vocab.Cash && !strings.EqualFold(strings.TrimSpace(d.PaymentMethod), vocab.Cash) {
		notes = append(notes, fmt.Sprintf("payment method %q not recognised, recorded as cash", d.PaymentMethod))
	}
	paymentSub := classify.NormalizePaymentSubcategory(method, d.PaymentSubcategory)
	if paymentSub == "" {
		paymentSub = classify.InferPaymentSubcategory(method, d.PaymentMethod, desc)
	}

	currency, ok := vocab.NormalizeCurrency(d.Currency)
	if !ok {
		notes = append(notes, fmt.Sprintf("currency %q not supported, recorded as %s", d.Currency, currency))
	}
	amount, rate := p.conv.ConvertToBase(ctx, d.Amount, currency)
	if amount <= 0 {
		return core.Expense{}, nil, p.tooSmall()
	}

	date, malformed := core.ResolveDate(d.Date, p.now())
	if malformed {
		notes = append(notes, fmt.Sprintf("date %q not understood, using today", d.Date))
	}

	e := core.Expense{
		UserID:             userID,
		Amount:             amount,
		OriginalAmount:     d.Amount,
		OriginalCurrency:   currency,
		UserCurrency:       currency,
		ExchangeRate:       rate,
		Category:           category,
		Subcategory:        subcategory,
		Description:        desc,
		PaymentMethod:      method,
		PaymentSubcategory: paymentSub,
		Date:               date,
		Tags:               core.NormalizeTags(d.Tags),
		IsRecurring:        d.IsRecurring,
		RecurringFrequency: freq,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, nil, fmt.Errorf("normalized expense invalid: %w", err)
	}

	for _, n := range notes {
		p.logger.DebugContext(ctx, "Expense input corrected", "note", n)
	}
	return e, notes, nil
}

// Apply recomputes the field groups named in ch against the stored record
// and returns the patch to persist plus the visible changes. Groups are
// amount with currency, category (re-inferring the subcategory), the
// description, the payment method (re-inferring its subcategory) and the
// date. Fields that end up equal to the stored value are left out.
func (p *Pipeline) Apply(ctx context.Context, existing core.Expense, ch core.Changes) (core.Patch, []Change, error) {
	var (
		patch   core.Patch
		changes []Change
	)

	desc := existing.Description
	if ch.Description != nil {
		d, err := core.ValidateDescription(*ch.Description)
		if err != nil {
			return core.Patch{}, nil, err
		}
		if d != existing.Description {
			patch.Description = &d
			changes = append(changes, Change{"description", existing.Description, d})
		}
		desc = d
	}

	if ch.Amount != nil || ch.Currency != nil {
		amt := existing.OriginalAmount
		if ch.Amount != nil {
			if err := checkAmount(*ch.Amount); err != nil {
				return core.Patch{}, nil, err
			}
			amt = *ch.Amount
		}
		cur := existing.OriginalCurrency
		if ch.Currency != nil {
			cur, _ = vocab.NormalizeCurrency(*ch.Currency)
		}
		if amt != existing.OriginalAmount || cur != existing.OriginalCurrency {
			converted, rate := p.conv.ConvertToBase(ctx, amt, cur)
			if converted <= 0 {
				return core.Patch{}, nil, p.tooSmall()
			}
			patch.Amount, patch.OriginalAmount = &converted, &amt
			patch.OriginalCurrency, patch.ExchangeRate = &cur, &rate
			if cur != existing.UserCurrency {
				patch.UserCurrency = &cur
			}
			changes = append(changes, Change{
				"amount",
				vocab.FormatAmount(existing.OriginalCurrency, existing.OriginalAmount),
				vocab.FormatAmount(cur, amt),
			})
		}
	}

	if ch.Category != nil {
		category := classify.ResolveCategory(*ch.Category, desc)
		sub := classify.ResolveSubcategory(category, desc)
		if category != existing.Category {
			patch.Category = &category
			changes = append(changes, Change{"category", existing.Category, category})
		}
		if sub != existing.Subcategory {
			patch.Subcategory = &sub
			changes = append(changes, Change{"subcategory", existing.Subcategory, sub})
		}
	}

	if ch.PaymentMethod != nil {
		method := classify.NormalizePaymentMethod(*ch.PaymentMethod)
		sub := classify.InferPaymentSubcategory(method, *ch.PaymentMethod, desc)
		if method != existing.PaymentMethod {
			patch.PaymentMethod = &method
			changes = append(changes, Change{"payment_method", existing.PaymentMethod, method})
		}
		if sub != existing.PaymentSubcategory {
			patch.PaymentSubcategory = &sub
			changes = append(changes, Change{"payment_subcategory", orNone(existing.PaymentSubcategory), orNone(sub)})
		}
	}

	if ch.Date != nil {
		date, malformed := core.ResolveDate(*ch.Date, p.now())
		if malformed {
			p.logger.DebugContext(ctx, "Update date not understood, using today", "date", *ch.Date)
		}
		if !date.Equal(existing.Date) {
			patch.Date = &date
			changes = append(changes, Change{"date", existing.Date.Format(DisplayDateLayout), date.Format(DisplayDateLayout)})
		}
	}

	if !patch.Empty() {
		if err := patch.ApplyTo(existing).Validate(); err != nil {
			return core.Patch{}, nil, fmt.Errorf("updated expense invalid: %w", err)
		}
	}
	return patch, changes, nil
}

// DisplayDateLayout is how dates are shown to users.
const DisplayDateLayout = "Jan 02, 2006"

func checkAmount(a float64) error {
	if a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return core.ErrInvalidAmount
	}
	return nil
}

// tooSmall reports an amount that rounds to zero cents in the base currency.
func (p *Pipeline) tooSmall() error {
	return fmt.Errorf("%w in %s", core.ErrAmountTooSmall, p.conv.Base())
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
