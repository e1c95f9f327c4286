package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"expensetool/internal/core"
)

type fixedConverter struct {
	rates map[string]float64
}

func (c fixedConverter) Base() string { return "USD" }

func (c fixedConverter) ConvertToBase(_ context.Context, amount float64, from string) (float64, float64) {
	if from == "USD" {
		return amount, 1.0
	}
	rate, ok := c.rates[from]
	if !ok {
		rate = 1.0
	}
	return core.MulRound2(amount, rate), rate
}

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func newTestPipeline() *Pipeline {
	conv := fixedConverter{rates: map[string]float64{"INR": 0.012, "EUR": 1.09, "JPY": 0.0067}}
	return New(conv, WithClock(func() time.Time { return fixedNow }))
}

func ptr[T any](v T) *T { return &v }

func TestBuildEndToEnd(t *testing.T) {
	p := newTestPipeline()
	e, notes, err := p.Build(context.Background(), core.Draft{
		UserID:        "default_user",
		Amount:        800,
		Currency:      "INR",
		Category:      "groceries",
		Description:   "Bought groceries",
		PaymentMethod: "gpay",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if e.Category != "food" || e.Subcategory != "groceries" {
		t.Errorf("category = %s > %s, want food > groceries", e.Category, e.Subcategory)
	}
	if e.PaymentMethod != "upi" || e.PaymentSubcategory != "gpay" {
		t.Errorf("payment = %s (%s), want upi (gpay)", e.PaymentMethod, e.PaymentSubcategory)
	}
	if e.Amount != core.MulRound2(800, 0.012) || e.ExchangeRate != 0.012 {
		t.Errorf("amount = %v at %v", e.Amount, e.ExchangeRate)
	}
	if e.OriginalAmount != 800 || e.OriginalCurrency != "INR" || e.UserCurrency != "INR" {
		t.Errorf("original = %v %s (user %s)", e.OriginalAmount, e.OriginalCurrency, e.UserCurrency)
	}
	if !e.Date.Equal(fixedNow) {
		t.Errorf("date = %v, want now", e.Date)
	}
	if len(notes) != 1 || !strings.Contains(notes[0], "groceries") {
		t.Errorf("expected a single category correction note, got %v", notes)
	}
}

func TestBuildRejectsStructurallyInvalidInput(t *testing.T) {
	base := core.Draft{UserID: "u", Amount: 10, Description: "coffee"}

	tests := []struct {
		name   string
		mutate func(*core.Draft)
		want   error
	}{
		{"zero amount", func(d *core.Draft) { d.Amount = 0 }, core.ErrInvalidAmount},
		{"negative amount", func(d *core.Draft) { d.Amount = -5 }, core.ErrInvalidAmount},
		{"nan amount", func(d *core.Draft) { d.Amount = math.NaN() }, core.ErrInvalidAmount},
		{"empty description", func(d *core.Draft) { d.Description = "   " }, core.ErrEmptyDescription},
		{"long description", func(d *core.Draft) { d.Description = strings.Repeat("a", 501) }, core.ErrDescriptionTooLong},
		{"empty user", func(d *core.Draft) { d.UserID = "" }, core.ErrEmptyUserID},
		{"bad frequency", func(d *core.Draft) { d.IsRecurring = true; d.RecurringFrequency = "hourly" }, core.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			if _, _, err := newTestPipeline().Build(context.Background(), d); !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildCorrectsVocabularyMismatches(t *testing.T) {
	p := newTestPipeline()
	e, notes, err := p.Build(context.Background(), core.Draft{
		UserID:        "u",
		Amount:        12.5,
		Currency:      "doubloons",
		Category:      "stuff",
		Description:   "something odd",
		PaymentMethod: "barter",
		Date:          "last tuesday",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Category != "other" || e.Subcategory != "other" {
		t.Errorf("category = %s > %s, want other > other", e.Category, e.Subcategory)
	}
	if e.PaymentMethod != "cash" || e.PaymentSubcategory != "" {
		t.Errorf("payment = %s (%s), want cash", e.PaymentMethod, e.PaymentSubcategory)
	}
	if e.OriginalCurrency != "USD" || e.ExchangeRate != 1.0 || e.Amount != 12.5 {
		t.Errorf("currency = %s rate %v amount %v", e.OriginalCurrency, e.ExchangeRate, e.Amount)
	}
	if !e.Date.Equal(fixedNow) {
		t.Errorf("malformed date must degrade to now, got %v", e.Date)
	}
	if len(notes) != 4 {
		t.Errorf("expected 4 notes, got %v", notes)
	}
}

func TestBuildKeepsValidClientSubcategories(t *testing.T) {
	p := newTestPipeline()
	e, _, err := p.Build(context.Background(), core.Draft{
		UserID:             "u",
		Amount:             4,
		Currency:           "euros",
		Category:           "food",
		Subcategory:        "Coffee",
		Description:        "Bought groceries",
		PaymentMethod:      "card",
		PaymentSubcategory: "visa_card",
		Tags:               []string{" Work ", ""},
		IsRecurring:        true,
		RecurringFrequency: "Weekly",
		Date:               "2026-01-02",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Subcategory != "coffee" {
		t.Errorf("subcategory = %q, want client-supplied coffee", e.Subcategory)
	}
	if e.PaymentMethod != "credit_card" || e.PaymentSubcategory != "visa" {
		t.Errorf("payment = %s (%s)", e.PaymentMethod, e.PaymentSubcategory)
	}
	if e.OriginalCurrency != "EUR" || e.Amount != 4.36 {
		t.Errorf("currency = %s amount = %v", e.OriginalCurrency, e.Amount)
	}
	if len(e.Tags) != 1 || e.Tags[0] != "work" {
		t.Errorf("tags = %v", e.Tags)
	}
	if e.RecurringFrequency != core.Weekly {
		t.Errorf("frequency = %q", e.RecurringFrequency)
	}
	if !e.Date.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", e.Date)
	}

	e, _, err = p.Build(context.Background(), core.Draft{
		UserID: "u", Amount: 4, Category: "food", Subcategory: "fuel", Description: "Bought groceries",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e.Subcategory != "groceries" {
		t.Errorf("invalid client subcategory must be re-inferred, got %q", e.Subcategory)
	}
}

func storedExpense() core.Expense {
	return core.Expense{
		ID:                 "e1",
		UserID:             "u",
		Amount:             9.6,
		OriginalAmount:     800,
		OriginalCurrency:   "INR",
		UserCurrency:       "INR",
		ExchangeRate:       0.012,
		Category:           "food",
		Subcategory:        "groceries",
		Description:        "Bought groceries",
		PaymentMethod:      "upi",
		PaymentSubcategory: "gpay",
		Date:               time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestApplyAmountKeepsStoredCurrency(t *testing.T) {
	patch, changes, err := newTestPipeline().Apply(context.Background(), storedExpense(), core.Changes{Amount: ptr(1000.0)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if patch.Amount == nil || *patch.Amount != 12 || *patch.OriginalCurrency != "INR" || *patch.ExchangeRate != 0.012 {
		t.Fatalf("unexpected patch %+v", patch)
	}
	if patch.Category != nil || patch.Description != nil {
		t.Error("untouched groups must not be patched")
	}
	if len(changes) != 1 || changes[0].From != "₹800.00" || changes[0].To != "₹1000.00" {
		t.Errorf("changes = %+v", changes)
	}
}

func TestApplyCurrencyOnlyReconverts(t *testing.T) {
	patch, _, err := newTestPipeline().Apply(context.Background(), storedExpense(), core.Changes{Currency: ptr("usd")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *patch.Amount != 800 || *patch.ExchangeRate != 1.0 || *patch.OriginalAmount != 800 {
		t.Fatalf("unexpected patch %+v", patch)
	}
	if patch.UserCurrency == nil || *patch.UserCurrency != "USD" {
		t.Errorf("user currency not moved with the amount: %v", patch.UserCurrency)
	}
	if got := patch.ApplyTo(storedExpense()); got.UserCurrency != "USD" || got.OriginalCurrency != "USD" {
		t.Errorf("applied currencies = %s/%s", got.OriginalCurrency, got.UserCurrency)
	}
}

func TestApplyAmountOnlyLeavesUserCurrency(t *testing.T) {
	patch, _, err := newTestPipeline().Apply(context.Background(), storedExpense(), core.Changes{Amount: ptr(900.0)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if patch.UserCurrency != nil {
		t.Errorf("user currency patched to %q without a currency change", *patch.UserCurrency)
	}
}

func TestApplyCategoryReinfersFromExistingDescription(t *testing.T) {
	e := storedExpense()
	e.Description = "uber ride home"
	e.Category, e.Subcategory = "other", "other"

	patch, changes, err := newTestPipeline().Apply(context.Background(), e, core.Changes{Category: ptr("transport")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *patch.Category != "transport" || *patch.Subcategory != "taxi" {
		t.Fatalf("patch = %v > %v", *patch.Category, *patch.Subcategory)
	}
	if len(changes) != 2 {
		t.Errorf("changes = %+v", changes)
	}
}

func TestApplyPaymentReinfersSubcategory(t *testing.T) {
	patch, _, err := newTestPipeline().Apply(context.Background(), storedExpense(), core.Changes{PaymentMethod: ptr("amex")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *patch.PaymentMethod != "credit_card" || *patch.PaymentSubcategory != "amex" {
		t.Fatalf("patch = %v (%v)", *patch.PaymentMethod, *patch.PaymentSubcategory)
	}
}

func TestApplyNoDiff(t *testing.T) {
	ch := core.Changes{
		Amount:        ptr(800.0),
		Category:      ptr("food"),
		Description:   ptr(" Bought groceries "),
		PaymentMethod: ptr("gpay"),
		Date:          ptr("2026-01-02"),
	}
	patch, changes, err := newTestPipeline().Apply(context.Background(), storedExpense(), ch)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !patch.Empty() || len(changes) != 0 {
		t.Fatalf("expected no diff, got %+v %+v", patch, changes)
	}
}

func TestApplyRejectsInvalidValues(t *testing.T) {
	p := newTestPipeline()
	if _, _, err := p.Apply(context.Background(), storedExpense(), core.Changes{Amount: ptr(-1.0)}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, _, err := p.Apply(context.Background(), storedExpense(), core.Changes{Description: ptr("")}); !errors.Is(err, core.ErrEmptyDescription) {
		t.Errorf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestAmountTooSmallForBaseCurrency(t *testing.T) {
	p := newTestPipeline()
	_, _, err := p.Build(context.Background(), core.Draft{
		UserID:      "default_user",
		Amount:      0.4,
		Currency:    "JPY",
		Description: "candy",
	})
	if !errors.Is(err, core.ErrAmountTooSmall) {
		t.Fatalf("Build error = %v, want ErrAmountTooSmall", err)
	}
	if err.Error() != "amount too small to record in USD" {
		t.Errorf("Build error = %q", err.Error())
	}

	_, _, err = p.Apply(context.Background(), storedExpense(), core.Changes{Amount: ptr(0.4), Currency: ptr("JPY")})
	if !errors.Is(err, core.ErrAmountTooSmall) {
		t.Errorf("Apply error = %v, want ErrAmountTooSmall", err)
	}
}

func TestApplyMalformedDateUsesNow(t *testing.T) {
	patch, changes, err := newTestPipeline().Apply(context.Background(), storedExpense(), core.Changes{Date: ptr("soon")})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if patch.Date == nil || !patch.Date.Equal(fixedNow) {
		t.Fatalf("date patch = %v", patch.Date)
	}
	if len(changes) != 1 || changes[0].To != "Oct 19, 2026" {
		t.Errorf("changes = %+v", changes)
	}
}
