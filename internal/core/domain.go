package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"expensetool/internal/vocab"
)

// MaxDescriptionLength bounds Expense.Description, counted in runes.
const MaxDescriptionLength = 500

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

type (
	RepetitionTypes string

	// Expense is a fully normalized expense record. Amount is in the base
	// currency; OriginalAmount is in OriginalCurrency.
	Expense struct {
		ID                 string
		UserID             string
		Amount             float64
		OriginalAmount     float64
		OriginalCurrency   string
		UserCurrency       string
		ExchangeRate       float64
		Category           string
		Subcategory        string
		Description        string
		PaymentMethod      string
		PaymentSubcategory string // empty when absent
		Date               time.Time
		Tags               []string
		IsRecurring        bool
		RecurringFrequency RepetitionTypes // empty unless IsRecurring
		CreatedAt          time.Time
		UpdatedAt          time.Time
	}

	// Draft is the raw, unvalidated input of an add request.
	Draft struct {
		UserID             string
		Amount             float64
		Currency           string
		Category           string
		Subcategory        string
		Description        string
		PaymentMethod      string
		PaymentSubcategory string
		Date               string
		Tags               []string
		IsRecurring        bool
		RecurringFrequency string
	}

	// Changes carries the optional new_* fields of an update request. A nil
	// pointer means the field was not supplied.
	Changes struct {
		Amount        *float64
		Currency      *string
		Category      *string
		Description   *string
		PaymentMethod *string
		Date          *string
	}

	// Patch is the partial set applied to a stored record. Only non-nil
	// fields are written.
	Patch struct {
		Amount             *float64
		OriginalAmount     *float64
		OriginalCurrency   *string
		UserCurrency       *string
		ExchangeRate       *float64
		Category           *string
		Subcategory        *string
		Description        *string
		PaymentMethod      *string
		PaymentSubcategory *string
		Date               *time.Time
	}
)

var (
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrAmountTooSmall            = errors.New("amount too small to record")
	ErrEmptyDescription          = errors.New("empty description")
	ErrDescriptionTooLong        = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrEmptyUserID               = errors.New("empty user id")
	ErrInvalidCategory           = errors.New("invalid category")
	ErrInvalidSubcategory        = errors.New("invalid subcategory")
	ErrInvalidPaymentMethod      = errors.New("invalid payment method")
	ErrInvalidPaymentSubcategory = errors.New("invalid payment subcategory")
	ErrInvalidCurrency           = errors.New("invalid currency")
	ErrInvalidRate               = errors.New("invalid exchange rate")
	ErrInvalidFrequency          = errors.New("invalid recurring frequency")
	ErrInvalidDate               = errors.New("invalid date")
)

// ParseFrequency returns the repetition type named by s. Empty input is
// accepted and yields "".
func ParseFrequency(s string) (RepetitionTypes, error) {
	f := RepetitionTypes(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "", Daily, Weekly, Monthly, Yearly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// ValidateDescription trims d and checks it is non-empty and within bounds.
func ValidateDescription(d string) (string, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return "", ErrEmptyDescription
	}
	if len([]rune(d)) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return d, nil
}

// NormalizeTags lowercases and trims tags and drops empty ones.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks every invariant of a normalized record.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if e.OriginalAmount <= 0 {
		return fmt.Errorf("original amount: %w", ErrInvalidAmount)
	}
	if _, err := ValidateDescription(e.Description); err != nil {
		return err
	}
	if !vocab.IsCurrency(e.OriginalCurrency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, e.OriginalCurrency)
	}
	if e.UserCurrency != "" && !vocab.IsCurrency(e.UserCurrency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, e.UserCurrency)
	}
	if e.ExchangeRate <= 0 {
		return ErrInvalidRate
	}
	if !vocab.IsCategory(e.Category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if e.Subcategory != "" && !vocab.IsSubcategory(e.Category, e.Subcategory) {
		return fmt.Errorf("%w: %q for %q", ErrInvalidSubcategory, e.Subcategory, e.Category)
	}
	if !vocab.IsPaymentMethod(e.PaymentMethod) {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, e.PaymentMethod)
	}
	if e.PaymentSubcategory != "" && !vocab.IsPaymentSubcategory(e.PaymentMethod, e.PaymentSubcategory) {
		return fmt.Errorf("%w: %q for %q", ErrInvalidPaymentSubcategory, e.PaymentSubcategory, e.PaymentMethod)
	}
	if _, err := ParseFrequency(string(e.RecurringFrequency)); err != nil {
		return err
	}
	return nil
}

// Empty reports whether no field of c was supplied.
func (c Changes) Empty() bool {
	return c.Amount == nil && c.Currency == nil && c.Category == nil &&
		c.Description == nil && c.PaymentMethod == nil && c.Date == nil
}

// Empty reports whether p sets nothing.
func (p Patch) Empty() bool {
	return p.Amount == nil && p.OriginalAmount == nil && p.OriginalCurrency == nil &&
		p.UserCurrency == nil && p.ExchangeRate == nil && p.Category == nil && p.Subcategory == nil &&
		p.Description == nil && p.PaymentMethod == nil && p.PaymentSubcategory == nil &&
		p.Date == nil
}

// ApplyTo returns e with the patch fields written over it.
func (p Patch) ApplyTo(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.OriginalAmount != nil {
		e.OriginalAmount = *p.OriginalAmount
	}
	if p.OriginalCurrency != nil {
		e.OriginalCurrency = *p.OriginalCurrency
	}
	if p.UserCurrency != nil {
		e.UserCurrency = *p.UserCurrency
	}
	if p.ExchangeRate != nil {
		e.ExchangeRate = *p.ExchangeRate
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Subcategory != nil {
		e.Subcategory = *p.Subcategory
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.PaymentSubcategory != nil {
		e.PaymentSubcategory = *p.PaymentSubcategory
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	return e
}
