// Package core provides the expense domain types together with money and
// date helpers.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Round2 rounds x to two decimal places, half away from zero, on its
// decimal representation. Plain float math would store 150*0.012 as 1.79.
func Round2(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}

// MulRound2 returns round2(amount * rate) computed in decimal arithmetic.
func MulRound2(amount, rate float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Round(2).Float64()
	return f
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the accepted expense date layouts. Values without a
// zone are taken as UTC. The result is always in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ResolveDate returns the parsed date, or now when s is empty or
// malformed. The flag reports whether s was malformed.
func ResolveDate(s string, now time.Time) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return now.UTC(), false
	}
	t, err := ParseDate(s)
	if err != nil {
		return now.UTC(), true
	}
	return t, false
}
