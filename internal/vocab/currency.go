package vocab

import (
	"fmt"
	"strings"
)

// BaseCurrency is the currency every amount is stored in.
const BaseCurrency = "USD"

// Currencies lists the supported ISO codes.
var Currencies = []string{"INR", "USD", "EUR", "GBP", "AUD", "CAD", "SGD", "AED", "JPY", "CNY"}

// CurrencySymbols maps a currency code to its display glyph.
var CurrencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AUD": "A$",
	"CAD": "C$",
	"SGD": "S$",
	"AED": "د.إ",
	"JPY": "¥",
	"CNY": "¥",
}

// CurrencyNames maps spoken currency names to codes.
var CurrencyNames = map[string]string{
	"rupees":  "INR",
	"rupee":   "INR",
	"inr":     "INR",
	"rs":      "INR",
	"dollars": "USD",
	"dollar":  "USD",
	"usd":     "USD",
	"bucks":   "USD",
	"pounds":  "GBP",
	"pound":   "GBP",
	"gbp":     "GBP",
	"quid":    "GBP",
	"euros":   "EUR",
	"euro":    "EUR",
	"eur":     "EUR",
	"yen":     "JPY",
	"yuan":    "CNY",
}

var currencySet = toSet(Currencies)

// IsCurrency reports whether code is a supported currency code.
func IsCurrency(code string) bool {
	_, ok := currencySet[code]
	return ok
}

// NormalizeCurrency resolves a currency name or code to a supported code.
// The second return value is false when the input is not recognised, in
// which case the base currency is returned.
func NormalizeCurrency(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BaseCurrency, true
	}
	if code, ok := CurrencyNames[strings.ToLower(s)]; ok {
		return code, true
	}
	code := strings.ToUpper(s)
	if IsCurrency(code) {
		return code, true
	}
	return BaseCurrency, false
}

// Symbol returns the display glyph for code, or the code itself followed by
// a space when no glyph is known.
func Symbol(code string) string {
	if sym, ok := CurrencySymbols[code]; ok {
		return sym
	}
	return code + " "
}

// FormatAmount renders amount with the currency glyph and two decimals,
// e.g. "₹800.00".
func FormatAmount(code string, amount float64) string {
	return fmt.Sprintf("%s%.2f", Symbol(code), amount)
}
