package classify

import (
	"strings"

	"expensetool/internal/vocab"
)

var tokenReplacer = strings.NewReplacer(" ", "_", "-", "_")

func paymentToken(s string) string {
	return tokenReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// NormalizePaymentMethod maps candidate to a canonical payment method.
// Unknown or empty input resolves to cash, not "other".
func NormalizePaymentMethod(candidate string) string {
	tok := paymentToken(candidate)
	if tok == "" {
		return vocab.Cash
	}
	if canonical, ok := vocab.PaymentMethodAliases[tok]; ok {
		return canonical
	}
	if vocab.IsPaymentMethod(tok) {
		return tok
	}
	return vocab.Cash
}

// InferPaymentSubcategory searches the raw payment input and the
// description for a keyword of the resolved method's group. It returns ""
// when nothing matches or the method has no subcategories.
func InferPaymentSubcategory(method, original, description string) string {
	rules, ok := paymentSubcategoryRules[method]
	if !ok {
		return ""
	}
	text := strings.ToLower(original + " " + description)
	if target, ok := matchRules(rules, text, nil); ok && vocab.IsPaymentSubcategory(method, target) {
		return target
	}
	return ""
}

// NormalizePaymentSubcategory returns the canonical form of a caller
// supplied payment subcategory, or "" when it is not valid for method.
func NormalizePaymentSubcategory(method, candidate string) string {
	tok := paymentToken(candidate)
	if tok == "" {
		return ""
	}
	if vocab.IsPaymentSubcategory(method, tok) {
		return tok
	}
	// google_pay is itself canonical under mobile_wallet, so aliases apply
	// only after the direct lookup fails.
	if canonical, ok := vocab.PaymentSubcategoryAliases[tok]; ok && vocab.IsPaymentSubcategory(method, canonical) {
		return canonical
	}
	return ""
}
