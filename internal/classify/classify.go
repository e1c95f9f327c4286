// Package classify resolves loosely specified category and payment input
// to the closed vocabularies in package vocab.
//
// Every resolver is total: unrecognised input is corrected to a default
// member, never rejected.
package classify

import (
	"strings"
	"unicode"

	"expensetool/internal/vocab"
)

// ResolveCategory returns candidate when it is a known category, otherwise
// the first category whose keywords occur in description, otherwise "other".
func ResolveCategory(candidate, description string) string {
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c != "" && vocab.IsCategory(c) {
		return c
	}
	if target, ok := matchRules(categoryKeywords, strings.ToLower(description), categoryWords); ok {
		return target
	}
	return vocab.Other
}

// ResolveSubcategory infers the subcategory of category from description.
// It tries, in order: the subcategory name as a substring, its singular
// forms, and the category's keyword rules. The result is always a member
// of vocab.Subcategories[category] or "other".
func ResolveSubcategory(category, description string) string {
	subs := vocab.Subcategories[category]
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" || len(subs) == 0 {
		return vocab.Other
	}

	for _, sub := range subs {
		if strings.Contains(desc, sub) {
			return sub
		}
	}

	for _, sub := range subs {
		for _, form := range singularForms(sub) {
			if strings.Contains(desc, form) {
				return sub
			}
		}
	}

	if target, ok := matchRules(subcategoryRules[category], desc, nil); ok && vocab.IsSubcategory(category, target) {
		return target
	}
	return vocab.Other
}

// ValidSubcategory reports whether a caller-supplied subcategory may be
// kept as-is for category.
func ValidSubcategory(category, sub string) bool {
	sub = strings.ToLower(strings.TrimSpace(sub))
	return sub != "" && vocab.IsSubcategory(category, sub)
}

// singularForms returns the candidate singular spellings of a plural
// subcategory name in rule order: trailing "s", "ies" to "y", trailing "es".
func singularForms(sub string) []string {
	var forms []string
	if strings.HasSuffix(sub, "s") && len(sub) > 2 {
		forms = append(forms, sub[:len(sub)-1])
	}
	if strings.HasSuffix(sub, "ies") && len(sub) > 4 {
		forms = append(forms, sub[:len(sub)-3]+"y")
	}
	if strings.HasSuffix(sub, "es") && len(sub) > 3 {
		forms = append(forms, sub[:len(sub)-2])
	}
	return forms
}

// matchRules returns the target of the first rule with a keyword contained
// in text, or with one of words[target] present as a whole word.
func matchRules(rules []keywordRule, text string, words map[string][]string) (string, bool) {
	if text == "" {
		return "", false
	}
	var tokens map[string]bool
	if len(words) > 0 {
		tokens = wordSet(text)
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.target, true
			}
		}
		for _, w := range words[r.target] {
			if tokens[w] {
				return r.target, true
			}
		}
	}
	return "", false
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[f] = true
	}
	return set
}
