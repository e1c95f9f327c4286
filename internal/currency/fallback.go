package currency

// fallbackToUSD holds approximate rates to USD used when the live source
// cannot be reached.
var fallbackToUSD = map[string]float64{
	"USD": 1.0,
	"INR": 0.012,
	"EUR": 1.09,
	"GBP": 1.27,
	"AUD": 0.65,
	"CAD": 0.74,
	"SGD": 0.74,
	"AED": 0.27,
	"JPY": 0.0067,
	"CNY": 0.14,
}

// FallbackRate returns an approximate from→to rate using the static table,
// expressed relative to base. Currencies missing from the table count as
// 1.0 against base. The result is always positive.
func FallbackRate(from, to, base string) float64 {
	if from == to {
		return 1.0
	}
	// The table is anchored on USD; re-anchor it on base.
	toBase := func(code string) float64 {
		r := tableRate(code)
		if b := tableRate(base); b > 0 {
			return r / b
		}
		return r
	}
	switch {
	case to == base:
		return toBase(from)
	case from == base:
		return 1 / toBase(to)
	default:
		return toBase(from) / toBase(to)
	}
}

func tableRate(code string) float64 {
	if r, ok := fallbackToUSD[code]; ok && r > 0 {
		return r
	}
	return 1.0
}
