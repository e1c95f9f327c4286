// Package vocab holds the closed vocabularies an expense is normalized
// against: categories, payment methods, their subcategories and aliases,
// and the supported currencies.
//
// Everything here is static data. Lookups are case-sensitive on canonical
// identifiers; callers normalize input first.
package vocab

// Other is the catch-all category and the subcategory sentinel.
const Other = "other"

// Cash is the default payment method.
const Cash = "cash"

// Categories in declaration order.
var Categories = []string{
	"food",
	"transport",
	"education",
	"entertainment",
	"shopping",
	"utilities",
	"healthcare",
	"housing",
	"personal",
	Other,
}

// Subcategories per category, in match order. The Other sentinel is
// implied for every category and is not listed.
var Subcategories = map[string][]string{
	"food":          {"groceries", "restaurants", "fast_food", "coffee", "snacks"},
	"transport":     {"fuel", "taxi", "bus", "train", "parking", "maintenance"},
	"education":     {"books", "courses", "tuition", "supplies", "online_learning"},
	"entertainment": {"movies", "games", "music", "hobbies", "events", "subscriptions"},
	"shopping":      {"clothes", "electronics", "home", "gifts", "accessories"},
	"utilities":     {"electricity", "water", "gas", "internet", "phone"},
	"healthcare":    {"doctor", "medicine", "insurance", "dental", "vision"},
	"housing":       {"rent", "mortgage", "maintenance", "furniture", "repairs"},
	"personal":      {"haircut", "gym", "cosmetics", "spa"},
	Other:           {},
}

// PaymentMethods in declaration order.
var PaymentMethods = []string{
	Cash,
	"credit_card",
	"debit_card",
	"upi",
	"bank_transfer",
	"mobile_wallet",
	"check",
	"crypto",
	Other,
}

// PaymentSubcategories per payment method. Methods mapped to an empty
// list never carry a payment subcategory.
var PaymentSubcategories = map[string][]string{
	Cash:            {},
	"credit_card":   {"visa", "mastercard", "amex", "discover", "rupay"},
	"debit_card":    {"visa", "mastercard", "rupay", "maestro"},
	"upi":           {"gpay", "phonepe", "paytm", "bhim"},
	"bank_transfer": {"neft", "rtgs", "imps"},
	"mobile_wallet": {"paypal", "apple_pay", "google_pay", "amazon_pay", "paytm_wallet"},
	"check":         {},
	"crypto":        {"bitcoin", "ethereum", "usdt"},
	Other:           {},
}

// PaymentMethodAliases maps informal tokens to a canonical payment method.
// Keys are already lowercased with spaces and hyphens replaced by '_'.
var PaymentMethodAliases = map[string]string{
	"google_pay": "upi",
	"googlepay":  "upi",
	"gpay":       "upi",
	"g_pay":      "upi",
	"phonepe":    "upi",
	"phone_pe":   "upi",
	"paytm":      "upi",
	"bhim":       "upi",

	"card":       "credit_card",
	"cc":         "credit_card",
	"credit":     "credit_card",
	"visa":       "credit_card",
	"mastercard": "credit_card",
	"amex":       "credit_card",

	"debit": "debit_card",
	"dc":    "debit_card",

	"digital": "mobile_wallet",
	"wallet":  "mobile_wallet",
	"paypal":  "mobile_wallet",

	"online":   "bank_transfer",
	"bank":     "bank_transfer",
	"transfer": "bank_transfer",
	"neft":     "bank_transfer",
	"rtgs":     "bank_transfer",
	"imps":     "bank_transfer",

	"cheque": "check",
}

// PaymentSubcategoryAliases maps informal payment subcategory tokens to a
// canonical one.
var PaymentSubcategoryAliases = map[string]string{
	"google_pay":       "gpay",
	"googlepay":        "gpay",
	"phone_pe":         "phonepe",
	"visa_card":        "visa",
	"master_card":      "mastercard",
	"american_express": "amex",
	"bank_transfer":    "neft",
	"online_transfer":  "imps",
}

var (
	categorySet      = toSet(Categories)
	paymentMethodSet = toSet(PaymentMethods)
)

// IsCategory reports whether c is a canonical category.
func IsCategory(c string) bool {
	_, ok := categorySet[c]
	return ok
}

// IsSubcategory reports whether sub is valid for category. The Other
// sentinel is valid for every known category.
func IsSubcategory(category, sub string) bool {
	subs, ok := Subcategories[category]
	if !ok {
		return false
	}
	if sub == Other {
		return true
	}
	return contains(subs, sub)
}

// IsPaymentMethod reports whether m is a canonical payment method.
func IsPaymentMethod(m string) bool {
	_, ok := paymentMethodSet[m]
	return ok
}

// IsPaymentSubcategory reports whether sub is listed for method.
func IsPaymentSubcategory(method, sub string) bool {
	return contains(PaymentSubcategories[method], sub)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func contains(items []string, target string) bool {
	for _, it := range items {
		if it == target {
			return true
		}
	}
	return false
}
