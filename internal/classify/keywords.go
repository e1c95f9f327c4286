package classify

// keywordRule maps any of a set of substrings to a single target identifier.
type keywordRule struct {
	target   string
	keywords []string
}

// categoryKeywords is evaluated top to bottom; the first category with a
// matching keyword wins. Order matters: "lunch then uber ride" is food.
var categoryKeywords = []keywordRule{
	{"food", []string{
		"grocery", "groceries", "food", "restaurant", "cafe", "coffee",
		"lunch", "dinner", "breakfast", "meal", "pizza", "burger", "snack", "dining",
	}},
	{"transport", []string{
		"fuel", "petrol", "diesel", "taxi", "uber", "ola", "bus", "train",
		"metro", "parking", "ride", "transport", "cab",
	}},
	{"healthcare", []string{
		"doctor", "hospital", "clinic", "medicine", "pharmacy", "medical",
		"health", "dentist", "dental", "checkup",
	}},
	{"utilities", []string{
		"electricity", "electric", "power", "internet", "wifi", "water",
		"phone", "mobile", "bill", "utility",
	}},
	{"entertainment", []string{
		"movie", "cinema", "netflix", "spotify", "prime", "game", "concert",
		"show", "entertainment", "music", "film",
	}},
	{"education", []string{
		"book", "course", "class", "tuition", "school", "college", "education",
		"learning", "study",
	}},
	{"shopping", []string{
		"clothes", "shirt", "pants", "dress", "shoes", "laptop", "electronics",
		"gift", "shopping", "mall",
	}},
	{"housing", []string{"rent", "mortgage", "furniture", "repair", "home", "house"}},
	{"personal", []string{"haircut", "salon", "barber", "gym", "fitness", "spa"}},
}

// categoryWords are category keywords too short to match as substrings
// ("ate" is inside "water", "dr" inside "drink"). They match whole words only
// and are checked together with the category's substring keywords.
var categoryWords = map[string][]string{
	"food":       {"eat", "ate"},
	"transport":  {"gas"},
	"healthcare": {"dr"},
}

// subcategoryRules holds the last-resort keyword rules per category,
// evaluated in order after exact and singular/plural matching fail.
var subcategoryRules = map[string][]keywordRule{
	"food": {
		{"restaurants", []string{"restaurant", "lunch", "dinner", "ate", "dining", "dine"}},
		{"groceries", []string{"grocery", "groceries", "vegetable", "fruit", "supermarket", "veggies"}},
		{"fast_food", []string{"fast food", "fastfood", "burger", "pizza", "mcdonald", "kfc", "dominos"}},
		{"coffee", []string{"coffee", "cafe", "starbucks", "ccd", "espresso", "latte"}},
		{"snacks", []string{"snack", "chips", "biscuit", "cookie"}},
	},
	"transport": {
		{"fuel", []string{"petrol", "diesel", "filled", "gas"}},
		{"taxi", []string{"uber", "ola", "cab", "taxi"}},
		{"train", []string{"metro", "subway"}},
	},
	"healthcare": {
		{"doctor", []string{"dr", "dr.", "clinic", "checkup", "hospital", "physician"}},
		{"medicine", []string{"pharmacy", "drug", "tablet", "pill", "medication", "med"}},
		{"dental", []string{"dentist", "dental", "teeth", "tooth"}},
		{"vision", []string{"eye", "glasses", "vision", "optical"}},
	},
	"utilities": {
		{"electricity", []string{"electric", "power", "current"}},
		{"internet", []string{"wifi", "broadband", "internet"}},
		{"phone", []string{"mobile", "cellular"}},
	},
	"entertainment": {
		{"movies", []string{"movie", "film", "cinema", "theatre", "theater"}},
		{"games", []string{"game", "gaming", "videogame", "video game"}},
		{"subscriptions", []string{"netflix", "prime", "spotify", "subscription"}},
		{"events", []string{"concert", "show", "event", "festival"}},
	},
	"education": {
		{"books", []string{"book", "textbook", "novel"}},
		{"courses", []string{"course", "class", "training", "workshop"}},
		{"tuition", []string{"tuition", "fee", "school"}},
	},
	"shopping": {
		{"clothes", []string{"shirt", "pants", "dress", "clothes", "clothing", "jeans"}},
		{"electronics", []string{"laptop", "computer", "phone", "electronics", "gadget"}},
		{"gifts", []string{"gift", "present"}},
	},
	"personal": {
		{"haircut", []string{"haircut", "barber", "salon", "hair"}},
		{"gym", []string{"gym", "fitness", "workout"}},
		{"spa", []string{"spa", "massage"}},
	},
}

// paymentSubcategoryRules are the per-method keyword groups searched in the
// payment input and description.
var paymentSubcategoryRules = map[string][]keywordRule{
	"upi": {
		{"gpay", []string{"google pay", "googlepay", "google_pay", "gpay", "g pay", "g-pay", "g_pay"}},
		{"phonepe", []string{"phonepe", "phone pe", "phone_pe"}},
		{"paytm", []string{"paytm"}},
		{"bhim", []string{"bhim"}},
	},
	"credit_card": {
		{"visa", []string{"visa"}},
		{"mastercard", []string{"mastercard", "master card", "master"}},
		{"amex", []string{"amex", "american express"}},
		{"discover", []string{"discover"}},
		{"rupay", []string{"rupay"}},
	},
	"debit_card": {
		{"visa", []string{"visa"}},
		{"mastercard", []string{"mastercard", "master card", "master"}},
		{"rupay", []string{"rupay"}},
		{"maestro", []string{"maestro"}},
	},
	"bank_transfer": {
		{"neft", []string{"neft"}},
		{"rtgs", []string{"rtgs"}},
		{"imps", []string{"imps"}},
	},
	"mobile_wallet": {
		{"paypal", []string{"paypal"}},
		{"apple_pay", []string{"apple pay", "applepay", "apple_pay"}},
		{"google_pay", []string{"google pay", "google_pay"}},
		{"amazon_pay", []string{"amazon pay", "amazon_pay", "amazonpay"}},
		{"paytm_wallet", []string{"paytm"}},
	},
	"crypto": {
		{"bitcoin", []string{"bitcoin", "btc"}},
		{"ethereum", []string{"ethereum", "eth"}},
		{"usdt", []string{"usdt", "tether"}},
	},
}
