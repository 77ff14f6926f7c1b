// Package niche tags videos with topical niches based on keyword matching
// over the title and channel name.
package niche

import "strings"

// Definition is one niche: a display name plus the keyword phrases that
// signal it.
type Definition struct {
	Name     string
	Keywords []string
}

// Niches is the fixed, ordered list of niche definitions. Matching is
// evaluated in declaration order and matched names are returned in that
// order.
var Niches = []Definition{
	{
		Name: "Luxury Houses / Real Estate",
		Keywords: []string{
			"luxury home", "luxury house", "mansion", "villa", "penthouse",
			"estate tour", "house tour", "property tour", "architectural digest",
			"real estate", "dream home", "modern house", "interior design",
			"architecture tour", "luxury property", "luxury estate", "luxury real estate",
			"luxury residence", "million dollar", "expensive house", "expensive home",
			"luxury apartment", "luxury condo", "waterfront property", "beachfront",
			"luxury listing", "property showcase", "home design", "luxury interior",
		},
	},
	{
		Name: "Engineering",
		Keywords: []string{
			"engineering", "mechanical", "electrical", "civil engineering",
			"structural", "cad", "solidworks", "autocad", "robotics", "cnc",
			"manufacturing", "aerospace", "automation", "control systems",
			"thermodynamics",
		},
	},
	{
		Name: "Pets",
		Keywords: []string{
			"dog", "puppy", "cat", "kitten", "pet", "pets", "training", "vet",
			"grooming", "rescue", "hamster", "parrot", "aquarium",
		},
	},
	{
		Name: "Court / Law",
		Keywords: []string{
			"court", "trial", "judge", "lawsuit", "legal", "attorney", "lawyer",
			"prosecutor", "verdict", "sentencing", "supreme court",
		},
	},
	{
		Name: "Luxury (General)",
		Keywords: []string{
			"luxury", "premium", "high end", "exclusive", "bespoke",
			"limited edition", "collector", "luxury lifestyle", "ultra luxury",
			"luxury living", "opulent", "extravagant", "lavish", "prestige",
		},
	},
	{
		Name: "Luxury Women Clothing & Accessories",
		Keywords: []string{
			"chanel", "hermes", "dior", "louis vuitton", "lv", "gucci", "prada",
			"ysl", "balenciaga", "fendi", "burberry", "handbag", "purse", "heels",
			"jewelry", "accessories", "luxury fashion", "unboxing",
		},
	},
	{
		Name: "Stock Market / Investing",
		Keywords: []string{
			"stock", "stocks", "options", "earnings", "nasdaq", "nyse", "sp500",
			"etf", "investing", "trading", "technical analysis", "dividends",
		},
	},
	{
		Name: "Business",
		Keywords: []string{
			"business", "entrepreneur", "startup", "founder", "saas", "marketing",
			"sales", "strategy", "leadership", "side hustle",
		},
	},
	{
		Name: "Travel",
		Keywords: []string{
			"travel", "trip", "guide", "hotel", "resort", "itinerary", "vlog",
			"city tour", "luxury travel",
		},
	},
	{
		Name: "Automobiles",
		Keywords: []string{
			"car", "automotive", "test drive", "review", "supercar", "hypercar",
			"suv", "sedan",
		},
	},
	{
		Name: "Electric Vehicles",
		Keywords: []string{
			"ev", "electric vehicle", "tesla", "rivian", "lucid", "charging",
			"battery", "range test",
		},
	},
	{
		Name: "Website / SaaS Reviews",
		Keywords: []string{
			"website review", "ux", "ui", "landing page", "audit", "figma",
			"webflow", "shopify", "wordpress",
		},
	},
	{
		Name: "Make Money Online",
		Keywords: []string{
			"make money online", "mmo", "affiliate", "dropshipping", "amazon fba",
			"freelancing", "passive income",
		},
	},
	{
		Name: "Yachts",
		Keywords: []string{
			"yacht", "superyacht", "mega yacht", "catamaran", "sailing yacht",
			"marina",
		},
	},
	{
		Name: "Tech",
		Keywords: []string{
			"tech", "gadgets", "smartphone", "laptop", "cpu", "gpu", "ai",
			"chatgpt", "programming", "software",
		},
	},
	{
		Name: "Economy / Macro",
		Keywords: []string{
			"inflation", "interest rates", "fed", "ecb", "recession", "gdp",
			"bonds", "oil price", "forex",
		},
	},
	{
		Name: "History",
		Keywords: []string{
			"history", "ancient", "medieval", "ww2", "roman", "egypt",
			"documentary",
		},
	},
	{
		Name: "Football (Soccer)",
		Keywords: []string{
			"football", "soccer", "premier league", "champions league", "la liga",
			"bundesliga", "world cup",
		},
	},
	{
		Name: "High-Paying Meta Tags",
		Keywords: []string{
			"finance", "mortgage", "insurance", "tax", "cloud", "aws", "azure",
			"cybersecurity", "real estate", "legal", "luxury",
		},
	},
}

// Normalize lowercases the text and collapses every run of
// non-alphanumeric characters (underscore excluded) into a single space.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Classify returns the names of every niche whose keywords appear in the
// combined title and channel title. Matching is deliberately plain
// substring containment, not word-boundary aware: short keywords such as
// "ev" or "lv" match inside longer words, and that behavior is part of
// the classifier's contract. An empty slice means no niche matched.
func Classify(title, channelTitle string) []string {
	combined := Normalize(title + " " + channelTitle)
	var matched []string
	for _, def := range Niches {
		for _, keyword := range def.Keywords {
			if strings.Contains(combined, Normalize(keyword)) {
				matched = append(matched, def.Name)
				break
			}
		}
	}
	return matched
}
