package util

import "strings"

// Price tiers are presented to clients as strings of currency symbols
// ("$$" means tier 2). The tier is the symbol count.
const MaxPriceTier = 4

// ParsePriceTier converts a currency-symbol string to its tier
// ordinal. Returns 0 for an empty or malformed string, which callers
// treat as "no price filter".
func ParsePriceTier(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r != '$' && r != '₩' {
			return 0
		}
	}
	tier := len([]rune(s))
	if tier > MaxPriceTier {
		return 0
	}
	return tier
}

// PriceSymbol renders a tier ordinal back to its display string.
func PriceSymbol(tier int) string {
	if tier < 1 || tier > MaxPriceTier {
		return ""
	}
	return strings.Repeat("$", tier)
}
