package domain

import "strings"

// DefaultAmortizationYears is the fallback service life applied when no
// category-specific period is configured.
const DefaultAmortizationYears = 50

// D05.02 covers two physically different installations under one code;
// the description text decides which variant applies.
const (
	dualVariantCode       = "D05.02"
	geothermalOverrideKey = "D05.02_ERDWAERMESONDEN"
	solarOverrideKey      = "D05.02_SOLARKOLLEKTOREN"
)

var (
	geothermalKeywords = []string{"erdwaermesonden", "erdwärmesonden", "erdsonde"}
	solarKeywords      = []string{"solarkollektoren", "solarkollektor"}
)

// AmortizationTable maps eBKP-H category codes, plus synthetic variant
// override keys, to amortization periods in years. Loaded once at
// process start and read-only afterwards.
type AmortizationTable map[string]int

// DefaultAmortizationTable returns the built-in eBKP-H period table.
func DefaultAmortizationTable() AmortizationTable {
	return AmortizationTable{
		"C01":    80,
		"C02.01": 80,
		"C02.02": 80,
		"C03":    80,
		"C04.01": 80,
		"C04.04": 80,
		"C04.05": 80,
		"C04.08": 80,
		"E01":    50,
		"E02.01": 50,
		"E02.02": 50,
		"E02.03": 50,
		"E02.04": 50,
		"E02.05": 50,
		"E03":    30,
		"F01.01": 40,
		"F01.02": 40,
		"F01.03": 40,
		"F02":    30,
		"G01":    50,
		"G02":    40,
		"G03":    40,
		"G04":    40,

		geothermalOverrideKey: 40,
		solarOverrideKey:      25,
	}
}

// ResolveYears resolves the amortization period for a category code and
// optional element description. It never fails: unknown or empty codes
// resolve to DefaultAmortizationYears, and the result is always positive.
func (t AmortizationTable) ResolveYears(categoryCode, description string) int {
	if categoryCode == "" {
		return DefaultAmortizationYears
	}

	if categoryCode == dualVariantCode && description != "" {
		lowered := strings.ToLower(description)
		if containsAny(lowered, geothermalKeywords) {
			return t.lookupChain(geothermalOverrideKey, categoryCode)
		}
		if containsAny(lowered, solarKeywords) {
			return t.lookupChain(solarOverrideKey, categoryCode)
		}
	}

	if years, ok := t[categoryCode]; ok && years > 0 {
		return years
	}
	return DefaultAmortizationYears
}

// lookupChain tries the variant override key, then the plain category
// code, then the system default.
func (t AmortizationTable) lookupChain(overrideKey, categoryCode string) int {
	if years, ok := t[overrideKey]; ok && years > 0 {
		return years
	}
	if years, ok := t[categoryCode]; ok && years > 0 {
		return years
	}
	return DefaultAmortizationYears
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
