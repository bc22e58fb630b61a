package record

import "github.com/tbxark/formpilot/normalize"

var acceptedCountries = map[string]struct{}{
	normalize.CanonicalKey("united states"): {},
	normalize.CanonicalKey("us"):            {},
	normalize.CanonicalKey("usa"):           {},
}

// CanonicalCountry maps any spelling of the United States that differs only
// in case, spacing or punctuation to CountryUnitedStates. Other values are
// rejected rather than defaulted.
func CanonicalCountry(input string) (string, bool) {
	if _, ok := acceptedCountries[normalize.CanonicalKey(input)]; ok {
		return CountryUnitedStates, true
	}
	return "", false
}
