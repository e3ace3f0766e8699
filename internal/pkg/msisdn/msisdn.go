// Package msisdn canonicalises subscriber phone numbers to the
// country-code-prefixed form used by the mobile money network, with no
// leading "+" or trunk "0".
package msisdn

import (
	"strings"
)

const DefaultCountryCode = "254"

// Normalize rewrites raw into canonical form. A leading "0" is replaced by
// the country code, a leading "+" is dropped, numbers already carrying the
// country code pass through and anything else gets the country code
// prepended. Spaces and dashes are removed first.
func Normalize(raw, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	phone := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if phone == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(phone, "0"):
		return countryCode + phone[1:]
	case strings.HasPrefix(phone, "+"):
		return phone[1:]
	case strings.HasPrefix(phone, countryCode):
		return phone
	default:
		return countryCode + phone
	}
}

// Valid reports whether canonical is all digits and of a plausible length.
func Valid(canonical string) bool {
	if len(canonical) < 10 || len(canonical) > 15 {
		return false
	}
	for _, r := range canonical {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
