package patient

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used to read phone numbers written without a country code.
const DefaultRegion = "IL"

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// phoneKeys returns the forms a stored or typed number is matched by: its raw
// digits and, when it parses, the national significant number. Both
// "050-123-4567" and "+972 50 123 4567" yield "501234567".
func phoneKeys(raw string) []string {
	d := digitsOnly(raw)
	if d == "" {
		return nil
	}
	keys := []string{d}
	if trimmed := strings.TrimLeft(d, "0"); trimmed != "" && trimmed != d {
		keys = append(keys, trimmed)
	}
	if num, err := phonenumbers.Parse(raw, DefaultRegion); err == nil {
		if nsn := phonenumbers.GetNationalSignificantNumber(num); nsn != "" && nsn != d {
			keys = append(keys, nsn)
		}
	}
	return keys
}

// phoneMatches reports whether any form of query occurs in any form of stored.
func phoneMatches(stored, query string) bool {
	qs := phoneKeys(query)
	if len(qs) == 0 {
		return false
	}
	for _, s := range phoneKeys(stored) {
		for _, q := range qs {
			if strings.Contains(s, q) {
				return true
			}
		}
	}
	return false
}
