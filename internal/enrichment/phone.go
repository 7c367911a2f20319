package enrichment

import "strings"

// ValidatePhone classifies a phone number without any network call.
// Digits-only lengths of 10 to 13 are considered valid; a leading 55
// country code marks Brazil; 11 or 13 digit numbers are mobile lines.
func ValidatePhone(phone string) PhoneValidation {
	digits := stripNonDigits(phone)

	result := PhoneValidation{
		Valid:    len(digits) >= 10 && len(digits) <= 13,
		Country:  "unknown",
		LineType: "landline",
		Carrier:  "unknown",
		Digits:   digits,
	}
	if !result.Valid {
		result.LineType = "unknown"
		return result
	}

	if strings.HasPrefix(digits, "55") {
		result.Country = "BR"
	}
	if len(digits) == 11 || len(digits) == 13 {
		result.LineType = "mobile"
	}

	return result
}

func stripNonDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
