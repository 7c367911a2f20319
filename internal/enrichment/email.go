package enrichment

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// freeEmailDomains are consumer mail providers. Leads on these domains skip
// the company registry lookup since the domain carries no company identity.
var freeEmailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"live.com":    true,
	"icloud.com":  true,
	"uol.com.br":  true,
	"bol.com.br":  true,
	"ig.com.br":   true,
}

// disposableDomains are throwaway mail providers.
var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
}

// rolePrefixes mark shared mailboxes rather than a person.
var rolePrefixes = []string{"admin", "info", "support", "sales", "contact"}

// IsFreeEmailDomain reports whether the email's domain is a consumer provider.
func IsFreeEmailDomain(email string) bool {
	return freeEmailDomains[emailDomain(email)]
}

// ValidateEmail classifies an email address without any network call.
// The composite score grades 100 (valid personal corporate address),
// 50 (role account), 20 (disposable domain), 0 (malformed).
func ValidateEmail(email string) EmailValidation {
	email = strings.ToLower(strings.TrimSpace(email))
	domain := emailDomain(email)

	result := EmailValidation{
		Valid:  emailPattern.MatchString(email),
		Domain: domain,
	}
	if !result.Valid {
		return result
	}

	result.Free = freeEmailDomains[domain]
	result.Disposable = disposableDomains[domain]

	local := email[:strings.Index(email, "@")]
	for _, prefix := range rolePrefixes {
		if strings.Contains(local, prefix) {
			result.Role = true
			break
		}
	}

	switch {
	case result.Disposable:
		result.Score = 20
	case result.Role:
		result.Score = 50
	default:
		result.Score = 100
	}

	return result
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
