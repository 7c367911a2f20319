package enrichment

import (
	"net/url"
	"strings"

	"github.com/N8Nexus-ai/product/platform/apperr"
)

// LookupSocialProfile resolves a LinkedIn profile reference from the lead's
// custom fields into a normalized facet. Only URL parsing happens here; the
// profile URL itself is the fact worth carrying into scoring.
func LookupSocialProfile(profileURL string) (*SocialProfile, error) {
	trimmed := strings.TrimSpace(profileURL)
	if trimmed == "" {
		return nil, apperr.Validation("profile URL is empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return nil, apperr.Validation("profile URL is malformed")
	}
	if !strings.Contains(strings.ToLower(parsed.Host), "linkedin.") {
		return nil, apperr.Validation("profile URL is not a LinkedIn address")
	}

	profile := &SocialProfile{
		Network:    "linkedin",
		ProfileURL: trimmed,
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) >= 2 && (segments[0] == "in" || segments[0] == "company") {
		profile.Username = segments[1]
	}

	return profile, nil
}
