package enrichment

import (
	"context"
	"encoding/json"

	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Custom-field keys the engine reads from the lead's channel capture.
const (
	customFieldCNPJ        = "cnpj"
	customFieldLinkedInURL = "linkedinUrl"
)

// Input carries the lead facts one enrichment pass works from.
type Input struct {
	LeadID       uuid.UUID
	Email        *string
	Phone        *string
	CustomFields json.RawMessage
}

// Service runs the four enrichment facets concurrently and merges whatever
// succeeded. Facet failures are logged and swallowed; the pass as a whole
// only fails when the merge itself cannot be produced.
type Service struct {
	registry *RegistryClient
	log      *logger.Logger
}

// NewService creates the enrichment engine.
func NewService(registry *RegistryClient, log *logger.Logger) *Service {
	return &Service{registry: registry, log: log}
}

// Enrich fetches all applicable facets concurrently. The returned Result
// contains only the facets that succeeded, possibly none.
func (s *Service) Enrich(ctx context.Context, input Input) (Result, error) {
	fields := parseCustomFields(input.CustomFields)
	leadID := input.LeadID.String()

	var result Result
	var g errgroup.Group

	if cnpj := fields[customFieldCNPJ]; cnpj != "" && input.Email != nil && !IsFreeEmailDomain(*input.Email) {
		g.Go(func() error {
			registry, err := s.registry.LookupCNPJ(ctx, cnpj)
			if err != nil {
				s.log.FacetError(leadID, FacetCompanyRegistry, err)
				return nil
			}
			result.CompanyRegistry = registry
			return nil
		})
	}

	if input.Email != nil && *input.Email != "" {
		g.Go(func() error {
			validation := ValidateEmail(*input.Email)
			result.EmailValidation = &validation
			return nil
		})
	}

	if input.Phone != nil && *input.Phone != "" {
		g.Go(func() error {
			validation := ValidatePhone(*input.Phone)
			result.PhoneValidation = &validation
			return nil
		})
	}

	if profileURL := fields[customFieldLinkedInURL]; profileURL != "" {
		g.Go(func() error {
			profile, err := LookupSocialProfile(profileURL)
			if err != nil {
				s.log.FacetError(leadID, FacetSocialProfile, err)
				return nil
			}
			result.SocialProfile = profile
			return nil
		})
	}

	// Facet closures never return errors, so Wait cannot fail. Each closure
	// writes a distinct Result field, so no lock is needed.
	_ = g.Wait()

	return result, nil
}

// EnrichByCNPJ runs a direct registry lookup for operator use. Unlike the
// facet path, a validation failure here is surfaced to the caller.
func (s *Service) EnrichByCNPJ(ctx context.Context, taxID string) (*CompanyRegistry, error) {
	return s.registry.LookupCNPJ(ctx, taxID)
}

func parseCustomFields(raw json.RawMessage) map[string]string {
	fields := make(map[string]string)
	if len(raw) == 0 {
		return fields
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fields
	}
	for key, value := range decoded {
		if text, ok := value.(string); ok {
			fields[key] = text
		}
	}
	return fields
}
