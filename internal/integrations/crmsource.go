package integrations

import (
	"context"
	"strings"

	"github.com/N8Nexus-ai/product/internal/crm"

	"github.com/google/uuid"
)

func normalizeCRMType(crmType string) string {
	normalized := strings.ToLower(strings.TrimSpace(crmType))
	if !strings.HasPrefix(normalized, "crm_") {
		normalized = "crm_" + normalized
	}
	return normalized
}

// CRMSource adapts the repository to the dispatcher's lookup contract.
type CRMSource struct {
	repo *Repository
}

// NewCRMSource creates the dispatcher-facing integration source.
func NewCRMSource(repo *Repository) *CRMSource {
	return &CRMSource{repo: repo}
}

// ActiveCRM implements crm.IntegrationSource.
func (s *CRMSource) ActiveCRM(ctx context.Context, companyID uuid.UUID, crmType string) (*crm.IntegrationRef, error) {
	var integration *Integration
	var err error

	if crmType != "" {
		integration, err = s.repo.GetActiveByType(ctx, companyID, normalizeCRMType(crmType))
	} else {
		integration, err = s.repo.FirstActiveOfTypes(ctx, companyID, []string{
			crm.TypePipedrive, crm.TypeHubSpot, crm.TypeSalesforce,
		})
	}
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, nil
	}

	return &crm.IntegrationRef{
		ID:     integration.ID,
		Type:   integration.Type,
		Config: integration.Config,
	}, nil
}

// MarkSynced implements crm.IntegrationSource.
func (s *CRMSource) MarkSynced(ctx context.Context, integrationID uuid.UUID) error {
	return s.repo.TouchLastSync(ctx, integrationID)
}

var _ crm.IntegrationSource = (*CRMSource)(nil)
