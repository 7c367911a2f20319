package integrations

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/N8Nexus-ai/product/internal/crm"
	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

// Channel integration types without a testable provider API.
const (
	TypeAdsFacebook   = "ads_facebook"
	TypeAdsGoogle     = "ads_google"
	TypeAdsLinkedIn   = "ads_linkedin"
	TypeFormsTypeform = "forms_typeform"
	TypeAutomationN8N = "automation_n8n"
)

var channelTypes = map[string]bool{
	TypeAdsFacebook:   true,
	TypeAdsGoogle:     true,
	TypeAdsLinkedIn:   true,
	TypeFormsTypeform: true,
	TypeAutomationN8N: true,
}

// TestResult reports a connection test outcome without failing the request.
type TestResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Service applies the activation rules: CRM credentials must pass a live
// connection test before the integration is stored active.
type Service struct {
	repo     *Repository
	registry *crm.Registry
	log      *logger.Logger
}

// NewService creates the integrations service.
func NewService(repo *Repository, registry *crm.Registry, log *logger.Logger) *Service {
	return &Service{repo: repo, registry: registry, log: log}
}

func (s *Service) isCRMType(integrationType string) bool {
	_, err := s.registry.Get(integrationType)
	return err == nil
}

func (s *Service) validateType(integrationType string) error {
	if channelTypes[integrationType] || s.isCRMType(integrationType) {
		return nil
	}
	return apperr.Validation("unknown integration type: " + integrationType)
}

// Configure stores and activates a tenant integration. CRM types are
// test-gated; a failing test blocks activation.
func (s *Service) Configure(ctx context.Context, companyID uuid.UUID, integrationType, name string, config json.RawMessage) (*Integration, error) {
	integrationType = strings.ToLower(strings.TrimSpace(integrationType))
	if err := s.validateType(integrationType); err != nil {
		return nil, err
	}
	if len(config) == 0 {
		return nil, apperr.Validation("integration config is required")
	}

	if provider, err := s.registry.Get(integrationType); err == nil {
		if err := provider.TestConnection(ctx, config); err != nil {
			s.log.Warn("integration_test_failed",
				"company_id", companyID.String(),
				"type", integrationType,
				"error", err.Error(),
			)
			if apperr.Is(err, apperr.KindNotImplemented) {
				return nil, err
			}
			return nil, apperr.Wrap(apperr.KindBadRequest, "invalid credentials or connection failed", err)
		}
	}

	return s.repo.Upsert(ctx, companyID, integrationType, name, config)
}

// Test re-runs the connection test for a stored integration.
func (s *Service) Test(ctx context.Context, companyID uuid.UUID, integrationType string) (*TestResult, error) {
	integration, err := s.repo.GetByType(ctx, companyID, integrationType)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, apperr.NotFound("integration not found")
	}

	provider, err := s.registry.Get(integration.Type)
	if err != nil {
		return &TestResult{Valid: false, Message: "integration type has no testable connection"}, nil
	}

	if err := provider.TestConnection(ctx, integration.Config); err != nil {
		return &TestResult{Valid: false, Message: err.Error()}, nil
	}

	if err := s.repo.TouchLastSync(ctx, integration.ID); err != nil {
		s.log.DatabaseError("integrations.touch_last_sync", err)
	}
	return &TestResult{Valid: true, Message: "connection successful"}, nil
}

// List returns the tenant's integrations with credentials redacted.
func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]Integration, error) {
	integrations, err := s.repo.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for i := range integrations {
		integrations[i].Config = json.RawMessage(`{"redacted":true}`)
	}
	return integrations, nil
}

// Remove deletes a tenant integration.
func (s *Service) Remove(ctx context.Context, companyID uuid.UUID, integrationType string) error {
	removed, err := s.repo.Delete(ctx, companyID, integrationType)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("integration not found")
	}
	return nil
}
