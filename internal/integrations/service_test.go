package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/N8Nexus-ai/product/internal/crm"
	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

type stubProvider struct {
	typeTag string
	testErr error
}

func (p *stubProvider) Type() string { return p.typeTag }

func (p *stubProvider) TestConnection(ctx context.Context, config json.RawMessage) error {
	return p.testErr
}

func (p *stubProvider) Send(ctx context.Context, lead crm.Lead, config json.RawMessage) (*crm.Result, error) {
	return nil, p.testErr
}

func newTestService(providers ...crm.Provider) *Service {
	return NewService(NewRepository(nil), crm.NewRegistry(providers...), logger.New("test"))
}

func TestConfigureRejectsUnknownType(t *testing.T) {
	svc := newTestService()

	_, err := svc.Configure(context.Background(), uuid.New(), "crm_zoho", "Zoho", []byte(`{}`))
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestConfigureRequiresConfig(t *testing.T) {
	svc := newTestService(&stubProvider{typeTag: crm.TypePipedrive})

	_, err := svc.Configure(context.Background(), uuid.New(), "crm_pipedrive", "Pipedrive", nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestConfigureBlocksActivationOnFailedTest(t *testing.T) {
	svc := newTestService(&stubProvider{
		typeTag: crm.TypePipedrive,
		testErr: errors.New("401 unauthorized"),
	})

	_, err := svc.Configure(context.Background(), uuid.New(), "crm_pipedrive", "Pipedrive", []byte(`{"apiToken":"bad"}`))
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("kind = %v, want bad request", apperr.GetKind(err))
	}
}

func TestConfigureNotImplementedProviderPropagates(t *testing.T) {
	svc := newTestService(&stubProvider{
		typeTag: crm.TypeSalesforce,
		testErr: apperr.NotImplemented("Salesforce integration coming soon"),
	})

	_, err := svc.Configure(context.Background(), uuid.New(), "salesforce", "SF", []byte(`{}`))
	if apperr.GetKind(err) != apperr.KindNotImplemented {
		t.Fatalf("kind = %v, want not implemented so callers do not retry", apperr.GetKind(err))
	}
}

func TestNormalizeCRMType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"pipedrive", "crm_pipedrive"},
		{"crm_hubspot", "crm_hubspot"},
		{"  HubSpot ", "crm_hubspot"},
	}

	for _, tt := range tests {
		if got := normalizeCRMType(tt.input); got != tt.want {
			t.Errorf("normalizeCRMType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
