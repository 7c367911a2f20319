package crm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

func TestRegistryGetNormalizesNames(t *testing.T) {
	registry := NewRegistry(NewPipedrive(), NewHubSpot(), NewSalesforce())

	tests := []struct {
		input string
		want  string
	}{
		{"pipedrive", TypePipedrive},
		{"crm_pipedrive", TypePipedrive},
		{"  Pipedrive  ", TypePipedrive},
		{"hubspot", TypeHubSpot},
		{"SALESFORCE", TypeSalesforce},
	}

	for _, tt := range tests {
		provider, err := registry.Get(tt.input)
		if err != nil {
			t.Errorf("Get(%q): %v", tt.input, err)
			continue
		}
		if provider.Type() != tt.want {
			t.Errorf("Get(%q) resolved %s, want %s", tt.input, provider.Type(), tt.want)
		}
	}
}

func TestRegistryGetUnknownProvider(t *testing.T) {
	registry := NewRegistry(NewPipedrive())

	_, err := registry.Get("zoho")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestSalesforceIsNotImplemented(t *testing.T) {
	sf := NewSalesforce()

	if err := sf.TestConnection(context.Background(), []byte(`{}`)); apperr.GetKind(err) != apperr.KindNotImplemented {
		t.Fatal("TestConnection should report not implemented")
	}
	if _, err := sf.Send(context.Background(), Lead{}, []byte(`{}`)); apperr.GetKind(err) != apperr.KindNotImplemented {
		t.Fatal("Send should report not implemented")
	}
}

func TestParsePipedriveConfig(t *testing.T) {
	if _, err := parsePipedriveConfig([]byte(`{"apiToken":"t","companyDomain":"acme.pipedrive.com"}`)); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if _, err := parsePipedriveConfig([]byte(`{"apiToken":"t"}`)); err == nil {
		t.Fatal("missing companyDomain should fail")
	}
	if _, err := parsePipedriveConfig([]byte(`not json`)); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatal("malformed config should fail validation")
	}
}

func TestParseHubSpotConfig(t *testing.T) {
	if _, err := parseHubSpotConfig([]byte(`{"accessToken":"t"}`)); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if _, err := parseHubSpotConfig([]byte(`{}`)); err == nil {
		t.Fatal("missing accessToken should fail")
	}
}

func TestDealTitle(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want string
	}{
		{"name and company", Lead{Name: "João Silva", Company: "Empresa"}, "Lead: João Silva - Empresa"},
		{"name only", Lead{Name: "João Silva"}, "Lead: João Silva"},
		{"email fallback", Lead{Email: "joao@empresa.com.br"}, "Lead: joao@empresa.com.br"},
		{"nothing", Lead{}, "Lead: Unknown lead"},
	}

	for _, tt := range tests {
		if got := dealTitle(tt.lead); got != tt.want {
			t.Errorf("%s: dealTitle = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLeadNote(t *testing.T) {
	note := leadNote(Lead{
		Score:         85,
		ScoringReason: "Lead qualificado",
		Message:       "Quero contratar",
		Source:        "linkedin",
		EnrichedNote:  "cnpj, emailValidation",
	})

	for _, want := range []string{"Score: 85/100", "Reason: Lead qualificado", "Message: Quero contratar", "Source: linkedin", "Enrichment: cnpj, emailValidation"} {
		if !strings.Contains(note, want) {
			t.Errorf("note missing %q:\n%s", want, note)
		}
	}
	if strings.HasSuffix(note, "\n") {
		t.Error("note should not end with a newline")
	}

	bare := leadNote(Lead{Score: 40})
	if bare != "Score: 40/100" {
		t.Errorf("bare note = %q", bare)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		input string
		first string
		last  string
	}{
		{"João Silva", "João", "Silva"},
		{"João da Silva Santos", "João", "da Silva Santos"},
		{"João", "João", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		first, last := splitName(tt.input)
		if first != tt.first || last != tt.last {
			t.Errorf("splitName(%q) = %q, %q", tt.input, first, last)
		}
	}
}

type fakeSource struct {
	ref       *IntegrationRef
	refErr    error
	synced    []uuid.UUID
	syncedErr error
}

func (s *fakeSource) ActiveCRM(ctx context.Context, companyID uuid.UUID, crmType string) (*IntegrationRef, error) {
	return s.ref, s.refErr
}

func (s *fakeSource) MarkSynced(ctx context.Context, integrationID uuid.UUID) error {
	s.synced = append(s.synced, integrationID)
	return s.syncedErr
}

type stubProvider struct {
	typeTag string
	result  *Result
	err     error
}

func (p *stubProvider) Type() string { return p.typeTag }

func (p *stubProvider) TestConnection(ctx context.Context, config json.RawMessage) error {
	return p.err
}

func (p *stubProvider) Send(ctx context.Context, lead Lead, config json.RawMessage) (*Result, error) {
	return p.result, p.err
}

func TestDispatchWithoutIntegration(t *testing.T) {
	d := NewDispatcher(NewRegistry(), &fakeSource{}, logger.New("test"))

	_, _, err := d.Dispatch(context.Background(), uuid.New(), Lead{}, "")
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("kind = %v, want bad request", apperr.GetKind(err))
	}
}

func TestDispatchMarksIntegrationSynced(t *testing.T) {
	integrationID := uuid.New()
	source := &fakeSource{ref: &IntegrationRef{
		ID:     integrationID,
		Type:   TypePipedrive,
		Config: []byte(`{}`),
	}}
	registry := NewRegistry(&stubProvider{
		typeTag: TypePipedrive,
		result:  &Result{CRMID: "42", Status: "open"},
	})
	d := NewDispatcher(registry, source, logger.New("test"))

	result, providerType, err := d.Dispatch(context.Background(), uuid.New(), Lead{}, "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.CRMID != "42" || providerType != TypePipedrive {
		t.Fatalf("result = %+v, provider = %s", result, providerType)
	}
	if len(source.synced) != 1 || source.synced[0] != integrationID {
		t.Fatalf("synced = %v", source.synced)
	}
}

func TestDispatchProviderFailure(t *testing.T) {
	source := &fakeSource{ref: &IntegrationRef{
		ID:     uuid.New(),
		Type:   TypeHubSpot,
		Config: []byte(`{}`),
	}}
	registry := NewRegistry(&stubProvider{
		typeTag: TypeHubSpot,
		err:     errors.New("rate limited"),
	})
	d := NewDispatcher(registry, source, logger.New("test"))

	_, providerType, err := d.Dispatch(context.Background(), uuid.New(), Lead{}, "hubspot")
	if err == nil {
		t.Fatal("provider failure should propagate")
	}
	if providerType != TypeHubSpot {
		t.Fatalf("provider type = %q, want the resolved type even on failure", providerType)
	}
	if len(source.synced) != 0 {
		t.Fatal("failed send must not mark the integration synced")
	}
}
