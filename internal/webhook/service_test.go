package webhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/N8Nexus-ai/product/internal/leads/domain"
	"github.com/N8Nexus-ai/product/internal/leads/repository"
	leadsvc "github.com/N8Nexus-ai/product/internal/leads/service"
	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

type fakePipeline struct {
	created   []leadsvc.CreateInput
	enriched  []uuid.UUID
	scored    []int
	converted []uuid.UUID
}

func (p *fakePipeline) Create(ctx context.Context, input leadsvc.CreateInput) (*repository.Lead, error) {
	p.created = append(p.created, input)
	return &repository.Lead{
		ID:        uuid.New(),
		CompanyID: input.CompanyID,
		Source:    input.Source,
		Status:    domain.StatusNew,
	}, nil
}

func (p *fakePipeline) ApplyExternalEnrichment(ctx context.Context, companyID, id uuid.UUID, enrichedData json.RawMessage) (*repository.Lead, error) {
	p.enriched = append(p.enriched, id)
	return &repository.Lead{ID: id, CompanyID: companyID, Status: domain.StatusEnriched}, nil
}

func (p *fakePipeline) ApplyExternalScore(ctx context.Context, companyID, id uuid.UUID, score int, reason string) (*repository.Lead, error) {
	p.scored = append(p.scored, score)
	return &repository.Lead{ID: id, CompanyID: companyID, Status: domain.QualifiedStatus(score)}, nil
}

func (p *fakePipeline) MarkConverted(ctx context.Context, companyID, id uuid.UUID) (*repository.Lead, error) {
	p.converted = append(p.converted, id)
	return &repository.Lead{ID: id, CompanyID: companyID, Status: domain.StatusConverted}, nil
}

func newWebhookHarness() (*Service, *fakePipeline) {
	pipeline := &fakePipeline{}
	return NewService(pipeline, logger.New("test")), pipeline
}

func TestProcessChannelsSetSource(t *testing.T) {
	svc, pipeline := newWebhookHarness()
	companyID := uuid.New()

	tests := []struct {
		name    string
		process func(context.Context, uuid.UUID, json.RawMessage) (*repository.Lead, error)
		body    string
		source  string
	}{
		{"google", svc.ProcessGoogle, `{"name":"Maria","email":"maria@empresa.com.br"}`, SourceGoogle},
		{"linkedin", svc.ProcessLinkedIn, `{"firstName":"João","emailAddress":"joao@empresa.com.br"}`, SourceLinkedIn},
		{"landing page", svc.ProcessLandingPage, `{"email":"x@empresa.com.br"}`, SourceLandingPage},
	}

	for _, tt := range tests {
		lead, err := tt.process(context.Background(), companyID, json.RawMessage(tt.body))
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if lead.Source != tt.source {
			t.Errorf("%s: source = %q, want %q", tt.name, lead.Source, tt.source)
		}
	}

	if len(pipeline.created) != len(tests) {
		t.Fatalf("pipeline create calls = %d, want %d", len(pipeline.created), len(tests))
	}
}

func TestProcessFacebookMalformedPayload(t *testing.T) {
	svc, _ := newWebhookHarness()

	_, err := svc.ProcessFacebook(context.Background(), uuid.New(), json.RawMessage(`not json`))
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestProcessN8NEnrichmentResult(t *testing.T) {
	svc, pipeline := newWebhookHarness()
	leadID := uuid.New()
	body, _ := json.Marshal(map[string]any{
		"type": "enrichment_result",
		"payload": map[string]any{
			"leadId":       leadID.String(),
			"enrichedData": map[string]any{"emailValidation": map[string]any{"valid": true}},
		},
	})

	if _, err := svc.ProcessN8N(context.Background(), uuid.New(), body); err != nil {
		t.Fatalf("ProcessN8N: %v", err)
	}
	if len(pipeline.enriched) != 1 || pipeline.enriched[0] != leadID {
		t.Fatalf("enriched = %v", pipeline.enriched)
	}
}

func TestProcessN8NScoringResult(t *testing.T) {
	svc, pipeline := newWebhookHarness()
	body, _ := json.Marshal(map[string]any{
		"type": "scoring_result",
		"payload": map[string]any{
			"leadId": uuid.New().String(),
			"score":  75,
			"reason": "workflow externo",
		},
	})

	if _, err := svc.ProcessN8N(context.Background(), uuid.New(), body); err != nil {
		t.Fatalf("ProcessN8N: %v", err)
	}
	if len(pipeline.scored) != 1 || pipeline.scored[0] != 75 {
		t.Fatalf("scored = %v", pipeline.scored)
	}
}

func TestProcessN8NRequiresLeadID(t *testing.T) {
	svc, _ := newWebhookHarness()

	for _, eventType := range []string{"enrichment_result", "scoring_result", "lead_converted"} {
		body, _ := json.Marshal(map[string]any{"type": eventType, "payload": map[string]any{}})
		_, err := svc.ProcessN8N(context.Background(), uuid.New(), body)
		if apperr.GetKind(err) != apperr.KindValidation {
			t.Errorf("%s: kind = %v, want validation", eventType, apperr.GetKind(err))
		}
	}
}

func TestProcessN8NConversion(t *testing.T) {
	svc, pipeline := newWebhookHarness()
	leadID := uuid.New()
	body, _ := json.Marshal(map[string]any{
		"type":    "lead_converted",
		"payload": map[string]any{"leadId": leadID.String()},
	})

	if _, err := svc.ProcessN8N(context.Background(), uuid.New(), body); err != nil {
		t.Fatalf("ProcessN8N: %v", err)
	}
	if len(pipeline.converted) != 1 || pipeline.converted[0] != leadID {
		t.Fatalf("converted = %v", pipeline.converted)
	}
}

func TestProcessN8NUnknownTypeAcknowledged(t *testing.T) {
	svc, pipeline := newWebhookHarness()

	result, err := svc.ProcessN8N(context.Background(), uuid.New(), json.RawMessage(`{"type":"future_event","payload":{}}`))
	if err != nil {
		t.Fatalf("unknown type should be acknowledged: %v", err)
	}
	ack, ok := result.(map[string]any)
	if !ok || ack["received"] != true || ack["type"] != "future_event" {
		t.Fatalf("ack = %v", result)
	}
	if len(pipeline.created)+len(pipeline.enriched)+len(pipeline.scored)+len(pipeline.converted) != 0 {
		t.Fatal("unknown type must have no side effects")
	}
}
