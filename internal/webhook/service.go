package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/N8Nexus-ai/product/internal/leads/repository"
	leadsvc "github.com/N8Nexus-ai/product/internal/leads/service"
	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

// LeadPipeline is the slice of the pipeline controller the channels need.
type LeadPipeline interface {
	Create(ctx context.Context, input leadsvc.CreateInput) (*repository.Lead, error)
	ApplyExternalEnrichment(ctx context.Context, companyID, id uuid.UUID, enrichedData json.RawMessage) (*repository.Lead, error)
	ApplyExternalScore(ctx context.Context, companyID, id uuid.UUID, score int, reason string) (*repository.Lead, error)
	MarkConverted(ctx context.Context, companyID, id uuid.UUID) (*repository.Lead, error)
}

type extractor func(companyID uuid.UUID, body json.RawMessage) (leadsvc.CreateInput, error)

// Service converts channel payloads into pipeline inputs.
type Service struct {
	pipeline LeadPipeline
	log      *logger.Logger
}

// NewService creates the webhook service.
func NewService(pipeline LeadPipeline, log *logger.Logger) *Service {
	return &Service{pipeline: pipeline, log: log}
}

func (s *Service) ingest(ctx context.Context, channel string, companyID uuid.UUID, body json.RawMessage, extract extractor) (*repository.Lead, error) {
	input, err := extract(companyID, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, fmt.Sprintf("malformed %s payload", channel), err)
	}

	lead, err := s.pipeline.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.log.Info("webhook_lead_ingested",
		"channel", channel,
		"lead_id", lead.ID.String(),
		"source", lead.Source,
	)
	return lead, nil
}

// ProcessFacebook handles a Facebook lead-ad submission.
func (s *Service) ProcessFacebook(ctx context.Context, companyID uuid.UUID, body json.RawMessage) (*repository.Lead, error) {
	return s.ingest(ctx, SourceFacebook, companyID, body, extractFacebook)
}

// ProcessGoogle handles a Google Ads lead form submission.
func (s *Service) ProcessGoogle(ctx context.Context, companyID uuid.UUID, body json.RawMessage) (*repository.Lead, error) {
	return s.ingest(ctx, SourceGoogle, companyID, body, extractGoogle)
}

// ProcessLinkedIn handles a LinkedIn Lead Gen Form submission.
func (s *Service) ProcessLinkedIn(ctx context.Context, companyID uuid.UUID, body json.RawMessage) (*repository.Lead, error) {
	return s.ingest(ctx, SourceLinkedIn, companyID, body, extractLinkedIn)
}

// ProcessTypeform handles a Typeform form_response event.
func (s *Service) ProcessTypeform(ctx context.Context, companyID uuid.UUID, body json.RawMessage) (*repository.Lead, error) {
	return s.ingest(ctx, SourceTypeform, companyID, body, extractTypeform)
}

// ProcessLandingPage handles a generic site form submission.
func (s *Service) ProcessLandingPage(ctx context.Context, companyID uuid.UUID, body json.RawMessage) (*repository.Lead, error) {
	return s.ingest(ctx, SourceLandingPage, companyID, body, extractLandingPage)
}

// n8nEnvelope is the discriminated envelope sent by automation flows.
type n8nEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type n8nEnrichmentResult struct {
	LeadID       uuid.UUID       `json:"leadId"`
	EnrichedData json.RawMessage `json:"enrichedData"`
}

type n8nScoringResult struct {
	LeadID uuid.UUID `json:"leadId"`
	Score  int       `json:"score"`
	Reason string    `json:"reason"`
}

type n8nConversion struct {
	LeadID uuid.UUID `json:"leadId"`
}

// ProcessN8N dispatches an automation flow envelope by its type tag.
// Unknown types are acknowledged without side effects so flows can evolve.
func (s *Service) ProcessN8N(ctx context.Context, companyID uuid.UUID, body json.RawMessage) (any, error) {
	var envelope n8nEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "malformed n8n payload", err)
	}

	switch envelope.Type {
	case "lead":
		return s.ingest(ctx, SourceLandingPage, companyID, envelope.Payload, extractLandingPage)

	case "enrichment_result":
		var result n8nEnrichmentResult
		if err := json.Unmarshal(envelope.Payload, &result); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed enrichment result", err)
		}
		if result.LeadID == uuid.Nil {
			return nil, apperr.Validation("leadId is required")
		}
		return s.pipeline.ApplyExternalEnrichment(ctx, companyID, result.LeadID, result.EnrichedData)

	case "scoring_result":
		var result n8nScoringResult
		if err := json.Unmarshal(envelope.Payload, &result); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed scoring result", err)
		}
		if result.LeadID == uuid.Nil {
			return nil, apperr.Validation("leadId is required")
		}
		return s.pipeline.ApplyExternalScore(ctx, companyID, result.LeadID, result.Score, result.Reason)

	case "lead_converted":
		var conversion n8nConversion
		if err := json.Unmarshal(envelope.Payload, &conversion); err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "malformed conversion payload", err)
		}
		if conversion.LeadID == uuid.Nil {
			return nil, apperr.Validation("leadId is required")
		}
		return s.pipeline.MarkConverted(ctx, companyID, conversion.LeadID)

	default:
		s.log.Warn("unknown_n8n_webhook_type", "type", envelope.Type)
		return map[string]any{"received": true, "type": envelope.Type}, nil
	}
}
