// Package service implements the lead pipeline controller: the state
// machine that drives creation, enrichment, scoring, and CRM dispatch.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/N8Nexus-ai/product/internal/activity"
	"github.com/N8Nexus-ai/product/internal/crm"
	"github.com/N8Nexus-ai/product/internal/enrichment"
	"github.com/N8Nexus-ai/product/internal/events"
	"github.com/N8Nexus-ai/product/internal/leads/domain"
	"github.com/N8Nexus-ai/product/internal/leads/repository"
	"github.com/N8Nexus-ai/product/internal/outbox"
	"github.com/N8Nexus-ai/product/internal/scoring"
	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"
	"github.com/N8Nexus-ai/product/platform/phone"
	"github.com/N8Nexus-ai/product/platform/sanitize"

	"github.com/google/uuid"
)

// Stage names written to the advisory lock column.
const (
	stageEnrichment = "enrichment"
	stageScoring    = "scoring"
	stageDispatch   = "dispatch"
)

// LeadsRepository is the persistence contract the controller needs.
type LeadsRepository interface {
	Create(ctx context.Context, params repository.CreateParams) (*repository.Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*repository.Lead, error)
	GetByID(ctx context.Context, companyID, id uuid.UUID) (*repository.Lead, error)
	List(ctx context.Context, companyID uuid.UUID, filter repository.ListFilter) ([]repository.Lead, int, error)
	Update(ctx context.Context, companyID, id uuid.UUID, params repository.UpdateParams) (*repository.Lead, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (*repository.Lead, error)
	MergeEnrichment(ctx context.Context, id uuid.UUID, facets json.RawMessage) (*repository.Lead, error)
	SetScore(ctx context.Context, id uuid.UUID, score int, reason string, status domain.Status) (*repository.Lead, error)
	SetCRMResult(ctx context.Context, id uuid.UUID, crmID, crmStatus string) (*repository.Lead, error)
	ClaimStage(ctx context.Context, id uuid.UUID, stage string) (bool, error)
	ReleaseStage(ctx context.Context, id uuid.UUID) error
	FindByContact(ctx context.Context, companyID uuid.UUID, email, phone *string) (*repository.Lead, error)
}

// Enricher is the enrichment engine contract.
type Enricher interface {
	Enrich(ctx context.Context, input enrichment.Input) (enrichment.Result, error)
}

// Scorer is the scoring engine contract.
type Scorer interface {
	Score(ctx context.Context, input scoring.Input) scoring.Outcome
}

// Dispatcher is the CRM dispatch engine contract.
type Dispatcher interface {
	Dispatch(ctx context.Context, companyID uuid.UUID, lead crm.Lead, crmType string) (*crm.Result, string, error)
}

// Recorder is the activity log contract.
type Recorder interface {
	Record(ctx context.Context, leadID uuid.UUID, activityType, description string)
	RecordPayload(ctx context.Context, leadID uuid.UUID, activityType, description string, payload any)
}

// OutboxWriter persists the durable post-creation enrichment trigger.
type OutboxWriter interface {
	Insert(ctx context.Context, params outbox.InsertParams) (uuid.UUID, error)
}

// CreateInput carries the canonical fields from any acquisition channel.
type CreateInput struct {
	CompanyID    uuid.UUID
	Name         *string
	Email        *string
	Phone        *string
	Message      *string
	Source       string
	CustomFields json.RawMessage
	CampaignID   *uuid.UUID
}

// Service is the pipeline controller. All engines arrive as constructor
// dependencies so tests can substitute them.
type Service struct {
	repo       LeadsRepository
	enricher   Enricher
	scorer     Scorer
	dispatcher Dispatcher
	recorder   Recorder
	outbox     OutboxWriter
	eventBus   events.Bus
	log        *logger.Logger
}

// New creates the pipeline controller.
func New(repo LeadsRepository, enricher Enricher, scorer Scorer, dispatcher Dispatcher, recorder Recorder, outboxWriter OutboxWriter, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		enricher:   enricher,
		scorer:     scorer,
		dispatcher: dispatcher,
		recorder:   recorder,
		outbox:     outboxWriter,
		eventBus:   eventBus,
		log:        log,
	}
}

// Create inserts a new lead and writes the durable enrichment trigger.
// A tenant lead with the same email or phone is returned as-is instead of
// creating a duplicate.
func (s *Service) Create(ctx context.Context, input CreateInput) (*repository.Lead, error) {
	if input.CompanyID == uuid.Nil {
		return nil, apperr.Validation("companyId is required")
	}
	if isBlank(input.Email) && isBlank(input.Phone) {
		return nil, apperr.Validation("lead requires at least one contact channel (email or phone)")
	}
	if strings.TrimSpace(input.Source) == "" {
		input.Source = "manual"
	}

	// Channel payloads are untrusted text.
	input.Name = sanitize.TextPtr(input.Name)
	input.Message = sanitize.TextPtr(input.Message)

	if input.Phone != nil {
		normalized := phone.NormalizeE164(*input.Phone)
		input.Phone = &normalized
	}

	existing, err := s.repo.FindByContact(ctx, input.CompanyID, input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.log.Info("duplicate_lead_skipped",
			"lead_id", existing.ID.String(),
			"source", input.Source,
		)
		return existing, nil
	}

	lead, err := s.repo.Create(ctx, repository.CreateParams{
		CompanyID:    input.CompanyID,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Message:      input.Message,
		Source:       input.Source,
		CustomFields: input.CustomFields,
		CampaignID:   input.CampaignID,
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, lead.ID, activity.TypeLeadCreated,
		fmt.Sprintf("Lead created via %s", lead.Source))

	if _, err := s.outbox.Insert(ctx, outbox.InsertParams{
		LeadID:    lead.ID,
		CompanyID: lead.CompanyID,
	}); err != nil {
		// The lead exists either way; a manual enrich can still recover it.
		s.log.Error("enrichment_outbox_insert_failed",
			"lead_id", lead.ID.String(),
			"error", err.Error(),
		)
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		CompanyID: lead.CompanyID,
		Source:    lead.Source,
	})

	return lead, nil
}

// Get returns one tenant lead.
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperr.NotFound("lead not found")
	}
	return lead, nil
}

// List returns the tenant's leads with the total match count.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter repository.ListFilter) ([]repository.Lead, int, error) {
	return s.repo.List(ctx, companyID, filter)
}

// Update rewrites the operator-editable fields.
func (s *Service) Update(ctx context.Context, companyID, id uuid.UUID, params repository.UpdateParams) (*repository.Lead, error) {
	params.Name = sanitize.TextPtr(params.Name)
	params.Message = sanitize.TextPtr(params.Message)
	if params.Phone != nil {
		normalized := phone.NormalizeE164(*params.Phone)
		params.Phone = &normalized
	}
	lead, err := s.repo.Update(ctx, companyID, id, params)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperr.NotFound("lead not found")
	}
	s.recorder.Record(ctx, lead.ID, activity.TypeLeadUpdated, "Lead fields updated")
	return lead, nil
}

// Delete removes a lead. Administrative operation.
func (s *Service) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("lead not found")
	}
	return nil
}

// Enrich runs the enrichment stage and, on success, chains scoring (which in
// turn chains dispatch for qualified leads).
func (s *Service) Enrich(ctx context.Context, id uuid.UUID) (*repository.Lead, error) {
	lead, err := s.runEnrichment(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Score(ctx, lead.ID)
}

// Score runs the scoring stage and auto-dispatches qualified leads. An
// auto-dispatch failure leaves the lead QUALIFIED for a manual retry and
// does not fail the scoring call.
func (s *Service) Score(ctx context.Context, id uuid.UUID) (*repository.Lead, error) {
	lead, err := s.runScoring(ctx, id)
	if err != nil {
		return nil, err
	}

	if lead.Status == domain.StatusQualified {
		sent, err := s.SendToCRM(ctx, lead.CompanyID, lead.ID, "")
		if err != nil {
			s.log.Warn("auto_dispatch_failed",
				"lead_id", lead.ID.String(),
				"error", err.Error(),
			)
			return lead, nil
		}
		return sent, nil
	}

	return lead, nil
}

// SendToCRM dispatches a qualified lead to the tenant's active CRM.
// At-most-once: a lead already sent short-circuits to the stored result.
func (s *Service) SendToCRM(ctx context.Context, companyID, id uuid.UUID, crmType string) (*repository.Lead, error) {
	claimed, err := s.repo.ClaimStage(ctx, id, stageDispatch)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperr.Conflict("another pipeline stage is processing this lead")
	}
	defer s.releaseStage(ctx, id)

	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperr.NotFound("lead not found")
	}
	if companyID != uuid.Nil && lead.CompanyID != companyID {
		return nil, apperr.NotFound("lead not found")
	}

	if lead.SentToCRM {
		s.log.Warn("lead_already_sent_to_crm", "lead_id", lead.ID.String())
		return lead, nil
	}

	if err := domain.ValidateTransition(lead.Status, domain.StatusSentToCRM); err != nil {
		return nil, apperr.Wrap(apperr.KindConflict, "lead is not qualified for dispatch", err)
	}

	targetLabel := crmType
	if targetLabel == "" {
		targetLabel = "CRM"
	}
	s.recorder.Record(ctx, lead.ID, activity.TypeCRMSyncStarted,
		fmt.Sprintf("Sending to %s", targetLabel))

	result, providerType, err := s.dispatcher.Dispatch(ctx, lead.CompanyID, crmLead(lead), crmType)
	if err != nil {
		s.recorder.RecordPayload(ctx, lead.ID, activity.TypeCRMSyncFailed,
			"CRM sync failed", map[string]string{"error": err.Error()})
		return nil, err
	}

	updated, err := s.repo.SetCRMResult(ctx, lead.ID, result.CRMID, result.Status)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordPayload(ctx, lead.ID, activity.TypeCRMSyncCompleted,
		fmt.Sprintf("Lead sent to %s", providerType), result)

	s.eventBus.Publish(ctx, events.LeadSentToCRM{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		CompanyID: updated.CompanyID,
		CRMType:   providerType,
		CRMID:     result.CRMID,
	})

	return updated, nil
}

// MarkConverted records the external conversion signal.
func (s *Service) MarkConverted(ctx context.Context, companyID, id uuid.UUID) (*repository.Lead, error) {
	lead, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateTransition(lead.Status, domain.StatusConverted); err != nil {
		return nil, apperr.Wrap(apperr.KindConflict, "lead cannot convert from its current status", err)
	}

	updated, err := s.repo.UpdateStatus(ctx, lead.ID, domain.StatusConverted)
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, lead.ID, activity.TypeLeadConverted, "Lead marked as converted")
	return updated, nil
}

// ProcessPipeline is the worker entry point: the full enrichment -> scoring
// -> dispatch chain for one claimed outbox row.
func (s *Service) ProcessPipeline(ctx context.Context, leadID uuid.UUID) error {
	_, err := s.Enrich(ctx, leadID)
	return err
}

// ApplyExternalEnrichment merges facets produced by an outside automation
// flow and moves the lead to ENRICHED.
func (s *Service) ApplyExternalEnrichment(ctx context.Context, companyID, id uuid.UUID, enrichedData json.RawMessage) (*repository.Lead, error) {
	if len(enrichedData) == 0 || !json.Valid(enrichedData) {
		return nil, apperr.Validation("enrichedData must be a JSON object")
	}
	lead, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminal(lead.Status) {
		return nil, apperr.Conflict("lead is in a terminal status")
	}

	updated, err := s.repo.MergeEnrichment(ctx, lead.ID, enrichedData)
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, lead.ID, activity.TypeEnrichmentCompleted,
		"Lead enrichment completed via external workflow")
	return updated, nil
}

// ApplyExternalScore records a score produced by an outside automation flow.
func (s *Service) ApplyExternalScore(ctx context.Context, companyID, id uuid.UUID, score int, reason string) (*repository.Lead, error) {
	if score < 0 || score > 100 {
		return nil, apperr.Validation("score must be between 0 and 100")
	}
	lead, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminal(lead.Status) {
		return nil, apperr.Conflict("lead is in a terminal status")
	}

	status := domain.QualifiedStatus(score)
	updated, err := s.repo.SetScore(ctx, lead.ID, score, reason, status)
	if err != nil {
		return nil, err
	}

	verdict := "Unqualified"
	if status == domain.StatusQualified {
		verdict = "Qualified"
	}
	s.recorder.Record(ctx, lead.ID, activity.TypeScoringCompleted,
		fmt.Sprintf("Lead scored: %d/100 - %s", score, verdict))

	s.eventBus.Publish(ctx, events.LeadScored{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		CompanyID: updated.CompanyID,
		Score:     score,
		Qualified: status == domain.StatusQualified,
	})

	return updated, nil
}

func (s *Service) runEnrichment(ctx context.Context, id uuid.UUID) (*repository.Lead, error) {
	claimed, err := s.repo.ClaimStage(ctx, id, stageEnrichment)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperr.Conflict("another pipeline stage is processing this lead")
	}
	defer s.releaseStage(ctx, id)

	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperr.NotFound("lead not found")
	}
	if domain.IsTerminal(lead.Status) {
		return nil, apperr.Conflict("lead is in a terminal status")
	}
	if err := domain.ValidateTransition(lead.Status, domain.StatusEnriching); err != nil {
		return nil, apperr.Wrap(apperr.KindConflict, "lead cannot enter enrichment", err)
	}

	if _, err := s.repo.UpdateStatus(ctx, lead.ID, domain.StatusEnriching); err != nil {
		return nil, err
	}
	s.log.StageTransition(lead.ID.String(), string(lead.Status), string(domain.StatusEnriching))
	s.recorder.Record(ctx, lead.ID, activity.TypeEnrichmentStarted, "Starting lead enrichment")

	result, err := s.enricher.Enrich(ctx, enrichment.Input{
		LeadID:       lead.ID,
		Email:        lead.Email,
		Phone:        lead.Phone,
		CustomFields: lead.CustomFields,
	})
	if err != nil {
		return nil, s.failEnrichment(ctx, lead, err)
	}

	facets, err := json.Marshal(result)
	if err != nil {
		return nil, s.failEnrichment(ctx, lead, fmt.Errorf("marshal enrichment result: %w", err))
	}

	updated, err := s.repo.MergeEnrichment(ctx, lead.ID, facets)
	if err != nil {
		return nil, s.failEnrichment(ctx, lead, err)
	}

	s.log.StageTransition(lead.ID.String(), string(domain.StatusEnriching), string(domain.StatusEnriched))
	s.recorder.RecordPayload(ctx, lead.ID, activity.TypeEnrichmentCompleted,
		"Lead enrichment completed", map[string]any{"enrichedFields": result.Facets()})

	s.eventBus.Publish(ctx, events.LeadEnriched{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         updated.ID,
		CompanyID:      updated.CompanyID,
		EnrichedFacets: result.Facets(),
	})

	return updated, nil
}

// failEnrichment reverts the lead to NEW and records the failure. The
// enriched blob is left untouched.
func (s *Service) failEnrichment(ctx context.Context, lead *repository.Lead, cause error) error {
	if _, err := s.repo.UpdateStatus(ctx, lead.ID, domain.StatusNew); err != nil {
		s.log.DatabaseError("leads.revert_enrichment", err)
	}
	s.recorder.RecordPayload(ctx, lead.ID, activity.TypeEnrichmentFailed,
		"Lead enrichment failed", map[string]string{"error": cause.Error()})

	s.eventBus.Publish(ctx, events.LeadEnrichmentFailed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		CompanyID: lead.CompanyID,
		Reason:    cause.Error(),
	})

	return apperr.Wrap(apperr.KindInternal, "lead enrichment failed", cause)
}

func (s *Service) runScoring(ctx context.Context, id uuid.UUID) (*repository.Lead, error) {
	claimed, err := s.repo.ClaimStage(ctx, id, stageScoring)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperr.Conflict("another pipeline stage is processing this lead")
	}
	defer s.releaseStage(ctx, id)

	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, apperr.NotFound("lead not found")
	}
	if domain.IsTerminal(lead.Status) {
		return nil, apperr.Conflict("lead is in a terminal status")
	}

	if _, err := s.repo.UpdateStatus(ctx, lead.ID, domain.StatusScoring); err != nil {
		return nil, err
	}
	s.log.StageTransition(lead.ID.String(), string(lead.Status), string(domain.StatusScoring))
	s.recorder.Record(ctx, lead.ID, activity.TypeScoringStarted, "Starting lead scoring")

	outcome := s.scorer.Score(ctx, scoring.Input{
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		Message:      lead.Message,
		Source:       lead.Source,
		CustomFields: lead.CustomFields,
		EnrichedData: lead.EnrichedData,
	})

	status := domain.QualifiedStatus(outcome.Score)
	updated, err := s.repo.SetScore(ctx, lead.ID, outcome.Score, outcome.Reason, status)
	if err != nil {
		s.recorder.RecordPayload(ctx, lead.ID, activity.TypeScoringFailed,
			"Lead scoring failed", map[string]string{"error": err.Error()})
		return nil, err
	}

	verdict := "Unqualified"
	if status == domain.StatusQualified {
		verdict = "Qualified"
	}
	s.log.StageTransition(lead.ID.String(), string(domain.StatusScoring), string(status))
	s.recorder.RecordPayload(ctx, lead.ID, activity.TypeScoringCompleted,
		fmt.Sprintf("Lead scored: %d/100 - %s", outcome.Score, verdict),
		map[string]any{"factors": outcome.Factors})

	s.eventBus.Publish(ctx, events.LeadScored{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		CompanyID: updated.CompanyID,
		Score:     outcome.Score,
		Qualified: status == domain.StatusQualified,
	})

	return updated, nil
}

func (s *Service) releaseStage(ctx context.Context, id uuid.UUID) {
	if err := s.repo.ReleaseStage(ctx, id); err != nil {
		s.log.DatabaseError("leads.release_stage", err)
	}
}

// crmLead projects a scored lead into the dispatcher's view, pulling the
// company name and a facet summary out of the enriched blob.
func crmLead(lead *repository.Lead) crm.Lead {
	projected := crm.Lead{
		ID:     lead.ID,
		Name:   deref(lead.Name),
		Email:  deref(lead.Email),
		Phone:  deref(lead.Phone),
		Source: lead.Source,
	}
	if lead.Message != nil {
		projected.Message = *lead.Message
	}
	if lead.Score != nil {
		projected.Score = *lead.Score
	}
	if lead.ScoringReason != nil {
		projected.ScoringReason = *lead.ScoringReason
	}

	if enriched := scoring.ParseEnriched(lead.EnrichedData); enriched != nil {
		if registry := enriched.CompanyRegistry; registry != nil {
			projected.Company = registry.TradeName
			if projected.Company == "" {
				projected.Company = registry.LegalName
			}
		}
		if facets := enriched.Facets(); len(facets) > 0 {
			projected.EnrichedNote = strings.Join(facets, ", ")
		}
	}

	return projected
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}
