package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

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

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

type fakeRepo struct {
	leads  map[uuid.UUID]*repository.Lead
	claims map[uuid.UUID]string

	claimErr    error
	setScoreErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:  make(map[uuid.UUID]*repository.Lead),
		claims: make(map[uuid.UUID]string),
	}
}

func (r *fakeRepo) add(lead *repository.Lead) *repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	r.leads[lead.ID] = lead
	return lead
}

func (r *fakeRepo) Create(ctx context.Context, params repository.CreateParams) (*repository.Lead, error) {
	lead := &repository.Lead{
		ID:           uuid.New(),
		CompanyID:    params.CompanyID,
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		Message:      params.Message,
		Source:       params.Source,
		CustomFields: params.CustomFields,
		CampaignID:   params.CampaignID,
		Status:       domain.StatusNew,
	}
	r.leads[lead.ID] = lead
	return lead, nil
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (*repository.Lead, error) {
	return r.leads[id], nil
}

func (r *fakeRepo) GetByID(ctx context.Context, companyID, id uuid.UUID) (*repository.Lead, error) {
	lead := r.leads[id]
	if lead == nil || lead.CompanyID != companyID {
		return nil, nil
	}
	return lead, nil
}

func (r *fakeRepo) List(ctx context.Context, companyID uuid.UUID, filter repository.ListFilter) ([]repository.Lead, int, error) {
	var out []repository.Lead
	for _, lead := range r.leads {
		if lead.CompanyID == companyID {
			out = append(out, *lead)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepo) Update(ctx context.Context, companyID, id uuid.UUID, params repository.UpdateParams) (*repository.Lead, error) {
	lead, _ := r.GetByID(ctx, companyID, id)
	if lead == nil {
		return nil, nil
	}
	if params.Name != nil {
		lead.Name = params.Name
	}
	if params.Phone != nil {
		lead.Phone = params.Phone
	}
	return lead, nil
}

func (r *fakeRepo) Delete(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	lead, _ := r.GetByID(ctx, companyID, id)
	if lead == nil {
		return false, nil
	}
	delete(r.leads, id)
	return true, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (*repository.Lead, error) {
	lead := r.leads[id]
	lead.Status = status
	return lead, nil
}

func (r *fakeRepo) MergeEnrichment(ctx context.Context, id uuid.UUID, facets json.RawMessage) (*repository.Lead, error) {
	lead := r.leads[id]
	lead.EnrichedData = facets
	lead.Status = domain.StatusEnriched
	return lead, nil
}

func (r *fakeRepo) SetScore(ctx context.Context, id uuid.UUID, score int, reason string, status domain.Status) (*repository.Lead, error) {
	if r.setScoreErr != nil {
		return nil, r.setScoreErr
	}
	lead := r.leads[id]
	lead.Score = &score
	lead.ScoringReason = &reason
	lead.Status = status
	return lead, nil
}

func (r *fakeRepo) SetCRMResult(ctx context.Context, id uuid.UUID, crmID, crmStatus string) (*repository.Lead, error) {
	lead := r.leads[id]
	lead.SentToCRM = true
	lead.CRMID = &crmID
	lead.CRMStatus = &crmStatus
	lead.Status = domain.StatusSentToCRM
	return lead, nil
}

func (r *fakeRepo) ClaimStage(ctx context.Context, id uuid.UUID, stage string) (bool, error) {
	if r.claimErr != nil {
		return false, r.claimErr
	}
	if _, held := r.claims[id]; held {
		return false, nil
	}
	r.claims[id] = stage
	return true, nil
}

func (r *fakeRepo) ReleaseStage(ctx context.Context, id uuid.UUID) error {
	delete(r.claims, id)
	return nil
}

func (r *fakeRepo) FindByContact(ctx context.Context, companyID uuid.UUID, email, phone *string) (*repository.Lead, error) {
	for _, lead := range r.leads {
		if lead.CompanyID != companyID {
			continue
		}
		if email != nil && lead.Email != nil && *lead.Email == *email {
			return lead, nil
		}
		if phone != nil && lead.Phone != nil && *lead.Phone == *phone {
			return lead, nil
		}
	}
	return nil, nil
}

type fakeEnricher struct {
	result enrichment.Result
	err    error
	calls  int
}

func (e *fakeEnricher) Enrich(ctx context.Context, input enrichment.Input) (enrichment.Result, error) {
	e.calls++
	return e.result, e.err
}

type fakeScorer struct {
	outcome scoring.Outcome
}

func (s *fakeScorer) Score(ctx context.Context, input scoring.Input) scoring.Outcome {
	return s.outcome
}

type fakeDispatcher struct {
	result       *crm.Result
	providerType string
	err          error
	calls        int
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, companyID uuid.UUID, lead crm.Lead, crmType string) (*crm.Result, string, error) {
	d.calls++
	if d.err != nil {
		return nil, "", d.err
	}
	return d.result, d.providerType, nil
}

type recordedActivity struct {
	Type        string
	Description string
}

type fakeRecorder struct {
	entries []recordedActivity
}

func (r *fakeRecorder) Record(ctx context.Context, leadID uuid.UUID, activityType, description string) {
	r.entries = append(r.entries, recordedActivity{activityType, description})
}

func (r *fakeRecorder) RecordPayload(ctx context.Context, leadID uuid.UUID, activityType, description string, payload any) {
	r.entries = append(r.entries, recordedActivity{activityType, description})
}

func (r *fakeRecorder) has(activityType string) bool {
	for _, e := range r.entries {
		if e.Type == activityType {
			return true
		}
	}
	return false
}

type fakeOutbox struct {
	inserted []outbox.InsertParams
	err      error
}

func (o *fakeOutbox) Insert(ctx context.Context, params outbox.InsertParams) (uuid.UUID, error) {
	if o.err != nil {
		return uuid.Nil, o.err
	}
	o.inserted = append(o.inserted, params)
	return uuid.New(), nil
}

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func (b *fakeBus) names() []string {
	var names []string
	for _, e := range b.published {
		names = append(names, e.EventName())
	}
	return names
}

type harness struct {
	svc        *Service
	repo       *fakeRepo
	enricher   *fakeEnricher
	scorer     *fakeScorer
	dispatcher *fakeDispatcher
	recorder   *fakeRecorder
	outbox     *fakeOutbox
	bus        *fakeBus
}

func newHarness() *harness {
	h := &harness{
		repo:     newFakeRepo(),
		enricher: &fakeEnricher{},
		scorer:   &fakeScorer{outcome: scoring.Outcome{Score: 75, Reason: "ok"}},
		dispatcher: &fakeDispatcher{
			result:       &crm.Result{CRMID: "42", Status: "created"},
			providerType: crm.TypePipedrive,
		},
		recorder: &fakeRecorder{},
		outbox:   &fakeOutbox{},
		bus:      &fakeBus{},
	}
	h.svc = New(h.repo, h.enricher, h.scorer, h.dispatcher, h.recorder, h.outbox, h.bus, logger.New("test"))
	return h
}

func TestCreateValidation(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Create(context.Background(), CreateInput{Email: strPtr("a@b.com")})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("missing company: kind = %v, want validation", apperr.GetKind(err))
	}

	_, err = h.svc.Create(context.Background(), CreateInput{CompanyID: uuid.New()})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("no contact channel: kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestCreateWritesOutboxAndActivity(t *testing.T) {
	h := newHarness()
	companyID := uuid.New()

	lead, err := h.svc.Create(context.Background(), CreateInput{
		CompanyID: companyID,
		Name:      strPtr("<b>João</b> Silva"),
		Email:     strPtr("joao@empresa.com.br"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if lead.Name == nil || *lead.Name != "João Silva" {
		t.Fatalf("name = %v, want HTML stripped", lead.Name)
	}
	if lead.Source != "manual" {
		t.Fatalf("source = %q, want manual default", lead.Source)
	}
	if lead.Status != domain.StatusNew {
		t.Fatalf("status = %s, want NEW", lead.Status)
	}
	if len(h.outbox.inserted) != 1 || h.outbox.inserted[0].LeadID != lead.ID {
		t.Fatalf("outbox inserts = %+v", h.outbox.inserted)
	}
	if !h.recorder.has(activity.TypeLeadCreated) {
		t.Fatal("lead_created activity missing")
	}
	if names := h.bus.names(); len(names) != 1 || names[0] != "leads.lead.created" {
		t.Fatalf("events = %v", names)
	}
}

func TestCreateReturnsExistingDuplicate(t *testing.T) {
	h := newHarness()
	companyID := uuid.New()

	first, err := h.svc.Create(context.Background(), CreateInput{
		CompanyID: companyID,
		Email:     strPtr("joao@empresa.com.br"),
	})
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}

	second, err := h.svc.Create(context.Background(), CreateInput{
		CompanyID: companyID,
		Email:     strPtr("joao@empresa.com.br"),
		Source:    "facebook",
	})
	if err != nil {
		t.Fatalf("Create duplicate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("duplicate intake created a second lead")
	}
	if len(h.outbox.inserted) != 1 {
		t.Fatalf("outbox inserts = %d, want 1", len(h.outbox.inserted))
	}
}

func TestCreateSurvivesOutboxFailure(t *testing.T) {
	h := newHarness()
	h.outbox.err = errors.New("db down")

	lead, err := h.svc.Create(context.Background(), CreateInput{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
	})
	if err != nil {
		t.Fatalf("Create should survive outbox failure: %v", err)
	}
	if lead == nil {
		t.Fatal("lead missing")
	}
}

func TestEnrichRunsFullChainToDispatch(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusNew,
	})
	h.enricher.result = enrichment.Result{
		EmailValidation: &enrichment.EmailValidation{Valid: true, Score: 100},
	}

	updated, err := h.svc.Enrich(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if updated.Status != domain.StatusSentToCRM {
		t.Fatalf("status = %s, want SENT_TO_CRM after full chain", updated.Status)
	}
	if !updated.SentToCRM || updated.CRMID == nil || *updated.CRMID != "42" {
		t.Fatalf("CRM result = %+v", updated)
	}
	if h.dispatcher.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", h.dispatcher.calls)
	}
	for _, want := range []string{
		activity.TypeEnrichmentStarted,
		activity.TypeEnrichmentCompleted,
		activity.TypeScoringStarted,
		activity.TypeScoringCompleted,
		activity.TypeCRMSyncStarted,
		activity.TypeCRMSyncCompleted,
	} {
		if !h.recorder.has(want) {
			t.Errorf("activity %s missing", want)
		}
	}
	if len(h.repo.claims) != 0 {
		t.Fatalf("stage lock still held: %v", h.repo.claims)
	}
}

func TestEnrichFailureRevertsToNew(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusNew,
	})
	h.enricher.err = errors.New("registry exploded")

	_, err := h.svc.Enrich(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindInternal {
		t.Fatalf("kind = %v, want internal", apperr.GetKind(err))
	}
	if h.repo.leads[lead.ID].Status != domain.StatusNew {
		t.Fatalf("status = %s, want NEW after failure", h.repo.leads[lead.ID].Status)
	}
	if !h.recorder.has(activity.TypeEnrichmentFailed) {
		t.Fatal("enrichment_failed activity missing")
	}
	if len(h.repo.claims) != 0 {
		t.Fatal("stage lock leaked after failure")
	}
}

func TestScoreBelowThresholdSkipsDispatch(t *testing.T) {
	h := newHarness()
	h.scorer.outcome = scoring.Outcome{Score: 59, Reason: "fraco"}
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusEnriched,
	})

	updated, err := h.svc.Score(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if updated.Status != domain.StatusUnqualified {
		t.Fatalf("status = %s, want UNQUALIFIED at 59", updated.Status)
	}
	if h.dispatcher.calls != 0 {
		t.Fatal("dispatcher called for an unqualified lead")
	}
}

func TestScoreAtThresholdQualifies(t *testing.T) {
	h := newHarness()
	h.scorer.outcome = scoring.Outcome{Score: 60, Reason: "no limite"}
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusEnriched,
	})

	updated, err := h.svc.Score(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if updated.Status != domain.StatusSentToCRM {
		t.Fatalf("status = %s, want SENT_TO_CRM at exactly 60", updated.Status)
	}
}

func TestAutoDispatchFailureLeavesLeadQualified(t *testing.T) {
	h := newHarness()
	h.dispatcher.err = errors.New("pipedrive down")
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusEnriched,
	})

	updated, err := h.svc.Score(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("auto-dispatch failure must not fail scoring: %v", err)
	}
	if updated.Status != domain.StatusQualified {
		t.Fatalf("status = %s, want QUALIFIED for manual retry", updated.Status)
	}

	// Manual dispatch propagates the same failure.
	_, err = h.svc.SendToCRM(context.Background(), lead.CompanyID, lead.ID, "pipedrive")
	if err == nil {
		t.Fatal("manual dispatch should propagate the provider error")
	}
	if !h.recorder.has(activity.TypeCRMSyncFailed) {
		t.Fatal("crm_sync_failed activity missing")
	}
}

func TestSendToCRMIsIdempotent(t *testing.T) {
	h := newHarness()
	crmID := "42"
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusSentToCRM,
		SentToCRM: true,
		CRMID:     &crmID,
	})

	got, err := h.svc.SendToCRM(context.Background(), lead.CompanyID, lead.ID, "")
	if err != nil {
		t.Fatalf("SendToCRM: %v", err)
	}
	if got.ID != lead.ID {
		t.Fatal("expected the stored lead back")
	}
	if h.dispatcher.calls != 0 {
		t.Fatal("dispatcher called for an already-sent lead")
	}
}

func TestSendToCRMRejectsUnqualifiedLead(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusNew,
	})

	_, err := h.svc.SendToCRM(context.Background(), lead.CompanyID, lead.ID, "")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestStageLockConflict(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusNew,
	})
	h.repo.claims[lead.ID] = "enrichment"

	_, err := h.svc.Enrich(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict while another stage holds the lock", apperr.GetKind(err))
	}
}

func TestMarkConverted(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusSentToCRM,
	})

	updated, err := h.svc.MarkConverted(context.Background(), lead.CompanyID, lead.ID)
	if err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}
	if updated.Status != domain.StatusConverted {
		t.Fatalf("status = %s, want CONVERTED", updated.Status)
	}
	if !h.recorder.has(activity.TypeLeadConverted) {
		t.Fatal("lead_converted activity missing")
	}

	fresh := h.repo.add(&repository.Lead{
		CompanyID: lead.CompanyID,
		Email:     strPtr("outro@empresa.com.br"),
		Status:    domain.StatusNew,
	})
	if _, err := h.svc.MarkConverted(context.Background(), fresh.CompanyID, fresh.ID); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("NEW lead conversion kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestApplyExternalScore(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusEnriched,
	})

	if _, err := h.svc.ApplyExternalScore(context.Background(), lead.CompanyID, lead.ID, 120, "x"); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatal("out-of-range score should fail validation")
	}

	updated, err := h.svc.ApplyExternalScore(context.Background(), lead.CompanyID, lead.ID, 70, "workflow externo")
	if err != nil {
		t.Fatalf("ApplyExternalScore: %v", err)
	}
	if updated.Status != domain.StatusQualified || *updated.Score != 70 {
		t.Fatalf("lead = %+v", updated)
	}
}

func TestApplyExternalEnrichment(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusNew,
	})

	if _, err := h.svc.ApplyExternalEnrichment(context.Background(), lead.CompanyID, lead.ID, []byte("not json")); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatal("malformed blob should fail validation")
	}

	updated, err := h.svc.ApplyExternalEnrichment(context.Background(), lead.CompanyID, lead.ID, []byte(`{"emailValidation":{"valid":true}}`))
	if err != nil {
		t.Fatalf("ApplyExternalEnrichment: %v", err)
	}
	if updated.Status != domain.StatusEnriched {
		t.Fatalf("status = %s, want ENRICHED", updated.Status)
	}
}

func TestGetScopesToTenant(t *testing.T) {
	h := newHarness()
	lead := h.repo.add(&repository.Lead{
		CompanyID: uuid.New(),
		Email:     strPtr("joao@empresa.com.br"),
		Status:    domain.StatusNew,
	})

	if _, err := h.svc.Get(context.Background(), uuid.New(), lead.ID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatal("foreign tenant should not see the lead")
	}
	if _, err := h.svc.Get(context.Background(), lead.CompanyID, lead.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
}

func TestCrmLeadProjection(t *testing.T) {
	score := 80
	reason := "bom lead"
	lead := &repository.Lead{
		ID:            uuid.New(),
		Name:          strPtr("João Silva"),
		Email:         strPtr("joao@empresa.com.br"),
		Source:        "linkedin",
		Score:         &score,
		ScoringReason: &reason,
		EnrichedData:  []byte(`{"cnpj":{"cnpj":"123","razaoSocial":"Empresa Ltda","nomeFantasia":"Empresa"},"emailValidation":{"valid":true}}`),
	}

	projected := crmLead(lead)
	if projected.Company != "Empresa" {
		t.Fatalf("company = %q, want trade name", projected.Company)
	}
	if projected.Score != 80 || projected.ScoringReason != "bom lead" {
		t.Fatalf("projection = %+v", projected)
	}
	if !strings.Contains(projected.EnrichedNote, "cnpj") || !strings.Contains(projected.EnrichedNote, "emailValidation") {
		t.Fatalf("enriched note = %q", projected.EnrichedNote)
	}
}
