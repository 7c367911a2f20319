// Package repository provides persistence for the leads bounded context.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/N8Nexus-ai/product/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Lead is the central pipeline entity.
type Lead struct {
	ID            uuid.UUID       `json:"id"`
	CompanyID     uuid.UUID       `json:"companyId"`
	Name          *string         `json:"name,omitempty"`
	Email         *string         `json:"email,omitempty"`
	Phone         *string         `json:"phone,omitempty"`
	Message       *string         `json:"message,omitempty"`
	Source        string          `json:"source"`
	CustomFields  json.RawMessage `json:"customFields,omitempty"`
	CampaignID    *uuid.UUID      `json:"campaignId,omitempty"`
	EnrichedData  json.RawMessage `json:"enrichedData,omitempty"`
	EnrichedAt    *time.Time      `json:"enrichedAt,omitempty"`
	Score         *int            `json:"score,omitempty"`
	ScoringReason *string         `json:"scoringReason,omitempty"`
	ScoredAt      *time.Time      `json:"scoredAt,omitempty"`
	SentToCRM     bool            `json:"sentToCrm"`
	CRMID         *string         `json:"crmId,omitempty"`
	CRMStatus     *string         `json:"crmStatus,omitempty"`
	SentToCRMAt   *time.Time      `json:"sentToCrmAt,omitempty"`
	Status        domain.Status   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CreateParams are the canonical fields accepted from any acquisition channel.
type CreateParams struct {
	CompanyID    uuid.UUID
	Name         *string
	Email        *string
	Phone        *string
	Message      *string
	Source       string
	CustomFields json.RawMessage
	CampaignID   *uuid.UUID
}

// UpdateParams are the operator-editable lead fields.
type UpdateParams struct {
	Name         *string
	Email        *string
	Phone        *string
	Message      *string
	Source       *string
	CustomFields json.RawMessage
}

// ListFilter narrows and pages the tenant's lead listing.
type ListFilter struct {
	Status *domain.Status
	Source *string
	Search *string
	Limit  int
	Offset int
}

const leadColumns = `
	id, company_id, name, email, phone, message, source, custom_fields,
	campaign_id, enriched_data, enriched_at, score, scoring_reason, scored_at,
	sent_to_crm, crm_id, crm_status, sent_to_crm_at, status, created_at, updated_at`

// Repository persists leads with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.CompanyID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.Message, &lead.Source, &lead.CustomFields, &lead.CampaignID,
		&lead.EnrichedData, &lead.EnrichedAt, &lead.Score, &lead.ScoringReason,
		&lead.ScoredAt, &lead.SentToCRM, &lead.CRMID, &lead.CRMStatus,
		&lead.SentToCRMAt, &lead.Status, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	return &lead, nil
}

// Create inserts a new lead in status NEW.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, company_id, name, email, phone, message, source, custom_fields,
			campaign_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING`+leadColumns,
		uuid.New(), params.CompanyID, params.Name, params.Email, params.Phone,
		params.Message, params.Source, params.CustomFields, params.CampaignID,
		domain.StatusNew,
	)
	return scanLead(row)
}

// GetByID fetches one lead scoped to its tenant. Returns (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, companyID, id uuid.UUID) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	return scanLead(row)
}

// Get fetches one lead by id without tenant scoping, for worker use.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE id = $1`,
		id,
	)
	return scanLead(row)
}

// List returns the tenant's leads matching the filter, newest first,
// together with the total match count for pagination.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Lead, int, error) {
	where := "WHERE company_id = $1"
	args := []any{companyID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Source != nil {
		args = append(args, *filter.Source)
		where += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filter.Search != nil {
		args = append(args, "%"+*filter.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", len(args), len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM leads "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(
		"SELECT"+leadColumns+" FROM leads %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, *lead)
	}

	return leads, total, rows.Err()
}

// Update rewrites the operator-editable fields. Returns (nil, nil) when absent.
func (r *Repository) Update(ctx context.Context, companyID, id uuid.UUID, params UpdateParams) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			name = COALESCE($3, name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			message = COALESCE($6, message),
			source = COALESCE($7, source),
			custom_fields = COALESCE($8, custom_fields),
			updated_at = now()
		WHERE id = $1 AND company_id = $2
		RETURNING`+leadColumns,
		id, companyID, params.Name, params.Email, params.Phone,
		params.Message, params.Source, params.CustomFields,
	)
	return scanLead(row)
}

// Delete removes a lead. Administrative operation, cascades to activities.
func (r *Repository) Delete(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM leads WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatus moves a lead to a new pipeline status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		id, status,
	)
	return scanLead(row)
}

// MergeEnrichment merges new facets into the enriched blob and marks the lead
// ENRICHED. The jsonb concatenation only touches the top-level facet keys
// present in the new blob, so facets from earlier passes survive a later
// partial pass.
func (r *Repository) MergeEnrichment(ctx context.Context, id uuid.UUID, facets json.RawMessage) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			enriched_data = COALESCE(enriched_data, '{}'::jsonb) || $2::jsonb,
			enriched_at = now(),
			status = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		id, facets, domain.StatusEnriched,
	)
	return scanLead(row)
}

// SetScore stores the scoring outcome and the resulting status.
func (r *Repository) SetScore(ctx context.Context, id uuid.UUID, score int, reason string, status domain.Status) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			score = $2,
			scoring_reason = $3,
			scored_at = now(),
			status = $4,
			updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		id, score, reason, status,
	)
	return scanLead(row)
}

// SetCRMResult stores a successful dispatch outcome and marks the lead sent.
func (r *Repository) SetCRMResult(ctx context.Context, id uuid.UUID, crmID, crmStatus string) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			sent_to_crm = true,
			crm_id = $2,
			crm_status = $3,
			sent_to_crm_at = now(),
			status = $4,
			updated_at = now()
		WHERE id = $1
		RETURNING`+leadColumns,
		id, crmID, crmStatus, domain.StatusSentToCRM,
	)
	return scanLead(row)
}

// ClaimStage acquires the per-lead advisory lock by compare-and-swap on the
// processing_stage column. Returns false when another stage holds the lock.
func (r *Repository) ClaimStage(ctx context.Context, id uuid.UUID, stage string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET processing_stage = $2, updated_at = now()
		WHERE id = $1 AND processing_stage IS NULL`,
		id, stage,
	)
	if err != nil {
		return false, fmt.Errorf("claim stage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseStage drops the advisory lock regardless of the stage outcome.
func (r *Repository) ReleaseStage(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE leads SET processing_stage = NULL, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("release stage: %w", err)
	}
	return nil
}

// FindByContact returns an existing tenant lead matching the email or phone,
// used for duplicate detection at intake. Returns (nil, nil) when none match.
func (r *Repository) FindByContact(ctx context.Context, companyID uuid.UUID, email, phone *string) (*Lead, error) {
	if email == nil && phone == nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE company_id = $1
		  AND (($2::text IS NOT NULL AND email = $2) OR ($3::text IS NOT NULL AND phone = $3))
		ORDER BY created_at DESC
		LIMIT 1`,
		companyID, email, phone,
	)
	return scanLead(row)
}
