// Package activity provides the append-only per-lead activity log.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Activity type tags written by the pipeline stages.
const (
	TypeLeadCreated         = "lead_created"
	TypeLeadUpdated         = "lead_updated"
	TypeLeadConverted       = "lead_converted"
	TypeEnrichmentStarted   = "enrichment_started"
	TypeEnrichmentCompleted = "enrichment_completed"
	TypeEnrichmentFailed    = "enrichment_failed"
	TypeScoringStarted      = "scoring_started"
	TypeScoringCompleted    = "scoring_completed"
	TypeScoringFailed       = "scoring_failed"
	TypeCRMSyncStarted      = "crm_sync_started"
	TypeCRMSyncCompleted    = "crm_sync_completed"
	TypeCRMSyncFailed       = "crm_sync_failed"
)

// Activity is one immutable pipeline event for one lead.
type Activity struct {
	ID          uuid.UUID       `json:"id"`
	LeadID      uuid.UUID       `json:"leadId"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Repository persists activities. Inserts only; rows are never updated.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one activity row.
func (r *Repository) Insert(ctx context.Context, leadID uuid.UUID, activityType, description string, payload json.RawMessage) (*Activity, error) {
	activity := &Activity{
		ID:          uuid.New(),
		LeadID:      leadID,
		Type:        activityType,
		Description: description,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activities (id, lead_id, type, description, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		activity.ID, activity.LeadID, activity.Type, activity.Description, activity.Payload, activity.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	return activity, nil
}

// ListByLead returns a lead's activities ordered by creation time, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, type, description, payload, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Description, &a.Payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}

	return activities, rows.Err()
}
