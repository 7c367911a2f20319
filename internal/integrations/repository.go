// Package integrations manages per-tenant external provider credential
// bundles and gates their activation behind a connection test.
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration is one tenant's stored provider configuration.
type Integration struct {
	ID        uuid.UUID       `json:"id"`
	CompanyID uuid.UUID       `json:"companyId"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	Active    bool            `json:"active"`
	LastSync  *time.Time      `json:"lastSync,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

const integrationColumns = `
	id, company_id, type, name, config, active, last_sync, created_at, updated_at`

// Repository persists integrations with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an integrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanIntegration(row pgx.Row) (*Integration, error) {
	var integration Integration
	err := row.Scan(
		&integration.ID, &integration.CompanyID, &integration.Type,
		&integration.Name, &integration.Config, &integration.Active,
		&integration.LastSync, &integration.CreatedAt, &integration.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan integration: %w", err)
	}
	return &integration, nil
}

// Upsert stores the configuration for a (tenant, type) pair, activating it
// and stamping last_sync.
func (r *Repository) Upsert(ctx context.Context, companyID uuid.UUID, integrationType, name string, config json.RawMessage) (*Integration, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO integrations (id, company_id, type, name, config, active, last_sync, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now(), now())
		ON CONFLICT (company_id, type) DO UPDATE SET
			name = EXCLUDED.name,
			config = EXCLUDED.config,
			active = true,
			last_sync = now(),
			updated_at = now()
		RETURNING`+integrationColumns,
		uuid.New(), companyID, integrationType, name, config,
	)
	return scanIntegration(row)
}

// GetByType returns the tenant's integration of the given type, active or
// not. Returns (nil, nil) when absent.
func (r *Repository) GetByType(ctx context.Context, companyID uuid.UUID, integrationType string) (*Integration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+integrationColumns+`
		FROM integrations
		WHERE company_id = $1 AND type = $2`,
		companyID, integrationType,
	)
	return scanIntegration(row)
}

// GetActiveByType returns the tenant's active integration of the given type.
func (r *Repository) GetActiveByType(ctx context.Context, companyID uuid.UUID, integrationType string) (*Integration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+integrationColumns+`
		FROM integrations
		WHERE company_id = $1 AND type = $2 AND active = true`,
		companyID, integrationType,
	)
	return scanIntegration(row)
}

// FirstActiveOfTypes returns the tenant's first active integration among the
// given types, oldest configuration first.
func (r *Repository) FirstActiveOfTypes(ctx context.Context, companyID uuid.UUID, types []string) (*Integration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+integrationColumns+`
		FROM integrations
		WHERE company_id = $1 AND active = true AND type = ANY($2)
		ORDER BY created_at
		LIMIT 1`,
		companyID, types,
	)
	return scanIntegration(row)
}

// List returns all of the tenant's integrations.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID) ([]Integration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+integrationColumns+`
		FROM integrations
		WHERE company_id = $1
		ORDER BY created_at`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integration)
	}

	return integrations, rows.Err()
}

// Delete removes the tenant's integration of the given type.
func (r *Repository) Delete(ctx context.Context, companyID uuid.UUID, integrationType string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM integrations WHERE company_id = $1 AND type = $2`,
		companyID, integrationType,
	)
	if err != nil {
		return false, fmt.Errorf("delete integration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TouchLastSync stamps a successful provider interaction.
func (r *Repository) TouchLastSync(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE integrations SET last_sync = now(), updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("touch last sync: %w", err)
	}
	return nil
}
