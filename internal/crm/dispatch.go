package crm

import (
	"context"
	"encoding/json"

	"github.com/N8Nexus-ai/product/platform/apperr"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

// IntegrationRef is the slice of a stored integration the dispatcher needs.
type IntegrationRef struct {
	ID     uuid.UUID
	Type   string
	Config json.RawMessage
}

// IntegrationSource resolves a tenant's active CRM integration. Implemented
// by the integrations module.
type IntegrationSource interface {
	// ActiveCRM returns the active integration of the requested CRM type,
	// or the first active CRM integration when crmType is empty.
	// Returns (nil, nil) when the tenant has none.
	ActiveCRM(ctx context.Context, companyID uuid.UUID, crmType string) (*IntegrationRef, error)
	// MarkSynced stamps a successful send on the integration.
	MarkSynced(ctx context.Context, integrationID uuid.UUID) error
}

// Dispatcher resolves the tenant's integration and runs the provider send.
type Dispatcher struct {
	registry *Registry
	source   IntegrationSource
	log      *logger.Logger
}

// NewDispatcher creates the CRM dispatcher.
func NewDispatcher(registry *Registry, source IntegrationSource, log *logger.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, source: source, log: log}
}

// Dispatch sends the lead through the tenant's active CRM. The at-most-once
// guarantee lives above this call, in the pipeline controller; Dispatch
// itself always attempts the send.
func (d *Dispatcher) Dispatch(ctx context.Context, companyID uuid.UUID, lead Lead, crmType string) (*Result, string, error) {
	ref, err := d.source.ActiveCRM(ctx, companyID, crmType)
	if err != nil {
		return nil, "", err
	}
	if ref == nil {
		return nil, "", apperr.BadRequest("no active CRM integration found")
	}

	provider, err := d.registry.Get(ref.Type)
	if err != nil {
		return nil, "", err
	}

	result, err := provider.Send(ctx, lead, ref.Config)
	if err != nil {
		return nil, ref.Type, err
	}

	if err := d.source.MarkSynced(ctx, ref.ID); err != nil {
		d.log.DatabaseError("crm.mark_synced", err)
	}

	return result, ref.Type, nil
}
