// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/N8Nexus-ai/product/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Pipeline Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	CompanyID uuid.UUID `json:"companyId"`
	Source    string    `json:"source"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadEnriched is published after an enrichment pass completes successfully.
type LeadEnriched struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	CompanyID      uuid.UUID `json:"companyId"`
	EnrichedFacets []string  `json:"enrichedFacets"`
}

func (e LeadEnriched) EventName() string { return "leads.lead.enriched" }

// LeadScored is published after scoring completes.
type LeadScored struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	CompanyID uuid.UUID `json:"companyId"`
	Score     int       `json:"score"`
	Qualified bool      `json:"qualified"`
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// LeadSentToCRM is published after a successful CRM dispatch.
type LeadSentToCRM struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	CompanyID uuid.UUID `json:"companyId"`
	CRMType   string    `json:"crmType"`
	CRMID     string    `json:"crmId"`
}

func (e LeadSentToCRM) EventName() string { return "leads.lead.sent_to_crm" }

// LeadEnrichmentFailed is published when an enrichment pass fails outright.
type LeadEnrichmentFailed struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	CompanyID uuid.UUID `json:"companyId"`
	Reason    string    `json:"reason"`
}

func (e LeadEnrichmentFailed) EventName() string { return "leads.lead.enrichment_failed" }
