// Package transport defines the request and response DTOs for the leads API.
package transport

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateLeadRequest is the request body for creating a lead manually.
type CreateLeadRequest struct {
	Name         *string         `json:"name" validate:"omitempty,max=500"`
	Email        *string         `json:"email" validate:"omitempty,email"`
	Phone        *string         `json:"phone" validate:"omitempty,max=30"`
	Message      *string         `json:"message" validate:"omitempty,max=5000"`
	Source       string          `json:"source" validate:"omitempty,max=100"`
	CustomFields json.RawMessage `json:"customFields"`
	CampaignID   *uuid.UUID      `json:"campaignId"`
}

// UpdateLeadRequest is the request body for editing lead fields.
type UpdateLeadRequest struct {
	Name         *string         `json:"name" validate:"omitempty,max=500"`
	Email        *string         `json:"email" validate:"omitempty,email"`
	Phone        *string         `json:"phone" validate:"omitempty,max=30"`
	Message      *string         `json:"message" validate:"omitempty,max=5000"`
	Source       *string         `json:"source" validate:"omitempty,max=100"`
	CustomFields json.RawMessage `json:"customFields"`
}

// ListLeadsQuery narrows and pages the lead listing.
type ListLeadsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=NEW ENRICHING ENRICHED SCORING QUALIFIED UNQUALIFIED SENT_TO_CRM CONVERTED LOST"`
	Source string `form:"source" validate:"omitempty,max=100"`
	Search string `form:"search" validate:"omitempty,max=200"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}

// SendToCRMRequest optionally pins the dispatch to one CRM type.
type SendToCRMRequest struct {
	CRMType string `json:"crmType" validate:"omitempty,oneof=pipedrive hubspot salesforce crm_pipedrive crm_hubspot crm_salesforce"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ListLeadsResponse pages the tenant's leads.
type ListLeadsResponse struct {
	Leads  any `json:"leads"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
