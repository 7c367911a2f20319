package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/N8Nexus-ai/product/platform/apperr"
)

const (
	hubspotBaseURL     = "https://api.hubapi.com"
	hubspotSendTimeout = 10 * time.Second
	hubspotTestTimeout = 5 * time.Second

	// HubSpot association type for note -> contact.
	hubspotNoteToContactTypeID = 202
)

// hubspotConfig is the tenant's stored HubSpot credential bundle.
type hubspotConfig struct {
	AccessToken string `json:"accessToken"`
}

// HubSpot sends leads as contacts with an attached scoring note.
type HubSpot struct {
	baseURL    string
	sendClient *http.Client
	testClient *http.Client
}

// NewHubSpot creates the HubSpot adapter.
func NewHubSpot() *HubSpot {
	return &HubSpot{
		baseURL:    hubspotBaseURL,
		sendClient: &http.Client{Timeout: hubspotSendTimeout},
		testClient: &http.Client{Timeout: hubspotTestTimeout},
	}
}

// Type implements Provider.
func (h *HubSpot) Type() string { return TypeHubSpot }

func parseHubSpotConfig(raw json.RawMessage) (*hubspotConfig, error) {
	var cfg hubspotConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "malformed HubSpot config", err)
	}
	if cfg.AccessToken == "" {
		return nil, apperr.Validation("HubSpot config requires accessToken")
	}
	return &cfg, nil
}

func hubspotHeaders(cfg *hubspotConfig) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cfg.AccessToken}
}

// TestConnection validates the token with a one-row contact read.
func (h *HubSpot) TestConnection(ctx context.Context, config json.RawMessage) error {
	cfg, err := parseHubSpotConfig(config)
	if err != nil {
		return err
	}
	url := h.baseURL + "/crm/v3/objects/contacts?limit=1"
	return doJSON(ctx, h.testClient, http.MethodGet, url, hubspotHeaders(cfg), nil, nil)
}

type hubspotObjectResponse struct {
	ID string `json:"id"`
}

// Send creates a contact and attaches the scoring note.
func (h *HubSpot) Send(ctx context.Context, lead Lead, config json.RawMessage) (*Result, error) {
	cfg, err := parseHubSpotConfig(config)
	if err != nil {
		return nil, err
	}

	firstName, lastName := splitName(lead.Name)
	properties := map[string]any{
		"hs_lead_status": "NEW",
		"lifecyclestage": "lead",
	}
	if lead.Email != "" {
		properties["email"] = lead.Email
	}
	if firstName != "" {
		properties["firstname"] = firstName
	}
	if lastName != "" {
		properties["lastname"] = lastName
	}
	if lead.Phone != "" {
		properties["phone"] = lead.Phone
	}
	if lead.Source != "" {
		properties["hs_analytics_source"] = strings.ToUpper(lead.Source)
	}
	if lead.Company != "" {
		properties["company"] = lead.Company
	}

	var contact hubspotObjectResponse
	url := h.baseURL + "/crm/v3/objects/contacts"
	if err := doJSON(ctx, h.sendClient, http.MethodPost, url, hubspotHeaders(cfg), map[string]any{"properties": properties}, &contact); err != nil {
		return nil, err
	}

	noteBody := map[string]any{
		"properties": map[string]any{
			"hs_note_body": leadNote(lead),
			"hs_timestamp": time.Now().UnixMilli(),
		},
		"associations": []map[string]any{{
			"to": map[string]any{"id": contact.ID},
			"types": []map[string]any{{
				"associationCategory": "HUBSPOT_DEFINED",
				"associationTypeId":   hubspotNoteToContactTypeID,
			}},
		}},
	}

	var note hubspotObjectResponse
	if err := doJSON(ctx, h.sendClient, http.MethodPost, h.baseURL+"/crm/v3/objects/notes", hubspotHeaders(cfg), noteBody, &note); err != nil {
		return nil, err
	}

	return &Result{
		CRMID:  contact.ID,
		Status: "open",
		URL:    fmt.Sprintf("https://app.hubspot.com/contacts/%s", contact.ID),
	}, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
