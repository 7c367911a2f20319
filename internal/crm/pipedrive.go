package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/N8Nexus-ai/product/platform/apperr"
)

const (
	pipedriveSendTimeout = 10 * time.Second
	pipedriveTestTimeout = 5 * time.Second
)

// pipedriveConfig is the tenant's stored Pipedrive credential bundle.
type pipedriveConfig struct {
	APIToken      string `json:"apiToken"`
	CompanyDomain string `json:"companyDomain"`
	ScoreFieldKey string `json:"scoreFieldKey,omitempty"`
}

// Pipedrive sends leads through the person -> deal -> note sequence.
type Pipedrive struct {
	sendClient *http.Client
	testClient *http.Client
}

// NewPipedrive creates the Pipedrive adapter.
func NewPipedrive() *Pipedrive {
	return &Pipedrive{
		sendClient: &http.Client{Timeout: pipedriveSendTimeout},
		testClient: &http.Client{Timeout: pipedriveTestTimeout},
	}
}

// Type implements Provider.
func (p *Pipedrive) Type() string { return TypePipedrive }

func parsePipedriveConfig(raw json.RawMessage) (*pipedriveConfig, error) {
	var cfg pipedriveConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "malformed Pipedrive config", err)
	}
	if cfg.APIToken == "" || cfg.CompanyDomain == "" {
		return nil, apperr.Validation("Pipedrive config requires apiToken and companyDomain")
	}
	return &cfg, nil
}

func (p *Pipedrive) endpoint(cfg *pipedriveConfig, path string) string {
	return fmt.Sprintf("https://%s/api/v1/%s?api_token=%s",
		cfg.CompanyDomain, strings.TrimLeft(path, "/"), url.QueryEscape(cfg.APIToken))
}

// TestConnection validates the token with a users/me read.
func (p *Pipedrive) TestConnection(ctx context.Context, config json.RawMessage) error {
	cfg, err := parsePipedriveConfig(config)
	if err != nil {
		return err
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := doJSON(ctx, p.testClient, http.MethodGet, p.endpoint(cfg, "users/me"), nil, nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return apperr.Unauthorized("Pipedrive rejected the API token")
	}
	return nil
}

type pipedriveEntityResponse struct {
	Success bool `json:"success"`
	Data    struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

// Send creates a person, attaches a deal, and notes the scoring summary.
func (p *Pipedrive) Send(ctx context.Context, lead Lead, config json.RawMessage) (*Result, error) {
	cfg, err := parsePipedriveConfig(config)
	if err != nil {
		return nil, err
	}

	personBody := map[string]any{"name": displayName(lead)}
	if lead.Email != "" {
		personBody["email"] = []string{lead.Email}
	}
	if lead.Phone != "" {
		personBody["phone"] = []string{lead.Phone}
	}

	var person pipedriveEntityResponse
	if err := doJSON(ctx, p.sendClient, http.MethodPost, p.endpoint(cfg, "persons"), nil, personBody, &person); err != nil {
		return nil, err
	}
	if !person.Success {
		return nil, apperr.Unavailable("Pipedrive refused the person create")
	}

	dealBody := map[string]any{
		"title":      dealTitle(lead),
		"person_id":  person.Data.ID,
		"value":      0,
		"currency":   "BRL",
		"visible_to": 3,
	}
	if cfg.ScoreFieldKey != "" {
		dealBody[cfg.ScoreFieldKey] = lead.Score
	}

	var deal pipedriveEntityResponse
	if err := doJSON(ctx, p.sendClient, http.MethodPost, p.endpoint(cfg, "deals"), nil, dealBody, &deal); err != nil {
		return nil, err
	}
	if !deal.Success {
		return nil, apperr.Unavailable("Pipedrive refused the deal create")
	}

	noteBody := map[string]any{
		"content": leadNote(lead),
		"deal_id": deal.Data.ID,
	}
	var note pipedriveEntityResponse
	if err := doJSON(ctx, p.sendClient, http.MethodPost, p.endpoint(cfg, "notes"), nil, noteBody, &note); err != nil {
		return nil, err
	}

	return &Result{
		CRMID:  fmt.Sprintf("%d", deal.Data.ID),
		Status: "open",
		URL:    fmt.Sprintf("https://%s/deal/%d", cfg.CompanyDomain, deal.Data.ID),
	}, nil
}

func displayName(lead Lead) string {
	if lead.Name != "" {
		return lead.Name
	}
	if lead.Email != "" {
		return lead.Email
	}
	return "Unknown lead"
}

func dealTitle(lead Lead) string {
	title := fmt.Sprintf("Lead: %s", displayName(lead))
	if lead.Company != "" {
		title += fmt.Sprintf(" - %s", lead.Company)
	}
	return title
}

// leadNote renders the message, score, and enrichment summary attached to
// the created CRM record.
func leadNote(lead Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d/100\n", lead.Score)
	if lead.ScoringReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", lead.ScoringReason)
	}
	if lead.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", lead.Message)
	}
	if lead.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", lead.Source)
	}
	if lead.EnrichedNote != "" {
		fmt.Fprintf(&b, "Enrichment: %s\n", lead.EnrichedNote)
	}
	return strings.TrimRight(b.String(), "\n")
}
