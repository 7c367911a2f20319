// Package crm provides the CRM dispatch engine: capability-based provider
// adapters behind a registry, plus the dispatch rules that guarantee
// at-most-one successful send per lead.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/N8Nexus-ai/product/platform/apperr"

	"github.com/google/uuid"
)

// Integration type tags for CRM providers.
const (
	TypePipedrive  = "crm_pipedrive"
	TypeHubSpot    = "crm_hubspot"
	TypeSalesforce = "crm_salesforce"
)

// Lead is the provider-facing projection of a qualified lead.
type Lead struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         string
	Message       string
	Company       string
	Source        string
	Score         int
	ScoringReason string
	EnrichedNote  string
}

// Result is the normalized outcome of a successful send.
type Result struct {
	CRMID  string `json:"crmId"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// Provider is one CRM adapter. Adding a provider means adding one
// implementation and registering it, never editing dispatch control flow.
type Provider interface {
	// Type returns the integration type tag the provider serves.
	Type() string
	// TestConnection validates stored credentials with a lightweight read.
	TestConnection(ctx context.Context, config json.RawMessage) error
	// Send pushes the lead through the provider's create sequence.
	Send(ctx context.Context, lead Lead, config json.RawMessage) (*Result, error)
}

// Registry resolves providers by integration type.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a provider registry.
func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		registry.providers[p.Type()] = p
	}
	return registry
}

// Get resolves a provider. Accepts both the full integration type tag and
// the bare provider name ("pipedrive" for "crm_pipedrive").
func (r *Registry) Get(providerType string) (Provider, error) {
	normalized := strings.ToLower(strings.TrimSpace(providerType))
	if !strings.HasPrefix(normalized, "crm_") {
		normalized = "crm_" + normalized
	}
	provider, ok := r.providers[normalized]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown CRM provider type: %s", providerType))
	}
	return provider, nil
}

// Types lists the registered integration type tags.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	return types
}

// doJSON performs a JSON request and decodes the response into out when the
// call succeeds. Non-2xx responses become upstream errors carrying a body
// excerpt for diagnostics.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "CRM request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.New(apperr.KindUnavailable,
			fmt.Sprintf("CRM responded %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
