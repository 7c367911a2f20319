package crm

import (
	"context"
	"encoding/json"

	"github.com/N8Nexus-ai/product/platform/apperr"
)

// Salesforce is registered so tenants see the provider in the catalog, but
// every call returns a not-implemented error. Callers must not auto-retry:
// the error only clears with a configuration change.
type Salesforce struct{}

// NewSalesforce creates the placeholder Salesforce adapter.
func NewSalesforce() *Salesforce { return &Salesforce{} }

// Type implements Provider.
func (s *Salesforce) Type() string { return TypeSalesforce }

// TestConnection implements Provider.
func (s *Salesforce) TestConnection(ctx context.Context, config json.RawMessage) error {
	return apperr.NotImplemented("Salesforce integration coming soon")
}

// Send implements Provider.
func (s *Salesforce) Send(ctx context.Context, lead Lead, config json.RawMessage) (*Result, error) {
	return nil, apperr.NotImplemented("Salesforce integration coming soon")
}
