package integrations

import (
	"github.com/N8Nexus-ai/product/internal/crm"
	apphttp "github.com/N8Nexus-ai/product/internal/http"
	"github.com/N8Nexus-ai/product/platform/logger"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the integrations bounded context implementing http.Module.
type Module struct {
	handler   *Handler
	service   *Service
	crmSource *CRMSource
}

// NewModule creates the integrations module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, registry *crm.Registry, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, registry, log)
	h := NewHandler(svc, val)

	return &Module{
		handler:   h,
		service:   svc,
		crmSource: NewCRMSource(repo),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "integrations"
}

// CRMSource returns the adapter the dispatch engine reads integrations through.
func (m *Module) CRMSource() *CRMSource {
	return m.crmSource
}

// RegisterRoutes mounts integration routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	integrations := ctx.API.Group("/integrations")
	m.handler.RegisterRoutes(integrations)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
