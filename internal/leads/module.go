// Package leads provides the lead pipeline domain module.
package leads

import (
	"github.com/N8Nexus-ai/product/internal/activity"
	"github.com/N8Nexus-ai/product/internal/crm"
	"github.com/N8Nexus-ai/product/internal/enrichment"
	apphttp "github.com/N8Nexus-ai/product/internal/http"
	"github.com/N8Nexus-ai/product/internal/leads/handler"
	"github.com/N8Nexus-ai/product/internal/leads/repository"
	"github.com/N8Nexus-ai/product/internal/leads/service"
	"github.com/N8Nexus-ai/product/internal/outbox"
	"github.com/N8Nexus-ai/product/internal/scoring"
	"github.com/N8Nexus-ai/product/platform/events"
	"github.com/N8Nexus-ai/product/platform/logger"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the leads domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// Deps are the engine dependencies the pipeline controller needs. The
// composition root builds them so the module stays free of provider setup.
type Deps struct {
	Enricher   *enrichment.Service
	Scorer     *scoring.Service
	Dispatcher *crm.Dispatcher
}

// NewModule creates the leads module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, deps Deps, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	activityRepo := activity.NewRepository(pool)
	recorder := activity.NewRecorder(activityRepo, log)
	outboxRepo := outbox.New(pool)

	svc := service.New(repo, deps.Enricher, deps.Scorer, deps.Dispatcher, recorder, outboxRepo, eventBus, log)
	h := handler.New(svc, activityRepo, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the pipeline controller for the worker and webhook modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the persistence layer for cross-module adapters.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.API.Group("/leads")
	m.handler.RegisterRoutes(leads)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
