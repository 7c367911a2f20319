package webhook

import (
	apphttp "github.com/N8Nexus-ai/product/internal/http"
	"github.com/N8Nexus-ai/product/platform/config"
	"github.com/N8Nexus-ai/product/platform/logger"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the acquisition channel bounded context implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, pipeline LeadPipeline, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(pipeline, log)
	handler := NewHandler(svc, repo, cfg, val)

	return &Module{
		handler: handler,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// AuthMiddleware returns the tenant API key middleware used by the router.
func (m *Module) AuthMiddleware() gin.HandlerFunc {
	return APIKeyAuthMiddleware(m.repo)
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Facebook subscription verification happens before any key exists.
	ctx.V1.GET("/webhooks/facebook-ads/verify", m.handler.HandleFacebookVerify)

	ctx.Webhooks.POST("/facebook-ads", m.handler.HandleFacebook)
	ctx.Webhooks.POST("/google-ads", m.handler.HandleGoogle)
	ctx.Webhooks.POST("/linkedin-ads", m.handler.HandleLinkedIn)
	ctx.Webhooks.POST("/typeform", m.handler.HandleTypeform)
	ctx.Webhooks.POST("/landing-page", m.handler.HandleLandingPage)
	ctx.Webhooks.POST("/n8n", m.handler.HandleN8N)

	keys := ctx.API.Group("/webhook-keys")
	keys.POST("", m.handler.HandleCreateAPIKey)
	keys.GET("", m.handler.HandleListAPIKeys)
	keys.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
