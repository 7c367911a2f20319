// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"github.com/N8Nexus-ai/product/platform/config"
	"github.com/N8Nexus-ai/product/platform/httpkit"
	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the config surface the HTTP router needs.
type RouterConfig interface {
	config.HTTPConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// KeyAuth authenticates tenant API keys and resolves the organization ID.
	KeyAuth gin.HandlerFunc
	// WebhookLimiter throttles the public acquisition endpoints per client IP.
	WebhookLimiter *httpkit.IPRateLimiter
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
