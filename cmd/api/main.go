package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/N8Nexus-ai/product/internal/crm"
	"github.com/N8Nexus-ai/product/internal/enrichment"
	apphttp "github.com/N8Nexus-ai/product/internal/http"
	"github.com/N8Nexus-ai/product/internal/http/router"
	"github.com/N8Nexus-ai/product/internal/integrations"
	"github.com/N8Nexus-ai/product/internal/leads"
	"github.com/N8Nexus-ai/product/internal/scoring"
	"github.com/N8Nexus-ai/product/internal/webhook"
	"github.com/N8Nexus-ai/product/platform/ai/anthropic"
	"github.com/N8Nexus-ai/product/platform/ai/gemini"
	"github.com/N8Nexus-ai/product/platform/config"
	"github.com/N8Nexus-ai/product/platform/db"
	"github.com/N8Nexus-ai/product/platform/events"
	"github.com/N8Nexus-ai/product/platform/httpkit"
	"github.com/N8Nexus-ai/product/platform/logger"
	"github.com/N8Nexus-ai/product/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	registry := crm.NewRegistry(crm.NewPipedrive(), crm.NewHubSpot(), crm.NewSalesforce())
	integrationsModule := integrations.NewModule(pool, registry, val, log)
	dispatcher := crm.NewDispatcher(registry, integrationsModule.CRMSource(), log)

	enricher := enrichment.NewService(
		enrichment.NewRegistryClient(cfg.GetCompanyRegistryBaseURL(), cfg.GetEnrichmentTimeout(), log),
		log,
	)
	scorer := scoring.NewService(buildAIEstimator(ctx, cfg, log), log)

	leadsModule := leads.NewModule(pool, leads.Deps{
		Enricher:   enricher,
		Scorer:     scorer,
		Dispatcher: dispatcher,
	}, eventBus, val, log)

	webhookModule := webhook.NewModule(pool, leadsModule.Service(), cfg, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		KeyAuth:        webhookModule.AuthMiddleware(),
		WebhookLimiter: httpkit.NewWebhookRateLimiter(cfg, log),
		Modules: []apphttp.Module{
			leadsModule,
			integrationsModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// buildAIEstimator wires whichever AI providers are configured. Gemini is
// tried first, Anthropic second; with neither key set scoring runs rule-only.
func buildAIEstimator(ctx context.Context, cfg config.AIConfig, log *logger.Logger) *scoring.AIEstimator {
	var providers []scoring.TextGenerator

	if key := cfg.GetGeminiAPIKey(); key != "" {
		client, err := gemini.New(ctx, key, cfg.GetGeminiModel())
		if err != nil {
			log.Error("failed to initialize gemini client", "error", err)
		} else {
			providers = append(providers, client)
		}
	}

	if key := cfg.GetAnthropicAPIKey(); key != "" {
		client, err := anthropic.New(key, cfg.GetAnthropicModel())
		if err != nil {
			log.Error("failed to initialize anthropic client", "error", err)
		} else {
			providers = append(providers, client)
		}
	}

	if len(providers) == 0 {
		log.Warn("no AI provider configured; scoring will be rule-based only")
	}

	return scoring.NewAIEstimator(log, providers...)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
