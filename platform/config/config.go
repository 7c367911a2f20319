// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for asynq and the outbox dispatcher.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetWorkerConcurrency() int
	GetAsynqQueueName() string
	GetOutboxPollInterval() time.Duration
	GetOutboxBatchSize() int
}

// AIConfig provides settings for the AI scoring providers.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetAnthropicAPIKey() string
	GetAnthropicModel() string
	IsAIEnabled() bool
}

// EnrichmentConfig provides settings for the enrichment clients.
type EnrichmentConfig interface {
	GetCompanyRegistryBaseURL() string
	GetEnrichmentTimeout() time.Duration
}

// WebhookConfig provides settings for the public webhook surface.
type WebhookConfig interface {
	GetWebhookRatePerMinute() float64
	GetWebhookRateBurst() int
	GetFacebookVerifyToken() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	RedisURL               string
	RedisTLSInsecure       bool
	WorkerConcurrency      int
	AsynqQueueName         string
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	GeminiAPIKey           string
	GeminiModel            string
	AnthropicAPIKey        string
	AnthropicModel         string
	CompanyRegistryBaseURL string
	EnrichmentTimeout      time.Duration
	WebhookRatePerMinute   float64
	WebhookRateBurst       int
	FacebookVerifyToken    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool             { return c.RedisTLSInsecure }
func (c *Config) GetWorkerConcurrency() int             { return c.WorkerConcurrency }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetOutboxPollInterval() time.Duration  { return c.OutboxPollInterval }
func (c *Config) GetOutboxBatchSize() int               { return c.OutboxBatchSize }

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string    { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string     { return c.GeminiModel }
func (c *Config) GetAnthropicAPIKey() string { return c.AnthropicAPIKey }
func (c *Config) GetAnthropicModel() string  { return c.AnthropicModel }
func (c *Config) IsAIEnabled() bool {
	return c.GeminiAPIKey != "" || c.AnthropicAPIKey != ""
}

// EnrichmentConfig implementation
func (c *Config) GetCompanyRegistryBaseURL() string    { return c.CompanyRegistryBaseURL }
func (c *Config) GetEnrichmentTimeout() time.Duration  { return c.EnrichmentTimeout }

// WebhookConfig implementation
func (c *Config) GetWebhookRatePerMinute() float64 { return c.WebhookRatePerMinute }
func (c *Config) GetWebhookRateBurst() int         { return c.WebhookRateBurst }
func (c *Config) GetFacebookVerifyToken() string   { return c.FacebookVerifyToken }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		WorkerConcurrency:      int(mustInt64(getEnv("WORKER_CONCURRENCY", "10"))),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE_NAME", "default"),
		OutboxPollInterval:     mustDuration(getEnv("OUTBOX_POLL_INTERVAL", "2s")),
		OutboxBatchSize:        int(mustInt64(getEnv("OUTBOX_BATCH_SIZE", "50"))),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-pro"),
		AnthropicAPIKey:        getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:         getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		CompanyRegistryBaseURL: getEnv("COMPANY_REGISTRY_BASE_URL", "https://www.receitaws.com.br/v1"),
		EnrichmentTimeout:      mustDuration(getEnv("ENRICHMENT_TIMEOUT", "10s")),
		WebhookRatePerMinute:   mustFloat(getEnv("WEBHOOK_RATE_PER_MINUTE", "60")),
		WebhookRateBurst:       int(mustInt64(getEnv("WEBHOOK_RATE_BURST", "20"))),
		FacebookVerifyToken:    getEnv("FACEBOOK_VERIFY_TOKEN", "nexus_verify_token"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.OutboxPollInterval <= 0 {
		return nil, fmt.Errorf("OUTBOX_POLL_INTERVAL must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
