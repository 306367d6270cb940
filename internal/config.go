package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Application base URL (for checkout redirect URLs)
	BaseURL string

	// Free-tier daily ceilings for AI-backed features. Students covered by
	// a school_pays organization or an active/trial subscription are not
	// subject to these.
	FreeTierChatPerDay     int
	FreeTierHomeworkPerDay int

	// QuotaTimeZone is the reference time zone for the daily counter
	// reset. IANA name, e.g. "Europe/Berlin".
	QuotaTimeZone string

	// Payment processor (Stripe) configuration.
	// In development the payment handlers function as stubs if these are
	// empty; the webhook endpoint then rejects all deliveries.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Price IDs for the purchasable products. Credit packs grant a fixed
	// number of credits; the subscription product also activates the
	// parent's subscription status.
	StripeCreditPackSmallPriceID string
	StripeCreditPackLargePriceID string
	StripeSubscriptionPriceID    string
	CreditPackSmallAmount        string // decimal credits, e.g. "20"
	CreditPackLargeAmount        string // decimal credits, e.g. "50"
	SubscriptionCreditAmount     string // credits bundled with a subscription purchase

	// ProcessorTimeout bounds the synchronous pull verification call made
	// on the payment success redirect.
	ProcessorTimeout time.Duration

	// AI tutoring provider configuration.
	AIProvider       string // "anthropic" or "mock"
	AnthropicAPIKey  string
	AnthropicModel   string
	AIRequestTimeout time.Duration

	// Metrics endpoint authentication.
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		FreeTierChatPerDay:     getEnvInt("FREE_TIER_CHAT_PER_DAY", 15),
		FreeTierHomeworkPerDay: getEnvInt("FREE_TIER_HOMEWORK_PER_DAY", 5),
		QuotaTimeZone:          getEnv("QUOTA_TIME_ZONE", "UTC"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		StripeCreditPackSmallPriceID: getEnv("STRIPE_CREDIT_PACK_SMALL_PRICE_ID", ""),
		StripeCreditPackLargePriceID: getEnv("STRIPE_CREDIT_PACK_LARGE_PRICE_ID", ""),
		StripeSubscriptionPriceID:    getEnv("STRIPE_SUBSCRIPTION_PRICE_ID", ""),
		CreditPackSmallAmount:        getEnv("CREDIT_PACK_SMALL_AMOUNT", "20"),
		CreditPackLargeAmount:        getEnv("CREDIT_PACK_LARGE_AMOUNT", "50"),
		SubscriptionCreditAmount:     getEnv("SUBSCRIPTION_CREDIT_AMOUNT", "10"),

		ProcessorTimeout: getEnvDuration("PROCESSOR_TIMEOUT", 10*time.Second),

		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", ""),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if _, err := time.LoadLocation(cfg.QuotaTimeZone); err != nil {
		return nil, fmt.Errorf("QUOTA_TIME_ZONE %q is invalid: %w", cfg.QuotaTimeZone, err)
	}

	if cfg.FreeTierChatPerDay <= 0 || cfg.FreeTierHomeworkPerDay <= 0 {
		return nil, fmt.Errorf("free tier ceilings must be positive")
	}

	// Validate AI provider configuration
	if cfg.AIProvider == "anthropic" {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is 'anthropic'")
		}
	} else if cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be either 'anthropic' or 'mock', got: %s", cfg.AIProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
