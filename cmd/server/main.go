package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/tutorhive/tutorhive/internal"
	"github.com/tutorhive/tutorhive/internal/domain"
	"github.com/tutorhive/tutorhive/internal/handler"
	"github.com/tutorhive/tutorhive/internal/messaging"
	"github.com/tutorhive/tutorhive/internal/metrics"
	"github.com/tutorhive/tutorhive/internal/middleware"
	"github.com/tutorhive/tutorhive/internal/payments"
	"github.com/tutorhive/tutorhive/internal/repository"
	"github.com/tutorhive/tutorhive/internal/service"
	"github.com/tutorhive/tutorhive/internal/tutorai"
	"github.com/tutorhive/tutorhive/internal/tutorai/anthropic"
	"github.com/tutorhive/tutorhive/internal/tutorai/mock"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	queries := repository.New(db)

	// Quota time zone was validated by NewConfig
	quotaLoc, err := time.LoadLocation(cfg.QuotaTimeZone)
	if err != nil {
		return fmt.Errorf("quota time zone: %w", err)
	}

	// Payment processor (nil when not configured; billing endpoints then
	// refuse requests and the webhook rejects deliveries)
	var processor payments.Service
	if cfg.StripeSecretKey != "" {
		processor = payments.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
		logger.Info("Payment processor configured")
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payments disabled")
	}

	plans, err := buildPlans(cfg)
	if err != nil {
		return fmt.Errorf("plan configuration failed: %w", err)
	}

	// AI tutoring provider
	var aiProvider tutorai.Provider
	switch cfg.AIProvider {
	case "anthropic":
		aiProvider, err = anthropic.New(anthropic.Config{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			ProviderConfig: tutorai.ProviderConfig{
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("anthropic provider initialization failed: %w", err)
		}
	default:
		aiProvider = mock.New(logger)
		logger.Warn("Using mock AI provider")
	}

	// Initialize services
	messenger := messaging.NewConsoleService(logger)
	ledgerService := service.NewLedgerService(queries, logger)
	quotaService := service.NewQuotaService(queries, service.QuotaConfig{
		Limits: domain.FreeTierLimits{
			ChatPerDay:     cfg.FreeTierChatPerDay,
			HomeworkPerDay: cfg.FreeTierHomeworkPerDay,
		},
		Location: quotaLoc,
	}, logger)
	bookingService := service.NewBookingService(db, queries, messenger, logger)
	reviewService := service.NewReviewService(queries, logger)
	fulfillmentService := service.NewFulfillmentService(db, queries, logger)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(bookingService, reviewService, logger)
	billingHandler := handler.NewBillingHandler(processor, fulfillmentService, ledgerService, quotaService,
		plans, cfg.BaseURL, cfg.ProcessorTimeout, logger)
	webhookHandler := handler.NewWebhookHandler(processor, fulfillmentService, logger)
	aiHandler := handler.NewTutorAIHandler(aiProvider, quotaService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	mux.Handle("GET /metrics", metrics.Handler(cfg.MetricsUsername, cfg.MetricsPassword))

	sessionHandler.RegisterRoutes(mux)
	billingHandler.RegisterRoutes(mux)
	webhookHandler.RegisterRoutes(mux)
	aiHandler.RegisterRoutes(mux)

	// Wrap the mux with request logging and HTTP metrics
	logging := middleware.NewRequestLoggingMiddleware(logger)
	root := logging.Handler(metrics.Middleware(mux))

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// buildPlans maps the configured processor price IDs to purchasable plans.
// Plans with no price ID configured are left out of the catalog.
func buildPlans(cfg *internal.Config) (map[string]payments.Plan, error) {
	plans := make(map[string]payments.Plan)

	add := func(key, priceID, amount string, tag domain.PlanTag) error {
		if priceID == "" {
			return nil
		}
		credits, err := domain.ParseCredits(amount)
		if err != nil {
			return fmt.Errorf("plan %s: %w", key, err)
		}
		plans[key] = payments.Plan{PriceID: priceID, Credits: credits, Tag: tag}
		return nil
	}

	if err := add("credits_small", cfg.StripeCreditPackSmallPriceID, cfg.CreditPackSmallAmount, domain.PlanTagCredits); err != nil {
		return nil, err
	}
	if err := add("credits_large", cfg.StripeCreditPackLargePriceID, cfg.CreditPackLargeAmount, domain.PlanTagCredits); err != nil {
		return nil, err
	}
	if err := add("subscription", cfg.StripeSubscriptionPriceID, cfg.SubscriptionCreditAmount, domain.PlanTagSubscription); err != nil {
		return nil, err
	}
	return plans, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
