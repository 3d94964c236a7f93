package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/purescan/backend/config"
	httpDelivery "github.com/purescan/backend/internal/delivery/http"
	"github.com/purescan/backend/internal/domain"
	"github.com/purescan/backend/internal/infrastructure/cache"
	"github.com/purescan/backend/internal/infrastructure/gemini"
	"github.com/purescan/backend/internal/infrastructure/identity"
	"github.com/purescan/backend/internal/infrastructure/mysql"
	"github.com/purescan/backend/internal/infrastructure/openfoodfacts"
	"github.com/purescan/backend/internal/infrastructure/storage"
	"github.com/purescan/backend/internal/infrastructure/stripe"
	"github.com/purescan/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PureScan Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	ctx := context.Background()

	// Initialize infrastructure dependencies
	db, err := mysql.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer db.Close()
	log.Printf("MySQL connected")

	memoryCache := cache.NewMemoryCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	offClient := openfoodfacts.NewClient(
		cfg.OpenFoodFacts.FoodBaseURL,
		cfg.OpenFoodFacts.CosmeticsBaseURL,
		cfg.OpenFoodFacts.UserAgent,
	)
	if cfg.Server.Environment == "development" {
		offClient.SetDebug(true)
		log.Printf("Product lookup debug mode enabled")
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	log.Printf("Gemini model: %s", cfg.Gemini.Model)

	var blobs domain.BlobStore
	if cfg.Storage.Enabled {
		store, err := storage.New(ctx,
			cfg.Storage.Endpoint, cfg.Storage.Region, cfg.Storage.Bucket,
			cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		blobs = store
		log.Printf("Object storage ready: bucket %s", cfg.Storage.Bucket)
	} else {
		log.Printf("Object storage disabled; scan photos will not be kept")
	}

	stripeClient := stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.BaseURL)
	identityClient := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.APIKey)

	scanRepo := mysql.NewScanRepository(db)
	profileRepo := mysql.NewProfileRepository(db)

	// Initialize usecase layer
	scanService := usecase.NewScanService(
		memoryCache,
		offClient,
		geminiClient,
		scanRepo,
		profileRepo,
		blobs,
		usecase.ScanServiceConfig{
			CacheTTL:          cfg.Cache.TTL,
			ImageFetchTimeout: cfg.Scan.ImageFetchTimeout,
			PersistTimeout:    cfg.Scan.PersistTimeout,
			DailyScanLimit:    cfg.Scan.DailyLimit,
		},
	)

	billingService := usecase.NewBillingService(
		stripeClient,
		profileRepo,
		usecase.BillingServiceConfig{
			ConfirmPollInterval: cfg.Stripe.ConfirmPollInterval,
			ConfirmPollAttempts: cfg.Stripe.ConfirmPollAttempts,
		},
	)

	// Create HTTP handler with dependencies
	webhookSecret := cfg.Stripe.WebhookSecret
	handler := httpDelivery.NewHandler(
		scanService,
		billingService,
		func(payload []byte, sigHeader string) error {
			return stripe.VerifySignature(payload, sigHeader, webhookSecret, time.Now())
		},
		stripe.ParseEvent,
	)

	auth := httpDelivery.NewAuthMiddleware(identityClient, cfg.Identity.VerifyTimeout, cfg.Identity.SessionTTL)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, auth)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Printf("Server stopped")
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
