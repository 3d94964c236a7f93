package http

import (
	"github.com/gin-gonic/gin"

	"github.com/purescan/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, auth *AuthMiddleware) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Webhooks authenticate with signatures, not bearer tokens
	router.POST("/webhooks/stripe", handler.StripeWebhook)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.Handle())
	{
		scan := v1.Group("/scan")
		{
			scan.POST("/analyze", handler.AnalyzeImage)
			scan.POST("/barcode", handler.ScanBarcode)
			scan.GET("/history", handler.ScanHistory)
		}

		billing := v1.Group("/billing")
		{
			billing.POST("/checkout", handler.CreateCheckout)
			billing.GET("/subscription", handler.Subscription)
			billing.POST("/portal", handler.CreatePortal)
			billing.POST("/confirm", handler.ConfirmCheckout)
		}
	}

	return router
}
