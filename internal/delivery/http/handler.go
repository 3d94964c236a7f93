package http

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/purescan/backend/internal/domain"
	"github.com/purescan/backend/internal/usecase"
)

// maxWebhookBytes bounds the webhook body read; billing events are small
const maxWebhookBytes = 1 << 20

// WebhookVerifier checks a webhook payload against its signature header
type WebhookVerifier func(payload []byte, sigHeader string) error

// WebhookParser decodes a verified webhook payload
type WebhookParser func(payload []byte) (*domain.WebhookEvent, error)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scans   *usecase.ScanService
	billing *usecase.BillingService

	verifyWebhook WebhookVerifier
	parseWebhook  WebhookParser
}

// NewHandler creates a new HTTP handler
func NewHandler(scans *usecase.ScanService, billing *usecase.BillingService, verify WebhookVerifier, parse WebhookParser) *Handler {
	return &Handler{
		scans:         scans,
		billing:       billing,
		verifyWebhook: verify,
		parseWebhook:  parse,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "purescan-backend",
		"version": "1.0.0",
	})
}

// AnalyzeImage handles the photo scan path
func (h *Handler) AnalyzeImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req domain.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.scans.AnalyzeImage(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScanBarcode handles the barcode scan path. A product the database cannot
// serve is a fallback response, not an error: the client redirects the user
// to the photo path.
func (h *Handler) ScanBarcode(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req domain.BarcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, fallback, err := h.scans.ScanBarcode(c.Request.Context(), user.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	if fallback != nil {
		c.JSON(http.StatusOK, fallback)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ScanHistory returns the user's recent scans, newest first
func (h *Handler) ScanHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := h.scans.History(c.Request.Context(), user.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if records == nil {
		records = []*domain.ScanRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"scans": records})
}

// CreateCheckout starts a subscription checkout session
func (h *Handler) CreateCheckout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		PriceID   string `json:"priceId"`
		WithTrial bool   `json:"withTrial"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.billing.CreateCheckout(c.Request.Context(), user, req.PriceID, req.WithTrial, c.GetHeader("Origin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Subscription returns the user's current subscription. A user who never
// checked out gets a null subscription, not an error.
func (h *Handler) Subscription(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	info, err := h.billing.SubscriptionInfo(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSubscription) {
			c.JSON(http.StatusOK, gin.H{"subscription": nil})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": info})
}

// CreatePortal returns a billing portal URL
func (h *Handler) CreatePortal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	url, err := h.billing.CreatePortal(c.Request.Context(), user.ID, c.GetHeader("Origin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ConfirmCheckout waits for the webhook-driven entitlement to land after a
// successful checkout redirect
func (h *Handler) ConfirmCheckout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	isPro := h.billing.ConfirmCheckout(c.Request.Context(), user.ID)
	c.JSON(http.StatusOK, gin.H{"isPro": isPro})
}

// StripeWebhook verifies and applies a billing event. The signature is
// checked over the raw body before anything is parsed.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.verifyWebhook(payload, c.GetHeader("Stripe-Signature")); err != nil {
		log.Printf("[Webhook] signature rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event, err := h.parseWebhook(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if err := h.billing.HandleWebhook(c.Request.Context(), event); err != nil {
		log.Printf("[Webhook] %s failed: %v", event.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// currentUser pulls the authenticated identity set by the auth middleware
func currentUser(c *gin.Context) (*domain.UserIdentity, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	user, ok := value.(*domain.UserIdentity)
	if !ok || user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return user, true
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMissingImageData):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": "daily scan limit reached",
			"code":  "quota_exceeded",
		})
	case errors.Is(err, domain.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, domain.ErrClassifierUnavailable),
		errors.Is(err, domain.ErrInvalidClassifierResponse),
		errors.Is(err, domain.ErrLookupUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream analysis failed, please try again"})
	default:
		log.Printf("[HTTP] unhandled error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
