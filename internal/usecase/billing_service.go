package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/purescan/backend/internal/domain"
)

const defaultOrigin = "http://localhost:5173"

// BillingServiceConfig holds configuration for the billing service
type BillingServiceConfig struct {
	ConfirmPollInterval time.Duration
	ConfirmPollAttempts int
}

// BillingService drives checkout, subscription management and the
// webhook-driven entitlement updates
type BillingService struct {
	billing  domain.BillingClient
	profiles domain.ProfileRepository

	pollInterval time.Duration
	pollAttempts int
}

// NewBillingService creates a billing service with dependencies
func NewBillingService(billing domain.BillingClient, profiles domain.ProfileRepository, config BillingServiceConfig) *BillingService {
	interval := config.ConfirmPollInterval
	if interval == 0 {
		interval = 2 * time.Second
	}
	attempts := config.ConfirmPollAttempts
	if attempts == 0 {
		attempts = 10
	}
	return &BillingService{
		billing:      billing,
		profiles:     profiles,
		pollInterval: interval,
		pollAttempts: attempts,
	}
}

// CreateCheckout creates a checkout session for the given price, creating
// the billing customer on first use
func (s *BillingService) CreateCheckout(ctx context.Context, user *domain.UserIdentity, priceID string, withTrial bool, origin string) (*domain.CheckoutSession, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	if priceID == "" {
		return nil, domain.ErrInvalidRequest
	}

	customerID, err := s.customerID(ctx, user.ID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}
	if customerID == "" {
		customerID, err = s.billing.CreateCustomer(ctx, user.Email, user.ID)
		if err != nil {
			return nil, err
		}
		if err := s.profiles.SetCustomerID(ctx, user.ID, customerID); err != nil {
			// The webhook recovers via client_reference_id, so keep going
			log.Printf("[Billing] storing customer id failed for %s: %v", user.ID, err)
		}
		log.Printf("[Billing] created customer %s for user %s", customerID, user.ID)
	}

	origin = normalizeOrigin(origin)
	return s.billing.CreateCheckoutSession(ctx, domain.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     user.ID,
		WithTrial:  withTrial,
		SuccessURL: origin + "/?payment=success",
		CancelURL:  origin + "/paywall?payment=cancelled",
	})
}

// SubscriptionInfo returns the user's current subscription, or
// ErrNoSubscription when they never checked out
func (s *BillingService) SubscriptionInfo(ctx context.Context, userID string) (*domain.SubscriptionInfo, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return nil, domain.ErrNoSubscription
	}
	return s.billing.GetSubscription(ctx, customerID)
}

// CreatePortal returns a management portal URL for cancelling or changing
// the subscription
func (s *BillingService) CreatePortal(ctx context.Context, userID, origin string) (string, error) {
	customerID, err := s.customerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		return "", domain.ErrNoSubscription
	}
	return s.billing.CreatePortalSession(ctx, customerID, normalizeOrigin(origin)+"/settings")
}

// ConfirmCheckout polls the profile with bounded retries until the
// webhook-driven entitlement lands. Returns the final pro state.
func (s *BillingService) ConfirmCheckout(ctx context.Context, userID string) bool {
	return PollUntil(ctx, s.pollInterval, s.pollAttempts, func(ctx context.Context) (bool, error) {
		profile, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return false, err
		}
		return profile.IsPro, nil
	})
}

// HandleWebhook applies a verified billing event to the profile state.
// Unhandled event types are acknowledged without effect.
func (s *BillingService) HandleWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Type {
	case domain.EventCheckoutCompleted:
		obj := event.Object
		log.Printf("[Billing] checkout completed, user: %s, customer: %s", obj.ClientReferenceID, obj.Customer)
		if obj.ClientReferenceID != "" {
			if obj.Customer != "" {
				if err := s.profiles.SetCustomerID(ctx, obj.ClientReferenceID, obj.Customer); err != nil {
					log.Printf("[Billing] storing customer id failed: %v", err)
				}
			}
			return s.profiles.SetPro(ctx, obj.ClientReferenceID, true)
		}
		// No client reference: fall back to the customer id
		return s.profiles.SetProByCustomer(ctx, obj.Customer, true)

	case domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		isPro := domain.SubscriptionEntitlesPro(event.Object.Status)
		log.Printf("[Billing] %s, customer: %s, status: %s, pro: %v", event.Type, event.Object.Customer, event.Object.Status, isPro)
		return s.profiles.SetProByCustomer(ctx, event.Object.Customer, isPro)

	case domain.EventPaymentFailed:
		log.Printf("[Billing] payment failed for customer: %s", event.Object.Customer)
		return nil

	default:
		log.Printf("[Billing] unhandled event type: %s", event.Type)
		return nil
	}
}

func (s *BillingService) customerID(ctx context.Context, userID string) (string, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.StripeCustomerID, nil
}

func normalizeOrigin(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return defaultOrigin
	}
	return origin
}
