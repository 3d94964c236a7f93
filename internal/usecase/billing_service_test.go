package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/purescan/backend/internal/domain"
)

// MockBillingClient is a mock implementation of domain.BillingClient
type MockBillingClient struct {
	customerID       string
	createErr        error
	createdCustomers int

	session      *domain.CheckoutSession
	sessionErr   error
	lastCheckout domain.CheckoutParams

	subscription *domain.SubscriptionInfo
	subErr       error

	portalURL     string
	portalErr     error
	lastReturnURL string
}

func (m *MockBillingClient) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	m.createdCustomers++
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.customerID, nil
}

func (m *MockBillingClient) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	m.lastCheckout = params
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return m.session, nil
}

func (m *MockBillingClient) GetSubscription(ctx context.Context, customerID string) (*domain.SubscriptionInfo, error) {
	if m.subErr != nil {
		return nil, m.subErr
	}
	return m.subscription, nil
}

func (m *MockBillingClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	m.lastReturnURL = returnURL
	if m.portalErr != nil {
		return "", m.portalErr
	}
	return m.portalURL, nil
}

type billingFixture struct {
	billing  *MockBillingClient
	profiles *MockProfileRepository
	service  *BillingService
}

func newBillingFixture() *billingFixture {
	f := &billingFixture{
		billing: &MockBillingClient{
			customerID: "cus_new",
			session:    &domain.CheckoutSession{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/cs_1"},
			portalURL:  "https://billing.stripe.com/p/session_1",
		},
		profiles: NewMockProfileRepository(),
	}
	f.service = NewBillingService(f.billing, f.profiles, BillingServiceConfig{
		ConfirmPollInterval: time.Millisecond,
		ConfirmPollAttempts: 3,
	})
	return f
}

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()
	user := &domain.UserIdentity{ID: "user-1", Email: "u@example.com"}

	t.Run("creates customer on first checkout", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1"}

		session, err := f.service.CreateCheckout(ctx, user, "price_1", false, "https://app.purescan.app")

		if err != nil {
			t.Fatalf("CreateCheckout() error = %v", err)
		}
		if session.URL == "" {
			t.Error("session URL is empty")
		}
		if f.billing.createdCustomers != 1 {
			t.Errorf("created %d customers, want 1", f.billing.createdCustomers)
		}
		if got := f.profiles.profiles["user-1"].StripeCustomerID; got != "cus_new" {
			t.Errorf("stored customer id = %s, want cus_new", got)
		}
		params := f.billing.lastCheckout
		if params.CustomerID != "cus_new" || params.PriceID != "price_1" || params.UserID != "user-1" {
			t.Errorf("checkout params = %+v", params)
		}
		if params.SuccessURL != "https://app.purescan.app/?payment=success" {
			t.Errorf("SuccessURL = %s", params.SuccessURL)
		}
		if params.CancelURL != "https://app.purescan.app/paywall?payment=cancelled" {
			t.Errorf("CancelURL = %s", params.CancelURL)
		}
	})

	t.Run("reuses known customer", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_existing"}

		_, err := f.service.CreateCheckout(ctx, user, "price_1", true, "")

		if err != nil {
			t.Fatalf("CreateCheckout() error = %v", err)
		}
		if f.billing.createdCustomers != 0 {
			t.Errorf("created %d customers, want 0", f.billing.createdCustomers)
		}
		if f.billing.lastCheckout.CustomerID != "cus_existing" {
			t.Errorf("CustomerID = %s, want cus_existing", f.billing.lastCheckout.CustomerID)
		}
		if !f.billing.lastCheckout.WithTrial {
			t.Error("WithTrial not propagated")
		}
	})

	t.Run("missing profile still gets a customer", func(t *testing.T) {
		f := newBillingFixture()

		_, err := f.service.CreateCheckout(ctx, user, "price_1", false, "")
		if err != nil {
			t.Fatalf("CreateCheckout() error = %v", err)
		}
		if f.billing.createdCustomers != 1 {
			t.Errorf("created %d customers, want 1", f.billing.createdCustomers)
		}
	})

	t.Run("defaults and trims the origin", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_1"}

		if _, err := f.service.CreateCheckout(ctx, user, "price_1", false, ""); err != nil {
			t.Fatalf("CreateCheckout() error = %v", err)
		}
		if f.billing.lastCheckout.SuccessURL != "http://localhost:5173/?payment=success" {
			t.Errorf("SuccessURL = %s, want localhost default", f.billing.lastCheckout.SuccessURL)
		}

		if _, err := f.service.CreateCheckout(ctx, user, "price_1", false, "https://app.purescan.app/"); err != nil {
			t.Fatalf("CreateCheckout() error = %v", err)
		}
		if f.billing.lastCheckout.SuccessURL != "https://app.purescan.app/?payment=success" {
			t.Errorf("SuccessURL = %s, want trailing slash trimmed", f.billing.lastCheckout.SuccessURL)
		}
	})

	t.Run("rejects anonymous callers", func(t *testing.T) {
		f := newBillingFixture()

		_, err := f.service.CreateCheckout(ctx, nil, "price_1", false, "")
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("rejects missing price", func(t *testing.T) {
		f := newBillingFixture()

		_, err := f.service.CreateCheckout(ctx, user, "", false, "")
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
	})
}

func TestSubscriptionInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the provider subscription", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_1"}
		f.billing.subscription = &domain.SubscriptionInfo{
			ID:     "sub_1",
			Status: "active",
			Plan:   domain.SubscriptionPlan{Interval: "month", Amount: 4.99, Name: "Monthly"},
		}

		sub, err := f.service.SubscriptionInfo(ctx, "user-1")
		if err != nil {
			t.Fatalf("SubscriptionInfo() error = %v", err)
		}
		if sub.ID != "sub_1" || sub.Plan.Name != "Monthly" {
			t.Errorf("subscription = %+v", sub)
		}
	})

	t.Run("no customer means no subscription", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1"}

		_, err := f.service.SubscriptionInfo(ctx, "user-1")
		if !errors.Is(err, domain.ErrNoSubscription) {
			t.Errorf("error = %v, want ErrNoSubscription", err)
		}
	})

	t.Run("missing profile propagates", func(t *testing.T) {
		f := newBillingFixture()

		_, err := f.service.SubscriptionInfo(ctx, "ghost")
		if !errors.Is(err, domain.ErrProfileNotFound) {
			t.Errorf("error = %v, want ErrProfileNotFound", err)
		}
	})
}

func TestCreatePortal(t *testing.T) {
	ctx := context.Background()

	t.Run("returns portal URL with settings return path", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_1"}

		url, err := f.service.CreatePortal(ctx, "user-1", "https://app.purescan.app")
		if err != nil {
			t.Fatalf("CreatePortal() error = %v", err)
		}
		if url != f.billing.portalURL {
			t.Errorf("url = %s, want %s", url, f.billing.portalURL)
		}
		if f.billing.lastReturnURL != "https://app.purescan.app/settings" {
			t.Errorf("return URL = %s, want /settings", f.billing.lastReturnURL)
		}
	})

	t.Run("no customer means no portal", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1"}

		_, err := f.service.CreatePortal(ctx, "user-1", "")
		if !errors.Is(err, domain.ErrNoSubscription) {
			t.Errorf("error = %v, want ErrNoSubscription", err)
		}
	})
}

func TestConfirmCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("true once the webhook lands", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", IsPro: true}

		if !f.service.ConfirmCheckout(ctx, "user-1") {
			t.Error("ConfirmCheckout() = false, want true for pro profile")
		}
	})

	t.Run("false when entitlement never arrives", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1"}

		if f.service.ConfirmCheckout(ctx, "user-1") {
			t.Error("ConfirmCheckout() = true, want false within poll budget")
		}
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("checkout completed upgrades by user reference", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1"}

		err := f.service.HandleWebhook(ctx, &domain.WebhookEvent{
			Type:   domain.EventCheckoutCompleted,
			Object: domain.WebhookObject{ClientReferenceID: "user-1", Customer: "cus_1"},
		})

		if err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		p := f.profiles.profiles["user-1"]
		if !p.IsPro {
			t.Error("IsPro = false, want true")
		}
		if p.StripeCustomerID != "cus_1" {
			t.Errorf("StripeCustomerID = %s, want cus_1", p.StripeCustomerID)
		}
	})

	t.Run("checkout completed falls back to customer id", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_1"}

		err := f.service.HandleWebhook(ctx, &domain.WebhookEvent{
			Type:   domain.EventCheckoutCompleted,
			Object: domain.WebhookObject{Customer: "cus_1"},
		})

		if err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		if !f.profiles.profiles["user-1"].IsPro {
			t.Error("IsPro = false, want true via customer id")
		}
	})

	t.Run("subscription status drives entitlement", func(t *testing.T) {
		tests := []struct {
			eventType string
			status    string
			wantPro   bool
		}{
			{domain.EventSubscriptionUpdated, "active", true},
			{domain.EventSubscriptionUpdated, "trialing", true},
			{domain.EventSubscriptionUpdated, "past_due", false},
			{domain.EventSubscriptionDeleted, "canceled", false},
		}

		for _, tt := range tests {
			t.Run(tt.status, func(t *testing.T) {
				f := newBillingFixture()
				f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_1", IsPro: !tt.wantPro}

				err := f.service.HandleWebhook(ctx, &domain.WebhookEvent{
					Type:   tt.eventType,
					Object: domain.WebhookObject{Customer: "cus_1", Status: tt.status},
				})

				if err != nil {
					t.Fatalf("HandleWebhook() error = %v", err)
				}
				if got := f.profiles.profiles["user-1"].IsPro; got != tt.wantPro {
					t.Errorf("IsPro = %v, want %v", got, tt.wantPro)
				}
			})
		}
	})

	t.Run("payment failure is acknowledged without effect", func(t *testing.T) {
		f := newBillingFixture()
		f.profiles.profiles["user-1"] = &domain.Profile{ID: "user-1", StripeCustomerID: "cus_1", IsPro: true}

		err := f.service.HandleWebhook(ctx, &domain.WebhookEvent{
			Type:   domain.EventPaymentFailed,
			Object: domain.WebhookObject{Customer: "cus_1"},
		})

		if err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		if !f.profiles.profiles["user-1"].IsPro {
			t.Error("payment failure must not downgrade; dunning is the provider's job")
		}
	})

	t.Run("unknown event types are ignored", func(t *testing.T) {
		f := newBillingFixture()

		err := f.service.HandleWebhook(ctx, &domain.WebhookEvent{Type: "charge.refunded"})
		if err != nil {
			t.Errorf("HandleWebhook() error = %v, want nil", err)
		}
	})
}
