package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/purescan/backend/internal/domain"
)

// Client talks to the Stripe REST API directly. The edge deployment this
// replaces did the same; the surface we need is four endpoints and the
// form-encoded protocol is stable.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient creates a Stripe API client
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

// CreateCustomer registers a billing customer carrying our user id in its
// metadata, so webhooks can always be traced back
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[user_id]", userID)

	var customer struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/v1/customers", form, &customer); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateCheckoutSession starts a subscription checkout
func (c *Client) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", params.CustomerID)
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("mode", "subscription")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("client_reference_id", params.UserID)
	form.Set("allow_promotion_codes", "true")
	if params.WithTrial {
		form.Set("subscription_data[trial_period_days]", "3")
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.postForm(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &domain.CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// GetSubscription returns the customer's most recent subscription in any
// status, or ErrNoSubscription
func (c *Client) GetSubscription(ctx context.Context, customerID string) (*domain.SubscriptionInfo, error) {
	path := fmt.Sprintf("/v1/subscriptions?customer=%s&status=all&limit=1", url.QueryEscape(customerID))

	var list struct {
		Data []stripeSubscription `json:"data"`
	}
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, domain.ErrNoSubscription
	}
	return list.Data[0].toDomain(), nil
}

// CreatePortalSession returns a customer portal URL for managing or
// cancelling the subscription
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var portal struct {
		URL string `json:"url"`
	}
	if err := c.postForm(ctx, "/v1/billing_portal/sessions", form, &portal); err != nil {
		return "", err
	}
	return portal.URL, nil
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CancelAt           int64  `json:"cancel_at"`
	CanceledAt         int64  `json:"canceled_at"`
	TrialStart         int64  `json:"trial_start"`
	TrialEnd           int64  `json:"trial_end"`
	Items              struct {
		Data []struct {
			Plan  *stripePlan `json:"plan"`
			Price *stripePlan `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type stripePlan struct {
	Interval string `json:"interval"`
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`
}

func (s *stripeSubscription) toDomain() *domain.SubscriptionInfo {
	info := &domain.SubscriptionInfo{
		ID:                 s.ID,
		Status:             s.Status,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CancelAt:           s.CancelAt,
		CanceledAt:         s.CanceledAt,
		TrialStart:         s.TrialStart,
		TrialEnd:           s.TrialEnd,
	}

	var plan *stripePlan
	if len(s.Items.Data) > 0 {
		plan = s.Items.Data[0].Plan
		if plan == nil {
			plan = s.Items.Data[0].Price
		}
	}
	if plan != nil {
		info.Plan = domain.SubscriptionPlan{
			Interval: plan.Interval,
			Amount:   float64(plan.Amount) / 100,
			Currency: plan.Currency,
			Name:     planName(plan.Interval),
		}
	}
	return info
}

func planName(interval string) string {
	switch interval {
	case "year":
		return "Annual"
	case "week":
		return "Weekly"
	default:
		return "Monthly"
	}
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, v)
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, v)
}

// do executes the request. Upstream error bodies are logged for diagnosis
// but never bubble up verbatim.
func (c *Client) do(req *http.Request, v any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Stripe] %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
		return fmt.Errorf("stripe API error: status %d", resp.StatusCode)
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return nil
}
