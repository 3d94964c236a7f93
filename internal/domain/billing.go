package domain

// CheckoutSession is the result of creating a Stripe checkout session
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// SubscriptionPlan describes the price attached to a subscription
type SubscriptionPlan struct {
	Interval string  `json:"interval"` // week, month, year
	Amount   float64 `json:"amount"`   // major currency units
	Currency string  `json:"currency"`
	Name     string  `json:"name"` // Weekly, Monthly, Annual
}

// SubscriptionInfo is the subset of a Stripe subscription the client shows
type SubscriptionInfo struct {
	ID                 string           `json:"id"`
	Status             string           `json:"status"` // active, trialing, past_due, canceled, unpaid
	CurrentPeriodStart int64            `json:"currentPeriodStart"`
	CurrentPeriodEnd   int64            `json:"currentPeriodEnd"`
	CancelAtPeriodEnd  bool             `json:"cancelAtPeriodEnd"`
	CancelAt           int64            `json:"cancelAt,omitempty"`
	CanceledAt         int64            `json:"canceledAt,omitempty"`
	TrialStart         int64            `json:"trialStart,omitempty"`
	TrialEnd           int64            `json:"trialEnd,omitempty"`
	Plan               SubscriptionPlan `json:"plan"`
}

// WebhookEvent is a parsed billing webhook event. Object holds the raw
// event payload object (session, subscription or invoice depending on Type).
type WebhookEvent struct {
	Type   string
	Object WebhookObject
}

// WebhookObject carries the fields the entitlement logic reads from any
// of the handled event payloads.
type WebhookObject struct {
	Customer          string `json:"customer"`
	ClientReferenceID string `json:"client_reference_id"`
	Subscription      string `json:"subscription"`
	Status            string `json:"status"`
}

// Webhook event types handled by the billing service
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
)

// SubscriptionEntitlesPro reports whether a subscription status keeps the
// pro flag on
func SubscriptionEntitlesPro(status string) bool {
	return status == "active" || status == "trialing"
}
