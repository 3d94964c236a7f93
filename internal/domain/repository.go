package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductLookup resolves a barcode against the product database selected by
// category (food and cosmetics are independent backends)
type ProductLookup interface {
	Lookup(ctx context.Context, barcode string, category ProductCategory) (*RawProduct, error)
}

// Classifier is the risk classification capability. Both calls return the
// model's raw text; parsing and salvage live in the orchestrator's path.
type Classifier interface {
	// AnalyzeImage runs the full image analysis (identify + extract + classify
	// + grade inline) with a mode-specific instruction.
	AnalyzeImage(ctx context.Context, image []byte, mode ScanMode) (string, error)
	// ClassifyIngredients runs the cheaper text-only per-ingredient
	// classification for an already-extracted ingredient list.
	ClassifyIngredients(ctx context.Context, ingredients string, productType ProductType) (string, error)
}

// ScanRepository persists completed scans. Records are insert-only.
type ScanRepository interface {
	Save(ctx context.Context, record *ScanRecord) error
	History(ctx context.Context, userID string, limit int) ([]*ScanRecord, error)
}

// ProfileRepository owns per-user quota and entitlement state. The quota
// mutation is a single conditional update applied atomically per user.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error

	// ResetDailyScans zeroes the daily counter and stamps today's date.
	// Called when a profile's LastScanDate is stale.
	ResetDailyScans(ctx context.Context, id, today string) error

	// IncrementScanStats bumps daily_scans (with a ceiling for free users),
	// streak and XP in one atomic statement. Returns false when the ceiling
	// was already reached, e.g. by a concurrent double-tap.
	IncrementScanStats(ctx context.Context, id, today string, limit int) (bool, error)

	SetPro(ctx context.Context, id string, isPro bool) error
	SetProByCustomer(ctx context.Context, customerID string, isPro bool) error
	SetCustomerID(ctx context.Context, id, customerID string) error
}

// BlobStore stores a binary blob and returns a stable URL
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// UserIdentity is a verified user
type UserIdentity struct {
	ID    string
	Email string
}

// IdentityVerifier turns a bearer credential into a verified identity,
// or ErrUnauthorized
type IdentityVerifier interface {
	Verify(ctx context.Context, bearer string) (*UserIdentity, error)
}

// CheckoutParams configures a checkout session
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string // client_reference_id, recovered by the webhook
	WithTrial  bool
	SuccessURL string
	CancelURL  string
}

// BillingClient is the payment provider capability
type BillingClient interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
