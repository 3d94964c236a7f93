package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/purescan/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client talks to the Open Food Facts / Open Beauty Facts v2 product API.
// The two are independent backends keyed by product category.
type Client struct {
	httpClient  *http.Client
	foodBaseURL string
	cosmBaseURL string
	userAgent   string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a product database client
func NewClient(foodBaseURL, cosmBaseURL, userAgent string) *Client {
	// OFF asks API users to stay under 100 req/min for product queries
	limiter := rate.NewLimiter(rate.Limit(100.0/60.0), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		foodBaseURL: foodBaseURL,
		cosmBaseURL: cosmBaseURL,
		userAgent:   userAgent,
		rateLimiter: limiter,
	}
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) { c.debug = debug }

// productResponse is the v2 API envelope
type productResponse struct {
	Status  int                `json:"status"`
	Product *domain.RawProduct `json:"product"`
}

// Lookup fetches the product record for a barcode. A missing product is
// domain.ErrProductNotFound; transport and server errors after retries are
// domain.ErrLookupUnavailable.
func (c *Client) Lookup(ctx context.Context, barcode string, category domain.ProductCategory) (*domain.RawProduct, error) {
	base := c.foodBaseURL
	if category == domain.CategoryCosmetics {
		base = c.cosmBaseURL
	}
	reqURL := fmt.Sprintf("%s/api/v2/product/%s", base, barcode)

	if c.debug {
		log.Printf("[OFF] Lookup %s (%s)", barcode, category)
	}

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			log.Printf("[OFF] request error (attempt %d): %v", attempt, err)
			lastErr = err
			if !sleepCtx(ctx, time.Duration(attempt*500)*time.Millisecond) {
				return nil, ctx.Err()
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		if resp.StatusCode != http.StatusOK {
			log.Printf("[OFF] API error (attempt %d) - status: %d", attempt, resp.StatusCode)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrLookupUnavailable, resp.StatusCode)
			if !sleepCtx(ctx, time.Duration(attempt*500)*time.Millisecond) {
				return nil, ctx.Err()
			}
			continue
		}

		var parsed productResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLookupUnavailable, err)
		}
		if parsed.Product == nil {
			return nil, domain.ErrProductNotFound
		}
		return parsed.Product, nil
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLookupUnavailable, err)
	}
	return resp, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
