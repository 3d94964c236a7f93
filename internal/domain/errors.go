package domain

import "errors"

var (
	// ErrUnauthorized is returned when the bearer credential is missing or invalid
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingImageData is returned when neither an image URL nor inline data is usable
	ErrMissingImageData = errors.New("no image data provided")

	// ErrProductNotFound is returned when the barcode has no product record upstream.
	// Not fatal: the orchestrator downgrades it to a fallback result.
	ErrProductNotFound = errors.New("product not found")

	// ErrNoIngredientData is returned when a product record has no ingredient
	// text and no structured ingredient list. Downgraded to a fallback result.
	ErrNoIngredientData = errors.New("ingredients not available")

	// ErrClassifierUnavailable is returned on classifier network/timeout failures.
	// Retryable by the caller; the orchestrator does not auto-retry.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrInvalidClassifierResponse is returned when the classifier output cannot
	// be parsed as JSON even after salvage
	ErrInvalidClassifierResponse = errors.New("invalid classifier response")

	// ErrQuotaExceeded is returned when a free user is out of daily scans
	ErrQuotaExceeded = errors.New("daily scan limit reached")

	// ErrPersistenceFailure wraps storage errors. Logged, never fatal to a scan.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrInvalidSignature is returned when webhook signature verification fails
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrLookupUnavailable is returned when the product database request fails
	ErrLookupUnavailable = errors.New("product database request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrProfileNotFound is returned when no profile row exists for a user
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoSubscription is returned when a user has no billing customer yet
	ErrNoSubscription = errors.New("no subscription found")
)
