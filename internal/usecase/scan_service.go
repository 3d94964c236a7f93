package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/purescan/backend/internal/domain"
)

const (
	maxImageBytes = 8 << 20 // refuse to buffer images beyond 8 MiB

	fallbackNotFound = "Product not found. Please use the Ingredient method instead — take a photo of the ingredient label."
	fallbackNoData   = "Ingredients not available for this product. Please use the Ingredient method instead — take a photo of the ingredient label."
)

// ScanServiceConfig holds configuration for the scan service
type ScanServiceConfig struct {
	CacheTTL          time.Duration
	ImageFetchTimeout time.Duration
	PersistTimeout    time.Duration
	DailyScanLimit    int
}

// ScanService orchestrates one scan: it picks the analysis path, drives the
// upstream calls in order, applies the fallback rules and emits one
// canonical ScanResult.
type ScanService struct {
	cache      domain.CacheRepository
	lookup     domain.ProductLookup
	classifier domain.Classifier
	scans      domain.ScanRepository
	profiles   domain.ProfileRepository
	blobs      domain.BlobStore

	httpClient     *http.Client
	cacheTTL       time.Duration
	persistTimeout time.Duration
	dailyLimit     int
	now            func() time.Time
}

// NewScanService creates a scan service with dependencies. blobs may be nil;
// photo upload is then skipped and history entries keep no thumbnail.
func NewScanService(
	cache domain.CacheRepository,
	lookup domain.ProductLookup,
	classifier domain.Classifier,
	scans domain.ScanRepository,
	profiles domain.ProfileRepository,
	blobs domain.BlobStore,
	config ScanServiceConfig,
) *ScanService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	fetchTimeout := config.ImageFetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 15 * time.Second
	}
	persistTimeout := config.PersistTimeout
	if persistTimeout == 0 {
		persistTimeout = 5 * time.Second
	}
	limit := config.DailyScanLimit
	if limit == 0 {
		limit = domain.FreeDailyScanLimit
	}

	return &ScanService{
		cache:          cache,
		lookup:         lookup,
		classifier:     classifier,
		scans:          scans,
		profiles:       profiles,
		blobs:          blobs,
		httpClient:     &http.Client{Timeout: fetchTimeout},
		cacheTTL:       cacheTTL,
		persistTimeout: persistTimeout,
		dailyLimit:     limit,
		now:            time.Now,
	}
}

// AnalyzeImage runs the image path: resolve image bytes, delegate to the
// vision classifier (which grades inline on this path), validate the shape
// and persist best-effort.
func (s *ScanService) AnalyzeImage(ctx context.Context, userID string, req *domain.AnalyzeRequest) (*domain.ScanResult, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	image, err := s.resolveImageBytes(ctx, req)
	if err != nil {
		return nil, err
	}

	mode := req.ScanMode
	if mode != domain.ModeItem {
		mode = domain.ModeIngredient
	}

	raw, err := s.classifier.AnalyzeImage(ctx, image, mode)
	if err != nil {
		return nil, err
	}

	var analysis imageAnalysis
	if err := decodeClassifierJSON(raw, &analysis); err != nil {
		log.Printf("[Scan] unparseable image analysis: %v; raw: %q", err, raw)
		return nil, err
	}

	result := s.buildImageResult(&analysis)
	result.ImageURL = req.ImageURL
	if result.ImageURL == "" && s.blobs != nil {
		if url, err := s.blobs.Put(ctx, image, "image/jpeg"); err != nil {
			log.Printf("[Scan] photo upload failed: %v", err)
		} else {
			result.ImageURL = url
		}
	}

	s.finishScan(ctx, userID, result)
	return result, nil
}

// ScanBarcode runs the barcode path: lookup, normalize, text-only
// classification, local deterministic scoring, merge. Lookup misses and
// missing ingredient data come back as a fallback result, not an error.
func (s *ScanService) ScanBarcode(ctx context.Context, userID string, req *domain.BarcodeRequest) (*domain.ScanResult, *domain.FallbackResult, error) {
	if req == nil || req.Barcode == "" {
		return nil, nil, domain.ErrInvalidRequest
	}
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, nil, err
	}

	category := req.Category
	if category != domain.CategoryCosmetics {
		category = domain.CategoryFood
	}

	raw, err := s.lookupProduct(ctx, req.Barcode, category)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrLookupUnavailable) {
			log.Printf("[Scan] lookup miss for %s (%s): %v", req.Barcode, category, err)
			return nil, &domain.FallbackResult{Fallback: true, Message: fallbackNotFound}, nil
		}
		return nil, nil, err
	}

	record := NormalizeProduct(raw)
	if !record.HasIngredientData() {
		return nil, &domain.FallbackResult{
			Fallback:    true,
			Message:     fallbackNoData,
			ProductName: record.ProductName,
			Brand:       record.Brand,
		}, nil
	}

	productType := domain.TypeFood
	if category == domain.CategoryCosmetics {
		productType = domain.TypeCosmetic
	}

	ingredients := record.IngredientsText
	if ingredients == "" {
		ingredients = strings.Join(record.IngredientNames, ", ")
	}

	rawText, err := s.classifier.ClassifyIngredients(ctx, ingredients, productType)
	if err != nil {
		return nil, nil, err
	}

	var classification textClassification
	if err := decodeClassifierJSON(rawText, &classification); err != nil {
		log.Printf("[Scan] unparseable classification: %v; raw: %q", err, rawText)
		return nil, nil, err
	}

	// The model is never trusted for the final score on this path
	score := ComputeToxicityScore(classification.Ingredients, record.NovaGroup, len(record.Additives))

	result := &domain.ScanResult{
		ProductName:      record.ProductName,
		Brand:            record.Brand,
		Barcode:          req.Barcode,
		ProductType:      productType,
		OverallGrade:     GradeForScore(score),
		ToxicityScore:    score,
		Summary:          classification.Summary,
		Ingredients:      nonNilIngredients(classification.Ingredients),
		HarmfulChemicals: FilterHarmful(classification.Ingredients),
		Macros:           &record.Macros,
		NutriGrade:       record.NutriGrade,
		NovaGroup:        record.NovaGroup,
		Allergens:        record.Allergens,
		Additives:        record.Additives,
		NutrientLevels:   record.NutrientLevels,
		Categories:       record.Categories,
		ImageURL:         record.ImageURL,
		Method:           domain.MethodBarcode,
	}

	s.finishScan(ctx, userID, result)
	return result, nil, nil
}

// History returns the user's most recent scans
func (s *ScanService) History(ctx context.Context, userID string, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.scans.History(ctx, userID, limit)
}

// checkQuota enforces the daily free-tier limit. A failed profile read does
// not block the scan; the original allows scanning while the profile loads.
func (s *ScanService) checkQuota(ctx context.Context, userID string) error {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			profile = &domain.Profile{ID: userID}
			if err := s.profiles.Create(ctx, profile); err != nil {
				log.Printf("[Scan] profile create failed for %s: %v", userID, err)
			}
		} else {
			log.Printf("[Scan] profile read failed for %s: %v", userID, err)
			return nil
		}
	}

	today := s.today()
	if profile.LastScanDate != "" && profile.LastScanDate != today {
		if err := s.profiles.ResetDailyScans(ctx, userID, today); err != nil {
			log.Printf("[Scan] daily reset failed for %s: %v", userID, err)
		} else {
			profile.DailyScans = 0
			profile.LastScanDate = today
		}
	}

	if !profile.CanScan(today) {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// finishScan persists the result and bumps the quota counters, best-effort.
// Nothing here may fail the scan: the caller gets the computed result even
// when the save fails. A request whose caller already disconnected is
// discarded, never written on its behalf.
func (s *ScanService) finishScan(ctx context.Context, userID string, result *domain.ScanResult) {
	if ctx.Err() != nil {
		log.Printf("[Scan] caller gone, discarding result for %s", userID)
		return
	}

	// Independent timeout: a slow save must not hold the response hostage
	// and the caller closing the connection must not abort the write.
	pctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	record := &domain.ScanRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
		Result:    *result,
	}
	if err := s.scans.Save(pctx, record); err != nil {
		log.Printf("[Scan] save failed for %s: %v", userID, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err))
	}

	applied, err := s.profiles.IncrementScanStats(pctx, userID, s.today(), s.dailyLimit)
	if err != nil {
		log.Printf("[Scan] quota bump failed for %s: %v", userID, err)
	} else if !applied {
		log.Printf("[Scan] quota ceiling hit concurrently for %s", userID)
	}
}

// lookupProduct goes through the product cache before hitting the upstream
// database. Classifier output is never cached; product records are static
// enough to be.
func (s *ScanService) lookupProduct(ctx context.Context, barcode string, category domain.ProductCategory) (*domain.RawProduct, error) {
	key := fmt.Sprintf("product:%s:%s", category, barcode)

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != nil {
		if raw := decodeCachedProduct(cached); raw != nil {
			return raw, nil
		}
	}

	raw, err := s.lookup.Lookup(ctx, barcode, category)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		log.Printf("[Scan] product cache write failed: %v", err)
	}
	return raw, nil
}

// decodeCachedProduct converts a cached value back into a RawProduct. The
// cache JSON-round-trips values, so a map comes back; a JSON re-decode
// restores the typed record.
func decodeCachedProduct(value interface{}) *domain.RawProduct {
	if raw, ok := value.(*domain.RawProduct); ok {
		return raw
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	var raw domain.RawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return &raw
}

// buildImageResult validates the model's shape and fills missing numeric or
// enum fields with defaults rather than failing the whole request
func (s *ScanService) buildImageResult(analysis *imageAnalysis) *domain.ScanResult {
	grade := domain.Grade(strings.ToUpper(strings.TrimSpace(analysis.OverallGrade)))
	switch grade {
	case "A", "B", "C", "D", "E":
	default:
		grade = "C"
	}

	score := NeutralScore
	if analysis.ToxicityScore != nil {
		score = clampScore(int(*analysis.ToxicityScore))
	}

	productType := domain.ProductType(analysis.ProductType)
	if productType != domain.TypeCosmetic {
		productType = domain.TypeFood
	}

	name := analysis.ProductName
	if name == "" {
		name = "Unknown Product"
	}

	additives := analysis.Additives
	if additives == nil {
		additives = []string{}
	}

	return &domain.ScanResult{
		ProductName:      name,
		Brand:            analysis.Brand,
		ProductType:      productType,
		OverallGrade:     grade,
		ToxicityScore:    score,
		Summary:          analysis.Summary,
		Ingredients:      nonNilIngredients(analysis.Ingredients),
		HarmfulChemicals: FilterHarmful(analysis.Ingredients),
		Macros:           analysis.Macros,
		NutriGrade:       strings.ToUpper(analysis.NutriGrade),
		Allergens:        []string{},
		Additives:        additives,
		CosmeticRisks:    analysis.CosmeticRisks,
		Method:           domain.MethodImage,
	}
}

// resolveImageBytes obtains the image, preferring the URL and falling back
// to the inline payload when the fetch fails
func (s *ScanService) resolveImageBytes(ctx context.Context, req *domain.AnalyzeRequest) ([]byte, error) {
	if req.ImageURL != "" {
		data, err := s.fetchImage(ctx, req.ImageURL)
		if err == nil {
			return data, nil
		}
		log.Printf("[Scan] image fetch failed for %s, trying inline payload: %v", req.ImageURL, err)
	}

	if req.ImageBase64 != "" {
		payload := req.ImageBase64
		// Tolerate data URIs from canvas captures
		if strings.HasPrefix(payload, "data:") {
			if idx := strings.Index(payload, ","); idx >= 0 {
				payload = payload[idx+1:]
			}
		}
		if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
			return data, nil
		}
	}

	return nil, domain.ErrMissingImageData
}

func (s *ScanService) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func (s *ScanService) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func nonNilIngredients(in []domain.Ingredient) []domain.Ingredient {
	if in == nil {
		return []domain.Ingredient{}
	}
	return in
}
