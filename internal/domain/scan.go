package domain

import "time"

// ScanMethod identifies which analysis path produced a result
type ScanMethod string

const (
	MethodImage   ScanMethod = "image"
	MethodBarcode ScanMethod = "barcode"
)

// ScanMode tells the classifier what the photo shows
type ScanMode string

const (
	ModeItem       ScanMode = "Item"       // front of packaging
	ModeIngredient ScanMode = "Ingredient" // ingredient label close-up
)

// ProductCategory selects the upstream product database
type ProductCategory string

const (
	CategoryFood      ProductCategory = "food"
	CategoryCosmetics ProductCategory = "cosmetics"
)

// ProductType is the detected type of the scanned product
type ProductType string

const (
	TypeFood     ProductType = "food"
	TypeCosmetic ProductType = "cosmetic"
)

// Grade is an A-E letter grade (A = safest)
type Grade string

// Risk level strings used by the barcode-path classifier
const (
	RiskCancerCausing = "Cancer Causing"
	RiskHarmful       = "Harmful"
	RiskModerate      = "Moderate"
	RiskLow           = "Low Risk"
	RiskUnknown       = "Unknown Risk"
)

// Ingredient is one classified ingredient. The riskLevel vocabulary is
// path-dependent: the image path uses low/moderate/high, the barcode path
// uses the named risk strings above.
type Ingredient struct {
	Name        string `json:"name"`
	Category    string `json:"category"` // carcinogen|endocrine_disruptor|neurotoxin|irritant|allergen|safe
	RiskLevel   string `json:"riskLevel"`
	Effect      string `json:"effect,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Macros are per-100g nutrition facts
type Macros struct {
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein"`
	Carbs        float64 `json:"carbs"`
	Fats         float64 `json:"fats"`
	Sugar        float64 `json:"sugar"`
	Fiber        float64 `json:"fiber"`
	Salt         float64 `json:"salt"`
	SaturatedFat float64 `json:"saturatedFat"`
}

// CosmeticRisks holds the cosmetic-specific assessment from the image path
type CosmeticRisks struct {
	HormoneDisruptor   bool    `json:"hormoneDisruptor"`
	SkinIrritationRisk string  `json:"skinIrritationRisk"`
	ToxicityScore      float64 `json:"toxicityScore"`
}

// ScanResult is the canonical output of one scan, whichever path produced it.
// HarmfulChemicals is always a filtered view of Ingredients, never
// independently authored.
type ScanResult struct {
	ProductName      string            `json:"productName"`
	Brand            string            `json:"brand,omitempty"`
	Barcode          string            `json:"barcode,omitempty"`
	ProductType      ProductType       `json:"productType"`
	OverallGrade     Grade             `json:"overallGrade"`
	ToxicityScore    int               `json:"toxicityScore"`
	Summary          string            `json:"summary"`
	Ingredients      []Ingredient      `json:"ingredients"`
	HarmfulChemicals []Ingredient      `json:"harmfulChemicals"`
	Macros           *Macros           `json:"macros,omitempty"`
	NutriGrade       string            `json:"nutriGrade,omitempty"`
	NovaGroup        int               `json:"novaGroup,omitempty"`
	Allergens        []string          `json:"allergens"`
	Additives        []string          `json:"additives"`
	NutrientLevels   map[string]string `json:"nutrientLevels,omitempty"`
	CosmeticRisks    *CosmeticRisks    `json:"cosmeticRisks,omitempty"`
	Categories       string            `json:"categories,omitempty"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	Method           ScanMethod        `json:"method"`
}

// FallbackResult is a non-error response signaling insufficient data,
// steering the user to the alternate scan method.
type FallbackResult struct {
	Fallback    bool   `json:"fallback"`
	Message     string `json:"message"`
	ProductName string `json:"productName,omitempty"`
	Brand       string `json:"brand,omitempty"`
}

// ScanRecord is a persisted scan. Insert-only; deletable only by its owner.
type ScanRecord struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	Result    ScanResult `json:"result"`
}

// AnalyzeRequest is the image-path request body
type AnalyzeRequest struct {
	ImageURL    string   `json:"imageUrl,omitempty"`
	ImageBase64 string   `json:"imageBase64,omitempty"`
	ScanMode    ScanMode `json:"scanMode,omitempty"`
}

// BarcodeRequest is the barcode-path request body
type BarcodeRequest struct {
	Barcode  string          `json:"barcode" binding:"required"`
	Category ProductCategory `json:"category,omitempty"`
}
