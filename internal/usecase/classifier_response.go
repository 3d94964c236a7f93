package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/purescan/backend/internal/domain"
)

// imageAnalysis is the schema the model is instructed to return on the
// image path. Grade and score arrive from the model directly; the
// orchestrator only validates shape and fills defaults.
type imageAnalysis struct {
	ProductName      string                `json:"productName"`
	Brand            string                `json:"brand"`
	ProductType      string                `json:"productType"`
	OverallGrade     string                `json:"overallGrade"`
	ToxicityScore    *float64              `json:"toxicityScore"`
	Summary          string                `json:"summary"`
	Ingredients      []domain.Ingredient   `json:"ingredients"`
	HarmfulChemicals []domain.Ingredient   `json:"harmfulChemicals"`
	Additives        []string              `json:"additives"`
	Macros           *domain.Macros        `json:"macros"`
	NutriGrade       string                `json:"nutriGrade"`
	CosmeticRisks    *domain.CosmeticRisks `json:"cosmeticRisks"`
}

// textClassification is the schema of the barcode path's text-only call
type textClassification struct {
	Summary          string              `json:"summary"`
	Ingredients      []domain.Ingredient `json:"ingredients"`
	HarmfulChemicals []domain.Ingredient `json:"harmfulChemicals"`
}

// decodeClassifierJSON parses the model's raw text into v. Responses are
// frequently wrapped in markdown code fences; those are stripped first. If
// the cleaned text still fails to parse, the first {...} span is extracted
// as a salvage attempt before giving up with ErrInvalidClassifierResponse.
func decodeClassifierJSON(raw string, v any) error {
	cleaned := stripCodeFences(raw)

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	salvaged, ok := extractJSONObject(cleaned)
	if !ok {
		return fmt.Errorf("%w: no JSON object found", domain.ErrInvalidClassifierResponse)
	}
	if err := json.Unmarshal([]byte(salvaged), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidClassifierResponse, err)
	}
	return nil
}

// stripCodeFences removes ```json / ``` markers and trims whitespace
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the span from the first '{' to the last '}',
// which recovers objects surrounded by prose
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
