package usecase

import (
	"math"
	"strings"

	"github.com/purescan/backend/internal/domain"
)

// riskWeights maps classifier risk strings to toxicity weights.
// Unlisted strings fall back to the Unknown Risk weight.
var riskWeights = map[string]float64{
	domain.RiskCancerCausing: 100,
	domain.RiskHarmful:       60,
	domain.RiskModerate:      30,
	domain.RiskUnknown:       20,
	domain.RiskLow:           5,
}

const unknownRiskWeight = 20

// NeutralScore is returned when there are no ingredients to score
const NeutralScore = 50

// ComputeToxicityScore converts per-ingredient risk classifications plus
// free upstream signals (NOVA processing group, additive count) into a
// 0-100 toxicity score. Deterministic: no randomness, no external calls.
func ComputeToxicityScore(ingredients []domain.Ingredient, novaGroup, additiveCount int) int {
	if len(ingredients) == 0 {
		return NeutralScore
	}

	total := 0.0
	for _, ing := range ingredients {
		w, ok := riskWeights[ing.RiskLevel]
		if !ok {
			w = unknownRiskWeight
		}
		total += w
	}
	score := total / float64(len(ingredients))

	// Processing-level penalty from NOVA classification
	switch novaGroup {
	case 4:
		score += 8
	case 3:
		score += 4
	}

	// Additive penalty, capped
	score += math.Min(float64(additiveCount)*2, 10)

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// GradeForScore maps a toxicity score to the barcode path's letter grade.
// The image path grades inline in the model instructions with slightly
// different boundaries; the two tables are kept separate on purpose.
func GradeForScore(score int) domain.Grade {
	switch {
	case score <= 15:
		return "A"
	case score <= 35:
		return "B"
	case score <= 55:
		return "C"
	case score <= 75:
		return "D"
	default:
		return "E"
	}
}

// FilterHarmful returns the subset of ingredients whose risk level is
// neither low nor safe. ScanResult.HarmfulChemicals is always derived this
// way, never taken from the classifier verbatim.
func FilterHarmful(ingredients []domain.Ingredient) []domain.Ingredient {
	harmful := make([]domain.Ingredient, 0, len(ingredients))
	for _, ing := range ingredients {
		if isLowRisk(ing.RiskLevel) {
			continue
		}
		harmful = append(harmful, ing)
	}
	return harmful
}

func isLowRisk(riskLevel string) bool {
	switch strings.ToLower(strings.TrimSpace(riskLevel)) {
	case "low", "low risk", "safe", "":
		return true
	}
	return false
}
