package usecase

import (
	"math"
	"strconv"
	"strings"

	"github.com/purescan/backend/internal/domain"
)

// NormalizeProduct extracts the canonical field set from a raw Open Food
// Facts / Open Beauty Facts record. Pure transformation, no I/O: every
// field has an explicit fallback chain (primary key, then legacy key, then
// zero value), so a partially-populated or even empty record normalizes
// without error.
func NormalizeProduct(raw *domain.RawProduct) *domain.ProductRecord {
	if raw == nil {
		raw = &domain.RawProduct{}
	}

	name := firstNonEmpty(raw.ProductName, raw.ProductNameEn, "Unknown Product")
	ingredientsText := firstNonEmpty(raw.IngredientsText, raw.IngredientsTextEn)
	imageURL := firstNonEmpty(raw.ImageFrontURL, raw.ImageURL)

	n := raw.Nutriments
	macros := domain.Macros{
		Calories:     math.Round(nutrimentValue(n, "energy-kcal_100g", "energy-kcal")),
		Protein:      round1(nutrimentValue(n, "proteins_100g", "proteins")),
		Carbs:        round1(nutrimentValue(n, "carbohydrates_100g", "carbohydrates")),
		Fats:         round1(nutrimentValue(n, "fat_100g", "fat")),
		Sugar:        round1(nutrimentValue(n, "sugars_100g", "sugars")),
		Fiber:        round1(nutrimentValue(n, "fiber_100g", "fiber")),
		Salt:         round2(nutrimentValue(n, "salt_100g", "salt")),
		SaturatedFat: round1(nutrimentValue(n, "saturated-fat_100g")),
	}

	nutriGrade := strings.ToUpper(firstNonEmpty(raw.NutriscoreGrade, raw.NutritionGrades))

	// Structured ingredient names; the free-text field takes priority for
	// classification but these serve as the fallback list.
	names := make([]string, 0, len(raw.Ingredients))
	for _, ing := range raw.Ingredients {
		name := ing.Text
		if name == "" {
			name = stripLocale(ing.ID)
		}
		if name != "" {
			names = append(names, name)
		}
	}

	levels := raw.NutrientLevels
	if levels == nil {
		levels = map[string]string{}
	}

	return &domain.ProductRecord{
		ProductName:     name,
		Brand:           raw.Brands,
		IngredientsText: ingredientsText,
		IngredientNames: names,
		ImageURL:        imageURL,
		Macros:          macros,
		NutriGrade:      nutriGrade,
		NovaGroup:       raw.NovaGroup,
		Allergens:       cleanTags(raw.AllergensTags),
		Additives:       cleanTags(raw.AdditivesTags),
		NutrientLevels:  levels,
		Categories:      raw.Categories,
	}
}

// nutrimentValue walks the fallback key chain and coerces whatever the API
// returned (OFF nutriments mix numbers and numeric strings) to a float64.
// Missing or unparseable values degrade to 0.
func nutrimentValue(nutriments map[string]any, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := nutriments[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// cleanTags strips the locale prefix (e.g. "en:gluten" -> "gluten") and
// drops entries that end up empty
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := stripLocale(tag)
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func stripLocale(tag string) string {
	if idx := strings.Index(tag, ":"); idx >= 0 {
		return tag[idx+1:]
	}
	return tag
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
