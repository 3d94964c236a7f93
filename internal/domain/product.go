package domain

// RawProduct is a product record as returned by the Open Food Facts /
// Open Beauty Facts v2 API. Only the fields the normalizer reads are
// declared; any of them may be absent upstream.
type RawProduct struct {
	ProductName       string            `json:"product_name"`
	ProductNameEn     string            `json:"product_name_en"`
	Brands            string            `json:"brands"`
	IngredientsText   string            `json:"ingredients_text"`
	IngredientsTextEn string            `json:"ingredients_text_en"`
	ImageFrontURL     string            `json:"image_front_url"`
	ImageURL          string            `json:"image_url"`
	Nutriments        map[string]any    `json:"nutriments"`
	NutriscoreGrade   string            `json:"nutriscore_grade"`
	NutritionGrades   string            `json:"nutrition_grades"`
	NovaGroup         int               `json:"nova_group"`
	AllergensTags     []string          `json:"allergens_tags"`
	AdditivesTags     []string          `json:"additives_tags"`
	NutrientLevels    map[string]string `json:"nutrient_levels"`
	Ingredients       []RawIngredient   `json:"ingredients"`
	Categories        string            `json:"categories"`
}

// RawIngredient is one entry of the structured ingredient list
type RawIngredient struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ProductRecord holds the canonical fields the normalizer extracts from a
// RawProduct. It carries everything the barcode path needs besides the
// classifier output.
type ProductRecord struct {
	ProductName     string
	Brand           string
	IngredientsText string
	IngredientNames []string
	ImageURL        string
	Macros          Macros
	NutriGrade      string
	NovaGroup       int
	Allergens       []string
	Additives       []string
	NutrientLevels  map[string]string
	Categories      string
}

// HasIngredientData reports whether there is anything to classify
func (p *ProductRecord) HasIngredientData() bool {
	return p.IngredientsText != "" || len(p.IngredientNames) > 0
}
