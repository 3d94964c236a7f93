package gemini

import (
	"fmt"
	"strings"

	"github.com/purescan/backend/internal/domain"
)

// Mode-specific instruction injected into the image analysis prompt
var modeInstructions = map[domain.ScanMode]string{
	domain.ModeItem:       "The user has scanned the FULL PRODUCT (front of packaging). Identify the product by its packaging, branding, and any visible information. Infer likely ingredients based on your knowledge of this product/brand.",
	domain.ModeIngredient: "The user has scanned the INGREDIENT LABEL. Carefully read and extract ALL ingredients text visible on the label. Be precise — this is the most important scan mode.",
}

const imagePromptTemplate = `You are a world-class toxicology and nutrition expert. Analyze the product shown in this image.

SCAN MODE: %s
%s

INSTRUCTIONS:
1. Identify the product name and brand from the image.
2. Extract ALL visible ingredients from the label/packaging.
3. Detect product type: "food" or "cosmetic".
4. For EACH ingredient, classify it and assess risk.
5. If FOOD: estimate macros and assign nutrition grade.
6. If COSMETIC: assess risks and assign toxicity score.
7. Calculate overall toxicity score (0-100) and grade (A-E): A (0-20), B (21-40), C (41-60), D (61-80), E (81-100).

RESPOND ONLY WITH VALID JSON in this exact structure:
{
  "productName": "string",
  "brand": "string",
  "productType": "food" | "cosmetic",
  "overallGrade": "A" | "B" | "C" | "D" | "E",
  "toxicityScore": number,
  "summary": "string (2-3 sentences)",
  "ingredients": [
    {
      "name": "string",
      "category": "carcinogen" | "endocrine_disruptor" | "neurotoxin" | "irritant" | "allergen" | "safe",
      "riskLevel": "low" | "moderate" | "high",
      "explanation": "string"
    }
  ],
  "harmfulChemicals": [
     { "name": "string", "category": "string", "riskLevel": "string", "explanation": "string" }
  ],
  "additives": ["string"],
  "macros": { "calories": number, "protein": number, "carbs": number, "fats": number, "sugar": number } | null,
  "nutriGrade": "A" | "B" | "C" | "D" | "E" | null,
  "cosmeticRisks": { "hormoneDisruptor": boolean, "skinIrritationRisk": "string", "toxicityScore": number } | null
}
IMPORTANT: Return ONLY the JSON object.`

const classifyPromptTemplate = `Classify each ingredient's health risk level.

Ingredients: "%s"
Product type: "%s"

For each ingredient return: name, riskLevel (one of: "Cancer Causing", "Harmful", "Moderate", "Low Risk", "Unknown Risk"), effect (2-3 words max), category.
Also return: summary (1-2 sentences about overall product safety).

RESPOND ONLY WITH JSON:
{
  "summary": "string",
  "ingredients": [{"name":"string","riskLevel":"string","effect":"string","category":"carcinogen"|"endocrine_disruptor"|"neurotoxin"|"irritant"|"allergen"|"safe"}],
  "harmfulChemicals": [{"name":"string","category":"string","riskLevel":"string","explanation":"string"}]
}`

func imagePrompt(mode domain.ScanMode) string {
	instruction, ok := modeInstructions[mode]
	if !ok {
		mode = domain.ModeIngredient
		instruction = modeInstructions[mode]
	}
	return fmt.Sprintf(imagePromptTemplate, strings.ToUpper(string(mode)), instruction)
}

func classifyPrompt(ingredients string, productType domain.ProductType) string {
	return fmt.Sprintf(classifyPromptTemplate, ingredients, productType)
}
