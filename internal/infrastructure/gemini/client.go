package gemini

import (
	"context"
	"fmt"

	"github.com/purescan/backend/internal/domain"
	"google.golang.org/genai"
)

const (
	// Sampling stays as low as the API allows so repeated scans of the same
	// product drift as little as possible
	imageTemperature = 0.2
	textTemperature  = 0.1

	imageMaxTokens = 4096
	textMaxTokens  = 2048
)

// Client is the risk classifier adapter over the Gemini API. Stateless:
// one request, one raw-text response, parsing happens in the caller.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini classifier client
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-flash-latest"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// AnalyzeImage runs the full image analysis with the mode-specific
// instruction. The model identifies the product, extracts ingredients and
// grades inline on this path.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mode domain.ScanMode) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(imagePrompt(mode)),
		genai.NewPartFromBytes(image, "image/jpeg"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	return c.generate(ctx, contents, imageTemperature, imageMaxTokens)
}

// ClassifyIngredients runs the cheaper text-only per-ingredient
// classification for the barcode path
func (c *Client) ClassifyIngredients(ctx context.Context, ingredients string, productType domain.ProductType) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(classifyPrompt(ingredients, productType), genai.RoleUser),
	}

	return c.generate(ctx, contents, textTemperature, textMaxTokens)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, temperature float32, maxTokens int32) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrClassifierUnavailable)
	}
	return text, nil
}
