package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/larderhq/larder/internal/models"
)

const geminiPrompt = `Analyze this grocery receipt image and extract its contents as JSON.

Return ONLY a JSON object with this exact structure, no other text:
{
  "merchant_name": "store name",
  "merchant_address": "store address or empty string",
  "purchase_date": "YYYY-MM-DD or empty string",
  "total_amount": 0.00,
  "tax_amount": 0.00,
  "receipt_number": "receipt/transaction number or empty string",
  "line_items": [
    {"description": "item name as printed", "quantity": 1, "unit_price": 0.00, "total_price": 0.00}
  ]
}

Rules:
- Include every purchased item, excluding subtotal, tax, total, change and payment lines.
- Expand obvious abbreviations (e.g. "ORG BNNA" -> "Organic Banana") but keep brand names.
- quantity defaults to 1 when not printed.
- Use null for unit_price or total_price you cannot read.`

// GeminiProvider extracts receipts with Google Gemini vision
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider creates a Gemini-backed provider
func NewGeminiProvider(apiKey, modelName string) (*GeminiProvider, error) {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

// Extract sends the image to Gemini and parses the JSON it returns
func (g *GeminiProvider) Extract(ctx context.Context, image []byte, contentType string) (*models.CanonicalReceipt, error) {
	format := strings.TrimPrefix(contentType, "image/")
	if format == contentType || format == "" {
		format = "jpeg"
	}

	parts := []genai.Part{
		genai.ImageData(format, image),
		genai.Text(geminiPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &ProviderError{Provider: "gemini", Err: fmt.Errorf("empty response")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	receipt, err := parseGeminiJSON(sb.String())
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: err}
	}
	return receipt, nil
}

// Close closes the underlying client
func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

type geminiReceipt struct {
	MerchantName    string           `json:"merchant_name"`
	MerchantAddress string           `json:"merchant_address"`
	PurchaseDate    string           `json:"purchase_date"`
	TotalAmount     float64          `json:"total_amount"`
	TaxAmount       float64          `json:"tax_amount"`
	ReceiptNumber   string           `json:"receipt_number"`
	LineItems       []geminiLineItem `json:"line_items"`
}

type geminiLineItem struct {
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
}

func parseGeminiJSON(text string) (*models.CanonicalReceipt, error) {
	// Strip markdown code fences the model sometimes wraps JSON in
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw geminiReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parsing receipt json: %w", err)
	}

	receipt := &models.CanonicalReceipt{
		MerchantName:    raw.MerchantName,
		MerchantAddress: raw.MerchantAddress,
		TotalAmount:     raw.TotalAmount,
		TaxAmount:       raw.TaxAmount,
		ReceiptNumber:   raw.ReceiptNumber,
	}

	if raw.PurchaseDate != "" {
		if t, err := time.Parse("2006-01-02", raw.PurchaseDate); err == nil {
			receipt.PurchaseDate = &t
		}
	}

	for _, li := range raw.LineItems {
		if strings.TrimSpace(li.Description) == "" {
			continue
		}
		quantity := li.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		receipt.LineItems = append(receipt.LineItems, models.CanonicalLineItem{
			Description: strings.TrimSpace(li.Description),
			Quantity:    quantity,
			UnitPrice:   li.UnitPrice,
			TotalPrice:  li.TotalPrice,
		})
	}

	return receipt, nil
}
