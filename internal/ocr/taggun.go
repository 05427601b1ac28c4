package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/larderhq/larder/internal/models"
)

const taggunDefaultURL = "https://api.taggun.io/api/receipt/v1/simple/file"

// TaggunProvider extracts receipts with the Taggun simple file API
type TaggunProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTaggunProvider creates a Taggun-backed provider
func NewTaggunProvider(apiKey string) *TaggunProvider {
	return &TaggunProvider{
		apiKey:  apiKey,
		baseURL: taggunDefaultURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *TaggunProvider) Name() string { return "taggun" }

// Extract uploads the image as a multipart file and normalizes the response
func (t *TaggunProvider) Extract(ctx context.Context, image []byte, contentType string) (*models.CanonicalReceipt, error) {
	body, formContentType, err := buildImageForm("file", image)
	if err != nil {
		return nil, &ProviderError{Provider: "taggun", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, body)
	if err != nil {
		return nil, &ProviderError{Provider: "taggun", Err: err}
	}
	req.Header.Set("apikey", t.apiKey)
	req.Header.Set("Content-Type", formContentType)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "taggun", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "taggun", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var raw taggunResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &ProviderError{Provider: "taggun", Err: fmt.Errorf("decoding response: %w", err)}
	}

	return raw.canonical(), nil
}

type taggunResponse struct {
	MerchantName    taggunString `json:"merchantName"`
	MerchantAddress taggunString `json:"merchantAddress"`
	Date            taggunString `json:"date"`
	TotalAmount     taggunFloat  `json:"totalAmount"`
	TaxAmount       taggunFloat  `json:"taxAmount"`
	Entities        struct {
		LineItems []taggunLineItem `json:"lineItems"`
	} `json:"entities"`
}

type taggunString struct {
	Data string `json:"data"`
}

type taggunFloat struct {
	Data float64 `json:"data"`
}

type taggunLineItem struct {
	Description taggunString `json:"description"`
	Quantity    *struct {
		Data float64 `json:"data"`
	} `json:"quantity"`
	Price *struct {
		Data float64 `json:"data"`
	} `json:"price"`
	Amount *struct {
		Data float64 `json:"data"`
	} `json:"amount"`
}

func (r *taggunResponse) canonical() *models.CanonicalReceipt {
	receipt := &models.CanonicalReceipt{
		MerchantName:    r.MerchantName.Data,
		MerchantAddress: r.MerchantAddress.Data,
		TotalAmount:     r.TotalAmount.Data,
		TaxAmount:       r.TaxAmount.Data,
	}

	if r.Date.Data != "" {
		// Taggun reports RFC 3339 timestamps; fall back to a bare date.
		if ts, err := time.Parse(time.RFC3339, r.Date.Data); err == nil {
			receipt.PurchaseDate = &ts
		} else if ts, err := time.Parse("2006-01-02", r.Date.Data); err == nil {
			receipt.PurchaseDate = &ts
		}
	}

	for _, li := range r.Entities.LineItems {
		if li.Description.Data == "" {
			continue
		}
		quantity := 1.0
		if li.Quantity != nil && li.Quantity.Data > 0 {
			quantity = li.Quantity.Data
		}
		item := models.CanonicalLineItem{
			Description: li.Description.Data,
			Quantity:    quantity,
		}
		if li.Price != nil {
			price := li.Price.Data
			item.UnitPrice = &price
		}
		if li.Amount != nil {
			amount := li.Amount.Data
			item.TotalPrice = &amount
		}
		receipt.LineItems = append(receipt.LineItems, item)
	}

	return receipt
}
