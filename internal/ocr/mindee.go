package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/larderhq/larder/internal/models"
)

const mindeeDefaultURL = "https://api.mindee.net/v1/products/mindee/expense_receipts/v5/predict"

// MindeeProvider extracts receipts with the Mindee expense receipts API
type MindeeProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewMindeeProvider creates a Mindee-backed provider
func NewMindeeProvider(apiKey string) *MindeeProvider {
	return &MindeeProvider{
		apiKey:  apiKey,
		baseURL: mindeeDefaultURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (m *MindeeProvider) Name() string { return "mindee" }

// Extract uploads the image as a multipart document and normalizes the
// prediction.
func (m *MindeeProvider) Extract(ctx context.Context, image []byte, contentType string) (*models.CanonicalReceipt, error) {
	body, formContentType, err := buildImageForm("document", image)
	if err != nil {
		return nil, &ProviderError{Provider: "mindee", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, body)
	if err != nil {
		return nil, &ProviderError{Provider: "mindee", Err: err}
	}
	req.Header.Set("Authorization", "Token "+m.apiKey)
	req.Header.Set("Content-Type", formContentType)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "mindee", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &ProviderError{Provider: "mindee", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var raw mindeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &ProviderError{Provider: "mindee", Err: fmt.Errorf("decoding response: %w", err)}
	}

	return raw.canonical(), nil
}

type mindeeResponse struct {
	Document struct {
		Inference struct {
			Prediction mindeePrediction `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

type mindeePrediction struct {
	SupplierName mindeeString     `json:"supplier_name"`
	Date         mindeeString     `json:"date"`
	TotalAmount  mindeeFloat      `json:"total_amount"`
	TotalTax     mindeeFloat      `json:"total_tax"`
	LineItems    []mindeeLineItem `json:"line_items"`
}

type mindeeString struct {
	Value string `json:"value"`
}

type mindeeFloat struct {
	Value float64 `json:"value"`
}

type mindeeLineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalAmount *float64 `json:"total_amount"`
}

func (r *mindeeResponse) canonical() *models.CanonicalReceipt {
	pred := r.Document.Inference.Prediction

	receipt := &models.CanonicalReceipt{
		MerchantName: pred.SupplierName.Value,
		TotalAmount:  pred.TotalAmount.Value,
		TaxAmount:    pred.TotalTax.Value,
	}

	if pred.Date.Value != "" {
		if t, err := time.Parse("2006-01-02", pred.Date.Value); err == nil {
			receipt.PurchaseDate = &t
		}
	}

	for _, li := range pred.LineItems {
		if li.Description == "" {
			continue
		}
		quantity := 1.0
		if li.Quantity != nil && *li.Quantity > 0 {
			quantity = *li.Quantity
		}
		receipt.LineItems = append(receipt.LineItems, models.CanonicalLineItem{
			Description: li.Description,
			Quantity:    quantity,
			UnitPrice:   li.UnitPrice,
			TotalPrice:  li.TotalAmount,
		})
	}

	return receipt
}

func buildImageForm(fieldName string, image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(fieldName, "receipt.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
