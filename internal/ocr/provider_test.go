package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larderhq/larder/internal/config"
)

func TestNewRequiresExplicitSelection(t *testing.T) {
	_, err := New(&config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(&config.Config{OCRProvider: "something-else"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewRejectsSelectionWithoutCredentials(t *testing.T) {
	_, err := New(&config.Config{OCRProvider: "gemini"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(&config.Config{OCRProvider: "mindee"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(&config.Config{OCRProvider: "taggun"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewTesseractNeedsNoKey(t *testing.T) {
	p, err := New(&config.Config{OCRProvider: "tesseract"})
	require.NoError(t, err)
	assert.Equal(t, "tesseract", p.Name())
}

func TestNewIgnoresUnselectedKeys(t *testing.T) {
	// A key for an unselected provider must not rescue a bad selection
	_, err := New(&config.Config{OCRProvider: "mindee", TaggunAPIKey: "set"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMindeeExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("document")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"document": {"inference": {"prediction": {
				"supplier_name": {"value": "Trader Joe's"},
				"date": {"value": "2026-05-02"},
				"total_amount": {"value": 23.45},
				"total_tax": {"value": 1.25},
				"line_items": [
					{"description": "BANANAS", "quantity": 2, "unit_price": 0.5, "total_amount": 1.0},
					{"description": "", "total_amount": 5.0}
				]
			}}}
		}`))
	}))
	defer srv.Close()

	p := NewMindeeProvider("test-key")
	p.baseURL = srv.URL

	receipt, err := p.Extract(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "Trader Joe's", receipt.MerchantName)
	assert.Equal(t, 23.45, receipt.TotalAmount)
	assert.Equal(t, 1.25, receipt.TaxAmount)
	require.NotNil(t, receipt.PurchaseDate)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), *receipt.PurchaseDate)

	// Blank descriptions are dropped
	require.Len(t, receipt.LineItems, 1)
	assert.Equal(t, "BANANAS", receipt.LineItems[0].Description)
	assert.Equal(t, 2.0, receipt.LineItems[0].Quantity)
}

func TestMindeeExtractErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewMindeeProvider("bad-key")
	p.baseURL = srv.URL

	_, err := p.Extract(context.Background(), []byte("fake-image"), "image/jpeg")
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mindee", perr.Provider)
}

func TestTaggunExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"merchantName": {"data": "Costco"},
			"merchantAddress": {"data": "1 Warehouse Way"},
			"date": {"data": "2026-05-02T10:31:00Z"},
			"totalAmount": {"data": 112.80},
			"taxAmount": {"data": 8.20},
			"entities": {"lineItems": [
				{"description": {"data": "ROTISSERIE CHICKEN"}, "quantity": {"data": 1}, "price": {"data": 4.99}, "amount": {"data": 4.99}}
			]}
		}`))
	}))
	defer srv.Close()

	p := NewTaggunProvider("test-key")
	p.baseURL = srv.URL

	receipt, err := p.Extract(context.Background(), []byte("fake-image"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "Costco", receipt.MerchantName)
	assert.Equal(t, "1 Warehouse Way", receipt.MerchantAddress)
	assert.Equal(t, 112.80, receipt.TotalAmount)
	require.NotNil(t, receipt.PurchaseDate)

	require.Len(t, receipt.LineItems, 1)
	li := receipt.LineItems[0]
	assert.Equal(t, "ROTISSERIE CHICKEN", li.Description)
	require.NotNil(t, li.UnitPrice)
	assert.Equal(t, 4.99, *li.UnitPrice)
}

func TestParseGeminiJSONStripsFences(t *testing.T) {
	receipt, err := parseGeminiJSON("```json\n{\"merchant_name\": \"Aldi\", \"total_amount\": 9.99, \"line_items\": [{\"description\": \"Eggs\", \"quantity\": 0}]}\n```")
	require.NoError(t, err)

	assert.Equal(t, "Aldi", receipt.MerchantName)
	assert.Equal(t, 9.99, receipt.TotalAmount)
	require.Len(t, receipt.LineItems, 1)
	// Zero quantity defaults to one
	assert.Equal(t, 1.0, receipt.LineItems[0].Quantity)
}

func TestParseGeminiJSONInvalid(t *testing.T) {
	_, err := parseGeminiJSON("I could not read this receipt")
	assert.Error(t, err)
}
