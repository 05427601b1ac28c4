package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/larderhq/larder/internal/config"
	"github.com/larderhq/larder/internal/models"
)

// ErrNotConfigured means the selected provider is missing its credentials or
// no provider was selected at all. It is fatal at startup, never at request
// time.
var ErrNotConfigured = errors.New("ocr provider not configured")

// ProviderError wraps a vendor-side extraction failure. Receipts hit by one
// are marked failed with the message preserved.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider extracts structured receipt data from an image. Implementations
// normalize their vendor's response into the canonical form; nothing
// downstream knows which vendor ran.
type Provider interface {
	Name() string
	Extract(ctx context.Context, image []byte, contentType string) (*models.CanonicalReceipt, error)
}

// New builds the provider named by the configuration. The provider is chosen
// explicitly by OCR_PROVIDER; a selection whose credentials are absent, or no
// selection at all, returns ErrNotConfigured.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.OCRProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: gemini selected but GEMINI_API_KEY is empty", ErrNotConfigured)
		}
		return NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel)
	case "mindee":
		if cfg.MindeeAPIKey == "" {
			return nil, fmt.Errorf("%w: mindee selected but MINDEE_API_KEY is empty", ErrNotConfigured)
		}
		return NewMindeeProvider(cfg.MindeeAPIKey), nil
	case "taggun":
		if cfg.TaggunAPIKey == "" {
			return nil, fmt.Errorf("%w: taggun selected but TAGGUN_API_KEY is empty", ErrNotConfigured)
		}
		return NewTaggunProvider(cfg.TaggunAPIKey), nil
	case "tesseract":
		return NewTesseractProvider(), nil
	case "":
		return nil, fmt.Errorf("%w: OCR_PROVIDER is not set", ErrNotConfigured)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.OCRProvider)
	}
}
