package ocr

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/larderhq/larder/internal/models"
)

// TesseractProvider runs OCR locally with tesseract and parses the raw text
// with the line-oriented receipt parser. It needs no API key, which makes it
// the development default.
type TesseractProvider struct {
	mu     sync.Mutex
	parser *TextParser
}

// NewTesseractProvider creates a local tesseract-backed provider
func NewTesseractProvider() *TesseractProvider {
	return &TesseractProvider{parser: NewTextParser()}
}

func (t *TesseractProvider) Name() string { return "tesseract" }

// Extract runs tesseract over a temp copy of the image and parses the text.
// gosseract clients are not safe for concurrent use, so a fresh one is built
// per call under a lock.
func (t *TesseractProvider) Extract(ctx context.Context, image []byte, contentType string) (*models.CanonicalReceipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpFile, err := os.CreateTemp("", "receipt-*.jpg")
	if err != nil {
		return nil, &ProviderError{Provider: "tesseract", Err: fmt.Errorf("failed to create temp file: %w", err)}
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(image); err != nil {
		tmpFile.Close()
		return nil, &ProviderError{Provider: "tesseract", Err: fmt.Errorf("failed to write temp file: %w", err)}
	}
	tmpFile.Close()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage("eng"); err != nil {
		return nil, &ProviderError{Provider: "tesseract", Err: fmt.Errorf("failed to set language: %w", err)}
	}
	// PSM 6 = assume a single uniform block of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, &ProviderError{Provider: "tesseract", Err: fmt.Errorf("failed to set page segmentation mode: %w", err)}
	}
	if err := client.SetImage(tmpFile.Name()); err != nil {
		return nil, &ProviderError{Provider: "tesseract", Err: fmt.Errorf("failed to set image: %w", err)}
	}

	text, err := client.Text()
	if err != nil {
		return nil, &ProviderError{Provider: "tesseract", Err: fmt.Errorf("failed to extract text: %w", err)}
	}

	return t.parser.Parse(text), nil
}
