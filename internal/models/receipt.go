package models

import (
	"encoding/json"
	"time"
)

// ReceiptStatus represents the processing status of a receipt
type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusCompleted  ReceiptStatus = "completed"
	ReceiptStatusFailed     ReceiptStatus = "failed"
)

// Receipt represents an uploaded receipt document
type Receipt struct {
	ID           int `json:"id"`
	UploadedByID int `json:"uploaded_by_id"`
	HouseholdID  int `json:"household_id"`

	// Extracted metadata
	MerchantName    *string    `json:"merchant_name,omitempty"`
	MerchantAddress *string    `json:"merchant_address,omitempty"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	TaxAmount       *float64   `json:"tax_amount,omitempty"`
	Currency        string     `json:"currency"`
	ReceiptNumber   *string    `json:"receipt_number,omitempty"`
	PaymentMethod   *string    `json:"payment_method,omitempty"`

	// File storage
	ImageKey string `json:"image_key"`
	ImageURL string `json:"image_url"`

	// OCR processing
	OCRProvider      *string         `json:"ocr_provider,omitempty"`
	OCRRawResponse   json.RawMessage `json:"-"`
	ProcessingTimeMs *int            `json:"processing_time_ms,omitempty"`
	ProcessingStatus ReceiptStatus   `json:"processing_status"`
	ProcessingError  *string         `json:"processing_error,omitempty"`

	// Duplicate detection
	IsDuplicate   bool `json:"is_duplicate"`
	DuplicateOfID *int `json:"duplicate_of_id,omitempty"`

	// ItemsAdded flips false->true exactly once, on confirmation
	ItemsAdded bool `json:"items_added"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReceiptWithLineItems includes the extracted line items
type ReceiptWithLineItems struct {
	Receipt
	LineItems []ReceiptLineItem `json:"line_items"`
}

// ReceiptLineItem is one extracted row of a receipt, pre-materialization
type ReceiptLineItem struct {
	ID        int `json:"id"`
	ReceiptID int `json:"receipt_id"`

	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	TotalPrice  *float64 `json:"total_price,omitempty"`

	// Product catalog match
	MatchedProductID *int     `json:"matched_product_id,omitempty"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`

	// User corrections prior to confirmation
	UserCorrectedName *string `json:"user_corrected_name,omitempty"`
	Category          *string `json:"category,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EffectiveName returns the user-corrected name when present
func (li *ReceiptLineItem) EffectiveName() string {
	if li.UserCorrectedName != nil && *li.UserCorrectedName != "" {
		return *li.UserCorrectedName
	}
	return li.Description
}

// CanonicalReceipt is the provider-independent extraction record every OCR
// vendor response is normalized into.
type CanonicalReceipt struct {
	MerchantName    string              `json:"merchant_name"`
	MerchantAddress string              `json:"merchant_address"`
	PurchaseDate    *time.Time          `json:"purchase_date"`
	TotalAmount     float64             `json:"total_amount"`
	TaxAmount       float64             `json:"tax_amount"`
	ReceiptNumber   string              `json:"receipt_number"`
	LineItems       []CanonicalLineItem `json:"line_items"`
}

// CanonicalLineItem is one extracted row in provider-independent form
type CanonicalLineItem struct {
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	TotalPrice  *float64 `json:"total_price"`
}

// LineItemMatch pairs an extracted line item, by position, with its best
// product catalog candidate. A nil ProductID means nothing scored high
// enough.
type LineItemMatch struct {
	ProductID  *int
	Confidence *float64
}

// UploadReceiptResponse is returned immediately on upload, before OCR runs
type UploadReceiptResponse struct {
	ReceiptID int           `json:"receipt_id"`
	Status    ReceiptStatus `json:"status"`
}

// UpdateLineItemRequest carries user corrections to one line item
type UpdateLineItemRequest struct {
	UserCorrectedName *string `json:"user_corrected_name,omitempty"`
	Category          *string `json:"category,omitempty"`
}

// ConfirmReceiptRequest selects the line items to materialize into inventory
type ConfirmReceiptRequest struct {
	ConfirmedItems []int                         `json:"confirmed_items" validate:"required,min=1"`
	Corrections    map[int]UpdateLineItemRequest `json:"corrections,omitempty"`
}

// ConfirmReceiptResponse reports what was materialized
type ConfirmReceiptResponse struct {
	ItemsAdded int `json:"items_added"`
}

// ReceiptListParams contains parameters for listing receipts
type ReceiptListParams struct {
	Limit  int
	Offset int
	Status *ReceiptStatus
}
