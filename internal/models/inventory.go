package models

import (
	"time"
)

// Category is the fixed category set used for classification and shelf-life
// estimation.
type Category string

const (
	CategoryProduce    Category = "produce"
	CategoryDairy      Category = "dairy"
	CategoryMeat       Category = "meat"
	CategorySeafood    Category = "seafood"
	CategoryBakery     Category = "bakery"
	CategoryFrozen     Category = "frozen"
	CategoryCanned     Category = "canned"
	CategoryDryGoods   Category = "dry_goods"
	CategoryBeverages  Category = "beverages"
	CategorySnacks     Category = "snacks"
	CategoryCondiments Category = "condiments"
	CategorySpices     Category = "spices"
	CategoryOther      Category = "other"
)

// Categories lists every valid category, in the order the keyword fallback
// tries them.
var Categories = []Category{
	CategoryProduce, CategoryDairy, CategoryMeat, CategorySeafood,
	CategoryBakery, CategoryFrozen, CategoryCanned, CategoryDryGoods,
	CategoryBeverages, CategorySnacks, CategoryCondiments, CategorySpices,
	CategoryOther,
}

// ValidCategory reports whether s is a member of the category set
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// InventoryItem is one on-hand unit or batch in a household's pantry
type InventoryItem struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Barcode  *string  `json:"barcode,omitempty"`

	// Quantity never exceeds OriginalQuantity and never goes negative;
	// an item that reaches zero through usage is removed, not kept.
	Quantity         float64 `json:"quantity"`
	Unit             string  `json:"unit"`
	OriginalQuantity float64 `json:"original_quantity"`

	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	OpenedDate     *time.Time `json:"opened_date,omitempty"`

	LocationID *int     `json:"location_id,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	Currency   string   `json:"currency"`

	IsOpened    bool       `json:"is_opened"`
	IsWasted    bool       `json:"is_wasted"`
	WasteReason *string    `json:"waste_reason,omitempty"`
	WastedDate  *time.Time `json:"wasted_date,omitempty"`

	Notes *string `json:"notes,omitempty"`
	Brand *string `json:"brand,omitempty"`
	Store *string `json:"store,omitempty"`

	AddedBy     int  `json:"added_by"`
	ReceiptID   *int `json:"receipt_id,omitempty"`
	HouseholdID int  `json:"household_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInventoryItemRequest is the request body for adding one item
type CreateInventoryItemRequest struct {
	Name           string     `json:"name" validate:"required"`
	Category       Category   `json:"category" validate:"required"`
	Barcode        *string    `json:"barcode,omitempty"`
	Quantity       float64    `json:"quantity" validate:"gt=0"`
	Unit           string     `json:"unit" validate:"required"`
	PurchaseDate   *time.Time `json:"purchase_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	LocationID     *int       `json:"location_id,omitempty"`
	Price          *float64   `json:"price,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
	Store          *string    `json:"store,omitempty"`
	ReceiptID      *int       `json:"receipt_id,omitempty"`
}

// BulkInventoryAddRequest adds several items in one call
type BulkInventoryAddRequest struct {
	Items []CreateInventoryItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateInventoryItemRequest is a partial field patch
type UpdateInventoryItemRequest struct {
	Name           *string    `json:"name,omitempty"`
	Category       *Category  `json:"category,omitempty"`
	Quantity       *float64   `json:"quantity,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	LocationID     *int       `json:"location_id,omitempty"`
	Price          *float64   `json:"price,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
}

// PartialUsageRequest records using part of an item
type PartialUsageRequest struct {
	QuantityUsed float64 `json:"quantity_used" validate:"gt=0"`
}

// WasteRequest marks an item as wasted
type WasteRequest struct {
	WasteReason string `json:"waste_reason" validate:"required"`
}

// InventoryListParams contains parameters for listing inventory
type InventoryListParams struct {
	Limit        int
	Offset       int
	LocationID   *int
	Category     *Category
	Search       string
	ExpiringSoon bool
}
