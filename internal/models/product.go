package models

import (
	"time"
)

// Product is a reference catalog entry used for line-item matching and
// autocomplete. Updated by aggregate statistics, not by end users.
type Product struct {
	ID                   int      `json:"id"`
	Name                 string   `json:"name"`
	Category             Category `json:"category"`
	Barcode              *string  `json:"barcode,omitempty"`
	Brand                *string  `json:"brand,omitempty"`
	DefaultUnit          *string  `json:"default_unit,omitempty"`
	AverageShelfLifeDays *int     `json:"average_shelf_life_days,omitempty"`

	AveragePrice *float64 `json:"average_price,omitempty"`
	LastPrice    *float64 `json:"last_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductMatch is one catalog candidate for an extracted line item
type ProductMatch struct {
	ProductID  int     `json:"product_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}
