package models

import (
	"time"
)

// ShoppingListStatus is the lifecycle state of a shopping list
type ShoppingListStatus string

const (
	ShoppingListActive    ShoppingListStatus = "active"
	ShoppingListCompleted ShoppingListStatus = "completed"
	ShoppingListArchived  ShoppingListStatus = "archived"
)

// ShoppingList groups items to buy, scoped to a household
type ShoppingList struct {
	ID          int                `json:"id"`
	HouseholdID int                `json:"household_id"`
	CreatedByID int                `json:"created_by_id"`
	Name        string             `json:"name"`
	Store       *string            `json:"store,omitempty"`
	Status      ShoppingListStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// ShoppingListWithItems includes the list's items
type ShoppingListWithItems struct {
	ShoppingList
	Items []ShoppingListItem `json:"items"`
}

// ShoppingListItem is one row on a shopping list. Staples are flagged for
// recurring purchase.
type ShoppingListItem struct {
	ID             int        `json:"id"`
	ShoppingListID int        `json:"shopping_list_id"`
	Name           string     `json:"name"`
	Quantity       float64    `json:"quantity"`
	Unit           *string    `json:"unit,omitempty"`
	Category       *Category  `json:"category,omitempty"`
	Aisle          *string    `json:"aisle,omitempty"`
	EstimatedPrice *float64   `json:"estimated_price,omitempty"`
	IsPurchased    bool       `json:"is_purchased"`
	PurchasedAt    *time.Time `json:"purchased_at,omitempty"`
	IsStaple       bool       `json:"is_staple"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CreateShoppingListRequest creates a new list
type CreateShoppingListRequest struct {
	Name  string  `json:"name" validate:"required"`
	Store *string `json:"store,omitempty"`
}

// AddShoppingItemRequest adds one item to a list
type AddShoppingItemRequest struct {
	Name     string    `json:"name" validate:"required"`
	Quantity float64   `json:"quantity"`
	Unit     *string   `json:"unit,omitempty"`
	Category *Category `json:"category,omitempty"`
	IsStaple bool      `json:"is_staple"`
}
