package models

import (
	"encoding/json"
	"time"
)

// ActionType identifies a mutating operation recorded in the action log
type ActionType string

const (
	ActionAddItem       ActionType = "add_item"
	ActionBulkAddItems  ActionType = "bulk_add_items"
	ActionUpdateItem    ActionType = "update_item"
	ActionUsePartial    ActionType = "use_partial"
	ActionWasteItem     ActionType = "waste_item"
	ActionDeleteItem    ActionType = "delete_item"
	ActionDeleteReceipt ActionType = "delete_receipt"
)

// EntityType identifies what kind of entity an action touched
type EntityType string

const (
	EntityInventoryItem EntityType = "inventory_item"
	EntityReceipt       EntityType = "receipt"
)

// UserAction is one row of the append-only audit/undo log. Only IsUndone is
// ever mutated after insert.
type UserAction struct {
	ID         int             `json:"id"`
	UserID     int             `json:"user_id"`
	ActionType ActionType      `json:"action_type"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   int             `json:"entity_id"`
	OldState   json.RawMessage `json:"old_state,omitempty"`
	NewState   json.RawMessage `json:"new_state,omitempty"`
	IsUndone   bool            `json:"is_undone"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActionSnapshot is a tagged union of typed before/after states. Exactly one
// field is set per snapshot; the whole struct is what gets serialized into
// the old_state/new_state columns.
type ActionSnapshot struct {
	Item     *ItemSnapshot     `json:"item,omitempty"`
	Quantity *QuantitySnapshot `json:"quantity,omitempty"`
	Batch    []ItemSnapshot    `json:"batch,omitempty"`
	Receipt  *ReceiptSnapshot  `json:"receipt,omitempty"`
}

// ItemSnapshot captures the undo-relevant fields of an inventory item
type ItemSnapshot struct {
	Name           string     `json:"name"`
	Category       Category   `json:"category"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	LocationID     *int       `json:"location_id,omitempty"`
	Price          *float64   `json:"price,omitempty"`
}

// QuantitySnapshot captures a quantity change from partial usage
type QuantitySnapshot struct {
	Quantity float64 `json:"quantity"`
	Used     float64 `json:"used,omitempty"`
}

// ReceiptSnapshot captures the identifying fields of a deleted receipt
type ReceiptSnapshot struct {
	MerchantName *string    `json:"merchant_name,omitempty"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	TotalAmount  *float64   `json:"total_amount,omitempty"`
	ImageKey     string     `json:"image_key"`
}

// Encode serializes a snapshot for storage. A nil snapshot encodes to nil.
func (s *ActionSnapshot) Encode() json.RawMessage {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}

// DecodeSnapshot parses a stored snapshot; nil input yields nil.
func DecodeSnapshot(raw json.RawMessage) (*ActionSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s ActionSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ItemSnapshotOf builds a snapshot from an inventory item
func ItemSnapshotOf(item *InventoryItem) *ActionSnapshot {
	return &ActionSnapshot{Item: &ItemSnapshot{
		Name:           item.Name,
		Category:       item.Category,
		Quantity:       item.Quantity,
		Unit:           item.Unit,
		ExpirationDate: item.ExpirationDate,
		LocationID:     item.LocationID,
		Price:          item.Price,
	}}
}
