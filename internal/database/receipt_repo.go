package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/larderhq/larder/internal/models"
)

var (
	// ErrReceiptNotFound is returned when a receipt doesn't exist or belongs
	// to another household.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrLineItemNotFound is returned when a line item doesn't exist on the
	// given receipt.
	ErrLineItemNotFound = errors.New("line item not found")

	// ErrReceiptAlreadyConfirmed is returned when a receipt's line items were
	// already materialized into inventory.
	ErrReceiptAlreadyConfirmed = errors.New("receipt already confirmed")

	// ErrReceiptNotCompleted is returned when a receipt is confirmed before
	// OCR processing finished.
	ErrReceiptNotCompleted = errors.New("receipt processing not completed")

	// ErrReceiptNotRetryable is returned when a retry is requested for a
	// receipt that is processing, completed or already confirmed.
	ErrReceiptNotRetryable = errors.New("receipt is not retryable")
)

// ReceiptRepository handles receipt database operations
type ReceiptRepository struct {
	db *DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

const receiptColumns = `id, household_id, uploaded_by, merchant_name, merchant_address,
	purchase_date, total_amount, tax_amount, currency, receipt_number, payment_method,
	image_key, ocr_provider, processing_time_ms, processing_status, processing_error,
	is_duplicate, duplicate_of_id, items_added, created_at, updated_at`

func scanReceipt(row pgx.Row, r *models.Receipt) error {
	return row.Scan(
		&r.ID, &r.HouseholdID, &r.UploadedByID, &r.MerchantName, &r.MerchantAddress,
		&r.PurchaseDate, &r.TotalAmount, &r.TaxAmount, &r.Currency, &r.ReceiptNumber,
		&r.PaymentMethod, &r.ImageKey, &r.OCRProvider, &r.ProcessingTimeMs,
		&r.ProcessingStatus, &r.ProcessingError, &r.IsDuplicate, &r.DuplicateOfID,
		&r.ItemsAdded, &r.CreatedAt, &r.UpdatedAt,
	)
}

// Create inserts a new pending receipt for an uploaded image
func (r *ReceiptRepository) Create(ctx context.Context, tenant models.Tenant, imageKey string) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	err := scanReceipt(r.db.Pool.QueryRow(ctx, `
		INSERT INTO receipts (household_id, uploaded_by, image_key, processing_status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING `+receiptColumns,
		tenant.HouseholdID, tenant.UserID, imageKey,
	), receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}
	return receipt, nil
}

// GetByID retrieves a receipt with its line items, scoped to the tenant's
// household.
func (r *ReceiptRepository) GetByID(ctx context.Context, tenant models.Tenant, id int) (*models.ReceiptWithLineItems, error) {
	receipt := &models.ReceiptWithLineItems{}
	err := scanReceipt(r.db.Pool.QueryRow(ctx, `
		SELECT `+receiptColumns+` FROM receipts
		WHERE id = $1 AND household_id = $2`,
		id, tenant.HouseholdID,
	), &receipt.Receipt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	items, err := r.getLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	receipt.LineItems = items
	return receipt, nil
}

func (r *ReceiptRepository) getLineItems(ctx context.Context, receiptID int) ([]models.ReceiptLineItem, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, receipt_id, description, quantity, unit_price, total_price,
			matched_product_id, confidence_score, user_corrected_name, category, created_at
		FROM receipt_line_items
		WHERE receipt_id = $1
		ORDER BY id`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	items := []models.ReceiptLineItem{}
	for rows.Next() {
		var li models.ReceiptLineItem
		if err := rows.Scan(&li.ID, &li.ReceiptID, &li.Description, &li.Quantity,
			&li.UnitPrice, &li.TotalPrice, &li.MatchedProductID, &li.ConfidenceScore,
			&li.UserCorrectedName, &li.Category, &li.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// List returns the household's receipts, newest first
func (r *ReceiptRepository) List(ctx context.Context, tenant models.Tenant, params models.ReceiptListParams) ([]models.Receipt, int, error) {
	where := "WHERE household_id = $1"
	args := []interface{}{tenant.HouseholdID}

	if params.Status != nil {
		args = append(args, *params.Status)
		where += fmt.Sprintf(" AND processing_status = $%d", len(args))
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM receipts "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM receipts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		receiptColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var rec models.Receipt
		if err := scanReceipt(rows, &rec); err != nil {
			return nil, 0, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, rec)
	}
	return receipts, total, rows.Err()
}

// MarkProcessing moves a pending receipt to processing. Returns false when the
// receipt was not in pending state, so a redelivered job is a no-op.
func (r *ReceiptRepository) MarkProcessing(ctx context.Context, receiptID int) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE receipts SET processing_status = 'processing', updated_at = NOW()
		WHERE id = $1 AND processing_status = 'pending'`,
		receiptID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark receipt processing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ResetForRetry returns a failed (or still-pending) receipt to the pending
// state so it can be enqueued again. Receipts that are processing, completed
// or already confirmed are not retryable.
func (r *ReceiptRepository) ResetForRetry(ctx context.Context, tenant models.Tenant, id int) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	err := scanReceipt(r.db.Pool.QueryRow(ctx, `
		UPDATE receipts SET processing_status = 'pending', processing_error = NULL, updated_at = NOW()
		WHERE id = $1 AND household_id = $2 AND processing_status IN ('pending', 'failed')
		RETURNING `+receiptColumns,
		id, tenant.HouseholdID,
	), receipt)
	if err == nil {
		return receipt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to reset receipt: %w", err)
	}

	// Distinguish a missing receipt from one in a non-retryable state
	if _, err := r.GetByID(ctx, tenant, id); err != nil {
		return nil, err
	}
	return nil, ErrReceiptNotRetryable
}

// CompleteProcessing stores the extraction results and line items in one
// transaction and moves the receipt to completed. matches is positional
// against extraction.LineItems; a shorter (or nil) slice leaves the rest
// unmatched.
func (r *ReceiptRepository) CompleteProcessing(ctx context.Context, receiptID int, extraction *models.CanonicalReceipt, matches []models.LineItemMatch, provider string, rawResponse json.RawMessage, elapsedMs int, duplicateOfID *int) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var merchantName, merchantAddress, receiptNumber *string
	if extraction.MerchantName != "" {
		merchantName = &extraction.MerchantName
	}
	if extraction.MerchantAddress != "" {
		merchantAddress = &extraction.MerchantAddress
	}
	if extraction.ReceiptNumber != "" {
		receiptNumber = &extraction.ReceiptNumber
	}
	var totalAmount, taxAmount *float64
	if extraction.TotalAmount > 0 {
		totalAmount = &extraction.TotalAmount
	}
	if extraction.TaxAmount > 0 {
		taxAmount = &extraction.TaxAmount
	}

	_, err = tx.Exec(ctx, `
		UPDATE receipts SET
			merchant_name = $2, merchant_address = $3, purchase_date = $4,
			total_amount = $5, tax_amount = $6, receipt_number = $7,
			ocr_provider = $8, ocr_raw_response = $9, processing_time_ms = $10,
			is_duplicate = $11, duplicate_of_id = $12,
			processing_status = 'completed', processing_error = NULL, updated_at = NOW()
		WHERE id = $1`,
		receiptID, merchantName, merchantAddress, extraction.PurchaseDate,
		totalAmount, taxAmount, receiptNumber, provider, rawResponse, elapsedMs,
		duplicateOfID != nil, duplicateOfID,
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}

	for i, li := range extraction.LineItems {
		var match models.LineItemMatch
		if i < len(matches) {
			match = matches[i]
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO receipt_line_items (receipt_id, description, quantity, unit_price, total_price,
				matched_product_id, confidence_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			receiptID, li.Description, li.Quantity, li.UnitPrice, li.TotalPrice,
			match.ProductID, match.Confidence,
		)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// FailProcessing records an extraction failure on the receipt
func (r *ReceiptRepository) FailProcessing(ctx context.Context, receiptID int, processingError string) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE receipts SET processing_status = 'failed', processing_error = $2, updated_at = NOW()
		WHERE id = $1`,
		receiptID, processingError,
	)
	if err != nil {
		return fmt.Errorf("failed to mark receipt failed: %w", err)
	}
	return nil
}

// ListForDuplicateCheck returns the household's recent completed receipts'
// identifying fields, excluding the given receipt.
func (r *ReceiptRepository) ListForDuplicateCheck(ctx context.Context, householdID, excludeReceiptID int) ([]models.Receipt, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, merchant_name, purchase_date, total_amount
		FROM receipts
		WHERE household_id = $1 AND id != $2 AND processing_status = 'completed'
		ORDER BY created_at DESC
		LIMIT 200`,
		householdID, excludeReceiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate candidates: %w", err)
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var rec models.Receipt
		if err := rows.Scan(&rec.ID, &rec.MerchantName, &rec.PurchaseDate, &rec.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate candidate: %w", err)
		}
		receipts = append(receipts, rec)
	}
	return receipts, rows.Err()
}

// UpdateLineItem applies user corrections to one line item before confirmation
func (r *ReceiptRepository) UpdateLineItem(ctx context.Context, tenant models.Tenant, receiptID, lineItemID int, req *models.UpdateLineItemRequest) (*models.ReceiptLineItem, error) {
	li := &models.ReceiptLineItem{}
	err := r.db.Pool.QueryRow(ctx, `
		UPDATE receipt_line_items li SET
			user_corrected_name = COALESCE($4, li.user_corrected_name),
			category = COALESCE($5, li.category)
		FROM receipts rec
		WHERE li.id = $1 AND li.receipt_id = $2
			AND rec.id = li.receipt_id AND rec.household_id = $3
		RETURNING li.id, li.receipt_id, li.description, li.quantity, li.unit_price,
			li.total_price, li.matched_product_id, li.confidence_score,
			li.user_corrected_name, li.category, li.created_at`,
		lineItemID, receiptID, tenant.HouseholdID, req.UserCorrectedName, req.Category,
	).Scan(&li.ID, &li.ReceiptID, &li.Description, &li.Quantity, &li.UnitPrice,
		&li.TotalPrice, &li.MatchedProductID, &li.ConfidenceScore,
		&li.UserCorrectedName, &li.Category, &li.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineItemNotFound
		}
		return nil, fmt.Errorf("failed to update line item: %w", err)
	}
	return li, nil
}

// MaterializeReceipt claims the receipt's items_added flag and inserts the
// prepared inventory items plus a bulk action log entry in a single
// transaction. The conditional UPDATE makes confirmation at-most-once: a
// second confirm, concurrent or later, claims zero rows and gets
// ErrReceiptAlreadyConfirmed.
func (r *ReceiptRepository) MaterializeReceipt(ctx context.Context, tenant models.Tenant, receiptID int, items []models.InventoryItem) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.ReceiptStatus
	var itemsAdded bool
	err = tx.QueryRow(ctx, `
		SELECT processing_status, items_added FROM receipts
		WHERE id = $1 AND household_id = $2`,
		receiptID, tenant.HouseholdID,
	).Scan(&status, &itemsAdded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrReceiptNotFound
		}
		return 0, fmt.Errorf("failed to check receipt: %w", err)
	}
	if itemsAdded {
		return 0, ErrReceiptAlreadyConfirmed
	}
	if status != models.ReceiptStatusCompleted {
		return 0, ErrReceiptNotCompleted
	}

	tag, err := tx.Exec(ctx, `
		UPDATE receipts SET items_added = TRUE, updated_at = NOW()
		WHERE id = $1 AND household_id = $2 AND items_added = FALSE`,
		receiptID, tenant.HouseholdID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to claim receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrReceiptAlreadyConfirmed
	}

	snapshots := make([]models.ItemSnapshot, 0, len(items))
	for i := range items {
		item := &items[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO inventory_items (
				household_id, added_by, receipt_id, location_id, name, category,
				quantity, unit, original_quantity, purchase_date, expiration_date,
				price, currency, brand, store
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $7, $9, $10, $11, $12, $13, $14)
			RETURNING id, created_at, updated_at`,
			tenant.HouseholdID, tenant.UserID, receiptID, item.LocationID,
			item.Name, item.Category, item.Quantity, item.Unit,
			item.PurchaseDate, item.ExpirationDate, item.Price, item.Currency,
			item.Brand, item.Store,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert inventory item: %w", err)
		}
		item.HouseholdID = tenant.HouseholdID
		item.AddedBy = tenant.UserID
		item.OriginalQuantity = item.Quantity
		snapshots = append(snapshots, models.ItemSnapshot{
			Name:           item.Name,
			Category:       item.Category,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			ExpirationDate: item.ExpirationDate,
			LocationID:     item.LocationID,
			Price:          item.Price,
		})
	}

	newState := (&models.ActionSnapshot{Batch: snapshots}).Encode()
	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, new_state)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant.HouseholdID, tenant.UserID, models.ActionBulkAddItems, models.EntityReceipt, receiptID, newState,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit materialization: %w", err)
	}
	return len(items), nil
}

// Delete removes a receipt and its line items, keeping a snapshot in the
// action log. Inventory rows created from the receipt survive with a null
// receipt reference.
func (r *ReceiptRepository) Delete(ctx context.Context, tenant models.Tenant, id int) (string, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	snap := models.ReceiptSnapshot{}
	err = tx.QueryRow(ctx, `
		SELECT merchant_name, purchase_date, total_amount, image_key FROM receipts
		WHERE id = $1 AND household_id = $2`,
		id, tenant.HouseholdID,
	).Scan(&snap.MerchantName, &snap.PurchaseDate, &snap.TotalAmount, &snap.ImageKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrReceiptNotFound
		}
		return "", fmt.Errorf("failed to load receipt: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM receipts WHERE id = $1", id); err != nil {
		return "", fmt.Errorf("failed to delete receipt: %w", err)
	}

	oldState := (&models.ActionSnapshot{Receipt: &snap}).Encode()
	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, old_state)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant.HouseholdID, tenant.UserID, models.ActionDeleteReceipt, models.EntityReceipt, id, oldState,
	)
	if err != nil {
		return "", fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit delete: %w", err)
	}
	return snap.ImageKey, nil
}
