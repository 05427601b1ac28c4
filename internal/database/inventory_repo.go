package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/services"
)

var (
	// ErrItemNotFound is returned when an inventory item doesn't exist or
	// belongs to another household.
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrItemWasted is returned when usage is recorded against an item
	// already marked wasted.
	ErrItemWasted = errors.New("item already marked as wasted")

	// ErrInsufficientQuantity is returned when more is used than remains
	ErrInsufficientQuantity = errors.New("quantity used exceeds remaining quantity")
)

// InventoryRepository handles inventory database operations
type InventoryRepository struct {
	db *DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventoryColumns = `id, household_id, added_by, receipt_id, location_id, name, category,
	barcode, quantity, unit, original_quantity, purchase_date, expiration_date, opened_date,
	price, currency, is_opened, is_wasted, waste_reason, wasted_date, notes, brand, store,
	created_at, updated_at`

func scanItem(row pgx.Row, it *models.InventoryItem) error {
	return row.Scan(
		&it.ID, &it.HouseholdID, &it.AddedBy, &it.ReceiptID, &it.LocationID, &it.Name,
		&it.Category, &it.Barcode, &it.Quantity, &it.Unit, &it.OriginalQuantity,
		&it.PurchaseDate, &it.ExpirationDate, &it.OpenedDate, &it.Price, &it.Currency,
		&it.IsOpened, &it.IsWasted, &it.WasteReason, &it.WastedDate, &it.Notes,
		&it.Brand, &it.Store, &it.CreatedAt, &it.UpdatedAt,
	)
}

// List returns the household's inventory with optional filters
func (r *InventoryRepository) List(ctx context.Context, tenant models.Tenant, params models.InventoryListParams) ([]models.InventoryItem, int, error) {
	where := "WHERE household_id = $1 AND is_wasted = FALSE"
	args := []interface{}{tenant.HouseholdID}

	if params.LocationID != nil {
		args = append(args, *params.LocationID)
		where += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	if params.Category != nil {
		args = append(args, *params.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR brand ILIKE $%d)", len(args), len(args))
	}
	if params.ExpiringSoon {
		where += " AND expiration_date IS NOT NULL AND expiration_date <= NOW() + INTERVAL '7 days'"
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM inventory_items "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM inventory_items %s ORDER BY expiration_date ASC NULLS LAST, id LIMIT $%d OFFSET $%d",
		inventoryColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var it models.InventoryItem
		if err := scanItem(rows, &it); err != nil {
			return nil, 0, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// GetByID retrieves one inventory item scoped to the tenant's household
func (r *InventoryRepository) GetByID(ctx context.Context, tenant models.Tenant, id int) (*models.InventoryItem, error) {
	it := &models.InventoryItem{}
	err := scanItem(r.db.Pool.QueryRow(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE id = $1 AND household_id = $2`,
		id, tenant.HouseholdID,
	), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return it, nil
}

// Create inserts one manually-added item and logs an add action
func (r *InventoryRepository) Create(ctx context.Context, tenant models.Tenant, req *models.CreateInventoryItemRequest) (*models.InventoryItem, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	it, err := insertItem(ctx, tx, tenant, req)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, new_state)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant.HouseholdID, tenant.UserID, models.ActionAddItem, models.EntityInventoryItem,
		it.ID, models.ItemSnapshotOf(it).Encode(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return it, nil
}

// BulkCreate inserts several items and logs one batch action
func (r *InventoryRepository) BulkCreate(ctx context.Context, tenant models.Tenant, reqs []models.CreateInventoryItemRequest) ([]models.InventoryItem, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	items := make([]models.InventoryItem, 0, len(reqs))
	snapshots := make([]models.ItemSnapshot, 0, len(reqs))
	for i := range reqs {
		it, err := insertItem(ctx, tx, tenant, &reqs[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
		snapshots = append(snapshots, *models.ItemSnapshotOf(it).Item)
	}

	newState := (&models.ActionSnapshot{Batch: snapshots}).Encode()
	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, new_state)
		VALUES ($1, $2, $3, $4, $5)`,
		tenant.HouseholdID, tenant.UserID, models.ActionBulkAddItems, models.EntityInventoryItem, newState,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return items, nil
}

func insertItem(ctx context.Context, tx pgx.Tx, tenant models.Tenant, req *models.CreateInventoryItemRequest) (*models.InventoryItem, error) {
	it := &models.InventoryItem{}
	err := scanItem(tx.QueryRow(ctx, `
		INSERT INTO inventory_items (
			household_id, added_by, receipt_id, location_id, name, category, barcode,
			quantity, unit, original_quantity, purchase_date, expiration_date, price,
			notes, brand, store
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $8, $10, $11, $12, $13, $14, $15)
		RETURNING `+inventoryColumns,
		tenant.HouseholdID, tenant.UserID, req.ReceiptID, req.LocationID, req.Name,
		req.Category, req.Barcode, req.Quantity, req.Unit, req.PurchaseDate,
		req.ExpirationDate, req.Price, req.Notes, req.Brand, req.Store,
	), it)
	if err != nil {
		return nil, fmt.Errorf("failed to insert inventory item: %w", err)
	}
	return it, nil
}

// Update applies a partial field patch and logs before/after snapshots
func (r *InventoryRepository) Update(ctx context.Context, tenant models.Tenant, id int, req *models.UpdateInventoryItemRequest) (*models.InventoryItem, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	before := &models.InventoryItem{}
	err = scanItem(tx.QueryRow(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE id = $1 AND household_id = $2 FOR UPDATE`,
		id, tenant.HouseholdID,
	), before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}

	after := &models.InventoryItem{}
	err = scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items SET
			name = COALESCE($3, name),
			category = COALESCE($4, category),
			quantity = COALESCE($5, quantity),
			unit = COALESCE($6, unit),
			expiration_date = COALESCE($7, expiration_date),
			location_id = COALESCE($8, location_id),
			price = COALESCE($9, price),
			notes = COALESCE($10, notes),
			brand = COALESCE($11, brand),
			updated_at = NOW()
		WHERE id = $1 AND household_id = $2
		RETURNING `+inventoryColumns,
		id, tenant.HouseholdID, req.Name, req.Category, req.Quantity, req.Unit,
		req.ExpirationDate, req.LocationID, req.Price, req.Notes, req.Brand,
	), after)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, old_state, new_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tenant.HouseholdID, tenant.UserID, models.ActionUpdateItem, models.EntityInventoryItem,
		id, models.ItemSnapshotOf(before).Encode(), models.ItemSnapshotOf(after).Encode(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return after, nil
}

// UsePartial consumes part of an item's remaining quantity. The first use
// marks the item opened; a use that lands exactly on zero removes the row.
// The remaining quantity after the call is returned along with whether the
// row was deleted.
func (r *InventoryRepository) UsePartial(ctx context.Context, tenant models.Tenant, id int, quantityUsed float64) (float64, bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var quantity float64
	var isWasted, isOpened bool
	err = tx.QueryRow(ctx, `
		SELECT quantity, is_wasted, is_opened FROM inventory_items
		WHERE id = $1 AND household_id = $2 FOR UPDATE`,
		id, tenant.HouseholdID,
	).Scan(&quantity, &isWasted, &isOpened)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, ErrItemNotFound
		}
		return 0, false, fmt.Errorf("failed to load inventory item: %w", err)
	}
	remaining, deleted, err := services.ReduceQuantity(quantity, quantityUsed, isWasted)
	if err != nil {
		if errors.Is(err, services.ErrWastedItem) {
			return 0, false, ErrItemWasted
		}
		return 0, false, ErrInsufficientQuantity
	}

	if deleted {
		if _, err := tx.Exec(ctx, "DELETE FROM inventory_items WHERE id = $1", id); err != nil {
			return 0, false, fmt.Errorf("failed to delete depleted item: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE inventory_items SET
				quantity = $2,
				is_opened = TRUE,
				opened_date = COALESCE(opened_date, NOW()),
				updated_at = NOW()
			WHERE id = $1`,
			id, remaining,
		)
		if err != nil {
			return 0, false, fmt.Errorf("failed to update quantity: %w", err)
		}
	}

	oldState := (&models.ActionSnapshot{Quantity: &models.QuantitySnapshot{Quantity: quantity}}).Encode()
	newState := (&models.ActionSnapshot{Quantity: &models.QuantitySnapshot{Quantity: remaining, Used: quantityUsed}}).Encode()
	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, old_state, new_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tenant.HouseholdID, tenant.UserID, models.ActionUsePartial, models.EntityInventoryItem,
		id, oldState, newState,
	)
	if err != nil {
		return 0, false, fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("failed to commit: %w", err)
	}
	return remaining, deleted, nil
}

// Waste flags an item as wasted, keeping the row for analytics
func (r *InventoryRepository) Waste(ctx context.Context, tenant models.Tenant, id int, reason string) (*models.InventoryItem, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	before := &models.InventoryItem{}
	err = scanItem(tx.QueryRow(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE id = $1 AND household_id = $2 FOR UPDATE`,
		id, tenant.HouseholdID,
	), before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load inventory item: %w", err)
	}
	if before.IsWasted {
		return nil, ErrItemWasted
	}

	after := &models.InventoryItem{}
	err = scanItem(tx.QueryRow(ctx, `
		UPDATE inventory_items SET
			is_wasted = TRUE, waste_reason = $3, wasted_date = NOW(), updated_at = NOW()
		WHERE id = $1 AND household_id = $2
		RETURNING `+inventoryColumns,
		id, tenant.HouseholdID, reason,
	), after)
	if err != nil {
		return nil, fmt.Errorf("failed to mark item wasted: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, old_state, new_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tenant.HouseholdID, tenant.UserID, models.ActionWasteItem, models.EntityInventoryItem,
		id, models.ItemSnapshotOf(before).Encode(), models.ItemSnapshotOf(after).Encode(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to log action: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return after, nil
}

// Delete removes an item outright, keeping its snapshot in the action log
func (r *InventoryRepository) Delete(ctx context.Context, tenant models.Tenant, id int) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	before := &models.InventoryItem{}
	err = scanItem(tx.QueryRow(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE id = $1 AND household_id = $2 FOR UPDATE`,
		id, tenant.HouseholdID,
	), before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("failed to load inventory item: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM inventory_items WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_actions (household_id, user_id, action_type, entity_type, entity_id, old_state)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tenant.HouseholdID, tenant.UserID, models.ActionDeleteItem, models.EntityInventoryItem,
		id, models.ItemSnapshotOf(before).Encode(),
	)
	if err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}

	return tx.Commit(ctx)
}

// ListForMealSuggestions returns non-wasted items ordered by expiration so
// the soonest-expiring ingredients lead the prompt.
func (r *InventoryRepository) ListForMealSuggestions(ctx context.Context, tenant models.Tenant, limit int) ([]models.InventoryItem, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE household_id = $1 AND is_wasted = FALSE AND quantity > 0
		ORDER BY expiration_date ASC NULLS LAST
		LIMIT $2`,
		tenant.HouseholdID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var it models.InventoryItem
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ExpiringBefore returns non-wasted items expiring before the cutoff
func (r *InventoryRepository) ExpiringBefore(ctx context.Context, tenant models.Tenant, cutoff time.Time) ([]models.InventoryItem, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+inventoryColumns+` FROM inventory_items
		WHERE household_id = $1 AND is_wasted = FALSE
			AND expiration_date IS NOT NULL AND expiration_date <= $2
		ORDER BY expiration_date ASC`,
		tenant.HouseholdID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring items: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		var it models.InventoryItem
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
