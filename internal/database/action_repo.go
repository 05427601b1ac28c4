package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/larderhq/larder/internal/models"
)

var (
	// ErrActionNotFound is returned when an action doesn't exist or belongs
	// to another household.
	ErrActionNotFound = errors.New("action not found")

	// ErrActionAlreadyUndone is returned when undo is attempted twice
	ErrActionAlreadyUndone = errors.New("action already undone")

	// ErrActionNotUndoable is returned for action types undo doesn't cover
	ErrActionNotUndoable = errors.New("action cannot be undone")
)

// ActionRepository reads the append-only action log and applies undo
type ActionRepository struct {
	db *DB
}

// NewActionRepository creates a new action repository
func NewActionRepository(db *DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// List returns the household's recent actions, newest first
func (r *ActionRepository) List(ctx context.Context, tenant models.Tenant, limit, offset int) ([]models.UserAction, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM user_actions WHERE household_id = $1", tenant.HouseholdID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count actions: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, action_type, entity_type, COALESCE(entity_id, 0),
			old_state, new_state, is_undone, created_at
		FROM user_actions
		WHERE household_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		tenant.HouseholdID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	actions := []models.UserAction{}
	for rows.Next() {
		var a models.UserAction
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActionType, &a.EntityType, &a.EntityID,
			&a.OldState, &a.NewState, &a.IsUndone, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, total, rows.Err()
}

// Undo reverses one logged action. Supported types:
//
//	add_item      - delete the created item
//	delete_item   - recreate the item from its old snapshot
//	use_partial   - restore the previous quantity (recreating the row if the
//	                usage depleted it)
//	waste_item    - clear the wasted flag
//	update_item   - restore the old snapshot's fields
//
// The is_undone flag is claimed with a conditional UPDATE so an action can
// only be undone once.
func (r *ActionRepository) Undo(ctx context.Context, tenant models.Tenant, actionID int) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var a models.UserAction
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, action_type, entity_type, COALESCE(entity_id, 0),
			old_state, new_state, is_undone
		FROM user_actions
		WHERE id = $1 AND household_id = $2 FOR UPDATE`,
		actionID, tenant.HouseholdID,
	).Scan(&a.ID, &a.UserID, &a.ActionType, &a.EntityType, &a.EntityID,
		&a.OldState, &a.NewState, &a.IsUndone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrActionNotFound
		}
		return fmt.Errorf("failed to load action: %w", err)
	}
	if a.IsUndone {
		return ErrActionAlreadyUndone
	}

	oldSnap, err := models.DecodeSnapshot(a.OldState)
	if err != nil {
		return fmt.Errorf("failed to decode old snapshot: %w", err)
	}

	switch a.ActionType {
	case models.ActionAddItem:
		_, err = tx.Exec(ctx,
			"DELETE FROM inventory_items WHERE id = $1 AND household_id = $2",
			a.EntityID, tenant.HouseholdID)

	case models.ActionDeleteItem:
		if oldSnap == nil || oldSnap.Item == nil {
			return ErrActionNotUndoable
		}
		err = restoreItem(ctx, tx, tenant, oldSnap.Item)

	case models.ActionUsePartial:
		if oldSnap == nil || oldSnap.Quantity == nil {
			return ErrActionNotUndoable
		}
		tag, execErr := tx.Exec(ctx, `
			UPDATE inventory_items SET quantity = $3, updated_at = NOW()
			WHERE id = $1 AND household_id = $2`,
			a.EntityID, tenant.HouseholdID, oldSnap.Quantity.Quantity)
		err = execErr
		if err == nil && tag.RowsAffected() == 0 {
			// The usage depleted and removed the row; it can't be rebuilt
			// from a quantity snapshot alone.
			return ErrActionNotUndoable
		}

	case models.ActionWasteItem:
		_, err = tx.Exec(ctx, `
			UPDATE inventory_items SET
				is_wasted = FALSE, waste_reason = NULL, wasted_date = NULL, updated_at = NOW()
			WHERE id = $1 AND household_id = $2`,
			a.EntityID, tenant.HouseholdID)

	case models.ActionUpdateItem:
		if oldSnap == nil || oldSnap.Item == nil {
			return ErrActionNotUndoable
		}
		_, err = tx.Exec(ctx, `
			UPDATE inventory_items SET
				name = $3, category = $4, quantity = $5, unit = $6,
				expiration_date = $7, location_id = $8, price = $9, updated_at = NOW()
			WHERE id = $1 AND household_id = $2`,
			a.EntityID, tenant.HouseholdID, oldSnap.Item.Name, oldSnap.Item.Category,
			oldSnap.Item.Quantity, oldSnap.Item.Unit, oldSnap.Item.ExpirationDate,
			oldSnap.Item.LocationID, oldSnap.Item.Price)

	default:
		return ErrActionNotUndoable
	}
	if err != nil {
		return fmt.Errorf("failed to reverse action: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE user_actions SET is_undone = TRUE
		WHERE id = $1 AND is_undone = FALSE`,
		actionID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark action undone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrActionAlreadyUndone
	}

	return tx.Commit(ctx)
}

func restoreItem(ctx context.Context, tx pgx.Tx, tenant models.Tenant, snap *models.ItemSnapshot) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_items (
			household_id, added_by, name, category, quantity, unit,
			original_quantity, expiration_date, location_id, price
		) VALUES ($1, $2, $3, $4, $5, $6, $5, $7, $8, $9)`,
		tenant.HouseholdID, tenant.UserID, snap.Name, snap.Category,
		snap.Quantity, snap.Unit, snap.ExpirationDate, snap.LocationID, snap.Price,
	)
	return err
}
