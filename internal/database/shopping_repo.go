package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/larderhq/larder/internal/models"
)

var (
	// ErrShoppingListNotFound is returned when a list doesn't exist or
	// belongs to another household.
	ErrShoppingListNotFound = errors.New("shopping list not found")

	// ErrShoppingItemNotFound is returned when a list item doesn't exist
	ErrShoppingItemNotFound = errors.New("shopping list item not found")
)

// ShoppingRepository handles shopping list operations
type ShoppingRepository struct {
	db *DB
}

// NewShoppingRepository creates a new shopping repository
func NewShoppingRepository(db *DB) *ShoppingRepository {
	return &ShoppingRepository{db: db}
}

const listColumns = `id, household_id, created_by, name, store, status, created_at, updated_at, completed_at`

func scanList(row pgx.Row, l *models.ShoppingList) error {
	return row.Scan(&l.ID, &l.HouseholdID, &l.CreatedByID, &l.Name, &l.Store,
		&l.Status, &l.CreatedAt, &l.UpdatedAt, &l.CompletedAt)
}

const shoppingItemColumns = `id, shopping_list_id, name, quantity, unit, category, aisle,
	estimated_price, is_purchased, purchased_at, is_staple, notes, created_at, updated_at`

func scanShoppingItem(row pgx.Row, it *models.ShoppingListItem) error {
	return row.Scan(&it.ID, &it.ShoppingListID, &it.Name, &it.Quantity, &it.Unit,
		&it.Category, &it.Aisle, &it.EstimatedPrice, &it.IsPurchased, &it.PurchasedAt,
		&it.IsStaple, &it.Notes, &it.CreatedAt, &it.UpdatedAt)
}

// Create inserts a new active shopping list
func (r *ShoppingRepository) Create(ctx context.Context, tenant models.Tenant, req *models.CreateShoppingListRequest) (*models.ShoppingList, error) {
	l := &models.ShoppingList{}
	err := scanList(r.db.Pool.QueryRow(ctx, `
		INSERT INTO shopping_lists (household_id, created_by, name, store)
		VALUES ($1, $2, $3, $4)
		RETURNING `+listColumns,
		tenant.HouseholdID, tenant.UserID, req.Name, req.Store,
	), l)
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping list: %w", err)
	}
	return l, nil
}

// List returns the household's shopping lists, optionally filtered by status
func (r *ShoppingRepository) List(ctx context.Context, tenant models.Tenant, status *models.ShoppingListStatus) ([]models.ShoppingList, error) {
	where := "WHERE household_id = $1"
	args := []interface{}{tenant.HouseholdID}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+listColumns+" FROM shopping_lists "+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	defer rows.Close()

	lists := []models.ShoppingList{}
	for rows.Next() {
		var l models.ShoppingList
		if err := scanList(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan shopping list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// GetByID retrieves a shopping list with its items
func (r *ShoppingRepository) GetByID(ctx context.Context, tenant models.Tenant, id int) (*models.ShoppingListWithItems, error) {
	l := &models.ShoppingListWithItems{}
	err := scanList(r.db.Pool.QueryRow(ctx, `
		SELECT `+listColumns+` FROM shopping_lists
		WHERE id = $1 AND household_id = $2`,
		id, tenant.HouseholdID,
	), &l.ShoppingList)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShoppingListNotFound
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+shoppingItemColumns+` FROM shopping_list_items
		WHERE shopping_list_id = $1
		ORDER BY is_purchased, aisle NULLS LAST, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list items: %w", err)
	}
	defer rows.Close()

	l.Items = []models.ShoppingListItem{}
	for rows.Next() {
		var it models.ShoppingListItem
		if err := scanShoppingItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan shopping list item: %w", err)
		}
		l.Items = append(l.Items, it)
	}
	return l, rows.Err()
}

// AddItem appends one item to a list
func (r *ShoppingRepository) AddItem(ctx context.Context, tenant models.Tenant, listID int, req *models.AddShoppingItemRequest) (*models.ShoppingListItem, error) {
	if err := r.assertListOwned(ctx, tenant, listID); err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	it := &models.ShoppingListItem{}
	err := scanShoppingItem(r.db.Pool.QueryRow(ctx, `
		INSERT INTO shopping_list_items (shopping_list_id, name, quantity, unit, category, is_staple)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+shoppingItemColumns,
		listID, req.Name, quantity, req.Unit, req.Category, req.IsStaple,
	), it)
	if err != nil {
		return nil, fmt.Errorf("failed to add shopping list item: %w", err)
	}
	return it, nil
}

// TogglePurchased flips an item's purchased flag
func (r *ShoppingRepository) TogglePurchased(ctx context.Context, tenant models.Tenant, listID, itemID int) (*models.ShoppingListItem, error) {
	it := &models.ShoppingListItem{}
	err := scanShoppingItem(r.db.Pool.QueryRow(ctx, `
		UPDATE shopping_list_items it SET
			is_purchased = NOT it.is_purchased,
			purchased_at = CASE WHEN it.is_purchased THEN NULL ELSE NOW() END,
			updated_at = NOW()
		FROM shopping_lists l
		WHERE it.id = $1 AND it.shopping_list_id = $2
			AND l.id = it.shopping_list_id AND l.household_id = $3
		RETURNING it.id, it.shopping_list_id, it.name, it.quantity, it.unit, it.category,
			it.aisle, it.estimated_price, it.is_purchased, it.purchased_at, it.is_staple,
			it.notes, it.created_at, it.updated_at`,
		itemID, listID, tenant.HouseholdID,
	), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShoppingItemNotFound
		}
		return nil, fmt.Errorf("failed to toggle item: %w", err)
	}
	return it, nil
}

// DeleteItem removes one item from a list
func (r *ShoppingRepository) DeleteItem(ctx context.Context, tenant models.Tenant, listID, itemID int) error {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM shopping_list_items it
		USING shopping_lists l
		WHERE it.id = $1 AND it.shopping_list_id = $2
			AND l.id = it.shopping_list_id AND l.household_id = $3`,
		itemID, listID, tenant.HouseholdID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShoppingItemNotFound
	}
	return nil
}

// Complete moves a list to completed and rolls unpurchased staples into a new
// active list so recurring purchases carry forward. Returns the follow-up
// list when one was created.
func (r *ShoppingRepository) Complete(ctx context.Context, tenant models.Tenant, listID int) (*models.ShoppingList, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var name string
	err = tx.QueryRow(ctx, `
		UPDATE shopping_lists SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND household_id = $2 AND status = 'active'
		RETURNING name`,
		listID, tenant.HouseholdID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShoppingListNotFound
		}
		return nil, fmt.Errorf("failed to complete shopping list: %w", err)
	}

	var carryCount int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM shopping_list_items
		WHERE shopping_list_id = $1 AND is_staple = TRUE AND is_purchased = FALSE`,
		listID,
	).Scan(&carryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count staples: %w", err)
	}

	var next *models.ShoppingList
	if carryCount > 0 {
		next = &models.ShoppingList{}
		err = scanList(tx.QueryRow(ctx, `
			INSERT INTO shopping_lists (household_id, created_by, name)
			VALUES ($1, $2, $3)
			RETURNING `+listColumns,
			tenant.HouseholdID, tenant.UserID, name+" (staples)",
		), next)
		if err != nil {
			return nil, fmt.Errorf("failed to create carry-over list: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO shopping_list_items (shopping_list_id, name, quantity, unit, category, aisle, estimated_price, is_staple, notes)
			SELECT $2, name, quantity, unit, category, aisle, estimated_price, TRUE, notes
			FROM shopping_list_items
			WHERE shopping_list_id = $1 AND is_staple = TRUE AND is_purchased = FALSE`,
			listID, next.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to carry over staples: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return next, nil
}

// Delete removes a list and its items
func (r *ShoppingRepository) Delete(ctx context.Context, tenant models.Tenant, id int) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM shopping_lists WHERE id = $1 AND household_id = $2",
		id, tenant.HouseholdID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrShoppingListNotFound
	}
	return nil
}

func (r *ShoppingRepository) assertListOwned(ctx context.Context, tenant models.Tenant, listID int) error {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM shopping_lists WHERE id = $1 AND household_id = $2)",
		listID, tenant.HouseholdID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check shopping list: %w", err)
	}
	if !exists {
		return ErrShoppingListNotFound
	}
	return nil
}
