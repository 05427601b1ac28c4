package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/larderhq/larder/internal/models"
)

// ErrProductNotFound is returned when a catalog product doesn't exist
var ErrProductNotFound = errors.New("product not found")

// ProductRepository handles product catalog operations
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, category, barcode, brand, default_unit,
	average_shelf_life_days, average_price, last_price, created_at, updated_at`

func scanProduct(row pgx.Row, p *models.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.Brand, &p.DefaultUnit,
		&p.AverageShelfLifeDays, &p.AveragePrice, &p.LastPrice, &p.CreatedAt, &p.UpdatedAt)
}

// Search returns catalog products whose name matches the query
func (r *ProductRepository) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1
		ORDER BY name
		LIMIT $2`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByID retrieves one catalog product
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	p := &models.Product{}
	err := scanProduct(r.db.Pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// GetByBarcode retrieves one catalog product by its barcode
func (r *ProductRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	p := &models.Product{}
	err := scanProduct(r.db.Pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE barcode = $1", barcode), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Candidates returns catalog products sharing at least one word with the
// normalized name, for the matcher to score.
func (r *ProductRepository) Candidates(ctx context.Context, words []string, limit int) ([]models.Product, error) {
	if len(words) == 0 {
		return nil, nil
	}

	where := "WHERE "
	args := make([]interface{}, 0, len(words)+1)
	for i, w := range words {
		if i > 0 {
			where += " OR "
		}
		args = append(args, "%"+w+"%")
		where += fmt.Sprintf("name ILIKE $%d", len(args))
	}
	args = append(args, limit)

	rows, err := r.db.Pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM products %s LIMIT $%d", productColumns, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query product candidates: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// RecordPrice folds an observed price into the product's running average
func (r *ProductRepository) RecordPrice(ctx context.Context, productID int, price float64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE products SET
			last_price = $2,
			average_price = CASE
				WHEN average_price IS NULL THEN $2
				ELSE (average_price * 0.8) + ($2 * 0.2)
			END,
			updated_at = NOW()
		WHERE id = $1`,
		productID, price,
	)
	if err != nil {
		return fmt.Errorf("failed to record price: %w", err)
	}
	return nil
}

// Create inserts a new catalog product
func (r *ProductRepository) Create(ctx context.Context, name string, category models.Category, shelfLifeDays int) (*models.Product, error) {
	p := &models.Product{}
	err := scanProduct(r.db.Pool.QueryRow(ctx, `
		INSERT INTO products (name, category, average_shelf_life_days)
		VALUES ($1, $2, $3)
		RETURNING `+productColumns,
		name, category, shelfLifeDays,
	), p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}
