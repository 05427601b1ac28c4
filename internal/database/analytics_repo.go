package database

import (
	"context"
	"fmt"
	"time"

	"github.com/larderhq/larder/internal/models"
)

// AnalyticsRepository runs the aggregate queries behind the stats endpoints
type AnalyticsRepository struct {
	db *DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// WasteStats aggregates wasted items since the given time
func (r *AnalyticsRepository) WasteStats(ctx context.Context, tenant models.Tenant, since time.Time) (*models.WasteStats, error) {
	stats := &models.WasteStats{
		WasteByCategory: []models.CategoryCount{},
		MostWastedItems: []models.NameCount{},
		WasteReasons:    []models.ReasonCount{},
	}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(price), 0)
		FROM inventory_items
		WHERE household_id = $1 AND is_wasted = TRUE AND wasted_date >= $2`,
		tenant.HouseholdID, since,
	).Scan(&stats.TotalWastedItems, &stats.TotalValueWasted)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate waste totals: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(price), 0)
		FROM inventory_items
		WHERE household_id = $1 AND is_wasted = TRUE AND wasted_date >= $2
		GROUP BY category
		ORDER BY COUNT(*) DESC`,
		tenant.HouseholdID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate waste by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count, &cc.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.WasteByCategory = append(stats.WasteByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT LOWER(name), COUNT(*)
		FROM inventory_items
		WHERE household_id = $1 AND is_wasted = TRUE AND wasted_date >= $2
		GROUP BY LOWER(name)
		ORDER BY COUNT(*) DESC
		LIMIT 10`,
		tenant.HouseholdID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate most wasted items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var nc models.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan name count: %w", err)
		}
		stats.MostWastedItems = append(stats.MostWastedItems, nc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT COALESCE(waste_reason, 'unknown'), COUNT(*)
		FROM inventory_items
		WHERE household_id = $1 AND is_wasted = TRUE AND wasted_date >= $2
		GROUP BY waste_reason
		ORDER BY COUNT(*) DESC`,
		tenant.HouseholdID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate waste reasons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rc models.ReasonCount
		if err := rows.Scan(&rc.Reason, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan reason count: %w", err)
		}
		stats.WasteReasons = append(stats.WasteReasons, rc)
	}
	return stats, rows.Err()
}

// SpendingStats aggregates purchases since the given time
func (r *AnalyticsRepository) SpendingStats(ctx context.Context, tenant models.Tenant, since time.Time) (*models.SpendingStats, error) {
	stats := &models.SpendingStats{
		SpendingByCategory: []models.CategoryCount{},
		SpendingTimeline:   []models.DailySpend{},
	}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM receipts
		WHERE household_id = $1 AND purchase_date >= $2 AND processing_status = 'completed'
			AND is_duplicate = FALSE`,
		tenant.HouseholdID, since,
	).Scan(&stats.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spending total: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(price), 0)
		FROM inventory_items
		WHERE household_id = $1 AND purchase_date >= $2
		GROUP BY category
		ORDER BY SUM(price) DESC NULLS LAST`,
		tenant.HouseholdID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spending by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count, &cc.TotalValue); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.SpendingByCategory = append(stats.SpendingByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT TO_CHAR(purchase_date::date, 'YYYY-MM-DD'), COALESCE(SUM(total_amount), 0)
		FROM receipts
		WHERE household_id = $1 AND purchase_date >= $2 AND processing_status = 'completed'
			AND is_duplicate = FALSE
		GROUP BY purchase_date::date
		ORDER BY purchase_date::date`,
		tenant.HouseholdID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spending timeline: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ds models.DailySpend
		if err := rows.Scan(&ds.Date, &ds.Total); err != nil {
			return nil, fmt.Errorf("failed to scan daily spend: %w", err)
		}
		stats.SpendingTimeline = append(stats.SpendingTimeline, ds)
	}
	return stats, rows.Err()
}

// InventorySummary summarizes the current non-wasted inventory
func (r *AnalyticsRepository) InventorySummary(ctx context.Context, tenant models.Tenant) (*models.InventorySummary, error) {
	summary := &models.InventorySummary{
		ItemsByCategory: []models.CategoryCount{},
	}

	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE expiration_date IS NOT NULL
				AND expiration_date > NOW()
				AND expiration_date <= NOW() + INTERVAL '7 days'),
			COUNT(*) FILTER (WHERE expiration_date IS NOT NULL AND expiration_date <= NOW())
		FROM inventory_items
		WHERE household_id = $1 AND is_wasted = FALSE`,
		tenant.HouseholdID,
	).Scan(&summary.TotalItems, &summary.ExpiringSoon, &summary.Expired)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate inventory summary: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM inventory_items
		WHERE household_id = $1 AND is_wasted = FALSE
		GROUP BY category
		ORDER BY COUNT(*) DESC`,
		tenant.HouseholdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate inventory by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		summary.ItemsByCategory = append(summary.ItemsByCategory, cc)
	}
	return summary, rows.Err()
}
