package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/larderhq/larder/internal/models"
)

var (
	// ErrRecipeNotFound is returned when a recipe doesn't exist or is
	// private to another household.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrMealPlanNotFound is returned when a meal plan doesn't exist or
	// belongs to another household.
	ErrMealPlanNotFound = errors.New("meal plan not found")
)

// MealRepository handles recipes, meal plans and stored AI suggestions
type MealRepository struct {
	db *DB
}

// NewMealRepository creates a new meal repository
func NewMealRepository(db *DB) *MealRepository {
	return &MealRepository{db: db}
}

// ListRecipes returns global recipes plus the household's own
func (r *MealRepository) ListRecipes(ctx context.Context, tenant models.Tenant) ([]models.Recipe, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, household_id, name, description, meal_type, prep_minutes, servings, created_at
		FROM recipes
		WHERE household_id IS NULL OR household_id = $1
		ORDER BY name`,
		tenant.HouseholdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []models.Recipe{}
	for rows.Next() {
		var rec models.Recipe
		if err := rows.Scan(&rec.ID, &rec.HouseholdID, &rec.Name, &rec.Description,
			&rec.MealType, &rec.PrepMinutes, &rec.Servings, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

// CreateMealPlan schedules a recipe for the household
func (r *MealRepository) CreateMealPlan(ctx context.Context, tenant models.Tenant, req *models.CreateMealPlanRequest) (*models.MealPlan, error) {
	var visible bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM recipes
			WHERE id = $1 AND (household_id IS NULL OR household_id = $2)
		)`,
		req.RecipeID, tenant.HouseholdID,
	).Scan(&visible)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipe: %w", err)
	}
	if !visible {
		return nil, ErrRecipeNotFound
	}

	servings := req.Servings
	if servings <= 0 {
		servings = 2
	}

	mp := &models.MealPlan{}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO meal_plans (household_id, created_by, recipe_id, planned_date, meal_type, servings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, household_id, created_by, recipe_id, planned_date, meal_type, servings, created_at`,
		tenant.HouseholdID, tenant.UserID, req.RecipeID, req.PlannedDate, req.MealType, servings,
	).Scan(&mp.ID, &mp.HouseholdID, &mp.CreatedByID, &mp.RecipeID, &mp.PlannedDate,
		&mp.MealType, &mp.Servings, &mp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}
	return mp, nil
}

// ListMealPlans returns the household's plans within a date window
func (r *MealRepository) ListMealPlans(ctx context.Context, tenant models.Tenant, from, to time.Time) ([]models.MealPlan, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT mp.id, mp.household_id, mp.created_by, mp.recipe_id, rec.name,
			mp.planned_date, mp.meal_type, mp.servings, mp.created_at
		FROM meal_plans mp
		JOIN recipes rec ON rec.id = mp.recipe_id
		WHERE mp.household_id = $1 AND mp.planned_date BETWEEN $2 AND $3
		ORDER BY mp.planned_date, mp.meal_type`,
		tenant.HouseholdID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	plans := []models.MealPlan{}
	for rows.Next() {
		var mp models.MealPlan
		if err := rows.Scan(&mp.ID, &mp.HouseholdID, &mp.CreatedByID, &mp.RecipeID,
			&mp.RecipeName, &mp.PlannedDate, &mp.MealType, &mp.Servings, &mp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		plans = append(plans, mp)
	}
	return plans, rows.Err()
}

// DeleteMealPlan removes one plan
func (r *MealRepository) DeleteMealPlan(ctx context.Context, tenant models.Tenant, id int) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM meal_plans WHERE id = $1 AND household_id = $2",
		id, tenant.HouseholdID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMealPlanNotFound
	}
	return nil
}

// SaveSuggestions stores one generated suggestion set with the inventory it
// was generated from.
func (r *MealRepository) SaveSuggestions(ctx context.Context, tenant models.Tenant, suggestions []models.MealSuggestion, inventory []models.InventoryItem, provider string) (*models.MealSuggestionRecord, error) {
	suggJSON, err := json.Marshal(suggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal suggestions: %w", err)
	}
	snapJSON, err := json.Marshal(inventory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inventory snapshot: %w", err)
	}

	rec := &models.MealSuggestionRecord{}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO meal_suggestions (household_id, user_id, suggestions, inventory_snapshot, ai_provider)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, household_id, user_id, suggestions, inventory_snapshot, ai_provider, created_at`,
		tenant.HouseholdID, tenant.UserID, suggJSON, snapJSON, provider,
	).Scan(&rec.ID, &rec.HouseholdID, &rec.UserID, &rec.Suggestions,
		&rec.InventorySnapshot, &rec.AIProvider, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save suggestions: %w", err)
	}
	return rec, nil
}

// LatestSuggestions returns the household's most recent suggestion set
func (r *MealRepository) LatestSuggestions(ctx context.Context, tenant models.Tenant) (*models.MealSuggestionRecord, error) {
	rec := &models.MealSuggestionRecord{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, household_id, user_id, suggestions, inventory_snapshot, ai_provider, created_at
		FROM meal_suggestions
		WHERE household_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		tenant.HouseholdID,
	).Scan(&rec.ID, &rec.HouseholdID, &rec.UserID, &rec.Suggestions,
		&rec.InventorySnapshot, &rec.AIProvider, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}
	return rec, nil
}
