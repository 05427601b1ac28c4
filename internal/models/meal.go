package models

import (
	"encoding/json"
	"time"
)

// Recipe is a dish the household can plan; household-less rows are global
type Recipe struct {
	ID          int       `json:"id"`
	HouseholdID *int      `json:"household_id,omitempty"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	MealType    *string   `json:"meal_type,omitempty"`
	PrepMinutes *int      `json:"prep_minutes,omitempty"`
	Servings    *int      `json:"servings,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MealPlan schedules a recipe on a date
type MealPlan struct {
	ID          int       `json:"id"`
	HouseholdID int       `json:"household_id"`
	CreatedByID int       `json:"created_by_id"`
	RecipeID    int       `json:"recipe_id"`
	RecipeName  *string   `json:"recipe_name,omitempty"`
	PlannedDate time.Time `json:"planned_date"`
	MealType    string    `json:"meal_type"`
	Servings    int       `json:"servings"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateMealPlanRequest schedules a recipe
type CreateMealPlanRequest struct {
	RecipeID    int       `json:"recipe_id" validate:"required"`
	PlannedDate time.Time `json:"planned_date" validate:"required"`
	MealType    string    `json:"meal_type" validate:"required"`
	Servings    int       `json:"servings"`
}

// MealSuggestion is one AI-generated meal idea
type MealSuggestion struct {
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	InventoryIngredients  []string `json:"inventory_ingredients"`
	AdditionalIngredients []string `json:"additional_ingredients,omitempty"`
	PrepTime              string   `json:"prep_time,omitempty"`
	Difficulty            string   `json:"difficulty,omitempty"`
}

// MealSuggestionRecord stores a generated suggestion set for analytics
type MealSuggestionRecord struct {
	ID                int             `json:"id"`
	HouseholdID       int             `json:"household_id"`
	UserID            int             `json:"user_id"`
	Suggestions       json.RawMessage `json:"suggestions"`
	InventorySnapshot json.RawMessage `json:"inventory_snapshot,omitempty"`
	AIProvider        string          `json:"ai_provider"`
	CreatedAt         time.Time       `json:"created_at"`
}
