package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/middleware"
	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/services"
	"github.com/larderhq/larder/internal/util"
)

// ListRecipes returns global recipes plus the household's own
func (h *Handler) ListRecipes(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	recipes, err := h.meals.ListRecipes(c.Context(), tenant)
	if err != nil {
		util.GetLogger().Error("failed to list recipes", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list recipes")
	}
	return Success(c, recipes)
}

// CreateMealPlan schedules a recipe on a date
func (h *Handler) CreateMealPlan(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	var req models.CreateMealPlanRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	plan, err := h.meals.CreateMealPlan(c.Context(), tenant, &req)
	if err != nil {
		if errors.Is(err, database.ErrRecipeNotFound) {
			return Error(c, fiber.StatusNotFound, "recipe not found")
		}
		util.GetLogger().Error("failed to create meal plan", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to create meal plan")
	}
	return c.Status(fiber.StatusCreated).JSON(APIResponse{Success: true, Data: plan})
}

// ListMealPlans returns plans within a date window, defaulting to the coming
// week.
func (h *Handler) ListMealPlans(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	from := time.Now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)
	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Error(c, fiber.StatusBadRequest, "invalid from date")
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Error(c, fiber.StatusBadRequest, "invalid to date")
		}
		to = t
	}

	plans, err := h.meals.ListMealPlans(c.Context(), tenant, from, to)
	if err != nil {
		util.GetLogger().Error("failed to list meal plans", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list meal plans")
	}
	return Success(c, plans)
}

// DeleteMealPlan removes one plan
func (h *Handler) DeleteMealPlan(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid meal plan id")
	}

	if err := h.meals.DeleteMealPlan(c.Context(), tenant, id); err != nil {
		if errors.Is(err, database.ErrMealPlanNotFound) {
			return Error(c, fiber.StatusNotFound, "meal plan not found")
		}
		util.GetLogger().Error("failed to delete meal plan", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to delete meal plan")
	}
	return Success(c, fiber.Map{"deleted": true})
}

// SuggestMeals generates meal ideas from the current inventory and stores
// the result.
func (h *Handler) SuggestMeals(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	if !h.planner.Available() {
		return Error(c, fiber.StatusServiceUnavailable, "meal suggestions are not configured")
	}

	count := c.QueryInt("count", 3)
	items, err := h.inventory.ListForMealSuggestions(c.Context(), tenant, 50)
	if err != nil {
		util.GetLogger().Error("failed to load inventory for suggestions", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to load inventory")
	}
	if len(items) == 0 {
		return Error(c, fiber.StatusBadRequest, "inventory is empty")
	}

	suggestions, err := h.planner.Suggest(c.Context(), items, count)
	if err != nil {
		if errors.Is(err, services.ErrNoAIProvider) {
			return Error(c, fiber.StatusServiceUnavailable, "meal suggestions are not configured")
		}
		util.GetLogger().Error("failed to generate suggestions", zap.Error(err))
		return Error(c, fiber.StatusBadGateway, "failed to generate suggestions")
	}

	record, err := h.meals.SaveSuggestions(c.Context(), tenant, suggestions, items, "gemini")
	if err != nil {
		util.GetLogger().Warn("failed to save suggestions", zap.Error(err))
	}

	return Success(c, fiber.Map{
		"suggestions": suggestions,
		"record":      record,
	})
}

// LatestMealSuggestions returns the household's most recent suggestion set
func (h *Handler) LatestMealSuggestions(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	record, err := h.meals.LatestSuggestions(c.Context(), tenant)
	if err != nil {
		util.GetLogger().Error("failed to load suggestions", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to load suggestions")
	}
	if record == nil {
		return Error(c, fiber.StatusNotFound, "no suggestions yet")
	}
	return Success(c, record)
}
