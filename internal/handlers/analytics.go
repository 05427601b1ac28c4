package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/middleware"
	"github.com/larderhq/larder/internal/util"
)

func sinceParam(c *fiber.Ctx, defaultDays int) time.Time {
	days := c.QueryInt("days", defaultDays)
	if days <= 0 || days > 365 {
		days = defaultDays
	}
	return time.Now().AddDate(0, 0, -days)
}

// WasteStats aggregates wasted items over a window (default 30 days)
func (h *Handler) WasteStats(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	stats, err := h.analytics.WasteStats(c.Context(), tenant, sinceParam(c, 30))
	if err != nil {
		util.GetLogger().Error("failed to aggregate waste stats", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to aggregate waste stats")
	}
	return Success(c, stats)
}

// SpendingStats aggregates purchases over a window (default 30 days)
func (h *Handler) SpendingStats(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	stats, err := h.analytics.SpendingStats(c.Context(), tenant, sinceParam(c, 30))
	if err != nil {
		util.GetLogger().Error("failed to aggregate spending stats", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to aggregate spending stats")
	}
	return Success(c, stats)
}

// InventorySummary summarizes the current non-wasted inventory
func (h *Handler) InventorySummary(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	summary, err := h.analytics.InventorySummary(c.Context(), tenant)
	if err != nil {
		util.GetLogger().Error("failed to aggregate inventory summary", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to aggregate inventory summary")
	}
	return Success(c, summary)
}
