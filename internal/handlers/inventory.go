package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/middleware"
	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/util"
)

// ListInventory returns the household's non-wasted items with filters
func (h *Handler) ListInventory(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	limit, offset := pagination(c, 50)

	params := models.InventoryListParams{
		Limit:        limit,
		Offset:       offset,
		Search:       c.Query("search"),
		ExpiringSoon: c.QueryBool("expiring_soon", false),
	}
	if cat := c.Query("category"); cat != "" {
		if !models.ValidCategory(cat) {
			return Error(c, fiber.StatusBadRequest, "invalid category")
		}
		category := models.Category(cat)
		params.Category = &category
	}
	if locationID := c.QueryInt("location_id", 0); locationID > 0 {
		params.LocationID = &locationID
	}

	items, total, err := h.inventory.List(c.Context(), tenant, params)
	if err != nil {
		util.GetLogger().Error("failed to list inventory", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list inventory")
	}
	return SuccessWithMeta(c, items, total, limit, offset)
}

// GetInventoryItem returns one item
func (h *Handler) GetInventoryItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	item, err := h.inventory.GetByID(c.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return Error(c, fiber.StatusNotFound, "item not found")
		}
		util.GetLogger().Error("failed to get inventory item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to get item")
	}
	return Success(c, item)
}

// CreateInventoryItem adds one item manually
func (h *Handler) CreateInventoryItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	var req models.CreateInventoryItemRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	if !models.ValidCategory(string(req.Category)) {
		return Error(c, fiber.StatusBadRequest, "invalid category")
	}

	item, err := h.inventory.Create(c.Context(), tenant, &req)
	if err != nil {
		util.GetLogger().Error("failed to create inventory item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to create item")
	}

	util.InventoryItemsAddedTotal.Inc()
	return c.Status(fiber.StatusCreated).JSON(APIResponse{Success: true, Data: item})
}

// BulkCreateInventory adds several items in one call
func (h *Handler) BulkCreateInventory(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	var req models.BulkInventoryAddRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	for _, it := range req.Items {
		if !models.ValidCategory(string(it.Category)) {
			return Error(c, fiber.StatusBadRequest, "invalid category")
		}
	}

	items, err := h.inventory.BulkCreate(c.Context(), tenant, req.Items)
	if err != nil {
		util.GetLogger().Error("failed to bulk create inventory", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to create items")
	}

	util.InventoryItemsAddedTotal.Add(float64(len(items)))
	return c.Status(fiber.StatusCreated).JSON(APIResponse{Success: true, Data: items})
}

// UpdateInventoryItem applies a partial patch to one item
func (h *Handler) UpdateInventoryItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	var req models.UpdateInventoryItemRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	if req.Category != nil && !models.ValidCategory(string(*req.Category)) {
		return Error(c, fiber.StatusBadRequest, "invalid category")
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return Error(c, fiber.StatusBadRequest, "quantity must be positive")
	}

	item, err := h.inventory.Update(c.Context(), tenant, id, &req)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return Error(c, fiber.StatusNotFound, "item not found")
		}
		util.GetLogger().Error("failed to update inventory item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to update item")
	}
	return Success(c, item)
}

// UseInventoryItem records partial usage. Using the full remainder removes
// the item.
func (h *Handler) UseInventoryItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	var req models.PartialUsageRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	remaining, deleted, err := h.inventory.UsePartial(c.Context(), tenant, id, req.QuantityUsed)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrItemNotFound):
			return Error(c, fiber.StatusNotFound, "item not found")
		case errors.Is(err, database.ErrItemWasted):
			return Error(c, fiber.StatusBadRequest, "item is marked as wasted")
		case errors.Is(err, database.ErrInsufficientQuantity):
			return Error(c, fiber.StatusBadRequest, "quantity used exceeds remaining quantity")
		}
		util.GetLogger().Error("failed to record usage", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to record usage")
	}

	return Success(c, fiber.Map{
		"remaining_quantity": remaining,
		"deleted":            deleted,
	})
}

// WasteInventoryItem flags an item as wasted, keeping it for analytics
func (h *Handler) WasteInventoryItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	var req models.WasteRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.inventory.Waste(c.Context(), tenant, id, req.WasteReason)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrItemNotFound):
			return Error(c, fiber.StatusNotFound, "item not found")
		case errors.Is(err, database.ErrItemWasted):
			return Error(c, fiber.StatusConflict, "item already marked as wasted")
		}
		util.GetLogger().Error("failed to mark item wasted", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to mark item wasted")
	}

	util.InventoryItemsWastedTotal.Inc()
	return Success(c, item)
}

// DeleteInventoryItem removes an item outright
func (h *Handler) DeleteInventoryItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	if err := h.inventory.Delete(c.Context(), tenant, id); err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return Error(c, fiber.StatusNotFound, "item not found")
		}
		util.GetLogger().Error("failed to delete inventory item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to delete item")
	}
	return Success(c, fiber.Map{"deleted": true})
}

// ListActions returns the household's action history
func (h *Handler) ListActions(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	limit, offset := pagination(c, 50)

	actions, total, err := h.actions.List(c.Context(), tenant, limit, offset)
	if err != nil {
		util.GetLogger().Error("failed to list actions", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list actions")
	}
	return SuccessWithMeta(c, actions, total, limit, offset)
}

// UndoAction reverses one logged action
func (h *Handler) UndoAction(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid action id")
	}

	if err := h.actions.Undo(c.Context(), tenant, id); err != nil {
		switch {
		case errors.Is(err, database.ErrActionNotFound):
			return Error(c, fiber.StatusNotFound, "action not found")
		case errors.Is(err, database.ErrActionAlreadyUndone):
			return Error(c, fiber.StatusConflict, "action already undone")
		case errors.Is(err, database.ErrActionNotUndoable):
			return Error(c, fiber.StatusBadRequest, "action cannot be undone")
		}
		util.GetLogger().Error("failed to undo action", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to undo action")
	}
	return Success(c, fiber.Map{"undone": true})
}
