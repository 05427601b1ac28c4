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

// CreateShoppingList creates a new active list
func (h *Handler) CreateShoppingList(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	var req models.CreateShoppingListRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	list, err := h.shopping.Create(c.Context(), tenant, &req)
	if err != nil {
		util.GetLogger().Error("failed to create shopping list", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to create shopping list")
	}
	return c.Status(fiber.StatusCreated).JSON(APIResponse{Success: true, Data: list})
}

// ListShoppingLists returns the household's lists
func (h *Handler) ListShoppingLists(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	var status *models.ShoppingListStatus
	if s := c.Query("status"); s != "" {
		st := models.ShoppingListStatus(s)
		status = &st
	}

	lists, err := h.shopping.List(c.Context(), tenant, status)
	if err != nil {
		util.GetLogger().Error("failed to list shopping lists", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list shopping lists")
	}
	return Success(c, lists)
}

// GetShoppingList returns one list with its items
func (h *Handler) GetShoppingList(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	list, err := h.shopping.GetByID(c.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, database.ErrShoppingListNotFound) {
			return Error(c, fiber.StatusNotFound, "shopping list not found")
		}
		util.GetLogger().Error("failed to get shopping list", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to get shopping list")
	}
	return Success(c, list)
}

// AddShoppingItem appends one item to a list
func (h *Handler) AddShoppingItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	listID, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	var req models.AddShoppingItemRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	if req.Category != nil && !models.ValidCategory(string(*req.Category)) {
		return Error(c, fiber.StatusBadRequest, "invalid category")
	}

	item, err := h.shopping.AddItem(c.Context(), tenant, listID, &req)
	if err != nil {
		if errors.Is(err, database.ErrShoppingListNotFound) {
			return Error(c, fiber.StatusNotFound, "shopping list not found")
		}
		util.GetLogger().Error("failed to add shopping item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to add shopping item")
	}
	return c.Status(fiber.StatusCreated).JSON(APIResponse{Success: true, Data: item})
}

// ToggleShoppingItem flips an item's purchased flag
func (h *Handler) ToggleShoppingItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	listID, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid list id")
	}
	itemID, err := c.ParamsInt("itemId")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	item, err := h.shopping.TogglePurchased(c.Context(), tenant, listID, itemID)
	if err != nil {
		if errors.Is(err, database.ErrShoppingItemNotFound) {
			return Error(c, fiber.StatusNotFound, "shopping list item not found")
		}
		util.GetLogger().Error("failed to toggle shopping item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to toggle shopping item")
	}
	return Success(c, item)
}

// DeleteShoppingItem removes one item from a list
func (h *Handler) DeleteShoppingItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	listID, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid list id")
	}
	itemID, err := c.ParamsInt("itemId")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	if err := h.shopping.DeleteItem(c.Context(), tenant, listID, itemID); err != nil {
		if errors.Is(err, database.ErrShoppingItemNotFound) {
			return Error(c, fiber.StatusNotFound, "shopping list item not found")
		}
		util.GetLogger().Error("failed to delete shopping item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to delete shopping item")
	}
	return Success(c, fiber.Map{"deleted": true})
}

// CompleteShoppingList closes a list and carries unpurchased staples into a
// fresh list.
func (h *Handler) CompleteShoppingList(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	next, err := h.shopping.Complete(c.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, database.ErrShoppingListNotFound) {
			return Error(c, fiber.StatusNotFound, "shopping list not found")
		}
		util.GetLogger().Error("failed to complete shopping list", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to complete shopping list")
	}

	return Success(c, fiber.Map{
		"completed":  true,
		"carry_over": next,
	})
}

// DeleteShoppingList removes a list and its items
func (h *Handler) DeleteShoppingList(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid list id")
	}

	if err := h.shopping.Delete(c.Context(), tenant, id); err != nil {
		if errors.Is(err, database.ErrShoppingListNotFound) {
			return Error(c, fiber.StatusNotFound, "shopping list not found")
		}
		util.GetLogger().Error("failed to delete shopping list", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to delete shopping list")
	}
	return Success(c, fiber.Map{"deleted": true})
}
