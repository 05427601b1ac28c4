package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/util"
)

// SearchProducts searches the product catalog by name
func (h *Handler) SearchProducts(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return Error(c, fiber.StatusBadRequest, "missing query parameter q")
	}
	limit, _ := pagination(c, 20)

	products, err := h.products.Search(c.Context(), query, limit)
	if err != nil {
		util.GetLogger().Error("failed to search products", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to search products")
	}
	return Success(c, products)
}

// GetProduct returns one catalog product
func (h *Handler) GetProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	product, err := h.products.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		util.GetLogger().Error("failed to get product", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to get product")
	}
	return Success(c, product)
}

// LookupBarcode returns the catalog product for a scanned barcode
func (h *Handler) LookupBarcode(c *fiber.Ctx) error {
	barcode := c.Params("barcode")
	if barcode == "" {
		return Error(c, fiber.StatusBadRequest, "missing barcode")
	}

	product, err := h.products.GetByBarcode(c.Context(), barcode)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return Error(c, fiber.StatusNotFound, "product not found")
		}
		util.GetLogger().Error("failed to look up barcode", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to look up barcode")
	}
	return Success(c, product)
}

// MatchProduct scores catalog candidates for a free-text description
func (h *Handler) MatchProduct(c *fiber.Ctx) error {
	description := c.Query("q")
	if description == "" {
		return Error(c, fiber.StatusBadRequest, "missing query parameter q")
	}

	matches, err := h.matcher.Matches(c.Context(), description, 5)
	if err != nil {
		util.GetLogger().Error("failed to match product", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to match product")
	}
	return Success(c, matches)
}
