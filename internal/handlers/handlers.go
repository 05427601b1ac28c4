package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/larderhq/larder/internal/config"
	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/pipeline"
	"github.com/larderhq/larder/internal/services"
)

// Handler holds all handler dependencies
type Handler struct {
	cfg       *config.Config
	receipts  *database.ReceiptRepository
	inventory *database.InventoryRepository
	actions   *database.ActionRepository
	products  *database.ProductRepository
	shopping  *database.ShoppingRepository
	meals     *database.MealRepository
	analytics *database.AnalyticsRepository

	pipeline *pipeline.Pipeline
	images   services.ImageStore
	matcher  *services.ItemMatcher
	planner  *services.MealPlanner

	validate *validator.Validate
}

// New creates a new Handler instance
func New(db *database.DB, cfg *config.Config, pl *pipeline.Pipeline, images services.ImageStore, planner *services.MealPlanner) *Handler {
	products := database.NewProductRepository(db)
	return &Handler{
		cfg:       cfg,
		receipts:  database.NewReceiptRepository(db),
		inventory: database.NewInventoryRepository(db),
		actions:   database.NewActionRepository(db),
		products:  products,
		shopping:  database.NewShoppingRepository(db),
		meals:     database.NewMealRepository(db),
		analytics: database.NewAnalyticsRepository(db),
		pipeline:  pl,
		images:    images,
		matcher:   services.NewItemMatcher(products),
		planner:   planner,
		validate:  validator.New(),
	}
}

// ErrorHandler is a custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// APIResponse is a standard API response structure
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta returns a successful response with pagination
func SuccessWithMeta(c *fiber.Ctx, data interface{}, total, limit, offset int) error {
	return c.JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// Error returns an error response
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Error:   message,
	})
}

// parseBody binds and validates a JSON request body
func (h *Handler) parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// pagination reads limit/offset query params with sane bounds
func pagination(c *fiber.Ctx, defaultLimit int) (limit, offset int) {
	limit = c.QueryInt("limit", defaultLimit)
	if limit <= 0 || limit > 200 {
		limit = defaultLimit
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
