package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/config"
	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/handlers"
	"github.com/larderhq/larder/internal/middleware"
	"github.com/larderhq/larder/internal/ocr"
	"github.com/larderhq/larder/internal/pipeline"
	"github.com/larderhq/larder/internal/services"
	"github.com/larderhq/larder/internal/util"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	// Connect to database and run migrations
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// OCR provider is mandatory and explicit; a misconfigured selection
	// stops the process here rather than failing per-receipt later.
	provider, err := ocr.New(cfg)
	if err != nil {
		logger.Fatal("failed to initialize OCR provider", zap.Error(err))
	}
	logger.Info("ocr provider initialized", zap.String("provider", provider.Name()))

	images, err := services.NewImageStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize image storage", zap.Error(err))
	}

	classifier, err := services.NewClassifier(cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Fatal("failed to initialize classifier", zap.Error(err))
	}
	defer classifier.Close()

	planner, err := services.NewMealPlanner(cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Fatal("failed to initialize meal planner", zap.Error(err))
	}
	defer planner.Close()

	// Receipt processing pipeline
	receipts := database.NewReceiptRepository(db)
	products := database.NewProductRepository(db)
	matcher := services.NewItemMatcher(products)
	loadImage := func(ctx context.Context, key string) ([]byte, error) {
		r, err := images.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}

	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	pl := pipeline.New(provider, receipts, loadImage, classifier, matcher, products, cfg.OCRTimeout, 64)
	pl.Start(pipelineCtx, 2)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    int(cfg.MaxUploadSize) + 1024*1024,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	h := handlers.New(db, cfg, pl, images, planner)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.AuthRequired(cfg))

	// Receipt routes
	receiptRoutes := api.Group("/receipts")
	receiptRoutes.Post("/upload", h.UploadReceipt)
	receiptRoutes.Get("/", h.ListReceipts)
	receiptRoutes.Get("/:id", h.GetReceipt)
	receiptRoutes.Get("/:id/image", h.GetReceiptImage)
	receiptRoutes.Put("/:id/items/:itemId", h.UpdateLineItem)
	receiptRoutes.Post("/:id/confirm", h.ConfirmReceipt)
	receiptRoutes.Post("/:id/retry", h.RetryReceipt)
	receiptRoutes.Delete("/:id", h.DeleteReceipt)

	// Inventory routes
	inventory := api.Group("/inventory")
	inventory.Get("/", h.ListInventory)
	inventory.Post("/", h.CreateInventoryItem)
	inventory.Post("/bulk", h.BulkCreateInventory)
	inventory.Get("/:id", h.GetInventoryItem)
	inventory.Put("/:id", h.UpdateInventoryItem)
	inventory.Post("/:id/use", h.UseInventoryItem)
	inventory.Post("/:id/waste", h.WasteInventoryItem)
	inventory.Delete("/:id", h.DeleteInventoryItem)

	// Action log routes
	actions := api.Group("/actions")
	actions.Get("/", h.ListActions)
	actions.Post("/:id/undo", h.UndoAction)

	// Product catalog routes
	products := api.Group("/products")
	products.Get("/search", h.SearchProducts)
	products.Get("/match", h.MatchProduct)
	products.Get("/barcode/:barcode", h.LookupBarcode)
	products.Get("/:id", h.GetProduct)

	// Shopping list routes
	lists := api.Group("/lists")
	lists.Get("/", h.ListShoppingLists)
	lists.Post("/", h.CreateShoppingList)
	lists.Get("/:id", h.GetShoppingList)
	lists.Delete("/:id", h.DeleteShoppingList)
	lists.Post("/:id/items", h.AddShoppingItem)
	lists.Post("/:id/items/:itemId/toggle", h.ToggleShoppingItem)
	lists.Delete("/:id/items/:itemId", h.DeleteShoppingItem)
	lists.Post("/:id/complete", h.CompleteShoppingList)

	// Meal routes
	meals := api.Group("/meals")
	meals.Get("/recipes", h.ListRecipes)
	meals.Get("/plans", h.ListMealPlans)
	meals.Post("/plans", h.CreateMealPlan)
	meals.Delete("/plans/:id", h.DeleteMealPlan)
	meals.Post("/suggestions", h.SuggestMeals)
	meals.Get("/suggestions/latest", h.LatestMealSuggestions)

	// Analytics routes
	analytics := api.Group("/analytics")
	analytics.Get("/waste", h.WasteStats)
	analytics.Get("/spending", h.SpendingStats)
	analytics.Get("/inventory", h.InventorySummary)

	// Graceful shutdown: stop accepting requests, then drain the pipeline
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	stopPipeline()
	pl.Stop()
}
