package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/middleware"
	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/pipeline"
	"github.com/larderhq/larder/internal/util"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// UploadReceipt accepts a receipt image, stores it, creates a pending
// receipt and hands it to the extraction workers. Responds immediately;
// extraction runs in the background.
func (h *Handler) UploadReceipt(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "missing image file")
	}
	if fileHeader.Size > h.cfg.MaxUploadSize {
		return Error(c, fiber.StatusRequestEntityTooLarge, "image exceeds upload size limit")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		return Error(c, fiber.StatusBadRequest, "unsupported image type")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "failed to read image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "failed to read image")
	}

	key, err := h.images.Save(c.Context(), data, contentType)
	if err != nil {
		util.GetLogger().Error("failed to store receipt image", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to store image")
	}

	receipt, err := h.receipts.Create(c.Context(), tenant, key)
	if err != nil {
		util.GetLogger().Error("failed to create receipt", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to create receipt")
	}

	util.ReceiptsUploadedTotal.Inc()

	if !h.pipeline.Enqueue(pipeline.Job{
		ReceiptID:   receipt.ID,
		Tenant:      tenant,
		ImageKey:    key,
		ContentType: contentType,
	}) {
		// Queue full. The receipt stays pending and a later retry can
		// pick it up; the upload itself succeeded.
		util.GetLogger().Warn("receipt queue full", zap.Int("receipt_id", receipt.ID))
	}

	return c.Status(fiber.StatusAccepted).JSON(APIResponse{
		Success: true,
		Data: models.UploadReceiptResponse{
			ReceiptID: receipt.ID,
			Status:    receipt.ProcessingStatus,
		},
	})
}

// ListReceipts returns the household's receipts, newest first
func (h *Handler) ListReceipts(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	limit, offset := pagination(c, 20)

	params := models.ReceiptListParams{Limit: limit, Offset: offset}
	if s := c.Query("status"); s != "" {
		status := models.ReceiptStatus(s)
		params.Status = &status
	}

	receipts, total, err := h.receipts.List(c.Context(), tenant, params)
	if err != nil {
		util.GetLogger().Error("failed to list receipts", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list receipts")
	}
	return SuccessWithMeta(c, receipts, total, limit, offset)
}

// GetReceipt returns one receipt with its extracted line items
func (h *Handler) GetReceipt(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	receipt, err := h.receipts.GetByID(c.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return Error(c, fiber.StatusNotFound, "receipt not found")
		}
		util.GetLogger().Error("failed to get receipt", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to get receipt")
	}
	return Success(c, receipt)
}

// GetReceiptImage streams the stored receipt image
func (h *Handler) GetReceiptImage(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	receipt, err := h.receipts.GetByID(c.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return Error(c, fiber.StatusNotFound, "receipt not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to get receipt")
	}

	reader, err := h.images.Open(c.Context(), receipt.ImageKey)
	if err != nil {
		return Error(c, fiber.StatusNotFound, "receipt image not found")
	}

	c.Set("Content-Type", imageContentType(receipt.ImageKey))
	return c.SendStream(reader)
}

func imageContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".webp"):
		return "image/webp"
	case strings.HasSuffix(key, ".heic"):
		return "image/heic"
	default:
		return "image/jpeg"
	}
}

// RetryReceipt re-enqueues a failed (or never-picked-up pending) receipt
func (h *Handler) RetryReceipt(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	receipt, err := h.receipts.ResetForRetry(c.Context(), tenant, id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrReceiptNotFound):
			return Error(c, fiber.StatusNotFound, "receipt not found")
		case errors.Is(err, database.ErrReceiptNotRetryable):
			return Error(c, fiber.StatusConflict, "receipt is not retryable")
		}
		util.GetLogger().Error("failed to reset receipt", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to retry receipt")
	}

	if !h.pipeline.Enqueue(pipeline.Job{
		ReceiptID:   receipt.ID,
		Tenant:      tenant,
		ImageKey:    receipt.ImageKey,
		ContentType: imageContentType(receipt.ImageKey),
	}) {
		return Error(c, fiber.StatusServiceUnavailable, "extraction queue is full")
	}

	return c.Status(fiber.StatusAccepted).JSON(APIResponse{
		Success: true,
		Data: models.UploadReceiptResponse{
			ReceiptID: receipt.ID,
			Status:    receipt.ProcessingStatus,
		},
	})
}

// UpdateLineItem applies user corrections to one extracted line item
func (h *Handler) UpdateLineItem(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	receiptID, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}
	lineItemID, err := c.ParamsInt("itemId")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid line item id")
	}

	var req models.UpdateLineItemRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}
	if req.Category != nil && !models.ValidCategory(*req.Category) {
		return Error(c, fiber.StatusBadRequest, "invalid category")
	}

	item, err := h.receipts.UpdateLineItem(c.Context(), tenant, receiptID, lineItemID, &req)
	if err != nil {
		if errors.Is(err, database.ErrLineItemNotFound) {
			return Error(c, fiber.StatusNotFound, "line item not found")
		}
		util.GetLogger().Error("failed to update line item", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to update line item")
	}
	return Success(c, item)
}

// ConfirmReceipt materializes selected line items into inventory. A receipt
// confirms at most once; re-confirmation is a conflict.
func (h *Handler) ConfirmReceipt(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	receiptID, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	var req models.ConfirmReceiptRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	added, err := h.pipeline.Confirm(c.Context(), tenant, receiptID, &req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrReceiptNotFound):
			return Error(c, fiber.StatusNotFound, "receipt not found")
		case errors.Is(err, database.ErrReceiptAlreadyConfirmed):
			return Error(c, fiber.StatusConflict, "receipt already confirmed")
		case errors.Is(err, database.ErrReceiptNotCompleted):
			return Error(c, fiber.StatusConflict, "receipt processing not completed")
		case errors.Is(err, database.ErrLineItemNotFound), errors.Is(err, pipeline.ErrConfirmedItemMissing):
			return Error(c, fiber.StatusBadRequest, "confirmed item not on receipt")
		}
		util.GetLogger().Error("failed to confirm receipt", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to confirm receipt")
	}

	return Success(c, models.ConfirmReceiptResponse{ItemsAdded: added})
}

// DeleteReceipt removes a receipt, its line items and its stored image
func (h *Handler) DeleteReceipt(c *fiber.Ctx) error {
	tenant := middleware.GetTenant(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	imageKey, err := h.receipts.Delete(c.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return Error(c, fiber.StatusNotFound, "receipt not found")
		}
		util.GetLogger().Error("failed to delete receipt", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to delete receipt")
	}

	if imageKey != "" {
		if err := h.images.Delete(c.Context(), imageKey); err != nil {
			util.GetLogger().Warn("failed to delete receipt image",
				zap.String("key", imageKey), zap.Error(err))
		}
	}

	return Success(c, fiber.Map{"deleted": true})
}
