package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/ocr"
	"github.com/larderhq/larder/internal/services"
	"github.com/larderhq/larder/internal/util"
)

// ReceiptStore is the slice of receipt persistence the pipeline needs
type ReceiptStore interface {
	MarkProcessing(ctx context.Context, receiptID int) (bool, error)
	CompleteProcessing(ctx context.Context, receiptID int, extraction *models.CanonicalReceipt, matches []models.LineItemMatch, provider string, rawResponse json.RawMessage, elapsedMs int, duplicateOfID *int) error
	FailProcessing(ctx context.Context, receiptID int, processingError string) error
	ListForDuplicateCheck(ctx context.Context, householdID, excludeReceiptID int) ([]models.Receipt, error)
	GetByID(ctx context.Context, tenant models.Tenant, id int) (*models.ReceiptWithLineItems, error)
	UpdateLineItem(ctx context.Context, tenant models.Tenant, receiptID, lineItemID int, req *models.UpdateLineItemRequest) (*models.ReceiptLineItem, error)
	MaterializeReceipt(ctx context.Context, tenant models.Tenant, receiptID int, items []models.InventoryItem) (int, error)
}

// ProductCatalog receives confirmed purchases back into the product catalog
// so future receipts match and price better.
type ProductCatalog interface {
	RecordPrice(ctx context.Context, productID int, price float64) error
	Create(ctx context.Context, name string, category models.Category, shelfLifeDays int) (*models.Product, error)
}

// Job is one receipt waiting for extraction
type Job struct {
	ReceiptID   int
	Tenant      models.Tenant
	ImageKey    string
	ContentType string
}

// ErrConfirmedItemMissing is returned when a confirm request references a
// line item the receipt doesn't have.
var ErrConfirmedItemMissing = errors.New("confirmed line item not on receipt")

// ImageLoader reads a stored image back into memory
type ImageLoader func(ctx context.Context, key string) ([]byte, error)

// Pipeline owns the upload-to-inventory flow: a buffered in-process queue
// feeding extraction workers, and the confirm step that materializes
// extracted line items into inventory.
type Pipeline struct {
	provider   ocr.Provider
	receipts   ReceiptStore
	loadImage  ImageLoader
	classifier *services.Classifier
	matcher    *services.ItemMatcher
	catalog    ProductCatalog
	ocrTimeout time.Duration

	jobs    chan Job
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// New creates a pipeline. The queue holds up to queueSize jobs; Enqueue fails
// fast when it's full rather than blocking the upload request.
func New(provider ocr.Provider, receipts ReceiptStore, loadImage ImageLoader, classifier *services.Classifier, matcher *services.ItemMatcher, catalog ProductCatalog, ocrTimeout time.Duration, queueSize int) *Pipeline {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pipeline{
		provider:   provider,
		receipts:   receipts,
		loadImage:  loadImage,
		classifier: classifier,
		matcher:    matcher,
		catalog:    catalog,
		ocrTimeout: ocrTimeout,
		jobs:       make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines. Workers exit when ctx is cancelled
// and the queue drains.
func (p *Pipeline) Start(ctx context.Context, workers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Stop waits for in-flight jobs to finish. Call after cancelling the context
// passed to Start.
func (p *Pipeline) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Enqueue hands a receipt to the workers. Returns false when the queue is
// full; the receipt stays pending and can be retried.
func (p *Pipeline) Enqueue(job Job) bool {
	select {
	case p.jobs <- job:
		util.JobQueueDepth.Set(float64(len(p.jobs)))
		return true
	default:
		return false
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			util.JobQueueDepth.Set(float64(len(p.jobs)))
			p.process(ctx, job)
		}
	}
}

// process runs extraction for one receipt. Keyed on the receipt's status:
// only a pending receipt is claimed, so a job delivered twice runs once.
func (p *Pipeline) process(ctx context.Context, job Job) {
	logger := util.GetLogger().With(zap.Int("receipt_id", job.ReceiptID))

	claimed, err := p.receipts.MarkProcessing(ctx, job.ReceiptID)
	if err != nil {
		logger.Error("failed to claim receipt", zap.Error(err))
		return
	}
	if !claimed {
		logger.Debug("receipt not pending, skipping")
		return
	}

	image, err := p.loadImage(ctx, job.ImageKey)
	if err != nil {
		p.fail(ctx, job.ReceiptID, fmt.Sprintf("loading image: %v", err), logger)
		return
	}

	ocrCtx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	defer cancel()

	start := time.Now()
	extraction, err := p.provider.Extract(ocrCtx, image, job.ContentType)
	elapsed := time.Since(start)
	util.OCRLatency.WithLabelValues(p.provider.Name()).Observe(elapsed.Seconds())

	if err != nil {
		p.fail(ctx, job.ReceiptID, err.Error(), logger)
		return
	}

	var duplicateOf *int
	candidates, err := p.receipts.ListForDuplicateCheck(ctx, job.Tenant.HouseholdID, job.ReceiptID)
	if err != nil {
		logger.Warn("duplicate check failed", zap.Error(err))
	} else {
		duplicateOf = services.FindDuplicate(extraction, candidates)
	}
	if duplicateOf != nil {
		util.DuplicateReceiptsTotal.Inc()
	}

	matches := p.matchProducts(ctx, extraction, logger)

	rawResponse, _ := json.Marshal(extraction)
	err = p.receipts.CompleteProcessing(ctx, job.ReceiptID, extraction, matches, p.provider.Name(),
		rawResponse, int(elapsed.Milliseconds()), duplicateOf)
	if err != nil {
		p.fail(ctx, job.ReceiptID, fmt.Sprintf("storing extraction: %v", err), logger)
		return
	}

	util.ReceiptsProcessedTotal.WithLabelValues("completed").Inc()
	logger.Info("receipt processed",
		zap.String("provider", p.provider.Name()),
		zap.Int("line_items", len(extraction.LineItems)),
		zap.Duration("elapsed", elapsed),
		zap.Bool("duplicate", duplicateOf != nil))
}

// matchProducts scores each extracted line item against the product catalog.
// Matching is advisory; any failure just leaves items unmatched.
func (p *Pipeline) matchProducts(ctx context.Context, extraction *models.CanonicalReceipt, logger *zap.Logger) []models.LineItemMatch {
	if p.matcher == nil {
		return nil
	}
	matches := make([]models.LineItemMatch, len(extraction.LineItems))
	for i, li := range extraction.LineItems {
		m, err := p.matcher.Match(ctx, li.Description)
		if err != nil {
			logger.Warn("product matching failed", zap.Error(err))
			return matches
		}
		if m != nil {
			productID, confidence := m.ProductID, m.Confidence
			matches[i] = models.LineItemMatch{ProductID: &productID, Confidence: &confidence}
		}
	}
	return matches
}

func (p *Pipeline) fail(ctx context.Context, receiptID int, message string, logger *zap.Logger) {
	util.ReceiptsProcessedTotal.WithLabelValues("failed").Inc()
	logger.Error("receipt processing failed", zap.String("error", message))
	if err := p.receipts.FailProcessing(ctx, receiptID, message); err != nil {
		logger.Error("failed to record processing failure", zap.Error(err))
	}
}

// Confirm materializes the selected line items into inventory. Corrections
// are applied first; then every selected item is categorized, given an
// estimated expiration, and inserted in one atomic claim so that concurrent
// confirms of the same receipt add items exactly once.
func (p *Pipeline) Confirm(ctx context.Context, tenant models.Tenant, receiptID int, req *models.ConfirmReceiptRequest) (int, error) {
	for lineItemID, correction := range req.Corrections {
		c := correction
		if _, err := p.receipts.UpdateLineItem(ctx, tenant, receiptID, lineItemID, &c); err != nil {
			return 0, err
		}
	}

	receipt, err := p.receipts.GetByID(ctx, tenant, receiptID)
	if err != nil {
		return 0, err
	}

	byID := make(map[int]*models.ReceiptLineItem, len(receipt.LineItems))
	for i := range receipt.LineItems {
		byID[receipt.LineItems[i].ID] = &receipt.LineItems[i]
	}

	selected := make([]*models.ReceiptLineItem, 0, len(req.ConfirmedItems))
	names := make([]string, 0, len(req.ConfirmedItems))
	for _, id := range req.ConfirmedItems {
		li, ok := byID[id]
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrConfirmedItemMissing, id)
		}
		selected = append(selected, li)
		names = append(names, li.EffectiveName())
	}

	categories := p.classifier.Classify(ctx, names)

	items := make([]models.InventoryItem, 0, len(selected))
	for _, li := range selected {
		name := li.EffectiveName()

		category := categories[name]
		if li.Category != nil && models.ValidCategory(*li.Category) {
			// A user-assigned category outranks the classifier
			category = models.Category(*li.Category)
		}

		expiration := services.ExpirationDate(receipt.PurchaseDate, category)
		item := models.InventoryItem{
			Name:           name,
			Category:       category,
			Quantity:       li.Quantity,
			Unit:           "each",
			PurchaseDate:   receipt.PurchaseDate,
			ExpirationDate: &expiration,
			Currency:       receipt.Currency,
			ReceiptID:      &receiptID,
			Store:          receipt.MerchantName,
		}
		if li.TotalPrice != nil {
			item.Price = li.TotalPrice
		} else if li.UnitPrice != nil {
			total := *li.UnitPrice * li.Quantity
			item.Price = &total
		}
		items = append(items, item)
	}

	added, err := p.receipts.MaterializeReceipt(ctx, tenant, receiptID, items)
	if err != nil {
		return 0, err
	}

	p.updateCatalog(ctx, selected, items)

	util.ReceiptsConfirmedTotal.Inc()
	util.InventoryItemsAddedTotal.Add(float64(added))
	util.GetLogger().Info("receipt confirmed",
		zap.Int("receipt_id", receiptID),
		zap.Int("items_added", added))
	return added, nil
}

// updateCatalog folds each confirmed purchase into the product catalog: a
// matched line item records a price observation, an unmatched one becomes a
// new catalog entry. Failures only log; the confirm already committed.
func (p *Pipeline) updateCatalog(ctx context.Context, selected []*models.ReceiptLineItem, items []models.InventoryItem) {
	if p.catalog == nil {
		return
	}
	logger := util.GetLogger()
	for i, li := range selected {
		item := items[i]

		var productID int
		if li.MatchedProductID != nil {
			productID = *li.MatchedProductID
		} else {
			created, err := p.catalog.Create(ctx, services.NormalizeName(item.Name),
				item.Category, services.ShelfLifeDays(item.Category))
			if err != nil {
				logger.Warn("failed to create catalog product",
					zap.String("name", item.Name), zap.Error(err))
				continue
			}
			productID = created.ID
		}

		if item.Price == nil || item.Quantity <= 0 {
			continue
		}
		unitPrice := *item.Price / item.Quantity
		if err := p.catalog.RecordPrice(ctx, productID, unitPrice); err != nil {
			logger.Warn("failed to record product price",
				zap.Int("product_id", productID), zap.Error(err))
		}
	}
}
