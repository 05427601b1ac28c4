package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larderhq/larder/internal/database"
	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/ocr"
	"github.com/larderhq/larder/internal/services"
)

type fakeProvider struct {
	receipt *models.CanonicalReceipt
	err     error
	calls   int
	mu      sync.Mutex
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Extract(ctx context.Context, image []byte, contentType string) (*models.CanonicalReceipt, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

type storedReceipt struct {
	receipt   models.ReceiptWithLineItems
	lastError string
}

type fakeStore struct {
	mu         sync.Mutex
	receipts   map[int]*storedReceipt
	inventory  []models.InventoryItem
	candidates []models.Receipt
	nextItemID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{receipts: map[int]*storedReceipt{}, nextItemID: 1}
}

func (s *fakeStore) addReceipt(id int, status models.ReceiptStatus, items ...models.ReceiptLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[id] = &storedReceipt{receipt: models.ReceiptWithLineItems{
		Receipt: models.Receipt{
			ID:               id,
			HouseholdID:      1,
			Currency:         "USD",
			ProcessingStatus: status,
		},
		LineItems: items,
	}}
}

func (s *fakeStore) MarkProcessing(ctx context.Context, receiptID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[receiptID]
	if !ok {
		return false, nil
	}
	if r.receipt.ProcessingStatus != models.ReceiptStatusPending {
		return false, nil
	}
	r.receipt.ProcessingStatus = models.ReceiptStatusProcessing
	return true, nil
}

func (s *fakeStore) CompleteProcessing(ctx context.Context, receiptID int, extraction *models.CanonicalReceipt, matches []models.LineItemMatch, provider string, rawResponse json.RawMessage, elapsedMs int, duplicateOfID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.receipts[receiptID]
	r.receipt.ProcessingStatus = models.ReceiptStatusCompleted
	r.receipt.IsDuplicate = duplicateOfID != nil
	r.receipt.DuplicateOfID = duplicateOfID
	if extraction.MerchantName != "" {
		name := extraction.MerchantName
		r.receipt.MerchantName = &name
	}
	r.receipt.PurchaseDate = extraction.PurchaseDate
	for i, li := range extraction.LineItems {
		r.receipt.LineItems = append(r.receipt.LineItems, models.ReceiptLineItem{
			ID:          i + 1,
			ReceiptID:   receiptID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			TotalPrice:  li.TotalPrice,
		})
	}
	return nil
}

func (s *fakeStore) FailProcessing(ctx context.Context, receiptID int, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.receipts[receiptID]
	r.receipt.ProcessingStatus = models.ReceiptStatusFailed
	r.lastError = processingError
	return nil
}

func (s *fakeStore) ListForDuplicateCheck(ctx context.Context, householdID, excludeReceiptID int) ([]models.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates, nil
}

func (s *fakeStore) GetByID(ctx context.Context, tenant models.Tenant, id int) (*models.ReceiptWithLineItems, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[id]
	if !ok || r.receipt.HouseholdID != tenant.HouseholdID {
		return nil, database.ErrReceiptNotFound
	}
	cp := r.receipt
	cp.LineItems = append([]models.ReceiptLineItem(nil), r.receipt.LineItems...)
	return &cp, nil
}

func (s *fakeStore) UpdateLineItem(ctx context.Context, tenant models.Tenant, receiptID, lineItemID int, req *models.UpdateLineItemRequest) (*models.ReceiptLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[receiptID]
	if !ok {
		return nil, database.ErrLineItemNotFound
	}
	for i := range r.receipt.LineItems {
		li := &r.receipt.LineItems[i]
		if li.ID == lineItemID {
			if req.UserCorrectedName != nil {
				li.UserCorrectedName = req.UserCorrectedName
			}
			if req.Category != nil {
				li.Category = req.Category
			}
			return li, nil
		}
	}
	return nil, database.ErrLineItemNotFound
}

func (s *fakeStore) MaterializeReceipt(ctx context.Context, tenant models.Tenant, receiptID int, items []models.InventoryItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[receiptID]
	if !ok {
		return 0, database.ErrReceiptNotFound
	}
	if r.receipt.ItemsAdded {
		return 0, database.ErrReceiptAlreadyConfirmed
	}
	if r.receipt.ProcessingStatus != models.ReceiptStatusCompleted {
		return 0, database.ErrReceiptNotCompleted
	}
	r.receipt.ItemsAdded = true
	for i := range items {
		items[i].ID = s.nextItemID
		s.nextItemID++
	}
	s.inventory = append(s.inventory, items...)
	return len(items), nil
}

func newTestPipeline(t *testing.T, provider ocr.Provider, store *fakeStore) *Pipeline {
	t.Helper()
	classifier, err := services.NewClassifier("", "")
	require.NoError(t, err)

	loadImage := func(ctx context.Context, key string) ([]byte, error) {
		return []byte("image-bytes"), nil
	}
	return New(provider, store, loadImage, classifier, nil, nil, 5*time.Second, 8)
}

type fakeCatalog struct {
	mu      sync.Mutex
	nextID  int
	created []models.Product
	prices  map[int][]float64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{nextID: 100, prices: map[int][]float64{}}
}

func (c *fakeCatalog) Create(ctx context.Context, name string, category models.Category, shelfLifeDays int) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	days := shelfLifeDays
	p := models.Product{ID: c.nextID, Name: name, Category: category, AverageShelfLifeDays: &days}
	c.created = append(c.created, p)
	return &p, nil
}

func (c *fakeCatalog) RecordPrice(ctx context.Context, productID int, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[productID] = append(c.prices[productID], price)
	return nil
}

func price(v float64) *float64 { return &v }

func extraction() *models.CanonicalReceipt {
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	return &models.CanonicalReceipt{
		MerchantName: "Safeway",
		PurchaseDate: &date,
		TotalAmount:  7.50,
		LineItems: []models.CanonicalLineItem{
			{Description: "ORG BANANAS", Quantity: 1, TotalPrice: price(1.18)},
			{Description: "WHL MILK", Quantity: 1, TotalPrice: price(3.02)},
		},
	}
}

func TestProcessCompletesReceipt(t *testing.T) {
	store := newFakeStore()
	store.addReceipt(1, models.ReceiptStatusPending)
	provider := &fakeProvider{receipt: extraction()}
	p := newTestPipeline(t, provider, store)

	p.process(context.Background(), Job{ReceiptID: 1, Tenant: models.Tenant{UserID: 1, HouseholdID: 1}})

	r := store.receipts[1]
	assert.Equal(t, models.ReceiptStatusCompleted, r.receipt.ProcessingStatus)
	assert.Len(t, r.receipt.LineItems, 2)
	require.NotNil(t, r.receipt.MerchantName)
	assert.Equal(t, "Safeway", *r.receipt.MerchantName)
	assert.False(t, r.receipt.IsDuplicate)
}

func TestProcessMarksDuplicate(t *testing.T) {
	store := newFakeStore()
	store.addReceipt(2, models.ReceiptStatusPending)

	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	merchant := "Safeway"
	total := 7.50
	store.candidates = []models.Receipt{{
		ID: 1, MerchantName: &merchant, PurchaseDate: &date, TotalAmount: &total,
	}}

	p := newTestPipeline(t, &fakeProvider{receipt: extraction()}, store)
	p.process(context.Background(), Job{ReceiptID: 2, Tenant: models.Tenant{UserID: 1, HouseholdID: 1}})

	r := store.receipts[2]
	assert.Equal(t, models.ReceiptStatusCompleted, r.receipt.ProcessingStatus)
	assert.True(t, r.receipt.IsDuplicate)
	require.NotNil(t, r.receipt.DuplicateOfID)
	assert.Equal(t, 1, *r.receipt.DuplicateOfID)
}

func TestProcessProviderFailure(t *testing.T) {
	store := newFakeStore()
	store.addReceipt(1, models.ReceiptStatusPending)
	provider := &fakeProvider{err: &ocr.ProviderError{Provider: "fake", Err: errors.New("vendor exploded")}}
	p := newTestPipeline(t, provider, store)

	p.process(context.Background(), Job{ReceiptID: 1, Tenant: models.Tenant{UserID: 1, HouseholdID: 1}})

	r := store.receipts[1]
	assert.Equal(t, models.ReceiptStatusFailed, r.receipt.ProcessingStatus)
	assert.Contains(t, r.lastError, "vendor exploded")
}

func TestProcessSkipsNonPendingReceipt(t *testing.T) {
	store := newFakeStore()
	store.addReceipt(1, models.ReceiptStatusCompleted)
	provider := &fakeProvider{receipt: extraction()}
	p := newTestPipeline(t, provider, store)

	p.process(context.Background(), Job{ReceiptID: 1, Tenant: models.Tenant{UserID: 1, HouseholdID: 1}})

	// A redelivered job for a settled receipt never reaches the provider
	assert.Equal(t, 0, provider.calls)
	assert.Equal(t, models.ReceiptStatusCompleted, store.receipts[1].receipt.ProcessingStatus)
}

func TestWorkersProcessEnqueuedJobs(t *testing.T) {
	store := newFakeStore()
	store.addReceipt(1, models.ReceiptStatusPending)
	store.addReceipt(2, models.ReceiptStatusPending)
	p := newTestPipeline(t, &fakeProvider{receipt: extraction()}, store)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 2)

	tenant := models.Tenant{UserID: 1, HouseholdID: 1}
	require.True(t, p.Enqueue(Job{ReceiptID: 1, Tenant: tenant}))
	require.True(t, p.Enqueue(Job{ReceiptID: 2, Tenant: tenant}))

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.receipts[1].receipt.ProcessingStatus == models.ReceiptStatusCompleted &&
			store.receipts[2].receipt.ProcessingStatus == models.ReceiptStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	p.Stop()
}

func confirmRequest(ids ...int) *models.ConfirmReceiptRequest {
	return &models.ConfirmReceiptRequest{ConfirmedItems: ids}
}

func completedReceipt(store *fakeStore, id int) {
	store.addReceipt(id, models.ReceiptStatusCompleted,
		models.ReceiptLineItem{ID: 1, ReceiptID: id, Description: "ORG BANANAS", Quantity: 1, TotalPrice: price(1.18)},
		models.ReceiptLineItem{ID: 2, ReceiptID: id, Description: "FROZEN PIZZA", Quantity: 2, UnitPrice: price(4.50)},
	)
}

func TestConfirmMaterializesSelectedItems(t *testing.T) {
	store := newFakeStore()
	completedReceipt(store, 1)
	p := newTestPipeline(t, &fakeProvider{}, store)
	tenant := models.Tenant{UserID: 1, HouseholdID: 1}

	added, err := p.Confirm(context.Background(), tenant, 1, confirmRequest(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	require.Len(t, store.inventory, 2)
	bananas := store.inventory[0]
	assert.Equal(t, "ORG BANANAS", bananas.Name)
	assert.Equal(t, models.CategoryProduce, bananas.Category)
	require.NotNil(t, bananas.ExpirationDate)
	require.NotNil(t, bananas.Price)
	assert.Equal(t, 1.18, *bananas.Price)

	pizza := store.inventory[1]
	assert.Equal(t, models.CategoryFrozen, pizza.Category)
	// No total price: derived from unit price times quantity
	require.NotNil(t, pizza.Price)
	assert.Equal(t, 9.0, *pizza.Price)

	assert.True(t, store.receipts[1].receipt.ItemsAdded)
}

func TestConfirmAppliesCorrections(t *testing.T) {
	store := newFakeStore()
	completedReceipt(store, 1)
	p := newTestPipeline(t, &fakeProvider{}, store)
	tenant := models.Tenant{UserID: 1, HouseholdID: 1}

	corrected := "Organic Bananas"
	req := confirmRequest(1)
	req.Corrections = map[int]models.UpdateLineItemRequest{
		1: {UserCorrectedName: &corrected},
	}

	_, err := p.Confirm(context.Background(), tenant, 1, req)
	require.NoError(t, err)

	require.Len(t, store.inventory, 1)
	assert.Equal(t, "Organic Bananas", store.inventory[0].Name)
}

func TestConfirmFeedsProductCatalog(t *testing.T) {
	store := newFakeStore()
	matchedID := 7
	store.addReceipt(1, models.ReceiptStatusCompleted,
		models.ReceiptLineItem{ID: 1, ReceiptID: 1, Description: "ORG BANANAS", Quantity: 1, TotalPrice: price(1.18)},
		models.ReceiptLineItem{ID: 2, ReceiptID: 1, Description: "FROZEN PIZZA", Quantity: 2, UnitPrice: price(4.50), MatchedProductID: &matchedID},
	)

	classifier, err := services.NewClassifier("", "")
	require.NoError(t, err)
	catalog := newFakeCatalog()
	loadImage := func(ctx context.Context, key string) ([]byte, error) { return nil, nil }
	p := New(&fakeProvider{}, store, loadImage, classifier, nil, catalog, 5*time.Second, 8)

	_, err = p.Confirm(context.Background(), models.Tenant{UserID: 1, HouseholdID: 1}, 1, confirmRequest(1, 2))
	require.NoError(t, err)

	// The unmatched item becomes a normalized catalog entry with a price
	// observation
	require.Len(t, catalog.created, 1)
	created := catalog.created[0]
	assert.Equal(t, "organic bananas", created.Name)
	assert.Equal(t, models.CategoryProduce, created.Category)
	assert.Equal(t, []float64{1.18}, catalog.prices[created.ID])

	// The matched item records a unit price against the existing product
	assert.Equal(t, []float64{4.5}, catalog.prices[matchedID])
}

func TestConfirmTwiceConflicts(t *testing.T) {
	store := newFakeStore()
	completedReceipt(store, 1)
	p := newTestPipeline(t, &fakeProvider{}, store)
	tenant := models.Tenant{UserID: 1, HouseholdID: 1}

	_, err := p.Confirm(context.Background(), tenant, 1, confirmRequest(1))
	require.NoError(t, err)

	_, err = p.Confirm(context.Background(), tenant, 1, confirmRequest(2))
	assert.ErrorIs(t, err, database.ErrReceiptAlreadyConfirmed)
	assert.Len(t, store.inventory, 1)
}

func TestConfirmConcurrentAddsOnce(t *testing.T) {
	store := newFakeStore()
	completedReceipt(store, 1)
	p := newTestPipeline(t, &fakeProvider{}, store)
	tenant := models.Tenant{UserID: 1, HouseholdID: 1}

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = p.Confirm(context.Background(), tenant, 1, confirmRequest(1, 2))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, database.ErrReceiptAlreadyConfirmed)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, store.inventory, 2)
}

func TestConfirmRejectsUnknownLineItem(t *testing.T) {
	store := newFakeStore()
	completedReceipt(store, 1)
	p := newTestPipeline(t, &fakeProvider{}, store)
	tenant := models.Tenant{UserID: 1, HouseholdID: 1}

	_, err := p.Confirm(context.Background(), tenant, 1, confirmRequest(99))
	assert.ErrorIs(t, err, ErrConfirmedItemMissing)
	assert.False(t, store.receipts[1].receipt.ItemsAdded)
}

func TestConfirmPendingReceiptConflicts(t *testing.T) {
	store := newFakeStore()
	store.addReceipt(1, models.ReceiptStatusPending,
		models.ReceiptLineItem{ID: 1, ReceiptID: 1, Description: "BREAD", Quantity: 1})
	p := newTestPipeline(t, &fakeProvider{}, store)
	tenant := models.Tenant{UserID: 1, HouseholdID: 1}

	_, err := p.Confirm(context.Background(), tenant, 1, confirmRequest(1))
	assert.ErrorIs(t, err, database.ErrReceiptNotCompleted)
}

func TestConfirmCrossHouseholdNotFound(t *testing.T) {
	store := newFakeStore()
	completedReceipt(store, 1)
	p := newTestPipeline(t, &fakeProvider{}, store)

	_, err := p.Confirm(context.Background(), models.Tenant{UserID: 9, HouseholdID: 2}, 1, confirmRequest(1))
	assert.ErrorIs(t, err, database.ErrReceiptNotFound)
}
