package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larderhq/larder/internal/models"
)

func existingReceipt(id int, merchant string, date time.Time, total float64) models.Receipt {
	return models.Receipt{
		ID:           id,
		MerchantName: &merchant,
		PurchaseDate: &date,
		TotalAmount:  &total,
	}
}

func TestFindDuplicate(t *testing.T) {
	date := time.Date(2026, 5, 2, 14, 30, 0, 0, time.UTC)
	extraction := &models.CanonicalReceipt{
		MerchantName: "Safeway",
		PurchaseDate: &date,
		TotalAmount:  54.10,
	}

	existing := []models.Receipt{
		existingReceipt(1, "Safeway", date.AddDate(0, 0, -1), 54.10),
		existingReceipt(2, "Costco", date, 54.10),
		existingReceipt(3, "Safeway", date, 54.105),
	}

	dup := FindDuplicate(extraction, existing)
	require.NotNil(t, dup)
	assert.Equal(t, 3, *dup)
}

func TestFindDuplicateTotalTolerance(t *testing.T) {
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	extraction := &models.CanonicalReceipt{
		MerchantName: "Safeway",
		PurchaseDate: &date,
		TotalAmount:  54.10,
	}

	// Off by two cents is a different receipt
	existing := []models.Receipt{existingReceipt(1, "Safeway", date, 54.12)}
	assert.Nil(t, FindDuplicate(extraction, existing))

	// Within a cent matches
	existing = []models.Receipt{existingReceipt(1, "Safeway", date, 54.109)}
	assert.NotNil(t, FindDuplicate(extraction, existing))
}

func TestFindDuplicateSameDayDifferentTime(t *testing.T) {
	morning := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 5, 2, 19, 0, 0, 0, time.UTC)

	extraction := &models.CanonicalReceipt{
		MerchantName: "Safeway",
		PurchaseDate: &morning,
		TotalAmount:  20,
	}
	existing := []models.Receipt{existingReceipt(1, "Safeway", evening, 20)}

	// Comparison is by calendar day, not timestamp
	assert.NotNil(t, FindDuplicate(extraction, existing))
}

func TestFindDuplicateZeroTotal(t *testing.T) {
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	extraction := &models.CanonicalReceipt{
		MerchantName: "Safeway",
		PurchaseDate: &date,
		TotalAmount:  0,
	}

	// The tolerance is absolute, so two zero-amount receipts still match
	existing := []models.Receipt{existingReceipt(1, "Safeway", date, 0)}
	dup := FindDuplicate(extraction, existing)
	require.NotNil(t, dup)
	assert.Equal(t, 1, *dup)
}

func TestFindDuplicateMissingFields(t *testing.T) {
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	// Incomplete extraction never matches
	assert.Nil(t, FindDuplicate(&models.CanonicalReceipt{
		MerchantName: "Safeway",
		TotalAmount:  20,
	}, []models.Receipt{existingReceipt(1, "Safeway", date, 20)}))

	// Incomplete candidates are skipped
	extraction := &models.CanonicalReceipt{
		MerchantName: "Safeway",
		PurchaseDate: &date,
		TotalAmount:  20,
	}
	incomplete := models.Receipt{ID: 1}
	assert.Nil(t, FindDuplicate(extraction, []models.Receipt{incomplete}))
}
