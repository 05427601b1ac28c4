package services

import (
	"math"

	"github.com/larderhq/larder/internal/models"
)

// FindDuplicate returns the id of an existing receipt the extraction
// duplicates, or nil. Two receipts match when the merchant name is identical,
// the purchase date is the same calendar day, and the totals differ by less
// than a cent. The tolerance is absolute, so zero-amount receipts compare
// like any others; only receipts missing merchant, date or total never match.
func FindDuplicate(extraction *models.CanonicalReceipt, existing []models.Receipt) *int {
	if extraction.MerchantName == "" || extraction.PurchaseDate == nil {
		return nil
	}

	for i := range existing {
		candidate := &existing[i]
		if candidate.MerchantName == nil || candidate.PurchaseDate == nil || candidate.TotalAmount == nil {
			continue
		}
		if *candidate.MerchantName != extraction.MerchantName {
			continue
		}
		cy, cm, cd := candidate.PurchaseDate.Date()
		ey, em, ed := extraction.PurchaseDate.Date()
		if cy != ey || cm != em || cd != ed {
			continue
		}
		if math.Abs(*candidate.TotalAmount-extraction.TotalAmount) < 0.01 {
			id := candidate.ID
			return &id
		}
	}
	return nil
}
