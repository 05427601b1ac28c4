package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larderhq/larder/internal/models"
)

func TestKeywordCategory(t *testing.T) {
	tests := []struct {
		name     string
		expected models.Category
	}{
		{"Organic Bananas", models.CategoryProduce},
		{"Whole Milk Gallon", models.CategoryDairy},
		{"Chicken Breast Boneless", models.CategoryMeat},
		{"Atlantic Salmon Fillet", models.CategorySeafood},
		{"Sourdough Bread", models.CategoryBakery},
		{"Frozen Pizza", models.CategoryFrozen},
		{"Canned Soup", models.CategoryCanned},
		{"Basmati Rice 5lb", models.CategoryDryGoods},
		{"Orange Juice", models.CategoryProduce}, // "orange" hits produce before beverages
		{"Potato Chips", models.CategoryProduce}, // "potato" hits produce first
		{"Ketchup", models.CategoryCondiments},
		{"Ground Cinnamon", models.CategoryMeat}, // "ground" hits meat first
		{"Mystery Item XYZ", models.CategoryOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, KeywordCategory(tt.name), "item %q", tt.name)
	}
}

func TestShelfLifeDays(t *testing.T) {
	assert.Equal(t, 7, ShelfLifeDays(models.CategoryProduce))
	assert.Equal(t, 3, ShelfLifeDays(models.CategoryMeat))
	assert.Equal(t, 2, ShelfLifeDays(models.CategorySeafood))
	assert.Equal(t, 365, ShelfLifeDays(models.CategoryCanned))
	assert.Equal(t, 30, ShelfLifeDays(models.CategoryOther))
	assert.Equal(t, 30, ShelfLifeDays(models.Category("bogus")))
}

func TestExpirationDate(t *testing.T) {
	purchase := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	exp := ExpirationDate(&purchase, models.CategoryDairy)
	assert.Equal(t, time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC), exp)

	// Without a purchase date the estimate anchors at now
	exp = ExpirationDate(nil, models.CategoryMeat)
	expected := time.Now().AddDate(0, 0, 3)
	assert.WithinDuration(t, expected, exp, time.Minute)
}

func TestClassifyKeywordOnly(t *testing.T) {
	c, err := NewClassifier("", "")
	require.NoError(t, err)

	result := c.Classify(context.Background(), []string{"Organic Bananas", "Frozen Pizza", "Thingamajig"})

	assert.Equal(t, models.CategoryProduce, result["Organic Bananas"])
	assert.Equal(t, models.CategoryFrozen, result["Frozen Pizza"])
	assert.Equal(t, models.CategoryOther, result["Thingamajig"])
}
