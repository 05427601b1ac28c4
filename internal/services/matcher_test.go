package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larderhq/larder/internal/models"
)

type staticCatalog struct {
	products []models.Product
}

func (c *staticCatalog) Candidates(ctx context.Context, words []string, limit int) ([]models.Product, error) {
	return c.products, nil
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"ORG BANANA", "organic banana"},
		{"WHL MLK GAL", "whole milk gallon"},
		{"CHKN BRST BNLS", "chicken breast boneless"},
		{"BREAD F", "bread"},
		{"  Extra   Spaces  ", "extra spaces"},
		{"plain yogurt", "plain yogurt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestWordOverlap(t *testing.T) {
	assert.Equal(t, 1.0, wordOverlap("whole milk", "whole milk"))
	assert.Equal(t, 0.5, wordOverlap("whole milk", "milk"))
	assert.Equal(t, 0.0, wordOverlap("bread", "milk"))
	assert.Equal(t, 0.0, wordOverlap("", "milk"))

	// Scored against the longer name
	score := wordOverlap("organic whole milk", "whole milk")
	assert.InDelta(t, 2.0/3.0, score, 1e-9)
}

func TestMatcherMatches(t *testing.T) {
	m := NewItemMatcher(&staticCatalog{products: []models.Product{
		{ID: 1, Name: "Whole Milk"},
		{ID: 2, Name: "Chocolate Milk"},
		{ID: 3, Name: "Bread"},
	}})

	matches, err := m.Matches(context.Background(), "WHL MLK GAL", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, 1, matches[0].ProductID)

	// Nothing in the catalog scores high enough
	best, err := m.Match(context.Background(), "EGGS")
	require.NoError(t, err)
	assert.Nil(t, best)
}
