package services

import (
	"context"
	"sort"
	"strings"

	"github.com/larderhq/larder/internal/models"
)

// ProductCatalog is the slice of the product repository the matcher needs
type ProductCatalog interface {
	Candidates(ctx context.Context, words []string, limit int) ([]models.Product, error)
}

// ItemMatcher scores extracted line item descriptions against the product
// catalog.
type ItemMatcher struct {
	products ProductCatalog
}

// NewItemMatcher creates a new item matcher
func NewItemMatcher(products ProductCatalog) *ItemMatcher {
	return &ItemMatcher{products: products}
}

// abbreviations expands the shorthand receipts print item names in
var abbreviations = map[string]string{
	"org":   "organic",
	"whl":   "whole",
	"chkn":  "chicken",
	"brst":  "breast",
	"bnls":  "boneless",
	"sknls": "skinless",
	"gal":   "gallon",
	"qt":    "quart",
	"pt":    "pint",
	"pkg":   "package",
	"btl":   "bottle",
	"bx":    "box",
	"bg":    "bag",
	"ct":    "count",
	"lrg":   "large",
	"med":   "medium",
	"sml":   "small",
	"frsh":  "fresh",
	"frzn":  "frozen",
	"flr":   "flour",
	"veg":   "vegetable",
	"frt":   "fruit",
	"jce":   "juice",
	"mlk":   "milk",
	"chse":  "cheese",
	"brd":   "bread",
	"wht":   "white",
	"brn":   "brown",
	"grn":   "green",
	"yel":   "yellow",
	"blk":   "black",
}

// NormalizeName lowercases a description, expands whole-word abbreviations
// and strips tax-flag suffixes.
func NormalizeName(name string) string {
	name = strings.ToLower(name)

	words := strings.Fields(name)
	for i, w := range words {
		if full, ok := abbreviations[w]; ok {
			words[i] = full
		}
	}
	name = strings.Join(words, " ")

	for _, suffix := range []string{" f", " t", " n", " @"} {
		name = strings.TrimSuffix(name, suffix)
	}

	return strings.TrimSpace(name)
}

// Match returns the best catalog candidate for a description, or nil when
// nothing scores at least 0.5.
func (m *ItemMatcher) Match(ctx context.Context, description string) (*models.ProductMatch, error) {
	matches, err := m.Matches(ctx, description, 1)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return &matches[0], nil
}

// Matches returns up to limit catalog candidates scored by word overlap,
// best first. Candidates below 0.5 are dropped.
func (m *ItemMatcher) Matches(ctx context.Context, description string, limit int) ([]models.ProductMatch, error) {
	normalized := NormalizeName(description)
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return nil, nil
	}

	candidates, err := m.products.Candidates(ctx, words, 50)
	if err != nil {
		return nil, err
	}

	matches := []models.ProductMatch{}
	for _, p := range candidates {
		score := wordOverlap(normalized, strings.ToLower(p.Name))
		if score >= 0.5 {
			matches = append(matches, models.ProductMatch{
				ProductID:  p.ID,
				Name:       p.Name,
				Confidence: score,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// wordOverlap scores two names by the share of words they have in common,
// measured against the longer of the two.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}

	common := 0
	for _, w := range wordsA {
		if setB[w] {
			common++
		}
	}

	denom := len(wordsA)
	if len(wordsB) > denom {
		denom = len(wordsB)
	}
	return float64(common) / float64(denom)
}
