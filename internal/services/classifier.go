package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/larderhq/larder/internal/models"
	"github.com/larderhq/larder/internal/util"
)

// shelfLifeDays maps a category to its default shelf life. Used whenever the
// product catalog has no better number for the item.
var shelfLifeDays = map[models.Category]int{
	models.CategoryProduce:    7,
	models.CategoryDairy:      14,
	models.CategoryMeat:       3,
	models.CategorySeafood:    2,
	models.CategoryBakery:     5,
	models.CategoryFrozen:     180,
	models.CategoryCanned:     365,
	models.CategoryDryGoods:   180,
	models.CategoryBeverages:  90,
	models.CategorySnacks:     60,
	models.CategoryCondiments: 120,
	models.CategorySpices:     365,
	models.CategoryOther:      30,
}

// categoryKeywords is the ordered fallback used when no AI classifier is
// available or it returns something outside the category set. First category
// with a keyword hit wins.
var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryProduce, []string{"apple", "banana", "orange", "grape", "berry", "berries", "lettuce", "spinach", "kale", "tomato", "potato", "onion", "carrot", "broccoli", "pepper", "cucumber", "avocado", "lemon", "lime", "melon", "peach", "pear", "plum", "mango", "salad", "fruit", "vegetable", "produce"}},
	{models.CategoryDairy, []string{"milk", "cheese", "yogurt", "butter", "cream", "egg", "dairy"}},
	{models.CategorySeafood, []string{"fish", "salmon", "tuna", "shrimp", "crab", "lobster", "seafood", "tilapia", "cod"}},
	{models.CategoryMeat, []string{"chicken", "beef", "pork", "turkey", "ham", "bacon", "sausage", "steak", "ground", "meat", "lamb"}},
	{models.CategoryBakery, []string{"bread", "bagel", "muffin", "croissant", "roll", "bun", "cake", "donut", "pastry", "bakery", "tortilla"}},
	{models.CategoryFrozen, []string{"frozen", "ice cream", "popsicle", "pizza"}},
	{models.CategoryCanned, []string{"canned", "can of", "soup", "beans"}},
	{models.CategoryDryGoods, []string{"rice", "pasta", "flour", "sugar", "cereal", "oats", "oatmeal", "quinoa", "lentil", "noodle"}},
	{models.CategoryBeverages, []string{"water", "juice", "soda", "coffee", "tea", "drink", "cola", "beer", "wine", "beverage"}},
	{models.CategorySnacks, []string{"chips", "crackers", "cookies", "candy", "chocolate", "popcorn", "pretzel", "nuts", "snack", "granola"}},
	{models.CategoryCondiments, []string{"ketchup", "mustard", "mayo", "mayonnaise", "sauce", "dressing", "syrup", "honey", "jam", "jelly", "relish"}},
	{models.CategorySpices, []string{"salt", "spice", "seasoning", "cinnamon", "cumin", "paprika", "oregano", "basil", "garlic powder", "vanilla"}},
}

// ShelfLifeDays returns the default shelf life for a category
func ShelfLifeDays(category models.Category) int {
	if days, ok := shelfLifeDays[category]; ok {
		return days
	}
	return shelfLifeDays[models.CategoryOther]
}

// ExpirationDate estimates expiry from the purchase date and category. A nil
// purchase date anchors the estimate at now.
func ExpirationDate(purchaseDate *time.Time, category models.Category) time.Time {
	base := time.Now()
	if purchaseDate != nil {
		base = *purchaseDate
	}
	return base.AddDate(0, 0, ShelfLifeDays(category))
}

// KeywordCategory classifies an item name by keyword lookup alone
func KeywordCategory(name string) models.Category {
	lower := strings.ToLower(name)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return models.CategoryOther
}

// Classifier assigns categories to item names, preferring Gemini when a key
// is configured and falling back to keywords when it isn't or when a call
// fails. Classification must never block materialization.
type Classifier struct {
	model  *genai.GenerativeModel
	client *genai.Client
}

// NewClassifier creates a classifier. An empty API key yields a keyword-only
// classifier, which is valid.
func NewClassifier(apiKey, modelName string) (*Classifier, error) {
	if apiKey == "" {
		return &Classifier{}, nil
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Classifier{client: client, model: client.GenerativeModel(modelName)}, nil
}

// Classify categorizes a batch of item names. The result maps each input
// name to a category and always covers every input.
func (c *Classifier) Classify(ctx context.Context, names []string) map[string]models.Category {
	result := make(map[string]models.Category, len(names))
	for _, n := range names {
		result[n] = models.CategoryOther
	}

	if c.model != nil {
		aiResult, err := c.classifyWithGemini(ctx, names)
		if err != nil {
			util.GetLogger().Warn("ai classification failed, using keyword fallback", zap.Error(err))
		} else {
			for name, cat := range aiResult {
				if _, ok := result[name]; ok && models.ValidCategory(string(cat)) {
					result[name] = cat
				}
			}
		}
	}

	for name, cat := range result {
		if cat == models.CategoryOther {
			result[name] = KeywordCategory(name)
		}
	}
	return result
}

func (c *Classifier) classifyWithGemini(ctx context.Context, names []string) (map[string]models.Category, error) {
	categories := make([]string, len(models.Categories))
	for i, cat := range models.Categories {
		categories[i] = string(cat)
	}

	prompt := fmt.Sprintf(`Classify each grocery item into exactly one of these categories: %s.

Items:
%s

Return ONLY a JSON object mapping each item name exactly as given to its category, no other text.`,
		strings.Join(categories, ", "), strings.Join(names, "\n"))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(sb.String())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw map[string]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("parsing classification: %w", err)
	}

	result := make(map[string]models.Category, len(raw))
	for name, cat := range raw {
		result[name] = models.Category(cat)
	}
	return result, nil
}

// Close releases the underlying client when one exists
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
