package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/larderhq/larder/internal/models"
)

// ErrNoAIProvider is returned when meal suggestions are requested without a
// configured Gemini key.
var ErrNoAIProvider = errors.New("no AI provider configured for meal suggestions")

// MealPlanner generates meal ideas from the household's current inventory,
// prioritizing ingredients closest to expiry.
type MealPlanner struct {
	model  *genai.GenerativeModel
	client *genai.Client
}

// NewMealPlanner creates a meal planner. An empty API key is allowed; the
// Suggest call then fails with ErrNoAIProvider.
func NewMealPlanner(apiKey, modelName string) (*MealPlanner, error) {
	if apiKey == "" {
		return &MealPlanner{}, nil
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &MealPlanner{client: client, model: client.GenerativeModel(modelName)}, nil
}

// Available reports whether suggestions can be generated
func (m *MealPlanner) Available() bool {
	return m.model != nil
}

// Suggest asks for meal ideas built around the given inventory. Items are
// assumed to arrive soonest-expiring first.
func (m *MealPlanner) Suggest(ctx context.Context, items []models.InventoryItem, count int) ([]models.MealSuggestion, error) {
	if m.model == nil {
		return nil, ErrNoAIProvider
	}
	if count <= 0 {
		count = 3
	}

	var inventory strings.Builder
	for _, it := range items {
		fmt.Fprintf(&inventory, "- %s (%.1f %s", it.Name, it.Quantity, it.Unit)
		if it.ExpirationDate != nil {
			fmt.Fprintf(&inventory, ", expires %s", it.ExpirationDate.Format("2006-01-02"))
		}
		inventory.WriteString(")\n")
	}

	prompt := fmt.Sprintf(`Suggest %d meals using this pantry inventory. Prefer ingredients that expire soonest.

Inventory:
%s
Return ONLY a JSON array, no other text:
[
  {
    "name": "meal name",
    "description": "one sentence",
    "inventory_ingredients": ["items from the inventory above"],
    "additional_ingredients": ["items that must be bought"],
    "prep_time": "e.g. 30 minutes",
    "difficulty": "easy|medium|hard"
  }
]`, count, inventory.String())

	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generating suggestions: %w", err)
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

	var suggestions []models.MealSuggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &suggestions); err != nil {
		return nil, fmt.Errorf("parsing suggestions: %w", err)
	}
	return suggestions, nil
}

// Close releases the underlying client when one exists
func (m *MealPlanner) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
