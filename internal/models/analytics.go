package models

// WasteStats aggregates wasted items over a window
type WasteStats struct {
	TotalWastedItems int             `json:"total_wasted_items"`
	TotalValueWasted float64         `json:"total_value_wasted"`
	WasteByCategory  []CategoryCount `json:"waste_by_category"`
	MostWastedItems  []NameCount     `json:"most_wasted_items"`
	WasteReasons     []ReasonCount   `json:"waste_reasons"`
}

// SpendingStats aggregates purchases over a window
type SpendingStats struct {
	TotalSpent         float64         `json:"total_spent"`
	SpendingByCategory []CategoryCount `json:"spending_by_category"`
	SpendingTimeline   []DailySpend    `json:"spending_timeline"`
}

// InventorySummary summarizes the current non-wasted inventory
type InventorySummary struct {
	TotalItems      int             `json:"total_items"`
	ItemsByCategory []CategoryCount `json:"items_by_category"`
	ExpiringSoon    int             `json:"expiring_soon"`
	Expired         int             `json:"expired"`
}

// CategoryCount is a per-category count with an optional value total
type CategoryCount struct {
	Category   Category `json:"category"`
	Count      int      `json:"count"`
	TotalValue float64  `json:"total_value,omitempty"`
}

// NameCount counts occurrences of an item name
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ReasonCount counts occurrences of a waste reason
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// DailySpend is one day of the spending timeline
type DailySpend struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}
