package models

// Tenant identifies the caller and the household all queries are scoped to.
// Every repository and pipeline operation takes one; handlers reject requests
// whose token carries no household.
type Tenant struct {
	UserID      int `json:"user_id"`
	HouseholdID int `json:"household_id"`
}

func (t Tenant) Valid() bool {
	return t.UserID > 0 && t.HouseholdID > 0
}
