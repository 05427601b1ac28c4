package services

import (
	"errors"
	"fmt"
)

var (
	// ErrWastedItem is returned when usage is recorded against a wasted item
	ErrWastedItem = errors.New("cannot use a wasted item")
)

// ValidationError marks a quantity that fails the ledger's arithmetic rules
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ReduceQuantity validates a partial-use request and returns the remaining
// quantity plus whether the item is now depleted. Depletion means the exact
// remainder hit zero; over-use is rejected rather than clamped.
func ReduceQuantity(current, used float64, isWasted bool) (remaining float64, depleted bool, err error) {
	if isWasted {
		return 0, false, ErrWastedItem
	}
	if used <= 0 {
		return 0, false, &ValidationError{Message: "quantity used must be positive"}
	}
	if used > current {
		return 0, false, &ValidationError{
			Message: fmt.Sprintf("quantity used %.3f exceeds remaining %.3f", used, current),
		}
	}
	remaining = current - used
	return remaining, remaining == 0, nil
}
