package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceQuantity(t *testing.T) {
	remaining, depleted, err := ReduceQuantity(2.0, 0.5, false)
	require.NoError(t, err)
	assert.Equal(t, 1.5, remaining)
	assert.False(t, depleted)
}

func TestReduceQuantityExactDepletion(t *testing.T) {
	remaining, depleted, err := ReduceQuantity(1.5, 1.5, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, remaining)
	assert.True(t, depleted)
}

func TestReduceQuantitySequenceToZero(t *testing.T) {
	current := 2.0
	for _, use := range []float64{0.5, 0.5, 1.0} {
		var err error
		current, _, err = ReduceQuantity(current, use, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 0.0, current)
}

func TestReduceQuantityOverUse(t *testing.T) {
	_, _, err := ReduceQuantity(1.0, 1.5, false)
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReduceQuantityNonPositiveUse(t *testing.T) {
	_, _, err := ReduceQuantity(1.0, 0, false)
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, err = ReduceQuantity(1.0, -0.5, false)
	require.Error(t, err)
}

func TestReduceQuantityWastedItem(t *testing.T) {
	_, _, err := ReduceQuantity(1.0, 0.5, true)
	assert.ErrorIs(t, err, ErrWastedItem)
}
