package handlers

import (
	"testing"

	"github.com/Dhoini/checkout-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCartItems(t *testing.T) {
	t.Run("empty parameter means no cart", func(t *testing.T) {
		cart, err := parseCartItems("", "EUR")
		require.NoError(t, err)
		assert.Nil(t, cart)
	})

	t.Run("items with computed total", func(t *testing.T) {
		raw := `[{"title":"Mug","quantity":2,"price":1000},{"title":"Sticker","quantity":1,"price":150}]`
		cart, err := parseCartItems(raw, "EUR")
		require.NoError(t, err)

		require.NotNil(t, cart)
		assert.Len(t, cart.Items, 2)
		assert.Equal(t, int64(2150), cart.TotalPriceMinor)
		assert.Equal(t, "EUR", cart.Currency)
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		_, err := parseCartItems(`[{"title":"Mug","quantity":0,"price":1000}]`, "EUR")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("negative price rejected", func(t *testing.T) {
		_, err := parseCartItems(`[{"title":"Mug","quantity":1,"price":-100}]`, "EUR")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		_, err := parseCartItems(`{"title":"Mug"}`, "EUR")
		assert.Error(t, err)
	})
}
