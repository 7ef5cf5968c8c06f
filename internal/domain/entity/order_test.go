package entity

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusConfirmed, OrderStatusDelivered, true},
		{OrderStatusConfirmed, OrderStatusCanceled, true},
		{OrderStatusDelivered, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCanceled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatus("SHIPPED").Valid())
}

func TestComputeTotal(t *testing.T) {
	price := decimal.RequireFromString("19.99")
	assert.True(t, decimal.RequireFromString("59.97").Equal(ComputeTotal(price, 3)))
}

func TestStockMovement_SignedQuantity(t *testing.T) {
	in := StockMovement{Type: MovementTypeIn, Quantity: 7}
	out := StockMovement{Type: MovementTypeOut, Quantity: 7}
	assert.Equal(t, 7, in.SignedQuantity())
	assert.Equal(t, -7, out.SignedQuantity())
}

func TestValidPrice(t *testing.T) {
	assert.True(t, ValidPrice(decimal.RequireFromString("19.99")))
	assert.True(t, ValidPrice(decimal.RequireFromString("5.000")))
	assert.True(t, ValidPrice(decimal.RequireFromString("999999999999.99")))
	assert.False(t, ValidPrice(decimal.RequireFromString("19.999")))
	assert.False(t, ValidPrice(decimal.RequireFromString("0.001")))
	assert.False(t, ValidPrice(decimal.RequireFromString("1000000000000")))
	assert.False(t, ValidPrice(decimal.Zero))
	assert.False(t, ValidPrice(decimal.NewFromInt(-1)))
}

func TestValidQuantityYTotal(t *testing.T) {
	assert.True(t, ValidQuantity(1))
	assert.True(t, ValidQuantity(math.MaxInt32))
	assert.False(t, ValidQuantity(0))
	assert.False(t, ValidQuantity(math.MaxInt32+1))

	price := decimal.RequireFromString("999999.99")
	assert.True(t, ValidTotal(ComputeTotal(price, 1000)))
	assert.False(t, ValidTotal(ComputeTotal(price, math.MaxInt32)))
}
