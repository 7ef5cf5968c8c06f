package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de un pedido.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCanceled: true},
	OrderStatusConfirmed: {OrderStatusDelivered: true, OrderStatusCanceled: true},
	OrderStatusDelivered: {},
	OrderStatusCanceled:  {},
}

// CanTransition indica si el pedido puede pasar de from a to.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal indica si el estado no admite más transiciones.
func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// Valid indica si s es un estado conocido.
func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Order representa un pedido de un producto. TotalPrice se fija al crear/actualizar
// (price × quantity) y no se recalcula si el precio del producto cambia después.
type Order struct {
	ID         string
	Status     OrderStatus
	UserID     string
	ProductID  string
	Quantity   int
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidTotal indica si el total cabe en la columna total_price.
func ValidTotal(total decimal.Decimal) bool {
	return total.LessThan(maxMoney)
}

// ComputeTotal calcula price × quantity.
func ComputeTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
