package entity

import (
	"math"
	"time"
)

// Tipos de movimiento de stock.
const (
	MovementTypeIn  = "in"  // entrada
	MovementTypeOut = "out" // salida
)

// MaxQuantity tope de cualquier cantidad de stock (columnas INTEGER).
const MaxQuantity = math.MaxInt32

// ValidQuantity indica si q es una cantidad de movimiento o pedido aceptable.
func ValidQuantity(q int) bool {
	return q > 0 && q <= MaxQuantity
}

// Referencias usadas por el propio motor.
const (
	ReferenceAdjustment = "adjustment"
)

// StockMovement es una entrada inmutable del ledger de stock.
type StockMovement struct {
	ID            string
	ProductID     string
	Type          string // in | out
	Quantity      int    // siempre positivo; el signo lo da Type
	ReferenceType string // order, return, adjustment, ...
	UserID        string
	CreatedAt     time.Time
}

// SignedQuantity devuelve la cantidad con signo (+ entrada, - salida).
func (m *StockMovement) SignedQuantity() int {
	if m.Type == MovementTypeOut {
		return -m.Quantity
	}
	return m.Quantity
}

// ValidMovementType indica si t es un tipo de movimiento soportado.
func ValidMovementType(t string) bool {
	return t == MovementTypeIn || t == MovementTypeOut
}
