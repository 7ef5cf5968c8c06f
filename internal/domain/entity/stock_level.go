package entity

import "time"

// StockLevel es el agregado materializado de stock de un producto (a lo sumo uno por producto).
// CurrentQuantity debe ser igual a la suma con signo de los StockMovement del producto.
type StockLevel struct {
	ID              string
	ProductID       string
	CurrentQuantity int
	MinimumQuantity int
	MaximumQuantity *int // nil = sin máximo
	Location        string
	UpdatedAt       time.Time
}

// IsLow indica si el nivel está en o por debajo del mínimo (inclusivo).
func (l *StockLevel) IsLow() bool {
	return l.CurrentQuantity <= l.MinimumQuantity
}
