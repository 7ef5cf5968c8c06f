package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// maxMoney límite de una columna NUMERIC(14,2).
var maxMoney = decimal.New(1, 12)

// ValidPrice indica si p es positivo, tiene a lo sumo dos decimales y cabe en NUMERIC(14,2).
func ValidPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.Equal(p.Round(2)) && p.LessThan(maxMoney)
}

// Product representa un producto del catálogo. Lo referencian StockLevel, StockMovement y Order.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal // precio de venta, siempre positivo
	CategoryID  string
	SupplierID  string
	CreatedAt   time.Time
}
