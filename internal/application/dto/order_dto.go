package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest body para POST /order. UserID solo lo puede fijar un admin.
type CreateOrderRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UserID    string `json:"user_id,omitempty"`
}

// UpdateOrderRequest edición parcial de un pedido.
type UpdateOrderRequest struct {
	ProductID *string `json:"product_id"`
	Quantity  *int    `json:"quantity"`
	Status    *string `json:"status"`
	UserID    *string `json:"user_id"`
}

// OrderResponse salida de un pedido.
type OrderResponse struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	UserID     string          `json:"user_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// OrderListResponse lista paginada de pedidos.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}
