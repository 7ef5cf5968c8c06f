package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
)

// OrderFilter filtros de listado. UserID vacío = todos los usuarios.
type OrderFilter struct {
	UserID string
	Status entity.OrderStatus
	Limit  int
	Offset int
}

// OrderRepository define el puerto de persistencia para Order.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	// Update escribe el pedido solo si su estado persistido sigue siendo expected.
	// Si otro escritor lo cambió antes devuelve ErrInvalidTransition.
	Update(ctx context.Context, order *entity.Order, expected entity.OrderStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error)
}
