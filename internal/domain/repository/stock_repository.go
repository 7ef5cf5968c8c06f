package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
)

// StockLevelRepository define el puerto del agregado de stock por producto.
// Las operaciones de escritura están pensadas para ejecutarse dentro de una transacción.
type StockLevelRepository interface {
	GetByID(ctx context.Context, id string) (*entity.StockLevel, error)
	GetByProduct(ctx context.Context, productID string) (*entity.StockLevel, error)
	// GetByProductForUpdate obtiene el nivel y bloquea la fila (SELECT FOR UPDATE).
	GetByProductForUpdate(ctx context.Context, productID string) (*entity.StockLevel, error)
	// Create inserta un nivel; ErrLevelAlreadyExists si el producto ya tiene uno.
	Create(ctx context.Context, level *entity.StockLevel) error
	// CreateIfAbsent inserta el nivel solo si no existe (ON CONFLICT DO NOTHING).
	CreateIfAbsent(ctx context.Context, level *entity.StockLevel) error
	// Increment suma delta (>0) a current_quantity y devuelve el nivel resultante.
	Increment(ctx context.Context, productID string, delta int) (*entity.StockLevel, error)
	// DecrementIfAvailable resta qty solo si current_quantity >= qty.
	// Devuelve (nil, nil) si la condición no se cumple (cero filas afectadas).
	DecrementIfAvailable(ctx context.Context, productID string, qty int) (*entity.StockLevel, error)
	// UpdateConfig actualiza minimum, maximum y location (nunca current_quantity).
	UpdateConfig(ctx context.Context, level *entity.StockLevel) error
	List(ctx context.Context, limit, offset int) ([]*entity.StockLevel, error)
	// ListLow devuelve los niveles con current_quantity <= minimum_quantity.
	ListLow(ctx context.Context) ([]*entity.StockLevel, error)
}

// MovementFilter filtros para listar movimientos.
type MovementFilter struct {
	ProductID string
	Limit     int
	Offset    int
}

// StockMovementRepository define el puerto del ledger append-only.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// GetByIDForUpdate bloquea el movimiento para evitar reversiones concurrentes.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.StockMovement, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	// SignedSum devuelve Σ(in) − Σ(out) de los movimientos del producto.
	SignedSum(ctx context.Context, productID string) (int, error)
}
