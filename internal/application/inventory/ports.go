package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que la escritura del movimiento y la del nivel se confirmen o reviertan juntas.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Tipos de evento publicados tras el commit.
const (
	EventMovementApplied  = "stock.movement.applied"
	EventMovementReversed = "stock.movement.reversed"
	EventLevelLow         = "stock.level.low"
)

// Event hecho del ledger ya confirmado en la BD.
type Event struct {
	Type            string    `json:"type"`
	ProductID       string    `json:"product_id"`
	MovementID      string    `json:"movement_id,omitempty"`
	MovementType    string    `json:"movement_type,omitempty"`
	Quantity        int       `json:"quantity,omitempty"`
	CurrentQuantity int       `json:"current_quantity"`
	MinimumQuantity int       `json:"minimum_quantity"`
	ActorID         string    `json:"actor_id"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// EventPublisher publica eventos del ledger (Kafka en producción, no-op si no hay brokers).
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// ReportGenerator genera el reporte PDF de bajo stock.
type ReportGenerator interface {
	GenerateLowStockReport(ctx context.Context, alerts []dto.LowStockAlert, generatedAt time.Time) ([]byte, error)
}

// Policy parámetros del motor.
type Policy struct {
	// DefaultMaxQuantity máximo asignado a niveles creados implícitamente; 0 = sin máximo.
	DefaultMaxQuantity int
}
