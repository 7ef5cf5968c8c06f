package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger-api/pkg/logger"
)

const maxReferenceTypeLen = 20

// LedgerUseCase es el motor del ledger de stock: aplica y revierte movimientos manteniendo
// current_quantity == Σ movimientos con signo, y administra la configuración de los niveles.
type LedgerUseCase struct {
	txRunner    TxRunner
	levelRepo   repository.StockLevelRepository
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
	publisher   EventPublisher
	policy      Policy
	log         *logger.Logger
	now         func() time.Time
}

// NewLedgerUseCase construye el motor. publisher y log pueden ser nil.
func NewLedgerUseCase(
	txRunner TxRunner,
	levelRepo repository.StockLevelRepository,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	publisher EventPublisher,
	policy Policy,
	log *logger.Logger,
) *LedgerUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{
		txRunner:    txRunner,
		levelRepo:   levelRepo,
		movRepo:     movRepo,
		productRepo: productRepo,
		publisher:   publisher,
		policy:      policy,
		log:         log.Component("ledger"),
		now:         time.Now,
	}
}

// MovementInput entrada para aplicar un movimiento.
type MovementInput struct {
	ProductID     string
	Type          string
	Quantity      int
	ReferenceType string
}

func (in *MovementInput) normalize() error {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.ReferenceType = strings.TrimSpace(in.ReferenceType)
	if in.ProductID == "" || !entity.ValidMovementType(in.Type) {
		return domain.ErrInvalidInput
	}
	if !entity.ValidQuantity(in.Quantity) {
		return domain.ErrInvalidQuantity
	}
	if len(in.ReferenceType) > maxReferenceTypeLen {
		return domain.ErrInvalidInput
	}
	return nil
}

// ApplyMovement registra un movimiento y actualiza el nivel en una única transacción.
// Si el nivel no existe se crea con base cero. Una salida sin stock suficiente falla con
// ErrInsufficientStock y no persiste nada.
func (uc *LedgerUseCase) ApplyMovement(ctx context.Context, actor authz.Principal, in MovementInput) (*dto.MovementResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockWrite, ""); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		mov   *entity.StockMovement
		level *entity.StockLevel
	)
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		productRepo repository.ProductRepository,
	) error {
		product, err := productRepo.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		if err := levelRepo.CreateIfAbsent(ctx, uc.implicitLevel(in.ProductID, now)); err != nil {
			return err
		}
		level, err = applyDelta(ctx, levelRepo, in.ProductID, in.Type, in.Quantity, domain.ErrInsufficientStock)
		if err != nil {
			return err
		}
		mov = &entity.StockMovement{
			ID:            uuid.New().String(),
			ProductID:     in.ProductID,
			Type:          in.Type,
			Quantity:      in.Quantity,
			ReferenceType: in.ReferenceType,
			UserID:        actor.ID,
			CreatedAt:     now,
		}
		return movRepo.Create(ctx, mov)
	})
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, EventMovementApplied, mov, level, actor.ID)
	return toMovementResponse(mov), nil
}

// ReverseMovement elimina un movimiento aplicado ajustando el nivel de forma inversa.
// Revertir una entrada que dejaría el stock negativo falla con ErrNegativeStock y el
// movimiento se conserva.
func (uc *LedgerUseCase) ReverseMovement(ctx context.Context, actor authz.Principal, movementID string) error {
	if err := authz.Authorize(actor, authz.ActionStockWrite, ""); err != nil {
		return err
	}
	if strings.TrimSpace(movementID) == "" {
		return domain.ErrInvalidInput
	}

	var (
		mov   *entity.StockMovement
		level *entity.StockLevel
	)
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.ProductRepository,
	) error {
		var err error
		// Bloquea el movimiento: dos reversiones concurrentes del mismo registro se serializan
		mov, err = movRepo.GetByIDForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if mov == nil {
			return domain.ErrMovementNotFound
		}
		level, err = applyDelta(ctx, levelRepo, mov.ProductID, inverseType(mov.Type), mov.Quantity, domain.ErrNegativeStock)
		if err != nil {
			return err
		}
		return movRepo.Delete(ctx, mov.ID)
	})
	if err != nil {
		return err
	}

	uc.publish(ctx, EventMovementReversed, mov, level, actor.ID)
	return nil
}

// applyDelta suma o resta qty al nivel del producto. La resta es condicional
// (current_quantity >= qty) y devuelve shortErr si no se cumple.
func applyDelta(
	ctx context.Context,
	levelRepo repository.StockLevelRepository,
	productID, movementType string,
	qty int,
	shortErr error,
) (*entity.StockLevel, error) {
	if movementType == entity.MovementTypeIn {
		return levelRepo.Increment(ctx, productID, qty)
	}
	level, err := levelRepo.DecrementIfAvailable(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, shortErr
	}
	return level, nil
}

func inverseType(t string) string {
	if t == entity.MovementTypeIn {
		return entity.MovementTypeOut
	}
	return entity.MovementTypeIn
}

func (uc *LedgerUseCase) implicitLevel(productID string, now time.Time) *entity.StockLevel {
	level := &entity.StockLevel{
		ID:        uuid.New().String(),
		ProductID: productID,
		UpdatedAt: now,
	}
	if uc.policy.DefaultMaxQuantity > 0 {
		maxQty := uc.policy.DefaultMaxQuantity
		level.MaximumQuantity = &maxQty
	}
	return level
}

// publish emite el evento del movimiento y, si el nivel quedó bajo, el de alerta.
// Se ejecuta después del commit: un fallo solo se registra.
func (uc *LedgerUseCase) publish(ctx context.Context, eventType string, mov *entity.StockMovement, level *entity.StockLevel, actorID string) {
	if mov == nil || level == nil {
		return
	}
	base := Event{
		ProductID:       mov.ProductID,
		MovementID:      mov.ID,
		MovementType:    mov.Type,
		Quantity:        mov.Quantity,
		CurrentQuantity: level.CurrentQuantity,
		MinimumQuantity: level.MinimumQuantity,
		ActorID:         actorID,
		OccurredAt:      uc.now(),
	}
	events := []Event{withType(base, eventType)}
	if level.IsLow() {
		events = append(events, withType(base, EventLevelLow))
	}
	for _, ev := range events {
		if err := uc.publisher.Publish(ctx, ev); err != nil {
			uc.log.Warn().Err(err).
				Str("event", ev.Type).
				Str("product_id", ev.ProductID).
				Msg("no se pudo publicar evento de stock")
		}
	}
}

func withType(e Event, t string) Event {
	e.Type = t
	return e
}

func toMovementResponse(m *entity.StockMovement) *dto.MovementResponse {
	if m == nil {
		return nil
	}
	return &dto.MovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		MovementType:  m.Type,
		Quantity:      m.Quantity,
		ReferenceType: m.ReferenceType,
		UserID:        m.UserID,
		CreatedAt:     m.CreatedAt,
	}
}
