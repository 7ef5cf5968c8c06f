package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

// CreateLevelInput creación explícita de un nivel.
type CreateLevelInput struct {
	ProductID       string
	InitialQuantity int
	MinimumQuantity int
	MaximumQuantity *int
	Location        string
}

// UpdateLevelInput edición directa de un nivel. Los punteros nil no se modifican.
// Un cambio de CurrentQuantity se registra como movimiento sintético de ajuste.
type UpdateLevelInput struct {
	CurrentQuantity *int
	MinimumQuantity *int
	MaximumQuantity *int
	ClearMaximum    bool
	Location        *string
}

func validBounds(minQty int, maxQty *int) error {
	if minQty < 0 || minQty > entity.MaxQuantity {
		return domain.ErrInvalidInput
	}
	if maxQty != nil && (*maxQty < minQty || *maxQty > entity.MaxQuantity) {
		return domain.ErrInvalidInput
	}
	return nil
}

// CreateLevel crea el nivel de un producto. Falla con ErrLevelAlreadyExists si ya existe.
// InitialQuantity > 0 se registra como entrada de ajuste para mantener el invariante.
func (uc *LedgerUseCase) CreateLevel(ctx context.Context, actor authz.Principal, in CreateLevelInput) (*dto.LevelUpdateResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockWrite, ""); err != nil {
		return nil, err
	}
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.ProductID == "" || in.InitialQuantity < 0 || in.InitialQuantity > entity.MaxQuantity {
		return nil, domain.ErrInvalidInput
	}
	if err := validBounds(in.MinimumQuantity, in.MaximumQuantity); err != nil {
		return nil, err
	}

	now := uc.now()
	var (
		level *entity.StockLevel
		adj   *entity.StockMovement
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
		level = &entity.StockLevel{
			ID:              uuid.New().String(),
			ProductID:       in.ProductID,
			MinimumQuantity: in.MinimumQuantity,
			MaximumQuantity: in.MaximumQuantity,
			Location:        strings.TrimSpace(in.Location),
			UpdatedAt:       now,
		}
		if err := levelRepo.Create(ctx, level); err != nil {
			return err
		}
		if in.InitialQuantity == 0 {
			return nil
		}
		level, adj, err = adjustTo(ctx, movRepo, levelRepo, level, in.InitialQuantity, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if adj != nil {
		uc.publish(ctx, EventMovementApplied, adj, level, actor.ID)
	}
	return &dto.LevelUpdateResponse{Level: *toLevelResponse(level), Adjustment: toMovementResponse(adj)}, nil
}

// UpdateLevel edita la configuración de un nivel (mínimo, máximo, ubicación). Si se pide un
// current_quantity distinto, la diferencia se registra como movimiento de ajuste en la misma
// transacción: la edición directa nunca rompe el invariante del ledger.
func (uc *LedgerUseCase) UpdateLevel(ctx context.Context, actor authz.Principal, levelID string, in UpdateLevelInput) (*dto.LevelUpdateResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockWrite, ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(levelID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.CurrentQuantity != nil && (*in.CurrentQuantity < 0 || *in.CurrentQuantity > entity.MaxQuantity) {
		return nil, domain.ErrInvalidQuantity
	}

	now := uc.now()
	var (
		level *entity.StockLevel
		adj   *entity.StockMovement
	)
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		levelRepo repository.StockLevelRepository,
		_ repository.ProductRepository,
	) error {
		found, err := levelRepo.GetByID(ctx, levelID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrLevelNotFound
		}
		// Serializa contra apply/reverse del mismo producto
		level, err = levelRepo.GetByProductForUpdate(ctx, found.ProductID)
		if err != nil {
			return err
		}
		if level == nil {
			return domain.ErrLevelNotFound
		}

		if in.MinimumQuantity != nil {
			level.MinimumQuantity = *in.MinimumQuantity
		}
		if in.ClearMaximum {
			level.MaximumQuantity = nil
		} else if in.MaximumQuantity != nil {
			v := *in.MaximumQuantity
			level.MaximumQuantity = &v
		}
		if in.Location != nil {
			level.Location = strings.TrimSpace(*in.Location)
		}
		if err := validBounds(level.MinimumQuantity, level.MaximumQuantity); err != nil {
			return err
		}
		level.UpdatedAt = now
		if err := levelRepo.UpdateConfig(ctx, level); err != nil {
			return err
		}
		if in.CurrentQuantity == nil || *in.CurrentQuantity == level.CurrentQuantity {
			return nil
		}
		level, adj, err = adjustTo(ctx, movRepo, levelRepo, level, *in.CurrentQuantity, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if adj != nil {
		uc.publish(ctx, EventMovementApplied, adj, level, actor.ID)
	}
	return &dto.LevelUpdateResponse{Level: *toLevelResponse(level), Adjustment: toMovementResponse(adj)}, nil
}

// adjustTo lleva el nivel a target registrando un movimiento sintético in/out por la diferencia.
func adjustTo(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	level *entity.StockLevel,
	target int,
	actorID string,
) (*entity.StockLevel, *entity.StockMovement, error) {
	delta := target - level.CurrentQuantity
	if delta == 0 {
		return level, nil, nil
	}
	movType := entity.MovementTypeIn
	qty := delta
	if delta < 0 {
		movType = entity.MovementTypeOut
		qty = -delta
	}
	updated, err := applyDelta(ctx, levelRepo, level.ProductID, movType, qty, domain.ErrInsufficientStock)
	if err != nil {
		return nil, nil, err
	}
	mov := &entity.StockMovement{
		ID:            uuid.New().String(),
		ProductID:     level.ProductID,
		Type:          movType,
		Quantity:      qty,
		ReferenceType: entity.ReferenceAdjustment,
		UserID:        actorID,
		CreatedAt:     updated.UpdatedAt,
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, nil, err
	}
	return updated, mov, nil
}

// GetLevelByProduct devuelve el nivel de un producto.
func (uc *LedgerUseCase) GetLevelByProduct(ctx context.Context, actor authz.Principal, productID string) (*dto.LevelResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockRead, ""); err != nil {
		return nil, err
	}
	level, err := uc.levelRepo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, domain.ErrLevelNotFound
	}
	return toLevelResponse(level), nil
}

// ListLevels lista los niveles de stock con paginación.
func (uc *LedgerUseCase) ListLevels(ctx context.Context, actor authz.Principal, page dto.PageRequest) (*dto.LevelListResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockRead, ""); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.levelRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LevelResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *toLevelResponse(l))
	}
	return &dto.LevelListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

// GetMovement devuelve un movimiento por ID.
func (uc *LedgerUseCase) GetMovement(ctx context.Context, actor authz.Principal, id string) (*dto.MovementResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockRead, ""); err != nil {
		return nil, err
	}
	mov, err := uc.movRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, domain.ErrMovementNotFound
	}
	return toMovementResponse(mov), nil
}

// ListMovements lista movimientos (más recientes primero), opcionalmente por producto.
func (uc *LedgerUseCase) ListMovements(ctx context.Context, actor authz.Principal, productID string, page dto.PageRequest) (*dto.MovementListResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockRead, ""); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.movRepo.List(ctx, repository.MovementFilter{
		ProductID: strings.TrimSpace(productID),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *toMovementResponse(m))
	}
	return &dto.MovementListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

// VerifyLevel recalcula Σ movimientos del producto y lo compara con el nivel materializado.
func (uc *LedgerUseCase) VerifyLevel(ctx context.Context, actor authz.Principal, productID string) (*dto.LedgerCheckResponse, error) {
	if err := authz.Authorize(actor, authz.ActionStockRead, ""); err != nil {
		return nil, err
	}
	level, err := uc.levelRepo.GetByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, domain.ErrLevelNotFound
	}
	sum, err := uc.movRepo.SignedSum(ctx, productID)
	if err != nil {
		return nil, err
	}
	if sum != level.CurrentQuantity {
		uc.log.Error().
			Str("product_id", productID).
			Int("current_quantity", level.CurrentQuantity).
			Int("movements_sum", sum).
			Msg("nivel de stock inconsistente con el ledger")
	}
	return &dto.LedgerCheckResponse{
		ProductID:       productID,
		CurrentQuantity: level.CurrentQuantity,
		MovementsSum:    sum,
		Consistent:      sum == level.CurrentQuantity,
	}, nil
}

func toLevelResponse(l *entity.StockLevel) *dto.LevelResponse {
	if l == nil {
		return nil
	}
	return &dto.LevelResponse{
		ID:              l.ID,
		ProductID:       l.ProductID,
		CurrentQuantity: l.CurrentQuantity,
		MinimumQuantity: l.MinimumQuantity,
		MaximumQuantity: l.MaximumQuantity,
		Location:        l.Location,
		Low:             l.IsLow(),
		UpdatedAt:       l.UpdatedAt,
	}
}
