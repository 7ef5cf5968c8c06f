// Package order implementa el flujo de pedidos: total derivado (precio × cantidad),
// máquina de estados y visibilidad por propiedad.
package order

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
)

// UseCase casos de uso de pedidos.
type UseCase struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

// NewUseCase construye el caso de uso inyectando sus repositorios.
func NewUseCase(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) *UseCase {
	return &UseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// CreateInput entrada para crear un pedido. UserID solo lo puede fijar un admin.
type CreateInput struct {
	ProductID string
	Quantity  int
	UserID    string
}

// UpdateInput edición parcial. Los nil no se modifican.
type UpdateInput struct {
	ProductID *string
	Quantity  *int
	Status    *string
	UserID    *string
}

// Create crea un pedido PENDING con total_price = precio × cantidad.
func (uc *UseCase) Create(ctx context.Context, actor authz.Principal, in CreateInput) (*dto.OrderResponse, error) {
	if err := authz.Authorize(actor, authz.ActionOrderCreate, ""); err != nil {
		return nil, err
	}
	if !entity.ValidQuantity(in.Quantity) {
		return nil, domain.ErrInvalidQuantity
	}

	owner := actor.ID
	target := strings.TrimSpace(in.UserID)
	if target != "" && target != actor.ID {
		if err := authz.Authorize(actor, authz.ActionOrderCreateOther, target); err != nil {
			return nil, err
		}
		if err := uc.ensureUser(ctx, target); err != nil {
			return nil, err
		}
		owner = target
	}

	product, err := uc.product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	total := entity.ComputeTotal(product.Price, in.Quantity)
	if !entity.ValidTotal(total) {
		return nil, domain.ErrInvalidInput
	}

	now := uc.now()
	o := &entity.Order{
		ID:         uuid.New().String(),
		Status:     entity.OrderStatusPending,
		UserID:     owner,
		ProductID:  product.ID,
		Quantity:   in.Quantity,
		TotalPrice: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// Get devuelve un pedido si el actor es su dueño o admin.
func (uc *UseCase) Get(ctx context.Context, actor authz.Principal, id string) (*dto.OrderResponse, error) {
	o, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionOrderRead, o.UserID); err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// List devuelve los pedidos visibles para el actor: todos si es admin, los propios si no.
// Un admin puede filtrar por userID; para no-admins el filtro se ignora.
func (uc *UseCase) List(ctx context.Context, actor authz.Principal, userID, status string, page dto.PageRequest) (*dto.OrderListResponse, error) {
	if actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	page.DefaultPage()
	filter := repository.OrderFilter{Limit: page.Limit, Offset: page.Offset}
	if authz.Authorize(actor, authz.ActionOrderListAll, "") == nil {
		filter.UserID = strings.TrimSpace(userID)
	} else {
		filter.UserID = actor.ID
	}
	if status != "" {
		st := entity.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
		if !st.Valid() {
			return nil, domain.ErrInvalidInput
		}
		filter.Status = st
	}

	list, err := uc.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, *toOrderResponse(o))
	}
	return &dto.OrderListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

// Update edita un pedido. Producto y cantidad solo mientras está PENDING (recalcula el total);
// el estado y la reasignación de dueño son exclusivos de admin.
func (uc *UseCase) Update(ctx context.Context, actor authz.Principal, id string, in UpdateInput) (*dto.OrderResponse, error) {
	o, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionOrderUpdate, o.UserID); err != nil {
		return nil, err
	}
	prev := o.Status

	if in.ProductID != nil || in.Quantity != nil {
		if o.Status != entity.OrderStatusPending {
			return nil, domain.ErrConflict
		}
		productID := o.ProductID
		if in.ProductID != nil {
			productID = *in.ProductID
		}
		qty := o.Quantity
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		if !entity.ValidQuantity(qty) {
			return nil, domain.ErrInvalidQuantity
		}
		product, err := uc.product(ctx, productID)
		if err != nil {
			return nil, err
		}
		total := entity.ComputeTotal(product.Price, qty)
		if !entity.ValidTotal(total) {
			return nil, domain.ErrInvalidInput
		}
		o.ProductID = product.ID
		o.Quantity = qty
		o.TotalPrice = total
	}

	if in.UserID != nil && *in.UserID != o.UserID {
		if err := authz.Authorize(actor, authz.ActionOrderReassign, o.UserID); err != nil {
			return nil, err
		}
		if err := uc.ensureUser(ctx, *in.UserID); err != nil {
			return nil, err
		}
		o.UserID = *in.UserID
	}

	if in.Status != nil {
		next := entity.OrderStatus(strings.ToUpper(strings.TrimSpace(*in.Status)))
		if !next.Valid() {
			return nil, domain.ErrInvalidInput
		}
		if next != o.Status {
			// la cancelación tiene su propia ruta para dueños; aquí todo cambio de estado es de admin
			if err := authz.Authorize(actor, authz.ActionOrderSetStatus, o.UserID); err != nil {
				return nil, err
			}
			if !entity.CanTransition(o.Status, next) {
				return nil, domain.ErrInvalidTransition
			}
			o.Status = next
		}
	}

	o.UpdatedAt = uc.now()
	if err := uc.orderRepo.Update(ctx, o, prev); err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// Cancel cancela un pedido no terminal. Permitido al dueño y a admins.
func (uc *UseCase) Cancel(ctx context.Context, actor authz.Principal, id string) (*dto.OrderResponse, error) {
	o, err := uc.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Authorize(actor, authz.ActionOrderCancel, o.UserID); err != nil {
		return nil, err
	}
	if !entity.CanTransition(o.Status, entity.OrderStatusCanceled) {
		return nil, domain.ErrInvalidTransition
	}
	prev := o.Status
	o.Status = entity.OrderStatusCanceled
	o.UpdatedAt = uc.now()
	if err := uc.orderRepo.Update(ctx, o, prev); err != nil {
		return nil, err
	}
	return toOrderResponse(o), nil
}

// Delete elimina un pedido (solo admin).
func (uc *UseCase) Delete(ctx context.Context, actor authz.Principal, id string) error {
	o, err := uc.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Authorize(actor, authz.ActionOrderDelete, o.UserID); err != nil {
		return err
	}
	return uc.orderRepo.Delete(ctx, o.ID)
}

func (uc *UseCase) load(ctx context.Context, id string) (*entity.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidInput
	}
	o, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (uc *UseCase) product(ctx context.Context, id string) (*entity.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	p, err := uc.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (uc *UseCase) ensureUser(ctx context.Context, id string) error {
	u, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrTargetUserNotFound
	}
	return nil
}

func toOrderResponse(o *entity.Order) *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:         o.ID,
		Status:     string(o.Status),
		UserID:     o.UserID,
		ProductID:  o.ProductID,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
