package usecase

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
	"github.com/jhoicas/inventario-ledger-api/pkg/textkey"
)

const maxNameLen = 200

// ProductUseCase casos de uso CRUD para productos. El stock se maneja vía movimientos.
type ProductUseCase struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(
	repo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	supplierRepo repository.SupplierRepository,
) *ProductUseCase {
	return &ProductUseCase{repo: repo, categoryRepo: categoryRepo, supplierRepo: supplierRepo}
}

func cleanName(name string) (string, error) {
	name = textkey.Clean(name)
	if name == "" || len([]rune(name)) > maxNameLen {
		return "", domain.ErrInvalidInput
	}
	return name, nil
}

// Create crea un nuevo producto. Name es único (sin distinguir mayúsculas) y Price > 0.
func (uc *ProductUseCase) Create(ctx context.Context, actor authz.Principal, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return nil, err
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	if !entity.ValidPrice(in.Price) {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	product := &entity.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		SupplierID:  strings.TrimSpace(in.SupplierID),
		CreatedAt:   time.Now(),
	}
	if err := uc.checkRefs(ctx, product); err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, actor authz.Principal, id string) (*dto.ProductResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogRead, ""); err != nil {
		return nil, err
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto (name, description, price, category, supplier).
func (uc *ProductUseCase) Update(ctx context.Context, actor authz.Principal, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return nil, err
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	if in.Name != nil {
		name, err := cleanName(*in.Name)
		if err != nil {
			return nil, err
		}
		if other, err := uc.repo.GetByName(ctx, name); err != nil {
			return nil, err
		} else if other != nil && other.ID != product.ID {
			return nil, domain.ErrDuplicate
		}
		product.Name = name
	}
	if in.Description != nil {
		product.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if !entity.ValidPrice(*in.Price) {
			return nil, domain.ErrInvalidInput
		}
		product.Price = *in.Price
	}
	if in.CategoryID != nil {
		product.CategoryID = strings.TrimSpace(*in.CategoryID)
	}
	if in.SupplierID != nil {
		product.SupplierID = strings.TrimSpace(*in.SupplierID)
	}
	if err := uc.checkRefs(ctx, product); err != nil {
		return nil, err
	}
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, actor authz.Principal, page dto.PageRequest) (*dto.ProductListResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogRead, ""); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Delete elimina un producto. Rechaza con ErrInUse si el ledger o algún pedido lo referencia.
func (uc *ProductUseCase) Delete(ctx context.Context, actor authz.Principal, id string) error {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return err
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}
	used, err := uc.repo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return domain.ErrInUse
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *ProductUseCase) checkRefs(ctx context.Context, p *entity.Product) error {
	if p.CategoryID != "" {
		c, err := uc.categoryRepo.GetByID(ctx, p.CategoryID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrCategoryNotFound
		}
	}
	if p.SupplierID != "" {
		s, err := uc.supplierRepo.GetByID(ctx, p.SupplierID)
		if err != nil {
			return err
		}
		if s == nil {
			return domain.ErrSupplierNotFound
		}
	}
	return nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		SupplierID:  p.SupplierID,
		CreatedAt:   p.CreatedAt,
	}
}
