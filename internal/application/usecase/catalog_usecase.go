package usecase

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

// CatalogUseCase CRUD de categorías y proveedores. Un registro con productos asociados
// no se puede eliminar.
type CatalogUseCase struct {
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(
	categoryRepo repository.CategoryRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
) *CatalogUseCase {
	return &CatalogUseCase{categoryRepo: categoryRepo, supplierRepo: supplierRepo, productRepo: productRepo}
}

// ── Categorías ────────────────────────────────────────────────────────────────

func (uc *CatalogUseCase) CreateCategory(ctx context.Context, actor authz.Principal, in dto.CategoryRequest) (*dto.CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return nil, err
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	if existing, err := uc.categoryRepo.GetByName(ctx, name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrDuplicate
	}
	c := &entity.Category{ID: uuid.New().String(), Name: name, Description: strings.TrimSpace(in.Description)}
	if err := uc.categoryRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return toCategoryResponse(c), nil
}

func (uc *CatalogUseCase) GetCategory(ctx context.Context, actor authz.Principal, id string) (*dto.CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogRead, ""); err != nil {
		return nil, err
	}
	c, err := uc.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCategoryNotFound
	}
	return toCategoryResponse(c), nil
}

func (uc *CatalogUseCase) UpdateCategory(ctx context.Context, actor authz.Principal, id string, in dto.CategoryRequest) (*dto.CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return nil, err
	}
	c, err := uc.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCategoryNotFound
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	if other, err := uc.categoryRepo.GetByName(ctx, name); err != nil {
		return nil, err
	} else if other != nil && other.ID != c.ID {
		return nil, domain.ErrDuplicate
	}
	c.Name = name
	c.Description = strings.TrimSpace(in.Description)
	if err := uc.categoryRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return toCategoryResponse(c), nil
}

func (uc *CatalogUseCase) ListCategories(ctx context.Context, actor authz.Principal, page dto.PageRequest) ([]dto.CategoryResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogRead, ""); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.categoryRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, *toCategoryResponse(c))
	}
	return out, nil
}

func (uc *CatalogUseCase) DeleteCategory(ctx context.Context, actor authz.Principal, id string) error {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return err
	}
	c, err := uc.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.ErrCategoryNotFound
	}
	n, err := uc.productRepo.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrInUse
	}
	return uc.categoryRepo.Delete(ctx, id)
}

// ── Proveedores ───────────────────────────────────────────────────────────────

func (uc *CatalogUseCase) CreateSupplier(ctx context.Context, actor authz.Principal, in dto.SupplierRequest) (*dto.SupplierResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return nil, err
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	if existing, err := uc.supplierRepo.GetByName(ctx, name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrDuplicate
	}
	s := &entity.Supplier{ID: uuid.New().String(), Name: name, ContactInfo: strings.TrimSpace(in.ContactInfo)}
	if err := uc.supplierRepo.Create(ctx, s); err != nil {
		return nil, err
	}
	return toSupplierResponse(s), nil
}

func (uc *CatalogUseCase) GetSupplier(ctx context.Context, actor authz.Principal, id string) (*dto.SupplierResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogRead, ""); err != nil {
		return nil, err
	}
	s, err := uc.supplierRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrSupplierNotFound
	}
	return toSupplierResponse(s), nil
}

func (uc *CatalogUseCase) UpdateSupplier(ctx context.Context, actor authz.Principal, id string, in dto.SupplierRequest) (*dto.SupplierResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return nil, err
	}
	s, err := uc.supplierRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrSupplierNotFound
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return nil, err
	}
	if other, err := uc.supplierRepo.GetByName(ctx, name); err != nil {
		return nil, err
	} else if other != nil && other.ID != s.ID {
		return nil, domain.ErrDuplicate
	}
	s.Name = name
	s.ContactInfo = strings.TrimSpace(in.ContactInfo)
	if err := uc.supplierRepo.Update(ctx, s); err != nil {
		return nil, err
	}
	return toSupplierResponse(s), nil
}

func (uc *CatalogUseCase) ListSuppliers(ctx context.Context, actor authz.Principal, page dto.PageRequest) ([]dto.SupplierResponse, error) {
	if err := authz.Authorize(actor, authz.ActionCatalogRead, ""); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.supplierRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupplierResponse, 0, len(list))
	for _, s := range list {
		out = append(out, *toSupplierResponse(s))
	}
	return out, nil
}

func (uc *CatalogUseCase) DeleteSupplier(ctx context.Context, actor authz.Principal, id string) error {
	if err := authz.Authorize(actor, authz.ActionCatalogWrite, ""); err != nil {
		return err
	}
	s, err := uc.supplierRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return domain.ErrSupplierNotFound
	}
	n, err := uc.productRepo.CountBySupplier(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrInUse
	}
	return uc.supplierRepo.Delete(ctx, id)
}

func toCategoryResponse(c *entity.Category) *dto.CategoryResponse {
	return &dto.CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description}
}

func toSupplierResponse(s *entity.Supplier) *dto.SupplierResponse {
	return &dto.SupplierResponse{ID: s.ID, Name: s.Name, ContactInfo: s.ContactInfo}
}
