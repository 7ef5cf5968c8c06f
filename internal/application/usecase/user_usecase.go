package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger-api/internal/application/auth"
	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

// UserUseCase administración de usuarios (solo admin).
type UserUseCase struct {
	repo repository.UserRepository
}

// NewUserUseCase construye el caso de uso con el puerto de persistencia.
func NewUserUseCase(repo repository.UserRepository) *UserUseCase {
	return &UserUseCase{repo: repo}
}

// Create crea un usuario; a diferencia del registro público puede fijar Admin.
func (uc *UserUseCase) Create(ctx context.Context, actor authz.Principal, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := authz.Authorize(actor, authz.ActionUserManage, ""); err != nil {
		return nil, err
	}
	email, err := auth.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || !entity.ValidOccupation(in.Occupation) {
		return nil, domain.ErrInvalidInput
	}
	if existing, err := uc.repo.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Occupation:   in.Occupation,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Admin:        in.Admin,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

// GetByID obtiene un usuario por ID.
func (uc *UserUseCase) GetByID(ctx context.Context, actor authz.Principal, id string) (*dto.UserResponse, error) {
	if err := authz.Authorize(actor, authz.ActionUserManage, ""); err != nil {
		return nil, err
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return entityToUserResponse(user), nil
}

// List lista usuarios con paginación.
func (uc *UserUseCase) List(ctx context.Context, actor authz.Principal, page dto.PageRequest) (*dto.UserListResponse, error) {
	if err := authz.Authorize(actor, authz.ActionUserManage, ""); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.UserResponse, 0, len(list))
	for _, u := range list {
		items = append(items, *entityToUserResponse(u))
	}
	return &dto.UserListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

// Update edita nombre, ocupación, estado y flag admin. Un admin no puede quitarse
// a sí mismo el flag admin ni desactivarse.
func (uc *UserUseCase) Update(ctx context.Context, actor authz.Principal, id string, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := authz.Authorize(actor, authz.ActionUserManage, ""); err != nil {
		return nil, err
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		user.Name = name
	}
	if in.Occupation != nil {
		if !entity.ValidOccupation(*in.Occupation) {
			return nil, domain.ErrInvalidInput
		}
		user.Occupation = *in.Occupation
	}
	if user.ID == actor.ID && ((in.Active != nil && !*in.Active) || (in.Admin != nil && !*in.Admin)) {
		return nil, domain.ErrConflict
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if in.Admin != nil {
		user.Admin = *in.Admin
	}
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return entityToUserResponse(user), nil
}

func entityToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:         u.ID,
		Occupation: u.Occupation,
		Name:       u.Name,
		Email:      u.Email,
		Admin:      u.Admin,
		Active:     u.Active,
		CreatedAt:  u.CreatedAt,
	}
}
