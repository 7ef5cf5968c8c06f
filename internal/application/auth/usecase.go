package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger-api/pkg/jwt"
)

const minPasswordLen = 8

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// AuthUseCase casos de uso de autenticación: registro, login y resolución del principal.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
	now      func() time.Time
}

// NewAuthUseCase construye el caso de uso de auth. El secreto se inyecta una vez y no cambia.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg, now: time.Now}
}

// NormalizeEmail recorta, pasa a minúsculas y valida el formato.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidInput
	}
	return email, nil
}

// HashPassword valida la longitud mínima y devuelve el hash bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", domain.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RegisterUser crea un usuario no-admin. Devuelve ErrEmailAlreadyExists si el email ya existe.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	occupation := strings.TrimSpace(in.Occupation)
	if occupation == "" {
		occupation = entity.OccupationPacker
	}
	if !entity.ValidOccupation(occupation) {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		Occupation:   occupation,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    uc.now(),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Email desconocido y password incorrecto producen el mismo error.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrInvalidCredential
	}
	if !user.Active {
		return nil, domain.ErrInactiveUser
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Role(), uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: uc.now().Add(time.Duration(uc.jwtCfg.ExpMinutes) * time.Minute).UTC(),
		User:      *toUserResponse(user),
	}, nil
}

// Resolve valida el token y resuelve el principal releyendo el usuario: el rol y el estado
// vienen siempre de la base de datos, no de los claims.
func (uc *AuthUseCase) Resolve(ctx context.Context, token string) (authz.Principal, error) {
	claims, err := jwt.Parse(uc.jwtCfg.Secret, token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return authz.Principal{}, errors.Join(domain.ErrInvalidCredential, err)
		}
		return authz.Principal{}, domain.ErrInvalidCredential
	}
	user, err := uc.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return authz.Principal{}, err
	}
	if user == nil {
		return authz.Principal{}, domain.ErrUnknownPrincipal
	}
	if !user.Active {
		return authz.Principal{}, domain.ErrInactiveUser
	}
	return authz.Principal{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Admin:  user.Admin,
		Active: user.Active,
	}, nil
}

// Me devuelve el usuario del principal.
func (uc *AuthUseCase) Me(ctx context.Context, p authz.Principal) (*dto.UserResponse, error) {
	user, err := uc.userRepo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnknownPrincipal
	}
	return toUserResponse(user), nil
}

// EnsureBootstrapAdmin crea el admin inicial si el email no existe. Devuelve true si lo creó.
func (uc *AuthUseCase) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return false, err
	}
	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &entity.User{
		ID:           uuid.New().String(),
		Occupation:   entity.OccupationSystemAdmin,
		Name:         "Administrador",
		Email:        email,
		PasswordHash: hash,
		Admin:        true,
		Active:       true,
		CreatedAt:    uc.now(),
	}
	if err := uc.userRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
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
