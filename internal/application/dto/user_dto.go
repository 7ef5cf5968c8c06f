package dto

import "time"

// RegisterRequest entrada para registro público (siempre crea usuarios no-admin).
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Name       string `json:"name" validate:"omitempty,max=200"`
	Occupation string `json:"occupation" validate:"omitempty,oneof=packer system_admin logistics_coordinator"`
}

// CreateUserRequest entrada para que un admin cree usuarios (puede fijar Admin).
type CreateUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Occupation string `json:"occupation" validate:"required"`
	Admin      bool   `json:"admin"`
}

// UpdateUserRequest edición parcial de un usuario (admin).
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Occupation *string `json:"occupation"`
	Active     *bool   `json:"active"`
	Admin      *bool   `json:"admin"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID         string    `json:"id"`
	Occupation string    `json:"occupation"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Admin      bool      `json:"admin"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse salida con token JWT.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}
