package entity

import "time"

// Ocupaciones válidas para User.
const (
	OccupationPacker               = "packer"
	OccupationSystemAdmin          = "system_admin"
	OccupationLogisticsCoordinator = "logistics_coordinator"
)

// Roles derivados del flag Admin (se incluyen en el token como dato informativo).
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User representa un usuario del sistema. Raíz de la propiedad de pedidos y movimientos.
type User struct {
	ID           string
	Occupation   string
	Name         string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Admin        bool
	Active       bool
	CreatedAt    time.Time
}

// Role devuelve el rol textual del usuario.
func (u *User) Role() string {
	if u.Admin {
		return RoleAdmin
	}
	return RoleUser
}

// ValidOccupation indica si la ocupación es una de las soportadas.
func ValidOccupation(o string) bool {
	switch o {
	case OccupationPacker, OccupationSystemAdmin, OccupationLogisticsCoordinator:
		return true
	}
	return false
}
