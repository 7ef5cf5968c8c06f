package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas). Las clases base definen la taxonomía;
// los errores específicos las envuelven para que errors.Is funcione con ambos niveles.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrUnauthorized      = errors.New("no autenticado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrNegativeStock     = errors.New("la reversión dejaría el stock en negativo")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
)

// Errores específicos.
var (
	ErrProductNotFound    = fmt.Errorf("%w: producto", ErrNotFound)
	ErrCategoryNotFound   = fmt.Errorf("%w: categoría", ErrNotFound)
	ErrSupplierNotFound   = fmt.Errorf("%w: proveedor", ErrNotFound)
	ErrMovementNotFound   = fmt.Errorf("%w: movimiento", ErrNotFound)
	ErrLevelNotFound      = fmt.Errorf("%w: nivel de stock", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("%w: pedido", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: usuario", ErrNotFound)
	ErrTargetUserNotFound = fmt.Errorf("%w: usuario destino", ErrNotFound)

	ErrInvalidQuantity = fmt.Errorf("%w: la cantidad debe ser positiva", ErrInvalidInput)

	ErrDuplicate          = fmt.Errorf("%w: recurso duplicado", ErrConflict)
	ErrEmailAlreadyExists = fmt.Errorf("%w: el email ya está registrado", ErrConflict)
	ErrLevelAlreadyExists = fmt.Errorf("%w: el producto ya tiene nivel de stock", ErrConflict)
	ErrInUse              = fmt.Errorf("%w: el recurso está referenciado", ErrConflict)

	ErrInvalidCredential = fmt.Errorf("%w: credencial inválida", ErrUnauthorized)
	ErrUnknownPrincipal  = fmt.Errorf("%w: el usuario del token no existe", ErrUnauthorized)
	ErrInactiveUser      = fmt.Errorf("%w: usuario inactivo", ErrUnauthorized)
)

// Códigos estables de denegación del guard de autorización.
const (
	ReasonForbiddenRole = "forbidden_role"
	ReasonNotOwner      = "not_owner"
)

// DeniedError denegación de autorización con código de motivo estable.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "acceso denegado: " + e.Reason
}

// Unwrap permite errors.Is(err, ErrForbidden).
func (e *DeniedError) Unwrap() error { return ErrForbidden }

// Deny construye un DeniedError.
func Deny(reason string) error {
	return &DeniedError{Reason: reason}
}

// DenyReason devuelve el motivo si err es una denegación.
func DenyReason(err error) (string, bool) {
	var d *DeniedError
	if errors.As(err, &d) {
		return d.Reason, true
	}
	return "", false
}
