// Package authz centraliza la política de autorización por rol y propiedad.
// Todas las operaciones que mutan estado consultan Authorize antes de tocar repositorios.
package authz

import "github.com/jhoicas/inventario-ledger-api/internal/domain"

// Principal identidad autenticada resuelta desde un bearer token.
type Principal struct {
	ID     string
	Email  string
	Name   string
	Admin  bool
	Active bool
}

// Action operación sujeta a autorización.
type Action string

const (
	ActionCatalogRead  Action = "catalog:read"
	ActionCatalogWrite Action = "catalog:write"

	ActionStockRead  Action = "stock:read"
	ActionStockWrite Action = "stock:write"

	ActionOrderCreate      Action = "order:create"
	ActionOrderCreateOther Action = "order:create_for_other"
	ActionOrderRead        Action = "order:read"
	ActionOrderUpdate      Action = "order:update"
	ActionOrderCancel      Action = "order:cancel"
	ActionOrderSetStatus   Action = "order:set_status"
	ActionOrderReassign    Action = "order:reassign"
	ActionOrderDelete      Action = "order:delete"
	ActionOrderListAll     Action = "order:list_all"

	ActionUserManage Action = "user:manage"
)

// acciones permitidas a no-admins; el valor indica si además exigen ser dueño del recurso.
var nonAdminActions = map[Action]bool{
	ActionCatalogRead: false,
	ActionOrderCreate: false,
	ActionOrderRead:   true,
	ActionOrderUpdate: true,
	ActionOrderCancel: true,
}

// Authorize decide si p puede ejecutar action sobre un recurso de resourceOwner.
// resourceOwner vacío significa que la acción no apunta a un recurso con dueño.
// Devuelve nil (Allow) o un *domain.DeniedError con motivo forbidden_role / not_owner.
func Authorize(p Principal, action Action, resourceOwner string) error {
	if p.ID == "" {
		return domain.ErrUnauthorized
	}
	if p.Admin {
		return nil
	}
	ownerScoped, ok := nonAdminActions[action]
	if !ok {
		return domain.Deny(domain.ReasonForbiddenRole)
	}
	if ownerScoped && resourceOwner != p.ID {
		return domain.Deny(domain.ReasonNotOwner)
	}
	return nil
}
