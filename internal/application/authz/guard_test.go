package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
)

var (
	admin = authz.Principal{ID: "admin-1", Admin: true, Active: true}
	alice = authz.Principal{ID: "user-alice", Active: true}
)

func TestAuthorize_AdminPuedeTodo(t *testing.T) {
	for _, a := range []authz.Action{
		authz.ActionStockWrite, authz.ActionStockRead, authz.ActionCatalogWrite,
		authz.ActionOrderSetStatus, authz.ActionOrderDelete, authz.ActionUserManage,
	} {
		assert.NoError(t, authz.Authorize(admin, a, "otro-usuario"), string(a))
	}
}

func TestAuthorize_NoAdminSinRol(t *testing.T) {
	for _, a := range []authz.Action{
		authz.ActionStockWrite, authz.ActionStockRead, authz.ActionCatalogWrite,
		authz.ActionOrderSetStatus, authz.ActionOrderReassign, authz.ActionOrderListAll,
		authz.ActionOrderCreateOther, authz.ActionUserManage,
	} {
		err := authz.Authorize(alice, a, alice.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden, string(a))
		reason, ok := domain.DenyReason(err)
		assert.True(t, ok)
		assert.Equal(t, domain.ReasonForbiddenRole, reason)
	}
}

func TestAuthorize_NoAdminSobreRecursoPropio(t *testing.T) {
	assert.NoError(t, authz.Authorize(alice, authz.ActionOrderCancel, alice.ID))
	assert.NoError(t, authz.Authorize(alice, authz.ActionOrderRead, alice.ID))
	assert.NoError(t, authz.Authorize(alice, authz.ActionOrderCreate, ""))
	assert.NoError(t, authz.Authorize(alice, authz.ActionCatalogRead, ""))
}

func TestAuthorize_NoAdminSobreRecursoAjeno(t *testing.T) {
	err := authz.Authorize(alice, authz.ActionOrderCancel, "user-bob")
	reason, ok := domain.DenyReason(err)
	assert.True(t, ok)
	assert.Equal(t, domain.ReasonNotOwner, reason)
}

func TestAuthorize_SinPrincipal(t *testing.T) {
	err := authz.Authorize(authz.Principal{}, authz.ActionCatalogRead, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
