package order_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/application/order"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/memory"
)

var (
	admin = authz.Principal{ID: "admin-1", Admin: true, Active: true}
	alice = authz.Principal{ID: "alice", Active: true}
	bob   = authz.Principal{ID: "bob", Active: true}
)

func setup(t *testing.T) *order.UseCase {
	t.Helper()
	store := seedStore(t)
	return order.NewUseCase(store.Orders(), store.Products(), store.Users())
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, u := range []*entity.User{
		{ID: admin.ID, Email: "admin@example.com", Admin: true, Active: true, CreatedAt: time.Now()},
		{ID: alice.ID, Email: "alice@example.com", Active: true, CreatedAt: time.Now()},
		{ID: bob.ID, Email: "bob@example.com", Active: true, CreatedAt: time.Now()},
	} {
		require.NoError(t, store.Users().Create(ctx, u))
	}
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: "p1", Name: "Café", Price: decimal.RequireFromString("19.99")}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: "p2", Name: "Té", Price: decimal.RequireFromString("2.50")}))
	return store
}

func ptr[T any](v T) *T { return &v }

// ── Create ────────────────────────────────────────────────────────────────────

func TestCreate_CalculaTotal(t *testing.T) {
	uc := setup(t)
	o, err := uc.Create(context.Background(), alice, order.CreateInput{ProductID: "p1", Quantity: 3})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("59.97").Equal(o.TotalPrice), o.TotalPrice.String())
	assert.Equal(t, string(entity.OrderStatusPending), o.Status)
	assert.Equal(t, alice.ID, o.UserID)
}

func TestCreate_Validaciones(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()

	_, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: -2})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = uc.Create(ctx, alice, order.CreateInput{ProductID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCreate_CantidadYTotalFueraDeRango(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: "p3", Name: "Servidor", Price: decimal.RequireFromString("999999.99")}))
	uc := order.NewUseCase(store.Orders(), store.Products(), store.Users())

	_, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: math.MaxInt32 + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = uc.Create(ctx, alice, order.CreateInput{ProductID: "p3", Quantity: math.MaxInt32})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	_, err = uc.Update(ctx, alice, o.ID, order.UpdateInput{ProductID: ptr("p3"), Quantity: ptr(math.MaxInt32)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_ParaOtroUsuario(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()

	o, err := uc.Create(ctx, admin, order.CreateInput{ProductID: "p2", Quantity: 2, UserID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, o.UserID)

	_, err = uc.Create(ctx, admin, order.CreateInput{ProductID: "p2", Quantity: 2, UserID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrTargetUserNotFound)

	_, err = uc.Create(ctx, alice, order.CreateInput{ProductID: "p2", Quantity: 2, UserID: bob.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// un no-admin que se nombra a sí mismo es válido
	o, err = uc.Create(ctx, alice, order.CreateInput{ProductID: "p2", Quantity: 1, UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, o.UserID)
}

// ── Visibilidad ───────────────────────────────────────────────────────────────

func TestList_AlcancePorDueño(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	_, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	_, err = uc.Create(ctx, bob, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	own, err := uc.List(ctx, alice, bob.ID, "", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, alice.ID, own.Items[0].UserID)

	all, err := uc.List(ctx, admin, "", "", dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	onlyBob, err := uc.List(ctx, admin, bob.ID, "pending", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, onlyBob.Items, 1)
	assert.Equal(t, bob.ID, onlyBob.Items[0].UserID)

	_, err = uc.List(ctx, admin, "", "SHIPPED", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGet_NoDueño(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	_, err = uc.Get(ctx, bob, o.ID)
	reason, ok := domain.DenyReason(err)
	assert.True(t, ok)
	assert.Equal(t, domain.ReasonNotOwner, reason)

	got, err := uc.Get(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = uc.Get(ctx, admin, "nope")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// ── Update / Cancel ───────────────────────────────────────────────────────────

func TestUpdate_RecalculaTotal(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	up, err := uc.Update(ctx, alice, o.ID, order.UpdateInput{ProductID: ptr("p2"), Quantity: ptr(4)})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10").Equal(up.TotalPrice), up.TotalPrice.String())

	_, err = uc.Update(ctx, alice, o.ID, order.UpdateInput{Quantity: ptr(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestUpdate_EstadoSoloAdmin(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	_, err = uc.Update(ctx, alice, o.ID, order.UpdateInput{Status: ptr("CONFIRMED")})
	reason, _ := domain.DenyReason(err)
	assert.Equal(t, domain.ReasonForbiddenRole, reason)

	up, err := uc.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("CONFIRMED")})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", up.Status)

	// confirmado: ya no se edita producto ni cantidad
	_, err = uc.Update(ctx, admin, o.ID, order.UpdateInput{Quantity: ptr(2)})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = uc.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("PENDING")})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	up, err = uc.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("DELIVERED")})
	require.NoError(t, err)
	assert.Equal(t, "DELIVERED", up.Status)
}

func TestUpdate_Reasignar(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	_, err = uc.Update(ctx, alice, o.ID, order.UpdateInput{UserID: ptr(bob.ID)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Update(ctx, admin, o.ID, order.UpdateInput{UserID: ptr("ghost")})
	assert.ErrorIs(t, err, domain.ErrTargetUserNotFound)

	up, err := uc.Update(ctx, admin, o.ID, order.UpdateInput{UserID: ptr(bob.ID)})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, up.UserID)
}

func TestCancel(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	_, err = uc.Cancel(ctx, bob, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	c, err := uc.Cancel(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELED", c.Status)

	_, err = uc.Cancel(ctx, alice, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDelete_SoloAdmin(t *testing.T) {
	uc := setup(t)
	ctx := context.Background()
	o, err := uc.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(ctx, alice, o.ID), domain.ErrForbidden)
	require.NoError(t, uc.Delete(ctx, admin, o.ID))
	_, err = uc.Get(ctx, admin, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// ── Concurrencia ──────────────────────────────────────────────────────────────

// staleOrders ejecuta interleave una vez, justo después de la primera lectura del pedido,
// para simular otro escritor que confirma entre la lectura y la escritura.
type staleOrders struct {
	repository.OrderRepository
	interleave func()
}

func (r *staleOrders) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	o, err := r.OrderRepository.GetByID(ctx, id)
	if fn := r.interleave; fn != nil {
		r.interleave = nil
		fn()
	}
	return o, err
}

func TestUpdate_TransicionConcurrenteNoPisaCancelacion(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	direct := order.NewUseCase(store.Orders(), store.Products(), store.Users())

	o, err := direct.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	_, err = direct.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("CONFIRMED")})
	require.NoError(t, err)

	var cancelErr error
	racing := &staleOrders{OrderRepository: store.Orders(), interleave: func() {
		_, cancelErr = direct.Cancel(ctx, alice, o.ID)
	}}
	uc := order.NewUseCase(racing, store.Products(), store.Users())

	_, err = uc.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("DELIVERED")})
	require.NoError(t, cancelErr)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	final, err := direct.Get(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusCanceled), final.Status)
}

func TestCancel_ConcurrenteConEntrega(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	direct := order.NewUseCase(store.Orders(), store.Products(), store.Users())

	o, err := direct.Create(ctx, alice, order.CreateInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	_, err = direct.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("CONFIRMED")})
	require.NoError(t, err)

	var deliverErr error
	racing := &staleOrders{OrderRepository: store.Orders(), interleave: func() {
		_, deliverErr = direct.Update(ctx, admin, o.ID, order.UpdateInput{Status: ptr("DELIVERED")})
	}}
	uc := order.NewUseCase(racing, store.Products(), store.Users())

	_, err = uc.Cancel(ctx, alice, o.ID)
	require.NoError(t, deliverErr)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	final, err := direct.Get(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.OrderStatusDelivered), final.Status)
}

func TestOrderRepo_UpdateConEstadoObsoleto(t *testing.T) {
	ctx := context.Background()
	repo := seedStore(t).Orders()
	o := &entity.Order{ID: "o1", Status: entity.OrderStatusPending, UserID: alice.ID, ProductID: "p1", Quantity: 1}
	require.NoError(t, repo.Create(ctx, o))

	o.Status = entity.OrderStatusConfirmed
	require.NoError(t, repo.Update(ctx, o, entity.OrderStatusPending))

	o.Status = entity.OrderStatusCanceled
	assert.ErrorIs(t, repo.Update(ctx, o, entity.OrderStatusPending), domain.ErrInvalidTransition)

	missing := &entity.Order{ID: "nope", Status: entity.OrderStatusCanceled}
	assert.ErrorIs(t, repo.Update(ctx, missing, entity.OrderStatusPending), domain.ErrOrderNotFound)
}
