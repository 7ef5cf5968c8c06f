package inventory_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger-api/internal/application/authz"
	"github.com/jhoicas/inventario-ledger-api/internal/application/dto"
	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger-api/internal/infrastructure/memory"
)

var (
	admin  = authz.Principal{ID: "admin-1", Admin: true, Active: true}
	packer = authz.Principal{ID: "user-1", Active: true}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e inventory.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store *memory.Store
	uc    *inventory.LedgerUseCase
	pub   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	uc := inventory.NewLedgerUseCase(store, store.Levels(), store.Movements(), store.Products(), pub, inventory.Policy{}, nil)
	return &fixture{store: store, uc: uc, pub: pub}
}

func (f *fixture) product(t *testing.T, name string) string {
	t.Helper()
	p := &entity.Product{
		ID:        uuid.New().String(),
		Name:      name,
		Price:     decimal.RequireFromString("19.99"),
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p.ID
}

func (f *fixture) apply(t *testing.T, productID, movType string, qty int) *dto.MovementResponse {
	t.Helper()
	mov, err := f.uc.ApplyMovement(context.Background(), admin, inventory.MovementInput{
		ProductID: productID, Type: movType, Quantity: qty, ReferenceType: "order",
	})
	require.NoError(t, err)
	return mov
}

func (f *fixture) quantity(t *testing.T, productID string) int {
	t.Helper()
	l, err := f.store.Levels().GetByProduct(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.CurrentQuantity
}

func (f *fixture) assertConsistent(t *testing.T, productID string) {
	t.Helper()
	check, err := f.uc.VerifyLevel(context.Background(), admin, productID)
	require.NoError(t, err)
	assert.True(t, check.Consistent, "nivel %d vs Σ %d", check.CurrentQuantity, check.MovementsSum)
}

// ── ApplyMovement ─────────────────────────────────────────────────────────────

func TestApplyMovement_MantieneInvariante(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Tornillo")

	f.apply(t, pid, entity.MovementTypeIn, 10)
	f.apply(t, pid, entity.MovementTypeOut, 3)
	f.apply(t, pid, entity.MovementTypeIn, 5)

	assert.Equal(t, 12, f.quantity(t, pid))
	f.assertConsistent(t, pid)
}

func TestApplyMovement_CreaNivelImplicito(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Tuerca")

	mov := f.apply(t, pid, "IN", 4)
	assert.Equal(t, entity.MovementTypeIn, mov.MovementType)
	assert.Equal(t, admin.ID, mov.UserID)

	level, err := f.uc.GetLevelByProduct(context.Background(), admin, pid)
	require.NoError(t, err)
	assert.Equal(t, 4, level.CurrentQuantity)
	assert.Equal(t, 0, level.MinimumQuantity)
	assert.Nil(t, level.MaximumQuantity)
}

func TestApplyMovement_MaximoPorDefecto(t *testing.T) {
	store := memory.NewStore()
	uc := inventory.NewLedgerUseCase(store, store.Levels(), store.Movements(), store.Products(), nil,
		inventory.Policy{DefaultMaxQuantity: 500}, nil)
	p := &entity.Product{ID: "p-max", Name: "Arandela", Price: decimal.NewFromInt(1)}
	require.NoError(t, store.Products().Create(context.Background(), p))

	_, err := uc.ApplyMovement(context.Background(), admin, inventory.MovementInput{ProductID: p.ID, Type: "in", Quantity: 1})
	require.NoError(t, err)

	l, err := store.Levels().GetByProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, l.MaximumQuantity)
	assert.Equal(t, 500, *l.MaximumQuantity)
}

func TestApplyMovement_StockInsuficienteNoPersiste(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Clavo")
	f.apply(t, pid, entity.MovementTypeIn, 2)

	_, err := f.uc.ApplyMovement(context.Background(), admin, inventory.MovementInput{
		ProductID: pid, Type: entity.MovementTypeOut, Quantity: 3,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 2, f.quantity(t, pid))

	list, err := f.store.Movements().List(context.Background(), repository.MovementFilter{ProductID: pid})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	f.assertConsistent(t, pid)
}

func TestApplyMovement_SalidaSinNivelNoCreaNivel(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Broca")

	_, err := f.uc.ApplyMovement(context.Background(), admin, inventory.MovementInput{
		ProductID: pid, Type: entity.MovementTypeOut, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	l, err := f.store.Levels().GetByProduct(context.Background(), pid)
	require.NoError(t, err)
	assert.Nil(t, l)
}

func TestApplyMovement_Validaciones(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Taladro")
	ctx := context.Background()

	_, err := f.uc.ApplyMovement(ctx, admin, inventory.MovementInput{ProductID: pid, Type: "in", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.uc.ApplyMovement(ctx, admin, inventory.MovementInput{ProductID: pid, Type: "transfer", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.ApplyMovement(ctx, admin, inventory.MovementInput{ProductID: "no-existe", Type: "in", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = f.uc.ApplyMovement(ctx, admin, inventory.MovementInput{
		ProductID: pid, Type: "in", Quantity: 1, ReferenceType: "una-referencia-demasiado-larga",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApplyMovement_CantidadFueraDeRango(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Martillo")
	ctx := context.Background()

	_, err := f.uc.ApplyMovement(ctx, admin, inventory.MovementInput{ProductID: pid, Type: "in", Quantity: math.MaxInt32 + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	f.apply(t, pid, "in", 10)
	_, err = f.uc.ApplyMovement(ctx, admin, inventory.MovementInput{ProductID: pid, Type: "in", Quantity: math.MaxInt32})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 10, f.quantity(t, pid), "el desborde no persiste nada")
	f.assertConsistent(t, pid)

	_, err = f.uc.CreateLevel(ctx, admin, inventory.CreateLevelInput{ProductID: f.product(t, "Clavo"), InitialQuantity: math.MaxInt32 + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApplyMovement_NoAdminDenegado(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Sierra")

	_, err := f.uc.ApplyMovement(context.Background(), packer, inventory.MovementInput{ProductID: pid, Type: "in", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	reason, ok := domain.DenyReason(err)
	assert.True(t, ok)
	assert.Equal(t, domain.ReasonForbiddenRole, reason)
}

func TestApplyMovement_SalidasConcurrentes(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Martillo")
	f.apply(t, pid, entity.MovementTypeIn, 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.ApplyMovement(context.Background(), admin, inventory.MovementInput{
				ProductID: pid, Type: entity.MovementTypeOut, Quantity: 6,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrInsufficientStock) {
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, fail)
	assert.Equal(t, 4, f.quantity(t, pid))
	f.assertConsistent(t, pid)
}

func TestApplyMovement_PublicaEventos(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Llave")

	f.apply(t, pid, entity.MovementTypeIn, 1)
	// nivel 1 con mínimo 0: no está bajo
	assert.Equal(t, []string{inventory.EventMovementApplied}, f.pub.types())

	f.apply(t, pid, entity.MovementTypeOut, 1)
	assert.Equal(t, []string{
		inventory.EventMovementApplied,
		inventory.EventMovementApplied,
		inventory.EventLevelLow,
	}, f.pub.types())
}

// ── ReverseMovement ───────────────────────────────────────────────────────────

func TestReverseMovement_RestauraNivel(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Cinta")
	f.apply(t, pid, entity.MovementTypeIn, 5)
	out := f.apply(t, pid, entity.MovementTypeOut, 2)

	require.NoError(t, f.uc.ReverseMovement(context.Background(), admin, out.ID))
	assert.Equal(t, 5, f.quantity(t, pid))

	_, err := f.uc.GetMovement(context.Background(), admin, out.ID)
	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
	f.assertConsistent(t, pid)
	assert.Contains(t, f.pub.types(), inventory.EventMovementReversed)
}

func TestReverseMovement_NoDejaNegativo(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Pegamento")
	in := f.apply(t, pid, entity.MovementTypeIn, 5)
	f.apply(t, pid, entity.MovementTypeOut, 3)

	err := f.uc.ReverseMovement(context.Background(), admin, in.ID)
	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.Equal(t, 2, f.quantity(t, pid))

	_, err = f.uc.GetMovement(context.Background(), admin, in.ID)
	assert.NoError(t, err)
	f.assertConsistent(t, pid)
}

func TestReverseMovement_NoEncontrado(t *testing.T) {
	f := newFixture(t)
	err := f.uc.ReverseMovement(context.Background(), admin, "no-existe")
	assert.ErrorIs(t, err, domain.ErrMovementNotFound)
}

// ── Niveles ───────────────────────────────────────────────────────────────────

func TestCreateLevel_ConCantidadInicial(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Lija")
	maxQty := 50

	res, err := f.uc.CreateLevel(context.Background(), admin, inventory.CreateLevelInput{
		ProductID: pid, InitialQuantity: 8, MinimumQuantity: 2, MaximumQuantity: &maxQty, Location: " A-1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Level.CurrentQuantity)
	assert.Equal(t, "A-1", res.Level.Location)
	require.NotNil(t, res.Adjustment)
	assert.Equal(t, entity.ReferenceAdjustment, res.Adjustment.ReferenceType)
	f.assertConsistent(t, pid)

	_, err = f.uc.CreateLevel(context.Background(), admin, inventory.CreateLevelInput{ProductID: pid})
	assert.ErrorIs(t, err, domain.ErrLevelAlreadyExists)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateLevel_LimitesInvalidos(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Brocha")
	maxQty := 1

	_, err := f.uc.CreateLevel(context.Background(), admin, inventory.CreateLevelInput{
		ProductID: pid, MinimumQuantity: 5, MaximumQuantity: &maxQty,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateLevel_AjusteSintetico(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Rodillo")
	f.apply(t, pid, entity.MovementTypeIn, 10)
	level, err := f.uc.GetLevelByProduct(context.Background(), admin, pid)
	require.NoError(t, err)

	target, minQty := 7, 3
	res, err := f.uc.UpdateLevel(context.Background(), admin, level.ID, inventory.UpdateLevelInput{
		CurrentQuantity: &target, MinimumQuantity: &minQty,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Level.CurrentQuantity)
	assert.Equal(t, 3, res.Level.MinimumQuantity)
	require.NotNil(t, res.Adjustment)
	assert.Equal(t, entity.MovementTypeOut, res.Adjustment.MovementType)
	assert.Equal(t, 3, res.Adjustment.Quantity)
	f.assertConsistent(t, pid)

	// Solo configuración: sin ajuste
	loc := "B-2"
	res, err = f.uc.UpdateLevel(context.Background(), admin, level.ID, inventory.UpdateLevelInput{Location: &loc})
	require.NoError(t, err)
	assert.Nil(t, res.Adjustment)
	assert.Equal(t, 7, res.Level.CurrentQuantity)
	assert.Equal(t, "B-2", res.Level.Location)
}

func TestUpdateLevel_Errores(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Espátula")
	f.apply(t, pid, entity.MovementTypeIn, 1)
	level, err := f.uc.GetLevelByProduct(context.Background(), admin, pid)
	require.NoError(t, err)

	neg := -1
	_, err = f.uc.UpdateLevel(context.Background(), admin, level.ID, inventory.UpdateLevelInput{CurrentQuantity: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	minQty, maxQty := 10, 5
	_, err = f.uc.UpdateLevel(context.Background(), admin, level.ID, inventory.UpdateLevelInput{
		MinimumQuantity: &minQty, MaximumQuantity: &maxQty,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.UpdateLevel(context.Background(), admin, "no-existe", inventory.UpdateLevelInput{})
	assert.ErrorIs(t, err, domain.ErrLevelNotFound)

	_, err = f.uc.UpdateLevel(context.Background(), packer, level.ID, inventory.UpdateLevelInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListMovements_MasRecientePrimero(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Cable")
	other := f.product(t, "Enchufe")
	f.apply(t, pid, entity.MovementTypeIn, 3)
	last := f.apply(t, pid, entity.MovementTypeOut, 1)
	f.apply(t, other, entity.MovementTypeIn, 9)

	res, err := f.uc.ListMovements(context.Background(), admin, pid, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, last.ID, res.Items[0].ID)
	assert.Equal(t, 20, res.Page.Limit)

	all, err := f.uc.ListMovements(context.Background(), admin, "", dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestReadsSonIdempotentes(t *testing.T) {
	f := newFixture(t)
	pid := f.product(t, "Foco")
	f.apply(t, pid, entity.MovementTypeIn, 3)

	a, err := f.uc.GetLevelByProduct(context.Background(), admin, pid)
	require.NoError(t, err)
	b, err := f.uc.GetLevelByProduct(context.Background(), admin, pid)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
