// Package memory implementa los repositorios y el TxRunner en memoria.
// Se usa en tests y con DB_DRIVER=memory; las transacciones se serializan con un mutex
// global y trabajan sobre una copia del estado que se publica solo en el commit.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-ledger-api/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type state struct {
	seq        int64
	users      map[string]*entity.User
	categories map[string]*entity.Category
	suppliers  map[string]*entity.Supplier
	products   map[string]*entity.Product
	levels     map[string]*entity.StockLevel
	movements  map[string]*entity.StockMovement
	movSeq     map[string]int64
	orders     map[string]*entity.Order
}

func newState() *state {
	return &state{
		users:      map[string]*entity.User{},
		categories: map[string]*entity.Category{},
		suppliers:  map[string]*entity.Supplier{},
		products:   map[string]*entity.Product{},
		levels:     map[string]*entity.StockLevel{},
		movements:  map[string]*entity.StockMovement{},
		movSeq:     map[string]int64{},
		orders:     map[string]*entity.Order{},
	}
}

// clone copia los mapas; los valores se tratan como inmutables (cada escritura reemplaza el puntero).
func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.levels {
		c.levels[k] = v
	}
	for k, v := range s.movements {
		c.movements[k] = v
	}
	for k, v := range s.movSeq {
		c.movSeq[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// Store contiene el estado y entrega repositorios sobre él.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{state: newState()}
}

// scope es el acceso al estado de un repositorio: fuera de transacción toma el mutex;
// dentro de Run usa directamente la copia de la transacción.
type scope struct {
	store *Store
	tx    *state
}

func (sc scope) read(fn func(st *state) error) error {
	if sc.tx != nil {
		return fn(sc.tx)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.state)
}

// write fuera de transacción aplica sobre una copia y la publica solo si fn no falla,
// así cada llamada suelta es atómica como un statement SQL.
func (sc scope) write(fn func(st *state) error) error {
	if sc.tx != nil {
		return fn(sc.tx)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	next := sc.store.state.clone()
	if err := fn(next); err != nil {
		return err
	}
	sc.store.state = next
	return nil
}

// Run ejecuta fn con repositorios atados a una copia del estado y la publica si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	levelRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	sc := scope{store: s, tx: tx}
	if err := fn(&MovementRepo{sc: sc}, &LevelRepo{sc: sc}, &ProductRepo{sc: sc}); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// Users devuelve el repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{sc: scope{store: s}} }

// Categories devuelve el repositorio de categorías.
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{sc: scope{store: s}} }

// Suppliers devuelve el repositorio de proveedores.
func (s *Store) Suppliers() *SupplierRepo { return &SupplierRepo{sc: scope{store: s}} }

// Products devuelve el repositorio de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{sc: scope{store: s}} }

// Levels devuelve el repositorio de niveles de stock.
func (s *Store) Levels() *LevelRepo { return &LevelRepo{sc: scope{store: s}} }

// Movements devuelve el repositorio de movimientos.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{sc: scope{store: s}} }

// Orders devuelve el repositorio de pedidos.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{sc: scope{store: s}} }

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
