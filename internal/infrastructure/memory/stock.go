package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

var (
	_ repository.StockLevelRepository    = (*LevelRepo)(nil)
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
)

func copyLevel(l *entity.StockLevel) *entity.StockLevel {
	cp := *l
	if l.MaximumQuantity != nil {
		v := *l.MaximumQuantity
		cp.MaximumQuantity = &v
	}
	return &cp
}

func levelByProduct(st *state, productID string) *entity.StockLevel {
	for _, l := range st.levels {
		if l.ProductID == productID {
			return l
		}
	}
	return nil
}

// LevelRepo niveles de stock en memoria (a lo sumo uno por producto).
type LevelRepo struct{ sc scope }

func (r *LevelRepo) GetByID(_ context.Context, id string) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := r.sc.read(func(st *state) error {
		if l, ok := st.levels[id]; ok {
			out = copyLevel(l)
		}
		return nil
	})
	return out, err
}

func (r *LevelRepo) GetByProduct(_ context.Context, productID string) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := r.sc.read(func(st *state) error {
		if l := levelByProduct(st, productID); l != nil {
			out = copyLevel(l)
		}
		return nil
	})
	return out, err
}

// GetByProductForUpdate equivale a GetByProduct: el mutex del store ya serializa la transacción.
func (r *LevelRepo) GetByProductForUpdate(ctx context.Context, productID string) (*entity.StockLevel, error) {
	return r.GetByProduct(ctx, productID)
}

func (r *LevelRepo) Create(_ context.Context, level *entity.StockLevel) error {
	return r.sc.write(func(st *state) error {
		if levelByProduct(st, level.ProductID) != nil {
			return domain.ErrLevelAlreadyExists
		}
		st.levels[level.ID] = copyLevel(level)
		return nil
	})
}

func (r *LevelRepo) CreateIfAbsent(_ context.Context, level *entity.StockLevel) error {
	return r.sc.write(func(st *state) error {
		if levelByProduct(st, level.ProductID) == nil {
			st.levels[level.ID] = copyLevel(level)
		}
		return nil
	})
}

func (r *LevelRepo) Increment(_ context.Context, productID string, delta int) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := r.sc.write(func(st *state) error {
		l := levelByProduct(st, productID)
		if l == nil {
			return domain.ErrLevelNotFound
		}
		if delta > 0 && l.CurrentQuantity > entity.MaxQuantity-delta {
			return domain.ErrInvalidQuantity
		}
		next := copyLevel(l)
		next.CurrentQuantity += delta
		next.UpdatedAt = time.Now()
		st.levels[next.ID] = next
		out = copyLevel(next)
		return nil
	})
	return out, err
}

func (r *LevelRepo) DecrementIfAvailable(_ context.Context, productID string, qty int) (*entity.StockLevel, error) {
	var out *entity.StockLevel
	err := r.sc.write(func(st *state) error {
		l := levelByProduct(st, productID)
		if l == nil || l.CurrentQuantity < qty {
			return nil
		}
		next := copyLevel(l)
		next.CurrentQuantity -= qty
		next.UpdatedAt = time.Now()
		st.levels[next.ID] = next
		out = copyLevel(next)
		return nil
	})
	return out, err
}

func (r *LevelRepo) UpdateConfig(_ context.Context, level *entity.StockLevel) error {
	return r.sc.write(func(st *state) error {
		l, ok := st.levels[level.ID]
		if !ok {
			return domain.ErrLevelNotFound
		}
		next := copyLevel(level)
		next.ProductID = l.ProductID
		next.CurrentQuantity = l.CurrentQuantity
		st.levels[next.ID] = next
		return nil
	})
}

func (r *LevelRepo) List(_ context.Context, limit, offset int) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.StockLevel, 0, len(st.levels))
		for _, l := range st.levels {
			all = append(all, copyLevel(l))
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ProductID < all[j].ProductID })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *LevelRepo) ListLow(_ context.Context) ([]*entity.StockLevel, error) {
	var out []*entity.StockLevel
	err := r.sc.read(func(st *state) error {
		for _, l := range st.levels {
			if l.IsLow() {
				out = append(out, copyLevel(l))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
		return nil
	})
	return out, err
}

// MovementRepo ledger de movimientos en memoria.
type MovementRepo struct{ sc scope }

func (r *MovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.movements[m.ID]; ok {
			return domain.ErrDuplicate
		}
		st.seq++
		cp := *m
		st.movements[m.ID] = &cp
		st.movSeq[m.ID] = st.seq
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.sc.read(func(st *state) error {
		if m, ok := st.movements[id]; ok {
			cp := *m
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	return r.GetByID(ctx, id)
}

func (r *MovementRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.movements[id]; !ok {
			return domain.ErrMovementNotFound
		}
		delete(st.movements, id)
		delete(st.movSeq, id)
		return nil
	})
}

// List devuelve los movimientos del más reciente al más antiguo.
func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.StockMovement, 0, len(st.movements))
		for _, m := range st.movements {
			if f.ProductID != "" && m.ProductID != f.ProductID {
				continue
			}
			cp := *m
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool { return st.movSeq[all[i].ID] > st.movSeq[all[j].ID] })
		out = page(all, f.Limit, f.Offset)
		return nil
	})
	return out, err
}

func (r *MovementRepo) SignedSum(_ context.Context, productID string) (int, error) {
	sum := 0
	err := r.sc.read(func(st *state) error {
		for _, m := range st.movements {
			if m.ProductID == productID {
				sum += m.SignedQuantity()
			}
		}
		return nil
	})
	return sum, err
}
