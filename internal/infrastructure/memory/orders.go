package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos en memoria.
type OrderRepo struct{ sc scope }

func (r *OrderRepo) Create(_ context.Context, o *entity.Order) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return domain.ErrDuplicate
		}
		cp := *o
		st.orders[o.ID] = &cp
		return nil
	})
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	var out *entity.Order
	err := r.sc.read(func(st *state) error {
		if o, ok := st.orders[id]; ok {
			cp := *o
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *OrderRepo) Update(_ context.Context, o *entity.Order, expected entity.OrderStatus) error {
	return r.sc.write(func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if cur.Status != expected {
			return domain.ErrInvalidTransition
		}
		cp := *o
		st.orders[o.ID] = &cp
		return nil
	})
}

func (r *OrderRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return domain.ErrOrderNotFound
		}
		delete(st.orders, id)
		return nil
	})
}

// List devuelve los pedidos del más reciente al más antiguo.
func (r *OrderRepo) List(_ context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	var out []*entity.Order
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.Order, 0, len(st.orders))
		for _, o := range st.orders {
			if f.UserID != "" && o.UserID != f.UserID {
				continue
			}
			if f.Status != "" && o.Status != f.Status {
				continue
			}
			cp := *o
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].ID < all[j].ID
		})
		out = page(all, f.Limit, f.Offset)
		return nil
	})
	return out, err
}
