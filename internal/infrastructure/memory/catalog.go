package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger-api/pkg/textkey"
)

var (
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.CategoryRepository = (*CategoryRepo)(nil)
	_ repository.SupplierRepository = (*SupplierRepo)(nil)
	_ repository.ProductRepository  = (*ProductRepo)(nil)
)

// ── Users ─────────────────────────────────────────────────────────────────────

// UserRepo usuarios en memoria. El email es único sin distinguir mayúsculas.
type UserRepo struct{ sc scope }

func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	return r.sc.write(func(st *state) error {
		for _, u := range st.users {
			if textkey.Equal(u.Email, user.Email) {
				return domain.ErrEmailAlreadyExists
			}
		}
		cp := *user
		st.users[user.ID] = &cp
		return nil
	})
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.sc.read(func(st *state) error {
		if u, ok := st.users[id]; ok {
			cp := *u
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.sc.read(func(st *state) error {
		for _, u := range st.users {
			if textkey.Equal(u.Email, email) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) Update(_ context.Context, user *entity.User) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.users[user.ID]; !ok {
			return domain.ErrUserNotFound
		}
		cp := *user
		st.users[user.ID] = &cp
		return nil
	})
}

func (r *UserRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	var out []*entity.User
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.User, 0, len(st.users))
		for _, u := range st.users {
			cp := *u
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.Before(all[j].CreatedAt)
			}
			return all[i].ID < all[j].ID
		})
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

// ── Categories ────────────────────────────────────────────────────────────────

// CategoryRepo categorías en memoria. Name es único por clave normalizada.
type CategoryRepo struct{ sc scope }

func (r *CategoryRepo) Create(_ context.Context, c *entity.Category) error {
	return r.sc.write(func(st *state) error {
		for _, other := range st.categories {
			if textkey.Equal(other.Name, c.Name) {
				return domain.ErrDuplicate
			}
		}
		cp := *c
		st.categories[c.ID] = &cp
		return nil
	})
}

func (r *CategoryRepo) GetByID(_ context.Context, id string) (*entity.Category, error) {
	var out *entity.Category
	err := r.sc.read(func(st *state) error {
		if c, ok := st.categories[id]; ok {
			cp := *c
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *CategoryRepo) GetByName(_ context.Context, name string) (*entity.Category, error) {
	var out *entity.Category
	err := r.sc.read(func(st *state) error {
		for _, c := range st.categories {
			if textkey.Equal(c.Name, name) {
				cp := *c
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *CategoryRepo) Update(_ context.Context, c *entity.Category) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.categories[c.ID]; !ok {
			return domain.ErrCategoryNotFound
		}
		for id, other := range st.categories {
			if id != c.ID && textkey.Equal(other.Name, c.Name) {
				return domain.ErrDuplicate
			}
		}
		cp := *c
		st.categories[c.ID] = &cp
		return nil
	})
}

func (r *CategoryRepo) List(_ context.Context, limit, offset int) ([]*entity.Category, error) {
	var out []*entity.Category
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.Category, 0, len(st.categories))
		for _, c := range st.categories {
			cp := *c
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *CategoryRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return domain.ErrCategoryNotFound
		}
		delete(st.categories, id)
		return nil
	})
}

// ── Suppliers ─────────────────────────────────────────────────────────────────

// SupplierRepo proveedores en memoria.
type SupplierRepo struct{ sc scope }

func (r *SupplierRepo) Create(_ context.Context, s *entity.Supplier) error {
	return r.sc.write(func(st *state) error {
		for _, other := range st.suppliers {
			if textkey.Equal(other.Name, s.Name) {
				return domain.ErrDuplicate
			}
		}
		cp := *s
		st.suppliers[s.ID] = &cp
		return nil
	})
}

func (r *SupplierRepo) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	var out *entity.Supplier
	err := r.sc.read(func(st *state) error {
		if s, ok := st.suppliers[id]; ok {
			cp := *s
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *SupplierRepo) GetByName(_ context.Context, name string) (*entity.Supplier, error) {
	var out *entity.Supplier
	err := r.sc.read(func(st *state) error {
		for _, s := range st.suppliers {
			if textkey.Equal(s.Name, name) {
				cp := *s
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *SupplierRepo) Update(_ context.Context, s *entity.Supplier) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.suppliers[s.ID]; !ok {
			return domain.ErrSupplierNotFound
		}
		for id, other := range st.suppliers {
			if id != s.ID && textkey.Equal(other.Name, s.Name) {
				return domain.ErrDuplicate
			}
		}
		cp := *s
		st.suppliers[s.ID] = &cp
		return nil
	})
}

func (r *SupplierRepo) List(_ context.Context, limit, offset int) ([]*entity.Supplier, error) {
	var out []*entity.Supplier
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.Supplier, 0, len(st.suppliers))
		for _, s := range st.suppliers {
			cp := *s
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *SupplierRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.suppliers[id]; !ok {
			return domain.ErrSupplierNotFound
		}
		delete(st.suppliers, id)
		return nil
	})
}

// ── Products ──────────────────────────────────────────────────────────────────

// ProductRepo productos en memoria.
type ProductRepo struct{ sc scope }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	return r.sc.write(func(st *state) error {
		for _, other := range st.products {
			if textkey.Equal(other.Name, p.Name) {
				return domain.ErrDuplicate
			}
		}
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.sc.read(func(st *state) error {
		if p, ok := st.products[id]; ok {
			cp := *p
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) ListByIDs(_ context.Context, ids []string) ([]*entity.Product, error) {
	out := make([]*entity.Product, 0, len(ids))
	err := r.sc.read(func(st *state) error {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			p, ok := st.products[id]
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			cp := *p
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByName(_ context.Context, name string) (*entity.Product, error) {
	var out *entity.Product
	err := r.sc.read(func(st *state) error {
		for _, p := range st.products {
			if textkey.Equal(p.Name, name) {
				cp := *p
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return domain.ErrProductNotFound
		}
		for id, other := range st.products {
			if id != p.ID && textkey.Equal(other.Name, p.Name) {
				return domain.ErrDuplicate
			}
		}
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.sc.read(func(st *state) error {
		all := make([]*entity.Product, 0, len(st.products))
		for _, p := range st.products {
			cp := *p
			all = append(all, &cp)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return domain.ErrProductNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r *ProductRepo) IsReferenced(_ context.Context, id string) (bool, error) {
	var found bool
	err := r.sc.read(func(st *state) error {
		for _, l := range st.levels {
			if l.ProductID == id {
				found = true
				return nil
			}
		}
		for _, m := range st.movements {
			if m.ProductID == id {
				found = true
				return nil
			}
		}
		for _, o := range st.orders {
			if o.ProductID == id {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *ProductRepo) CountByCategory(_ context.Context, categoryID string) (int, error) {
	n := 0
	err := r.sc.read(func(st *state) error {
		for _, p := range st.products {
			if p.CategoryID == categoryID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *ProductRepo) CountBySupplier(_ context.Context, supplierID string) (int, error) {
	n := 0
	err := r.sc.read(func(st *state) error {
		for _, p := range st.products {
			if p.SupplierID == supplierID {
				n++
			}
		}
		return nil
	})
	return n, err
}
