package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger-api/internal/domain"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger-api/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

const levelColumns = `id, product_id, current_quantity, minimum_quantity, maximum_quantity, location, updated_at`

// StockLevelRepo implementación de StockLevelRepository sobre PostgreSQL (usable con pool o tx).
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

func (r *StockLevelRepo) GetByID(ctx context.Context, id string) (*entity.StockLevel, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+levelColumns+` FROM stock_levels WHERE id = $1`, id)
}

func (r *StockLevelRepo) GetByProduct(ctx context.Context, productID string) (*entity.StockLevel, error) {
	if !isUUID(productID) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+levelColumns+` FROM stock_levels WHERE product_id = $1`, productID)
}

// GetByProductForUpdate obtiene el nivel y bloquea la fila (SELECT FOR UPDATE).
func (r *StockLevelRepo) GetByProductForUpdate(ctx context.Context, productID string) (*entity.StockLevel, error) {
	if !isUUID(productID) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+levelColumns+` FROM stock_levels WHERE product_id = $1 FOR UPDATE`, productID)
}

func (r *StockLevelRepo) Create(ctx context.Context, l *entity.StockLevel) error {
	query := `INSERT INTO stock_levels (` + levelColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.ProductID, l.CurrentQuantity, l.MinimumQuantity, l.MaximumQuantity, l.Location, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLevelAlreadyExists
		}
		if isOutOfRange(err) || isCheckViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert stock level: %w", err)
	}
	return nil
}

// CreateIfAbsent inserta el nivel con base cero; si otra transacción lo creó antes no hace nada.
func (r *StockLevelRepo) CreateIfAbsent(ctx context.Context, l *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (` + levelColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.ProductID, l.CurrentQuantity, l.MinimumQuantity, l.MaximumQuantity, l.Location, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ensure stock level: %w", err)
	}
	return nil
}

func (r *StockLevelRepo) Increment(ctx context.Context, productID string, delta int) (*entity.StockLevel, error) {
	query := `
		UPDATE stock_levels SET current_quantity = current_quantity + $2, updated_at = now()
		WHERE product_id = $1
		RETURNING ` + levelColumns
	l, err := scanLevel(r.q.QueryRow(ctx, query, productID, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLevelNotFound
		}
		if isOutOfRange(err) || isCheckViolation(err) {
			return nil, domain.ErrInvalidQuantity
		}
		return nil, fmt.Errorf("increment stock level: %w", err)
	}
	return l, nil
}

// DecrementIfAvailable resta qty en un único UPDATE condicional: dos salidas concurrentes
// nunca pueden pasar ambas el chequeo. Cero filas = stock insuficiente (nil, nil).
func (r *StockLevelRepo) DecrementIfAvailable(ctx context.Context, productID string, qty int) (*entity.StockLevel, error) {
	query := `
		UPDATE stock_levels SET current_quantity = current_quantity - $2, updated_at = now()
		WHERE product_id = $1 AND current_quantity >= $2
		RETURNING ` + levelColumns
	l, err := scanLevel(r.q.QueryRow(ctx, query, productID, qty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("decrement stock level: %w", err)
	}
	return l, nil
}

func (r *StockLevelRepo) UpdateConfig(ctx context.Context, l *entity.StockLevel) error {
	query := `
		UPDATE stock_levels SET minimum_quantity = $2, maximum_quantity = $3, location = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, l.ID, l.MinimumQuantity, l.MaximumQuantity, l.Location, l.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("update stock level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLevelNotFound
	}
	return nil
}

func (r *StockLevelRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockLevel, error) {
	return r.findMany(ctx, `SELECT `+levelColumns+` FROM stock_levels ORDER BY product_id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *StockLevelRepo) ListLow(ctx context.Context) ([]*entity.StockLevel, error) {
	return r.findMany(ctx, `SELECT `+levelColumns+` FROM stock_levels WHERE current_quantity <= minimum_quantity ORDER BY product_id`)
}

func (r *StockLevelRepo) findOne(ctx context.Context, query string, args ...any) (*entity.StockLevel, error) {
	l, err := scanLevel(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return l, nil
}

func (r *StockLevelRepo) findMany(ctx context.Context, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLevel
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLevel(row pgx.Row) (*entity.StockLevel, error) {
	var l entity.StockLevel
	err := row.Scan(&l.ID, &l.ProductID, &l.CurrentQuantity, &l.MinimumQuantity, &l.MaximumQuantity, &l.Location, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
