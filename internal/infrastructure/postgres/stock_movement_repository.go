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

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, movement_type, quantity, reference_type, user_id, created_at`

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento del ledger.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `INSERT INTO stock_movements (` + movementColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Type, m.Quantity, m.ReferenceType, nullable(m.UserID), m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isOutOfRange(err) || isCheckViolation(err) {
			return domain.ErrInvalidQuantity
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id)
}

// GetByIDForUpdate bloquea el movimiento: una segunda reversión concurrente espera y luego no lo encuentra.
func (r *StockMovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockMovement, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.findOne(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1 FOR UPDATE`, id)
}

func (r *StockMovementRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stock movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMovementNotFound
	}
	return nil
}

// List devuelve movimientos del más reciente al más antiguo.
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.ProductID != "" {
		if !isUUID(f.ProductID) {
			return nil, nil
		}
		rows, err = r.q.Query(ctx, `
			SELECT `+movementColumns+` FROM stock_movements WHERE product_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, f.ProductID, f.Limit, f.Offset)
	} else {
		rows, err = r.q.Query(ctx, `
			SELECT `+movementColumns+` FROM stock_movements
			ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, f.Limit, f.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// SignedSum devuelve Σ(in) − Σ(out) del producto.
func (r *StockMovementRepo) SignedSum(ctx context.Context, productID string) (int, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN movement_type = 'in' THEN quantity ELSE -quantity END), 0)
		FROM stock_movements WHERE product_id = $1`
	var sum int64
	if err := r.q.QueryRow(ctx, query, productID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum stock movements: %w", err)
	}
	return int(sum), nil
}

func (r *StockMovementRepo) findOne(ctx context.Context, query string, arg any) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m      entity.StockMovement
		userID *string
	)
	err := row.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.ReferenceType, &userID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.UserID = deref(userID)
	return &m, nil
}
