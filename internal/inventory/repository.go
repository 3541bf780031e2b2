package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/costing/internal/platform/db"
)

// Repository persists product stock in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetStockLevels reads stock, cost and version of the given products.
func (r *Repository) GetStockLevels(ctx context.Context, productIDs []int64) (map[int64]StockLevel, error) {
	return GetStockLevels(ctx, r.pool, productIDs)
}

// ApplyBatch writes every stock update inside one repeatable-read transaction.
func (r *Repository) ApplyBatch(ctx context.Context, writes []StockWrite) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return ApplyStockWrites(ctx, tx, writes)
	})
	return MapStoreError(err)
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// GetStockLevels reads stock levels through q.
func GetStockLevels(ctx context.Context, q Querier, productIDs []int64) (map[int64]StockLevel, error) {
	levels := make(map[int64]StockLevel, len(productIDs))
	if len(productIDs) == 0 {
		return levels, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, stock::float8, cost::float8, version
		FROM products
		WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, MapStoreError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			level StockLevel
			cost  *float64
		)
		if err := rows.Scan(&level.ProductID, &level.Stock, &cost, &level.Version); err != nil {
			return nil, err
		}
		if cost != nil {
			level.UnitCost = *cost
		} else {
			level.Unvalued = true
		}
		levels[level.ProductID] = level
	}
	if err := rows.Err(); err != nil {
		return nil, MapStoreError(err)
	}
	return levels, nil
}

// ApplyStockWrites updates products with a version check. A row that moved on
// since it was read aborts the batch with ErrStoreConflict.
func ApplyStockWrites(ctx context.Context, tx pgx.Tx, writes []StockWrite) error {
	for _, w := range writes {
		tag, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = $2, cost = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $4`,
			w.ProductID, w.Stock, w.UnitCost, w.ExpectedVersion)
		if err != nil {
			return MapStoreError(err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %d changed since it was read", ErrStoreConflict, w.ProductID)
		}
	}
	return nil
}

// MapStoreError classifies driver errors into ErrStoreConflict and
// ErrStoreUnavailable, keeping the original error in the chain.
func MapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", ErrStoreConflict, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
