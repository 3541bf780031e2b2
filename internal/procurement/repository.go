package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/costing/internal/inventory"
	"github.com/odyssey-erp/costing/internal/platform/db"
)

// PostgresRepository provides PostgreSQL backed persistence.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// WithTx wraps callback in repeatable-read transaction and classifies
// serialization and connection failures.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
	return inventory.MapStoreError(err)
}

// GetPurchaseOrder returns the order header.
func (r *PostgresRepository) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, status, currency
		FROM purchase_orders
		WHERE id = $1`, id).Scan(&po.ID, &po.Number, &po.Status, &po.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", ErrNotFound, id)
	}
	if err != nil {
		return PurchaseOrder{}, inventory.MapStoreError(err)
	}
	return po, nil
}

// GetStockLevels reads the current stock snapshot of products.
func (r *PostgresRepository) GetStockLevels(ctx context.Context, productIDs []int64) (map[int64]inventory.StockLevel, error) {
	return inventory.GetStockLevels(ctx, r.pool, productIDs)
}

// CommitReceipt applies stock writes, moves the order status and stores the
// receipt lines in a single transaction.
func (r *PostgresRepository) CommitReceipt(ctx context.Context, commit ReceiptCommit) error {
	return r.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := inventory.ApplyStockWrites(ctx, tx, commit.Writes); err != nil {
			return err
		}
		if commit.ToStatus != commit.FromStatus {
			if err := setStatus(ctx, tx, commit.PurchaseOrderID, commit.FromStatus, commit.ToStatus); err != nil {
				return err
			}
		}
		receiptID := pgtype.UUID{Bytes: commit.ReceiptID, Valid: true}
		_, err := tx.Exec(ctx, `
			INSERT INTO merchandise_receipts (id, purchase_order_id, previous_status, status, received_at)
			VALUES ($1, $2, $3, $4, now())`,
			receiptID, commit.PurchaseOrderID, string(commit.FromStatus), string(commit.ToStatus))
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}

		skipped := make(map[int]struct{}, len(commit.Skipped))
		for _, s := range commit.Skipped {
			skipped[s.Line] = struct{}{}
		}
		rows := make([][]any, 0, len(commit.Items))
		for i, item := range commit.Items {
			_, isSkipped := skipped[i]
			rows = append(rows, []any{
				receiptID, int32(i), item.ProductID,
				item.OrderedQuantity, item.ReceivedQuantity,
				item.OrderedUnitPrice, item.ReceivedUnitPrice,
				isSkipped,
			})
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"merchandise_receipt_lines"},
			[]string{"receipt_id", "line_no", "product_id", "ordered_quantity", "received_quantity", "ordered_unit_price", "received_unit_price", "skipped"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("insert receipt lines: %w", err)
		}
		return nil
	})
}

// SetStatus moves the order from one status to another.
func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, from, to POStatus) error {
	return r.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return setStatus(ctx, tx, id, from, to)
	})
}

func setStatus(ctx context.Context, tx pgx.Tx, id int64, from, to POStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d is no longer %s", inventory.ErrStoreConflict, id, from)
	}
	return nil
}
