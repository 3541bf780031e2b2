package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/costing/internal/units"
)

// PostgresRepository persists catalog data in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PostgresRepository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, name, kind, price::float8, cost::float8, presentation, presentation_quantity::float8, stock::float8`

func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return Product{}, err
	}
	if product.Kind != KindMixed {
		return product, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ingredient_product_id, quantity::float8, unit, waste_percentage::float8
		FROM product_ingredients
		WHERE product_id = $1
		ORDER BY position`, id)
	if err != nil {
		return Product{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ing Ingredient
		var unit string
		if err := rows.Scan(&ing.ProductID, &ing.Quantity, &unit, &ing.WastePercentage); err != nil {
			return Product{}, err
		}
		ing.Unit = units.Unit(unit)
		product.Ingredients = append(product.Ingredients, ing)
	}
	return product, rows.Err()
}

func (r *PostgresRepository) ListProducts(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresRepository) ListMixedProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE kind = $1 ORDER BY id`, string(KindMixed))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *PostgresRepository) UpdateCost(ctx context.Context, id int64, cost float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET cost = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1`, id, cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p            Product
		kind         string
		presentation string
	)
	if err := row.Scan(&p.ID, &p.Name, &kind, &p.Price, &p.Cost, &presentation, &p.PresentationQuantity, &p.Stock); err != nil {
		return Product{}, err
	}
	p.Kind = ProductKind(kind)
	p.Presentation = units.Unit(presentation)
	return p, nil
}
