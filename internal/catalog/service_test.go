package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/costing/internal/shared"
	"github.com/odyssey-erp/costing/internal/units"
)

type memoryRepo struct {
	products map[int64]Product
	updates  map[int64]float64
	failCost error
}

func newMemoryRepo(products ...Product) *memoryRepo {
	repo := &memoryRepo{products: make(map[int64]Product), updates: make(map[int64]float64)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListProducts(ctx context.Context, ids []int64) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListMixedProductIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id, p := range r.products {
		if p.Kind == KindMixed {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepo) UpdateCost(ctx context.Context, id int64, cost float64) error {
	if r.failCost != nil {
		return r.failCost
	}
	r.updates[id] = cost
	p := r.products[id]
	p.Cost = &cost
	r.products[id] = p
	return nil
}

type auditSpy struct {
	logs []shared.AuditLog
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func bread() Product {
	return Product{
		ID:   10,
		Name: "Bread",
		Kind: KindMixed,
		Ingredients: []Ingredient{
			{ProductID: 1, Quantity: 200, Unit: units.Gram, WastePercentage: 10},
			{ProductID: 42, Quantity: 1, Unit: units.Piece},
		},
		Presentation:         units.Piece,
		PresentationQuantity: 1,
	}
}

func TestRecomputeCostStoresTotal(t *testing.T) {
	repo := newMemoryRepo(flour(), bread())
	audit := &auditSpy{}
	svc := NewService(repo, audit, nil)

	breakdown, err := svc.RecomputeCost(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), breakdown.ProductID)
	require.InDelta(t, 0.88, breakdown.Total, 1e-9)
	require.InDelta(t, 0.88, repo.updates[10], 1e-9)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "COST_RECOMPUTE", audit.logs[0].Action)
	require.Equal(t, 1, audit.logs[0].Meta["flagged_lines"])
}

func TestRecomputeCostRejectsBaseProducts(t *testing.T) {
	svc := NewService(newMemoryRepo(flour()), nil, nil)
	_, err := svc.RecomputeCost(context.Background(), 1)
	require.ErrorIs(t, err, ErrNotComposite)

	_, err = svc.RecomputeCost(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecomputeCostPropagatesStoreErrors(t *testing.T) {
	repo := newMemoryRepo(flour(), bread())
	repo.failCost = errors.New("connection reset")
	svc := NewService(repo, nil, nil)

	_, err := svc.RecomputeCost(context.Background(), 10)
	require.ErrorContains(t, err, "connection reset")
}

func TestPreviewDoesNotStore(t *testing.T) {
	repo := newMemoryRepo(flour())
	svc := NewService(repo, nil, nil)

	breakdown, err := svc.Preview(context.Background(), []Ingredient{
		{ProductID: 1, Quantity: 1, Unit: units.Kilogram},
		{ProductID: 1, Quantity: 500, Unit: units.Gram},
	})
	require.NoError(t, err)
	require.InDelta(t, 6.0, breakdown.Total, 1e-9)
	require.Empty(t, repo.updates)
}
