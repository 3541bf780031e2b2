package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/costing/internal/shared"
)

// Repository abstracts product persistence used by Service.
type Repository interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, ids []int64) ([]Product, error)
	ListMixedProductIDs(ctx context.Context) ([]int64, error)
	UpdateCost(ctx context.Context, id int64, cost float64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service recomputes mixed product costs.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Preview prices an ingredient list against the current catalog without
// storing anything.
func (s *Service) Preview(ctx context.Context, ingredients []Ingredient) (CostBreakdown, error) {
	catalog, err := s.loadCatalog(ctx, ingredients)
	if err != nil {
		return CostBreakdown{}, err
	}
	return CompositeCost(ingredients, catalog), nil
}

// RecomputeCost derives and stores the cost of a mixed product.
func (s *Service) RecomputeCost(ctx context.Context, productID int64) (CostBreakdown, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return CostBreakdown{}, err
	}
	if product.Kind != KindMixed {
		return CostBreakdown{}, fmt.Errorf("%w: %d", ErrNotComposite, productID)
	}
	catalog, err := s.loadCatalog(ctx, product.Ingredients)
	if err != nil {
		return CostBreakdown{}, err
	}
	breakdown := CompositeCost(product.Ingredients, catalog)
	breakdown.ProductID = productID

	for _, line := range breakdown.Flagged() {
		s.logger.Warn("ingredient cost flagged",
			slog.Int64("product_id", productID),
			slog.Int64("ingredient_product_id", line.ProductID),
			slog.String("status", string(line.Status)),
			slog.String("detail", line.Detail))
	}

	if err := s.repo.UpdateCost(ctx, productID, breakdown.Total); err != nil {
		return CostBreakdown{}, fmt.Errorf("catalog: store cost: %w", err)
	}
	s.recordAudit(ctx, productID, product.Cost, breakdown)
	return breakdown, nil
}

// MixedProductIDs lists every product whose cost is derived from ingredients.
func (s *Service) MixedProductIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListMixedProductIDs(ctx)
}

func (s *Service) loadCatalog(ctx context.Context, ingredients []Ingredient) (map[int64]Product, error) {
	if len(ingredients) == 0 {
		return map[int64]Product{}, nil
	}
	seen := make(map[int64]struct{}, len(ingredients))
	ids := make([]int64, 0, len(ingredients))
	for _, ing := range ingredients {
		if _, ok := seen[ing.ProductID]; ok {
			continue
		}
		seen[ing.ProductID] = struct{}{}
		ids = append(ids, ing.ProductID)
	}
	products, err := s.repo.ListProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: load ingredients: %w", err)
	}
	return IndexProducts(products), nil
}

func (s *Service) recordAudit(ctx context.Context, productID int64, previous *float64, breakdown CostBreakdown) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"cost":          breakdown.Total,
		"lines":         len(breakdown.Lines),
		"flagged_lines": len(breakdown.Flagged()),
	}
	if previous != nil {
		meta["previous_cost"] = *previous
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   "COST_RECOMPUTE",
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", productID),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit cost recompute", slog.Int64("product_id", productID), slog.Any("error", err))
	}
}
