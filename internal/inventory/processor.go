package inventory

import (
	"context"
	"log/slog"
)

// ProductStore reads stock snapshots and writes receipt batches atomically.
// ApplyBatch must apply every write or none, and must fail with
// ErrStoreConflict when a product is no longer at its expected version.
type ProductStore interface {
	GetStockLevels(ctx context.Context, productIDs []int64) (map[int64]StockLevel, error)
	ApplyBatch(ctx context.Context, writes []StockWrite) error
}

// ProcessorConfig groups optional settings.
type ProcessorConfig struct {
	// MaxAttempts bounds re-read/recompute cycles on ErrStoreConflict.
	MaxAttempts int
}

// DefaultMaxAttempts is used when ProcessorConfig.MaxAttempts is not set.
const DefaultMaxAttempts = 3

// Processor applies merchandise receipts to product stock.
type Processor struct {
	store       ProductStore
	logger      *slog.Logger
	maxAttempts int
}

// NewProcessor builds Processor.
func NewProcessor(store ProductStore, logger *slog.Logger, cfg ProcessorConfig) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return &Processor{store: store, logger: logger, maxAttempts: attempts}
}

// MaxAttempts reports the conflict retry budget.
func (p *Processor) MaxAttempts() int {
	return p.maxAttempts
}

// Plan reads a consistent snapshot of every referenced product and computes
// the receipt without writing anything.
func (p *Processor) Plan(ctx context.Context, items []ReceivedItem) (Plan, error) {
	if err := ValidateItems(items); err != nil {
		return Plan{}, err
	}
	levels, err := p.store.GetStockLevels(ctx, ProductIDs(items))
	if err != nil {
		return Plan{}, err
	}
	return PlanReceipt(items, levels), nil
}

// Apply computes and commits a receipt as one batch, recomputing from a fresh
// snapshot when a concurrent writer wins the race.
func (p *Processor) Apply(ctx context.Context, items []ReceivedItem) (Plan, error) {
	var plan Plan
	err := RetryOnConflict(ctx, p.maxAttempts, func(ctx context.Context) error {
		var err error
		plan, err = p.Plan(ctx, items)
		if err != nil {
			return err
		}
		if len(plan.Writes) == 0 {
			return nil
		}
		return p.store.ApplyBatch(ctx, plan.Writes)
	})
	if err != nil {
		return Plan{}, err
	}
	for _, skipped := range plan.Skipped {
		p.logger.Warn("receipt line skipped",
			slog.Int("line", skipped.Line),
			slog.Int64("product_id", skipped.ProductID),
			slog.String("reason", skipped.Reason))
	}
	return plan, nil
}

// ValidateItems rejects the batch when any line carries negative values.
func ValidateItems(items []ReceivedItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ProductIDs lists the distinct products referenced by items in input order.
func ProductIDs(items []ReceivedItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
