package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/costing/internal/inventory"
	"github.com/odyssey-erp/costing/internal/shared"
	"github.com/odyssey-erp/costing/internal/variance"
)

// Repository describes the persistence used by Service.
type Repository interface {
	GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	GetStockLevels(ctx context.Context, productIDs []int64) (map[int64]inventory.StockLevel, error)
	// CommitReceipt writes stock, order status and receipt history atomically.
	// It fails with inventory.ErrStoreConflict when a product version or the
	// order status changed since they were read.
	CommitReceipt(ctx context.Context, commit ReceiptCommit) error
	SetStatus(ctx context.Context, id int64, from, to POStatus) error
}

// Locker serialises receipts of the same purchase order.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReceiptMetrics counts receipt outcomes.
type ReceiptMetrics interface {
	ObserveReceipt(result string)
}

// Receipt results reported to ReceiptMetrics.
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultConflict  = "conflict"
	ResultFailed    = "failed"
)

// Config tunes receipt processing.
type Config struct {
	MaxAttempts int
	LockTTL     time.Duration
}

const defaultLockTTL = 30 * time.Second

// Service orchestrates merchandise receipts against purchase orders.
type Service struct {
	repo    Repository
	locker  Locker
	audit   AuditPort
	metrics ReceiptMetrics
	logger  *slog.Logger
	cfg     Config
}

// NewService constructs procurement service. locker, audit and metrics may be nil.
func NewService(repo Repository, locker Locker, audit AuditPort, metrics ReceiptMetrics, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = inventory.DefaultMaxAttempts
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &Service{repo: repo, locker: locker, audit: audit, metrics: metrics, logger: logger, cfg: cfg}
}

// ProcessMerchandiseReceipt applies received items to stock, resolves the
// order status and reports price variances. Either everything is committed
// or nothing is; lines whose product no longer exists are reported in
// Skipped and do not fail the call.
func (s *Service) ProcessMerchandiseReceipt(ctx context.Context, purchaseOrderID int64, items []inventory.ReceivedItem) (ReceiptOutcome, error) {
	outcome, err := s.processReceipt(ctx, purchaseOrderID, items)
	s.observe(err)
	if err != nil {
		return ReceiptOutcome{}, err
	}
	return outcome, nil
}

func (s *Service) processReceipt(ctx context.Context, purchaseOrderID int64, items []inventory.ReceivedItem) (ReceiptOutcome, error) {
	if len(items) == 0 {
		return ReceiptOutcome{}, fmt.Errorf("%w: receipt has no items", ErrValidation)
	}
	if err := inventory.ValidateItems(items); err != nil {
		return ReceiptOutcome{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	release, err := s.lock(ctx, purchaseOrderID)
	if err != nil {
		return ReceiptOutcome{}, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release receipt lock", slog.Int64("purchase_order_id", purchaseOrderID), slog.Any("error", err))
		}
	}()

	outcome := ReceiptOutcome{ReceiptID: uuid.New(), PurchaseOrderID: purchaseOrderID}
	err = inventory.RetryOnConflict(ctx, s.cfg.MaxAttempts, func(ctx context.Context) error {
		po, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
		if err != nil {
			return err
		}
		if !po.Status.AcceptsReceipts() {
			return fmt.Errorf("%w: purchase order %d is %s", ErrInvalidState, po.ID, po.Status)
		}
		levels, err := s.repo.GetStockLevels(ctx, inventory.ProductIDs(items))
		if err != nil {
			return err
		}
		plan := inventory.PlanReceipt(items, levels)
		next := ResolveStatus(po.Status, items)
		if next != po.Status && !po.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidState, po.Status, next)
		}
		err = s.repo.CommitReceipt(ctx, ReceiptCommit{
			ReceiptID:       outcome.ReceiptID,
			PurchaseOrderID: po.ID,
			FromStatus:      po.Status,
			ToStatus:        next,
			Items:           items,
			Skipped:         plan.Skipped,
			Writes:          plan.Writes,
		})
		if err != nil {
			return err
		}
		outcome.Currency = po.Currency
		outcome.InventoryUpdates = plan.Updates
		outcome.Skipped = plan.Skipped
		outcome.PreviousStatus = po.Status
		outcome.Status = next
		return nil
	})
	if err != nil {
		return ReceiptOutcome{}, err
	}

	outcome.VarianceReports = variance.Analyze(items)
	outcome.VarianceSummary = variance.Summarize(outcome.VarianceReports)

	for _, skipped := range outcome.Skipped {
		s.logger.Warn("receipt line skipped",
			slog.Int64("purchase_order_id", purchaseOrderID),
			slog.Int("line", skipped.Line),
			slog.Int64("product_id", skipped.ProductID),
			slog.String("reason", skipped.Reason))
	}
	s.recordAudit(ctx, "RECEIPT_COMMIT", purchaseOrderID, map[string]any{
		"receipt_id":        outcome.ReceiptID.String(),
		"previous_status":   string(outcome.PreviousStatus),
		"status":            string(outcome.Status),
		"lines":             len(items),
		"skipped":           len(outcome.Skipped),
		"extended_variance": outcome.VarianceSummary.ExtendedVariance,
	})
	return outcome, nil
}

// PreviewVariance analyses received items of an existing order without
// applying them.
func (s *Service) PreviewVariance(ctx context.Context, purchaseOrderID int64, items []inventory.ReceivedItem) ([]variance.PriceVarianceReport, error) {
	if err := inventory.ValidateItems(items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID); err != nil {
		return nil, err
	}
	return variance.Analyze(items), nil
}

// TransitionStatus moves an order along its lifecycle, e.g. approval or cancellation.
func (s *Service) TransitionStatus(ctx context.Context, purchaseOrderID int64, next POStatus) (PurchaseOrder, error) {
	if !next.Valid() {
		return PurchaseOrder{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}
	po, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !po.Status.CanTransitionTo(next) {
		return PurchaseOrder{}, fmt.Errorf("%w: %s to %s", ErrInvalidState, po.Status, next)
	}
	if err := s.repo.SetStatus(ctx, po.ID, po.Status, next); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_STATUS", po.ID, map[string]any{"from": string(po.Status), "to": string(next)})
	po.Status = next
	return po, nil
}

func (s *Service) lock(ctx context.Context, purchaseOrderID int64) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if s.locker == nil {
		return noop, nil
	}
	release, err := s.locker.Obtain(ctx, shared.ReceiptLockKey(purchaseOrderID), s.cfg.LockTTL)
	switch {
	case errors.Is(err, shared.ErrLockNotObtained):
		return nil, fmt.Errorf("%w: purchase order %d", ErrReceiptInProgress, purchaseOrderID)
	case err != nil:
		// Version checks in CommitReceipt still guard the write.
		s.logger.Warn("receipt lock unavailable", slog.Int64("purchase_order_id", purchaseOrderID), slog.Any("error", err))
		return noop, nil
	}
	return release, nil
}

func (s *Service) observe(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.ObserveReceipt(ResultCommitted)
	case errors.Is(err, inventory.ErrStoreConflict), errors.Is(err, ErrReceiptInProgress):
		s.metrics.ObserveReceipt(ResultConflict)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidState), errors.Is(err, ErrNotFound):
		s.metrics.ObserveReceipt(ResultRejected)
	default:
		s.metrics.ObserveReceipt(ResultFailed)
	}
}

func (s *Service) recordAudit(ctx context.Context, action string, purchaseOrderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", purchaseOrderID), Meta: meta})
	if err != nil {
		s.logger.Warn("audit receipt", slog.String("action", action), slog.Int64("purchase_order_id", purchaseOrderID), slog.Any("error", err))
	}
}
