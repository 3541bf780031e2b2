package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/costing/internal/catalog"
	jobmetrics "github.com/odyssey-erp/costing/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const defaultRefreshConcurrency = 4

// CostRecomputer is the catalog behaviour the cost jobs depend on.
type CostRecomputer interface {
	RecomputeCost(ctx context.Context, productID int64) (catalog.CostBreakdown, error)
	MixedProductIDs(ctx context.Context) ([]int64, error)
}

// CostRefreshJob recomputes mixed product costs in the background.
type CostRefreshJob struct {
	Costing     CostRecomputer
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
}

// NewCostRefreshJob wires dependencies for the cost handlers.
func NewCostRefreshJob(costing CostRecomputer, logger *slog.Logger, metrics *jobmetrics.Metrics, concurrency int) *CostRefreshJob {
	return &CostRefreshJob{Costing: costing, Logger: logger, Metrics: metrics, Concurrency: concurrency}
}

// HandleRecompute processes TaskCostRecompute tasks.
func (j *CostRefreshJob) HandleRecompute(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Costing == nil {
		return errors.New("cost recompute: handler not configured")
	}
	var payload CostRecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.ProductID <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCostRecompute)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	breakdown, err := j.Costing.RecomputeCost(ctx, payload.ProductID)
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrNotComposite) {
		j.logger().Warn("cost recompute skipped", slog.Int64("product_id", payload.ProductID), slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	j.countFlagged(breakdown)
	return nil
}

// HandleRefreshAll processes TaskCostRefreshAll tasks. A product that fails
// does not stop the others; the run fails if any product failed.
func (j *CostRefreshJob) HandleRefreshAll(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Costing == nil {
		return errors.New("cost refresh: handler not configured")
	}
	var payload CostRefreshAllPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCostRefreshAll)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	ids, err := j.Costing.MixedProductIDs(ctx)
	if err != nil {
		logger.Error("list mixed products", slog.Any("error", err))
		return err
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency())
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			breakdown, err := j.Costing.RecomputeCost(gctx, id)
			if err != nil {
				failed.Add(1)
				logger.Error("recompute cost", slog.Int64("product_id", id), slog.Any("error", err))
				return nil
			}
			j.countFlagged(breakdown)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("completed cost refresh",
		slog.Int("products", len(ids)),
		slog.Int64("failed", failed.Load()),
		slog.Duration("duration", time.Since(start)))
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("cost refresh: %d of %d products failed", n, len(ids))
	}
	return nil
}

func (j *CostRefreshJob) countFlagged(breakdown catalog.CostBreakdown) {
	counts := make(map[catalog.LineStatus]int)
	for _, line := range breakdown.Flagged() {
		counts[line.Status]++
	}
	for status, n := range counts {
		j.metrics().AddFlaggedLines(string(status), n)
	}
}

func (j *CostRefreshJob) concurrency() int {
	if j.Concurrency <= 0 {
		return defaultRefreshConcurrency
	}
	return j.Concurrency
}

func (j *CostRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CostRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
