package inventory

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	levels map[int64]StockLevel

	// failOnWrite makes ApplyBatch fail when it reaches that write (1-based).
	failOnWrite int
	// beforeApply runs between the snapshot read and the batch write.
	beforeApply func(s *memoryStore)
	readErr     error
	reads       int
	batches     int
}

func newMemoryStore(levels ...StockLevel) *memoryStore {
	s := &memoryStore{levels: make(map[int64]StockLevel)}
	for _, l := range levels {
		s.levels[l.ProductID] = l
	}
	return s
}

func (s *memoryStore) GetStockLevels(ctx context.Context, ids []int64) (map[int64]StockLevel, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make(map[int64]StockLevel, len(ids))
	for _, id := range ids {
		if l, ok := s.levels[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (s *memoryStore) ApplyBatch(ctx context.Context, writes []StockWrite) error {
	s.batches++
	if s.beforeApply != nil {
		hook := s.beforeApply
		s.beforeApply = nil
		hook(s)
	}
	staged := make(map[int64]StockLevel, len(s.levels))
	for id, l := range s.levels {
		staged[id] = l
	}
	for i, w := range writes {
		if s.failOnWrite == i+1 {
			return errors.New("disk full")
		}
		current := staged[w.ProductID]
		if current.Version != w.ExpectedVersion {
			return ErrStoreConflict
		}
		staged[w.ProductID] = StockLevel{ProductID: w.ProductID, Stock: w.Stock, UnitCost: w.UnitCost, Version: current.Version + 1}
	}
	s.levels = staged
	return nil
}

func TestWeightedAverageAcrossReceipts(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1})
	proc := NewProcessor(store, nil, ProcessorConfig{})
	ctx := context.Background()

	plan, err := proc.Apply(ctx, []ReceivedItem{{ProductID: 1, OrderedQuantity: 10, ReceivedQuantity: 10, OrderedUnitPrice: 100000, ReceivedUnitPrice: 100000}})
	require.NoError(t, err)
	require.Len(t, plan.Updates, 1)
	require.InDelta(t, 10.0, plan.Updates[0].NewStock, 1e-9)
	require.InDelta(t, 100000.0, plan.Updates[0].UnitCost, 1e-6)

	plan, err = proc.Apply(ctx, []ReceivedItem{{ProductID: 1, OrderedQuantity: 5, ReceivedQuantity: 5, OrderedUnitPrice: 120000, ReceivedUnitPrice: 120000}})
	require.NoError(t, err)
	update := plan.Updates[0]
	require.InDelta(t, 10.0, update.PreviousStock, 1e-9)
	require.InDelta(t, 15.0, update.NewStock, 1e-9)
	require.InDelta(t, 106666.6667, update.UnitCost, 0.001)
	require.InDelta(t, update.UnitCost-100000, update.CostVariance, 1e-9)

	require.InDelta(t, 15.0, store.levels[1].Stock, 1e-9)
	require.Equal(t, int64(2), store.levels[1].Version)
}

func TestUnitCostStaysWithinReceivedPriceRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := newMemoryStore(StockLevel{ProductID: 1})
	proc := NewProcessor(store, nil, ProcessorConfig{})

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < 200; i++ {
		price := 1 + rng.Float64()*99
		qty := float64(rng.Intn(20))
		plan, err := proc.Apply(context.Background(), []ReceivedItem{{ProductID: 1, OrderedQuantity: qty, ReceivedQuantity: qty, OrderedUnitPrice: price, ReceivedUnitPrice: price}})
		require.NoError(t, err)
		lo, hi = math.Min(lo, price), math.Max(hi, price)
		cost := plan.Updates[0].UnitCost
		require.GreaterOrEqual(t, cost, lo-1e-9)
		require.LessOrEqual(t, cost, hi+1e-9)
	}
}

func TestZeroQuantityLeavesStock(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1, Stock: 8, UnitCost: 3.5}, StockLevel{ProductID: 2})
	proc := NewProcessor(store, nil, ProcessorConfig{})

	plan, err := proc.Apply(context.Background(), []ReceivedItem{
		{ProductID: 1, OrderedQuantity: 4, ReceivedQuantity: 0, OrderedUnitPrice: 3.5, ReceivedUnitPrice: 9},
		{ProductID: 2, OrderedQuantity: 4, ReceivedQuantity: 0, OrderedUnitPrice: 2, ReceivedUnitPrice: 2.25},
	})
	require.NoError(t, err)

	require.InDelta(t, 8.0, plan.Updates[0].NewStock, 1e-9)
	require.InDelta(t, 3.5, plan.Updates[0].UnitCost, 1e-9)
	require.Zero(t, plan.Updates[0].CostVariance)

	require.Zero(t, plan.Updates[1].NewStock)
	require.InDelta(t, 2.25, plan.Updates[1].UnitCost, 1e-9)
}

func TestMissingProductIsSkipped(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1, Stock: 1, UnitCost: 10}, StockLevel{ProductID: 3})
	proc := NewProcessor(store, nil, ProcessorConfig{})

	plan, err := proc.Apply(context.Background(), []ReceivedItem{
		{ProductID: 1, ReceivedQuantity: 1, ReceivedUnitPrice: 20},
		{ProductID: 2, ReceivedQuantity: 5, ReceivedUnitPrice: 1},
		{ProductID: 3, ReceivedQuantity: 2, ReceivedUnitPrice: 4},
	})
	require.NoError(t, err)
	require.Len(t, plan.Updates, 2)
	require.Equal(t, int64(1), plan.Updates[0].ProductID)
	require.Equal(t, int64(3), plan.Updates[1].ProductID)
	require.Equal(t, []SkippedLine{{Line: 1, ProductID: 2, Reason: ErrProductNotFound.Error()}}, plan.Skipped)
	require.InDelta(t, 15.0, store.levels[1].UnitCost, 1e-9)
	require.InDelta(t, 2.0, store.levels[3].Stock, 1e-9)
}

func TestRepeatedProductSeesEarlierLine(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1})
	proc := NewProcessor(store, nil, ProcessorConfig{})

	plan, err := proc.Apply(context.Background(), []ReceivedItem{
		{ProductID: 1, ReceivedQuantity: 2, ReceivedUnitPrice: 10},
		{ProductID: 1, ReceivedQuantity: 2, ReceivedUnitPrice: 20},
	})
	require.NoError(t, err)
	require.Len(t, plan.Writes, 1)
	require.InDelta(t, 2.0, plan.Updates[1].PreviousStock, 1e-9)
	require.InDelta(t, 15.0, plan.Updates[1].UnitCost, 1e-9)
	require.InDelta(t, 4.0, store.levels[1].Stock, 1e-9)
	require.InDelta(t, 15.0, store.levels[1].UnitCost, 1e-9)
}

func TestFailedBatchLeavesAllProductsUnchanged(t *testing.T) {
	before := []StockLevel{
		{ProductID: 1, Stock: 10, UnitCost: 2, Version: 4},
		{ProductID: 2, Stock: 0, UnitCost: 0, Version: 1},
		{ProductID: 3, Stock: 5, UnitCost: 7, Version: 9},
	}
	store := newMemoryStore(before...)
	store.failOnWrite = 2
	proc := NewProcessor(store, nil, ProcessorConfig{})

	_, err := proc.Apply(context.Background(), []ReceivedItem{
		{ProductID: 1, ReceivedQuantity: 5, ReceivedUnitPrice: 3},
		{ProductID: 2, ReceivedQuantity: 5, ReceivedUnitPrice: 3},
		{ProductID: 3, ReceivedQuantity: 5, ReceivedUnitPrice: 3},
	})
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, 1, store.batches)
	for _, l := range before {
		require.Equal(t, l, store.levels[l.ProductID])
	}
}

func TestConflictIsRecomputedFromFreshSnapshot(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1, Stock: 10, UnitCost: 10, Version: 1})
	store.beforeApply = func(s *memoryStore) {
		// Another receipt lands 10 units at 20 in between.
		s.levels[1] = StockLevel{ProductID: 1, Stock: 20, UnitCost: 15, Version: 2}
	}
	proc := NewProcessor(store, nil, ProcessorConfig{MaxAttempts: 3})

	plan, err := proc.Apply(context.Background(), []ReceivedItem{{ProductID: 1, ReceivedQuantity: 20, ReceivedUnitPrice: 30}})
	require.NoError(t, err)
	require.Equal(t, 2, store.reads)
	require.InDelta(t, 20.0, plan.Updates[0].PreviousStock, 1e-9)
	require.InDelta(t, 40.0, store.levels[1].Stock, 1e-9)
	require.InDelta(t, 22.5, store.levels[1].UnitCost, 1e-9)
	require.Equal(t, int64(3), store.levels[1].Version)
}

type conflictingStore struct {
	*memoryStore
}

func (s conflictingStore) ApplyBatch(ctx context.Context, writes []StockWrite) error {
	s.batches++
	return ErrStoreConflict
}

func TestConflictRetriesAreBounded(t *testing.T) {
	store := conflictingStore{newMemoryStore(StockLevel{ProductID: 1})}
	proc := NewProcessor(store, nil, ProcessorConfig{MaxAttempts: 2})

	_, err := proc.Apply(context.Background(), []ReceivedItem{{ProductID: 1, ReceivedQuantity: 1, ReceivedUnitPrice: 1}})
	require.ErrorIs(t, err, ErrStoreConflict)
	require.Equal(t, 2, store.reads)
	require.Equal(t, 2, store.batches)
}

func TestStoreErrorsPropagateUntouched(t *testing.T) {
	unavailable := errors.Join(ErrStoreUnavailable, errors.New("dial tcp: connection refused"))
	store := newMemoryStore(StockLevel{ProductID: 1})
	store.readErr = unavailable
	proc := NewProcessor(store, nil, ProcessorConfig{})

	_, err := proc.Apply(context.Background(), []ReceivedItem{{ProductID: 1, ReceivedQuantity: 1, ReceivedUnitPrice: 1}})
	require.Same(t, unavailable, err)
	require.Equal(t, 1, store.reads)
}

func TestNegativeValuesRejectedBeforeAnyIO(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1})
	proc := NewProcessor(store, nil, ProcessorConfig{})

	_, err := proc.Apply(context.Background(), []ReceivedItem{{ProductID: 1, ReceivedQuantity: -1, ReceivedUnitPrice: 1}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = proc.Apply(context.Background(), []ReceivedItem{{ProductID: 1, ReceivedQuantity: 1, ReceivedUnitPrice: -0.5}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Zero(t, store.reads)
}

func TestAllLinesMissingWritesNothing(t *testing.T) {
	store := newMemoryStore()
	proc := NewProcessor(store, nil, ProcessorConfig{})

	plan, err := proc.Apply(context.Background(), []ReceivedItem{{ProductID: 5, ReceivedQuantity: 1, ReceivedUnitPrice: 1}})
	require.NoError(t, err)
	require.Empty(t, plan.Updates)
	require.Len(t, plan.Skipped, 1)
	require.Zero(t, store.batches)
}

func TestUnvaluedStockTakesReceivedPrice(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1, Stock: 6, Unvalued: true, Version: 4})
	proc := NewProcessor(store, nil, ProcessorConfig{})

	plan, err := proc.Apply(context.Background(), []ReceivedItem{
		{ProductID: 1, OrderedQuantity: 4, ReceivedQuantity: 4, OrderedUnitPrice: 12, ReceivedUnitPrice: 12},
		{ProductID: 1, OrderedQuantity: 10, ReceivedQuantity: 10, OrderedUnitPrice: 12, ReceivedUnitPrice: 6},
	})
	require.NoError(t, err)
	require.Len(t, plan.Updates, 2)

	first := plan.Updates[0]
	require.InDelta(t, 10.0, first.NewStock, 1e-9)
	require.InDelta(t, 12.0, first.UnitCost, 1e-9)
	require.InDelta(t, 0.0, first.CostVariance, 1e-9)

	// The second line averages against the now valued stock: (10*12 + 10*6) / 20.
	second := plan.Updates[1]
	require.InDelta(t, 9.0, second.UnitCost, 1e-9)
	require.GreaterOrEqual(t, second.UnitCost, 6.0)
	require.LessOrEqual(t, second.UnitCost, 12.0)

	require.InDelta(t, 20.0, store.levels[1].Stock, 1e-9)
	require.InDelta(t, 9.0, store.levels[1].UnitCost, 1e-9)
	require.False(t, store.levels[1].Unvalued)
	require.Equal(t, int64(5), store.levels[1].Version)
}
