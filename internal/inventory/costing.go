package inventory

// WeightedAverage returns the stock and unit cost after receiving qty units at price.
// With nothing on hand afterwards the received price becomes the unit cost.
func WeightedAverage(prevStock, prevCost, qty, price float64) (newStock, newCost float64) {
	newStock = prevStock + qty
	if newStock <= 0 {
		return newStock, price
	}
	return newStock, (prevStock*prevCost + qty*price) / newStock
}

// ApplyItem computes the update of a single line against level.
// Unvalued stock on hand is taken at the received price.
func ApplyItem(level StockLevel, item ReceivedItem) InventoryUpdate {
	prevCost := level.UnitCost
	if level.Unvalued {
		prevCost = item.ReceivedUnitPrice
	}
	newStock, newCost := WeightedAverage(level.Stock, prevCost, item.ReceivedQuantity, item.ReceivedUnitPrice)
	return InventoryUpdate{
		ProductID:        item.ProductID,
		PreviousStock:    level.Stock,
		AddedQuantity:    item.ReceivedQuantity,
		NewStock:         newStock,
		PreviousUnitCost: level.UnitCost,
		UnitCost:         newCost,
		CostVariance:     newCost - prevCost,
	}
}

// PlanReceipt applies items in order against the snapshot. A product listed
// twice sees the result of its earlier line; products absent from the
// snapshot are skipped. Writes hold one entry per product with the version
// read in the snapshot.
func PlanReceipt(items []ReceivedItem, snapshot map[int64]StockLevel) Plan {
	plan := Plan{Updates: make([]InventoryUpdate, 0, len(items))}
	working := make(map[int64]StockLevel, len(snapshot))
	var touched []int64
	for i, item := range items {
		level, ok := working[item.ProductID]
		if !ok {
			level, ok = snapshot[item.ProductID]
			if !ok {
				plan.Skipped = append(plan.Skipped, SkippedLine{Line: i, ProductID: item.ProductID, Reason: ErrProductNotFound.Error()})
				continue
			}
			touched = append(touched, item.ProductID)
		}
		update := ApplyItem(level, item)
		level.Stock = update.NewStock
		level.UnitCost = update.UnitCost
		level.Unvalued = false
		working[item.ProductID] = level
		plan.Updates = append(plan.Updates, update)
	}
	for _, id := range touched {
		level := working[id]
		plan.Writes = append(plan.Writes, StockWrite{
			ProductID:       id,
			Stock:           level.Stock,
			UnitCost:        level.UnitCost,
			ExpectedVersion: snapshot[id].Version,
		})
	}
	return plan
}
