package inventory

import (
	"errors"
	"fmt"
)

// ReceivedItem is one line of a merchandise receipt.
type ReceivedItem struct {
	ProductID         int64   `json:"product_id" validate:"required,gt=0"`
	OrderedQuantity   float64 `json:"ordered_quantity" validate:"gte=0"`
	ReceivedQuantity  float64 `json:"received_quantity" validate:"gte=0"`
	OrderedUnitPrice  float64 `json:"ordered_unit_price" validate:"gte=0"`
	ReceivedUnitPrice float64 `json:"received_unit_price" validate:"gte=0"`
}

// Validate rejects negative quantities and prices.
func (i ReceivedItem) Validate() error {
	if i.OrderedQuantity < 0 || i.ReceivedQuantity < 0 {
		return fmt.Errorf("%w: product %d", ErrInvalidQuantity, i.ProductID)
	}
	if i.OrderedUnitPrice < 0 || i.ReceivedUnitPrice < 0 {
		return fmt.Errorf("%w: product %d has a negative price", ErrInvalidQuantity, i.ProductID)
	}
	return nil
}

// StockLevel is the stock/cost snapshot of a product. Version increments on
// every write and guards compare-and-swap updates.
type StockLevel struct {
	ProductID int64
	Stock     float64
	UnitCost  float64
	Version   int64
	// Unvalued marks stock that has never been costed; the next receipt
	// values it at its own price.
	Unvalued bool
}

// StockWrite is the new stock/cost of a product, valid only while the row is
// still at ExpectedVersion.
type StockWrite struct {
	ProductID       int64
	Stock           float64
	UnitCost        float64
	ExpectedVersion int64
}

// InventoryUpdate records the effect of one received line.
type InventoryUpdate struct {
	ProductID        int64   `json:"product_id"`
	PreviousStock    float64 `json:"previous_stock"`
	AddedQuantity    float64 `json:"added_quantity"`
	NewStock         float64 `json:"new_stock"`
	PreviousUnitCost float64 `json:"previous_unit_cost"`
	UnitCost         float64 `json:"unit_cost"`
	CostVariance     float64 `json:"cost_variance"`
}

// SkippedLine is a receipt line that was left out of the batch.
type SkippedLine struct {
	Line      int    `json:"line"`
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

// Plan is the computed outcome of a receipt before or after it is committed.
type Plan struct {
	Updates []InventoryUpdate `json:"updates"`
	Skipped []SkippedLine     `json:"skipped,omitempty"`
	Writes  []StockWrite      `json:"-"`
}

var (
	// ErrProductNotFound marks a receipt line whose product no longer exists.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrInvalidQuantity indicates a negative quantity or price.
	ErrInvalidQuantity = errors.New("inventory: quantities and prices must be >= 0")
	// ErrStoreConflict indicates a product changed between read and write.
	ErrStoreConflict = errors.New("inventory: concurrent update conflict")
	// ErrStoreUnavailable indicates the product store could not be reached.
	ErrStoreUnavailable = errors.New("inventory: store unavailable")
)
