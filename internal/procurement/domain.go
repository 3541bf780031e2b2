package procurement

import (
	"errors"

	"github.com/google/uuid"

	"github.com/odyssey-erp/costing/internal/inventory"
	"github.com/odyssey-erp/costing/internal/variance"
)

// POStatus is the purchase order lifecycle state.
type POStatus string

const (
	StatusPending           POStatus = "pending"
	StatusApproved          POStatus = "approved"
	StatusReceived          POStatus = "received"
	StatusPartiallyReceived POStatus = "partially_received"
	StatusCanceled          POStatus = "canceled"
)

var transitions = map[POStatus][]POStatus{
	StatusPending:           {StatusApproved, StatusCanceled},
	StatusApproved:          {StatusReceived, StatusPartiallyReceived, StatusCanceled},
	StatusPartiallyReceived: {StatusReceived, StatusPartiallyReceived, StatusCanceled},
}

// Valid reports whether s is a known status.
func (s POStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusReceived, StatusPartiallyReceived, StatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s POStatus) IsTerminal() bool {
	return s == StatusReceived || s == StatusCanceled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s POStatus) CanTransitionTo(next POStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsReceipts reports whether merchandise may be received against s.
func (s POStatus) AcceptsReceipts() bool {
	return s == StatusApproved || s == StatusPartiallyReceived
}

// PurchaseOrder is the header of an order as seen by receiving.
type PurchaseOrder struct {
	ID       int64    `json:"id"`
	Number   string   `json:"number"`
	Status   POStatus `json:"status"`
	Currency string   `json:"currency"`
}

// ReceiptCommit is everything a receipt writes in one transaction.
type ReceiptCommit struct {
	ReceiptID       uuid.UUID
	PurchaseOrderID int64
	FromStatus      POStatus
	ToStatus        POStatus
	Items           []inventory.ReceivedItem
	Skipped         []inventory.SkippedLine
	Writes          []inventory.StockWrite
}

// ReceiptOutcome is returned to the receiving workflow once a receipt is committed.
type ReceiptOutcome struct {
	ReceiptID        uuid.UUID                      `json:"receipt_id"`
	PurchaseOrderID  int64                          `json:"purchase_order_id"`
	Currency         string                         `json:"currency,omitempty"`
	InventoryUpdates []inventory.InventoryUpdate    `json:"inventory_updates"`
	Skipped          []inventory.SkippedLine        `json:"skipped,omitempty"`
	PreviousStatus   POStatus                       `json:"previous_status"`
	Status           POStatus                       `json:"status"`
	VarianceReports  []variance.PriceVarianceReport `json:"variance_reports"`
	VarianceSummary  variance.Summary               `json:"variance_summary"`
}

var (
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrReceiptInProgress indicates another receipt for the same order is being processed.
	ErrReceiptInProgress = errors.New("procurement: receipt already in progress")
)
