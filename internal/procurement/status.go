package procurement

import "github.com/odyssey-erp/costing/internal/inventory"

// ResolveStatus derives the order status implied by a receipt. Every line
// delivered in full (or over-delivered) means received; any line delivered
// strictly between zero and the ordered quantity means partially received;
// otherwise current is kept.
func ResolveStatus(current POStatus, items []inventory.ReceivedItem) POStatus {
	if len(items) == 0 {
		return current
	}
	complete := true
	partial := false
	for _, item := range items {
		if item.ReceivedQuantity >= item.OrderedQuantity {
			continue
		}
		complete = false
		if item.ReceivedQuantity > 0 {
			partial = true
		}
	}
	switch {
	case complete:
		return StatusReceived
	case partial:
		return StatusPartiallyReceived
	default:
		return current
	}
}
