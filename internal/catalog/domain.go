package catalog

import (
	"errors"

	"github.com/odyssey-erp/costing/internal/units"
)

// ProductKind distinguishes directly costed products from recipes.
type ProductKind string

const (
	// KindBase products carry a directly entered price.
	KindBase ProductKind = "base"
	// KindMixed products derive their cost from ingredients.
	KindMixed ProductKind = "mixed"
)

// Product as consumed by the costing engine.
type Product struct {
	ID                   int64        `json:"id"`
	Name                 string       `json:"name"`
	Kind                 ProductKind  `json:"kind"`
	Price                *float64     `json:"price,omitempty"`
	Cost                 *float64     `json:"cost,omitempty"`
	Presentation         units.Unit   `json:"presentation"`
	PresentationQuantity float64      `json:"presentation_quantity"`
	Stock                float64      `json:"stock"`
	Ingredients          []Ingredient `json:"ingredients,omitempty"`
}

// Ingredient is one line of a mixed product's recipe.
type Ingredient struct {
	ProductID       int64      `json:"product_id" validate:"required,gt=0"`
	Quantity        float64    `json:"quantity" validate:"gt=0"`
	Unit            units.Unit `json:"unit" validate:"required"`
	WastePercentage float64    `json:"waste_percentage" validate:"gte=0"`
}

// LineStatus explains how an ingredient line was priced.
type LineStatus string

const (
	// LinePriced is a normal conversion-and-price computation.
	LinePriced LineStatus = "priced"
	// LineNoPrice means the base product has no price and contributes zero.
	LineNoPrice LineStatus = "no_price"
	// LineMissingProduct means the base product no longer exists.
	LineMissingProduct LineStatus = "missing_product"
	// LineIncompatible means the ingredient unit cannot be converted to the
	// base product's presentation; the line contributes zero.
	LineIncompatible LineStatus = "incompatible_units"
	// LineFallback means the units could not be resolved and the quantity was
	// priced as if it were already expressed in the presentation unit.
	LineFallback LineStatus = "fallback"
)

// LineCost is the priced result of one ingredient line.
type LineCost struct {
	ProductID         int64      `json:"product_id"`
	Quantity          float64    `json:"quantity"`
	Unit              units.Unit `json:"unit"`
	ConvertedQuantity float64    `json:"converted_quantity"`
	Cost              float64    `json:"cost"`
	Status            LineStatus `json:"status"`
	Detail            string     `json:"detail,omitempty"`
}

// Flagged reports whether the line needs manual review.
func (l LineCost) Flagged() bool {
	return l.Status != LinePriced
}

// CostBreakdown is the aggregate cost of a mixed product.
type CostBreakdown struct {
	ProductID int64      `json:"product_id,omitempty"`
	Total     float64    `json:"total"`
	Lines     []LineCost `json:"lines"`
}

// Flagged returns the lines that were not priced normally.
func (b CostBreakdown) Flagged() []LineCost {
	var out []LineCost
	for _, line := range b.Lines {
		if line.Flagged() {
			out = append(out, line)
		}
	}
	return out
}

var (
	// ErrNotFound indicates the product does not exist.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrNotComposite indicates a cost recompute was requested for a base product.
	ErrNotComposite = errors.New("catalog: product is not a mixed product")
)
