package catalog

import (
	"errors"

	"github.com/odyssey-erp/costing/internal/units"
)

// IngredientCost prices one ingredient line against its base product.
//
// Incompatible units fail with units.ErrIncompatibleUnits. When the units
// cannot be resolved at all (unknown unit) the quantity is priced directly
// against the presentation price and the line is marked LineFallback.
func IngredientCost(ing Ingredient, base Product) (LineCost, error) {
	line := LineCost{ProductID: ing.ProductID, Quantity: ing.Quantity, Unit: ing.Unit}

	converted, err := units.Convert(ing.Quantity, ing.Unit, base.Presentation)
	if errors.Is(err, units.ErrIncompatibleUnits) {
		line.Status = LineIncompatible
		line.Detail = err.Error()
		return line, err
	}
	if base.Price == nil {
		line.Status = LineNoPrice
		return line, nil
	}
	price := *base.Price
	if err != nil {
		line.ConvertedQuantity = ing.Quantity
		line.Cost = ing.Quantity * price * wasteFactor(ing.WastePercentage)
		line.Status = LineFallback
		line.Detail = err.Error()
		return line, nil
	}

	presentationQty := base.PresentationQuantity
	if presentationQty < 1 {
		presentationQty = 1
	}
	line.ConvertedQuantity = converted
	line.Cost = converted * (price / presentationQty) * wasteFactor(ing.WastePercentage)
	line.Status = LinePriced
	return line, nil
}

// CompositeCost sums the ingredient costs of a mixed product. Missing base
// products and incompatible lines contribute zero and are reported in Lines.
func CompositeCost(ingredients []Ingredient, catalog map[int64]Product) CostBreakdown {
	breakdown := CostBreakdown{Lines: make([]LineCost, 0, len(ingredients))}
	for _, ing := range ingredients {
		base, ok := catalog[ing.ProductID]
		if !ok {
			breakdown.Lines = append(breakdown.Lines, LineCost{
				ProductID: ing.ProductID,
				Quantity:  ing.Quantity,
				Unit:      ing.Unit,
				Status:    LineMissingProduct,
			})
			continue
		}
		line, _ := IngredientCost(ing, base)
		breakdown.Total += line.Cost
		breakdown.Lines = append(breakdown.Lines, line)
	}
	return breakdown
}

// ComputeCompositeProductCost returns the unit cost of a mixed product.
func ComputeCompositeProductCost(ingredients []Ingredient, catalog map[int64]Product) float64 {
	return CompositeCost(ingredients, catalog).Total
}

// IndexProducts keys products by ID.
func IndexProducts(products []Product) map[int64]Product {
	index := make(map[int64]Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}

func wasteFactor(pct float64) float64 {
	return 1 + pct/100
}
