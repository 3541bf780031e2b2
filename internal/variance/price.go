package variance

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/costing/internal/inventory"
)

// Impact classifies a unit price change from the buyer's point of view.
type Impact string

const (
	// ImpactPositive means the received price was below the ordered price.
	ImpactPositive Impact = "positive"
	// ImpactNegative means the buyer paid more than ordered.
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// PriceVarianceReport compares the ordered and received unit price of one line.
type PriceVarianceReport struct {
	ProductID          int64   `json:"product_id"`
	OrderedUnitPrice   float64 `json:"ordered_unit_price"`
	ReceivedUnitPrice  float64 `json:"received_unit_price"`
	Variance           float64 `json:"variance"`
	VariancePercentage float64 `json:"variance_percentage"`
	Impact             Impact  `json:"impact"`
	ReceivedQuantity   float64 `json:"received_quantity"`
	ExtendedVariance   float64 `json:"extended_variance"`
}

// Summary aggregates the reports of a receipt.
type Summary struct {
	Lines            int     `json:"lines"`
	Positive         int     `json:"positive"`
	Negative         int     `json:"negative"`
	Neutral          int     `json:"neutral"`
	ExtendedVariance float64 `json:"extended_variance"`
}

var hundred = decimal.NewFromInt(100)

// Analyze returns one report per item in input order, regardless of how much
// of the line was delivered.
func Analyze(items []inventory.ReceivedItem) []PriceVarianceReport {
	reports := make([]PriceVarianceReport, 0, len(items))
	for _, item := range items {
		reports = append(reports, analyzeItem(item))
	}
	return reports
}

func analyzeItem(item inventory.ReceivedItem) PriceVarianceReport {
	ordered := decimal.NewFromFloat(item.OrderedUnitPrice)
	received := decimal.NewFromFloat(item.ReceivedUnitPrice)
	variance := received.Sub(ordered)

	pct := decimal.Zero
	if ordered.IsPositive() {
		pct = variance.Div(ordered).Mul(hundred)
	}

	return PriceVarianceReport{
		ProductID:          item.ProductID,
		OrderedUnitPrice:   item.OrderedUnitPrice,
		ReceivedUnitPrice:  item.ReceivedUnitPrice,
		Variance:           variance.InexactFloat64(),
		VariancePercentage: pct.InexactFloat64(),
		Impact:             classify(variance),
		ReceivedQuantity:   item.ReceivedQuantity,
		ExtendedVariance:   variance.Mul(decimal.NewFromFloat(item.ReceivedQuantity)).InexactFloat64(),
	}
}

func classify(variance decimal.Decimal) Impact {
	switch variance.Sign() {
	case 1:
		return ImpactNegative
	case -1:
		return ImpactPositive
	default:
		return ImpactNeutral
	}
}

// Summarize counts reports per impact and totals the extended variance.
func Summarize(reports []PriceVarianceReport) Summary {
	summary := Summary{Lines: len(reports)}
	total := decimal.Zero
	for _, r := range reports {
		switch r.Impact {
		case ImpactPositive:
			summary.Positive++
		case ImpactNegative:
			summary.Negative++
		default:
			summary.Neutral++
		}
		total = total.Add(decimal.NewFromFloat(r.ExtendedVariance))
	}
	summary.ExtendedVariance = total.InexactFloat64()
	return summary
}
