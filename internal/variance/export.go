package variance

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the variance rows.
const SheetName = "Price Variance"

var workbookHeader = []string{
	"Product ID",
	"Ordered Unit Price",
	"Received Unit Price",
	"Variance",
	"Variance %",
	"Impact",
	"Received Quantity",
	"Extended Variance",
}

// WriteWorkbook renders reports as an xlsx workbook followed by a totals row.
func WriteWorkbook(w io.Writer, reports []PriceVarianceReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("variance: rename sheet: %w", err)
	}
	for col, title := range workbookHeader {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}

	for i, r := range reports {
		row := i + 2
		values := []any{
			r.ProductID,
			r.OrderedUnitPrice,
			r.ReceivedUnitPrice,
			r.Variance,
			r.VariancePercentage,
			string(r.Impact),
			r.ReceivedQuantity,
			r.ExtendedVariance,
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	summary := Summarize(reports)
	totalRow := len(reports) + 2
	if err := setCell(f, 1, totalRow, "Total"); err != nil {
		return err
	}
	if err := setCell(f, len(workbookHeader), totalRow, summary.ExtendedVariance); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("variance: write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("variance: cell name: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("variance: set %s: %w", cell, err)
	}
	return nil
}
