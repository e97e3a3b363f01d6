// Package report renders spreadsheets for download.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"medeasy/pharmacy/domain"
)

const inventorySheet = "Inventory"

var inventoryHeader = []any{
	"ID", "Name", "Generic name", "Dosage", "Form", "Manufacturer", "Batch",
	"Expiry date", "Quantity", "Minimum stock", "Unit price", "Selling price", "Category", "Status",
}

// InventoryWorkbook writes one row per drug with its status as of now.
// Money is written as text so no precision is lost to spreadsheet floats.
func InventoryWorkbook(drugs []domain.Drug, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), inventorySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(inventorySheet, "A1", &inventoryHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, d := range drugs {
		generic := ""
		if d.GenericName != nil {
			generic = *d.GenericName
		}
		row := []any{
			d.ID,
			d.Name,
			generic,
			d.Dosage,
			d.Form,
			d.Manufacturer,
			d.BatchNumber,
			d.ExpiryDate.UTC().Format("2006-01-02"),
			d.Quantity,
			d.MinimumStock,
			d.UnitPrice.StringFixed(2),
			d.SellingPrice.StringFixed(2),
			d.Category,
			string(d.Status(now)),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(inventorySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(inventorySheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
