package sheets

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/shopdesk/catalog-service/internal/models"
)

const catalogSheet = "Products"

var exportHeaders = []string{"name", "description", "price", "category", "sku", "imageUrl"}

// WriteProductsXLSX writes the catalog as a workbook whose headers ReadRows
// and Products accept, so an export can be re-imported unchanged.
func WriteProductsXLSX(w io.Writer, products []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", catalogSheet); err != nil {
		return err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(catalogSheet, cell, h); err != nil {
			return err
		}
	}

	for r, p := range products {
		values := []any{p.Name, p.Description, p.Price.StringFixed(2), p.Category, p.SKU, p.ImageURL}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(catalogSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", r+2, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
