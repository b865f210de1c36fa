package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ImportSummary reports the outcome of one bulk import run.
type ImportSummary struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// importRow is one normalized spreadsheet row. Column order matches the
// import template: name, brand, dimension, stock qty, low stock
// threshold.
type importRow struct {
	Name              string
	BrandName         string
	Dimension         string
	StockQuantity     int
	LowStockThreshold int
}

// normalizeImportRow trims and defaults a raw spreadsheet row. A row
// without a product name is rejected; missing brand, dimension and
// threshold fall back to the product defaults, and a missing or
// negative quantity warns and becomes zero.
func normalizeImportRow(cells []string) (*importRow, []string, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	name := cell(0)
	if name == "" {
		return nil, nil, errors.New("product name is required")
	}

	row := importRow{
		Name:              name,
		BrandName:         cell(1),
		Dimension:         cell(2),
		LowStockThreshold: DefaultLowStockThreshold,
	}
	warnings := make([]string, 0)

	if row.BrandName == "" {
		row.BrandName = DefaultBrandName
	}
	if row.Dimension == "" {
		row.Dimension = DefaultDimension
	}

	if raw := cell(3); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("could not parse stock quantity %q", raw)
		}
		if qty < 0 {
			warnings = append(warnings, "negative stock quantity clamped to 0")
			qty = 0
		}
		row.StockQuantity = qty
	} else {
		warnings = append(warnings, "stock quantity missing, defaulted to 0")
	}

	if raw := cell(4); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("could not parse low stock threshold %q", raw)
		}
		if threshold < 0 {
			threshold = 0
		}
		row.LowStockThreshold = threshold
	}

	return &row, warnings, nil
}

// ImportProductsFromXlsx reads Sheet1 of an xlsx workbook (first row is
// the header) and upserts products keyed by (name, brand). A bad row
// is reported in the summary and skipped; it never aborts the rest of
// the file.
func ImportProductsFromXlsx(ctx context.Context, reader io.Reader) (*ImportSummary, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("import file contains no data rows")
	}

	summary := ImportSummary{Warnings: make([]string, 0), Errors: make([]string, 0)}

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	for idx, cells := range rows[1:] {
		rowNumber := idx + 2

		row, warnings, err := normalizeImportRow(cells)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %v", rowNumber, err))
			continue
		}
		for _, warning := range warnings {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("row %d: %s", rowNumber, warning))
		}

		var existing Product
		err = tx.Where("name = ? AND brand_name = ?", row.Name, row.BrandName).First(&existing).Error
		if err == nil {
			existing.Dimension = row.Dimension
			existing.StockQuantity = row.StockQuantity
			existing.LowStockThreshold = row.LowStockThreshold
			if err := tx.Save(&existing).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("row %d: %v", rowNumber, err)
			}
			summary.Updated++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			tx.Rollback()
			return nil, fmt.Errorf("row %d: %v", rowNumber, err)
		}

		product := Product{
			Name:              row.Name,
			BrandName:         row.BrandName,
			Dimension:         row.Dimension,
			StockQuantity:     row.StockQuantity,
			LowStockThreshold: row.LowStockThreshold,
		}
		if err := tx.Create(&product).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("row %d: %v", rowNumber, err)
		}
		summary.Created++
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &summary, nil
}
