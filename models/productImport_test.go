package models

import "testing"

func TestNormalizeImportRow_Defaults(t *testing.T) {
	row, warnings, err := normalizeImportRow([]string{"Steel Rod"})
	if err != nil {
		t.Fatalf("normalizeImportRow: %v", err)
	}
	if row.BrandName != DefaultBrandName {
		t.Errorf("brand = %q, want %q", row.BrandName, DefaultBrandName)
	}
	if row.Dimension != DefaultDimension {
		t.Errorf("dimension = %q, want %q", row.Dimension, DefaultDimension)
	}
	if row.StockQuantity != 0 {
		t.Errorf("stock = %d, want 0", row.StockQuantity)
	}
	if row.LowStockThreshold != DefaultLowStockThreshold {
		t.Errorf("threshold = %d, want %d", row.LowStockThreshold, DefaultLowStockThreshold)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one missing-quantity warning", warnings)
	}
}

func TestNormalizeImportRow_NameRequired(t *testing.T) {
	if _, _, err := normalizeImportRow([]string{"", "Acme", "Large"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, _, err := normalizeImportRow([]string{"   "}); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestNormalizeImportRow_FullRow(t *testing.T) {
	row, warnings, err := normalizeImportRow([]string{" Steel Rod ", "Acme", "12mm", "25", "5"})
	if err != nil {
		t.Fatalf("normalizeImportRow: %v", err)
	}
	if row.Name != "Steel Rod" {
		t.Errorf("name = %q, want trimmed %q", row.Name, "Steel Rod")
	}
	if row.BrandName != "Acme" || row.Dimension != "12mm" {
		t.Errorf("brand/dimension = %q/%q", row.BrandName, row.Dimension)
	}
	if row.StockQuantity != 25 || row.LowStockThreshold != 5 {
		t.Errorf("qty/threshold = %d/%d, want 25/5", row.StockQuantity, row.LowStockThreshold)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestNormalizeImportRow_NegativeQuantityClamped(t *testing.T) {
	row, warnings, err := normalizeImportRow([]string{"Steel Rod", "", "", "-4"})
	if err != nil {
		t.Fatalf("normalizeImportRow: %v", err)
	}
	if row.StockQuantity != 0 {
		t.Errorf("stock = %d, want clamped 0", row.StockQuantity)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one clamp warning", warnings)
	}
}

func TestNormalizeImportRow_BadNumbersRejected(t *testing.T) {
	if _, _, err := normalizeImportRow([]string{"Rod", "", "", "lots"}); err == nil {
		t.Error("expected error for unparseable quantity")
	}
	if _, _, err := normalizeImportRow([]string{"Rod", "", "", "5", "few"}); err == nil {
		t.Error("expected error for unparseable threshold")
	}
}
