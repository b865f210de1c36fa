package models

import "testing"

func TestClampStock_NeverNegative(t *testing.T) {
	cases := []struct {
		current, delta, want int
	}{
		{10, -3, 7},
		{10, -10, 0},
		{10, -15, 0},
		{0, -1, 0},
		{0, 5, 5},
		{3, 4, 7},
	}
	for _, tc := range cases {
		if got := clampStock(tc.current, tc.delta); got != tc.want {
			t.Errorf("clampStock(%d, %d) = %d, want %d", tc.current, tc.delta, got, tc.want)
		}
	}
}

func TestClampStock_SequenceStaysNonNegative(t *testing.T) {
	deltas := []int{-5, 3, -10, 2, -1, -100, 50, -49, -2}
	stock := 4
	for _, delta := range deltas {
		stock = clampStock(stock, delta)
		if stock < 0 {
			t.Fatalf("stock went negative (%d) after delta %d", stock, delta)
		}
	}
}

func TestEvaluateStockLevel(t *testing.T) {
	cases := []struct {
		qty, threshold int
		want           StockLevel
	}{
		{0, 10, StockLevelOut},
		{1, 10, StockLevelLow},
		{10, 10, StockLevelLow},
		{11, 10, StockLevelOk},
		{0, 0, StockLevelOut},
		{1, 0, StockLevelOk},
	}
	for _, tc := range cases {
		product := Product{StockQuantity: tc.qty, LowStockThreshold: tc.threshold}
		if got := EvaluateStockLevel(&product); got != tc.want {
			t.Errorf("EvaluateStockLevel(qty=%d, threshold=%d) = %s, want %s", tc.qty, tc.threshold, got, tc.want)
		}
	}
}

func TestNewProductApplyDefaults(t *testing.T) {
	input := NewProduct{Name: "Steel Rod"}
	input.applyDefaults()

	if input.BrandName != DefaultBrandName {
		t.Errorf("brand = %q, want %q", input.BrandName, DefaultBrandName)
	}
	if input.Dimension != DefaultDimension {
		t.Errorf("dimension = %q, want %q", input.Dimension, DefaultDimension)
	}
	if input.LowStockThreshold != DefaultLowStockThreshold {
		t.Errorf("threshold = %d, want %d", input.LowStockThreshold, DefaultLowStockThreshold)
	}
}

func TestOrderPartialItems(t *testing.T) {
	order := Order{Items: []OrderItem{
		{ProductId: 1, Qty: 5, DeliveredQty: 5},
		{ProductId: 2, Qty: 4, DeliveredQty: 2},
		{ProductId: 3, Qty: 3, DeliveredQty: 0},
	}}

	pending := order.PartialItems()
	if len(pending) != 2 {
		t.Fatalf("pending items = %d, want 2", len(pending))
	}
	if pending[0].ProductId != 2 || pending[1].ProductId != 3 {
		t.Errorf("pending products = %d, %d; want 2, 3", pending[0].ProductId, pending[1].ProductId)
	}
	// fulfilled + pending reconcile to the full item set
	if len(order.Items)-len(pending) != 1 {
		t.Errorf("fulfilled count = %d, want 1", len(order.Items)-len(pending))
	}
}
