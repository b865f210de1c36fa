package models

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func forUpdateClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// StockAdjustment records one product-level stock movement made inside
// an order transaction, with the level the product landed on. Callers
// use the level to drive the low-stock notification path after commit.
type StockAdjustment struct {
	Product *Product
	Level   StockLevel
}

// StockShortfallError carries the itemized availability failures of a
// stock commit, one readable line per product.
type StockShortfallError struct {
	Shortfalls []string
}

func (e *StockShortfallError) Error() string {
	return "insufficient stock: " + strings.Join(e.Shortfalls, "; ")
}

// AdjustStockInTx applies a clamped stock movement to one product as
// part of a caller-owned transaction. Row locking (FOR UPDATE) guards
// the read-modify-write against concurrent order commits.
func AdjustStockInTx(tx *gorm.DB, productId int, delta int) (*StockAdjustment, error) {
	var product Product
	if err := tx.Clauses(forUpdateClause()).First(&product, productId).Error; err != nil {
		return nil, fmt.Errorf("product not found (id %d)", productId)
	}

	product.StockQuantity = clampStock(product.StockQuantity, delta)
	if err := tx.Model(&product).UpdateColumn("StockQuantity", product.StockQuantity).Error; err != nil {
		return nil, err
	}

	return &StockAdjustment{Product: &product, Level: EvaluateStockLevel(&product)}, nil
}

// ValidateAvailabilityTx checks required quantities against current
// stock inside a transaction. The rows are read FOR UPDATE so the
// quantities cannot move between validation and the debit that
// follows. Returns one entry per shortfall and never fails the
// transaction itself.
func ValidateAvailabilityTx(tx *gorm.DB, items []RequiredItem) ([]string, error) {
	return validateAvailabilityTx(tx, items)
}

func validateAvailabilityTx(tx *gorm.DB, items []RequiredItem) ([]string, error) {
	shortfalls := make([]string, 0)
	for _, item := range items {
		var product Product
		if err := tx.Clauses(forUpdateClause()).First(&product, item.ProductId).Error; err != nil {
			return nil, fmt.Errorf("product not found (id %d)", item.ProductId)
		}
		if product.StockQuantity < item.Qty {
			name := item.Name
			if name == "" {
				name = product.Name
			}
			shortfalls = append(shortfalls, fmt.Sprintf("%s: required %d, available %d", name, item.Qty, product.StockQuantity))
		}
	}
	return shortfalls, nil
}

// debitOrderItems commits the full ordered quantity of every item and
// records it as committed on the item rows.
func debitOrderItems(tx *gorm.DB, items []OrderItem) ([]StockAdjustment, error) {
	adjustments := make([]StockAdjustment, 0, len(items))
	for i := range items {
		adjustment, err := AdjustStockInTx(tx, items[i].ProductId, -items[i].Qty)
		if err != nil {
			return nil, err
		}
		items[i].CommittedQty = items[i].Qty
		adjustments = append(adjustments, *adjustment)
	}
	return adjustments, nil
}

// restoreOrderItems credits back exactly what each item has debited so
// far and zeroes the committed counters.
func restoreOrderItems(tx *gorm.DB, items []OrderItem) ([]StockAdjustment, error) {
	adjustments := make([]StockAdjustment, 0, len(items))
	for i := range items {
		if items[i].CommittedQty == 0 {
			continue
		}
		adjustment, err := AdjustStockInTx(tx, items[i].ProductId, items[i].CommittedQty)
		if err != nil {
			return nil, err
		}
		items[i].CommittedQty = 0
		if items[i].ID > 0 {
			if err := tx.Model(&OrderItem{}).Where("id = ?", items[i].ID).UpdateColumn("CommittedQty", 0).Error; err != nil {
				return nil, err
			}
		}
		adjustments = append(adjustments, *adjustment)
	}
	return adjustments, nil
}

// RestoreOrderStock credits back every committed quantity of the
// order's items inside a caller-owned transaction. Used by the
// cancellation path.
func RestoreOrderStock(tx *gorm.DB, order *Order) ([]StockAdjustment, error) {
	return restoreOrderItems(tx, order.Items)
}
