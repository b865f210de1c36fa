package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmdatafocus/orders_backend/config"
	"gorm.io/gorm"
)

const OrderNumberPrefix = "ORD"

// parseOrderNumberSeq extracts the numeric suffix of an order number.
// Malformed or foreign identifiers parse as 0 so the next number
// restarts the sequence at 1 instead of failing order creation.
func parseOrderNumberSeq(orderNumber string) int {
	parts := strings.SplitN(orderNumber, "-", 2)
	if len(parts) != 2 || parts[0] != OrderNumberPrefix {
		return 0
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// formatOrderNumber renders a sequence value zero-padded to at least
// three digits (ORD-001, ORD-002, ... ORD-1000).
func formatOrderNumber(seq int) string {
	return fmt.Sprintf("%s-%03d", OrderNumberPrefix, seq)
}

// NextOrderNumber reads the greatest existing identifier and increments
// its numeric suffix. Best-effort monotonic: two concurrent creators can
// read the same maximum and mint the same number. Deployments with
// concurrent order creation need the unique column constraint plus
// retry-on-conflict in CreateOrder.
func NextOrderNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	if tx == nil {
		tx = config.GetDB().WithContext(ctx)
	}

	var last Order
	err := tx.Order("length(order_number) DESC, order_number DESC").
		Select("order_number").First(&last).Error
	if err == gorm.ErrRecordNotFound {
		return formatOrderNumber(1), nil
	} else if err != nil {
		return "", err
	}

	return formatOrderNumber(parseOrderNumberSeq(last.OrderNumber) + 1), nil
}
