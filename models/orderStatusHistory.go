package models

import (
	"errors"
	"time"

	"github.com/mmdatafocus/orders_backend/utils"
	"gorm.io/gorm"
)

// OrderStatusHistory rows are the durable audit trail of the
// fulfillment workflow. Append-only: rows are never updated or deleted
// while their order exists.
type OrderStatusHistory struct {
	ID        int         `gorm:"primary_key" json:"id"`
	OrderId   int         `gorm:"index;not null" json:"order_id"`
	Status    OrderStatus `gorm:"size:20;not null" json:"status"`
	UserId    int         `gorm:"not null" json:"user_id"`
	UserName  string      `gorm:"size:100" json:"user_name"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// appendStatusHistory records one accepted transition. Runs on the
// caller's transaction so the audit row commits or rolls back together
// with the status field change.
func appendStatusHistory(tx *gorm.DB, orderId int, status OrderStatus) error {
	ctx := tx.Statement.Context

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return errors.New("user name is required")
	}

	entry := OrderStatusHistory{
		OrderId:  orderId,
		Status:   status,
		UserId:   userId,
		UserName: userName,
	}
	return tx.Create(&entry).Error
}

// AppendStatusHistory exposes the history append to transition
// commands running their own transaction.
func AppendStatusHistory(tx *gorm.DB, orderId int, status OrderStatus) error {
	return appendStatusHistory(tx, orderId, status)
}
