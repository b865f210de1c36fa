package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// OrderStatus is the fine-grained fulfillment workflow state.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusDC         OrderStatus = "DC"
	OrderStatusInvoice    OrderStatus = "Invoice"
	OrderStatusDispatched OrderStatus = "Dispatched"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusDC, OrderStatusInvoice, OrderStatusDispatched, OrderStatusCancelled:
		return true
	}
	return false
}

func (s *OrderStatus) Scan(value interface{}) error {
	str, ok := value.(string)
	if !ok {
		if b, ok := value.([]byte); ok {
			str = string(b)
		} else {
			return errors.New("order status must be string")
		}
	}
	parsed := OrderStatus(str)
	if !parsed.Valid() {
		return fmt.Errorf("invalid order status %q", str)
	}
	*s = parsed
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Status is the coarse order lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// StockLevel classifies a product's available quantity against its
// low-stock threshold.
type StockLevel string

const (
	StockLevelOk  StockLevel = "ok"
	StockLevelLow StockLevel = "low"
	StockLevelOut StockLevel = "out"
)

// UserRole is the staff role consumed by the capability table.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleManager    UserRole = "manager"
	RoleSupervisor UserRole = "supervisor"
	RoleStock      UserRole = "stock"
	RoleStaff      UserRole = "staff"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSupervisor, RoleStock, RoleStaff:
		return true
	}
	return false
}

// Broadcast / notification event types.
const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
	EventProductDeleted = "product_deleted"
	EventOrderCreated   = "order_created"
	EventOrderUpdated   = "order_updated"
	EventOrderDeleted   = "order_deleted"
	EventOrderAssigned  = "order_assigned"
	EventOrderStatus    = "order_status_changed"
	EventOrderReassign  = "order_reassigned"
	EventStaffCreated   = "staff_created"
	EventStaffUpdated   = "staff_updated"
	EventStaffDeleted   = "staff_deleted"
	EventLowStock       = "low_stock"
	EventOutOfStock     = "out_of_stock"
)
