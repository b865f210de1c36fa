package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SentinelAssigneeName marks orders routed to the house "Without"
// assignee, kept apart in downstream reporting.
const SentinelAssigneeName = "Without"

// DefaultCancelReason is recorded when a canceller gives none.
const DefaultCancelReason = "Cancelled by staff"

type Order struct {
	ID           int        `gorm:"primary_key" json:"id"`
	OrderNumber  string     `gorm:"size:20;not null;unique" json:"order_number"`
	CreatedDate  time.Time  `gorm:"not null" json:"created_date"`
	ScheduledFor *time.Time `json:"scheduled_for"`

	Status      Status      `gorm:"size:20;not null;default:'active'" json:"status"`
	OrderStatus OrderStatus `gorm:"size:20;not null;default:'Pending'" json:"order_status"`

	CustomerName     string `gorm:"index;size:100;not null" json:"customer_name"`
	CustomerPhone    string `gorm:"size:20" json:"customer_phone"`
	CustomerAddress  string `gorm:"type:text" json:"customer_address"`
	Route            string `gorm:"size:100" json:"route"`
	PaymentCondition string `gorm:"size:100" json:"payment_condition"`
	Notes            string `gorm:"type:text" json:"notes"`

	AssigneeName string `gorm:"size:100;not null" json:"assignee_name"`
	AssigneeId   int    `gorm:"index;not null" json:"assignee_id"`
	CreatedBy    string `gorm:"size:100" json:"created_by"`
	CreatedById  int    `gorm:"index" json:"created_by_id"`
	IsWithout    bool   `gorm:"not null;default:false" json:"is_without"`

	DeliveryPartner string     `gorm:"size:100" json:"delivery_partner"`
	StatusUpdatedBy string     `gorm:"size:100" json:"status_updated_by"`
	StatusUpdatedAt *time.Time `json:"status_updated_at"`

	IsPartialOrder     bool `gorm:"not null;default:false" json:"is_partial_order"`
	IsPartialDelivery  bool `gorm:"not null;default:false" json:"is_partial_delivery"`
	OriginalItemCount  int  `gorm:"not null;default:0" json:"original_item_count"`
	FulfilledItemCount int  `gorm:"not null;default:0" json:"fulfilled_item_count"`

	CancelledBy  string `gorm:"size:100" json:"cancelled_by"`
	CancelReason string `gorm:"size:255" json:"cancel_reason"`

	Items         []OrderItem          `gorm:"foreignKey:OrderId" json:"order_items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderId" json:"status_history"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	ProductId int             `gorm:"index;not null" json:"product_id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	BrandName string          `gorm:"size:100" json:"brand_name"`
	Dimension string          `gorm:"size:100" json:"dimension"`
	Qty       int             `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`

	// Dispatch-time bookkeeping.
	DeliveredQty int  `gorm:"not null;default:0" json:"delivered_qty"`
	IsDelivered  bool `gorm:"not null;default:false" json:"is_delivered"`

	// CommittedQty is the quantity actually debited from stock so far.
	// Restores always credit exactly this amount, which keeps repeated
	// edits, partial dispatches and cancellations from double counting.
	CommittedQty int `gorm:"not null;default:0" json:"committed_qty"`
}

// PartialItems returns the pending portion of the order: items whose
// delivered quantity has not yet reached the ordered quantity.
func (o *Order) PartialItems() []OrderItem {
	pending := make([]OrderItem, 0)
	for _, item := range o.Items {
		if item.DeliveredQty < item.Qty {
			pending = append(pending, item)
		}
	}
	return pending
}

type NewOrder struct {
	CustomerName     string     `json:"customer_name" binding:"required" validate:"required"`
	CustomerPhone    string     `json:"customer_phone"`
	CustomerAddress  string     `json:"customer_address"`
	Route            string     `json:"route"`
	PaymentCondition string     `json:"payment_condition"`
	Notes            string     `json:"notes"`
	AssigneeName     string     `json:"assignee_name" validate:"required"`
	AssigneeId       int        `json:"assignee_id" validate:"required"`
	ScheduledFor     *time.Time `json:"scheduled_for"`
	Items            []NewOrderItem `json:"order_items" validate:"min=1,dive"`
}

type NewOrderItem struct {
	ProductId int             `json:"product_id" validate:"required"`
	Name      string          `json:"name"`
	BrandName string          `json:"brand_name"`
	Dimension string          `json:"dimension"`
	Qty       int             `json:"qty" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (input *NewOrder) validate(ctx context.Context) error {
	if input.AssigneeName == "" {
		return errors.New("assignee name is required")
	}
	if input.AssigneeId <= 0 {
		return errors.New("assignee id is required")
	}
	if len(input.Items) == 0 {
		return errors.New("order must contain at least one item")
	}
	for _, item := range input.Items {
		if item.ProductId <= 0 {
			return errors.New("order item product id is required")
		}
		if item.Qty <= 0 {
			return fmt.Errorf("order item quantity must be greater than zero (product %d)", item.ProductId)
		}
	}
	return utils.ValidateStruct(input)
}

// mapOrderItems resolves denormalized fields from the referenced
// product and computes line totals. Brand name absent on the input is
// backfilled from the product record.
func mapOrderItems(tx *gorm.DB, input []NewOrderItem) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(input))
	for _, in := range input {
		var product Product
		if err := tx.First(&product, in.ProductId).Error; err != nil {
			return nil, fmt.Errorf("product not found (id %d)", in.ProductId)
		}

		item := OrderItem{
			ProductId: in.ProductId,
			Name:      in.Name,
			BrandName: in.BrandName,
			Dimension: in.Dimension,
			Qty:       in.Qty,
			UnitPrice: in.UnitPrice,
			LineTotal: in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Qty))),
		}
		if item.Name == "" {
			item.Name = product.Name
		}
		if item.BrandName == "" {
			item.BrandName = product.BrandName
		}
		if item.Dimension == "" {
			item.Dimension = product.Dimension
		}
		items = append(items, item)
	}
	return items, nil
}

func requiredItems(items []OrderItem) []RequiredItem {
	required := make([]RequiredItem, 0, len(items))
	for _, item := range items {
		required = append(required, RequiredItem{ProductId: item.ProductId, Name: item.Name, Qty: item.Qty})
	}
	return required
}

// CreateOrder persists a new order with a generated identifier in the
// Pending workflow state. Under the commit-at-creation stock policy the
// items are validated against stock and debited inside the same
// transaction. Returned adjustments let the caller run the low-stock
// notification path after commit.
func CreateOrder(ctx context.Context, input *NewOrder) (*Order, []StockAdjustment, error) {
	if err := input.validate(ctx); err != nil {
		return nil, nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return nil, nil, errors.New("user name is required")
	}

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	items, err := mapOrderItems(tx, input.Items)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	var adjustments []StockAdjustment
	if config.StockCommitPolicy() == "CREATION" {
		shortfalls, err := validateAvailabilityTx(tx, requiredItems(items))
		if err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		if len(shortfalls) > 0 {
			tx.Rollback()
			return nil, nil, &StockShortfallError{Shortfalls: shortfalls}
		}
		adjustments, err = debitOrderItems(tx, items)
		if err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}

	orderNumber, err := NextOrderNumber(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := upsertCustomerByName(tx, input.CustomerName, input.CustomerPhone, input.CustomerAddress); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := upsertRouteByName(tx, input.Route); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	now := time.Now().UTC()
	status := StatusActive
	if input.ScheduledFor != nil && input.ScheduledFor.After(now) {
		status = StatusScheduled
	}

	order := Order{
		OrderNumber:       orderNumber,
		CreatedDate:       now,
		ScheduledFor:      input.ScheduledFor,
		Status:            status,
		OrderStatus:       OrderStatusPending,
		CustomerName:      input.CustomerName,
		CustomerPhone:     input.CustomerPhone,
		CustomerAddress:   input.CustomerAddress,
		Route:             input.Route,
		PaymentCondition:  input.PaymentCondition,
		Notes:             input.Notes,
		AssigneeName:      input.AssigneeName,
		AssigneeId:        input.AssigneeId,
		CreatedBy:         userName,
		CreatedById:       userId,
		IsWithout:         input.AssigneeName == SentinelAssigneeName,
		StatusUpdatedBy:   userName,
		StatusUpdatedAt:   &now,
		OriginalItemCount: len(items),
		Items:             items,
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := appendStatusHistory(tx, order.ID, order.OrderStatus); err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}

	broadcastEntity(ctx, EventOrderCreated, &order)
	return &order, adjustments, nil
}

// UpdateOrder replaces the order's mutable fields and its item list.
// Previously committed stock is restored before the new set is debited
// so repeated edits never double count. The previous assignee id is
// returned for the reassignment notification path.
func UpdateOrder(ctx context.Context, id int, input *NewOrder) (*Order, []StockAdjustment, int, error) {
	if err := input.validate(ctx); err != nil {
		return nil, nil, 0, err
	}

	order, err := utils.FetchModel[Order](ctx, id, "Items")
	if err != nil {
		return nil, nil, 0, err
	}
	if order.OrderStatus == OrderStatusDispatched || order.OrderStatus == OrderStatusCancelled {
		return nil, nil, 0, fmt.Errorf("cannot edit an order in %s status", order.OrderStatus)
	}

	prevAssigneeId := order.AssigneeId

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	// restore-then-debit-new
	adjustments, err := restoreOrderItems(tx, order.Items)
	if err != nil {
		tx.Rollback()
		return nil, nil, 0, err
	}

	items, err := mapOrderItems(tx, input.Items)
	if err != nil {
		tx.Rollback()
		return nil, nil, 0, err
	}

	if config.StockCommitPolicy() == "CREATION" {
		shortfalls, err := validateAvailabilityTx(tx, requiredItems(items))
		if err != nil {
			tx.Rollback()
			return nil, nil, 0, err
		}
		if len(shortfalls) > 0 {
			tx.Rollback()
			return nil, nil, 0, &StockShortfallError{Shortfalls: shortfalls}
		}
		debits, err := debitOrderItems(tx, items)
		if err != nil {
			tx.Rollback()
			return nil, nil, 0, err
		}
		adjustments = append(adjustments, debits...)
	}

	if err := tx.Where("order_id = ?", order.ID).Delete(&OrderItem{}).Error; err != nil {
		tx.Rollback()
		return nil, nil, 0, err
	}
	for i := range items {
		items[i].OrderId = order.ID
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			return nil, nil, 0, err
		}
	}

	if err := upsertCustomerByName(tx, input.CustomerName, input.CustomerPhone, input.CustomerAddress); err != nil {
		tx.Rollback()
		return nil, nil, 0, err
	}
	if err := upsertRouteByName(tx, input.Route); err != nil {
		tx.Rollback()
		return nil, nil, 0, err
	}

	order.CustomerName = input.CustomerName
	order.CustomerPhone = input.CustomerPhone
	order.CustomerAddress = input.CustomerAddress
	order.Route = input.Route
	order.PaymentCondition = input.PaymentCondition
	order.Notes = input.Notes
	order.AssigneeName = input.AssigneeName
	order.AssigneeId = input.AssigneeId
	order.IsWithout = input.AssigneeName == SentinelAssigneeName
	order.ScheduledFor = input.ScheduledFor
	order.OriginalItemCount = len(items)
	order.Items = items

	if err := tx.Omit("Items", "StatusHistory").Save(order).Error; err != nil {
		tx.Rollback()
		return nil, nil, 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, 0, err
	}

	broadcastEntity(ctx, EventOrderUpdated, order)
	return order, adjustments, prevAssigneeId, nil
}

// DeleteOrder removes the order record after crediting back every
// committed item quantity.
func DeleteOrder(ctx context.Context, id int) (*Order, []StockAdjustment, error) {
	order, err := utils.FetchModel[Order](ctx, id, "Items", "StatusHistory")
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	adjustments, err := restoreOrderItems(tx, order.Items)
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Where("order_id = ?", order.ID).Delete(&OrderItem{}).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&OrderStatusHistory{}).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Delete(order).Error; err != nil {
		tx.Rollback()
		return nil, nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}

	broadcastEntity(ctx, EventOrderDeleted, order)
	return order, adjustments, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	return utils.FetchModel[Order](ctx, id, "Items", "StatusHistory")
}

func GetOrders(ctx context.Context, status *Status, orderStatus *OrderStatus, assigneeId *int, customerName *string) ([]*Order, error) {
	db := config.GetDB()
	var results []*Order

	dbCtx := db.WithContext(ctx).Preload("Items")
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if orderStatus != nil {
		dbCtx = dbCtx.Where("order_status = ?", *orderStatus)
	}
	if assigneeId != nil && *assigneeId > 0 {
		dbCtx = dbCtx.Where("assignee_id = ?", *assigneeId)
	}
	if customerName != nil && len(*customerName) > 0 {
		dbCtx = dbCtx.Where("customer_name LIKE ?", "%"+*customerName+"%")
	}

	if err := dbCtx.Order("created_date DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
