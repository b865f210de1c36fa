package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/orders_backend/config"
	"github.com/mmdatafocus/orders_backend/models"
	"github.com/mmdatafocus/orders_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FulfillmentService owns the order status transition table and the
// stock movements tied to transitions. Event sink and notifier are
// injected at construction; both must be ready before the service
// handles its first command.
type FulfillmentService struct {
	Sink     EventSink
	Notifier Notifier
	Logger   *logrus.Logger
}

func NewFulfillmentService(sink EventSink, notifier Notifier) (*FulfillmentService, error) {
	if sink == nil {
		return nil, errors.New("fulfillment service requires an event sink")
	}
	if notifier == nil {
		return nil, errors.New("fulfillment service requires a notifier")
	}
	return &FulfillmentService{
		Sink:     sink,
		Notifier: notifier,
		Logger:   config.GetLogger(),
	}, nil
}

// TransitionError reports a rejected status transition with the full
// allowed set so callers can render an actionable message.
type TransitionError struct {
	Current   models.OrderStatus
	Requested models.OrderStatus
	Allowed   []models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s (allowed: %v)", e.Current, e.Requested, e.Allowed)
}

// AllowedTransitions returns the forward transitions legal from the
// given status. The permissive flag admits the direct DC→Dispatched
// shortcut some deployments run with.
func AllowedTransitions(current models.OrderStatus, permissive bool) []models.OrderStatus {
	switch current {
	case models.OrderStatusPending:
		return []models.OrderStatus{models.OrderStatusDC}
	case models.OrderStatusDC:
		if permissive {
			return []models.OrderStatus{models.OrderStatusInvoice, models.OrderStatusDispatched}
		}
		return []models.OrderStatus{models.OrderStatusInvoice}
	case models.OrderStatusInvoice:
		return []models.OrderStatus{models.OrderStatusDispatched}
	default:
		// Dispatched and Cancelled are terminal.
		return nil
	}
}

// ValidateTransition rejects anything the transition table does not
// list: no regressions, no skipping.
func ValidateTransition(current, requested models.OrderStatus, permissive bool) error {
	allowed := AllowedTransitions(current, permissive)
	for _, status := range allowed {
		if status == requested {
			return nil
		}
	}
	return &TransitionError{Current: current, Requested: requested, Allowed: allowed}
}

// DeliveredItemInput is one line of a dispatch command, keyed by
// product.
type DeliveredItemInput struct {
	ProductId    int  `json:"product_id"`
	DeliveredQty int  `json:"delivered_qty"`
	IsDelivered  bool `json:"is_delivered"`
}

// PlannedItem is the computed dispatch outcome for one order item:
// the delivered figures to record and the additional stock debit the
// movement requires on top of what the item already committed.
type PlannedItem struct {
	ItemId       int
	ProductId    int
	Name         string
	Qty          int
	DeliveredQty int
	IsDelivered  bool
	DebitQty     int
}

// DispatchPlan is the pure outcome of planning a dispatch against the
// current item state. Nothing is persisted until the plan is applied.
type DispatchPlan struct {
	Items          []PlannedItem
	FulfilledCount int
	IsPartial      bool
}

// PlanDispatch computes per-item delivered quantities and the stock
// debits a dispatch needs. An empty delivered list means a full
// dispatch: every item delivered in full. With an explicit list,
// unlisted items stay pending at zero delivered.
func PlanDispatch(items []models.OrderItem, delivered []DeliveredItemInput) (*DispatchPlan, error) {
	byProduct := make(map[int]DeliveredItemInput, len(delivered))
	for _, input := range delivered {
		if _, dup := byProduct[input.ProductId]; dup {
			return nil, fmt.Errorf("duplicate delivered entry for product %d", input.ProductId)
		}
		byProduct[input.ProductId] = input
	}

	known := make(map[int]bool, len(items))
	for _, item := range items {
		known[item.ProductId] = true
	}
	for productId := range byProduct {
		if !known[productId] {
			return nil, fmt.Errorf("delivered entry references product %d not on the order", productId)
		}
	}

	fullDispatch := len(delivered) == 0

	plan := DispatchPlan{Items: make([]PlannedItem, 0, len(items))}
	for _, item := range items {
		planned := PlannedItem{
			ItemId:    item.ID,
			ProductId: item.ProductId,
			Name:      item.Name,
			Qty:       item.Qty,
		}

		if fullDispatch {
			planned.DeliveredQty = item.Qty
			planned.IsDelivered = true
		} else if input, ok := byProduct[item.ProductId]; ok {
			if input.DeliveredQty < 0 || input.DeliveredQty > item.Qty {
				return nil, fmt.Errorf("delivered quantity %d out of range for %s (ordered %d)",
					input.DeliveredQty, item.Name, item.Qty)
			}
			planned.DeliveredQty = input.DeliveredQty
			planned.IsDelivered = input.IsDelivered || input.DeliveredQty == item.Qty
		}

		if planned.DeliveredQty > item.CommittedQty {
			planned.DebitQty = planned.DeliveredQty - item.CommittedQty
		}

		if planned.IsDelivered && planned.DeliveredQty == item.Qty {
			plan.FulfilledCount++
		} else {
			plan.IsPartial = true
		}
		plan.Items = append(plan.Items, planned)
	}
	return &plan, nil
}

// PlanCompletion computes the remainder debits needed to close out a
// partially dispatched order: every item is brought to fully
// delivered, debiting whatever its committed counter still misses.
func PlanCompletion(items []models.OrderItem) *DispatchPlan {
	plan := DispatchPlan{Items: make([]PlannedItem, 0, len(items))}
	for _, item := range items {
		planned := PlannedItem{
			ItemId:       item.ID,
			ProductId:    item.ProductId,
			Name:         item.Name,
			Qty:          item.Qty,
			DeliveredQty: item.Qty,
			IsDelivered:  true,
		}
		if item.Qty > item.CommittedQty {
			planned.DebitQty = item.Qty - item.CommittedQty
		}
		plan.FulfilledCount++
		plan.Items = append(plan.Items, planned)
	}
	return &plan
}

func (s *FulfillmentService) broadcast(ctx context.Context, eventType string, entity interface{}) {
	if err := s.Sink.Broadcast(ctx, eventType, entity); err != nil {
		config.LogError(s.Logger, "fulfillment.go", "broadcast", "broadcast event", eventType, err)
	}
}

func (s *FulfillmentService) orderFanoutContext(ctx context.Context, order *models.Order) FanoutContext {
	actorId, _ := utils.GetUserIdFromContext(ctx)
	return FanoutContext{
		ActorId:      actorId,
		AssigneeId:   order.AssigneeId,
		CreatedById:  order.CreatedById,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		OrderStatus:  order.OrderStatus,
		CancelReason: order.CancelReason,
	}
}

// notifyStockLevels raises the low/out-of-stock notification path for
// every debit that landed a product on a warning level.
func (s *FulfillmentService) notifyStockLevels(ctx context.Context, adjustments []models.StockAdjustment) {
	for _, adjustment := range adjustments {
		eventType := ""
		switch adjustment.Level {
		case models.StockLevelOut:
			eventType = models.EventOutOfStock
		case models.StockLevelLow:
			eventType = models.EventLowStock
		default:
			continue
		}
		actorId, _ := utils.GetUserIdFromContext(ctx)
		s.Notifier.Notify(ctx, eventType, FanoutContext{
			ActorId:       actorId,
			ProductName:   adjustment.Product.Name,
			StockQuantity: adjustment.Product.StockQuantity,
		})
	}
}

// publishStockMovements makes every committed stock movement visible
// to connected clients and then runs the low/out-of-stock notification
// path for movements that landed a product on a warning level.
func (s *FulfillmentService) publishStockMovements(ctx context.Context, adjustments []models.StockAdjustment) {
	for _, adjustment := range adjustments {
		s.broadcast(ctx, models.EventProductUpdated, adjustment.Product)
	}
	s.notifyStockLevels(ctx, adjustments)
}

// recordPlanOnItems writes the applied plan's delivered figures back
// onto the in-memory items so the returned order reflects what was
// persisted.
func recordPlanOnItems(items []models.OrderItem, plan *DispatchPlan) {
	byItem := make(map[int]PlannedItem, len(plan.Items))
	for _, planned := range plan.Items {
		byItem[planned.ItemId] = planned
	}
	for i := range items {
		planned, ok := byItem[items[i].ID]
		if !ok {
			continue
		}
		items[i].DeliveredQty = planned.DeliveredQty
		items[i].IsDelivered = planned.IsDelivered
		items[i].CommittedQty += planned.DebitQty
	}
}

// CreateOrder runs the order creation command and fans out the
// creation notifications after the commit.
func (s *FulfillmentService) CreateOrder(ctx context.Context, input *models.NewOrder) (*models.Order, error) {
	order, adjustments, err := models.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	fc := s.orderFanoutContext(ctx, order)
	s.Notifier.Notify(ctx, models.EventOrderCreated, fc)
	s.Notifier.Notify(ctx, models.EventOrderAssigned, fc)
	s.publishStockMovements(ctx, adjustments)
	return order, nil
}

// UpdateOrder runs the order edit command. A change of assignee raises
// the reassignment notification to both the previous and the new
// assignee.
func (s *FulfillmentService) UpdateOrder(ctx context.Context, id int, input *models.NewOrder) (*models.Order, error) {
	order, adjustments, prevAssigneeId, err := models.UpdateOrder(ctx, id, input)
	if err != nil {
		return nil, err
	}

	fc := s.orderFanoutContext(ctx, order)
	if prevAssigneeId != order.AssigneeId {
		fc.PrevAssigneeId = prevAssigneeId
		s.Notifier.Notify(ctx, models.EventOrderReassign, fc)
	} else {
		s.Notifier.Notify(ctx, models.EventOrderUpdated, fc)
	}
	s.publishStockMovements(ctx, adjustments)
	return order, nil
}

// ChangeOrderStatus advances an order through the transition table. A
// request for Dispatched routes through the dispatch path, a request
// for Cancelled through the cancel path.
func (s *FulfillmentService) ChangeOrderStatus(ctx context.Context, orderId int, newStatus models.OrderStatus, deliveryPartner string, dispatchItems []DeliveredItemInput) (*models.Order, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("unknown order status: %s", newStatus)
	}
	if newStatus == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderId, "")
	}
	if newStatus == models.OrderStatusDispatched {
		return s.DispatchOrder(ctx, orderId, deliveryPartner, dispatchItems)
	}

	order, err := utils.FetchModel[models.Order](ctx, orderId, "Items")
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(order.OrderStatus, newStatus, config.AllowDirectDCDispatch()); err != nil {
		return nil, err
	}

	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return nil, errors.New("user name is required")
	}

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	now := time.Now().UTC()
	order.OrderStatus = newStatus
	order.StatusUpdatedBy = userName
	order.StatusUpdatedAt = &now
	if err := tx.Model(order).Select("OrderStatus", "StatusUpdatedBy", "StatusUpdatedAt").Updates(order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.AppendStatusHistory(tx, order.ID, newStatus); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.broadcast(ctx, models.EventOrderStatus, order)
	s.Notifier.Notify(ctx, models.EventOrderStatus, s.orderFanoutContext(ctx, order))
	return order, nil
}

// DispatchOrder moves an order to Dispatched, recording per-item
// delivered quantities and debiting whatever the items have not yet
// committed. A dispatch that leaves undelivered remainders marks the
// order partial; a clean dispatch also completes the coarse lifecycle.
func (s *FulfillmentService) DispatchOrder(ctx context.Context, orderId int, deliveryPartner string, delivered []DeliveredItemInput) (*models.Order, error) {
	if deliveryPartner == "" {
		return nil, errors.New("delivery partner is required for dispatch")
	}

	order, err := utils.FetchModel[models.Order](ctx, orderId, "Items")
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(order.OrderStatus, models.OrderStatusDispatched, config.AllowDirectDCDispatch()); err != nil {
		return nil, err
	}

	plan, err := PlanDispatch(order.Items, delivered)
	if err != nil {
		return nil, err
	}

	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return nil, errors.New("user name is required")
	}

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	adjustments, err := s.applyPlan(tx, plan)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	order.OrderStatus = models.OrderStatusDispatched
	order.DeliveryPartner = deliveryPartner
	order.StatusUpdatedBy = userName
	order.StatusUpdatedAt = &now
	order.FulfilledItemCount = plan.FulfilledCount
	order.IsPartialDelivery = plan.IsPartial
	order.IsPartialOrder = plan.IsPartial
	if !plan.IsPartial {
		order.Status = models.StatusCompleted
	}

	err = tx.Model(order).
		Select("OrderStatus", "DeliveryPartner", "StatusUpdatedBy", "StatusUpdatedAt",
			"FulfilledItemCount", "IsPartialDelivery", "IsPartialOrder", "Status").
		Updates(order).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.AppendStatusHistory(tx, order.ID, models.OrderStatusDispatched); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	recordPlanOnItems(order.Items, plan)

	s.broadcast(ctx, models.EventOrderStatus, order)
	s.Notifier.Notify(ctx, models.EventOrderStatus, s.orderFanoutContext(ctx, order))
	s.publishStockMovements(ctx, adjustments)
	return order, nil
}

// CompleteOrder debits the remaining quantities of a partially
// dispatched order and clears the partial flags. Only legal on a
// Dispatched order that still has pending remainders.
func (s *FulfillmentService) CompleteOrder(ctx context.Context, orderId int) (*models.Order, error) {
	order, err := utils.FetchModel[models.Order](ctx, orderId, "Items")
	if err != nil {
		return nil, err
	}
	if order.OrderStatus != models.OrderStatusDispatched {
		return nil, fmt.Errorf("cannot complete an order in %s status", order.OrderStatus)
	}
	if !order.IsPartialDelivery {
		return nil, errors.New("order has no pending partial items")
	}

	plan := PlanCompletion(order.Items)

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	adjustments, err := s.applyPlan(tx, plan)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	order.IsPartialDelivery = false
	order.FulfilledItemCount = plan.FulfilledCount
	order.Status = models.StatusCompleted
	err = tx.Model(order).
		Select("IsPartialDelivery", "FulfilledItemCount", "Status").
		Updates(order).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	recordPlanOnItems(order.Items, plan)

	s.broadcast(ctx, models.EventOrderUpdated, order)
	s.Notifier.Notify(ctx, models.EventOrderUpdated, s.orderFanoutContext(ctx, order))
	s.publishStockMovements(ctx, adjustments)
	return order, nil
}

// applyPlan validates availability for the plan's debits, applies
// them, and persists the per-item delivered bookkeeping. Runs entirely
// on the caller's transaction.
func (s *FulfillmentService) applyPlan(tx *gorm.DB, plan *DispatchPlan) ([]models.StockAdjustment, error) {
	required := make([]models.RequiredItem, 0)
	for _, planned := range plan.Items {
		if planned.DebitQty > 0 {
			required = append(required, models.RequiredItem{
				ProductId: planned.ProductId,
				Name:      planned.Name,
				Qty:       planned.DebitQty,
			})
		}
	}
	if len(required) > 0 {
		shortfalls, err := models.ValidateAvailabilityTx(tx, required)
		if err != nil {
			return nil, err
		}
		if len(shortfalls) > 0 {
			return nil, &models.StockShortfallError{Shortfalls: shortfalls}
		}
	}

	adjustments := make([]models.StockAdjustment, 0, len(required))
	for _, planned := range plan.Items {
		if planned.DebitQty > 0 {
			adjustment, err := models.AdjustStockInTx(tx, planned.ProductId, -planned.DebitQty)
			if err != nil {
				return nil, err
			}
			adjustments = append(adjustments, *adjustment)
		}

		err := tx.Model(&models.OrderItem{}).
			Where("id = ?", planned.ItemId).
			Updates(map[string]interface{}{
				"delivered_qty": planned.DeliveredQty,
				"is_delivered":  planned.IsDelivered,
				"committed_qty": gorm.Expr("committed_qty + ?", planned.DebitQty),
			}).Error
		if err != nil {
			return nil, err
		}
	}
	return adjustments, nil
}

// CancelOrder moves a non-terminal order to Cancelled and credits all
// committed stock back. Cancelling a Dispatched or already cancelled
// order is rejected.
func (s *FulfillmentService) CancelOrder(ctx context.Context, orderId int, reason string) (*models.Order, error) {
	order, err := utils.FetchModel[models.Order](ctx, orderId, "Items")
	if err != nil {
		return nil, err
	}
	if order.OrderStatus == models.OrderStatusCancelled {
		return nil, errors.New("order is already cancelled")
	}
	if order.OrderStatus == models.OrderStatusDispatched {
		return nil, errors.New("cannot cancel a dispatched order")
	}

	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		return nil, errors.New("user name is required")
	}
	if reason == "" {
		reason = models.DefaultCancelReason
	}

	db := config.GetDB()
	tx := db.Begin().WithContext(ctx)

	adjustments, err := models.RestoreOrderStock(tx, order)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	order.OrderStatus = models.OrderStatusCancelled
	order.Status = models.StatusCancelled
	order.CancelledBy = userName
	order.CancelReason = reason
	order.StatusUpdatedBy = userName
	order.StatusUpdatedAt = &now
	err = tx.Model(order).
		Select("OrderStatus", "Status", "CancelledBy", "CancelReason", "StatusUpdatedBy", "StatusUpdatedAt").
		Updates(order).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.AppendStatusHistory(tx, order.ID, models.OrderStatusCancelled); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.broadcast(ctx, models.EventOrderStatus, order)
	s.Notifier.Notify(ctx, models.EventOrderStatus, s.orderFanoutContext(ctx, order))
	s.publishStockMovements(ctx, adjustments)
	return order, nil
}

// DeleteOrder removes the order after restoring committed stock.
func (s *FulfillmentService) DeleteOrder(ctx context.Context, orderId int) (*models.Order, error) {
	order, adjustments, err := models.DeleteOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	s.Notifier.Notify(ctx, models.EventOrderDeleted, s.orderFanoutContext(ctx, order))
	s.publishStockMovements(ctx, adjustments)
	return order, nil
}

// AdjustStock applies an administrative stock delta and raises the
// low/out-of-stock notification path when the product lands on a
// warning level.
func (s *FulfillmentService) AdjustStock(ctx context.Context, productId int, delta int) (*models.Product, error) {
	product, level, err := models.AdjustProductStock(ctx, productId, delta)
	if err != nil {
		return nil, err
	}
	if level != models.StockLevelOk {
		s.notifyStockLevels(ctx, []models.StockAdjustment{{Product: product, Level: level}})
	}
	return product, nil
}
