package workflow

import (
	"fmt"

	"github.com/mmdatafocus/orders_backend/models"
)

// FanoutContext carries the event-specific identities and display
// fields the recipient and payload tables key on.
type FanoutContext struct {
	ActorId        int
	AssigneeId     int
	PrevAssigneeId int
	CreatedById    int

	OrderNumber  string
	CustomerName string
	OrderStatus  models.OrderStatus
	CancelReason string

	ProductName   string
	StockQuantity int

	StaffName string
}

// NotificationPayload is the composed message handed to the delivery
// layer, transport-agnostic.
type NotificationPayload struct {
	Title    string
	Body     string
	Priority string
	DeepLink string
}

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

func hasAnyRole(role models.UserRole, roles []models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RecipientsFor maps an event to a deduplicated recipient set drawn
// from the given candidate users. Candidates are expected to be the
// users holding an active device token; users without one never
// receive pushes. The acting user is excluded from their own events.
func RecipientsFor(eventType string, fc FanoutContext, users []*models.User) []int {
	include := func(user *models.User) bool {
		switch eventType {
		case models.EventOrderCreated:
			return hasAnyRole(user.Role, models.OrderManagerRoles)
		case models.EventOrderAssigned:
			return user.ID == fc.AssigneeId
		case models.EventOrderStatus, models.EventOrderUpdated:
			return user.ID == fc.AssigneeId || hasAnyRole(user.Role, models.OrderManagerRoles)
		case models.EventOrderReassign:
			return user.ID == fc.AssigneeId || user.ID == fc.PrevAssigneeId ||
				hasAnyRole(user.Role, models.AdminOnlyRoles)
		case models.EventOrderDeleted:
			return user.ID == fc.AssigneeId || user.ID == fc.CreatedById ||
				hasAnyRole(user.Role, models.AdminOnlyRoles)
		case models.EventLowStock, models.EventOutOfStock:
			return hasAnyRole(user.Role, models.InventoryRoles)
		case models.EventProductDeleted:
			return hasAnyRole(user.Role, models.AdminOnlyRoles)
		case models.EventStaffCreated, models.EventStaffUpdated, models.EventStaffDeleted:
			return hasAnyRole(user.Role, models.AdminOnlyRoles)
		default:
			return false
		}
	}

	seen := make(map[int]bool)
	recipients := make([]int, 0)
	for _, user := range users {
		if user == nil || user.DeviceToken == "" || !user.IsActive {
			continue
		}
		if user.ID == fc.ActorId {
			continue
		}
		if seen[user.ID] || !include(user) {
			continue
		}
		seen[user.ID] = true
		recipients = append(recipients, user.ID)
	}
	return recipients
}

// PayloadFor composes the title/body/priority/deep-link tuple for an
// event. One static table, enumerated once.
func PayloadFor(eventType string, fc FanoutContext) NotificationPayload {
	switch eventType {
	case models.EventOrderCreated:
		return NotificationPayload{
			Title:    "New order " + fc.OrderNumber,
			Body:     fmt.Sprintf("Order %s created for %s", fc.OrderNumber, fc.CustomerName),
			Priority: PriorityNormal,
			DeepLink: "orders/" + fc.OrderNumber,
		}
	case models.EventOrderAssigned:
		return NotificationPayload{
			Title:    "Order assigned",
			Body:     fmt.Sprintf("Order %s was assigned to you", fc.OrderNumber),
			Priority: PriorityNormal,
			DeepLink: "orders/" + fc.OrderNumber,
		}
	case models.EventOrderStatus:
		return NotificationPayload{
			Title:    "Order " + fc.OrderNumber + " " + string(fc.OrderStatus),
			Body:     fmt.Sprintf("Order %s moved to %s", fc.OrderNumber, fc.OrderStatus),
			Priority: PriorityHigh,
			DeepLink: "orders/" + fc.OrderNumber,
		}
	case models.EventOrderReassign:
		return NotificationPayload{
			Title:    "Order reassigned",
			Body:     fmt.Sprintf("Order %s was reassigned", fc.OrderNumber),
			Priority: PriorityHigh,
			DeepLink: "orders/" + fc.OrderNumber,
		}
	case models.EventOrderUpdated:
		return NotificationPayload{
			Title:    "Order updated",
			Body:     fmt.Sprintf("Order %s was updated", fc.OrderNumber),
			Priority: PriorityNormal,
			DeepLink: "orders/" + fc.OrderNumber,
		}
	case models.EventOrderDeleted:
		return NotificationPayload{
			Title:    "Order deleted",
			Body:     fmt.Sprintf("Order %s was deleted", fc.OrderNumber),
			Priority: PriorityNormal,
			DeepLink: "orders",
		}
	case models.EventLowStock:
		return NotificationPayload{
			Title:    "Low stock: " + fc.ProductName,
			Body:     fmt.Sprintf("%s is down to %d units", fc.ProductName, fc.StockQuantity),
			Priority: PriorityNormal,
			DeepLink: "products",
		}
	case models.EventOutOfStock:
		return NotificationPayload{
			Title:    "Out of stock: " + fc.ProductName,
			Body:     fc.ProductName + " is out of stock",
			Priority: PriorityHigh,
			DeepLink: "products",
		}
	case models.EventProductDeleted:
		return NotificationPayload{
			Title:    "Product deleted",
			Body:     fc.ProductName + " was removed from the catalog",
			Priority: PriorityNormal,
			DeepLink: "products",
		}
	case models.EventStaffCreated:
		return NotificationPayload{
			Title:    "Staff added",
			Body:     fc.StaffName + " joined the team",
			Priority: PriorityNormal,
			DeepLink: "staff",
		}
	case models.EventStaffUpdated:
		return NotificationPayload{
			Title:    "Staff updated",
			Body:     fc.StaffName + "'s account was updated",
			Priority: PriorityNormal,
			DeepLink: "staff",
		}
	case models.EventStaffDeleted:
		return NotificationPayload{
			Title:    "Staff removed",
			Body:     fc.StaffName + "'s account was removed",
			Priority: PriorityNormal,
			DeepLink: "staff",
		}
	default:
		return NotificationPayload{
			Title:    eventType,
			Priority: PriorityNormal,
		}
	}
}
