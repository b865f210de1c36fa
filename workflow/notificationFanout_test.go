package workflow

import (
	"strings"
	"testing"

	"github.com/mmdatafocus/orders_backend/models"
)

func testUsers() []*models.User {
	return []*models.User{
		{ID: 1, Name: "Admin", Role: models.RoleAdmin, DeviceToken: "tok-1", IsActive: true},
		{ID: 2, Name: "Manager", Role: models.RoleManager, DeviceToken: "tok-2", IsActive: true},
		{ID: 3, Name: "Supervisor", Role: models.RoleSupervisor, DeviceToken: "tok-3", IsActive: true},
		{ID: 4, Name: "Stock", Role: models.RoleStock, DeviceToken: "tok-4", IsActive: true},
		{ID: 5, Name: "Driver", Role: models.RoleStaff, DeviceToken: "tok-5", IsActive: true},
		{ID: 6, Name: "NoToken", Role: models.RoleManager, DeviceToken: "", IsActive: true},
		{ID: 7, Name: "Inactive", Role: models.RoleAdmin, DeviceToken: "tok-7", IsActive: false},
	}
}

func containsId(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestRecipientsFor_OrderCreated(t *testing.T) {
	got := RecipientsFor(models.EventOrderCreated, FanoutContext{AssigneeId: 5}, testUsers())

	for _, id := range []int{1, 2, 3} {
		if !containsId(got, id) {
			t.Errorf("order managers missing user %d: %v", id, got)
		}
	}
	if containsId(got, 4) || containsId(got, 5) {
		t.Errorf("non-managerial roles included: %v", got)
	}
	if containsId(got, 6) {
		t.Errorf("user without device token included: %v", got)
	}
	if containsId(got, 7) {
		t.Errorf("inactive user included: %v", got)
	}
}

func TestRecipientsFor_StatusChangedDeduplicatesAssignee(t *testing.T) {
	// assignee is also a manager; must appear once
	got := RecipientsFor(models.EventOrderStatus, FanoutContext{AssigneeId: 2}, testUsers())

	count := 0
	for _, id := range got {
		if id == 2 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("assignee-manager appears %d times, want 1 (%v)", count, got)
	}
}

func TestRecipientsFor_ExcludesActor(t *testing.T) {
	got := RecipientsFor(models.EventOrderCreated, FanoutContext{ActorId: 2}, testUsers())
	if containsId(got, 2) {
		t.Errorf("actor notified about own event: %v", got)
	}
}

func TestRecipientsFor_Reassignment(t *testing.T) {
	fc := FanoutContext{AssigneeId: 5, PrevAssigneeId: 4}
	got := RecipientsFor(models.EventOrderReassign, fc, testUsers())

	for _, id := range []int{1, 4, 5} {
		if !containsId(got, id) {
			t.Errorf("reassignment missing user %d: %v", id, got)
		}
	}
	if containsId(got, 2) || containsId(got, 3) {
		t.Errorf("non-admin managers included on reassignment: %v", got)
	}
}

func TestRecipientsFor_LowStockGoesToInventoryRoles(t *testing.T) {
	for _, eventType := range []string{models.EventLowStock, models.EventOutOfStock} {
		got := RecipientsFor(eventType, FanoutContext{ProductName: "Rod"}, testUsers())
		for _, id := range []int{1, 2, 4} {
			if !containsId(got, id) {
				t.Errorf("%s missing inventory user %d: %v", eventType, id, got)
			}
		}
		if containsId(got, 3) || containsId(got, 5) {
			t.Errorf("%s includes non-inventory users: %v", eventType, got)
		}
	}
}

func TestRecipientsFor_StaffEventsAdminOnly(t *testing.T) {
	for _, eventType := range []string{models.EventStaffCreated, models.EventStaffUpdated, models.EventStaffDeleted} {
		got := RecipientsFor(eventType, FanoutContext{StaffName: "New Hire"}, testUsers())
		if len(got) != 1 || got[0] != 1 {
			t.Errorf("%s recipients = %v, want admin only", eventType, got)
		}
	}
}

func TestRecipientsFor_UnknownEventEmpty(t *testing.T) {
	if got := RecipientsFor("unrelated_event", FanoutContext{}, testUsers()); len(got) != 0 {
		t.Errorf("unknown event got recipients: %v", got)
	}
}

func TestPayloadFor_Priorities(t *testing.T) {
	high := []string{models.EventOrderStatus, models.EventOrderReassign, models.EventOutOfStock}
	for _, eventType := range high {
		if p := PayloadFor(eventType, FanoutContext{}); p.Priority != PriorityHigh {
			t.Errorf("%s priority = %s, want high", eventType, p.Priority)
		}
	}
	normal := []string{models.EventOrderCreated, models.EventLowStock, models.EventStaffCreated}
	for _, eventType := range normal {
		if p := PayloadFor(eventType, FanoutContext{}); p.Priority != PriorityNormal {
			t.Errorf("%s priority = %s, want normal", eventType, p.Priority)
		}
	}
}

func TestPayloadFor_OrderEventsCarryOrderNumber(t *testing.T) {
	fc := FanoutContext{OrderNumber: "ORD-007", CustomerName: "Acme", OrderStatus: models.OrderStatusDC}
	for _, eventType := range []string{models.EventOrderCreated, models.EventOrderStatus, models.EventOrderAssigned} {
		p := PayloadFor(eventType, fc)
		if !strings.Contains(p.Body, "ORD-007") && !strings.Contains(p.Title, "ORD-007") {
			t.Errorf("%s payload missing order number: %+v", eventType, p)
		}
		if p.DeepLink != "orders/ORD-007" {
			t.Errorf("%s deep link = %q", eventType, p.DeepLink)
		}
	}
}

func TestPayloadFor_StockEvents(t *testing.T) {
	p := PayloadFor(models.EventLowStock, FanoutContext{ProductName: "Rod", StockQuantity: 3})
	if !strings.Contains(p.Body, "Rod") || !strings.Contains(p.Body, "3") {
		t.Errorf("low stock body = %q", p.Body)
	}
	p = PayloadFor(models.EventOutOfStock, FanoutContext{ProductName: "Rod"})
	if !strings.Contains(p.Title, "Rod") {
		t.Errorf("out of stock title = %q", p.Title)
	}
}
