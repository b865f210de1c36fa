package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/orders_backend/models"
)

// DB-free tests over the pure transition table and dispatch planning.
// The DB-backed paths are covered by the integration tests in models.

func TestAllowedTransitions_Strict(t *testing.T) {
	cases := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending:    {models.OrderStatusDC},
		models.OrderStatusDC:         {models.OrderStatusInvoice},
		models.OrderStatusInvoice:    {models.OrderStatusDispatched},
		models.OrderStatusDispatched: nil,
		models.OrderStatusCancelled:  nil,
	}
	for current, want := range cases {
		got := AllowedTransitions(current, false)
		if len(got) != len(want) {
			t.Errorf("AllowedTransitions(%s, strict) = %v, want %v", current, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("AllowedTransitions(%s, strict) = %v, want %v", current, got, want)
			}
		}
	}
}

func TestAllowedTransitions_PermissiveAdmitsDCDispatch(t *testing.T) {
	got := AllowedTransitions(models.OrderStatusDC, true)
	found := false
	for _, status := range got {
		if status == models.OrderStatusDispatched {
			found = true
		}
	}
	if !found {
		t.Errorf("permissive DC transitions = %v, want Dispatched included", got)
	}

	// permissive only widens DC; everything else is unchanged
	if err := ValidateTransition(models.OrderStatusPending, models.OrderStatusInvoice, true); err == nil {
		t.Error("Pending→Invoice accepted under permissive flag")
	}
}

func TestValidateTransition_RejectsSkipAndRegress(t *testing.T) {
	rejected := []struct {
		current, requested models.OrderStatus
	}{
		{models.OrderStatusPending, models.OrderStatusInvoice},
		{models.OrderStatusPending, models.OrderStatusDispatched},
		{models.OrderStatusDC, models.OrderStatusPending},
		{models.OrderStatusDC, models.OrderStatusDispatched},
		{models.OrderStatusInvoice, models.OrderStatusDC},
		{models.OrderStatusDispatched, models.OrderStatusPending},
		{models.OrderStatusDispatched, models.OrderStatusInvoice},
		{models.OrderStatusCancelled, models.OrderStatusDC},
	}
	for _, tc := range rejected {
		err := ValidateTransition(tc.current, tc.requested, false)
		if err == nil {
			t.Errorf("ValidateTransition(%s→%s) accepted, want rejection", tc.current, tc.requested)
			continue
		}
		var transitionErr *TransitionError
		if !errors.As(err, &transitionErr) {
			t.Errorf("ValidateTransition(%s→%s) error type %T, want *TransitionError", tc.current, tc.requested, err)
			continue
		}
		if transitionErr.Current != tc.current || transitionErr.Requested != tc.requested {
			t.Errorf("TransitionError reports %s→%s, want %s→%s",
				transitionErr.Current, transitionErr.Requested, tc.current, tc.requested)
		}
	}
}

func TestValidateTransition_AcceptsLegalChain(t *testing.T) {
	chain := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusDC,
		models.OrderStatusInvoice,
		models.OrderStatusDispatched,
	}
	for i := 0; i < len(chain)-1; i++ {
		if err := ValidateTransition(chain[i], chain[i+1], false); err != nil {
			t.Errorf("ValidateTransition(%s→%s): %v", chain[i], chain[i+1], err)
		}
	}
}

func TestPlanDispatch_FullByDefault(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, ProductId: 10, Name: "Rod", Qty: 5},
		{ID: 2, ProductId: 11, Name: "Pipe", Qty: 3},
	}
	plan, err := PlanDispatch(items, nil)
	if err != nil {
		t.Fatalf("PlanDispatch: %v", err)
	}
	if plan.IsPartial {
		t.Error("full dispatch marked partial")
	}
	if plan.FulfilledCount != 2 {
		t.Errorf("fulfilled = %d, want 2", plan.FulfilledCount)
	}
	for i, planned := range plan.Items {
		if planned.DeliveredQty != items[i].Qty || !planned.IsDelivered {
			t.Errorf("item %d delivered %d/%v, want %d/true", i, planned.DeliveredQty, planned.IsDelivered, items[i].Qty)
		}
		if planned.DebitQty != items[i].Qty {
			t.Errorf("item %d debit = %d, want %d", i, planned.DebitQty, items[i].Qty)
		}
	}
}

func TestPlanDispatch_CommittedStockNotDebitedTwice(t *testing.T) {
	// items already fully committed at creation need no further debit
	items := []models.OrderItem{
		{ID: 1, ProductId: 10, Name: "Rod", Qty: 5, CommittedQty: 5},
	}
	plan, err := PlanDispatch(items, nil)
	if err != nil {
		t.Fatalf("PlanDispatch: %v", err)
	}
	if plan.Items[0].DebitQty != 0 {
		t.Errorf("debit = %d, want 0 for fully committed item", plan.Items[0].DebitQty)
	}
}

func TestPlanDispatch_PartialBookkeeping(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, ProductId: 10, Name: "Rod", Qty: 5},
		{ID: 2, ProductId: 11, Name: "Pipe", Qty: 3},
		{ID: 3, ProductId: 12, Name: "Sheet", Qty: 2},
	}
	delivered := []DeliveredItemInput{
		{ProductId: 10, DeliveredQty: 5},
		{ProductId: 11, DeliveredQty: 1},
	}
	plan, err := PlanDispatch(items, delivered)
	if err != nil {
		t.Fatalf("PlanDispatch: %v", err)
	}
	if !plan.IsPartial {
		t.Error("partial dispatch not marked partial")
	}
	if plan.FulfilledCount != 1 {
		t.Errorf("fulfilled = %d, want 1", plan.FulfilledCount)
	}
	if plan.Items[0].DebitQty != 5 || !plan.Items[0].IsDelivered {
		t.Errorf("item 0 = debit %d delivered %v, want 5/true", plan.Items[0].DebitQty, plan.Items[0].IsDelivered)
	}
	if plan.Items[1].DebitQty != 1 || plan.Items[1].IsDelivered {
		t.Errorf("item 1 = debit %d delivered %v, want 1/false", plan.Items[1].DebitQty, plan.Items[1].IsDelivered)
	}
	// unlisted item stays pending
	if plan.Items[2].DeliveredQty != 0 || plan.Items[2].DebitQty != 0 {
		t.Errorf("item 2 = delivered %d debit %d, want 0/0", plan.Items[2].DeliveredQty, plan.Items[2].DebitQty)
	}
}

func TestPlanDispatch_RejectsBadInput(t *testing.T) {
	items := []models.OrderItem{{ID: 1, ProductId: 10, Name: "Rod", Qty: 5}}

	if _, err := PlanDispatch(items, []DeliveredItemInput{{ProductId: 10, DeliveredQty: 6}}); err == nil {
		t.Error("over-delivery accepted")
	}
	if _, err := PlanDispatch(items, []DeliveredItemInput{{ProductId: 10, DeliveredQty: -1}}); err == nil {
		t.Error("negative delivery accepted")
	}
	if _, err := PlanDispatch(items, []DeliveredItemInput{{ProductId: 99, DeliveredQty: 1}}); err == nil {
		t.Error("unknown product accepted")
	}
	if _, err := PlanDispatch(items, []DeliveredItemInput{
		{ProductId: 10, DeliveredQty: 1},
		{ProductId: 10, DeliveredQty: 2},
	}); err == nil {
		t.Error("duplicate product entries accepted")
	}
}

func TestPlanCompletion_DebitsOnlyRemainder(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, ProductId: 10, Name: "Rod", Qty: 5, DeliveredQty: 5, IsDelivered: true, CommittedQty: 5},
		{ID: 2, ProductId: 11, Name: "Pipe", Qty: 3, DeliveredQty: 1, CommittedQty: 1},
		{ID: 3, ProductId: 12, Name: "Sheet", Qty: 2, CommittedQty: 0},
	}
	plan := PlanCompletion(items)

	if plan.FulfilledCount != 3 {
		t.Errorf("fulfilled = %d, want 3", plan.FulfilledCount)
	}
	wantDebits := []int{0, 2, 2}
	for i, planned := range plan.Items {
		if planned.DebitQty != wantDebits[i] {
			t.Errorf("item %d debit = %d, want %d", i, planned.DebitQty, wantDebits[i])
		}
		if planned.DeliveredQty != items[i].Qty || !planned.IsDelivered {
			t.Errorf("item %d not fully delivered in plan", i)
		}
	}
}

type recordingSink struct {
	events []string
}

func (s *recordingSink) Broadcast(ctx context.Context, eventType string, entity interface{}) error {
	s.events = append(s.events, eventType)
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, eventType string, fc FanoutContext) {
	n.events = append(n.events, eventType)
}

func TestPublishStockMovements_BroadcastsEveryMovement(t *testing.T) {
	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	service, err := NewFulfillmentService(sink, notifier)
	if err != nil {
		t.Fatalf("NewFulfillmentService: %v", err)
	}

	adjustments := []models.StockAdjustment{
		{Product: &models.Product{Name: "Rod", StockQuantity: 50, LowStockThreshold: 10}, Level: models.StockLevelOk},
		{Product: &models.Product{Name: "Pipe", StockQuantity: 3, LowStockThreshold: 10}, Level: models.StockLevelLow},
		{Product: &models.Product{Name: "Sheet", StockQuantity: 0, LowStockThreshold: 10}, Level: models.StockLevelOut},
	}
	service.publishStockMovements(context.Background(), adjustments)

	if len(sink.events) != 3 {
		t.Fatalf("broadcasts = %d, want one per movement", len(sink.events))
	}
	for i, eventType := range sink.events {
		if eventType != models.EventProductUpdated {
			t.Errorf("broadcast %d = %s, want %s", i, eventType, models.EventProductUpdated)
		}
	}

	// only the warning levels get a notification
	wantNotified := []string{models.EventLowStock, models.EventOutOfStock}
	if len(notifier.events) != len(wantNotified) {
		t.Fatalf("notifications = %v, want %v", notifier.events, wantNotified)
	}
	for i, eventType := range notifier.events {
		if eventType != wantNotified[i] {
			t.Errorf("notification %d = %s, want %s", i, eventType, wantNotified[i])
		}
	}
}

func TestRecordPlanOnItems_ReflectsAppliedFigures(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, ProductId: 10, Name: "Rod", Qty: 6},
		{ID: 2, ProductId: 11, Name: "Pipe", Qty: 4, CommittedQty: 4},
	}
	plan, err := PlanDispatch(items, []DeliveredItemInput{
		{ProductId: 10, DeliveredQty: 6},
		{ProductId: 11, DeliveredQty: 1},
	})
	if err != nil {
		t.Fatalf("PlanDispatch: %v", err)
	}

	recordPlanOnItems(items, plan)

	if items[0].DeliveredQty != 6 || !items[0].IsDelivered || items[0].CommittedQty != 6 {
		t.Errorf("item 0 = delivered %d/%v committed %d, want 6/true/6",
			items[0].DeliveredQty, items[0].IsDelivered, items[0].CommittedQty)
	}
	// already fully committed: delivered figure recorded, no extra commit
	if items[1].DeliveredQty != 1 || items[1].IsDelivered || items[1].CommittedQty != 4 {
		t.Errorf("item 1 = delivered %d/%v committed %d, want 1/false/4",
			items[1].DeliveredQty, items[1].IsDelivered, items[1].CommittedQty)
	}
}
