package models

import (
	"context"

	"github.com/mmdatafocus/orders_backend/utils"
)

// Action names every command the backend exposes. Handlers gate each
// command through CanPerform instead of per-route role checks.
type Action string

const (
	ActionCreateOrder   Action = "order:create"
	ActionUpdateOrder   Action = "order:update"
	ActionChangeStatus  Action = "order:change-status"
	ActionDispatchOrder Action = "order:dispatch"
	ActionCompleteOrder Action = "order:complete"
	ActionCancelOrder   Action = "order:cancel"
	ActionDeleteOrder   Action = "order:delete"
	ActionViewOrders    Action = "order:view"

	ActionCreateProduct  Action = "product:create"
	ActionUpdateProduct  Action = "product:update"
	ActionDeleteProduct  Action = "product:delete"
	ActionAdjustStock    Action = "product:adjust-stock"
	ActionImportProducts Action = "product:import"

	ActionManageStaff Action = "staff:manage"
)

// capability table: role -> actions the role may perform.
var roleCapabilities = map[UserRole]map[Action]bool{
	RoleAdmin: {
		ActionCreateOrder: true, ActionUpdateOrder: true, ActionChangeStatus: true,
		ActionDispatchOrder: true, ActionCompleteOrder: true, ActionCancelOrder: true,
		ActionDeleteOrder: true, ActionViewOrders: true,
		ActionCreateProduct: true, ActionUpdateProduct: true, ActionDeleteProduct: true,
		ActionAdjustStock: true, ActionImportProducts: true,
		ActionManageStaff: true,
	},
	RoleManager: {
		ActionCreateOrder: true, ActionUpdateOrder: true, ActionChangeStatus: true,
		ActionDispatchOrder: true, ActionCompleteOrder: true, ActionCancelOrder: true,
		ActionViewOrders:    true,
		ActionCreateProduct: true, ActionUpdateProduct: true,
		ActionAdjustStock: true, ActionImportProducts: true,
	},
	RoleSupervisor: {
		ActionCreateOrder: true, ActionUpdateOrder: true, ActionChangeStatus: true,
		ActionDispatchOrder: true, ActionCompleteOrder: true, ActionCancelOrder: true,
		ActionViewOrders: true,
	},
	RoleStock: {
		ActionViewOrders:  true,
		ActionAdjustStock: true, ActionUpdateProduct: true,
	},
	RoleStaff: {
		ActionViewOrders: true,
	},
}

// Role groupings used by the notification fan-out policy.
var (
	OrderManagerRoles = []UserRole{RoleAdmin, RoleManager, RoleSupervisor}
	InventoryRoles    = []UserRole{RoleAdmin, RoleManager, RoleStock}
	AdminOnlyRoles    = []UserRole{RoleAdmin}
)

// CanPerform is the single authorization gate: true when the role's
// capability row contains the action.
func CanPerform(role UserRole, action Action) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	return caps[action]
}

// CanActorPerform reads the acting user's role from context.
func CanActorPerform(ctx context.Context, action Action) bool {
	role, ok := utils.GetUserRoleFromContext(ctx)
	if !ok {
		return false
	}
	return CanPerform(UserRole(role), action)
}
