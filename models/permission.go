package models

import "sort"

const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleViewer     = "viewer"
)

const (
	PermSettingsManage     = "settings_manage"
	PermMembersManage      = "members_manage"
	PermCustomersView      = "customers_view"
	PermCustomersManage    = "customers_manage"
	PermInvoicesView       = "invoices_view"
	PermInvoicesManage     = "invoices_manage"
	PermInvoicesMarkPaid   = "invoices_mark_paid"
	PermTransactionsView   = "transactions_view"
	PermTransactionsManage = "transactions_manage"
	PermBudgetsView        = "budgets_view"
	PermBudgetsManage      = "budgets_manage"
	PermGoalsView          = "goals_view"
	PermGoalsManage        = "goals_manage"
	PermDeliveryView       = "delivery_view"
	PermDeliveryManage     = "delivery_manage"
	PermReportsView        = "reports_view"
)

var viewPermissions = []string{
	PermCustomersView, PermInvoicesView, PermTransactionsView, PermBudgetsView,
	PermGoalsView, PermDeliveryView, PermReportsView,
}

var bookkeepingPermissions = []string{
	PermCustomersManage, PermInvoicesManage, PermInvoicesMarkPaid,
	PermTransactionsManage, PermBudgetsManage, PermGoalsManage, PermDeliveryManage,
}

// rolePermissions is the fixed role -> permission table. Owners bypass checks
// entirely but still get the full list so clients can render accordingly.
var rolePermissions = map[string][]string{
	RoleOwner:      concat(viewPermissions, bookkeepingPermissions, []string{PermSettingsManage, PermMembersManage}),
	RoleAdmin:      concat(viewPermissions, bookkeepingPermissions, []string{PermSettingsManage, PermMembersManage}),
	RoleAccountant: concat(viewPermissions, bookkeepingPermissions),
	RoleViewer:     concat(viewPermissions),
}

// PermissionsForRole returns a sorted copy of the role's permissions.
func PermissionsForRole(role string) []string {
	perms := append([]string(nil), rolePermissions[role]...)
	sort.Strings(perms)
	return perms
}

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
