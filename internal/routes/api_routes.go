package routes

import (
	"flowfin/internal/handlers"
	"flowfin/internal/middleware"
	"flowfin/models"

	"github.com/gin-gonic/gin"
)

var perm = middleware.PermissionMiddleware

// RegisterAPIRoutes registers every /api route. Setup, profile and
// organization switching work before an organization exists; everything else
// needs one.
func RegisterAPIRoutes(rg *gin.RouterGroup) {
	apiGroup := rg.Group("/api")

	// --- Onboarding and profile ---
	apiGroup.GET("/setup/status", handlers.GetSetupStatusHandler)
	apiGroup.POST("/setup", handlers.CompleteSetupHandler)

	me := apiGroup.Group("/me")
	{
		me.GET("", handlers.GetProfileHandler)
		me.PUT("", handlers.UpdateProfileHandler)
	}

	organizations := apiGroup.Group("/organizations")
	{
		organizations.GET("", handlers.ListOrganizationsHandler)
		organizations.POST("", handlers.CreateOrganizationHandler)
		organizations.POST("/:id/switch", handlers.SwitchOrganizationHandler)
	}

	tenant := apiGroup.Group("")
	tenant.Use(middleware.RequireOrganization())

	// --- Organization and members ---
	tenant.GET("/organization", handlers.GetOrganizationHandler)
	tenant.PUT("/organization", perm(models.PermSettingsManage), handlers.UpdateOrganizationHandler)

	members := tenant.Group("/members")
	{
		members.GET("", handlers.ListMembersHandler)
		members.POST("", perm(models.PermMembersManage), handlers.AddMemberHandler)
		members.PUT("/:id", perm(models.PermMembersManage), handlers.UpdateMemberHandler)
		members.DELETE("/:id", perm(models.PermMembersManage), handlers.RemoveMemberHandler)
	}

	// --- Customers ---
	customers := tenant.Group("/customers")
	customers.Use(perm(models.PermCustomersView))
	{
		customers.GET("", handlers.ListCustomersHandler)
		customers.POST("", perm(models.PermCustomersManage), handlers.CreateCustomerHandler)
		customers.GET("/:id", handlers.GetCustomerHandler)
		customers.PUT("/:id", perm(models.PermCustomersManage), handlers.UpdateCustomerHandler)
		customers.DELETE("/:id", perm(models.PermCustomersManage), handlers.DeleteCustomerHandler)
		customers.GET("/:id/statement", handlers.GetCustomerStatementHandler)
	}

	// --- Invoices ---
	invoices := tenant.Group("/invoices")
	invoices.Use(perm(models.PermInvoicesView))
	{
		invoices.GET("", handlers.ListInvoicesHandler)
		invoices.GET("/counts", handlers.GetInvoiceCountsHandler)
		invoices.GET("/export.csv", handlers.ExportInvoicesCSVHandler)
		invoices.GET("/export.xlsx", handlers.ExportInvoicesXLSXHandler)
		invoices.POST("/recognize", perm(models.PermInvoicesManage), handlers.RecognizeInvoiceHandler)
		invoices.POST("", perm(models.PermInvoicesManage), handlers.CreateInvoiceHandler)
		invoices.GET("/:id", handlers.GetInvoiceHandler)
		invoices.PUT("/:id", perm(models.PermInvoicesManage), handlers.UpdateInvoiceHandler)
		invoices.DELETE("/:id", perm(models.PermInvoicesManage), handlers.DeleteInvoiceHandler)
		invoices.POST("/:id/send", perm(models.PermInvoicesManage), handlers.SendInvoiceHandler)
		invoices.POST("/:id/void", perm(models.PermInvoicesManage), handlers.VoidInvoiceHandler)
		invoices.POST("/:id/mark-paid", perm(models.PermInvoicesMarkPaid), handlers.MarkAsPaidHandler)
	}

	// --- Accounts and transactions ---
	accounts := tenant.Group("/accounts")
	accounts.Use(perm(models.PermTransactionsView))
	{
		accounts.GET("", handlers.ListAccountsHandler)
		accounts.POST("", perm(models.PermTransactionsManage), handlers.CreateAccountHandler)
		accounts.GET("/:id", handlers.GetAccountHandler)
		accounts.PUT("/:id", perm(models.PermTransactionsManage), handlers.UpdateAccountHandler)
		accounts.DELETE("/:id", perm(models.PermTransactionsManage), handlers.DeleteAccountHandler)
	}

	transactions := tenant.Group("/transactions")
	transactions.Use(perm(models.PermTransactionsView))
	{
		transactions.GET("", handlers.ListTransactionsHandler)
		transactions.GET("/summary", handlers.GetTransactionSummaryHandler)
		transactions.GET("/export.xlsx", handlers.ExportTransactionsXLSXHandler)
		transactions.POST("", perm(models.PermTransactionsManage), handlers.CreateTransactionHandler)
		transactions.GET("/:id", handlers.GetTransactionHandler)
		transactions.PUT("/:id", perm(models.PermTransactionsManage), handlers.UpdateTransactionHandler)
		transactions.DELETE("/:id", perm(models.PermTransactionsManage), handlers.DeleteTransactionHandler)
	}

	// --- Budgets ---
	budgets := tenant.Group("/budgets")
	budgets.Use(perm(models.PermBudgetsView))
	{
		budgets.GET("", handlers.ListBudgetsHandler)
		budgets.GET("/status", handlers.GetBudgetsStatusHandler)
		budgets.POST("", perm(models.PermBudgetsManage), handlers.CreateBudgetHandler)
		budgets.GET("/:id", handlers.GetBudgetHandler)
		budgets.PUT("/:id", perm(models.PermBudgetsManage), handlers.UpdateBudgetHandler)
		budgets.DELETE("/:id", perm(models.PermBudgetsManage), handlers.DeleteBudgetHandler)
	}

	// --- Goals ---
	goals := tenant.Group("/goals")
	goals.Use(perm(models.PermGoalsView))
	{
		goals.GET("", handlers.ListGoalsHandler)
		goals.POST("", perm(models.PermGoalsManage), handlers.CreateGoalHandler)
		goals.GET("/:id", handlers.GetGoalHandler)
		goals.PUT("/:id", perm(models.PermGoalsManage), handlers.UpdateGoalHandler)
		goals.DELETE("/:id", perm(models.PermGoalsManage), handlers.DeleteGoalHandler)
		goals.GET("/:id/contributions", handlers.ListContributionsHandler)
		goals.POST("/:id/contributions", perm(models.PermGoalsManage), handlers.AddContributionHandler)
	}

	// --- Delivery pricing ---
	delivery := tenant.Group("/delivery")
	delivery.Use(perm(models.PermDeliveryView))
	{
		delivery.POST("/quote", handlers.QuoteDeliveryHandler)
		delivery.GET("/zones", handlers.ListDeliveryZonesHandler)
		delivery.POST("/zones", perm(models.PermDeliveryManage), handlers.CreateDeliveryZoneHandler)
		delivery.GET("/zones/:id", handlers.GetDeliveryZoneHandler)
		delivery.PUT("/zones/:id", perm(models.PermDeliveryManage), handlers.UpdateDeliveryZoneHandler)
		delivery.DELETE("/zones/:id", perm(models.PermDeliveryManage), handlers.DeleteDeliveryZoneHandler)
	}

	// --- Reports ---
	tenant.GET("/reports/summary", perm(models.PermReportsView), handlers.GetReportSummaryHandler)

	// --- Realtime ---
	tenant.GET("/ws", handlers.EventsHandler)
}
