package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"flowfin/config"
	"flowfin/internal/finance"
	"flowfin/internal/realtime"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionInput struct {
	Type        string          `json:"type" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredOn  string          `json:"occurredOn"`
	AccountID   *uint           `json:"accountId"`
	CustomerID  *uint           `json:"customerId"`
	Reference   string          `json:"reference"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Total    decimal.Decimal `json:"total"`
}

// apply validates the input and copies it onto t. References must belong to the organization.
func (in TransactionInput) apply(db *gorm.DB, orgID uint, t *models.Transaction) error {
	if in.Type != models.TransactionIncome && in.Type != models.TransactionExpense {
		return badInput("type must be income or expense")
	}
	if !in.Amount.IsPositive() {
		return badInput("amount must be greater than zero")
	}
	occurred := finance.DateOnly(time.Now())
	if in.OccurredOn != "" {
		d, err := parseDate(in.OccurredOn)
		if err != nil {
			return badInput("Invalid occurredOn date, expected YYYY-MM-DD")
		}
		occurred = d
	}
	if in.AccountID != nil {
		var n int64
		if err := db.Model(&models.Account{}).
			Where("organization_id = ? AND id = ? AND archived = ?", orgID, *in.AccountID, false).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return badInput("Unknown or archived account")
		}
	}
	if in.CustomerID != nil {
		var n int64
		if err := db.Model(&models.Customer{}).
			Where("organization_id = ? AND id = ?", orgID, *in.CustomerID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return badInput("Unknown customer")
		}
	}

	t.Type = in.Type
	t.Amount = finance.Round2(in.Amount)
	t.Category = strings.TrimSpace(in.Category)
	t.Description = strings.TrimSpace(in.Description)
	t.OccurredOn = occurred
	t.AccountID = in.AccountID
	t.CustomerID = in.CustomerID
	t.Reference = in.Reference
	return nil
}

// transactionQuery applies the list filters shared by listing and export.
func transactionQuery(c *gin.Context) (func() *gorm.DB, bool) {
	typ := c.Query("type")
	if typ != "" && typ != models.TransactionIncome && typ != models.TransactionExpense {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be income or expense"})
		return nil, false
	}
	accountID, ok := uintQuery(c, "account_id")
	if !ok {
		return nil, false
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return nil, false
	}

	return func() *gorm.DB {
		q := tenantDB(c).Model(&models.Transaction{})
		if typ != "" {
			q = q.Where("type = ?", typ)
		}
		if category := c.Query("category"); category != "" {
			q = q.Where("category = ?", category)
		}
		if accountID != 0 {
			q = q.Where("account_id = ?", accountID)
		}
		if from != nil {
			q = q.Where("occurred_on >= ?", *from)
		}
		if to != nil {
			q = q.Where("occurred_on < ?", *to)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(description) LIKE ? OR LOWER(reference) LIKE ?", pattern, pattern)
		}
		return q
	}, true
}

// ListTransactionsHandler returns a filtered, paginated ledger.
func ListTransactionsHandler(c *gin.Context) {
	base, ok := transactionQuery(c)
	if !ok {
		return
	}

	var totalRows int64
	if err := base().Count(&totalRows).Error; err != nil {
		respondDBError(c, err, "Could not count transactions")
		return
	}

	transactions := make([]models.Transaction, 0)
	if err := base().Scopes(Paginate(c)).
		Order("occurred_on desc, id desc").
		Find(&transactions).Error; err != nil {
		respondDBError(c, err, "Could not fetch transactions")
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, transactions, totalRows))
}

// CreateTransactionHandler records a manual income or expense.
func CreateTransactionHandler(c *gin.Context) {
	var input TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orgID := currentOrgID(c)
	txn := models.Transaction{OrganizationID: orgID}
	if err := input.apply(config.DB, orgID, &txn); err != nil {
		respondError(c, err, "Invalid transaction")
		return
	}
	if err := config.DB.Create(&txn).Error; err != nil {
		respondDBError(c, err, "Failed to create transaction")
		return
	}

	realtime.GlobalHub.Publish(orgID, realtime.EventTransactionCreated, txn)
	c.JSON(http.StatusCreated, txn)
}

// GetTransactionHandler returns one transaction.
func GetTransactionHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var txn models.Transaction
	if !findInTenant(c, &txn, id, "Transaction") {
		return
	}
	c.JSON(http.StatusOK, txn)
}

// UpdateTransactionHandler edits a manual transaction.
func UpdateTransactionHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input TransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var txn models.Transaction
	if !findInTenant(c, &txn, id, "Transaction") {
		return
	}
	if txn.InvoiceID != nil || txn.GoalID != nil {
		respondError(c, errLinkedTransaction, "")
		return
	}
	if err := input.apply(config.DB, txn.OrganizationID, &txn); err != nil {
		respondError(c, err, "Invalid transaction")
		return
	}
	if err := config.DB.Save(&txn).Error; err != nil {
		respondDBError(c, err, "Failed to update transaction")
		return
	}
	c.JSON(http.StatusOK, txn)
}

// DeleteTransactionHandler deletes a manual transaction.
func DeleteTransactionHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var txn models.Transaction
	if !findInTenant(c, &txn, id, "Transaction") {
		return
	}
	if txn.InvoiceID != nil || txn.GoalID != nil {
		respondError(c, errLinkedTransaction, "")
		return
	}
	if err := config.DB.Delete(&txn).Error; err != nil {
		respondDBError(c, err, "Failed to delete transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// GetTransactionSummaryHandler totals income and expense for a period, per category.
func GetTransactionSummaryHandler(c *gin.Context) {
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	categories, err := categoryTotals(tenantDB(c), from, to)
	if err != nil {
		respondDBError(c, err, "Failed to summarize transactions")
		return
	}

	income, expense := decimal.Zero, decimal.Zero
	for _, ct := range categories {
		if ct.Type == models.TransactionIncome {
			income = income.Add(ct.Total)
		} else {
			expense = expense.Add(ct.Total)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"income":     income,
		"expense":    expense,
		"net":        income.Sub(expense),
		"categories": categories,
	})
}

// categoryTotals groups transaction amounts by type and category within [from, to).
func categoryTotals(db *gorm.DB, from, to *time.Time) ([]CategoryTotal, error) {
	q := db.Model(&models.Transaction{}).Select("category, type, SUM(amount) AS total")
	if from != nil {
		q = q.Where("occurred_on >= ?", *from)
	}
	if to != nil {
		q = q.Where("occurred_on < ?", *to)
	}
	var rows []CategoryTotal
	if err := q.Group("category, type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Total = finance.Round2(rows[i].Total)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].Category < rows[j].Category
	})
	if rows == nil {
		rows = []CategoryTotal{}
	}
	return rows, nil
}

var transactionExportHeaders = []string{"Date", "Type", "Category", "Description", "Amount", "Account", "Reference", "Invoice"}

// ExportTransactionsXLSXHandler streams the filtered ledger as an Excel workbook.
func ExportTransactionsXLSXHandler(c *gin.Context) {
	base, ok := transactionQuery(c)
	if !ok {
		return
	}
	var transactions []models.Transaction
	if err := base().Order("occurred_on asc, id asc").Find(&transactions).Error; err != nil {
		respondDBError(c, err, "Failed to fetch transactions for export")
		return
	}

	var accounts []models.Account
	if err := tenantDB(c).Unscoped().Find(&accounts).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondDBError(c, err, "Failed to load accounts")
		return
	}
	accountNames := make(map[uint]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	var invoices []models.Invoice
	if err := tenantDB(c).Unscoped().Select("id", "number").Where("id IN (?)",
		tenantDB(c).Model(&models.Transaction{}).Select("invoice_id").Where("invoice_id IS NOT NULL"),
	).Find(&invoices).Error; err != nil {
		respondDBError(c, err, "Failed to load invoice numbers")
		return
	}
	invoiceNumbers := make(map[uint]string, len(invoices))
	for _, inv := range invoices {
		invoiceNumbers[inv.ID] = inv.Number
	}

	rows := make([][]interface{}, 0, len(transactions))
	for _, t := range transactions {
		var account, invoice string
		if t.AccountID != nil {
			account = accountNames[*t.AccountID]
		}
		if t.InvoiceID != nil {
			invoice = invoiceNumbers[*t.InvoiceID]
		}
		rows = append(rows, []interface{}{
			t.OccurredOn.Format(dateLayout), t.Type, t.Category, t.Description,
			t.Signed().InexactFloat64(), account, t.Reference, invoice,
		})
	}
	writeXLSX(c, "Transactions", transactionExportHeaders, rows, exportFileName("transactions", "xlsx"))
}
