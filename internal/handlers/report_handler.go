package handlers

import (
	"net/http"
	"time"

	"flowfin/internal/finance"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthFlow is the cash movement of one calendar month.
type MonthFlow struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// GetReportSummaryHandler returns receivables and cash figures for a period.
// Without from/to it covers the last twelve calendar months.
func GetReportSummaryHandler(c *gin.Context) {
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	now := finance.DateOnly(time.Now())
	if to == nil {
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		to = &end
	}
	if from == nil {
		start := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -12, 0)
		if to.Day() != 1 {
			start = start.AddDate(0, 1, 0)
		}
		from = &start
	}
	db := tenantDB(c)

	invoiced, err := sumInvoices(db.Session(&gorm.Session{}).
		Where("status IN ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue, models.InvoiceStatusPaid}).
		Where("issue_date >= ? AND issue_date < ?", *from, *to))
	if err != nil {
		respondDBError(c, err, "Failed to build report")
		return
	}
	collected, err := sumInvoices(db.Session(&gorm.Session{}).
		Where("status = ?", models.InvoiceStatusPaid).
		Where("paid_at >= ? AND paid_at < ?", *from, *to))
	if err != nil {
		respondDBError(c, err, "Failed to build report")
		return
	}
	outstanding, err := sumInvoices(db.Session(&gorm.Session{}).
		Where("status IN ?", []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}))
	if err != nil {
		respondDBError(c, err, "Failed to build report")
		return
	}
	var overdueCount int64
	if err := db.Session(&gorm.Session{}).Model(&models.Invoice{}).
		Where("status = ?", models.InvoiceStatusOverdue).
		Count(&overdueCount).Error; err != nil {
		respondDBError(c, err, "Failed to build report")
		return
	}

	var transactions []models.Transaction
	if err := db.Session(&gorm.Session{}).
		Select("type", "amount", "occurred_on").
		Where("occurred_on >= ? AND occurred_on < ?", *from, *to).
		Find(&transactions).Error; err != nil {
		respondDBError(c, err, "Failed to build report")
		return
	}
	flow := monthlyCashFlow(transactions, *from, *to)
	income, expense := decimal.Zero, decimal.Zero
	for _, m := range flow {
		income = income.Add(m.Income)
		expense = expense.Add(m.Expense)
	}

	c.JSON(http.StatusOK, gin.H{
		"from":         from.Format(dateLayout),
		"to":           to.AddDate(0, 0, -1).Format(dateLayout),
		"invoiced":     invoiced,
		"collected":    collected,
		"outstanding":  outstanding,
		"overdueCount": overdueCount,
		"income":       income,
		"expense":      expense,
		"net":          income.Sub(expense),
		"cashFlow":     flow,
	})
}

func sumInvoices(q *gorm.DB) (decimal.Decimal, error) {
	var res struct{ Total decimal.Decimal }
	err := q.Model(&models.Invoice{}).Select("COALESCE(SUM(total), 0) AS total").Scan(&res).Error
	return finance.Round2(res.Total), err
}

// monthlyCashFlow buckets transactions by calendar month over [from, to).
// Months without movement are reported with zeros.
func monthlyCashFlow(transactions []models.Transaction, from, to time.Time) []MonthFlow {
	flow := make([]MonthFlow, 0)
	index := make(map[string]int)
	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); m.Before(to); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		index[key] = len(flow)
		flow = append(flow, MonthFlow{Month: key})
	}

	for _, t := range transactions {
		i, ok := index[t.OccurredOn.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		if t.Type == models.TransactionExpense {
			flow[i].Expense = flow[i].Expense.Add(t.Amount)
		} else {
			flow[i].Income = flow[i].Income.Add(t.Amount)
		}
	}
	for i := range flow {
		flow[i].Income = finance.Round2(flow[i].Income)
		flow[i].Expense = finance.Round2(flow[i].Expense)
		flow[i].Net = flow[i].Income.Sub(flow[i].Expense)
	}
	return flow
}
