package handlers

import (
	"net/http"
	"strings"
	"time"

	"flowfin/config"
	"flowfin/internal/finance"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BudgetInput struct {
	Name           string          `json:"name" binding:"required"`
	Category       string          `json:"category" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Period         string          `json:"period" binding:"required"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	AlertThreshold *int            `json:"alertThreshold"`
}

type budgetResponse struct {
	models.Budget
	Status finance.BudgetStatus `json:"status"`
}

func (in BudgetInput) apply(b *models.Budget) error {
	b.Name = strings.TrimSpace(in.Name)
	b.Category = strings.TrimSpace(in.Category)
	if b.Name == "" || b.Category == "" {
		return badInput("name and category are required")
	}
	if !in.Amount.IsPositive() {
		return badInput("amount must be greater than zero")
	}
	b.Amount = finance.Round2(in.Amount)

	start := finance.DateOnly(time.Now())
	if in.StartDate != "" {
		t, err := parseDate(in.StartDate)
		if err != nil {
			return badInput("Invalid startDate, expected YYYY-MM-DD")
		}
		start = t
	}
	end, err := parseOptionalDate(in.EndDate)
	if err != nil {
		return badInput("Invalid endDate, expected YYYY-MM-DD")
	}
	if end != nil && end.Before(start) {
		return badInput("endDate must not be before startDate")
	}
	if _, err := finance.PeriodWindow(in.Period, start, start, end); err != nil {
		return err
	}
	b.Period = in.Period
	b.StartDate = start
	b.EndDate = end

	b.AlertThreshold = 80
	if in.AlertThreshold != nil {
		if *in.AlertThreshold < 1 || *in.AlertThreshold > 100 {
			return badInput("alertThreshold must be between 1 and 100")
		}
		b.AlertThreshold = *in.AlertThreshold
	}
	return nil
}

// evaluateBudget computes the budget state for the window containing ref.
func evaluateBudget(db *gorm.DB, b models.Budget, ref time.Time) (finance.BudgetStatus, error) {
	w, err := finance.PeriodWindow(b.Period, ref, b.StartDate, b.EndDate)
	if err != nil {
		return finance.BudgetStatus{}, err
	}
	var spent struct{ Total decimal.Decimal }
	if err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("organization_id = ? AND type = ? AND category = ?", b.OrganizationID, models.TransactionExpense, b.Category).
		Where("occurred_on >= ? AND occurred_on < ?", w.Start, w.End).
		Scan(&spent).Error; err != nil {
		return finance.BudgetStatus{}, err
	}
	return finance.EvaluateBudget(w, b.Amount, spent.Total, b.AlertThreshold), nil
}

func withStatuses(budgets []models.Budget, ref time.Time) ([]budgetResponse, error) {
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		st, err := evaluateBudget(config.DB, b, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, budgetResponse{Budget: b, Status: st})
	}
	return out, nil
}

func referenceDate(c *gin.Context) (time.Time, bool) {
	ref := finance.DateOnly(time.Now())
	if s := c.Query("date"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return time.Time{}, false
		}
		ref = t
	}
	return ref, true
}

// ListBudgetsHandler lists budgets with their current state.
func ListBudgetsHandler(c *gin.Context) {
	var budgets []models.Budget
	if err := tenantDB(c).Order("name asc").Find(&budgets).Error; err != nil {
		respondDBError(c, err, "Could not fetch budgets")
		return
	}
	out, err := withStatuses(budgets, finance.DateOnly(time.Now()))
	if err != nil {
		respondDBError(c, err, "Could not evaluate budgets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// GetBudgetsStatusHandler evaluates every budget for ?date= (default today).
func GetBudgetsStatusHandler(c *gin.Context) {
	ref, ok := referenceDate(c)
	if !ok {
		return
	}
	var budgets []models.Budget
	if err := tenantDB(c).Order("name asc").Find(&budgets).Error; err != nil {
		respondDBError(c, err, "Could not fetch budgets")
		return
	}
	out, err := withStatuses(budgets, ref)
	if err != nil {
		respondDBError(c, err, "Could not evaluate budgets")
		return
	}

	summary := map[string]int{finance.BudgetOK: 0, finance.BudgetWarning: 0, finance.BudgetExceeded: 0}
	for _, b := range out {
		summary[b.Status.Status]++
	}
	c.JSON(http.StatusOK, gin.H{"date": ref.Format(dateLayout), "data": out, "summary": summary})
}

// CreateBudgetHandler adds a budget.
func CreateBudgetHandler(c *gin.Context) {
	var input BudgetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	budget := models.Budget{OrganizationID: currentOrgID(c)}
	if err := input.apply(&budget); err != nil {
		respondError(c, err, "Invalid budget")
		return
	}
	if err := config.DB.Create(&budget).Error; err != nil {
		respondDBError(c, err, "Failed to create budget")
		return
	}
	st, err := evaluateBudget(config.DB, budget, finance.DateOnly(time.Now()))
	if err != nil {
		respondDBError(c, err, "Could not evaluate budget")
		return
	}
	c.JSON(http.StatusCreated, budgetResponse{Budget: budget, Status: st})
}

// GetBudgetHandler returns a budget with its state for ?date= (default today).
func GetBudgetHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ref, ok := referenceDate(c)
	if !ok {
		return
	}
	var budget models.Budget
	if !findInTenant(c, &budget, id, "Budget") {
		return
	}
	st, err := evaluateBudget(config.DB, budget, ref)
	if err != nil {
		respondDBError(c, err, "Could not evaluate budget")
		return
	}
	c.JSON(http.StatusOK, budgetResponse{Budget: budget, Status: st})
}

// UpdateBudgetHandler replaces a budget definition.
func UpdateBudgetHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input BudgetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var budget models.Budget
	if !findInTenant(c, &budget, id, "Budget") {
		return
	}
	if err := input.apply(&budget); err != nil {
		respondError(c, err, "Invalid budget")
		return
	}
	if err := config.DB.Save(&budget).Error; err != nil {
		respondDBError(c, err, "Failed to update budget")
		return
	}
	st, err := evaluateBudget(config.DB, budget, finance.DateOnly(time.Now()))
	if err != nil {
		respondDBError(c, err, "Could not evaluate budget")
		return
	}
	c.JSON(http.StatusOK, budgetResponse{Budget: budget, Status: st})
}

// DeleteBudgetHandler removes a budget.
func DeleteBudgetHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var budget models.Budget
	if !findInTenant(c, &budget, id, "Budget") {
		return
	}
	if err := config.DB.Delete(&budget).Error; err != nil {
		respondDBError(c, err, "Failed to delete budget")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}
