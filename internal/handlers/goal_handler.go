package handlers

import (
	"log/slog"
	"net/http"
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

type GoalInput struct {
	Name         string          `json:"name" binding:"required"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
	Deadline     string          `json:"deadline"`
	Status       string          `json:"status"`
}

type ContributionInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
	Date      string          `json:"date"`
	AccountID *uint           `json:"accountId"`
}

type goalResponse struct {
	models.Goal
	Progress finance.GoalProgress `json:"progress"`
}

func toGoalResponse(g models.Goal) goalResponse {
	return goalResponse{Goal: g, Progress: finance.EvaluateGoal(g.TargetAmount, g.CurrentAmount, g.Deadline, time.Now())}
}

// ListGoalsHandler lists goals, optionally filtered by ?status=.
func ListGoalsHandler(c *gin.Context) {
	q := tenantDB(c).Order("created_at desc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var goals []models.Goal
	if err := q.Find(&goals).Error; err != nil {
		respondDBError(c, err, "Could not fetch goals")
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// CreateGoalHandler starts a new savings goal.
func CreateGoalHandler(c *gin.Context) {
	var input GoalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal := models.Goal{OrganizationID: currentOrgID(c), Status: models.GoalStatusActive}
	if err := applyGoalInput(input, &goal); err != nil {
		respondError(c, err, "Invalid goal")
		return
	}
	if err := config.DB.Create(&goal).Error; err != nil {
		respondDBError(c, err, "Failed to create goal")
		return
	}
	c.JSON(http.StatusCreated, toGoalResponse(goal))
}

// GetGoalHandler returns one goal with its progress.
func GetGoalHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var goal models.Goal
	if !findInTenant(c, &goal, id, "Goal") {
		return
	}
	c.JSON(http.StatusOK, toGoalResponse(goal))
}

// UpdateGoalHandler edits a goal. Status may be switched between active and
// cancelled; a raised target reopens nothing, a lowered one can complete the goal.
func UpdateGoalHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input GoalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var goal models.Goal
	if !findInTenant(c, &goal, id, "Goal") {
		return
	}
	if err := applyGoalInput(input, &goal); err != nil {
		respondError(c, err, "Invalid goal")
		return
	}
	completed := completeIfReached(&goal, time.Now().UTC())
	if err := config.DB.Save(&goal).Error; err != nil {
		respondDBError(c, err, "Failed to update goal")
		return
	}
	if completed {
		realtime.GlobalHub.Publish(goal.OrganizationID, realtime.EventGoalCompleted, goal)
	}
	c.JSON(http.StatusOK, toGoalResponse(goal))
}

// DeleteGoalHandler removes a goal and its contributions. Savings transactions
// stay in the ledger as ordinary expenses.
func DeleteGoalHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var goal models.Goal
	if !findInTenant(c, &goal, id, "Goal") {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("goal_id = ?", goal.ID).
			Update("goal_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("goal_id = ?", goal.ID).Delete(&models.GoalContribution{}).Error; err != nil {
			return err
		}
		return tx.Delete(&goal).Error
	})
	if err != nil {
		respondDBError(c, err, "Failed to delete goal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
}

// AddContributionHandler puts money towards an active goal. With accountId the
// money also leaves that account as a Savings expense.
func AddContributionHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input ContributionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be greater than zero"})
		return
	}
	on := finance.DateOnly(time.Now())
	if input.Date != "" {
		t, err := parseDate(input.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		on = t
	}

	var goal models.Goal
	if !findInTenant(c, &goal, id, "Goal") {
		return
	}

	var (
		contribution models.GoalContribution
		savings      *models.Transaction
		completed    bool
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&goal, goal.ID).Error; err != nil {
			return err
		}
		if goal.Status != models.GoalStatusActive {
			return errGoalNotActive
		}
		amount := finance.Round2(input.Amount)

		contribution = models.GoalContribution{
			OrganizationID: goal.OrganizationID,
			GoalID:         goal.ID,
			Amount:         amount,
			Note:           strings.TrimSpace(input.Note),
			ContributedOn:  on,
		}
		if input.AccountID != nil {
			txnInput := TransactionInput{
				Type:        models.TransactionExpense,
				Amount:      amount,
				Category:    models.CategorySavings,
				Description: "Contribution to " + goal.Name,
				OccurredOn:  on.Format(dateLayout),
				AccountID:   input.AccountID,
			}
			txn := models.Transaction{OrganizationID: goal.OrganizationID}
			if err := txnInput.apply(tx, goal.OrganizationID, &txn); err != nil {
				return err
			}
			goalID := goal.ID
			txn.GoalID = &goalID
			if err := tx.Create(&txn).Error; err != nil {
				return err
			}
			savings = &txn
			contribution.TransactionID = &txn.ID
		}
		if err := tx.Create(&contribution).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).
			UpdateColumn("current_amount", gorm.Expr("current_amount + ?", amount)).Error; err != nil {
			return err
		}
		if err := tx.First(&goal, goal.ID).Error; err != nil {
			return err
		}
		if completed = completeIfReached(&goal, time.Now().UTC()); completed {
			return tx.Model(&goal).Select("status", "completed_at").Updates(&goal).Error
		}
		return nil
	})
	if err != nil {
		respondError(c, err, "Failed to add contribution")
		return
	}

	if savings != nil {
		realtime.GlobalHub.Publish(goal.OrganizationID, realtime.EventTransactionCreated, savings)
	}
	if completed {
		slog.Info("Goal completed", "goal_id", goal.ID, "org_id", goal.OrganizationID)
		realtime.GlobalHub.Publish(goal.OrganizationID, realtime.EventGoalCompleted, goal)
	}
	c.JSON(http.StatusCreated, gin.H{"contribution": contribution, "goal": toGoalResponse(goal), "transaction": savings})
}

// ListContributionsHandler lists a goal's contributions, newest first.
func ListContributionsHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var goal models.Goal
	if !findInTenant(c, &goal, id, "Goal") {
		return
	}
	contributions := make([]models.GoalContribution, 0)
	if err := config.DB.Where("goal_id = ?", goal.ID).
		Order("contributed_on desc, id desc").
		Find(&contributions).Error; err != nil {
		respondDBError(c, err, "Could not fetch contributions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contributions})
}

func applyGoalInput(in GoalInput, g *models.Goal) error {
	g.Name = strings.TrimSpace(in.Name)
	if g.Name == "" {
		return badInput("Goal name is required")
	}
	if !in.TargetAmount.IsPositive() {
		return badInput("targetAmount must be greater than zero")
	}
	g.TargetAmount = finance.Round2(in.TargetAmount)
	deadline, err := parseOptionalDate(in.Deadline)
	if err != nil {
		return badInput("Invalid deadline, expected YYYY-MM-DD")
	}
	g.Deadline = deadline

	switch in.Status {
	case "":
	case models.GoalStatusActive, models.GoalStatusCancelled:
		if g.Status == models.GoalStatusCompleted && in.Status != models.GoalStatusCompleted {
			return badInput("A completed goal cannot change status")
		}
		g.Status = in.Status
	default:
		return badInput("status must be active or cancelled")
	}
	return nil
}

// completeIfReached marks an active goal completed once its target is met.
func completeIfReached(g *models.Goal, now time.Time) bool {
	if g.Status != models.GoalStatusActive || g.CurrentAmount.LessThan(g.TargetAmount) {
		return false
	}
	g.Status = models.GoalStatusCompleted
	g.CompletedAt = &now
	return true
}
