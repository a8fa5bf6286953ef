package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusCancelled = "cancelled"
)

// Goal is a savings target.
type Goal struct {
	gorm.Model
	OrganizationID uint            `json:"organizationId" gorm:"index;not null"`
	Name           string          `json:"name" gorm:"not null"`
	TargetAmount   decimal.Decimal `json:"targetAmount" gorm:"type:numeric(14,2);not null"`
	CurrentAmount  decimal.Decimal `json:"currentAmount" gorm:"type:numeric(14,2);not null"`
	Deadline       *time.Time      `json:"deadline"`
	Status         string          `json:"status" gorm:"index;not null"`
	CompletedAt    *time.Time      `json:"completedAt"`
}

// GoalContribution records money put towards a goal.
type GoalContribution struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrganizationID uint            `json:"organizationId" gorm:"index;not null"`
	GoalID         uint            `json:"goalId" gorm:"index;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Note           string          `json:"note"`
	ContributedOn  time.Time       `json:"contributedOn"`
	TransactionID  *uint           `json:"transactionId"`
	CreatedAt      time.Time       `json:"createdAt"`
}
