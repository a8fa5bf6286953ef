package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodYearly    = "yearly"
	PeriodCustom    = "custom"
)

// Budget caps expense spending in one category over a recurring or fixed window.
type Budget struct {
	gorm.Model
	OrganizationID uint            `json:"organizationId" gorm:"index;not null"`
	Name           string          `json:"name" gorm:"not null"`
	Category       string          `json:"category" gorm:"index;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Period         string          `json:"period" gorm:"not null"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate"`
	AlertThreshold int             `json:"alertThreshold"`
}
