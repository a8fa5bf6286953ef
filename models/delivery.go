package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryZone prices shipping for one service area. Formula, when set,
// replaces the linear base + per-km + per-kg rule.
type DeliveryZone struct {
	gorm.Model
	OrganizationID   uint                `json:"organizationId" gorm:"index;not null"`
	Name             string              `json:"name" gorm:"not null"`
	BaseFee          decimal.Decimal     `json:"baseFee" gorm:"type:numeric(14,2);not null"`
	PerKmRate        decimal.Decimal     `json:"perKmRate" gorm:"type:numeric(14,4);not null"`
	PerKgRate        decimal.Decimal     `json:"perKgRate" gorm:"type:numeric(14,4);not null"`
	MinFee           decimal.Decimal     `json:"minFee" gorm:"type:numeric(14,2);not null"`
	MaxDistanceKm    decimal.NullDecimal `json:"maxDistanceKm" gorm:"type:numeric(10,2)"`
	FreeOverSubtotal decimal.NullDecimal `json:"freeOverSubtotal" gorm:"type:numeric(14,2)"`
	Formula          string              `json:"formula"`
	Active           bool                `json:"active"`
}
