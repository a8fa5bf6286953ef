package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Organization is the tenant. Every business row carries its ID.
type Organization struct {
	gorm.Model
	Name              string          `json:"name" gorm:"not null"`
	Currency          string          `json:"currency" gorm:"size:3;default:'USD'"`
	TaxRate           decimal.Decimal `json:"taxRate" gorm:"type:numeric(5,2)"`
	InvoicePrefix     string          `json:"invoicePrefix" gorm:"default:'INV'"`
	NextInvoiceNumber int             `json:"nextInvoiceNumber" gorm:"default:1"`
	PaymentTermsDays  int             `json:"paymentTermsDays" gorm:"default:30"`
	Address           string          `json:"address"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	SetupCompleted    bool            `json:"setupCompleted"`
}

// Membership binds a user to an organization with one role.
type Membership struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	OrganizationID uint          `json:"organizationId" gorm:"uniqueIndex:idx_membership_org_user;not null"`
	UserID         uint          `json:"userId" gorm:"uniqueIndex:idx_membership_org_user;not null"`
	Role           string        `json:"role" gorm:"not null"`
	User           *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization   *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
