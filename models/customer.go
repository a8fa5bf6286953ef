package models

import "gorm.io/gorm"

// Customer is someone an organization invoices.
type Customer struct {
	gorm.Model
	OrganizationID uint   `json:"organizationId" gorm:"index;not null"`
	Name           string `json:"name" gorm:"not null"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Company        string `json:"company"`
	TaxID          string `json:"taxId"`
	Address        string `json:"address"`
	Notes          string `json:"notes"`
}
