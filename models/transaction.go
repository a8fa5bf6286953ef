package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

const (
	CategorySales   = "Sales"
	CategorySavings = "Savings"
)

const (
	AccountKindBank  = "bank"
	AccountKindCash  = "cash"
	AccountKindCard  = "card"
	AccountKindOther = "other"
)

// Account is a place money sits: a bank account, a till, a card.
type Account struct {
	gorm.Model
	OrganizationID uint            `json:"organizationId" gorm:"index;not null"`
	Name           string          `json:"name" gorm:"not null"`
	Kind           string          `json:"kind" gorm:"not null"`
	Currency       string          `json:"currency" gorm:"size:3"`
	OpeningBalance decimal.Decimal `json:"openingBalance" gorm:"type:numeric(14,2);not null"`
	Archived       bool            `json:"archived"`
}

// Transaction is a single income or expense movement.
type Transaction struct {
	gorm.Model
	OrganizationID uint            `json:"organizationId" gorm:"index;not null"`
	Type           string          `json:"type" gorm:"index;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Category       string          `json:"category" gorm:"index"`
	Description    string          `json:"description"`
	OccurredOn     time.Time       `json:"occurredOn" gorm:"index;not null"`
	AccountID      *uint           `json:"accountId" gorm:"index"`
	CustomerID     *uint           `json:"customerId" gorm:"index"`
	InvoiceID      *uint           `json:"invoiceId" gorm:"uniqueIndex"`
	GoalID         *uint           `json:"goalId" gorm:"index"`
	Reference      string          `json:"reference"`
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ValidAccountKind reports whether kind is a known account kind.
func ValidAccountKind(kind string) bool {
	switch kind {
	case AccountKindBank, AccountKindCash, AccountKindCard, AccountKindOther:
		return true
	}
	return false
}
