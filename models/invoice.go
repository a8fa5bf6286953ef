package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusOverdue = "overdue"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
)

// InvoiceStatuses lists every status in lifecycle order.
var InvoiceStatuses = []string{
	InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue, InvoiceStatusPaid, InvoiceStatusVoid,
}

// invoiceTransitions maps a status to the statuses it may move to.
var invoiceTransitions = map[string][]string{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusVoid},
	InvoiceStatusSent:    {InvoiceStatusOverdue, InvoiceStatusPaid, InvoiceStatusVoid},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusVoid},
}

// Invoice is a bill issued to a customer.
type Invoice struct {
	gorm.Model
	OrganizationID    uint            `json:"organizationId" gorm:"uniqueIndex:idx_invoice_org_number;not null"`
	Number            string          `json:"number" gorm:"uniqueIndex:idx_invoice_org_number;not null"`
	CustomerID        uint            `json:"customerId" gorm:"index;not null"`
	Customer          *Customer       `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Status            string          `json:"status" gorm:"index;not null"`
	IssueDate         time.Time       `json:"issueDate"`
	DueDate           time.Time       `json:"dueDate" gorm:"index"`
	Currency          string          `json:"currency" gorm:"size:3"`
	Items             []InvoiceItem   `json:"items" gorm:"foreignKey:InvoiceID"`
	Subtotal          decimal.Decimal `json:"subtotal" gorm:"type:numeric(14,2);not null"`
	DiscountAmount    decimal.Decimal `json:"discountAmount" gorm:"type:numeric(14,2);not null"`
	TaxRate           decimal.Decimal `json:"taxRate" gorm:"type:numeric(5,2);not null"`
	TaxAmount         decimal.Decimal `json:"taxAmount" gorm:"type:numeric(14,2);not null"`
	ShippingFee       decimal.Decimal `json:"shippingFee" gorm:"type:numeric(14,2);not null"`
	Total             decimal.Decimal `json:"total" gorm:"type:numeric(14,2);not null"`
	AmountInWords     string          `json:"amountInWords"`
	DeliveryZoneID    *uint           `json:"deliveryZoneId"`
	Notes             string          `json:"notes"`
	SentAt            *time.Time      `json:"sentAt"`
	PaidAt            *time.Time      `json:"paidAt"`
	PaidTransactionID *uint           `json:"paidTransactionId"`
	ExternalPaymentID string          `json:"externalPaymentId"`
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	InvoiceID   uint            `json:"invoiceId" gorm:"index;not null"`
	Position    int             `json:"position"`
	Description string          `json:"description" gorm:"not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:numeric(12,3);not null"`
	UnitPrice   decimal.Decimal `json:"unitPrice" gorm:"type:numeric(14,2);not null"`
	LineTotal   decimal.Decimal `json:"lineTotal" gorm:"type:numeric(14,2);not null"`
}

// CanTransition reports whether the invoice may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Editable reports whether the invoice content may still change.
func (inv Invoice) Editable() bool {
	return inv.Status == InvoiceStatusDraft || inv.Status == InvoiceStatusSent
}

// Outstanding reports whether the invoice is awaiting payment.
func (inv Invoice) Outstanding() bool {
	return inv.Status == InvoiceStatusSent || inv.Status == InvoiceStatusOverdue
}
