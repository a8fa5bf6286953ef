package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"flowfin/config"
	"flowfin/internal/finance"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentWebhookPayload is posted by the payment provider when money arrives.
type PaymentWebhookPayload struct {
	InvoiceNumber  string          `json:"invoiceNumber" binding:"required"`
	OrganizationID uint            `json:"organizationId" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	PaidOn         string          `json:"paidOn"`
	ExternalID     string          `json:"externalId"`
}

// PaymentWebhookHandler settles an invoice from a provider notification. The
// amount must match the invoice total; repeated deliveries are acknowledged
// without booking the payment twice.
func PaymentWebhookHandler(c *gin.Context) {
	var payload PaymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	paidOn := finance.DateOnly(time.Now())
	if payload.PaidOn != "" {
		t, err := parseDate(payload.PaidOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid paidOn date, expected YYYY-MM-DD"})
			return
		}
		paidOn = t
	}
	if payload.ExternalID == "" {
		payload.ExternalID = "wh-" + uuid.NewString()
	}
	log := slog.With("org_id", payload.OrganizationID, "invoice_number", payload.InvoiceNumber, "external_id", payload.ExternalID)

	var invoice models.Invoice
	if err := config.DB.Where("organization_id = ? AND number = ?", payload.OrganizationID, payload.InvoiceNumber).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Webhook for unknown invoice")
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		respondDBError(c, err, "Failed to load invoice")
		return
	}

	if invoice.Status == models.InvoiceStatusPaid {
		log.Info("Webhook for an invoice that is already paid")
		c.JSON(http.StatusOK, gin.H{"message": "Invoice already paid", "invoiceId": invoice.ID, "status": invoice.Status})
		return
	}
	if !finance.Round2(payload.Amount).Equal(invoice.Total) {
		log.Warn("Webhook amount does not match invoice total", "amount", payload.Amount.String(), "total", invoice.Total.String())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Amount does not match the invoice total"})
		return
	}

	var payment models.Transaction
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = settleInvoice(tx, &invoice, nil, paidOn, payload.ExternalID)
		return err
	})
	if errors.Is(err, errInvalidTransition) {
		// a concurrent delivery may have settled it first
		var current models.Invoice
		if rerr := config.DB.Select("id", "status").First(&current, invoice.ID).Error; rerr == nil &&
			current.Status == models.InvoiceStatusPaid {
			log.Info("Webhook lost the race to a duplicate delivery")
			c.JSON(http.StatusOK, gin.H{"message": "Invoice already paid", "invoiceId": current.ID, "status": current.Status})
			return
		}
	}
	if err != nil {
		respondError(c, err, "Failed to settle invoice")
		return
	}

	announcePayment(invoice, payment, "webhook")
	c.JSON(http.StatusOK, gin.H{"message": "Payment recorded", "invoiceId": invoice.ID, "transactionId": payment.ID, "status": invoice.Status})
}
