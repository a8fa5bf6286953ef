package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flowfin/config"
	"flowfin/internal/finance"
	"flowfin/internal/metrics"
	"flowfin/internal/realtime"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Request payloads ---

type InvoiceItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type DeliveryInput struct {
	ZoneID     uint            `json:"zoneId" binding:"required"`
	DistanceKm decimal.Decimal `json:"distanceKm"`
	WeightKg   decimal.Decimal `json:"weightKg"`
}

type InvoiceInput struct {
	CustomerID     uint               `json:"customerId" binding:"required"`
	IssueDate      string             `json:"issueDate"`
	DueDate        string             `json:"dueDate"`
	Items          []InvoiceItemInput `json:"items"`
	DiscountAmount decimal.Decimal    `json:"discountAmount"`
	TaxRate        *decimal.Decimal   `json:"taxRate"`
	ShippingFee    decimal.Decimal    `json:"shippingFee"`
	Notes          string             `json:"notes"`
	Delivery       *DeliveryInput     `json:"delivery"`
}

type MarkPaidInput struct {
	AccountID *uint  `json:"accountId"`
	PaidOn    string `json:"paidOn"`
}

// --- Handlers ---

// ListInvoicesHandler returns the organization's invoices, newest first.
func ListInvoicesHandler(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !validInvoiceStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown invoice status"})
		return
	}
	customerID, ok := uintQuery(c, "customer_id")
	if !ok {
		return
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	base := func() *gorm.DB {
		q := tenantDB(c).Model(&models.Invoice{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if customerID != 0 {
			q = q.Where("customer_id = ?", customerID)
		}
		if from != nil {
			q = q.Where("issue_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("issue_date < ?", *to)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(number) LIKE ? OR LOWER(notes) LIKE ?", pattern, pattern)
		}
		return q
	}

	var totalRows int64
	if err := base().Count(&totalRows).Error; err != nil {
		respondDBError(c, err, "Could not count invoices")
		return
	}

	invoices := make([]models.Invoice, 0)
	if err := base().Preload("Customer").
		Scopes(Paginate(c)).
		Order("issue_date desc, id desc").
		Find(&invoices).Error; err != nil {
		respondDBError(c, err, "Could not fetch invoices")
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, invoices, totalRows))
}

// CreateInvoiceHandler creates a draft invoice with the next number of the organization.
func CreateInvoiceHandler(c *gin.Context) {
	var input InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orgID := currentOrgID(c)
	invoice := models.Invoice{OrganizationID: orgID, Status: models.InvoiceStatusDraft}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.First(&org, orgID).Error; err != nil {
			return err
		}
		items, err := buildInvoice(tx, org, input, &invoice)
		if err != nil {
			return err
		}

		// Bumping the counter first takes the row lock for the rest of the transaction.
		if err := tx.Model(&models.Organization{}).Where("id = ?", orgID).
			UpdateColumn("next_invoice_number", gorm.Expr("next_invoice_number + ?", 1)).Error; err != nil {
			return err
		}
		var next int
		if err := tx.Model(&models.Organization{}).Where("id = ?", orgID).
			Select("next_invoice_number").Scan(&next).Error; err != nil {
			return err
		}
		invoice.Number = fmt.Sprintf("%s-%04d", org.InvoicePrefix, next-1)

		if err := tx.Omit(clause.Associations).Create(&invoice).Error; err != nil {
			return err
		}
		return saveItems(tx, &invoice, items)
	})
	if err != nil {
		respondError(c, err, "Failed to create invoice")
		return
	}

	slog.Info("Invoice created", "invoice_id", invoice.ID, "number", invoice.Number, "org_id", orgID)
	realtime.GlobalHub.Publish(orgID, realtime.EventInvoiceCreated, invoice)
	c.JSON(http.StatusCreated, invoice)
}

// GetInvoiceHandler returns one invoice with its items and customer.
func GetInvoiceHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var invoice models.Invoice
	if !loadInvoice(c, &invoice, id) {
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// UpdateInvoiceHandler recomputes an editable invoice and replaces its items.
func UpdateInvoiceHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var invoice models.Invoice
	if !findInTenant(c, &invoice, id, "Invoice") {
		return
	}
	if !invoice.Editable() {
		c.JSON(http.StatusConflict, gin.H{"error": errNotEditable.Error()})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.First(&org, invoice.OrganizationID).Error; err != nil {
			return err
		}
		items, err := buildInvoice(tx, org, input, &invoice)
		if err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&invoice).Error; err != nil {
			return err
		}
		return saveItems(tx, &invoice, items)
	})
	if err != nil {
		respondError(c, err, "Failed to update invoice")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoiceHandler removes a draft invoice.
func DeleteInvoiceHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var invoice models.Invoice
	if !findInTenant(c, &invoice, id, "Invoice") {
		return
	}
	if invoice.Status != models.InvoiceStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft invoices can be deleted"})
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
	if err != nil {
		respondDBError(c, err, "Failed to delete invoice")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// SendInvoiceHandler moves a draft invoice to sent.
func SendInvoiceHandler(c *gin.Context) {
	now := time.Now().UTC()
	changeInvoiceStatus(c, models.InvoiceStatusSent, realtime.EventInvoiceSent, func(inv *models.Invoice) {
		inv.SentAt = &now
	})
}

// VoidInvoiceHandler cancels an unpaid invoice.
func VoidInvoiceHandler(c *gin.Context) {
	changeInvoiceStatus(c, models.InvoiceStatusVoid, realtime.EventInvoiceVoided, nil)
}

// MarkAsPaidHandler records the payment of an invoice. Paying a paid invoice again is a no-op.
func MarkAsPaidHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input MarkPaidInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	paidOn := finance.DateOnly(time.Now())
	if input.PaidOn != "" {
		t, err := parseDate(input.PaidOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid paidOn date, expected YYYY-MM-DD"})
			return
		}
		paidOn = t
	}

	var invoice models.Invoice
	if !findInTenant(c, &invoice, id, "Invoice") {
		return
	}
	if invoice.Status == models.InvoiceStatusPaid {
		slog.Info("Invoice already paid, skipping", "invoice_id", invoice.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Invoice already marked as paid", "invoice": invoice})
		return
	}
	if input.AccountID != nil {
		var account models.Account
		if err := tenantDB(c).Where("archived = ?", false).First(&account, *input.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown or archived account"})
				return
			}
			respondDBError(c, err, "Failed to load account")
			return
		}
	}

	var payment models.Transaction
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = settleInvoice(tx, &invoice, input.AccountID, paidOn, "")
		return err
	})
	if err != nil {
		respondError(c, err, "Failed to mark invoice as paid")
		return
	}

	announcePayment(invoice, payment, "manual")
	c.JSON(http.StatusOK, gin.H{"message": "Invoice marked as paid", "invoice": invoice, "transaction": payment})
}

// GetInvoiceCountsHandler returns the number of invoices per status.
func GetInvoiceCountsHandler(c *gin.Context) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := tenantDB(c).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		respondDBError(c, err, "Failed to count invoices")
		return
	}

	counts := make(map[string]int64, len(models.InvoiceStatuses))
	for _, s := range models.InvoiceStatuses {
		counts[s] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	c.JSON(http.StatusOK, counts)
}

// --- Helpers ---

func validInvoiceStatus(s string) bool {
	for _, st := range models.InvoiceStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func loadInvoice(c *gin.Context, invoice *models.Invoice, id uint) bool {
	err := tenantDB(c).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Customer").
		First(invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return false
		}
		respondDBError(c, err, "Failed to load invoice")
		return false
	}
	return true
}

// buildInvoice validates the input against the organization and fills the
// invoice dates and totals. The returned items are not yet saved.
func buildInvoice(tx *gorm.DB, org models.Organization, input InvoiceInput, invoice *models.Invoice) ([]models.InvoiceItem, error) {
	var customer models.Customer
	if err := tx.Where("organization_id = ?", org.ID).First(&customer, input.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badInput("Unknown customer")
		}
		return nil, err
	}

	issue := finance.DateOnly(time.Now())
	if input.IssueDate != "" {
		t, err := parseDate(input.IssueDate)
		if err != nil {
			return nil, badInput("Invalid issueDate, expected YYYY-MM-DD")
		}
		issue = t
	}
	due := issue.AddDate(0, 0, org.PaymentTermsDays)
	if input.DueDate != "" {
		t, err := parseDate(input.DueDate)
		if err != nil {
			return nil, badInput("Invalid dueDate, expected YYYY-MM-DD")
		}
		due = t
	}
	if due.Before(issue) {
		return nil, badInput("dueDate must not be before issueDate")
	}

	lines := make([]finance.Line, 0, len(input.Items))
	for _, it := range input.Items {
		lines = append(lines, finance.Line{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	taxRate := org.TaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}

	// The quote needs the subtotal, so totals are computed once without shipping first.
	preview, err := finance.ComputeTotals(lines, input.DiscountAmount, taxRate, decimal.Zero)
	if err != nil {
		return nil, err
	}
	shipping := input.ShippingFee
	invoice.DeliveryZoneID = nil
	if input.Delivery != nil {
		var zone models.DeliveryZone
		if err := tx.Where("organization_id = ? AND active = ?", org.ID, true).First(&zone, input.Delivery.ZoneID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, badInput("Unknown or inactive delivery zone")
			}
			return nil, err
		}
		quote, err := finance.QuoteDelivery(zoneRate(zone), finance.QuoteRequest{
			DistanceKm: input.Delivery.DistanceKm,
			WeightKg:   input.Delivery.WeightKg,
			Subtotal:   preview.Subtotal,
		})
		if err != nil {
			return nil, err
		}
		shipping = quote.Fee
		invoice.DeliveryZoneID = &zone.ID
	}

	totals, err := finance.ComputeTotals(lines, input.DiscountAmount, taxRate, shipping)
	if err != nil {
		return nil, err
	}

	invoice.CustomerID = customer.ID
	invoice.IssueDate = issue
	invoice.DueDate = due
	invoice.Currency = org.Currency
	invoice.Subtotal = totals.Subtotal
	invoice.DiscountAmount = totals.Discount
	invoice.TaxRate = totals.TaxRate
	invoice.TaxAmount = totals.Tax
	invoice.ShippingFee = totals.Shipping
	invoice.Total = totals.Total
	invoice.AmountInWords = finance.AmountInWords(totals.Total, org.Currency)
	invoice.Notes = input.Notes

	items := make([]models.InvoiceItem, len(lines))
	for i, l := range lines {
		items[i] = models.InvoiceItem{
			Position:    i + 1,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   finance.Round2(l.UnitPrice),
			LineTotal:   totals.LineTotals[i],
		}
	}
	return items, nil
}

func saveItems(tx *gorm.DB, invoice *models.Invoice, items []models.InvoiceItem) error {
	for i := range items {
		items[i].InvoiceID = invoice.ID
	}
	if err := tx.Create(&items).Error; err != nil {
		return err
	}
	invoice.Items = items
	return nil
}

// changeInvoiceStatus applies a plain status transition that needs no side records.
func changeInvoiceStatus(c *gin.Context, to, event string, mutate func(*models.Invoice)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var invoice models.Invoice
	if !findInTenant(c, &invoice, id, "Invoice") {
		return
	}
	if !models.CanTransition(invoice.Status, to) {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cannot move invoice from %s to %s", invoice.Status, to)})
		return
	}

	from := invoice.Status
	invoice.Status = to
	if mutate != nil {
		mutate(&invoice)
	}
	res := config.DB.Model(&invoice).Omit(clause.Associations).
		Where("status = ?", from).
		Select("status", "sent_at").
		Updates(&invoice)
	if res.Error != nil {
		respondDBError(c, res.Error, "Failed to update invoice status")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Invoice was changed concurrently"})
		return
	}

	slog.Info("Invoice status changed", "invoice_id", invoice.ID, "from", from, "to", to)
	realtime.GlobalHub.Publish(invoice.OrganizationID, event, invoice)
	c.JSON(http.StatusOK, invoice)
}

// settleInvoice books the payment of an outstanding invoice inside tx: an
// income transaction linked to the invoice and the switch to paid. The status
// update is conditional so two concurrent settlements cannot both succeed.
func settleInvoice(tx *gorm.DB, invoice *models.Invoice, accountID *uint, paidOn time.Time, reference string) (models.Transaction, error) {
	if !models.CanTransition(invoice.Status, models.InvoiceStatusPaid) {
		return models.Transaction{}, errInvalidTransition
	}

	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND status IN ?", invoice.ID, []string{models.InvoiceStatusSent, models.InvoiceStatusOverdue}).
		Update("status", models.InvoiceStatusPaid)
	if res.Error != nil {
		return models.Transaction{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Transaction{}, errInvalidTransition
	}

	invoiceID, customerID := invoice.ID, invoice.CustomerID
	payment := models.Transaction{
		OrganizationID: invoice.OrganizationID,
		Type:           models.TransactionIncome,
		Amount:         invoice.Total,
		Category:       models.CategorySales,
		Description:    "Payment for invoice " + invoice.Number,
		OccurredOn:     paidOn,
		AccountID:      accountID,
		CustomerID:     &customerID,
		InvoiceID:      &invoiceID,
		Reference:      reference,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return models.Transaction{}, err
	}

	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = &paidOn
	invoice.PaidTransactionID = &payment.ID
	invoice.ExternalPaymentID = reference
	if err := tx.Model(invoice).Omit(clause.Associations).
		Select("paid_at", "paid_transaction_id", "external_payment_id").
		Updates(invoice).Error; err != nil {
		return models.Transaction{}, err
	}
	return payment, nil
}

func announcePayment(invoice models.Invoice, payment models.Transaction, source string) {
	metrics.InvoicePaid(source)
	slog.Info("Invoice paid", "invoice_id", invoice.ID, "transaction_id", payment.ID, "source", source)
	realtime.GlobalHub.Publish(invoice.OrganizationID, realtime.EventInvoicePaid, invoice)
	realtime.GlobalHub.Publish(invoice.OrganizationID, realtime.EventTransactionCreated, payment)
}

func zoneRate(z models.DeliveryZone) finance.Rate {
	return finance.Rate{
		BaseFee:          z.BaseFee,
		PerKmRate:        z.PerKmRate,
		PerKgRate:        z.PerKgRate,
		MinFee:           z.MinFee,
		MaxDistanceKm:    z.MaxDistanceKm,
		FreeOverSubtotal: z.FreeOverSubtotal,
		Formula:          z.Formula,
	}
}
