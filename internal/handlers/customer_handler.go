package handlers

import (
	"net/http"
	"strings"

	"flowfin/config"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerInput struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (in CustomerInput) apply(cust *models.Customer) {
	cust.Name = strings.TrimSpace(in.Name)
	cust.Email = strings.TrimSpace(in.Email)
	cust.Phone = in.Phone
	cust.Company = in.Company
	cust.TaxID = in.TaxID
	cust.Address = in.Address
	cust.Notes = in.Notes
}

// ListCustomersHandler returns a paginated, optionally searched customer list.
func ListCustomersHandler(c *gin.Context) {
	base := func() *gorm.DB {
		q := tenantDB(c).Model(&models.Customer{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", pattern, pattern, pattern)
		}
		return q
	}

	var totalRows int64
	if err := base().Count(&totalRows).Error; err != nil {
		respondDBError(c, err, "Could not count customers")
		return
	}

	customers := make([]models.Customer, 0)
	if err := base().Scopes(Paginate(c)).Order("name asc").Find(&customers).Error; err != nil {
		respondDBError(c, err, "Could not fetch customers")
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, customers, totalRows))
}

// CreateCustomerHandler adds a customer to the active organization.
func CreateCustomerHandler(c *gin.Context) {
	var input CustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := models.Customer{OrganizationID: currentOrgID(c)}
	input.apply(&customer)
	if customer.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer name is required"})
		return
	}
	if err := config.DB.Create(&customer).Error; err != nil {
		respondDBError(c, err, "Failed to create customer")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomerHandler returns one customer.
func GetCustomerHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var customer models.Customer
	if !findInTenant(c, &customer, id, "Customer") {
		return
	}
	c.JSON(http.StatusOK, customer)
}

// UpdateCustomerHandler replaces a customer's details.
func UpdateCustomerHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input CustomerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var customer models.Customer
	if !findInTenant(c, &customer, id, "Customer") {
		return
	}
	input.apply(&customer)
	if customer.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer name is required"})
		return
	}
	if err := config.DB.Save(&customer).Error; err != nil {
		respondDBError(c, err, "Failed to update customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomerHandler deletes a customer that has no invoices.
func DeleteCustomerHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var customer models.Customer
	if !findInTenant(c, &customer, id, "Customer") {
		return
	}

	var invoices int64
	if err := tenantDB(c).Model(&models.Invoice{}).Where("customer_id = ?", customer.ID).Count(&invoices).Error; err != nil {
		respondDBError(c, err, "Failed to check customer invoices")
		return
	}
	if invoices > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Customer has invoices and cannot be deleted"})
		return
	}

	if err := config.DB.Delete(&customer).Error; err != nil {
		respondDBError(c, err, "Failed to delete customer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted"})
}

// GetCustomerStatementHandler lists a customer's invoices with billed, paid and due totals.
func GetCustomerStatementHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var customer models.Customer
	if !findInTenant(c, &customer, id, "Customer") {
		return
	}

	invoices := make([]models.Invoice, 0)
	if err := tenantDB(c).Where("customer_id = ?", customer.ID).
		Order("issue_date asc, id asc").
		Find(&invoices).Error; err != nil {
		respondDBError(c, err, "Failed to load invoices")
		return
	}

	totalInvoiced, totalPaid, balanceDue := decimal.Zero, decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		switch {
		case inv.Status == models.InvoiceStatusPaid:
			totalInvoiced = totalInvoiced.Add(inv.Total)
			totalPaid = totalPaid.Add(inv.Total)
		case inv.Outstanding():
			totalInvoiced = totalInvoiced.Add(inv.Total)
			balanceDue = balanceDue.Add(inv.Total)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"customer":      customer,
		"invoices":      invoices,
		"totalInvoiced": totalInvoiced,
		"totalPaid":     totalPaid,
		"balanceDue":    balanceDue,
	})
}
