package routes_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"flowfin/config"
	"flowfin/internal/auth"
	"flowfin/internal/routes"
	"flowfin/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "hook-secret"

type env struct {
	t     *testing.T
	db    *gorm.DB
	r     *gin.Engine
	owner testutil.Member
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	config.App.WebhookSecret = webhookSecret
	config.App.AuthRateLimit = 1000
	config.App.AuthRateBurst = 1000
	return &env{
		t:     t,
		db:    db,
		r:     routes.NewRouter(),
		owner: testutil.Register(t, db, "owner@example.com", "Acme Books"),
	}
}

func (e *env) register(email, orgName string) testutil.Member {
	e.t.Helper()
	return testutil.Register(e.t, e.db, email, orgName)
}

func tokenFor(t *testing.T, userID, orgID uint) string {
	t.Helper()
	token, err := auth.IssueToken(userID, orgID)
	require.NoError(t, err)
	return token
}

func (e *env) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	return testutil.Do(e.t, e.r, method, path, token, body)
}

// mustDo sends the request, requires the status and decodes the body into out.
func (e *env) mustDo(method, path, token string, body interface{}, status int, out interface{}) {
	e.t.Helper()
	rec := e.do(method, path, token, body)
	require.Equalf(e.t, status, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		testutil.Decode(e.t, rec, out)
	}
}

type idResponse struct {
	ID uint `json:"ID"`
}

func (e *env) createCustomer(token, name string) uint {
	e.t.Helper()
	var c idResponse
	e.mustDo(http.MethodPost, "/api/customers", token, map[string]interface{}{"name": name, "taxId": "TX-" + name}, http.StatusCreated, &c)
	return c.ID
}

func (e *env) createAccount(token, name string, opening string) uint {
	e.t.Helper()
	var a idResponse
	e.mustDo(http.MethodPost, "/api/accounts", token, map[string]interface{}{"name": name, "openingBalance": opening}, http.StatusCreated, &a)
	return a.ID
}

type invoiceBody struct {
	ID                uint            `json:"ID"`
	Number            string          `json:"number"`
	Status            string          `json:"status"`
	CustomerID        uint            `json:"customerId"`
	IssueDate         string          `json:"issueDate"`
	DueDate           string          `json:"dueDate"`
	Currency          string          `json:"currency"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	TaxRate           decimal.Decimal `json:"taxRate"`
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	ShippingFee       decimal.Decimal `json:"shippingFee"`
	Total             decimal.Decimal `json:"total"`
	AmountInWords     string          `json:"amountInWords"`
	DeliveryZoneID    *uint           `json:"deliveryZoneId"`
	SentAt            *string         `json:"sentAt"`
	PaidAt            *string         `json:"paidAt"`
	PaidTransactionID *uint           `json:"paidTransactionId"`
	ExternalPaymentID string          `json:"externalPaymentId"`
	Items             []struct {
		Position    int             `json:"position"`
		Description string          `json:"description"`
		LineTotal   decimal.Decimal `json:"lineTotal"`
	} `json:"items"`
}

type transactionBody struct {
	ID         uint            `json:"ID"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category"`
	OccurredOn string          `json:"occurredOn"`
	AccountID  *uint           `json:"accountId"`
	CustomerID *uint           `json:"customerId"`
	InvoiceID  *uint           `json:"invoiceId"`
	GoalID     *uint           `json:"goalId"`
	Reference  string          `json:"reference"`
}

// sampleInvoice is 2 x 100 + 1 x 50.50 with a 10.50 discount, 10% tax and 5 shipping.
func sampleInvoice(customerID uint) map[string]interface{} {
	return map[string]interface{}{
		"customerId":     customerID,
		"issueDate":      "2024-03-01",
		"discountAmount": "10.50",
		"taxRate":        "10",
		"shippingFee":    "5",
		"notes":          "March services",
		"items": []map[string]interface{}{
			{"description": "Consulting", "quantity": "2", "unitPrice": "100"},
			{"description": "Hosting", "quantity": "1", "unitPrice": "50.50"},
		},
	}
}

func (e *env) createInvoice(token string, customerID uint) invoiceBody {
	e.t.Helper()
	var inv invoiceBody
	e.mustDo(http.MethodPost, "/api/invoices", token, sampleInvoice(customerID), http.StatusCreated, &inv)
	return inv
}

func (e *env) sendInvoice(token string, id uint) invoiceBody {
	e.t.Helper()
	var inv invoiceBody
	e.mustDo(http.MethodPost, fmt.Sprintf("/api/invoices/%d/send", id), token, nil, http.StatusOK, &inv)
	return inv
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
