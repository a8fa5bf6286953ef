package handlers

import (
	"net/http"
	"strings"

	"flowfin/config"
	"flowfin/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AccountInput struct {
	Name           string          `json:"name" binding:"required"`
	Kind           string          `json:"kind"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Archived       bool            `json:"archived"`
}

type accountResponse struct {
	models.Account
	Balance decimal.Decimal `json:"balance"`
}

func (in AccountInput) apply(acc *models.Account, defaultCurrency string) error {
	acc.Name = strings.TrimSpace(in.Name)
	if acc.Name == "" {
		return badInput("Account name is required")
	}
	acc.Kind = in.Kind
	if acc.Kind == "" {
		acc.Kind = models.AccountKindBank
	}
	if !models.ValidAccountKind(acc.Kind) {
		return badInput("Unknown account kind")
	}
	acc.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if acc.Currency == "" {
		acc.Currency = defaultCurrency
	}
	if len(acc.Currency) != 3 {
		return badInput("Currency must be a 3-letter code")
	}
	acc.OpeningBalance = in.OpeningBalance.Round(2)
	acc.Archived = in.Archived
	return nil
}

// accountBalances sums the signed transaction amounts per account.
func accountBalances(orgID uint, accountIDs []uint) (map[uint]decimal.Decimal, error) {
	type row struct {
		AccountID uint
		Type      string
		Total     decimal.Decimal
	}
	var rows []row
	if len(accountIDs) > 0 {
		if err := config.DB.Model(&models.Transaction{}).
			Select("account_id, type, SUM(amount) AS total").
			Where("organization_id = ? AND account_id IN ?", orgID, accountIDs).
			Group("account_id, type").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
	}

	out := make(map[uint]decimal.Decimal, len(accountIDs))
	for _, r := range rows {
		if r.Type == models.TransactionExpense {
			out[r.AccountID] = out[r.AccountID].Sub(r.Total)
		} else {
			out[r.AccountID] = out[r.AccountID].Add(r.Total)
		}
	}
	return out, nil
}

func withBalances(orgID uint, accounts []models.Account) ([]accountResponse, error) {
	ids := make([]uint, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	movements, err := accountBalances(orgID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = accountResponse{Account: a, Balance: a.OpeningBalance.Add(movements[a.ID]).Round(2)}
	}
	return out, nil
}

// ListAccountsHandler lists accounts with their current balance. Archived
// accounts are included only with ?archived=true.
func ListAccountsHandler(c *gin.Context) {
	q := tenantDB(c).Order("name asc")
	if c.Query("archived") != "true" {
		q = q.Where("archived = ?", false)
	}
	var accounts []models.Account
	if err := q.Find(&accounts).Error; err != nil {
		respondDBError(c, err, "Could not fetch accounts")
		return
	}
	out, err := withBalances(currentOrgID(c), accounts)
	if err != nil {
		respondDBError(c, err, "Could not compute balances")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// CreateAccountHandler opens an account in the active organization.
func CreateAccountHandler(c *gin.Context) {
	var input AccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var org models.Organization
	if err := config.DB.First(&org, currentOrgID(c)).Error; err != nil {
		respondDBError(c, err, "Failed to load organization")
		return
	}

	account := models.Account{OrganizationID: org.ID}
	if err := input.apply(&account, org.Currency); err != nil {
		respondError(c, err, "Invalid account")
		return
	}
	if err := config.DB.Create(&account).Error; err != nil {
		respondDBError(c, err, "Failed to create account")
		return
	}
	c.JSON(http.StatusCreated, accountResponse{Account: account, Balance: account.OpeningBalance})
}

// GetAccountHandler returns one account with its balance.
func GetAccountHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var account models.Account
	if !findInTenant(c, &account, id, "Account") {
		return
	}
	out, err := withBalances(account.OrganizationID, []models.Account{account})
	if err != nil {
		respondDBError(c, err, "Could not compute balance")
		return
	}
	c.JSON(http.StatusOK, out[0])
}

// UpdateAccountHandler edits an account, including archiving it.
func UpdateAccountHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input AccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var account models.Account
	if !findInTenant(c, &account, id, "Account") {
		return
	}
	if err := input.apply(&account, account.Currency); err != nil {
		respondError(c, err, "Invalid account")
		return
	}
	if err := config.DB.Save(&account).Error; err != nil {
		respondDBError(c, err, "Failed to update account")
		return
	}
	out, err := withBalances(account.OrganizationID, []models.Account{account})
	if err != nil {
		respondDBError(c, err, "Could not compute balance")
		return
	}
	c.JSON(http.StatusOK, out[0])
}

// DeleteAccountHandler deletes an account without transactions; used accounts should be archived.
func DeleteAccountHandler(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var account models.Account
	if !findInTenant(c, &account, id, "Account") {
		return
	}
	var used int64
	if err := tenantDB(c).Model(&models.Transaction{}).Where("account_id = ?", account.ID).Count(&used).Error; err != nil {
		respondDBError(c, err, "Failed to check account usage")
		return
	}
	if used > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Account has transactions; archive it instead"})
		return
	}
	if err := config.DB.Delete(&account).Error; err != nil {
		respondDBError(c, err, "Failed to delete account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
