package routes_test

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"flowfin/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type accountBody struct {
	ID       uint            `json:"ID"`
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Currency string          `json:"currency"`
	Archived bool            `json:"archived"`
	Balance  decimal.Decimal `json:"balance"`
}

func (e *env) createTransaction(token string, body map[string]interface{}) transactionBody {
	e.t.Helper()
	var txn transactionBody
	e.mustDo(http.MethodPost, "/api/transactions", token, body, http.StatusCreated, &txn)
	return txn
}

func TestAccountsTrackBalances(t *testing.T) {
	e := newEnv(t)
	token := e.owner.Token

	var acc accountBody
	e.mustDo(http.MethodPost, "/api/accounts", token, map[string]interface{}{
		"name": "Checking", "openingBalance": "1000",
	}, http.StatusCreated, &acc)
	assert.Equal(t, models.AccountKindBank, acc.Kind)
	assert.Equal(t, "USD", acc.Currency)
	assert.True(t, acc.Balance.Equal(dec("1000")))

	rec := e.do(http.MethodPost, "/api/accounts", token, map[string]interface{}{"name": "Vault", "kind": "mattress"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	e.createTransaction(token, map[string]interface{}{"type": "income", "amount": "250.75", "category": "Consulting", "accountId": acc.ID})
	e.createTransaction(token, map[string]interface{}{"type": "expense", "amount": "100.25", "category": "Rent", "accountId": acc.ID})
	e.createTransaction(token, map[string]interface{}{"type": "expense", "amount": "40", "category": "Rent"})

	e.mustDo(http.MethodGet, fmt.Sprintf("/api/accounts/%d", acc.ID), token, nil, http.StatusOK, &acc)
	assert.True(t, acc.Balance.Equal(dec("1150.5")), acc.Balance.String())

	assert.Equal(t, http.StatusConflict, e.do(http.MethodDelete, fmt.Sprintf("/api/accounts/%d", acc.ID), token, nil).Code)

	e.mustDo(http.MethodPut, fmt.Sprintf("/api/accounts/%d", acc.ID), token, map[string]interface{}{
		"name": "Checking", "openingBalance": "1000", "archived": true,
	}, http.StatusOK, &acc)
	assert.True(t, acc.Archived)

	var list struct {
		Data []accountBody `json:"data"`
	}
	e.mustDo(http.MethodGet, "/api/accounts", token, nil, http.StatusOK, &list)
	assert.Empty(t, list.Data)
	e.mustDo(http.MethodGet, "/api/accounts?archived=true", token, nil, http.StatusOK, &list)
	require.Len(t, list.Data, 1)
	assert.True(t, list.Data[0].Balance.Equal(dec("1150.5")))

	// archived accounts take no new transactions
	rec = e.do(http.MethodPost, "/api/transactions", token, map[string]interface{}{"type": "income", "amount": "1", "accountId": acc.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	empty := e.createAccount(token, "Petty cash", "0")
	e.mustDo(http.MethodDelete, fmt.Sprintf("/api/accounts/%d", empty), token, nil, http.StatusOK, nil)
}

func TestTransactionsCRUDAndFilters(t *testing.T) {
	e := newEnv(t)
	token := e.owner.Token

	rec := e.do(http.MethodPost, "/api/transactions", token, map[string]interface{}{"type": "gift", "amount": "10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodPost, "/api/transactions", token, map[string]interface{}{"type": "income", "amount": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodPost, "/api/transactions", token, map[string]interface{}{"type": "income", "amount": "5", "customerId": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rent := e.createTransaction(token, map[string]interface{}{
		"type": "expense", "amount": "1200", "category": "Rent", "description": "Office rent", "occurredOn": "2024-03-01",
	})
	assert.Equal(t, "Rent", rent.Category)
	e.createTransaction(token, map[string]interface{}{
		"type": "income", "amount": "3000.456", "category": "Consulting", "reference": "WIRE-77", "occurredOn": "2024-03-10",
	})
	e.createTransaction(token, map[string]interface{}{
		"type": "expense", "amount": "80", "category": "Travel", "occurredOn": "2024-04-02",
	})

	type page struct {
		Data      []transactionBody `json:"data"`
		TotalRows int64             `json:"totalRows"`
	}
	var all page
	e.mustDo(http.MethodGet, "/api/transactions", token, nil, http.StatusOK, &all)
	require.Equal(t, int64(3), all.TotalRows)
	assert.Equal(t, "Travel", all.Data[0].Category, "latest first")

	var march page
	e.mustDo(http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31", token, nil, http.StatusOK, &march)
	assert.Equal(t, int64(2), march.TotalRows)

	var expenses page
	e.mustDo(http.MethodGet, "/api/transactions?type=expense", token, nil, http.StatusOK, &expenses)
	assert.Equal(t, int64(2), expenses.TotalRows)

	var byRef page
	e.mustDo(http.MethodGet, "/api/transactions?search=wire", token, nil, http.StatusOK, &byRef)
	require.Equal(t, int64(1), byRef.TotalRows)
	assert.True(t, byRef.Data[0].Amount.Equal(dec("3000.46")), "amounts are kept to cents")

	var updated transactionBody
	e.mustDo(http.MethodPut, fmt.Sprintf("/api/transactions/%d", rent.ID), token, map[string]interface{}{
		"type": "expense", "amount": "1250", "category": "Rent", "occurredOn": "2024-03-01",
	}, http.StatusOK, &updated)
	assert.True(t, updated.Amount.Equal(dec("1250")))

	var summary struct {
		Income     decimal.Decimal `json:"income"`
		Expense    decimal.Decimal `json:"expense"`
		Net        decimal.Decimal `json:"net"`
		Categories []struct {
			Category string          `json:"category"`
			Type     string          `json:"type"`
			Total    decimal.Decimal `json:"total"`
		} `json:"categories"`
	}
	e.mustDo(http.MethodGet, "/api/transactions/summary?from=2024-03-01&to=2024-03-31", token, nil, http.StatusOK, &summary)
	assert.True(t, summary.Income.Equal(dec("3000.46")), summary.Income.String())
	assert.True(t, summary.Expense.Equal(dec("1250")), summary.Expense.String())
	assert.True(t, summary.Net.Equal(dec("1750.46")), summary.Net.String())
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "Rent", summary.Categories[0].Category)
	assert.Equal(t, models.TransactionExpense, summary.Categories[0].Type)

	rec = e.do(http.MethodGet, "/api/transactions/export.xlsx?type=expense", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Transactions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "-1250", rows[1][4], "expenses are exported as negative amounts")

	e.mustDo(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", rent.ID), token, nil, http.StatusOK, nil)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, fmt.Sprintf("/api/transactions/%d", rent.ID), token, nil).Code)
}

type budgetBody struct {
	ID     uint   `json:"ID"`
	Name   string `json:"name"`
	Status struct {
		Spent       decimal.Decimal `json:"spent"`
		Remaining   decimal.Decimal `json:"remaining"`
		PercentUsed decimal.Decimal `json:"percentUsed"`
		Status      string          `json:"status"`
	} `json:"status"`
}

func TestBudgetStatus(t *testing.T) {
	e := newEnv(t)
	token := e.owner.Token

	rec := e.do(http.MethodPost, "/api/budgets", token, map[string]interface{}{
		"name": "Rent", "category": "Rent", "amount": "1000", "period": "fortnightly",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodPost, "/api/budgets", token, map[string]interface{}{
		"name": "Rent", "category": "Rent", "amount": "1000", "period": "monthly", "alertThreshold": 150,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var rent budgetBody
	e.mustDo(http.MethodPost, "/api/budgets", token, map[string]interface{}{
		"name": "Rent", "category": "Rent", "amount": "1000", "period": "monthly", "startDate": "2024-01-01",
	}, http.StatusCreated, &rent)
	e.mustDo(http.MethodPost, "/api/budgets", token, map[string]interface{}{
		"name": "Travel", "category": "Travel", "amount": "500", "period": "quarterly", "startDate": "2024-01-01",
	}, http.StatusCreated, nil)

	e.createTransaction(token, map[string]interface{}{"type": "expense", "amount": "850", "category": "Rent", "occurredOn": "2024-03-05"})
	e.createTransaction(token, map[string]interface{}{"type": "expense", "amount": "400", "category": "Rent", "occurredOn": "2024-04-05"})
	e.createTransaction(token, map[string]interface{}{"type": "income", "amount": "999", "category": "Rent", "occurredOn": "2024-03-06"})
	e.createTransaction(token, map[string]interface{}{"type": "expense", "amount": "120", "category": "Travel", "occurredOn": "2024-02-10"})

	var march budgetBody
	e.mustDo(http.MethodGet, fmt.Sprintf("/api/budgets/%d?date=2024-03-15", rent.ID), token, nil, http.StatusOK, &march)
	assert.True(t, march.Status.Spent.Equal(dec("850")), "only March expenses count: %s", march.Status.Spent)
	assert.True(t, march.Status.PercentUsed.Equal(dec("85")))
	assert.Equal(t, "warning", march.Status.Status)

	e.createTransaction(token, map[string]interface{}{"type": "expense", "amount": "200", "category": "Rent", "occurredOn": "2024-03-20"})

	var status struct {
		Date    string         `json:"date"`
		Data    []budgetBody   `json:"data"`
		Summary map[string]int `json:"summary"`
	}
	e.mustDo(http.MethodGet, "/api/budgets/status?date=2024-03-15", token, nil, http.StatusOK, &status)
	assert.Equal(t, "2024-03-15", status.Date)
	require.Len(t, status.Data, 2)
	assert.Equal(t, "Rent", status.Data[0].Name)
	assert.Equal(t, "exceeded", status.Data[0].Status.Status)
	assert.True(t, status.Data[0].Status.Remaining.Equal(dec("-50")))
	assert.Equal(t, "ok", status.Data[1].Status.Status)
	assert.True(t, status.Data[1].Status.Spent.Equal(dec("120")), "quarter covers February")
	assert.Equal(t, map[string]int{"ok": 1, "warning": 0, "exceeded": 1}, status.Summary)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/budgets/status?date=march", token, nil).Code)

	e.mustDo(http.MethodPut, fmt.Sprintf("/api/budgets/%d", rent.ID), token, map[string]interface{}{
		"name": "Rent", "category": "Rent", "amount": "2000", "period": "monthly", "startDate": "2024-01-01",
	}, http.StatusOK, nil)
	e.mustDo(http.MethodGet, fmt.Sprintf("/api/budgets/%d?date=2024-03-15", rent.ID), token, nil, http.StatusOK, &march)
	assert.Equal(t, "ok", march.Status.Status)

	e.mustDo(http.MethodDelete, fmt.Sprintf("/api/budgets/%d", rent.ID), token, nil, http.StatusOK, nil)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, fmt.Sprintf("/api/budgets/%d", rent.ID), token, nil).Code)
}

type goalBody struct {
	ID            uint            `json:"ID"`
	Status        string          `json:"status"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	CompletedAt   *string         `json:"completedAt"`
	Progress      struct {
		ProgressPercent decimal.Decimal `json:"progressPercent"`
		RemainingAmount decimal.Decimal `json:"remainingAmount"`
		Reached         bool            `json:"reached"`
	} `json:"progress"`
}

func TestGoalContributions(t *testing.T) {
	e := newEnv(t)
	token := e.owner.Token
	accountID := e.createAccount(token, "Savings", "2000")

	rec := e.do(http.MethodPost, "/api/goals", token, map[string]interface{}{"name": "New van", "targetAmount": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var goal goalBody
	e.mustDo(http.MethodPost, "/api/goals", token, map[string]interface{}{
		"name": "New van", "targetAmount": "1000", "deadline": "2030-01-01",
	}, http.StatusCreated, &goal)
	assert.Equal(t, models.GoalStatusActive, goal.Status)
	path := fmt.Sprintf("/api/goals/%d", goal.ID)

	rec = e.do(http.MethodPost, path+"/contributions", token, map[string]interface{}{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var first struct {
		Goal        goalBody         `json:"goal"`
		Transaction *transactionBody `json:"transaction"`
	}
	e.mustDo(http.MethodPost, path+"/contributions", token, map[string]interface{}{
		"amount": "400", "accountId": accountID, "note": "First deposit",
	}, http.StatusCreated, &first)
	assert.True(t, first.Goal.CurrentAmount.Equal(dec("400")))
	assert.True(t, first.Goal.Progress.ProgressPercent.Equal(dec("40")))
	require.NotNil(t, first.Transaction)
	assert.Equal(t, models.CategorySavings, first.Transaction.Category)
	assert.Equal(t, models.TransactionExpense, first.Transaction.Type)
	require.NotNil(t, first.Transaction.GoalID)
	assert.Equal(t, goal.ID, *first.Transaction.GoalID)

	var acc accountBody
	e.mustDo(http.MethodGet, fmt.Sprintf("/api/accounts/%d", accountID), token, nil, http.StatusOK, &acc)
	assert.True(t, acc.Balance.Equal(dec("1600")), acc.Balance.String())

	rec = e.do(http.MethodPut, fmt.Sprintf("/api/transactions/%d", first.Transaction.ID), token, map[string]interface{}{"type": "expense", "amount": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code, "goal transactions change through the goal")

	var second struct {
		Goal        goalBody         `json:"goal"`
		Transaction *transactionBody `json:"transaction"`
	}
	e.mustDo(http.MethodPost, path+"/contributions", token, map[string]interface{}{"amount": "600"}, http.StatusCreated, &second)
	assert.Nil(t, second.Transaction, "no account, no ledger entry")
	assert.Equal(t, models.GoalStatusCompleted, second.Goal.Status)
	assert.NotNil(t, second.Goal.CompletedAt)
	assert.True(t, second.Goal.Progress.Reached)

	rec = e.do(http.MethodPost, path+"/contributions", token, map[string]interface{}{"amount": "10"})
	assert.Equal(t, http.StatusConflict, rec.Code, "completed goals take no more money")

	var contributions struct {
		Data []struct {
			Amount decimal.Decimal `json:"amount"`
		} `json:"data"`
	}
	e.mustDo(http.MethodGet, path+"/contributions", token, nil, http.StatusOK, &contributions)
	assert.Len(t, contributions.Data, 2)

	e.mustDo(http.MethodDelete, path, token, nil, http.StatusOK, nil)
	var kept transactionBody
	e.mustDo(http.MethodGet, fmt.Sprintf("/api/transactions/%d", first.Transaction.ID), token, nil, http.StatusOK, &kept)
	assert.Nil(t, kept.GoalID, "the savings expense stays in the ledger")
}

func TestCancelledGoalRejectsContributions(t *testing.T) {
	e := newEnv(t)
	token := e.owner.Token

	var goal goalBody
	e.mustDo(http.MethodPost, "/api/goals", token, map[string]interface{}{"name": "Trip", "targetAmount": "500"}, http.StatusCreated, &goal)
	path := fmt.Sprintf("/api/goals/%d", goal.ID)

	e.mustDo(http.MethodPut, path, token, map[string]interface{}{
		"name": "Trip", "targetAmount": "500", "status": models.GoalStatusCancelled,
	}, http.StatusOK, &goal)
	assert.Equal(t, models.GoalStatusCancelled, goal.Status)

	rec := e.do(http.MethodPost, path+"/contributions", token, map[string]interface{}{"amount": "10"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var list struct {
		Data []goalBody `json:"data"`
	}
	e.mustDo(http.MethodGet, "/api/goals?status=cancelled", token, nil, http.StatusOK, &list)
	assert.Len(t, list.Data, 1)
	e.mustDo(http.MethodGet, "/api/goals?status=active", token, nil, http.StatusOK, &list)
	assert.Empty(t, list.Data)
}
