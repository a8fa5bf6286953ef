package finance

import (
	"errors"
	"time"

	"flowfin/models"

	"github.com/shopspring/decimal"
)

const (
	BudgetOK       = "ok"
	BudgetWarning  = "warning"
	BudgetExceeded = "exceeded"
)

var ErrUnknownPeriod = errors.New("unknown budget period")

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// PeriodWindow returns the budget window containing ref. Recurring periods
// follow the calendar; custom budgets span start through end inclusive.
func PeriodWindow(period string, ref, start time.Time, end *time.Time) (Window, error) {
	ref = ref.UTC()
	y, m, _ := ref.Date()
	switch period {
	case models.PeriodMonthly:
		s := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(0, 1, 0)}, nil
	case models.PeriodQuarterly:
		qm := time.Month((int(m)-1)/3*3 + 1)
		s := time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(0, 3, 0)}, nil
	case models.PeriodYearly:
		s := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(1, 0, 0)}, nil
	case models.PeriodCustom:
		s := DateOnly(start)
		if end == nil {
			return Window{Start: s, End: s.AddDate(1, 0, 0)}, nil
		}
		return Window{Start: s, End: DateOnly(*end).AddDate(0, 0, 1)}, nil
	}
	return Window{}, ErrUnknownPeriod
}

// BudgetStatus is the state of a budget within one window.
type BudgetStatus struct {
	Window      Window          `json:"window"`
	Amount      decimal.Decimal `json:"amount"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percentUsed"`
	Status      string          `json:"status"`
}

// EvaluateBudget compares spending to the budget. threshold is the percentage
// at which the budget turns to warning; zero means 80.
func EvaluateBudget(w Window, amount, spent decimal.Decimal, threshold int) BudgetStatus {
	if threshold <= 0 {
		threshold = 80
	}
	bs := BudgetStatus{
		Window:      w,
		Amount:      amount,
		Spent:       Round2(spent),
		Remaining:   Round2(amount.Sub(spent)),
		PercentUsed: Percent(spent, amount),
		Status:      BudgetOK,
	}
	switch {
	case spent.GreaterThan(amount):
		bs.Status = BudgetExceeded
	case bs.PercentUsed.GreaterThanOrEqual(decimal.NewFromInt(int64(threshold))):
		bs.Status = BudgetWarning
	}
	return bs
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
