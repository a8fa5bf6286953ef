package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalProgress summarises how far a savings goal has come.
type GoalProgress struct {
	ProgressPercent decimal.Decimal `json:"progressPercent"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	MonthsLeft      int             `json:"monthsLeft"`
	MonthlyRequired decimal.Decimal `json:"monthlyRequired"`
	Reached         bool            `json:"reached"`
}

// EvaluateGoal computes progress as of now. Without a deadline MonthlyRequired
// stays zero; a deadline inside the current month counts as one month.
func EvaluateGoal(target, current decimal.Decimal, deadline *time.Time, now time.Time) GoalProgress {
	gp := GoalProgress{
		ProgressPercent: Percent(current, target),
		RemainingAmount: decimal.Max(Round2(target.Sub(current)), decimal.Zero),
		Reached:         !current.LessThan(target),
	}
	if gp.ProgressPercent.GreaterThan(hundred) {
		gp.ProgressPercent = hundred
	}
	if deadline != nil && !gp.Reached {
		gp.MonthsLeft = monthsBetween(now, *deadline)
		if gp.MonthsLeft < 1 {
			gp.MonthsLeft = 1
		}
		gp.MonthlyRequired = Round2(gp.RemainingAmount.Div(decimal.NewFromInt(int64(gp.MonthsLeft))))
	}
	return gp
}

func monthsBetween(from, to time.Time) int {
	from, to = from.UTC(), to.UTC()
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}
