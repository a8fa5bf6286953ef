package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputeTotals(t *testing.T) {
	lines := []Line{
		{Description: "Design work", Quantity: d("3"), UnitPrice: d("120.00")},
		{Description: "Hosting", Quantity: d("1.5"), UnitPrice: d("19.99")},
	}

	totals, err := ComputeTotals(lines, d("10"), d("8.25"), d("15"))
	require.NoError(t, err)

	assertDecimal(t, "360", totals.LineTotals[0])
	assertDecimal(t, "29.99", totals.LineTotals[1]) // 29.985 rounds half away from zero
	assertDecimal(t, "389.99", totals.Subtotal)
	assertDecimal(t, "31.35", totals.Tax) // (389.99 - 10) * 8.25% = 31.349175
	assertDecimal(t, "426.34", totals.Total)
}

func TestComputeTotalsValidation(t *testing.T) {
	item := Line{Description: "Widget", Quantity: d("1"), UnitPrice: d("10")}

	tests := []struct {
		name     string
		lines    []Line
		discount string
		tax      string
		shipping string
		want     error
	}{
		{"no items", nil, "0", "0", "0", ErrNoItems},
		{"zero quantity", []Line{{Description: "x", Quantity: d("0"), UnitPrice: d("1")}}, "0", "0", "0", ErrBadQuantity},
		{"negative price", []Line{{Description: "x", Quantity: d("1"), UnitPrice: d("-1")}}, "0", "0", "0", ErrBadUnitPrice},
		{"missing description", []Line{{Quantity: d("1"), UnitPrice: d("1")}}, "0", "0", "0", ErrEmptyDescription},
		{"discount above subtotal", []Line{item}, "10.01", "0", "0", ErrBadDiscount},
		{"negative discount", []Line{item}, "-1", "0", "0", ErrBadDiscount},
		{"tax above 100", []Line{item}, "0", "100.5", "0", ErrBadTaxRate},
		{"negative shipping", []Line{item}, "0", "0", "-2", ErrBadShippingFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotals(tt.lines, d(tt.discount), d(tt.tax), d(tt.shipping))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComputeTotalsFullDiscount(t *testing.T) {
	totals, err := ComputeTotals([]Line{{Description: "Gift", Quantity: d("2"), UnitPrice: d("5")}}, d("10"), d("20"), d("0"))
	require.NoError(t, err)
	assertDecimal(t, "0", totals.Tax)
	assertDecimal(t, "0", totals.Total)
}

func TestAmountInWords(t *testing.T) {
	assert.Equal(t, "twelve USD and 50/100", AmountInWords(d("12.5"), "USD"))
	assert.Equal(t, "seven and 05/100", AmountInWords(d("7.049"), ""))
	assert.Equal(t, "zero EUR and 00/100", AmountInWords(decimal.Zero, "EUR"))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("42.10")
	require.NoError(t, err)
	assertDecimal(t, "42.1", v)

	_, err = ParseAmount("-1")
	assert.Error(t, err)
	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestPeriodWindow(t *testing.T) {
	ref := time.Date(2024, time.May, 17, 13, 0, 0, 0, time.UTC)

	w, err := PeriodWindow("monthly", ref, time.Time{}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), w.End)

	w, err = PeriodWindow("quarterly", ref, time.Time{}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), w.End)

	w, err = PeriodWindow("yearly", ref, time.Time{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2024, w.Start.Year())
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), w.End)

	start := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	w, err = PeriodWindow("custom", ref, start, &end)
	require.NoError(t, err)
	assert.True(t, w.Contains(end))
	assert.False(t, w.Contains(end.AddDate(0, 0, 1)))
	assert.True(t, w.Contains(start))
	assert.False(t, w.Contains(start.Add(-time.Second)))

	_, err = PeriodWindow("weekly", ref, time.Time{}, nil)
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestEvaluateBudget(t *testing.T) {
	w := Window{}

	s := EvaluateBudget(w, d("500"), d("100"), 0)
	assert.Equal(t, BudgetOK, s.Status)
	assertDecimal(t, "400", s.Remaining)
	assertDecimal(t, "20", s.PercentUsed)

	s = EvaluateBudget(w, d("500"), d("400"), 0)
	assert.Equal(t, BudgetWarning, s.Status)

	s = EvaluateBudget(w, d("500"), d("400"), 90)
	assert.Equal(t, BudgetOK, s.Status)

	s = EvaluateBudget(w, d("500"), d("512.5"), 0)
	assert.Equal(t, BudgetExceeded, s.Status)
	assertDecimal(t, "-12.5", s.Remaining)
}

func TestEvaluateGoal(t *testing.T) {
	now := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC)

	gp := EvaluateGoal(d("1200"), d("300"), &deadline, now)
	assertDecimal(t, "25", gp.ProgressPercent)
	assertDecimal(t, "900", gp.RemainingAmount)
	assert.Equal(t, 6, gp.MonthsLeft)
	assertDecimal(t, "150", gp.MonthlyRequired)
	assert.False(t, gp.Reached)

	gp = EvaluateGoal(d("100"), d("150"), &deadline, now)
	assertDecimal(t, "100", gp.ProgressPercent)
	assertDecimal(t, "0", gp.RemainingAmount)
	assert.True(t, gp.Reached)

	past := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)
	gp = EvaluateGoal(d("100"), d("40"), &past, now)
	assert.Equal(t, 1, gp.MonthsLeft)
	assertDecimal(t, "60", gp.MonthlyRequired)

	gp = EvaluateGoal(d("100"), d("40"), nil, now)
	assert.True(t, gp.MonthlyRequired.IsZero())
}

func TestQuoteDeliveryLinear(t *testing.T) {
	r := Rate{BaseFee: d("5"), PerKmRate: d("0.5"), PerKgRate: d("1.25"), MinFee: d("7")}

	q, err := QuoteDelivery(r, QuoteRequest{DistanceKm: d("10"), WeightKg: d("2"), Subtotal: d("40")})
	require.NoError(t, err)
	assertDecimal(t, "12.5", q.Fee)
	assert.False(t, q.MinApplied)

	q, err = QuoteDelivery(r, QuoteRequest{DistanceKm: d("1"), WeightKg: d("0")})
	require.NoError(t, err)
	assertDecimal(t, "7", q.Fee)
	assert.True(t, q.MinApplied)
}

func TestQuoteDeliveryLimits(t *testing.T) {
	r := Rate{
		BaseFee:          d("5"),
		MaxDistanceKm:    decimal.NewNullDecimal(d("25")),
		FreeOverSubtotal: decimal.NewNullDecimal(d("100")),
	}

	_, err := QuoteDelivery(r, QuoteRequest{DistanceKm: d("25.5")})
	assert.ErrorIs(t, err, ErrOutOfRange)

	q, err := QuoteDelivery(r, QuoteRequest{DistanceKm: d("3"), Subtotal: d("100")})
	require.NoError(t, err)
	assert.True(t, q.Free)
	assert.True(t, q.Fee.IsZero())

	_, err = QuoteDelivery(r, QuoteRequest{DistanceKm: d("-1")})
	assert.ErrorIs(t, err, ErrBadMeasurement)
}

func TestQuoteDeliveryFormula(t *testing.T) {
	r := Rate{
		BaseFee:   d("4"),
		PerKmRate: d("0.75"),
		Formula:   "distance > 20 ? base + distance * per_km : base",
	}

	q, err := QuoteDelivery(r, QuoteRequest{DistanceKm: d("30")})
	require.NoError(t, err)
	assert.True(t, q.UsedFormula)
	assertDecimal(t, "26.5", q.Fee)

	q, err = QuoteDelivery(r, QuoteRequest{DistanceKm: d("10")})
	require.NoError(t, err)
	assertDecimal(t, "4", q.Fee)
}

func TestValidateFormula(t *testing.T) {
	assert.NoError(t, ValidateFormula("base + weight * per_kg"))
	assert.Error(t, ValidateFormula("base +"))
	assert.Error(t, ValidateFormula("base + volume"))
	assert.Error(t, ValidateFormula("'text'"))
	// dividing by zero at the sample weight is not a broken rule
	assert.NoError(t, ValidateFormula("base + distance / (weight - 2)"))
}

func TestQuoteDeliveryFormulaFailure(t *testing.T) {
	r := Rate{BaseFee: d("5"), Formula: "base + distance / weight"}
	require.NoError(t, ValidateFormula(r.Formula))

	q, err := QuoteDelivery(r, QuoteRequest{DistanceKm: d("10"), WeightKg: d("2")})
	require.NoError(t, err)
	assertDecimal(t, "10", q.Fee)

	_, err = QuoteDelivery(r, QuoteRequest{DistanceKm: d("10"), WeightKg: d("0")})
	assert.ErrorIs(t, err, ErrFormula)

	_, err = EvaluateFormula("distance > 1", map[string]interface{}{"distance": 2.0})
	assert.ErrorIs(t, err, ErrFormula)
}
