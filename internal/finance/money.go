// Package finance holds the money arithmetic behind invoices, budgets, goals
// and delivery quotes. Nothing here touches the database.
package finance

import (
	"errors"
	"fmt"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a decimal string and rejects negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("amount must not be negative")
	}
	return d, nil
}

// Percent returns part/whole*100 rounded to cents, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round2(part.Mul(hundred).Div(whole))
}

// AmountInWords spells the whole units and appends cents as a fraction,
// e.g. 1250.5 USD -> "one thousand two hundred fifty USD and 50/100".
func AmountInWords(amount decimal.Decimal, currency string) string {
	amount = Round2(amount.Abs())
	units := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(units)).Mul(hundred).IntPart()

	words := num2words.Convert(int(units))
	if currency != "" {
		words += " " + currency
	}
	return fmt.Sprintf("%s and %02d/100", words, cents)
}
