package finance

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoItems          = errors.New("invoice needs at least one item")
	ErrBadQuantity      = errors.New("item quantity must be greater than zero")
	ErrBadUnitPrice     = errors.New("item unit price must not be negative")
	ErrBadDiscount      = errors.New("discount must be between zero and the subtotal")
	ErrBadTaxRate       = errors.New("tax rate must be between 0 and 100")
	ErrBadShippingFee   = errors.New("shipping fee must not be negative")
	ErrEmptyDescription = errors.New("item description is required")
)

// Line is one priced invoice line.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Totals is the computed money breakdown of an invoice.
type Totals struct {
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	TaxRate    decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	Total      decimal.Decimal
}

// ComputeTotals prices the lines and applies discount, tax and shipping:
// tax is charged on the discounted subtotal, shipping is never taxed.
func ComputeTotals(lines []Line, discount, taxRate, shipping decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrNoItems
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return Totals{}, ErrBadTaxRate
	}
	if shipping.IsNegative() {
		return Totals{}, ErrBadShippingFee
	}

	t := Totals{TaxRate: taxRate, Shipping: Round2(shipping)}
	for _, l := range lines {
		if l.Description == "" {
			return Totals{}, ErrEmptyDescription
		}
		if !l.Quantity.IsPositive() {
			return Totals{}, ErrBadQuantity
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, ErrBadUnitPrice
		}
		lt := Round2(l.Quantity.Mul(l.UnitPrice))
		t.LineTotals = append(t.LineTotals, lt)
		t.Subtotal = t.Subtotal.Add(lt)
	}

	t.Discount = Round2(discount)
	if t.Discount.IsNegative() || t.Discount.GreaterThan(t.Subtotal) {
		return Totals{}, ErrBadDiscount
	}

	taxable := t.Subtotal.Sub(t.Discount)
	t.Tax = Round2(taxable.Mul(taxRate).Div(hundred))
	t.Total = taxable.Add(t.Tax).Add(t.Shipping)
	return t, nil
}
