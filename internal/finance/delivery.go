package finance

import (
	"errors"
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
)

var (
	ErrOutOfRange     = errors.New("destination is outside the delivery zone")
	ErrBadMeasurement = errors.New("distance and weight must not be negative")
	// ErrFormula means a zone formula could not price the given shipment.
	ErrFormula = errors.New("delivery formula cannot price this shipment")

	errNonFinite = fmt.Errorf("%w: result is not a finite number", ErrFormula)
)

// FormulaVariables are the names a delivery formula may reference.
var FormulaVariables = []string{"distance", "weight", "subtotal", "base", "per_km", "per_kg"}

// Rate is the pricing data of a delivery zone.
type Rate struct {
	BaseFee          decimal.Decimal
	PerKmRate        decimal.Decimal
	PerKgRate        decimal.Decimal
	MinFee           decimal.Decimal
	MaxDistanceKm    decimal.NullDecimal
	FreeOverSubtotal decimal.NullDecimal
	Formula          string
}

// QuoteRequest describes one shipment.
type QuoteRequest struct {
	DistanceKm decimal.Decimal `json:"distanceKm"`
	WeightKg   decimal.Decimal `json:"weightKg"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Quote is the priced result.
type Quote struct {
	Fee         decimal.Decimal `json:"fee"`
	Free        bool            `json:"free"`
	MinApplied  bool            `json:"minApplied"`
	UsedFormula bool            `json:"usedFormula"`
}

// QuoteDelivery prices a shipment against a zone rate.
func QuoteDelivery(r Rate, req QuoteRequest) (Quote, error) {
	if req.DistanceKm.IsNegative() || req.WeightKg.IsNegative() {
		return Quote{}, ErrBadMeasurement
	}
	if r.MaxDistanceKm.Valid && req.DistanceKm.GreaterThan(r.MaxDistanceKm.Decimal) {
		return Quote{}, ErrOutOfRange
	}
	if r.FreeOverSubtotal.Valid && !req.Subtotal.LessThan(r.FreeOverSubtotal.Decimal) {
		return Quote{Fee: decimal.Zero, Free: true}, nil
	}

	var q Quote
	if r.Formula != "" {
		fee, err := EvaluateFormula(r.Formula, formulaParams(r, req))
		if err != nil {
			return Quote{}, err
		}
		q.Fee = fee
		q.UsedFormula = true
	} else {
		q.Fee = r.BaseFee.
			Add(req.DistanceKm.Mul(r.PerKmRate)).
			Add(req.WeightKg.Mul(r.PerKgRate))
	}

	if q.Fee.LessThan(r.MinFee) {
		q.Fee = r.MinFee
		q.MinApplied = true
	}
	if q.Fee.IsNegative() {
		q.Fee = decimal.Zero
	}
	q.Fee = Round2(q.Fee)
	return q, nil
}

// ValidateFormula rejects formulas that do not parse, reference unknown
// variables or yield a non-number. A division by zero at the sample point is
// accepted since other inputs may price fine.
func ValidateFormula(formula string) error {
	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return fmt.Errorf("formula %q: %w", formula, err)
	}
	known := make(map[string]bool, len(FormulaVariables))
	for _, v := range FormulaVariables {
		known[v] = true
	}
	for _, v := range expr.Vars() {
		if !known[v] {
			return fmt.Errorf("formula %q: unknown variable %q", formula, v)
		}
	}
	_, err = EvaluateFormula(formula, map[string]interface{}{
		"distance": 10.0, "weight": 2.0, "subtotal": 100.0,
		"base": 5.0, "per_km": 1.0, "per_kg": 0.5,
	})
	if errors.Is(err, errNonFinite) {
		return nil
	}
	return err
}

// EvaluateFormula evaluates a govaluate expression and returns the numeric
// result. Every failure wraps ErrFormula.
func EvaluateFormula(formula string, params map[string]interface{}) (decimal.Decimal, error) {
	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: formula %q: %v", ErrFormula, formula, err)
	}
	result, err := expr.Evaluate(params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: evaluate %q: %v", ErrFormula, formula, err)
	}
	f, ok := result.(float64)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: formula %q did not produce a number", ErrFormula, formula)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w (formula %q)", errNonFinite, formula)
	}
	return decimal.NewFromFloat(f), nil
}

func formulaParams(r Rate, req QuoteRequest) map[string]interface{} {
	return map[string]interface{}{
		"distance": req.DistanceKm.InexactFloat64(),
		"weight":   req.WeightKg.InexactFloat64(),
		"subtotal": req.Subtotal.InexactFloat64(),
		"base":     r.BaseFee.InexactFloat64(),
		"per_km":   r.PerKmRate.InexactFloat64(),
		"per_kg":   r.PerKgRate.InexactFloat64(),
	}
}
