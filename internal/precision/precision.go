// Package precision rounds and formats monetary values against a market's
// declared decimal step size. All arithmetic is exact decimal; a value never
// passes through a binary float on its way to the wire.
package precision

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundToStep rounds v to the nearest multiple of step, half away from zero.
// The step must be positive.
func RoundToStep(v, step decimal.Decimal) (decimal.Decimal, error) {
	if step.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("precision step must be positive, got %s", step)
	}
	units := v.Div(step).Round(0)
	return units.Mul(step), nil
}

// FormatToStep rounds v to step and renders it with exactly the step's
// decimal places, e.g. FormatToStep(1.2345, 0.01) == "1.23" and
// FormatToStep(3, 0.001) == "3.000".
func FormatToStep(v, step decimal.Decimal) (string, error) {
	rounded, err := RoundToStep(v, step)
	if err != nil {
		return "", err
	}
	places := int32(0)
	if e := step.Exponent(); e < 0 {
		places = -e
	}
	return rounded.StringFixed(places), nil
}

// StepFromDigits converts a decimal-digit count into a step size: 2 -> 0.01,
// 0 -> 1. Used for exchanges that publish precision as a digit count rather
// than a tick size.
func StepFromDigits(digits int32) decimal.Decimal {
	return decimal.New(1, -digits)
}
