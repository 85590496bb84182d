// Package money converts between integer minor units and the two-decimal
// strings used by the payment gateway and the JSON API.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalid = errors.New("money: invalid amount")

// Format renders minor units as a fixed two-decimal string, e.g. 51050 -> "510.50".
func Format(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// Parse reads a decimal amount ("510.5", "510.50", "510") into minor units.
// More than two fractional digits are rejected rather than rounded.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (int64, error) {
	minor := d.Shift(2)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has sub-minor precision", ErrInvalid, d.String())
	}
	return minor.IntPart(), nil
}
