package accounting

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrAmountOverflow = errors.New("amount_overflow")
	ErrAmountNegative = errors.New("amount_negative")
)

// Amount is a monetary value in cents (two sub-unit digits of precision).
// All arithmetic is overflow-checked; Amount values held by the ledger are
// never negative.
type Amount int64

// FromUnits builds an Amount from whole value-units. Units beyond the
// representable range saturate at the int64 extremes rather than wrapping.
func FromUnits(units int64) Amount {
	if units > math.MaxInt64/100 {
		return Amount(math.MaxInt64)
	}
	if units < math.MinInt64/100 {
		return Amount(math.MinInt64)
	}
	return Amount(units * 100)
}

// Cents builds an Amount from a raw cent count.
func Cents(cents int64) Amount {
	return Amount(cents)
}

// Cents returns the raw cent count.
func (a Amount) Cents() int64 {
	return int64(a)
}

// Add returns a+b, failing on int64 overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	if b > 0 && a > Amount(math.MaxInt64)-b {
		return 0, ErrAmountOverflow
	}
	if b < 0 && a < Amount(math.MinInt64)-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// Sub returns a-b, failing if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, ErrAmountNegative
	}
	return a - b, nil
}

// Half returns floor(a/2). Combined with Add it implements the 1.5x payout
// multiplier with truncation toward zero.
func (a Amount) Half() Amount {
	return a / 2
}

// String renders the amount as "units.cc".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
