package money

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitDigits is the number of fraction digits carried by an Amount.
const MinorUnitDigits = 2

// BasisPointsPerUnit is the denominator of a Rate.
const BasisPointsPerUnit = 10000

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("invalid rate")
)

// Amount is a monetary value in integer minor units (e.g. cents).
type Amount int64

// ParseAmount converts a decimal string such as "100000.00" into minor units.
// More than MinorUnitDigits fraction digits is rejected rather than rounded.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	scaled := d.Shift(MinorUnitDigits)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than %d fraction digits", ErrInvalidAmount, s, MinorUnitDigits)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -MinorUnitDigits)
}

// String formats the amount in major units with a fixed number of fraction digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(MinorUnitDigits)
}

// MarshalText encodes the amount as its decimal string, so JSON carries
// "9500.00" rather than minor units.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Rate is a proportion expressed in basis points (500 = 5%).
type Rate int64

// ParseRate converts a decimal fraction such as "0.05" into basis points.
// The rate must lie in [0, 1) and must not be finer than one basis point.
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("%w: %q must be within [0, 1)", ErrInvalidRate, s)
	}
	bps := d.Mul(decimal.NewFromInt(BasisPointsPerUnit))
	if !bps.Equal(bps.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q is finer than one basis point", ErrInvalidRate, s)
	}
	return Rate(bps.IntPart()), nil
}

// MustParseRate is ParseRate for constants known to be valid.
func MustParseRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Valid reports whether the rate lies in [0, 1).
func (r Rate) Valid() bool {
	return r >= 0 && r < BasisPointsPerUnit
}

// Apply returns a × r rounded half up to the nearest minor unit.
func (r Rate) Apply(a Amount) Amount {
	product := new(big.Int).Mul(big.NewInt(int64(a)), big.NewInt(int64(r)))
	product.Add(product, big.NewInt(BasisPointsPerUnit/2))
	product.Quo(product, big.NewInt(BasisPointsPerUnit))
	return Amount(product.Int64())
}

// String formats the rate as a decimal fraction, e.g. "0.05".
func (r Rate) String() string {
	return decimal.New(int64(r), -4).String()
}

// Apportion splits total across weights so that the shares sum to total exactly.
// Each share starts at floor(total × w / Σw); leftover minor units go one at a
// time to the largest fractional remainders, ties resolved by input order.
func Apportion(total Amount, weights []int64) ([]Amount, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: negative total", ErrInvalidAmount)
	}
	sum := new(big.Int)
	for _, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("apportion: weight must be positive, got %d", w)
		}
		sum.Add(sum, big.NewInt(w))
	}
	if sum.Sign() == 0 {
		return nil, errors.New("apportion: no weights")
	}

	shares := make([]Amount, len(weights))
	remainders := make([]*big.Int, len(weights))
	allocated := int64(0)
	bigTotal := big.NewInt(int64(total))
	for i, w := range weights {
		q, r := new(big.Int).QuoRem(new(big.Int).Mul(bigTotal, big.NewInt(w)), sum, new(big.Int))
		shares[i] = Amount(q.Int64())
		remainders[i] = r
		allocated += q.Int64()
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].Cmp(remainders[order[b]]) > 0
	})
	for k := int64(0); k < int64(total)-allocated; k++ {
		shares[order[k]]++
	}
	return shares, nil
}

// PerUnit returns total / units rounded down to the given number of fraction
// digits of a minor unit, as a decimal in major units.
func PerUnit(total Amount, units int64, places int32) (decimal.Decimal, error) {
	if units <= 0 {
		return decimal.Zero, errors.New("per unit: units must be positive")
	}
	if total < 0 {
		return decimal.Zero, fmt.Errorf("%w: negative total", ErrInvalidAmount)
	}
	q, _ := decimal.NewFromInt(int64(total)).QuoRem(decimal.NewFromInt(units), places)
	return q.Shift(-MinorUnitDigits), nil
}
