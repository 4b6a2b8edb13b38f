package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount bound to a currency and kept at the currency scale.
// The zero value is a currency-less zero that adopts the currency of the
// first operand it is combined with.
type Money struct {
	currency Currency
	amount   decimal.Decimal
}

type CurrencyMismatchError struct {
	Left  string
	Right string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Left, e.Right)
}

func New(c Currency, amount decimal.Decimal) Money {
	return Money{currency: c, amount: c.Round(amount)}
}

func Zero(c Currency) Money {
	return Money{currency: c, amount: decimal.Zero}
}

func Parse(c Currency, s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return New(c, d), nil
}

func MustParse(c Currency, s string) Money {
	m, err := Parse(c, s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Currency() Currency { return m.currency }
func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) IsZero() bool { return m.amount.IsZero() }
func (m Money) IsGreaterThanZero() bool { return m.amount.IsPositive() }
func (m Money) IsLessThanZero() bool { return m.amount.IsNegative() }
func (m Money) Float64() float64 { return m.amount.InexactFloat64() }
func (m Money) StringFixed() string { return m.amount.StringFixed(m.currency.DecimalPlaces) }
func (m Money) String() string { return fmt.Sprintf("%s %s", m.currency.Code, m.StringFixed()) }
func (m Money) WithAmount(d decimal.Decimal) Money { return New(m.currency, d) }

func (m Money) Plus(o Money) Money {
	c := m.common(o)
	return Money{currency: c, amount: m.amount.Add(o.amount)}
}

func (m Money) Minus(o Money) Money {
	c := m.common(o)
	return Money{currency: c, amount: m.amount.Sub(o.amount)}
}

// MultipliedBy scales the amount and rounds the product to the currency scale.
func (m Money) MultipliedBy(factor decimal.Decimal) Money {
	return New(m.currency, m.amount.Mul(factor))
}

// DividedBy divides with a fixed intermediate precision before rounding.
func (m Money) DividedBy(divisor decimal.Decimal) Money {
	return New(m.currency, m.amount.DivRound(divisor, 16))
}

func (m Money) Negated() Money {
	return Money{currency: m.currency, amount: m.amount.Neg()}
}

func (m Money) Abs() Money {
	return Money{currency: m.currency, amount: m.amount.Abs()}
}

func (m Money) ZeroIfNegative() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

func (m Money) IsEqualTo(o Money) bool {
	m.common(o)
	return m.amount.Equal(o.amount)
}

func (m Money) IsGreaterThan(o Money) bool {
	m.common(o)
	return m.amount.GreaterThan(o.amount)
}

func (m Money) IsGreaterThanOrEqualTo(o Money) bool {
	m.common(o)
	return m.amount.GreaterThanOrEqual(o.amount)
}

func (m Money) IsLessThan(o Money) bool {
	m.common(o)
	return m.amount.LessThan(o.amount)
}

func (m Money) IsLessThanOrEqualTo(o Money) bool {
	m.common(o)
	return m.amount.LessThanOrEqual(o.amount)
}

func (m Money) Min(o Money) Money {
	if m.IsLessThanOrEqualTo(o) {
		return m.withCurrency(m.common(o))
	}
	return o.withCurrency(m.common(o))
}

func (m Money) Max(o Money) Money {
	if m.IsGreaterThanOrEqualTo(o) {
		return m.withCurrency(m.common(o))
	}
	return o.withCurrency(m.common(o))
}

// InMultiplesOf rounds the amount to the currency's multiples-of constraint.
func (m Money) InMultiplesOf() Money {
	if m.currency.InMultiplesOf <= 0 {
		return m
	}
	step := decimal.NewFromInt(m.currency.InMultiplesOf)
	units := m.currency.Rounding.Round(m.amount.DivRound(step, 16), 0)
	return Money{currency: m.currency, amount: units.Mul(step)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed())
}

// UnmarshalJSON reads an amount without a currency. Callers bind the
// currency afterwards with In.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("invalid money amount %s: %w", b, err)
	}
	*m = Money{amount: d}
	return nil
}

// In binds the amount to c, rounding it to the currency scale.
func (m Money) In(c Currency) Money {
	return New(c, m.amount)
}

func (m Money) withCurrency(c Currency) Money {
	m.currency = c
	return m
}

func (m Money) common(o Money) Currency {
	switch {
	case m.currency.Code == "":
		return o.currency
	case o.currency.Code == "", m.currency.Code == o.currency.Code:
		return m.currency
	}
	panic(&CurrencyMismatchError{Left: m.currency.Code, Right: o.currency.Code})
}
