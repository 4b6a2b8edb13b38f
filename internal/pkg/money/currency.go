package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "HALF_UP"
	RoundHalfEven RoundingMode = "HALF_EVEN"
	RoundHalfDown RoundingMode = "HALF_DOWN"
	RoundUp       RoundingMode = "UP"
	RoundDown     RoundingMode = "DOWN"
	RoundCeiling  RoundingMode = "CEILING"
	RoundFloor    RoundingMode = "FLOOR"
)

func ParseRoundingMode(s string) (RoundingMode, error) {
	mode := RoundingMode(strings.ToUpper(strings.TrimSpace(s)))
	switch mode {
	case RoundHalfUp, RoundHalfEven, RoundHalfDown, RoundUp, RoundDown, RoundCeiling, RoundFloor:
		return mode, nil
	case "":
		return RoundHalfUp, nil
	}
	return "", fmt.Errorf("unsupported rounding mode %q", s)
}

// Round rounds d to places decimal places. An empty mode rounds half-up.
func (m RoundingMode) Round(d decimal.Decimal, places int32) decimal.Decimal {
	switch m {
	case RoundHalfEven:
		return d.RoundBank(places)
	case RoundHalfDown:
		shifted := d.Shift(places)
		if shifted.Sub(shifted.Truncate(0)).Abs().Equal(half) {
			return shifted.Truncate(0).Shift(-places)
		}
		return d.Round(places)
	case RoundUp:
		return d.RoundUp(places)
	case RoundDown:
		return d.RoundDown(places)
	case RoundCeiling:
		return d.RoundCeil(places)
	case RoundFloor:
		return d.RoundFloor(places)
	default:
		return d.Round(places)
	}
}

var half = decimal.NewFromFloat(0.5)

// Currency is the rounding policy of a single ledger currency.
type Currency struct {
	Code          string       `json:"code"`
	DecimalPlaces int32        `json:"decimalPlaces"`
	InMultiplesOf int64        `json:"inMultiplesOf,omitempty"`
	Rounding      RoundingMode `json:"roundingMode"`
}

func NewCurrency(code string, decimalPlaces int32, inMultiplesOf int64, rounding RoundingMode) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return Currency{}, fmt.Errorf("currency code must have 3 letters, got %q", code)
	}
	if decimalPlaces < 0 || decimalPlaces > 6 {
		return Currency{}, fmt.Errorf("decimal places must be between 0 and 6, got %d", decimalPlaces)
	}
	if inMultiplesOf < 0 {
		return Currency{}, fmt.Errorf("inMultiplesOf must not be negative, got %d", inMultiplesOf)
	}
	if rounding == "" {
		rounding = RoundHalfUp
	}
	return Currency{Code: code, DecimalPlaces: decimalPlaces, InMultiplesOf: inMultiplesOf, Rounding: rounding}, nil
}

func MustCurrency(code string, decimalPlaces int32) Currency {
	c, err := NewCurrency(code, decimalPlaces, 0, RoundHalfUp)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return c.Rounding.Round(d, c.DecimalPlaces)
}

// MinimumUnit is the smallest amount representable at the currency scale.
func (c Currency) MinimumUnit() decimal.Decimal {
	return decimal.New(1, -c.DecimalPlaces)
}

func (c Currency) String() string {
	return c.Code
}
