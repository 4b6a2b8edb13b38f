package loan

import (
	"fmt"
	"loan-engine/internal/pkg/money"
	"time"

	"github.com/shopspring/decimal"
)

type ChargeTime string

const (
	ChargeAtDisbursement   ChargeTime = "DISBURSEMENT"
	ChargeSpecifiedDueDate ChargeTime = "SPECIFIED_DUE_DATE"
	ChargeInstallmentFee   ChargeTime = "INSTALLMENT_FEE"
)

type ChargeCalculation string

const (
	ChargeFlat                       ChargeCalculation = "FLAT"
	ChargePercentOfAmount            ChargeCalculation = "PERCENT_OF_AMOUNT"
	ChargePercentOfInterest          ChargeCalculation = "PERCENT_OF_INTEREST"
	ChargePercentOfAmountAndInterest ChargeCalculation = "PERCENT_OF_AMOUNT_AND_INTEREST"
)

// Charge is a fee or penalty attached to a loan. Amount is a currency amount
// for flat charges and a percentage otherwise.
type Charge struct {
	ID                 int64             `json:"id"`
	ChargeDefinitionID int64             `json:"chargeDefinitionId"`
	Name               string            `json:"name"`
	Time               ChargeTime        `json:"time"`
	Calculation        ChargeCalculation `json:"calculation"`
	Amount             decimal.Decimal   `json:"amount"`
	DueDate            time.Time         `json:"dueDate,omitempty"`
	Penalty            bool              `json:"penalty"`
}

func (c Charge) validate(index int) error {
	field := func(name string) string { return fmt.Sprintf("charges[%d].%s", index, name) }

	if !c.Amount.IsPositive() {
		return newTermsError(field("amount"), c.Amount.String(), "must be greater than zero")
	}
	switch c.Calculation {
	case ChargeFlat:
	case ChargePercentOfAmount, ChargePercentOfInterest, ChargePercentOfAmountAndInterest:
		if c.Amount.GreaterThan(hundred) {
			return newTermsError(field("amount"), c.Amount.String(), "percentage must not exceed 100")
		}
	default:
		return newTermsError(field("calculation"), c.Calculation, "unsupported charge calculation")
	}
	switch c.Time {
	case ChargeAtDisbursement:
		if c.Calculation == ChargePercentOfInterest || c.Calculation == ChargePercentOfAmountAndInterest {
			return newTermsError(field("calculation"), c.Calculation, "disbursement charges cannot depend on interest")
		}
	case ChargeSpecifiedDueDate:
		if c.DueDate.IsZero() {
			return newTermsError(field("dueDate"), "", "is required for specified due date charges")
		}
	case ChargeInstallmentFee:
	default:
		return newTermsError(field("time"), c.Time, "unsupported charge time")
	}
	return nil
}

func (c Charge) resolve(currency money.Currency, principal, interest money.Money) money.Money {
	var base money.Money
	switch c.Calculation {
	case ChargeFlat:
		return money.New(currency, c.Amount)
	case ChargePercentOfAmount:
		base = principal
	case ChargePercentOfInterest:
		base = interest
	case ChargePercentOfAmountAndInterest:
		base = principal.Plus(interest)
	}
	return money.New(currency, base.Amount().Mul(c.Amount).DivRound(hundred, calcPrecision))
}

func validateCharges(charges []Charge) error {
	for i, c := range charges {
		if err := c.validate(i); err != nil {
			return err
		}
	}
	return nil
}

// applyCharges resolves charge amounts onto the installments. Fee and penalty
// dues are recomputed from scratch.
func applyCharges(s *Schedule, charges []Charge, principal money.Money) {
	for i := range s.Installments {
		s.Installments[i].Fees.Due = money.Zero(s.Currency)
		s.Installments[i].Penalties.Due = money.Zero(s.Currency)
		s.Installments[i].ChargeDues = nil
	}
	regular := s.regularIndexes()
	if len(regular) == 0 {
		return
	}
	totalInterest := s.TotalInterestDue()

	for _, c := range charges {
		switch c.Time {
		case ChargeSpecifiedDueDate:
			idx := regular[len(regular)-1]
			for _, i := range regular {
				if !truncateDate(c.DueDate).After(s.Installments[i].DueDate) {
					idx = i
					break
				}
			}
			s.Installments[idx].addCharge(c, c.resolve(s.Currency, principal, totalInterest))
		case ChargeInstallmentFee:
			for _, i := range regular {
				inst := &s.Installments[i]
				inst.addCharge(c, c.resolve(s.Currency, inst.Principal.Due, inst.Interest.Due))
			}
		}
	}
}

// disbursementFees totals the charges withheld from one disbursed tranche.
func disbursementFees(currency money.Currency, charges []Charge, principal money.Money) money.Money {
	total := money.Zero(currency)
	for _, c := range charges {
		if c.Time == ChargeAtDisbursement {
			total = total.Plus(c.resolve(currency, principal, money.Zero(currency)))
		}
	}
	return total
}
