package loan

import (
	"loan-engine/internal/pkg/money"
	"time"
)

type Component string

const (
	ComponentPrincipal Component = "PRINCIPAL"
	ComponentInterest  Component = "INTEREST"
	ComponentFee       Component = "FEE"
	ComponentPenalty   Component = "PENALTY"
)

var allComponents = []Component{ComponentPrincipal, ComponentInterest, ComponentFee, ComponentPenalty}

// ComponentBalance holds one component of an installment. Outstanding is
// always Due - Paid - Waived - WrittenOff.
type ComponentBalance struct {
	Due        money.Money `json:"due"`
	Paid       money.Money `json:"paid"`
	Waived     money.Money `json:"waived"`
	WrittenOff money.Money `json:"writtenOff"`
}

func zeroBalance(c money.Currency) ComponentBalance {
	z := money.Zero(c)
	return ComponentBalance{Due: z, Paid: z, Waived: z, WrittenOff: z}
}

func (b ComponentBalance) Outstanding() money.Money {
	return b.Due.Minus(b.Paid).Minus(b.Waived).Minus(b.WrittenOff)
}

func (b *ComponentBalance) pay(amount money.Money) money.Money {
	applied := amount.Min(b.Outstanding()).ZeroIfNegative()
	b.Paid = b.Paid.Plus(applied)
	return applied
}

func (b *ComponentBalance) waive(amount money.Money) money.Money {
	applied := amount.Min(b.Outstanding()).ZeroIfNegative()
	b.Waived = b.Waived.Plus(applied)
	return applied
}

func (b *ComponentBalance) writeOff() money.Money {
	applied := b.Outstanding().ZeroIfNegative()
	b.WrittenOff = b.WrittenOff.Plus(applied)
	return applied
}

func (b *ComponentBalance) reset() {
	c := b.Due.Currency()
	b.Paid = money.Zero(c)
	b.Waived = money.Zero(c)
	b.WrittenOff = money.Zero(c)
}

// ChargeDue is the share of one charge that falls on an installment. Settled
// counts what was paid, waived or written off against it.
type ChargeDue struct {
	ChargeID int64       `json:"chargeId"`
	Penalty  bool        `json:"penalty,omitempty"`
	Due      money.Money `json:"due"`
	Settled  money.Money `json:"settled"`
}

func (d ChargeDue) Outstanding() money.Money {
	return d.Due.Minus(d.Settled)
}

func (d ChargeDue) component() Component {
	if d.Penalty {
		return ComponentPenalty
	}
	return ComponentFee
}

type Installment struct {
	Number            int              `json:"number"`
	FromDate          time.Time        `json:"fromDate"`
	DueDate           time.Time        `json:"dueDate"`
	DownPayment       bool             `json:"downPayment,omitempty"`
	Principal         ComponentBalance `json:"principal"`
	Interest          ComponentBalance `json:"interest"`
	Fees              ComponentBalance `json:"fees"`
	Penalties         ComponentBalance `json:"penalties"`
	ChargeDues        []ChargeDue      `json:"chargeDues,omitempty"`
	CreditedPrincipal money.Money      `json:"creditedPrincipal"`
	ObligationsMetOn  time.Time        `json:"obligationsMetOn,omitempty"`
	Completed         bool             `json:"completed"`
}

func newInstallment(c money.Currency, number int, from, due time.Time) Installment {
	return Installment{
		Number:            number,
		FromDate:          from,
		DueDate:           due,
		Principal:         zeroBalance(c),
		Interest:          zeroBalance(c),
		Fees:              zeroBalance(c),
		Penalties:         zeroBalance(c),
		CreditedPrincipal: money.Zero(c),
	}
}

func (i *Installment) Balance(c Component) *ComponentBalance {
	switch c {
	case ComponentPrincipal:
		return &i.Principal
	case ComponentInterest:
		return &i.Interest
	case ComponentFee:
		return &i.Fees
	default:
		return &i.Penalties
	}
}

func (i Installment) TotalDue() money.Money {
	return i.Principal.Due.Plus(i.Interest.Due).Plus(i.Fees.Due).Plus(i.Penalties.Due)
}

func (i Installment) TotalOutstanding() money.Money {
	return i.Principal.Outstanding().Plus(i.Interest.Outstanding()).Plus(i.Fees.Outstanding()).Plus(i.Penalties.Outstanding())
}

func (i Installment) IsOverdueOn(businessDate time.Time) bool {
	return i.DueDate.Before(truncateDate(businessDate)) && i.TotalOutstanding().IsGreaterThanZero()
}

func (i *Installment) addCharge(c Charge, amount money.Money) {
	i.ChargeDues = append(i.ChargeDues, ChargeDue{
		ChargeID: c.ID,
		Penalty:  c.Penalty,
		Due:      amount,
		Settled:  money.Zero(amount.Currency()),
	})
	if c.Penalty {
		i.Penalties.Due = i.Penalties.Due.Plus(amount)
		return
	}
	i.Fees.Due = i.Fees.Due.Plus(amount)
}

func (i *Installment) pay(c Component, amount money.Money) money.Money {
	applied := i.Balance(c).pay(amount)
	i.settleCharges(c, applied)
	return applied
}

func (i *Installment) waive(c Component, amount money.Money) money.Money {
	applied := i.Balance(c).waive(amount)
	i.settleCharges(c, applied)
	return applied
}

func (i *Installment) writeOff(c Component) money.Money {
	applied := i.Balance(c).writeOff()
	i.settleCharges(c, applied)
	return applied
}

// settleCharges spreads an amount applied to the fee or penalty balance over
// the charge dues of that component, oldest charge first.
func (i *Installment) settleCharges(c Component, amount money.Money) {
	for k := range i.ChargeDues {
		if !amount.IsGreaterThanZero() {
			return
		}
		d := &i.ChargeDues[k]
		if d.component() != c {
			continue
		}
		applied := amount.Min(d.Outstanding()).ZeroIfNegative()
		d.Settled = d.Settled.Plus(applied)
		amount = amount.Minus(applied)
	}
}

// payCharge pays only the dues of one charge and returns what it applied.
func (i *Installment) payCharge(chargeID int64, amount money.Money, portions *Portions) money.Money {
	applied := money.Zero(amount.Currency())
	for k := range i.ChargeDues {
		d := &i.ChargeDues[k]
		if d.ChargeID != chargeID {
			continue
		}
		part := amount.Minus(applied).Min(d.Outstanding()).ZeroIfNegative()
		part = i.Balance(d.component()).pay(part)
		d.Settled = d.Settled.Plus(part)
		portions.add(d.component(), part)
		applied = applied.Plus(part)
	}
	return applied
}

// updateCompletion flags the installment once nothing is outstanding and
// remembers the date that happened on.
func (i *Installment) updateCompletion(on time.Time) {
	done := i.TotalOutstanding().IsZero()
	if done && !i.Completed {
		i.ObligationsMetOn = on
	}
	if !done {
		i.ObligationsMetOn = time.Time{}
	}
	i.Completed = done
}

func (i *Installment) resetForReplay() {
	i.Principal.Due = i.Principal.Due.Minus(i.CreditedPrincipal)
	i.CreditedPrincipal = money.Zero(i.CreditedPrincipal.Currency())
	for _, c := range allComponents {
		i.Balance(c).reset()
	}
	for k := range i.ChargeDues {
		i.ChargeDues[k].Settled = money.Zero(i.ChargeDues[k].Due.Currency())
	}
	i.Completed = false
	i.ObligationsMetOn = time.Time{}
}

func (i Installment) checkConservation(loanID int64) error {
	for _, c := range allComponents {
		b := i.Balance(c)
		if b.Due.IsLessThanZero() || b.Paid.IsLessThanZero() || b.Waived.IsLessThanZero() || b.WrittenOff.IsLessThanZero() {
			return &ArithmeticInvariantError{LoanID: loanID, Installment: i.Number, Component: c, Detail: "negative balance"}
		}
		if b.Outstanding().IsLessThanZero() {
			return &ArithmeticInvariantError{
				LoanID: loanID, Installment: i.Number, Component: c,
				Detail: "paid + waived + writtenOff exceeds due " + b.Due.StringFixed(),
			}
		}
	}
	return nil
}

// Schedule is the ordered list of installments of a loan.
type Schedule struct {
	Currency                      money.Currency `json:"currency"`
	Installments                  []Installment  `json:"installments"`
	TotalFeeChargesAtDisbursement money.Money    `json:"totalFeeChargesAtDisbursement"`
}

func (s Schedule) Clone() Schedule {
	out := s
	out.Installments = append([]Installment(nil), s.Installments...)
	for i := range out.Installments {
		out.Installments[i].ChargeDues = append([]ChargeDue(nil), s.Installments[i].ChargeDues...)
	}
	return out
}

func (s Schedule) regularIndexes() []int {
	idx := make([]int, 0, len(s.Installments))
	for i, inst := range s.Installments {
		if !inst.DownPayment {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s Schedule) total(c Component, pick func(ComponentBalance) money.Money) money.Money {
	total := money.Zero(s.Currency)
	for i := range s.Installments {
		total = total.Plus(pick(*s.Installments[i].Balance(c)))
	}
	return total
}

func (s Schedule) TotalPrincipalDue() money.Money {
	return s.total(ComponentPrincipal, func(b ComponentBalance) money.Money { return b.Due })
}

func (s Schedule) TotalInterestDue() money.Money {
	return s.total(ComponentInterest, func(b ComponentBalance) money.Money { return b.Due })
}

func (s Schedule) TotalOutstanding() money.Money {
	total := money.Zero(s.Currency)
	for _, inst := range s.Installments {
		total = total.Plus(inst.TotalOutstanding())
	}
	return total
}

// ChargeOutstanding is what remains unsettled of one charge across the
// schedule.
func (s Schedule) ChargeOutstanding(chargeID int64) money.Money {
	total := money.Zero(s.Currency)
	for _, inst := range s.Installments {
		for _, d := range inst.ChargeDues {
			if d.ChargeID == chargeID {
				total = total.Plus(d.Outstanding())
			}
		}
	}
	return total
}

// installmentCovering returns the index of the first installment whose due
// date is on or after date, or the last installment.
func (s Schedule) installmentCovering(date time.Time) int {
	for i, inst := range s.Installments {
		if !inst.DueDate.Before(date) {
			return i
		}
	}
	return len(s.Installments) - 1
}

func (s Schedule) checkConservation(loanID int64) error {
	for _, inst := range s.Installments {
		if err := inst.checkConservation(loanID); err != nil {
			return err
		}
	}
	return nil
}
