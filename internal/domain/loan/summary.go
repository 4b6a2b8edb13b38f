package loan

import (
	"encoding/json"
	"loan-engine/internal/pkg/money"
	"time"

	"github.com/shopspring/decimal"
)

type ComponentSummary struct {
	Due         money.Money `json:"due"`
	Paid        money.Money `json:"paid"`
	Waived      money.Money `json:"waived"`
	WrittenOff  money.Money `json:"writtenOff"`
	Outstanding money.Money `json:"outstanding"`
	Overdue     money.Money `json:"overdue"`
}

func zeroComponentSummary(c money.Currency) ComponentSummary {
	z := money.Zero(c)
	return ComponentSummary{Due: z, Paid: z, Waived: z, WrittenOff: z, Outstanding: z, Overdue: z}
}

func (cs *ComponentSummary) add(b ComponentBalance, overdue bool) {
	cs.Due = cs.Due.Plus(b.Due)
	cs.Paid = cs.Paid.Plus(b.Paid)
	cs.Waived = cs.Waived.Plus(b.Waived)
	cs.WrittenOff = cs.WrittenOff.Plus(b.WrittenOff)
	cs.Outstanding = cs.Outstanding.Plus(b.Outstanding())
	if overdue {
		cs.Overdue = cs.Overdue.Plus(b.Outstanding())
	}
}

func (cs ComponentSummary) in(c money.Currency) ComponentSummary {
	return ComponentSummary{
		Due:         cs.Due.In(c),
		Paid:        cs.Paid.In(c),
		Waived:      cs.Waived.In(c),
		WrittenOff:  cs.WrittenOff.In(c),
		Outstanding: cs.Outstanding.In(c),
		Overdue:     cs.Overdue.In(c),
	}
}

// TypeTotals splits the cumulative amount of one transaction type into
// active and reversed transactions.
type TypeTotals struct {
	Active   money.Money `json:"active"`
	Reversed money.Money `json:"reversed"`
}

type Summary struct {
	Currency     money.Currency `json:"currency"`
	BusinessDate time.Time      `json:"businessDate"`

	Principal ComponentSummary `json:"principal"`
	Interest  ComponentSummary `json:"interest"`
	Fees      ComponentSummary `json:"fees"`
	Penalties ComponentSummary `json:"penalties"`

	TotalExpectedRepayment        money.Money `json:"totalExpectedRepayment"`
	TotalRepaid                   money.Money `json:"totalRepaid"`
	TotalWaived                   money.Money `json:"totalWaived"`
	TotalWrittenOff               money.Money `json:"totalWrittenOff"`
	TotalOutstanding              money.Money `json:"totalOutstanding"`
	TotalOverdue                  money.Money `json:"totalOverdue"`
	TotalOverpaid                 money.Money `json:"totalOverpaid"`
	TotalFeeChargesAtDisbursement money.Money `json:"totalFeeChargesAtDisbursement"`

	UnpaidPayableDueInterest    money.Money `json:"unpaidPayableDueInterest"`
	UnpaidPayableNotDueInterest money.Money `json:"unpaidPayableNotDueInterest"`

	OverdueSinceDate *time.Time `json:"overdueSinceDate"`
	InArrears        bool       `json:"inArrears"`
	DaysInArrears    int        `json:"daysInArrears"`

	TransactionTotals map[TransactionType]TypeTotals `json:"transactionTotals"`
}

// DeriveSummary aggregates the replayed schedule and transactions as seen on
// businessDate. It is a pure function of its arguments.
func DeriveSummary(schedule Schedule, transactions []Transaction, overpayment, tolerance money.Money, businessDate time.Time) Summary {
	c := schedule.Currency
	on := truncateDate(businessDate)
	sum := Summary{
		Currency:                      c,
		BusinessDate:                  on,
		Principal:                     zeroComponentSummary(c),
		Interest:                      zeroComponentSummary(c),
		Fees:                          zeroComponentSummary(c),
		Penalties:                     zeroComponentSummary(c),
		TotalOverpaid:                 money.Zero(c).Plus(overpayment),
		TotalFeeChargesAtDisbursement: money.Zero(c).Plus(schedule.TotalFeeChargesAtDisbursement),
		UnpaidPayableDueInterest:      money.Zero(c),
		UnpaidPayableNotDueInterest:   money.Zero(c),
		TransactionTotals:             transactionTotals(c, transactions),
	}

	for _, inst := range schedule.Installments {
		overdue := inst.IsOverdueOn(on)
		sum.Principal.add(inst.Principal, overdue)
		sum.Interest.add(inst.Interest, overdue)
		sum.Fees.add(inst.Fees, overdue)
		sum.Penalties.add(inst.Penalties, overdue)

		if overdue && sum.OverdueSinceDate == nil {
			due := inst.DueDate
			sum.OverdueSinceDate = &due
		}
		if inst.DownPayment {
			continue
		}
		if !inst.DueDate.After(on) {
			sum.UnpaidPayableDueInterest = sum.UnpaidPayableDueInterest.Plus(inst.Interest.Outstanding())
		} else if !inst.FromDate.After(on) {
			sum.UnpaidPayableNotDueInterest = sum.UnpaidPayableNotDueInterest.Plus(accruedNotDueInterest(inst, on))
		}
	}

	parts := []ComponentSummary{sum.Principal, sum.Interest, sum.Fees, sum.Penalties}
	sum.TotalExpectedRepayment = money.Zero(c)
	sum.TotalRepaid = money.Zero(c)
	sum.TotalWaived = money.Zero(c)
	sum.TotalWrittenOff = money.Zero(c)
	sum.TotalOutstanding = money.Zero(c)
	sum.TotalOverdue = money.Zero(c)
	for _, p := range parts {
		sum.TotalExpectedRepayment = sum.TotalExpectedRepayment.Plus(p.Due)
		sum.TotalRepaid = sum.TotalRepaid.Plus(p.Paid)
		sum.TotalWaived = sum.TotalWaived.Plus(p.Waived)
		sum.TotalWrittenOff = sum.TotalWrittenOff.Plus(p.WrittenOff)
		sum.TotalOutstanding = sum.TotalOutstanding.Plus(p.Outstanding)
		sum.TotalOverdue = sum.TotalOverdue.Plus(p.Overdue)
	}

	if sum.OverdueSinceDate != nil && sum.TotalOverdue.IsGreaterThan(money.Zero(c).Plus(tolerance)) {
		sum.InArrears = true
		sum.DaysInArrears = daysBetween(*sum.OverdueSinceDate, on)
	}
	return sum
}

// accruedNotDueInterest apportions the installment interest evenly over the
// calendar days of the period and subtracts what is already settled.
func accruedNotDueInterest(inst Installment, on time.Time) money.Money {
	periodDays := daysBetween(inst.FromDate, inst.DueDate)
	if periodDays <= 0 {
		return money.Zero(inst.Interest.Due.Currency())
	}
	elapsed := decimal.NewFromInt(int64(daysBetween(inst.FromDate, on)))
	accrued := inst.Interest.Due.WithAmount(
		inst.Interest.Due.Amount().Mul(elapsed).DivRound(decimal.NewFromInt(int64(periodDays)), calcPrecision),
	)
	settled := inst.Interest.Paid.Plus(inst.Interest.Waived).Plus(inst.Interest.WrittenOff)
	return accrued.Minus(settled).ZeroIfNegative()
}

func transactionTotals(c money.Currency, transactions []Transaction) map[TransactionType]TypeTotals {
	totals := make(map[TransactionType]TypeTotals)
	for _, tx := range transactions {
		if tx.Type == TxReversal {
			continue
		}
		t, ok := totals[tx.Type]
		if !ok {
			t = TypeTotals{Active: money.Zero(c), Reversed: money.Zero(c)}
		}
		if tx.Reversed {
			t.Reversed = t.Reversed.Plus(tx.Amount)
		} else {
			t.Active = t.Active.Plus(tx.Amount)
		}
		totals[tx.Type] = t
	}
	return totals
}

// Total returns the active total of one transaction type.
func (s Summary) Total(t TransactionType) money.Money {
	if tt, ok := s.TransactionTotals[t]; ok {
		return tt.Active
	}
	return money.Zero(s.Currency)
}

// UnmarshalJSON decodes a summary and binds every amount to its currency.
func (s *Summary) UnmarshalJSON(b []byte) error {
	type plain Summary
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	c := p.Currency
	p.Principal = p.Principal.in(c)
	p.Interest = p.Interest.in(c)
	p.Fees = p.Fees.in(c)
	p.Penalties = p.Penalties.in(c)
	for _, m := range []*money.Money{
		&p.TotalExpectedRepayment, &p.TotalRepaid, &p.TotalWaived, &p.TotalWrittenOff,
		&p.TotalOutstanding, &p.TotalOverdue, &p.TotalOverpaid, &p.TotalFeeChargesAtDisbursement,
		&p.UnpaidPayableDueInterest, &p.UnpaidPayableNotDueInterest,
	} {
		*m = m.In(c)
	}
	for t, tt := range p.TransactionTotals {
		p.TransactionTotals[t] = TypeTotals{Active: tt.Active.In(c), Reversed: tt.Reversed.In(c)}
	}
	*s = Summary(p)
	return nil
}
