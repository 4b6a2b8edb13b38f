package loan

import (
	"fmt"
	"loan-engine/internal/pkg/money"
	"time"

	"github.com/shopspring/decimal"
)

// calcPrecision is the number of decimal places kept by intermediate rate
// and annuity arithmetic before results are rounded to the currency scale.
const calcPrecision = 20

type ScheduleOptions struct {
	FirstRepaymentDate      time.Time
	InterestChargedFromDate time.Time
}

type tranche struct {
	date      time.Time
	principal money.Money
}

// GenerateSchedule derives the repayment schedule of the given terms. With no
// disbursements the whole principal is assumed disbursed on the expected
// disbursement date; otherwise every tranche joins the amortized balance from
// the period after its date.
func GenerateSchedule(terms Terms, charges []Charge, disbursements []Disbursement, opts ScheduleOptions) (Schedule, error) {
	if err := terms.Validate(); err != nil {
		return Schedule{}, err
	}
	if err := validateCharges(charges); err != nil {
		return Schedule{}, err
	}
	tranches, err := resolveTranches(terms, disbursements)
	if err != nil {
		return Schedule{}, err
	}

	g := &generator{
		terms:    terms,
		currency: terms.Currency,
		tranches: tranches,
		opts:     opts,
	}
	if err := g.dueDates(); err != nil {
		return Schedule{}, err
	}
	schedule := g.generate()

	total := money.Zero(terms.Currency)
	for _, t := range tranches {
		total = total.Plus(t.principal)
		schedule.TotalFeeChargesAtDisbursement = schedule.TotalFeeChargesAtDisbursement.Plus(disbursementFees(terms.Currency, charges, t.principal))
	}
	applyCharges(&schedule, charges, total)

	if err := checkGenerated(schedule, total); err != nil {
		return Schedule{}, err
	}
	return schedule, nil
}

func resolveTranches(terms Terms, disbursements []Disbursement) ([]tranche, error) {
	if len(disbursements) == 0 {
		return []tranche{{date: truncateDate(terms.ExpectedDisbursementDate), principal: terms.Principal}}, nil
	}
	if len(disbursements) > 1 && !terms.MultiDisburse {
		return nil, newTermsError("disbursements", len(disbursements), "multiple tranches require a multi-disbursal loan")
	}

	total := money.Zero(terms.Currency)
	tranches := make([]tranche, 0, len(disbursements))
	for i, d := range disbursements {
		date := truncateDate(d.DisbursementDate())
		if date.IsZero() {
			return nil, newTermsError(fmt.Sprintf("disbursements[%d].expectedDate", i), "", "is required")
		}
		if d.Principal.Currency().Code != terms.Currency.Code {
			return nil, newTermsError(fmt.Sprintf("disbursements[%d].principal", i), d.Principal.String(), "principal currency differs from loan currency")
		}
		if !d.Principal.IsGreaterThanZero() {
			return nil, newTermsError(fmt.Sprintf("disbursements[%d].principal", i), d.Principal.StringFixed(), "must be greater than zero")
		}
		total = total.Plus(d.Principal)
		tranches = append(tranches, tranche{date: date, principal: d.Principal})
	}
	if total.IsGreaterThan(terms.Principal) {
		return nil, newTermsError("disbursements", total.StringFixed(), "exceed the approved principal "+terms.Principal.StringFixed())
	}
	for i := 1; i < len(tranches); i++ {
		for j := i; j > 0 && tranches[j].date.Before(tranches[j-1].date); j-- {
			tranches[j], tranches[j-1] = tranches[j-1], tranches[j]
		}
	}
	return tranches, nil
}

type generator struct {
	terms    Terms
	currency money.Currency
	tranches []tranche
	opts     ScheduleOptions
	due      []time.Time
}

func (g *generator) startDate() time.Time {
	return g.tranches[0].date
}

func (g *generator) dueDates() error {
	start := g.startDate()
	// due dates count from the first repayment date when given, else from the
	// disbursement date
	anchor, offset := truncateDate(g.opts.FirstRepaymentDate), 0
	if anchor.IsZero() {
		anchor, offset = start, 1
	} else if anchor.Before(start) {
		return newTermsError("firstRepaymentDate", anchor.Format(DateLayout), "must not be before the disbursement date "+start.Format(DateLayout))
	}

	g.due = make([]time.Time, g.terms.NumberOfRepayments)
	for k := range g.due {
		g.due[k] = addPeriods(anchor, g.terms.RepaymentFrequency, (k+offset)*g.terms.RepayEvery)
	}

	if from := truncateDate(g.opts.InterestChargedFromDate); !from.IsZero() {
		if from.Before(start) {
			return newTermsError("interestChargedFromDate", from.Format(DateLayout), "must not be before the disbursement date "+start.Format(DateLayout))
		}
		if from.After(g.due[0]) {
			return newTermsError("interestChargedFromDate", from.Format(DateLayout), "must not be after the first repayment date")
		}
	}

	// a tranche has to join the balance before the final period starts
	for _, t := range g.tranches[1:] {
		if t.date.Equal(start) {
			continue
		}
		if len(g.due) < 2 || t.date.After(g.due[len(g.due)-2]) {
			return newTermsError("disbursements", t.date.Format(DateLayout), "tranche must be disbursed before the last repayment period")
		}
	}
	return nil
}

func (g *generator) declining() bool {
	return g.terms.InterestMethod == InterestDecliningBalance
}

func (g *generator) daily() bool {
	return g.declining() && g.terms.InterestCalculationPeriodMethod == InterestPeriodDaily
}

func (g *generator) generate() Schedule {
	var (
		c         = g.currency
		schedule  = Schedule{Currency: c, TotalFeeChargesAtDisbursement: money.Zero(c)}
		n         = g.terms.NumberOfRepayments
		rate      = g.terms.PeriodicInterestRate()
		dailyRate = g.terms.DailyInterestRate()
		balance   = money.Zero(c)
		next      = 0
		number    = 0
	)

	take := func(upTo time.Time, strict bool) money.Money {
		added := money.Zero(c)
		for next < len(g.tranches) {
			t := g.tranches[next]
			if t.date.After(upTo) || (strict && t.date.Equal(upTo)) {
				break
			}
			added = added.Plus(t.principal)
			next++
		}
		return added
	}

	start := g.startDate()
	initial := take(start, false)
	balance = initial

	if g.terms.DownPaymentPercentage.IsPositive() {
		dp := money.New(c, initial.Amount().Mul(g.terms.DownPaymentPercentage).DivRound(hundred, calcPrecision))
		number++
		inst := newInstallment(c, number, start, start)
		inst.DownPayment = true
		inst.Principal.Due = dp
		schedule.Installments = append(schedule.Installments, inst)
		balance = balance.Minus(dp)
	}

	var (
		disbursed     = initial
		flatTotal     = initial.Amount().Mul(rate).Mul(decimal.NewFromInt(int64(n)))
		flatCharged   = money.Zero(c)
		emiExact      decimal.Decimal
		emi           money.Money
		slice         money.Money
		recalc        = true
		recalcs       = 0
		recalcBase    money.Money
		recalcPeriods int
		sinceRecalc   = money.Zero(c)
		partial       bool
		from          = start
	)

	for k := 1; k <= n; k++ {
		due := g.due[k-1]
		remaining := n - k + 1

		if k > 1 {
			if added := take(from, false); added.IsGreaterThanZero() {
				balance = balance.Plus(added)
				disbursed = disbursed.Plus(added)
				flatTotal = flatTotal.Add(added.Amount().Mul(rate).Mul(decimal.NewFromInt(int64(remaining))))
				recalc = true
			}
		}

		if recalc {
			if g.terms.AmortizationMethod == AmortizationEqualInstallments && g.declining() {
				emiExact = annuityPayment(balance.Amount(), rate, remaining)
				emi = money.New(c, emiExact).InMultiplesOf()
			} else {
				slice = balance.DividedBy(decimal.NewFromInt(int64(remaining)))
			}
			recalc = false
			recalcs++
			recalcBase = balance
			recalcPeriods = remaining
			sinceRecalc = money.Zero(c)
		}

		var interest money.Money
		switch {
		case !g.declining():
			if k == n {
				interest = money.New(c, flatTotal).Minus(flatCharged).ZeroIfNegative()
			} else {
				interest = disbursed.MultipliedBy(rate)
			}
			flatCharged = flatCharged.Plus(interest)
		case g.daily():
			accrueFrom := from
			if k == 1 && !g.opts.InterestChargedFromDate.IsZero() {
				accrueFrom = truncateDate(g.opts.InterestChargedFromDate)
			}
			interest = balance.MultipliedBy(dailyRate.Mul(decimal.NewFromInt(int64(daysBetween(accrueFrom, due)))))
		default:
			interest = balance.MultipliedBy(rate)
		}

		// tranches disbursed inside this period accrue from their own date
		inPeriod := money.Zero(c)
		for i := next; i < len(g.tranches) && g.tranches[i].date.Before(due); i++ {
			t := g.tranches[i]
			if g.daily() {
				interest = interest.Plus(t.principal.MultipliedBy(dailyRate.Mul(decimal.NewFromInt(int64(daysBetween(t.date, due))))))
				partial = true
			}
			inPeriod = inPeriod.Plus(t.principal)
		}

		var principal money.Money
		switch {
		case k == n:
			principal = balance
			if g.closedFormPlugApplies(recalcs, partial) {
				closed := money.New(c, emiExact.Mul(decimal.NewFromInt(int64(recalcPeriods))).Sub(recalcBase.Amount()))
				if plug := closed.Minus(sinceRecalc); !plug.IsLessThanZero() {
					interest = plug
				}
			}
		case g.terms.AmortizationMethod == AmortizationEqualInstallments && g.declining():
			principal = emi.Minus(interest).ZeroIfNegative().Min(balance)
		default:
			principal = slice.Min(balance)
		}

		number++
		inst := newInstallment(c, number, from, due)
		inst.Principal.Due = principal
		inst.Interest.Due = interest
		schedule.Installments = append(schedule.Installments, inst)

		balance = balance.Minus(principal)
		sinceRecalc = sinceRecalc.Plus(interest)
		if inPeriod.IsGreaterThanZero() {
			take(due, true)
			balance = balance.Plus(inPeriod)
			disbursed = disbursed.Plus(inPeriod)
			flatTotal = flatTotal.Add(inPeriod.Amount().Mul(rate).Mul(decimal.NewFromInt(int64(remaining - 1))))
			recalc = true
		}
		from = due
	}
	return schedule
}

// closedFormPlugApplies reports whether the last installment's interest can
// be set from the exact annuity so the total interest matches EMI*n - P.
func (g *generator) closedFormPlugApplies(recalcs int, partial bool) bool {
	return g.declining() &&
		g.terms.AmortizationMethod == AmortizationEqualInstallments &&
		g.terms.InterestCalculationPeriodMethod == InterestPeriodSameAsRepayment &&
		g.currency.InMultiplesOf <= 0 &&
		recalcs == 1 &&
		!partial
}

// annuityPayment returns P*r*(1+r)^n / ((1+r)^n - 1), or P/n at a zero rate.
func annuityPayment(principal, rate decimal.Decimal, periods int) decimal.Decimal {
	n := decimal.NewFromInt(int64(periods))
	if rate.IsZero() {
		return principal.DivRound(n, calcPrecision)
	}
	factor := one
	base := one.Add(rate)
	for i := 0; i < periods; i++ {
		factor = factor.Mul(base).Round(calcPrecision)
	}
	return principal.Mul(rate).Mul(factor).DivRound(factor.Sub(one), calcPrecision)
}

func checkGenerated(s Schedule, principal money.Money) error {
	for _, inst := range s.Installments {
		for _, c := range allComponents {
			if inst.Balance(c).Due.IsLessThanZero() {
				return &ArithmeticInvariantError{Installment: inst.Number, Component: c, Detail: "negative due " + inst.Balance(c).Due.StringFixed()}
			}
		}
	}
	if total := s.TotalPrincipalDue(); !total.IsEqualTo(principal) {
		return &ArithmeticInvariantError{
			Component: ComponentPrincipal,
			Detail:    fmt.Sprintf("scheduled principal %s differs from disbursed %s", total.StringFixed(), principal.StringFixed()),
		}
	}
	return nil
}
