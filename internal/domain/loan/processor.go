package loan

import (
	"loan-engine/internal/pkg/money"
	"time"
)

// ReplayResult is the state derived from replaying a transaction history.
type ReplayResult struct {
	Schedule     Schedule
	Transactions []Transaction
	Overpayment  money.Money
}

// Replay resets the schedule and reprocesses every active transaction in
// (date, id) order. Inputs are not modified.
func Replay(loanID int64, schedule Schedule, charges []Charge, transactions []Transaction, strategy AllocationStrategy) (ReplayResult, error) {
	s := schedule.Clone()
	for i := range s.Installments {
		s.Installments[i].resetForReplay()
	}
	applyCharges(&s, charges, s.TotalPrincipalDue())

	txs := append([]Transaction(nil), transactions...)
	p := processor{
		loanID:   loanID,
		schedule: &s,
		strategy: strategy,
		credit:   money.Zero(s.Currency),
	}
	for _, i := range replayOrder(txs) {
		tx := &txs[i]
		tx.resetPortions()
		if !tx.Active() {
			continue
		}
		if err := p.apply(tx); err != nil {
			return ReplayResult{}, err
		}
		for j := range s.Installments {
			s.Installments[j].updateCompletion(tx.Date)
		}
	}
	if err := s.checkConservation(loanID); err != nil {
		return ReplayResult{}, err
	}
	return ReplayResult{Schedule: s, Transactions: txs, Overpayment: p.credit}, nil
}

type processor struct {
	loanID   int64
	schedule *Schedule
	strategy AllocationStrategy
	credit   money.Money
}

func (p *processor) apply(tx *Transaction) error {
	insts := p.schedule.Installments
	switch tx.Type.effect() {
	case effectCredit:
		portions, rest := p.strategy.Allocate(insts, tx.Amount)
		tx.Portions = portions
		p.overpay(tx, rest)

	case effectChargeCredit:
		rest := tx.Amount
		for i := range insts {
			if !rest.IsGreaterThanZero() {
				break
			}
			rest = rest.Minus(insts[i].payCharge(tx.ChargeID, rest, &tx.Portions))
		}
		if rest.IsGreaterThanZero() {
			portions, left := p.strategy.Allocate(insts, rest)
			tx.Portions = sumPortions(tx.Portions, portions)
			rest = left
		}
		p.overpay(tx, rest)

	case effectWaiver:
		rest := waiveComponents(insts, tx.Amount, &tx.Portions, tx.Type.waivedComponents()...)
		if rest.IsGreaterThanZero() {
			return p.reject(tx, "amount exceeds the outstanding balance it waives by "+rest.StringFixed())
		}

	case effectWriteOff:
		for i := range insts {
			for _, c := range allComponents {
				tx.Portions.add(c, insts[i].writeOff(c))
			}
		}

	case effectChargeback:
		fromCredit := tx.Amount.Min(p.credit)
		p.credit = p.credit.Minus(fromCredit)
		tx.Overpayment = fromCredit
		if rest := tx.Amount.Minus(fromCredit); rest.IsGreaterThanZero() {
			inst := &insts[p.schedule.installmentCovering(tx.Date)]
			inst.Principal.Due = inst.Principal.Due.Plus(rest)
			inst.CreditedPrincipal = inst.CreditedPrincipal.Plus(rest)
			tx.Portions.Principal = rest
		}

	case effectCreditRefund:
		if tx.Amount.IsGreaterThan(p.credit) {
			return p.reject(tx, "amount exceeds the available credit balance "+p.credit.StringFixed())
		}
		p.credit = p.credit.Minus(tx.Amount)
		tx.Overpayment = tx.Amount

	case effectNone:
		if tx.Type == TxAccrual {
			tx.Portions.Interest = tx.Amount
		}
	}
	return nil
}

func (p *processor) overpay(tx *Transaction, rest money.Money) {
	if rest.IsGreaterThanZero() {
		tx.Overpayment = rest
		p.credit = p.credit.Plus(rest)
	}
}

func (p *processor) reject(tx *Transaction, reason string) error {
	return &TransactionError{
		LoanID:        p.loanID,
		TransactionID: tx.ID,
		Type:          tx.Type,
		Date:          tx.Date,
		Amount:        tx.Amount.StringFixed(),
		Reason:        reason,
	}
}

func sumPortions(a, b Portions) Portions {
	return Portions{
		Principal: a.Principal.Plus(b.Principal),
		Interest:  a.Interest.Plus(b.Interest),
		Fees:      a.Fees.Plus(b.Fees),
		Penalties: a.Penalties.Plus(b.Penalties),
	}
}

func findCharge(charges []Charge, id int64) (Charge, bool) {
	for _, c := range charges {
		if c.ID == id {
			return c, true
		}
	}
	return Charge{}, false
}

// lastActiveDate returns the latest date among active transactions of the
// given types, or the zero time.
func lastActiveDate(txs []Transaction, types ...TransactionType) time.Time {
	var last time.Time
	for _, tx := range txs {
		if !tx.Active() {
			continue
		}
		for _, t := range types {
			if tx.Type == t && tx.Date.After(last) {
				last = tx.Date
			}
		}
	}
	return last
}
