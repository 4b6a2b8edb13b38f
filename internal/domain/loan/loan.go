package loan

import (
	"loan-engine/internal/pkg/money"
	"strings"
	"time"
)

// Loan is the aggregate root. Commands never mutate the receiver: they work
// on a clone and return it in the Result only when every step succeeded.
type Loan struct {
	ID                      int64          `json:"id"`
	ExternalID              string         `json:"externalId,omitempty"`
	ClientID                int64          `json:"clientId"`
	Status                  Status         `json:"status"`
	Terms                   Terms          `json:"terms"`
	Charges                 []Charge       `json:"charges"`
	Disbursements           []Disbursement `json:"disbursements"`
	Schedule                Schedule       `json:"schedule"`
	Transactions            []Transaction  `json:"transactions"`
	History                 []StatusChange `json:"history"`
	Strategy                string         `json:"strategy"`
	FirstRepaymentDate      time.Time      `json:"firstRepaymentDate,omitempty"`
	InterestChargedFromDate time.Time      `json:"interestChargedFromDate,omitempty"`
	SubmittedOn             time.Time      `json:"submittedOn"`
	ApprovedOn              time.Time      `json:"approvedOn,omitempty"`
	DisbursedOn             time.Time      `json:"disbursedOn,omitempty"`
	ClosedOn                time.Time      `json:"closedOn,omitempty"`
	Overpayment             money.Money    `json:"overpayment"`
	Version                 int64          `json:"version"`
	CreatedAt               time.Time      `json:"createdAt"`
	UpdatedAt               time.Time      `json:"updatedAt"`
}

// Submit creates a loan application and its initial schedule.
func Submit(cmd SubmitCommand, businessDate time.Time) (Result, error) {
	submittedOn := dateOr(cmd.SubmittedOn, businessDate)
	if submittedOn.After(truncateDate(businessDate)) {
		return Result{}, newTermsError("submittedOn", submittedOn.Format(DateLayout), "must not be in the future")
	}
	if _, err := StrategyByName(cmd.Strategy); err != nil {
		return Result{}, err
	}
	if !cmd.Terms.ExpectedDisbursementDate.IsZero() && truncateDate(cmd.Terms.ExpectedDisbursementDate).Before(submittedOn) {
		return Result{}, newTermsError("expectedDisbursementDate", cmd.Terms.ExpectedDisbursementDate.Format(DateLayout), "must not be before the submission date")
	}

	l := Loan{
		ExternalID:              cmd.ExternalID,
		ClientID:                cmd.ClientID,
		Status:                  StatusSubmitted,
		Terms:                   cmd.Terms,
		Charges:                 numberCharges(cmd.Charges),
		Strategy:                strategyName(cmd.Strategy),
		FirstRepaymentDate:      truncateDate(cmd.FirstRepaymentDate),
		InterestChargedFromDate: truncateDate(cmd.InterestChargedFromDate),
		SubmittedOn:             submittedOn,
		Overpayment:             money.Zero(cmd.Terms.Currency),
	}
	l.Terms.ExpectedDisbursementDate = truncateDate(l.Terms.ExpectedDisbursementDate)
	if err := l.regenerate(); err != nil {
		return Result{}, err
	}
	l.History = []StatusChange{{To: StatusSubmitted, Operation: OpSubmit, Date: submittedOn, Note: cmd.Note}}

	return Result{
		Outcome:   OutcomeChanged,
		Operation: OpSubmit,
		Loan:      l,
		Changes: Changes{
			"status":             l.Status,
			"principal":          l.Terms.Principal.StringFixed(),
			"numberOfRepayments": l.Terms.NumberOfRepayments,
			"submittedOn":        submittedOn.Format(DateLayout),
		},
	}, nil
}

// Modify replaces the terms of a pending application and regenerates its
// schedule. Identical input yields OutcomeNoChanges.
func (l Loan) Modify(cmd ModifyCommand) (Result, error) {
	if err := l.guard(OpModify); err != nil {
		return Result{}, err
	}
	if _, err := StrategyByName(cmd.Strategy); err != nil {
		return Result{}, err
	}

	changes := Changes{}
	terms := cmd.Terms
	terms.ExpectedDisbursementDate = truncateDate(terms.ExpectedDisbursementDate)
	if !terms.Equal(l.Terms) {
		changes["terms"] = terms
	}
	charges := numberCharges(cmd.Charges)
	if !chargesEqual(charges, l.Charges) {
		changes["charges"] = charges
	}
	if first := truncateDate(cmd.FirstRepaymentDate); !first.Equal(l.FirstRepaymentDate) {
		changes["firstRepaymentDate"] = first
	}
	if from := truncateDate(cmd.InterestChargedFromDate); !from.Equal(l.InterestChargedFromDate) {
		changes["interestChargedFromDate"] = from
	}
	if s := strategyName(cmd.Strategy); s != l.Strategy {
		changes["strategy"] = s
	}
	if len(changes) == 0 {
		return noChanges(l, OpModify), nil
	}
	if terms.ExpectedDisbursementDate.Before(l.SubmittedOn) {
		return Result{}, newTermsError("expectedDisbursementDate", terms.ExpectedDisbursementDate.Format(DateLayout), "must not be before the submission date")
	}

	next := l.clone()
	next.Terms = terms
	next.Charges = charges
	next.FirstRepaymentDate = truncateDate(cmd.FirstRepaymentDate)
	next.InterestChargedFromDate = truncateDate(cmd.InterestChargedFromDate)
	next.Strategy = strategyName(cmd.Strategy)
	next.Overpayment = money.Zero(terms.Currency)
	if err := next.regenerate(); err != nil {
		return Result{}, err
	}
	return changed(next, OpModify, changes), nil
}

// CheckDeletable reports whether the application may still be deleted.
func (l Loan) CheckDeletable() error {
	return l.guard(OpDelete)
}

func (l Loan) Approve(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkTransition(OpApprove, date, businessDate); err != nil {
		return Result{}, err
	}
	if date.Before(l.SubmittedOn) {
		return Result{}, l.transitionError(OpApprove, "approval date is before the submission date")
	}
	next := l.clone()
	next.ApprovedOn = date
	next.transition(StatusApproved, OpApprove, date, cmd.Note)
	return changed(next, OpApprove, Changes{"status": next.Status, "approvedOn": date.Format(DateLayout)}), nil
}

func (l Loan) UndoApproval(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkTransition(OpUndoApproval, date, businessDate); err != nil {
		return Result{}, err
	}
	next := l.clone()
	next.ApprovedOn = time.Time{}
	next.transition(StatusSubmitted, OpUndoApproval, date, cmd.Note)
	return changed(next, OpUndoApproval, Changes{"status": next.Status}), nil
}

func (l Loan) Reject(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	return l.closeApplication(OpReject, StatusRejected, cmd, businessDate)
}

func (l Loan) Withdraw(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	return l.closeApplication(OpWithdraw, StatusWithdrawnByClient, cmd, businessDate)
}

func (l Loan) closeApplication(op Operation, to Status, cmd TransitionCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkTransition(op, date, businessDate); err != nil {
		return Result{}, err
	}
	next := l.clone()
	next.ClosedOn = date
	next.transition(to, op, date, cmd.Note)
	return changed(next, op, Changes{"status": next.Status, "closedOn": date.Format(DateLayout)}), nil
}

// Disburse disburses the first or a further tranche and regenerates the
// schedule from the actual disbursements.
func (l Loan) Disburse(cmd DisburseCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkTransition(OpDisburse, date, businessDate); err != nil {
		return Result{}, err
	}
	if date.Before(l.ApprovedOn) {
		return Result{}, l.transitionError(OpDisburse, "disbursement date is before the approval date")
	}

	remaining := l.Terms.Principal.Minus(l.DisbursedPrincipal())
	if l.Status == StatusActive {
		if !l.Terms.MultiDisburse || !remaining.IsGreaterThanZero() {
			return Result{}, l.txError(TxDisbursement, date, cmd.Principal, "loan is fully disbursed")
		}
		if last := l.Disbursements[len(l.Disbursements)-1].DisbursementDate(); date.Before(last) {
			return Result{}, l.txError(TxDisbursement, date, cmd.Principal, "tranche date is before the previous tranche")
		}
	}
	principal := cmd.Principal
	if principal.IsZero() {
		principal = remaining
	}
	if err := l.checkAmount(TxDisbursement, date, principal); err != nil {
		return Result{}, err
	}
	if principal.IsGreaterThan(remaining) {
		return Result{}, l.txError(TxDisbursement, date, principal, "exceeds the undisbursed approved principal "+remaining.StringFixed())
	}

	net := principal.Minus(disbursementFees(l.Terms.Currency, l.Charges, principal))
	expected := date
	if len(l.Disbursements) == 0 {
		expected = l.Terms.ExpectedDisbursementDate
	}

	next := l.clone()
	next.Disbursements = append(next.Disbursements, Disbursement{
		ExpectedDate:       expected,
		ActualDate:         date,
		Principal:          principal,
		NetDisbursalAmount: net,
	})
	sortDisbursements(next.Disbursements)
	if err := next.regenerate(); err != nil {
		return Result{}, err
	}
	tx := next.addTransaction(Transaction{Type: TxDisbursement, Date: date, Amount: principal, Note: cmd.Note}, businessDate)
	if err := next.replay(); err != nil {
		return Result{}, err
	}
	if l.Status == StatusApproved {
		next.DisbursedOn = date
		next.transition(StatusActive, OpDisburse, date, cmd.Note)
	}
	return changedWith(next, OpDisburse, Changes{
		"status":             next.Status,
		"principal":          principal.StringFixed(),
		"netDisbursalAmount": net.StringFixed(),
		"disbursedOn":        date.Format(DateLayout),
	}, tx), nil
}

// UndoDisbursal returns an active loan with no activity besides its
// disbursements to APPROVED. The disbursement transactions stay on record,
// flagged reversed.
func (l Loan) UndoDisbursal(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkTransition(OpUndoDisbursal, date, businessDate); err != nil {
		return Result{}, err
	}
	for _, tx := range l.Transactions {
		if tx.Active() && tx.Type != TxDisbursement {
			return Result{}, l.transitionError(OpUndoDisbursal, "loan has transactions other than disbursements")
		}
	}

	next := l.clone()
	for i := range next.Transactions {
		if next.Transactions[i].Type == TxDisbursement && !next.Transactions[i].Reversed {
			next.Transactions[i].Reversed = true
			next.Transactions[i].ReversedOn = date
		}
	}
	next.Disbursements = nil
	next.DisbursedOn = time.Time{}
	if err := next.regenerate(); err != nil {
		return Result{}, err
	}
	if err := next.replay(); err != nil {
		return Result{}, err
	}
	next.transition(StatusApproved, OpUndoDisbursal, date, cmd.Note)
	return changed(next, OpUndoDisbursal, Changes{"status": next.Status}), nil
}

// MakeRepayment posts a repayment or another repayment-like credit.
func (l Loan) MakeRepayment(cmd CreditCommand, businessDate time.Time) (Result, error) {
	txType := cmd.Type
	if txType == "" {
		txType = TxRepayment
	}
	if err := l.guard(OpMakeRepayment); err != nil {
		return Result{}, err
	}
	if !txType.Valid() || !txType.IsRepaymentLike() {
		return Result{}, l.txError(txType, cmd.Date, cmd.Amount, "not a repayment type")
	}
	return l.post(OpMakeRepayment, Transaction{
		Type:       txType,
		Date:       dateOr(cmd.Date, businessDate),
		Amount:     cmd.Amount,
		ExternalID: cmd.ExternalID,
		Note:       cmd.Note,
	}, businessDate)
}

// Waive forgives part of the outstanding interest, principal or charges
// without any cash movement.
func (l Loan) Waive(cmd WaiveCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpWaive); err != nil {
		return Result{}, err
	}
	if !cmd.Type.Valid() || cmd.Type.effect() != effectWaiver {
		return Result{}, l.txError(cmd.Type, cmd.Date, cmd.Amount, "not a waiver type")
	}
	date := dateOr(cmd.Date, businessDate)
	outstanding := money.Zero(l.Terms.Currency)
	for _, inst := range l.Schedule.Installments {
		for _, c := range cmd.Type.waivedComponents() {
			outstanding = outstanding.Plus(inst.Balance(c).Outstanding())
		}
	}
	if cmd.Amount.Currency().Code == l.Terms.Currency.Code && cmd.Amount.IsGreaterThan(outstanding) {
		return Result{}, l.txError(cmd.Type, date, cmd.Amount, "exceeds the outstanding balance "+outstanding.StringFixed())
	}
	return l.post(OpWaive, Transaction{Type: cmd.Type, Date: date, Amount: cmd.Amount, Note: cmd.Note}, businessDate)
}

// WriteOff writes off everything outstanding and closes the loan.
func (l Loan) WriteOff(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpWriteOff); err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, businessDate)
	outstanding := l.Schedule.TotalOutstanding()
	if !outstanding.IsGreaterThanZero() {
		return Result{}, l.txError(TxWriteOff, date, outstanding, "nothing is outstanding")
	}
	if last := lastActiveDate(l.Transactions, AllTransactionTypes...); date.Before(last) {
		return Result{}, l.txError(TxWriteOff, date, outstanding, "write-off date is before the last transaction on "+last.Format(DateLayout))
	}
	res, err := l.post(OpWriteOff, Transaction{Type: TxWriteOff, Date: date, Amount: outstanding, Note: cmd.Note}, businessDate)
	if err != nil {
		return Result{}, err
	}
	res.Loan.ClosedOn = date
	res.Loan.transition(StatusClosedWrittenOff, OpWriteOff, date, cmd.Note)
	res.Changes["status"] = res.Loan.Status
	return res, nil
}

// AddCharge attaches a fee or penalty. Before disbursal the schedule is
// regenerated, afterwards the charge is resolved by replay.
func (l Loan) AddCharge(cmd AddChargeCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpAddCharge); err != nil {
		return Result{}, err
	}
	ch := cmd.Charge
	ch.DueDate = truncateDate(ch.DueDate)
	if err := ch.validate(len(l.Charges)); err != nil {
		return Result{}, err
	}
	if l.Status == StatusActive && ch.Time == ChargeAtDisbursement {
		return Result{}, newTermsError("charge.time", ch.Time, "disbursement charges can only be added before disbursal")
	}
	ch.ID = nextChargeID(l.Charges)

	next := l.clone()
	next.Charges = append(next.Charges, ch)
	if l.Status == StatusActive {
		if err := next.replay(); err != nil {
			return Result{}, err
		}
	} else if err := next.regenerate(); err != nil {
		return Result{}, err
	}
	return changed(next, OpAddCharge, Changes{"chargeId": ch.ID, "name": ch.Name, "amount": ch.Amount.String()}), nil
}

func (l Loan) PayCharge(cmd ChargeTransactionCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpPayCharge); err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, businessDate)
	ch, ok := findCharge(l.Charges, cmd.ChargeID)
	if !ok {
		return Result{}, l.txError(TxChargePayment, date, cmd.Amount, "unknown charge")
	}
	outstanding := l.Schedule.ChargeOutstanding(ch.ID)
	if cmd.Amount.Currency().Code == l.Terms.Currency.Code && cmd.Amount.IsGreaterThan(outstanding) {
		return Result{}, l.txError(TxChargePayment, date, cmd.Amount, "exceeds the outstanding charge "+outstanding.StringFixed())
	}
	return l.post(OpPayCharge, Transaction{
		Type: TxChargePayment, Date: date, Amount: cmd.Amount,
		ChargeID: ch.ID, ExternalID: cmd.ExternalID, Note: cmd.Note,
	}, businessDate)
}

func (l Loan) AdjustCharge(cmd ChargeTransactionCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpAdjustCharge); err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, businessDate)
	if _, ok := findCharge(l.Charges, cmd.ChargeID); !ok {
		return Result{}, l.txError(TxChargeAdjustment, date, cmd.Amount, "unknown charge")
	}
	return l.post(OpAdjustCharge, Transaction{
		Type: TxChargeAdjustment, Date: date, Amount: cmd.Amount,
		ChargeID: cmd.ChargeID, ExternalID: cmd.ExternalID, Note: cmd.Note,
	}, businessDate)
}

// Chargeback reverses cash previously credited by a repayment. It consumes
// any credit balance first and reinstates the rest as principal.
func (l Loan) Chargeback(cmd ChargebackCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpChargeback); err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, businessDate)
	orig, ok := l.transaction(cmd.TransactionID)
	if !ok || !orig.Active() || !orig.Type.IsRepaymentLike() {
		return Result{}, l.txError(TxChargeback, date, cmd.Amount, "chargeback must reference an active repayment")
	}
	if date.Before(orig.Date) {
		return Result{}, l.txError(TxChargeback, date, cmd.Amount, "chargeback date is before the repayment date")
	}
	available := orig.Amount
	for _, tx := range l.Transactions {
		if tx.Active() && tx.Type == TxChargeback && tx.ChargebackOf == orig.ID {
			available = available.Minus(tx.Amount)
		}
	}
	if cmd.Amount.Currency().Code == l.Terms.Currency.Code && cmd.Amount.IsGreaterThan(available) {
		return Result{}, l.txError(TxChargeback, date, cmd.Amount, "exceeds the amount left to charge back "+available.StringFixed())
	}
	return l.post(OpChargeback, Transaction{
		Type: TxChargeback, Date: date, Amount: cmd.Amount, ChargebackOf: orig.ID, Note: cmd.Note,
	}, businessDate)
}

// RefundCreditBalance pays out an overpayment credit.
func (l Loan) RefundCreditBalance(cmd AmountCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpCreditBalanceRefund); err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, businessDate)
	if cmd.Amount.Currency().Code == l.Terms.Currency.Code && cmd.Amount.IsGreaterThan(l.Overpayment) {
		return Result{}, l.txError(TxCreditBalanceRefund, date, cmd.Amount, "exceeds the credit balance "+l.Overpayment.StringFixed())
	}
	return l.post(OpCreditBalanceRefund, Transaction{
		Type: TxCreditBalanceRefund, Date: date, Amount: cmd.Amount, ExternalID: cmd.ExternalID, Note: cmd.Note,
	}, businessDate)
}

// RecordAccrual records recognized interest income. It does not move any
// installment balance.
func (l Loan) RecordAccrual(cmd AmountCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpAccrual); err != nil {
		return Result{}, err
	}
	return l.post(OpAccrual, Transaction{
		Type: TxAccrual, Date: dateOr(cmd.Date, businessDate), Amount: cmd.Amount, ExternalID: cmd.ExternalID, Note: cmd.Note,
	}, businessDate)
}

// AdjustTransaction reverses a transaction as of the business date and
// posts its replacement with the corrected amount. The replacement keeps
// the original date unless the command names another one.
func (l Loan) AdjustTransaction(cmd AdjustTransactionCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpAdjustTransaction); err != nil {
		return Result{}, err
	}
	orig, err := l.reversible(cmd.TransactionID, false)
	if err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, orig.Date)
	if !cmd.Amount.IsZero() {
		if err := l.checkTransactionDate(orig.Type, date, cmd.Amount, businessDate); err != nil {
			return Result{}, err
		}
		if err := l.checkAmount(orig.Type, date, cmd.Amount); err != nil {
			return Result{}, err
		}
	}

	next := l.clone()
	reversal := next.reverse(orig.ID, businessDate, cmd.Note)
	created := []Transaction{reversal}
	if !cmd.Amount.IsZero() {
		created = append(created, next.addTransaction(Transaction{
			Type:       orig.Type,
			Date:       date,
			Amount:     cmd.Amount,
			ChargeID:   orig.ChargeID,
			ExternalID: cmd.ExternalID,
			Note:       cmd.Note,
		}, businessDate))
	}
	if err := next.replay(); err != nil {
		return Result{}, err
	}
	next.syncStatus(OpAdjustTransaction, businessDate)
	changes := Changes{"reversedTransactionId": orig.ID, "amount": cmd.Amount.StringFixed(), "status": next.Status}
	return changedWith(next, OpAdjustTransaction, changes, created...), nil
}

// ReverseTransaction flags a transaction reversed and records the reversal.
func (l Loan) ReverseTransaction(cmd ReverseTransactionCommand, businessDate time.Time) (Result, error) {
	if err := l.guard(OpReverseTransaction); err != nil {
		return Result{}, err
	}
	orig, err := l.reversible(cmd.TransactionID, true)
	if err != nil {
		return Result{}, err
	}
	date := dateOr(cmd.Date, businessDate)
	if date.After(truncateDate(businessDate)) || date.Before(orig.Date) {
		return Result{}, l.txError(TxReversal, date, orig.Amount, "reversal date must lie between the transaction date and the business date")
	}

	next := l.clone()
	reversal := next.reverse(orig.ID, date, cmd.Note)
	if err := next.replay(); err != nil {
		return Result{}, err
	}
	next.syncStatus(OpReverseTransaction, date)
	return changedWith(next, OpReverseTransaction, Changes{"reversedTransactionId": orig.ID, "status": next.Status}, reversal), nil
}

// Close closes a loan whose outstanding balance is within the arrears
// tolerance.
func (l Loan) Close(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkClosing(OpClose, date, businessDate); err != nil {
		return Result{}, err
	}
	tolerance := money.Zero(l.Terms.Currency).Plus(l.Terms.InArrearsTolerance)
	if outstanding := l.Schedule.TotalOutstanding(); outstanding.IsGreaterThan(tolerance) {
		return Result{}, l.transitionError(OpClose, "outstanding balance "+outstanding.StringFixed()+" exceeds the tolerance "+tolerance.StringFixed())
	}
	next := l.clone()
	next.ClosedOn = date
	next.transition(StatusClosedObligationsMet, OpClose, date, cmd.Note)
	return changed(next, OpClose, Changes{"status": next.Status, "closedOn": date.Format(DateLayout)}), nil
}

// CloseAsRescheduled closes a loan replaced by a rescheduled one.
func (l Loan) CloseAsRescheduled(cmd TransitionCommand, businessDate time.Time) (Result, error) {
	date := dateOr(cmd.Date, businessDate)
	if err := l.checkClosing(OpCloseAsRescheduled, date, businessDate); err != nil {
		return Result{}, err
	}
	next := l.clone()
	next.ClosedOn = date
	next.transition(StatusClosedRescheduled, OpCloseAsRescheduled, date, cmd.Note)
	return changed(next, OpCloseAsRescheduled, Changes{"status": next.Status, "closedOn": date.Format(DateLayout)}), nil
}

// Summary derives the loan summary as seen on businessDate.
func (l Loan) Summary(businessDate time.Time) Summary {
	return DeriveSummary(l.Schedule, l.Transactions, l.Overpayment, l.Terms.InArrearsTolerance, businessDate)
}

// Rebuild regenerates the schedule and replays the transaction history. It
// restores the derived state of a loan loaded from storage.
func (l Loan) Rebuild() (Loan, error) {
	next := l.clone()
	if next.Overpayment.Currency().Code == "" {
		next.Overpayment = money.Zero(l.Terms.Currency)
	}
	if err := next.regenerate(); err != nil {
		return Loan{}, err
	}
	if err := next.replay(); err != nil {
		return Loan{}, err
	}
	return next, nil
}

func (l Loan) DisbursedPrincipal() money.Money {
	total := money.Zero(l.Terms.Currency)
	for _, d := range l.Disbursements {
		total = total.Plus(d.Principal)
	}
	return total
}

func (l Loan) ScheduleOptions() ScheduleOptions {
	return ScheduleOptions{FirstRepaymentDate: l.FirstRepaymentDate, InterestChargedFromDate: l.InterestChargedFromDate}
}

func (l Loan) clone() Loan {
	c := l
	c.Charges = append([]Charge(nil), l.Charges...)
	c.Disbursements = append([]Disbursement(nil), l.Disbursements...)
	c.Schedule = l.Schedule.Clone()
	c.Transactions = append([]Transaction(nil), l.Transactions...)
	c.History = append([]StatusChange(nil), l.History...)
	return c
}

func (l Loan) guard(op Operation) error {
	if !l.Status.Permits(op) {
		return &StateTransitionError{LoanID: l.ID, CurrentState: l.Status, Attempted: op}
	}
	return nil
}

func (l Loan) transitionError(op Operation, reason string) error {
	return &StateTransitionError{LoanID: l.ID, CurrentState: l.Status, Attempted: op, Reason: reason}
}

func (l Loan) txError(t TransactionType, date time.Time, amount money.Money, reason string) error {
	e := &TransactionError{LoanID: l.ID, Type: t, Date: date, Reason: reason}
	if amount.Currency().Code != "" {
		e.Amount = amount.StringFixed()
	}
	return e
}

func (l Loan) lastTransitionDate() time.Time {
	if len(l.History) == 0 {
		return time.Time{}
	}
	return l.History[len(l.History)-1].Date
}

// checkTransition guards op and validates its effective date against the
// business date and the previous transition.
func (l Loan) checkTransition(op Operation, date, businessDate time.Time) error {
	if err := l.guard(op); err != nil {
		return err
	}
	if date.After(truncateDate(businessDate)) {
		return l.transitionError(op, "date "+date.Format(DateLayout)+" is in the future")
	}
	if last := l.lastTransitionDate(); date.Before(last) {
		return l.transitionError(op, "date "+date.Format(DateLayout)+" is before the previous transition on "+last.Format(DateLayout))
	}
	return nil
}

func (l Loan) checkClosing(op Operation, date, businessDate time.Time) error {
	if err := l.checkTransition(op, date, businessDate); err != nil {
		return err
	}
	if last := lastActiveDate(l.Transactions, AllTransactionTypes...); date.Before(last) {
		return l.transitionError(op, "date "+date.Format(DateLayout)+" is before the last transaction on "+last.Format(DateLayout))
	}
	return nil
}

func (l Loan) checkTransactionDate(t TransactionType, date time.Time, amount money.Money, businessDate time.Time) error {
	switch {
	case date.IsZero():
		return l.txError(t, date, amount, "transaction date is required")
	case date.After(truncateDate(businessDate)):
		return l.txError(t, date, amount, "transaction date is in the future")
	case t != TxDisbursement && date.Before(l.DisbursedOn):
		return l.txError(t, date, amount, "transaction date is before the disbursement date "+l.DisbursedOn.Format(DateLayout))
	}
	return nil
}

func (l Loan) checkAmount(t TransactionType, date time.Time, amount money.Money) error {
	if amount.Currency().Code != l.Terms.Currency.Code {
		return &TransactionError{LoanID: l.ID, Type: t, Date: date, Amount: amount.String(), Reason: "currency differs from loan currency " + l.Terms.Currency.Code}
	}
	if !amount.IsGreaterThanZero() {
		return l.txError(t, date, amount, "amount must be greater than zero")
	}
	return nil
}

// post validates and appends a transaction, then replays the history.
func (l Loan) post(op Operation, tx Transaction, businessDate time.Time) (Result, error) {
	tx.Date = truncateDate(tx.Date)
	if err := l.checkTransactionDate(tx.Type, tx.Date, tx.Amount, businessDate); err != nil {
		return Result{}, err
	}
	if err := l.checkAmount(tx.Type, tx.Date, tx.Amount); err != nil {
		return Result{}, err
	}
	next := l.clone()
	created := next.addTransaction(tx, businessDate)
	if err := next.replay(); err != nil {
		return Result{}, err
	}
	next.syncStatus(op, tx.Date)
	for _, t := range next.Transactions {
		if t.ID == created.ID {
			created = t
		}
	}
	return changedWith(next, op, Changes{
		"transactionId": created.ID,
		"type":          created.Type,
		"date":          created.Date.Format(DateLayout),
		"amount":        created.Amount.StringFixed(),
		"status":        next.Status,
	}, created), nil
}

func (l *Loan) addTransaction(tx Transaction, businessDate time.Time) Transaction {
	var maxID int64
	for _, t := range l.Transactions {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	tx.ID = maxID + 1
	tx.Date = truncateDate(tx.Date)
	tx.SubmittedOn = truncateDate(businessDate)
	tx.resetPortions()
	l.Transactions = append(l.Transactions, tx)
	return tx
}

func (l *Loan) reverse(id int64, on time.Time, note string) Transaction {
	var orig Transaction
	for i := range l.Transactions {
		if l.Transactions[i].ID == id {
			l.Transactions[i].Reversed = true
			l.Transactions[i].ReversedOn = truncateDate(on)
			orig = l.Transactions[i]
		}
	}
	return l.addTransaction(Transaction{Type: TxReversal, Date: on, Amount: orig.Amount, ReversalOf: id, Note: note}, on)
}

func (l Loan) transaction(id int64) (Transaction, bool) {
	for _, tx := range l.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// reversible returns the transaction if it may be reversed. Chargebacks and
// credit balance refunds may be reversed but not adjusted.
func (l Loan) reversible(id int64, reverseOnly bool) (Transaction, error) {
	tx, ok := l.transaction(id)
	if !ok {
		return Transaction{}, &TransactionError{LoanID: l.ID, TransactionID: id, Type: TxReversal, Reason: "transaction not found"}
	}
	fail := func(reason string) error {
		return &TransactionError{LoanID: l.ID, TransactionID: id, Type: tx.Type, Date: tx.Date, Amount: tx.Amount.StringFixed(), Reason: reason}
	}
	if !tx.Active() {
		return Transaction{}, fail("transaction is already reversed")
	}
	switch tx.Type.effect() {
	case effectCredit, effectChargeCredit, effectWaiver:
	case effectChargeback, effectCreditRefund:
		if !reverseOnly {
			return Transaction{}, fail("transaction type cannot be adjusted")
		}
	default:
		if tx.Type != TxAccrual {
			return Transaction{}, fail("transaction type cannot be reversed")
		}
	}
	for _, other := range l.Transactions {
		if other.Active() && other.Type == TxChargeback && other.ChargebackOf == id {
			return Transaction{}, fail("transaction has an active chargeback")
		}
	}
	return tx, nil
}

func (l *Loan) regenerate() error {
	schedule, err := GenerateSchedule(l.Terms, l.Charges, l.Disbursements, l.ScheduleOptions())
	if err != nil {
		return err
	}
	l.Schedule = schedule
	return nil
}

func (l *Loan) replay() error {
	strategy, err := StrategyByName(l.Strategy)
	if err != nil {
		return err
	}
	res, err := Replay(l.ID, l.Schedule, l.Charges, l.Transactions, strategy)
	if err != nil {
		return err
	}
	l.Schedule = res.Schedule
	l.Transactions = res.Transactions
	l.Overpayment = res.Overpayment
	return nil
}

// syncStatus moves between ACTIVE, OVERPAID and CLOSED_OBLIGATIONS_MET as the
// replayed balances require. A loan that reaches a zero balance stays ACTIVE
// until Close is called, however it got there.
func (l *Loan) syncStatus(op Operation, date time.Time) {
	var to Status
	switch l.Status {
	case StatusActive:
		if l.Overpayment.IsGreaterThanZero() {
			to = StatusOverpaid
		}
	case StatusOverpaid:
		if !l.Overpayment.IsGreaterThanZero() {
			to = StatusActive
		}
	case StatusClosedObligationsMet:
		switch {
		case l.Overpayment.IsGreaterThanZero():
			to = StatusOverpaid
		case l.Schedule.TotalOutstanding().IsGreaterThanZero():
			to = StatusActive
		}
	}
	if to == "" || to == l.Status {
		return
	}
	if to == StatusActive {
		l.ClosedOn = time.Time{}
	} else {
		l.ClosedOn = date
	}
	l.transition(to, op, date, "")
}

func (l *Loan) transition(to Status, op Operation, date time.Time, note string) {
	l.History = append(l.History, StatusChange{From: l.Status, To: to, Operation: op, Date: date, Note: note})
	l.Status = to
}

func changed(l Loan, op Operation, changes Changes) Result {
	return Result{Outcome: OutcomeChanged, Operation: op, Loan: l, Changes: changes}
}

func changedWith(l Loan, op Operation, changes Changes, txs ...Transaction) Result {
	r := changed(l, op, changes)
	r.Transactions = txs
	return r
}

func dateOr(d, fallback time.Time) time.Time {
	if d.IsZero() {
		return truncateDate(fallback)
	}
	return truncateDate(d)
}

func strategyName(name string) string {
	if name == "" {
		return DefaultStrategy
	}
	return strings.ToLower(name)
}

func numberCharges(charges []Charge) []Charge {
	out := make([]Charge, len(charges))
	for i, c := range charges {
		c.DueDate = truncateDate(c.DueDate)
		if c.ID == 0 {
			c.ID = int64(i + 1)
		}
		out[i] = c
	}
	return out
}

func nextChargeID(charges []Charge) int64 {
	var maxID int64
	for _, c := range charges {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	return maxID + 1
}

func chargesEqual(a, b []Charge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ChargeDefinitionID != y.ChargeDefinitionID || x.Name != y.Name || x.Time != y.Time ||
			x.Calculation != y.Calculation || !x.Amount.Equal(y.Amount) || !x.DueDate.Equal(y.DueDate) || x.Penalty != y.Penalty {
			return false
		}
	}
	return true
}
