package loan

import "time"

type Status string

const (
	StatusSubmitted            Status = "SUBMITTED_AND_PENDING_APPROVAL"
	StatusApproved             Status = "APPROVED"
	StatusActive               Status = "ACTIVE"
	StatusOverpaid             Status = "OVERPAID"
	StatusClosedObligationsMet Status = "CLOSED_OBLIGATIONS_MET"
	StatusClosedWrittenOff     Status = "CLOSED_WRITTEN_OFF"
	StatusClosedRescheduled    Status = "CLOSED_RESCHEDULED"
	StatusRejected             Status = "REJECTED"
	StatusWithdrawnByClient    Status = "WITHDRAWN_BY_CLIENT"
)

var AllStatuses = []Status{
	StatusSubmitted, StatusApproved, StatusActive, StatusOverpaid,
	StatusClosedObligationsMet, StatusClosedWrittenOff, StatusClosedRescheduled,
	StatusRejected, StatusWithdrawnByClient,
}

type Operation string

const (
	OpSubmit              Operation = "SUBMIT"
	OpModify              Operation = "MODIFY"
	OpDelete              Operation = "DELETE"
	OpApprove             Operation = "APPROVE"
	OpUndoApproval        Operation = "UNDO_APPROVAL"
	OpReject              Operation = "REJECT"
	OpWithdraw            Operation = "WITHDRAW"
	OpDisburse            Operation = "DISBURSE"
	OpUndoDisbursal       Operation = "UNDO_DISBURSAL"
	OpMakeRepayment       Operation = "MAKE_REPAYMENT"
	OpWaive               Operation = "WAIVE"
	OpWriteOff            Operation = "WRITE_OFF"
	OpAddCharge           Operation = "ADD_CHARGE"
	OpPayCharge           Operation = "PAY_CHARGE"
	OpAdjustCharge        Operation = "ADJUST_CHARGE"
	OpChargeback          Operation = "CHARGEBACK"
	OpCreditBalanceRefund Operation = "CREDIT_BALANCE_REFUND"
	OpAccrual             Operation = "ACCRUAL"
	OpAdjustTransaction   Operation = "ADJUST_TRANSACTION"
	OpReverseTransaction  Operation = "REVERSE_TRANSACTION"
	OpClose               Operation = "CLOSE"
	OpCloseAsRescheduled  Operation = "CLOSE_AS_RESCHEDULED"
)

var AllOperations = []Operation{
	OpModify, OpDelete, OpApprove, OpUndoApproval, OpReject, OpWithdraw,
	OpDisburse, OpUndoDisbursal, OpMakeRepayment, OpWaive, OpWriteOff,
	OpAddCharge, OpPayCharge, OpAdjustCharge, OpChargeback, OpCreditBalanceRefund,
	OpAccrual, OpAdjustTransaction, OpReverseTransaction, OpClose, OpCloseAsRescheduled,
}

// permitted lists every operation a status allows. Anything absent is
// rejected with a StateTransitionError.
var permitted = map[Status][]Operation{
	StatusSubmitted: {OpModify, OpDelete, OpApprove, OpReject, OpWithdraw, OpAddCharge},
	StatusApproved:  {OpUndoApproval, OpReject, OpWithdraw, OpDisburse, OpAddCharge},
	StatusActive: {
		OpDisburse, OpUndoDisbursal, OpMakeRepayment, OpWaive, OpWriteOff,
		OpAddCharge, OpPayCharge, OpAdjustCharge, OpChargeback, OpAccrual,
		OpAdjustTransaction, OpReverseTransaction, OpClose, OpCloseAsRescheduled,
	},
	StatusOverpaid:             {OpChargeback, OpCreditBalanceRefund, OpAdjustTransaction, OpReverseTransaction},
	StatusClosedObligationsMet: {OpChargeback, OpAdjustTransaction, OpReverseTransaction},
}

func (s Status) Permits(op Operation) bool {
	for _, p := range permitted[s] {
		if p == op {
			return true
		}
	}
	return false
}

func (s Status) IsClosed() bool {
	switch s {
	case StatusClosedObligationsMet, StatusClosedWrittenOff, StatusClosedRescheduled:
		return true
	}
	return false
}

// IsTerminal reports whether no operation at all is accepted any more.
func (s Status) IsTerminal() bool {
	return len(permitted[s]) == 0
}

func (s Status) valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (o Operation) postsTransaction() bool {
	switch o {
	case OpDisburse, OpMakeRepayment, OpWaive, OpWriteOff, OpPayCharge, OpAdjustCharge,
		OpChargeback, OpCreditBalanceRefund, OpAccrual, OpAdjustTransaction, OpReverseTransaction:
		return true
	}
	return false
}

// StatusChange records one lifecycle transition.
type StatusChange struct {
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	Operation Operation `json:"operation"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note,omitempty"`
}
