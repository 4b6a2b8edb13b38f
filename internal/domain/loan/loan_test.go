package loan

import (
	"errors"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var businessDate = Date(2024, time.June, 30)

func submitted(t *testing.T, terms Terms) Loan {
	t.Helper()
	res, err := Submit(SubmitCommand{Terms: terms, SubmittedOn: Date(2024, time.January, 1)}, businessDate)
	require.NoError(t, err)
	return res.Loan
}

func disbursed(t *testing.T, terms Terms) Loan {
	t.Helper()
	l := submitted(t, terms)
	res, err := l.Approve(TransitionCommand{Date: Date(2024, time.January, 1)}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.January, 1)}, businessDate)
	require.NoError(t, err)
	return res.Loan
}

func TestSubmit(t *testing.T) {
	res, err := Submit(SubmitCommand{Terms: monthlyTerms("12000", 12, 12), Note: "new"}, Date(2024, time.January, 1))
	require.NoError(t, err)

	l := res.Loan
	assert.Equal(t, OutcomeChanged, res.Outcome)
	assert.Equal(t, StatusSubmitted, l.Status)
	assert.Equal(t, DefaultStrategy, l.Strategy)
	assert.Len(t, l.Schedule.Installments, 12)
	assert.Equal(t, "12000.00", res.Changes["principal"])
	require.Len(t, l.History, 1)
	assert.Equal(t, OpSubmit, l.History[0].Operation)

	_, err = Submit(SubmitCommand{Terms: monthlyTerms("12000", 12, 12), Strategy: "lifo"}, Date(2024, time.January, 1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTerms)

	_, err = Submit(SubmitCommand{Terms: monthlyTerms("12000", 12, 12)}, Date(2024, time.February, 1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTerms, "expected disbursement before submission")
}

func TestModify(t *testing.T) {
	l := submitted(t, monthlyTerms("12000", 12, 12))

	res, err := l.Modify(ModifyCommand{Terms: l.Terms})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	assert.False(t, res.Changed())

	terms := l.Terms
	terms.NumberOfRepayments = 6
	res, err = l.Modify(ModifyCommand{Terms: terms})
	require.NoError(t, err)
	assert.True(t, res.Changed())
	assert.Contains(t, res.Changes, "terms")
	assert.Len(t, res.Loan.Schedule.Installments, 6)
	assert.Len(t, l.Schedule.Installments, 12, "receiver must stay untouched")
}

func TestLifecycle_HappyPath(t *testing.T) {
	l := submitted(t, monthlyTerms("1000", 12, 3))

	res, err := l.Approve(TransitionCommand{Date: Date(2024, time.January, 2)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Loan.Status)

	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.January, 2)}, businessDate)
	require.NoError(t, err)
	l = res.Loan
	assert.Equal(t, StatusActive, l.Status)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, TxDisbursement, res.Transactions[0].Type)
	assert.Equal(t, Date(2024, time.February, 2), l.Schedule.Installments[0].DueDate)

	for _, inst := range l.Schedule.Installments {
		res, err = l.MakeRepayment(CreditCommand{Date: inst.DueDate, Amount: inst.TotalDue()}, businessDate)
		require.NoError(t, err)
		l = res.Loan
	}
	assert.True(t, l.Schedule.TotalOutstanding().IsZero())
	assert.Equal(t, StatusActive, l.Status)

	res, err = l.Close(TransitionCommand{Date: Date(2024, time.April, 2)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusClosedObligationsMet, res.Loan.Status)
	assert.Equal(t, Date(2024, time.April, 2), res.Loan.ClosedOn)

	var statuses []Status
	for _, h := range res.Loan.History {
		statuses = append(statuses, h.To)
	}
	assert.Equal(t, []Status{StatusSubmitted, StatusApproved, StatusActive, StatusClosedObligationsMet}, statuses)
}

func TestDisburse_FromSubmittedFails(t *testing.T) {
	l := submitted(t, monthlyTerms("12000", 12, 12))

	_, err := l.Disburse(DisburseCommand{Date: Date(2024, time.January, 1)}, businessDate)

	var stErr *StateTransitionError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, StatusSubmitted, stErr.CurrentState)
	assert.Equal(t, OpDisburse, stErr.Attempted)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)
}

func TestDisburse_NetOfFeesAndBeforeApproval(t *testing.T) {
	terms := monthlyTerms("12000", 12, 12)
	l := submitted(t, terms)
	res, err := l.AddCharge(AddChargeCommand{Charge: Charge{
		Name: "processing", Time: ChargeAtDisbursement, Calculation: ChargePercentOfAmount, Amount: decimal.NewFromInt(1),
	}}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Changes["chargeId"])

	res, err = res.Loan.Approve(TransitionCommand{Date: Date(2024, time.January, 5)}, businessDate)
	require.NoError(t, err)

	_, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.January, 4)}, businessDate)
	var stErr *StateTransitionError
	require.ErrorAs(t, err, &stErr)
	assert.NotEmpty(t, stErr.Reason)

	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.January, 5)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "11880.00", res.Loan.Disbursements[0].NetDisbursalAmount.StringFixed())
	assert.Equal(t, "120.00", res.Loan.Summary(businessDate).TotalFeeChargesAtDisbursement.StringFixed())
}

func TestStateMachine_Totality(t *testing.T) {
	base := disbursed(t, monthlyTerms("1000", 12, 3))
	on := Date(2024, time.February, 1)

	invoke := map[Operation]func(Loan) error{
		OpModify:       func(l Loan) error { _, err := l.Modify(ModifyCommand{Terms: l.Terms}); return err },
		OpDelete:       func(l Loan) error { return l.CheckDeletable() },
		OpApprove:      func(l Loan) error { _, err := l.Approve(TransitionCommand{Date: on}, businessDate); return err },
		OpUndoApproval: func(l Loan) error { _, err := l.UndoApproval(TransitionCommand{Date: on}, businessDate); return err },
		OpReject:       func(l Loan) error { _, err := l.Reject(TransitionCommand{Date: on}, businessDate); return err },
		OpWithdraw:     func(l Loan) error { _, err := l.Withdraw(TransitionCommand{Date: on}, businessDate); return err },
		OpDisburse:     func(l Loan) error { _, err := l.Disburse(DisburseCommand{Date: on}, businessDate); return err },
		OpUndoDisbursal: func(l Loan) error {
			_, err := l.UndoDisbursal(TransitionCommand{Date: on}, businessDate)
			return err
		},
		OpMakeRepayment: func(l Loan) error {
			_, err := l.MakeRepayment(CreditCommand{Date: on, Amount: usdAmount("10")}, businessDate)
			return err
		},
		OpWaive: func(l Loan) error {
			_, err := l.Waive(WaiveCommand{Type: TxWaiveInterest, Date: on, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpWriteOff: func(l Loan) error { _, err := l.WriteOff(TransitionCommand{Date: on}, businessDate); return err },
		OpAddCharge: func(l Loan) error {
			_, err := l.AddCharge(AddChargeCommand{Charge: Charge{Time: ChargeInstallmentFee, Calculation: ChargeFlat, Amount: decimal.NewFromInt(1)}}, businessDate)
			return err
		},
		OpPayCharge: func(l Loan) error {
			_, err := l.PayCharge(ChargeTransactionCommand{ChargeID: 1, Date: on, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpAdjustCharge: func(l Loan) error {
			_, err := l.AdjustCharge(ChargeTransactionCommand{ChargeID: 1, Date: on, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpChargeback: func(l Loan) error {
			_, err := l.Chargeback(ChargebackCommand{TransactionID: 1, Date: on, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpCreditBalanceRefund: func(l Loan) error {
			_, err := l.RefundCreditBalance(AmountCommand{Date: on, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpAccrual: func(l Loan) error {
			_, err := l.RecordAccrual(AmountCommand{Date: on, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpAdjustTransaction: func(l Loan) error {
			_, err := l.AdjustTransaction(AdjustTransactionCommand{TransactionID: 1, Amount: usdAmount("1")}, businessDate)
			return err
		},
		OpReverseTransaction: func(l Loan) error {
			_, err := l.ReverseTransaction(ReverseTransactionCommand{TransactionID: 1, Date: on}, businessDate)
			return err
		},
		OpClose: func(l Loan) error { _, err := l.Close(TransitionCommand{Date: on}, businessDate); return err },
		OpCloseAsRescheduled: func(l Loan) error {
			_, err := l.CloseAsRescheduled(TransitionCommand{Date: on}, businessDate)
			return err
		},
	}
	require.Len(t, invoke, len(AllOperations))

	for _, status := range AllStatuses {
		for _, op := range AllOperations {
			if status.Permits(op) {
				continue
			}
			t.Run(string(status)+"/"+string(op), func(t *testing.T) {
				l := base.clone()
				l.Status = status
				before := l.clone()

				err := invoke[op](l)

				var stErr *StateTransitionError
				require.ErrorAs(t, err, &stErr)
				assert.Equal(t, status, stErr.CurrentState)
				assert.Equal(t, op, stErr.Attempted)
				assert.Empty(t, stErr.Reason)
				assert.Equal(t, before, l)
			})
		}
	}
}

func TestStateMachine_TerminalStates(t *testing.T) {
	for _, s := range []Status{StatusClosedWrittenOff, StatusClosedRescheduled, StatusRejected, StatusWithdrawnByClient} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, StatusClosedObligationsMet.IsTerminal())
	assert.True(t, StatusClosedObligationsMet.IsClosed())
}

func TestTransitionDateGuards(t *testing.T) {
	l := submitted(t, monthlyTerms("1000", 12, 3))

	_, err := l.Approve(TransitionCommand{Date: Date(2023, time.December, 31)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	_, err = l.Approve(TransitionCommand{Date: Date(2024, time.July, 1)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition, "future date")

	res, err := l.Approve(TransitionCommand{Date: Date(2024, time.January, 10)}, businessDate)
	require.NoError(t, err)
	_, err = res.Loan.UndoApproval(TransitionCommand{Date: Date(2024, time.January, 9)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)

	res, err = res.Loan.UndoApproval(TransitionCommand{Date: Date(2024, time.January, 10)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, res.Loan.Status)
	assert.True(t, res.Loan.ApprovedOn.IsZero())
}

func TestRejectAndWithdraw(t *testing.T) {
	l := submitted(t, monthlyTerms("1000", 12, 3))

	res, err := l.Reject(TransitionCommand{Date: Date(2024, time.January, 3), Note: "income too low"}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Loan.Status)
	assert.Equal(t, "income too low", res.Loan.History[1].Note)

	res, err = l.Approve(TransitionCommand{Date: Date(2024, time.January, 3)}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.Withdraw(TransitionCommand{Date: Date(2024, time.January, 4)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusWithdrawnByClient, res.Loan.Status)
	assert.Error(t, res.Loan.CheckDeletable())
	assert.NoError(t, l.CheckDeletable())
}

func TestRepayment_AllocatesAndRejectsIllegalDates(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))

	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("500")}, businessDate)
	require.NoError(t, err)
	inst := res.Loan.Schedule.Installments[0]
	assert.Equal(t, "300.00", inst.Interest.Paid.StringFixed())
	assert.Equal(t, "200.00", inst.Principal.Paid.StringFixed())
	assert.Equal(t, "400.00", inst.Principal.Outstanding().StringFixed())
	assert.Equal(t, int64(1), res.Changes["transactionId"])

	_, err = l.MakeRepayment(CreditCommand{Date: Date(2023, time.December, 31), Amount: usdAmount("10")}, businessDate)
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	_, err = l.MakeRepayment(CreditCommand{Date: Date(2024, time.July, 1), Amount: usdAmount("10")}, businessDate)
	assert.ErrorAs(t, err, &txErr)

	_, err = l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: money.Zero(usd)}, businessDate)
	assert.ErrorAs(t, err, &txErr)

	_, err = l.MakeRepayment(CreditCommand{Type: TxWriteOff, Date: Date(2024, time.February, 1), Amount: usdAmount("10")}, businessDate)
	assert.ErrorAs(t, err, &txErr)

	_, err = l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: money.MustParse(money.MustCurrency("EUR", 2), "10")}, businessDate)
	assert.ErrorAs(t, err, &txErr)
}

func TestWaiveInterest(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "500", "80"))

	res, err := l.Waive(WaiveCommand{Type: TxWaiveInterest, Date: Date(2024, time.January, 20), Amount: usdAmount("50")}, businessDate)
	require.NoError(t, err)

	inst := res.Loan.Schedule.Installments[0]
	assert.Equal(t, "50.00", inst.Interest.Waived.StringFixed())
	assert.Equal(t, "30.00", inst.Interest.Outstanding().StringFixed())
	assert.True(t, inst.Interest.Paid.IsZero())

	summary := res.Loan.Summary(businessDate)
	assert.True(t, summary.TotalRepaid.IsZero(), "a waiver moves no cash")
	assert.Equal(t, "50.00", summary.TotalWaived.StringFixed())
	assert.Equal(t, "50.00", summary.Total(TxWaiveInterest).StringFixed())

	_, err = l.Waive(WaiveCommand{Type: TxWaiveInterest, Date: Date(2024, time.January, 20), Amount: usdAmount("81")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	_, err = l.Waive(WaiveCommand{Type: TxRepayment, Date: Date(2024, time.January, 20), Amount: usdAmount("1")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)
}

func TestAdjustTransaction(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))
	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("500")}, businessDate)
	require.NoError(t, err)
	original := res.Transactions[0]

	adjustedOn := Date(2024, time.February, 10)
	res, err = res.Loan.AdjustTransaction(AdjustTransactionCommand{TransactionID: original.ID, Amount: usdAmount("600")}, adjustedOn)
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	reversal, replacement := res.Transactions[0], res.Transactions[1]
	assert.Equal(t, TxReversal, reversal.Type)
	assert.Equal(t, original.ID, reversal.ReversalOf)
	assert.Equal(t, adjustedOn, reversal.Date)
	assert.Equal(t, TxRepayment, replacement.Type)
	assert.Equal(t, original.Date, replacement.Date)
	assert.Equal(t, "600.00", replacement.Amount.StringFixed())

	stored, ok := res.Loan.transaction(original.ID)
	require.True(t, ok)
	assert.True(t, stored.Reversed)
	assert.Equal(t, adjustedOn, stored.ReversedOn)
	assert.Equal(t, "500.00", stored.Amount.StringFixed())

	inst := res.Loan.Schedule.Installments[0]
	assert.Equal(t, "300.00", inst.Interest.Paid.StringFixed())
	assert.Equal(t, "300.00", inst.Principal.Paid.StringFixed())

	summary := res.Loan.Summary(adjustedOn)
	assert.Equal(t, "600.00", summary.TransactionTotals[TxRepayment].Active.StringFixed())
	assert.Equal(t, "500.00", summary.TransactionTotals[TxRepayment].Reversed.StringFixed())

	_, err = res.Loan.AdjustTransaction(AdjustTransactionCommand{TransactionID: original.ID, Amount: usdAmount("1")}, adjustedOn)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction, "already reversed")
}

func TestAdjustTransaction_MatchesCorrectHistory(t *testing.T) {
	base := disbursed(t, monthlyTerms("12000", 12, 12))
	on := Date(2024, time.March, 1)

	wrong, err := base.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("900")}, on)
	require.NoError(t, err)
	fixed, err := wrong.Loan.AdjustTransaction(AdjustTransactionCommand{TransactionID: wrong.Transactions[0].ID, Amount: usdAmount("1066.19")}, on)
	require.NoError(t, err)

	right, err := base.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("1066.19")}, on)
	require.NoError(t, err)

	for i := range right.Loan.Schedule.Installments {
		a, b := fixed.Loan.Schedule.Installments[i], right.Loan.Schedule.Installments[i]
		for _, c := range allComponents {
			assert.Equal(t, b.Balance(c).Paid.StringFixed(), a.Balance(c).Paid.StringFixed())
			assert.Equal(t, b.Balance(c).Outstanding().StringFixed(), a.Balance(c).Outstanding().StringFixed())
		}
	}
}

func TestReverseTransaction_ReopensClosedLoan(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "0"))
	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("100")}, businessDate)
	require.NoError(t, err)
	repaymentID := res.Transactions[0].ID
	res, err = res.Loan.Close(TransitionCommand{Date: Date(2024, time.February, 2)}, businessDate)
	require.NoError(t, err)

	res, err = res.Loan.ReverseTransaction(ReverseTransactionCommand{TransactionID: repaymentID, Date: Date(2024, time.February, 3)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, res.Loan.Status)
	assert.True(t, res.Loan.ClosedOn.IsZero())
	assert.Equal(t, "100.00", res.Loan.Schedule.TotalOutstanding().StringFixed())
}

func TestOverpaymentAndCreditBalanceRefund(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"))

	res, err := l.MakeRepayment(CreditCommand{Type: TxGoodwillCredit, Date: Date(2024, time.January, 15), Amount: usdAmount("150")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusOverpaid, res.Loan.Status)
	assert.Equal(t, "40.00", res.Loan.Overpayment.StringFixed())
	assert.Equal(t, "40.00", res.Loan.Summary(businessDate).TotalOverpaid.StringFixed())

	_, err = res.Loan.RefundCreditBalance(AmountCommand{Date: Date(2024, time.January, 16), Amount: usdAmount("41")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	res, err = res.Loan.RefundCreditBalance(AmountCommand{Date: Date(2024, time.January, 16), Amount: usdAmount("40")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, res.Loan.Status)
	assert.True(t, res.Loan.Overpayment.IsZero())
	assert.True(t, res.Loan.ClosedOn.IsZero())
}

func TestSettledLoanStaysActiveUntilClosed(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"))

	exact, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.January, 15), Amount: usdAmount("110")}, businessDate)
	require.NoError(t, err)

	over, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.January, 15), Amount: usdAmount("150")}, businessDate)
	require.NoError(t, err)
	require.Equal(t, StatusOverpaid, over.Loan.Status)
	refunded, err := over.Loan.RefundCreditBalance(AmountCommand{Date: Date(2024, time.January, 15), Amount: usdAmount("40")}, businessDate)
	require.NoError(t, err)

	for name, settled := range map[string]Loan{"exact payoff": exact.Loan, "overpay then refund": refunded.Loan} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, StatusActive, settled.Status)
			assert.True(t, settled.Schedule.TotalOutstanding().IsZero())
			assert.True(t, settled.Overpayment.IsZero())
			assert.True(t, settled.ClosedOn.IsZero())

			closed, err := settled.Close(TransitionCommand{Date: Date(2024, time.January, 20)}, businessDate)
			require.NoError(t, err)
			assert.Equal(t, StatusClosedObligationsMet, closed.Loan.Status)
			assert.Equal(t, Date(2024, time.January, 20), closed.Loan.ClosedOn)
		})
	}
}

func TestChargeback(t *testing.T) {
	l := activeLoan(
		installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "0"),
		installment(2, Date(2024, time.February, 1), Date(2024, time.March, 1), "100", "0"),
	)
	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.January, 20), Amount: usdAmount("230")}, businessDate)
	require.NoError(t, err)
	require.Equal(t, StatusOverpaid, res.Loan.Status)
	repaymentID := res.Transactions[0].ID

	_, err = res.Loan.Chargeback(ChargebackCommand{TransactionID: repaymentID, Date: Date(2024, time.February, 10), Amount: usdAmount("231")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	res, err = res.Loan.Chargeback(ChargebackCommand{TransactionID: repaymentID, Date: Date(2024, time.February, 10), Amount: usdAmount("50")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, res.Loan.Status)
	assert.Equal(t, "20.00", res.Loan.Schedule.TotalOutstanding().StringFixed())
	assert.Equal(t, "50.00", res.Loan.Summary(businessDate).Total(TxChargeback).StringFixed())

	_, err = res.Loan.ReverseTransaction(ReverseTransactionCommand{TransactionID: repaymentID, Date: Date(2024, time.February, 11)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction, "repayment with an active chargeback")
}

func TestWriteOff(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"))
	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.January, 15), Amount: usdAmount("30")}, businessDate)
	require.NoError(t, err)

	_, err = res.Loan.WriteOff(TransitionCommand{Date: Date(2024, time.January, 14)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction, "before the last transaction")

	res, err = res.Loan.WriteOff(TransitionCommand{Date: Date(2024, time.March, 1)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusClosedWrittenOff, res.Loan.Status)
	inst := res.Loan.Schedule.Installments[0]
	assert.Equal(t, "80.00", inst.Principal.WrittenOff.StringFixed())
	assert.True(t, inst.TotalOutstanding().IsZero())
	assert.Equal(t, "80.00", res.Transactions[0].Amount.StringFixed())

	_, err = res.Loan.MakeRepayment(CreditCommand{Date: Date(2024, time.March, 2), Amount: usdAmount("5")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}

func TestCloseRequiresTolerance(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "0"))
	l.Terms.InArrearsTolerance = usdAmount("1")

	_, err := l.Close(TransitionCommand{Date: Date(2024, time.February, 2)}, businessDate)
	var stErr *StateTransitionError
	require.ErrorAs(t, err, &stErr)
	assert.Contains(t, stErr.Reason, "exceeds the tolerance")

	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("99.50")}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.Close(TransitionCommand{Date: Date(2024, time.February, 2)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusClosedObligationsMet, res.Loan.Status)

	res, err = l.CloseAsRescheduled(TransitionCommand{Date: Date(2024, time.February, 2)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusClosedRescheduled, res.Loan.Status)
}

func TestUndoDisbursal(t *testing.T) {
	l := disbursed(t, monthlyTerms("1000", 12, 3))

	res, err := l.UndoDisbursal(TransitionCommand{Date: Date(2024, time.January, 2)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Loan.Status)
	assert.Empty(t, res.Loan.Disbursements)
	require.Len(t, res.Loan.Transactions, 1)
	assert.True(t, res.Loan.Transactions[0].Reversed)
	assert.Equal(t, "1000.00", res.Loan.Schedule.TotalPrincipalDue().StringFixed())

	repaid, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.January, 20), Amount: usdAmount("10")}, businessDate)
	require.NoError(t, err)
	_, err = repaid.Loan.UndoDisbursal(TransitionCommand{Date: Date(2024, time.January, 21)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
}

func TestDisburse_Tranches(t *testing.T) {
	terms := monthlyTerms("1000", 12, 6)
	terms.MultiDisburse = true
	l := submitted(t, terms)
	res, err := l.Approve(TransitionCommand{Date: Date(2024, time.January, 1)}, businessDate)
	require.NoError(t, err)

	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.January, 1), Principal: usdAmount("600")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "600.00", res.Loan.Schedule.TotalPrincipalDue().StringFixed())

	res, err = res.Loan.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("100")}, businessDate)
	require.NoError(t, err)

	_, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.February, 15), Principal: usdAmount("401")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.February, 15)}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", res.Loan.Schedule.TotalPrincipalDue().StringFixed())
	assert.Equal(t, "1000.00", res.Loan.DisbursedPrincipal().StringFixed())
	assert.Equal(t, "100.00", res.Loan.Summary(businessDate).TotalRepaid.StringFixed())

	_, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.March, 1)}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction, "fully disbursed")
}

func TestDisburse_TranchesWithholdFeesEach(t *testing.T) {
	terms := monthlyTerms("10000", 12, 6)
	terms.MultiDisburse = true
	l := submitted(t, terms)
	res, err := l.AddCharge(AddChargeCommand{Charge: Charge{
		Name: "processing", Time: ChargeAtDisbursement, Calculation: ChargePercentOfAmount, Amount: decimal.NewFromInt(1),
	}}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Loan.Schedule.TotalFeeChargesAtDisbursement.StringFixed())
	res, err = res.Loan.Approve(TransitionCommand{Date: Date(2024, time.January, 1)}, businessDate)
	require.NoError(t, err)

	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.January, 1), Principal: usdAmount("5000")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "4950.00", res.Loan.Disbursements[0].NetDisbursalAmount.StringFixed())
	assert.Equal(t, "50.00", res.Loan.Summary(businessDate).TotalFeeChargesAtDisbursement.StringFixed())

	res, err = res.Loan.Disburse(DisburseCommand{Date: Date(2024, time.February, 15), Principal: usdAmount("5000")}, businessDate)
	require.NoError(t, err)
	require.Len(t, res.Loan.Disbursements, 2)
	assert.Equal(t, "4950.00", res.Loan.Disbursements[1].NetDisbursalAmount.StringFixed())
	assert.Equal(t, "4950.00", res.Changes["netDisbursalAmount"])

	withheld := money.Zero(usd)
	for _, d := range res.Loan.Disbursements {
		withheld = withheld.Plus(d.Principal.Minus(d.NetDisbursalAmount))
	}
	assert.Equal(t, "100.00", withheld.StringFixed())
	assert.Equal(t, withheld.StringFixed(), res.Loan.Summary(businessDate).TotalFeeChargesAtDisbursement.StringFixed())
}

func TestCharges_PayAndAdjust(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"))
	res, err := l.AddCharge(AddChargeCommand{Charge: Charge{
		Name: "late", Time: ChargeSpecifiedDueDate, Calculation: ChargeFlat, Amount: decimal.NewFromInt(15),
		DueDate: Date(2024, time.January, 20), Penalty: true,
	}}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "15.00", res.Loan.Schedule.Installments[0].Penalties.Due.StringFixed())
	chargeID := res.Changes["chargeId"].(int64)

	_, err = res.Loan.PayCharge(ChargeTransactionCommand{ChargeID: chargeID, Date: Date(2024, time.January, 21), Amount: usdAmount("16")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)
	_, err = res.Loan.PayCharge(ChargeTransactionCommand{ChargeID: 99, Date: Date(2024, time.January, 21), Amount: usdAmount("1")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	paid, err := res.Loan.PayCharge(ChargeTransactionCommand{ChargeID: chargeID, Date: Date(2024, time.January, 21), Amount: usdAmount("10")}, businessDate)
	require.NoError(t, err)
	inst := paid.Loan.Schedule.Installments[0]
	assert.Equal(t, "10.00", inst.Penalties.Paid.StringFixed())
	assert.True(t, inst.Interest.Paid.IsZero())

	adjusted, err := paid.Loan.AdjustCharge(ChargeTransactionCommand{ChargeID: chargeID, Date: Date(2024, time.January, 22), Amount: usdAmount("8")}, businessDate)
	require.NoError(t, err)
	inst = adjusted.Loan.Schedule.Installments[0]
	assert.True(t, inst.Penalties.Outstanding().IsZero())
	assert.Equal(t, "3.00", inst.Interest.Paid.StringFixed())

	waived, err := res.Loan.Waive(WaiveCommand{Type: TxWaiveCharges, Date: Date(2024, time.January, 21), Amount: usdAmount("15")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "15.00", waived.Loan.Schedule.Installments[0].Penalties.Waived.StringFixed())

	_, err = l.AddCharge(AddChargeCommand{Charge: Charge{Time: ChargeAtDisbursement, Calculation: ChargeFlat, Amount: decimal.NewFromInt(1)}}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTerms)
}

func TestCharges_PaymentSettlesOnlyThatCharge(t *testing.T) {
	var insts []Installment
	for n := 1; n <= 6; n++ {
		insts = append(insts, installment(n, Date(2024, time.Month(n), 1), Date(2024, time.Month(n+1), 1), "100", "0"))
	}
	l := activeLoan(insts...)
	res, err := l.AddCharge(AddChargeCommand{Charge: Charge{
		Name: "service", Time: ChargeInstallmentFee, Calculation: ChargeFlat, Amount: decimal.NewFromInt(5),
	}}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.AddCharge(AddChargeCommand{Charge: Charge{
		Name: "valuation", Time: ChargeSpecifiedDueDate, Calculation: ChargeFlat, Amount: decimal.NewFromInt(50),
		DueDate: Date(2024, time.July, 1),
	}}, businessDate)
	require.NoError(t, err)
	valuationID := res.Changes["chargeId"].(int64)
	assert.Equal(t, "55.00", res.Loan.Schedule.Installments[5].Fees.Due.StringFixed())
	assert.Equal(t, "50.00", res.Loan.Schedule.ChargeOutstanding(valuationID).StringFixed())
	assert.Equal(t, "30.00", res.Loan.Schedule.ChargeOutstanding(1).StringFixed())

	_, err = res.Loan.PayCharge(ChargeTransactionCommand{ChargeID: valuationID, Date: Date(2024, time.January, 10), Amount: usdAmount("51")}, businessDate)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)

	paid, err := res.Loan.PayCharge(ChargeTransactionCommand{ChargeID: valuationID, Date: Date(2024, time.January, 10), Amount: usdAmount("50")}, businessDate)
	require.NoError(t, err)
	sched := paid.Loan.Schedule
	for _, inst := range sched.Installments[:5] {
		assert.True(t, inst.Fees.Paid.IsZero(), "installment %d", inst.Number)
	}
	assert.Equal(t, "50.00", sched.Installments[5].Fees.Paid.StringFixed())
	assert.Equal(t, "5.00", sched.Installments[5].Fees.Outstanding().StringFixed())
	assert.True(t, sched.ChargeOutstanding(valuationID).IsZero())
	assert.Equal(t, "30.00", sched.ChargeOutstanding(1).StringFixed())
	assert.Equal(t, "50.00", paid.Transactions[0].Portions.Fees.StringFixed())

	waived, err := paid.Loan.Waive(WaiveCommand{Type: TxWaiveCharges, Date: Date(2024, time.January, 11), Amount: usdAmount("10")}, businessDate)
	require.NoError(t, err)
	assert.Equal(t, "20.00", waived.Loan.Schedule.ChargeOutstanding(1).StringFixed())
	assert.True(t, waived.Loan.Schedule.ChargeOutstanding(valuationID).IsZero())
}

func TestRecordAccrual(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"))

	res, err := l.RecordAccrual(AmountCommand{Date: Date(2024, time.January, 31), Amount: usdAmount("9.68")}, businessDate)
	require.NoError(t, err)
	assert.True(t, res.Loan.Schedule.TotalOutstanding().IsEqualTo(l.Schedule.TotalOutstanding()))
	assert.Equal(t, "9.68", res.Loan.Summary(businessDate).Total(TxAccrual).StringFixed())
	assert.Equal(t, "9.68", res.Transactions[0].Portions.Interest.StringFixed())
}

func TestCommandsNeverMutateReceiver(t *testing.T) {
	l := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"))
	before := l.clone()

	_, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.January, 15), Amount: usdAmount("30")}, businessDate)
	require.NoError(t, err)
	_, err = l.Waive(WaiveCommand{Type: TxWaivePrincipal, Date: Date(2024, time.January, 15), Amount: usdAmount("500")}, businessDate)
	require.Error(t, err)

	assert.Equal(t, before, l)
	assert.True(t, errors.Is(err, apperrors.ErrIllegalTransaction))
}

func TestRebuildRestoresDerivedState(t *testing.T) {
	l := disbursed(t, monthlyTerms("12000", 12, 12))
	res, err := l.MakeRepayment(CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("1500")}, businessDate)
	require.NoError(t, err)
	want := res.Loan

	stored := want
	stored.Schedule = Schedule{}
	stored.Overpayment = money.Money{}
	got, err := stored.Rebuild()
	require.NoError(t, err)

	require.Len(t, got.Schedule.Installments, len(want.Schedule.Installments))
	assert.Equal(t, want.Schedule.TotalOutstanding().StringFixed(), got.Schedule.TotalOutstanding().StringFixed())
	assert.Equal(t, want.Overpayment.StringFixed(), got.Overpayment.StringFixed())
	assert.Equal(t, "110.54", got.Schedule.Installments[1].Interest.Paid.StringFixed())
	assert.Equal(t, "323.27", got.Schedule.Installments[1].Principal.Paid.StringFixed())
}
