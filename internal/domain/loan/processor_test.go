package loan

import (
	"encoding/json"
	"loan-engine/internal/pkg/money"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installment(number int, from, due time.Time, principal, interest string) Installment {
	inst := newInstallment(usd, number, from, due)
	inst.Principal.Due = usdAmount(principal)
	inst.Interest.Due = usdAmount(interest)
	return inst
}

// activeLoan builds a disbursed loan over a hand-made schedule.
func activeLoan(insts ...Installment) Loan {
	terms := monthlyTerms("600", 12, len(insts))
	return Loan{
		ID:          7,
		Status:      StatusActive,
		Terms:       terms,
		Schedule:    Schedule{Currency: usd, Installments: insts, TotalFeeChargesAtDisbursement: money.Zero(usd)},
		Strategy:    DefaultStrategy,
		SubmittedOn: Date(2024, time.January, 1),
		ApprovedOn:  Date(2024, time.January, 1),
		DisbursedOn: Date(2024, time.January, 1),
		Overpayment: money.Zero(usd),
		History: []StatusChange{
			{To: StatusActive, Operation: OpDisburse, Date: Date(2024, time.January, 1)},
		},
	}
}

func repayment(id int64, date time.Time, amount string) Transaction {
	tx := Transaction{ID: id, Type: TxRepayment, Date: date, Amount: usdAmount(amount)}
	tx.resetPortions()
	return tx
}

func defaultStrategy(t *testing.T) AllocationStrategy {
	s, err := StrategyByName("")
	require.NoError(t, err)
	return s
}

func TestReplay_DefaultPrecedence(t *testing.T) {
	inst := installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300")
	schedule := Schedule{Currency: usd, Installments: []Installment{inst}}

	res, err := Replay(1, schedule, nil, []Transaction{repayment(1, Date(2024, time.February, 1), "500")}, defaultStrategy(t))
	require.NoError(t, err)

	got := res.Schedule.Installments[0]
	assert.Equal(t, "300.00", got.Interest.Paid.StringFixed())
	assert.True(t, got.Interest.Outstanding().IsZero())
	assert.Equal(t, "200.00", got.Principal.Paid.StringFixed())
	assert.Equal(t, "400.00", got.Principal.Outstanding().StringFixed())

	tx := res.Transactions[0]
	assert.Equal(t, "300.00", tx.Portions.Interest.StringFixed())
	assert.Equal(t, "200.00", tx.Portions.Principal.StringFixed())
	assert.True(t, tx.Overpayment.IsZero())

	assert.True(t, schedule.Installments[0].Interest.Paid.IsZero(), "input schedule must not be modified")
}

func TestReplay_OldestInstallmentFirstAndOverpayment(t *testing.T) {
	schedule := Schedule{Currency: usd, Installments: []Installment{
		installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"),
		installment(2, Date(2024, time.February, 1), Date(2024, time.March, 1), "100", "5"),
	}}
	charges := []Charge{{
		ID: 1, Name: "late", Time: ChargeSpecifiedDueDate, Calculation: ChargeFlat,
		Amount: decimal.NewFromInt(7), DueDate: Date(2024, time.January, 15), Penalty: true,
	}}

	res, err := Replay(1, schedule, charges, []Transaction{repayment(1, Date(2024, time.February, 10), "250")}, defaultStrategy(t))
	require.NoError(t, err)

	first, second := res.Schedule.Installments[0], res.Schedule.Installments[1]
	assert.True(t, first.Completed)
	assert.Equal(t, Date(2024, time.February, 10), first.ObligationsMetOn)
	assert.True(t, second.Completed)
	assert.Equal(t, "28.00", res.Overpayment.StringFixed())
	assert.Equal(t, "28.00", res.Transactions[0].Overpayment.StringFixed())
	assert.Equal(t, "7.00", res.Transactions[0].Portions.Penalties.StringFixed())
}

func TestReplay_Strategies(t *testing.T) {
	tests := []struct {
		strategy  string
		principal string
		interest  string
	}{
		{strategy: DefaultStrategy, principal: "50.00", interest: "100.00"},
		{strategy: "principal-interest-penalty-fee", principal: "150.00", interest: "0.00"},
		{strategy: "interest-principal-penalty-fee", principal: "50.00", interest: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := StrategyByName(tt.strategy)
			require.NoError(t, err)
			schedule := Schedule{Currency: usd, Installments: []Installment{
				installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "500", "100"),
			}}

			res, err := Replay(1, schedule, nil, []Transaction{repayment(1, Date(2024, time.February, 1), "150")}, s)
			require.NoError(t, err)
			assert.Equal(t, tt.principal, res.Schedule.Installments[0].Principal.Paid.StringFixed())
			assert.Equal(t, tt.interest, res.Schedule.Installments[0].Interest.Paid.StringFixed())
		})
	}

	_, err := StrategyByName("fifo")
	assert.Error(t, err)
}

func TestReplay_OrdersByDateThenIDAndSkipsReversed(t *testing.T) {
	schedule := Schedule{Currency: usd, Installments: []Installment{
		installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "0"),
		installment(2, Date(2024, time.February, 1), Date(2024, time.March, 1), "100", "0"),
	}}
	reversed := repayment(2, Date(2024, time.January, 5), "100")
	reversed.Reversed = true
	txs := []Transaction{
		repayment(3, Date(2024, time.February, 20), "60"),
		reversed,
		repayment(1, Date(2024, time.February, 20), "50"),
	}

	res, err := Replay(1, schedule, nil, txs, defaultStrategy(t))
	require.NoError(t, err)

	assert.Equal(t, "100.00", res.Schedule.Installments[0].Principal.Paid.StringFixed())
	assert.Equal(t, "10.00", res.Schedule.Installments[1].Principal.Paid.StringFixed())
	assert.Equal(t, "50.00", res.Transactions[2].Portions.Principal.StringFixed())
	assert.True(t, res.Transactions[1].Portions.Total().IsZero())
}

func TestReplay_IsIdempotent(t *testing.T) {
	s, err := GenerateSchedule(monthlyTerms("12000", 12, 12), nil, nil, ScheduleOptions{})
	require.NoError(t, err)
	txs := []Transaction{
		repayment(1, Date(2024, time.February, 1), "1066.19"),
		repayment(2, Date(2024, time.March, 5), "700"),
		{ID: 3, Type: TxWaiveInterest, Date: Date(2024, time.March, 6), Amount: usdAmount("50")},
	}

	first, err := Replay(1, s, nil, txs, defaultStrategy(t))
	require.NoError(t, err)
	second, err := Replay(1, first.Schedule, nil, first.Transactions, defaultStrategy(t))
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	on := Date(2024, time.May, 15)
	sa, err := json.Marshal(DeriveSummary(first.Schedule, first.Transactions, first.Overpayment, money.Zero(usd), on))
	require.NoError(t, err)
	sb, err := json.Marshal(DeriveSummary(second.Schedule, second.Transactions, second.Overpayment, money.Zero(usd), on))
	require.NoError(t, err)
	assert.Equal(t, string(sa), string(sb))
}

func TestReplay_Conservation(t *testing.T) {
	s, err := GenerateSchedule(monthlyTerms("5000", 18, 6), nil, nil, ScheduleOptions{})
	require.NoError(t, err)
	txs := []Transaction{
		repayment(1, Date(2024, time.February, 1), "400"),
		{ID: 2, Type: TxWaiveInterest, Date: Date(2024, time.February, 2), Amount: usdAmount("20")},
		{ID: 3, Type: TxGoodwillCredit, Date: Date(2024, time.March, 1), Amount: usdAmount("1000")},
		{ID: 4, Type: TxWriteOff, Date: Date(2024, time.April, 1), Amount: usdAmount("1")},
	}

	res, err := Replay(1, s, nil, txs, defaultStrategy(t))
	require.NoError(t, err)

	for _, inst := range res.Schedule.Installments {
		for _, c := range allComponents {
			b := inst.Balance(c)
			sum := b.Paid.Plus(b.Waived).Plus(b.WrittenOff).Plus(b.Outstanding())
			assert.True(t, b.Due.IsEqualTo(sum), "installment %d %s", inst.Number, c)
			assert.False(t, b.Outstanding().IsLessThanZero())
		}
	}
	assert.True(t, res.Schedule.TotalOutstanding().IsZero())
}

func TestReplay_WaiverBeyondOutstandingFails(t *testing.T) {
	schedule := Schedule{Currency: usd, Installments: []Installment{
		installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "10"),
	}}
	txs := []Transaction{{ID: 1, Type: TxWaiveInterest, Date: Date(2024, time.January, 10), Amount: usdAmount("11")}}

	_, err := Replay(1, schedule, nil, txs, defaultStrategy(t))
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, TxWaiveInterest, txErr.Type)
}

func TestReplay_ChargebackUsesCreditThenPrincipal(t *testing.T) {
	schedule := Schedule{Currency: usd, Installments: []Installment{
		installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "100", "0"),
		installment(2, Date(2024, time.February, 1), Date(2024, time.March, 1), "100", "0"),
	}}
	txs := []Transaction{
		repayment(1, Date(2024, time.January, 20), "230"),
		{ID: 2, Type: TxChargeback, Date: Date(2024, time.February, 10), Amount: usdAmount("50"), ChargebackOf: 1},
	}

	res, err := Replay(1, schedule, nil, txs, defaultStrategy(t))
	require.NoError(t, err)

	assert.True(t, res.Overpayment.IsZero())
	cb := res.Transactions[1]
	assert.Equal(t, "30.00", cb.Overpayment.StringFixed())
	assert.Equal(t, "20.00", cb.Portions.Principal.StringFixed())
	second := res.Schedule.Installments[1]
	assert.Equal(t, "120.00", second.Principal.Due.StringFixed())
	assert.Equal(t, "20.00", second.CreditedPrincipal.StringFixed())
	assert.False(t, second.Completed)

	again, err := Replay(1, res.Schedule, nil, res.Transactions, defaultStrategy(t))
	require.NoError(t, err)
	assert.Equal(t, "120.00", again.Schedule.Installments[1].Principal.Due.StringFixed())
}
