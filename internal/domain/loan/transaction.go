package loan

import (
	"fmt"
	"loan-engine/internal/pkg/money"
	"sort"
	"time"
)

type TransactionType string

const (
	TxDisbursement         TransactionType = "DISBURSEMENT"
	TxRepayment            TransactionType = "REPAYMENT"
	TxMerchantIssuedRefund TransactionType = "MERCHANT_ISSUED_REFUND"
	TxPayoutRefund         TransactionType = "PAYOUT_REFUND"
	TxGoodwillCredit       TransactionType = "GOODWILL_CREDIT"
	TxChargePayment        TransactionType = "CHARGE_PAYMENT"
	TxChargeAdjustment     TransactionType = "CHARGE_ADJUSTMENT"
	TxWaiveInterest        TransactionType = "WAIVE_INTEREST"
	TxWaivePrincipal       TransactionType = "WAIVE_PRINCIPAL"
	TxWaiveCharges         TransactionType = "WAIVE_CHARGES"
	TxWriteOff             TransactionType = "WRITE_OFF"
	TxChargeback           TransactionType = "CHARGEBACK"
	TxCreditBalanceRefund  TransactionType = "CREDIT_BALANCE_REFUND"
	TxAccrual              TransactionType = "ACCRUAL"
	TxReversal             TransactionType = "REVERSAL"
)

var AllTransactionTypes = []TransactionType{
	TxDisbursement, TxRepayment, TxMerchantIssuedRefund, TxPayoutRefund, TxGoodwillCredit,
	TxChargePayment, TxChargeAdjustment, TxWaiveInterest, TxWaivePrincipal, TxWaiveCharges,
	TxWriteOff, TxChargeback, TxCreditBalanceRefund, TxAccrual, TxReversal,
}

// effect groups transaction types by how replay treats them.
type effect int

const (
	effectNone effect = iota
	effectCredit
	effectChargeCredit
	effectWaiver
	effectWriteOff
	effectChargeback
	effectCreditRefund
)

func (t TransactionType) effect() effect {
	switch t {
	case TxRepayment, TxMerchantIssuedRefund, TxPayoutRefund, TxGoodwillCredit:
		return effectCredit
	case TxChargePayment, TxChargeAdjustment:
		return effectChargeCredit
	case TxWaiveInterest, TxWaivePrincipal, TxWaiveCharges:
		return effectWaiver
	case TxWriteOff:
		return effectWriteOff
	case TxChargeback:
		return effectChargeback
	case TxCreditBalanceRefund:
		return effectCreditRefund
	case TxDisbursement, TxAccrual, TxReversal:
		return effectNone
	}
	panic(fmt.Sprintf("loan: unknown transaction type %q", string(t)))
}

// IsRepaymentLike reports types that are allocated across the schedule like
// cash repayments.
func (t TransactionType) IsRepaymentLike() bool {
	return t.effect() == effectCredit
}

func (t TransactionType) Valid() bool {
	for _, tt := range AllTransactionTypes {
		if tt == t {
			return true
		}
	}
	return false
}

func (t TransactionType) String() string { return string(t) }

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *TransactionType) UnmarshalText(b []byte) error {
	v := TransactionType(b)
	if !v.Valid() {
		return fmt.Errorf("unknown transaction type %q", string(b))
	}
	*t = v
	return nil
}

// waivedComponents lists the components a waiver reduces, in order.
func (t TransactionType) waivedComponents() []Component {
	switch t {
	case TxWaiveInterest:
		return []Component{ComponentInterest}
	case TxWaivePrincipal:
		return []Component{ComponentPrincipal}
	default:
		return []Component{ComponentPenalty, ComponentFee}
	}
}

// Portions is the split of a transaction amount across the components.
type Portions struct {
	Principal money.Money `json:"principal"`
	Interest  money.Money `json:"interest"`
	Fees      money.Money `json:"fees"`
	Penalties money.Money `json:"penalties"`
}

func zeroPortions(c money.Currency) Portions {
	z := money.Zero(c)
	return Portions{Principal: z, Interest: z, Fees: z, Penalties: z}
}

func (p *Portions) add(c Component, m money.Money) {
	switch c {
	case ComponentPrincipal:
		p.Principal = p.Principal.Plus(m)
	case ComponentInterest:
		p.Interest = p.Interest.Plus(m)
	case ComponentFee:
		p.Fees = p.Fees.Plus(m)
	case ComponentPenalty:
		p.Penalties = p.Penalties.Plus(m)
	}
}

func (p Portions) Total() money.Money {
	return p.Principal.Plus(p.Interest).Plus(p.Fees).Plus(p.Penalties)
}

// Transaction is an immutable financial event. Only Reversed and ReversedOn
// change after creation; corrections are new transactions.
type Transaction struct {
	ID           int64           `json:"id"`
	ExternalID   string          `json:"externalId,omitempty"`
	Type         TransactionType `json:"type"`
	Date         time.Time       `json:"date"`
	SubmittedOn  time.Time       `json:"submittedOn"`
	Amount       money.Money     `json:"amount"`
	Portions     Portions        `json:"portions"`
	Overpayment  money.Money     `json:"overpayment"`
	Reversed     bool            `json:"reversed"`
	ReversedOn   time.Time       `json:"reversedOn,omitempty"`
	ReversalOf   int64           `json:"reversalOf,omitempty"`
	ChargeID     int64           `json:"chargeId,omitempty"`
	ChargebackOf int64           `json:"chargebackOf,omitempty"`
	Note         string          `json:"note,omitempty"`
}

// Active reports whether replay applies the transaction.
func (t Transaction) Active() bool {
	return !t.Reversed && t.Type != TxReversal
}

func (t *Transaction) resetPortions() {
	c := t.Amount.Currency()
	t.Portions = zeroPortions(c)
	t.Overpayment = money.Zero(c)
}

// replayOrder returns the indexes of txs sorted by date, then id.
func replayOrder(txs []Transaction) []int {
	idx := make([]int, len(txs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := txs[idx[a]], txs[idx[b]]
		if !ta.Date.Equal(tb.Date) {
			return ta.Date.Before(tb.Date)
		}
		return ta.ID < tb.ID
	})
	return idx
}
