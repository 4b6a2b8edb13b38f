package loan

import (
	"loan-engine/internal/pkg/money"
	"time"
)

type SubmitCommand struct {
	ExternalID              string
	ClientID                int64
	Terms                   Terms
	Charges                 []Charge
	FirstRepaymentDate      time.Time
	InterestChargedFromDate time.Time
	Strategy                string
	SubmittedOn             time.Time
	Note                    string
}

type ModifyCommand struct {
	Terms                   Terms
	Charges                 []Charge
	FirstRepaymentDate      time.Time
	InterestChargedFromDate time.Time
	Strategy                string
}

// TransitionCommand carries the effective date of a lifecycle transition.
type TransitionCommand struct {
	Date time.Time
	Note string
}

// DisburseCommand disburses one tranche. A zero Principal disburses the
// approved principal not yet disbursed.
type DisburseCommand struct {
	Date      time.Time
	Principal money.Money
	Note      string
}

// CreditCommand posts a repayment-like credit. Type defaults to TxRepayment.
type CreditCommand struct {
	Type       TransactionType
	Date       time.Time
	Amount     money.Money
	ExternalID string
	Note       string
}

type WaiveCommand struct {
	Type   TransactionType
	Date   time.Time
	Amount money.Money
	Note   string
}

type AddChargeCommand struct {
	Charge Charge
}

// ChargeTransactionCommand pays or adjusts one charge.
type ChargeTransactionCommand struct {
	ChargeID   int64
	Date       time.Time
	Amount     money.Money
	ExternalID string
	Note       string
}

type ChargebackCommand struct {
	TransactionID int64
	Date          time.Time
	Amount        money.Money
	Note          string
}

type AmountCommand struct {
	Date       time.Time
	Amount     money.Money
	ExternalID string
	Note       string
}

// AdjustTransactionCommand replaces a transaction with a corrected amount. A
// zero Amount only reverses the original.
type AdjustTransactionCommand struct {
	TransactionID int64
	Date          time.Time
	Amount        money.Money
	ExternalID    string
	Note          string
}

type ReverseTransactionCommand struct {
	TransactionID int64
	Date          time.Time
	Note          string
}
