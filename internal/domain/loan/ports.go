package loan

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("loan summary not cached")

// SummaryCache holds derived summaries per loan and business date. A summary
// set for a loan version older than the last invalidated one must not be
// served.
type SummaryCache interface {
	Get(ctx context.Context, loanID int64, businessDate time.Time) (*Summary, error)
	Set(ctx context.Context, loanID, version int64, businessDate time.Time, summary Summary) error
	Invalidate(ctx context.Context, loanID, version int64) error
}

type EventPublisher interface {
	PublishLoanEvent(ctx context.Context, event Event) error
}

const (
	EventLoanChanged       = "loan.changed"
	EventTransactionPosted = "loan.transaction.posted"
	EventStatusChanged     = "loan.status.changed"
	EventArrearsChanged    = "loan.arrears.changed"
)

// Event is the notification sent to collaborators after a committed change.
type Event struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	LoanID       int64         `json:"loanId"`
	Operation    Operation     `json:"operation,omitempty"`
	Status       Status        `json:"status"`
	Changes      Changes       `json:"changes,omitempty"`
	Transaction  *Transaction  `json:"transaction,omitempty"`
	StatusChange *StatusChange `json:"statusChange,omitempty"`
	InArrears    bool          `json:"inArrears,omitempty"`
	OverdueSince *time.Time    `json:"overdueSince,omitempty"`
	BusinessDate time.Time     `json:"businessDate"`
	Timestamp    time.Time     `json:"timestamp"`
}

