package loan

import (
	"fmt"
	"loan-engine/internal/pkg/apperrors"
	"time"
)

// TermsError reports malformed or contradictory loan terms. It is raised
// before any schedule is produced.
type TermsError struct {
	Field  string
	Value  any
	Reason string
}

// ScheduleGenerationError is the error returned by GenerateSchedule.
type ScheduleGenerationError = TermsError

func (e *TermsError) Error() string {
	return fmt.Sprintf("invalid loan terms: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *TermsError) Unwrap() []error {
	return []error{apperrors.ErrInvalidTerms, apperrors.ErrValidation}
}

func newTermsError(field string, value any, reason string) error {
	return &TermsError{Field: field, Value: value, Reason: reason}
}

// StateTransitionError rejects an operation the current lifecycle state does
// not allow. Reason is set when the state allows the operation but one of its
// transition guards failed.
type StateTransitionError struct {
	LoanID       int64
	CurrentState Status
	Attempted    Operation
	Reason       string
}

func (e *StateTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("loan %d: operation %s rejected in state %s: %s", e.LoanID, e.Attempted, e.CurrentState, e.Reason)
	}
	return fmt.Sprintf("loan %d: operation %s is not permitted in state %s", e.LoanID, e.Attempted, e.CurrentState)
}

// Is matches ErrIllegalTransaction as well when the rejected operation posts
// a financial transaction.
func (e *StateTransitionError) Is(target error) bool {
	if target == apperrors.ErrInvalidStateTransition {
		return true
	}
	return target == apperrors.ErrIllegalTransaction && e.Attempted.postsTransaction()
}

type TransactionError struct {
	LoanID        int64
	TransactionID int64
	Type          TransactionType
	Date          time.Time
	Amount        string
	Reason        string
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("loan %d: illegal %s transaction", e.LoanID, e.Type)
	if e.TransactionID != 0 {
		msg += fmt.Sprintf(" %d", e.TransactionID)
	}
	if !e.Date.IsZero() {
		msg += " on " + e.Date.Format(DateLayout)
	}
	if e.Amount != "" {
		msg += " for " + e.Amount
	}
	return msg + ": " + e.Reason
}

func (e *TransactionError) Unwrap() error {
	return apperrors.ErrIllegalTransaction
}

// ArithmeticInvariantError signals a defect in the ledger arithmetic, never a
// user mistake.
type ArithmeticInvariantError struct {
	LoanID      int64
	Installment int
	Component   Component
	Detail      string
}

func (e *ArithmeticInvariantError) Error() string {
	return fmt.Sprintf("loan %d installment %d %s: %s", e.LoanID, e.Installment, e.Component, e.Detail)
}

func (e *ArithmeticInvariantError) Unwrap() error {
	return apperrors.ErrInvariantViolation
}
