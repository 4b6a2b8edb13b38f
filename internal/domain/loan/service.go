package loan

import (
	"context"
	"errors"
	"fmt"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LoanService interface {
	SubmitApplication(ctx context.Context, cmd SubmitCommand) (*Loan, error)

	ModifyApplication(ctx context.Context, loanID int64, cmd ModifyCommand) (Result, error)

	DeleteApplication(ctx context.Context, loanID int64) error

	Approve(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	UndoApproval(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	Reject(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	Withdraw(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	Disburse(ctx context.Context, loanID int64, cmd DisburseCommand) (Result, error)

	UndoDisbursal(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	MakeRepayment(ctx context.Context, loanID int64, cmd CreditCommand) (Result, error)

	Waive(ctx context.Context, loanID int64, cmd WaiveCommand) (Result, error)

	WriteOff(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	AddCharge(ctx context.Context, loanID int64, cmd AddChargeCommand) (Result, error)

	PayCharge(ctx context.Context, loanID int64, cmd ChargeTransactionCommand) (Result, error)

	AdjustCharge(ctx context.Context, loanID int64, cmd ChargeTransactionCommand) (Result, error)

	Chargeback(ctx context.Context, loanID int64, cmd ChargebackCommand) (Result, error)

	RefundCreditBalance(ctx context.Context, loanID int64, cmd AmountCommand) (Result, error)

	RecordAccrual(ctx context.Context, loanID int64, cmd AmountCommand) (Result, error)

	AdjustTransaction(ctx context.Context, loanID int64, cmd AdjustTransactionCommand) (Result, error)

	ReverseTransaction(ctx context.Context, loanID int64, cmd ReverseTransactionCommand) (Result, error)

	Close(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	CloseAsRescheduled(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	// GetSummary derives the summary as of date, or the business date when
	// date is zero.
	GetSummary(ctx context.Context, loanID int64, date time.Time) (Summary, error)

	PreviewSchedule(ctx context.Context, cmd SubmitCommand) (Schedule, error)

	BusinessDate() time.Time
}

type loanServiceImpl struct {
	repo      Repository
	cache     SummaryCache
	publisher EventPublisher
	clock     BusinessDateProvider
	logger    *slog.Logger
	now       func() time.Time
}

// NewLoanService wires the service. cache and publisher may be nil.
func NewLoanService(r Repository, cache SummaryCache, publisher EventPublisher, clock BusinessDateProvider, logger *slog.Logger) LoanService {
	return &loanServiceImpl{
		repo:      r,
		cache:     cache,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("component", "LoanService"),
		now:       time.Now,
	}
}

func (s *loanServiceImpl) BusinessDate() time.Time {
	return s.clock.BusinessDate()
}

func (s *loanServiceImpl) SubmitApplication(ctx context.Context, cmd SubmitCommand) (created *Loan, err error) {
	s.logger.InfoContext(ctx, "Submitting loan application", "clientID", cmd.ClientID, "principal", cmd.Terms.Principal.StringFixed())
	started := s.now()
	defer func() {
		monitoring.RecordLoanCommand(string(OpSubmit), commandOutcome(err), time.Since(started))
	}()

	res, err := Submit(cmd, s.clock.BusinessDate())
	if err != nil {
		s.logger.WarnContext(ctx, "Loan application rejected", "error", err)
		return nil, err
	}
	now := s.now()
	res.Loan.CreatedAt, res.Loan.UpdatedAt = now, now

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	created, err = s.repo.CreateInTx(ctx, tx, &res.Loan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save loan application", "error", err)
		return nil, fmt.Errorf("%w: failed to save loan application: %v", apperrors.ErrInternalServer, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "loanID", created.ID, "error", err)
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	res.Loan = *created
	s.publish(ctx, res, 0)
	s.logger.InfoContext(ctx, "Loan application submitted", "loanID", created.ID, "clientID", created.ClientID)
	return created, nil
}

func (s *loanServiceImpl) ModifyApplication(ctx context.Context, loanID int64, cmd ModifyCommand) (Result, error) {
	return s.execute(ctx, loanID, OpModify, func(l Loan, _ time.Time) (Result, error) { return l.Modify(cmd) })
}

func (s *loanServiceImpl) DeleteApplication(ctx context.Context, loanID int64) (err error) {
	s.logger.InfoContext(ctx, "Deleting loan application", "loanID", loanID)
	started := s.now()
	defer func() {
		monitoring.RecordLoanCommand(string(OpDelete), commandOutcome(err), time.Since(started))
	}()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := s.repo.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return s.loadError(ctx, loanID, err)
	}
	if err = current.CheckDeletable(); err != nil {
		s.logger.WarnContext(ctx, "Loan application cannot be deleted", "loanID", loanID, "status", current.Status, "error", err)
		return err
	}
	if err = s.repo.DeleteInTx(ctx, tx, loanID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete loan application", "loanID", loanID, "error", err)
		return fmt.Errorf("%w: failed to delete loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "loanID", loanID, "error", err)
		return fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	s.invalidate(ctx, loanID, current.Version+1)
	s.logger.InfoContext(ctx, "Loan application deleted", "loanID", loanID)
	return nil
}

func (s *loanServiceImpl) Approve(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpApprove, func(l Loan, bd time.Time) (Result, error) { return l.Approve(cmd, bd) })
}

func (s *loanServiceImpl) UndoApproval(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpUndoApproval, func(l Loan, bd time.Time) (Result, error) { return l.UndoApproval(cmd, bd) })
}

func (s *loanServiceImpl) Reject(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpReject, func(l Loan, bd time.Time) (Result, error) { return l.Reject(cmd, bd) })
}

func (s *loanServiceImpl) Withdraw(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpWithdraw, func(l Loan, bd time.Time) (Result, error) { return l.Withdraw(cmd, bd) })
}

func (s *loanServiceImpl) Disburse(ctx context.Context, loanID int64, cmd DisburseCommand) (Result, error) {
	return s.execute(ctx, loanID, OpDisburse, func(l Loan, bd time.Time) (Result, error) { return l.Disburse(cmd, bd) })
}

func (s *loanServiceImpl) UndoDisbursal(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpUndoDisbursal, func(l Loan, bd time.Time) (Result, error) { return l.UndoDisbursal(cmd, bd) })
}

func (s *loanServiceImpl) MakeRepayment(ctx context.Context, loanID int64, cmd CreditCommand) (Result, error) {
	return s.execute(ctx, loanID, OpMakeRepayment, func(l Loan, bd time.Time) (Result, error) { return l.MakeRepayment(cmd, bd) })
}

func (s *loanServiceImpl) Waive(ctx context.Context, loanID int64, cmd WaiveCommand) (Result, error) {
	return s.execute(ctx, loanID, OpWaive, func(l Loan, bd time.Time) (Result, error) { return l.Waive(cmd, bd) })
}

func (s *loanServiceImpl) WriteOff(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpWriteOff, func(l Loan, bd time.Time) (Result, error) { return l.WriteOff(cmd, bd) })
}

func (s *loanServiceImpl) AddCharge(ctx context.Context, loanID int64, cmd AddChargeCommand) (Result, error) {
	return s.execute(ctx, loanID, OpAddCharge, func(l Loan, bd time.Time) (Result, error) { return l.AddCharge(cmd, bd) })
}

func (s *loanServiceImpl) PayCharge(ctx context.Context, loanID int64, cmd ChargeTransactionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpPayCharge, func(l Loan, bd time.Time) (Result, error) { return l.PayCharge(cmd, bd) })
}

func (s *loanServiceImpl) AdjustCharge(ctx context.Context, loanID int64, cmd ChargeTransactionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpAdjustCharge, func(l Loan, bd time.Time) (Result, error) { return l.AdjustCharge(cmd, bd) })
}

func (s *loanServiceImpl) Chargeback(ctx context.Context, loanID int64, cmd ChargebackCommand) (Result, error) {
	return s.execute(ctx, loanID, OpChargeback, func(l Loan, bd time.Time) (Result, error) { return l.Chargeback(cmd, bd) })
}

func (s *loanServiceImpl) RefundCreditBalance(ctx context.Context, loanID int64, cmd AmountCommand) (Result, error) {
	return s.execute(ctx, loanID, OpCreditBalanceRefund, func(l Loan, bd time.Time) (Result, error) { return l.RefundCreditBalance(cmd, bd) })
}

func (s *loanServiceImpl) RecordAccrual(ctx context.Context, loanID int64, cmd AmountCommand) (Result, error) {
	return s.execute(ctx, loanID, OpAccrual, func(l Loan, bd time.Time) (Result, error) { return l.RecordAccrual(cmd, bd) })
}

func (s *loanServiceImpl) AdjustTransaction(ctx context.Context, loanID int64, cmd AdjustTransactionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpAdjustTransaction, func(l Loan, bd time.Time) (Result, error) { return l.AdjustTransaction(cmd, bd) })
}

func (s *loanServiceImpl) ReverseTransaction(ctx context.Context, loanID int64, cmd ReverseTransactionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpReverseTransaction, func(l Loan, bd time.Time) (Result, error) { return l.ReverseTransaction(cmd, bd) })
}

func (s *loanServiceImpl) Close(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpClose, func(l Loan, bd time.Time) (Result, error) { return l.Close(cmd, bd) })
}

func (s *loanServiceImpl) CloseAsRescheduled(ctx context.Context, loanID int64, cmd TransitionCommand) (Result, error) {
	return s.execute(ctx, loanID, OpCloseAsRescheduled, func(l Loan, bd time.Time) (Result, error) { return l.CloseAsRescheduled(cmd, bd) })
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	s.logger.InfoContext(ctx, "Getting loan details", "loanID", loanID)
	l, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return nil, s.loadError(ctx, loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) GetSummary(ctx context.Context, loanID int64, date time.Time) (Summary, error) {
	businessDate := truncateDate(date)
	if businessDate.IsZero() {
		businessDate = s.clock.BusinessDate()
	}
	logger := s.logger.With("loanID", loanID, "businessDate", businessDate.Format(DateLayout))

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, loanID, businessDate)
		switch {
		case err == nil:
			monitoring.RecordSummaryCacheLookup(true)
			return *cached, nil
		case errors.Is(err, ErrCacheMiss):
			monitoring.RecordSummaryCacheLookup(false)
		default:
			monitoring.RecordSummaryCacheLookup(false)
			logger.WarnContext(ctx, "Failed to read cached loan summary", "error", err)
		}
	}

	l, err := s.repo.GetByID(ctx, loanID)
	if err != nil {
		return Summary{}, s.loadError(ctx, loanID, err)
	}
	summary := l.Summary(businessDate)

	if s.cache != nil {
		if err := s.cache.Set(ctx, loanID, l.Version, businessDate, summary); err != nil {
			logger.WarnContext(ctx, "Failed to cache loan summary", "error", err)
		}
	}
	return summary, nil
}

func (s *loanServiceImpl) PreviewSchedule(ctx context.Context, cmd SubmitCommand) (Schedule, error) {
	s.logger.DebugContext(ctx, "Previewing loan schedule", "principal", cmd.Terms.Principal.StringFixed())
	res, err := Submit(cmd, s.clock.BusinessDate())
	if err != nil {
		return Schedule{}, err
	}
	return res.Loan.Schedule, nil
}

// execute runs one command under the loan's row lock. A NoChanges outcome
// rolls back without persisting.
func (s *loanServiceImpl) execute(ctx context.Context, loanID int64, op Operation, command func(Loan, time.Time) (Result, error)) (res Result, err error) {
	logger := s.logger.With("loanID", loanID, "operation", op)
	logger.InfoContext(ctx, "Executing loan command")
	started := s.now()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return Result{}, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	committed := false
	defer func() {
		outcome := commandOutcome(err)
		if err == nil && !res.Changed() {
			outcome = "no_changes"
		}
		monitoring.RecordLoanCommand(string(op), outcome, time.Since(started))
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Panic occurred during loan command", "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if !committed {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := s.repo.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return Result{}, s.loadError(ctx, loanID, err)
	}

	res, err = command(*current, s.clock.BusinessDate())
	if err != nil {
		s.logCommandError(ctx, logger, err)
		return Result{}, err
	}
	if !res.Changed() {
		logger.InfoContext(ctx, "Loan command made no changes")
		return res, nil
	}

	res.Loan.UpdatedAt = s.now()
	if err = s.repo.SaveInTx(ctx, tx, &res.Loan); err != nil {
		logger.ErrorContext(ctx, "Failed to save loan", "error", err)
		if errors.Is(err, apperrors.ErrConflict) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: failed to save loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	if err = s.repo.CommitTx(ctx, tx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return Result{}, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}
	committed = true

	for _, t := range res.Transactions {
		monitoring.RecordTransactionPosted(string(t.Type))
	}
	s.invalidate(ctx, loanID, res.Loan.Version)
	s.publish(ctx, res, len(current.History))
	logger.InfoContext(ctx, "Loan command applied", "status", res.Loan.Status, "transactions", len(res.Transactions))
	return res, nil
}

func (s *loanServiceImpl) loadError(ctx context.Context, loanID int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
		return fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
	}
	s.logger.ErrorContext(ctx, "Failed to load loan", "loanID", loanID, "error", err)
	return fmt.Errorf("%w: failed to load loan %d: %v", apperrors.ErrInternalServer, loanID, err)
}

func (s *loanServiceImpl) logCommandError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, apperrors.ErrInvariantViolation) {
		logger.ErrorContext(ctx, "Ledger invariant violated", "error", err)
		return
	}
	logger.WarnContext(ctx, "Loan command rejected", "error", err)
}

func (s *loanServiceImpl) invalidate(ctx context.Context, loanID, version int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, loanID, version); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate cached loan summary", "loanID", loanID, "error", err)
	}
}

// publish sends the events of a committed result. Failures are logged only.
// History entries from index since on are reported as status changes.
func (s *loanServiceImpl) publish(ctx context.Context, res Result, since int) {
	if s.publisher == nil {
		return
	}
	for _, e := range s.events(res, since) {
		if err := s.publisher.PublishLoanEvent(ctx, e); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish loan event", "loanID", e.LoanID, "kind", e.Kind, "error", err)
		}
	}
}

func (s *loanServiceImpl) events(res Result, since int) []Event {
	l := res.Loan
	base := Event{
		LoanID:       l.ID,
		Operation:    res.Operation,
		Status:       l.Status,
		BusinessDate: s.clock.BusinessDate(),
		Timestamp:    s.now(),
	}
	newEvent := func(kind string) Event {
		e := base
		e.ID = uuid.NewString()
		e.Kind = kind
		return e
	}

	changed := newEvent(EventLoanChanged)
	changed.Changes = res.Changes
	events := []Event{changed}
	for i := range res.Transactions {
		e := newEvent(EventTransactionPosted)
		e.Transaction = &res.Transactions[i]
		events = append(events, e)
	}
	for i := since; i < len(l.History); i++ {
		e := newEvent(EventStatusChanged)
		e.StatusChange = &l.History[i]
		events = append(events, e)
	}
	return events
}

func commandOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrInvalidStateTransition),
		errors.Is(err, apperrors.ErrIllegalTransaction),
		errors.Is(err, apperrors.ErrValidation):
		return "rejected"
	default:
		return "failure"
	}
}
