package batch

import (
	"context"
	"errors"
	"fmt"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// UpdateArrearsJob recomputes the arrears projection of every active loan
// as of the business date and stores it where it changed.
type UpdateArrearsJob struct {
	loanRepo    loan.Repository
	loanService loan.LoanService
	publisher   loan.EventPublisher
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewUpdateArrearsJob(
	loanRepo loan.Repository,
	loanSvc loan.LoanService,
	publisher loan.EventPublisher,
	concurrency int,
	logger *slog.Logger,
) *UpdateArrearsJob {
	if loanRepo == nil || loanSvc == nil || logger == nil {
		panic("UpdateArrearsJob dependencies cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &UpdateArrearsJob{
		loanRepo:    loanRepo,
		loanService: loanSvc,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger.With("job", "UpdateArrears"),
		now:         time.Now,
	}
}

func (j *UpdateArrearsJob) Run(ctx context.Context) error {
	startTime := time.Now()
	businessDate := j.loanService.BusinessDate()
	j.logger.InfoContext(ctx, "Starting loan arrears update job.", "businessDate", businessDate.Format(loan.DateLayout))

	activeLoanIDs, err := j.loanRepo.ListIDsByStatus(ctx, loan.StatusActive)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active loan IDs, aborting job.", slog.Any("error", err))
		monitoring.RecordArrearsRun("failure", time.Since(startTime), 0)
		return fmt.Errorf("cannot run job, failed to get active loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active loan IDs.", slog.Int("count", len(activeLoanIDs)))

	var processedCount, inArrearsCount, updatedCount, errorCount atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, loanID := range activeLoanIDs {
		loanID := loanID
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			logCtx := j.logger.With(slog.Int64("loanID", loanID))

			summary, err := j.loanService.GetSummary(gctx, loanID, businessDate)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					logCtx.WarnContext(gctx, "Loan not found during arrears check (potentially deleted recently?)", slog.Any("error", err))
				} else {
					logCtx.ErrorContext(gctx, "Failed to derive loan summary", slog.Any("error", err))
					errorCount.Add(1)
				}
				return nil
			}
			if summary.InArrears {
				inArrearsCount.Add(1)
			}

			changed, err := j.loanRepo.UpdateArrears(gctx, loanID, summary.OverdueSinceDate, summary.InArrears)
			if err != nil {
				logCtx.ErrorContext(gctx, "Failed to store arrears projection", slog.Any("error", err))
				errorCount.Add(1)
				return nil
			}
			processedCount.Add(1)
			if !changed {
				logCtx.DebugContext(gctx, "Loan arrears projection already current.", slog.Bool("inArrears", summary.InArrears))
				return nil
			}

			updatedCount.Add(1)
			logCtx.InfoContext(gctx, "Loan arrears projection updated.", slog.Bool("inArrears", summary.InArrears), slog.Int("daysInArrears", summary.DaysInArrears))
			j.publishArrearsChanged(gctx, loanID, businessDate, summary)
			return nil
		})
	}
	runErr := g.Wait()

	duration := time.Since(startTime)
	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("total_active_loans", len(activeLoanIDs)),
		slog.Int("loans_processed", int(processedCount.Load())),
		slog.Int("loans_in_arrears", int(inArrearsCount.Load())),
		slog.Int("projections_updated", int(updatedCount.Load())),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)

	switch {
	case runErr != nil:
		summaryLog.WarnContext(ctx, "Loan arrears update job interrupted.", slog.Any("error", runErr))
		monitoring.RecordArrearsRun("failure", duration, int(inArrearsCount.Load()))
		return fmt.Errorf("job interrupted: %w", runErr)
	case errorCount.Load() > 0:
		summaryLog.WarnContext(ctx, "Loan arrears update job finished with errors.")
		monitoring.RecordArrearsRun("partial", duration, int(inArrearsCount.Load()))
		return fmt.Errorf("job completed with %d errors", errorCount.Load())
	default:
		summaryLog.InfoContext(ctx, "Loan arrears update job finished successfully.")
		monitoring.RecordArrearsRun("success", duration, int(inArrearsCount.Load()))
		return nil
	}
}

func (j *UpdateArrearsJob) publishArrearsChanged(ctx context.Context, loanID int64, businessDate time.Time, summary loan.Summary) {
	if j.publisher == nil {
		return
	}
	event := loan.Event{
		ID:           uuid.NewString(),
		Kind:         loan.EventArrearsChanged,
		LoanID:       loanID,
		Status:       loan.StatusActive,
		InArrears:    summary.InArrears,
		OverdueSince: summary.OverdueSinceDate,
		BusinessDate: businessDate,
		Timestamp:    j.now(),
	}
	if err := j.publisher.PublishLoanEvent(ctx, event); err != nil {
		j.logger.ErrorContext(ctx, "Failed to publish arrears change", "loanID", loanID, slog.Any("error", err))
	}
}
