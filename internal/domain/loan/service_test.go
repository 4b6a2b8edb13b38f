package loan

import (
	"context"
	"errors"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type serviceMocks struct {
	repo      *MockRepository
	cache     *MockSummaryCache
	publisher *MockEventPublisher
}

func newTestService() (LoanService, serviceMocks) {
	m := serviceMocks{repo: new(MockRepository), cache: new(MockSummaryCache), publisher: new(MockEventPublisher)}
	return NewLoanService(m.repo, m.cache, m.publisher, FixedBusinessDate(businessDate), logger), m
}

func (m serviceMocks) assertExpectations(t *testing.T) {
	m.repo.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func eventKind(kind string) any {
	return mock.MatchedBy(func(e Event) bool { return e.Kind == kind })
}

func TestSubmitApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("CreateInTx", ctx, tx, mock.AnythingOfType("*loan.Loan")).Return(func(_ context.Context, _ pgx.Tx, l *Loan) *Loan {
			created := *l
			created.ID = 42
			return &created
		}, nil).Once()
		m.repo.On("CommitTx", ctx, tx).Return(nil).Once()
		m.publisher.On("PublishLoanEvent", ctx, eventKind(EventLoanChanged)).Return(nil).Once()
		m.publisher.On("PublishLoanEvent", ctx, eventKind(EventStatusChanged)).Return(nil).Once()

		created, err := svc.SubmitApplication(ctx, SubmitCommand{ClientID: 9, Terms: monthlyTerms("12000", 12, 12)})

		require.NoError(t, err)
		assert.Equal(t, int64(42), created.ID)
		assert.Equal(t, StatusSubmitted, created.Status)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Len(t, created.Schedule.Installments, 12)
		m.assertExpectations(t)
	})

	t.Run("Invalid terms are rejected before any storage call", func(t *testing.T) {
		svc, m := newTestService()
		terms := monthlyTerms("12000", 12, 12)
		terms.NumberOfRepayments = 0

		created, err := svc.SubmitApplication(ctx, SubmitCommand{Terms: terms})

		assert.Nil(t, created)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTerms)
		m.assertExpectations(t)
	})

	t.Run("Storage failure rolls back", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("CreateInTx", ctx, tx, mock.AnythingOfType("*loan.Loan")).Return(nil, errors.New("connection reset")).Once()
		m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

		_, err := svc.SubmitApplication(ctx, SubmitCommand{Terms: monthlyTerms("12000", 12, 12)})

		assert.ErrorIs(t, err, apperrors.ErrInternalServer)
		m.assertExpectations(t)
	})
}

func TestMakeRepayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success persists, invalidates and publishes", func(t *testing.T) {
		svc, m := newTestService()
		current := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(7)).Return(&current, nil).Once()
		m.repo.On("SaveInTx", ctx, tx, mock.MatchedBy(func(l *Loan) bool {
			return len(l.Transactions) == 1 && l.Schedule.Installments[0].Interest.Paid.StringFixed() == "300.00"
		})).Return(nil).Once()
		m.repo.On("CommitTx", ctx, tx).Return(nil).Once()
		m.cache.On("Invalidate", ctx, int64(7), int64(1)).Return(nil).Once()
		m.publisher.On("PublishLoanEvent", ctx, eventKind(EventLoanChanged)).Return(nil).Once()
		m.publisher.On("PublishLoanEvent", ctx, eventKind(EventTransactionPosted)).Return(nil).Once()

		res, err := svc.MakeRepayment(ctx, 7, CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("500")})

		require.NoError(t, err)
		assert.True(t, res.Changed())
		require.Len(t, res.Transactions, 1)
		assert.Equal(t, "200.00", res.Transactions[0].Portions.Principal.StringFixed())
		assert.True(t, current.Schedule.Installments[0].Interest.Paid.IsZero(), "loaded loan must stay untouched")
		m.assertExpectations(t)
	})

	t.Run("Illegal transaction rolls back without saving", func(t *testing.T) {
		svc, m := newTestService()
		current := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(7)).Return(&current, nil).Once()
		m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

		_, err := svc.MakeRepayment(ctx, 7, CreditCommand{Date: Date(2023, time.December, 1), Amount: usdAmount("500")})

		var txErr *TransactionError
		assert.ErrorAs(t, err, &txErr)
		m.repo.AssertNotCalled(t, "SaveInTx", mock.Anything, mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("Unknown loan", func(t *testing.T) {
		svc, m := newTestService()
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(404)).Return(nil, pgx.ErrNoRows).Once()
		m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

		_, err := svc.MakeRepayment(ctx, 404, CreditCommand{Amount: usdAmount("1")})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		m.assertExpectations(t)
	})

	t.Run("Save failure", func(t *testing.T) {
		svc, m := newTestService()
		current := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(7)).Return(&current, nil).Once()
		m.repo.On("SaveInTx", ctx, tx, mock.AnythingOfType("*loan.Loan")).Return(errors.New("disk full")).Once()
		m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

		_, err := svc.MakeRepayment(ctx, 7, CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("500")})

		assert.ErrorIs(t, err, apperrors.ErrInternalServer)
		m.assertExpectations(t)
	})

	t.Run("Publish failure does not fail the command", func(t *testing.T) {
		svc, m := newTestService()
		current := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(7)).Return(&current, nil).Once()
		m.repo.On("SaveInTx", ctx, tx, mock.AnythingOfType("*loan.Loan")).Return(nil).Once()
		m.repo.On("CommitTx", ctx, tx).Return(nil).Once()
		m.cache.On("Invalidate", ctx, int64(7), int64(1)).Return(errors.New("redis down")).Once()
		m.publisher.On("PublishLoanEvent", ctx, mock.Anything).Return(errors.New("broker down")).Twice()

		res, err := svc.MakeRepayment(ctx, 7, CreditCommand{Date: Date(2024, time.February, 1), Amount: usdAmount("500")})

		require.NoError(t, err)
		assert.True(t, res.Changed())
		m.assertExpectations(t)
	})
}

func TestDisburse_StateTransitionRejected(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	current := submitted(t, monthlyTerms("12000", 12, 12))
	current.ID = 3
	m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
	m.repo.On("GetForUpdate", ctx, tx, int64(3)).Return(&current, nil).Once()
	m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

	_, err := svc.Disburse(ctx, 3, DisburseCommand{})

	var stErr *StateTransitionError
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, StatusSubmitted, stErr.CurrentState)
	assert.ErrorIs(t, err, apperrors.ErrIllegalTransaction)
	m.assertExpectations(t)
}

func TestApprove_PublishesStatusChange(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	current := submitted(t, monthlyTerms("12000", 12, 12))
	current.ID = 3
	m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
	m.repo.On("GetForUpdate", ctx, tx, int64(3)).Return(&current, nil).Once()
	m.repo.On("SaveInTx", ctx, tx, mock.AnythingOfType("*loan.Loan")).Return(nil).Once()
	m.repo.On("CommitTx", ctx, tx).Return(nil).Once()
	m.cache.On("Invalidate", ctx, int64(3), int64(1)).Return(nil).Once()
	m.publisher.On("PublishLoanEvent", ctx, eventKind(EventLoanChanged)).Return(nil).Once()
	m.publisher.On("PublishLoanEvent", ctx, mock.MatchedBy(func(e Event) bool {
		return e.Kind == EventStatusChanged && e.StatusChange.From == StatusSubmitted && e.StatusChange.To == StatusApproved && e.ID != ""
	})).Return(nil).Once()

	res, err := svc.Approve(ctx, 3, TransitionCommand{})

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Loan.Status)
	assert.Equal(t, businessDate, res.Loan.ApprovedOn)
	m.assertExpectations(t)
}

func TestModifyApplication_NoChangesRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, m := newTestService()
	current := submitted(t, monthlyTerms("12000", 12, 12))
	m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
	m.repo.On("GetForUpdate", ctx, tx, int64(5)).Return(&current, nil).Once()
	m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

	res, err := svc.ModifyApplication(ctx, 5, ModifyCommand{Terms: current.Terms})

	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	m.repo.AssertNotCalled(t, "SaveInTx", mock.Anything, mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestDeleteApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("Submitted application is deleted", func(t *testing.T) {
		svc, m := newTestService()
		current := submitted(t, monthlyTerms("12000", 12, 12))
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(5)).Return(&current, nil).Once()
		m.repo.On("DeleteInTx", ctx, tx, int64(5)).Return(nil).Once()
		m.repo.On("CommitTx", ctx, tx).Return(nil).Once()
		m.cache.On("Invalidate", ctx, int64(5), int64(1)).Return(nil).Once()

		require.NoError(t, svc.DeleteApplication(ctx, 5))
		m.assertExpectations(t)
	})

	t.Run("Active loan cannot be deleted", func(t *testing.T) {
		svc, m := newTestService()
		current := activeLoan(installment(1, Date(2024, time.January, 1), Date(2024, time.February, 1), "600", "300"))
		m.repo.On("BeginTx", ctx).Return(tx, nil).Once()
		m.repo.On("GetForUpdate", ctx, tx, int64(7)).Return(&current, nil).Once()
		m.repo.On("RollbackTx", ctx, tx).Return(nil).Once()

		err := svc.DeleteApplication(ctx, 7)

		assert.ErrorIs(t, err, apperrors.ErrInvalidStateTransition)
		m.assertExpectations(t)
	})
}

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	on := Date(2024, time.March, 15)

	t.Run("Cache hit", func(t *testing.T) {
		svc, m := newTestService()
		cached := Summary{DaysInArrears: 43}
		m.cache.On("Get", ctx, int64(7), on).Return(&cached, nil).Once()

		sum, err := svc.GetSummary(ctx, 7, on)

		require.NoError(t, err)
		assert.Equal(t, 43, sum.DaysInArrears)
		m.assertExpectations(t)
	})

	t.Run("Cache miss derives and stores under the loaded version", func(t *testing.T) {
		svc, m := newTestService()
		l := disbursed(t, monthlyTerms("12000", 12, 12))
		l.Version = 4
		m.cache.On("Get", ctx, int64(7), on).Return(nil, ErrCacheMiss).Once()
		m.repo.On("GetByID", ctx, int64(7)).Return(&l, nil).Once()
		m.cache.On("Set", ctx, int64(7), int64(4), on, mock.AnythingOfType("loan.Summary")).Return(nil).Once()

		sum, err := svc.GetSummary(ctx, 7, on)

		require.NoError(t, err)
		assert.Equal(t, "2132.38", sum.TotalOverdue.StringFixed())
		assert.Equal(t, 43, sum.DaysInArrears)
		m.assertExpectations(t)
	})

	t.Run("Zero date uses the business date", func(t *testing.T) {
		svc, m := newTestService()
		l := disbursed(t, monthlyTerms("12000", 12, 12))
		m.cache.On("Get", ctx, int64(7), businessDate).Return(nil, errors.New("timeout")).Once()
		m.repo.On("GetByID", ctx, int64(7)).Return(&l, nil).Once()
		m.cache.On("Set", ctx, int64(7), int64(0), businessDate, mock.AnythingOfType("loan.Summary")).Return(nil).Once()

		sum, err := svc.GetSummary(ctx, 7, time.Time{})

		require.NoError(t, err)
		assert.Equal(t, businessDate, sum.BusinessDate)
		m.assertExpectations(t)
	})

	t.Run("Unknown loan", func(t *testing.T) {
		svc, m := newTestService()
		m.cache.On("Get", ctx, int64(404), on).Return(nil, ErrCacheMiss).Once()
		m.repo.On("GetByID", ctx, int64(404)).Return(nil, apperrors.ErrNotFound).Once()

		_, err := svc.GetSummary(ctx, 404, on)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		m.assertExpectations(t)
	})
}

func TestPreviewSchedule(t *testing.T) {
	svc, m := newTestService()

	s, err := svc.PreviewSchedule(context.Background(), SubmitCommand{Terms: monthlyTerms("12000", 12, 12)})

	require.NoError(t, err)
	require.Len(t, s.Installments, 12)
	assert.Equal(t, "1066.19", s.Installments[0].TotalDue().StringFixed())
	m.assertExpectations(t)
}
