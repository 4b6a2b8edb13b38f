package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

type TxMock struct {
	pgx.Tx
}

var tx pgx.Tx = &TxMock{}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) CreateInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error) {
	args := m.Called(ctx, tx, l)
	if rf, ok := args.Get(0).(func(context.Context, pgx.Tx, *Loan) *Loan); ok {
		return rf(ctx, tx, l), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	args := m.Called(ctx, tx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) SaveInTx(ctx context.Context, tx pgx.Tx, l *Loan) error {
	args := m.Called(ctx, tx, l)
	if args.Error(0) == nil {
		l.Version++
	}
	return args.Error(0)
}

func (m *MockRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, loanID int64) error {
	args := m.Called(ctx, tx, loanID)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, loanID int64) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) ListIDsByStatus(ctx context.Context, statuses ...Status) ([]int64, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository) UpdateArrears(ctx context.Context, loanID int64, overdueSince *time.Time, inArrears bool) (bool, error) {
	args := m.Called(ctx, loanID, overdueSince, inArrears)
	return args.Bool(0), args.Error(1)
}

type MockSummaryCache struct {
	mock.Mock
}

func (m *MockSummaryCache) Get(ctx context.Context, loanID int64, businessDate time.Time) (*Summary, error) {
	args := m.Called(ctx, loanID, businessDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Summary), args.Error(1)
}

func (m *MockSummaryCache) Set(ctx context.Context, loanID, version int64, businessDate time.Time, summary Summary) error {
	args := m.Called(ctx, loanID, version, businessDate, summary)
	return args.Error(0)
}

func (m *MockSummaryCache) Invalidate(ctx context.Context, loanID, version int64) error {
	args := m.Called(ctx, loanID, version)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishLoanEvent(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
