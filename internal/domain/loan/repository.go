package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository persists loan aggregates. Schedules are rebuilt from terms,
// charges, disbursements and transactions on load.
type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	CreateInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error)

	// GetForUpdate loads a loan and holds its row lock until tx ends.
	GetForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	SaveInTx(ctx context.Context, tx pgx.Tx, l *Loan) error

	DeleteInTx(ctx context.Context, tx pgx.Tx, loanID int64) error

	GetByID(ctx context.Context, loanID int64) (*Loan, error)

	ListIDsByStatus(ctx context.Context, statuses ...Status) ([]int64, error)

	// UpdateArrears stores the arrears projection and reports whether it
	// differed from the stored one.
	UpdateArrears(ctx context.Context, loanID int64, overdueSince *time.Time, inArrears bool) (bool, error)
}
