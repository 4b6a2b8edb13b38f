package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pgxmockExpectationsNotMetMsg = "pgxmock expectations not met"

var (
	usd          = money.MustCurrency("USD", 2)
	businessDate = loan.Date(2024, time.June, 30)
	createdAt    = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)
)

func setupLoanRepo(t *testing.T) (context.Context, *LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}
	return context.Background(), NewLoanRepository(mockPool, logger), mockPool
}

func testTerms() loan.Terms {
	return loan.Terms{
		Currency:                        usd,
		Principal:                       money.MustParse(usd, "12000"),
		NominalInterestRatePerPeriod:    decimal.NewFromInt(12),
		InterestRateFrequency:           loan.FrequencyYears,
		InterestMethod:                  loan.InterestDecliningBalance,
		InterestCalculationPeriodMethod: loan.InterestPeriodSameAsRepayment,
		AmortizationMethod:              loan.AmortizationEqualInstallments,
		RepayEvery:                      1,
		RepaymentFrequency:              loan.FrequencyMonths,
		NumberOfRepayments:              12,
		InArrearsTolerance:              money.Zero(usd),
		ExpectedDisbursementDate:        loan.Date(2024, time.January, 1),
	}
}

// repaidLoan is an active loan with its first installment repaid.
func repaidLoan(t *testing.T) loan.Loan {
	t.Helper()
	jan1 := loan.Date(2024, time.January, 1)
	res, err := loan.Submit(loan.SubmitCommand{ClientID: 9, Terms: testTerms(), SubmittedOn: jan1}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.Approve(loan.TransitionCommand{Date: jan1}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.Disburse(loan.DisburseCommand{Date: jan1}, businessDate)
	require.NoError(t, err)
	res, err = res.Loan.MakeRepayment(loan.CreditCommand{Date: loan.Date(2024, time.February, 1), Amount: money.MustParse(usd, "1066.19")}, businessDate)
	require.NoError(t, err)

	l := res.Loan
	l.ID = 7
	l.Version = 3
	l.CreatedAt, l.UpdatedAt = createdAt, createdAt
	return l
}

func expectLoad(t *testing.T, mockPool pgxmock.PgxPoolIface, query string, l loan.Loan) {
	t.Helper()
	terms, err := json.Marshal(l.Terms)
	require.NoError(t, err)

	mockPool.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(l.ID).WillReturnRows(
		pgxmock.NewRows([]string{"id", "external_id", "client_id", "status", "terms", "strategy", "first_repayment_date",
			"interest_charged_from_date", "submitted_on", "approved_on", "disbursed_on", "closed_on", "overpayment_amount",
			"version", "created_at", "updated_at"}).
			AddRow(l.ID, (*string)(nil), l.ClientID, l.Status, terms, l.Strategy, (*time.Time)(nil), (*time.Time)(nil),
				l.SubmittedOn, nullableDate(l.ApprovedOn), nullableDate(l.DisbursedOn), (*time.Time)(nil),
				l.Overpayment.Amount(), l.Version, l.CreatedAt, l.UpdatedAt))

	mockPool.ExpectQuery(regexp.QuoteMeta(selectChargesSQL)).WithArgs(l.ID).WillReturnRows(
		pgxmock.NewRows([]string{"charge_id", "charge_definition_id", "name", "charge_time", "calculation", "amount", "due_date", "penalty"}))

	disbursements := pgxmock.NewRows([]string{"expected_date", "actual_date", "principal_amount", "net_amount"})
	for _, d := range l.Disbursements {
		disbursements.AddRow(d.ExpectedDate, nullableDate(d.ActualDate), d.Principal.Amount(), d.NetDisbursalAmount.Amount())
	}
	mockPool.ExpectQuery(regexp.QuoteMeta(selectDisbursementsSQL)).WithArgs(l.ID).WillReturnRows(disbursements)

	transactions := pgxmock.NewRows([]string{"transaction_id", "external_id", "type", "transaction_date", "submitted_on", "amount",
		"reversed", "reversed_on", "reversal_of", "charge_id", "chargeback_of", "note"})
	for _, tx := range l.Transactions {
		transactions.AddRow(tx.ID, tx.ExternalID, tx.Type, tx.Date, tx.SubmittedOn, tx.Amount.Amount(),
			tx.Reversed, nullableDate(tx.ReversedOn), tx.ReversalOf, tx.ChargeID, tx.ChargebackOf, tx.Note)
	}
	mockPool.ExpectQuery(regexp.QuoteMeta(selectTransactionsSQL)).WithArgs(l.ID).WillReturnRows(transactions)

	history := pgxmock.NewRows([]string{"from_status", "to_status", "operation", "change_date", "note"})
	for _, h := range l.History {
		history.AddRow(h.From, h.To, h.Operation, h.Date, h.Note)
	}
	mockPool.ExpectQuery(regexp.QuoteMeta(selectHistorySQL)).WithArgs(l.ID).WillReturnRows(history)
}

func TestGetLoanByIDRebuildsDerivedState(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	stored := repaidLoan(t)
	expectLoad(t, mockPool, selectLoanSQL, stored)

	loaded, err := repo.GetByID(ctx, stored.ID)

	require.NoError(t, err)
	assert.Equal(t, stored.Status, loaded.Status)
	assert.Equal(t, stored.Version, loaded.Version)
	assert.Equal(t, usd, loaded.Terms.Principal.Currency())
	require.Len(t, loaded.Schedule.Installments, 12)
	first := loaded.Schedule.Installments[0]
	assert.Equal(t, "120.00", first.Interest.Paid.StringFixed())
	assert.Equal(t, "946.19", first.Principal.Paid.StringFixed())
	assert.Len(t, loaded.Transactions, len(stored.Transactions))
	assert.Equal(t,
		stored.Summary(businessDate).TotalOutstanding.StringFixed(),
		loaded.Summary(businessDate).TotalOutstanding.StringFixed())
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByIDWhenNotFound(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(selectLoanSQL)).WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	loaded, err := repo.GetByID(ctx, 404)

	assert.Nil(t, loaded)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetLoanByIDWhenQueryFails(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(selectLoanSQL)).WithArgs(int64(7)).WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByID(ctx, 7)

	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestGetForUpdateLocksTheLoanRow(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	stored := repaidLoan(t)

	mockPool.ExpectBegin()
	expectLoad(t, mockPool, selectLoanSQL+"\n        FOR UPDATE", stored)
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	loaded, err := repo.GetForUpdate(ctx, tx, stored.ID)

	require.NoError(t, err)
	assert.Equal(t, stored.ID, loaded.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestCreateInTxWithoutChildRows(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	application := loan.Loan{
		ClientID:    9,
		Status:      loan.StatusSubmitted,
		Terms:       testTerms(),
		Strategy:    loan.DefaultStrategy,
		SubmittedOn: loan.Date(2024, time.January, 1),
		Overpayment: money.Zero(usd),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(regexp.QuoteMeta(insertLoanSQL)).WithArgs(
		(*string)(nil), int64(9), loan.StatusSubmitted, "USD", pgxmock.AnyArg(), pgxmock.AnyArg(), loan.DefaultStrategy,
		(*time.Time)(nil), (*time.Time)(nil), application.SubmittedOn, (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil),
		pgxmock.AnyArg(), createdAt, createdAt,
	).WillReturnRows(pgxmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
		AddRow(int64(42), int64(1), createdAt, createdAt))
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	created, err := repo.CreateInTx(ctx, tx, &application)

	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, int64(1), created.Version)
	assert.Zero(t, application.ID, "input loan must stay untouched")
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestSaveInTxWhenVersionIsStale(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()
	l := repaidLoan(t)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(updateLoanSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), l.ID, l.Version).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	err = repo.SaveInTx(ctx, tx, &l)

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, int64(3), l.Version)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestDeleteInTx(t *testing.T) {
	t.Run("Deletes an existing loan", func(t *testing.T) {
		ctx, repo, mockPool := setupLoanRepo(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(deleteLoanSQL)).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		assert.NoError(t, repo.DeleteInTx(ctx, tx, 5))
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Unknown loan", func(t *testing.T) {
		ctx, repo, mockPool := setupLoanRepo(t)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec(regexp.QuoteMeta(deleteLoanSQL)).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		assert.ErrorIs(t, repo.DeleteInTx(ctx, tx, 5), apperrors.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestListIDsByStatus(t *testing.T) {
	ctx, repo, mockPool := setupLoanRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(listIDsByStatusSQL)).
		WithArgs([]string{string(loan.StatusActive), string(loan.StatusOverpaid)}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(4)))

	ids, err := repo.ListIDsByStatus(ctx, loan.StatusActive, loan.StatusOverpaid)

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestUpdateArrears(t *testing.T) {
	since := loan.Date(2024, time.February, 1)

	t.Run("Changed", func(t *testing.T) {
		ctx, repo, mockPool := setupLoanRepo(t)
		defer mockPool.Close()

		mockPool.ExpectExec(regexp.QuoteMeta(updateArrearsSQL)).WithArgs(&since, true, int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		changed, err := repo.UpdateArrears(ctx, 7, &since, true)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("Unchanged", func(t *testing.T) {
		ctx, repo, mockPool := setupLoanRepo(t)
		defer mockPool.Close()

		mockPool.ExpectExec(regexp.QuoteMeta(updateArrearsSQL)).WithArgs((*time.Time)(nil), false, int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		changed, err := repo.UpdateArrears(ctx, 7, nil, false)

		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestTranslateDBError(t *testing.T) {
	assert.Nil(t, translateDBError(nil, logger))
	assert.ErrorIs(t, translateDBError(pgx.ErrNoRows, logger), apperrors.ErrNotFound)
	assert.ErrorIs(t, translateDBError(errors.New("boom"), logger), apperrors.ErrDatabase)

	err := translateDBError(&pgconn.PgError{Code: "23505", ConstraintName: "loans_external_id_key"}, logger)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	err = translateDBError(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, logger)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "DB_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "40P01")
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "deadlock detected", pgErr.Message)
}
