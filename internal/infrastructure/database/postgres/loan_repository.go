package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/monitoring"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ loan.Repository = (*LoanRepository)(nil)

var errMsgFormat = "%w: %w"

const (
	insertLoanSQL = `
        INSERT INTO loans (external_id, client_id, status, currency_code, principal_amount, terms, strategy,
            first_repayment_date, interest_charged_from_date, submitted_on, approved_on, disbursed_on, closed_on,
            overpayment_amount, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1, $15, $16)
        RETURNING id, version, created_at, updated_at`

	updateLoanSQL = `
        UPDATE loans
        SET external_id = $1, status = $2, principal_amount = $3, terms = $4, strategy = $5,
            first_repayment_date = $6, interest_charged_from_date = $7, approved_on = $8, disbursed_on = $9,
            closed_on = $10, overpayment_amount = $11, version = version + 1, updated_at = $12
        WHERE id = $13 AND version = $14`

	selectLoanSQL = `
        SELECT id, external_id, client_id, status, terms, strategy, first_repayment_date, interest_charged_from_date,
            submitted_on, approved_on, disbursed_on, closed_on, overpayment_amount, version, created_at, updated_at
        FROM loans
        WHERE id = $1`

	selectChargesSQL = `
        SELECT charge_id, charge_definition_id, name, charge_time, calculation, amount, due_date, penalty
        FROM loan_charges
        WHERE loan_id = $1
        ORDER BY charge_id`

	selectDisbursementsSQL = `
        SELECT expected_date, actual_date, principal_amount, net_amount
        FROM loan_disbursements
        WHERE loan_id = $1
        ORDER BY seq`

	selectTransactionsSQL = `
        SELECT transaction_id, external_id, type, transaction_date, submitted_on, amount, reversed, reversed_on,
            reversal_of, charge_id, chargeback_of, note
        FROM loan_transactions
        WHERE loan_id = $1
        ORDER BY transaction_id`

	selectHistorySQL = `
        SELECT from_status, to_status, operation, change_date, note
        FROM loan_status_history
        WHERE loan_id = $1
        ORDER BY seq`

	insertChargeSQL = `
        INSERT INTO loan_charges (loan_id, charge_id, charge_definition_id, name, charge_time, calculation, amount, due_date, penalty)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertDisbursementSQL = `
        INSERT INTO loan_disbursements (loan_id, seq, expected_date, actual_date, principal_amount, net_amount)
        VALUES ($1, $2, $3, $4, $5, $6)`

	insertTransactionSQL = `
        INSERT INTO loan_transactions (loan_id, transaction_id, external_id, type, transaction_date, submitted_on, amount,
            reversed, reversed_on, reversal_of, charge_id, chargeback_of, note)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	insertHistorySQL = `
        INSERT INTO loan_status_history (loan_id, seq, from_status, to_status, operation, change_date, note)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteChargesSQL       = `DELETE FROM loan_charges WHERE loan_id = $1`
	deleteDisbursementsSQL = `DELETE FROM loan_disbursements WHERE loan_id = $1`
	deleteTransactionsSQL  = `DELETE FROM loan_transactions WHERE loan_id = $1`
	deleteHistorySQL       = `DELETE FROM loan_status_history WHERE loan_id = $1`

	deleteLoanSQL = `DELETE FROM loans WHERE id = $1`

	listIDsByStatusSQL = `SELECT id FROM loans WHERE status = ANY($1) ORDER BY id`

	updateArrearsSQL = `
        UPDATE loans
        SET overdue_since = $1, in_arrears = $2, updated_at = NOW()
        WHERE id = $3 AND (in_arrears IS DISTINCT FROM $2 OR overdue_since IS DISTINCT FROM $1)`
)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) CreateInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (created *loan.Loan, err error) {
	defer observe("CreateLoan", time.Now(), &err)

	terms, err := json.Marshal(l.Terms)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode loan terms: %w", apperrors.ErrDatabase, err)
	}

	c := *l
	err = tx.QueryRow(ctx, insertLoanSQL,
		nullableString(l.ExternalID), l.ClientID, l.Status, l.Terms.Currency.Code, l.Terms.Principal.Amount(), terms, l.Strategy,
		nullableDate(l.FirstRepaymentDate), nullableDate(l.InterestChargedFromDate), l.SubmittedOn,
		nullableDate(l.ApprovedOn), nullableDate(l.DisbursedOn), nullableDate(l.ClosedOn),
		l.Overpayment.Amount(), l.CreatedAt, l.UpdatedAt,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", c.ID)

	if err = r.insertChildren(ctx, tx, &c, false); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (l *loan.Loan, err error) {
	defer observe("GetLoanForUpdate", time.Now(), &err)
	return r.load(ctx, tx, loanID, selectLoanSQL+"\n        FOR UPDATE")
}

func (r *LoanRepository) GetByID(ctx context.Context, loanID int64) (l *loan.Loan, err error) {
	defer observe("GetLoanByID", time.Now(), &err)
	return r.load(ctx, r.db, loanID, selectLoanSQL)
}

// SaveInTx writes the loan row under an optimistic version check and
// replaces its charges, disbursements, transactions and history.
func (r *LoanRepository) SaveInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (err error) {
	defer observe("SaveLoan", time.Now(), &err)

	terms, err := json.Marshal(l.Terms)
	if err != nil {
		return fmt.Errorf("%w: failed to encode loan terms: %w", apperrors.ErrDatabase, err)
	}

	cmdTag, err := tx.Exec(ctx, updateLoanSQL,
		nullableString(l.ExternalID), l.Status, l.Terms.Principal.Amount(), terms, l.Strategy,
		nullableDate(l.FirstRepaymentDate), nullableDate(l.InterestChargedFromDate),
		nullableDate(l.ApprovedOn), nullableDate(l.DisbursedOn), nullableDate(l.ClosedOn),
		l.Overpayment.Amount(), l.UpdatedAt, l.ID, l.Version,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.WarnContext(ctx, "Loan update lost a version race", "loan_id", l.ID, "version", l.Version)
		return fmt.Errorf("%w: loan %d was modified concurrently", apperrors.ErrConflict, l.ID)
	}
	l.Version++

	return r.insertChildren(ctx, tx, l, true)
}

func (r *LoanRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, loanID int64) (err error) {
	defer observe("DeleteLoan", time.Now(), &err)

	cmdTag, err := tx.Exec(ctx, deleteLoanSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete loan", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Loan deleted from DB", "loan_id", loanID)
	return nil
}

func (r *LoanRepository) ListIDsByStatus(ctx context.Context, statuses ...loan.Status) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "ListIDsByStatus"))
	logCtx.DebugContext(ctx, "Attempting to list loan IDs", slog.Any("statuses", statuses))

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.db.Query(ctx, listIDsByStatusSQL, names)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query loan IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating loan IDs: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Finished listing loan IDs", slog.Int("count", len(loanIDs)))
	return loanIDs, nil
}

// UpdateArrears stores the arrears projection and reports whether it changed.
func (r *LoanRepository) UpdateArrears(ctx context.Context, loanID int64, overdueSince *time.Time, inArrears bool) (changed bool, err error) {
	defer observe("UpdateArrears", time.Now(), &err)

	cmdTag, err := r.db.Exec(ctx, updateArrearsSQL, overdueSince, inArrears, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update arrears", "loan_id", loanID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *LoanRepository) load(ctx context.Context, q querier, loanID int64, query string) (*loan.Loan, error) {
	var (
		l                                 loan.Loan
		externalID                        *string
		terms                             []byte
		firstRepayment, interestFrom      *time.Time
		approvedOn, disbursedOn, closedOn *time.Time
		overpayment                       decimal.Decimal
	)
	err := q.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &externalID, &l.ClientID, &l.Status, &terms, &l.Strategy, &firstRepayment, &interestFrom,
		&l.SubmittedOn, &approvedOn, &disbursedOn, &closedOn, &overpayment, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if err := json.Unmarshal(terms, &l.Terms); err != nil {
		r.logger.ErrorContext(ctx, "Failed to decode loan terms", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("%w: corrupt terms for loan %d: %w", apperrors.ErrDatabase, loanID, err)
	}
	currency := l.Terms.Currency
	l.ExternalID = stringValue(externalID)
	l.FirstRepaymentDate = dateValue(firstRepayment)
	l.InterestChargedFromDate = dateValue(interestFrom)
	l.ApprovedOn = dateValue(approvedOn)
	l.DisbursedOn = dateValue(disbursedOn)
	l.ClosedOn = dateValue(closedOn)
	l.Overpayment = money.New(currency, overpayment)

	if l.Charges, err = r.loadCharges(ctx, q, loanID); err != nil {
		return nil, err
	}
	if l.Disbursements, err = r.loadDisbursements(ctx, q, loanID, currency); err != nil {
		return nil, err
	}
	if l.Transactions, err = r.loadTransactions(ctx, q, loanID, currency); err != nil {
		return nil, err
	}
	if l.History, err = r.loadHistory(ctx, q, loanID); err != nil {
		return nil, err
	}

	rebuilt, err := l.Rebuild()
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to rebuild stored loan", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("%w: cannot rebuild loan %d: %w", apperrors.ErrDatabase, loanID, err)
	}
	return &rebuilt, nil
}

func (r *LoanRepository) loadCharges(ctx context.Context, q querier, loanID int64) ([]loan.Charge, error) {
	rows, err := q.Query(ctx, selectChargesSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan charges", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	charges := make([]loan.Charge, 0)
	for rows.Next() {
		var (
			c       loan.Charge
			dueDate *time.Time
		)
		if err := rows.Scan(&c.ID, &c.ChargeDefinitionID, &c.Name, &c.Time, &c.Calculation, &c.Amount, &dueDate, &c.Penalty); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan charge row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		c.DueDate = dateValue(dueDate)
		charges = append(charges, c)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating charge rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return charges, nil
}

func (r *LoanRepository) loadDisbursements(ctx context.Context, q querier, loanID int64, currency money.Currency) ([]loan.Disbursement, error) {
	rows, err := q.Query(ctx, selectDisbursementsSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan disbursements", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	disbursements := make([]loan.Disbursement, 0)
	for rows.Next() {
		var (
			d              loan.Disbursement
			actualDate     *time.Time
			principal, net decimal.Decimal
		)
		if err := rows.Scan(&d.ExpectedDate, &actualDate, &principal, &net); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan disbursement row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		d.ActualDate = dateValue(actualDate)
		d.Principal = money.New(currency, principal)
		d.NetDisbursalAmount = money.New(currency, net)
		disbursements = append(disbursements, d)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating disbursement rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return disbursements, nil
}

func (r *LoanRepository) loadTransactions(ctx context.Context, q querier, loanID int64, currency money.Currency) ([]loan.Transaction, error) {
	rows, err := q.Query(ctx, selectTransactionsSQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan transactions", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	transactions := make([]loan.Transaction, 0)
	for rows.Next() {
		var (
			t          loan.Transaction
			amount     decimal.Decimal
			reversedOn *time.Time
		)
		err := rows.Scan(&t.ID, &t.ExternalID, &t.Type, &t.Date, &t.SubmittedOn, &amount, &t.Reversed, &reversedOn,
			&t.ReversalOf, &t.ChargeID, &t.ChargebackOf, &t.Note)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan transaction row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		t.Amount = money.New(currency, amount)
		t.ReversedOn = dateValue(reversedOn)
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating transaction rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return transactions, nil
}

func (r *LoanRepository) loadHistory(ctx context.Context, q querier, loanID int64) ([]loan.StatusChange, error) {
	rows, err := q.Query(ctx, selectHistorySQL, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loan status history", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	history := make([]loan.StatusChange, 0)
	for rows.Next() {
		var h loan.StatusChange
		if err := rows.Scan(&h.From, &h.To, &h.Operation, &h.Date, &h.Note); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan status history row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		history = append(history, h)
	}
	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating status history rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return history, nil
}

// insertChildren writes the child rows of l in one batch, clearing the old
// rows first when replace is set.
func (r *LoanRepository) insertChildren(ctx context.Context, tx pgx.Tx, l *loan.Loan, replace bool) error {
	batch := &pgx.Batch{}
	if replace {
		batch.Queue(deleteChargesSQL, l.ID)
		batch.Queue(deleteDisbursementsSQL, l.ID)
		batch.Queue(deleteTransactionsSQL, l.ID)
		batch.Queue(deleteHistorySQL, l.ID)
	}
	for _, c := range l.Charges {
		batch.Queue(insertChargeSQL, l.ID, c.ID, c.ChargeDefinitionID, c.Name, c.Time, c.Calculation, c.Amount, nullableDate(c.DueDate), c.Penalty)
	}
	for i, d := range l.Disbursements {
		batch.Queue(insertDisbursementSQL, l.ID, i+1, d.ExpectedDate, nullableDate(d.ActualDate), d.Principal.Amount(), d.NetDisbursalAmount.Amount())
	}
	for _, t := range l.Transactions {
		batch.Queue(insertTransactionSQL, l.ID, t.ID, t.ExternalID, t.Type, t.Date, t.SubmittedOn, t.Amount.Amount(),
			t.Reversed, nullableDate(t.ReversedOn), t.ReversalOf, t.ChargeID, t.ChargebackOf, t.Note)
	}
	for i, h := range l.History {
		batch.Queue(insertHistorySQL, l.ID, i+1, h.From, h.To, h.Operation, h.Date, h.Note)
	}
	if batch.Len() == 0 {
		return nil
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing loan batch write", "error", err, "statement_index", i, "loan_id", l.ID)
			return fmt.Errorf("%w: failed writing loan %d statement %d: %w", apperrors.ErrDatabase, l.ID, i+1, err)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing loan batch results", "error", err, "loan_id", l.ID)
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}
	r.logger.DebugContext(ctx, "Loan child rows written", "loan_id", l.ID, "statements", batch.Len())
	return nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return apperrors.WrapDatabaseError(pgErr, "postgres error code "+pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return apperrors.WrapDatabaseError(err, "database operation failed")
}

func observe(queryName string, started time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(started))
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func dateValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
