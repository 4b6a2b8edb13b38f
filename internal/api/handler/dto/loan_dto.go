package dto

import (
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func parseDate(field, s string, required bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return time.Time{}, apperrors.NewValidationError(field, "is required")
		}
		return time.Time{}, nil
	}
	d, err := loan.ParseDate(s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "invalid date format (use YYYY-MM-DD)")
	}
	return d, nil
}

func parseDecimal(field, s string, required bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return decimal.Zero, apperrors.NewValidationError(field, "is required")
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, "invalid numeric format")
	}
	return d, nil
}

// parseAmount reads a monetary amount in the ledger currency. Amounts must
// be positive when given.
func parseAmount(c money.Currency, field, s string, required bool) (money.Money, error) {
	d, err := parseDecimal(field, s, required)
	if err != nil {
		return money.Money{}, err
	}
	if d.IsNegative() || (required && d.IsZero()) {
		return money.Money{}, apperrors.NewValidationError(field, "must be greater than zero")
	}
	return money.New(c, d), nil
}

type TermsRequest struct {
	Principal                       string `json:"principal"`
	NominalInterestRatePerPeriod    string `json:"nominalInterestRatePerPeriod"`
	InterestRateFrequency           string `json:"interestRateFrequency"`
	InterestMethod                  string `json:"interestMethod"`
	InterestCalculationPeriodMethod string `json:"interestCalculationPeriodMethod"`
	AmortizationMethod              string `json:"amortizationMethod"`
	RepayEvery                      int    `json:"repayEvery"`
	RepaymentFrequency              string `json:"repaymentFrequency"`
	NumberOfRepayments              int    `json:"numberOfRepayments"`
	InArrearsTolerance              string `json:"inArrearsTolerance,omitempty"`
	DaysInYear                      int    `json:"daysInYear,omitempty"`
	DownPaymentPercentage           string `json:"downPaymentPercentage,omitempty"`
	MultiDisburse                   bool   `json:"multiDisburse,omitempty"`
	ExpectedDisbursementDate        string `json:"expectedDisbursementDate"`
}

// ToTerms converts the request into domain terms. Enumerations and ranges
// are checked by the domain.
func (r TermsRequest) ToTerms(c money.Currency) (loan.Terms, error) {
	principal, err := parseAmount(c, "terms.principal", r.Principal, true)
	if err != nil {
		return loan.Terms{}, err
	}
	rate, err := parseDecimal("terms.nominalInterestRatePerPeriod", r.NominalInterestRatePerPeriod, true)
	if err != nil {
		return loan.Terms{}, err
	}
	tolerance, err := parseAmount(c, "terms.inArrearsTolerance", r.InArrearsTolerance, false)
	if err != nil {
		return loan.Terms{}, err
	}
	downPayment, err := parseDecimal("terms.downPaymentPercentage", r.DownPaymentPercentage, false)
	if err != nil {
		return loan.Terms{}, err
	}
	expected, err := parseDate("terms.expectedDisbursementDate", r.ExpectedDisbursementDate, true)
	if err != nil {
		return loan.Terms{}, err
	}

	return loan.Terms{
		Currency:                        c,
		Principal:                       principal,
		NominalInterestRatePerPeriod:    rate,
		InterestRateFrequency:           loan.Frequency(strings.ToUpper(r.InterestRateFrequency)),
		InterestMethod:                  loan.InterestMethod(strings.ToUpper(r.InterestMethod)),
		InterestCalculationPeriodMethod: loan.InterestCalculationPeriodMethod(strings.ToUpper(r.InterestCalculationPeriodMethod)),
		AmortizationMethod:              loan.AmortizationMethod(strings.ToUpper(r.AmortizationMethod)),
		RepayEvery:                      r.RepayEvery,
		RepaymentFrequency:              loan.Frequency(strings.ToUpper(r.RepaymentFrequency)),
		NumberOfRepayments:              r.NumberOfRepayments,
		InArrearsTolerance:              tolerance,
		DaysInYear:                      r.DaysInYear,
		DownPaymentPercentage:           downPayment,
		MultiDisburse:                   r.MultiDisburse,
		ExpectedDisbursementDate:        expected,
	}, nil
}

type ChargeRequest struct {
	ChargeDefinitionID int64  `json:"chargeDefinitionId"`
	Name               string `json:"name"`
	Time               string `json:"time"`
	Calculation        string `json:"calculation"`
	Amount             string `json:"amount"`
	DueDate            string `json:"dueDate,omitempty"`
	Penalty            bool   `json:"penalty"`
}

func (r ChargeRequest) ToCharge() (loan.Charge, error) {
	amount, err := parseDecimal("amount", r.Amount, true)
	if err != nil {
		return loan.Charge{}, err
	}
	dueDate, err := parseDate("dueDate", r.DueDate, false)
	if err != nil {
		return loan.Charge{}, err
	}
	return loan.Charge{
		ChargeDefinitionID: r.ChargeDefinitionID,
		Name:               strings.TrimSpace(r.Name),
		Time:               loan.ChargeTime(strings.ToUpper(r.Time)),
		Calculation:        loan.ChargeCalculation(strings.ToUpper(r.Calculation)),
		Amount:             amount,
		DueDate:            dueDate,
		Penalty:            r.Penalty,
	}, nil
}

func toCharges(reqs []ChargeRequest) ([]loan.Charge, error) {
	charges := make([]loan.Charge, 0, len(reqs))
	for _, r := range reqs {
		c, err := r.ToCharge()
		if err != nil {
			return nil, err
		}
		charges = append(charges, c)
	}
	return charges, nil
}

type SubmitLoanRequest struct {
	ExternalID              string          `json:"externalId,omitempty"`
	ClientID                int64           `json:"clientId"`
	Terms                   TermsRequest    `json:"terms"`
	Charges                 []ChargeRequest `json:"charges,omitempty"`
	FirstRepaymentDate      string          `json:"firstRepaymentDate,omitempty"`
	InterestChargedFromDate string          `json:"interestChargedFromDate,omitempty"`
	Strategy                string          `json:"strategy,omitempty"`
	SubmittedOn             string          `json:"submittedOn,omitempty"`
	Note                    string          `json:"note,omitempty"`
}

func (r *SubmitLoanRequest) Validate() error {
	if r.ClientID <= 0 {
		return apperrors.NewValidationError("clientId", "must be a positive number")
	}
	if r.Terms.NumberOfRepayments < 0 {
		return apperrors.NewValidationError("terms.numberOfRepayments", "must not be negative")
	}
	return nil
}

func (r *SubmitLoanRequest) ToCommand(c money.Currency) (loan.SubmitCommand, error) {
	terms, err := r.Terms.ToTerms(c)
	if err != nil {
		return loan.SubmitCommand{}, err
	}
	charges, err := toCharges(r.Charges)
	if err != nil {
		return loan.SubmitCommand{}, err
	}
	firstRepayment, err := parseDate("firstRepaymentDate", r.FirstRepaymentDate, false)
	if err != nil {
		return loan.SubmitCommand{}, err
	}
	interestFrom, err := parseDate("interestChargedFromDate", r.InterestChargedFromDate, false)
	if err != nil {
		return loan.SubmitCommand{}, err
	}
	submittedOn, err := parseDate("submittedOn", r.SubmittedOn, false)
	if err != nil {
		return loan.SubmitCommand{}, err
	}
	return loan.SubmitCommand{
		ExternalID:              strings.TrimSpace(r.ExternalID),
		ClientID:                r.ClientID,
		Terms:                   terms,
		Charges:                 charges,
		FirstRepaymentDate:      firstRepayment,
		InterestChargedFromDate: interestFrom,
		Strategy:                r.Strategy,
		SubmittedOn:             submittedOn,
		Note:                    r.Note,
	}, nil
}

// PreviewScheduleRequest is a submission that is never stored, so it needs
// no client.
type PreviewScheduleRequest struct {
	Terms                   TermsRequest    `json:"terms"`
	Charges                 []ChargeRequest `json:"charges,omitempty"`
	FirstRepaymentDate      string          `json:"firstRepaymentDate,omitempty"`
	InterestChargedFromDate string          `json:"interestChargedFromDate,omitempty"`
}

func (r *PreviewScheduleRequest) ToCommand(c money.Currency) (loan.SubmitCommand, error) {
	submit := SubmitLoanRequest{
		ClientID:                1,
		Terms:                   r.Terms,
		Charges:                 r.Charges,
		FirstRepaymentDate:      r.FirstRepaymentDate,
		InterestChargedFromDate: r.InterestChargedFromDate,
	}
	return submit.ToCommand(c)
}

type ModifyLoanRequest struct {
	Terms                   TermsRequest    `json:"terms"`
	Charges                 []ChargeRequest `json:"charges,omitempty"`
	FirstRepaymentDate      string          `json:"firstRepaymentDate,omitempty"`
	InterestChargedFromDate string          `json:"interestChargedFromDate,omitempty"`
	Strategy                string          `json:"strategy,omitempty"`
}

func (r *ModifyLoanRequest) ToCommand(c money.Currency) (loan.ModifyCommand, error) {
	submit := SubmitLoanRequest{
		ClientID:                1,
		Terms:                   r.Terms,
		Charges:                 r.Charges,
		FirstRepaymentDate:      r.FirstRepaymentDate,
		InterestChargedFromDate: r.InterestChargedFromDate,
		Strategy:                r.Strategy,
	}
	cmd, err := submit.ToCommand(c)
	if err != nil {
		return loan.ModifyCommand{}, err
	}
	return loan.ModifyCommand{
		Terms:                   cmd.Terms,
		Charges:                 cmd.Charges,
		FirstRepaymentDate:      cmd.FirstRepaymentDate,
		InterestChargedFromDate: cmd.InterestChargedFromDate,
		Strategy:                cmd.Strategy,
	}, nil
}

// TransitionRequest carries an optional effective date; the business date
// applies when it is empty.
type TransitionRequest struct {
	Date string `json:"date,omitempty"`
	Note string `json:"note,omitempty"`
}

func (r *TransitionRequest) ToCommand() (loan.TransitionCommand, error) {
	d, err := parseDate("date", r.Date, false)
	if err != nil {
		return loan.TransitionCommand{}, err
	}
	return loan.TransitionCommand{Date: d, Note: r.Note}, nil
}

type DisburseRequest struct {
	Date      string `json:"date,omitempty"`
	Principal string `json:"principal,omitempty"`
	Note      string `json:"note,omitempty"`
}

func (r *DisburseRequest) ToCommand(c money.Currency) (loan.DisburseCommand, error) {
	d, err := parseDate("date", r.Date, false)
	if err != nil {
		return loan.DisburseCommand{}, err
	}
	principal, err := parseAmount(c, "principal", r.Principal, false)
	if err != nil {
		return loan.DisburseCommand{}, err
	}
	return loan.DisburseCommand{Date: d, Principal: principal, Note: r.Note}, nil
}

type RepaymentRequest struct {
	Type       string `json:"type,omitempty"`
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	ExternalID string `json:"externalId,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (r *RepaymentRequest) ToCommand(c money.Currency) (loan.CreditCommand, error) {
	d, err := parseDate("date", r.Date, true)
	if err != nil {
		return loan.CreditCommand{}, err
	}
	amount, err := parseAmount(c, "amount", r.Amount, true)
	if err != nil {
		return loan.CreditCommand{}, err
	}
	return loan.CreditCommand{
		Type:       loan.TransactionType(strings.ToUpper(r.Type)),
		Date:       d,
		Amount:     amount,
		ExternalID: r.ExternalID,
		Note:       r.Note,
	}, nil
}

type WaiveRequest struct {
	Type   string `json:"type"`
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func (r *WaiveRequest) ToCommand(c money.Currency) (loan.WaiveCommand, error) {
	if strings.TrimSpace(r.Type) == "" {
		return loan.WaiveCommand{}, apperrors.NewValidationError("type", "is required")
	}
	d, err := parseDate("date", r.Date, true)
	if err != nil {
		return loan.WaiveCommand{}, err
	}
	amount, err := parseAmount(c, "amount", r.Amount, true)
	if err != nil {
		return loan.WaiveCommand{}, err
	}
	return loan.WaiveCommand{
		Type:   loan.TransactionType(strings.ToUpper(r.Type)),
		Date:   d,
		Amount: amount,
		Note:   r.Note,
	}, nil
}

type ChargeTransactionRequest struct {
	ChargeID   int64  `json:"chargeId"`
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	ExternalID string `json:"externalId,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (r *ChargeTransactionRequest) ToCommand(c money.Currency) (loan.ChargeTransactionCommand, error) {
	if r.ChargeID <= 0 {
		return loan.ChargeTransactionCommand{}, apperrors.NewValidationError("chargeId", "must be a positive number")
	}
	d, err := parseDate("date", r.Date, true)
	if err != nil {
		return loan.ChargeTransactionCommand{}, err
	}
	amount, err := parseAmount(c, "amount", r.Amount, true)
	if err != nil {
		return loan.ChargeTransactionCommand{}, err
	}
	return loan.ChargeTransactionCommand{
		ChargeID:   r.ChargeID,
		Date:       d,
		Amount:     amount,
		ExternalID: r.ExternalID,
		Note:       r.Note,
	}, nil
}

type ChargebackRequest struct {
	TransactionID int64  `json:"transactionId"`
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	Note          string `json:"note,omitempty"`
}

func (r *ChargebackRequest) ToCommand(c money.Currency) (loan.ChargebackCommand, error) {
	if r.TransactionID <= 0 {
		return loan.ChargebackCommand{}, apperrors.NewValidationError("transactionId", "must be a positive number")
	}
	d, err := parseDate("date", r.Date, true)
	if err != nil {
		return loan.ChargebackCommand{}, err
	}
	amount, err := parseAmount(c, "amount", r.Amount, true)
	if err != nil {
		return loan.ChargebackCommand{}, err
	}
	return loan.ChargebackCommand{TransactionID: r.TransactionID, Date: d, Amount: amount, Note: r.Note}, nil
}

// AmountRequest serves credit balance refunds and accruals.
type AmountRequest struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	ExternalID string `json:"externalId,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (r *AmountRequest) ToCommand(c money.Currency) (loan.AmountCommand, error) {
	d, err := parseDate("date", r.Date, true)
	if err != nil {
		return loan.AmountCommand{}, err
	}
	amount, err := parseAmount(c, "amount", r.Amount, true)
	if err != nil {
		return loan.AmountCommand{}, err
	}
	return loan.AmountCommand{Date: d, Amount: amount, ExternalID: r.ExternalID, Note: r.Note}, nil
}

// AdjustTransactionRequest with an empty amount only reverses the original.
type AdjustTransactionRequest struct {
	Date       string `json:"date"`
	Amount     string `json:"amount,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (r *AdjustTransactionRequest) ToCommand(c money.Currency, transactionID int64) (loan.AdjustTransactionCommand, error) {
	d, err := parseDate("date", r.Date, true)
	if err != nil {
		return loan.AdjustTransactionCommand{}, err
	}
	amount, err := parseAmount(c, "amount", r.Amount, false)
	if err != nil {
		return loan.AdjustTransactionCommand{}, err
	}
	return loan.AdjustTransactionCommand{
		TransactionID: transactionID,
		Date:          d,
		Amount:        amount,
		ExternalID:    r.ExternalID,
		Note:          r.Note,
	}, nil
}

type ReverseTransactionRequest struct {
	Date string `json:"date,omitempty"`
	Note string `json:"note,omitempty"`
}

func (r *ReverseTransactionRequest) ToCommand(transactionID int64) (loan.ReverseTransactionCommand, error) {
	d, err := parseDate("date", r.Date, false)
	if err != nil {
		return loan.ReverseTransactionCommand{}, err
	}
	return loan.ReverseTransactionCommand{TransactionID: transactionID, Date: d, Note: r.Note}, nil
}

type LoanResponse struct {
	ID                 int64               `json:"id"`
	ExternalID         string              `json:"externalId,omitempty"`
	ClientID           int64               `json:"clientId"`
	Status             string              `json:"status"`
	Strategy           string              `json:"strategy"`
	Terms              loan.Terms          `json:"terms"`
	Charges            []loan.Charge       `json:"charges"`
	Disbursements      []loan.Disbursement `json:"disbursements"`
	SubmittedOn        string              `json:"submittedOn"`
	ApprovedOn         string              `json:"approvedOn,omitempty"`
	DisbursedOn        string              `json:"disbursedOn,omitempty"`
	ClosedOn           string              `json:"closedOn,omitempty"`
	Overpayment        string              `json:"overpayment"`
	Version            int64               `json:"version"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	Schedule           *loan.Schedule      `json:"schedule,omitempty"`
	Transactions       []loan.Transaction  `json:"transactions,omitempty"`
	History            []loan.StatusChange `json:"history,omitempty"`
	FirstRepaymentDate string              `json:"firstRepaymentDate,omitempty"`
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(loan.DateLayout)
}

// NewLoanResponse renders a loan. include names the optional parts to add:
// "schedule", "transactions" and "history".
func NewLoanResponse(l *loan.Loan, include ...string) LoanResponse {
	resp := LoanResponse{
		ID:                 l.ID,
		ExternalID:         l.ExternalID,
		ClientID:           l.ClientID,
		Status:             string(l.Status),
		Strategy:           l.Strategy,
		Terms:              l.Terms,
		Charges:            l.Charges,
		Disbursements:      l.Disbursements,
		SubmittedOn:        formatDate(l.SubmittedOn),
		ApprovedOn:         formatDate(l.ApprovedOn),
		DisbursedOn:        formatDate(l.DisbursedOn),
		ClosedOn:           formatDate(l.ClosedOn),
		Overpayment:        l.Overpayment.StringFixed(),
		Version:            l.Version,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
		FirstRepaymentDate: formatDate(l.FirstRepaymentDate),
	}
	for _, part := range include {
		switch strings.TrimSpace(part) {
		case "schedule":
			schedule := l.Schedule
			resp.Schedule = &schedule
		case "transactions":
			resp.Transactions = l.Transactions
		case "history":
			resp.History = l.History
		}
	}
	return resp
}

type CommandResponse struct {
	LoanID       int64              `json:"loanId"`
	Operation    string             `json:"operation"`
	Outcome      string             `json:"outcome"`
	Status       string             `json:"status"`
	Changes      loan.Changes       `json:"changes,omitempty"`
	Transactions []loan.Transaction `json:"transactions,omitempty"`
}

func NewCommandResponse(res loan.Result) CommandResponse {
	return CommandResponse{
		LoanID:       res.Loan.ID,
		Operation:    string(res.Operation),
		Outcome:      string(res.Outcome),
		Status:       string(res.Loan.Status),
		Changes:      res.Changes,
		Transactions: res.Transactions,
	}
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}
