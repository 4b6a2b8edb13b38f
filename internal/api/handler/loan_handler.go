package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"loan-engine/internal/pkg/money"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type LoanHandler struct {
	service  loan.LoanService
	currency money.Currency
	logger   *slog.Logger
}

func NewLoanHandler(s loan.LoanService, currency money.Currency, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service:  s,
		currency: currency,
		logger:   l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// decodeOptionalJSON accepts an empty body and leaves v untouched.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := decodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, code, message, field := http.StatusInternalServerError, "INTERNAL", "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var termsError *loan.TermsError
	var appError *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "Resource not found."
	case errors.As(err, &termsError):
		status, code, message, field = http.StatusBadRequest, "INVALID_TERMS", termsError.Reason, termsError.Field
	case errors.As(err, &validationError):
		status, code, message, field = http.StatusBadRequest, "VALIDATION_FAILED", validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrInvalidTerms):
		status, code, message = http.StatusBadRequest, "VALIDATION_FAILED", err.Error()
	case errors.Is(err, apperrors.ErrInvalidStateTransition):
		status, code, message = http.StatusConflict, "INVALID_STATE_TRANSITION", err.Error()
	case errors.Is(err, apperrors.ErrIllegalTransaction):
		status, code, message = http.StatusUnprocessableEntity, "ILLEGAL_TRANSACTION", err.Error()
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		status, code, message = http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	case errors.Is(err, apperrors.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", "Forbidden"
	case errors.Is(err, apperrors.ErrInvariantViolation):
		code = "INVARIANT_VIOLATION"
		slog.Default().Error("Ledger invariant violated", "error", err)
	case errors.As(err, &appError):
		code = appError.Code
		slog.Default().Error("Application error", "code", appError.Code, "error", err)
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%s not found in URL path", param)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", param)
	}
	return id, nil
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	return getIDFromURL(r, "loanID")
}

func (h *LoanHandler) respondResult(w http.ResponseWriter, res loan.Result, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewCommandResponse(res))
}

type transitionFunc func(*http.Request, int64, loan.TransitionCommand) (loan.Result, error)

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.TransitionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := apply(r, loanID, cmd)
	h.respondResult(w, res, err)
}

// SubmitApplication handles the submission of a new loan application.
//
// @Summary Submit a loan application
// @Description Creates a loan in SUBMITTED_AND_PENDING_APPROVAL with its initial repayment schedule. Amounts are in the ledger currency.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.SubmitLoanRequest true "Loan application payload"
// @Success 201 {object} dto.LoanResponse "Loan application created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or loan terms"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.SubmitApplication(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, "schedule"))
}

// GetLoan retrieves the details of a specific loan.
//
// @Summary Retrieve loan details
// @Description Retrieves a loan by its ID. The comma separated include parameter adds the schedule, transactions or history.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param include query string false "Optional parts: schedule,transactions,history"
// @Success 200 {object} dto.LoanResponse "Loan details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	var include []string
	if v := r.URL.Query().Get("include"); v != "" {
		include = strings.Split(v, ",")
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan, include...))
}

// ModifyApplication replaces the terms of a submitted application.
//
// @Summary Modify a loan application
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ModifyLoanRequest true "Replacement terms"
// @Success 200 {object} dto.CommandResponse "Outcome of the modification"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or loan terms"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan is no longer an application"
// @Router /loans/{loanID} [put]
// @Security BearerAuth
func (h *LoanHandler) ModifyApplication(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.ModifyLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.ModifyApplication(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// DeleteApplication deletes a submitted application.
//
// @Summary Delete a loan application
// @Tags Loans
// @Param loanID path int true "Loan ID"
// @Success 204 "Application deleted"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan is no longer an application"
// @Router /loans/{loanID} [delete]
// @Security BearerAuth
func (h *LoanHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := h.service.DeleteApplication(r.Context(), loanID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary returns the derived loan summary.
//
// @Summary Retrieve the loan summary
// @Description Derives outstanding, overdue and arrears figures as of the given date, or the business date when omitted.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param date query string false "As-of date (YYYY-MM-DD)"
// @Success 200 {object} loan.Summary "Loan summary"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or date"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID}/summary [get]
// @Security BearerAuth
func (h *LoanHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var on time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		if on, err = loan.ParseDate(v); err != nil {
			respondError(w, apperrors.NewValidationError("date", "invalid date format (use YYYY-MM-DD)"))
			return
		}
	}

	summary, err := h.service.GetSummary(r.Context(), loanID, on)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// PreviewSchedule generates a schedule without storing a loan.
//
// @Summary Preview a repayment schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param request body dto.PreviewScheduleRequest true "Loan terms"
// @Success 200 {object} loan.Schedule "Generated schedule"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan terms"
// @Router /schedules/preview [post]
// @Security BearerAuth
func (h *LoanHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req dto.PreviewScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	schedule, err := h.service.PreviewSchedule(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

// Approve approves a submitted application.
//
// @Summary Approve a loan
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Approval date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the transition"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/approve [post]
// @Security BearerAuth
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.Approve(r.Context(), id, cmd)
	})
}

// UndoApproval returns an approved loan to submitted.
//
// @Summary Undo a loan approval
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Note"
// @Success 200 {object} dto.CommandResponse "Outcome of the transition"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/undo-approval [post]
// @Security BearerAuth
func (h *LoanHandler) UndoApproval(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.UndoApproval(r.Context(), id, cmd)
	})
}

// Reject rejects an application.
//
// @Summary Reject a loan
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Rejection date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the transition"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/reject [post]
// @Security BearerAuth
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.Reject(r.Context(), id, cmd)
	})
}

// Withdraw records the client withdrawing an application.
//
// @Summary Withdraw a loan application
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Withdrawal date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the transition"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/withdraw [post]
// @Security BearerAuth
func (h *LoanHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.Withdraw(r.Context(), id, cmd)
	})
}

// Disburse disburses an approved loan or one tranche of it.
//
// @Summary Disburse a loan
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.DisburseRequest false "Disbursement date and principal"
// @Success 200 {object} dto.CommandResponse "Outcome of the disbursement"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or date"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/disburse [post]
// @Security BearerAuth
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.DisburseRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.Disburse(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// UndoDisbursal returns a disbursed loan with no repayments to approved.
//
// @Summary Undo a loan disbursal
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Note"
// @Success 200 {object} dto.CommandResponse "Outcome of the transition"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/undo-disbursal [post]
// @Security BearerAuth
func (h *LoanHandler) UndoDisbursal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.UndoDisbursal(r.Context(), id, cmd)
	})
}

// WriteOff writes off the outstanding balance.
//
// @Summary Write off a loan
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Write-off date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the write-off"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/write-off [post]
// @Security BearerAuth
func (h *LoanHandler) WriteOff(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.WriteOff(r.Context(), id, cmd)
	})
}

// Close closes a loan whose obligations are met.
//
// @Summary Close a loan
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Closure date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the closure"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/close [post]
// @Security BearerAuth
func (h *LoanHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.Close(r.Context(), id, cmd)
	})
}

// CloseAsRescheduled closes a loan replaced by a rescheduled one.
//
// @Summary Close a loan as rescheduled
// @Tags Lifecycle
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Closure date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the closure"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed in the current state"
// @Router /loans/{loanID}/close-as-rescheduled [post]
// @Security BearerAuth
func (h *LoanHandler) CloseAsRescheduled(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(r *http.Request, id int64, cmd loan.TransitionCommand) (loan.Result, error) {
		return h.service.CloseAsRescheduled(r.Context(), id, cmd)
	})
}
