package handler

import (
	"fmt"
	"loan-engine/internal/api/handler/dto"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"
	"net/http"
)

// MakeRepayment posts a repayment or another repayment-like credit.
//
// @Summary Post a repayment
// @Description Posts a credit and allocates it across the schedule. Type defaults to REPAYMENT and may be MERCHANT_ISSUED_REFUND, PAYOUT_REFUND or GOODWILL_CREDIT.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.RepaymentRequest true "Repayment payload"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or date"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/transactions [post]
// @Security BearerAuth
func (h *LoanHandler) MakeRepayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.RepaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.MakeRepayment(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// Waive waives interest, principal or charges.
//
// @Summary Post a waiver
// @Tags Transactions
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.WaiveRequest true "Waiver payload"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount, date or type"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/waivers [post]
// @Security BearerAuth
func (h *LoanHandler) Waive(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.WaiveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.Waive(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// AddCharge attaches a charge to the loan.
//
// @Summary Add a charge
// @Tags Charges
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ChargeRequest true "Charge definition"
// @Success 200 {object} dto.CommandResponse "Outcome of the charge"
// @Failure 400 {object} dto.ErrorResponse "Invalid charge"
// @Failure 409 {object} dto.ErrorResponse "Not allowed in the current state"
// @Router /loans/{loanID}/charges [post]
// @Security BearerAuth
func (h *LoanHandler) AddCharge(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.ChargeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	charge, err := req.ToCharge()
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.AddCharge(r.Context(), loanID, loan.AddChargeCommand{Charge: charge})
	h.respondResult(w, res, err)
}

// PayCharge pays one charge directly.
//
// @Summary Pay a charge
// @Tags Charges
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ChargeTransactionRequest true "Charge payment"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/charges/payments [post]
// @Security BearerAuth
func (h *LoanHandler) PayCharge(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.ChargeTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.PayCharge(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// AdjustCharge credits an adjustment against one charge.
//
// @Summary Adjust a charge
// @Tags Charges
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ChargeTransactionRequest true "Charge adjustment"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/charges/adjustments [post]
// @Security BearerAuth
func (h *LoanHandler) AdjustCharge(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.ChargeTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.AdjustCharge(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// Chargeback reverses part of a repayment at the payment provider's request.
//
// @Summary Post a chargeback
// @Tags Transactions
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.ChargebackRequest true "Chargeback payload"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/chargebacks [post]
// @Security BearerAuth
func (h *LoanHandler) Chargeback(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.ChargebackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.Chargeback(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// RefundCreditBalance pays out an overpaid balance.
//
// @Summary Refund a credit balance
// @Tags Transactions
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.AmountRequest true "Refund payload"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/credit-balance-refunds [post]
// @Security BearerAuth
func (h *LoanHandler) RefundCreditBalance(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.RefundCreditBalance(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// RecordAccrual records accrued interest.
//
// @Summary Record an interest accrual
// @Tags Transactions
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.AmountRequest true "Accrual payload"
// @Success 200 {object} dto.CommandResponse "Posted transaction"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/accruals [post]
// @Security BearerAuth
func (h *LoanHandler) RecordAccrual(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.RecordAccrual(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// AdjustTransaction replaces a posted transaction with a corrected one.
//
// @Summary Adjust a transaction
// @Tags Transactions
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param transactionID path int true "Transaction ID"
// @Param request body dto.AdjustTransactionRequest true "Adjustment payload"
// @Success 200 {object} dto.CommandResponse "Outcome of the adjustment"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/transactions/{transactionID}/adjust [post]
// @Security BearerAuth
func (h *LoanHandler) AdjustTransaction(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	transactionID, err := getIDFromURL(r, "transactionID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.AdjustTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(h.currency, transactionID)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.AdjustTransaction(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}

// ReverseTransaction reverses a posted transaction.
//
// @Summary Reverse a transaction
// @Tags Transactions
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param transactionID path int true "Transaction ID"
// @Param request body dto.ReverseTransactionRequest false "Reversal date and note"
// @Success 200 {object} dto.CommandResponse "Outcome of the reversal"
// @Failure 422 {object} dto.ErrorResponse "Transaction rejected by the ledger"
// @Router /loans/{loanID}/transactions/{transactionID}/reverse [post]
// @Security BearerAuth
func (h *LoanHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	transactionID, err := getIDFromURL(r, "transactionID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	var req dto.ReverseTransactionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	cmd, err := req.ToCommand(transactionID)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.service.ReverseTransaction(r.Context(), loanID, cmd)
	h.respondResult(w, res, err)
}
