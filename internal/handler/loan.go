package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/logging"
	"github.com/sigesp/prestamos-api/internal/service/loan"
)

type loanService interface {
	Originate(ctx context.Context, session auth.Session, req loan.OriginateRequest) (*loan.LoanDetail, error)
	ListLoans(ctx context.Context) ([]domain.Loan, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*loan.LoanDetail, error)
	CollectInstallment(ctx context.Context, session auth.Session, loanID, installmentID uuid.UUID) (*loan.CollectionReceipt, error)
	CollectFlexible(ctx context.Context, session auth.Session, loanID uuid.UUID, amount decimal.Decimal) (*loan.FlexibleResult, error)
	Refinance(ctx context.Context, session auth.Session, loanID uuid.UUID, req loan.RefinanceRequest) (*loan.LoanDetail, error)
	Finalize(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
}

type LoanHandler struct {
	loans loanService
}

func NewLoanHandler(loans loanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

type originateRequest struct {
	ClientID         string           `json:"client_id"`
	Principal        decimal.Decimal  `json:"principal"`
	Currency         string           `json:"currency"`
	Frequency        string           `json:"frequency"`
	RatePct          *decimal.Decimal `json:"rate_pct"`
	InstallmentCount *int             `json:"installment_count"`
}

func (r originateRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ClientID == "" {
		errs = append(errs, FieldError{Field: "client_id", Message: "required"})
	}
	if r.Principal.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, FieldError{Field: "principal", Message: "must be greater than 0"})
	}
	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	}
	if !domain.Frequency(r.Frequency).IsValid() {
		errs = append(errs, FieldError{Field: "frequency", Message: "must be daily, weekly, biweekly, or monthly"})
	}
	if r.RatePct != nil && r.RatePct.IsNegative() {
		errs = append(errs, FieldError{Field: "rate_pct", Message: "must not be negative"})
	}
	if r.InstallmentCount != nil && *r.InstallmentCount <= 0 {
		errs = append(errs, FieldError{Field: "installment_count", Message: "must be greater than 0"})
	}
	return errs
}

type loanDTO struct {
	ID         uuid.UUID `json:"id"`
	ClientID   string    `json:"client_id"`
	ClientName string    `json:"client_name"`
	AgentEmail string    `json:"agent_email"`

	Principal        decimal.Decimal `json:"principal"`
	Currency         string          `json:"currency"`
	InterestPct      decimal.Decimal `json:"interest_pct"`
	TotalDue         decimal.Decimal `json:"total_due"`
	InstallmentCount int             `json:"installment_count"`
	Frequency        string          `json:"frequency"`

	PaidCount        int             `json:"paid_count"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
	Note             string          `json:"note,omitempty"`
	OriginatedAt     time.Time       `json:"originated_at"`
}

func toLoanDTO(l *domain.Loan) loanDTO {
	return loanDTO{
		ID:               l.ID,
		ClientID:         l.ClientID,
		ClientName:       l.ClientName,
		AgentEmail:       l.AgentEmail,
		Principal:        l.Principal,
		Currency:         string(l.Currency),
		InterestPct:      l.InterestPct,
		TotalDue:         l.TotalDue,
		InstallmentCount: l.InstallmentCount,
		Frequency:        string(l.Frequency),
		PaidCount:        l.PaidCount,
		RemainingBalance: l.RemainingBalance,
		Status:           string(l.Status),
		Note:             l.Note,
		OriginatedAt:     l.OriginatedAt,
	}
}

type installmentDTO struct {
	ID      uuid.UUID       `json:"id"`
	Number  int             `json:"number"`
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	Note    string          `json:"note,omitempty"`
	PaidAt  *time.Time      `json:"paid_at,omitempty"`
}

type loanDetailDTO struct {
	loanDTO
	Installments []installmentDTO `json:"installments"`
}

func toLoanDetailDTO(d *loan.LoanDetail) loanDetailDTO {
	installments := make([]installmentDTO, 0, len(d.Installments))
	for _, i := range d.Installments {
		installments = append(installments, installmentDTO{
			ID:      i.ID,
			Number:  i.Number,
			DueDate: i.DueDate,
			Amount:  i.Amount,
			Status:  string(i.Status),
			Note:    i.Note,
			PaidAt:  i.PaidAt,
		})
	}
	return loanDetailDTO{loanDTO: toLoanDTO(&d.Loan), Installments: installments}
}

func (h *LoanHandler) Originate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req originateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	currency, err := domain.NormalizeCurrency(req.Currency)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	detail, err := h.loans.Originate(r.Context(), session, loan.OriginateRequest{
		ClientID:         req.ClientID,
		Principal:        req.Principal,
		Currency:         currency,
		Frequency:        domain.Frequency(req.Frequency),
		RatePct:          req.RatePct,
		InstallmentCount: req.InstallmentCount,
	})
	if err != nil {
		log.Warn("loan origination failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/loans/%s", detail.Loan.ID))
	RespondSuccess(w, http.StatusCreated, toLoanDetailDTO(detail))
}

func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListLoans(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]loanDTO, 0, len(loans))
	for i := range loans {
		dtos = append(dtos, toLoanDTO(&loans[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	detail, err := h.loans.GetLoan(r.Context(), loanID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDetailDTO(detail))
}

type receiptDTO struct {
	LoanID            uuid.UUID       `json:"loan_id"`
	ClientID          string          `json:"client_id"`
	ClientName        string          `json:"client_name"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaidAt            time.Time       `json:"paid_at"`
}

func (h *LoanHandler) Collect(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	installmentID, err := uuid.Parse(r.PathValue("installmentID"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	receipt, err := h.loans.CollectInstallment(r.Context(), session, loanID, installmentID)
	if err != nil {
		log.Warn("installment collection failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, receiptDTO{
		LoanID:            receipt.LoanID,
		ClientID:          receipt.ClientID,
		ClientName:        receipt.ClientName,
		InstallmentNumber: receipt.InstallmentNumber,
		Amount:            receipt.Amount,
		Currency:          string(receipt.Currency),
		PaidAt:            receipt.PaidAt,
	})
}

type flexiblePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type flexibleResultDTO struct {
	LoanID             uuid.UUID       `json:"loan_id"`
	AmountApplied      decimal.Decimal `json:"amount_applied"`
	InstallmentsClosed int             `json:"installments_closed"`
	PartialNumber      int             `json:"partial_number,omitempty"`
}

func (h *LoanHandler) CollectFlexible(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req flexiblePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		RespondValidationError(w, []FieldError{{Field: "amount", Message: "must be greater than 0"}})
		return
	}

	result, err := h.loans.CollectFlexible(r.Context(), session, loanID, req.Amount)
	if err != nil {
		log.Warn("flexible payment failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, flexibleResultDTO{
		LoanID:             result.LoanID,
		AmountApplied:      result.AmountApplied,
		InstallmentsClosed: result.InstallmentsClosed,
		PartialNumber:      result.PartialNumber,
	})
}

type refinanceHTTPRequest struct {
	RatePct          decimal.Decimal `json:"rate_pct"`
	InstallmentCount int             `json:"installment_count"`
	Frequency        string          `json:"frequency"`
}

func (r refinanceHTTPRequest) Validate() []FieldError {
	var errs []FieldError
	if r.RatePct.IsNegative() {
		errs = append(errs, FieldError{Field: "rate_pct", Message: "must not be negative"})
	}
	if r.InstallmentCount <= 0 {
		errs = append(errs, FieldError{Field: "installment_count", Message: "must be greater than 0"})
	}
	if !domain.Frequency(r.Frequency).IsValid() {
		errs = append(errs, FieldError{Field: "frequency", Message: "must be daily, weekly, biweekly, or monthly"})
	}
	return errs
}

func (h *LoanHandler) Refinance(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req refinanceHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	detail, err := h.loans.Refinance(r.Context(), session, loanID, loan.RefinanceRequest{
		RatePct:          req.RatePct,
		InstallmentCount: req.InstallmentCount,
		Frequency:        domain.Frequency(req.Frequency),
	})
	if err != nil {
		log.Warn("loan refinance failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/loans/%s", detail.Loan.ID))
	RespondSuccess(w, http.StatusCreated, toLoanDetailDTO(detail))
}

func (h *LoanHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	l, err := h.loans.Finalize(r.Context(), loanID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toLoanDTO(l))
}
