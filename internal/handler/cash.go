package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/cash"
)

type cashService interface {
	PostAdjustment(ctx context.Context, req cash.PostRequest) (*domain.LedgerEntry, error)
	EntriesForDate(ctx context.Context, date time.Time) (*cash.DayReport, error)
	Balances(ctx context.Context) ([]domain.CurrencyBalance, error)
}

type CashHandler struct {
	cash cashService
}

func NewCashHandler(cash cashService) *CashHandler {
	return &CashHandler{cash: cash}
}

type postEntryRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (r postEntryRequest) Validate() []FieldError {
	var errs []FieldError
	if !domain.EntryType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be income or expense"})
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Currency == "" {
		errs = append(errs, FieldError{Field: "currency", Message: "required"})
	}
	if r.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}
	return errs
}

type ledgerEntryDTO struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	AgentEmail  string          `json:"agent_email"`
	EntryDate   string          `json:"entry_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toLedgerEntryDTO(e *domain.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:          e.ID,
		Type:        string(e.Type),
		Amount:      e.Amount,
		Currency:    string(e.Currency),
		Description: e.Description,
		AgentEmail:  e.AgentEmail,
		EntryDate:   e.EntryDate.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt,
	}
}

type balanceDTO struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toBalanceDTO(b *domain.CurrencyBalance) balanceDTO {
	return balanceDTO{
		Currency:     string(b.Currency),
		Balance:      b.Balance,
		TotalIncome:  b.TotalIncome,
		TotalExpense: b.TotalExpense,
		UpdatedAt:    b.UpdatedAt,
	}
}

// PostEntry records a manual cash movement, for office costs and capital
// injections that do not flow through a loan. Administrators only; agent
// collections and disbursements reach the ledger through the loan
// lifecycle instead.
func (h *CashHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	if !session.IsAdmin() {
		RespondAppError(w, ErrAdminRequired, nil)
		return
	}

	var req postEntryRequest
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

	entry, err := h.cash.PostAdjustment(r.Context(), cash.PostRequest{
		Type:        domain.EntryType(req.Type),
		Amount:      req.Amount,
		Currency:    currency,
		Description: req.Description,
		AgentEmail:  session.Email,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toLedgerEntryDTO(entry))
}

type dayReportDTO struct {
	Date    string           `json:"date"`
	Entries []ledgerEntryDTO `json:"entries"`
	Totals  []dayTotalDTO    `json:"totals"`
}

type dayTotalDTO struct {
	Currency string          `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Net      decimal.Decimal `json:"net"`
}

// Entries lists the ledger for one day, defaulting to today. The date
// query parameter takes YYYY-MM-DD.
func (h *CashHandler) Entries(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "date", Message: "must be YYYY-MM-DD"}})
			return
		}
		date = parsed
	}

	report, err := h.cash.EntriesForDate(r.Context(), date)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	entries := make([]ledgerEntryDTO, 0, len(report.Entries))
	for i := range report.Entries {
		entries = append(entries, toLedgerEntryDTO(&report.Entries[i]))
	}
	totals := make([]dayTotalDTO, 0, len(report.Totals))
	for _, t := range report.Totals {
		totals = append(totals, dayTotalDTO{
			Currency: string(t.Currency),
			Income:   t.Income,
			Expense:  t.Expense,
			Net:      t.Net,
		})
	}

	RespondSuccess(w, http.StatusOK, dayReportDTO{
		Date:    date.Format("2006-01-02"),
		Entries: entries,
		Totals:  totals,
	})
}

func (h *CashHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.cash.Balances(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]balanceDTO, 0, len(balances))
	for i := range balances {
		dtos = append(dtos, toBalanceDTO(&balances[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
