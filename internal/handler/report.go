package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/service/report"
)

type reportService interface {
	Delinquency(ctx context.Context, now time.Time) (*report.DelinquencyReport, error)
	ProjectMonth(ctx context.Context, agentEmail string, now time.Time) (*report.MonthProjection, error)
	AgentReport(ctx context.Context, agentEmail string, now time.Time) ([]report.AgentStanding, error)
	Dashboard(ctx context.Context, now time.Time) (*report.Dashboard, error)
}

type ReportHandler struct {
	reports reportService
}

func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

type overdueItemDTO struct {
	LoanID            uuid.UUID       `json:"loan_id"`
	ClientID          string          `json:"client_id"`
	ClientName        string          `json:"client_name"`
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	DaysLate          int             `json:"days_late"`
}

type currencyTotalDTO struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count,omitempty"`
}

type delinquencyDTO struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Items       []overdueItemDTO   `json:"items"`
	Totals      []currencyTotalDTO `json:"totals"`
}

func (h *ReportHandler) Delinquency(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Delinquency(r.Context(), time.Now().UTC())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]overdueItemDTO, 0, len(rep.Items))
	for _, it := range rep.Items {
		items = append(items, overdueItemDTO{
			LoanID:            it.LoanID,
			ClientID:          it.ClientID,
			ClientName:        it.ClientName,
			InstallmentNumber: it.InstallmentNumber,
			DueDate:           it.DueDate,
			Amount:            it.Amount,
			Currency:          string(it.Currency),
			DaysLate:          it.DaysLate,
		})
	}

	RespondSuccess(w, http.StatusOK, delinquencyDTO{
		GeneratedAt: rep.GeneratedAt,
		Items:       items,
		Totals:      toCurrencyTotalDTOs(rep.Totals),
	})
}

type monthProjectionDTO struct {
	From       string             `json:"from"`
	To         string             `json:"to"`
	AgentEmail string             `json:"agent_email,omitempty"`
	Totals     []currencyTotalDTO `json:"totals"`
}

// MonthProjection reports pending collections due this calendar month.
// Employees always see their own projection; administrators may pass an
// agent query parameter or omit it for the whole office.
func (h *ReportHandler) MonthProjection(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	agentEmail := session.Email
	if session.IsAdmin() {
		agentEmail = r.URL.Query().Get("agent")
	}

	proj, err := h.reports.ProjectMonth(r.Context(), agentEmail, time.Now().UTC())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, monthProjectionDTO{
		From:       proj.From.Format("2006-01-02"),
		To:         proj.To.Format("2006-01-02"),
		AgentEmail: proj.AgentEmail,
		Totals:     toCurrencyTotalDTOs(proj.Totals),
	})
}

type agentStandingDTO struct {
	Currency  string          `json:"currency"`
	Limit     decimal.Decimal `json:"limit"`
	Used      decimal.Decimal `json:"used"`
	Available decimal.Decimal `json:"available"`
	ToCollect decimal.Decimal `json:"to_collect"`
}

// AgentStanding reports one agent's monthly credit position. Employees
// see their own; administrators name any agent in the path.
func (h *ReportHandler) AgentStanding(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	agentEmail := r.PathValue("email")
	if !session.IsAdmin() && agentEmail != session.Email {
		RespondAppError(w, ErrAdminRequired, nil)
		return
	}

	standings, err := h.reports.AgentReport(r.Context(), agentEmail, time.Now().UTC())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]agentStandingDTO, 0, len(standings))
	for _, st := range standings {
		dtos = append(dtos, agentStandingDTO{
			Currency:  string(st.Currency),
			Limit:     st.Limit,
			Used:      st.Used,
			Available: st.Available,
			ToCollect: st.ToCollect,
		})
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

type dashboardDTO struct {
	ClientCount  int          `json:"client_count"`
	ActiveLoans  int          `json:"active_loans"`
	OverdueCount int          `json:"overdue_count"`
	Balances     []balanceDTO `json:"balances"`
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Dashboard(r.Context(), time.Now().UTC())
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	balances := make([]balanceDTO, 0, len(d.Balances))
	for i := range d.Balances {
		balances = append(balances, toBalanceDTO(&d.Balances[i]))
	}

	RespondSuccess(w, http.StatusOK, dashboardDTO{
		ClientCount:  d.ClientCount,
		ActiveLoans:  d.ActiveLoans,
		OverdueCount: d.OverdueCount,
		Balances:     balances,
	})
}

func toCurrencyTotalDTOs(totals []report.CurrencyTotal) []currencyTotalDTO {
	dtos := make([]currencyTotalDTO, 0, len(totals))
	for _, t := range totals {
		dtos = append(dtos, currencyTotalDTO{
			Currency: string(t.Currency),
			Amount:   t.Amount,
			Count:    t.Count,
		})
	}
	return dtos
}
