package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/loan"
)

type mockLoanService struct {
	originateReq *loan.OriginateRequest
	detail       *loan.LoanDetail
	err          error
}

func (m *mockLoanService) Originate(_ context.Context, _ auth.Session, req loan.OriginateRequest) (*loan.LoanDetail, error) {
	m.originateReq = &req
	return m.detail, m.err
}

func (m *mockLoanService) ListLoans(context.Context) ([]domain.Loan, error) { return nil, m.err }

func (m *mockLoanService) GetLoan(context.Context, uuid.UUID) (*loan.LoanDetail, error) {
	return m.detail, m.err
}

func (m *mockLoanService) CollectInstallment(context.Context, auth.Session, uuid.UUID, uuid.UUID) (*loan.CollectionReceipt, error) {
	return nil, m.err
}

func (m *mockLoanService) CollectFlexible(context.Context, auth.Session, uuid.UUID, decimal.Decimal) (*loan.FlexibleResult, error) {
	return nil, m.err
}

func (m *mockLoanService) Refinance(context.Context, auth.Session, uuid.UUID, loan.RefinanceRequest) (*loan.LoanDetail, error) {
	return m.detail, m.err
}

func (m *mockLoanService) Finalize(context.Context, uuid.UUID) (*domain.Loan, error) {
	return nil, m.err
}

func authedRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	session := auth.Session{Email: "agent@office.test", Role: domain.RoleEmployee}
	return r.WithContext(auth.ContextWithSession(r.Context(), session))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLoanOriginate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing client",
			body: `{"principal":"500","currency":"ARS","frequency":"weekly"}`,
		},
		{
			name: "zero principal",
			body: `{"client_id":"123","principal":"0","currency":"ARS","frequency":"weekly"}`,
		},
		{
			name: "bad frequency",
			body: `{"client_id":"123","principal":"500","currency":"ARS","frequency":"yearly"}`,
		},
		{
			name: "negative rate",
			body: `{"client_id":"123","principal":"500","currency":"ARS","frequency":"weekly","rate_pct":"-5"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockLoanService{}
			h := NewLoanHandler(mock)

			rec := httptest.NewRecorder()
			h.Originate(rec, authedRequest(http.MethodPost, "/api/v1/loans", tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
			assert.Nil(t, mock.originateReq, "service must not be called")
		})
	}
}

func TestLoanOriginate_RequiresSession(t *testing.T) {
	h := NewLoanHandler(&mockLoanService{})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/loans",
		strings.NewReader(`{"client_id":"123","principal":"500","currency":"ARS","frequency":"weekly"}`))
	h.Originate(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoanOriginate_NormalizesCurrency(t *testing.T) {
	detail := &loan.LoanDetail{
		Loan: domain.Loan{ID: uuid.New(), Status: domain.LoanStatusActive},
	}
	mock := &mockLoanService{detail: detail}
	h := NewLoanHandler(mock)

	rec := httptest.NewRecorder()
	h.Originate(rec, authedRequest(http.MethodPost, "/api/v1/loans",
		`{"client_id":"123","principal":"500","currency":" ars ","frequency":"weekly"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, mock.originateReq)
	assert.Equal(t, domain.CurrencyARS, mock.originateReq.Currency)
	assert.Equal(t, "/api/v1/loans/"+detail.Loan.ID.String(), rec.Header().Get("Location"))
}

func TestLoanOriginate_DomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not eligible", domain.ErrClientNotEligible, http.StatusUnprocessableEntity, "CLIENT_NOT_ELIGIBLE"},
		{"no limit", domain.ErrNoAgentLimit, http.StatusUnprocessableEntity, "NO_AGENT_LIMIT"},
		{"limit exceeded", domain.ErrAgentLimitExceeded, http.StatusUnprocessableEntity, "AGENT_LIMIT_EXCEEDED"},
		{"client missing", domain.ErrNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLoanHandler(&mockLoanService{err: tt.err})

			rec := httptest.NewRecorder()
			h.Originate(rec, authedRequest(http.MethodPost, "/api/v1/loans",
				`{"client_id":"123","principal":"500","currency":"ARS","frequency":"weekly"}`))

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestLoanFinalize_BadID(t *testing.T) {
	h := NewLoanHandler(&mockLoanService{})

	rec := httptest.NewRecorder()
	r := authedRequest(http.MethodPost, "/api/v1/loans/not-a-uuid/finalize", "")
	r.SetPathValue("id", "not-a-uuid")
	h.Finalize(rec, r)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
