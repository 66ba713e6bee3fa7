package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/cash"
)

type mockCashService struct {
	entry  *domain.LedgerEntry
	err    error
	posted *cash.PostRequest
}

func (m *mockCashService) PostAdjustment(_ context.Context, req cash.PostRequest) (*domain.LedgerEntry, error) {
	m.posted = &req
	return m.entry, m.err
}

func (m *mockCashService) EntriesForDate(context.Context, time.Time) (*cash.DayReport, error) {
	return nil, m.err
}

func (m *mockCashService) Balances(context.Context) ([]domain.CurrencyBalance, error) {
	return nil, m.err
}

func adminRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	session := auth.Session{Email: "admin@office.test", Role: domain.RoleAdmin}
	return r.WithContext(auth.ContextWithSession(r.Context(), session))
}

func TestCashPostEntry_AdminOnly(t *testing.T) {
	mock := &mockCashService{}
	h := NewCashHandler(mock)

	rec := httptest.NewRecorder()
	h.PostEntry(rec, authedRequest(http.MethodPost, "/api/v1/cash/entries",
		`{"type":"expense","amount":"120","currency":"ARS","description":"office rent"}`))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "ADMIN_REQUIRED", resp.Error.Code)
	assert.Nil(t, mock.posted, "service must not be called")
}

func TestCashPostEntry_AdminPosts(t *testing.T) {
	mock := &mockCashService{
		entry: &domain.LedgerEntry{
			ID:          uuid.New(),
			Type:        domain.EntryTypeExpense,
			Amount:      decimal.RequireFromString("120"),
			Currency:    domain.CurrencyARS,
			Description: "office rent",
			AgentEmail:  "admin@office.test",
		},
	}
	h := NewCashHandler(mock)

	rec := httptest.NewRecorder()
	h.PostEntry(rec, adminRequest(http.MethodPost, "/api/v1/cash/entries",
		`{"type":"expense","amount":"120","currency":"ARS","description":"office rent"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, mock.posted)
	assert.Equal(t, "admin@office.test", mock.posted.AgentEmail)
	assert.Equal(t, domain.EntryTypeExpense, mock.posted.Type)
}
