package report_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/repository"
	"github.com/sigesp/prestamos-api/internal/service/report"
	"github.com/sigesp/prestamos-api/internal/testutil"
)

func setupReportService(t *testing.T, db *sql.DB) *report.Service {
	t.Helper()
	return report.NewService(
		repository.NewInstallmentRepository(db),
		repository.NewLoanRepository(db),
		repository.NewClientRepository(db),
		repository.NewUserRepository(db),
		repository.NewLedgerRepository(db),
	)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDelinquency(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupReportService(t, db)
	ctx := context.Background()

	// Pinned mid-morning so the started day counts toward lateness.
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	today := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	testutil.SeedClient(t, db, "40222333", "Elsa Marin")
	// 3 daily installments of 100 due starting 10 days ago: all overdue.
	testutil.SeedLoan(t, db, "40222333", "Elsa Marin", "agent@office.test",
		domain.CurrencyARS, d("300"), 3, today.AddDate(0, 0, -10))

	testutil.SeedClient(t, db, "40222334", "Hugo Leal")
	// Due starting today: nothing overdue yet.
	testutil.SeedLoan(t, db, "40222334", "Hugo Leal", "agent@office.test",
		domain.CurrencyARS, d("200"), 2, today)

	testutil.SeedClient(t, db, "40222340", "Abel Soto")
	// Due yesterday at midnight: ten hours into the next day counts as
	// the second late day.
	testutil.SeedLoan(t, db, "40222340", "Abel Soto", "agent@office.test",
		domain.CurrencyARS, d("100"), 1, today.AddDate(0, 0, -1))

	rep, err := svc.Delinquency(ctx, now)
	require.NoError(t, err)
	require.Len(t, rep.Items, 4)

	// Worst first: ten full days plus this morning is eleven.
	assert.Equal(t, 11, rep.Items[0].DaysLate)
	assert.Equal(t, 10, rep.Items[1].DaysLate)
	assert.Equal(t, 9, rep.Items[2].DaysLate)
	for _, item := range rep.Items[:3] {
		assert.Equal(t, "Elsa Marin", item.ClientName)
	}

	assert.Equal(t, 2, rep.Items[3].DaysLate)
	assert.Equal(t, "Abel Soto", rep.Items[3].ClientName)

	require.Len(t, rep.Totals, 1)
	assert.Equal(t, domain.CurrencyARS, rep.Totals[0].Currency)
	assert.True(t, rep.Totals[0].Amount.Equal(d("400")))
	assert.Equal(t, 4, rep.Totals[0].Count)
}

func TestDelinquency_ExcludesSettledAndClosedLoans(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupReportService(t, db)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.AddDate(0, 0, -5)

	testutil.SeedClient(t, db, "40222335", "Ivan Rey")
	paid := testutil.SeedLoan(t, db, "40222335", "Ivan Rey", "agent@office.test",
		domain.CurrencyARS, d("100"), 1, past)
	_, err := db.Exec(`UPDATE installments SET status = 'paid', paid_at = now() WHERE loan_id = $1`, paid.ID)
	require.NoError(t, err)

	refinanced := testutil.SeedLoan(t, db, "40222335", "Ivan Rey", "agent@office.test",
		domain.CurrencyARS, d("100"), 1, past)
	_, err = db.Exec(`UPDATE loans SET status = 'refinanced' WHERE id = $1`, refinanced.ID)
	require.NoError(t, err)

	rep, err := svc.Delinquency(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, rep.Items)
}

func TestProjectMonth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupReportService(t, db)
	ctx := context.Background()

	// Pin to mid-month so seeded due dates stay inside the window.
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	testutil.SeedClient(t, db, "40222336", "Rosa Nieto")
	testutil.SeedLoan(t, db, "40222336", "Rosa Nieto", "agent@office.test",
		domain.CurrencyARS, d("300"), 3, now.AddDate(0, 0, 1))
	// Due next month: outside the projection.
	testutil.SeedLoan(t, db, "40222336", "Rosa Nieto", "other@office.test",
		domain.CurrencyARS, d("900"), 1, now.AddDate(0, 1, 5))

	proj, err := svc.ProjectMonth(ctx, "", now)
	require.NoError(t, err)
	require.Len(t, proj.Totals, 1)
	assert.True(t, proj.Totals[0].Amount.Equal(d("300")), "projected: %s", proj.Totals[0].Amount)

	// Restricted to one agent.
	agentProj, err := svc.ProjectMonth(ctx, "other@office.test", now)
	require.NoError(t, err)
	assert.Empty(t, agentProj.Totals)
}

func TestAgentReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupReportService(t, db)
	ctx := context.Background()

	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

	testutil.SeedUser(t, db, "agent@office.test", domain.RoleEmployee)
	testutil.SeedAgentLimit(t, db, "agent@office.test", domain.CurrencyARS, d("10000"))
	testutil.SeedClient(t, db, "40222337", "Nilda Funes")

	l := testutil.SeedLoan(t, db, "40222337", "Nilda Funes", "agent@office.test",
		domain.CurrencyARS, d("3000"), 3, now.AddDate(0, 0, 1))
	_, err := db.Exec(`UPDATE loans SET originated_at = $1 WHERE id = $2`, now, l.ID)
	require.NoError(t, err)

	standings, err := svc.AgentReport(ctx, "agent@office.test", now)
	require.NoError(t, err)
	require.Len(t, standings, 1)

	st := standings[0]
	assert.Equal(t, domain.CurrencyARS, st.Currency)
	assert.True(t, st.Limit.Equal(d("10000")))
	assert.True(t, st.Used.Equal(d("3000")), "used: %s", st.Used)
	assert.True(t, st.Available.Equal(d("7000")), "available: %s", st.Available)
	assert.True(t, st.ToCollect.Equal(d("3000")), "to collect: %s", st.ToCollect)
}

func TestDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupReportService(t, db)
	ctx := context.Background()

	now := time.Now().UTC()

	testutil.SeedClient(t, db, "40222338", "Tito Ponce")
	testutil.SeedClient(t, db, "40222339", "Vera Luna")
	testutil.SeedLoan(t, db, "40222338", "Tito Ponce", "agent@office.test",
		domain.CurrencyARS, d("200"), 2, now.AddDate(0, 0, -3))

	dash, err := svc.Dashboard(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.ClientCount)
	assert.Equal(t, 1, dash.ActiveLoans)
	assert.Equal(t, 2, dash.OverdueCount)
}
