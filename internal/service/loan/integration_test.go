package loan_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/repository"
	"github.com/sigesp/prestamos-api/internal/service/cash"
	"github.com/sigesp/prestamos-api/internal/service/loan"
	"github.com/sigesp/prestamos-api/internal/testutil"
)

var (
	adminSession = auth.Session{Email: "admin@office.test", Role: domain.RoleAdmin}
	agentSession = auth.Session{Email: "agent@office.test", Role: domain.RoleEmployee}
)

func setupLoanService(t *testing.T, db *sql.DB) *loan.Service {
	t.Helper()
	return loan.NewService(
		repository.NewLoanRepository(db),
		repository.NewInstallmentRepository(db),
		repository.NewClientRepository(db),
		repository.NewUserRepository(db),
		repository.NewConfigurationRepository(db),
		cash.NewService(repository.NewLedgerRepository(db), db),
		db,
	)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ratePtr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func countPtr(n int) *int {
	return &n
}

func TestOriginate_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111222", "Maria Gomez")

	detail, err := svc.Originate(ctx, adminSession, loan.OriginateRequest{
		ClientID:         "30111222",
		Principal:        d("500"),
		Currency:         domain.CurrencyARS,
		Frequency:        domain.FrequencyWeekly,
		RatePct:          ratePtr("30"),
		InstallmentCount: countPtr(5),
	})
	require.NoError(t, err)

	l := detail.Loan
	assert.True(t, l.TotalDue.Equal(d("650")), "total due: %s", l.TotalDue)
	assert.True(t, l.RemainingBalance.Equal(d("650")))
	assert.Equal(t, domain.LoanStatusActive, l.Status)
	assert.Equal(t, "Maria Gomez", l.ClientName)
	assert.Equal(t, adminSession.Email, l.AgentEmail)

	require.Len(t, detail.Installments, 5)
	sum := decimal.Zero
	for _, inst := range detail.Installments {
		assert.Equal(t, domain.InstallmentStatusPending, inst.Status)
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(l.TotalDue), "installments sum %s != total due %s", sum, l.TotalDue)

	// The disbursement leaves the cash box as one expense.
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, "expense"))
	assert.True(t, testutil.GetCurrencyBalance(t, db, domain.CurrencyARS).Equal(d("-500")))
}

func TestOriginate_ConfigurationDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111223", "Pedro Diaz")

	detail, err := svc.Originate(ctx, adminSession, loan.OriginateRequest{
		ClientID:  "30111223",
		Principal: d("1000"),
		Currency:  domain.CurrencyARS,
		Frequency: domain.FrequencyMonthly,
	})
	require.NoError(t, err)

	// Office defaults: 30% over 6 installments.
	assert.True(t, detail.Loan.TotalDue.Equal(d("1300")))
	assert.Equal(t, 6, detail.Loan.InstallmentCount)
	require.Len(t, detail.Installments, 6)
}

func TestOriginate_NotEligibleClient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111224", "Bad Payer")
	testutil.MarkClientNotEligible(t, db, "30111224")

	_, err := svc.Originate(ctx, adminSession, loan.OriginateRequest{
		ClientID:         "30111224",
		Principal:        d("500"),
		Currency:         domain.CurrencyARS,
		Frequency:        domain.FrequencyWeekly,
		RatePct:          ratePtr("30"),
		InstallmentCount: countPtr(5),
	})
	require.ErrorIs(t, err, domain.ErrClientNotEligible)
	assert.Equal(t, 0, testutil.CountLedgerEntries(t, db, "expense"))
}

func TestOriginate_AgentLimits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedUser(t, db, agentSession.Email, domain.RoleEmployee)
	testutil.SeedClient(t, db, "30111225", "Ana Lopez")

	req := func(principal string) loan.OriginateRequest {
		return loan.OriginateRequest{
			ClientID:         "30111225",
			Principal:        d(principal),
			Currency:         domain.CurrencyARS,
			Frequency:        domain.FrequencyWeekly,
			RatePct:          ratePtr("30"),
			InstallmentCount: countPtr(5),
		}
	}

	// No limit assigned blocks the currency entirely.
	_, err := svc.Originate(ctx, agentSession, req("100"))
	require.ErrorIs(t, err, domain.ErrNoAgentLimit)

	testutil.SeedAgentLimit(t, db, agentSession.Email, domain.CurrencyARS, d("10000"))

	// 9500 fits within 10000.
	_, err = svc.Originate(ctx, agentSession, req("9500"))
	require.NoError(t, err)

	// 9500 + 600 would exceed the cap.
	_, err = svc.Originate(ctx, agentSession, req("600"))
	require.ErrorIs(t, err, domain.ErrAgentLimitExceeded)

	// Exactly reaching the cap is allowed.
	_, err = svc.Originate(ctx, agentSession, req("500"))
	require.NoError(t, err)

	// Administrators are never limited.
	_, err = svc.Originate(ctx, adminSession, req("50000"))
	require.NoError(t, err)
}

func TestCollectInstallment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111226", "Jorge Ruiz")
	detail, err := svc.Originate(ctx, adminSession, loan.OriginateRequest{
		ClientID:         "30111226",
		Principal:        d("500"),
		Currency:         domain.CurrencyARS,
		Frequency:        domain.FrequencyWeekly,
		RatePct:          ratePtr("30"),
		InstallmentCount: countPtr(5),
	})
	require.NoError(t, err)

	first := detail.Installments[0]
	receipt, err := svc.CollectInstallment(ctx, adminSession, detail.Loan.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.InstallmentNumber)
	assert.True(t, receipt.Amount.Equal(d("130")))
	assert.Equal(t, "Jorge Ruiz", receipt.ClientName)

	status, remaining, paidCount := testutil.GetLoan(t, db, detail.Loan.ID)
	assert.Equal(t, "active", status)
	assert.True(t, remaining.Equal(d("520")), "remaining: %s", remaining)
	assert.Equal(t, 1, paidCount)

	// -500 disbursed, +130 collected.
	assert.True(t, testutil.GetCurrencyBalance(t, db, domain.CurrencyARS).Equal(d("-370")))

	// The same installment cannot be collected twice.
	_, err = svc.CollectInstallment(ctx, adminSession, detail.Loan.ID, first.ID)
	require.ErrorIs(t, err, domain.ErrInstallmentNotPending)
}

func TestCollectFlexible_Waterfall(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111227", "Lucia Paz")
	l := testutil.SeedLoan(t, db, "30111227", "Lucia Paz", adminSession.Email,
		domain.CurrencyARS, d("300"), 3, time.Now().UTC())

	// 150 against 3 x 100: closes #1, reduces #2 to 50, leaves #3 intact.
	result, err := svc.CollectFlexible(ctx, adminSession, l.ID, d("150"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.InstallmentsClosed)
	assert.Equal(t, 2, result.PartialNumber)
	assert.True(t, result.AmountApplied.Equal(d("150")))

	_, remaining, paidCount := testutil.GetLoan(t, db, l.ID)
	assert.True(t, remaining.Equal(d("150")), "remaining: %s", remaining)
	assert.Equal(t, 1, paidCount)

	rows, err := db.Query(`SELECT number, amount, status FROM installments WHERE loan_id = $1 ORDER BY number`, l.ID)
	require.NoError(t, err)
	defer rows.Close()

	type instRow struct {
		number int
		amount decimal.Decimal
		status string
	}
	var installments []instRow
	for rows.Next() {
		var r instRow
		require.NoError(t, rows.Scan(&r.number, &r.amount, &r.status))
		installments = append(installments, r)
	}
	require.Len(t, installments, 3)
	assert.Equal(t, "paid", installments[0].status)
	assert.Equal(t, "pending", installments[1].status)
	assert.True(t, installments[1].amount.Equal(d("50")), "reduced amount: %s", installments[1].amount)
	assert.Equal(t, "pending", installments[2].status)
	assert.True(t, installments[2].amount.Equal(d("100")))

	// One income entry for the whole distribution.
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, db, "income"))
}

func TestCollectFlexible_ExactRemainderClosesAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111228", "Raul Soto")
	l := testutil.SeedLoan(t, db, "30111228", "Raul Soto", adminSession.Email,
		domain.CurrencyARS, d("300"), 3, time.Now().UTC())

	result, err := svc.CollectFlexible(ctx, adminSession, l.ID, d("300"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.InstallmentsClosed)
	assert.Equal(t, 0, result.PartialNumber)

	status, remaining, paidCount := testutil.GetLoan(t, db, l.ID)
	assert.Equal(t, "active", status, "full collection does not auto-finalize")
	assert.True(t, remaining.IsZero())
	assert.Equal(t, 3, paidCount)

	// Now the explicit close succeeds.
	finalized, err := svc.Finalize(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusFinalized, finalized.Status)
}

func TestCollectFlexible_RejectsOverpayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111229", "Marta Vidal")
	l := testutil.SeedLoan(t, db, "30111229", "Marta Vidal", adminSession.Email,
		domain.CurrencyARS, d("300"), 3, time.Now().UTC())

	_, err := svc.CollectFlexible(ctx, adminSession, l.ID, d("300.01"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, remaining, _ := testutil.GetLoan(t, db, l.ID)
	assert.True(t, remaining.Equal(d("300")))
	assert.Equal(t, 0, testutil.CountLedgerEntries(t, db, "income"))
}

func TestFinalize_RequiresSettledBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111230", "Nora Ibarra")
	l := testutil.SeedLoan(t, db, "30111230", "Nora Ibarra", adminSession.Email,
		domain.CurrencyARS, d("300"), 3, time.Now().UTC())

	_, err := svc.Finalize(ctx, l.ID)
	require.ErrorIs(t, err, domain.ErrBalanceNotSettled)

	status, _, _ := testutil.GetLoan(t, db, l.ID)
	assert.Equal(t, "active", status)
}

func TestRefinance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLoanService(t, db)
	ctx := context.Background()

	testutil.SeedClient(t, db, "30111231", "Oscar Mena")
	l := testutil.SeedLoan(t, db, "30111231", "Oscar Mena", adminSession.Email,
		domain.CurrencyARS, d("500"), 5, time.Now().UTC())

	incomeBefore := testutil.CountLedgerEntries(t, db, "income")
	expenseBefore := testutil.CountLedgerEntries(t, db, "expense")

	detail, err := svc.Refinance(ctx, adminSession, l.ID, loan.RefinanceRequest{
		RatePct:          d("10"),
		InstallmentCount: 5,
		Frequency:        domain.FrequencyWeekly,
	})
	require.NoError(t, err)

	// Old loan: refinanced, zeroed, pending installments retired.
	oldStatus, oldRemaining, _ := testutil.GetLoan(t, db, l.ID)
	assert.Equal(t, "refinanced", oldStatus)
	assert.True(t, oldRemaining.IsZero())

	var pendingLeft int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM installments WHERE loan_id = $1 AND status = 'pending'`, l.ID,
	).Scan(&pendingLeft))
	assert.Equal(t, 0, pendingLeft)

	// New loan: 500 base at 10% over 5 installments of 110.
	newLoan := detail.Loan
	assert.NotEqual(t, l.ID, newLoan.ID)
	assert.True(t, newLoan.Principal.Equal(d("500")))
	assert.True(t, newLoan.TotalDue.Equal(d("550")), "new total due: %s", newLoan.TotalDue)
	assert.True(t, newLoan.RemainingBalance.Equal(d("550")))
	assert.Equal(t, domain.LoanStatusActive, newLoan.Status)
	require.Len(t, detail.Installments, 5)
	for _, inst := range detail.Installments {
		assert.True(t, inst.Amount.Equal(d("110")), "installment %d: %s", inst.Number, inst.Amount)
	}

	// Refinancing moves no cash.
	assert.Equal(t, incomeBefore, testutil.CountLedgerEntries(t, db, "income"))
	assert.Equal(t, expenseBefore, testutil.CountLedgerEntries(t, db, "expense"))

	// The closed loan cannot be refinanced again.
	_, err = svc.Refinance(ctx, adminSession, l.ID, loan.RefinanceRequest{
		RatePct:          d("10"),
		InstallmentCount: 5,
		Frequency:        domain.FrequencyWeekly,
	})
	require.ErrorIs(t, err, domain.ErrLoanNotActive)
}
