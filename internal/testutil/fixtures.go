package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sigesp/prestamos-api/internal/domain"
)

func SeedUser(t *testing.T, db *sql.DB, email string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		Email:        email,
		Name:         "Test " + email,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (email, name, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO NOTHING`,
		u.Email, u.Name, u.Role, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func SeedAgentLimit(t *testing.T, db *sql.DB, agentEmail string, currency domain.Currency, limit decimal.Decimal) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO agent_limits (agent_email, currency, monthly_limit)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agent_email, currency) DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit`,
		agentEmail, currency, limit,
	)
	if err != nil {
		t.Fatalf("seed agent limit %s/%s: %v", agentEmail, currency, err)
	}
}

func SeedClient(t *testing.T, db *sql.DB, nationalID, fullName string) *domain.Client {
	t.Helper()

	c := &domain.Client{
		NationalID: nationalID,
		FullName:   fullName,
		Status:     domain.ClientStatusActive,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO clients (national_id, full_name, phone, email, address,
			employer, job_title, job_category, bank_name, bank_account, bank_alias,
			referrer_name, status, created_at)
		 VALUES ($1, $2, '', '', '', '', '', '', '', '', '', '', $3, $4)`,
		c.NationalID, c.FullName, c.Status, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed client %s: %v", nationalID, err)
	}
	return c
}

func MarkClientNotEligible(t *testing.T, db *sql.DB, nationalID string) {
	t.Helper()

	_, err := db.Exec(
		`UPDATE clients SET status = 'not_eligible' WHERE national_id = $1`, nationalID,
	)
	if err != nil {
		t.Fatalf("mark client %s not eligible: %v", nationalID, err)
	}
}

// SeedLoan inserts a loan with an evenly split pending schedule, due dates
// starting at firstDue and advancing one day per installment.
func SeedLoan(t *testing.T, db *sql.DB, clientID, clientName, agentEmail string, currency domain.Currency, totalDue decimal.Decimal, count int, firstDue time.Time) *domain.Loan {
	t.Helper()

	per := totalDue.Div(decimal.NewFromInt(int64(count))).Round(2)
	last := totalDue.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))

	l := &domain.Loan{
		ID:               uuid.New(),
		ClientID:         clientID,
		ClientName:       clientName,
		AgentEmail:       agentEmail,
		Principal:        totalDue,
		Currency:         currency,
		InterestPct:      decimal.Zero,
		TotalDue:         totalDue,
		InstallmentCount: count,
		Frequency:        domain.FrequencyDaily,
		RemainingBalance: totalDue,
		Status:           domain.LoanStatusActive,
		OriginatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO loans (id, client_id, client_name, agent_email, principal, currency,
			interest_pct, total_due, installment_count, frequency, paid_count,
			remaining_balance, status, note, originated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, '', $13)`,
		l.ID, l.ClientID, l.ClientName, l.AgentEmail, l.Principal, l.Currency,
		l.InterestPct, l.TotalDue, l.InstallmentCount, l.Frequency,
		l.RemainingBalance, l.Status, l.OriginatedAt,
	)
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}

	for n := 1; n <= count; n++ {
		amount := per
		if n == count {
			amount = last
		}
		_, err := db.Exec(
			`INSERT INTO installments (id, loan_id, number, due_date, amount, status, note)
			 VALUES ($1, $2, $3, $4, $5, 'pending', '')`,
			uuid.New(), l.ID, n, firstDue.AddDate(0, 0, n-1), amount,
		)
		if err != nil {
			t.Fatalf("seed installment %d: %v", n, err)
		}
	}
	return l
}

func GetLoan(t *testing.T, db *sql.DB, id uuid.UUID) (status string, remaining decimal.Decimal, paidCount int) {
	t.Helper()

	err := db.QueryRow(
		`SELECT status, remaining_balance, paid_count FROM loans WHERE id = $1`, id,
	).Scan(&status, &remaining, &paidCount)
	if err != nil {
		t.Fatalf("get loan %s: %v", id, err)
	}
	return status, remaining, paidCount
}

func GetCurrencyBalance(t *testing.T, db *sql.DB, currency domain.Currency) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(
		`SELECT balance FROM currency_balances WHERE currency = $1`, currency,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero
	}
	if err != nil {
		t.Fatalf("get currency balance %s: %v", currency, err)
	}
	return balance
}

func CountLedgerEntries(t *testing.T, db *sql.DB, entryType string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE type = $1`, entryType,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	return count
}
