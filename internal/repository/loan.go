package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
)

const loanColumns = `id, client_id, client_name, agent_email, principal, currency,
	interest_pct, total_due, installment_count, frequency, paid_count,
	remaining_balance, status, note, originated_at`

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return l, nil
}

// GetForUpdate locks the loan row for the duration of the transaction so
// concurrent lifecycle operations on the same loan serialize.
func (r *LoanRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) List(ctx context.Context) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans ORDER BY originated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows, "List")
}

func (r *LoanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE status = $1 ORDER BY originated_at DESC`, status,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStatus: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows, "ListByStatus")
}

func (r *LoanRepository) CountByStatus(ctx context.Context, status domain.LoanStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE status = $1`, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountByStatus: %w", err)
	}
	return n, nil
}

func (r *LoanRepository) Create(ctx context.Context, tx *sql.Tx, l *domain.Loan) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO loans (
			id, client_id, client_name, agent_email, principal, currency,
			interest_pct, total_due, installment_count, frequency, paid_count,
			remaining_balance, status, note, originated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		l.ID, l.ClientID, l.ClientName, l.AgentEmail, l.Principal, l.Currency,
		l.InterestPct, l.TotalDue, l.InstallmentCount, l.Frequency, l.PaidCount,
		l.RemainingBalance, l.Status, l.Note, l.OriginatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ApplyCollection decrements the remaining balance and bumps the paid
// counter with atomic SQL increments rather than a full-row overwrite.
func (r *LoanRepository) ApplyCollection(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal, paidDelta int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET
			remaining_balance = remaining_balance - $1,
			paid_count = paid_count + $2
		WHERE id = $3 AND status = 'active'`,
		amount, paidDelta, id,
	)
	if err != nil {
		return fmt.Errorf("ApplyCollection: %w", err)
	}
	return requireRowAffected(res, "ApplyCollection")
}

// CloseForRefinance marks the loan refinanced and zeroes its balance; the
// debt moves to the replacement loan.
func (r *LoanRepository) CloseForRefinance(ctx context.Context, tx *sql.Tx, id uuid.UUID, note string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET status = 'refinanced', remaining_balance = 0, note = $1
		WHERE id = $2 AND status = 'active'`,
		note, id,
	)
	if err != nil {
		return fmt.Errorf("CloseForRefinance: %w", err)
	}
	return requireRowAffected(res, "CloseForRefinance")
}

// Finalize transitions a fully collected loan to finalized. The balance
// guard is in the WHERE clause so a stale read cannot close a loan that
// still owes money.
func (r *LoanRepository) Finalize(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE loans SET status = 'finalized'
		WHERE id = $1 AND status = 'active' AND remaining_balance = 0`, id,
	)
	if err != nil {
		return false, fmt.Errorf("Finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Finalize: rows affected: %w", err)
	}
	return n > 0, nil
}

// SumPrincipalSince totals an agent's disbursed principal in one currency
// from the given instant, used for the monthly credit-limit check.
func (r *LoanRepository) SumPrincipalSince(ctx context.Context, agentEmail string, currency domain.Currency, since time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(principal), 0) FROM loans
		WHERE agent_email = $1 AND currency = $2 AND originated_at >= $3`,
		agentEmail, currency, since,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumPrincipalSince: %w", err)
	}
	return sum, nil
}

func (r *LoanRepository) SumPrincipalSinceByCurrency(ctx context.Context, agentEmail string, since time.Time) (map[domain.Currency]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT currency, COALESCE(SUM(principal), 0) FROM loans
		WHERE agent_email = $1 AND originated_at >= $2
		GROUP BY currency`,
		agentEmail, since,
	)
	if err != nil {
		return nil, fmt.Errorf("SumPrincipalSinceByCurrency: %w", err)
	}
	defer rows.Close()

	sums := make(map[domain.Currency]decimal.Decimal)
	for rows.Next() {
		var c domain.Currency
		var sum decimal.Decimal
		if err := rows.Scan(&c, &sum); err != nil {
			return nil, fmt.Errorf("SumPrincipalSinceByCurrency: scan: %w", err)
		}
		sums[c] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SumPrincipalSinceByCurrency: rows: %w", err)
	}
	return sums, nil
}

func collectLoans(rows *sql.Rows, op string) ([]domain.Loan, error) {
	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return loans, nil
}

func scanLoan(s scanner) (*domain.Loan, error) {
	var l domain.Loan
	err := s.Scan(
		&l.ID, &l.ClientID, &l.ClientName, &l.AgentEmail, &l.Principal, &l.Currency,
		&l.InterestPct, &l.TotalDue, &l.InstallmentCount, &l.Frequency, &l.PaidCount,
		&l.RemainingBalance, &l.Status, &l.Note, &l.OriginatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
