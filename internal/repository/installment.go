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

const installmentColumns = `id, loan_id, number, due_date, amount, status, note, paid_at`

// OverdueRow is an overdue pending installment joined with its loan, as
// consumed by the delinquency report.
type OverdueRow struct {
	Installment domain.Installment
	LoanID      uuid.UUID
	ClientID    string
	ClientName  string
	Currency    domain.Currency
}

type InstallmentRepository struct {
	db *sql.DB
}

func NewInstallmentRepository(db *sql.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

func (r *InstallmentRepository) CreateBatch(ctx context.Context, tx *sql.Tx, installments []domain.Installment) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO installments (id, loan_id, number, due_date, amount, status, note, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	)
	if err != nil {
		return fmt.Errorf("CreateBatch: prepare: %w", err)
	}
	defer stmt.Close()

	for _, i := range installments {
		if _, err := stmt.ExecContext(ctx,
			i.ID, i.LoanID, i.Number, i.DueDate, i.Amount, i.Status, i.Note, i.PaidAt,
		); err != nil {
			return fmt.Errorf("CreateBatch: installment %d: %w", i.Number, err)
		}
	}
	return nil
}

func (r *InstallmentRepository) GetByID(ctx context.Context, loanID, id uuid.UUID) (*domain.Installment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = $1 AND loan_id = $2`,
		id, loanID,
	)
	i, err := scanInstallment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return i, nil
}

func (r *InstallmentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installments
		WHERE loan_id = $1 ORDER BY number`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByLoan: %w", err)
	}
	defer rows.Close()
	return collectInstallments(rows, "ListByLoan")
}

// ListPendingForUpdate locks the loan's pending installments in waterfall
// order so a flexible payment sees a consistent snapshot.
func (r *InstallmentRepository) ListPendingForUpdate(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) ([]domain.Installment, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installments
		WHERE loan_id = $1 AND status = 'pending'
		ORDER BY number FOR UPDATE`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListPendingForUpdate: %w", err)
	}
	defer rows.Close()
	return collectInstallments(rows, "ListPendingForUpdate")
}

func (r *InstallmentRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, paidAt time.Time, note string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE installments SET status = 'paid', paid_at = $1, note = $2
		WHERE id = $3 AND status = 'pending'`,
		paidAt, note, id,
	)
	if err != nil {
		return fmt.Errorf("MarkPaid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkPaid: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("MarkPaid: %w", domain.ErrInstallmentNotPending)
	}
	return nil
}

// ReduceAmount lowers a pending installment's owed amount after a partial
// flexible payment. The installment stays pending at the reduced amount.
func (r *InstallmentRepository) ReduceAmount(ctx context.Context, tx *sql.Tx, id uuid.UUID, newAmount decimal.Decimal, note string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE installments SET amount = $1, note = $2
		WHERE id = $3 AND status = 'pending'`,
		newAmount, note, id,
	)
	if err != nil {
		return fmt.Errorf("ReduceAmount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReduceAmount: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ReduceAmount: %w", domain.ErrInstallmentNotPending)
	}
	return nil
}

// MarkPendingRefinanced retires all still-pending installments of a loan
// being refinanced, excluding them from delinquency going forward.
func (r *InstallmentRepository) MarkPendingRefinanced(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE installments SET status = 'refinanced'
		WHERE loan_id = $1 AND status = 'pending'`, loanID,
	)
	if err != nil {
		return fmt.Errorf("MarkPendingRefinanced: %w", err)
	}
	return nil
}

// ListOverdue returns pending installments of active loans due strictly
// before the cutoff, worst first.
func (r *InstallmentRepository) ListOverdue(ctx context.Context, before time.Time) ([]OverdueRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.loan_id, i.number, i.due_date, i.amount, i.status, i.note, i.paid_at,
			l.client_id, l.client_name, l.currency
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.status = 'active' AND i.status = 'pending' AND i.due_date < $1
		ORDER BY i.due_date`, before,
	)
	if err != nil {
		return nil, fmt.Errorf("ListOverdue: %w", err)
	}
	defer rows.Close()

	var result []OverdueRow
	for rows.Next() {
		var o OverdueRow
		err := rows.Scan(
			&o.Installment.ID, &o.Installment.LoanID, &o.Installment.Number,
			&o.Installment.DueDate, &o.Installment.Amount, &o.Installment.Status,
			&o.Installment.Note, &o.Installment.PaidAt,
			&o.ClientID, &o.ClientName, &o.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("ListOverdue: scan: %w", err)
		}
		o.LoanID = o.Installment.LoanID
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOverdue: rows: %w", err)
	}
	return result, nil
}

// SumPendingDueBetween totals pending installment amounts of active loans
// due in [from, to), per currency, optionally restricted to one agent.
func (r *InstallmentRepository) SumPendingDueBetween(ctx context.Context, agentEmail string, from, to time.Time) (map[domain.Currency]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.currency, COALESCE(SUM(i.amount), 0)
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE l.status = 'active' AND i.status = 'pending'
			AND i.due_date >= $1 AND i.due_date < $2
			AND ($3 = '' OR l.agent_email = $3)
		GROUP BY l.currency`,
		from, to, agentEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("SumPendingDueBetween: %w", err)
	}
	defer rows.Close()

	sums := make(map[domain.Currency]decimal.Decimal)
	for rows.Next() {
		var c domain.Currency
		var sum decimal.Decimal
		if err := rows.Scan(&c, &sum); err != nil {
			return nil, fmt.Errorf("SumPendingDueBetween: scan: %w", err)
		}
		sums[c] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SumPendingDueBetween: rows: %w", err)
	}
	return sums, nil
}

func collectInstallments(rows *sql.Rows, op string) ([]domain.Installment, error) {
	var installments []domain.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		installments = append(installments, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return installments, nil
}

func scanInstallment(s scanner) (*domain.Installment, error) {
	var i domain.Installment
	err := s.Scan(
		&i.ID, &i.LoanID, &i.Number, &i.DueDate, &i.Amount, &i.Status, &i.Note, &i.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
