package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
)

const ledgerColumns = `id, type, amount, currency, description, agent_email, entry_date, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, type, amount, currency, description, agent_email, entry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Type, entry.Amount, entry.Currency,
		entry.Description, entry.AgentEmail, entry.EntryDate, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ApplyToBalance upserts the currency's running balance with atomic
// increments. Concurrent postings against the same currency never lose
// updates because the arithmetic happens in the database.
func (r *LedgerRepository) ApplyToBalance(ctx context.Context, tx *sql.Tx, currency domain.Currency, incomeDelta, expenseDelta decimal.Decimal, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO currency_balances (currency, balance, total_income, total_expense, updated_at)
		VALUES ($1, $2 - $3, $2, $3, $4)
		ON CONFLICT (currency) DO UPDATE SET
			balance = currency_balances.balance + $2 - $3,
			total_income = currency_balances.total_income + $2,
			total_expense = currency_balances.total_expense + $3,
			updated_at = $4`,
		currency, incomeDelta, expenseDelta, at,
	)
	if err != nil {
		return fmt.Errorf("ApplyToBalance: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListByDate(ctx context.Context, date time.Time) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE entry_date = $1 ORDER BY created_at DESC`,
		date.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByDate: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByDate: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByDate: rows: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) ListBalances(ctx context.Context) ([]domain.CurrencyBalance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT currency, balance, total_income, total_expense, updated_at
		FROM currency_balances ORDER BY currency`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListBalances: %w", err)
	}
	defer rows.Close()

	var balances []domain.CurrencyBalance
	for rows.Next() {
		var b domain.CurrencyBalance
		if err := rows.Scan(&b.Currency, &b.Balance, &b.TotalIncome, &b.TotalExpense, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListBalances: scan: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBalances: rows: %w", err)
	}
	return balances, nil
}

func (r *LedgerRepository) GetBalance(ctx context.Context, currency domain.Currency) (*domain.CurrencyBalance, error) {
	var b domain.CurrencyBalance
	err := r.db.QueryRowContext(ctx,
		`SELECT currency, balance, total_income, total_expense, updated_at
		FROM currency_balances WHERE currency = $1`, currency,
	).Scan(&b.Currency, &b.Balance, &b.TotalIncome, &b.TotalExpense, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetBalance: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetBalance: %w", err)
	}
	return &b, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(
		&e.ID, &e.Type, &e.Amount, &e.Currency,
		&e.Description, &e.AgentEmail, &e.EntryDate, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
