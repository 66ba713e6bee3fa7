package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
)

const userColumns = `email, name, role, password_hash, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrUserExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, role = $2, password_hash = $3 WHERE email = $4`,
		user.Name, user.Role, user.PasswordHash, user.Email,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return requireRowAffected(res, "Update")
}

func (r *UserRepository) Delete(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return requireRowAffected(res, "Delete")
}

// GetLimit returns the agent's monthly cap for one currency. A missing row
// means no limit has been assigned; callers treat that as zero.
func (r *UserRepository) GetLimit(ctx context.Context, agentEmail string, currency domain.Currency) (decimal.Decimal, error) {
	var limit decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_limit FROM agent_limits WHERE agent_email = $1 AND currency = $2`,
		agentEmail, currency,
	).Scan(&limit)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetLimit: %w", err)
	}
	return limit, nil
}

func (r *UserRepository) ListLimits(ctx context.Context, agentEmail string) ([]domain.AgentLimit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT agent_email, currency, monthly_limit FROM agent_limits
		WHERE agent_email = $1 ORDER BY currency`, agentEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("ListLimits: %w", err)
	}
	defer rows.Close()

	var limits []domain.AgentLimit
	for rows.Next() {
		var l domain.AgentLimit
		if err := rows.Scan(&l.AgentEmail, &l.Currency, &l.MonthlyLimit); err != nil {
			return nil, fmt.Errorf("ListLimits: scan: %w", err)
		}
		limits = append(limits, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListLimits: rows: %w", err)
	}
	return limits, nil
}

func (r *UserRepository) SetLimit(ctx context.Context, limit domain.AgentLimit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_limits (agent_email, currency, monthly_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (agent_email, currency)
		DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit`,
		limit.AgentEmail, limit.Currency, limit.MonthlyLimit,
	)
	if err != nil {
		return fmt.Errorf("SetLimit: %w", err)
	}
	return nil
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(&u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func requireRowAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
