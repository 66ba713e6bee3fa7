package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sigesp/prestamos-api/internal/domain"
)

const clientColumns = `national_id, full_name, phone, email, address,
	employer, job_title, job_category, bank_name, bank_account, bank_alias,
	referrer_name, status, created_at`

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, nationalID string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE national_id = $1`, nationalID,
	)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// List returns clients filtered by an optional case-insensitive substring
// match on name or national ID.
func (r *ClientRepository) List(ctx context.Context, search string) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients
		WHERE $1 = '' OR full_name ILIKE '%' || $1 || '%' OR national_id LIKE '%' || $1 || '%'
		ORDER BY full_name`, search,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return clients, nil
}

func (r *ClientRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (
			national_id, full_name, phone, email, address,
			employer, job_title, job_category, bank_name, bank_account, bank_alias,
			referrer_name, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		c.NationalID, c.FullName, c.Phone, c.Email, c.Address,
		c.Employer, c.JobTitle, c.JobCategory, c.BankName, c.BankAccount, c.BankAlias,
		c.ReferrerName, c.Status, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Create: %w", domain.ErrClientExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Update rewrites the mutable client fields. The national ID and status are
// immutable here; status moves only through UpdateStatus.
func (r *ClientRepository) Update(ctx context.Context, c *domain.Client) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET
			full_name = $1, phone = $2, email = $3, address = $4,
			employer = $5, job_title = $6, job_category = $7,
			bank_name = $8, bank_account = $9, bank_alias = $10,
			referrer_name = $11
		WHERE national_id = $12`,
		c.FullName, c.Phone, c.Email, c.Address,
		c.Employer, c.JobTitle, c.JobCategory,
		c.BankName, c.BankAccount, c.BankAlias,
		c.ReferrerName, c.NationalID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return requireRowAffected(res, "Update")
}

func (r *ClientRepository) UpdateStatus(ctx context.Context, nationalID string, status domain.ClientStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET status = $1 WHERE national_id = $2`, status, nationalID,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return requireRowAffected(res, "UpdateStatus")
}

func (r *ClientRepository) Delete(ctx context.Context, nationalID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE national_id = $1`, nationalID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return requireRowAffected(res, "Delete")
}

func scanClient(s scanner) (*domain.Client, error) {
	var c domain.Client
	err := s.Scan(
		&c.NationalID, &c.FullName, &c.Phone, &c.Email, &c.Address,
		&c.Employer, &c.JobTitle, &c.JobCategory,
		&c.BankName, &c.BankAccount, &c.BankAlias,
		&c.ReferrerName, &c.Status, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
