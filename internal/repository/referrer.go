package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sigesp/prestamos-api/internal/domain"
)

type ReferrerRepository struct {
	db *sql.DB
}

func NewReferrerRepository(db *sql.DB) *ReferrerRepository {
	return &ReferrerRepository{db: db}
}

func (r *ReferrerRepository) Create(ctx context.Context, ref *domain.Referrer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO referrers (id, name, national_id, contact, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ref.ID, ref.Name, ref.NationalID, ref.Contact, ref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ReferrerRepository) List(ctx context.Context) ([]domain.Referrer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, national_id, contact, created_at FROM referrers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var referrers []domain.Referrer
	for rows.Next() {
		var ref domain.Referrer
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.NationalID, &ref.Contact, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		referrers = append(referrers, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return referrers, nil
}

func (r *ReferrerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM referrers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return requireRowAffected(res, "Delete")
}
