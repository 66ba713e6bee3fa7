package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sigesp/prestamos-api/internal/domain"
)

type ConfigurationRepository struct {
	db *sql.DB
}

func NewConfigurationRepository(db *sql.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// Get returns the office defaults, falling back to the built-in defaults
// when no configuration row has been saved yet.
func (r *ConfigurationRepository) Get(ctx context.Context) (domain.Configuration, error) {
	var cfg domain.Configuration
	err := r.db.QueryRowContext(ctx,
		`SELECT default_rate_pct, default_installments FROM configuration WHERE id`,
	).Scan(&cfg.DefaultRatePct, &cfg.DefaultInstallments)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultConfiguration(), nil
	}
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("Get: %w", err)
	}
	return cfg, nil
}

func (r *ConfigurationRepository) Put(ctx context.Context, cfg domain.Configuration) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO configuration (id, default_rate_pct, default_installments)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			default_rate_pct = EXCLUDED.default_rate_pct,
			default_installments = EXCLUDED.default_installments`,
		cfg.DefaultRatePct, cfg.DefaultInstallments,
	)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}
