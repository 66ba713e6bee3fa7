package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
)

type configurationRepository interface {
	Get(ctx context.Context) (domain.Configuration, error)
	Put(ctx context.Context, cfg domain.Configuration) error
}

type ConfigurationHandler struct {
	configuration configurationRepository
}

func NewConfigurationHandler(configuration configurationRepository) *ConfigurationHandler {
	return &ConfigurationHandler{configuration: configuration}
}

type configurationDTO struct {
	DefaultRatePct      decimal.Decimal `json:"default_rate_pct"`
	DefaultInstallments int             `json:"default_installments"`
}

func (h *ConfigurationHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configuration.Get(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, configurationDTO{
		DefaultRatePct:      cfg.DefaultRatePct,
		DefaultInstallments: cfg.DefaultInstallments,
	})
}

func (h *ConfigurationHandler) Put(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}
	if !session.IsAdmin() {
		RespondAppError(w, ErrAdminRequired, nil)
		return
	}

	var req configurationDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var fields []FieldError
	if req.DefaultRatePct.IsNegative() {
		fields = append(fields, FieldError{Field: "default_rate_pct", Message: "must not be negative"})
	}
	if req.DefaultInstallments <= 0 {
		fields = append(fields, FieldError{Field: "default_installments", Message: "must be greater than 0"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	err := h.configuration.Put(r.Context(), domain.Configuration{
		DefaultRatePct:      req.DefaultRatePct,
		DefaultInstallments: req.DefaultInstallments,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, req)
}
