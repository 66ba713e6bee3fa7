package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/user"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, user.ErrInvalidCredentials):
		appErr = ErrInvalidCredentials
	case errors.Is(err, domain.ErrClientExists):
		appErr = ErrClientExists
	case errors.Is(err, domain.ErrClientNotEligible):
		appErr = ErrClientNotEligible
	case errors.Is(err, domain.ErrNoAgentLimit):
		appErr = ErrNoAgentLimit
	case errors.Is(err, domain.ErrAgentLimitExceeded):
		appErr = ErrAgentLimitExceeded
	case errors.Is(err, domain.ErrLoanNotActive):
		appErr = ErrLoanNotActive
	case errors.Is(err, domain.ErrInstallmentNotPending):
		appErr = ErrInstallmentNotPending
	case errors.Is(err, domain.ErrNothingPending):
		appErr = ErrNothingPending
	case errors.Is(err, domain.ErrBalanceNotSettled):
		appErr = ErrBalanceNotSettled
	case errors.Is(err, domain.ErrForbidden):
		appErr = ErrAdminRequired
	case errors.Is(err, domain.ErrSelfDelete):
		appErr = ErrSelfDelete
	case errors.Is(err, domain.ErrUserExists):
		appErr = ErrUserExists
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrInvalidFrequency):
		appErr = ErrInvalidFrequency
	case errors.Is(err, domain.ErrInvalidInstallmentCount):
		appErr = ErrInvalidInstallmentCount
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
