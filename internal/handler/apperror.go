package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrClientExists      = &AppError{http.StatusConflict, "CLIENT_ALREADY_EXISTS", "A client with this national ID already exists"}
	ErrClientNotEligible = &AppError{http.StatusUnprocessableEntity, "CLIENT_NOT_ELIGIBLE", "Client is not eligible for new loans"}

	ErrNoAgentLimit       = &AppError{http.StatusUnprocessableEntity, "NO_AGENT_LIMIT", "No credit limit assigned for this currency"}
	ErrAgentLimitExceeded = &AppError{http.StatusUnprocessableEntity, "AGENT_LIMIT_EXCEEDED", "Monthly credit limit exceeded"}

	ErrLoanNotActive         = &AppError{http.StatusUnprocessableEntity, "LOAN_NOT_ACTIVE", "Loan is not active"}
	ErrInstallmentNotPending = &AppError{http.StatusUnprocessableEntity, "INSTALLMENT_NOT_PENDING", "Installment is not pending"}
	ErrNothingPending        = &AppError{http.StatusUnprocessableEntity, "NOTHING_PENDING", "No pending installments to collect"}
	ErrBalanceNotSettled     = &AppError{http.StatusUnprocessableEntity, "BALANCE_NOT_SETTLED", "Loan still has an outstanding balance"}

	ErrAdminRequired = &AppError{http.StatusForbidden, "ADMIN_REQUIRED", "Administrator privilege required"}
	ErrSelfDelete    = &AppError{http.StatusUnprocessableEntity, "SELF_DELETE_NOT_ALLOWED", "Cannot delete your own account"}
	ErrUserExists    = &AppError{http.StatusConflict, "USER_ALREADY_EXISTS", "A user with this email already exists"}

	ErrInvalidCurrency         = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidFrequency        = &AppError{http.StatusBadRequest, "INVALID_FREQUENCY", "Frequency must be daily, weekly, biweekly, or monthly"}
	ErrInvalidInstallmentCount = &AppError{http.StatusBadRequest, "INVALID_INSTALLMENT_COUNT", "Installment count must be greater than zero"}
	ErrInvalidAmount           = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
