package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrInvalidCurrency         = errors.New("invalid currency")
	ErrInvalidFrequency        = errors.New("invalid payment frequency")
	ErrInvalidInstallmentCount = errors.New("installment count must be greater than zero")

	ErrClientExists      = errors.New("client already registered with this national id")
	ErrClientNotEligible = errors.New("client is not eligible for new loans")

	ErrNoAgentLimit       = errors.New("no credit limit assigned for this currency")
	ErrAgentLimitExceeded = errors.New("monthly credit limit exceeded")

	ErrLoanNotActive         = errors.New("loan is not active")
	ErrInstallmentNotPending = errors.New("installment is not pending")
	ErrNothingPending        = errors.New("no pending installments to collect")
	ErrBalanceNotSettled     = errors.New("loan still has an outstanding balance")

	ErrForbidden  = errors.New("administrator privilege required")
	ErrSelfDelete = errors.New("cannot delete your own account")
	ErrUserExists = errors.New("user already registered with this email")

	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)
