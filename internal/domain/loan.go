package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is an ISO-ish code ("ARS", "USD") but the set is open: offices
// lend in whatever the operator configures, so validation only requires a
// short uppercase token.
type Currency string

const CurrencyARS Currency = "ARS"

func NormalizeCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > 10 {
		return "", ErrInvalidCurrency
	}
	return Currency(code), nil
}

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanStatusActive     LoanStatus = "active"
	LoanStatusFinalized  LoanStatus = "finalized"
	LoanStatusRefinanced LoanStatus = "refinanced"
)

// Loan holds the origination terms and the running collection state.
// TotalDue is fixed at origination: principal plus simple, non-compounding
// interest. RemainingBalance = TotalDue - everything collected so far.
type Loan struct {
	ID         uuid.UUID
	ClientID   string
	ClientName string
	AgentEmail string

	Principal        decimal.Decimal
	Currency         Currency
	InterestPct      decimal.Decimal
	TotalDue         decimal.Decimal
	InstallmentCount int
	Frequency        Frequency

	PaidCount        int
	RemainingBalance decimal.Decimal
	Status           LoanStatus
	Note             string
	OriginatedAt     time.Time
}

type InstallmentStatus string

const (
	InstallmentStatusPending    InstallmentStatus = "pending"
	InstallmentStatusPaid       InstallmentStatus = "paid"
	InstallmentStatusRefinanced InstallmentStatus = "refinanced"
)

// Installment is one scheduled repayment of a loan. Amount is mutable:
// a partial flexible payment reduces it while the installment stays
// pending.
type Installment struct {
	ID      uuid.UUID
	LoanID  uuid.UUID
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
	Status  InstallmentStatus
	Note    string
	PaidAt  *time.Time
}
