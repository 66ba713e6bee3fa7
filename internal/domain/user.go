package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is an operator of the office: either an administrator or a field
// agent ("employee"). Users are keyed by email, which is also the identity
// recorded on loans and ledger entries.
type User struct {
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// AgentLimit caps how much principal an agent may disburse per calendar
// month in one currency. Administrators are never subject to limits.
type AgentLimit struct {
	AgentEmail   string
	Currency     Currency
	MonthlyLimit decimal.Decimal
}
