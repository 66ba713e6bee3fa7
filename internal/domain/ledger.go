package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

func (t EntryType) IsValid() bool {
	return t == EntryTypeIncome || t == EntryTypeExpense
}

// LedgerEntry is one immutable cash movement. EntryDate is the date-only
// form of CreatedAt, kept separately so the daily cash report can filter
// on it.
type LedgerEntry struct {
	ID          uuid.UUID
	Type        EntryType
	Amount      decimal.Decimal
	Currency    Currency
	Description string
	AgentEmail  string
	EntryDate   time.Time
	CreatedAt   time.Time
}

// CurrencyBalance is the running position of one currency, derived from
// ledger entries. Invariant: Balance = TotalIncome - TotalExpense.
type CurrencyBalance struct {
	Currency     Currency
	Balance      decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	UpdatedAt    time.Time
}
