// Package cash owns the office ledger: an append-only log of cash
// movements plus per-currency running balances. Every disbursement and
// collection posts here; reporting views read back entries and balances.
package cash

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/logging"
)

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	ApplyToBalance(ctx context.Context, tx *sql.Tx, currency domain.Currency, incomeDelta, expenseDelta decimal.Decimal, at time.Time) error
	ListByDate(ctx context.Context, date time.Time) ([]domain.LedgerEntry, error)
	ListBalances(ctx context.Context) ([]domain.CurrencyBalance, error)
}

type Service struct {
	ledger ledgerRepo
	db     *sql.DB
}

func NewService(ledger ledgerRepo, db *sql.DB) *Service {
	return &Service{ledger: ledger, db: db}
}

type PostRequest struct {
	Type        domain.EntryType
	Amount      decimal.Decimal
	Currency    domain.Currency
	Description string
	AgentEmail  string
}

// Post appends a ledger entry and applies it to the currency balance
// within the caller's transaction, so lifecycle operations commit their
// cash movement atomically with the rest of their writes.
func (s *Service) Post(ctx context.Context, tx *sql.Tx, req PostRequest) (*domain.LedgerEntry, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("Post: invalid entry type %q: %w", req.Type, domain.ErrInvalidRequest)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("Post: %w", domain.ErrInvalidAmount)
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		Type:        req.Type,
		Amount:      req.Amount.Round(2),
		Currency:    req.Currency,
		Description: req.Description,
		AgentEmail:  req.AgentEmail,
		EntryDate:   now.Truncate(24 * time.Hour),
		CreatedAt:   now,
	}

	if err := s.ledger.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("Post: %w", err)
	}

	income, expense := decimal.Zero, decimal.Zero
	if req.Type == domain.EntryTypeIncome {
		income = entry.Amount
	} else {
		expense = entry.Amount
	}
	if err := s.ledger.ApplyToBalance(ctx, tx, req.Currency, income, expense, now); err != nil {
		return nil, fmt.Errorf("Post: %w", err)
	}

	return entry, nil
}

// PostAdjustment is the admin-facing manual movement: it opens its own
// transaction around a single Post.
func (s *Service) PostAdjustment(ctx context.Context, req PostRequest) (*domain.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("PostAdjustment: begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.Post(ctx, tx, req)
	if err != nil {
		return nil, fmt.Errorf("PostAdjustment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("PostAdjustment: commit: %w", err)
	}

	log := logging.FromContext(ctx)
	log.Info("manual ledger adjustment posted",
		"entry_id", entry.ID,
		"type", entry.Type,
		"amount", entry.Amount,
		"currency", entry.Currency,
	)

	return entry, nil
}

// DayReport is one day of ledger activity with per-currency totals.
type DayReport struct {
	Date    time.Time
	Entries []domain.LedgerEntry
	Totals  []DayTotal
}

type DayTotal struct {
	Currency domain.Currency
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Net      decimal.Decimal
}

func (s *Service) EntriesForDate(ctx context.Context, date time.Time) (*DayReport, error) {
	entries, err := s.ledger.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("EntriesForDate: %w", err)
	}

	byCurrency := make(map[domain.Currency]*DayTotal)
	var order []domain.Currency
	for _, e := range entries {
		t, ok := byCurrency[e.Currency]
		if !ok {
			t = &DayTotal{Currency: e.Currency}
			byCurrency[e.Currency] = t
			order = append(order, e.Currency)
		}
		if e.Type == domain.EntryTypeIncome {
			t.Income = t.Income.Add(e.Amount)
		} else {
			t.Expense = t.Expense.Add(e.Amount)
		}
	}

	totals := make([]DayTotal, 0, len(order))
	for _, c := range order {
		t := byCurrency[c]
		t.Net = t.Income.Sub(t.Expense)
		totals = append(totals, *t)
	}

	return &DayReport{Date: date, Entries: entries, Totals: totals}, nil
}

func (s *Service) Balances(ctx context.Context) ([]domain.CurrencyBalance, error) {
	balances, err := s.ledger.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("Balances: %w", err)
	}
	return balances, nil
}
