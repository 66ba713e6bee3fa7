package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/auth"
	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/logging"
	"github.com/sigesp/prestamos-api/internal/service/cash"
)

// CollectionReceipt carries what the printable receipt needs after a
// collection.
type CollectionReceipt struct {
	LoanID            uuid.UUID
	ClientID          string
	ClientName        string
	InstallmentNumber int
	Amount            decimal.Decimal
	Currency          domain.Currency
	PaidAt            time.Time
}

// CollectInstallment marks one pending installment paid, applies the
// amount to the loan's counters, and posts the cash income, all in one
// transaction.
func (s *Service) CollectInstallment(ctx context.Context, session auth.Session, loanID, installmentID uuid.UUID) (*CollectionReceipt, error) {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CollectInstallment: begin tx: %w", err)
	}
	defer tx.Rollback()

	l, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, fmt.Errorf("CollectInstallment: %w", err)
	}
	if l.Status != domain.LoanStatusActive {
		return nil, fmt.Errorf("CollectInstallment: %w", domain.ErrLoanNotActive)
	}

	inst, err := s.installments.GetByID(ctx, loanID, installmentID)
	if err != nil {
		return nil, fmt.Errorf("CollectInstallment: %w", err)
	}

	clientName := s.currentClientName(ctx, l)
	now := time.Now().UTC()

	if err := s.installments.MarkPaid(ctx, tx, inst.ID, now, ""); err != nil {
		return nil, fmt.Errorf("CollectInstallment: %w", err)
	}
	if err := s.loans.ApplyCollection(ctx, tx, l.ID, inst.Amount, 1); err != nil {
		return nil, fmt.Errorf("CollectInstallment: %w", err)
	}

	_, err = s.ledger.Post(ctx, tx, cash.PostRequest{
		Type:        domain.EntryTypeIncome,
		Amount:      inst.Amount,
		Currency:    l.Currency,
		Description: fmt.Sprintf("Installment #%d - %s (ID: %s)", inst.Number, clientName, l.ClientID),
		AgentEmail:  session.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("CollectInstallment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CollectInstallment: commit: %w", err)
	}

	log.Info("installment collected",
		"loan_id", l.ID,
		"installment", inst.Number,
		"amount", inst.Amount,
		"currency", l.Currency,
		"agent", session.Email,
	)

	return &CollectionReceipt{
		LoanID:            l.ID,
		ClientID:          l.ClientID,
		ClientName:        clientName,
		InstallmentNumber: inst.Number,
		Amount:            inst.Amount,
		Currency:          l.Currency,
		PaidAt:            now,
	}, nil
}

// FlexibleResult summarizes a waterfall distribution.
type FlexibleResult struct {
	LoanID             uuid.UUID
	AmountApplied      decimal.Decimal
	InstallmentsClosed int
	PartialNumber      int // 0 when no installment was left partially paid
}

// CollectFlexible distributes a lump sum across the loan's pending
// installments in ascending number order: full cover closes the
// installment, a shortfall reduces the next one's owed amount and stops.
// The loan balance drops by the full amount and one income entry is
// posted.
func (s *Service) CollectFlexible(ctx context.Context, session auth.Session, loanID uuid.UUID, amount decimal.Decimal) (*FlexibleResult, error) {
	log := logging.FromContext(ctx)

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("CollectFlexible: %w", domain.ErrInvalidAmount)
	}
	amount = amount.Round(2)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CollectFlexible: begin tx: %w", err)
	}
	defer tx.Rollback()

	l, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, fmt.Errorf("CollectFlexible: %w", err)
	}
	if l.Status != domain.LoanStatusActive {
		return nil, fmt.Errorf("CollectFlexible: %w", domain.ErrLoanNotActive)
	}
	// The pending installment amounts always sum to the remaining balance,
	// so this also guarantees the waterfall consumes the whole payment.
	if amount.GreaterThan(l.RemainingBalance) {
		return nil, fmt.Errorf("CollectFlexible: payment exceeds outstanding balance: %w", domain.ErrInvalidAmount)
	}

	pending, err := s.installments.ListPendingForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, fmt.Errorf("CollectFlexible: %w", err)
	}
	if len(pending) == 0 {
		return nil, fmt.Errorf("CollectFlexible: %w", domain.ErrNothingPending)
	}

	now := time.Now().UTC()
	remaining := amount
	closed := 0
	partialNumber := 0

	for _, inst := range pending {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if remaining.GreaterThanOrEqual(inst.Amount) {
			if err := s.installments.MarkPaid(ctx, tx, inst.ID, now, "flexible payment"); err != nil {
				return nil, fmt.Errorf("CollectFlexible: installment %d: %w", inst.Number, err)
			}
			remaining = remaining.Sub(inst.Amount)
			closed++
		} else {
			reduced := inst.Amount.Sub(remaining).Round(2)
			note := fmt.Sprintf("partial payment (%s remaining)", reduced)
			if err := s.installments.ReduceAmount(ctx, tx, inst.ID, reduced, note); err != nil {
				return nil, fmt.Errorf("CollectFlexible: installment %d: %w", inst.Number, err)
			}
			partialNumber = inst.Number
			remaining = decimal.Zero
		}
	}

	if err := s.loans.ApplyCollection(ctx, tx, l.ID, amount, closed); err != nil {
		return nil, fmt.Errorf("CollectFlexible: %w", err)
	}

	clientName := s.currentClientName(ctx, l)
	_, err = s.ledger.Post(ctx, tx, cash.PostRequest{
		Type:        domain.EntryTypeIncome,
		Amount:      amount,
		Currency:    l.Currency,
		Description: fmt.Sprintf("Flexible payment - %s (ID: %s)", clientName, l.ClientID),
		AgentEmail:  session.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("CollectFlexible: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CollectFlexible: commit: %w", err)
	}

	log.Info("flexible payment distributed",
		"loan_id", l.ID,
		"amount", amount,
		"currency", l.Currency,
		"installments_closed", closed,
		"agent", session.Email,
	)

	return &FlexibleResult{
		LoanID:             l.ID,
		AmountApplied:      amount,
		InstallmentsClosed: closed,
		PartialNumber:      partialNumber,
	}, nil
}
