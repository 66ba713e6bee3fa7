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
	"github.com/sigesp/prestamos-api/internal/schedule"
	"github.com/sigesp/prestamos-api/internal/service/cash"
)

type OriginateRequest struct {
	ClientID  string
	Principal decimal.Decimal
	Currency  domain.Currency
	Frequency domain.Frequency

	// RatePct and InstallmentCount fall back to the office configuration
	// defaults when nil.
	RatePct          *decimal.Decimal
	InstallmentCount *int
}

// Originate disburses a new loan: eligibility gate, per-agent monthly
// credit limit, schedule generation, and the cash expense, committed as
// one transaction.
func (s *Service) Originate(ctx context.Context, session auth.Session, req OriginateRequest) (*LoanDetail, error) {
	log := logging.FromContext(ctx)

	if req.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("Originate: %w", domain.ErrInvalidAmount)
	}
	if !req.Frequency.IsValid() {
		return nil, fmt.Errorf("Originate: %w", domain.ErrInvalidFrequency)
	}

	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("Originate: %w", err)
	}
	if !client.Eligible() {
		return nil, fmt.Errorf("Originate: client %s: %w", client.NationalID, domain.ErrClientNotEligible)
	}

	ratePct, count, err := s.resolveTerms(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Originate: %w", err)
	}

	if !session.IsAdmin() {
		if err := s.checkAgentLimit(ctx, session.Email, req.Currency, req.Principal); err != nil {
			return nil, fmt.Errorf("Originate: %w", err)
		}
	}

	now := time.Now().UTC()
	totalDue := req.Principal.Mul(percentFactor(ratePct)).Round(2)

	plan, err := schedule.Generate(totalDue, count, req.Frequency, now)
	if err != nil {
		return nil, fmt.Errorf("Originate: %w", err)
	}

	l := &domain.Loan{
		ID:               uuid.New(),
		ClientID:         client.NationalID,
		ClientName:       client.FullName,
		AgentEmail:       session.Email,
		Principal:        req.Principal.Round(2),
		Currency:         req.Currency,
		InterestPct:      ratePct,
		TotalDue:         totalDue,
		InstallmentCount: count,
		Frequency:        req.Frequency,
		PaidCount:        0,
		RemainingBalance: totalDue,
		Status:           domain.LoanStatusActive,
		OriginatedAt:     now,
	}

	installments := make([]domain.Installment, 0, len(plan))
	for _, e := range plan {
		installments = append(installments, domain.Installment{
			ID:      uuid.New(),
			LoanID:  l.ID,
			Number:  e.Number,
			DueDate: e.DueDate,
			Amount:  e.Amount,
			Status:  domain.InstallmentStatusPending,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Originate: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.loans.Create(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("Originate: %w", err)
	}
	if err := s.installments.CreateBatch(ctx, tx, installments); err != nil {
		return nil, fmt.Errorf("Originate: %w", err)
	}

	_, err = s.ledger.Post(ctx, tx, cash.PostRequest{
		Type:        domain.EntryTypeExpense,
		Amount:      l.Principal,
		Currency:    l.Currency,
		Description: fmt.Sprintf("Loan (%s) to %s (ID: %s)", l.Currency, l.ClientName, l.ID),
		AgentEmail:  session.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("Originate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Originate: commit: %w", err)
	}

	log.Info("loan originated",
		"loan_id", l.ID,
		"client_id", l.ClientID,
		"agent", session.Email,
		"principal", l.Principal,
		"currency", l.Currency,
		"total_due", l.TotalDue,
		"installments", count,
		"frequency", l.Frequency,
	)

	return &LoanDetail{Loan: *l, Installments: installments}, nil
}

func (s *Service) resolveTerms(ctx context.Context, req OriginateRequest) (decimal.Decimal, int, error) {
	if req.RatePct != nil && req.InstallmentCount != nil {
		return *req.RatePct, *req.InstallmentCount, nil
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return decimal.Zero, 0, err
	}

	ratePct := cfg.DefaultRatePct
	if req.RatePct != nil {
		ratePct = *req.RatePct
	}
	count := cfg.DefaultInstallments
	if req.InstallmentCount != nil {
		count = *req.InstallmentCount
	}
	return ratePct, count, nil
}

// checkAgentLimit enforces the per-currency monthly disbursement cap for
// non-administrator agents: an unset limit blocks the currency entirely,
// and the current month's disbursed principal plus the new loan must stay
// within the cap.
func (s *Service) checkAgentLimit(ctx context.Context, agentEmail string, currency domain.Currency, principal decimal.Decimal) error {
	limit, err := s.limits.GetLimit(ctx, agentEmail, currency)
	if err != nil {
		return err
	}
	if limit.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("agent %s has no %s limit: %w", agentEmail, currency, domain.ErrNoAgentLimit)
	}

	used, err := s.loans.SumPrincipalSince(ctx, agentEmail, currency, startOfMonth(time.Now().UTC()))
	if err != nil {
		return err
	}
	if used.Add(principal).GreaterThan(limit) {
		return fmt.Errorf("agent %s: %s used %s of %s: %w",
			agentEmail, currency, used, limit, domain.ErrAgentLimitExceeded)
	}
	return nil
}
