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
)

type RefinanceRequest struct {
	RatePct          decimal.Decimal
	InstallmentCount int
	Frequency        domain.Frequency
}

// Refinance closes the loan's outstanding balance into a replacement loan
// with new terms. The old loan is marked refinanced with its balance
// zeroed and its pending installments retired; the new loan's principal is
// the old remaining balance. No cash moves, so nothing posts to the
// ledger.
func (s *Service) Refinance(ctx context.Context, session auth.Session, loanID uuid.UUID, req RefinanceRequest) (*LoanDetail, error) {
	log := logging.FromContext(ctx)

	if !req.Frequency.IsValid() {
		return nil, fmt.Errorf("Refinance: %w", domain.ErrInvalidFrequency)
	}
	if req.InstallmentCount <= 0 {
		return nil, fmt.Errorf("Refinance: %w", domain.ErrInvalidInstallmentCount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Refinance: begin tx: %w", err)
	}
	defer tx.Rollback()

	old, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}
	if old.Status != domain.LoanStatusActive {
		return nil, fmt.Errorf("Refinance: %w", domain.ErrLoanNotActive)
	}

	base := old.RemainingBalance
	if base.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("Refinance: nothing outstanding to refinance: %w", domain.ErrInvalidAmount)
	}

	if err := s.loans.CloseForRefinance(ctx, tx, old.ID, "debt transferred to new loan"); err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}
	if err := s.installments.MarkPendingRefinanced(ctx, tx, old.ID); err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}

	now := time.Now().UTC()
	newTotal := base.Mul(percentFactor(req.RatePct)).Round(2)

	plan, err := schedule.Generate(newTotal, req.InstallmentCount, req.Frequency, now)
	if err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}

	replacement := &domain.Loan{
		ID:               uuid.New(),
		ClientID:         old.ClientID,
		ClientName:       old.ClientName,
		AgentEmail:       old.AgentEmail,
		Principal:        base.Round(2),
		Currency:         old.Currency,
		InterestPct:      req.RatePct,
		TotalDue:         newTotal,
		InstallmentCount: req.InstallmentCount,
		Frequency:        req.Frequency,
		PaidCount:        0,
		RemainingBalance: newTotal,
		Status:           domain.LoanStatusActive,
		Note:             fmt.Sprintf("refinance of loan %s", old.ID),
		OriginatedAt:     now,
	}

	installments := make([]domain.Installment, 0, len(plan))
	for _, e := range plan {
		installments = append(installments, domain.Installment{
			ID:      uuid.New(),
			LoanID:  replacement.ID,
			Number:  e.Number,
			DueDate: e.DueDate,
			Amount:  e.Amount,
			Status:  domain.InstallmentStatusPending,
		})
	}

	if err := s.loans.Create(ctx, tx, replacement); err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}
	if err := s.installments.CreateBatch(ctx, tx, installments); err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Refinance: commit: %w", err)
	}

	log.Info("loan refinanced",
		"old_loan_id", old.ID,
		"new_loan_id", replacement.ID,
		"base", base,
		"new_total", newTotal,
		"agent", session.Email,
	)

	return &LoanDetail{Loan: *replacement, Installments: installments}, nil
}
