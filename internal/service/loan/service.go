// Package loan implements the loan lifecycle: origination with per-agent
// credit limits, installment collection (single and flexible waterfall),
// refinancing, and explicit finalization. Every multi-record operation
// commits in a single database transaction.
package loan

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/service/cash"
)

type loanRepo interface {
	Create(ctx context.Context, tx *sql.Tx, l *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error)
	List(ctx context.Context) ([]domain.Loan, error)
	ApplyCollection(ctx context.Context, tx *sql.Tx, id uuid.UUID, amount decimal.Decimal, paidDelta int) error
	CloseForRefinance(ctx context.Context, tx *sql.Tx, id uuid.UUID, note string) error
	Finalize(ctx context.Context, id uuid.UUID) (bool, error)
	SumPrincipalSince(ctx context.Context, agentEmail string, currency domain.Currency, since time.Time) (decimal.Decimal, error)
}

type installmentRepo interface {
	CreateBatch(ctx context.Context, tx *sql.Tx, installments []domain.Installment) error
	GetByID(ctx context.Context, loanID, id uuid.UUID) (*domain.Installment, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error)
	ListPendingForUpdate(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) ([]domain.Installment, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, paidAt time.Time, note string) error
	ReduceAmount(ctx context.Context, tx *sql.Tx, id uuid.UUID, newAmount decimal.Decimal, note string) error
	MarkPendingRefinanced(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) error
}

type clientRepo interface {
	GetByID(ctx context.Context, nationalID string) (*domain.Client, error)
}

type limitReader interface {
	GetLimit(ctx context.Context, agentEmail string, currency domain.Currency) (decimal.Decimal, error)
}

type configReader interface {
	Get(ctx context.Context) (domain.Configuration, error)
}

type ledgerPoster interface {
	Post(ctx context.Context, tx *sql.Tx, req cash.PostRequest) (*domain.LedgerEntry, error)
}

type Service struct {
	loans        loanRepo
	installments installmentRepo
	clients      clientRepo
	limits       limitReader
	config       configReader
	ledger       ledgerPoster
	db           *sql.DB
}

func NewService(
	loans loanRepo,
	installments installmentRepo,
	clients clientRepo,
	limits limitReader,
	config configReader,
	ledger ledgerPoster,
	db *sql.DB,
) *Service {
	return &Service{
		loans:        loans,
		installments: installments,
		clients:      clients,
		limits:       limits,
		config:       config,
		ledger:       ledger,
		db:           db,
	}
}

// LoanDetail is a loan with its full installment plan, ordered by number.
type LoanDetail struct {
	Loan         domain.Loan
	Installments []domain.Installment
}

func (s *Service) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	loans, err := s.loans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLoans: %w", err)
	}
	return loans, nil
}

func (s *Service) GetLoan(ctx context.Context, id uuid.UUID) (*LoanDetail, error) {
	l, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetLoan: %w", err)
	}
	installments, err := s.installments.ListByLoan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetLoan: %w", err)
	}
	return &LoanDetail{Loan: *l, Installments: installments}, nil
}

// Finalize is the explicit active -> finalized transition, allowed only
// once the remaining balance reaches zero. It is never triggered
// automatically by collections.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	ok, err := s.loans.Finalize(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Finalize: %w", err)
	}
	if !ok {
		l, err := s.loans.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("Finalize: %w", err)
		}
		if l.Status != domain.LoanStatusActive {
			return nil, fmt.Errorf("Finalize: %w", domain.ErrLoanNotActive)
		}
		return nil, fmt.Errorf("Finalize: %w", domain.ErrBalanceNotSettled)
	}

	l, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Finalize: %w", err)
	}
	return l, nil
}

// currentClientName resolves the client's present display name so ledger
// descriptions reflect renames instead of the name cached on the loan.
func (s *Service) currentClientName(ctx context.Context, l *domain.Loan) string {
	c, err := s.clients.GetByID(ctx, l.ClientID)
	if err != nil {
		return l.ClientName
	}
	return c.FullName
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func percentFactor(ratePct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(ratePct.Div(decimal.NewFromInt(100)))
}
