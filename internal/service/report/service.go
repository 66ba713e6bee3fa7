// Package report builds the read-only management views: the delinquency
// report, the monthly collection projection, per-agent credit standing,
// and the dashboard summary.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
	"github.com/sigesp/prestamos-api/internal/repository"
)

type installmentReader interface {
	ListOverdue(ctx context.Context, before time.Time) ([]repository.OverdueRow, error)
	SumPendingDueBetween(ctx context.Context, agentEmail string, from, to time.Time) (map[domain.Currency]decimal.Decimal, error)
}

type loanReader interface {
	CountByStatus(ctx context.Context, status domain.LoanStatus) (int, error)
	SumPrincipalSinceByCurrency(ctx context.Context, agentEmail string, since time.Time) (map[domain.Currency]decimal.Decimal, error)
}

type clientCounter interface {
	Count(ctx context.Context) (int, error)
}

type limitLister interface {
	ListLimits(ctx context.Context, agentEmail string) ([]domain.AgentLimit, error)
}

type balanceReader interface {
	ListBalances(ctx context.Context) ([]domain.CurrencyBalance, error)
}

type Service struct {
	installments installmentReader
	loans        loanReader
	clients      clientCounter
	limits       limitLister
	balances     balanceReader
}

func NewService(
	installments installmentReader,
	loans loanReader,
	clients clientCounter,
	limits limitLister,
	balances balanceReader,
) *Service {
	return &Service{
		installments: installments,
		loans:        loans,
		clients:      clients,
		limits:       limits,
		balances:     balances,
	}
}

// OverdueItem is one delinquent installment with how many days it has
// been late.
type OverdueItem struct {
	LoanID            uuid.UUID
	ClientID          string
	ClientName        string
	InstallmentNumber int
	DueDate           time.Time
	Amount            decimal.Decimal
	Currency          domain.Currency
	DaysLate          int
}

// DelinquencyReport lists overdue installments worst first with per-
// currency totals.
type DelinquencyReport struct {
	GeneratedAt time.Time
	Items       []OverdueItem
	Totals      []CurrencyTotal
}

type CurrencyTotal struct {
	Currency domain.Currency
	Amount   decimal.Decimal
	Count    int
}

// Delinquency reports every pending installment of an active loan whose
// due date fell before the start of today, most days late first. An
// installment due earlier today is not yet late.
func (s *Service) Delinquency(ctx context.Context, now time.Time) (*DelinquencyReport, error) {
	today := startOfDay(now)

	rows, err := s.installments.ListOverdue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("Delinquency: %w", err)
	}

	items := make([]OverdueItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, OverdueItem{
			LoanID:            r.LoanID,
			ClientID:          r.ClientID,
			ClientName:        r.ClientName,
			InstallmentNumber: r.Installment.Number,
			DueDate:           r.Installment.DueDate,
			Amount:            r.Installment.Amount,
			Currency:          r.Currency,
			DaysLate:          daysLate(r.Installment.DueDate, now),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysLate > items[j].DaysLate
	})

	return &DelinquencyReport{
		GeneratedAt: now,
		Items:       items,
		Totals:      totalsByCurrency(items),
	}, nil
}

// MonthProjection is the pending installment volume due in the current
// calendar month, per currency. An empty agent email covers the whole
// office.
type MonthProjection struct {
	From       time.Time
	To         time.Time
	AgentEmail string
	Totals     []CurrencyTotal
}

func (s *Service) ProjectMonth(ctx context.Context, agentEmail string, now time.Time) (*MonthProjection, error) {
	from := startOfMonth(now)
	to := from.AddDate(0, 1, 0)

	sums, err := s.installments.SumPendingDueBetween(ctx, agentEmail, from, to)
	if err != nil {
		return nil, fmt.Errorf("ProjectMonth: %w", err)
	}

	return &MonthProjection{
		From:       from,
		To:         to,
		AgentEmail: agentEmail,
		Totals:     sortedTotals(sums),
	}, nil
}

// AgentStanding is one agent's credit position in one currency for the
// current month.
type AgentStanding struct {
	Currency  domain.Currency
	Limit     decimal.Decimal
	Used      decimal.Decimal
	Available decimal.Decimal
	ToCollect decimal.Decimal
}

// AgentReport summarizes an agent's month: how much of each currency
// limit is consumed and what collections are still expected. Currencies
// appear if the agent has a limit, disbursed this month, or has pending
// collections this month.
func (s *Service) AgentReport(ctx context.Context, agentEmail string, now time.Time) ([]AgentStanding, error) {
	from := startOfMonth(now)
	to := from.AddDate(0, 1, 0)

	limits, err := s.limits.ListLimits(ctx, agentEmail)
	if err != nil {
		return nil, fmt.Errorf("AgentReport: %w", err)
	}
	used, err := s.loans.SumPrincipalSinceByCurrency(ctx, agentEmail, from)
	if err != nil {
		return nil, fmt.Errorf("AgentReport: %w", err)
	}
	toCollect, err := s.installments.SumPendingDueBetween(ctx, agentEmail, from, to)
	if err != nil {
		return nil, fmt.Errorf("AgentReport: %w", err)
	}

	byCurrency := make(map[domain.Currency]*AgentStanding)
	ensure := func(c domain.Currency) *AgentStanding {
		st, ok := byCurrency[c]
		if !ok {
			st = &AgentStanding{Currency: c}
			byCurrency[c] = st
		}
		return st
	}

	for _, l := range limits {
		ensure(l.Currency).Limit = l.MonthlyLimit
	}
	for c, amount := range used {
		ensure(c).Used = amount
	}
	for c, amount := range toCollect {
		ensure(c).ToCollect = amount
	}

	standings := make([]AgentStanding, 0, len(byCurrency))
	for _, st := range byCurrency {
		st.Available = st.Limit.Sub(st.Used)
		if st.Available.IsNegative() {
			st.Available = decimal.Zero
		}
		standings = append(standings, *st)
	}
	sort.Slice(standings, func(i, j int) bool {
		return standings[i].Currency < standings[j].Currency
	})
	return standings, nil
}

// Dashboard is the landing-page summary.
type Dashboard struct {
	ClientCount  int
	ActiveLoans  int
	OverdueCount int
	Balances     []domain.CurrencyBalance
}

func (s *Service) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	clientCount, err := s.clients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}
	activeLoans, err := s.loans.CountByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}
	overdue, err := s.installments.ListOverdue(ctx, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}
	balances, err := s.balances.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: %w", err)
	}

	return &Dashboard{
		ClientCount:  clientCount,
		ActiveLoans:  activeLoans,
		OverdueCount: len(overdue),
		Balances:     balances,
	}, nil
}

// daysLate counts days of lateness at the moment of reporting, rounding
// any started day up: an installment due yesterday at midnight is two
// days late by mid-morning.
func daysLate(dueDate, now time.Time) int {
	diff := now.Sub(dueDate)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

func totalsByCurrency(items []OverdueItem) []CurrencyTotal {
	sums := make(map[domain.Currency]*CurrencyTotal)
	for _, it := range items {
		t, ok := sums[it.Currency]
		if !ok {
			t = &CurrencyTotal{Currency: it.Currency}
			sums[it.Currency] = t
		}
		t.Amount = t.Amount.Add(it.Amount)
		t.Count++
	}

	totals := make([]CurrencyTotal, 0, len(sums))
	for _, t := range sums {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Currency < totals[j].Currency
	})
	return totals
}

func sortedTotals(sums map[domain.Currency]decimal.Decimal) []CurrencyTotal {
	totals := make([]CurrencyTotal, 0, len(sums))
	for c, amount := range sums {
		totals = append(totals, CurrencyTotal{Currency: c, Amount: amount})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Currency < totals[j].Currency
	})
	return totals
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
