// Package schedule computes installment plans for loans: an equal split of
// the total amount due across N installments, with due dates advanced from
// the origination date by the payment frequency.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigesp/prestamos-api/internal/domain"
)

type Entry struct {
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
}

// Generate splits totalDue into count equal installments rounded to two
// decimals. The last installment absorbs the rounding remainder so the
// amounts always sum to exactly totalDue.
func Generate(totalDue decimal.Decimal, count int, freq domain.Frequency, start time.Time) ([]Entry, error) {
	if count <= 0 {
		return nil, fmt.Errorf("schedule.Generate: %w", domain.ErrInvalidInstallmentCount)
	}
	if totalDue.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("schedule.Generate: %w", domain.ErrInvalidAmount)
	}
	if !freq.IsValid() {
		return nil, fmt.Errorf("schedule.Generate: %w", domain.ErrInvalidFrequency)
	}

	per := totalDue.Div(decimal.NewFromInt(int64(count))).Round(2)
	last := totalDue.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))

	entries := make([]Entry, 0, count)
	due := start
	for i := 1; i <= count; i++ {
		due = NextDueDate(due, freq)
		amount := per
		if i == count {
			amount = last
		}
		entries = append(entries, Entry{Number: i, DueDate: due, Amount: amount})
	}
	return entries, nil
}

// NextDueDate advances one period from the given date. Monthly uses native
// calendar-month increment semantics with no end-of-month clamping.
func NextDueDate(from time.Time, freq domain.Frequency) time.Time {
	switch freq {
	case domain.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case domain.FrequencyBiweekly:
		return from.AddDate(0, 0, 15)
	default:
		return from.AddDate(0, 1, 0)
	}
}
