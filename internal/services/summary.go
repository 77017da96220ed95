package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

// MonthlySummary aggregates one month. Persisted entries are split into
// confirmed and projected totals; on top of that, recurring rules are
// resolved ephemerally (never written) and added to the projected totals
// unless an equally-shaped confirmed recurring entry already exists.
func (l *Ledger) MonthlySummary(ctx context.Context, month core.MonthKey) (core.MonthlySummary, error) {
	var zero core.MonthlySummary
	if err := month.Validate(); err != nil {
		return zero, err
	}

	// Promote salary entries that became due before aggregating.
	if _, err := l.ConfirmDueSalaries(ctx, month); err != nil {
		return zero, err
	}

	if l.summaries != nil {
		if cached, ok := l.summaries.Get(month.String()); ok {
			return cached, nil
		}
	}

	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return zero, err
	}

	var totals core.SummaryTotals
	confirmedRecurring := make(map[string]struct{})
	for _, tx := range doc.Transactions {
		switch tx.Status {
		case core.StatusConfirmed:
			totals.Confirmed = addToTotals(totals.Confirmed, tx)
			if tx.Source == core.SourceRecurring {
				confirmedRecurring[tx.MatchKey()] = struct{}{}
			}
		case core.StatusProjected:
			totals.Projected = addToTotals(totals.Projected, tx)
		}
	}

	billing, err := l.billingConfig(ctx)
	if err != nil {
		return zero, err
	}
	rules, err := l.recurringRules(ctx)
	if err != nil {
		return zero, err
	}
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		date, ok, err := ResolveOccurrence(rule, month, billing.ClosingDay)
		if err != nil {
			return zero, fmt.Errorf("resolve rule %s: %w", rule.ID, err)
		}
		if !ok {
			continue
		}
		projection := core.Transaction{
			Date:        date,
			Amount:      rule.Amount,
			Direction:   rule.Direction,
			CategoryID:  rule.CategoryID,
			Description: rule.Name,
		}
		if _, confirmed := confirmedRecurring[projection.MatchKey()]; confirmed {
			// Already recorded in the ledger, do not count twice.
			continue
		}
		totals.Projected = addToTotals(totals.Projected, projection)
	}

	summary := core.MonthlySummary{
		Month:    month,
		Totals:   totals,
		Balances: totals.Balances(),
	}
	if l.summaries != nil {
		l.summaries.Set(month.String(), summary)
	}
	return summary, nil
}

// AnnualSummary sums the year's twelve monthly summaries field-wise and
// recomputes the balances from the summed totals. Months without data
// contribute zero.
func (l *Ledger) AnnualSummary(ctx context.Context, year int) (core.AnnualSummary, error) {
	var zero core.AnnualSummary
	if year < 1 {
		return zero, core.NewValidationError("year", fmt.Sprintf("%d out of range", year))
	}

	var totals core.SummaryTotals
	for month := 1; month <= 12; month++ {
		monthly, err := l.MonthlySummary(ctx, core.MonthKey{Year: year, Month: month})
		if err != nil {
			return zero, err
		}
		totals = totals.Add(monthly.Totals)
	}
	return core.AnnualSummary{
		Year:     year,
		Totals:   totals,
		Balances: totals.Balances(),
	}, nil
}

func addToTotals(t core.DirectionTotals, tx core.Transaction) core.DirectionTotals {
	switch tx.Direction {
	case core.Income:
		t.Income = t.Income.Add(tx.Amount)
	case core.Expense:
		t.Expense = t.Expense.Add(tx.Amount)
	}
	return t
}
