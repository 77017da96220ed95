package core

// DirectionTotals splits an aggregate by movement direction.
type DirectionTotals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

func (t DirectionTotals) add(other DirectionTotals) DirectionTotals {
	return DirectionTotals{
		Income:  t.Income.Add(other.Income),
		Expense: t.Expense.Add(other.Expense),
	}
}

// SummaryTotals separates realized amounts from forecasts.
type SummaryTotals struct {
	Confirmed DirectionTotals `json:"confirmed"`
	Projected DirectionTotals `json:"projected"`
}

// Add returns the field-wise sum of two totals.
func (t SummaryTotals) Add(other SummaryTotals) SummaryTotals {
	return SummaryTotals{
		Confirmed: t.Confirmed.add(other.Confirmed),
		Projected: t.Projected.add(other.Projected),
	}
}

// SummaryBalances are income minus expense figures. Confirmed covers only
// realized entries; Projected includes both realized and forecast ones.
type SummaryBalances struct {
	Confirmed Money `json:"confirmed"`
	Projected Money `json:"projected"`
}

// Balances derives both balances from the totals.
func (t SummaryTotals) Balances() SummaryBalances {
	confirmed := t.Confirmed.Income.Sub(t.Confirmed.Expense)
	all := t.Confirmed.add(t.Projected)
	return SummaryBalances{
		Confirmed: confirmed,
		Projected: all.Income.Sub(all.Expense),
	}
}

// MonthlySummary aggregates one month: persisted entries plus ephemeral
// recurring projections that were not already confirmed.
type MonthlySummary struct {
	Month    MonthKey        `json:"month"`
	Totals   SummaryTotals   `json:"totals"`
	Balances SummaryBalances `json:"balances"`
}

// AnnualSummary is the field-wise sum of a year's monthly summaries.
type AnnualSummary struct {
	Year     int             `json:"year"`
	Totals   SummaryTotals   `json:"totals"`
	Balances SummaryBalances `json:"balances"`
}
