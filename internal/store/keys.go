package store

import (
	"strings"

	"bilancio/internal/core"
)

// Fixed document keys. Month ledgers live under MonthPrefix with their
// YYYY-MM key appended.
const (
	MonthPrefix       = "months/"
	KeyInstallments   = "installments"
	KeyBillingConfig  = "config/billing"
	KeySalaryConfig   = "config/salary"
	KeyRecurringRules = "config/recurring"
	KeyRecurringState = "state/recurring"
)

// MonthDocKey builds the store key for a month ledger.
func MonthDocKey(month core.MonthKey) string {
	return MonthPrefix + month.String()
}

// MonthFromDocKey parses a month ledger key back into its MonthKey.
func MonthFromDocKey(key string) (core.MonthKey, bool) {
	rest, ok := strings.CutPrefix(key, MonthPrefix)
	if !ok {
		return core.MonthKey{}, false
	}
	month, err := core.ParseMonthKey(rest)
	if err != nil {
		return core.MonthKey{}, false
	}
	return month, true
}
