package services

import (
	"fmt"

	"bilancio/internal/core"
)

// ResolveOccurrence computes the concrete date on which a rule falls due
// inside the target billing month, or reports that the rule has no
// occurrence there (a yearly rule outside its month).
//
// Every resolved date must round-trip: its billing month under the rule's
// payment mode has to equal the target month. A mismatch is an internal
// invariant violation, not a user error.
func ResolveOccurrence(rule core.RecurringRule, target core.MonthKey, closingDay int) (core.Date, bool, error) {
	if err := target.Validate(); err != nil {
		return core.Date{}, false, err
	}
	switch sched := rule.Schedule.(type) {
	case core.MonthlySchedule:
		date, err := resolveMonthly(rule, sched, target, closingDay)
		if err != nil {
			return core.Date{}, false, err
		}
		return date, true, nil
	case core.YearlySchedule:
		return resolveYearly(rule, sched, target, closingDay)
	default:
		return core.Date{}, false, core.NewValidationError("schedule", "missing")
	}
}

// resolveMonthly picks the rule's day inside the target month. For a
// credit-card rule whose day is on or after the closing day, the charge
// that bills into the target month happened the previous calendar month.
func resolveMonthly(rule core.RecurringRule, sched core.MonthlySchedule, target core.MonthKey, closingDay int) (core.Date, error) {
	actual := target
	if rule.Payment == core.PayCreditCard && sched.DayOfMonth >= closingDay {
		actual = target.AddMonths(-1)
	}
	date, err := core.MakeDate(actual.Year, actual.Month, sched.DayOfMonth)
	if err != nil {
		return core.Date{}, err
	}
	if err := verifyRoundTrip(rule, date, target, closingDay); err != nil {
		return core.Date{}, err
	}
	return date, nil
}

// resolveYearly determines which billing month the rule's anniversary
// lands in. A credit-card day on or after the closing day pushes it one
// month forward, wrapping December into January of the next year.
func resolveYearly(rule core.RecurringRule, sched core.YearlySchedule, target core.MonthKey, closingDay int) (core.Date, bool, error) {
	billingMonthNumber := sched.Month
	wrapped := false
	if rule.Payment == core.PayCreditCard && sched.DayOfMonth >= closingDay {
		billingMonthNumber++
		if billingMonthNumber > 12 {
			billingMonthNumber = 1
			wrapped = true
		}
	}
	if target.Month != billingMonthNumber {
		return core.Date{}, false, nil
	}
	year := target.Year
	if wrapped {
		// Billed in January of target year, charged in December before it.
		year--
	}
	date, err := core.MakeDate(year, sched.Month, sched.DayOfMonth)
	if err != nil {
		return core.Date{}, false, err
	}
	if err := verifyRoundTrip(rule, date, target, closingDay); err != nil {
		return core.Date{}, false, err
	}
	return date, true, nil
}

func verifyRoundTrip(rule core.RecurringRule, date core.Date, target core.MonthKey, closingDay int) error {
	billed, err := core.BillingMonth(date, rule.Payment, closingDay)
	if err != nil {
		return err
	}
	if billed != target {
		return &core.InvariantError{
			Op: "resolveOccurrence",
			Detail: fmt.Sprintf("rule %s: date %s bills into %s, expected %s",
				rule.ID, date, billed, target),
		}
	}
	return nil
}
