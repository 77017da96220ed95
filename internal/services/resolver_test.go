package services

import (
	"errors"
	"testing"

	"bilancio/internal/core"
)

func TestResolveOccurrence_Monthly(t *testing.T) {
	tests := []struct {
		name       string
		day        int
		mode       core.PaymentMode
		closingDay int
		target     string
		want       string
	}{
		{
			name: "direct lands in target month",
			day:  5, mode: core.PayDirect, closingDay: 10,
			target: "2025-03", want: "2025-03-05",
		},
		{
			name: "credit card before closing stays in target month",
			day:  9, mode: core.PayCreditCard, closingDay: 10,
			target: "2025-03", want: "2025-03-09",
		},
		{
			name: "credit card on closing day shifts back a month",
			day:  10, mode: core.PayCreditCard, closingDay: 10,
			target: "2025-03", want: "2025-02-10",
		},
		{
			name: "credit card after closing shifts back a month",
			day:  15, mode: core.PayCreditCard, closingDay: 10,
			target: "2025-02", want: "2025-01-15",
		},
		{
			name: "credit card january target charges in december",
			day:  20, mode: core.PayCreditCard, closingDay: 10,
			target: "2026-01", want: "2025-12-20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := monthlyRule("r1", tt.day, tt.mode, 1000)
			date, ok, err := ResolveOccurrence(rule, mustMonth(t, tt.target), tt.closingDay)
			if err != nil {
				t.Fatalf("ResolveOccurrence() error: %v", err)
			}
			if !ok {
				t.Fatal("monthly rule should always have an occurrence")
			}
			if date.String() != tt.want {
				t.Errorf("ResolveOccurrence() = %s, want %s", date, tt.want)
			}
		})
	}
}

func TestResolveOccurrence_MonthlyNonexistentDay(t *testing.T) {
	// Day 31 charged on credit card for a March statement falls on
	// February 31st, which does not exist. No clamping.
	rule := monthlyRule("r1", 31, core.PayCreditCard, 1000)
	_, _, err := ResolveOccurrence(rule, mustMonth(t, "2025-03"), 10)
	if !core.IsValidation(err) {
		t.Errorf("ResolveOccurrence() = %v, want validation error", err)
	}
}

func TestResolveOccurrence_Yearly(t *testing.T) {
	rule := core.RecurringRule{
		ID:         "insurance",
		Name:       "Car insurance",
		Direction:  core.Expense,
		Amount:     core.Money{Cents: 42000},
		CategoryID: "car",
		Schedule:   core.YearlySchedule{DayOfMonth: 20, Month: 12},
		Payment:    core.PayCreditCard,
		IsActive:   true,
	}

	// Day 20 is past the closing day 15, so the December charge bills in
	// January of the following year.
	date, ok, err := ResolveOccurrence(rule, mustMonth(t, "2026-01"), 15)
	if err != nil {
		t.Fatalf("ResolveOccurrence() error: %v", err)
	}
	if !ok {
		t.Fatal("expected an occurrence in the wrapped billing month")
	}
	if date.String() != "2025-12-20" {
		t.Errorf("ResolveOccurrence() = %s, want 2025-12-20", date)
	}

	// The anniversary month itself carries no occurrence once wrapped.
	_, ok, err = ResolveOccurrence(rule, mustMonth(t, "2025-12"), 15)
	if err != nil {
		t.Fatalf("ResolveOccurrence() error: %v", err)
	}
	if ok {
		t.Error("2025-12 should have no occurrence for a wrapped yearly rule")
	}
}

func TestResolveOccurrence_YearlyDirect(t *testing.T) {
	rule := core.RecurringRule{
		ID:         "dues",
		Name:       "Membership dues",
		Direction:  core.Expense,
		Amount:     core.Money{Cents: 9900},
		CategoryID: "misc",
		Schedule:   core.YearlySchedule{DayOfMonth: 10, Month: 6},
		Payment:    core.PayDirect,
		IsActive:   true,
	}

	date, ok, err := ResolveOccurrence(rule, mustMonth(t, "2025-06"), core.DefaultClosingDay)
	if err != nil {
		t.Fatalf("ResolveOccurrence() error: %v", err)
	}
	if !ok || date.String() != "2025-06-10" {
		t.Errorf("ResolveOccurrence() = %s, ok=%v, want 2025-06-10", date, ok)
	}

	_, ok, err = ResolveOccurrence(rule, mustMonth(t, "2025-07"), core.DefaultClosingDay)
	if err != nil {
		t.Fatalf("ResolveOccurrence() error: %v", err)
	}
	if ok {
		t.Error("yearly rule should not occur outside its billing month")
	}
}

func TestResolveOccurrence_MissingSchedule(t *testing.T) {
	rule := monthlyRule("r1", 5, core.PayDirect, 1000)
	rule.Schedule = nil
	_, _, err := ResolveOccurrence(rule, mustMonth(t, "2025-03"), 10)
	if !core.IsValidation(err) {
		t.Errorf("ResolveOccurrence() = %v, want validation error", err)
	}
}

func TestResolveOccurrence_InvalidTarget(t *testing.T) {
	rule := monthlyRule("r1", 5, core.PayDirect, 1000)
	_, _, err := ResolveOccurrence(rule, core.MonthKey{Year: 2025, Month: 13}, 10)
	if err == nil {
		t.Error("invalid target month should fail")
	}
	var invariant *core.InvariantError
	if errors.As(err, &invariant) {
		t.Errorf("invalid input should not surface as an invariant error: %v", err)
	}
}
