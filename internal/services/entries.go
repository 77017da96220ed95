package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// GetMonth returns the month document; a month that was never written
// comes back empty.
func (l *Ledger) GetMonth(ctx context.Context, month core.MonthKey) (core.MonthDocument, error) {
	if err := month.Validate(); err != nil {
		return core.MonthDocument{}, err
	}
	return l.loadMonth(ctx, month)
}

// SetMonthData replaces the month's transaction list wholesale. Each
// transaction has to be valid and ids unique within the document.
func (l *Ledger) SetMonthData(ctx context.Context, month core.MonthKey, txs []core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := month.Validate(); err != nil {
		return err
	}
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
	}
	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return err
	}
	doc.Transactions = txs
	if err := doc.ValidateTransactionIDs(); err != nil {
		return err
	}
	return l.saveMonth(ctx, month, doc)
}

// SetCalendar replaces the month's calendar section.
func (l *Ledger) SetCalendar(ctx context.Context, month core.MonthKey, entries []core.CalendarEntry) error {
	return l.setSection(ctx, month, func(doc *core.MonthDocument) error {
		for _, e := range entries {
			if err := e.Date.Validate(); err != nil {
				return err
			}
		}
		doc.Calendar = entries
		return nil
	})
}

// SetSavings replaces the month's savings section.
func (l *Ledger) SetSavings(ctx context.Context, month core.MonthKey, entries []core.SavingsEntry) error {
	return l.setSection(ctx, month, func(doc *core.MonthDocument) error {
		for _, e := range entries {
			if err := e.Amount.Validate(); err != nil {
				return err
			}
		}
		doc.Savings = entries
		return nil
	})
}

// SetLoans replaces the month's loans section.
func (l *Ledger) SetLoans(ctx context.Context, month core.MonthKey, loans []core.Loan) error {
	return l.setSection(ctx, month, func(doc *core.MonthDocument) error {
		for _, loan := range loans {
			if err := loan.Amount.Validate(); err != nil {
				return err
			}
			if err := loan.Direction.Validate(); err != nil {
				return err
			}
		}
		doc.Loans = loans
		return nil
	})
}

func (l *Ledger) setSection(ctx context.Context, month core.MonthKey, apply func(*core.MonthDocument) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := month.Validate(); err != nil {
		return err
	}
	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return err
	}
	if err := apply(&doc); err != nil {
		return err
	}
	return l.saveMonth(ctx, month, doc)
}

// AddEntry appends a transaction to the month. An empty source defaults
// to manual. Installment parcels are created only through
// CreateInstallmentPlan.
func (l *Ledger) AddEntry(ctx context.Context, month core.MonthKey, tx core.Transaction) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero core.Transaction
	if err := month.Validate(); err != nil {
		return zero, err
	}
	if tx.Source == "" {
		tx.Source = core.SourceManual
	}
	if tx.Installment != nil {
		return zero, core.NewValidationError("installment", "use createInstallmentPlan for installment purchases")
	}
	if err := tx.Validate(); err != nil {
		return zero, err
	}

	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return zero, err
	}
	if doc.HasTransaction(tx.ID) {
		return zero, &core.ConflictError{Resource: "transaction", ID: tx.ID, Reason: "id already exists in month " + month.String()}
	}
	doc.Transactions = append(doc.Transactions, tx)
	if err := l.saveMonth(ctx, month, doc); err != nil {
		return zero, err
	}
	l.publish(ctx, SyncOpCreate, month, tx.ID)
	slog.InfoContext(ctx, "Added ledger entry",
		"month", month.String(), "transaction_id", tx.ID, "amount_cents", tx.Amount.Cents)
	return tx, nil
}

// UpdateEntry replaces a transaction by id. Installment parcels are
// edited through UpdateInstallmentParcel, which enforces the parcel
// invariants.
func (l *Ledger) UpdateEntry(ctx context.Context, month core.MonthKey, tx core.Transaction) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero core.Transaction
	if err := month.Validate(); err != nil {
		return zero, err
	}
	if err := tx.Validate(); err != nil {
		return zero, err
	}

	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return zero, err
	}
	i, ok := doc.FindTransaction(tx.ID)
	if !ok {
		return zero, &core.NotFoundError{Resource: "transaction", ID: tx.ID}
	}
	if doc.Transactions[i].IsParcel() {
		return zero, core.NewValidationError("id", "installment parcels are updated through updateInstallmentParcel")
	}
	doc.Transactions[i] = tx
	if err := l.saveMonth(ctx, month, doc); err != nil {
		return zero, err
	}
	l.publish(ctx, SyncOpUpdate, month, tx.ID)
	return tx, nil
}

// DeleteEntry removes a transaction by id.
func (l *Ledger) DeleteEntry(ctx context.Context, month core.MonthKey, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return core.NewValidationError("id", "empty")
	}

	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return err
	}
	if !doc.RemoveTransaction(id) {
		return &core.NotFoundError{Resource: "transaction", ID: id}
	}
	if err := l.saveMonth(ctx, month, doc); err != nil {
		return err
	}
	l.publish(ctx, SyncOpDelete, month, id)
	return nil
}

// RecurringRules lists the stored rules.
func (l *Ledger) RecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	return l.recurringRules(ctx)
}

// AddRecurring stores a new rule; duplicate ids conflict.
func (l *Ledger) AddRecurring(ctx context.Context, rule core.RecurringRule) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := rule.Validate(); err != nil {
		return err
	}
	rules, err := l.recurringRules(ctx)
	if err != nil {
		return err
	}
	for _, existing := range rules {
		if existing.ID == rule.ID {
			return &core.ConflictError{Resource: "rule", ID: rule.ID, Reason: "rule already exists"}
		}
	}
	rules = append(rules, rule)
	return l.saveRecurringRules(ctx, rules)
}

// UpdateRecurring replaces a rule by id.
func (l *Ledger) UpdateRecurring(ctx context.Context, rule core.RecurringRule) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := rule.Validate(); err != nil {
		return err
	}
	rules, err := l.recurringRules(ctx)
	if err != nil {
		return err
	}
	for i, existing := range rules {
		if existing.ID == rule.ID {
			rules[i] = rule
			return l.saveRecurringRules(ctx, rules)
		}
	}
	return &core.NotFoundError{Resource: "rule", ID: rule.ID}
}

// DeleteRecurring removes a rule by id.
func (l *Ledger) DeleteRecurring(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rules, err := l.recurringRules(ctx)
	if err != nil {
		return err
	}
	for i, existing := range rules {
		if existing.ID == id {
			rules = append(rules[:i], rules[i+1:]...)
			return l.saveRecurringRules(ctx, rules)
		}
	}
	return &core.NotFoundError{Resource: "rule", ID: id}
}

func (l *Ledger) saveRecurringRules(ctx context.Context, rules []core.RecurringRule) error {
	if err := l.store.Put(ctx, store.KeyRecurringRules, rules); err != nil {
		return fmt.Errorf("save recurring rules: %w", err)
	}
	l.dropAllSummaries()
	return nil
}

// BillingConfig returns the effective billing-cycle configuration.
func (l *Ledger) BillingConfig(ctx context.Context) (core.BillingCycleConfig, error) {
	return l.billingConfig(ctx)
}

// SetClosingDay stores the statement closing day.
func (l *Ledger) SetClosingDay(ctx context.Context, day int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := core.BillingCycleConfig{ClosingDay: day}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := l.store.Put(ctx, store.KeyBillingConfig, cfg); err != nil {
		return fmt.Errorf("save billing config: %w", err)
	}
	l.dropAllSummaries()
	return nil
}

// SalaryConfig returns the stored salary configuration, if any.
func (l *Ledger) SalaryConfig(ctx context.Context) (core.SalaryConfig, bool, error) {
	return l.salaryConfig(ctx)
}

// SetSalaryConfig stores the salary configuration.
func (l *Ledger) SetSalaryConfig(ctx context.Context, cfg core.SalaryConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := l.store.Put(ctx, store.KeySalaryConfig, cfg); err != nil {
		return fmt.Errorf("save salary config: %w", err)
	}
	return nil
}

// dropAllSummaries clears the summary cache after a change that affects
// every month (rules, closing day).
func (l *Ledger) dropAllSummaries() {
	if l.summaries != nil {
		l.summaries.Clear()
	}
}
