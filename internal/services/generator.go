package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// GenerateRecurringForMonth materializes every active recurring rule that
// has an occurrence in the target month into the ledger as a confirmed
// entry. Ids come from the supplied allocator; an id that already exists
// in the month document, or was allocated earlier in the same call, is a
// fatal conflict.
//
// The call is not idempotent by itself: invoking it twice with a
// fresh-id allocator duplicates every occurrence. Callers that need
// once-per-month semantics track their own state (see the recurring
// worker) or supply a deterministic allocator.
func (l *Ledger) GenerateRecurringForMonth(ctx context.Context, month core.MonthKey, alloc IdAllocator) ([]core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := month.Validate(); err != nil {
		return nil, err
	}
	rules, err := l.recurringRules(ctx)
	if err != nil {
		return nil, err
	}
	billing, err := l.billingConfig(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	var created []core.Transaction
	pending := make(map[string]struct{})
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		date, ok, err := ResolveOccurrence(rule, month, billing.ClosingDay)
		if err != nil {
			return nil, fmt.Errorf("resolve rule %s: %w", rule.ID, err)
		}
		if !ok {
			continue
		}
		id, err := alloc.Allocate(ctx, date, month)
		if err != nil {
			return nil, fmt.Errorf("allocate id for rule %s: %w", rule.ID, err)
		}
		if _, dup := pending[id]; dup || doc.HasTransaction(id) {
			return nil, &core.ConflictError{Resource: "transaction", ID: id, Reason: "allocated id already exists in month " + month.String()}
		}
		pending[id] = struct{}{}

		tx := core.Transaction{
			ID:          id,
			Date:        date,
			Amount:      rule.Amount,
			Direction:   rule.Direction,
			CategoryID:  rule.CategoryID,
			Description: rule.Name,
			Status:      core.StatusConfirmed,
			Source:      core.SourceRecurring,
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("rule %s produced invalid transaction: %w", rule.ID, err)
		}
		doc.Transactions = append(doc.Transactions, tx)
		created = append(created, tx)
	}

	if len(created) == 0 {
		return nil, nil
	}
	if err := l.saveMonth(ctx, month, doc); err != nil {
		return nil, err
	}
	for _, tx := range created {
		l.publish(ctx, SyncOpCreate, month, tx.ID)
	}
	slog.InfoContext(ctx, "Generated recurring transactions",
		"month", month.String(), "created", len(created))
	return created, nil
}
