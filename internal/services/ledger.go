// Package services implements the projection and reconciliation engine on
// top of the document store: recurring occurrence resolution, salary
// projection, installment planning and cascades, and summary aggregation.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/store"
)

// Sync operations published after ledger writes. The worker mirrors them
// to the configured spreadsheet.
const (
	SyncOpCreate = "create"
	SyncOpUpdate = "update"
	SyncOpDelete = "delete"
)

// SyncPublisher receives a lightweight message for every transaction
// write so a downstream worker can mirror the change. Implemented by
// amqp.Client; nil disables publishing.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, op string, month core.MonthKey, txID string) error
}

// Ledger is the engine facade. All mutating operations are serialized by
// a single mutex: the store has no compare-and-swap, so a lost update is
// only prevented by having one writer at a time.
type Ledger struct {
	mu        sync.Mutex
	store     store.Store
	publisher SyncPublisher
	summaries cache.Cache[core.MonthlySummary]
	now       func() time.Time
}

type Option func(*Ledger)

// WithPublisher attaches a sync publisher. Publish failures are logged,
// never propagated: the ledger write already succeeded.
func WithPublisher(p SyncPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithSummaryCache caches monthly summaries, invalidated on every write
// that touches the month.
func WithSummaryCache(c cache.Cache[core.MonthlySummary]) Option {
	return func(l *Ledger) { l.summaries = c }
}

// WithClock overrides the time source, used by tests and salary
// confirmation.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{store: s, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// loadMonth reads a month document; an absent key yields an empty one.
func (l *Ledger) loadMonth(ctx context.Context, month core.MonthKey) (core.MonthDocument, error) {
	var doc core.MonthDocument
	err := l.store.Get(ctx, store.MonthDocKey(month), &doc)
	if errors.Is(err, store.ErrNotFound) {
		return core.MonthDocument{}, nil
	}
	if err != nil {
		return core.MonthDocument{}, fmt.Errorf("load month %s: %w", month, err)
	}
	return doc, nil
}

func (l *Ledger) saveMonth(ctx context.Context, month core.MonthKey, doc core.MonthDocument) error {
	if err := l.store.Put(ctx, store.MonthDocKey(month), doc); err != nil {
		return fmt.Errorf("save month %s: %w", month, err)
	}
	l.invalidateSummary(month)
	return nil
}

// billingConfig returns the stored closing-day config, falling back to
// DefaultClosingDay when none has been set.
func (l *Ledger) billingConfig(ctx context.Context) (core.BillingCycleConfig, error) {
	var cfg core.BillingCycleConfig
	err := l.store.Get(ctx, store.KeyBillingConfig, &cfg)
	if errors.Is(err, store.ErrNotFound) {
		return core.BillingCycleConfig{ClosingDay: core.DefaultClosingDay}, nil
	}
	if err != nil {
		return core.BillingCycleConfig{}, fmt.Errorf("load billing config: %w", err)
	}
	return cfg, nil
}

func (l *Ledger) recurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	var rules []core.RecurringRule
	err := l.store.Get(ctx, store.KeyRecurringRules, &rules)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load recurring rules: %w", err)
	}
	return rules, nil
}

// salaryConfig returns (config, configured, error).
func (l *Ledger) salaryConfig(ctx context.Context) (core.SalaryConfig, bool, error) {
	var cfg core.SalaryConfig
	err := l.store.Get(ctx, store.KeySalaryConfig, &cfg)
	if errors.Is(err, store.ErrNotFound) {
		return core.SalaryConfig{}, false, nil
	}
	if err != nil {
		return core.SalaryConfig{}, false, fmt.Errorf("load salary config: %w", err)
	}
	return cfg, true, nil
}

func (l *Ledger) installmentRegistry(ctx context.Context) (core.InstallmentRegistry, error) {
	registry := core.InstallmentRegistry{}
	err := l.store.Get(ctx, store.KeyInstallments, &registry)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load installment registry: %w", err)
	}
	return registry, nil
}

func (l *Ledger) publish(ctx context.Context, op string, month core.MonthKey, txID string) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishTransactionSync(ctx, op, month, txID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"op", op, "month", month.String(), "transaction_id", txID, "error", err)
	}
}

func (l *Ledger) invalidateSummary(month core.MonthKey) {
	if l.summaries != nil {
		l.summaries.Delete(month.String())
	}
}
