package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/store"
)

// recurringState records the last month the generator ran for. The
// generator call itself is not idempotent, so the worker refuses to run
// it twice for the same month.
type recurringState struct {
	LastGeneratedMonth string `json:"lastGeneratedMonth"`
}

// RecurringWorker materializes recurring rules and salary occurrences
// for the current month on a schedule.
type RecurringWorker struct {
	ledger *services.Ledger
	store  store.Store
	alloc  services.IdAllocator
}

func NewRecurringWorker(ledger *services.Ledger, st store.Store) *RecurringWorker {
	return &RecurringWorker{
		ledger: ledger,
		store:  st,
		alloc:  services.UUIDAllocator{},
	}
}

// ProcessMonth runs one maintenance pass for the month containing now:
// generate recurring occurrences (once per month), materialize salary
// projections and confirm the ones that came due.
func (w *RecurringWorker) ProcessMonth(ctx context.Context, now time.Time) (int, error) {
	month := core.DateOf(now).MonthKeyOf()

	createdTotal := 0
	generated, err := w.generateOnce(ctx, month)
	if err != nil {
		return 0, err
	}
	createdTotal += generated

	salaries, err := w.ledger.EnsureSalaryForMonth(ctx, month, w.alloc)
	if err != nil {
		return createdTotal, fmt.Errorf("ensure salary: %w", err)
	}
	createdTotal += len(salaries)

	confirmed, err := w.ledger.ConfirmDueSalaries(ctx, month)
	if err != nil {
		return createdTotal, fmt.Errorf("confirm due salaries: %w", err)
	}
	if confirmed > 0 {
		slog.InfoContext(ctx, "Confirmed due salary entries", "month", month.String(), "confirmed", confirmed)
	}

	return createdTotal, nil
}

func (w *RecurringWorker) generateOnce(ctx context.Context, month core.MonthKey) (int, error) {
	var state recurringState
	if err := w.store.Get(ctx, store.KeyRecurringState, &state); err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("load recurring state: %w", err)
	}
	if state.LastGeneratedMonth == month.String() {
		slog.DebugContext(ctx, "Recurring occurrences already generated", "month", month.String())
		return 0, nil
	}

	created, err := w.ledger.GenerateRecurringForMonth(ctx, month, w.alloc)
	if err != nil {
		return 0, fmt.Errorf("generate recurring: %w", err)
	}

	state.LastGeneratedMonth = month.String()
	if err := w.store.Put(ctx, store.KeyRecurringState, state); err != nil {
		// Entries exist but the guard was not advanced; the next pass
		// would duplicate them, so surface this loudly.
		return len(created), fmt.Errorf("save recurring state: %w", err)
	}
	return len(created), nil
}
