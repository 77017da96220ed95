package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store/memory"
)

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func mustMonth(t *testing.T, s string) core.MonthKey {
	t.Helper()
	m, err := core.ParseMonthKey(s)
	if err != nil {
		t.Fatalf("ParseMonthKey(%q): %v", s, err)
	}
	return m
}

// seqAllocator hands out ids from a fixed list, then fails.
type seqAllocator struct {
	ids  []string
	next int
}

func (a *seqAllocator) Allocate(context.Context, core.Date, core.MonthKey) (string, error) {
	if a.next >= len(a.ids) {
		return "", fmt.Errorf("allocator exhausted after %d ids", a.next)
	}
	id := a.ids[a.next]
	a.next++
	return id, nil
}

// capturePublisher records published sync messages.
type capturePublisher struct {
	mu       sync.Mutex
	messages []string
}

func (p *capturePublisher) PublishTransactionSync(_ context.Context, op string, month core.MonthKey, txID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, fmt.Sprintf("%s %s %s", op, month, txID))
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func newTestLedger(t *testing.T, opts ...Option) (*Ledger, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewLedger(st, opts...), st
}

func fixedClock(t *testing.T, s string) func() time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse clock %q: %v", s, err)
	}
	return func() time.Time { return ts }
}

func monthlyRule(id string, day int, mode core.PaymentMode, cents int64) core.RecurringRule {
	return core.RecurringRule{
		ID:         id,
		Name:       "Rule " + id,
		Direction:  core.Expense,
		Amount:     core.Money{Cents: cents},
		CategoryID: "cat-" + id,
		Schedule:   core.MonthlySchedule{DayOfMonth: day},
		Payment:    mode,
		IsActive:   true,
	}
}
