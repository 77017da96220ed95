package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// GenerateSalaryOccurrences projects the advance and payment entries for
// the target month. The returned transactions carry no id yet; ids are
// assigned at materialization. Fails when the configured advance leaves
// no payment amount.
func GenerateSalaryOccurrences(cfg core.SalaryConfig, target core.MonthKey) ([]core.Transaction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	if cfg.Advance.Enabled {
		date, err := core.MakeDate(target.Year, target.Month, cfg.Advance.Day)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Transaction{
			Date:        date,
			Amount:      cfg.AdvanceAmount(),
			Direction:   core.Income,
			CategoryID:  cfg.CategoryID,
			Description: cfg.Description + " (advance)",
			Status:      core.StatusProjected,
			Source:      core.SourceSalary,
		})
	}

	payment := cfg.PaymentAmount()
	if payment.Cents <= 0 {
		return nil, core.NewValidationError("advance.value", "advance consumes the whole salary")
	}
	date, err := core.MakeDate(target.Year, target.Month, cfg.PaymentDay)
	if err != nil {
		return nil, err
	}
	out = append(out, core.Transaction{
		Date:        date,
		Amount:      payment,
		Direction:   core.Income,
		CategoryID:  cfg.CategoryID,
		Description: cfg.Description,
		Status:      core.StatusProjected,
		Source:      core.SourceSalary,
	})
	return out, nil
}

// EnsureSalaryForMonth materializes the month's salary occurrences into
// the ledger as projected entries. Occurrences that already exist (same
// date and description, salary source) are left alone, which makes the
// call idempotent. An allocator id colliding with an existing
// transaction is a fatal conflict.
func (l *Ledger) EnsureSalaryForMonth(ctx context.Context, month core.MonthKey, alloc IdAllocator) ([]core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, configured, err := l.salaryConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !configured {
		return nil, nil
	}

	occurrences, err := GenerateSalaryOccurrences(cfg, month)
	if err != nil {
		return nil, err
	}

	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	var created []core.Transaction
	for _, occ := range occurrences {
		if hasSalaryEntry(doc, occ) {
			continue
		}
		id, err := alloc.Allocate(ctx, occ.Date, month)
		if err != nil {
			return nil, fmt.Errorf("allocate id: %w", err)
		}
		if doc.HasTransaction(id) {
			return nil, &core.ConflictError{Resource: "transaction", ID: id, Reason: "allocated id already exists in month " + month.String()}
		}
		occ.ID = id
		if err := occ.Validate(); err != nil {
			return nil, err
		}
		doc.Transactions = append(doc.Transactions, occ)
		created = append(created, occ)
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
	slog.InfoContext(ctx, "Materialized salary occurrences",
		"month", month.String(), "created", len(created))
	return created, nil
}

// ConfirmDueSalaries promotes projected salary entries whose date has
// been reached to confirmed. Already-confirmed entries are untouched.
func (l *Ledger) ConfirmDueSalaries(ctx context.Context, month core.MonthKey) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.confirmDueSalaries(ctx, month)
}

func (l *Ledger) confirmDueSalaries(ctx context.Context, month core.MonthKey) (int, error) {
	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return 0, err
	}

	today := core.DateOf(l.now())
	var confirmedIDs []string
	for i := range doc.Transactions {
		tx := &doc.Transactions[i]
		if tx.Source != core.SourceSalary || tx.Status != core.StatusProjected {
			continue
		}
		if tx.Date.After(today.Time) {
			continue
		}
		tx.Status = core.StatusConfirmed
		confirmedIDs = append(confirmedIDs, tx.ID)
	}

	if len(confirmedIDs) == 0 {
		return 0, nil
	}
	if err := l.saveMonth(ctx, month, doc); err != nil {
		return 0, err
	}
	for _, id := range confirmedIDs {
		l.publish(ctx, SyncOpUpdate, month, id)
	}
	slog.InfoContext(ctx, "Confirmed due salary entries",
		"month", month.String(), "confirmed", len(confirmedIDs))
	return len(confirmedIDs), nil
}

func hasSalaryEntry(doc core.MonthDocument, occ core.Transaction) bool {
	for _, tx := range doc.Transactions {
		if tx.Source == core.SourceSalary && tx.Date.Equal(occ.Date) && tx.Description == occ.Description {
			return true
		}
	}
	return false
}
