package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// InstallmentPlan is the payload for creating an installment group. The
// caller supplies every parcel id up front; the engine never generates
// ids for parcels.
type InstallmentPlan struct {
	ParentID    string
	GroupID     string
	Total       int
	Mode        core.PaymentMode
	FirstDate   core.Date
	Amount      core.Money
	Direction   core.Direction
	CategoryID  string
	Description string
	IDs         []string
}

func (p InstallmentPlan) Validate() error {
	if strings.TrimSpace(p.ParentID) == "" {
		return core.NewValidationError("parentId", "empty")
	}
	if strings.TrimSpace(p.GroupID) == "" {
		return core.NewValidationError("groupId", "empty")
	}
	if p.Total < 1 {
		return core.NewValidationError("total", fmt.Sprintf("%d must be at least 1", p.Total))
	}
	if err := p.Mode.Validate(); err != nil {
		return err
	}
	if err := p.FirstDate.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.Direction.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		return core.NewValidationError("categoryId", "empty")
	}
	if strings.TrimSpace(p.Description) == "" {
		return core.NewValidationError("description", "empty")
	}
	if len(p.IDs) != p.Total {
		return core.NewValidationError("ids", fmt.Sprintf("got %d ids for %d parcels", len(p.IDs), p.Total))
	}
	seen := make(map[string]struct{}, len(p.IDs))
	for _, id := range p.IDs {
		if strings.TrimSpace(id) == "" {
			return core.NewValidationError("ids", "contains an empty id")
		}
		if _, dup := seen[id]; dup {
			return core.NewValidationError("ids", "contains duplicate id "+id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ConflictStrategy tells a parent cascade what to do with parcels that
// were edited manually.
type ConflictStrategy string

const (
	StrategyNone            ConflictStrategy = ""
	StrategySkipEdited      ConflictStrategy = "skipEdited"
	StrategyOverwriteEdited ConflictStrategy = "overwriteEdited"
	StrategyCancel          ConflictStrategy = "cancel"
)

func (s ConflictStrategy) Validate() error {
	switch s {
	case StrategyNone, StrategySkipEdited, StrategyOverwriteEdited, StrategyCancel:
		return nil
	default:
		return core.NewValidationError("conflictStrategy", fmt.Sprintf("unknown strategy %q", s))
	}
}

// CascadeResult counts what a parent update touched.
type CascadeResult struct {
	UpdatedParcels int
	SkippedEdited  int
}

// CreateInstallmentPlan expands a purchase into Total dated parcels, each
// bucketed into its billing month, and records the parent descriptor in
// the installment registry. All documents are staged and committed
// together; a duplicate group or parent id mutates nothing.
func (l *Ledger) CreateInstallmentPlan(ctx context.Context, plan InstallmentPlan) ([]core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	billing, err := l.billingConfig(ctx)
	if err != nil {
		return nil, err
	}

	uow := store.NewUnitOfWork(l.store)

	registry := core.InstallmentRegistry{}
	if err := uow.Get(ctx, store.KeyInstallments, &registry); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load installment registry: %w", err)
	}
	if _, exists := registry[plan.GroupID]; exists {
		return nil, &core.ConflictError{Resource: "group", ID: plan.GroupID, Reason: "group already exists"}
	}
	if registry.HasParentID(plan.ParentID) {
		return nil, &core.ConflictError{Resource: "parent", ID: plan.ParentID, Reason: "parent id already in use"}
	}

	parcels := make([]core.Transaction, 0, plan.Total)
	months := make([]core.MonthKey, 0, plan.Total)
	for index := 1; index <= plan.Total; index++ {
		date, err := plan.FirstDate.AddMonths(index - 1)
		if err != nil {
			return nil, err
		}
		month, err := core.BillingMonth(date, plan.Mode, billing.ClosingDay)
		if err != nil {
			return nil, err
		}

		var doc core.MonthDocument
		if err := uow.Get(ctx, store.MonthDocKey(month), &doc); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load month %s: %w", month, err)
		}
		id := plan.IDs[index-1]
		if doc.HasTransaction(id) {
			return nil, &core.ConflictError{Resource: "transaction", ID: id, Reason: "id already exists in month " + month.String()}
		}

		status := core.StatusProjected
		if index == 1 {
			status = core.StatusConfirmed
		}
		parcel := core.Transaction{
			ID:          id,
			Date:        date,
			Amount:      plan.Amount,
			Direction:   plan.Direction,
			CategoryID:  plan.CategoryID,
			Description: plan.Description,
			Status:      status,
			Source:      core.SourceInstallment,
			Installment: &core.InstallmentDetail{
				GroupID: plan.GroupID,
				Mode:    plan.Mode,
				Total:   plan.Total,
				Index:   index,
			},
		}
		if err := parcel.Validate(); err != nil {
			return nil, err
		}
		doc.Transactions = append(doc.Transactions, parcel)
		if err := uow.Put(ctx, store.MonthDocKey(month), doc); err != nil {
			return nil, err
		}
		parcels = append(parcels, parcel)
		months = append(months, month)
	}

	parent := core.Transaction{
		ID:          plan.ParentID,
		Date:        plan.FirstDate,
		Amount:      plan.Amount,
		Direction:   plan.Direction,
		CategoryID:  plan.CategoryID,
		Description: plan.Description,
		Status:      core.StatusConfirmed,
		Source:      core.SourceInstallment,
		Installment: &core.InstallmentDetail{
			GroupID: plan.GroupID,
			Mode:    plan.Mode,
			Total:   plan.Total,
			Index:   0,
		},
	}
	registry[plan.GroupID] = parent
	if err := uow.Put(ctx, store.KeyInstallments, registry); err != nil {
		return nil, err
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	for i, parcel := range parcels {
		l.invalidateSummary(months[i])
		l.publish(ctx, SyncOpCreate, months[i], parcel.ID)
	}
	slog.InfoContext(ctx, "Created installment plan",
		"group_id", plan.GroupID, "total", plan.Total, "mode", string(plan.Mode))
	return parcels, nil
}

// InstallmentGroup returns the parent descriptor of a group.
func (l *Ledger) InstallmentGroup(ctx context.Context, groupID string) (core.Transaction, error) {
	if strings.TrimSpace(groupID) == "" {
		return core.Transaction{}, core.NewValidationError("groupId", "empty")
	}
	registry, err := l.installmentRegistry(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	parent, ok := registry[groupID]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Resource: "installment group", ID: groupID}
	}
	return parent, nil
}

// UpdateInstallmentParent cascades the parent's mutable fields (amount,
// direction, category, description) onto the group's projected parcels.
// Id, mode, total and date of the parent are immutable. When any
// projected parcel was edited manually the caller has to pick a
// strategy; without one the cascade is refused before any write.
func (l *Ledger) UpdateInstallmentParent(ctx context.Context, parent core.Transaction, strategy ConflictStrategy) (CascadeResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero CascadeResult
	if err := strategy.Validate(); err != nil {
		return zero, err
	}
	if parent.Installment == nil || !parent.Installment.IsParent() {
		return zero, core.NewValidationError("installment", "payload is not a parent descriptor")
	}
	if err := parent.Validate(); err != nil {
		return zero, err
	}
	groupID := parent.Installment.GroupID

	registry, err := l.installmentRegistry(ctx)
	if err != nil {
		return zero, err
	}
	current, ok := registry[groupID]
	if !ok {
		return zero, &core.NotFoundError{Resource: "installment group", ID: groupID}
	}
	if err := checkParentImmutables(current, parent); err != nil {
		return zero, err
	}

	monthKeys, err := l.store.Keys(ctx, store.MonthPrefix)
	if err != nil {
		return zero, fmt.Errorf("list month documents: %w", err)
	}

	type monthDoc struct {
		month core.MonthKey
		doc   core.MonthDocument
	}
	var docs []monthDoc
	anyEdited := false
	for _, key := range monthKeys {
		month, ok := store.MonthFromDocKey(key)
		if !ok {
			continue
		}
		var doc core.MonthDocument
		if err := l.store.Get(ctx, key, &doc); err != nil {
			return zero, fmt.Errorf("load month %s: %w", month, err)
		}
		for i := range doc.Transactions {
			tx := &doc.Transactions[i]
			if tx.IsParcel() && tx.Installment.GroupID == groupID &&
				tx.Status == core.StatusProjected && tx.EditedManually {
				anyEdited = true
			}
		}
		docs = append(docs, monthDoc{month: month, doc: doc})
	}

	if anyEdited && strategy == StrategyNone {
		return zero, &core.ConflictError{Resource: "cascade", ID: groupID,
			Reason: "group has manually edited parcels, confirmation required"}
	}
	if strategy == StrategyCancel {
		return zero, &core.ConflictError{Resource: "cascade", ID: groupID,
			Reason: "cancelled by caller"}
	}

	uow := store.NewUnitOfWork(l.store)
	var result CascadeResult
	type change struct {
		month core.MonthKey
		txID  string
	}
	var changes []change
	for _, md := range docs {
		doc := md.doc
		changed := false
		for i := range doc.Transactions {
			tx := &doc.Transactions[i]
			if !tx.IsParcel() || tx.Installment.GroupID != groupID || tx.Status != core.StatusProjected {
				continue
			}
			if tx.EditedManually {
				if strategy != StrategyOverwriteEdited {
					result.SkippedEdited++
					continue
				}
				tx.EditedManually = false
			}
			tx.Amount = parent.Amount
			tx.Direction = parent.Direction
			tx.CategoryID = parent.CategoryID
			tx.Description = parent.Description
			result.UpdatedParcels++
			changed = true
			changes = append(changes, change{month: md.month, txID: tx.ID})
		}
		if changed {
			if err := uow.Put(ctx, store.MonthDocKey(md.month), doc); err != nil {
				return zero, err
			}
		}
	}

	updated := current
	updated.Amount = parent.Amount
	updated.Direction = parent.Direction
	updated.CategoryID = parent.CategoryID
	updated.Description = parent.Description
	registry[groupID] = updated
	if err := uow.Put(ctx, store.KeyInstallments, registry); err != nil {
		return zero, err
	}

	if err := uow.Commit(ctx); err != nil {
		return zero, err
	}
	for _, c := range changes {
		l.invalidateSummary(c.month)
		l.publish(ctx, SyncOpUpdate, c.month, c.txID)
	}
	slog.InfoContext(ctx, "Cascaded installment parent update",
		"group_id", groupID, "updated", result.UpdatedParcels, "skipped_edited", result.SkippedEdited)
	return result, nil
}

// UpdateInstallmentParcel edits one parcel in place. Group id, index,
// mode and total are immutable; the new date must still bill into the
// month the parcel lives in. The parcel is flagged as manually edited,
// opting it out of future cascades until overwritten.
func (l *Ledger) UpdateInstallmentParcel(ctx context.Context, month core.MonthKey, parcel core.Transaction) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero core.Transaction
	if err := month.Validate(); err != nil {
		return zero, err
	}
	if err := parcel.Validate(); err != nil {
		return zero, err
	}
	if parcel.Installment == nil || parcel.Installment.IsParent() {
		return zero, core.NewValidationError("installment", "payload is not a parcel")
	}

	doc, err := l.loadMonth(ctx, month)
	if err != nil {
		return zero, err
	}
	i, ok := doc.FindTransaction(parcel.ID)
	if !ok {
		return zero, &core.NotFoundError{Resource: "parcel", ID: parcel.ID}
	}
	existing := doc.Transactions[i]
	if !existing.IsParcel() {
		return zero, core.NewValidationError("id", "transaction is not an installment parcel")
	}
	if *existing.Installment != *parcel.Installment {
		return zero, &core.InvariantError{Op: "updateInstallmentParcel",
			Detail: fmt.Sprintf("parcel %s: groupId/index/mode/total are immutable", parcel.ID)}
	}

	billing, err := l.billingConfig(ctx)
	if err != nil {
		return zero, err
	}
	billed, err := core.BillingMonth(parcel.Date, parcel.Installment.Mode, billing.ClosingDay)
	if err != nil {
		return zero, err
	}
	if billed != month {
		return zero, core.NewValidationError("date",
			fmt.Sprintf("date %s bills into %s, parcel lives in %s", parcel.Date, billed, month))
	}

	parcel.Source = core.SourceInstallment
	parcel.EditedManually = true
	doc.Transactions[i] = parcel
	if err := l.saveMonth(ctx, month, doc); err != nil {
		return zero, err
	}
	l.publish(ctx, SyncOpUpdate, month, parcel.ID)
	return parcel, nil
}

// DeleteInstallmentGroup removes the parent descriptor. With
// deleteParcels set the group's parcels are removed from every month and
// emptied documents are deleted; otherwise the parcels stay behind as
// ordinary transactions.
func (l *Ledger) DeleteInstallmentGroup(ctx context.Context, groupID string, deleteParcels bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(groupID) == "" {
		return core.NewValidationError("groupId", "empty")
	}

	uow := store.NewUnitOfWork(l.store)
	registry := core.InstallmentRegistry{}
	if err := uow.Get(ctx, store.KeyInstallments, &registry); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load installment registry: %w", err)
	}
	if _, ok := registry[groupID]; !ok {
		return &core.NotFoundError{Resource: "installment group", ID: groupID}
	}
	delete(registry, groupID)
	if err := uow.Put(ctx, store.KeyInstallments, registry); err != nil {
		return err
	}

	type removal struct {
		month core.MonthKey
		txID  string
	}
	var removals []removal
	if deleteParcels {
		monthKeys, err := l.store.Keys(ctx, store.MonthPrefix)
		if err != nil {
			return fmt.Errorf("list month documents: %w", err)
		}
		for _, key := range monthKeys {
			month, ok := store.MonthFromDocKey(key)
			if !ok {
				continue
			}
			var doc core.MonthDocument
			if err := uow.Get(ctx, key, &doc); err != nil {
				return fmt.Errorf("load month %s: %w", month, err)
			}
			kept := doc.Transactions[:0]
			for _, tx := range doc.Transactions {
				if tx.IsParcel() && tx.Installment.GroupID == groupID {
					removals = append(removals, removal{month: month, txID: tx.ID})
					continue
				}
				kept = append(kept, tx)
			}
			if len(kept) == len(doc.Transactions) {
				continue
			}
			doc.Transactions = kept
			if doc.IsEmpty() {
				if err := uow.Delete(ctx, key); err != nil {
					return err
				}
			} else if err := uow.Put(ctx, key, doc); err != nil {
				return err
			}
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return err
	}
	for _, r := range removals {
		l.invalidateSummary(r.month)
		l.publish(ctx, SyncOpDelete, r.month, r.txID)
	}
	slog.InfoContext(ctx, "Deleted installment group",
		"group_id", groupID, "parcels_removed", len(removals))
	return nil
}

func checkParentImmutables(current, incoming core.Transaction) error {
	switch {
	case incoming.ID != current.ID:
		return &core.InvariantError{Op: "updateInstallmentParent", Detail: "parent id is immutable"}
	case incoming.Installment.Mode != current.Installment.Mode:
		return &core.InvariantError{Op: "updateInstallmentParent", Detail: "parent mode is immutable"}
	case incoming.Installment.Total != current.Installment.Total:
		return &core.InvariantError{Op: "updateInstallmentParent", Detail: "parent total is immutable"}
	case !incoming.Date.Equal(current.Date):
		return &core.InvariantError{Op: "updateInstallmentParent", Detail: "parent date is immutable"}
	}
	return nil
}
