package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
)

func testPlan(t *testing.T, mode core.PaymentMode) InstallmentPlan {
	t.Helper()
	return InstallmentPlan{
		ParentID:    "parent-1",
		GroupID:     "group-1",
		Total:       3,
		Mode:        mode,
		FirstDate:   mustDate(t, "2025-01-15"),
		Amount:      core.Money{Cents: 25000},
		Direction:   core.Expense,
		CategoryID:  "electronics",
		Description: "Laptop",
		IDs:         []string{"p1", "p2", "p3"},
	}
}

func TestCreateInstallmentPlan_Direct(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	parcels, err := ledger.CreateInstallmentPlan(ctx, testPlan(t, core.PayDirect))
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() error: %v", err)
	}
	if len(parcels) != 3 {
		t.Fatalf("got %d parcels, want 3", len(parcels))
	}

	wantDates := []string{"2025-01-15", "2025-02-15", "2025-03-15"}
	for i, parcel := range parcels {
		if parcel.Date.String() != wantDates[i] {
			t.Errorf("parcel %d date = %s, want %s", i+1, parcel.Date, wantDates[i])
		}
		wantStatus := core.StatusProjected
		if i == 0 {
			wantStatus = core.StatusConfirmed
		}
		if parcel.Status != wantStatus {
			t.Errorf("parcel %d status = %q, want %q", i+1, parcel.Status, wantStatus)
		}
		if parcel.Installment == nil || parcel.Installment.Index != i+1 {
			t.Errorf("parcel %d carries wrong installment detail: %+v", i+1, parcel.Installment)
		}
	}

	// Direct parcels live in their calendar months.
	for i, monthKey := range []string{"2025-01", "2025-02", "2025-03"} {
		doc, err := ledger.GetMonth(ctx, mustMonth(t, monthKey))
		if err != nil {
			t.Fatalf("GetMonth(%s): %v", monthKey, err)
		}
		if !doc.HasTransaction(parcels[i].ID) {
			t.Errorf("month %s is missing parcel %s", monthKey, parcels[i].ID)
		}
	}
}

func TestCreateInstallmentPlan_CreditCardBuckets(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	if err := ledger.SetClosingDay(ctx, 10); err != nil {
		t.Fatalf("SetClosingDay(): %v", err)
	}

	// Day 15 is past the closing day 10: every charge rolls one month
	// forward, the December one into the next year.
	plan := testPlan(t, core.PayCreditCard)
	plan.FirstDate = mustDate(t, "2025-11-15")
	if _, err := ledger.CreateInstallmentPlan(ctx, plan); err != nil {
		t.Fatalf("CreateInstallmentPlan() error: %v", err)
	}

	for i, monthKey := range []string{"2025-12", "2026-01", "2026-02"} {
		doc, err := ledger.GetMonth(ctx, mustMonth(t, monthKey))
		if err != nil {
			t.Fatalf("GetMonth(%s): %v", monthKey, err)
		}
		if !doc.HasTransaction(plan.IDs[i]) {
			t.Errorf("billing month %s is missing parcel %s", monthKey, plan.IDs[i])
		}
	}
}

func TestCreateInstallmentPlan_DuplicateGroup(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	if _, err := ledger.CreateInstallmentPlan(ctx, testPlan(t, core.PayDirect)); err != nil {
		t.Fatalf("first CreateInstallmentPlan(): %v", err)
	}

	dup := testPlan(t, core.PayDirect)
	dup.ParentID = "parent-2"
	dup.IDs = []string{"q1", "q2", "q3"}
	_, err := ledger.CreateInstallmentPlan(ctx, dup)
	if !core.IsConflict(err) {
		t.Fatalf("duplicate group = %v, want conflict", err)
	}

	// The failed plan wrote nothing.
	doc, err := ledger.GetMonth(ctx, mustMonth(t, "2025-01"))
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	if doc.HasTransaction("q1") {
		t.Error("failed plan must not leave parcels behind")
	}
}

func TestCreateInstallmentPlan_DuplicateParent(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	if _, err := ledger.CreateInstallmentPlan(ctx, testPlan(t, core.PayDirect)); err != nil {
		t.Fatalf("first CreateInstallmentPlan(): %v", err)
	}

	// Fresh group id, but the parent id is already taken.
	dup := testPlan(t, core.PayDirect)
	dup.GroupID = "group-2"
	dup.IDs = []string{"q1", "q2", "q3"}
	_, err := ledger.CreateInstallmentPlan(ctx, dup)
	if !core.IsConflict(err) {
		t.Fatalf("duplicate parent = %v, want conflict", err)
	}

	// The failed plan wrote nothing.
	doc, err := ledger.GetMonth(ctx, mustMonth(t, "2025-01"))
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	if doc.HasTransaction("q1") {
		t.Error("failed plan must not leave parcels behind")
	}
	if _, err := ledger.InstallmentGroup(ctx, "group-2"); !core.IsNotFound(err) {
		t.Errorf("group-2 lookup = %v, want not found", err)
	}
}

func TestCreateInstallmentPlan_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*InstallmentPlan)
	}{
		{name: "empty parent id", mutate: func(p *InstallmentPlan) { p.ParentID = "" }},
		{name: "empty group id", mutate: func(p *InstallmentPlan) { p.GroupID = " " }},
		{name: "zero total", mutate: func(p *InstallmentPlan) { p.Total = 0 }},
		{name: "bad mode", mutate: func(p *InstallmentPlan) { p.Mode = "cheque" }},
		{name: "zero amount", mutate: func(p *InstallmentPlan) { p.Amount = core.Money{} }},
		{name: "id count mismatch", mutate: func(p *InstallmentPlan) { p.IDs = []string{"p1"} }},
		{name: "duplicate ids", mutate: func(p *InstallmentPlan) { p.IDs = []string{"p1", "p1", "p3"} }},
		{name: "empty id", mutate: func(p *InstallmentPlan) { p.IDs = []string{"p1", "", "p3"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan(t, core.PayDirect)
			tt.mutate(&plan)
			if err := plan.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

// createGroup sets up a plan and returns the parent as it would be
// submitted for an update, detail included.
func createGroup(t *testing.T, ledger *Ledger) core.Transaction {
	t.Helper()
	ctx := context.Background()
	plan := testPlan(t, core.PayDirect)
	if _, err := ledger.CreateInstallmentPlan(ctx, plan); err != nil {
		t.Fatalf("CreateInstallmentPlan(): %v", err)
	}
	return core.Transaction{
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
}

// editParcel marks the second parcel as manually edited by changing its
// amount through the parcel update path.
func editParcel(t *testing.T, ledger *Ledger) {
	t.Helper()
	ctx := context.Background()
	month := mustMonth(t, "2025-02")
	doc, err := ledger.GetMonth(ctx, month)
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, ok := doc.FindTransaction("p2")
	if !ok {
		t.Fatal("parcel p2 not found")
	}
	parcel := doc.Transactions[i]
	parcel.Amount = core.Money{Cents: 19900}
	if _, err := ledger.UpdateInstallmentParcel(ctx, month, parcel); err != nil {
		t.Fatalf("UpdateInstallmentParcel(): %v", err)
	}
}

func TestUpdateInstallmentParent_Cascade(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	parent := createGroup(t, ledger)

	parent.Amount = core.Money{Cents: 30000}
	parent.Description = "Laptop (repriced)"
	result, err := ledger.UpdateInstallmentParent(ctx, parent, StrategyNone)
	if err != nil {
		t.Fatalf("UpdateInstallmentParent() error: %v", err)
	}
	// Parcel 1 is confirmed and untouched; 2 and 3 are projected.
	if result.UpdatedParcels != 2 || result.SkippedEdited != 0 {
		t.Errorf("result = %+v, want 2 updated, 0 skipped", result)
	}

	doc, err := ledger.GetMonth(ctx, mustMonth(t, "2025-02"))
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, _ := doc.FindTransaction("p2")
	if doc.Transactions[i].Amount.Cents != 30000 {
		t.Errorf("parcel p2 amount = %d, want 30000", doc.Transactions[i].Amount.Cents)
	}
	if doc.Transactions[i].Description != "Laptop (repriced)" {
		t.Errorf("parcel p2 description = %q", doc.Transactions[i].Description)
	}

	confirmed, err := ledger.GetMonth(ctx, mustMonth(t, "2025-01"))
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	j, _ := confirmed.FindTransaction("p1")
	if confirmed.Transactions[j].Amount.Cents != 25000 {
		t.Errorf("confirmed parcel p1 amount = %d, cascade must not touch it", confirmed.Transactions[j].Amount.Cents)
	}
}

func TestUpdateInstallmentParent_EditedParcelStrategies(t *testing.T) {
	ctx := context.Background()

	t.Run("no strategy refuses", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		parent := createGroup(t, ledger)
		editParcel(t, ledger)

		parent.Amount = core.Money{Cents: 30000}
		_, err := ledger.UpdateInstallmentParent(ctx, parent, StrategyNone)
		if !core.IsConflict(err) {
			t.Fatalf("UpdateInstallmentParent() = %v, want conflict", err)
		}
	})

	t.Run("cancel refuses", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		parent := createGroup(t, ledger)
		editParcel(t, ledger)

		parent.Amount = core.Money{Cents: 30000}
		_, err := ledger.UpdateInstallmentParent(ctx, parent, StrategyCancel)
		if !core.IsConflict(err) {
			t.Fatalf("UpdateInstallmentParent() = %v, want conflict", err)
		}
	})

	t.Run("skip edited", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		parent := createGroup(t, ledger)
		editParcel(t, ledger)

		parent.Amount = core.Money{Cents: 30000}
		result, err := ledger.UpdateInstallmentParent(ctx, parent, StrategySkipEdited)
		if err != nil {
			t.Fatalf("UpdateInstallmentParent() error: %v", err)
		}
		if result.UpdatedParcels != 1 || result.SkippedEdited != 1 {
			t.Errorf("result = %+v, want 1 updated, 1 skipped", result)
		}

		doc, err := ledger.GetMonth(ctx, mustMonth(t, "2025-02"))
		if err != nil {
			t.Fatalf("GetMonth(): %v", err)
		}
		i, _ := doc.FindTransaction("p2")
		if doc.Transactions[i].Amount.Cents != 19900 {
			t.Errorf("edited parcel amount = %d, skip must preserve it", doc.Transactions[i].Amount.Cents)
		}
		if !doc.Transactions[i].EditedManually {
			t.Error("skipped parcel should keep its edited flag")
		}
	})

	t.Run("overwrite edited", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		parent := createGroup(t, ledger)
		editParcel(t, ledger)

		parent.Amount = core.Money{Cents: 30000}
		result, err := ledger.UpdateInstallmentParent(ctx, parent, StrategyOverwriteEdited)
		if err != nil {
			t.Fatalf("UpdateInstallmentParent() error: %v", err)
		}
		if result.UpdatedParcels != 2 || result.SkippedEdited != 0 {
			t.Errorf("result = %+v, want 2 updated, 0 skipped", result)
		}

		doc, err := ledger.GetMonth(ctx, mustMonth(t, "2025-02"))
		if err != nil {
			t.Fatalf("GetMonth(): %v", err)
		}
		i, _ := doc.FindTransaction("p2")
		if doc.Transactions[i].Amount.Cents != 30000 {
			t.Errorf("overwritten parcel amount = %d, want 30000", doc.Transactions[i].Amount.Cents)
		}
		if doc.Transactions[i].EditedManually {
			t.Error("overwrite must clear the edited flag")
		}
	})
}

func TestUpdateInstallmentParent_Immutables(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*core.Transaction)
	}{
		{name: "total", mutate: func(p *core.Transaction) { p.Installment.Total = 4 }},
		{name: "mode", mutate: func(p *core.Transaction) { p.Installment.Mode = core.PayCreditCard }},
		{name: "date", mutate: func(p *core.Transaction) { p.Date = mustDate(t, "2025-01-20") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger(t)
			parent := createGroup(t, ledger)
			detail := *parent.Installment
			parent.Installment = &detail
			tt.mutate(&parent)
			_, err := ledger.UpdateInstallmentParent(ctx, parent, StrategyNone)
			if !core.IsInvariant(err) {
				t.Errorf("UpdateInstallmentParent() = %v, want invariant error", err)
			}
		})
	}
}

func TestUpdateInstallmentParent_UnknownGroup(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	parent := createGroup(t, ledger)
	parent.Installment.GroupID = "nope"

	_, err := ledger.UpdateInstallmentParent(ctx, parent, StrategyNone)
	if !core.IsNotFound(err) {
		t.Errorf("UpdateInstallmentParent() = %v, want not found", err)
	}
}

func TestUpdateInstallmentParcel(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	createGroup(t, ledger)

	month := mustMonth(t, "2025-02")
	doc, err := ledger.GetMonth(ctx, month)
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, _ := doc.FindTransaction("p2")
	parcel := doc.Transactions[i]
	parcel.Date = mustDate(t, "2025-02-20")
	parcel.Amount = core.Money{Cents: 19900}

	updated, err := ledger.UpdateInstallmentParcel(ctx, month, parcel)
	if err != nil {
		t.Fatalf("UpdateInstallmentParcel() error: %v", err)
	}
	if !updated.EditedManually {
		t.Error("an edited parcel must carry the manual-edit flag")
	}

	doc, err = ledger.GetMonth(ctx, month)
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, _ = doc.FindTransaction("p2")
	if doc.Transactions[i].Amount.Cents != 19900 || doc.Transactions[i].Date.String() != "2025-02-20" {
		t.Errorf("persisted parcel = %+v", doc.Transactions[i])
	}
}

func TestUpdateInstallmentParcel_Rejections(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	createGroup(t, ledger)

	month := mustMonth(t, "2025-02")
	doc, err := ledger.GetMonth(ctx, month)
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, _ := doc.FindTransaction("p2")
	base := doc.Transactions[i]

	t.Run("immutable detail", func(t *testing.T) {
		parcel := base
		detail := *base.Installment
		detail.Index = 3
		parcel.Installment = &detail
		_, err := ledger.UpdateInstallmentParcel(ctx, month, parcel)
		if !core.IsInvariant(err) {
			t.Errorf("UpdateInstallmentParcel() = %v, want invariant error", err)
		}
	})

	t.Run("date leaves billing month", func(t *testing.T) {
		parcel := base
		parcel.Date = mustDate(t, "2025-03-02")
		_, err := ledger.UpdateInstallmentParcel(ctx, month, parcel)
		if !core.IsValidation(err) {
			t.Errorf("UpdateInstallmentParcel() = %v, want validation error", err)
		}
	})

	t.Run("unknown parcel", func(t *testing.T) {
		parcel := base
		parcel.ID = "nope"
		_, err := ledger.UpdateInstallmentParcel(ctx, month, parcel)
		if !core.IsNotFound(err) {
			t.Errorf("UpdateInstallmentParcel() = %v, want not found", err)
		}
	})
}

func TestDeleteInstallmentGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("with parcels", func(t *testing.T) {
		ledger, st := newTestLedger(t)
		createGroup(t, ledger)

		if err := ledger.DeleteInstallmentGroup(ctx, "group-1", true); err != nil {
			t.Fatalf("DeleteInstallmentGroup() error: %v", err)
		}
		for _, monthKey := range []string{"2025-01", "2025-02", "2025-03"} {
			doc, err := ledger.GetMonth(ctx, mustMonth(t, monthKey))
			if err != nil {
				t.Fatalf("GetMonth(%s): %v", monthKey, err)
			}
			if len(doc.Transactions) != 0 {
				t.Errorf("month %s still has %d transactions", monthKey, len(doc.Transactions))
			}
		}
		// The emptied documents are gone from the store entirely.
		keys, err := st.Keys(ctx, "months/")
		if err != nil {
			t.Fatalf("Keys(): %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("emptied month documents should be deleted, found %v", keys)
		}

		// The group id is free again.
		if _, err := ledger.CreateInstallmentPlan(ctx, testPlan(t, core.PayDirect)); err != nil {
			t.Errorf("recreating the group after delete failed: %v", err)
		}
	})

	t.Run("keep parcels", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		createGroup(t, ledger)

		if err := ledger.DeleteInstallmentGroup(ctx, "group-1", false); err != nil {
			t.Fatalf("DeleteInstallmentGroup() error: %v", err)
		}
		doc, err := ledger.GetMonth(ctx, mustMonth(t, "2025-02"))
		if err != nil {
			t.Fatalf("GetMonth(): %v", err)
		}
		if !doc.HasTransaction("p2") {
			t.Error("parcels should survive when deleteParcels is false")
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		ledger, _ := newTestLedger(t)
		err := ledger.DeleteInstallmentGroup(ctx, "nope", true)
		if !core.IsNotFound(err) {
			t.Errorf("DeleteInstallmentGroup() = %v, want not found", err)
		}
	})
}
