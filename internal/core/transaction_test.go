package core

import (
	"strings"
	"testing"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func validTransaction(t *testing.T) Transaction {
	t.Helper()
	return Transaction{
		ID:          "tx-1",
		Date:        mustDate(t, "2025-03-10"),
		Amount:      Money{Cents: 4200},
		Direction:   Expense,
		CategoryID:  "groceries",
		Description: "Weekly shop",
		Status:      StatusConfirmed,
		Source:      SourceManual,
	}
}

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr bool
	}{
		{name: "valid manual entry", mutate: func(tx *Transaction) {}},
		{name: "empty id", mutate: func(tx *Transaction) { tx.ID = "  " }, wantErr: true},
		{name: "zero date", mutate: func(tx *Transaction) { tx.Date = Date{} }, wantErr: true},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = Money{} }, wantErr: true},
		{name: "unknown direction", mutate: func(tx *Transaction) { tx.Direction = "sideways" }, wantErr: true},
		{name: "empty category", mutate: func(tx *Transaction) { tx.CategoryID = "" }, wantErr: true},
		{name: "empty description", mutate: func(tx *Transaction) { tx.Description = " " }, wantErr: true},
		{
			name:    "description too long",
			mutate:  func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) },
			wantErr: true,
		},
		{name: "unknown status", mutate: func(tx *Transaction) { tx.Status = "maybe" }, wantErr: true},
		{name: "unknown source", mutate: func(tx *Transaction) { tx.Source = "import" }, wantErr: true},
		{
			name: "installment detail on manual source",
			mutate: func(tx *Transaction) {
				tx.Installment = &InstallmentDetail{GroupID: "g1", Mode: PayCreditCard, Total: 3, Index: 1}
			},
			wantErr: true,
		},
		{
			name: "valid installment parcel",
			mutate: func(tx *Transaction) {
				tx.Source = SourceInstallment
				tx.Installment = &InstallmentDetail{GroupID: "g1", Mode: PayCreditCard, Total: 3, Index: 1}
			},
		},
		{
			name: "installment index beyond total",
			mutate: func(tx *Transaction) {
				tx.Source = SourceInstallment
				tx.Installment = &InstallmentDetail{GroupID: "g1", Mode: PayCreditCard, Total: 3, Index: 4}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction(t)
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestTransaction_IsParcel(t *testing.T) {
	tx := validTransaction(t)
	if tx.IsParcel() {
		t.Error("plain transaction should not be a parcel")
	}

	tx.Source = SourceInstallment
	tx.Installment = &InstallmentDetail{GroupID: "g1", Mode: PayCreditCard, Total: 3, Index: 0}
	if tx.IsParcel() {
		t.Error("parent descriptor should not be a parcel")
	}

	tx.Installment.Index = 2
	if !tx.IsParcel() {
		t.Error("indexed installment entry should be a parcel")
	}
}

func TestTransaction_MatchKey(t *testing.T) {
	a := validTransaction(t)
	b := validTransaction(t)
	b.ID = "tx-2"
	b.Status = StatusProjected

	if a.MatchKey() != b.MatchKey() {
		t.Error("match key should ignore id and status")
	}

	b.Amount = Money{Cents: 4300}
	if a.MatchKey() == b.MatchKey() {
		t.Error("match key should include the amount")
	}
}

func TestMonthDocument_ValidateTransactionIDs(t *testing.T) {
	doc := MonthDocument{
		Transactions: []Transaction{
			{ID: "a"}, {ID: "b"},
		},
	}
	if err := doc.ValidateTransactionIDs(); err != nil {
		t.Errorf("unique ids should pass: %v", err)
	}

	doc.Transactions = append(doc.Transactions, Transaction{ID: "a"})
	if err := doc.ValidateTransactionIDs(); err == nil {
		t.Error("duplicate ids should fail")
	}
}

func TestMonthDocument_RemoveTransaction(t *testing.T) {
	doc := MonthDocument{Transactions: []Transaction{{ID: "a"}, {ID: "b"}, {ID: "c"}}}

	if !doc.RemoveTransaction("b") {
		t.Fatal("RemoveTransaction should report success")
	}
	if len(doc.Transactions) != 2 || doc.HasTransaction("b") {
		t.Errorf("b should be gone, have %v", doc.Transactions)
	}
	if doc.RemoveTransaction("b") {
		t.Error("removing a missing id should report false")
	}
}
