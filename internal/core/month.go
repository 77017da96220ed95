package core

import "strings"

// CalendarEntry is a dated note kept alongside the month's transactions.
type CalendarEntry struct {
	Date Date   `json:"date"`
	Note string `json:"note"`
}

// SavingsEntry records money set aside during the month.
type SavingsEntry struct {
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
}

// Loan records money lent to or borrowed from someone, tracked per month.
type Loan struct {
	Description  string    `json:"description"`
	Counterparty string    `json:"counterparty"`
	Amount       Money     `json:"amount"`
	Direction    Direction `json:"direction"`
	Settled      bool      `json:"settled,omitempty"`
}

// MonthDocument is the ledger document for one YYYY-MM key. Transactions
// live here next to the month's calendar, savings and loan sections.
type MonthDocument struct {
	Transactions []Transaction   `json:"transactions"`
	Calendar     []CalendarEntry `json:"calendar,omitempty"`
	Savings      []SavingsEntry  `json:"savings,omitempty"`
	Loans        []Loan          `json:"loans,omitempty"`
}

// FindTransaction returns the index of the transaction with the given id.
func (d *MonthDocument) FindTransaction(id string) (int, bool) {
	for i := range d.Transactions {
		if d.Transactions[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// HasTransaction reports whether the id is already used in this document.
func (d *MonthDocument) HasTransaction(id string) bool {
	_, ok := d.FindTransaction(id)
	return ok
}

// RemoveTransaction deletes the transaction with the given id, preserving
// order. Returns false if the id is not present.
func (d *MonthDocument) RemoveTransaction(id string) bool {
	i, ok := d.FindTransaction(id)
	if !ok {
		return false
	}
	d.Transactions = append(d.Transactions[:i], d.Transactions[i+1:]...)
	return true
}

// IsEmpty reports whether the document carries no data in any section.
func (d *MonthDocument) IsEmpty() bool {
	return len(d.Transactions) == 0 && len(d.Calendar) == 0 &&
		len(d.Savings) == 0 && len(d.Loans) == 0
}

// ValidateTransactionIDs checks id uniqueness within the document.
func (d *MonthDocument) ValidateTransactionIDs() error {
	seen := make(map[string]struct{}, len(d.Transactions))
	for _, tx := range d.Transactions {
		id := strings.TrimSpace(tx.ID)
		if id == "" {
			return NewValidationError("id", "empty")
		}
		if _, dup := seen[id]; dup {
			return &ConflictError{Resource: "transaction", ID: id, Reason: "duplicate id in month document"}
		}
		seen[id] = struct{}{}
	}
	return nil
}

// InstallmentRegistry keeps the immutable parent descriptor of every
// installment group, keyed by group id.
type InstallmentRegistry map[string]Transaction

// HasParentID reports whether any registered parent uses the given
// transaction id.
func (r InstallmentRegistry) HasParentID(id string) bool {
	for _, parent := range r {
		if parent.ID == id {
			return true
		}
	}
	return false
}
