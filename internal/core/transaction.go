package core

import (
	"fmt"
	"strings"
)

type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

func (d Direction) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	default:
		return NewValidationError("direction", fmt.Sprintf("unknown direction %q", d))
	}
}

// Status separates realized entries from forecasts.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusProjected Status = "projected"
)

func (s Status) Validate() error {
	switch s {
	case StatusConfirmed, StatusProjected:
		return nil
	default:
		return NewValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
}

// Source tags how a transaction came to exist.
type Source string

const (
	SourceManual      Source = "manual"
	SourceRecurring   Source = "recurring"
	SourceInstallment Source = "installment"
	SourceSalary      Source = "salary"
)

func (s Source) Validate() error {
	switch s {
	case SourceManual, SourceRecurring, SourceInstallment, SourceSalary:
		return nil
	default:
		return NewValidationError("source", fmt.Sprintf("unknown source %q", s))
	}
}

// InstallmentDetail links a transaction to an installment group. Index 0
// marks the parent descriptor kept in the registry; parcels carry 1..Total.
type InstallmentDetail struct {
	GroupID string      `json:"groupId"`
	Mode    PaymentMode `json:"mode"`
	Total   int         `json:"total"`
	Index   int         `json:"index"`
}

// IsParent reports whether this detail describes the group parent.
func (d InstallmentDetail) IsParent() bool { return d.Index == 0 }

func (d InstallmentDetail) Validate() error {
	if strings.TrimSpace(d.GroupID) == "" {
		return NewValidationError("installment.groupId", "empty")
	}
	if err := d.Mode.Validate(); err != nil {
		return err
	}
	if d.Total < 1 {
		return NewValidationError("installment.total", fmt.Sprintf("%d must be at least 1", d.Total))
	}
	if d.Index < 0 || d.Index > d.Total {
		return NewValidationError("installment.index", fmt.Sprintf("%d out of range 0..%d", d.Index, d.Total))
	}
	return nil
}

// Transaction is a single dated ledger movement. IDs are caller supplied
// and unique within every document they are written into.
type Transaction struct {
	ID             string             `json:"id"`
	Date           Date               `json:"date"`
	Amount         Money              `json:"amount"`
	Direction      Direction          `json:"direction"`
	CategoryID     string             `json:"categoryId"`
	Description    string             `json:"description"`
	Status         Status             `json:"status"`
	Source         Source             `json:"source"`
	Installment    *InstallmentDetail `json:"installment,omitempty"`
	EditedManually bool               `json:"editedManually,omitempty"`
}

const maxDescriptionLen = 200

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return NewValidationError("id", "empty")
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return NewValidationError("categoryId", "empty")
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "empty")
	}
	if len(t.Description) > maxDescriptionLen {
		return NewValidationError("description", fmt.Sprintf("longer than %d characters", maxDescriptionLen))
	}
	if err := t.Status.Validate(); err != nil {
		return err
	}
	if err := t.Source.Validate(); err != nil {
		return err
	}
	if t.Installment != nil {
		if t.Source != SourceInstallment {
			return NewValidationError("source", "installment detail requires installment source")
		}
		if err := t.Installment.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsParcel reports whether the transaction is an installment parcel
// (not a parent descriptor).
func (t Transaction) IsParcel() bool {
	return t.Installment != nil && !t.Installment.IsParent()
}

// MatchKey identifies a transaction for dedup purposes by what it looks
// like rather than by id: date, amount, category and description. The
// summary aggregator uses it to avoid counting a recurring projection
// that was already confirmed.
func (t Transaction) MatchKey() string {
	return fmt.Sprintf("%s|%d|%s|%s", t.Date, t.Amount.Cents, t.CategoryID, t.Description)
}
