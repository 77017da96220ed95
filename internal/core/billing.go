package core

import "fmt"

// PaymentMode distinguishes direct movements (cash, debit) from
// credit-card charges, which are attributed to a billing month.
type PaymentMode string

const (
	PayDirect     PaymentMode = "direct"
	PayCreditCard PaymentMode = "creditCard"
)

func (m PaymentMode) Validate() error {
	switch m {
	case PayDirect, PayCreditCard:
		return nil
	default:
		return NewValidationError("mode", fmt.Sprintf("unknown payment mode %q", m))
	}
}

// BillingCycleConfig holds the statement closing day. Charges on or after
// the closing day roll into the next billing month.
type BillingCycleConfig struct {
	ClosingDay int `json:"closingDay"`
}

// DefaultClosingDay is used when no billing config has been stored yet.
const DefaultClosingDay = 1

func (c BillingCycleConfig) Validate() error {
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return NewValidationError("closingDay", fmt.Sprintf("%d out of range 1..31", c.ClosingDay))
	}
	return nil
}

// BillingMonth maps a calendar date to the month it is accounted in.
// Direct movements stay in their calendar month. Credit-card charges on or
// after the closing day belong to the next month, with the year carried
// over a December rollover.
func BillingMonth(d Date, mode PaymentMode, closingDay int) (MonthKey, error) {
	if err := d.Validate(); err != nil {
		return MonthKey{}, err
	}
	if err := mode.Validate(); err != nil {
		return MonthKey{}, err
	}
	if err := (BillingCycleConfig{ClosingDay: closingDay}).Validate(); err != nil {
		return MonthKey{}, err
	}
	month := d.MonthKeyOf()
	if mode == PayCreditCard && d.Day() >= closingDay {
		month = month.AddMonths(1)
	}
	return month, nil
}
