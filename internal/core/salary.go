package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AdvanceConfig describes the mid-month salary advance as a percentage of
// the base salary.
type AdvanceConfig struct {
	Enabled bool            `json:"enabled"`
	Day     int             `json:"day"`
	Value   decimal.Decimal `json:"value"` // percent in (0, 100]
}

// SalaryConfig drives the salary projector. Direction is always income.
type SalaryConfig struct {
	BaseSalary  Money         `json:"baseSalary"`
	PaymentDay  int           `json:"paymentDay"`
	CategoryID  string        `json:"categoryId"`
	Description string        `json:"description"`
	Advance     AdvanceConfig `json:"advance"`
}

var oneHundred = decimal.NewFromInt(100)

func (c SalaryConfig) Validate() error {
	if err := c.BaseSalary.Validate(); err != nil {
		return NewValidationError("baseSalary", "must be positive")
	}
	if c.PaymentDay < 1 || c.PaymentDay > 31 {
		return NewValidationError("paymentDay", fmt.Sprintf("%d out of range 1..31", c.PaymentDay))
	}
	if strings.TrimSpace(c.CategoryID) == "" {
		return NewValidationError("categoryId", "empty")
	}
	if strings.TrimSpace(c.Description) == "" {
		return NewValidationError("description", "empty")
	}
	if c.Advance.Enabled {
		if c.Advance.Day < 1 || c.Advance.Day > 31 {
			return NewValidationError("advance.day", fmt.Sprintf("%d out of range 1..31", c.Advance.Day))
		}
		if !c.Advance.Value.IsPositive() || c.Advance.Value.GreaterThan(oneHundred) {
			return NewValidationError("advance.value", "percent must be in (0, 100]")
		}
		if c.AdvanceAmount().Cents >= c.BaseSalary.Cents {
			return NewValidationError("advance.value", "advance must be smaller than base salary")
		}
	}
	return nil
}

// AdvanceAmount is the advance in cents, rounded half up. Zero when the
// advance is disabled.
func (c SalaryConfig) AdvanceAmount() Money {
	if !c.Advance.Enabled {
		return Money{}
	}
	base := decimal.NewFromInt(c.BaseSalary.Cents)
	cents := base.Mul(c.Advance.Value).Div(oneHundred).Round(0)
	return Money{Cents: cents.IntPart()}
}

// PaymentAmount is what remains of the base salary after the advance.
func (c SalaryConfig) PaymentAmount() Money {
	return c.BaseSalary.Sub(c.AdvanceAmount())
}
