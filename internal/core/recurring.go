package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Schedule is the recurrence of a rule. The two concrete forms are
// MonthlySchedule and YearlySchedule; the unexported method keeps the set
// closed so an illegal combination cannot be represented.
type Schedule interface {
	Validate() error
	schedule()
}

// MonthlySchedule fires once per month on a fixed day.
type MonthlySchedule struct {
	DayOfMonth int
}

func (s MonthlySchedule) schedule() {}

func (s MonthlySchedule) Validate() error {
	if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
		return NewValidationError("schedule.dayOfMonth", fmt.Sprintf("%d out of range 1..31", s.DayOfMonth))
	}
	return nil
}

// YearlySchedule fires once per year on a fixed month and day.
type YearlySchedule struct {
	DayOfMonth int
	Month      int // 1-12
}

func (s YearlySchedule) schedule() {}

func (s YearlySchedule) Validate() error {
	if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
		return NewValidationError("schedule.dayOfMonth", fmt.Sprintf("%d out of range 1..31", s.DayOfMonth))
	}
	if s.Month < 1 || s.Month > 12 {
		return NewValidationError("schedule.month", fmt.Sprintf("%d out of range 1..12", s.Month))
	}
	return nil
}

// RecurringRule declares a periodic movement that is resolved into
// concrete occurrences on demand; the rule itself never appears in a
// month document.
type RecurringRule struct {
	ID         string
	Name       string
	Direction  Direction
	Amount     Money
	CategoryID string
	Schedule   Schedule
	Payment    PaymentMode
	IsActive   bool
}

func (r RecurringRule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return NewValidationError("id", "empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "empty")
	}
	if err := r.Direction.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return NewValidationError("categoryId", "empty")
	}
	if r.Schedule == nil {
		return NewValidationError("schedule", "missing")
	}
	if err := r.Schedule.Validate(); err != nil {
		return err
	}
	return r.Payment.Validate()
}

const (
	scheduleMonthly = "monthly"
	scheduleYearly  = "yearly"
)

type ruleJSON struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Direction  Direction    `json:"direction"`
	Amount     Money        `json:"amount"`
	CategoryID string       `json:"categoryId"`
	Schedule   scheduleJSON `json:"schedule"`
	Payment    paymentJSON  `json:"payment"`
	IsActive   bool         `json:"isActive"`
}

type scheduleJSON struct {
	Type       string `json:"type"`
	DayOfMonth int    `json:"dayOfMonth"`
	Month      int    `json:"month,omitempty"`
}

type paymentJSON struct {
	Mode PaymentMode `json:"mode"`
}

// MarshalJSON encodes the schedule as a tagged object
// ({"type":"monthly",...} or {"type":"yearly",...}).
func (r RecurringRule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{
		ID:         r.ID,
		Name:       r.Name,
		Direction:  r.Direction,
		Amount:     r.Amount,
		CategoryID: r.CategoryID,
		Payment:    paymentJSON{Mode: r.Payment},
		IsActive:   r.IsActive,
	}
	switch s := r.Schedule.(type) {
	case MonthlySchedule:
		out.Schedule = scheduleJSON{Type: scheduleMonthly, DayOfMonth: s.DayOfMonth}
	case YearlySchedule:
		out.Schedule = scheduleJSON{Type: scheduleYearly, DayOfMonth: s.DayOfMonth, Month: s.Month}
	default:
		return nil, NewValidationError("schedule", "missing")
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged schedule back into the concrete type.
func (r *RecurringRule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	rule := RecurringRule{
		ID:         in.ID,
		Name:       in.Name,
		Direction:  in.Direction,
		Amount:     in.Amount,
		CategoryID: in.CategoryID,
		Payment:    in.Payment.Mode,
		IsActive:   in.IsActive,
	}
	switch in.Schedule.Type {
	case scheduleMonthly:
		rule.Schedule = MonthlySchedule{DayOfMonth: in.Schedule.DayOfMonth}
	case scheduleYearly:
		rule.Schedule = YearlySchedule{DayOfMonth: in.Schedule.DayOfMonth, Month: in.Schedule.Month}
	default:
		return NewValidationError("schedule.type", fmt.Sprintf("unknown schedule type %q", in.Schedule.Type))
	}
	*r = rule
	return nil
}
