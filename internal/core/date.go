package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Date is a calendar day with no time-of-day component, stored in UTC.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// MakeDate builds a Date and rejects days that do not exist on the
// calendar (e.g. February 30). No clamping is performed.
func MakeDate(year, month, day int) (Date, error) {
	if month < 1 || month > 12 {
		return Date{}, NewValidationError("date", fmt.Sprintf("month %d out of range", month))
	}
	if day < 1 || day > 31 {
		return Date{}, NewValidationError("date", fmt.Sprintf("day %d out of range", day))
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, NewValidationError("date", fmt.Sprintf("%04d-%02d-%02d is not a calendar date", year, month, day))
	}
	return Date{Time: t}, nil
}

// DateOf truncates a time.Time to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Time: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("%q is not YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return NewValidationError("date", "is zero")
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as 1..12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// MonthKeyOf returns the calendar month this date belongs to.
func (d Date) MonthKeyOf() MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// AddMonths shifts the date by n months keeping the day of month. If the
// resulting day does not exist in the target month the shift fails; no
// clamping is performed.
func (d Date) AddMonths(n int) (Date, error) {
	mk := d.MonthKeyOf().AddMonths(n)
	return MakeDate(mk.Year, mk.Month, d.Day())
}

func (d Date) String() string { return d.Format(dateLayout) }

// Equal compares calendar days.
func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

// MarshalJSON encodes as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON decodes from "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return NewValidationError("date", "not a JSON string")
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthKey identifies a month of a year, rendered as YYYY-MM.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

var (
	monthKeyPattern = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[0-2])$`)
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
)

// ParseMonthKey parses a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	m := monthKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return MonthKey{}, NewValidationError("month", fmt.Sprintf("%q is not YYYY-MM", s))
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return MonthKey{Year: year, Month: month}, nil
}

// ParseYear parses a YYYY string.
func ParseYear(s string) (int, error) {
	if !yearPattern.MatchString(s) {
		return 0, NewValidationError("year", fmt.Sprintf("%q is not YYYY", s))
	}
	return strconv.Atoi(s)
}

func (k MonthKey) Validate() error {
	if k.Month < 1 || k.Month > 12 {
		return NewValidationError("month", fmt.Sprintf("month %d out of range", k.Month))
	}
	if k.Year < 1 {
		return NewValidationError("month", fmt.Sprintf("year %d out of range", k.Year))
	}
	return nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// AddMonths shifts the key by n months, carrying years in both directions.
func (k MonthKey) AddMonths(n int) MonthKey {
	total := k.Year*12 + (k.Month - 1) + n
	return MonthKey{Year: total / 12, Month: total%12 + 1}
}

// MarshalJSON encodes as "YYYY-MM".
func (k MonthKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes from "YYYY-MM".
func (k *MonthKey) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return NewValidationError("month", "not a JSON string")
	}
	parsed, err := ParseMonthKey(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
