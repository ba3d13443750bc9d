package billing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/billing/backend/internal/domain/shared"
)

// Period represents a billing period in YYYY-MM form
type Period struct {
	Year  int
	Month int
}

var periodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// ParsePeriod parses a YYYY-MM string into a Period
func ParsePeriod(s string) (Period, error) {
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Invalid period %q, expected YYYY-MM", s))
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Period{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Invalid month in period %q", s))
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the period containing the given time
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// String returns the YYYY-MM representation
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// IsZero returns true for the zero-value period
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// MarshalJSON renders the period in its YYYY-MM form
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a YYYY-MM string into the period
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Next returns the following calendar month
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// AddMonths returns the period n months after p
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Before reports whether p precedes other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// EndOfMonth returns the last day of the period's month
func (p Period) EndOfMonth() time.Time {
	firstOfNext := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// DueDate returns the given day of the period's month, clamped to the month's length
func (p Period) DueDate(day int) time.Time {
	last := p.EndOfMonth()
	if day > last.Day() {
		day = last.Day()
	}
	return time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, time.UTC)
}
