package assumption

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frequency is the length of one model period.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// PeriodsPerYear returns 12, 4 or 1, and 0 for an unknown frequency.
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencyAnnual:
		return 1
	}
	return 0
}

// Date is a calendar day. It accepts "2006-01-02" and RFC 3339 on input and
// writes "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a UTC date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date '%s'", s)
	}
	d.Time = t.UTC()
	return nil
}

// Periods is HorizonYears x PeriodsPerYear.
func (p CompanyProfile) Periods() int {
	if p.HorizonYears < 1 {
		return 0
	}
	return p.HorizonYears * p.Frequency.PeriodsPerYear()
}

// DaysPerPeriod applies the days-in-year convention to the frequency.
func (p CompanyProfile) DaysPerPeriod(daysInYear float64) float64 {
	ppy := p.Frequency.PeriodsPerYear()
	if ppy == 0 {
		return daysInYear
	}
	return daysInYear / float64(ppy)
}

// PeriodIndex resolves a driver's timing to a 0-based period index. A date
// wins over a 1-based period number; neither means the first period. Dates
// before the start map to the first period. The result may be beyond the
// horizon.
func (p CompanyProfile) PeriodIndex(date *Date, period int) int {
	if date != nil && !date.IsZero() {
		ppy := p.Frequency.PeriodsPerYear()
		if ppy == 0 {
			return 0
		}
		start := p.StartDate
		months := (date.Year()-start.Year())*12 + int(date.Month()) - int(start.Month())
		if months < 0 {
			return 0
		}
		return months / (12 / ppy)
	}
	if period < 1 {
		return 0
	}
	return period - 1
}

// PeriodStart returns the first day of the 0-based period.
func (p CompanyProfile) PeriodStart(index int) Date {
	ppy := p.Frequency.PeriodsPerYear()
	if ppy == 0 {
		return p.StartDate
	}
	return Date{p.StartDate.AddDate(0, index*(12/ppy), 0)}
}

// PeriodLabel renders a short column header such as "2025-03", "2025-Q2" or
// "FY2025".
func (p CompanyProfile) PeriodLabel(index int) string {
	start := p.PeriodStart(index)
	switch p.Frequency {
	case FrequencyMonthly:
		return start.Format("2006-01")
	case FrequencyQuarterly:
		return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
	default:
		return fmt.Sprintf("FY%d", start.Year())
	}
}
