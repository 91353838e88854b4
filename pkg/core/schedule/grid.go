// Package schedule builds the supporting schedules the statement integrator
// folds over: fixed assets and depreciation, debt amortization, working
// capital and the equity rollforward. Every builder is a pure function of its
// inputs and the period grid.
package schedule

import (
	"math"

	"smme_finmodel/pkg/core/assumption"
)

// DefaultDaysInYear is the day-count convention used when none is configured.
const DefaultDaysInYear = 365.0

// Grid is the forecast period grid every schedule is laid out on.
type Grid struct {
	Periods        int
	PeriodsPerYear int
	DaysPerPeriod  float64
	Profile        assumption.CompanyProfile
}

// NewGrid derives the grid from the company profile.
func NewGrid(p assumption.CompanyProfile, daysInYear float64) Grid {
	if daysInYear <= 0 {
		daysInYear = DefaultDaysInYear
	}
	return Grid{
		Periods:        p.Periods(),
		PeriodsPerYear: p.Frequency.PeriodsPerYear(),
		DaysPerPeriod:  p.DaysPerPeriod(daysInYear),
		Profile:        p,
	}
}

// Index resolves a date-or-period reference to a 0-based period.
func (g Grid) Index(date *assumption.Date, period int) int {
	return g.Profile.PeriodIndex(date, period)
}

// InHorizon reports whether a 0-based index lies on the grid.
func (g Grid) InHorizon(i int) bool {
	return i >= 0 && i < g.Periods
}

// YearsToPeriods converts a tenor in years to whole periods, at least one.
func (g Grid) YearsToPeriods(years float64) int {
	n := int(math.Round(years * float64(g.PeriodsPerYear)))
	if n < 1 {
		return 1
	}
	return n
}

// Sum adds the per-period values.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
