package schedule

import (
	"fmt"
	"math"

	"smme_finmodel/pkg/core/assumption"
)

// LoanSchedule is the amortization table of one facility. Interest accrues
// on the opening balance plus any draw in the same period.
type LoanSchedule struct {
	Name         string
	Amortization assumption.Amortization
	Existing     bool
	DrawIndex    int
	TenorPeriods int
	PeriodicRate float64
	Payment      float64 // scheduled annuity payment; zero for bullet loans

	OpeningBalance float64 // balance before period 1, existing loans only

	Opening   []float64
	Draws     []float64
	Interest  []float64
	Principal []float64
	Payments  []float64
	Closing   []float64
}

// DebtSchedule aggregates every loan into per-period totals.
type DebtSchedule struct {
	Loans []LoanSchedule

	OpeningBalance float64
	Draws          []float64
	Interest       []float64
	Principal      []float64
	Closing        []float64
}

// AnnuityPayment solves the level payment that retires principal over n
// periods at the periodic rate. A zero rate repays in equal instalments.
func AnnuityPayment(principal, rate float64, n int) float64 {
	if n < 1 {
		return principal
	}
	if rate == 0 {
		return principal / float64(n)
	}
	return principal * rate / (1 - math.Pow(1+rate, -float64(n)))
}

// BuildDebt lays out every loan on the grid. Rates are annual percentages
// converted to a simple proportional periodic rate; tenors are converted from
// years to periods.
func BuildDebt(g Grid, debt []assumption.DebtDriver) DebtSchedule {
	ds := DebtSchedule{
		Draws:     make([]float64, g.Periods),
		Interest:  make([]float64, g.Periods),
		Principal: make([]float64, g.Periods),
		Closing:   make([]float64, g.Periods),
	}
	for i, d := range debt {
		loan := buildLoan(g, i, d)
		ds.OpeningBalance += loan.OpeningBalance
		for p := 0; p < g.Periods; p++ {
			ds.Draws[p] += loan.Draws[p]
			ds.Interest[p] += loan.Interest[p]
			ds.Principal[p] += loan.Principal[p]
			ds.Closing[p] += loan.Closing[p]
		}
		ds.Loans = append(ds.Loans, loan)
	}
	return ds
}

func buildLoan(g Grid, idx int, d assumption.DebtDriver) LoanSchedule {
	n := g.Periods
	name := d.Name
	if name == "" {
		name = fmt.Sprintf("debt[%d]", idx)
	}
	ppy := g.PeriodsPerYear
	if ppy < 1 {
		ppy = 1
	}
	loan := LoanSchedule{
		Name:         name,
		Amortization: d.Amortization,
		Existing:     d.Existing,
		DrawIndex:    g.Index(d.DrawDate, d.DrawPeriod),
		TenorPeriods: g.YearsToPeriods(d.TenorYears),
		PeriodicRate: d.Rate / 100 / float64(ppy),
		Opening:      make([]float64, n),
		Draws:        make([]float64, n),
		Interest:     make([]float64, n),
		Principal:    make([]float64, n),
		Payments:     make([]float64, n),
		Closing:      make([]float64, n),
	}
	if d.Existing {
		loan.DrawIndex = 0
		loan.OpeningBalance = d.Principal
	}
	if d.Amortization != assumption.AmortizationBullet {
		loan.Payment = AnnuityPayment(d.Principal, loan.PeriodicRate, loan.TenorPeriods)
	}

	balance := loan.OpeningBalance
	last := loan.DrawIndex + loan.TenorPeriods - 1
	for p := 0; p < n; p++ {
		loan.Opening[p] = balance
		if p == loan.DrawIndex && !d.Existing {
			loan.Draws[p] = d.Principal
			balance += d.Principal
		}
		if p >= loan.DrawIndex && balance > 0 {
			interest := balance * loan.PeriodicRate
			var principal float64
			switch {
			case p >= last:
				principal = balance
			case d.Amortization == assumption.AmortizationBullet:
				principal = 0
			default:
				principal = math.Min(loan.Payment-interest, balance)
			}
			loan.Interest[p] = interest
			loan.Principal[p] = principal
			loan.Payments[p] = interest + principal
			balance -= principal
		}
		loan.Closing[p] = balance
	}
	return loan
}
