package schedule

import (
	"math"

	"smme_finmodel/pkg/core/assumption"
)

// EquityPlan holds the contributions known before the fold runs.
type EquityPlan struct {
	CashInjections []float64
	InKind         []float64
	Adjustments    []float64
	PayoutPercent  float64
}

// PlanEquity places cash injections, in-kind asset contributions and
// retained-earnings adjustments on the grid. Items outside the horizon are
// dropped.
func PlanEquity(g Grid, equity []assumption.EquityDriver, assets []assumption.AssetDriver, adjustments []assumption.RetainedEarningsAdjustment, dividends assumption.DividendPolicy) EquityPlan {
	plan := EquityPlan{
		CashInjections: make([]float64, g.Periods),
		InKind:         make([]float64, g.Periods),
		Adjustments:    make([]float64, g.Periods),
		PayoutPercent:  dividends.PayoutPercent,
	}
	for _, e := range equity {
		if i := g.Index(e.Date, e.Period); g.InHorizon(i) {
			plan.CashInjections[i] += e.Amount
		}
	}
	for _, a := range assets {
		if i := g.Index(a.Date, a.Period); g.InHorizon(i) {
			plan.InKind[i] += a.Amount
		}
	}
	for _, adj := range adjustments {
		if i := g.Index(nil, adj.Period); g.InHorizon(i) {
			plan.Adjustments[i] += adj.Amount
		}
	}
	return plan
}

// EquityBalances are the closing equity accounts.
type EquityBalances struct {
	PaidInCapital    float64
	RetainedEarnings float64
}

// Total is paid-in capital plus retained earnings.
func (b EquityBalances) Total() float64 {
	return b.PaidInCapital + b.RetainedEarnings
}

// EquityRow is one period of the rollforward.
type EquityRow struct {
	Opening     EquityBalances
	Injections  float64
	InKind      float64
	NetIncome   float64
	Dividends   float64
	Adjustments float64
	Closing     EquityBalances
}

// Roll advances equity by one period:
// RE_end = RE_begin + NI - Dividends + Adjustments. Dividends are a share of
// positive net income only.
func (p EquityPlan) Roll(i int, opening EquityBalances, netIncome float64) EquityRow {
	row := EquityRow{
		Opening:     opening,
		Injections:  at(p.CashInjections, i),
		InKind:      at(p.InKind, i),
		NetIncome:   netIncome,
		Dividends:   math.Max(0, netIncome) * p.PayoutPercent / 100,
		Adjustments: at(p.Adjustments, i),
	}
	row.Closing = EquityBalances{
		PaidInCapital:    opening.PaidInCapital + row.Injections + row.InKind,
		RetainedEarnings: opening.RetainedEarnings + netIncome - row.Dividends + row.Adjustments,
	}
	return row
}
