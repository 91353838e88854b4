package calc

import (
	"fmt"
	"math"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/projection"
)

// =============================================================================
// OUTPUT METRICS
// =============================================================================

// FreeCashFlow is CFO plus capex (capex carries its cash sign) per period.
func FreeCashFlow(r *projection.Result) []float64 {
	out := make([]float64, len(r.Periods))
	for i, p := range r.Periods {
		out[i] = p.CashFlow.CFO + p.CashFlow.Capex
	}
	return out
}

func sum(r *projection.Result, f func(p *projection.PeriodStatements) float64) float64 {
	total := 0.0
	for i := range r.Periods {
		total += f(&r.Periods[i])
	}
	return total
}

// Metric evaluates a named output metric. discountRate (annual percent) is
// only read by NPV.
func Metric(r *projection.Result, m assumption.Metric, discountRate float64) (float64, error) {
	if r == nil || len(r.Periods) == 0 {
		return 0, fmt.Errorf("metric %s: empty result", m)
	}
	last := r.Last()
	switch m {
	case assumption.MetricTotalRevenue:
		return sum(r, func(p *projection.PeriodStatements) float64 { return p.IncomeStatement.Revenue }), nil
	case assumption.MetricTotalNetIncome:
		return sum(r, func(p *projection.PeriodStatements) float64 { return p.IncomeStatement.NetIncome }), nil
	case assumption.MetricTotalEBITDA:
		return sum(r, func(p *projection.PeriodStatements) float64 { return p.IncomeStatement.EBITDA }), nil
	case assumption.MetricEndingCash:
		return last.BalanceSheet.Cash, nil
	case assumption.MetricEndingEquity:
		return last.BalanceSheet.TotalEquity, nil
	case assumption.MetricMinimumCash:
		low := math.Inf(1)
		for _, p := range r.Periods {
			low = math.Min(low, p.BalanceSheet.Cash)
		}
		return low, nil
	case assumption.MetricNPV:
		return NPV(FreeCashFlow(r), discountRate, r.Frequency.PeriodsPerYear()), nil
	default:
		return 0, fmt.Errorf("unknown metric '%s'", m)
	}
}

// Summary holds the headline figures of a run.
type Summary struct {
	TotalRevenue    float64 `json:"totalRevenue"`
	TotalEBITDA     float64 `json:"totalEbitda"`
	TotalNetIncome  float64 `json:"totalNetIncome"`
	EndingCash      float64 `json:"endingCash"`
	MinimumCash     float64 `json:"minimumCash"`
	EndingEquity    float64 `json:"endingEquity"`
	EndingDebt      float64 `json:"endingDebt"`
	NPV             float64 `json:"npv"`
	GrossMargin     float64 `json:"grossMargin"`
	EBITDAMargin    float64 `json:"ebitdaMargin"`
	NetMargin       float64 `json:"netMargin"`
	RevenueCAGR     float64 `json:"revenueCagr"`
	CurrentRatio    float64 `json:"currentRatio"`
	DebtToEquity    float64 `json:"debtToEquity"`
	InterestCover   float64 `json:"interestCover"`
	CumulativeFCF   float64 `json:"cumulativeFcf"`
	MinimumCashFrom string  `json:"minimumCashPeriod,omitempty"`
}

// Summarize computes the headline figures. Ratios use the final period's
// balance sheet and horizon totals for flows.
func Summarize(r *projection.Result, discountRate float64) Summary {
	var s Summary
	if r == nil || len(r.Periods) == 0 {
		return s
	}
	var grossProfit, ebit, interest float64
	s.MinimumCash = math.Inf(1)
	for _, p := range r.Periods {
		is := p.IncomeStatement
		s.TotalRevenue += is.Revenue
		s.TotalEBITDA += is.EBITDA
		s.TotalNetIncome += is.NetIncome
		grossProfit += is.GrossProfit
		ebit += is.EBIT
		interest += is.InterestExpense
		if p.BalanceSheet.Cash < s.MinimumCash {
			s.MinimumCash = p.BalanceSheet.Cash
			s.MinimumCashFrom = p.Label
		}
	}
	last := r.Last().BalanceSheet
	s.EndingCash = last.Cash
	s.EndingEquity = last.TotalEquity
	s.EndingDebt = last.Debt

	fcf := FreeCashFlow(r)
	for _, f := range fcf {
		s.CumulativeFCF += f
	}
	ppy := r.Frequency.PeriodsPerYear()
	s.NPV = NPV(fcf, discountRate, ppy)

	s.GrossMargin = Margin(grossProfit, s.TotalRevenue)
	s.EBITDAMargin = Margin(s.TotalEBITDA, s.TotalRevenue)
	s.NetMargin = Margin(s.TotalNetIncome, s.TotalRevenue)
	s.CurrentRatio = CurrentRatio(last.TotalCurrentAssets, last.TotalCurrentLiabilities)
	s.DebtToEquity = DebtToEquity(last.Debt, last.TotalEquity)
	s.InterestCover = InterestCoverageRatio(ebit, interest)
	s.RevenueCAGR = revenueCAGR(r, ppy)
	return s
}

// revenueCAGR compares the first and last full years of revenue.
func revenueCAGR(r *projection.Result, ppy int) float64 {
	if ppy < 1 {
		return 0
	}
	years := len(r.Periods) / ppy
	if years < 2 {
		return 0
	}
	annual := func(y int) float64 {
		total := 0.0
		for _, p := range r.Periods[y*ppy : (y+1)*ppy] {
			total += p.IncomeStatement.Revenue
		}
		return total
	}
	return CAGR(annual(0), annual(years-1), float64(years-1))
}
