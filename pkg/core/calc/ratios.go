// Package calc derives scalar metrics and ratios from generated statements.
// The sensitivity sweep records one metric per cell; the report prints the
// key figures.
package calc

import "math"

// =============================================================================
// RATIOS
// =============================================================================

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// Margin returns value as a percentage of revenue.
func Margin(value, revenue float64) float64 {
	return safeDiv(value, revenue) * 100
}

// CurrentRatio = Current Assets / Current Liabilities
func CurrentRatio(currentAssets, currentLiabilities float64) float64 {
	return safeDiv(currentAssets, currentLiabilities)
}

// DebtToEquity = Debt / Total Equity
func DebtToEquity(debt, totalEquity float64) float64 {
	return safeDiv(debt, totalEquity)
}

// InterestCoverageRatio = EBIT / Interest Expense
func InterestCoverageRatio(ebit, interestExpense float64) float64 {
	return safeDiv(ebit, interestExpense)
}

// GrowthRate returns period-over-period growth in percent.
func GrowthRate(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (current - prior) / math.Abs(prior) * 100
}

// CAGR = ((End / Start) ^ (1/years)) - 1, in percent.
func CAGR(startValue, endValue, years float64) float64 {
	if startValue <= 0 || endValue < 0 || years <= 0 {
		return 0
	}
	return (math.Pow(endValue/startValue, 1.0/years) - 1) * 100
}

// NPV discounts per-period cash flows at an annual rate (percent) compounded
// once per period. The first flow is discounted one full period.
func NPV(flows []float64, annualRate float64, periodsPerYear int) float64 {
	if periodsPerYear < 1 {
		periodsPerYear = 1
	}
	r := annualRate / 100 / float64(periodsPerYear)
	total := 0.0
	factor := 1.0
	for _, f := range flows {
		factor /= 1 + r
		total += f * factor
	}
	return total
}
