package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smme_finmodel/pkg/core/assumption"
)

const tol = 1e-6

// bareModel is a monthly one-year model with every driver zeroed.
func bareModel() *assumption.ModelState {
	return assumption.NewModelState("Test").
		WithProfile(assumption.CompanyProfile{
			Name:         "Test",
			Currency:     "ZAR",
			StartDate:    assumption.NewDate(2025, time.January, 1),
			HorizonYears: 1,
			Frequency:    assumption.FrequencyMonthly,
		}).
		WithWorkingCapital(assumption.WorkingCapitalDriver{}).
		WithTax(assumption.TaxDriver{})
}

func assertBalanced(t *testing.T, r *Result) {
	t.Helper()
	for _, p := range r.Periods {
		bs := p.BalanceSheet
		assert.InDelta(t, bs.TotalAssets, bs.TotalLiabilities+bs.TotalEquity, tol, "period %d balances", p.Index+1)
		assert.InDelta(t, p.CashFlow.EndingCash, bs.Cash, tol, "period %d cash ties", p.Index+1)
	}
}

func TestGenerate_FlatRevenue(t *testing.T) {
	state := bareModel().WithRevenue(assumption.RevenueDriver{
		Segment: "Widgets", UnitPrice: 100, StartingVolume: 10, GrowthRates: make([]float64, 12),
	})

	r, err := NewEngine(Settings{}).Generate(state)
	require.NoError(t, err)
	require.Len(t, r.Periods, 12)

	for _, p := range r.Periods {
		assert.InDelta(t, 1000, p.IncomeStatement.Revenue, tol)
		assert.InDelta(t, 1000, p.IncomeStatement.NetIncome, tol)
	}
	last := r.Last().BalanceSheet
	assert.InDelta(t, 12000, last.Cash, tol)
	assert.InDelta(t, 12000, last.TotalAssets, tol)
	assert.InDelta(t, 0, last.TotalLiabilities, tol)
	assert.InDelta(t, 12000, last.TotalEquity, tol)
	assertBalanced(t, r)
}

func TestGenerate_StraightLineCapex(t *testing.T) {
	state := bareModel().WithCapex(assumption.CapexDriver{
		AssetClass: "Equipment", Amount: 1200, PurchasePeriod: 1, UsefulLife: 12, Method: assumption.StraightLine,
	})

	r, err := NewEngine(Settings{}).Generate(state)
	require.NoError(t, err)

	for _, p := range r.Periods {
		assert.InDelta(t, 100, p.IncomeStatement.Depreciation, tol)
	}
	last := r.Last().BalanceSheet
	assert.InDelta(t, 1200, last.AccumulatedDepreciation, tol)
	assert.InDelta(t, 0, last.PPENet, tol)
	assert.InDelta(t, -1200, r.Periods[0].CashFlow.Capex, tol)
	assertBalanced(t, r)
}

func TestGenerate_BulletDebt(t *testing.T) {
	state := bareModel().WithDebt(assumption.DebtDriver{
		Name: "Term loan", Principal: 10000, Rate: 12, TenorYears: 1, Amortization: assumption.AmortizationBullet,
	})

	r, err := NewEngine(Settings{}).Generate(state)
	require.NoError(t, err)

	for i, p := range r.Periods {
		assert.InDelta(t, 100, p.IncomeStatement.InterestExpense, tol)
		if i < 11 {
			assert.InDelta(t, 0, p.CashFlow.DebtRepayments, tol)
		}
	}
	assert.InDelta(t, 10000, r.Periods[0].CashFlow.DebtDraws, tol)
	assert.InDelta(t, -10000, r.Periods[11].CashFlow.DebtRepayments, tol)
	assert.InDelta(t, 0, r.Last().BalanceSheet.Debt, tol)
	assertBalanced(t, r)
}

func TestGenerate_BalancesWithoutDebtOrCapex(t *testing.T) {
	base := assumption.NewModelState("Shop").WithProfile(assumption.CompanyProfile{
		Name: "Shop", Currency: "ZAR", StartDate: assumption.NewDate(2025, time.March, 1),
		HorizonYears: 2, Frequency: assumption.FrequencyQuarterly,
	})
	growth := []float64{5, 5, 5, 5, -3, 2, 8, 0}

	tests := []struct {
		name  string
		state *assumption.ModelState
	}{
		{"percent cogs with fixed opex", base.
			WithRevenue(assumption.RevenueDriver{Segment: "A", UnitPrice: 50, StartingVolume: 400, GrowthRates: growth}).
			WithCOGS(assumption.COGSDriver{Basis: assumption.PercentOfRevenue{Percent: 45}}).
			WithOpex(assumption.OpexDriver{Name: "Rent", Basis: assumption.FixedAmount{Annual: 24000}},
				assumption.OpexDriver{Name: "Marketing", Basis: assumption.PercentOfRevenue{Percent: 4}})},
		{"unit cost with over-time revenue", base.
			WithRevenue(
				assumption.RevenueDriver{Segment: "A", UnitPrice: 50, StartingVolume: 400, GrowthRates: growth},
				assumption.RevenueDriver{Segment: "B", UnitPrice: 900, StartingVolume: 10, GrowthRates: growth,
					Recognition: assumption.RecognitionOverTime, RecognitionPeriods: 4}).
			WithCOGS(assumption.COGSDriver{Basis: assumption.UnitCost{Default: 20, BySegment: map[string]float64{"B": 300}}})},
		{"losses, equity and dividends", base.
			WithRevenue(assumption.RevenueDriver{Segment: "A", UnitPrice: 10, StartingVolume: 100, GrowthRates: growth}).
			WithOpex(assumption.OpexDriver{Name: "Salaries", Basis: assumption.FixedAmount{Annual: 8000}}).
			WithEquity(assumption.EquityDriver{Amount: 5000, Period: 1}).
			WithDividends(assumption.DividendPolicy{PayoutPercent: 30}).
			WithAdjustments(assumption.RetainedEarningsAdjustment{Period: 3, Amount: -250}).
			WithTax(assumption.TaxDriver{RatePercent: 27, NOLCarryforward: 1000})},
		{"historical opening balances", base.
			WithProfile(assumption.CompanyProfile{Name: "Shop", StartDate: assumption.NewDate(2025, time.March, 1),
				HorizonYears: 2, Frequency: assumption.FrequencyQuarterly, HasHistoricalData: true}).
			WithOpening(assumption.OpeningBalances{Cash: 1000, AccountsReceivable: 500, Inventory: 200,
				AccountsPayable: 300, PaidInCapital: 1000, RetainedEarnings: 400}).
			WithRevenue(assumption.RevenueDriver{Segment: "A", UnitPrice: 50, StartingVolume: 100, GrowthRates: growth}).
			WithCOGS(assumption.COGSDriver{Basis: assumption.PercentOfRevenue{Percent: 60}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewEngine(Settings{}).Generate(tt.state)
			require.NoError(t, err)
			assertBalanced(t, r)
			for i := range r.Periods {
				prior := r.PriorBalanceSheet(i)
				assert.InDelta(t, prior.Cash, r.Periods[i].CashFlow.BeginningCash, tol)
			}
		})
	}
}

func TestGenerate_FullModelBalances(t *testing.T) {
	capexIdx := 0
	state := assumption.NewModelState("Full").
		WithProfile(assumption.CompanyProfile{Name: "Full", StartDate: assumption.NewDate(2025, time.January, 1),
			HorizonYears: 3, Frequency: assumption.FrequencyMonthly, HasHistoricalData: true}).
		WithOpening(assumption.OpeningBalances{Cash: 2000, PaidInCapital: 1500, RetainedEarnings: 1500}).
		WithPPE(assumption.PPELineItem{AssetClass: "Fitout", Cost: 3000, AccumulatedDepreciation: 1000, RemainingLife: 20, Method: assumption.DoubleDecliningBalance}).
		WithRevenue(assumption.RevenueDriver{Segment: "Main", UnitPrice: 200, StartingVolume: 50, GrowthRates: fill(36, 1)}).
		WithCOGS(assumption.COGSDriver{Basis: assumption.PercentOfRevenue{Percent: 40}}).
		WithOpex(assumption.OpexDriver{Name: "Rent", Basis: assumption.FixedAmount{Annual: 36000}}).
		WithCapex(
			assumption.CapexDriver{AssetClass: "Oven", Amount: 6000, PurchasePeriod: 2, UsefulLife: 24, Method: assumption.DoubleDecliningBalance},
			assumption.CapexDriver{AssetClass: "Van", Amount: 9000, PurchasePeriod: 1, UsefulLife: 36, Method: assumption.StraightLine,
				DisposalPeriod: 20, DisposalProceeds: 5000}).
		WithDebt(
			assumption.DebtDriver{Name: "Equipment loan", Principal: 4000, Rate: 11, TenorYears: 2, Amortization: assumption.AmortizationAnnuity,
				UseOfProceeds: assumption.ProceedsCapex, CapexIndex: &capexIdx, DrawPeriod: 1},
			assumption.DebtDriver{Name: "Overdraft", Principal: 3000, Rate: 14, TenorYears: 1, Amortization: assumption.AmortizationBullet,
				UseOfProceeds: assumption.ProceedsWorkingCapital, DrawPeriod: 6},
			assumption.DebtDriver{Name: "Legacy", Principal: 1000, Rate: 9, TenorYears: 1, Amortization: assumption.AmortizationAnnuity, Existing: true}).
		WithAssets(assumption.AssetDriver{Description: "Owner vehicle", Amount: 2500, Period: 4, UsefulLife: 30, Method: assumption.StraightLine}).
		WithDividends(assumption.DividendPolicy{PayoutPercent: 20})

	r, err := NewEngine(Settings{DaysInYear: 360}).Generate(state)
	require.NoError(t, err)

	opening := r.Opening
	assert.InDelta(t, opening.TotalAssets, opening.TotalLiabilities+opening.TotalEquity, tol)
	assertBalanced(t, r)

	assert.InDelta(t, 10000, r.Periods[1].CashFlow.Capex*-1, tol, "oven cost includes financed top-up")
	assert.InDelta(t, 2500, r.Periods[3].CashFlow.NonCashAssetContributions, tol)
	assert.InDelta(t, -3000, r.Periods[5].CashFlow.ChangeInFundedWC, tol)
	assert.Greater(t, r.Periods[19].IncomeStatement.GainOnDisposal, 0.0)
	assert.InDelta(t, 5000, r.Periods[19].CashFlow.DisposalProceeds, tol)
}

func TestGenerate_TaxUsesLossCarryforward(t *testing.T) {
	state := assumption.NewModelState("Tax").
		WithProfile(assumption.CompanyProfile{StartDate: assumption.NewDate(2025, time.January, 1), HorizonYears: 3, Frequency: assumption.FrequencyAnnual}).
		WithWorkingCapital(assumption.WorkingCapitalDriver{}).
		WithRevenue(assumption.RevenueDriver{Segment: "A", UnitPrice: 1, StartingVolume: 900, GrowthRates: []float64{0, 100, 0}}).
		WithOpex(assumption.OpexDriver{Name: "Fixed", Basis: assumption.FixedAmount{Annual: 1000}}).
		WithTax(assumption.TaxDriver{RatePercent: 25, NOLCarryforward: 50})

	r, err := NewEngine(Settings{}).Generate(state)
	require.NoError(t, err)

	p1, p2, p3 := r.Periods[0].IncomeStatement, r.Periods[1].IncomeStatement, r.Periods[2].IncomeStatement
	assert.InDelta(t, -100, p1.EBT, tol)
	assert.InDelta(t, 0, p1.TaxExpense, tol)
	assert.InDelta(t, 150, r.Periods[0].BalanceSheet.NOLRemaining, tol)

	assert.InDelta(t, 800, p2.EBT, tol)
	assert.InDelta(t, 150, p2.NOLUtilised, tol)
	assert.InDelta(t, 650, p2.TaxableIncome, tol)
	assert.InDelta(t, 162.5, p2.TaxExpense, tol)

	assert.InDelta(t, 0, p3.NOLUtilised, tol)
	assert.InDelta(t, 200, p3.TaxExpense, tol)
	assertBalanced(t, r)
}

func TestGenerate_OverTimeRecognition(t *testing.T) {
	state := bareModel().WithRevenue(assumption.RevenueDriver{
		Segment: "Subscriptions", UnitPrice: 1200, StartingVolume: 1, GrowthRates: make([]float64, 12),
		Recognition: assumption.RecognitionOverTime, RecognitionPeriods: 12,
	})

	r, err := NewEngine(Settings{}).Generate(state)
	require.NoError(t, err)

	assert.InDelta(t, 100, r.Periods[0].IncomeStatement.Revenue, tol)
	assert.InDelta(t, 1200, r.Periods[11].IncomeStatement.Revenue, tol)
	assert.InDelta(t, 1100, r.Periods[0].BalanceSheet.DeferredRevenue, tol)
	assert.InDelta(t, 1200, r.Periods[0].BalanceSheet.Cash, tol)
	assertBalanced(t, r)
}

func TestGenerate_Idempotent(t *testing.T) {
	state := bareModel().
		WithRevenue(assumption.RevenueDriver{Segment: "A", UnitPrice: 99.5, StartingVolume: 13, GrowthRates: fill(12, 3.3)}).
		WithCOGS(assumption.COGSDriver{Basis: assumption.PercentOfRevenue{Percent: 37}}).
		WithCapex(assumption.CapexDriver{AssetClass: "PC", Amount: 777, PurchasePeriod: 3, UsefulLife: 7, Method: assumption.DoubleDecliningBalance}).
		WithTax(assumption.TaxDriver{RatePercent: 27})
	engine := NewEngine(Settings{})

	first, err := engine.Generate(state)
	require.NoError(t, err)
	second, err := engine.Generate(state)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_Errors(t *testing.T) {
	engine := NewEngine(Settings{})

	_, err := engine.Generate(nil)
	assert.Error(t, err)

	bad := bareModel().WithProfile(assumption.CompanyProfile{HorizonYears: 1, Frequency: "weekly"})
	_, err = engine.Generate(bad)
	assert.ErrorContains(t, err, "weekly")

	idx := 5
	broken := bareModel().WithDebt(assumption.DebtDriver{Principal: 10, UseOfProceeds: assumption.ProceedsCapex, CapexIndex: &idx})
	_, err = engine.Generate(broken)
	assert.Error(t, err)
}

func TestSkeletons_CoverStatements(t *testing.T) {
	r, err := NewEngine(Settings{}).Generate(bareModel().WithRevenue(assumption.RevenueDriver{
		Segment: "A", UnitPrice: 10, StartingVolume: 1, GrowthRates: make([]float64, 12),
	}))
	require.NoError(t, err)

	for _, sk := range StandardSkeletons() {
		require.NotEmpty(t, sk.Lines)
		for _, line := range sk.Lines {
			assert.NotPanics(t, func() { line.Value(&r.Periods[0]) }, sk.Title+"/"+line.ID)
		}
	}
	assert.InDelta(t, 10, IncomeStatementSkeleton().Lines[0].Value(&r.Periods[0]), tol)
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
