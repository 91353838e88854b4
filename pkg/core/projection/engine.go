package projection

import (
	"errors"
	"fmt"
	"math"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/schedule"
)

// Settings are engine conventions that are not part of the model document.
type Settings struct {
	DaysInYear float64
}

// Engine integrates the three statements. It holds no state between calls;
// Generate is a pure function of the snapshot it is given.
type Engine struct {
	settings Settings
}

// NewEngine creates a statement engine.
func NewEngine(settings Settings) *Engine {
	if settings.DaysInYear <= 0 {
		settings.DaysInYear = schedule.DefaultDaysInYear
	}
	return &Engine{settings: settings}
}

// Settings returns the engine conventions.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Generate builds every supporting schedule and folds the periods left to
// right. Period N opens on the closing balances of period N-1.
//
// Identity breaches are not errors here: the result is returned as computed
// and the consistency checker reports them.
func (e *Engine) Generate(state *assumption.ModelState) (*Result, error) {
	if state == nil {
		return nil, errors.New("generate: nil model")
	}
	g := schedule.NewGrid(state.Profile, e.settings.DaysInYear)
	if g.PeriodsPerYear == 0 {
		return nil, fmt.Errorf("generate: unknown frequency '%s'", state.Profile.Frequency)
	}
	if g.Periods < 1 {
		return nil, fmt.Errorf("generate: horizon of %d years has no periods", state.Profile.HorizonYears)
	}

	// -------------------------------------------------------------------------
	// Period drivers (independent of balances)
	// -------------------------------------------------------------------------
	segments := make([]SegmentRevenue, len(state.Revenue))
	for i, d := range state.Revenue {
		segments[i] = PriceVolumeStrategy{Driver: d}.Build(g.Periods)
	}
	cogsStrategy, err := COGSStrategy(state.COGS.Basis)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	opexStrategies := make([]LineStrategy, len(state.Opex))
	for i, o := range state.Opex {
		if opexStrategies[i], err = OpexStrategy(o.Basis); err != nil {
			return nil, fmt.Errorf("generate: opex '%s': %w", o.Name, err)
		}
	}

	lines := make([]IncomeStatement, g.Periods)
	revenue := make([]float64, g.Periods)
	cogs := make([]float64, g.Periods)
	deferred := make([]float64, g.Periods)
	for t := 0; t < g.Periods; t++ {
		ctx := Context{Period: t, PeriodsPerYear: g.PeriodsPerYear}
		is := IncomeStatement{}
		for _, seg := range segments {
			is.RevenueBySegment = append(is.RevenueBySegment, LineAmount{Name: seg.Segment, Amount: seg.Recognised[t]})
			is.Revenue += seg.Recognised[t]
			ctx.Volumes = append(ctx.Volumes, SegmentVolume{Segment: seg.Segment, Volume: seg.RecognisedVolume[t]})
			deferred[t] += seg.Deferred[t]
		}
		ctx.Revenue = is.Revenue
		is.COGS = cogsStrategy.Calculate(ctx)
		is.GrossProfit = is.Revenue - is.COGS
		for i, s := range opexStrategies {
			amount := s.Calculate(ctx)
			is.OpexLines = append(is.OpexLines, LineAmount{Name: state.Opex[i].Name, Amount: amount})
			is.Opex += amount
		}
		is.EBITDA = is.GrossProfit - is.Opex
		lines[t] = is
		revenue[t], cogs[t] = is.Revenue, is.COGS
	}

	// -------------------------------------------------------------------------
	// Schedules
	// -------------------------------------------------------------------------
	funding, err := schedule.AllocateProceeds(g, state.Debt, state.Equity, len(state.Capex))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	fixed := schedule.BuildFixedAssets(g, state.Capex, state.PPE, state.Assets, funding.CapexTopUps)
	debt := schedule.BuildDebt(g, state.Debt)
	equityPlan := schedule.PlanEquity(g, state.Equity, state.Assets, state.Adjustments, state.Dividends)

	opening := e.openingBalanceSheet(state, fixed, debt)
	wc := schedule.BuildWorkingCapital(g, state.WorkingCapital, revenue, cogs, funding.WorkingCapital, schedule.WorkingCapitalBalances{
		AccountsReceivable: opening.AccountsReceivable,
		Inventory:          opening.Inventory,
		AccountsPayable:    opening.AccountsPayable,
	})

	result := &Result{
		ModelName: state.Name,
		Currency:  state.Profile.Currency,
		Frequency: state.Profile.Frequency,
		Opening:   opening,
		Periods:   make([]PeriodStatements, g.Periods),
	}
	equityRows := make([]schedule.EquityRow, g.Periods)

	// -------------------------------------------------------------------------
	// Fold
	// -------------------------------------------------------------------------
	prev := opening
	nol := math.Max(0, state.Tax.NOLCarryforward)
	for t := 0; t < g.Periods; t++ {
		is := lines[t]

		// Income statement below EBITDA
		is.Depreciation = fixed.Depreciation[t]
		is.EBIT = is.EBITDA - is.Depreciation
		is.InterestExpense = debt.Interest[t]
		is.GainOnDisposal = fixed.Gains[t]
		is.EBT = is.EBIT - is.InterestExpense + is.GainOnDisposal

		// Tax with loss carryforward
		is.NOLUtilised = math.Min(nol, math.Max(0, is.EBT))
		is.TaxableIncome = math.Max(0, is.EBT-is.NOLUtilised)
		nol -= is.NOLUtilised
		if is.EBT < 0 {
			nol += -is.EBT
		}
		is.TaxExpense = is.TaxableIncome * state.Tax.RatePercent / 100
		is.NetIncome = is.EBT - is.TaxExpense

		// Equity rollforward
		eq := equityPlan.Roll(t, schedule.EquityBalances{
			PaidInCapital:    prev.PaidInCapital,
			RetainedEarnings: prev.RetainedEarnings,
		}, is.NetIncome)
		equityRows[t] = eq

		// Cash flow
		w := wc[t]
		cf := CashFlowStatement{
			NetIncome:               is.NetIncome,
			Depreciation:            is.Depreciation,
			GainOnDisposal:          -is.GainOnDisposal,
			ChangeInReceivables:     -w.DeltaAR,
			ChangeInInventory:       -w.DeltaInventory,
			ChangeInPayables:        w.DeltaAP,
			ChangeInDeferredRevenue: deferred[t] - prev.DeferredRevenue,
			ChangeInFundedWC:        -w.DeltaFunded,

			Capex:            -fixed.Capex[t],
			DisposalProceeds: fixed.DisposalProceeds[t],

			DebtDraws:        debt.Draws[t],
			DebtRepayments:   -debt.Principal[t],
			EquityInjections: eq.Injections,
			Dividends:        -eq.Dividends,
			OtherEquity:      eq.Adjustments,

			BeginningCash:             prev.Cash,
			NonCashAssetContributions: fixed.Contributions[t],
		}
		cf.CFO = cf.NetIncome + cf.Depreciation + cf.GainOnDisposal +
			cf.ChangeInReceivables + cf.ChangeInInventory + cf.ChangeInPayables +
			cf.ChangeInDeferredRevenue + cf.ChangeInFundedWC
		cf.CFI = cf.Capex + cf.DisposalProceeds
		cf.CFF = cf.DebtDraws + cf.DebtRepayments + cf.EquityInjections + cf.Dividends + cf.OtherEquity
		cf.NetChange = cf.CFO + cf.CFI + cf.CFF
		cf.EndingCash = cf.BeginningCash + cf.NetChange

		// Balance sheet
		bs := BalanceSheet{
			Cash:                    cf.EndingCash,
			AccountsReceivable:      w.AccountsReceivable,
			Inventory:               w.Inventory,
			FundedWorkingCapital:    w.FundedWorkingCapital,
			PPEGross:                fixed.Gross[t],
			AccumulatedDepreciation: fixed.Accumulated[t],
			AccountsPayable:         w.AccountsPayable,
			DeferredRevenue:         deferred[t],
			Debt:                    debt.Closing[t],
			PaidInCapital:           eq.Closing.PaidInCapital,
			RetainedEarnings:        eq.Closing.RetainedEarnings,
			NOLRemaining:            nol,
		}
		bs.totals()

		result.Periods[t] = PeriodStatements{
			Index:           t,
			Label:           state.Profile.PeriodLabel(t),
			IncomeStatement: is,
			BalanceSheet:    bs,
			CashFlow:        cf,
		}
		prev = bs
	}

	result.Schedules = Schedules{
		FixedAssets:    fixed,
		Debt:           debt,
		WorkingCapital: wc,
		Equity:         equityRows,
		Funding:        funding,
	}
	return result, nil
}

// openingBalanceSheet assembles the position before period 1. Historical
// balances are only read when the profile says they exist; opening PPE and
// existing loans always come from their own line items.
func (e *Engine) openingBalanceSheet(state *assumption.ModelState, fixed schedule.FixedAssets, debt schedule.DebtSchedule) BalanceSheet {
	bs := BalanceSheet{
		PPEGross:                fixed.OpeningGross,
		AccumulatedDepreciation: fixed.OpeningAccumulated,
		Debt:                    debt.OpeningBalance,
		NOLRemaining:            math.Max(0, state.Tax.NOLCarryforward),
	}
	if state.Profile.HasHistoricalData {
		o := state.Opening
		bs.Cash = o.Cash
		bs.AccountsReceivable = o.AccountsReceivable
		bs.Inventory = o.Inventory
		bs.AccountsPayable = o.AccountsPayable
		bs.PaidInCapital = o.PaidInCapital
		bs.RetainedEarnings = o.RetainedEarnings
	}
	bs.totals()
	return bs
}
