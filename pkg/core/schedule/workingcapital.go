package schedule

import "smme_finmodel/pkg/core/assumption"

// WorkingCapitalBalances are period-end operating balances.
type WorkingCapitalBalances struct {
	AccountsReceivable   float64
	Inventory            float64
	AccountsPayable      float64
	FundedWorkingCapital float64
}

// Net is current operating assets less payables.
func (b WorkingCapitalBalances) Net() float64 {
	return b.AccountsReceivable + b.Inventory + b.FundedWorkingCapital - b.AccountsPayable
}

// WorkingCapitalRow is one period of the rollforward.
type WorkingCapitalRow struct {
	WorkingCapitalBalances
	DeltaAR        float64
	DeltaInventory float64
	DeltaAP        float64
	DeltaFunded    float64
}

// Change is the increase in net working capital, which consumes cash.
func (r WorkingCapitalRow) Change() float64 {
	return r.DeltaAR + r.DeltaInventory + r.DeltaFunded - r.DeltaAP
}

// BuildWorkingCapital derives AR from revenue and inventory/AP from COGS
// using days outstanding over the period length. funded carries proceeds
// earmarked for working capital; they accumulate as a separate asset.
func BuildWorkingCapital(g Grid, driver assumption.WorkingCapitalDriver, revenue, cogs, funded []float64, opening WorkingCapitalBalances) []WorkingCapitalRow {
	rows := make([]WorkingCapitalRow, g.Periods)
	prev := opening
	days := g.DaysPerPeriod
	for i := range rows {
		cur := WorkingCapitalBalances{FundedWorkingCapital: prev.FundedWorkingCapital}
		if days > 0 {
			cur.AccountsReceivable = at(revenue, i) * driver.DSO / days
			cur.Inventory = at(cogs, i) * driver.DIO / days
			cur.AccountsPayable = at(cogs, i) * driver.DPO / days
		}
		cur.FundedWorkingCapital += at(funded, i)

		rows[i] = WorkingCapitalRow{
			WorkingCapitalBalances: cur,
			DeltaAR:                cur.AccountsReceivable - prev.AccountsReceivable,
			DeltaInventory:         cur.Inventory - prev.Inventory,
			DeltaAP:                cur.AccountsPayable - prev.AccountsPayable,
			DeltaFunded:            cur.FundedWorkingCapital - prev.FundedWorkingCapital,
		}
		prev = cur
	}
	return rows
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
