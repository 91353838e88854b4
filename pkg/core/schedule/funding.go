package schedule

import (
	"fmt"

	"smme_finmodel/pkg/core/assumption"
)

// ProceedsEntry records where one financing inflow was applied.
type ProceedsEntry struct {
	Source     string
	Period     int
	Amount     float64
	Use        assumption.UseOfProceeds
	CapexIndex int
}

// Funding is the once-only allocation of debt and equity proceeds.
type Funding struct {
	// CapexTopUps adds financed cost to Capex[index].
	CapexTopUps map[int]float64
	// WorkingCapital holds the funded working-capital addition per period.
	WorkingCapital []float64
	Entries        []ProceedsEntry
}

// AllocateProceeds applies each draw or injection to its use-of-proceeds
// target in the draw period. Existing loans and draws outside the horizon
// allocate nothing.
func AllocateProceeds(g Grid, debt []assumption.DebtDriver, equity []assumption.EquityDriver, capexCount int) (Funding, error) {
	f := Funding{
		CapexTopUps:    make(map[int]float64),
		WorkingCapital: make([]float64, g.Periods),
	}

	for i, d := range debt {
		if d.Existing {
			continue
		}
		source := d.Name
		if source == "" {
			source = fmt.Sprintf("debt[%d]", i)
		}
		if err := f.apply(g, source, g.Index(d.DrawDate, d.DrawPeriod), d.Principal, d.UseOfProceeds, d.CapexIndex, capexCount); err != nil {
			return Funding{}, err
		}
	}
	for i, e := range equity {
		source := fmt.Sprintf("equity[%d]", i)
		if err := f.apply(g, source, g.Index(e.Date, e.Period), e.Amount, e.UseOfProceeds, e.CapexIndex, capexCount); err != nil {
			return Funding{}, err
		}
	}
	return f, nil
}

func (f *Funding) apply(g Grid, source string, period int, amount float64, use assumption.UseOfProceeds, capexIndex *int, capexCount int) error {
	if !g.InHorizon(period) || amount == 0 {
		return nil
	}
	entry := ProceedsEntry{Source: source, Period: period, Amount: amount, Use: use, CapexIndex: -1}

	switch use {
	case "", assumption.ProceedsCash:
		entry.Use = assumption.ProceedsCash
	case assumption.ProceedsOperations:
	case assumption.ProceedsCapex:
		if capexIndex == nil || *capexIndex < 0 || *capexIndex >= capexCount {
			return fmt.Errorf("%s: capex proceeds need a valid capex index", source)
		}
		entry.CapexIndex = *capexIndex
		f.CapexTopUps[*capexIndex] += amount
	case assumption.ProceedsWorkingCapital:
		f.WorkingCapital[period] += amount
	default:
		return fmt.Errorf("%s: unknown use of proceeds '%s'", source, use)
	}
	f.Entries = append(f.Entries, entry)
	return nil
}
