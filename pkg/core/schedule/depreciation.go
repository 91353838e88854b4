package schedule

import (
	"fmt"

	"smme_finmodel/pkg/core/assumption"
)

// AssetSource says how an asset entered the books.
type AssetSource string

const (
	SourcePurchase     AssetSource = "purchase"
	SourceOpening      AssetSource = "opening"
	SourceContribution AssetSource = "contribution"
)

// AssetSchedule is the per-period history of one asset. Gross and
// Accumulated are closing balances.
type AssetSchedule struct {
	Name   string
	Source AssetSource
	Method assumption.DepreciationMethod
	Cost   float64

	OpeningGross       float64
	OpeningAccumulated float64

	Additions        []float64
	Depreciation     []float64
	DisposedCost     []float64
	DisposedAccum    []float64
	DisposalProceeds []float64
	Gains            []float64
	Gross            []float64
	Accumulated      []float64
}

// NetBookValue is the closing book value at period i.
func (a AssetSchedule) NetBookValue(i int) float64 {
	return a.Gross[i] - a.Accumulated[i]
}

// FixedAssets aggregates every asset schedule into per-period totals.
type FixedAssets struct {
	Assets []AssetSchedule

	OpeningGross       float64
	OpeningAccumulated float64

	Capex            []float64 // cash purchases
	Contributions    []float64 // in-kind, no cash
	Depreciation     []float64
	DisposedCost     []float64
	DisposedAccum    []float64
	DisposalProceeds []float64
	Gains            []float64
	Gross            []float64
	Accumulated      []float64
}

// NetPPE is closing gross PPE less accumulated depreciation.
func (f FixedAssets) NetPPE(i int) float64 {
	return f.Gross[i] - f.Accumulated[i]
}

// =============================================================================
// DEPRECIATION CURVES
// =============================================================================

// Curve returns the expense for each period of an asset's useful life.
//
// Straight-line expenses book value / remaining life, which is amount/life
// for a new asset. Double-declining expenses book value x 2/life but
// switches to straight-line on the remaining book value once that is larger.
// The last life period always expenses whatever book value is left, so the
// curve sums to the amount.
func Curve(amount float64, life int, method assumption.DepreciationMethod) []float64 {
	return curve(amount, life, ddbRate(method, life))
}

func ddbRate(method assumption.DepreciationMethod, life int) float64 {
	if method != assumption.DoubleDecliningBalance || life < 1 {
		return 0
	}
	return 2.0 / float64(life)
}

func curve(bookValue float64, remaining int, rate float64) []float64 {
	if remaining < 1 {
		remaining = 1
	}
	out := make([]float64, remaining)
	nbv := bookValue
	for k := range out {
		left := remaining - k
		var dep float64
		if left == 1 {
			dep = nbv
		} else {
			dep = nbv / float64(left)
			if declining := nbv * rate; declining > dep {
				dep = declining
			}
			if dep > nbv {
				dep = nbv
			}
		}
		out[k] = dep
		nbv -= dep
	}
	return out
}

// =============================================================================
// FIXED ASSET SCHEDULE
// =============================================================================

type assetSpec struct {
	name        string
	source      AssetSource
	method      assumption.DepreciationMethod
	cost        float64
	accumulated float64
	start       int
	life        int
	rate        float64
	disposal    int
	proceeds    float64
}

// BuildFixedAssets lays out planned purchases, opening PPE and in-kind
// contributions on the grid. topUps adds financed cost to a capex item.
// Assets bought after the horizon contribute nothing.
func BuildFixedAssets(g Grid, capex []assumption.CapexDriver, ppe []assumption.PPELineItem, contributions []assumption.AssetDriver, topUps map[int]float64) FixedAssets {
	specs := make([]assetSpec, 0, len(capex)+len(ppe)+len(contributions))

	for _, p := range ppe {
		specs = append(specs, assetSpec{
			name:        p.AssetClass,
			source:      SourceOpening,
			method:      p.Method,
			cost:        p.Cost,
			accumulated: p.AccumulatedDepreciation,
			life:        p.RemainingLife,
			rate:        ddbRate(p.Method, p.RemainingLife),
			disposal:    -1,
		})
	}
	for i, c := range capex {
		disposal := -1
		if c.DisposalPeriod > 0 {
			disposal = c.DisposalPeriod - 1
		}
		specs = append(specs, assetSpec{
			name:     c.AssetClass,
			source:   SourcePurchase,
			method:   c.Method,
			cost:     c.Amount + topUps[i],
			start:    g.Index(nil, c.PurchasePeriod),
			life:     c.UsefulLife,
			rate:     ddbRate(c.Method, c.UsefulLife),
			disposal: disposal,
			proceeds: c.DisposalProceeds,
		})
	}
	for i, a := range contributions {
		name := a.Description
		if name == "" {
			name = fmt.Sprintf("contribution[%d]", i)
		}
		specs = append(specs, assetSpec{
			name:     name,
			source:   SourceContribution,
			method:   a.Method,
			cost:     a.Amount,
			start:    g.Index(a.Date, a.Period),
			life:     a.UsefulLife,
			rate:     ddbRate(a.Method, a.UsefulLife),
			disposal: -1,
		})
	}

	fa := FixedAssets{
		Capex:            make([]float64, g.Periods),
		Contributions:    make([]float64, g.Periods),
		Depreciation:     make([]float64, g.Periods),
		DisposedCost:     make([]float64, g.Periods),
		DisposedAccum:    make([]float64, g.Periods),
		DisposalProceeds: make([]float64, g.Periods),
		Gains:            make([]float64, g.Periods),
		Gross:            make([]float64, g.Periods),
		Accumulated:      make([]float64, g.Periods),
	}
	for _, s := range specs {
		a := s.build(g)
		fa.OpeningGross += a.OpeningGross
		fa.OpeningAccumulated += a.OpeningAccumulated
		for i := 0; i < g.Periods; i++ {
			switch a.Source {
			case SourcePurchase:
				fa.Capex[i] += a.Additions[i]
			case SourceContribution:
				fa.Contributions[i] += a.Additions[i]
			}
			fa.Depreciation[i] += a.Depreciation[i]
			fa.DisposedCost[i] += a.DisposedCost[i]
			fa.DisposedAccum[i] += a.DisposedAccum[i]
			fa.DisposalProceeds[i] += a.DisposalProceeds[i]
			fa.Gains[i] += a.Gains[i]
			fa.Gross[i] += a.Gross[i]
			fa.Accumulated[i] += a.Accumulated[i]
		}
		fa.Assets = append(fa.Assets, a)
	}
	return fa
}

func (s assetSpec) build(g Grid) AssetSchedule {
	n := g.Periods
	a := AssetSchedule{
		Name:             s.name,
		Source:           s.source,
		Method:           s.method,
		Cost:             s.cost,
		Additions:        make([]float64, n),
		Depreciation:     make([]float64, n),
		DisposedCost:     make([]float64, n),
		DisposedAccum:    make([]float64, n),
		DisposalProceeds: make([]float64, n),
		Gains:            make([]float64, n),
		Gross:            make([]float64, n),
		Accumulated:      make([]float64, n),
	}

	gross, accum := 0.0, 0.0
	if s.source == SourceOpening {
		gross, accum = s.cost, s.accumulated
		a.OpeningGross, a.OpeningAccumulated = gross, accum
	}
	expenses := curve(s.cost-s.accumulated, s.life, s.rate)
	disposed := false

	for i := 0; i < n; i++ {
		if i == s.start && s.source != SourceOpening {
			a.Additions[i] = s.cost
			gross += s.cost
		}
		if !disposed && i == s.disposal && i >= s.start {
			a.DisposedCost[i] = gross
			a.DisposedAccum[i] = accum
			a.DisposalProceeds[i] = s.proceeds
			a.Gains[i] = s.proceeds - (gross - accum)
			gross, accum = 0, 0
			disposed = true
		}
		if !disposed && i >= s.start {
			if k := i - s.start; k < len(expenses) {
				a.Depreciation[i] = expenses[k]
				accum += expenses[k]
			}
		}
		a.Gross[i] = gross
		a.Accumulated[i] = accum
	}
	return a
}
