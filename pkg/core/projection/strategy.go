package projection

import (
	"fmt"

	"smme_finmodel/pkg/core/assumption"
)

// =============================================================================
// LINE STRATEGY INTERFACE
// Each income-statement line is computed by a pluggable strategy chosen from
// the driver's basis.
// =============================================================================

// SegmentVolume is the recognised volume of one revenue segment.
type SegmentVolume struct {
	Segment string
	Volume  float64
}

// Context provides the period data a strategy may read.
type Context struct {
	Period         int
	PeriodsPerYear int
	Revenue        float64         // recognised revenue of the period
	Volumes        []SegmentVolume // in revenue-driver order
}

// LineStrategy computes one line amount for a period.
type LineStrategy interface {
	Name() string
	Calculate(ctx Context) float64
}

// =============================================================================
// BUILT-IN STRATEGIES
// =============================================================================

// MarginStrategy takes a percentage of period revenue.
// Formula: Value = Revenue × Percent / 100
type MarginStrategy struct {
	Percent float64
}

func (s MarginStrategy) Name() string { return "Margin" }

func (s MarginStrategy) Calculate(ctx Context) float64 {
	return ctx.Revenue * s.Percent / 100
}

// UnitCostStrategy multiplies recognised volume by the segment's unit cost.
// Formula: Cost = Σ Volume(segment) × UnitCost(segment)
type UnitCostStrategy struct {
	Costs assumption.UnitCost
}

func (s UnitCostStrategy) Name() string { return "UnitCost" }

func (s UnitCostStrategy) Calculate(ctx Context) float64 {
	total := 0.0
	for _, v := range ctx.Volumes {
		total += v.Volume * s.Costs.For(v.Segment)
	}
	return total
}

// FixedStrategy spreads an annual amount evenly over the year's periods.
type FixedStrategy struct {
	Annual float64
}

func (s FixedStrategy) Name() string { return "Fixed" }

func (s FixedStrategy) Calculate(ctx Context) float64 {
	if ctx.PeriodsPerYear < 1 {
		return s.Annual
	}
	return s.Annual / float64(ctx.PeriodsPerYear)
}

// ZeroStrategy is used while no method has been chosen.
type ZeroStrategy struct{}

func (ZeroStrategy) Name() string                  { return "None" }
func (ZeroStrategy) Calculate(ctx Context) float64 { return 0 }

// COGSStrategy selects the strategy for the COGS basis.
func COGSStrategy(b assumption.COGSBasis) (LineStrategy, error) {
	switch v := b.(type) {
	case nil:
		return ZeroStrategy{}, nil
	case assumption.PercentOfRevenue:
		return MarginStrategy{Percent: v.Percent}, nil
	case assumption.UnitCost:
		return UnitCostStrategy{Costs: v}, nil
	default:
		return nil, fmt.Errorf("unsupported COGS basis %T", b)
	}
}

// OpexStrategy selects the strategy for an opex basis.
func OpexStrategy(b assumption.OpexBasis) (LineStrategy, error) {
	switch v := b.(type) {
	case assumption.PercentOfRevenue:
		return MarginStrategy{Percent: v.Percent}, nil
	case assumption.FixedAmount:
		return FixedStrategy{Annual: v.Annual}, nil
	case nil:
		return nil, fmt.Errorf("opex line has no basis")
	default:
		return nil, fmt.Errorf("unsupported opex basis %T", b)
	}
}

// =============================================================================
// REVENUE (price × volume with recognition)
// =============================================================================

// SegmentRevenue is the full-horizon revenue build of one segment.
type SegmentRevenue struct {
	Segment          string
	BilledVolume     []float64
	Billed           []float64
	RecognisedVolume []float64
	Recognised       []float64
	// Deferred is the closing unrecognised balance of billings.
	Deferred []float64
}

// PriceVolumeStrategy compounds volume by the per-period growth rates and
// prices it. Volume in period t is StartingVolume × Π(1 + g[k]/100) for
// k ≤ t. Missing rates count as zero growth.
type PriceVolumeStrategy struct {
	Driver assumption.RevenueDriver
}

func (s PriceVolumeStrategy) Name() string { return "PriceVolume" }

// Build lays the segment out over n periods. Over-time segments recognise
// each period's billings evenly across RecognitionPeriods periods starting
// with the billing period.
func (s PriceVolumeStrategy) Build(n int) SegmentRevenue {
	d := s.Driver
	out := SegmentRevenue{
		Segment:          d.Segment,
		BilledVolume:     make([]float64, n),
		Billed:           make([]float64, n),
		RecognisedVolume: make([]float64, n),
		Recognised:       make([]float64, n),
		Deferred:         make([]float64, n),
	}

	volume := d.StartingVolume
	for t := 0; t < n; t++ {
		if t < len(d.GrowthRates) {
			volume *= 1 + d.GrowthRates[t]/100
		}
		out.BilledVolume[t] = volume
		out.Billed[t] = d.UnitPrice * volume
	}

	span := 1
	if d.Recognition == assumption.RecognitionOverTime && d.RecognitionPeriods > 1 {
		span = d.RecognitionPeriods
	}
	if span == 1 {
		copy(out.RecognisedVolume, out.BilledVolume)
		copy(out.Recognised, out.Billed)
		return out
	}

	billedToDate, recognisedToDate := 0.0, 0.0
	for t := 0; t < n; t++ {
		for j := t - span + 1; j <= t; j++ {
			if j < 0 {
				continue
			}
			out.RecognisedVolume[t] += out.BilledVolume[j] / float64(span)
			out.Recognised[t] += out.Billed[j] / float64(span)
		}
		billedToDate += out.Billed[t]
		recognisedToDate += out.Recognised[t]
		out.Deferred[t] = billedToDate - recognisedToDate
	}
	return out
}
