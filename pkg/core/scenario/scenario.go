// Package scenario re-runs the statement engine under scenario multipliers
// and across two-variable sensitivity grids. Every run works on its own deep
// copy of the model and writes to its own output slot.
package scenario

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/projection"
	"smme_finmodel/pkg/core/validate"
)

// Outcome is one scenario run.
type Outcome struct {
	Name        string                 `json:"name"`
	Multipliers assumption.Multipliers `json:"multipliers"`
	Result      *projection.Result     `json:"result"`
	Findings    []validate.Finding     `json:"findings"`
}

// Runner fans scenario and sensitivity runs out over a bounded worker pool.
type Runner struct {
	Engine    *projection.Engine
	Workers   int
	Tolerance float64
	// DiscountRate is the annual rate (percent) used by the npv metric.
	DiscountRate float64
}

// NewRunner creates a runner. workers <= 0 uses GOMAXPROCS.
func NewRunner(engine *projection.Engine, workers int) *Runner {
	return &Runner{Engine: engine, Workers: workers, Tolerance: validate.DefaultTolerance}
}

func (r *Runner) limit() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Runner) engine() *projection.Engine {
	if r.Engine == nil {
		return projection.NewEngine(projection.Settings{})
	}
	return r.Engine
}

// RunScenarios is a convenience wrapper around a default Runner.
func RunScenarios(ctx context.Context, engine *projection.Engine, state *assumption.ModelState) (map[string]*Outcome, error) {
	return NewRunner(engine, 0).RunScenarios(ctx, state)
}

// RunScenarios generates statements once per scenario in state.Scenarios.
func (r *Runner) RunScenarios(ctx context.Context, state *assumption.ModelState) (map[string]*Outcome, error) {
	if state == nil {
		return nil, fmt.Errorf("run scenarios: nil model")
	}
	names := make([]string, 0, len(state.Scenarios))
	for name := range state.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := make([]*Outcome, len(names))
	eng := r.engine()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())
	for i, name := range names {
		m := state.Scenarios[name]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := eng.Generate(ApplyMultipliers(state, m))
			if err != nil {
				return fmt.Errorf("scenario %s: %w", name, err)
			}
			outcomes[i] = &Outcome{
				Name:        name,
				Multipliers: m,
				Result:      res,
				Findings:    validate.CheckConsistency(res, r.Tolerance),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Outcome, len(outcomes))
	for _, o := range outcomes {
		out[o.Name] = o
	}
	return out, nil
}

// =============================================================================
// DRIVER ADJUSTMENT
// =============================================================================

// ApplyMultipliers returns a copy of state with growth rates, COGS and opex
// scaled. The input is left untouched.
func ApplyMultipliers(state *assumption.ModelState, m assumption.Multipliers) *assumption.ModelState {
	c := state.Clone()
	scaleGrowth(c, m.RevenueGrowth)
	c.COGS.Basis = scaleCOGS(c.COGS.Basis, m.COGS)
	scaleOpex(c, m.Opex)
	return c
}

func scaleGrowth(s *assumption.ModelState, k float64) {
	for i := range s.Revenue {
		for j := range s.Revenue[i].GrowthRates {
			s.Revenue[i].GrowthRates[j] *= k
		}
	}
}

func scaleCOGS(b assumption.COGSBasis, k float64) assumption.COGSBasis {
	switch v := b.(type) {
	case assumption.PercentOfRevenue:
		v.Percent *= k
		return v
	case assumption.UnitCost:
		v.Default *= k
		for seg := range v.BySegment {
			v.BySegment[seg] *= k
		}
		return v
	default:
		return b
	}
}

func scaleOpex(s *assumption.ModelState, k float64) {
	for i := range s.Opex {
		switch v := s.Opex[i].Basis.(type) {
		case assumption.PercentOfRevenue:
			v.Percent *= k
			s.Opex[i].Basis = v
		case assumption.FixedAmount:
			v.Annual *= k
			s.Opex[i].Basis = v
		}
	}
}

// ApplyVariable returns a copy of state with one sensitivity variable set.
// revenue_growth, cogs, opex, price and volume are multipliers; tax_rate,
// interest_rate, dso, dio and dpo replace the input outright.
func ApplyVariable(state *assumption.ModelState, v assumption.Variable, value float64) (*assumption.ModelState, error) {
	c := state.Clone()
	switch v {
	case assumption.VarRevenueGrowth:
		scaleGrowth(c, value)
	case assumption.VarCOGS:
		c.COGS.Basis = scaleCOGS(c.COGS.Basis, value)
	case assumption.VarOpex:
		scaleOpex(c, value)
	case assumption.VarPrice:
		for i := range c.Revenue {
			c.Revenue[i].UnitPrice *= value
		}
	case assumption.VarVolume:
		for i := range c.Revenue {
			c.Revenue[i].StartingVolume *= value
		}
	case assumption.VarTaxRate:
		c.Tax.RatePercent = value
	case assumption.VarInterestRate:
		for i := range c.Debt {
			c.Debt[i].Rate = value
		}
	case assumption.VarDSO:
		c.WorkingCapital.DSO = value
	case assumption.VarDIO:
		c.WorkingCapital.DIO = value
	case assumption.VarDPO:
		c.WorkingCapital.DPO = value
	default:
		return nil, fmt.Errorf("unknown sensitivity variable '%s'", v)
	}
	return c, nil
}
