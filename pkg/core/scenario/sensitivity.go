package scenario

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/calc"
	"smme_finmodel/pkg/core/projection"
	"smme_finmodel/pkg/core/validate"
)

// Grid is a two-way sensitivity table. Cells[i][j] is the metric at
// Values1[i] x Values2[j].
type Grid struct {
	Variable1 assumption.Variable `json:"variable1"`
	Variable2 assumption.Variable `json:"variable2"`
	Values1   []float64           `json:"values1"`
	Values2   []float64           `json:"values2"`
	Metric    assumption.Metric   `json:"metric"`
	Cells     [][]float64         `json:"cells"`
}

// At returns the cell for the given axis positions.
func (g *Grid) At(i, j int) float64 {
	return g.Cells[i][j]
}

// RunSensitivity is a convenience wrapper around a default Runner.
func RunSensitivity(ctx context.Context, engine *projection.Engine, state *assumption.ModelState, driver assumption.SensitivityDriver) (*Grid, error) {
	return NewRunner(engine, 0).RunSensitivity(ctx, state, driver)
}

// RunSensitivity sweeps both axes of driver, generating statements once per
// cell.
func (r *Runner) RunSensitivity(ctx context.Context, state *assumption.ModelState, driver assumption.SensitivityDriver) (*Grid, error) {
	if state == nil {
		return nil, fmt.Errorf("run sensitivity: nil model")
	}
	for _, v := range []assumption.Variable{driver.Variable1.Variable, driver.Variable2.Variable} {
		if !validate.IsKnownVariable(v) {
			return nil, fmt.Errorf("run sensitivity: unknown variable '%s'", v)
		}
	}
	if !validate.IsKnownMetric(driver.OutputMetric) {
		return nil, fmt.Errorf("run sensitivity: unknown metric '%s'", driver.OutputMetric)
	}
	grid := &Grid{
		Variable1: driver.Variable1.Variable,
		Variable2: driver.Variable2.Variable,
		Values1:   driver.Variable1.Points(),
		Values2:   driver.Variable2.Points(),
		Metric:    driver.OutputMetric,
	}
	grid.Cells = make([][]float64, len(grid.Values1))
	for i := range grid.Cells {
		grid.Cells[i] = make([]float64, len(grid.Values2))
	}

	rows := make([]*assumption.ModelState, len(grid.Values1))
	for i, v1 := range grid.Values1 {
		row, err := ApplyVariable(state, grid.Variable1, v1)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}

	eng := r.engine()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit())
	for i, row := range rows {
		for j, v2 := range grid.Values2 {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cell, err := ApplyVariable(row, grid.Variable2, v2)
				if err != nil {
					return err
				}
				res, err := eng.Generate(cell)
				if err != nil {
					return fmt.Errorf("sensitivity cell (%d,%d): %w", i, j, err)
				}
				value, err := calc.Metric(res, grid.Metric, r.DiscountRate)
				if err != nil {
					return err
				}
				grid.Cells[i][j] = value
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}
