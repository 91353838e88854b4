package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/store"
	"smme_finmodel/pkg/core/validate"
)

func validModel() *assumption.ModelState {
	return assumption.NewModelState("Salon").
		WithProfile(assumption.CompanyProfile{Name: "Salon", StartDate: assumption.NewDate(2025, time.January, 1), HorizonYears: 2, Frequency: assumption.FrequencyAnnual}).
		WithRevenue(assumption.RevenueDriver{Segment: "Cuts", UnitPrice: 250, StartingVolume: 2000, GrowthRates: []float64{5, 5}}).
		WithCOGS(assumption.COGSDriver{Basis: assumption.PercentOfRevenue{Percent: 20}})
}

// MockRepository records calls and can fail on demand.
type MockRepository struct {
	store.ModelStore
	SaveFunc func(ctx context.Context, userID string, m *assumption.ModelState, expected int64) (store.Summary, error)
}

func (m *MockRepository) Save(ctx context.Context, userID string, model *assumption.ModelState, expected int64) (store.Summary, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, userID, model, expected)
	}
	return m.ModelStore.Save(ctx, userID, model, expected)
}

func TestOrchestrator_Generate(t *testing.T) {
	o := NewOrchestrator(Config{DiscountRate: 10}, nil, nil)
	run, err := o.Generate(context.Background(), validModel())
	require.NoError(t, err)

	assert.True(t, run.Report.IsValid)
	assert.True(t, run.Reliable)
	assert.Empty(t, run.Findings)
	require.Len(t, run.Result.Periods, 2)
	assert.InDelta(t, 525000+551250, run.Summary.TotalRevenue, 1e-6)
}

func TestOrchestrator_GenerateRejectsInvalidModel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	o := NewOrchestrator(Config{}, nil, zap.New(core))

	_, err := o.Generate(context.Background(), assumption.NewModelState("empty"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidModel)

	var invalid *InvalidModelError
	require.True(t, errors.As(err, &invalid))
	require.Len(t, invalid.Report.Errors(), 1)
	assert.Equal(t, validate.StepRevenue, *invalid.Report.Errors()[0].Step)
	assert.Contains(t, err.Error(), "At least one revenue driver is required")
	assert.Equal(t, 1, logs.FilterMessage("model rejected").Len())
}

func TestOrchestrator_WarningsDoNotBlock(t *testing.T) {
	o := NewOrchestrator(Config{}, nil, nil)
	run, err := o.Generate(context.Background(), validModel().WithCOGS(assumption.COGSDriver{}))
	require.NoError(t, err)
	require.Len(t, run.Report.Warnings(), 1)
	assert.Equal(t, 0.0, run.Result.Periods[0].IncomeStatement.COGS)
}

func TestOrchestrator_ScenariosAndSensitivity(t *testing.T) {
	o := NewOrchestrator(Config{Workers: 2}, nil, nil)
	ctx := context.Background()

	outcomes, err := o.Scenarios(ctx, validModel())
	require.NoError(t, err)
	assert.Len(t, outcomes, 3)

	_, err = o.Sensitivity(ctx, validModel(), nil)
	assert.ErrorIs(t, err, ErrNoSweep)

	grid, err := o.Sensitivity(ctx, validModel(), &assumption.SensitivityDriver{
		Variable1:    assumption.Axis{Variable: assumption.VarPrice, Values: []float64{1, 2}},
		Variable2:    assumption.Axis{Variable: assumption.VarTaxRate, Values: []float64{0, 27}},
		OutputMetric: assumption.MetricTotalRevenue,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2*grid.At(0, 1), grid.At(1, 1), 1e-6)

	_, err = o.Scenarios(ctx, assumption.NewModelState("empty"))
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestSession_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	o := NewOrchestrator(Config{}, store.NewMemoryStore(), nil)
	sess := NewSession("owner-1")
	assert.Empty(t, sess.CurrentModelID())

	first, err := o.Save(ctx, sess, validModel())
	require.NoError(t, err)
	assert.Equal(t, first.ID, sess.CurrentModelID())

	// A second save from the same session updates the same document.
	second, err := o.Save(ctx, sess, validModel().WithTax(assumption.TaxDriver{RatePercent: 28}))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Version)

	// Another session that loaded version 2 wins; this one is now stale.
	other := NewSession("owner-1")
	m, err := o.Load(ctx, other, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 28.0, m.Tax.RatePercent)
	_, err = o.Save(ctx, other, m)
	require.NoError(t, err)
	_, err = o.Save(ctx, sess, validModel())
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	require.NoError(t, o.Delete(ctx, other, first.ID))
	assert.Empty(t, other.CurrentModelID())
	_, err = o.Load(ctx, sess, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSession_SaveFailureKeepsState(t *testing.T) {
	repo := &MockRepository{
		ModelStore: store.NewMemoryStore(),
		SaveFunc: func(context.Context, string, *assumption.ModelState, int64) (store.Summary, error) {
			return store.Summary{}, store.ErrBackend
		},
	}
	o := NewOrchestrator(Config{}, nil, nil)
	o.SetRepository(repo)
	sess := NewSession("u")

	_, err := o.Save(context.Background(), sess, validModel())
	assert.ErrorIs(t, err, store.ErrBackend)
	assert.Empty(t, sess.CurrentModelID())
}

func TestOrchestrator_NoRepository(t *testing.T) {
	o := NewOrchestrator(Config{}, nil, nil)
	_, err := o.Save(context.Background(), NewSession("u"), validModel())
	assert.Error(t, err)
}
