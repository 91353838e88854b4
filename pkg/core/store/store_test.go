package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/config"
)

func sampleModel(name string) *assumption.ModelState {
	idx := 0
	return assumption.NewModelState(name).
		WithProfile(assumption.CompanyProfile{Name: name, Currency: "ZAR", StartDate: assumption.NewDate(2025, time.April, 1),
			HorizonYears: 2, Frequency: assumption.FrequencyQuarterly}).
		WithRevenue(assumption.RevenueDriver{Segment: "Catering", UnitPrice: 150, StartingVolume: 400, GrowthRates: []float64{1, 2, 3, 4, 5, 6, 7, 8}}).
		WithCOGS(assumption.COGSDriver{Basis: assumption.UnitCost{Default: 60, BySegment: map[string]float64{"Catering": 55}}, InventoryMethod: assumption.InventoryFIFO}).
		WithOpex(assumption.OpexDriver{Name: "Rent", Basis: assumption.FixedAmount{Annual: 48000}}).
		WithCapex(assumption.CapexDriver{AssetClass: "Van", Amount: 250000, PurchasePeriod: 1, UsefulLife: 20, Method: assumption.DoubleDecliningBalance}).
		WithDebt(assumption.DebtDriver{Name: "Vehicle finance", Principal: 200000, Rate: 12.5, TenorYears: 5,
			Amortization: assumption.AmortizationAnnuity, UseOfProceeds: assumption.ProceedsCapex, CapexIndex: &idx})
}

// runContract exercises the behaviour every backend shares.
func runContract(t *testing.T, s ModelStore) {
	ctx := context.Background()
	t.Cleanup(func() { s.Close() })

	t.Run("requires a user", func(t *testing.T) {
		_, err := s.Save(ctx, "", sampleModel("x"), 0)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		_, err = s.Load(ctx, " ", uuid.NewString())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		_, err = s.List(ctx, "")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.ErrorIs(t, s.Delete(ctx, "", uuid.NewString()), ErrNotAuthenticated)
	})

	t.Run("round trip is verbatim", func(t *testing.T) {
		model := sampleModel("Catering Co")
		sum, err := s.Save(ctx, "alice", model, 0)
		require.NoError(t, err)
		require.NotEmpty(t, sum.ID)
		assert.Equal(t, int64(1), sum.Version)
		assert.Equal(t, "Catering Co", sum.Name)
		assert.Empty(t, model.ID, "input must not be mutated")

		loaded, err := s.Load(ctx, "alice", sum.ID)
		require.NoError(t, err)
		want := model.Clone()
		want.ID, want.Version = sum.ID, 1
		assert.Equal(t, want, loaded)
	})

	t.Run("owner isolation and delete", func(t *testing.T) {
		sum, err := s.Save(ctx, "bob", sampleModel("Bob's"), 0)
		require.NoError(t, err)

		_, err = s.Load(ctx, "carol", sum.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "carol", sum.ID), ErrNotFound)

		require.NoError(t, s.Delete(ctx, "bob", sum.ID))
		_, err = s.Load(ctx, "bob", sum.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "bob", sum.ID), ErrNotFound)
	})

	t.Run("overwrite and version token", func(t *testing.T) {
		first, err := s.Save(ctx, "dave", sampleModel("v1"), 0)
		require.NoError(t, err)

		m, err := s.Load(ctx, "dave", first.ID)
		require.NoError(t, err)
		m.Name = "v2"
		second, err := s.Save(ctx, "dave", m, 1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, int64(2), second.Version)
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

		m.Name = "stale"
		_, err = s.Save(ctx, "dave", m, 1)
		assert.ErrorIs(t, err, ErrVersionConflict)

		// Last writer wins without a token.
		third, err := s.Save(ctx, "dave", m, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), third.Version)

		got, err := s.Load(ctx, "dave", first.ID)
		require.NoError(t, err)
		assert.Equal(t, "stale", got.Name)
		assert.Equal(t, int64(3), got.Version)

		fresh := sampleModel("new")
		fresh.ID = uuid.NewString()
		_, err = s.Save(ctx, "dave", fresh, 4)
		assert.ErrorIs(t, err, ErrVersionConflict)
	})

	t.Run("list returns summaries only", func(t *testing.T) {
		a, err := s.Save(ctx, "erin", sampleModel("Alpha"), 0)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		b, err := s.Save(ctx, "erin", sampleModel("Beta"), 0)
		require.NoError(t, err)

		list, err := s.List(ctx, "erin")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, b.ID, list[0].ID)
		assert.Equal(t, a.ID, list[1].ID)
		assert.Equal(t, "Alpha", list[1].Name)

		empty, err := s.List(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		m := sampleModel("bad")
		m.ID = "../../etc/passwd"
		_, err := s.Save(ctx, "frank", m, 0)
		assert.ErrorIs(t, err, ErrInvalidID)
		_, err = s.Load(ctx, "frank", "../../etc/passwd")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent saves keep versions dense", func(t *testing.T) {
		sum, err := s.Save(ctx, "gina", sampleModel("busy"), 0)
		require.NoError(t, err)
		m := sampleModel("busy")
		m.ID = sum.ID

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, "gina", m, 0)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Load(ctx, "gina", sum.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.Version)
	})
}

func TestMemoryStore(t *testing.T) {
	runContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runContract(t, s)
}

func TestFileStore_EscapesUserDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "store")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	for _, user := range []string{"../evil", "..", ".", "a/b", `c:\d`} {
		t.Run(user, func(t *testing.T) {
			sum, err := s.Save(ctx, user, sampleModel("x"), 0)
			require.NoError(t, err)
			matches, err := filepath.Glob(filepath.Join(dir, "*", sum.ID+".json"))
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, dir, filepath.Dir(filepath.Dir(matches[0])))

			listed, err := s.List(ctx, user)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			_, err = s.Load(ctx, user, sum.ID)
			require.NoError(t, err)
		})
	}

	stray, err := filepath.Glob(filepath.Join(root, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, stray)
	rootFiles, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	assert.Empty(t, rootFiles)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	runContract(t, s)
}

func TestOpen(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s, err := Open(context.Background(), config.StoreConfig{Backend: config.BackendFile, Dir: t.TempDir()}, zap.New(core))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background(), "alice", uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, logs.FilterMessage("model store rejected").Len())

	_, err = Open(context.Background(), config.StoreConfig{Backend: "redis"}, zap.NewNop())
	assert.Error(t, err)

	mem, err := Open(context.Background(), config.StoreConfig{}, nil)
	require.NoError(t, err)
	list, err := mem.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}
