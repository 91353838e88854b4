package assumption

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelState_Defaults(t *testing.T) {
	s := NewModelState("Acme")

	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, "ZAR", s.Profile.Currency)
	assert.Equal(t, 3, s.Profile.HorizonYears)
	assert.Equal(t, FrequencyAnnual, s.Profile.Frequency)
	assert.Equal(t, 3, s.Periods())
	assert.Empty(t, s.Revenue)
	assert.Nil(t, s.COGS.Basis)
	assert.Equal(t, 27.0, s.Tax.RatePercent)
	assert.Equal(t, WorkingCapitalDriver{DSO: 30, DIO: 30, DPO: 30}, s.WorkingCapital)
	assert.Equal(t, Multipliers{RevenueGrowth: 1, COGS: 1, Opex: 1}, s.Scenarios[ScenarioBase])
	assert.Len(t, s.Scenarios, 3)
}

func TestWithSetters_DoNotMutateOriginal(t *testing.T) {
	base := NewModelState("Acme").WithRevenue(RevenueDriver{
		Segment: "Widgets", UnitPrice: 100, StartingVolume: 10, GrowthRates: []float64{0, 0, 0},
	})
	idx := 0
	base = base.WithDebt(DebtDriver{Name: "Loan", Principal: 1000, CapexIndex: &idx})

	next := base.WithTax(TaxDriver{RatePercent: 28})
	next.Revenue[0].GrowthRates[0] = 50
	*next.Debt[0].CapexIndex = 3
	next.Scenarios[ScenarioBase] = Multipliers{RevenueGrowth: 2}

	assert.Equal(t, 27.0, base.Tax.RatePercent)
	assert.Equal(t, 0.0, base.Revenue[0].GrowthRates[0])
	assert.Equal(t, 0, *base.Debt[0].CapexIndex)
	assert.Equal(t, 1.0, base.Scenarios[ScenarioBase].RevenueGrowth)
}

func TestClone_UnitCostSegments(t *testing.T) {
	s := NewModelState("Acme").WithCOGS(COGSDriver{
		Basis: UnitCost{Default: 5, BySegment: map[string]float64{"A": 3}},
	})
	c := s.Clone()
	c.COGS.Basis.(UnitCost).BySegment["A"] = 99

	assert.Equal(t, 3.0, s.COGS.Basis.(UnitCost).For("A"))
	assert.Equal(t, 5.0, s.COGS.Basis.(UnitCost).For("B"))
}

func TestCOGSDriver_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   COGSDriver
		wire string
	}{
		{"percent", COGSDriver{Basis: PercentOfRevenue{Percent: 40}, InventoryMethod: InventoryFIFO},
			`{"method":"percentOfRevenue","percentOfRevenue":40,"inventoryMethod":"fifo"}`},
		{"unit cost", COGSDriver{Basis: UnitCost{Default: 12, BySegment: map[string]float64{"A": 10}}},
			`{"method":"unitCost","unitCost":12,"unitCosts":{"A":10}}`},
		{"unset", COGSDriver{}, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(data))

			var back COGSDriver
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.in, back)
		})
	}
}

func TestCOGSDriver_UnknownMethod(t *testing.T) {
	var c COGSDriver
	err := json.Unmarshal([]byte(`{"method":"magic"}`), &c)
	assert.ErrorContains(t, err, "magic")
}

func TestOpexDriver_JSON(t *testing.T) {
	var lines []OpexDriver
	err := json.Unmarshal([]byte(`[
		{"name":"Rent","basis":"fixed","value":120000},
		{"name":"Marketing","basis":"percentOfRevenue","value":5}
	]`), &lines)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, FixedAmount{Annual: 120000}, lines[0].Basis)
	assert.Equal(t, PercentOfRevenue{Percent: 5}, lines[1].Basis)

	_, err = json.Marshal(OpexDriver{Name: "Broken"})
	assert.Error(t, err)

	var bad OpexDriver
	assert.Error(t, json.Unmarshal([]byte(`{"name":"x","basis":"weekly","value":1}`), &bad))
}

func TestModelState_RoundTrip(t *testing.T) {
	idx := 0
	s := NewModelState("Acme").
		WithProfile(CompanyProfile{Name: "Acme", Currency: "ZAR", StartDate: NewDate(2025, time.March, 1), HorizonYears: 1, Frequency: FrequencyMonthly}).
		WithRevenue(RevenueDriver{Segment: "A", UnitPrice: 100, StartingVolume: 10, GrowthRates: make([]float64, 12)}).
		WithCOGS(COGSDriver{Basis: PercentOfRevenue{Percent: 40}}).
		WithOpex(OpexDriver{Name: "Rent", Basis: FixedAmount{Annual: 1200}}).
		WithCapex(CapexDriver{AssetClass: "Equipment", Amount: 1200, PurchasePeriod: 1, UsefulLife: 12, Method: StraightLine}).
		WithDebt(DebtDriver{Name: "Loan", Principal: 1000, Rate: 12, TenorYears: 1, Amortization: AmortizationAnnuity, UseOfProceeds: ProceedsCapex, CapexIndex: &idx})

	data, err := s.ToJSON()
	require.NoError(t, err)

	back, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestDecode_Lenient(t *testing.T) {
	doc := `{
		name: 'Acme',
		profile: {horizonYears: 2, frequency: 'quarterly', currency: 'ZAR'},
		revenueDrivers: [{segment: 'A', unitPrice: 10, startingVolume: 5, growthRates: [1,2,3,4,5,6,7,8],}],
	}`
	s, err := Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, 8, s.Periods())
	require.Len(t, s.Revenue, 1)
	assert.Len(t, s.Revenue[0].GrowthRates, 8)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte(`{"name":`))
	assert.Error(t, err)
}

func TestPeriodIndex(t *testing.T) {
	p := CompanyProfile{StartDate: NewDate(2025, time.January, 1), HorizonYears: 2, Frequency: FrequencyQuarterly}

	tests := []struct {
		name   string
		date   *Date
		period int
		want   int
	}{
		{"neither", nil, 0, 0},
		{"period", nil, 3, 2},
		{"date wins", &Date{NewDate(2025, time.July, 15).Time}, 1, 2},
		{"before start", &Date{NewDate(2024, time.June, 1).Time}, 0, 0},
		{"beyond horizon", &Date{NewDate(2027, time.February, 1).Time}, 0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.PeriodIndex(tt.date, tt.period))
		})
	}
}

func TestPeriodLabel(t *testing.T) {
	start := NewDate(2025, time.January, 1)
	assert.Equal(t, "2025-03", CompanyProfile{StartDate: start, Frequency: FrequencyMonthly}.PeriodLabel(2))
	assert.Equal(t, "2025-Q2", CompanyProfile{StartDate: start, Frequency: FrequencyQuarterly}.PeriodLabel(1))
	assert.Equal(t, "FY2026", CompanyProfile{StartDate: start, Frequency: FrequencyAnnual}.PeriodLabel(1))
}

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-01T00:00:00Z"`), &d))
	assert.Equal(t, NewDate(2025, time.March, 1), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-01"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"03/01/2025"`), &d))
}

func TestAxisPoints(t *testing.T) {
	assert.Equal(t, []float64{0.8, 0.9, 1.0, 1.1, 1.2}, roundAll(Axis{Min: 0.8, Max: 1.2, Steps: 5}.Points()))
	assert.Equal(t, []float64{2}, Axis{Min: 2, Max: 9, Steps: 1}.Points())
	assert.Equal(t, []float64{20, 40}, Axis{Min: 0, Max: 1, Steps: 9, Values: []float64{20, 40}}.Points())
}

func roundAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(int(x*1000+0.5)) / 1000
	}
	return out
}
