package assumption

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"smme_finmodel/pkg/core/utils"
)

// DefaultScenarios returns the Base/Best/Worst multiplier sets.
func DefaultScenarios() ScenarioDrivers {
	return ScenarioDrivers{
		ScenarioBase:  {RevenueGrowth: 1.0, COGS: 1.0, Opex: 1.0},
		ScenarioBest:  {RevenueGrowth: 1.2, COGS: 0.95, Opex: 0.95},
		ScenarioWorst: {RevenueGrowth: 0.8, COGS: 1.05, Opex: 1.05},
	}
}

// NewModelState creates a model with wizard defaults: an annual three-year
// grid starting this month and no revenue drivers yet.
func NewModelState(name string) *ModelState {
	now := time.Now().UTC()
	return &ModelState{
		Name: name,
		Profile: CompanyProfile{
			Name:         name,
			Currency:     "ZAR",
			StartDate:    NewDate(now.Year(), now.Month(), 1),
			HorizonYears: 3,
			Frequency:    FrequencyAnnual,
		},
		Revenue:        []RevenueDriver{},
		COGS:           COGSDriver{InventoryMethod: InventoryFIFO},
		Opex:           []OpexDriver{},
		Capex:          []CapexDriver{},
		WorkingCapital: WorkingCapitalDriver{DSO: 30, DIO: 30, DPO: 30},
		Debt:           []DebtDriver{},
		Equity:         []EquityDriver{},
		Tax:            TaxDriver{RatePercent: 27},
		Scenarios:      DefaultScenarios(),
	}
}

// Clone returns a deep copy so callers can derive a new snapshot without
// touching the original.
func (s *ModelState) Clone() *ModelState {
	if s == nil {
		return nil
	}
	c := *s
	c.Revenue = slices.Clone(s.Revenue)
	for i := range c.Revenue {
		c.Revenue[i].GrowthRates = slices.Clone(c.Revenue[i].GrowthRates)
	}
	c.COGS = s.COGS.clone()
	c.Opex = slices.Clone(s.Opex)
	c.Capex = slices.Clone(s.Capex)
	c.PPE = slices.Clone(s.PPE)
	c.Debt = slices.Clone(s.Debt)
	for i := range c.Debt {
		c.Debt[i].CapexIndex = cloneInt(c.Debt[i].CapexIndex)
		c.Debt[i].DrawDate = cloneDate(c.Debt[i].DrawDate)
	}
	c.Equity = slices.Clone(s.Equity)
	for i := range c.Equity {
		c.Equity[i].CapexIndex = cloneInt(c.Equity[i].CapexIndex)
		c.Equity[i].Date = cloneDate(c.Equity[i].Date)
	}
	c.Assets = slices.Clone(s.Assets)
	for i := range c.Assets {
		c.Assets[i].Date = cloneDate(c.Assets[i].Date)
	}
	c.Adjustments = slices.Clone(s.Adjustments)
	c.Scenarios = maps.Clone(s.Scenarios)
	if s.Sensitivity != nil {
		sens := *s.Sensitivity
		sens.Variable1.Values = slices.Clone(sens.Variable1.Values)
		sens.Variable2.Values = slices.Clone(sens.Variable2.Values)
		c.Sensitivity = &sens
	}
	return &c
}

func (c COGSDriver) clone() COGSDriver {
	if u, ok := c.Basis.(UnitCost); ok {
		u.BySegment = maps.Clone(u.BySegment)
		c.Basis = u
	}
	return c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneDate(v *Date) *Date {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// =============================================================================
// SNAPSHOT SETTERS
// Each setter replaces one slice of the model on a copy.
// =============================================================================

// WithProfile returns a copy with a new company profile.
func (s *ModelState) WithProfile(p CompanyProfile) *ModelState {
	c := s.Clone()
	c.Profile = p
	return c
}

// WithOpening returns a copy with new opening balances.
func (s *ModelState) WithOpening(o OpeningBalances) *ModelState {
	c := s.Clone()
	c.Opening = o
	return c
}

// WithRevenue returns a copy with the given revenue drivers.
func (s *ModelState) WithRevenue(drivers ...RevenueDriver) *ModelState {
	c := *s
	c.Revenue = drivers
	return c.Clone()
}

// WithCOGS returns a copy with a new COGS driver.
func (s *ModelState) WithCOGS(d COGSDriver) *ModelState {
	c := *s
	c.COGS = d
	return c.Clone()
}

// WithOpex returns a copy with the given opex lines.
func (s *ModelState) WithOpex(lines ...OpexDriver) *ModelState {
	c := *s
	c.Opex = lines
	return c.Clone()
}

// WithCapex returns a copy with the given capex plan.
func (s *ModelState) WithCapex(items ...CapexDriver) *ModelState {
	c := *s
	c.Capex = items
	return c.Clone()
}

// WithPPE returns a copy with the given historical assets.
func (s *ModelState) WithPPE(items ...PPELineItem) *ModelState {
	c := *s
	c.PPE = items
	return c.Clone()
}

// WithWorkingCapital returns a copy with new days-outstanding assumptions.
func (s *ModelState) WithWorkingCapital(wc WorkingCapitalDriver) *ModelState {
	c := s.Clone()
	c.WorkingCapital = wc
	return c
}

// WithDebt returns a copy with the given loans.
func (s *ModelState) WithDebt(items ...DebtDriver) *ModelState {
	c := *s
	c.Debt = items
	return c.Clone()
}

// WithEquity returns a copy with the given equity injections.
func (s *ModelState) WithEquity(items ...EquityDriver) *ModelState {
	c := *s
	c.Equity = items
	return c.Clone()
}

// WithAssets returns a copy with the given in-kind contributions.
func (s *ModelState) WithAssets(items ...AssetDriver) *ModelState {
	c := *s
	c.Assets = items
	return c.Clone()
}

// WithDividends returns a copy with a new dividend policy.
func (s *ModelState) WithDividends(p DividendPolicy) *ModelState {
	c := s.Clone()
	c.Dividends = p
	return c
}

// WithAdjustments returns a copy with the given retained-earnings adjustments.
func (s *ModelState) WithAdjustments(items ...RetainedEarningsAdjustment) *ModelState {
	c := *s
	c.Adjustments = items
	return c.Clone()
}

// WithTax returns a copy with new tax assumptions.
func (s *ModelState) WithTax(t TaxDriver) *ModelState {
	c := s.Clone()
	c.Tax = t
	return c
}

// WithScenarios returns a copy with new scenario multipliers.
func (s *ModelState) WithScenarios(sc ScenarioDrivers) *ModelState {
	c := *s
	c.Scenarios = sc
	return c.Clone()
}

// WithSensitivity returns a copy with a new sensitivity definition.
func (s *ModelState) WithSensitivity(d *SensitivityDriver) *ModelState {
	c := *s
	c.Sensitivity = d
	return c.Clone()
}

// =============================================================================
// DOCUMENT CODEC
// =============================================================================

// ToJSON serialises the whole snapshot.
func (s *ModelState) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// FromJSON strictly decodes a saved document verbatim.
func FromJSON(data []byte) (*ModelState, error) {
	var s ModelState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode model document: %w", err)
	}
	return &s, nil
}

// Decode accepts hand-edited documents: strict JSON first, then repaired JSON,
// then Hjson.
func Decode(data []byte) (*ModelState, error) {
	var s ModelState
	if _, err := utils.SmartParse(string(data), &s); err != nil {
		return nil, fmt.Errorf("decode model document: %w", err)
	}
	return &s, nil
}
