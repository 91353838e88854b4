package validate

import (
	"fmt"
	"math"

	"smme_finmodel/pkg/core/assumption"
)

// =============================================================================
// INPUT VALIDATOR
// =============================================================================

// Severity grades an issue. Only errors block generation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// WizardStep points the UI at the step that owns an input.
type WizardStep struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Wizard steps in UI order.
var (
	StepCompany        = WizardStep{0, "Company"}
	StepRevenue        = WizardStep{1, "Revenue"}
	StepCOGS           = WizardStep{2, "COGS"}
	StepOpex           = WizardStep{3, "Operating Expenses"}
	StepCapex          = WizardStep{4, "Capex"}
	StepWorkingCapital = WizardStep{5, "Working Capital"}
	StepDebt           = WizardStep{6, "Debt"}
	StepEquity         = WizardStep{7, "Equity"}
	StepTax            = WizardStep{8, "Tax"}
	StepScenarios      = WizardStep{9, "Scenarios"}
	StepSensitivity    = WizardStep{10, "Sensitivity"}
	StepReview         = WizardStep{11, "Review"}
)

// Issue is one validator finding.
type Issue struct {
	Severity     Severity    `json:"severity"`
	Code         string      `json:"code"`
	Field        string      `json:"field,omitempty"`
	Message      string      `json:"message"`
	SuggestedFix string      `json:"suggestedFix"`
	Step         *WizardStep `json:"step,omitempty"`
}

// Report is the validator output.
type Report struct {
	Issues  []Issue `json:"issues"`
	IsValid bool    `json:"isValid"`
}

// Errors returns the blocking issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the non-blocking issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

type collector struct {
	issues []Issue
}

func (c *collector) add(sev Severity, step WizardStep, code, field, fix, format string, args ...any) {
	s := step
	c.issues = append(c.issues, Issue{
		Severity:     sev,
		Code:         code,
		Field:        field,
		Message:      fmt.Sprintf(format, args...),
		SuggestedFix: fix,
		Step:         &s,
	})
}

func (c *collector) errorf(step WizardStep, code, field, fix, format string, args ...any) {
	c.add(SeverityError, step, code, field, fix, format, args...)
}

func (c *collector) warnf(step WizardStep, code, field, fix, format string, args ...any) {
	c.add(SeverityWarning, step, code, field, fix, format, args...)
}

// ValidateInputs checks a snapshot before generation. IsValid is true iff no
// error-level issue was raised.
func ValidateInputs(s *assumption.ModelState) Report {
	c := &collector{}
	if s == nil {
		c.errorf(StepCompany, "model_missing", "", "Create a model first.", "No model to validate")
		return Report{Issues: c.issues}
	}

	periods := s.Periods()
	validateProfile(c, s.Profile)
	validateOpening(c, s)
	validateRevenue(c, s.Revenue, periods)
	validateCosts(c, s.COGS, s.Opex)
	validateFixedAssets(c, s.Capex, s.PPE, s.Assets, periods)
	validateWorkingCapital(c, s.WorkingCapital)
	validateDebt(c, s.Debt, len(s.Capex))
	validateEquity(c, s.Equity, s.Dividends, len(s.Capex))
	validateTax(c, s.Tax)
	validateScenarios(c, s.Scenarios)
	validateSensitivity(c, s.Sensitivity)

	r := Report{Issues: c.issues, IsValid: true}
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			r.IsValid = false
			break
		}
	}
	return r
}

// validateOpening ties the position before period 1. Opening PPE and existing
// loans always land on it; the remaining balances only with historical data.
func validateOpening(c *collector, s *assumption.ModelState) {
	assets, claims := 0.0, 0.0
	for _, p := range s.PPE {
		assets += p.Cost - p.AccumulatedDepreciation
	}
	for _, d := range s.Debt {
		if d.Existing {
			claims += d.Principal
		}
	}
	if s.Profile.HasHistoricalData {
		o := s.Opening
		assets += o.Cash + o.AccountsReceivable + o.Inventory
		claims += o.AccountsPayable + o.PaidInCapital + o.RetainedEarnings
	}
	if diff := assets - claims; math.Abs(diff) > DefaultTolerance {
		fix := "Enter opening cash, payables and equity so assets equal liabilities plus equity."
		if !s.Profile.HasHistoricalData {
			fix = "Turn on historical data and enter the opening balances that fund existing assets and loans."
		}
		c.errorf(StepCompany, "opening_balance_mismatch", "opening", fix,
			"Opening assets of %.2f do not equal liabilities plus equity of %.2f (difference %.2f)", assets, claims, diff)
	}
}

func validateProfile(c *collector, p assumption.CompanyProfile) {
	if p.HorizonYears < 1 {
		c.errorf(StepCompany, "horizon_invalid", "profile.horizonYears",
			"Set a forecast horizon of at least one year.",
			"Forecast horizon must be at least 1 year (got %d)", p.HorizonYears)
	}
	if p.Frequency.PeriodsPerYear() == 0 {
		c.errorf(StepCompany, "frequency_invalid", "profile.frequency",
			"Choose monthly, quarterly or annual periods.",
			"Unknown period frequency '%s'", p.Frequency)
	}
}

func validateRevenue(c *collector, drivers []assumption.RevenueDriver, periods int) {
	if len(drivers) == 0 {
		c.errorf(StepRevenue, "revenue_missing", "revenueDrivers",
			"Add at least one revenue segment with a price and starting volume.",
			"At least one revenue driver is required")
		return
	}
	for i, d := range drivers {
		field := fmt.Sprintf("revenueDrivers[%d]", i)
		name := d.Segment
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if d.UnitPrice < 0 {
			c.errorf(StepRevenue, "price_negative", field+".unitPrice", "Enter a unit price of zero or more.",
				"Revenue segment %s has a negative unit price (%g)", name, d.UnitPrice)
		}
		if d.StartingVolume < 0 {
			c.errorf(StepRevenue, "volume_negative", field+".startingVolume", "Enter a starting volume of zero or more.",
				"Revenue segment %s has a negative starting volume (%g)", name, d.StartingVolume)
		}
		switch n := len(d.GrowthRates); {
		case periods > 0 && n < periods:
			c.errorf(StepRevenue, "growth_rates_short", field+".growthRates",
				"Provide one growth rate per forecast period.",
				"Revenue segment %s has %d growth rates but the horizon has %d periods", name, n, periods)
		case periods > 0 && n > periods:
			c.warnf(StepRevenue, "growth_rates_long", field+".growthRates",
				"Remove the extra growth rates or extend the horizon.",
				"Revenue segment %s has %d growth rates; only the first %d are used", name, n, periods)
		}
		for k, g := range d.GrowthRates {
			if g <= -100 {
				c.errorf(StepRevenue, "growth_rate_invalid", fmt.Sprintf("%s.growthRates[%d]", field, k),
					"Growth rates must be above -100%.",
					"Revenue segment %s growth rate for period %d is %g%%", name, k+1, g)
			}
		}
		if d.Recognition != "" && d.Recognition != assumption.RecognitionPointInTime && d.Recognition != assumption.RecognitionOverTime {
			c.errorf(StepRevenue, "recognition_invalid", field+".recognition",
				"Choose point-in-time or over-time recognition.",
				"Revenue segment %s has unknown recognition mode '%s'", name, d.Recognition)
		}
		if d.RecognitionPeriods < 0 {
			c.errorf(StepRevenue, "recognition_periods_invalid", field+".recognitionPeriods",
				"Enter the number of periods the service is delivered over.",
				"Revenue segment %s has a negative recognition period count", name)
		}
	}
}

func validateCosts(c *collector, cogs assumption.COGSDriver, opex []assumption.OpexDriver) {
	switch b := cogs.Basis.(type) {
	case nil:
		c.warnf(StepCOGS, "cogs_method_missing", "cogs.method",
			"Choose percent-of-revenue or unit-cost COGS; COGS is zero until then.",
			"No COGS method selected")
	case assumption.PercentOfRevenue:
		if b.Percent < 0 || b.Percent > 100 {
			c.errorf(StepCOGS, "cogs_percent_invalid", "cogs.percentOfRevenue",
				"Enter a COGS percentage between 0 and 100.",
				"COGS percentage of %g%% is outside 0-100", b.Percent)
		}
	case assumption.UnitCost:
		if b.Default < 0 {
			c.errorf(StepCOGS, "unit_cost_negative", "cogs.unitCost", "Enter a unit cost of zero or more.",
				"Unit cost of %g is negative", b.Default)
		}
		for _, seg := range sortedKeys(b.BySegment) {
			if v := b.BySegment[seg]; v < 0 {
				c.errorf(StepCOGS, "unit_cost_negative", "cogs.unitCosts."+seg, "Enter a unit cost of zero or more.",
					"Unit cost for segment %s is negative (%g)", seg, v)
			}
		}
	}
	if cogs.InventoryMethod != "" && cogs.InventoryMethod != assumption.InventoryFIFO && cogs.InventoryMethod != assumption.InventoryWeightedAverage {
		c.warnf(StepCOGS, "inventory_method_unknown", "cogs.inventoryMethod",
			"Choose FIFO or weighted average.",
			"Unknown inventory method '%s'", cogs.InventoryMethod)
	}

	for i, o := range opex {
		field := fmt.Sprintf("opex[%d]", i)
		switch b := o.Basis.(type) {
		case nil:
			c.errorf(StepOpex, "opex_basis_missing", field+".basis", "Choose percent-of-revenue or fixed.",
				"Operating expense '%s' has no basis", o.Name)
		case assumption.PercentOfRevenue:
			if b.Percent < 0 {
				c.errorf(StepOpex, "opex_negative", field+".value", "Enter a percentage of zero or more.",
					"Operating expense '%s' has a negative percentage (%g%%)", o.Name, b.Percent)
			}
		case assumption.FixedAmount:
			if b.Annual < 0 {
				c.errorf(StepOpex, "opex_negative", field+".value", "Enter an annual amount of zero or more.",
					"Operating expense '%s' has a negative amount (%g)", o.Name, b.Annual)
			}
		}
	}
}

func validateFixedAssets(c *collector, capex []assumption.CapexDriver, ppe []assumption.PPELineItem, assets []assumption.AssetDriver, periods int) {
	for i, a := range capex {
		field := fmt.Sprintf("capex[%d]", i)
		if a.Amount <= 0 {
			c.errorf(StepCapex, "capex_amount_invalid", field+".amount", "Enter the purchase amount.",
				"Capex item %s must have a positive amount", a.AssetClass)
		}
		if a.UsefulLife < 1 {
			c.errorf(StepCapex, "capex_life_invalid", field+".lifeYears", "Enter a useful life of at least one period.",
				"Capex item %s must have a useful life of at least 1", a.AssetClass)
		}
		if a.PurchasePeriod < 1 {
			c.errorf(StepCapex, "capex_period_invalid", field+".year", "Purchase periods start at 1.",
				"Capex item %s has purchase period %d", a.AssetClass, a.PurchasePeriod)
		} else if periods > 0 && a.PurchasePeriod > periods {
			c.warnf(StepCapex, "capex_after_horizon", field+".year", "Move the purchase inside the horizon or extend it.",
				"Capex item %s is purchased after the forecast horizon and has no effect", a.AssetClass)
		}
		if a.DisposalPeriod != 0 && a.DisposalPeriod < a.PurchasePeriod {
			c.errorf(StepCapex, "disposal_before_purchase", field+".disposalPeriod", "Dispose of the asset after it is bought.",
				"Capex item %s is disposed in period %d before purchase in period %d", a.AssetClass, a.DisposalPeriod, a.PurchasePeriod)
		}
		if a.Method != "" && a.Method != assumption.StraightLine && a.Method != assumption.DoubleDecliningBalance {
			c.errorf(StepCapex, "depreciation_method_invalid", field+".method", "Choose straight-line or double-declining.",
				"Capex item %s has unknown depreciation method '%s'", a.AssetClass, a.Method)
		}
	}
	for i, p := range ppe {
		field := fmt.Sprintf("ppe[%d]", i)
		if p.Cost < 0 || p.AccumulatedDepreciation < 0 || p.AccumulatedDepreciation > p.Cost {
			c.errorf(StepCapex, "ppe_balance_invalid", field, "Accumulated depreciation must be between zero and cost.",
				"Opening asset %s has cost %g and accumulated depreciation %g", p.AssetClass, p.Cost, p.AccumulatedDepreciation)
		}
		if p.RemainingLife < 0 {
			c.errorf(StepCapex, "ppe_life_invalid", field+".remainingLife", "Enter the remaining useful life.",
				"Opening asset %s has a negative remaining life", p.AssetClass)
		}
	}
	for i, a := range assets {
		field := fmt.Sprintf("assetContributions[%d]", i)
		if a.Amount <= 0 {
			c.errorf(StepEquity, "contribution_amount_invalid", field+".amount", "Enter the fair value of the contributed asset.",
				"Asset contribution '%s' must have a positive amount", a.Description)
		}
		if a.UsefulLife < 1 {
			c.errorf(StepEquity, "contribution_life_invalid", field+".lifeYears", "Enter a useful life of at least one period.",
				"Asset contribution '%s' must have a useful life of at least 1", a.Description)
		}
	}
}

func validateWorkingCapital(c *collector, wc assumption.WorkingCapitalDriver) {
	check := func(label, field string, v float64, warnAbove bool) {
		if v < 0 {
			c.errorf(StepWorkingCapital, field+"_negative", "workingCapital."+field,
				"Days outstanding cannot be negative.",
				"%s cannot be negative (got %g)", label, v)
		}
		if warnAbove && v > 365 {
			c.warnf(StepWorkingCapital, field+"_high", "workingCapital."+field,
				"Check the value; more than a year outstanding is unusual.",
				"%s of %g days exceeds 365 days", label, v)
		}
	}
	check("DSO", "dso", wc.DSO, true)
	check("DIO", "dio", wc.DIO, true)
	check("DPO", "dpo", wc.DPO, false)
}

func validateDebt(c *collector, debt []assumption.DebtDriver, capexCount int) {
	for i, d := range debt {
		field := fmt.Sprintf("debt[%d]", i)
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if d.Principal <= 0 {
			c.errorf(StepDebt, "debt_principal_invalid", field+".principal", "Enter the loan amount.",
				"Debt item %s must have a positive principal", name)
		}
		if d.Rate < 0 {
			c.errorf(StepDebt, "debt_rate_invalid", field+".rate", "Enter an interest rate of zero or more.",
				"Debt item %s has a negative interest rate (%g%%)", name, d.Rate)
		}
		if d.TenorYears <= 0 {
			c.errorf(StepDebt, "debt_tenor_invalid", field+".tenorYears", "Enter the loan term in years.",
				"Debt item %s must have a positive tenor", name)
		}
		if d.Amortization != "" && d.Amortization != assumption.AmortizationAnnuity && d.Amortization != assumption.AmortizationBullet {
			c.errorf(StepDebt, "debt_amortization_invalid", field+".amortization", "Choose annuity or bullet repayment.",
				"Debt item %s has unknown amortization '%s'", name, d.Amortization)
		}
		validateProceeds(c, StepDebt, field, "Debt item "+name, d.UseOfProceeds, d.CapexIndex, capexCount)
	}
}

func validateEquity(c *collector, equity []assumption.EquityDriver, div assumption.DividendPolicy, capexCount int) {
	for i, e := range equity {
		field := fmt.Sprintf("equity[%d]", i)
		if e.Amount <= 0 {
			c.errorf(StepEquity, "equity_amount_invalid", field+".amount", "Enter the injection amount.",
				"Equity injection #%d must have a positive amount", i+1)
		}
		validateProceeds(c, StepEquity, field, fmt.Sprintf("Equity injection #%d", i+1), e.UseOfProceeds, e.CapexIndex, capexCount)
	}
	if div.PayoutPercent < 0 || div.PayoutPercent > 100 {
		c.errorf(StepEquity, "payout_invalid", "dividends.payoutPercent", "Enter a payout between 0 and 100.",
			"Dividend payout of %g%% is outside 0-100", div.PayoutPercent)
	}
}

func validateProceeds(c *collector, step WizardStep, field, label string, use assumption.UseOfProceeds, capexIndex *int, capexCount int) {
	switch use {
	case "", assumption.ProceedsCash, assumption.ProceedsOperations, assumption.ProceedsWorkingCapital:
	case assumption.ProceedsCapex:
		if capexIndex == nil || *capexIndex < 0 || *capexIndex >= capexCount {
			c.errorf(step, "proceeds_capex_link_invalid", field+".capexIndex",
				"Pick the capex item these proceeds pay for.",
				"%s funds capex but does not link to an existing capex item", label)
		}
	default:
		c.errorf(step, "proceeds_invalid", field+".useOfProceeds",
			"Choose cash, capex, working capital or operations.",
			"%s has unknown use of proceeds '%s'", label, use)
	}
}

func validateTax(c *collector, t assumption.TaxDriver) {
	if t.RatePercent < 0 || t.RatePercent > 100 {
		c.errorf(StepTax, "tax_rate_invalid", "tax.rate", "Enter a tax rate between 0 and 100.",
			"Tax rate of %g%% is outside 0-100", t.RatePercent)
	}
	if t.NOLCarryforward < 0 {
		c.errorf(StepTax, "nol_negative", "tax.nolCarryforward", "Enter the assessed loss as a positive amount.",
			"NOL carryforward cannot be negative (got %g)", t.NOLCarryforward)
	}
}

func validateScenarios(c *collector, sc assumption.ScenarioDrivers) {
	if _, ok := sc[assumption.ScenarioBase]; !ok {
		c.warnf(StepScenarios, "base_scenario_missing", "scenarios",
			"Restore the Base scenario with multipliers of 1.",
			"No Base scenario defined")
	}
	for _, name := range sortedKeys(sc) {
		m := sc[name]
		if m.RevenueGrowth < 0 || m.COGS < 0 || m.Opex < 0 {
			c.errorf(StepScenarios, "multiplier_negative", "scenarios."+name,
				"Scenario multipliers must be zero or more.",
				"Scenario %s has a negative multiplier", name)
		}
	}
}

var (
	knownVariables = map[assumption.Variable]bool{
		assumption.VarRevenueGrowth: true, assumption.VarCOGS: true, assumption.VarOpex: true,
		assumption.VarPrice: true, assumption.VarVolume: true, assumption.VarTaxRate: true,
		assumption.VarInterestRate: true, assumption.VarDSO: true, assumption.VarDIO: true, assumption.VarDPO: true,
	}
	knownMetrics = map[assumption.Metric]bool{
		assumption.MetricTotalRevenue: true, assumption.MetricTotalNetIncome: true, assumption.MetricEndingCash: true,
		assumption.MetricMinimumCash: true, assumption.MetricTotalEBITDA: true, assumption.MetricEndingEquity: true,
		assumption.MetricNPV: true,
	}
)

func validateSensitivity(c *collector, s *assumption.SensitivityDriver) {
	if s == nil {
		return
	}
	for i, axis := range []assumption.Axis{s.Variable1, s.Variable2} {
		field := fmt.Sprintf("sensitivity.variable%d", i+1)
		if !knownVariables[axis.Variable] {
			c.errorf(StepSensitivity, "sensitivity_variable_invalid", field+".variable",
				"Pick a driver to vary.",
				"Unknown sensitivity variable '%s'", axis.Variable)
		}
		if len(axis.Values) == 0 && axis.Steps < 1 {
			c.errorf(StepSensitivity, "sensitivity_steps_invalid", field+".steps",
				"Use at least one step.",
				"Sensitivity axis %d needs at least one step", i+1)
		}
	}
	if s.Variable1.Variable != "" && s.Variable1.Variable == s.Variable2.Variable {
		c.warnf(StepSensitivity, "sensitivity_same_variable", "sensitivity",
			"Pick two different drivers for a two-way table.",
			"Both sensitivity axes vary %s", s.Variable1.Variable)
	}
	if !knownMetrics[s.OutputMetric] {
		c.errorf(StepSensitivity, "sensitivity_metric_invalid", "sensitivity.outputMetric",
			"Pick the output to record.",
			"Unknown sensitivity output metric '%s'", s.OutputMetric)
	}
}

// IsKnownVariable reports whether v can be swept.
func IsKnownVariable(v assumption.Variable) bool { return knownVariables[v] }

// IsKnownMetric reports whether m can be recorded.
func IsKnownMetric(m assumption.Metric) bool { return knownMetrics[m] }
