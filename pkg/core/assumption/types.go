// Package assumption holds the model input document: the company profile and
// every driver the statement engine consumes.
// The document shape follows the wizard's model store so saved JSON round-trips
// unchanged between the UI and the engine.
package assumption

// =============================================================================
// COMPANY PROFILE
// =============================================================================

// CompanyProfile describes the modelled business and the forecast grid.
type CompanyProfile struct {
	Name              string    `json:"name"`
	Industry          string    `json:"industry,omitempty"`
	Currency          string    `json:"currency"`
	StartDate         Date      `json:"startDate"`
	HorizonYears      int       `json:"horizonYears"`
	Frequency         Frequency `json:"frequency"`
	HasHistoricalData bool      `json:"hasHistoricalData"`
}

// OpeningBalances is the balance sheet at the start of the horizon.
// Only read when HasHistoricalData is set; historical PPE and loans are
// carried as PPELineItem and DebtDriver{Existing: true}.
type OpeningBalances struct {
	Cash               float64 `json:"cash"`
	AccountsReceivable float64 `json:"accountsReceivable"`
	Inventory          float64 `json:"inventory"`
	AccountsPayable    float64 `json:"accountsPayable"`
	PaidInCapital      float64 `json:"paidInCapital"`
	RetainedEarnings   float64 `json:"retainedEarnings"`
}

// =============================================================================
// REVENUE
// =============================================================================

// Recognition is the revenue-recognition mode of a segment.
type Recognition string

const (
	RecognitionPointInTime Recognition = "point_in_time"
	RecognitionOverTime    Recognition = "over_time"
)

// RevenueDriver models one segment as price x volume.
type RevenueDriver struct {
	Segment        string  `json:"segment"`
	UnitPrice      float64 `json:"unitPrice"`
	StartingVolume float64 `json:"startingVolume"`
	// GrowthRates holds one volume growth rate (percent) per model period.
	GrowthRates []float64   `json:"growthRates"`
	Recognition Recognition `json:"recognition,omitempty"`
	// RecognitionPeriods is the service duration over which over-time billings
	// are recognised. Zero is treated as one period.
	RecognitionPeriods int `json:"recognitionPeriods,omitempty"`
}

// =============================================================================
// COSTS
// =============================================================================

// InventoryMethod is the inventory costing convention.
type InventoryMethod string

const (
	InventoryFIFO            InventoryMethod = "fifo"
	InventoryWeightedAverage InventoryMethod = "weighted_average"
)

// COGSDriver selects how cost of goods sold is derived. A nil Basis means the
// user has not picked a method yet.
type COGSDriver struct {
	Basis           COGSBasis
	InventoryMethod InventoryMethod
}

// OpexDriver is one operating expense line.
type OpexDriver struct {
	Name  string
	Basis OpexBasis
}

// =============================================================================
// FIXED ASSETS
// =============================================================================

// DepreciationMethod selects the depreciation curve.
type DepreciationMethod string

const (
	StraightLine           DepreciationMethod = "straight_line"
	DoubleDecliningBalance DepreciationMethod = "double_declining"
)

// CapexDriver is a planned asset purchase. PurchasePeriod and UsefulLife are
// counted in model periods; PurchasePeriod is 1-based.
type CapexDriver struct {
	AssetClass     string             `json:"assetClass"`
	Amount         float64            `json:"amount"`
	PurchasePeriod int                `json:"year"`
	UsefulLife     int                `json:"lifeYears"`
	Method         DepreciationMethod `json:"method"`
	// DisposalPeriod is the 1-based period in which the asset is sold; zero
	// keeps it for the whole horizon.
	DisposalPeriod   int     `json:"disposalPeriod,omitempty"`
	DisposalProceeds float64 `json:"disposalProceeds,omitempty"`
}

// PPELineItem is an asset already on the books at the start of the horizon.
type PPELineItem struct {
	AssetClass              string             `json:"assetClass"`
	Cost                    float64            `json:"cost"`
	AccumulatedDepreciation float64            `json:"accumulatedDepreciation"`
	RemainingLife           int                `json:"remainingLife"`
	Method                  DepreciationMethod `json:"method"`
}

// =============================================================================
// WORKING CAPITAL
// =============================================================================

// WorkingCapitalDriver holds the days-outstanding assumptions.
type WorkingCapitalDriver struct {
	DSO float64 `json:"dso"`
	DIO float64 `json:"dio"`
	DPO float64 `json:"dpo"`
}

// =============================================================================
// FINANCING
// =============================================================================

// Amortization is the repayment profile of a loan.
type Amortization string

const (
	AmortizationAnnuity Amortization = "annuity"
	AmortizationBullet  Amortization = "bullet"
)

// UseOfProceeds says where financing cash goes at draw date.
type UseOfProceeds string

const (
	ProceedsCash           UseOfProceeds = "cash"
	ProceedsCapex          UseOfProceeds = "capex"
	ProceedsWorkingCapital UseOfProceeds = "working_capital"
	ProceedsOperations     UseOfProceeds = "operations"
)

// DebtDriver is one loan facility.
type DebtDriver struct {
	Name          string        `json:"name"`
	Principal     float64       `json:"principal"`
	Rate          float64       `json:"rate"` // annual, percent
	TenorYears    float64       `json:"tenorYears"`
	Amortization  Amortization  `json:"amortization"`
	UseOfProceeds UseOfProceeds `json:"useOfProceeds,omitempty"`
	// CapexIndex links capex-bound proceeds to Capex[*CapexIndex].
	CapexIndex *int  `json:"capexIndex,omitempty"`
	DrawDate   *Date `json:"drawDate,omitempty"`
	DrawPeriod int   `json:"drawPeriod,omitempty"`
	// Existing loans are already drawn at the start of the horizon.
	Existing bool `json:"existing,omitempty"`
}

// EquityDriver is a cash equity injection.
type EquityDriver struct {
	Amount        float64       `json:"amount"`
	Date          *Date         `json:"date,omitempty"`
	Period        int           `json:"period,omitempty"`
	UseOfProceeds UseOfProceeds `json:"useOfProceeds,omitempty"`
	CapexIndex    *int          `json:"capexIndex,omitempty"`
}

// AssetDriver is an in-kind contribution of an asset by the owners.
type AssetDriver struct {
	Description string             `json:"description"`
	Amount      float64            `json:"amount"`
	Date        *Date              `json:"date,omitempty"`
	Period      int                `json:"period,omitempty"`
	UsefulLife  int                `json:"lifeYears"`
	Method      DepreciationMethod `json:"method"`
}

// DividendPolicy pays a share of positive net income in the same period.
type DividendPolicy struct {
	PayoutPercent float64 `json:"payoutPercent"`
}

// RetainedEarningsAdjustment is a cash-settled movement booked directly to
// retained earnings (owner drawings, prior-period corrections).
type RetainedEarningsAdjustment struct {
	Period      int     `json:"period"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// TaxDriver holds the income tax assumptions.
type TaxDriver struct {
	RatePercent     float64 `json:"rate"`
	NOLCarryforward float64 `json:"nolCarryforward"`
}

// =============================================================================
// SCENARIOS & SENSITIVITY
// =============================================================================

// Scenario names shipped with every model.
const (
	ScenarioBase  = "Base"
	ScenarioBest  = "Best"
	ScenarioWorst = "Worst"
)

// Multipliers scale drivers for a scenario run. 1.0 leaves a driver unchanged.
type Multipliers struct {
	RevenueGrowth float64 `json:"revenueGrowth"`
	COGS          float64 `json:"cogs"`
	Opex          float64 `json:"opex"`
}

// ScenarioDrivers maps scenario name to its multipliers.
type ScenarioDrivers map[string]Multipliers

// Variable names a driver the sensitivity sweep can move.
type Variable string

const (
	VarRevenueGrowth Variable = "revenue_growth"
	VarCOGS          Variable = "cogs"
	VarOpex          Variable = "opex"
	VarPrice         Variable = "price"
	VarVolume        Variable = "volume"
	VarTaxRate       Variable = "tax_rate"
	VarInterestRate  Variable = "interest_rate"
	VarDSO           Variable = "dso"
	VarDIO           Variable = "dio"
	VarDPO           Variable = "dpo"
)

// Metric names a scalar output of a generated statement set.
type Metric string

const (
	MetricTotalRevenue   Metric = "total_revenue"
	MetricTotalNetIncome Metric = "total_net_income"
	MetricEndingCash     Metric = "ending_cash"
	MetricMinimumCash    Metric = "minimum_cash"
	MetricTotalEBITDA    Metric = "total_ebitda"
	MetricEndingEquity   Metric = "ending_equity"
	MetricNPV            Metric = "npv"
)

// Axis is one dimension of a sensitivity sweep. Explicit Values win over the
// Min/Max/Steps range.
type Axis struct {
	Variable Variable  `json:"variable"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Steps    int       `json:"steps"`
	Values   []float64 `json:"values,omitempty"`
}

// Points expands the axis into the values to sweep.
func (a Axis) Points() []float64 {
	if len(a.Values) > 0 {
		return append([]float64(nil), a.Values...)
	}
	if a.Steps <= 1 {
		return []float64{a.Min}
	}
	points := make([]float64, a.Steps)
	step := (a.Max - a.Min) / float64(a.Steps-1)
	for i := range points {
		points[i] = a.Min + step*float64(i)
	}
	points[a.Steps-1] = a.Max
	return points
}

// SensitivityDriver defines a two-variable sweep.
type SensitivityDriver struct {
	Variable1    Axis   `json:"variable1"`
	Variable2    Axis   `json:"variable2"`
	OutputMetric Metric `json:"outputMetric"`
}

// =============================================================================
// MODEL STATE
// =============================================================================

// ModelState aggregates every assumption of one model. It is treated as an
// immutable snapshot: setters return a modified copy.
type ModelState struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Version int64  `json:"version,omitempty"`

	Profile CompanyProfile  `json:"profile"`
	Opening OpeningBalances `json:"openingBalances"`

	Revenue []RevenueDriver `json:"revenueDrivers"`
	COGS    COGSDriver      `json:"cogs"`
	Opex    []OpexDriver    `json:"opex"`

	Capex []CapexDriver `json:"capex"`
	PPE   []PPELineItem `json:"ppe,omitempty"`

	WorkingCapital WorkingCapitalDriver `json:"workingCapital"`

	Debt        []DebtDriver                 `json:"debt"`
	Equity      []EquityDriver               `json:"equity"`
	Assets      []AssetDriver                `json:"assetContributions,omitempty"`
	Dividends   DividendPolicy               `json:"dividends"`
	Adjustments []RetainedEarningsAdjustment `json:"retainedEarningsAdjustments,omitempty"`

	Tax TaxDriver `json:"tax"`

	Scenarios   ScenarioDrivers    `json:"scenarios"`
	Sensitivity *SensitivityDriver `json:"sensitivity,omitempty"`
}

// Periods is the number of forecast periods on the model grid.
func (s *ModelState) Periods() int {
	return s.Profile.Periods()
}
