package projection

import (
	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/schedule"
)

// LineAmount is one named line inside a statement section.
type LineAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// IncomeStatement for one period. Expenses are positive amounts.
type IncomeStatement struct {
	Revenue          float64      `json:"revenue"`
	RevenueBySegment []LineAmount `json:"revenueBySegment,omitempty"`
	COGS             float64      `json:"cogs"`
	GrossProfit      float64      `json:"grossProfit"`
	Opex             float64      `json:"opex"`
	OpexLines        []LineAmount `json:"opexLines,omitempty"`
	EBITDA           float64      `json:"ebitda"`
	Depreciation     float64      `json:"depreciation"`
	EBIT             float64      `json:"ebit"`
	InterestExpense  float64      `json:"interestExpense"`
	GainOnDisposal   float64      `json:"gainOnDisposal"`
	EBT              float64      `json:"ebt"`
	NOLUtilised      float64      `json:"nolUtilised"`
	TaxableIncome    float64      `json:"taxableIncome"`
	TaxExpense       float64      `json:"taxExpense"`
	NetIncome        float64      `json:"netIncome"`
}

// BalanceSheet at period end.
type BalanceSheet struct {
	Cash                    float64 `json:"cash"`
	AccountsReceivable      float64 `json:"accountsReceivable"`
	Inventory               float64 `json:"inventory"`
	FundedWorkingCapital    float64 `json:"fundedWorkingCapital"`
	TotalCurrentAssets      float64 `json:"totalCurrentAssets"`
	PPEGross                float64 `json:"ppeGross"`
	AccumulatedDepreciation float64 `json:"accumulatedDepreciation"`
	PPENet                  float64 `json:"ppeNet"`
	TotalAssets             float64 `json:"totalAssets"`

	AccountsPayable         float64 `json:"accountsPayable"`
	DeferredRevenue         float64 `json:"deferredRevenue"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
	Debt                    float64 `json:"debt"`
	TotalLiabilities        float64 `json:"totalLiabilities"`

	PaidInCapital    float64 `json:"paidInCapital"`
	RetainedEarnings float64 `json:"retainedEarnings"`
	TotalEquity      float64 `json:"totalEquity"`

	TotalLiabilitiesAndEquity float64 `json:"totalLiabilitiesAndEquity"`

	// NOLRemaining is a memo balance, not an asset.
	NOLRemaining float64 `json:"nolRemaining"`
}

// totals recomputes the subtotal lines from the leaf lines.
func (b *BalanceSheet) totals() {
	b.TotalCurrentAssets = b.Cash + b.AccountsReceivable + b.Inventory + b.FundedWorkingCapital
	b.PPENet = b.PPEGross - b.AccumulatedDepreciation
	b.TotalAssets = b.TotalCurrentAssets + b.PPENet
	b.TotalCurrentLiabilities = b.AccountsPayable + b.DeferredRevenue
	b.TotalLiabilities = b.TotalCurrentLiabilities + b.Debt
	b.TotalEquity = b.PaidInCapital + b.RetainedEarnings
	b.TotalLiabilitiesAndEquity = b.TotalLiabilities + b.TotalEquity
}

// CashFlowStatement for one period. Every line carries its cash sign:
// outflows are negative.
type CashFlowStatement struct {
	NetIncome               float64 `json:"netIncome"`
	Depreciation            float64 `json:"depreciation"`
	GainOnDisposal          float64 `json:"gainOnDisposal"`
	ChangeInReceivables     float64 `json:"changeInReceivables"`
	ChangeInInventory       float64 `json:"changeInInventory"`
	ChangeInPayables        float64 `json:"changeInPayables"`
	ChangeInDeferredRevenue float64 `json:"changeInDeferredRevenue"`
	ChangeInFundedWC        float64 `json:"changeInFundedWorkingCapital"`
	CFO                     float64 `json:"cfo"`

	Capex            float64 `json:"capex"`
	DisposalProceeds float64 `json:"disposalProceeds"`
	CFI              float64 `json:"cfi"`

	DebtDraws        float64 `json:"debtDraws"`
	DebtRepayments   float64 `json:"debtRepayments"`
	EquityInjections float64 `json:"equityInjections"`
	Dividends        float64 `json:"dividends"`
	OtherEquity      float64 `json:"otherEquity"`
	CFF              float64 `json:"cff"`

	NetChange     float64 `json:"netChange"`
	BeginningCash float64 `json:"beginningCash"`
	EndingCash    float64 `json:"endingCash"`

	// NonCashAssetContributions discloses in-kind PPE received for equity.
	NonCashAssetContributions float64 `json:"nonCashAssetContributions"`
}

// PeriodStatements are the three statements of one period.
type PeriodStatements struct {
	Index           int               `json:"index"`
	Label           string            `json:"label"`
	IncomeStatement IncomeStatement   `json:"incomeStatement"`
	BalanceSheet    BalanceSheet      `json:"balanceSheet"`
	CashFlow        CashFlowStatement `json:"cashFlow"`
}

// Schedules exposes the supporting schedules behind a result.
type Schedules struct {
	FixedAssets    schedule.FixedAssets         `json:"-"`
	Debt           schedule.DebtSchedule        `json:"-"`
	WorkingCapital []schedule.WorkingCapitalRow `json:"-"`
	Equity         []schedule.EquityRow         `json:"-"`
	Funding        schedule.Funding             `json:"-"`
}

// Result is a full statement set for one model run.
type Result struct {
	ModelName string               `json:"modelName"`
	Currency  string               `json:"currency"`
	Frequency assumption.Frequency `json:"frequency"`
	Opening   BalanceSheet         `json:"openingBalanceSheet"`
	Periods   []PeriodStatements   `json:"periods"`
	Schedules Schedules            `json:"-"`
}

// Last returns the final period, or nil for an empty run.
func (r *Result) Last() *PeriodStatements {
	if r == nil || len(r.Periods) == 0 {
		return nil
	}
	return &r.Periods[len(r.Periods)-1]
}

// PriorBalanceSheet returns the balance sheet that opens period i.
func (r *Result) PriorBalanceSheet(i int) BalanceSheet {
	if i <= 0 {
		return r.Opening
	}
	return r.Periods[i-1].BalanceSheet
}
