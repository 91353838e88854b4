package projection

// =============================================================================
// STATEMENT SKELETON
// The fixed line layout of each statement. Renderers walk these lists so the
// presentation order lives in one place.
// =============================================================================

// StatementKind names one of the three statements.
type StatementKind string

const (
	StatementIncome   StatementKind = "income_statement"
	StatementBalance  StatementKind = "balance_sheet"
	StatementCashFlow StatementKind = "cash_flow"
)

// Line is one row of a statement skeleton.
type Line struct {
	ID    string
	Label string
	Total bool // subtotal rows are emphasised
	Value func(p *PeriodStatements) float64
}

// Skeleton is the ordered layout of one statement.
type Skeleton struct {
	Kind  StatementKind
	Title string
	Lines []Line
}

// StandardSkeletons returns the income statement, balance sheet and cash flow
// layouts in presentation order.
func StandardSkeletons() []Skeleton {
	return []Skeleton{IncomeStatementSkeleton(), BalanceSheetSkeleton(), CashFlowSkeleton()}
}

// IncomeStatementSkeleton lays out the income statement.
func IncomeStatementSkeleton() Skeleton {
	is := func(f func(s *IncomeStatement) float64) func(p *PeriodStatements) float64 {
		return func(p *PeriodStatements) float64 { return f(&p.IncomeStatement) }
	}
	return Skeleton{
		Kind:  StatementIncome,
		Title: "Income Statement",
		Lines: []Line{
			{ID: "revenue", Label: "Revenue", Value: is(func(s *IncomeStatement) float64 { return s.Revenue })},
			{ID: "cogs", Label: "Cost of Goods Sold", Value: is(func(s *IncomeStatement) float64 { return s.COGS })},
			{ID: "gross_profit", Label: "Gross Profit", Total: true, Value: is(func(s *IncomeStatement) float64 { return s.GrossProfit })},
			{ID: "opex", Label: "Operating Expenses", Value: is(func(s *IncomeStatement) float64 { return s.Opex })},
			{ID: "ebitda", Label: "EBITDA", Total: true, Value: is(func(s *IncomeStatement) float64 { return s.EBITDA })},
			{ID: "depreciation", Label: "Depreciation", Value: is(func(s *IncomeStatement) float64 { return s.Depreciation })},
			{ID: "ebit", Label: "EBIT", Total: true, Value: is(func(s *IncomeStatement) float64 { return s.EBIT })},
			{ID: "interest", Label: "Interest Expense", Value: is(func(s *IncomeStatement) float64 { return s.InterestExpense })},
			{ID: "gain_on_disposal", Label: "Gain on Disposal", Value: is(func(s *IncomeStatement) float64 { return s.GainOnDisposal })},
			{ID: "ebt", Label: "Earnings Before Tax", Total: true, Value: is(func(s *IncomeStatement) float64 { return s.EBT })},
			{ID: "tax", Label: "Income Tax", Value: is(func(s *IncomeStatement) float64 { return s.TaxExpense })},
			{ID: "net_income", Label: "Net Income", Total: true, Value: is(func(s *IncomeStatement) float64 { return s.NetIncome })},
		},
	}
}

// BalanceSheetSkeleton lays out the balance sheet.
func BalanceSheetSkeleton() Skeleton {
	bs := func(f func(s *BalanceSheet) float64) func(p *PeriodStatements) float64 {
		return func(p *PeriodStatements) float64 { return f(&p.BalanceSheet) }
	}
	return Skeleton{
		Kind:  StatementBalance,
		Title: "Balance Sheet",
		Lines: []Line{
			{ID: "cash", Label: "Cash", Value: bs(func(s *BalanceSheet) float64 { return s.Cash })},
			{ID: "accounts_receivable", Label: "Accounts Receivable", Value: bs(func(s *BalanceSheet) float64 { return s.AccountsReceivable })},
			{ID: "inventory", Label: "Inventory", Value: bs(func(s *BalanceSheet) float64 { return s.Inventory })},
			{ID: "funded_working_capital", Label: "Funded Working Capital", Value: bs(func(s *BalanceSheet) float64 { return s.FundedWorkingCapital })},
			{ID: "total_current_assets", Label: "Total Current Assets", Total: true, Value: bs(func(s *BalanceSheet) float64 { return s.TotalCurrentAssets })},
			{ID: "ppe_gross", Label: "PPE at Cost", Value: bs(func(s *BalanceSheet) float64 { return s.PPEGross })},
			{ID: "accumulated_depreciation", Label: "Accumulated Depreciation", Value: bs(func(s *BalanceSheet) float64 { return -s.AccumulatedDepreciation })},
			{ID: "ppe_net", Label: "PPE, Net", Total: true, Value: bs(func(s *BalanceSheet) float64 { return s.PPENet })},
			{ID: "total_assets", Label: "Total Assets", Total: true, Value: bs(func(s *BalanceSheet) float64 { return s.TotalAssets })},
			{ID: "accounts_payable", Label: "Accounts Payable", Value: bs(func(s *BalanceSheet) float64 { return s.AccountsPayable })},
			{ID: "deferred_revenue", Label: "Deferred Revenue", Value: bs(func(s *BalanceSheet) float64 { return s.DeferredRevenue })},
			{ID: "debt", Label: "Debt", Value: bs(func(s *BalanceSheet) float64 { return s.Debt })},
			{ID: "total_liabilities", Label: "Total Liabilities", Total: true, Value: bs(func(s *BalanceSheet) float64 { return s.TotalLiabilities })},
			{ID: "paid_in_capital", Label: "Paid-in Capital", Value: bs(func(s *BalanceSheet) float64 { return s.PaidInCapital })},
			{ID: "retained_earnings", Label: "Retained Earnings", Value: bs(func(s *BalanceSheet) float64 { return s.RetainedEarnings })},
			{ID: "total_equity", Label: "Total Equity", Total: true, Value: bs(func(s *BalanceSheet) float64 { return s.TotalEquity })},
			{ID: "total_liabilities_equity", Label: "Total Liabilities & Equity", Total: true, Value: bs(func(s *BalanceSheet) float64 { return s.TotalLiabilitiesAndEquity })},
		},
	}
}

// CashFlowSkeleton lays out the cash flow statement.
func CashFlowSkeleton() Skeleton {
	cf := func(f func(s *CashFlowStatement) float64) func(p *PeriodStatements) float64 {
		return func(p *PeriodStatements) float64 { return f(&p.CashFlow) }
	}
	return Skeleton{
		Kind:  StatementCashFlow,
		Title: "Cash Flow Statement",
		Lines: []Line{
			{ID: "net_income", Label: "Net Income", Value: cf(func(s *CashFlowStatement) float64 { return s.NetIncome })},
			{ID: "depreciation", Label: "Depreciation", Value: cf(func(s *CashFlowStatement) float64 { return s.Depreciation })},
			{ID: "gain_on_disposal", Label: "Gain on Disposal", Value: cf(func(s *CashFlowStatement) float64 { return s.GainOnDisposal })},
			{ID: "change_in_working_capital", Label: "Change in Working Capital", Value: cf(func(s *CashFlowStatement) float64 {
				return s.ChangeInReceivables + s.ChangeInInventory + s.ChangeInPayables + s.ChangeInDeferredRevenue + s.ChangeInFundedWC
			})},
			{ID: "cfo", Label: "Cash from Operations", Total: true, Value: cf(func(s *CashFlowStatement) float64 { return s.CFO })},
			{ID: "capex", Label: "Capital Expenditure", Value: cf(func(s *CashFlowStatement) float64 { return s.Capex })},
			{ID: "disposal_proceeds", Label: "Disposal Proceeds", Value: cf(func(s *CashFlowStatement) float64 { return s.DisposalProceeds })},
			{ID: "cfi", Label: "Cash from Investing", Total: true, Value: cf(func(s *CashFlowStatement) float64 { return s.CFI })},
			{ID: "debt_draws", Label: "Debt Drawn", Value: cf(func(s *CashFlowStatement) float64 { return s.DebtDraws })},
			{ID: "debt_repayments", Label: "Debt Repaid", Value: cf(func(s *CashFlowStatement) float64 { return s.DebtRepayments })},
			{ID: "equity_injections", Label: "Equity Injections", Value: cf(func(s *CashFlowStatement) float64 { return s.EquityInjections })},
			{ID: "dividends", Label: "Dividends", Value: cf(func(s *CashFlowStatement) float64 { return s.Dividends })},
			{ID: "other_equity", Label: "Other Equity Movements", Value: cf(func(s *CashFlowStatement) float64 { return s.OtherEquity })},
			{ID: "cff", Label: "Cash from Financing", Total: true, Value: cf(func(s *CashFlowStatement) float64 { return s.CFF })},
			{ID: "net_change", Label: "Net Change in Cash", Total: true, Value: cf(func(s *CashFlowStatement) float64 { return s.NetChange })},
			{ID: "ending_cash", Label: "Ending Cash", Total: true, Value: cf(func(s *CashFlowStatement) float64 { return s.EndingCash })},
		},
	}
}
