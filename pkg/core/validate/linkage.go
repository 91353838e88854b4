package validate

import (
	"fmt"
	"math"

	"smme_finmodel/pkg/core/knowledge"
	"smme_finmodel/pkg/core/projection"
)

// =============================================================================
// CONSISTENCY CHECKER (cross-statement linkage)
// Every check is re-derived from the generated statements; the schedules the
// engine used are never consulted.
// =============================================================================

// Finding is one breached identity. Period is 1-based; 0 is the opening
// balance sheet.
type Finding struct {
	Kind         knowledge.ImbalanceKind `json:"kind"`
	Rule         string                  `json:"rule"`
	Severity     Severity                `json:"severity"`
	Schedule     knowledge.Schedule      `json:"schedule"`
	Period       int                     `json:"period"`
	Label        string                  `json:"label,omitempty"`
	Expected     float64                 `json:"expected"`
	Actual       float64                 `json:"actual"`
	Difference   float64                 `json:"difference"`
	Message      string                  `json:"message"`
	SuggestedFix string                  `json:"suggestedFix"`
}

// HasErrors reports whether any finding makes the statements unreliable.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

type linkage struct {
	tolerance float64
	findings  []Finding
}

func (l *linkage) compare(rule string, kind knowledge.ImbalanceKind, period int, label string, expected, actual float64) {
	diff := actual - expected
	if math.Abs(diff) <= l.tolerance {
		return
	}
	l.record(rule, kind, SeverityError, period, label, expected, actual, diff)
}

func (l *linkage) record(rule string, kind knowledge.ImbalanceKind, sev Severity, period int, label string, expected, actual, diff float64) {
	f := Finding{
		Kind:       kind,
		Rule:       rule,
		Severity:   sev,
		Period:     period,
		Label:      label,
		Expected:   expected,
		Actual:     actual,
		Difference: diff,
	}
	if im, ok := knowledge.Lookup(kind); ok {
		f.Schedule = im.Schedule
		f.SuggestedFix = im.SuggestedFix
		f.Message = fmt.Sprintf("%s in %s: expected %.2f, got %.2f (difference %.2f)", im.Title, periodName(period, label), expected, actual, diff)
	}
	l.findings = append(l.findings, f)
}

func periodName(period int, label string) string {
	switch {
	case period == 0:
		return "opening balance sheet"
	case label != "":
		return fmt.Sprintf("period %d (%s)", period, label)
	default:
		return fmt.Sprintf("period %d", period)
	}
}

// CheckConsistency verifies every period of a result within tolerance.
// A non-positive tolerance uses DefaultTolerance.
func CheckConsistency(r *projection.Result, tolerance float64) []Finding {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	l := &linkage{tolerance: tolerance}
	if r == nil {
		return nil
	}

	l.checkBalance(0, "", r.Opening)
	for i := range r.Periods {
		p := &r.Periods[i]
		prior := r.PriorBalanceSheet(i)
		n := i + 1

		l.checkBalance(n, p.Label, p.BalanceSheet)
		l.checkCash(n, p, prior)
		l.checkIncome(n, p)
		l.checkRetainedEarnings(n, p, prior)
		l.checkPPE(n, p, prior)
		l.checkDebt(n, p, prior)
		l.checkWorkingCapital(n, p, prior)

		if cash := p.BalanceSheet.Cash; cash < -tolerance {
			l.record("positive_cash", knowledge.KindCashShortfall, SeverityWarning, n, p.Label, 0, cash, cash)
		}
	}
	return l.findings
}

func (l *linkage) checkBalance(n int, label string, bs projection.BalanceSheet) {
	assets := bs.Cash + bs.AccountsReceivable + bs.Inventory + bs.FundedWorkingCapital +
		bs.PPEGross - bs.AccumulatedDepreciation
	liabilities := bs.AccountsPayable + bs.DeferredRevenue + bs.Debt
	equity := bs.PaidInCapital + bs.RetainedEarnings

	check := CheckBalanceEquation(assets, liabilities, equity, l.tolerance)
	if !check.IsBalanced {
		l.record("fundamental_equation", knowledge.KindBalanceSheet, SeverityError, n, label,
			check.ComputedAssets, check.TotalAssets, check.Difference)
	}
	l.compare("subtotals", knowledge.KindDoubleEntry, n, label, assets, bs.TotalAssets)
	l.compare("subtotals", knowledge.KindDoubleEntry, n, label, liabilities+equity, bs.TotalLiabilitiesAndEquity)
}

func (l *linkage) checkCash(n int, p *projection.PeriodStatements, prior projection.BalanceSheet) {
	cf := p.CashFlow
	if check := CheckCashFlowEquation(cf.CFO, cf.CFI, cf.CFF, cf.NetChange, l.tolerance); !check.IsBalanced {
		l.record("cash_sections", knowledge.KindCashImbalance, SeverityError, n, p.Label,
			check.ComputedTotal, check.ReportedTotal, check.Difference)
	}
	l.compare("cash_continuity", knowledge.KindCashImbalance, n, p.Label, prior.Cash, cf.BeginningCash)
	l.compare("cash_tie", knowledge.KindCashImbalance, n, p.Label, cf.BeginningCash+cf.NetChange, cf.EndingCash)
	l.compare("cash_tie", knowledge.KindCashImbalance, n, p.Label, cf.EndingCash, p.BalanceSheet.Cash)
}

func (l *linkage) checkIncome(n int, p *projection.PeriodStatements) {
	is := p.IncomeStatement
	ebt := is.Revenue - is.COGS - is.Opex - is.Depreciation - is.InterestExpense + is.GainOnDisposal
	l.compare("income_subtotals", knowledge.KindDoubleEntry, n, p.Label, ebt, is.EBT)
	l.compare("income_subtotals", knowledge.KindDoubleEntry, n, p.Label, is.EBT-is.TaxExpense, is.NetIncome)
	l.compare("net_income_tie", knowledge.KindDoubleEntry, n, p.Label, is.NetIncome, p.CashFlow.NetIncome)
}

func (l *linkage) checkRetainedEarnings(n int, p *projection.PeriodStatements, prior projection.BalanceSheet) {
	cf := p.CashFlow
	// Dividends and other equity carry their cash sign.
	expected := prior.RetainedEarnings + p.IncomeStatement.NetIncome + cf.Dividends + cf.OtherEquity
	l.compare("retained_earnings", knowledge.KindRetainedEarnings, n, p.Label, expected, p.BalanceSheet.RetainedEarnings)
}

func (l *linkage) checkPPE(n int, p *projection.PeriodStatements, prior projection.BalanceSheet) {
	cf := p.CashFlow
	disposedNBV := cf.DisposalProceeds - p.IncomeStatement.GainOnDisposal
	expected := prior.PPENet - cf.Capex + cf.NonCashAssetContributions - p.IncomeStatement.Depreciation - disposedNBV
	l.compare("ppe_rollforward", knowledge.KindPPEDepreciation, n, p.Label, expected, p.BalanceSheet.PPENet)
	l.compare("ppe_rollforward", knowledge.KindPPEDepreciation, n, p.Label, p.IncomeStatement.Depreciation, cf.Depreciation)
}

func (l *linkage) checkDebt(n int, p *projection.PeriodStatements, prior projection.BalanceSheet) {
	cf := p.CashFlow
	expected := prior.Debt + cf.DebtDraws + cf.DebtRepayments
	l.compare("debt_rollforward", knowledge.KindDebtSchedule, n, p.Label, expected, p.BalanceSheet.Debt)
}

func (l *linkage) checkWorkingCapital(n int, p *projection.PeriodStatements, prior projection.BalanceSheet) {
	bs, cf := p.BalanceSheet, p.CashFlow
	expected := -(bs.AccountsReceivable - prior.AccountsReceivable) -
		(bs.Inventory - prior.Inventory) -
		(bs.FundedWorkingCapital - prior.FundedWorkingCapital) +
		(bs.AccountsPayable - prior.AccountsPayable) +
		(bs.DeferredRevenue - prior.DeferredRevenue)
	actual := cf.ChangeInReceivables + cf.ChangeInInventory + cf.ChangeInFundedWC + cf.ChangeInPayables + cf.ChangeInDeferredRevenue
	l.compare("working_capital", knowledge.KindWorkingCapital, n, p.Label, expected, actual)
}
