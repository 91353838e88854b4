// Package knowledge is the accounting rules knowledge base: the identities a
// three-statement model must satisfy and the diagnostic table used to explain
// a breach to the user.
package knowledge

// =============================================================================
// IMBALANCE KINDS
// =============================================================================

// ImbalanceKind classifies a consistency finding.
type ImbalanceKind string

const (
	KindBalanceSheet     ImbalanceKind = "balance_sheet_imbalance"
	KindCashImbalance    ImbalanceKind = "cash_imbalance"
	KindRetainedEarnings ImbalanceKind = "retained_earnings_mismatch"
	KindPPEDepreciation  ImbalanceKind = "ppe_depreciation_error"
	KindDebtSchedule     ImbalanceKind = "debt_schedule_break"
	KindWorkingCapital   ImbalanceKind = "working_capital_disconnect"
	KindDoubleEntry      ImbalanceKind = "double_entry_violation"
	KindCashShortfall    ImbalanceKind = "cash_shortfall"
)

// Schedule names the builder most likely responsible for a finding.
type Schedule string

const (
	ScheduleIntegrator     Schedule = "statement_integrator"
	ScheduleDepreciation   Schedule = "depreciation"
	ScheduleDebt           Schedule = "debt"
	ScheduleWorkingCapital Schedule = "working_capital"
	ScheduleEquity         Schedule = "equity"
	ScheduleFunding        Schedule = "funding"
)

// Imbalance is one entry of the diagnostic table.
type Imbalance struct {
	Kind         ImbalanceKind `json:"kind"`
	Title        string        `json:"title"`
	Schedule     Schedule      `json:"schedule"`
	Symptom      string        `json:"symptom"`
	LikelyCauses []string      `json:"likelyCauses"`
	SuggestedFix string        `json:"suggestedFix"`
}

var commonImbalances = []Imbalance{
	{
		Kind:     KindBalanceSheet,
		Title:    "Balance sheet does not balance",
		Schedule: ScheduleIntegrator,
		Symptom:  "Total assets differ from total liabilities plus equity.",
		LikelyCauses: []string{
			"Opening balances entered without a matching equity or liability",
			"A non-cash movement booked on one side only",
		},
		SuggestedFix: "Check the opening balance sheet balances, then look for an entry posted to one statement only.",
	},
	{
		Kind:     KindCashImbalance,
		Title:    "Cash does not tie",
		Schedule: ScheduleIntegrator,
		Symptom:  "Ending cash on the cash flow statement differs from balance sheet cash, or beginning cash differs from the prior period.",
		LikelyCauses: []string{
			"A cash movement missing from CFO, CFI or CFF",
			"Opening cash not carried from the prior period",
		},
		SuggestedFix: "Reconcile each cash flow section against the balance sheet movements of the period.",
	},
	{
		Kind:     KindRetainedEarnings,
		Title:    "Retained earnings rollforward mismatch",
		Schedule: ScheduleEquity,
		Symptom:  "Closing retained earnings differ from opening + net income - dividends + adjustments.",
		LikelyCauses: []string{
			"Dividends declared but not deducted",
			"Net income on the balance sheet differs from the income statement",
		},
		SuggestedFix: "Review the dividend policy and retained earnings adjustments for the period.",
	},
	{
		Kind:     KindPPEDepreciation,
		Title:    "PPE or depreciation error",
		Schedule: ScheduleDepreciation,
		Symptom:  "Net PPE movement differs from capex + contributions - depreciation - disposals.",
		LikelyCauses: []string{
			"Useful life or purchase period inconsistent with the horizon",
			"Disposal recorded without releasing accumulated depreciation",
		},
		SuggestedFix: "Check capex amounts, useful lives and disposal periods on the Capex step.",
	},
	{
		Kind:     KindDebtSchedule,
		Title:    "Debt schedule break",
		Schedule: ScheduleDebt,
		Symptom:  "Closing debt differs from opening + draws - repayments.",
		LikelyCauses: []string{
			"Tenor shorter than one period",
			"Repayment larger than the outstanding balance",
		},
		SuggestedFix: "Review principal, rate, tenor and draw timing on the Debt step.",
	},
	{
		Kind:     KindWorkingCapital,
		Title:    "Working capital disconnect",
		Schedule: ScheduleWorkingCapital,
		Symptom:  "Working capital changes on the cash flow statement differ from the balance sheet movements.",
		LikelyCauses: []string{
			"Days outstanding changed without restating balances",
			"Funded working capital not reflected in operating cash flow",
		},
		SuggestedFix: "Confirm DSO, DIO and DPO on the Working Capital step.",
	},
	{
		Kind:     KindDoubleEntry,
		Title:    "Double-entry violation",
		Schedule: ScheduleIntegrator,
		Symptom:  "Net income on the cash flow statement differs from the income statement, or a subtotal does not add up.",
		LikelyCauses: []string{
			"A line included in one statement but not the other",
		},
		SuggestedFix: "Trace the line that differs back to its driver and make sure both statements read it.",
	},
	{
		Kind:     KindCashShortfall,
		Title:    "Cash shortfall",
		Schedule: ScheduleFunding,
		Symptom:  "Closing cash is negative.",
		LikelyCauses: []string{
			"Capex or losses not covered by funding",
		},
		SuggestedFix: "Add an equity injection or loan before the period, or defer capex.",
	},
}

// CommonImbalances returns a copy of the diagnostic table.
func CommonImbalances() []Imbalance {
	out := make([]Imbalance, len(commonImbalances))
	copy(out, commonImbalances)
	return out
}

// Lookup returns the diagnostic entry for a kind.
func Lookup(kind ImbalanceKind) (Imbalance, bool) {
	for _, im := range commonImbalances {
		if im.Kind == kind {
			return im, true
		}
	}
	return Imbalance{}, false
}

// =============================================================================
// ACCOUNTING IDENTITIES
// =============================================================================

// Rule is one identity the consistency checker verifies.
type Rule struct {
	ID      string        `json:"id"`
	Formula string        `json:"formula"`
	Kind    ImbalanceKind `json:"kind"`
}

var rules = []Rule{
	{ID: "fundamental_equation", Formula: "Assets = Liabilities + Equity", Kind: KindBalanceSheet},
	{ID: "cash_tie", Formula: "CF ending cash = BS cash", Kind: KindCashImbalance},
	{ID: "cash_continuity", Formula: "CF beginning cash = prior BS cash", Kind: KindCashImbalance},
	{ID: "retained_earnings", Formula: "RE_end = RE_begin + NI - Dividends + Adjustments", Kind: KindRetainedEarnings},
	{ID: "ppe_rollforward", Formula: "PPE_end = PPE_begin + Capex + Contributions - Depreciation - Disposals", Kind: KindPPEDepreciation},
	{ID: "debt_rollforward", Formula: "Debt_end = Debt_begin + Draws - Repayments", Kind: KindDebtSchedule},
	{ID: "working_capital", Formula: "CF working capital lines = -(ΔAR + ΔInventory + ΔFunded) + ΔAP + ΔDeferred", Kind: KindWorkingCapital},
	{ID: "net_income_tie", Formula: "CF net income = IS net income", Kind: KindDoubleEntry},
	{ID: "positive_cash", Formula: "Cash >= 0", Kind: KindCashShortfall},
}

// Rules lists the identities in the order they are checked.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
