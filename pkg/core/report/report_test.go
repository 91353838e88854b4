package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/calc"
	"smme_finmodel/pkg/core/knowledge"
	"smme_finmodel/pkg/core/projection"
	"smme_finmodel/pkg/core/scenario"
	"smme_finmodel/pkg/core/validate"
)

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		0:           "0.00",
		12.345:      "12.35",
		999.994:     "999.99",
		1000:        "1,000.00",
		-1234567.5:  "(1,234,567.50)",
		100000:      "100,000.00",
		-0.001:      "0.00",
		12345678.91: "12,345,678.91",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatMoney(in), "%v", in)
	}
}

func generate(t *testing.T) *projection.Result {
	t.Helper()
	s := assumption.NewModelState("Spaza <Shop> | Ltd").
		WithProfile(assumption.CompanyProfile{StartDate: assumption.NewDate(2025, time.January, 1), HorizonYears: 2, Frequency: assumption.FrequencyAnnual}).
		WithRevenue(assumption.RevenueDriver{Segment: "Groceries", UnitPrice: 20, StartingVolume: 10000, GrowthRates: []float64{0, 10}}).
		WithCOGS(assumption.COGSDriver{Basis: assumption.PercentOfRevenue{Percent: 70}})
	r, err := projection.NewEngine(projection.Settings{}).Generate(s)
	require.NoError(t, err)
	return r
}

func TestMarkdownAndHTML(t *testing.T) {
	r := generate(t)
	summary := calc.Summarize(r, 10)
	findings := []validate.Finding{{
		Kind: knowledge.KindCashShortfall, Severity: validate.SeverityWarning, Period: 2,
		Message: "Negative cash in period 2", SuggestedFix: "Add funding",
	}}
	md := Markdown(Input{Result: r, Findings: findings, Summary: &summary, Warnings: []validate.Issue{{Message: "No COGS method selected", SuggestedFix: "Pick one."}}})

	assert.Contains(t, md, "# Spaza &lt;Shop&gt; \\| Ltd")
	assert.Contains(t, md, "| **Net Income** |")
	assert.Contains(t, md, "200,000.00")

	out, err := HTML(md)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)

	headings := doc.Find("h2").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	assert.Equal(t, []string{"Key Figures", "Income Statement", "Balance Sheet", "Cash Flow Statement", "Consistency Checks", "Input Warnings"}, headings)
	assert.Equal(t, 5, doc.Find("table").Length())

	// Income statement: header row plus one row per skeleton line.
	is := doc.Find("table").Eq(1)
	assert.Equal(t, len(projection.IncomeStatementSkeleton().Lines), is.Find("tbody tr").Length())
	assert.Equal(t, []string{"Line", "FY2025", "FY2026"}, is.Find("thead th").Map(func(_ int, s *goquery.Selection) string { return s.Text() }))
	revenue := is.Find("tbody tr").First().Find("td")
	assert.Equal(t, "Revenue", revenue.Eq(0).Text())
	assert.Equal(t, "200,000.00", revenue.Eq(1).Text())
	assert.Equal(t, "220,000.00", revenue.Eq(2).Text())

	// User text is escaped, never rendered as markup.
	assert.Equal(t, 0, doc.Find("shop").Length())
	assert.Contains(t, doc.Find("h1").Text(), "Spaza <Shop> | Ltd")
	assert.Contains(t, doc.Find("table").Eq(4).Text(), "Add funding")
}

func TestMarkdown_NoFindings(t *testing.T) {
	md := Markdown(Input{Result: generate(t)})
	assert.Contains(t, md, "All accounting identities hold.")
	assert.NotContains(t, md, "Key Figures")
	assert.Empty(t, Markdown(Input{}))
}

func TestScenarioAndSensitivityMarkdown(t *testing.T) {
	s := assumption.NewModelState("Tuck shop").
		WithProfile(assumption.CompanyProfile{StartDate: assumption.NewDate(2025, time.January, 1), HorizonYears: 1, Frequency: assumption.FrequencyAnnual}).
		WithRevenue(assumption.RevenueDriver{Segment: "Snacks", UnitPrice: 10, StartingVolume: 1000, GrowthRates: []float64{10}})
	outcomes, err := scenario.RunScenarios(context.Background(), nil, s)
	require.NoError(t, err)

	out, err := HTML(ScenarioMarkdown(outcomes, 0))
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	rows := doc.Find("tbody tr")
	require.Equal(t, 3, rows.Length())
	assert.Equal(t, "Base", rows.Eq(0).Find("td").First().Text())
	assert.Equal(t, "Best", rows.Eq(1).Find("td").First().Text())

	grid := &scenario.Grid{
		Variable1: assumption.VarPrice, Variable2: assumption.VarDSO, Metric: assumption.MetricEndingCash,
		Values1: []float64{0.9, 1.1}, Values2: []float64{30, 60},
		Cells: [][]float64{{1, 2}, {3, -4}},
	}
	sens := SensitivityMarkdown(grid)
	assert.Contains(t, sens, "| price \\ dso | 30 | 60 |")
	assert.Contains(t, sens, "| 1.1 | 3.00 | (4.00) |")
}

func TestPage(t *testing.T) {
	p := Page("A & B", "<p>x</p>\n")
	assert.Contains(t, p, "<title>A &amp; B</title>")
	assert.True(t, strings.HasSuffix(p, "</html>\n"))
}
