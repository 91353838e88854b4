// Package report renders generated statements, findings and scenario output
// as Markdown, and Markdown as HTML.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"smme_finmodel/pkg/core/calc"
	"smme_finmodel/pkg/core/projection"
	"smme_finmodel/pkg/core/scenario"
	"smme_finmodel/pkg/core/validate"
)

// Input is everything a statement report shows.
type Input struct {
	Result   *projection.Result
	Findings []validate.Finding
	Warnings []validate.Issue
	Summary  *calc.Summary
}

// FormatMoney rounds to cents, groups thousands and shows negatives in
// parentheses.
func FormatMoney(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "(" + out + ")"
	}
	return out
}

func formatPercent(v float64) string {
	return decimal.NewFromFloat(v).Round(1).StringFixed(1) + "%"
}

// Markdown renders the summary, the three statements and any findings.
func Markdown(in Input) string {
	var b strings.Builder
	r := in.Result
	if r == nil {
		return ""
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(titleOr(r.ModelName, "Financial Model")))
	fmt.Fprintf(&b, "Currency: %s | Frequency: %s | Periods: %d\n\n", r.Currency, r.Frequency, len(r.Periods))

	if in.Summary != nil {
		writeSummary(&b, *in.Summary)
	}
	for _, sk := range projection.StandardSkeletons() {
		writeStatement(&b, sk, r)
	}
	writeFindings(&b, in.Findings)
	writeWarnings(&b, in.Warnings)
	return b.String()
}

func titleOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func writeSummary(b *strings.Builder, s calc.Summary) {
	b.WriteString("## Key Figures\n\n| Metric | Value |\n|---|---:|\n")
	rows := []struct {
		label string
		value string
	}{
		{"Total Revenue", FormatMoney(s.TotalRevenue)},
		{"Total EBITDA", FormatMoney(s.TotalEBITDA)},
		{"Total Net Income", FormatMoney(s.TotalNetIncome)},
		{"Ending Cash", FormatMoney(s.EndingCash)},
		{"Minimum Cash", FormatMoney(s.MinimumCash)},
		{"Ending Debt", FormatMoney(s.EndingDebt)},
		{"NPV of Free Cash Flow", FormatMoney(s.NPV)},
		{"Gross Margin", formatPercent(s.GrossMargin)},
		{"EBITDA Margin", formatPercent(s.EBITDAMargin)},
		{"Net Margin", formatPercent(s.NetMargin)},
		{"Revenue CAGR", formatPercent(s.RevenueCAGR)},
	}
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", row.label, row.value)
	}
	b.WriteString("\n")
}

func writeStatement(b *strings.Builder, sk projection.Skeleton, r *projection.Result) {
	fmt.Fprintf(b, "## %s\n\n| Line |", sk.Title)
	for _, p := range r.Periods {
		fmt.Fprintf(b, " %s |", escape(p.Label))
	}
	b.WriteString("\n|---|")
	for range r.Periods {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for _, line := range sk.Lines {
		label := line.Label
		if line.Total {
			label = "**" + label + "**"
		}
		fmt.Fprintf(b, "| %s |", label)
		for i := range r.Periods {
			fmt.Fprintf(b, " %s |", FormatMoney(line.Value(&r.Periods[i])))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeFindings(b *strings.Builder, findings []validate.Finding) {
	b.WriteString("## Consistency Checks\n\n")
	if len(findings) == 0 {
		b.WriteString("All accounting identities hold.\n\n")
		return
	}
	b.WriteString("| Severity | Period | Check | Difference | Suggested fix |\n|---|---:|---|---:|---|\n")
	for _, f := range findings {
		fmt.Fprintf(b, "| %s | %d | %s | %s | %s |\n",
			f.Severity, f.Period, escape(f.Message), FormatMoney(f.Difference), escape(f.SuggestedFix))
	}
	b.WriteString("\n")
}

func writeWarnings(b *strings.Builder, warnings []validate.Issue) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("## Input Warnings\n\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "- %s. %s\n", escape(w.Message), escape(w.SuggestedFix))
	}
	b.WriteString("\n")
}

// ScenarioMarkdown compares the headline figures of each scenario.
func ScenarioMarkdown(outcomes map[string]*scenario.Outcome, discountRate float64) string {
	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("## Scenarios\n\n| Scenario | Revenue x | COGS x | Opex x | Total Revenue | Total Net Income | Ending Cash | Minimum Cash | Checks |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---|\n")
	for _, name := range names {
		o := outcomes[name]
		s := calc.Summarize(o.Result, discountRate)
		checks := "ok"
		if validate.HasErrors(o.Findings) {
			checks = fmt.Sprintf("%d findings", len(o.Findings))
		}
		fmt.Fprintf(&b, "| %s | %g | %g | %g | %s | %s | %s | %s | %s |\n",
			escape(name), o.Multipliers.RevenueGrowth, o.Multipliers.COGS, o.Multipliers.Opex,
			FormatMoney(s.TotalRevenue), FormatMoney(s.TotalNetIncome),
			FormatMoney(s.EndingCash), FormatMoney(s.MinimumCash), checks)
	}
	b.WriteString("\n")
	return b.String()
}

// SensitivityMarkdown renders a grid with Variable1 down the rows.
func SensitivityMarkdown(g *scenario.Grid) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Sensitivity: %s\n\n| %s \\ %s |", g.Metric, g.Variable1, g.Variable2)
	for _, v := range g.Values2 {
		fmt.Fprintf(&b, " %g |", v)
	}
	b.WriteString("\n|---|")
	for range g.Values2 {
		b.WriteString("---:|")
	}
	b.WriteString("\n")
	for i, v := range g.Values1 {
		fmt.Fprintf(&b, "| %g |", v)
		for j := range g.Values2 {
			fmt.Fprintf(&b, " %s |", FormatMoney(g.At(i, j)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

var mdEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "<", "&lt;", ">", "&gt;")

// escape keeps user text from breaking table cells or injecting markup.
func escape(s string) string {
	return mdEscaper.Replace(s)
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// HTML converts Markdown to an HTML fragment. Raw HTML in the input is
// escaped.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Page wraps an HTML fragment in a standalone document.
func Page(title, body string) string {
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>" +
		htmlEscaper.Replace(title) + "</title></head><body>\n" + body + "</body></html>\n"
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
