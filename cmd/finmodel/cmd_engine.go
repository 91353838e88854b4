package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/pipeline"
	"smme_finmodel/pkg/core/report"
	"smme_finmodel/pkg/core/validate"
)

var errInvalid = errors.New("model has input errors")

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model.json>",
		Short: "Check a model's assumptions without generating statements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readModel(cmd, args[0])
			if err != nil {
				return err
			}
			rep := a.orch.Validate(state)
			printIssues(cmd.OutOrStdout(), rep.Issues)
			if !rep.IsValid {
				return errInvalid
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Model is ready to generate.")
			return nil
		},
	}
}

func (a *app) generateCmd() *cobra.Command {
	var format, out string
	var withScenarios bool
	cmd := &cobra.Command{
		Use:   "generate <model.json>",
		Short: "Generate the three statements and check their linkage",
		Long: `Generate the income statement, balance sheet and cash flow for every
period, then re-derive the accounting identities from the output.

Formats: markdown (default), html, json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readModel(cmd, args[0])
			if err != nil {
				return err
			}
			run, err := a.orch.Generate(cmd.Context(), state)
			if err != nil {
				var invalid *pipeline.InvalidModelError
				if errors.As(err, &invalid) {
					printIssues(cmd.ErrOrStderr(), invalid.Report.Issues)
				}
				return err
			}
			w, closeFn, err := output(cmd, out)
			if err != nil {
				return err
			}
			defer closeFn()

			if format == "json" {
				return writeJSON(w, run)
			}
			md := report.Markdown(report.Input{Result: run.Result, Findings: run.Findings, Warnings: run.Report.Warnings(), Summary: &run.Summary})
			if withScenarios {
				outcomes, err := a.orch.Scenarios(cmd.Context(), state)
				if err != nil {
					return err
				}
				md += "\n" + report.ScenarioMarkdown(outcomes, a.cfg.Engine.DiscountRate)
			}
			switch format {
			case "markdown", "md":
				_, err = io.WriteString(w, md)
			case "html":
				var body string
				if body, err = report.HTML(md); err == nil {
					_, err = io.WriteString(w, report.Page(state.Name, body))
				}
			default:
				err = fmt.Errorf("unknown format '%s' (want markdown, html or json)", format)
			}
			if err != nil {
				return err
			}
			if !run.Reliable {
				return fmt.Errorf("statements failed %d consistency checks", len(run.Findings))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: markdown, html or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&withScenarios, "scenarios", false, "Append the scenario comparison")
	return cmd
}

func (a *app) scenariosCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scenarios <model.json>",
		Short: "Run the Base, Best and Worst cases side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readModel(cmd, args[0])
			if err != nil {
				return err
			}
			outcomes, err := a.orch.Scenarios(cmd.Context(), state)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), outcomes)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), report.ScenarioMarkdown(outcomes, a.cfg.Engine.DiscountRate))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full scenario statements as JSON")
	return cmd
}

func (a *app) sensitivityCmd() *cobra.Command {
	var v1, v2, metric, values1, values2 string
	cmd := &cobra.Command{
		Use:   "sensitivity <model.json>",
		Short: "Sweep two drivers and tabulate one output metric",
		Long: `Sweep two drivers and tabulate one output metric. Without flags the
model's own sensitivity definition is used.

Example:
  finmodel sensitivity cafe.json --x price --xs 0.9,1,1.1 --y dso --ys 0,30,60 --metric ending_cash`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readModel(cmd, args[0])
			if err != nil {
				return err
			}
			var driver *assumption.SensitivityDriver
			if v1 != "" || v2 != "" {
				xs, err := parseValues(values1)
				if err != nil {
					return fmt.Errorf("--xs: %w", err)
				}
				ys, err := parseValues(values2)
				if err != nil {
					return fmt.Errorf("--ys: %w", err)
				}
				driver = &assumption.SensitivityDriver{
					Variable1:    assumption.Axis{Variable: assumption.Variable(v1), Values: xs},
					Variable2:    assumption.Axis{Variable: assumption.Variable(v2), Values: ys},
					OutputMetric: assumption.Metric(metric),
				}
			}
			grid, err := a.orch.Sensitivity(cmd.Context(), state, driver)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), report.SensitivityMarkdown(grid))
			return err
		},
	}
	cmd.Flags().StringVar(&v1, "x", "", "Row variable")
	cmd.Flags().StringVar(&v2, "y", "", "Column variable")
	cmd.Flags().StringVar(&values1, "xs", "", "Comma-separated row values")
	cmd.Flags().StringVar(&values2, "ys", "", "Comma-separated column values")
	cmd.Flags().StringVar(&metric, "metric", string(assumption.MetricEndingCash), "Output metric")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

func readModel(cmd *cobra.Command, path string) (*assumption.ModelState, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return assumption.Decode(data)
}

func output(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printIssues(w io.Writer, issues []validate.Issue) {
	for _, is := range issues {
		step := ""
		if is.Step != nil {
			step = " [" + is.Step.Name + "]"
		}
		fmt.Fprintf(w, "%s%s %s: %s\n", strings.ToUpper(string(is.Severity)), step, is.Code, is.Message)
		if is.SuggestedFix != "" {
			fmt.Fprintf(w, "    fix: %s\n", is.SuggestedFix)
		}
	}
}

func parseValues(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		var v float64
		if _, err := fmt.Sscan(strings.TrimSpace(part), &v); err != nil {
			return nil, fmt.Errorf("bad value '%s'", part)
		}
		out = append(out, v)
	}
	return out, nil
}
