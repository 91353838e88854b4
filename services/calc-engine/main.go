// Command calc-engine is the one-shot entry point used by job runners.
//
//	-mode check      audits a statements document (as produced by calculate)
//	-mode calculate  generates statements for a model document
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"smme_finmodel/pkg/core/assumption"
	"smme_finmodel/pkg/core/calc"
	"smme_finmodel/pkg/core/projection"
	"smme_finmodel/pkg/core/utils"
	"smme_finmodel/pkg/core/validate"
)

// CheckOutput is printed in check mode.
type CheckOutput struct {
	Balanced bool               `json:"balanced"`
	Periods  int                `json:"periods"`
	Findings []validate.Finding `json:"findings"`
}

// CalculateOutput is printed in calculate mode. Statements is nil when the
// model has input errors.
type CalculateOutput struct {
	Issues     []validate.Issue   `json:"issues,omitempty"`
	Statements *projection.Result `json:"statements,omitempty"`
	Summary    *calc.Summary      `json:"summary,omitempty"`
	Findings   []validate.Finding `json:"findings,omitempty"`
}

type options struct {
	mode         string
	data         string
	discountRate float64
	tolerance    float64
	daysInYear   float64
}

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "calculate", "Mode: check or calculate")
	flag.StringVar(&opts.data, "data", "", "JSON payload (use - to read stdin)")
	flag.Float64Var(&opts.discountRate, "discount-rate", 12, "Annual discount rate in percent")
	flag.Float64Var(&opts.tolerance, "tolerance", validate.DefaultTolerance, "Linkage tolerance in currency units")
	flag.Float64Var(&opts.daysInYear, "days-in-year", 365, "Day-count convention (360 or 365)")
	flag.Parse()

	code, err := run(os.Stdin, os.Stdout, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// run returns the process exit code: 0 success, 1 usage or input error,
// 2 when the statements break an accounting identity.
func run(stdin io.Reader, stdout io.Writer, opts options) (int, error) {
	if opts.data == "" {
		return 1, errors.New("no data provided")
	}
	raw := opts.data
	if raw == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return 1, err
		}
		raw = string(b)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	switch opts.mode {
	case "check":
		var result projection.Result
		if _, err := utils.SmartParse(raw, &result); err != nil {
			return 1, fmt.Errorf("decode statements: %w", err)
		}
		if len(result.Periods) == 0 {
			return 1, errors.New("statements document has no periods")
		}
		out := CheckOutput{Periods: len(result.Periods), Findings: validate.CheckConsistency(&result, opts.tolerance)}
		out.Balanced = !validate.HasErrors(out.Findings)
		if err := enc.Encode(out); err != nil {
			return 1, err
		}
		if !out.Balanced {
			return 2, nil
		}
		return 0, nil

	case "calculate":
		state, err := assumption.Decode([]byte(raw))
		if err != nil {
			return 1, err
		}
		rep := validate.ValidateInputs(state)
		if !rep.IsValid {
			_ = enc.Encode(CalculateOutput{Issues: rep.Issues})
			return 1, errors.New("model has input errors")
		}
		result, err := projection.NewEngine(projection.Settings{DaysInYear: opts.daysInYear}).Generate(state)
		if err != nil {
			return 1, err
		}
		sum := calc.Summarize(result, opts.discountRate)
		out := CalculateOutput{
			Issues:     rep.Issues,
			Statements: result,
			Summary:    &sum,
			Findings:   validate.CheckConsistency(result, opts.tolerance),
		}
		if err := enc.Encode(out); err != nil {
			return 1, err
		}
		if validate.HasErrors(out.Findings) {
			return 2, nil
		}
		return 0, nil

	default:
		return 1, fmt.Errorf("unknown mode: %s", opts.mode)
	}
}
