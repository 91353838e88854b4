// Command finmodel generates and checks three-statement models from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smme_finmodel/pkg/core/config"
	"smme_finmodel/pkg/core/logger"
	"smme_finmodel/pkg/core/pipeline"
)

// app is the state shared by every subcommand, filled in by the root
// PersistentPreRunE.
type app struct {
	configPath string
	verbose    bool
	userID     string

	cfg  config.Config
	log  *zap.Logger
	orch *pipeline.Orchestrator
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "finmodel",
		Short: "Three-statement financial models for small businesses",
		Long: `Generate linked income statement, balance sheet and cash flow
projections from a model document, then check that they tie out.

Model documents are JSON. Hand-edited files with comments or trailing
commas are accepted. Use "-" to read from stdin.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(a.validateCmd())
	root.AddCommand(a.generateCmd())
	root.AddCommand(a.scenariosCmd())
	root.AddCommand(a.sensitivityCmd())
	root.AddCommand(a.modelsCmd())
	root.AddCommand(a.rulesCmd())
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	a.orch = pipeline.NewOrchestrator(pipeline.Config{
		Tolerance:    cfg.Engine.Tolerance,
		DaysInYear:   cfg.Engine.DaysInYear,
		DiscountRate: cfg.Engine.DiscountRate,
		Workers:      cfg.Scenario.Workers,
	}, nil, log)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
