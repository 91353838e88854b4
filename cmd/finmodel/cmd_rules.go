package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smme_finmodel/pkg/core/knowledge"
)

func (a *app) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the accounting identities checked after generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tFORMULA")
			for _, r := range knowledge.Rules() {
				fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Formula)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(w, "\nWhen a check fails:")
			for _, im := range knowledge.CommonImbalances() {
				fmt.Fprintf(w, "\n%s (%s schedule)\n  %s\n  Likely: %s\n  Fix: %s\n",
					im.Title, im.Schedule, im.Symptom, strings.Join(im.LikelyCauses, "; "), im.SuggestedFix)
			}
			return nil
		},
	}
}
