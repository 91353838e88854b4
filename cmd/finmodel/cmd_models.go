package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smme_finmodel/pkg/core/pipeline"
	"smme_finmodel/pkg/core/store"
)

// modelsCmd manages saved models in the configured store.
func (a *app) modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Save, list, load and delete models in the configured store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			repo, err := store.Open(cmd.Context(), a.cfg.Store, a.log)
			if err != nil {
				return err
			}
			a.orch.SetRepository(repo)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if repo := a.orch.Repository(); repo != nil {
				_ = repo.Close()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&a.userID, "user", "u", "", "Owner of the models (required)")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your saved models, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.orch.Repository().List(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tVERSION\tUPDATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Version, s.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <model.json>",
		Short: "Save a model; a document with an id updates that model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := readModel(cmd, args[0])
			if err != nil {
				return err
			}
			sess := pipeline.NewSession(a.userID)
			sum, err := a.orch.Save(cmd.Context(), sess, state)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (version %d)\n", sum.ID, sum.Version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "load <id>",
		Short: "Print a saved model document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.orch.Load(cmd.Context(), pipeline.NewSession(a.userID), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), m)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.orch.Delete(cmd.Context(), pipeline.NewSession(a.userID), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
