package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history",
		Long: `List recent pipeline runs recorded in the state database, newest first.
With a run ID, show the steps of that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.StatePath == "" {
				return fmt.Errorf("run history is disabled: state_path is empty")
			}
			if !fileExists(cfg.StatePath) {
				renderRuns(cmd.OutOrStdout(), nil)
				return nil
			}

			store, err := openStore(cfg, getLogger(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				run, err := store.GetRun(args[0])
				if err != nil {
					return err
				}
				steps, err := store.GetStepRuns(run.ID)
				if err != nil {
					return err
				}
				renderStepRuns(cmd.OutOrStdout(), run, steps)
				return nil
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}
