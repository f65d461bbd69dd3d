package commands

import (
	"github.com/spf13/cobra"
)

// NewStepsCommand creates the steps command.
func NewStepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "Show the validated step plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			plan, err := cfg.Plan()
			if err != nil {
				return err
			}
			if err := plan.Validate(); err != nil {
				return err
			}
			renderPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}
