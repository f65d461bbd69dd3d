package commands

import (
	"github.com/leapstack-labs/reetl/internal/sqlfile"
	"github.com/spf13/cobra"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec FILE...",
		Short: "Apply SQL files to the target",
		Long: `Apply one or more SQL files in order. Each file runs in its own
transaction and either applies completely or not at all. Relative paths
not found from the working directory are looked up in sql_dir.`,
		Example: `  reetl exec 03_core_dims.sql
  reetl exec sql/05_fact_lead.sql sql/06_fact_sale.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			logger := getLogger(cmd)

			db, err := openTarget(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			runner := sqlfile.NewRunner(db, logger)
			out := cmd.OutOrStdout()
			for _, arg := range args {
				res, err := runner.RunFile(cmd.Context(), resolveScript(arg, cfg.SQLDir))
				if err != nil {
					_, _ = failureColor.Fprintf(out, "%s: rolled back\n", arg)
					return err
				}
				_, _ = successColor.Fprintf(out, "%s: %d statements applied in %s\n",
					res.File, res.Statements, formatDuration(res.Duration))
			}
			return nil
		},
	}
}
