package commands

import (
	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/spf13/cobra"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load the source workbook into raw tables",
		Long: `Read the leads and sales sheets of the source workbook and replace the
raw tables with their rows, then compare row counts between the sheets and
the tables. No SQL step files are run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			rep, err := ingest.New(db, cfg.IngestConfig(), logger).Ingest(cmd.Context())
			if err != nil {
				return err
			}
			renderIngestReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}
