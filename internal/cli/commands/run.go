package commands

import (
	"fmt"

	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/leapstack-labs/reetl/internal/pipeline"
	"github.com/leapstack-labs/reetl/internal/sqlfile"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	NoState bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: `Ingest the source workbook into raw tables, then apply the SQL step
files in order. Each SQL file runs in a single transaction.

The run stops at the first failing step. Later steps are skipped and the
command exits with a non-zero status. Row count mismatches found after
ingestion are reported as warnings and do not stop the run.`,
		Example: `  # Run with reetl.yaml from the current project
  reetl run

  # Use another workbook and target environment
  reetl run --source ./exports/realestate.xlsx --env prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record the run in the state database")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	logger := getLogger(cmd)
	ctx := cmd.Context()

	plan, err := cfg.Plan()
	if err != nil {
		return err
	}
	if len(cfg.Steps) == 0 {
		if err := cfg.ValidateDirectories(); err != nil {
			return err
		}
	}

	db, err := openTarget(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	driverOpts := []pipeline.Option{pipeline.WithLogger(logger)}
	if !opts.NoState {
		store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		if store != nil {
			defer func() { _ = store.Close() }()
			driverOpts = append(driverOpts, pipeline.WithRecorder(store))
		}
	}
	if cfg.Verbose {
		errOut := cmd.ErrOrStderr()
		driverOpts = append(driverOpts, pipeline.WithTransitionHook(func(from, to pipeline.State) {
			_, _ = fmt.Fprintf(errOut, "%s -> %s\n", from, to)
		}))
	}

	driver := pipeline.NewDriver(plan,
		ingest.New(db, cfg.IngestConfig(), logger),
		sqlfile.NewRunner(db, logger),
		driverOpts...,
	)

	res, err := driver.Run(ctx)
	if res != nil {
		renderRunResult(cmd.OutOrStdout(), res)
	}
	if err != nil {
		if res != nil && res.FailedStep != "" {
			return fmt.Errorf("step %s failed: %w", res.FailedStep, err)
		}
		return err
	}
	return nil
}
