package commands

import (
	"fmt"
	"os"
	"path/filepath"

	intconfig "github.com/leapstack-labs/reetl/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// projectFile is the reetl.yaml written by init.
type projectFile struct {
	Source    sourceFile `yaml:"source"`
	SQLDir    string     `yaml:"sql_dir"`
	StatePath string     `yaml:"state_path"`
	LogFormat string     `yaml:"log_format"`
	Target    targetFile `yaml:"target"`
}

type sourceFile struct {
	Path   string               `yaml:"path"`
	Sheets map[string]sheetFile `yaml:"sheets"`
}

type sheetFile struct {
	Sheet string `yaml:"sheet"`
	Table string `yaml:"table"`
	Label string `yaml:"label"`
}

type targetFile struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema,omitempty"`
}

func newProjectFile(targetType string) projectFile {
	target := intconfig.TargetConfig{Type: targetType}
	intconfig.ApplyTargetDefaults(&target)

	tf := targetFile{Type: target.Type, Database: target.Database, Schema: target.Schema}
	switch target.Type {
	case "mysql", "postgres":
		tf.Host = "localhost"
		tf.Port = target.Port
		tf.User = "${REETL_DB_USER}"
		tf.Password = "${REETL_DB_PASSWORD}"
		if tf.Database == "" {
			tf.Database = "realestate"
		}
	default:
		tf.Database = "realestate." + target.Type
		tf.Schema = ""
	}

	return projectFile{
		Source: sourceFile{
			Path: intconfig.DefaultSourcePath,
			Sheets: map[string]sheetFile{
				"leads": {Sheet: intconfig.DefaultLeadsSheet, Table: intconfig.DefaultLeadsTable, Label: intconfig.DefaultLeadsLabel},
				"sales": {Sheet: intconfig.DefaultSalesSheet, Table: intconfig.DefaultSalesTable, Label: intconfig.DefaultSalesLabel},
			},
		},
		SQLDir:    intconfig.DefaultSQLDir,
		StatePath: intconfig.DefaultStateFile,
		LogFormat: intconfig.DefaultLogFormat,
		Target:    tf,
	}
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var targetType string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new reetl project",
		Long: `Initialize a new reetl project.

This creates:
  - reetl.yaml configuration file
  - sql/ with the six step files, 01_staging.sql to 06_fact_sale.sql
  - data/ for the source workbook`,
		Example: `  # Initialize in current directory
  reetl init

  # Initialize a DuckDB project in a new directory
  reetl init my-etl --target-type duckdb`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, targetType, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().StringVar(&targetType, "target-type", intconfig.DefaultTargetType, "Database target type (mysql|postgres|duckdb|sqlite)")
	_ = cmd.RegisterFlagCompletionFunc("target-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mysql", "postgres", "duckdb", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(cmd *cobra.Command, dir, targetType string, force bool) error {
	if err := intconfig.ValidateTarget(&intconfig.TargetConfig{Type: targetType}); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	content, err := yaml.Marshal(newProjectFile(targetType))
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	written, err := copyTemplate("project", dir, force)
	if err != nil {
		return fmt.Errorf("failed to write project files: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = successColor.Fprintf(out, "Initialized reetl project in %s\n", dir)
	_, _ = fmt.Fprintf(out, "  %s\n", intconfig.ConfigFileName)
	for _, f := range written {
		_, _ = fmt.Fprintf(out, "  %s\n", f)
	}
	_, _ = fmt.Fprintf(out, "\nNext: copy the workbook to %s and run 'reetl run'\n", intconfig.DefaultSourcePath)
	return nil
}
