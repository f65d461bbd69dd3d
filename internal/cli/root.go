// Package cli provides the command-line interface for reetl.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/reetl/internal/cli/commands"
	"github.com/leapstack-labs/reetl/internal/cli/config"
	"github.com/spf13/cobra"

	// Register database adapters.
	_ "github.com/leapstack-labs/reetl/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/reetl/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/reetl/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/reetl/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// commands that run without a project configuration.
var configFreeCommands = map[string]bool{
	"help":       true,
	"completion": true,
	"__complete": true,
	"init":       true,
	"version":    true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile, envFlag string

	rootCmd := &cobra.Command{
		Use:   "reetl",
		Short: "reetl - real estate workbook ETL",
		Long: `reetl loads the leads and sales sheets of a real estate workbook into raw
tables and builds the staging, dimension and fact tables from six SQL files.

Each SQL file runs in one transaction. The run stops at the first failure and
reports the failing step.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFreeCommands[cmd.Name()] {
				return nil
			}

			cfg, err := config.LoadConfigWithEnv(cfgFile, envFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFormat)
			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					logger.Debug("using config file", "path", configFile)
				}
				logger.Debug("using target", "type", cfg.Target.Type, "schema", cfg.Target.Schema)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./reetl.yaml)")
	flags.StringVarP(&envFlag, "env", "e", "", "Environment to use (e.g., dev, prod)")
	flags.String("project-dir", "", "Project root directory")
	flags.String("source", "", "Path to the source workbook")
	flags.String("sql-dir", "", "Directory holding the SQL step files")
	flags.String("state", "", "Path to state database")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.String("log-format", "", "Log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewIngestCommand())
	rootCmd.AddCommand(commands.NewExecCommand())
	rootCmd.AddCommand(commands.NewStepsCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewLogger builds the CLI logger writing to w. Verbose enables debug
// records; format selects a text or JSON handler.
func NewLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Execute runs the root command. Interrupts cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for reetl.

To load completions:

Bash:
  $ source <(reetl completion bash)
  
  # To load completions for each session, execute once:
  # Linux:
  $ reetl completion bash > /etc/bash_completion.d/reetl
  # macOS:
  $ reetl completion bash > $(brew --prefix)/etc/bash_completion.d/reetl

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  
  # To load completions for each session, execute once:
  $ reetl completion zsh > "${fpath[1]}/_reetl"
  
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ reetl completion fish | source
  
  # To load completions for each session, execute once:
  $ reetl completion fish > ~/.config/fish/completions/reetl.fish

PowerShell:
  PS> reetl completion powershell | Out-String | Invoke-Expression
  
  # To load completions for every new session, run:
  PS> reetl completion powershell > reetl.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
