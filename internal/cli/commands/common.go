// Package commands implements the reetl subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/reetl/internal/cli/config"
	"github.com/leapstack-labs/reetl/internal/pipeline"
	"github.com/leapstack-labs/reetl/internal/state"
	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/spf13/cobra"
)

var _ pipeline.Recorder = (*state.SQLiteStore)(nil)

var errNoConfig = errors.New("configuration not loaded")

// getConfig returns the configuration loaded by the root command.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errNoConfig
	}
	return cfg, nil
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

// openTarget connects to the configured database target.
func openTarget(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	db, err := adapter.Open(ctx, cfg.Target.AdapterConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s target: %w", cfg.Target.Type, err)
	}
	return db, nil
}

// openStore opens the run history store. It returns nil when run history
// is disabled.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if cfg.StatePath == "" {
		return nil, nil
	}
	store, err := state.OpenStore(cfg.StatePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// resolveScript finds a SQL file given on the command line. Relative paths
// that do not exist from the working directory are looked up in sqlDir.
func resolveScript(path, sqlDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if candidate := filepath.Join(sqlDir, path); fileExists(candidate) {
		return candidate
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
