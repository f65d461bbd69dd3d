// Package config provides configuration management for the reetl CLI.
//
// It layers defaults, reetl.yaml, REETL_ environment variables and command
// line flags into a Config, and derives the ingestion settings and step
// plan the pipeline runs with.
package config

import (
	sharedcfg "github.com/leapstack-labs/reetl/internal/config"
	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/leapstack-labs/reetl/internal/pipeline"
	"github.com/leapstack-labs/reetl/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// SourceConfig is an alias for the shared source workbook configuration.
type SourceConfig = sharedcfg.SourceConfig

// StepConfig is an alias for the shared step configuration.
type StepConfig = sharedcfg.StepConfig

// Config holds all CLI configuration options.
type Config struct {
	Source       SourceConfig         `koanf:"source"`
	SQLDir       string               `koanf:"sql_dir"`
	Steps        []StepConfig         `koanf:"steps"`
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogFormat    string               `koanf:"log_format"`
	Target       *TargetConfig        `koanf:"target"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Source string        `koanf:"source"` // workbook path
	Target *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultSQLDir    = sharedcfg.DefaultSQLDir
	DefaultLogFormat = sharedcfg.DefaultLogFormat
	DefaultEnv       = ""
)

// IngestConfig returns the ingestion settings for the configured target.
func (c *Config) IngestConfig() ingest.Config {
	schema := sharedcfg.DefaultRawSchema
	if c.Target != nil && c.Target.Schema != "" {
		schema = c.Target.Schema
	}
	return c.Source.IngestConfig(schema)
}

// Plan returns the step plan: the configured steps when present, otherwise
// the default six-script plan under SQLDir.
func (c *Config) Plan() (pipeline.Plan, error) {
	return sharedcfg.BuildPlan(c.SQLDir, c.Steps)
}
