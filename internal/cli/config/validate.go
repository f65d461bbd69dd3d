package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}
	if c.SQLDir == "" {
		return fmt.Errorf("sql_dir is required")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ValidateDirectories checks that the SQL directory exists.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.SQLDir); os.IsNotExist(err) {
		return fmt.Errorf("sql directory does not exist: %s\nHint: run 'reetl init' or use --sql-dir to specify a different path", c.SQLDir)
	}
	return nil
}
