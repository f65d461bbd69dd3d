package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/reetl/internal/pipeline"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/reetl/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/reetl/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/reetl/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reetl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"multiple variables", "${TEST_VAR_ONE}/${TEST_VAR_TWO}", "value_one/value_two"},
		{"variable in path", "/data/${TEST_VAR_ONE}/book.xlsx", "/data/value_one/book.xlsx"},
		{"unset variable stays as-is", "${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"no variables", "plain string", "plain string"},
		{"empty string", "", ""},
		{"mixed set and unset", "${TEST_VAR_ONE}:${UNSET_VAR}", "value_one:${UNSET_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &TargetConfig{Type: "postgres"}
		assert.Same(t, override, MergeTargetConfig(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &TargetConfig{Type: "mysql"}
		assert.Same(t, base, MergeTargetConfig(base, nil))
	})

	t.Run("override wins and base is untouched", func(t *testing.T) {
		base := &TargetConfig{
			Type:    "mysql",
			Host:    "localhost",
			Port:    3306,
			User:    "etl",
			Options: map[string]string{"charset": "utf8mb4"},
		}
		override := &TargetConfig{
			Host:    "db.prod",
			Options: map[string]string{"tls": "true"},
		}

		merged := MergeTargetConfig(base, override)

		assert.Equal(t, "mysql", merged.Type)
		assert.Equal(t, "db.prod", merged.Host)
		assert.Equal(t, 3306, merged.Port)
		assert.Equal(t, "etl", merged.User)
		assert.Equal(t, map[string]string{"charset": "utf8mb4", "tls": "true"}, merged.Options)
		assert.Equal(t, "localhost", base.Host)
		assert.Len(t, base.Options, 1)
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "target:\n  type: mysql\n  host: localhost\n  user: etl\n")
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "data", "realestate.xlsx"), cfg.Source.Path)
	assert.Equal(t, filepath.Join(root, "sql"), cfg.SQLDir)
	assert.Equal(t, filepath.Join(root, ".reetl", "state.db"), cfg.StatePath)
	assert.Equal(t, "text", cfg.LogFormat)

	assert.Equal(t, "DE LEADS", cfg.Source.Sheets.Leads.Sheet)
	assert.Equal(t, "de_leads_raw", cfg.Source.Sheets.Leads.Table)
	assert.Equal(t, "DE SALES", cfg.Source.Sheets.Sales.Sheet)
	assert.Equal(t, "de_sales_raw", cfg.Source.Sheets.Sales.Table)

	assert.Equal(t, 3306, cfg.Target.Port)
	assert.Equal(t, "realestate_source", cfg.Target.Schema)
	assert.Equal(t, "realestate_source", cfg.Target.Database)
	assert.Same(t, cfg, GetCurrentConfig())
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

func TestLoadConfig_FileValues(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `
source:
  path: /srv/input/book.xlsx
  sheets:
    sales:
      sheet: SALES 2024
sql_dir: transforms
log_format: json
target:
  type: postgres
  host: pg
  database: warehouse
  schema: raw
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/input/book.xlsx", cfg.Source.Path)
	assert.Equal(t, "SALES 2024", cfg.Source.Sheets.Sales.Sheet)
	assert.Equal(t, "de_sales_raw", cfg.Source.Sheets.Sales.Table)
	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "transforms"), cfg.SQLDir)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5432, cfg.Target.Port)

	ic := cfg.IngestConfig()
	assert.Equal(t, "raw", ic.Schema)
	require.Len(t, ic.Targets, 2)
	assert.Equal(t, "DE LEADS", ic.Targets[0].Sheet)
	assert.Equal(t, "SALES 2024", ic.Targets[1].Sheet)
}

func TestLoadConfig_TargetEnvVars(t *testing.T) {
	ResetConfig()
	t.Setenv("TEST_DB_USER", "testuser")
	t.Setenv("TEST_DB_PASSWORD", "secret123")
	cfgPath := writeConfig(t, `
target:
  type: mysql
  host: localhost
  user: ${TEST_DB_USER}
  password: ${TEST_DB_PASSWORD}
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "testuser", cfg.Target.User)
	assert.Equal(t, "secret123", cfg.Target.Password)
}

func TestLoadConfig_InvalidTarget(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown type", "target:\n  type: oracle\n", "unknown adapter type"},
		{"bad log format", "log_format: xml\ntarget:\n  type: sqlite\n  database: ':memory:'\n", "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfigWithEnv(t *testing.T) {
	content := `
source:
  path: dev.xlsx
environment: dev
target:
  type: mysql
  host: localhost
environments:
  dev:
    target:
      database: re_dev
  prod:
    source: /mnt/share/prod.xlsx
    target:
      host: db.prod
      database: re_prod
`
	t.Run("configured environment", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithEnv(writeConfig(t, content), "", nil)
		require.NoError(t, err)
		assert.Equal(t, "re_dev", cfg.Target.Database)
		assert.Equal(t, "localhost", cfg.Target.Host)
	})

	t.Run("override environment", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithEnv(writeConfig(t, content), "prod", nil)
		require.NoError(t, err)
		assert.Equal(t, "re_prod", cfg.Target.Database)
		assert.Equal(t, "db.prod", cfg.Target.Host)
		assert.Equal(t, "/mnt/share/prod.xlsx", cfg.Source.Path)
	})

	t.Run("unknown environment keeps base target", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfigWithEnv(writeConfig(t, content), "nonexistent", nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.Target.Host)
		assert.Equal(t, "realestate_source", cfg.Target.Database)
	})
}

func TestLoadConfig_Precedence(t *testing.T) {
	content := "sql_dir: from_file\ntarget:\n  type: mysql\n  host: file-host\n"

	t.Run("env overrides file", func(t *testing.T) {
		ResetConfig()
		t.Setenv("REETL_SQL_DIR", "/from_env")
		t.Setenv("REETL_TARGET__HOST", "env-host")

		cfg, err := LoadConfig(writeConfig(t, content), nil)
		require.NoError(t, err)
		assert.Equal(t, "/from_env", cfg.SQLDir)
		assert.Equal(t, "env-host", cfg.Target.Host)
	})

	t.Run("flag overrides env", func(t *testing.T) {
		ResetConfig()
		t.Setenv("REETL_SQL_DIR", "/from_env")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("sql-dir", "", "")
		flags.String("state", "", "")
		require.NoError(t, flags.Set("sql-dir", "/from_flag"))
		require.NoError(t, flags.Set("state", "/tmp/runs.db"))

		cfg, err := LoadConfig(writeConfig(t, content), flags)
		require.NoError(t, err)
		assert.Equal(t, "/from_flag", cfg.SQLDir)
		assert.Equal(t, "/tmp/runs.db", cfg.StatePath)
	})

	t.Run("unset flag falls back to env", func(t *testing.T) {
		ResetConfig()
		t.Setenv("REETL_SQL_DIR", "/from_env")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("sql-dir", "", "")

		cfg, err := LoadConfig(writeConfig(t, content), flags)
		require.NoError(t, err)
		assert.Equal(t, "/from_env", cfg.SQLDir)
	})

	t.Run("source flag is relative to the working directory", func(t *testing.T) {
		ResetConfig()
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("source", "", "")
		require.NoError(t, flags.Set("source", "book.xlsx"))

		cfg, err := LoadConfig(writeConfig(t, content), flags)
		require.NoError(t, err)

		want, err := filepath.Abs("book.xlsx")
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Source.Path)
	})
}

func TestConfig_Plan(t *testing.T) {
	t.Run("default plan", func(t *testing.T) {
		cfg := &Config{SQLDir: "/p/sql"}
		plan, err := cfg.Plan()
		require.NoError(t, err)
		require.Len(t, plan.Steps, 7)
		assert.Equal(t, pipeline.KindIngest, plan.Steps[0].Kind)
		assert.Equal(t, filepath.Join("/p/sql", "01_staging.sql"), plan.Steps[1].File)
	})

	t.Run("configured steps", func(t *testing.T) {
		ResetConfig()
		cfgPath := writeConfig(t, `
target:
  type: mysql
steps:
  - name: ingest_excel
    kind: ingest
  - name: build_staging
    file: staging.sql
    depends_on: [ingest_excel]
    reaches: StagingBuilt
  - name: build_facts
    file: facts.sql
    depends_on: [build_staging]
    reaches: SaleFactBuilt
`)
		cfg, err := LoadConfig(cfgPath, nil)
		require.NoError(t, err)

		plan, err := cfg.Plan()
		require.NoError(t, err)
		assert.Equal(t, []string{"ingest_excel", "build_staging", "build_facts"}, plan.Names())
		assert.Equal(t, filepath.Join(cfg.SQLDir, "facts.sql"), plan.Steps[2].File)
		assert.Equal(t, pipeline.KindSQL, plan.Steps[2].Kind)
	})

	t.Run("invalid steps", func(t *testing.T) {
		cfg := &Config{SQLDir: "sql", Steps: []StepConfig{
			{Name: "a", File: "a.sql", DependsOn: []string{"missing"}},
		}}
		_, err := cfg.Plan()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid steps")
	})
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{Source: SourceConfig{Path: "a.xlsx"}, SQLDir: "sql"}).Validate())

	err := (&Config{SQLDir: "sql"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.path is required")

	err = (&Config{Source: SourceConfig{Path: "a.xlsx"}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sql_dir is required")
}
