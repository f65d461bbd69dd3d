package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/reetl/internal/cli/config"
	"github.com/leapstack-labs/reetl/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// setupProject initializes a SQLite project with a two-sheet workbook and
// returns the config path and workbook path.
func setupProject(t *testing.T) (string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "project")

	_, _, err := execute(t, "init", dir, "--target-type", "sqlite")
	require.NoError(t, err)

	book := testutil.WriteWorkbook(t, map[string][][]any{
		"DE LEADS": {
			{"Lead ID", "Agent", "Budget"},
			{1, "ana", 250000.5},
			{2, "ben", 410000},
			{3, "cy", 199000},
		},
		"DE SALES": {
			{"Sale ID", "Lead ID", "Price"},
			{10, 1, 245000},
			{11, 3, 201000},
		},
	})

	writeSQL(t, dir, "01_staging.sql", `
CREATE TABLE stg_leads AS SELECT * FROM de_leads_raw;
CREATE TABLE stg_sales AS SELECT * FROM de_sales_raw;`)

	return filepath.Join(dir, "reetl.yaml"), book
}

func writeSQL(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sql", name), []byte(content), 0600))
}

func TestInit_WritesProject(t *testing.T) {
	cfgPath, _ := setupProject(t)
	dir := filepath.Dir(cfgPath)

	for _, f := range []string{
		"reetl.yaml",
		".gitignore",
		"sql/01_staging.sql",
		"sql/02_lead_dims.sql",
		"sql/03_core_dims.sql",
		"sql/04_sales_dims.sql",
		"sql/05_fact_lead.sql",
		"sql/06_fact_sale.sql",
	} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	_, _, err := execute(t, "init", dir, "--target-type", "sqlite")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "init", dir, "--target-type", "sqlite", "--force")
	require.NoError(t, err)
}

func TestInit_UnknownTargetType(t *testing.T) {
	_, _, err := execute(t, "init", t.TempDir(), "--target-type", "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter type")
}

func TestRun_Success(t *testing.T) {
	cfgPath, book := setupProject(t)

	out, _, err := execute(t, "run", "--config", cfgPath, "--source", book)
	require.NoError(t, err)

	for _, step := range []string{"ingest_excel", "build_staging", "build_fact_sale"} {
		assert.Contains(t, out, step)
	}
	assert.Contains(t, out, "reached Complete")
	assert.NotContains(t, out, "warning")

	out, _, err = execute(t, "runs", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Complete")
}

func TestRun_FailingStepStopsPipeline(t *testing.T) {
	cfgPath, book := setupProject(t)
	writeSQL(t, filepath.Dir(cfgPath), "02_lead_dims.sql", `
CREATE TABLE dim_agent (name TEXT);
INSERT INTO no_such_table VALUES (1);`)

	out, _, err := execute(t, "run", "--config", cfgPath, "--source", book)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step build_lead_dims failed")
	assert.Contains(t, err.Error(), "statement 2 of 2")
	assert.Contains(t, out, "failed at step build_lead_dims")
	assert.Equal(t, 4, strings.Count(out, "skipped"), "core dims, sales dims and both facts are skipped")

	out, _, err = execute(t, "runs", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "build_lead_dims")
}

func TestIngest_ReportsRowCounts(t *testing.T) {
	cfgPath, book := setupProject(t)

	out, _, err := execute(t, "ingest", "--config", cfgPath, "--source", book)
	require.NoError(t, err)
	assert.Contains(t, out, "DE LEADS")
	assert.Contains(t, out, "de_sales_raw")
	assert.Contains(t, out, "Loaded 5 rows")
}

func TestIngest_MissingSource(t *testing.T) {
	cfgPath, _ := setupProject(t)

	_, _, err := execute(t, "ingest", "--config", cfgPath, "--source", filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.xlsx")
}

func TestExec_AppliesFile(t *testing.T) {
	cfgPath, _ := setupProject(t)
	writeSQL(t, filepath.Dir(cfgPath), "extra.sql", "CREATE TABLE a (x INTEGER); INSERT INTO a VALUES (1);")

	out, _, err := execute(t, "exec", "--config", cfgPath, "extra.sql")
	require.NoError(t, err)
	assert.Contains(t, out, "2 statements applied")
}

func TestSteps_ShowsPlan(t *testing.T) {
	cfgPath, _ := setupProject(t)

	out, _, err := execute(t, "steps", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ingest_excel")
	assert.Contains(t, out, "06_fact_sale.sql")
	assert.Contains(t, out, "SaleFactBuilt")
	assert.Contains(t, out, "States: Idle -> Ingesting -> StagingBuilt -> LeadDimsBuilt")
	assert.Contains(t, out, "SaleFactBuilt -> Complete")
}

func TestRuns_EmptyHistory(t *testing.T) {
	cfgPath, _ := setupProject(t)

	out, _, err := execute(t, "runs", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "reetl v"+Version)
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	NewLogger(buf, false, "json").Debug("hidden")
	NewLogger(buf, false, "json").Info("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(buf, true, "text").Debug("visible")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
