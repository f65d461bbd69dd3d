package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	intconfig "github.com/leapstack-labs/reetl/internal/config"
)

// generateSchemaDocs generates the reetl.yaml reference.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Required    bool
	Default     string
	Description string
	Category    string // "project", "source", "target", "network", "advanced"
}

// getConfigSchema returns the configuration schema definition, following
// internal/config and internal/cli/config.
func getConfigSchema() []ConfigField {
	return []ConfigField{
		{Name: "sql_dir", Type: "string", Default: intconfig.DefaultSQLDir, Description: "Directory holding the SQL step files", Category: "project"},
		{Name: "state_path", Type: "string", Default: intconfig.DefaultStateFile, Description: "Run history database; empty disables history", Category: "project"},
		{Name: "environment", Type: "string", Description: "Environment whose overrides apply", Category: "project"},
		{Name: "log_format", Type: "string", Default: intconfig.DefaultLogFormat, Description: "Log format: text or json", Category: "project"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Debug logging and state transitions", Category: "project"},
		{Name: "steps", Type: "list", Description: "Step list replacing the default plan", Category: "project"},

		{Name: "path", Type: "string", Default: intconfig.DefaultSourcePath, Description: "Workbook path", Category: "source"},
		{Name: "sheets.leads.sheet", Type: "string", Default: intconfig.DefaultLeadsSheet, Description: "Leads sheet name", Category: "source"},
		{Name: "sheets.leads.table", Type: "string", Default: intconfig.DefaultLeadsTable, Description: "Leads raw table", Category: "source"},
		{Name: "sheets.sales.sheet", Type: "string", Default: intconfig.DefaultSalesSheet, Description: "Sales sheet name", Category: "source"},
		{Name: "sheets.sales.table", Type: "string", Default: intconfig.DefaultSalesTable, Description: "Sales raw table", Category: "source"},

		{Name: "type", Type: "string", Default: intconfig.DefaultTargetType, Description: "Database type: mysql, postgres, duckdb, sqlite", Category: "target"},
		{Name: "schema", Type: "string", Default: intconfig.DefaultRawSchema, Description: "Schema receiving the raw tables", Category: "target"},
		{Name: "database", Type: "string", Description: "Database name, or file path for duckdb and sqlite", Category: "target"},

		{Name: "host", Type: "string", Description: "Database host", Category: "network"},
		{Name: "port", Type: "int", Default: strconv.Itoa(intconfig.DefaultPorts["mysql"]) + " / " + strconv.Itoa(intconfig.DefaultPorts["postgres"]), Description: "Database port (mysql / postgres)", Category: "network"},
		{Name: "user", Type: "string", Description: "Database username", Category: "network"},
		{Name: "password", Type: "string", Description: "Database password, `${VAR}` is expanded", Category: "network"},

		{Name: "options", Type: "map[string]string", Description: "Driver DSN options", Category: "advanced"},
		{Name: "params", Type: "map[string]any", Description: "Adapter settings (DuckDB extensions and settings)", Category: "advanced"},
	}
}

func fieldRows(fields []ConfigField, category string) [][]string {
	var rows [][]string
	for _, f := range fields {
		if f.Category != category {
			continue
		}
		defVal := "-"
		if f.Default != "" {
			defVal = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, defVal, f.Description})
	}
	return rows
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()
	headers := []string{"Field", "Type", "Default", "Description"}
	fields := getConfigSchema()

	w.Frontmatter("Configuration", "reetl configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("reetl is configured via `reetl.yaml` in your project root. Relative paths are resolved against the project root.")

	w.Header(2, "Project Settings")
	w.Table(headers, fieldRows(fields, "project"))

	w.Header(2, "Source")
	w.Paragraph("Fields under the `source` key:")
	w.Table(headers, fieldRows(fields, "source"))

	w.Header(2, "Target")
	w.Paragraph("Fields under the `target` key:")
	w.Table(headers, fieldRows(fields, "target"))

	w.Header(3, "MySQL and PostgreSQL")
	w.Table(headers, fieldRows(fields, "network"))

	w.Header(3, "Advanced")
	w.Table(headers, fieldRows(fields, "advanced"))

	w.Header(2, "Steps")
	w.Paragraph("Without `steps` the pipeline runs the ingestion step followed by the six default SQL files. A step list must start with the single ingestion step and list steps after their dependencies.")

	w.Header(2, "Full Configuration Example")
	w.CodeBlock("yaml", `source:
  path: data/realestate.xlsx
  sheets:
    leads: {sheet: "DE LEADS", table: de_leads_raw, label: Leads}
    sales: {sheet: "DE SALES", table: de_sales_raw, label: Sales}

sql_dir: sql
state_path: .reetl/state.db

target:
  type: mysql
  host: localhost
  user: etl
  password: ${MYSQL_PASSWORD}
  database: realestate_source
  schema: realestate_source

environments:
  prod:
    source: /mnt/share/realestate.xlsx
    target:
      host: db.prod.internal

steps:
  - {name: ingest_excel, kind: ingest}
  - {name: build_staging, file: 01_staging.sql, depends_on: [ingest_excel], reaches: StagingBuilt}`)

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}
