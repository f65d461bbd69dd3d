package config

import (
	"strings"

	"github.com/leapstack-labs/reetl/internal/pipeline"
)

// Default configuration values.
const (
	DefaultSourcePath = "data/realestate.xlsx"
	DefaultSQLDir     = "sql"
	DefaultStateFile  = ".reetl/state.db"
	DefaultTargetType = "mysql"
	DefaultRawSchema  = "realestate_source"
	DefaultLogFormat  = "text"

	DefaultLeadsSheet = "DE LEADS"
	DefaultLeadsTable = "de_leads_raw"
	DefaultLeadsLabel = "Leads"
	DefaultSalesSheet = "DE SALES"
	DefaultSalesTable = "de_sales_raw"
	DefaultSalesLabel = "Sales"
)

// DefaultPorts maps network target types to their standard port.
var DefaultPorts = map[string]int{
	"mysql":    3306,
	"postgres": 5432,
}

// DefaultSQLFiles lists the SQL step files of the default plan.
func DefaultSQLFiles() []string {
	return append([]string(nil), pipeline.DefaultFiles...)
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultRawSchema
	}
	if t.Port == 0 {
		t.Port = DefaultPorts[t.Type]
	}
	if t.Type == "mysql" && t.Database == "" {
		t.Database = t.Schema
	}
}

// ApplySourceDefaults fills unset sheet mappings.
func ApplySourceDefaults(s *SourceConfig) {
	if s == nil {
		return
	}
	if s.Path == "" {
		s.Path = DefaultSourcePath
	}
	fill := func(c *SheetConfig, sheet, table, label string) {
		if c.Sheet == "" {
			c.Sheet = sheet
		}
		if c.Table == "" {
			c.Table = table
		}
		if c.Label == "" {
			c.Label = label
		}
	}
	fill(&s.Sheets.Leads, DefaultLeadsSheet, DefaultLeadsTable, DefaultLeadsLabel)
	fill(&s.Sheets.Sales, DefaultSalesSheet, DefaultSalesTable, DefaultSalesLabel)
}
