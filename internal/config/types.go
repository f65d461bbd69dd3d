// Package config provides the project configuration types shared by the CLI
// and the pipeline wiring: source workbook, SQL steps and database target.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/leapstack-labs/reetl/internal/pipeline"
	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/core"
)

// TargetConfig is the database target block of reetl.yaml.
type TargetConfig = core.TargetConfig

// SheetConfig maps one workbook sheet to a raw table.
type SheetConfig struct {
	Sheet string `koanf:"sheet"`
	Table string `koanf:"table"`
	Label string `koanf:"label"`
}

// SheetsConfig holds the two sheets the pipeline ingests.
type SheetsConfig struct {
	Leads SheetConfig `koanf:"leads"`
	Sales SheetConfig `koanf:"sales"`
}

// SourceConfig describes the source workbook.
type SourceConfig struct {
	Path   string       `koanf:"path"`
	Sheets SheetsConfig `koanf:"sheets"`
}

// StepConfig is one entry of an explicit step list.
type StepConfig struct {
	Name      string   `koanf:"name"`
	Kind      string   `koanf:"kind"` // ingest or sql; sql when empty
	File      string   `koanf:"file"` // relative to sql_dir unless absolute
	DependsOn []string `koanf:"depends_on"`
	Reaches   string   `koanf:"reaches"`
}

// IngestConfig returns the ingestion settings for target schema.
func (s SourceConfig) IngestConfig(schema string) ingest.Config {
	return ingest.Config{
		Path:   s.Path,
		Schema: schema,
		Targets: []ingest.SheetTarget{
			{Sheet: s.Sheets.Leads.Sheet, Table: s.Sheets.Leads.Table, Label: s.Sheets.Leads.Label},
			{Sheet: s.Sheets.Sales.Sheet, Table: s.Sheets.Sales.Table, Label: s.Sheets.Sales.Label},
		},
	}
}

// BuildPlan returns the default plan when steps is empty, otherwise the
// plan described by steps with files resolved against sqlDir. The plan is
// validated.
func BuildPlan(sqlDir string, steps []StepConfig) (pipeline.Plan, error) {
	if len(steps) == 0 {
		return pipeline.DefaultPlan(sqlDir), nil
	}

	plan := pipeline.Plan{Steps: make([]pipeline.Step, len(steps))}
	for i, sc := range steps {
		kind := pipeline.StepKind(sc.Kind)
		if kind == "" {
			kind = pipeline.KindSQL
		}
		file := sc.File
		if file != "" && !filepath.IsAbs(file) {
			file = filepath.Join(sqlDir, file)
		}
		plan.Steps[i] = pipeline.Step{
			Name:      sc.Name,
			Kind:      kind,
			File:      file,
			DependsOn: sc.DependsOn,
			Reaches:   pipeline.State(sc.Reaches),
		}
	}
	if err := plan.Validate(); err != nil {
		return pipeline.Plan{}, fmt.Errorf("invalid steps: %w", err)
	}
	return plan, nil
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}
