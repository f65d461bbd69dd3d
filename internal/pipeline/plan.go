package pipeline

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/reetl/internal/dag"
)

// StepKind identifies what a step does.
type StepKind string

// Step kinds.
const (
	KindIngest StepKind = "ingest" // load the workbook into raw tables
	KindSQL    StepKind = "sql"    // apply one SQL file in a transaction
)

// Step is one named unit of the pipeline.
type Step struct {
	Name      string
	Kind      StepKind
	File      string   // SQL file for KindSQL steps
	DependsOn []string // names of steps that must succeed first
	Reaches   State    // state entered when the step succeeds; optional
}

// Plan is the ordered list of steps of a run.
type Plan struct {
	Steps []Step
}

// Default step names.
const (
	StepIngestExcel    = "ingest_excel"
	StepBuildStaging   = "build_staging"
	StepBuildLeadDims  = "build_lead_dims"
	StepBuildCoreDims  = "build_core_dims"
	StepBuildSalesDims = "build_sales_dims"
	StepBuildFactLead  = "build_fact_lead"
	StepBuildFactSale  = "build_fact_sale"
)

// DefaultFiles are the SQL step files of the default plan, in order.
var DefaultFiles = []string{
	"01_staging.sql",
	"02_lead_dims.sql",
	"03_core_dims.sql",
	"04_sales_dims.sql",
	"05_fact_lead.sql",
	"06_fact_sale.sql",
}

// DefaultPlan returns the standard pipeline with SQL files under sqlDir.
func DefaultPlan(sqlDir string) Plan {
	sql := func(name, file, dep string, reaches State) Step {
		return Step{
			Name:      name,
			Kind:      KindSQL,
			File:      filepath.Join(sqlDir, file),
			DependsOn: []string{dep},
			Reaches:   reaches,
		}
	}
	return Plan{Steps: []Step{
		{Name: StepIngestExcel, Kind: KindIngest},
		sql(StepBuildStaging, DefaultFiles[0], StepIngestExcel, StateStagingBuilt),
		sql(StepBuildLeadDims, DefaultFiles[1], StepBuildStaging, StateLeadDimsBuilt),
		sql(StepBuildCoreDims, DefaultFiles[2], StepBuildLeadDims, StateCoreDimsBuilt),
		sql(StepBuildSalesDims, DefaultFiles[3], StepBuildCoreDims, StateSalesDimsBuilt),
		sql(StepBuildFactLead, DefaultFiles[4], StepBuildSalesDims, StateLeadFactBuilt),
		sql(StepBuildFactSale, DefaultFiles[5], StepBuildFactLead, StateSaleFactBuilt),
	}}
}

// StepGraphError reports an invalid plan.
type StepGraphError struct {
	Step   string
	Reason string
	Cycle  []string
}

func (e *StepGraphError) Error() string {
	if len(e.Cycle) > 0 {
		return "step dependency cycle: " + strings.Join(e.Cycle, " -> ")
	}
	if e.Step == "" {
		return "invalid plan: " + e.Reason
	}
	return fmt.Sprintf("invalid step %q: %s", e.Step, e.Reason)
}

// Names returns step names in plan order.
func (p Plan) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

// Graph builds the dependency graph of the plan. Unknown dependencies are
// reported as errors.
func (p Plan) Graph() (*dag.Graph, error) {
	g := dag.NewGraph()
	for i := range p.Steps {
		g.AddNode(p.Steps[i].Name, &p.Steps[i])
	}
	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := g.GetNode(dep); !ok {
				return nil, &StepGraphError{Step: s.Name, Reason: fmt.Sprintf("unknown dependency %q", dep)}
			}
			if err := g.AddEdge(dep, s.Name); err != nil {
				return nil, &StepGraphError{Step: s.Name, Reason: err.Error()}
			}
		}
	}
	return g, nil
}

// Validate checks that the plan can run: exactly one ingestion step and it
// comes first, unique names, SQL steps name a file, reached states are known
// and unique, dependencies exist, there is no cycle and every step is listed
// after its dependencies.
func (p Plan) Validate() error {
	if len(p.Steps) == 0 {
		return &StepGraphError{Reason: "no steps"}
	}

	seen := make(map[string]bool, len(p.Steps))
	reached := make(map[State]string)
	ingest := 0
	for i, s := range p.Steps {
		if s.Name == "" {
			return &StepGraphError{Reason: fmt.Sprintf("step %d has no name", i+1)}
		}
		if seen[s.Name] {
			return &StepGraphError{Step: s.Name, Reason: "duplicate step name"}
		}
		seen[s.Name] = true

		switch s.Kind {
		case KindIngest:
			ingest++
			if i != 0 {
				return &StepGraphError{Step: s.Name, Reason: "ingestion must be the first step"}
			}
		case KindSQL:
			if s.File == "" {
				return &StepGraphError{Step: s.Name, Reason: "sql step has no file"}
			}
		default:
			return &StepGraphError{Step: s.Name, Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
		}

		if s.Reaches != "" {
			if !s.Reaches.Known() {
				return &StepGraphError{Step: s.Name, Reason: fmt.Sprintf("unknown state %q", s.Reaches)}
			}
			if s.Reaches.reserved() {
				return &StepGraphError{Step: s.Name, Reason: fmt.Sprintf("state %s cannot be reached by a step", s.Reaches)}
			}
			if other, dup := reached[s.Reaches]; dup {
				return &StepGraphError{Step: s.Name, Reason: fmt.Sprintf("state %s already reached by %s", s.Reaches, other)}
			}
			reached[s.Reaches] = s.Name
		}
	}
	if ingest != 1 {
		return &StepGraphError{Reason: fmt.Sprintf("expected exactly one ingestion step, found %d", ingest)}
	}

	g, err := p.Graph()
	if err != nil {
		return err
	}
	if hasCycle, cycle := g.HasCycle(); hasCycle {
		return &StepGraphError{Cycle: cycle}
	}
	sorted, err := g.TopologicalSort()
	if err != nil {
		return &StepGraphError{Reason: err.Error()}
	}
	if names := p.Names(); !slices.Equal(sorted, names) {
		for i, name := range names {
			if sorted[i] != name {
				return &StepGraphError{Step: name, Reason: "listed before one of its dependencies"}
			}
		}
	}
	return nil
}
