package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/reetl/internal/ingest"
	"github.com/leapstack-labs/reetl/internal/loader"
	"github.com/leapstack-labs/reetl/internal/quality"
	"github.com/leapstack-labs/reetl/internal/source"
	"github.com/leapstack-labs/reetl/internal/sqlfile"
	"github.com/leapstack-labs/reetl/internal/testutil"
	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	report *ingest.Report
	err    error
	calls  int
}

func (f *fakeIngester) Ingest(context.Context) (*ingest.Report, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.report == nil {
		return &ingest.Report{}, nil
	}
	return f.report, nil
}

type fakeRunner struct {
	fail  map[string]error
	calls []string
}

func (f *fakeRunner) RunFile(_ context.Context, path string) (*sqlfile.Result, error) {
	name := filepath.Base(path)
	f.calls = append(f.calls, name)
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	return &sqlfile.Result{File: path, Statements: 2}, nil
}

type fakeRecorder struct {
	states   []string
	steps    map[string]*core.StepRun
	status   core.RunStatus
	failed   string
	errMsg   string
	createOK bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{steps: map[string]*core.StepRun{}, createOK: true}
}

func (f *fakeRecorder) CreateRun() (*core.Run, error) {
	if !f.createOK {
		return nil, errors.New("store unavailable")
	}
	return &core.Run{ID: "run-1", Status: core.RunStatusRunning}, nil
}

func (f *fakeRecorder) UpdateRunState(_ string, state string) error {
	f.states = append(f.states, state)
	return nil
}

func (f *fakeRecorder) CompleteRun(_ string, status core.RunStatus, failedStep, errMsg string) error {
	f.status, f.failed, f.errMsg = status, failedStep, errMsg
	return nil
}

func (f *fakeRecorder) RecordStepRun(sr *core.StepRun) error {
	sr.ID = sr.Step
	f.steps[sr.Step] = sr
	return nil
}

func (f *fakeRecorder) UpdateStepRun(*core.StepRun) error {
	return nil
}

func stepNames(res *RunResult, status core.StepRunStatus) []string {
	var out []string
	for _, s := range res.Steps {
		if s.Status == status {
			out = append(out, s.Step.Name)
		}
	}
	return out
}

func TestDriver_Success(t *testing.T) {
	runner := &fakeRunner{}
	var transitions []State
	d := NewDriver(DefaultPlan("sql"), &fakeIngester{}, runner,
		WithLogger(testutil.NewTestLogger(t)),
		WithTransitionHook(func(_, to State) { transitions = append(transitions, to) }),
	)

	res, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, res.State)
	assert.Empty(t, res.FailedStep)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, DefaultFiles, runner.calls)
	assert.Len(t, stepNames(res, core.StepRunStatusSuccess), 7)
	assert.Equal(t, []State{
		StateIngesting,
		StateStagingBuilt,
		StateLeadDimsBuilt,
		StateCoreDimsBuilt,
		StateSalesDimsBuilt,
		StateLeadFactBuilt,
		StateSaleFactBuilt,
		StateComplete,
	}, transitions)
}

func TestDriver_FailureStopsLaterSteps(t *testing.T) {
	dbErr := errors.New("Table 'dim_agent' doesn't exist")
	stepErr := &sqlfile.SQLExecutionError{File: "sql/02_lead_dims.sql", Index: 3, Total: 5, Err: dbErr}
	runner := &fakeRunner{fail: map[string]error{"02_lead_dims.sql": stepErr}}
	rec := newFakeRecorder()
	var transitions []State

	d := NewDriver(DefaultPlan("sql"), &fakeIngester{}, runner,
		WithRecorder(rec),
		WithTransitionHook(func(_, to State) { transitions = append(transitions, to) }),
	)

	res, err := d.Run(context.Background())

	require.Error(t, err)
	assert.Same(t, stepErr, err, "the originating error is returned unchanged")
	assert.ErrorIs(t, err, dbErr)

	assert.Equal(t, []string{"01_staging.sql", "02_lead_dims.sql"}, runner.calls, "no step after the failed one runs")
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StepBuildLeadDims, res.FailedStep)
	assert.Equal(t, []string{StepIngestExcel, StepBuildStaging}, stepNames(res, core.StepRunStatusSuccess))
	assert.Equal(t, []string{StepBuildLeadDims}, stepNames(res, core.StepRunStatusFailed))
	assert.Equal(t, []string{StepBuildCoreDims, StepBuildSalesDims, StepBuildFactLead, StepBuildFactSale},
		stepNames(res, core.StepRunStatusSkipped))
	assert.Equal(t, []State{StateIngesting, StateStagingBuilt, StateFailed}, transitions)

	assert.Equal(t, "run-1", res.ID)
	assert.Equal(t, core.RunStatusFailed, rec.status)
	assert.Equal(t, StepBuildLeadDims, rec.failed)
	assert.Equal(t, []string{"Ingesting", "StagingBuilt", "Failed"}, rec.states)
	assert.Equal(t, core.StepRunStatusFailed, rec.steps[StepBuildLeadDims].Status)
	assert.Equal(t, core.StepRunStatusSkipped, rec.steps[StepBuildFactSale].Status)
	assert.Contains(t, rec.steps[StepBuildFactSale].Error, StepBuildLeadDims)
}

func TestDriver_IngestFailure(t *testing.T) {
	ingErr := &source.SheetNotFoundError{Path: "data.xlsx", Sheet: "DE SALES"}
	runner := &fakeRunner{}

	res, err := NewDriver(DefaultPlan("sql"), &fakeIngester{err: ingErr}, runner).Run(context.Background())

	var sheetErr *source.SheetNotFoundError
	require.ErrorAs(t, err, &sheetErr)
	assert.Empty(t, runner.calls)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StepIngestExcel, res.FailedStep)
	assert.Len(t, stepNames(res, core.StepRunStatusSkipped), 6)
}

func TestDriver_FailureSkipsOnlyDependents(t *testing.T) {
	sql := func(name string, deps ...string) Step {
		return Step{Name: name, Kind: KindSQL, File: name + ".sql", DependsOn: deps}
	}
	plan := Plan{Steps: []Step{
		{Name: StepIngestExcel, Kind: KindIngest},
		sql("leads", StepIngestExcel),
		sql("lead_facts", "leads"),
		sql("sales", StepIngestExcel),
		sql("audit"),
	}}
	runner := &fakeRunner{fail: map[string]error{"leads.sql": errors.New("boom")}}
	rec := newFakeRecorder()

	res, err := NewDriver(plan, &fakeIngester{}, runner, WithRecorder(rec)).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"leads.sql"}, runner.calls, "the run stops at the failed step")
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []string{"lead_facts"}, stepNames(res, core.StepRunStatusSkipped))
	assert.Equal(t, []string{"sales", "audit"}, stepNames(res, core.StepRunStatusPending))
	assert.Equal(t, core.StepRunStatusSkipped, rec.steps["lead_facts"].Status)
	assert.Equal(t, core.StepRunStatusPending, rec.steps["sales"].Status)
	assert.Empty(t, rec.steps["sales"].Error)
}

func TestDriver_CompletenessWarningDoesNotFail(t *testing.T) {
	warn := &quality.CompletenessMismatchWarning{Table: "realestate_source.de_sales_raw", Source: 500, Destination: 498}
	ing := &fakeIngester{report: &ingest.Report{Tables: []ingest.TableReport{{
		Sheet:        "DE SALES",
		Table:        loader.TableRef{Schema: "realestate_source", Name: "de_sales_raw"},
		Rows:         498,
		Completeness: quality.Report{Source: 500, Destination: 498, Delta: -2, Warning: warn},
	}}}}

	res, err := NewDriver(DefaultPlan("sql"), ing, &fakeRunner{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, res.State)
	require.Len(t, res.Warnings(), 1)
	assert.Equal(t, int64(-2), res.Warnings()[0].Delta())
	assert.Equal(t, int64(498), res.Steps[0].RowsLoaded)
}

func TestDriver_RecorderFailureIsNotFatal(t *testing.T) {
	rec := newFakeRecorder()
	rec.createOK = false

	res, err := NewDriver(DefaultPlan("sql"), &fakeIngester{}, &fakeRunner{}, WithRecorder(rec)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateComplete, res.State)
	assert.NotEqual(t, "run-1", res.ID)
	assert.Empty(t, rec.states)
}

func TestDriver_InvalidPlan(t *testing.T) {
	plan := DefaultPlan("sql")
	plan.Steps[3].DependsOn = []string{"missing"}
	ing := &fakeIngester{}

	_, err := NewDriver(plan, ing, &fakeRunner{}).Run(context.Background())

	var ge *StepGraphError
	require.ErrorAs(t, err, &ge)
	assert.Zero(t, ing.calls)
}

func TestDriver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ing := &fakeIngester{}

	res, err := NewDriver(DefaultPlan("sql"), ing, &fakeRunner{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ing.calls)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StepIngestExcel, res.FailedStep)
}

func TestDriver_EndToEndSQLite(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenSQLite(t)
	logger := testutil.NewTestLogger(t)

	xlsx := testutil.WriteWorkbook(t, map[string][][]any{
		"DE LEADS": {
			{"Lead ID", "Agent", "Budget"},
			{1, "Ana", 250000},
			{2, "Ben", 300000},
			{3, "Ana", 180000},
		},
		"DE SALES": {
			{"Sale ID", "Lead ID", "Price"},
			{10, 1, 245000},
			{11, 3, 179500},
		},
	})

	sqlDir := t.TempDir()
	scripts := map[string]string{
		"01_staging.sql": `
DROP TABLE IF EXISTS stg_leads;
CREATE TABLE stg_leads AS SELECT "Lead ID" AS lead_id, "Agent" AS agent, "Budget" AS budget FROM de_leads_raw;
DROP TABLE IF EXISTS stg_sales;
CREATE TABLE stg_sales AS SELECT "Sale ID" AS sale_id, "Lead ID" AS lead_id, "Price" AS price FROM de_sales_raw;`,
		"02_lead_dims.sql": `
DROP TABLE IF EXISTS dim_agent;
CREATE TABLE dim_agent AS SELECT DISTINCT agent FROM stg_leads;`,
		"03_core_dims.sql":  `-- nothing to build yet`,
		"04_sales_dims.sql": `DROP TABLE IF EXISTS dim_price_band; CREATE TABLE dim_price_band AS SELECT DISTINCT CAST(price / 100000 AS INTEGER) AS band FROM stg_sales;`,
		"05_fact_lead.sql":  `DROP TABLE IF EXISTS fact_lead; CREATE TABLE fact_lead AS SELECT lead_id, agent, budget FROM stg_leads;`,
		"06_fact_sale.sql": `
DROP TABLE IF EXISTS fact_sale;
CREATE TABLE fact_sale AS
SELECT s.sale_id, s.price, l.agent FROM stg_sales s JOIN stg_leads l ON l.lead_id = s.lead_id;`,
	}
	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(sqlDir, name), []byte(body), 0o600))
	}

	ing := ingest.New(db, ingest.Config{
		Path:   xlsx,
		Schema: "realestate_source",
		Targets: []ingest.SheetTarget{
			{Sheet: "DE LEADS", Table: "de_leads_raw", Label: "Leads"},
			{Sheet: "DE SALES", Table: "de_sales_raw", Label: "Sales"},
		},
	}, logger)
	d := NewDriver(DefaultPlan(sqlDir), ing, sqlfile.NewRunner(db, logger), WithLogger(logger))

	for range 2 {
		res, err := d.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, StateComplete, res.State)
		assert.Empty(t, res.Warnings())

		agents, err := adapter.CountRows(ctx, db.SQLDB(), "dim_agent")
		require.NoError(t, err)
		assert.Equal(t, int64(2), agents)

		sales, err := adapter.CountRows(ctx, db.SQLDB(), "fact_sale")
		require.NoError(t, err)
		assert.Equal(t, int64(2), sales)
	}
}
