package quality

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/reetl/internal/testutil"
	"github.com/leapstack-labs/reetl/pkg/adapters/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countSales = "SELECT COUNT(*) FROM `realestate_source`.`de_sales_raw`"

func TestCheck_Match(t *testing.T) {
	db, mock := testutil.NewMockAdapter(t, mysql.Dialect)
	logger, logs := testutil.NewCaptureLogger()

	mock.ExpectQuery(regexp.QuoteMeta(countSales)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(500))

	rep := NewChecker(db, logger).Check(context.Background(), "Sales", "realestate_source", "de_sales_raw", 500)

	assert.True(t, rep.OK())
	assert.Equal(t, int64(500), rep.Destination)
	assert.Zero(t, rep.Delta)
	assert.Contains(t, logs.String(), "Sales rows - source: 500, db: 500")
	assert.NotContains(t, logs.String(), "level=WARN")
}

func TestCheck_MismatchIsWarningOnly(t *testing.T) {
	db, mock := testutil.NewMockAdapter(t, mysql.Dialect)
	logger, logs := testutil.NewCaptureLogger()

	mock.ExpectQuery(regexp.QuoteMeta(countSales)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(498))

	rep := NewChecker(db, logger).Check(context.Background(), "Sales", "realestate_source", "de_sales_raw", 500)

	require.NotNil(t, rep.Warning)
	assert.NoError(t, rep.Err)
	assert.Equal(t, int64(-2), rep.Delta)
	assert.Equal(t, int64(-2), rep.Warning.Delta())
	assert.Equal(t, "realestate_source.de_sales_raw", rep.Warning.Table)
	assert.Contains(t, rep.Warning.Error(), "delta -2")

	out := logs.String()
	assert.Contains(t, out, "Sales rows - source: 500, db: 498")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "delta=-2")
}

func TestCheck_CountFailureIsReported(t *testing.T) {
	db, mock := testutil.NewMockAdapter(t, mysql.Dialect)
	logger, logs := testutil.NewCaptureLogger()

	mock.ExpectQuery(regexp.QuoteMeta(countSales)).WillReturnError(assert.AnError)

	rep := NewChecker(db, logger).Check(context.Background(), "Sales", "realestate_source", "de_sales_raw", 10)

	assert.ErrorIs(t, rep.Err, assert.AnError)
	assert.Nil(t, rep.Warning)
	assert.False(t, rep.OK())
	assert.Contains(t, logs.String(), "completeness check failed")
}

func TestCheck_SQLite(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenSQLite(t)
	_, err := db.SQLDB().ExecContext(ctx, `CREATE TABLE de_leads_raw (id INTEGER); INSERT INTO de_leads_raw VALUES (1), (2), (3)`)
	require.NoError(t, err)

	rep := NewChecker(db, nil).Check(ctx, "Leads", "realestate_source", "de_leads_raw", 3)
	assert.True(t, rep.OK())
	assert.Equal(t, int64(3), rep.Destination)
}
