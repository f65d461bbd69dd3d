package testutil

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/adapters/sqlite"
	"github.com/leapstack-labs/reetl/pkg/dialect"
)

// MockAdapter is an adapter whose connection is a sqlmock database.
type MockAdapter struct {
	adapter.BaseSQLAdapter
	dialect *dialect.Dialect
}

// Connect is a no-op; the mock connection is established by NewMockAdapter.
func (m *MockAdapter) Connect(_ context.Context, cfg adapter.Config) error {
	m.Cfg = cfg
	return nil
}

// Dialect returns the dialect the mock was created with.
func (m *MockAdapter) Dialect() *dialect.Dialect {
	return m.dialect
}

// NewMockAdapter returns a connected mock adapter speaking d. Expectations
// are verified when the test ends.
func NewMockAdapter(t testing.TB, d *dialect.Dialect) (*MockAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return &MockAdapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db, Logger: NewTestLogger(t)},
		dialect:        d,
	}, mock
}

// OpenSQLite returns a connected in-memory SQLite adapter closed at test end.
func OpenSQLite(t testing.TB) adapter.Adapter {
	t.Helper()
	a := sqlite.New(NewTestLogger(t))
	if err := a.Connect(context.Background(), adapter.Config{Type: "sqlite"}); err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}
