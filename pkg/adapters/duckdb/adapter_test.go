package duckdb

import (
	"context"
	"testing"

	"github.com/leapstack-labs/reetl/pkg/adapter"
	"github.com/leapstack-labs/reetl/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params",
			input: nil,
			want:  &Params{},
		},
		{
			name: "settings with mixed scalar types",
			input: map[string]any{
				"settings": map[string]any{"threads": 2, "memory_limit": "1GB"},
			},
			want: &Params{Settings: map[string]string{"threads": "2", "memory_limit": "1GB"}},
		},
		{
			name:  "extensions",
			input: map[string]any{"extensions": []any{"icu"}},
			want:  &Params{Extensions: []string{"icu"}},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"secrets": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Extensions, got.Extensions)
			assert.Equal(t, tt.want.Settings, got.Settings)
		})
	}
}

func TestConnect_InMemory(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS realestate_source"))
	require.NoError(t, adp.Exec(ctx, `CREATE TABLE realestate_source.t (id BIGINT)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO realestate_source.t VALUES (1), (2)`))

	n, err := adapter.CountRows(ctx, adp.SQLDB(), Dialect.QualifiedName("realestate_source", "t"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestConnect_WithSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	cfg := core.AdapterConfig{
		Params: map[string]any{
			"settings": map[string]any{"threads": "2"},
		},
	}
	require.NoError(t, adp.Connect(ctx, cfg))
	defer func() { _ = adp.Close() }()

	var threads string
	require.NoError(t, adp.SQLDB().QueryRowContext(ctx, "SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestConnect_InvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), core.AdapterConfig{Params: map[string]any{"bogus": true}})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}
