package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersDataset() Dataset {
	return Dataset{Tables: []TableData{{
		Name: "orders",
		Columns: []Column{
			{Name: "id", Type: "integer"},
			{Name: "region"},
			{Name: "amount", Type: "REAL"},
		},
		Rows: [][]any{
			{1, "EU", 10.5},
			{2, "US", 20},
			{3, nil, 5},
		},
	}}}
}

func TestLoadDatasetAndQuery(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.LoadDataset(ctx, ordersDataset()))

	res, err := s.Query(ctx, `SELECT id, region, amount FROM orders WHERE amount > ? ORDER BY id`, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "region", "amount"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{int64(1), "EU", 10.5}, res.Rows[0])
	assert.Equal(t, []any{int64(2), "US", 20.0}, res.Rows[1])

	maps := res.Maps()
	assert.Equal(t, "US", maps[1]["region"])
}

func TestLoadDatasetReplacesTables(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.LoadDataset(ctx, ordersDataset()))

	smaller := ordersDataset()
	smaller.Tables[0].Rows = smaller.Tables[0].Rows[:1]
	require.NoError(t, s.LoadDataset(ctx, smaller))

	res, err := s.Query(ctx, `SELECT COUNT(*) FROM orders`)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Rows[0][0])
}

func TestLoadDatasetNullsSurvive(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.LoadDataset(ctx, ordersDataset()))

	res, err := s.Query(ctx, `SELECT region FROM orders WHERE id = 3`)
	require.NoError(t, err)
	assert.Nil(t, res.Rows[0][0])
}

func TestLoadDatasetRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TableData)
	}{
		{"table name", func(td *TableData) { td.Name = "orders; DROP TABLE x" }},
		{"column name", func(td *TableData) { td.Columns[0].Name = "id)" }},
		{"column type", func(td *TableData) { td.Columns[0].Type = "INT(" }},
		{"no columns", func(td *TableData) { td.Columns = nil; td.Rows = nil }},
		{"short row", func(td *TableData) { td.Rows[0] = td.Rows[0][:2] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ds := ordersDataset()
			tt.mutate(&ds.Tables[0])
			assert.Error(t, s.LoadDataset(context.Background(), ds))
		})
	}
}

func TestLoadDatasetIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	ds := ordersDataset()
	ds.Tables = append(ds.Tables, TableData{Name: "bad name"})
	require.Error(t, s.LoadDataset(ctx, ds))

	_, err := s.Query(ctx, `SELECT COUNT(*) FROM orders`)
	assert.Error(t, err, "orders must not exist after a failed load")
}

func TestReadDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - name: orders
    columns:
      - {name: id, type: INTEGER}
      - {name: region}
    rows:
      - [1, EU]
      - [2, null]
`), 0o644))

	ds, err := ReadDataset(path)
	require.NoError(t, err)
	require.Len(t, ds.Tables, 1)
	assert.Equal(t, "orders", ds.Tables[0].Name)
	assert.Equal(t, []any{2, nil}, ds.Tables[0].Rows[1])

	s := createTestStore(t)
	require.NoError(t, s.LoadDataset(context.Background(), ds))
}

func TestReadDataset_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadDataset(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("tables: []\nextra: 1\n"), 0o644))
	_, err = ReadDataset(unknown)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("tables: []\n"), 0o644))
	_, err = ReadDataset(empty)
	assert.Error(t, err)
}
