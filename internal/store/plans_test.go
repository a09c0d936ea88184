package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPlanIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := PlanRecord{ID: "p1", Table: "orders", Nested: true, PlanJSON: `{"nested":true}`, SQL: "SELECT 1"}
	inserted, err := s.RecordPlan(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.RecordPlan(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.ReadPlan(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "orders", got.Table)
	assert.True(t, got.Nested)
	assert.Equal(t, "SELECT 1", got.SQL)
	assert.Equal(t, int64(1), got.Seq)
}

func TestReadPlanNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestListPlansOrdersBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, rec := range []PlanRecord{
		{ID: "b", Table: "orders", PlanJSON: "{}", SQL: "SELECT 2"},
		{ID: "a", Table: "customer", PlanJSON: "{}", SQL: "SELECT 1", Fallback: "metric avg cannot nest"},
		{ID: "c", Table: "orders", PlanJSON: "{}", SQL: "SELECT 3"},
	} {
		_, err := s.RecordPlan(ctx, rec)
		require.NoError(t, err)
	}

	all, err := s.ListPlans(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})
	assert.Equal(t, "metric avg cannot nest", all[1].Fallback)

	orders, err := s.ListPlans(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "c", orders[1].ID)
}
