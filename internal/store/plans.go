package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrPlanNotFound is returned by ReadPlan for unknown IDs.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRecord is one row of the plan log.
type PlanRecord struct {
	ID       string
	Table    string
	Nested   bool
	Fallback string
	PlanJSON string // Canonical plan encoding
	SQL      string
	Seq      int64 // Assigned on insert
}

// RecordPlan appends rec to the plan log unless a plan with the same ID is
// already there. It reports whether a row was inserted.
func (s *Store) RecordPlan(ctx context.Context, rec PlanRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO nestq_plans (id, base_table, nested, fallback, plan_json, sql_text, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM nestq_plans))
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Table, rec.Nested, rec.Fallback, rec.PlanJSON, rec.SQL)
	if err != nil {
		return false, fmt.Errorf("record plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record plan: %w", err)
	}
	return n == 1, nil
}

// ReadPlan returns the plan with the given ID.
func (s *Store) ReadPlan(ctx context.Context, id string) (PlanRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, base_table, nested, fallback, plan_json, sql_text, seq
		FROM nestq_plans WHERE id = ?
	`, id)
	rec, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return PlanRecord{}, fmt.Errorf("read plan: %w", err)
	}
	return rec, nil
}

// ListPlans returns logged plans in insertion order, optionally restricted
// to one base table.
func (s *Store) ListPlans(ctx context.Context, table string) ([]PlanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, base_table, nested, fallback, plan_json, sql_text, seq
		FROM nestq_plans
		WHERE ? = '' OR base_table = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, table, table)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("list plans: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (PlanRecord, error) {
	var rec PlanRecord
	err := row.Scan(&rec.ID, &rec.Table, &rec.Nested, &rec.Fallback, &rec.PlanJSON, &rec.SQL, &rec.Seq)
	return rec, err
}
