// Package sqlite persists analysis runs. Persistence is a pipeline
// collaborator, not a stage: the analyze command hands it a finished
// Result and the pipeline itself never touches the database.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stride-data/gait.report/internal/gait"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the analysis database. The inline
// schema matches migration 000001; MigrateUp brings older databases
// forward.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id             TEXT PRIMARY KEY,
			source             TEXT,
			calibration_source TEXT,
			scale_factor       DOUBLE,
			passed             INTEGER,
			cycle_count        BIGINT,
			left_cycle_count   BIGINT,
			right_cycle_count  BIGINT,
			created_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS run_metrics (
			run_id     TEXT,
			name       TEXT,
			value      DOUBLE,
			FOREIGN KEY(run_id) REFERENCES analysis_runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS run_violations (
			run_id     TEXT,
			criterion  TEXT,
			measured   DOUBLE,
			threshold  DOUBLE,
			FOREIGN KEY(run_id) REFERENCES analysis_runs(run_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// NewRunID returns a fresh analysis run identifier.
func NewRunID() string {
	return "run_" + uuid.NewString()
}

// AnalysisRun is one persisted pipeline execution.
type AnalysisRun struct {
	ID                string
	Source            string
	CalibrationSource string
	ScaleFactor       float64
	Passed            bool
	CycleCount        int
	LeftCycleCount    int
	RightCycleCount   int
	CreatedAt         time.Time
	Metrics           map[string]float64
	Violations        []gait.Violation
}

// RecordRun stores a run with its metrics and violations in one
// transaction.
func (db *DB) RecordRun(run AnalysisRun) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO analysis_runs (
			run_id, source, calibration_source, scale_factor, passed,
			cycle_count, left_cycle_count, right_cycle_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CalibrationSource, run.ScaleFactor, boolToInt(run.Passed),
		run.CycleCount, run.LeftCycleCount, run.RightCycleCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	for name, value := range run.Metrics {
		if _, err := tx.Exec(
			"INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)",
			run.ID, name, value,
		); err != nil {
			return fmt.Errorf("failed to insert metric %q: %w", name, err)
		}
	}

	for _, v := range run.Violations {
		if _, err := tx.Exec(
			"INSERT INTO run_violations (run_id, criterion, measured, threshold) VALUES (?, ?, ?, ?)",
			run.ID, v.Criterion, v.Measured, v.Threshold,
		); err != nil {
			return fmt.Errorf("failed to insert violation %q: %w", v.Criterion, err)
		}
	}

	return tx.Commit()
}

// Run loads one analysis run by id, including metrics and violations.
func (db *DB) Run(runID string) (*AnalysisRun, error) {
	run := &AnalysisRun{ID: runID, Metrics: map[string]float64{}}
	var passed int
	err := db.QueryRow(
		`SELECT source, calibration_source, scale_factor, passed,
			cycle_count, left_cycle_count, right_cycle_count, created_at
		 FROM analysis_runs WHERE run_id = ?`, runID,
	).Scan(
		&run.Source, &run.CalibrationSource, &run.ScaleFactor, &passed,
		&run.CycleCount, &run.LeftCycleCount, &run.RightCycleCount, &run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	run.Passed = passed != 0

	rows, err := db.Query("SELECT name, value FROM run_metrics WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		run.Metrics[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := db.Query("SELECT criterion, measured, threshold FROM run_violations WHERE run_id = ?", runID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var v gait.Violation
		if err := vrows.Scan(&v.Criterion, &v.Measured, &v.Threshold); err != nil {
			return nil, err
		}
		run.Violations = append(run.Violations, v)
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}

	return run, nil
}

// RecentRuns lists the newest runs, without their metric detail.
func (db *DB) RecentRuns(limit int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT run_id, source, calibration_source, scale_factor, passed,
			cycle_count, left_cycle_count, right_cycle_count, created_at
		 FROM analysis_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AnalysisRun
	for rows.Next() {
		var run AnalysisRun
		var passed int
		if err := rows.Scan(
			&run.ID, &run.Source, &run.CalibrationSource, &run.ScaleFactor, &passed,
			&run.CycleCount, &run.LeftCycleCount, &run.RightCycleCount, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		run.Passed = passed != 0
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
