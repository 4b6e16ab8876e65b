/*
Copyright 2025 IBI Reports Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ibi-reports/leaklens/model"
)

// RecordRun inserts a new run record into the database
func (d Datasource) RecordRun(ctx context.Context, run *model.Run) error {
	ctx, span := otel.Tracer("Runs").Start(ctx, "Saving run to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO runs(
			run_id, tool_id, status, group_count, dropped_rows, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ToolID, run.Status, run.GroupCount,
		run.DroppedRows, run.StartedAt, run.CompletedAt,
	)

	return err
}

// UpdateRunStatus updates the status of a run record
func (d Datasource) UpdateRunStatus(ctx context.Context, id string, status string, groupCount, droppedRows int) error {
	ctx, span := otel.Tracer("Runs").Start(ctx, "Updating run status")
	defer span.End()

	completedAt := sql.NullTime{Time: time.Now(), Valid: status == "completed" || status == "failed"}

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, group_count = ?, dropped_rows = ?, completed_at = ?
		WHERE run_id = ?
	`, status, groupCount, droppedRows, completedAt, id)

	return err
}

// GetRun retrieves a run record by its ID
func (d Datasource) GetRun(ctx context.Context, id string) (*model.Run, error) {
	ctx, span := otel.Tracer("Runs").Start(ctx, "Fetching run from db")
	defer span.End()

	run := &model.Run{}
	var completedAt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, run_id, tool_id, status, group_count, dropped_rows, started_at, completed_at
		FROM runs
		WHERE run_id = ?
	`, id).Scan(
		&run.ID, &run.RunID, &run.ToolID, &run.Status,
		&run.GroupCount, &run.DroppedRows, &run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return run, nil
}

// GetAllRuns retrieves runs newest first
func (d Datasource) GetAllRuns(ctx context.Context, limit, offset int) ([]*model.Run, error) {
	ctx, span := otel.Tracer("Runs").Start(ctx, "Fetching all runs")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, run_id, tool_id, status, group_count, dropped_rows, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run := &model.Run{}
		var completedAt sql.NullTime
		err = rows.Scan(
			&run.ID, &run.RunID, &run.ToolID, &run.Status,
			&run.GroupCount, &run.DroppedRows, &run.StartedAt, &completedAt,
		)
		if err != nil {
			return nil, err
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
