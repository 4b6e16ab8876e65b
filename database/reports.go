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
	"encoding/json"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/ibi-reports/leaklens/model"
)

// RecordReport stores a report document and its registry entry atomically.
// A registry row without a document, or vice versa, would corrupt the audit
// trail, so both go in one transaction.
func (d Datasource) RecordReport(ctx context.Context, doc *model.ReportDocument, registry *model.RegistryRecord) error {
	ctx, span := otel.Tracer("Reports").Start(ctx, "Saving report to db")
	defer span.End()

	data, err := json.Marshal(doc.Data)
	if err != nil {
		return errors.Wrap(err, "marshaling report data")
	}
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return errors.Wrap(err, "marshaling report metadata")
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports(
			report_id, report_name, generated_at, generated_by, row_count, column_count, data, meta_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ReportID, doc.ReportName, doc.GeneratedAt, doc.GeneratedBy,
		doc.RowCount, doc.ColumnCount, string(data), string(metadata),
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO report_registry(
			module_name, tool_name, report_name, generated_at, generated_by, row_count, filename
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		registry.ModuleName, registry.ToolName, registry.ReportName,
		registry.GeneratedAt, registry.GeneratedBy, registry.RowCount, registry.Filename,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetReport retrieves a report document by its ID
func (d Datasource) GetReport(ctx context.Context, id string) (*model.ReportDocument, error) {
	ctx, span := otel.Tracer("Reports").Start(ctx, "Fetching report from db")
	defer span.End()

	doc := &model.ReportDocument{}
	var data, metadata sql.NullString
	err := d.Conn.QueryRowContext(ctx, `
		SELECT report_id, report_name, generated_at, generated_by, row_count, column_count, data, meta_data
		FROM reports
		WHERE report_id = ?
	`, id).Scan(
		&doc.ReportID, &doc.ReportName, &doc.GeneratedAt, &doc.GeneratedBy,
		&doc.RowCount, &doc.ColumnCount, &data, &metadata,
	)
	if err != nil {
		return nil, err
	}

	if data.Valid {
		if err := json.Unmarshal([]byte(data.String), &doc.Data); err != nil {
			return nil, errors.Wrap(err, "unmarshaling report data")
		}
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
			return nil, errors.Wrap(err, "unmarshaling report metadata")
		}
	}

	doc.Downloads, err = d.GetDownloads(ctx, id)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// ListRegistry lists registry entries newest first
func (d Datasource) ListRegistry(ctx context.Context, limit, offset int) ([]*model.RegistryRecord, error) {
	ctx, span := otel.Tracer("Reports").Start(ctx, "Fetching report registry")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT module_name, tool_name, report_name, generated_at, generated_by, row_count, filename
		FROM report_registry
		ORDER BY generated_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.RegistryRecord
	for rows.Next() {
		record := &model.RegistryRecord{}
		err = rows.Scan(
			&record.ModuleName, &record.ToolName, &record.ReportName,
			&record.GeneratedAt, &record.GeneratedBy, &record.RowCount, &record.Filename,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// RecordDownload appends a download event to a report's audit trail
func (d Datasource) RecordDownload(ctx context.Context, reportID string, event model.DownloadEvent) error {
	ctx, span := otel.Tracer("Reports").Start(ctx, "Saving download event")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO report_downloads(report_id, downloaded_at, downloaded_by, filename)
		 VALUES (?, ?, ?, ?)`,
		reportID, event.DownloadedAt, event.DownloadedBy, event.Filename,
	)

	return err
}

// GetDownloads retrieves a report's download history, oldest first
func (d Datasource) GetDownloads(ctx context.Context, reportID string) ([]model.DownloadEvent, error) {
	ctx, span := otel.Tracer("Reports").Start(ctx, "Fetching download events")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT downloaded_at, downloaded_by, filename
		FROM report_downloads
		WHERE report_id = ?
		ORDER BY downloaded_at ASC
	`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.DownloadEvent{}
	for rows.Next() {
		var event model.DownloadEvent
		err = rows.Scan(&event.DownloadedAt, &event.DownloadedBy, &event.Filename)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
