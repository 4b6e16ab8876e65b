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

	"github.com/ibi-reports/leaklens/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	run    // Interface for run-lifecycle operations
	report // Interface for report document and registry operations
}

// run defines methods for tracking engine runs.
type run interface {
	RecordRun(ctx context.Context, run *model.Run) error                                             // Records a new run
	UpdateRunStatus(ctx context.Context, id string, status string, groupCount, droppedRows int) error // Updates the status of a run
	GetRun(ctx context.Context, id string) (*model.Run, error)                                       // Retrieves a run by ID
	GetAllRuns(ctx context.Context, limit, offset int) ([]*model.Run, error)                         // Retrieves runs, newest first
}

// report defines methods for persisting report documents, their registry
// index, and download audit events.
type report interface {
	RecordReport(ctx context.Context, doc *model.ReportDocument, registry *model.RegistryRecord) error // Records a report document and its registry entry
	GetReport(ctx context.Context, id string) (*model.ReportDocument, error)                          // Retrieves a report document by ID
	ListRegistry(ctx context.Context, limit, offset int) ([]*model.RegistryRecord, error)             // Lists registry entries, newest first
	RecordDownload(ctx context.Context, reportID string, event model.DownloadEvent) error             // Appends a download event to a report
	GetDownloads(ctx context.Context, reportID string) ([]model.DownloadEvent, error)                 // Retrieves a report's download history
}
