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

package leaklens

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ibi-reports/leaklens/model"
)

// ErrNoDatasource is returned by store-backed accessors when the engine was
// built without persistence.
var ErrNoDatasource = errors.New("engine has no datasource configured")

// Registry lists stored report registry entries, newest first.
func (e *Engine) Registry(ctx context.Context, limit, offset int) ([]*model.RegistryRecord, error) {
	if e.datasource == nil {
		return nil, ErrNoDatasource
	}
	return e.datasource.ListRegistry(ctx, limit, offset)
}

// Report fetches a stored report document by ID, download history included.
func (e *Engine) Report(ctx context.Context, id string) (*model.ReportDocument, error) {
	if e.datasource == nil {
		return nil, ErrNoDatasource
	}
	return e.datasource.GetReport(ctx, id)
}

// Runs lists recorded runs, newest first.
func (e *Engine) Runs(ctx context.Context, limit, offset int) ([]*model.Run, error) {
	if e.datasource == nil {
		return nil, ErrNoDatasource
	}
	return e.datasource.GetAllRuns(ctx, limit, offset)
}

// RecordDownload appends a download event to a report's audit trail and
// returns the event for display.
func (e *Engine) RecordDownload(ctx context.Context, reportID, downloadedBy, filename string) (*model.DownloadEvent, error) {
	if e.datasource == nil {
		return nil, ErrNoDatasource
	}
	event := model.DownloadEvent{
		DownloadedAt: time.Now(),
		DownloadedBy: downloadedBy,
		Filename:     filename,
	}
	if err := e.datasource.RecordDownload(ctx, reportID, event); err != nil {
		return nil, errors.Wrap(err, "recording download")
	}
	return &event, nil
}
