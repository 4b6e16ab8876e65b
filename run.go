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
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ibi-reports/leaklens/internal/notification"
	"github.com/ibi-reports/leaklens/internal/runerror"
	"github.com/ibi-reports/leaklens/model"
)

// Status constants for run lifecycle tracking.
const (
	StatusStarted    = "started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const classifyWorkers = 8

// SourceInput is one uploaded file bound to a source kind.
type SourceInput struct {
	Kind     model.SourceKind
	Filename string
	Reader   io.Reader
}

// ReportMeta names the run for the registry and the report document.
type ReportMeta struct {
	Module      string
	Tool        string
	ReportName  string
	GeneratedBy string
}

// sourceResult is what each per-source pipeline goroutine hands back at the
// barrier.
type sourceResult struct {
	kind    model.SourceKind
	records []*model.NormalizedRecord
	rows    int
	dropped int
	err     error
}

// RunReconciliation executes one full batch pass: read and normalize every
// input concurrently, wait at the barrier, run the per-source adapters,
// correlate, classify, aggregate, and persist the artifact. The run either
// yields an artifact plus diagnostics, or fails fast with a structured
// error and no artifact — partial artifacts are never produced.
func (e *Engine) RunReconciliation(ctx context.Context, meta ReportMeta, inputs []SourceInput, params RunParams) (*model.ReportArtifact, *model.RunDiagnostics, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, runerror.NewRunError(runerror.ErrInvalidInput, "invalid run parameters", err.Error())
	}

	ctx, span := otel.Tracer("leaklens.reconciliation").Start(ctx, "RunReconciliation")
	defer span.End()

	run := &model.Run{
		RunID:     model.GenerateUUIDWithSuffix("run"),
		ToolID:    meta.Module + "/" + meta.Tool,
		Status:    StatusStarted,
		StartedAt: time.Now(),
	}
	if e.datasource != nil {
		if err := e.datasource.RecordRun(ctx, run); err != nil {
			logrus.Errorf("error recording run %s: %v", run.RunID, err)
		}
	}

	diag := model.NewRunDiagnostics()

	// Normalization over independent sources shares no mutable state; each
	// input gets its own goroutine and the correlator waits for all of them.
	sequences, err := e.normalizeSources(ctx, inputs, diag)
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, nil, err
	}

	for kind, records := range sequences {
		reduced, conflicts := AdapterFor(kind).Apply(records)
		sequences[kind] = reduced
		if conflicts > 0 {
			diag.MergeConflicts[kind] = conflicts
			logrus.Infof("resolved %d duplicate-key merges in the %s feed", conflicts, kind)
		}
	}

	e.updateRunStatus(ctx, run, StatusInProgress, 0, diag.TotalDropped())

	groups := Correlate(sequences)
	classified := e.classifyGroups(ctx, groups, params)

	artifact := BuildArtifact(meta.ReportName, meta.GeneratedBy, classified, params, diag, e.cnf.Reconciliation.ReportRowCap)

	if err := e.persistArtifact(ctx, meta, artifact); err != nil {
		e.failRun(ctx, run, err)
		return nil, nil, err
	}

	run.Status = StatusCompleted
	run.CompletedAt = ptr.Time(time.Now())
	e.updateRunStatus(ctx, run, StatusCompleted, len(groups), diag.TotalDropped())

	logrus.Infof("run %s completed: %d groups, %d rows dropped", run.RunID, len(groups), diag.TotalDropped())
	return artifact, diag, nil
}

// normalizeSources fans one goroutine out per input file and collects the
// normalized sequences per source kind at the barrier. Multiple files for
// the same kind are concatenated before adapter-level dedup, so duplicates
// are still resolved in one place.
func (e *Engine) normalizeSources(ctx context.Context, inputs []SourceInput, diag *model.RunDiagnostics) (map[model.SourceKind][]*model.NormalizedRecord, error) {
	ctx, span := otel.Tracer("leaklens.reconciliation").Start(ctx, "NormalizeSources")
	defer span.End()

	results := make(chan sourceResult, len(inputs))
	var wg sync.WaitGroup

	for _, input := range inputs {
		wg.Add(1)
		go func(input SourceInput) {
			defer wg.Done()

			table, err := ReadTable(input.Reader, input.Filename)
			if err != nil {
				results <- sourceResult{kind: input.Kind, err: runerror.NewRunError(runerror.ErrInvalidInput, "could not read "+input.Filename, err.Error())}
				return
			}

			records, dropped, err := NewNormalizer(input.Kind).Normalize(table)
			results <- sourceResult{
				kind:    input.Kind,
				records: records,
				rows:    len(table.Rows),
				dropped: dropped,
				err:     err,
			}
		}(input)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	sequences := make(map[model.SourceKind][]*model.NormalizedRecord)
	var firstErr error
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		if len(result.records) == 0 && result.rows > 0 {
			// Every row lost its business key. Surfacing this beats handing
			// back an artifact built from nothing.
			if firstErr == nil {
				firstErr = runerror.Schema(string(result.kind), FieldBusinessKey)
			}
			continue
		}
		if result.dropped > 0 {
			diag.DroppedRows[result.kind] += result.dropped
			logrus.Warnf("dropped %d rows without a business key from the %s feed", result.dropped, result.kind)
		}
		sequences[result.kind] = append(sequences[result.kind], result.records...)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return sequences, nil
}

// classifyGroups classifies every group with a fixed worker pool.
// Classification is pure per group, so workers share nothing but the index
// channel and write to disjoint slots.
func (e *Engine) classifyGroups(ctx context.Context, groups []*model.CorrelationGroup, params RunParams) []model.ClassifiedGroup {
	_, span := otel.Tracer("leaklens.reconciliation").Start(ctx, "ClassifyGroups")
	defer span.End()

	classified := make([]model.ClassifiedGroup, len(groups))
	indexes := make(chan int)
	var wg sync.WaitGroup

	workers := classifyWorkers
	if len(groups) < workers {
		workers = len(groups)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				classified[i] = model.ClassifiedGroup{
					Group:          groups[i],
					Classification: Classify(groups[i], params),
				}
			}
		}()
	}

	for i := range groups {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return classified
}

// persistArtifact stores the report document and its registry record.
func (e *Engine) persistArtifact(ctx context.Context, meta ReportMeta, artifact *model.ReportArtifact) error {
	if e.datasource == nil {
		return nil
	}

	doc := artifact.ToDocument(e.cnf.Reconciliation.ReportRowCap)
	registry := &model.RegistryRecord{
		ModuleName:  meta.Module,
		ToolName:    meta.Tool,
		ReportName:  artifact.ReportName,
		GeneratedAt: artifact.GeneratedAt,
		GeneratedBy: artifact.GeneratedBy,
		RowCount:    doc.RowCount,
		Filename:    ExportFilename(artifact.ReportName, "csv", artifact.GeneratedAt),
	}
	if err := e.datasource.RecordReport(ctx, doc, registry); err != nil {
		return runerror.NewRunError(runerror.ErrStore, "could not persist report", err.Error())
	}
	return nil
}

func (e *Engine) updateRunStatus(ctx context.Context, run *model.Run, status string, groupCount, droppedRows int) {
	if e.datasource == nil {
		return
	}
	if err := e.datasource.UpdateRunStatus(ctx, run.RunID, status, groupCount, droppedRows); err != nil {
		logrus.Errorf("error updating run status: %v", err)
	}
}

func (e *Engine) failRun(ctx context.Context, run *model.Run, cause error) {
	trace.SpanFromContext(ctx).RecordError(cause)
	logrus.Errorf("run %s failed: %v", run.RunID, cause)
	notification.NotifyError(cause)
	e.updateRunStatus(ctx, run, StatusFailed, 0, 0)
}
