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
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one audited row of the artifact: the correlation group's key,
// its classification with evidence, and every constituent source field
// flattened under "<source>.<field>" column names.
type LineItem struct {
	BusinessKey    string
	Classification Classification
	Fields         map[string]string
}

// SummaryRow aggregates one outcome: how many groups classified into it and
// the summed monetary exposure over the configured monetary field.
type SummaryRow struct {
	Outcome  Outcome
	Count    int
	Exposure decimal.Decimal
}

// ArtifactMetadata carries the audit facts attached to every artifact.
type ArtifactMetadata struct {
	RowCount      int                `json:"row_count"`
	ColumnCount   int                `json:"column_count"`
	Truncated     bool               `json:"truncated"`
	DroppedRows   map[SourceKind]int `json:"dropped_rows,omitempty"`
	ReferenceDate time.Time          `json:"reference_date"`
	MonetaryField string             `json:"monetary_field,omitempty"`
}

// ReportArtifact is the terminal output of a run: the line-item sheet, the
// summary sheet and metadata. Produced fresh per run, never updated in place.
type ReportArtifact struct {
	ReportID    string
	ReportName  string
	GeneratedAt time.Time
	GeneratedBy string
	Columns     []string
	LineItems   []LineItem
	Summary     []SummaryRow
	Metadata    ArtifactMetadata
}

// DownloadEvent is appended to a report document every time the artifact is
// exported by a user.
type DownloadEvent struct {
	DownloadedAt time.Time `json:"downloaded_at"`
	DownloadedBy string    `json:"downloaded_by"`
	Filename     string    `json:"filename"`
}

// ReportDocument is the persisted form of an artifact handed to the store.
// Data is capped at the configured row ceiling; Metadata records the
// truncation explicitly.
type ReportDocument struct {
	ReportID    string                   `json:"report_id"`
	ReportName  string                   `json:"report_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	GeneratedBy string                   `json:"generated_by"`
	RowCount    int                      `json:"row_count"`
	ColumnCount int                      `json:"column_count"`
	Data        []map[string]interface{} `json:"data"`
	Metadata    map[string]interface{}   `json:"metadata"`
	Downloads   []DownloadEvent          `json:"downloads"`
}

// RegistryRecord is the lightweight index entry written alongside every
// report document.
type RegistryRecord struct {
	ModuleName  string    `json:"module_name"`
	ToolName    string    `json:"tool_name"`
	ReportName  string    `json:"report_name"`
	GeneratedAt time.Time `json:"generated_at"`
	GeneratedBy string    `json:"generated_by"`
	RowCount    int       `json:"row_count"`
	Filename    string    `json:"filename"`
}

// ToDocument converts an artifact to its persisted form, capping the data
// rows at rowCap. The cap only limits the stored copy; the artifact itself
// carries whatever the aggregator produced.
func (a *ReportArtifact) ToDocument(rowCap int) *ReportDocument {
	rows := a.LineItems
	truncated := false
	if rowCap > 0 && len(rows) > rowCap {
		rows = rows[:rowCap]
		truncated = true
	}

	data := make([]map[string]interface{}, 0, len(rows))
	for _, item := range rows {
		row := make(map[string]interface{}, len(item.Fields)+2)
		row["business_key"] = item.BusinessKey
		row["outcome"] = string(item.Classification.Outcome)
		for k, v := range item.Fields {
			row[k] = v
		}
		data = append(data, row)
	}

	return &ReportDocument{
		ReportID:    a.ReportID,
		ReportName:  a.ReportName,
		GeneratedAt: a.GeneratedAt,
		GeneratedBy: a.GeneratedBy,
		RowCount:    len(a.LineItems),
		ColumnCount: len(a.Columns),
		Data:        data,
		Metadata: map[string]interface{}{
			"row_count":    a.Metadata.RowCount,
			"column_count": a.Metadata.ColumnCount,
			"truncated":    a.Metadata.Truncated || truncated,
		},
		Downloads: []DownloadEvent{},
	}
}
