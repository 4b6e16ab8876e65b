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
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibi-reports/leaklens/model"
)

// perSourceFields is the fixed order of the canonical fields each present
// source contributes to a line item.
var perSourceFields = []string{FieldBusinessKey, FieldEventDate, FieldAmount, FieldStatusCode}

// BuildArtifact rolls the classified groups into the final report artifact:
// one audited line item per group and one summary row per outcome. Line
// items are ordered by ascending business key so identical inputs always
// produce identical artifacts. The summary is computed over the full group
// set before any truncation; rowCap only trims the line-item sheet, and
// doing so sets the Truncated flag — rows are never lost silently.
func BuildArtifact(reportName, generatedBy string, classified []model.ClassifiedGroup, params RunParams, diag *model.RunDiagnostics, rowCap int) *model.ReportArtifact {
	sorted := make([]model.ClassifiedGroup, len(classified))
	copy(sorted, classified)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Group.BusinessKey < sorted[j].Group.BusinessKey
	})

	lineItems := make([]model.LineItem, 0, len(sorted))
	columnSet := make(map[string]bool)
	for _, cg := range sorted {
		item := buildLineItem(cg)
		for col := range item.Fields {
			columnSet[col] = true
		}
		lineItems = append(lineItems, item)
	}

	columns := artifactColumns(columnSet)
	summary := buildSummary(lineItems, params.MonetaryField)

	truncated := false
	if rowCap > 0 && len(lineItems) > rowCap {
		lineItems = lineItems[:rowCap]
		truncated = true
	}
	if diag != nil {
		diag.Truncated = truncated
	}

	artifact := &model.ReportArtifact{
		ReportID:    model.GenerateUUIDWithSuffix("report"),
		ReportName:  reportName,
		GeneratedAt: time.Now(),
		GeneratedBy: generatedBy,
		Columns:     columns,
		LineItems:   lineItems,
		Summary:     summary,
		Metadata: model.ArtifactMetadata{
			RowCount:      len(lineItems),
			ColumnCount:   len(columns),
			Truncated:     truncated,
			ReferenceDate: params.ReferenceDate,
			MonetaryField: params.MonetaryField,
		},
	}
	if diag != nil {
		artifact.Metadata.DroppedRows = diag.DroppedRows
	}
	return artifact
}

// buildLineItem flattens every present source's fields under
// "<source>.<field>" column names, preserving extras for audit.
func buildLineItem(cg model.ClassifiedGroup) model.LineItem {
	fields := make(map[string]string)
	for _, kind := range model.AllSourceKinds {
		record := cg.Group.Record(kind)
		if record == nil {
			continue
		}
		prefix := string(kind)
		fields[prefix+"."+FieldBusinessKey] = record.BusinessKey
		if record.EventDate != nil {
			fields[prefix+"."+FieldEventDate] = record.EventDate.Format("2006-01-02")
		}
		if record.Amount != nil {
			fields[prefix+"."+FieldAmount] = record.Amount.String()
		}
		if record.StatusCode != "" {
			fields[prefix+"."+FieldStatusCode] = record.StatusCode
		}
		for k, v := range record.Extra {
			fields[prefix+"."+k] = v
		}
	}

	cls := cg.Classification
	if cls.TATDays != nil {
		fields["evidence.tat_days"] = fmt.Sprintf("%d", *cls.TATDays)
	}
	if cls.AmountDelta != nil {
		fields["evidence.amount_delta"] = cls.AmountDelta.String()
	}

	return model.LineItem{
		BusinessKey:    cg.Group.BusinessKey,
		Classification: cls,
		Fields:         fields,
	}
}

// artifactColumns produces the deterministic column order: key and outcome
// first, then per-source canonical fields in source order, then everything
// else sorted.
func artifactColumns(columnSet map[string]bool) []string {
	columns := []string{"business_key", "outcome"}
	seen := map[string]bool{"business_key": true, "outcome": true}

	for _, kind := range model.AllSourceKinds {
		for _, field := range perSourceFields {
			col := string(kind) + "." + field
			if columnSet[col] && !seen[col] {
				columns = append(columns, col)
				seen[col] = true
			}
		}
	}

	rest := make([]string, 0, len(columnSet))
	for col := range columnSet {
		if !seen[col] {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// buildSummary computes count and monetary exposure per outcome. Every
// outcome gets a row, zero or not, so the counts always partition the group
// total. Exposure sums the configured monetary field over exactly the line
// items bearing each outcome.
func buildSummary(lineItems []model.LineItem, monetaryField string) []model.SummaryRow {
	counts := make(map[model.Outcome]int)
	exposure := make(map[model.Outcome]decimal.Decimal)

	for _, item := range lineItems {
		outcome := item.Classification.Outcome
		counts[outcome]++
		if raw, ok := item.Fields[monetaryField]; ok {
			if amount, ok := parseAmount(raw); ok {
				exposure[outcome] = exposure[outcome].Add(amount)
			}
		}
	}

	summary := make([]model.SummaryRow, 0, len(model.AllOutcomes))
	for _, outcome := range model.AllOutcomes {
		summary = append(summary, model.SummaryRow{
			Outcome:  outcome,
			Count:    counts[outcome],
			Exposure: exposure[outcome],
		})
	}
	return summary
}
