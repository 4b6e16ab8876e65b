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
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ibi-reports/leaklens/model"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ExportFilename builds the download name for an artifact,
// "<report>_<YYYYMMDD_HHMMSS>.<ext>" with unsafe characters squashed.
func ExportFilename(reportName, ext string, generatedAt time.Time) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(reportName), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "report"
	}
	return name + "_" + generatedAt.Format("20060102_150405") + "." + ext
}

// WriteArtifactCSV writes the line-item sheet: the deterministic column
// header followed by one row per line item in artifact order.
func WriteArtifactCSV(w io.Writer, artifact *model.ReportArtifact) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(artifact.Columns); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}

	row := make([]string, len(artifact.Columns))
	for _, item := range artifact.LineItems {
		for i, col := range artifact.Columns {
			switch col {
			case "business_key":
				row[i] = item.BusinessKey
			case "outcome":
				row[i] = string(item.Classification.Outcome)
			default:
				row[i] = item.Fields[col]
			}
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "writing CSV row")
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "flushing CSV")
}

// WriteSummaryCSV writes the per-outcome summary sheet.
func WriteSummaryCSV(w io.Writer, artifact *model.ReportArtifact) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"outcome", "count", "exposure"}); err != nil {
		return errors.Wrap(err, "writing summary header")
	}
	for _, row := range artifact.Summary {
		record := []string{string(row.Outcome), strconv.Itoa(row.Count), row.Exposure.String()}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "writing summary row")
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "flushing summary CSV")
}
