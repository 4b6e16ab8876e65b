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
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/ibi-reports/leaklens/model"
)

// detectFileType detects a file's MIME type by extension first, falling
// back to content inspection.
func detectFileType(data []byte, filename string) (string, error) {
	if mimeType := detectByExtension(filename); mimeType != "" {
		return mimeType, nil
	}
	return detectByContent(data)
}

func detectByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return mime.TypeByExtension(ext)
}

func detectByContent(data []byte) (string, error) {
	mimeType := http.DetectContentType(data)

	switch mimeType {
	case "application/octet-stream", "text/plain", "text/plain; charset=utf-8":
		return analyzeTextContent(data)
	case "text/csv; charset=utf-8":
		return "text/csv", nil
	default:
		return mimeType, nil
	}
}

func analyzeTextContent(data []byte) (string, error) {
	if looksLikeCSV(data) {
		return "text/csv", nil
	}
	if json.Valid(data) {
		return "application/json", nil
	}
	return "text/plain", nil
}

// looksLikeCSV requires at least two lines with a consistent field count.
func looksLikeCSV(data []byte) bool {
	lines := bytes.Split(data, []byte("\n"))
	if len(lines) < 2 {
		return false
	}

	fields := bytes.Count(lines[0], []byte(",")) + 1
	for _, line := range lines[1:] {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.Count(line, []byte(","))+1 != fields {
			return false
		}
	}

	return fields > 1
}

// ReadTable decodes an uploaded delimited-text or JSON file into a raw
// table. The table is the ephemeral input to normalization and is discarded
// once consumed.
func ReadTable(reader io.Reader, filename string) (*model.RawTable, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}

	fileType, err := detectFileType(data, filename)
	if err != nil {
		return nil, errors.Wrapf(err, "detecting file type of %s", filename)
	}

	switch fileType {
	case "text/csv", "text/csv; charset=utf-8":
		return parseCSVTable(data)
	case "application/json":
		return parseJSONTable(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q for %s", fileType, filename)
	}
}

// parseCSVTable reads the header row and every data row. Short rows leave
// their trailing cells empty instead of failing the upload.
func parseCSVTable(data []byte) (*model.RawTable, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV headers")
	}

	table := &model.RawTable{Headers: headers}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading CSV row %d", rowNum)
		}
		rowNum++

		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// parseJSONTable accepts an array of flat objects. Headers are sorted so
// the table shape never depends on map iteration order.
func parseJSONTable(data []byte) (*model.RawTable, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding JSON table")
	}

	table := &model.RawTable{}
	seen := make(map[string]bool)
	for _, raw := range rows {
		row := make(map[string]string, len(raw))
		for k, v := range raw {
			if !seen[k] {
				seen[k] = true
				table.Headers = append(table.Headers, k)
			}
			row[k] = fmt.Sprintf("%v", v)
		}
		table.Rows = append(table.Rows, row)
	}
	sort.Strings(table.Headers)

	return table, nil
}
