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
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/ibi-reports/leaklens/internal/runerror"
	"github.com/ibi-reports/leaklens/model"
)

// Canonical field names every source normalizes into.
const (
	FieldBusinessKey = "business_key"
	FieldEventDate   = "event_date"
	FieldAmount      = "amount"
	FieldStatusCode  = "status_code"
)

// dateFormats are tried in order; first parse wins. Slash and dash numeric
// forms are day-first, matching the marketplace exports.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
}

// commonSynonyms maps canonicalized headers shared across feeds to field
// names. Canonical field names map to themselves so normalization is
// idempotent on already-canonical tables.
var commonSynonyms = map[string]string{
	"business key": FieldBusinessKey,
	"order id":     FieldBusinessKey,
	"orderid":      FieldBusinessKey,
	"order no":     FieldBusinessKey,
	"order number": FieldBusinessKey,

	"event date": FieldEventDate,
	"date":       FieldEventDate,
	"date time":  FieldEventDate,
	"order date": FieldEventDate,

	"amount":       FieldAmount,
	"total":        FieldAmount,
	"amount total": FieldAmount,

	"status code": FieldStatusCode,
	"status":      FieldStatusCode,
	"type":        FieldStatusCode,
}

// sourceSynonyms adds the headers each marketplace feed is known to use.
var sourceSynonyms = map[model.SourceKind]map[string]string{
	model.SourceRefund: {
		"amazon order id": FieldBusinessKey,
		"product sales":   FieldAmount,
		"refund amount":   FieldAmount,
	},
	model.SourceShipment: {
		"customer order id": FieldBusinessKey,
		"ship date":         FieldEventDate,
		"shipment date":     FieldEventDate,
		"transaction type":  FieldStatusCode,
	},
	model.SourceReturn: {
		"return date":         FieldEventDate,
		"return request date": FieldEventDate,
		"detailed disposition": FieldStatusCode,
	},
	model.SourceClaim: {
		"claim date":        FieldEventDate,
		"creation date":     FieldEventDate,
		"claim amount":      FieldAmount,
		"reimbursed amount": FieldAmount,
		"claim status":      FieldStatusCode,
	},
	model.SourceReimbursement: {
		"amazon order id":      FieldBusinessKey,
		"approval date":        FieldEventDate,
		"reimbursement amount": FieldAmount,
		"reason":               FieldStatusCode,
	},
	model.SourceOrderMaster: {
		"po id":          FieldBusinessKey,
		"purchase order": FieldBusinessKey,
		"po date":        FieldEventDate,
		"order amount":   FieldAmount,
		"total cost":     FieldAmount,
		"order status":   FieldStatusCode,
	},
}

// Normalizer canonicalizes one source kind's raw tables into
// NormalizedRecords.
type Normalizer struct {
	kind     model.SourceKind
	synonyms map[string]string
	ordered  []string // synonym keys in sorted order, for deterministic fuzzy lookup
}

// NewNormalizer builds the normalizer for a source kind, merging the shared
// synonym table with the source-specific one.
func NewNormalizer(kind model.SourceKind) *Normalizer {
	synonyms := make(map[string]string, len(commonSynonyms))
	for k, v := range commonSynonyms {
		synonyms[k] = v
	}
	for k, v := range sourceSynonyms[kind] {
		synonyms[k] = v
	}

	ordered := make([]string, 0, len(synonyms))
	for k := range synonyms {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	return &Normalizer{kind: kind, synonyms: synonyms, ordered: ordered}
}

// CanonicalizeHeader lowercases a header, trims it, and collapses internal
// whitespace and punctuation into single spaces.
func CanonicalizeHeader(header string) string {
	lowered := strings.ToLower(strings.TrimSpace(header))
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '/', '.', ',', ':', '(', ')', '[', ']':
			return ' '
		}
		return r
	}, lowered)
	return strings.Join(strings.Fields(mapped), " ")
}

// resolveField maps a canonicalized header to a field name. Exact synonym
// lookup first; headers one edit away from a synonym of five or more
// characters also resolve, which absorbs the odd export typo. Unknown
// headers return "".
func (n *Normalizer) resolveField(canonical string) string {
	if field, ok := n.synonyms[canonical]; ok {
		return field
	}
	for _, syn := range n.ordered {
		if len(syn) < 5 {
			continue
		}
		distance := levenshtein.DistanceForStrings([]rune(canonical), []rune(syn), levenshtein.DefaultOptions)
		if distance <= 1 {
			return n.synonyms[syn]
		}
	}
	return ""
}

// Normalize converts a raw table into normalized records. The business-key
// column must resolve or the whole table is rejected with a schema error;
// individual rows with an empty key are dropped and counted, never errored.
func (n *Normalizer) Normalize(table *model.RawTable) ([]*model.NormalizedRecord, int, error) {
	type column struct {
		header    string
		canonical string
		field     string
	}

	columns := make([]column, 0, len(table.Headers))
	keyResolved := false
	for _, header := range table.Headers {
		canonical := CanonicalizeHeader(header)
		field := n.resolveField(canonical)
		if field == FieldBusinessKey {
			keyResolved = true
		}
		columns = append(columns, column{header: header, canonical: canonical, field: field})
	}

	if !keyResolved {
		return nil, 0, runerror.Schema(string(n.kind), FieldBusinessKey)
	}

	records := make([]*model.NormalizedRecord, 0, len(table.Rows))
	dropped := 0

	for i, row := range table.Rows {
		record := &model.NormalizedRecord{
			SourceKind: n.kind,
			Extra:      make(map[string]string),
			RowIndex:   i,
		}

		for _, col := range columns {
			value := strings.TrimSpace(row[col.header])
			switch col.field {
			case FieldBusinessKey:
				if record.BusinessKey == "" {
					record.BusinessKey = strings.ToUpper(value)
				}
			case FieldEventDate:
				if record.EventDate == nil && value != "" {
					if parsed, ok := parseEventDate(value); ok {
						record.EventDate = &parsed
					}
				}
			case FieldAmount:
				if record.Amount == nil && value != "" {
					if parsed, ok := parseAmount(value); ok {
						record.Amount = &parsed
					}
				}
			case FieldStatusCode:
				if record.StatusCode == "" {
					record.StatusCode = strings.ToLower(value)
				}
			default:
				if value != "" {
					record.Extra[col.canonical] = value
				}
			}
		}

		if record.BusinessKey == "" {
			dropped++
			continue
		}
		records = append(records, record)
	}

	return records, dropped, nil
}

// parseEventDate tries each accepted format in order; first match wins.
func parseEventDate(value string) (time.Time, bool) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount coerces a raw cell to a decimal after stripping currency
// symbols and thousands separators. Parenthesized values are negative, the
// accounting convention some exports use.
func parseAmount(value string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(value)

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '$', '€', '£', '₹':
			return -1
		}
		return r
	}, cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
