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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceKind identifies one of the fixed external feeds the engine ingests.
// The set is closed; adapters dispatch on it.
type SourceKind string

const (
	SourceRefund        SourceKind = "refund"
	SourceShipment      SourceKind = "shipment"
	SourceReturn        SourceKind = "return"
	SourceClaim         SourceKind = "claim"
	SourceReimbursement SourceKind = "reimbursement"
	SourceOrderMaster   SourceKind = "order_master"
)

// AllSourceKinds lists every source kind in the fixed order the correlator
// iterates them. The order is part of the deterministic-output contract.
var AllSourceKinds = []SourceKind{
	SourceRefund,
	SourceShipment,
	SourceReturn,
	SourceClaim,
	SourceReimbursement,
	SourceOrderMaster,
}

// ValidSourceKind reports whether s names a known source kind.
func ValidSourceKind(s string) bool {
	for _, k := range AllSourceKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// RawTable is the ephemeral shape of an uploaded file after decoding:
// ordered headers plus one string map per row. It is discarded once the
// normalizer has consumed it.
type RawTable struct {
	Headers []string
	Rows    []map[string]string
}

// NormalizedRecord is the canonical unit after normalization. EventDate and
// Amount are optional per source; Extra preserves unmapped source columns
// for audit. RowIndex is the original ingest position and acts as the
// deterministic tie-break when duplicates carry equal event dates.
type NormalizedRecord struct {
	SourceKind  SourceKind
	BusinessKey string
	EventDate   *time.Time
	Amount      *decimal.Decimal
	StatusCode  string
	Extra       map[string]string
	RowIndex    int
}

// CorrelationGroup holds zero-or-one record per source kind for one business
// key. Absence of a source is a first-class value. Groups are immutable once
// the correlator has built them.
type CorrelationGroup struct {
	BusinessKey string
	Records     map[SourceKind]*NormalizedRecord
}

// Has reports whether the group carries a record for the given source.
func (g *CorrelationGroup) Has(kind SourceKind) bool {
	_, ok := g.Records[kind]
	return ok
}

// Record returns the group's record for the given source, or nil.
func (g *CorrelationGroup) Record(kind SourceKind) *NormalizedRecord {
	return g.Records[kind]
}

// Outcome is the closed set of discrepancy classifications.
type Outcome string

const (
	OutcomeReconciled            Outcome = "reconciled"
	OutcomeRefundedNotReturned   Outcome = "refunded_not_returned"
	OutcomeReturnedNotReimbursed Outcome = "returned_not_reimbursed"
	OutcomeAgedUnresolved        Outcome = "aged_unresolved"
	OutcomeAmountMismatch        Outcome = "amount_mismatch"
	OutcomeUnclassifiable        Outcome = "unclassifiable"
)

// AllOutcomes lists every outcome in the order summary rows are emitted.
var AllOutcomes = []Outcome{
	OutcomeReconciled,
	OutcomeRefundedNotReturned,
	OutcomeReturnedNotReimbursed,
	OutcomeAgedUnresolved,
	OutcomeAmountMismatch,
	OutcomeUnclassifiable,
}

// Classification is the outcome attached to a correlation group together
// with the evidence that justified it. Attached once, never mutated.
type Classification struct {
	Outcome     Outcome          `json:"outcome"`
	Rule        string           `json:"rule"`
	TATDays     *int             `json:"tat_days,omitempty"`
	AmountDelta *decimal.Decimal `json:"amount_delta,omitempty"`
}

// ClassifiedGroup pairs a correlation group with its classification for the
// aggregation stage.
type ClassifiedGroup struct {
	Group          *CorrelationGroup
	Classification Classification
}

// Run tracks one engine invocation, mirroring the lifecycle statuses the
// store records as the pipeline advances.
type Run struct {
	ID          int64      `json:"-"`
	RunID       string     `json:"run_id"`
	ToolID      string     `json:"tool_id"`
	Status      string     `json:"status"`
	GroupCount  int        `json:"group_count"`
	DroppedRows int        `json:"dropped_rows"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// RunDiagnostics accumulates the soft conditions of one run: rows dropped
// per source for missing business keys, duplicate merges resolved by the
// adapters, and whether the artifact's line items were truncated at the
// storage row cap.
type RunDiagnostics struct {
	DroppedRows    map[SourceKind]int `json:"dropped_rows"`
	MergeConflicts map[SourceKind]int `json:"merge_conflicts"`
	Truncated      bool               `json:"truncated"`
}

// NewRunDiagnostics returns an empty diagnostics accumulator.
func NewRunDiagnostics() *RunDiagnostics {
	return &RunDiagnostics{
		DroppedRows:    make(map[SourceKind]int),
		MergeConflicts: make(map[SourceKind]int),
	}
}

// TotalDropped sums dropped rows across all sources.
func (d *RunDiagnostics) TotalDropped() int {
	total := 0
	for _, n := range d.DroppedRows {
		total += n
	}
	return total
}

// GenerateUUIDWithSuffix generates a UUID prefixed with a module name,
// giving identifiers context-specific prefixes such as "run_" or "report_".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}
