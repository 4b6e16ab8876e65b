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
	"github.com/shopspring/decimal"

	"github.com/ibi-reports/leaklens/model"
)

// SourceAdapter performs the source-specific post-processing the normalizer
// cannot generalize: feed filtering and duplicate-key resolution. Adapters
// never look at other sources. The returned count is the number of duplicate
// merges resolved, reported as diagnostics.
//
// Duplicate policy per source kind:
//   - refund, reimbursement (monetary feeds): duplicates are summed.
//   - shipment, return, claim, order_master (status feeds): most recent by
//     event date wins; on equal dates the lower original row index wins.
type SourceAdapter interface {
	Kind() model.SourceKind
	Apply(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int)
}

// AdapterFor returns the adapter for a source kind. The source set is
// closed, so dispatch is a fixed switch rather than an open registry.
func AdapterFor(kind model.SourceKind) SourceAdapter {
	switch kind {
	case model.SourceRefund:
		return refundAdapter{}
	case model.SourceShipment:
		return shipmentAdapter{}
	case model.SourceReturn:
		return statusAdapter{kind: model.SourceReturn}
	case model.SourceClaim:
		return statusAdapter{kind: model.SourceClaim}
	case model.SourceReimbursement:
		return reimbursementAdapter{}
	case model.SourceOrderMaster:
		return statusAdapter{kind: model.SourceOrderMaster}
	default:
		return statusAdapter{kind: kind}
	}
}

// refundAdapter keeps refund-typed rows with a non-zero amount, then sums
// duplicate keys. The refund ledger mixes orders, fees and adjustments;
// only rows typed "refund" describe money returned to a customer.
type refundAdapter struct{}

func (refundAdapter) Kind() model.SourceKind { return model.SourceRefund }

func (refundAdapter) Apply(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int) {
	filtered := make([]*model.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.StatusCode != "" && r.StatusCode != "refund" {
			continue
		}
		if r.Amount != nil && r.Amount.IsZero() {
			continue
		}
		filtered = append(filtered, r)
	}
	return mergeSummed(filtered)
}

// shipmentAdapter keeps shipment-typed rows only, then dedupes by most
// recent event date.
type shipmentAdapter struct{}

func (shipmentAdapter) Kind() model.SourceKind { return model.SourceShipment }

func (shipmentAdapter) Apply(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int) {
	filtered := make([]*model.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.StatusCode != "" && r.StatusCode != "shipment" {
			continue
		}
		filtered = append(filtered, r)
	}
	return mergeLatest(filtered)
}

// reimbursementAdapter keeps return-driven reimbursements and collapses
// partial reimbursements for the same key into a single summed amount.
// Rows without a reason column are kept; the filter only excludes rows
// whose reason is present and names something other than a customer return.
type reimbursementAdapter struct{}

var reimbursementReasons = map[string]bool{
	"customerreturn":       true,
	"customerserviceissue": true,
}

func (reimbursementAdapter) Kind() model.SourceKind { return model.SourceReimbursement }

func (reimbursementAdapter) Apply(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int) {
	filtered := make([]*model.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if r.StatusCode != "" && !reimbursementReasons[r.StatusCode] {
			continue
		}
		filtered = append(filtered, r)
	}
	return mergeSummed(filtered)
}

// statusAdapter is the shared shape for the status feeds (return, claim,
// order master): no filtering, most-recent-wins dedup.
type statusAdapter struct {
	kind model.SourceKind
}

func (a statusAdapter) Kind() model.SourceKind { return a.kind }

func (a statusAdapter) Apply(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int) {
	return mergeLatest(records)
}

// mergeSummed collapses duplicate keys by summing amounts. The earliest
// event date is kept so TAT rules measure from the first event; extras come
// from the first row seen.
func mergeSummed(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int) {
	byKey := make(map[string]*model.NormalizedRecord, len(records))
	order := make([]string, 0, len(records))
	conflicts := 0

	for _, r := range records {
		existing, ok := byKey[r.BusinessKey]
		if !ok {
			clone := *r
			byKey[r.BusinessKey] = &clone
			order = append(order, r.BusinessKey)
			continue
		}
		conflicts++
		if r.Amount != nil {
			sum := r.Amount.Add(amountOrZero(existing.Amount))
			existing.Amount = &sum
		}
		if r.EventDate != nil && (existing.EventDate == nil || r.EventDate.Before(*existing.EventDate)) {
			existing.EventDate = r.EventDate
		}
	}

	out := make([]*model.NormalizedRecord, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, conflicts
}

// mergeLatest collapses duplicate keys by keeping the most recent record by
// event date. Records without a date lose to records with one; equal dates
// keep the lower original row index.
func mergeLatest(records []*model.NormalizedRecord) ([]*model.NormalizedRecord, int) {
	byKey := make(map[string]*model.NormalizedRecord, len(records))
	order := make([]string, 0, len(records))
	conflicts := 0

	for _, r := range records {
		existing, ok := byKey[r.BusinessKey]
		if !ok {
			byKey[r.BusinessKey] = r
			order = append(order, r.BusinessKey)
			continue
		}
		conflicts++
		if supersedes(r, existing) {
			byKey[r.BusinessKey] = r
		}
	}

	out := make([]*model.NormalizedRecord, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, conflicts
}

// supersedes reports whether candidate should replace current under the
// most-recent-wins rule.
func supersedes(candidate, current *model.NormalizedRecord) bool {
	switch {
	case candidate.EventDate == nil:
		return false
	case current.EventDate == nil:
		return true
	case candidate.EventDate.After(*current.EventDate):
		return true
	case candidate.EventDate.Before(*current.EventDate):
		return false
	default:
		return candidate.RowIndex < current.RowIndex
	}
}

func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
