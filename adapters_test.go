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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ibi-reports/leaklens/model"
)

func record(kind model.SourceKind, key, status string, amount string, date *time.Time, rowIndex int) *model.NormalizedRecord {
	r := &model.NormalizedRecord{
		SourceKind:  kind,
		BusinessKey: key,
		StatusCode:  status,
		EventDate:   date,
		RowIndex:    rowIndex,
		Extra:       map[string]string{},
	}
	if amount != "" {
		d := decimal.RequireFromString(amount)
		r.Amount = &d
	}
	return r
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRefundAdapterFiltersAndSums(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceRefund, "A", "refund", "100", datePtr(2026, 2, 10), 0),
		record(model.SourceRefund, "A", "refund", "50", datePtr(2026, 2, 1), 1),
		record(model.SourceRefund, "B", "order", "70", nil, 2),
		record(model.SourceRefund, "C", "refund", "0", nil, 3),
		record(model.SourceRefund, "D", "", "25", nil, 4),
	}

	out, conflicts := AdapterFor(model.SourceRefund).Apply(records)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, out, 2)

	assert.Equal(t, "A", out[0].BusinessKey)
	assert.Equal(t, "150", out[0].Amount.String())
	// earliest event date survives the merge
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *out[0].EventDate)

	// empty status is kept, unknown typed rows and zero amounts are not
	assert.Equal(t, "D", out[1].BusinessKey)
}

func TestShipmentAdapterKeepsShipmentRowsOnly(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceShipment, "A", "shipment", "", datePtr(2026, 1, 5), 0),
		record(model.SourceShipment, "B", "adjustment", "", nil, 1),
		record(model.SourceShipment, "C", "", "", nil, 2),
	}

	out, conflicts := AdapterFor(model.SourceShipment).Apply(records)
	assert.Equal(t, 0, conflicts)
	assert.Len(t, out, 2)
	assert.Equal(t, "A", out[0].BusinessKey)
	assert.Equal(t, "C", out[1].BusinessKey)
}

func TestReimbursementAdapterFiltersReasons(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceReimbursement, "A", "customerreturn", "30", nil, 0),
		record(model.SourceReimbursement, "A", "customerserviceissue", "20", nil, 1),
		record(model.SourceReimbursement, "B", "lost:warehouse", "99", nil, 2),
		record(model.SourceReimbursement, "C", "", "10", nil, 3),
	}

	out, conflicts := AdapterFor(model.SourceReimbursement).Apply(records)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, out, 2)
	assert.Equal(t, "50", out[0].Amount.String())
	assert.Equal(t, "C", out[1].BusinessKey)
}

func TestStatusAdapterMostRecentWins(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceReturn, "A", "received", "", datePtr(2026, 1, 1), 0),
		record(model.SourceReturn, "A", "closed", "", datePtr(2026, 3, 1), 1),
		record(model.SourceReturn, "A", "pending", "", nil, 2),
	}

	out, conflicts := AdapterFor(model.SourceReturn).Apply(records)
	assert.Equal(t, 2, conflicts)
	assert.Len(t, out, 1)
	assert.Equal(t, "closed", out[0].StatusCode)
}

func TestStatusAdapterEqualDatesKeepLowerRowIndex(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceClaim, "A", "first", "", datePtr(2026, 2, 2), 0),
		record(model.SourceClaim, "A", "second", "", datePtr(2026, 2, 2), 1),
	}

	out, _ := AdapterFor(model.SourceClaim).Apply(records)
	assert.Len(t, out, 1)
	assert.Equal(t, "first", out[0].StatusCode)
}

func TestStatusAdapterDatedBeatsUndated(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceOrderMaster, "A", "undated", "", nil, 0),
		record(model.SourceOrderMaster, "A", "dated", "", datePtr(2025, 12, 31), 1),
	}

	out, _ := AdapterFor(model.SourceOrderMaster).Apply(records)
	assert.Len(t, out, 1)
	assert.Equal(t, "dated", out[0].StatusCode)
}

func TestMergeSummedPreservesFirstSeenOrder(t *testing.T) {
	records := []*model.NormalizedRecord{
		record(model.SourceRefund, "Z", "refund", "1", nil, 0),
		record(model.SourceRefund, "A", "refund", "2", nil, 1),
		record(model.SourceRefund, "Z", "refund", "3", nil, 2),
	}

	out, conflicts := mergeSummed(records)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, "Z", out[0].BusinessKey)
	assert.Equal(t, "A", out[1].BusinessKey)
	assert.Equal(t, "4", out[0].Amount.String())
}
