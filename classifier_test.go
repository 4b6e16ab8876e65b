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

func testParams() RunParams {
	return RunParams{
		TATWindowDays:      75,
		AmountToleranceAbs: decimal.NewFromFloat(1),
		AmountTolerancePct: decimal.NewFromFloat(0.5),
		ReferenceDate:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		MonetaryField:      "refund.amount",
	}
}

func group(records ...*model.NormalizedRecord) *model.CorrelationGroup {
	g := &model.CorrelationGroup{
		BusinessKey: records[0].BusinessKey,
		Records:     make(map[model.SourceKind]*model.NormalizedRecord),
	}
	for _, r := range records {
		g.Records[r.SourceKind] = r
	}
	return g
}

func TestClassifyReconciledExactMatch(t *testing.T) {
	g := group(
		record(model.SourceRefund, "ORD-1001", "refund", "500", datePtr(2026, 1, 1), 0),
		record(model.SourceReturn, "ORD-1001", "received", "", datePtr(2026, 1, 10), 0),
		record(model.SourceReimbursement, "ORD-1001", "customerreturn", "500", datePtr(2026, 1, 20), 0),
	)

	cls := Classify(g, testParams())
	assert.Equal(t, model.OutcomeReconciled, cls.Outcome)
	assert.NotNil(t, cls.AmountDelta)
	assert.True(t, cls.AmountDelta.IsZero())
}

func TestClassifyReconciledWithoutReturn(t *testing.T) {
	// A reimbursed refund settles the case even when no return record
	// exists; the reimbursement is the stronger evidence.
	g := group(
		record(model.SourceRefund, "ORD-1003", "refund", "200", nil, 0),
		record(model.SourceReimbursement, "ORD-1003", "customerreturn", "200", nil, 0),
	)

	cls := Classify(g, testParams())
	assert.Equal(t, model.OutcomeReconciled, cls.Outcome)
}

func TestClassifyRefundedNotReturned(t *testing.T) {
	g := group(
		record(model.SourceRefund, "ORD-1002", "refund", "300", datePtr(2026, 1, 1), 0),
	)

	cls := Classify(g, testParams())
	assert.Equal(t, model.OutcomeRefundedNotReturned, cls.Outcome)
}

func TestClassifyReturnAging(t *testing.T) {
	params := testParams()

	// 20 days before the reference date: still within the window.
	recent := group(
		record(model.SourceRefund, "K1", "refund", "100", nil, 0),
		record(model.SourceReturn, "K1", "received", "", datePtr(2026, 5, 12), 0),
	)
	cls := Classify(recent, params)
	assert.Equal(t, model.OutcomeReturnedNotReimbursed, cls.Outcome)
	assert.NotNil(t, cls.TATDays)
	assert.Equal(t, 20, *cls.TATDays)

	// 92 days out: beyond the 75-day window.
	aged := group(
		record(model.SourceRefund, "K2", "refund", "100", nil, 0),
		record(model.SourceReturn, "K2", "received", "", datePtr(2026, 3, 1), 0),
	)
	cls = Classify(aged, params)
	assert.Equal(t, model.OutcomeAgedUnresolved, cls.Outcome)
	assert.Equal(t, 92, *cls.TATDays)
}

func TestClassifyAmountMismatch(t *testing.T) {
	g := group(
		record(model.SourceRefund, "K3", "refund", "500", nil, 0),
		record(model.SourceReturn, "K3", "received", "", nil, 0),
		record(model.SourceReimbursement, "K3", "customerreturn", "450", nil, 0),
	)

	cls := Classify(g, testParams())
	assert.Equal(t, model.OutcomeAmountMismatch, cls.Outcome)
	assert.Equal(t, "50", cls.AmountDelta.String())
}

func TestClassifyAmountMismatchWithoutReturn(t *testing.T) {
	// The amount gap decides before the missing return does: a refund of
	// 1000 against a reimbursement of 950 breaches both tolerances and is
	// a mismatch, not refunded-not-returned, even with no return record.
	params := testParams()
	params.AmountToleranceAbs = decimal.NewFromFloat(10)
	params.AmountTolerancePct = decimal.NewFromFloat(1)

	g := group(
		record(model.SourceRefund, "ORD-1003", "refund", "1000", nil, 0),
		record(model.SourceReimbursement, "ORD-1003", "customerreturn", "950", nil, 0),
	)

	cls := Classify(g, params)
	assert.Equal(t, model.OutcomeAmountMismatch, cls.Outcome)
	assert.Equal(t, "50", cls.AmountDelta.String())
}

func TestClassifyToleranceRequiresBothCeilings(t *testing.T) {
	params := testParams()
	params.AmountToleranceAbs = decimal.NewFromFloat(1)
	params.AmountTolerancePct = decimal.NewFromFloat(2) // 2% of 500 = 10

	// Delta of 6 breaches the absolute ceiling but not the relative one,
	// so it still reconciles.
	g := group(
		record(model.SourceRefund, "K4", "refund", "500", nil, 0),
		record(model.SourceReimbursement, "K4", "customerreturn", "494", nil, 0),
	)

	cls := Classify(g, params)
	assert.Equal(t, model.OutcomeReconciled, cls.Outcome)

	// Delta of 12 breaches both ceilings.
	g = group(
		record(model.SourceRefund, "K5", "refund", "500", nil, 0),
		record(model.SourceReimbursement, "K5", "customerreturn", "488", nil, 0),
	)
	cls = Classify(g, params)
	assert.Equal(t, model.OutcomeAmountMismatch, cls.Outcome)
}

func TestClassifyUnclassifiable(t *testing.T) {
	g := group(
		record(model.SourceShipment, "K6", "shipment", "", datePtr(2026, 1, 1), 0),
	)

	cls := Classify(g, testParams())
	assert.Equal(t, model.OutcomeUnclassifiable, cls.Outcome)
}

func TestClassifyReturnWithoutDateFallsThrough(t *testing.T) {
	// A return with no event date cannot be aged; with no refund either,
	// nothing else matches.
	g := group(
		record(model.SourceReturn, "K7", "received", "", nil, 0),
	)

	cls := Classify(g, testParams())
	assert.Equal(t, model.OutcomeUnclassifiable, cls.Outcome)
}

func TestClassifyIsDeterministic(t *testing.T) {
	g := group(
		record(model.SourceRefund, "K8", "refund", "100", datePtr(2026, 1, 1), 0),
		record(model.SourceReturn, "K8", "received", "", datePtr(2026, 2, 1), 0),
	)

	params := testParams()
	first := Classify(g, params)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(g, params))
	}
}

func TestRunParamsValidate(t *testing.T) {
	valid := testParams()
	assert.NoError(t, valid.Validate())

	noDate := testParams()
	noDate.ReferenceDate = time.Time{}
	assert.Error(t, noDate.Validate())

	badWindow := testParams()
	badWindow.TATWindowDays = 0
	assert.Error(t, badWindow.Validate())

	noField := testParams()
	noField.MonetaryField = ""
	assert.Error(t, noField.Validate())

	negTolerance := testParams()
	negTolerance.AmountToleranceAbs = decimal.NewFromFloat(-1)
	assert.Error(t, negTolerance.Validate())
}
