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

	"github.com/stretchr/testify/assert"

	"github.com/ibi-reports/leaklens/internal/runerror"
	"github.com/ibi-reports/leaklens/model"
)

func TestCanonicalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Amazon Order ID":   "amazon order id",
		"  order-id ":       "order id",
		"Date/Time":         "date time",
		"amount_total":      "amount total",
		"Product  Sales":    "product sales",
		"business_key":      "business key",
		"Reimbursement.Amt": "reimbursement amt",
	}
	for input, want := range cases {
		assert.Equal(t, want, CanonicalizeHeader(input), "input %q", input)
	}
}

func TestNormalizeRefundFeed(t *testing.T) {
	table := &model.RawTable{
		Headers: []string{"Amazon Order ID", "Date/Time", "Product Sales", "Type", "Marketplace"},
		Rows: []map[string]string{
			{"Amazon Order ID": "ord-1001", "Date/Time": "2026-01-15", "Product Sales": "₹1,250.00", "Type": "Refund", "Marketplace": "amazon.in"},
			{"Amazon Order ID": " ord-1002 ", "Date/Time": "15/02/2026", "Product Sales": "(45.50)", "Type": "Order"},
		},
	}

	records, dropped, err := NewNormalizer(model.SourceRefund).Normalize(table)
	assert.NoError(t, err)
	assert.Equal(t, 0, dropped)
	assert.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "ORD-1001", first.BusinessKey)
	assert.Equal(t, "refund", first.StatusCode)
	assert.NotNil(t, first.Amount)
	assert.Equal(t, "1250", first.Amount.String())
	assert.NotNil(t, first.EventDate)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), *first.EventDate)
	assert.Equal(t, "amazon.in", first.Extra["marketplace"])

	second := records[1]
	assert.Equal(t, "ORD-1002", second.BusinessKey)
	assert.Equal(t, "-45.5", second.Amount.String())
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), *second.EventDate)
	assert.Equal(t, 1, second.RowIndex)
}

func TestNormalizeMissingKeyColumn(t *testing.T) {
	table := &model.RawTable{
		Headers: []string{"Date", "Amount"},
		Rows:    []map[string]string{{"Date": "2026-01-01", "Amount": "10"}},
	}

	_, _, err := NewNormalizer(model.SourceReturn).Normalize(table)
	assert.Error(t, err)
	assert.True(t, runerror.IsSchema(err))
}

func TestNormalizeDropsRowsWithoutKey(t *testing.T) {
	table := &model.RawTable{
		Headers: []string{"Order ID", "Amount"},
		Rows: []map[string]string{
			{"Order ID": "A1", "Amount": "10"},
			{"Order ID": "   ", "Amount": "20"},
			{"Order ID": "", "Amount": "30"},
			{"Order ID": "a2", "Amount": "40"},
		},
	}

	records, dropped, err := NewNormalizer(model.SourceClaim).Normalize(table)
	assert.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].BusinessKey)
	assert.Equal(t, "A2", records[1].BusinessKey)
}

func TestNormalizeFuzzyHeaderResolution(t *testing.T) {
	// "Order Numbr" is one edit from "order number" and resolves; "xyz"
	// stays unknown and lands in extras.
	table := &model.RawTable{
		Headers: []string{"Order Numbr", "xyz"},
		Rows:    []map[string]string{{"Order Numbr": "k1", "xyz": "v"}},
	}

	records, dropped, err := NewNormalizer(model.SourceShipment).Normalize(table)
	assert.NoError(t, err)
	assert.Equal(t, 0, dropped)
	assert.Len(t, records, 1)
	assert.Equal(t, "K1", records[0].BusinessKey)
	assert.Equal(t, "v", records[0].Extra["xyz"])
}

func TestNormalizeIdempotentOnCanonicalHeaders(t *testing.T) {
	table := &model.RawTable{
		Headers: []string{"business_key", "event_date", "amount", "status_code"},
		Rows: []map[string]string{
			{"business_key": "K9", "event_date": "2026-03-01", "amount": "99.99", "status_code": "refund"},
		},
	}

	records, _, err := NewNormalizer(model.SourceRefund).Normalize(table)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "K9", records[0].BusinessKey)
	assert.Equal(t, "99.99", records[0].Amount.String())
	assert.Equal(t, "refund", records[0].StatusCode)
	assert.Empty(t, records[0].Extra)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1,234.56", "1234.56", true},
		{"₹500", "500", true},
		{"$ 12.00", "12", true},
		{"(45.00)", "-45", true},
		{"-7.5", "-7.5", true},
		{"1.2.3", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := parseAmount(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		if c.ok {
			assert.Equal(t, c.want, got.String(), "input %q", c.in)
		}
	}
}

func TestParseEventDate(t *testing.T) {
	got, ok := parseEventDate("15/01/2026")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), got)

	got, ok = parseEventDate("2026-01-02 10:30:00")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC), got)

	_, ok = parseEventDate("not a date")
	assert.False(t, ok)
}
