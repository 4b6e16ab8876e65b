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
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ibi-reports/leaklens/config"
)

func mockEngineConfig() {
	config.MockConfig(&config.Configuration{
		ProjectName: "Leaklens",
		ExportDir:   ".",
		Reconciliation: config.ReconciliationConfig{
			TatWindowDays: 75,
			MonetaryField: "refund.amount",
			ReportRowCap:  10000,
		},
		Coverage: config.CoverageConfig{
			DocThreshold: 30,
			PeriodDays:   30,
		},
	})
}

func TestCoverageBand(t *testing.T) {
	cases := map[string]string{
		"0":     BandCritical,
		"6.99":  BandCritical,
		"7":     BandLow,
		"14.5":  BandLow,
		"15":    BandModerate,
		"29":    BandModerate,
		"30":    BandAdequate,
		"44.99": BandAdequate,
		"45":    BandGood,
		"60":    BandHigh,
		"89.99": BandHigh,
		"90":    BandOverstock,
		"500":   BandOverstock,
	}
	for doc, want := range cases {
		assert.Equal(t, want, coverageBand(decimal.RequireFromString(doc)), "doc %s", doc)
	}
}

func TestCoverageParamsValidate(t *testing.T) {
	valid := CoverageParams{PeriodDays: 30, DocThreshold: decimal.NewFromInt(30)}
	assert.NoError(t, valid.Validate())

	assert.Error(t, CoverageParams{PeriodDays: 0, DocThreshold: decimal.NewFromInt(30)}.Validate())
	assert.Error(t, CoverageParams{PeriodDays: 30, DocThreshold: decimal.Zero}.Validate())
}

func TestRunCoverage(t *testing.T) {
	mockEngineConfig()
	engine, err := NewEngine(nil)
	assert.NoError(t, err)

	sales := "MSKU,Quantity\nSKU-A,60\nsku-a,30\nSKU-B,0\n"
	inventory := "MSKU,AFN Fulfillable Quantity,AFN Reserved Quantity\nSKU-A,90,10\nSKU-C,50,0\n"

	meta := ReportMeta{Module: "amazon", Tool: "inventory-coverage", ReportName: "coverage", GeneratedBy: "tester"}
	artifact, diag, err := engine.RunCoverage(context.Background(), meta,
		NamedFile{Label: "sales", Filename: "sales.csv", Reader: strings.NewReader(sales)},
		NamedFile{Label: "inventory", Filename: "inventory.csv", Reader: strings.NewReader(inventory)},
		CoverageParams{PeriodDays: 30, DocThreshold: decimal.NewFromInt(30)},
	)
	assert.NoError(t, err)
	assert.NotNil(t, diag)
	assert.Len(t, artifact.LineItems, 3)

	// SKU keys are upper-cased, so "sku-a" folds into SKU-A; output is
	// sorted by SKU.
	a := artifact.LineItems[0]
	assert.Equal(t, "SKU-A", a.BusinessKey)
	assert.Equal(t, "90", a.Fields["units_sold"])
	assert.Equal(t, "100", a.Fields["total_stock"])
	assert.Equal(t, "3", a.Fields["drr"])
	assert.Equal(t, "33.33", a.Fields["doc"])
	assert.Equal(t, BandAdequate, a.Fields["band"])
	assert.Equal(t, "false", a.Fields["below_threshold"])

	// zero sales floors the run rate instead of dividing by zero
	b := artifact.LineItems[1]
	assert.Equal(t, "SKU-B", b.BusinessKey)
	assert.Equal(t, BandCritical, b.Fields["band"])
	assert.Equal(t, "true", b.Fields["below_threshold"])

	c := artifact.LineItems[2]
	assert.Equal(t, "SKU-C", c.BusinessKey)
	assert.Equal(t, BandOverstock, c.Fields["band"])

	assert.Len(t, artifact.Summary, len(coverageBands))
	total := 0
	for _, row := range artifact.Summary {
		total += row.Count
	}
	assert.Equal(t, 3, total)
}

func TestRunCoverageMissingSKUColumn(t *testing.T) {
	mockEngineConfig()
	engine, err := NewEngine(nil)
	assert.NoError(t, err)

	sales := "Quantity\n10\n"
	inventory := "MSKU,AFN Fulfillable Quantity\nSKU-A,5\n"

	meta := ReportMeta{Module: "amazon", Tool: "inventory-coverage", ReportName: "coverage", GeneratedBy: "tester"}
	_, _, err = engine.RunCoverage(context.Background(), meta,
		NamedFile{Label: "sales", Filename: "sales.csv", Reader: strings.NewReader(sales)},
		NamedFile{Label: "inventory", Filename: "inventory.csv", Reader: strings.NewReader(inventory)},
		CoverageParams{PeriodDays: 30, DocThreshold: decimal.NewFromInt(30)},
	)
	assert.Error(t, err)
}

func TestRunCoverageRejectsInvalidParams(t *testing.T) {
	mockEngineConfig()
	engine, err := NewEngine(nil)
	assert.NoError(t, err)

	meta := ReportMeta{Module: "amazon", Tool: "inventory-coverage"}
	_, _, err = engine.RunCoverage(context.Background(), meta,
		NamedFile{}, NamedFile{}, CoverageParams{})
	assert.Error(t, err)
}
