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
	"errors"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/ibi-reports/leaklens/config"
	"github.com/ibi-reports/leaklens/internal/runerror"
	"github.com/ibi-reports/leaklens/model"
)

// CoverageParams drives the DRR/DOC inventory module: DRR (daily run rate)
// is units sold over the period, DOC (days of coverage) is stock over DRR.
type CoverageParams struct {
	PeriodDays   int             `json:"period_days"`
	DocThreshold decimal.Decimal `json:"doc_threshold"`
}

// DefaultCoverageParams builds coverage parameters from configured defaults.
func DefaultCoverageParams(cnf *config.Configuration) CoverageParams {
	return CoverageParams{
		PeriodDays:   cnf.Coverage.PeriodDays,
		DocThreshold: decimal.NewFromFloat(cnf.Coverage.DocThreshold),
	}
}

// Validate checks the coverage parameters.
func (p CoverageParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PeriodDays, validation.Required, validation.Min(1)),
		validation.Field(&p.DocThreshold, validation.By(func(value interface{}) error {
			d, ok := value.(decimal.Decimal)
			if !ok || !d.IsPositive() {
				return errors.New("doc threshold must be positive")
			}
			return nil
		})),
	)
}

// Coverage bands, keyed off DOC the way the portal colors them.
const (
	BandCritical  = "critical"  // < 7 days
	BandLow       = "low"       // < 15
	BandModerate  = "moderate"  // < 30
	BandAdequate  = "adequate"  // < 45
	BandGood      = "good"      // < 60
	BandHigh      = "high"      // < 90
	BandOverstock = "overstock" // >= 90
)

var coverageBands = []string{
	BandCritical, BandLow, BandModerate, BandAdequate, BandGood, BandHigh, BandOverstock,
}

// drrFloor keeps DOC finite for SKUs that did not sell in the period.
var drrFloor = decimal.NewFromFloat(0.0001)

func coverageBand(doc decimal.Decimal) string {
	switch {
	case doc.LessThan(decimal.NewFromInt(7)):
		return BandCritical
	case doc.LessThan(decimal.NewFromInt(15)):
		return BandLow
	case doc.LessThan(decimal.NewFromInt(30)):
		return BandModerate
	case doc.LessThan(decimal.NewFromInt(45)):
		return BandAdequate
	case doc.LessThan(decimal.NewFromInt(60)):
		return BandGood
	case doc.LessThan(decimal.NewFromInt(90)):
		return BandHigh
	default:
		return BandOverstock
	}
}

// Header synonyms for the two coverage feeds, canonicalized the same way
// as the reconciliation sources.
var coverageSynonyms = map[string]string{
	"sku":        "sku",
	"msku":       "sku",
	"asin":       "sku",
	"seller sku": "sku",

	"units":             "units",
	"units sold":        "units",
	"quantity":          "units",
	"qty":               "units",
	"quantity shipped":  "units",
	"total sales order": "units",

	"afn fulfillable quantity": "fulfillable",
	"fulfillable qty":          "fulfillable",
	"available":                "fulfillable",

	"afn reserved quantity": "reserved",
	"reserved qty":          "reserved",
	"reserved":              "reserved",
}

// RunCoverage executes the inventory-coverage pipeline: normalize the sales
// and inventory feeds, compute DRR and DOC per SKU, band each SKU, and
// persist the artifact. Same lifecycle as the reconciliation run.
func (e *Engine) RunCoverage(ctx context.Context, meta ReportMeta, sales, inventory NamedFile, params CoverageParams) (*model.ReportArtifact, *model.RunDiagnostics, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, runerror.NewRunError(runerror.ErrInvalidInput, "invalid coverage parameters", err.Error())
	}

	ctx, span := otel.Tracer("leaklens.coverage").Start(ctx, "RunCoverage")
	defer span.End()

	run := &model.Run{
		RunID:     model.GenerateUUIDWithSuffix("run"),
		ToolID:    meta.Module + "/" + meta.Tool,
		Status:    StatusStarted,
		StartedAt: time.Now(),
	}
	if e.datasource != nil {
		if err := e.datasource.RecordRun(ctx, run); err != nil {
			logrus.Errorf("error recording run %s: %v", run.RunID, err)
		}
	}

	diag := model.NewRunDiagnostics()

	unitsBySKU, err := readCoverageFeed(sales, "units")
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, nil, err
	}
	stockBySKU, err := readCoverageStock(inventory)
	if err != nil {
		e.failRun(ctx, run, err)
		return nil, nil, err
	}

	skus := make([]string, 0, len(unitsBySKU)+len(stockBySKU))
	seen := make(map[string]bool)
	for sku := range unitsBySKU {
		skus = append(skus, sku)
		seen[sku] = true
	}
	for sku := range stockBySKU {
		if !seen[sku] {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)

	period := decimal.NewFromInt(int64(params.PeriodDays))
	counts := make(map[string]int)
	lineItems := make([]model.LineItem, 0, len(skus))
	for _, sku := range skus {
		units := unitsBySKU[sku]
		stock := stockBySKU[sku]

		drr := units.Div(period).Round(2)
		if drr.LessThanOrEqual(decimal.Zero) {
			drr = drrFloor
		}
		doc := stock.Div(drr).Round(2)
		band := coverageBand(doc)
		counts[band]++

		fields := map[string]string{
			"sku":             sku,
			"units_sold":      units.String(),
			"total_stock":     stock.String(),
			"drr":             drr.String(),
			"doc":             doc.String(),
			"band":            band,
			"below_threshold": boolString(doc.LessThan(params.DocThreshold)),
		}
		lineItems = append(lineItems, model.LineItem{
			BusinessKey:    sku,
			Classification: model.Classification{Outcome: model.Outcome(band), Rule: "doc_band"},
			Fields:         fields,
		})
	}

	summary := make([]model.SummaryRow, 0, len(coverageBands))
	for _, band := range coverageBands {
		summary = append(summary, model.SummaryRow{
			Outcome: model.Outcome(band),
			Count:   counts[band],
		})
	}

	artifact := &model.ReportArtifact{
		ReportID:    model.GenerateUUIDWithSuffix("report"),
		ReportName:  meta.ReportName,
		GeneratedAt: time.Now(),
		GeneratedBy: meta.GeneratedBy,
		Columns:     []string{"sku", "units_sold", "total_stock", "drr", "doc", "band", "below_threshold"},
		LineItems:   lineItems,
		Summary:     summary,
		Metadata: model.ArtifactMetadata{
			RowCount:    len(lineItems),
			ColumnCount: 7,
		},
	}

	if err := e.persistArtifact(ctx, meta, artifact); err != nil {
		e.failRun(ctx, run, err)
		return nil, nil, err
	}

	run.Status = StatusCompleted
	e.updateRunStatus(ctx, run, StatusCompleted, len(lineItems), 0)

	return artifact, diag, nil
}

// readCoverageFeed sums one numeric field per SKU from a feed.
func readCoverageFeed(file NamedFile, field string) (map[string]decimal.Decimal, error) {
	table, err := ReadTable(file.Reader, file.Filename)
	if err != nil {
		return nil, runerror.NewRunError(runerror.ErrInvalidInput, "could not read "+file.Filename, err.Error())
	}

	columns, err := resolveCoverageColumns(table.Headers, file.Label)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, row := range table.Rows {
		sku := coverageKey(row, columns, "sku")
		if sku == "" {
			continue
		}
		if header, ok := columns[field]; ok {
			if value, ok := parseAmount(row[header]); ok {
				totals[sku] = totals[sku].Add(value)
			}
		}
	}
	return totals, nil
}

// readCoverageStock sums fulfillable plus reserved quantity per SKU.
func readCoverageStock(file NamedFile) (map[string]decimal.Decimal, error) {
	table, err := ReadTable(file.Reader, file.Filename)
	if err != nil {
		return nil, runerror.NewRunError(runerror.ErrInvalidInput, "could not read "+file.Filename, err.Error())
	}

	columns, err := resolveCoverageColumns(table.Headers, file.Label)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, row := range table.Rows {
		sku := coverageKey(row, columns, "sku")
		if sku == "" {
			continue
		}
		for _, field := range []string{"fulfillable", "reserved"} {
			if header, ok := columns[field]; ok {
				if value, ok := parseAmount(row[header]); ok {
					totals[sku] = totals[sku].Add(value)
				}
			}
		}
	}
	return totals, nil
}

// resolveCoverageColumns maps raw headers to coverage fields; the SKU
// column is required.
func resolveCoverageColumns(headers []string, source string) (map[string]string, error) {
	columns := make(map[string]string)
	for _, header := range headers {
		canonical := CanonicalizeHeader(header)
		if field, ok := coverageSynonyms[canonical]; ok {
			if _, taken := columns[field]; !taken {
				columns[field] = header
			}
		}
	}
	if _, ok := columns["sku"]; !ok {
		return nil, runerror.Schema(source, "sku")
	}
	return columns, nil
}

func coverageKey(row map[string]string, columns map[string]string, field string) string {
	header, ok := columns[field]
	if !ok {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(row[header]))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
