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

// Package leaklens implements the multi-source reconciliation and
// leakage-detection engine behind the IBI operations portal: it ingests
// independently formatted marketplace exports, correlates them on the order
// identifier, classifies each correlated group into a discrepancy outcome,
// and produces an audited report artifact.
package leaklens

import (
	"context"
	"io"
	"sort"

	"github.com/ibi-reports/leaklens/config"
	"github.com/ibi-reports/leaklens/database"
	"github.com/ibi-reports/leaklens/model"
)

// Engine is the batch reconciliation engine. It holds no state between
// runs; the datasource is only touched at run boundaries to record runs,
// reports and downloads.
type Engine struct {
	datasource database.IDataSource
	cnf        *config.Configuration
	tools      map[string]ToolHandler
}

// NewEngine builds an engine from the loaded configuration. The datasource
// may be nil for library use without persistence.
func NewEngine(datasource database.IDataSource) (*Engine, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	e := &Engine{datasource: datasource, cnf: cnf}

	// The portal's dynamic module loading is replaced by a static registry:
	// every tool is linked in and resolved here, at startup, never per
	// request.
	e.tools = map[string]ToolHandler{}
	for _, handler := range []ToolHandler{
		&reconcileTool{engine: e},
		&coverageTool{engine: e},
	} {
		e.tools[handler.Descriptor().ID()] = handler
	}

	return e, nil
}

// ToolDescriptor identifies a statically registered report tool.
type ToolDescriptor struct {
	Module      string   `json:"module"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
}

// ID is the registry key, "<module>/<name>".
func (d ToolDescriptor) ID() string {
	return d.Module + "/" + d.Name
}

// NamedFile is one uploaded input: the label the tool expects (a source
// kind for reconciliation, "sales"/"inventory" for coverage), the original
// filename, and the content.
type NamedFile struct {
	Label    string
	Filename string
	Reader   io.Reader
}

// ToolRequest carries everything a tool run needs. Parameters are explicit
// so runs are reproducible; nothing is read from ambient state.
type ToolRequest struct {
	ReportName  string
	GeneratedBy string
	Files       []NamedFile
	Params      RunParams
	Coverage    CoverageParams
}

// ToolResult is a completed run: the artifact plus its diagnostics.
type ToolResult struct {
	Artifact    *model.ReportArtifact
	Diagnostics *model.RunDiagnostics
}

// ToolHandler is the closed interface every registered tool implements.
type ToolHandler interface {
	Descriptor() ToolDescriptor
	Run(ctx context.Context, req ToolRequest) (*ToolResult, error)
}

// Tool resolves a registered tool by its "<module>/<name>" identifier.
func (e *Engine) Tool(id string) (ToolHandler, bool) {
	handler, ok := e.tools[id]
	return handler, ok
}

// Tools lists the registered tool descriptors in stable order.
func (e *Engine) Tools() []ToolDescriptor {
	descriptors := make([]ToolDescriptor, 0, len(e.tools))
	for _, handler := range e.tools {
		descriptors = append(descriptors, handler.Descriptor())
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].ID() < descriptors[j].ID()
	})
	return descriptors
}

// reconcileTool adapts the refund cross-check pipeline to the registry.
type reconcileTool struct {
	engine *Engine
}

func (t *reconcileTool) Descriptor() ToolDescriptor {
	inputs := make([]string, 0, len(model.AllSourceKinds))
	for _, kind := range model.AllSourceKinds {
		inputs = append(inputs, string(kind))
	}
	return ToolDescriptor{
		Module:      "leakagereconciliation",
		Name:        "refund-cross-check",
		Description: "Correlates refunds against shipments, returns, claims and reimbursements to surface revenue leakage.",
		Inputs:      inputs,
	}
}

func (t *reconcileTool) Run(ctx context.Context, req ToolRequest) (*ToolResult, error) {
	inputs := make([]SourceInput, 0, len(req.Files))
	for _, f := range req.Files {
		inputs = append(inputs, SourceInput{
			Kind:     model.SourceKind(f.Label),
			Filename: f.Filename,
			Reader:   f.Reader,
		})
	}

	meta := ReportMeta{
		Module:      t.Descriptor().Module,
		Tool:        t.Descriptor().Name,
		ReportName:  req.ReportName,
		GeneratedBy: req.GeneratedBy,
	}
	artifact, diag, err := t.engine.RunReconciliation(ctx, meta, inputs, req.Params)
	if err != nil {
		return nil, err
	}
	return &ToolResult{Artifact: artifact, Diagnostics: diag}, nil
}

// coverageTool adapts the DRR/DOC inventory-coverage pipeline.
type coverageTool struct {
	engine *Engine
}

func (t *coverageTool) Descriptor() ToolDescriptor {
	return ToolDescriptor{
		Module:      "amazon",
		Name:        "inventory-coverage",
		Description: "Computes daily run rate and days of coverage per SKU and flags out-of-stock risk.",
		Inputs:      []string{"sales", "inventory"},
	}
}

func (t *coverageTool) Run(ctx context.Context, req ToolRequest) (*ToolResult, error) {
	var sales, inventory NamedFile
	for _, f := range req.Files {
		switch f.Label {
		case "sales":
			sales = f
		case "inventory":
			inventory = f
		}
	}

	meta := ReportMeta{
		Module:      t.Descriptor().Module,
		Tool:        t.Descriptor().Name,
		ReportName:  req.ReportName,
		GeneratedBy: req.GeneratedBy,
	}
	artifact, diag, err := t.engine.RunCoverage(ctx, meta, sales, inventory, req.Coverage)
	if err != nil {
		return nil, err
	}
	return &ToolResult{Artifact: artifact, Diagnostics: diag}, nil
}
