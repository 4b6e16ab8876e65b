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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ibi-reports/leaklens"
	"github.com/ibi-reports/leaklens/model"
)

const reconcileToolID = "leakagereconciliation/refund-cross-check"

// reconcileCommands runs the refund cross-check against a set of uploaded
// marketplace exports and writes the line-item and summary CSVs.
func reconcileCommands(b *leaklensInstance) *cobra.Command {
	var (
		reportName    string
		generatedBy   string
		tatWindow     int
		referenceDate string
		toleranceAbs  float64
		tolerancePct  float64
		monetaryField string
		sourceFiles   = make(map[string]*string, len(model.AllSourceKinds))
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "run the refund cross-check over uploaded source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			refDate := time.Now()
			if referenceDate != "" {
				parsed, err := time.Parse("2006-01-02", referenceDate)
				if err != nil {
					return fmt.Errorf("invalid --reference-date %q: %v", referenceDate, err)
				}
				refDate = parsed
			}

			params := leaklens.DefaultRunParams(b.cnf, refDate)
			if cmd.Flags().Changed("tat-window") {
				params.TATWindowDays = tatWindow
			}
			if cmd.Flags().Changed("tolerance-abs") {
				params.AmountToleranceAbs = decimal.NewFromFloat(toleranceAbs)
			}
			if cmd.Flags().Changed("tolerance-pct") {
				params.AmountTolerancePct = decimal.NewFromFloat(tolerancePct)
			}
			if monetaryField != "" {
				params.MonetaryField = monetaryField
			}

			var files []leaklens.NamedFile
			var open []*os.File
			defer func() {
				for _, f := range open {
					_ = f.Close()
				}
			}()
			for _, kind := range model.AllSourceKinds {
				path := *sourceFiles[string(kind)]
				if path == "" {
					continue
				}
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening %s file: %v", kind, err)
				}
				open = append(open, f)
				files = append(files, leaklens.NamedFile{
					Label:    string(kind),
					Filename: filepath.Base(path),
					Reader:   f,
				})
			}
			if len(files) == 0 {
				return fmt.Errorf("no source files supplied")
			}

			tool, ok := b.engine.Tool(reconcileToolID)
			if !ok {
				return fmt.Errorf("tool %s is not registered", reconcileToolID)
			}

			result, err := tool.Run(context.Background(), leaklens.ToolRequest{
				ReportName:  reportName,
				GeneratedBy: generatedBy,
				Files:       files,
				Params:      params,
			})
			if err != nil {
				return err
			}

			return writeArtifact(b, result, generatedBy)
		},
	}

	for _, kind := range model.AllSourceKinds {
		path := new(string)
		sourceFiles[string(kind)] = path
		cmd.Flags().StringVar(path, string(kind), "", fmt.Sprintf("path to the %s export file", kind))
	}
	cmd.Flags().StringVar(&reportName, "name", "refund cross check", "report name for the registry")
	cmd.Flags().StringVar(&generatedBy, "user", "cli", "user recorded as the report generator")
	cmd.Flags().IntVar(&tatWindow, "tat-window", 0, "turnaround window in days before a return ages out")
	cmd.Flags().StringVar(&referenceDate, "reference-date", "", "reference date for aging, YYYY-MM-DD (defaults to today)")
	cmd.Flags().Float64Var(&toleranceAbs, "tolerance-abs", 0, "absolute amount tolerance")
	cmd.Flags().Float64Var(&tolerancePct, "tolerance-pct", 0, "percentage amount tolerance")
	cmd.Flags().StringVar(&monetaryField, "monetary-field", "", "line-item field summed as monetary exposure")

	return cmd
}

// writeArtifact exports the artifact's line-item and summary CSVs to the
// configured export directory and records the download.
func writeArtifact(b *leaklensInstance, result *leaklens.ToolResult, user string) error {
	artifact := result.Artifact
	filename := leaklens.ExportFilename(artifact.ReportName, "csv", artifact.GeneratedAt)
	path := filepath.Join(b.cnf.ExportDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %v", err)
	}
	defer f.Close()
	if err := leaklens.WriteArtifactCSV(f, artifact); err != nil {
		return err
	}

	summaryName := leaklens.ExportFilename(artifact.ReportName+"_summary", "csv", artifact.GeneratedAt)
	summaryPath := filepath.Join(b.cnf.ExportDir, summaryName)
	sf, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("creating summary file: %v", err)
	}
	defer sf.Close()
	if err := leaklens.WriteSummaryCSV(sf, artifact); err != nil {
		return err
	}

	if _, err := b.engine.RecordDownload(context.Background(), artifact.ReportID, user, filename); err != nil {
		log.Printf("could not record download: %v", err)
	}

	fmt.Printf("report %s: %d rows, %d columns\n", artifact.ReportID, artifact.Metadata.RowCount, artifact.Metadata.ColumnCount)
	if result.Diagnostics != nil {
		for kind, n := range result.Diagnostics.DroppedRows {
			fmt.Printf("  dropped %d rows from %s\n", n, kind)
		}
		if result.Diagnostics.Truncated {
			fmt.Println("  line items truncated at the storage row cap")
		}
	}
	fmt.Printf("wrote %s\n", path)
	fmt.Printf("wrote %s\n", summaryPath)
	return nil
}
