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
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ibi-reports/leaklens"
)

const coverageToolID = "amazon/inventory-coverage"

// coverageCommands runs the DRR/DOC inventory-coverage tool over a sales
// and an inventory export.
func coverageCommands(b *leaklensInstance) *cobra.Command {
	var (
		reportName   string
		generatedBy  string
		salesPath    string
		invPath      string
		periodDays   int
		docThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "compute daily run rate and days of coverage per SKU",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := leaklens.DefaultCoverageParams(b.cnf)
			if cmd.Flags().Changed("period-days") {
				params.PeriodDays = periodDays
			}
			if cmd.Flags().Changed("doc-threshold") {
				params.DocThreshold = decimal.NewFromFloat(docThreshold)
			}

			sales, err := os.Open(salesPath)
			if err != nil {
				return fmt.Errorf("opening sales file: %v", err)
			}
			defer sales.Close()
			inventory, err := os.Open(invPath)
			if err != nil {
				return fmt.Errorf("opening inventory file: %v", err)
			}
			defer inventory.Close()

			tool, ok := b.engine.Tool(coverageToolID)
			if !ok {
				return fmt.Errorf("tool %s is not registered", coverageToolID)
			}

			result, err := tool.Run(context.Background(), leaklens.ToolRequest{
				ReportName:  reportName,
				GeneratedBy: generatedBy,
				Files: []leaklens.NamedFile{
					{Label: "sales", Filename: filepath.Base(salesPath), Reader: sales},
					{Label: "inventory", Filename: filepath.Base(invPath), Reader: inventory},
				},
				Coverage: params,
			})
			if err != nil {
				return err
			}

			return writeArtifact(b, result, generatedBy)
		},
	}

	cmd.Flags().StringVar(&salesPath, "sales", "", "path to the sales export file")
	cmd.Flags().StringVar(&invPath, "inventory", "", "path to the inventory export file")
	cmd.Flags().StringVar(&reportName, "name", "inventory coverage", "report name for the registry")
	cmd.Flags().StringVar(&generatedBy, "user", "cli", "user recorded as the report generator")
	cmd.Flags().IntVar(&periodDays, "period-days", 0, "sales period length in days")
	cmd.Flags().Float64Var(&docThreshold, "doc-threshold", 0, "days-of-coverage restock threshold")
	_ = cmd.MarkFlagRequired("sales")
	_ = cmd.MarkFlagRequired("inventory")

	return cmd
}
