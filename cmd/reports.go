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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// reportCommands lists the report registry, shows a stored report, and
// records downloads.
func reportCommands(b *leaklensInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "inspect generated reports",
	}
	cmd.AddCommand(reportListCommand(b))
	cmd.AddCommand(reportShowCommand(b))
	cmd.AddCommand(runListCommand(b))
	return cmd
}

func reportListCommand(b *leaklensInstance) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list registry entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := b.engine.Registry(context.Background(), limit, offset)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Printf("%s\t%s/%s\t%s\t%d rows\t%s\n",
					r.GeneratedAt.Format("2006-01-02 15:04:05"),
					r.ModuleName, r.ToolName, r.ReportName, r.RowCount, r.Filename)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}

func reportShowCommand(b *leaklensInstance) *cobra.Command {
	var id string
	var user string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "print a stored report document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := b.engine.Report(context.Background(), id)
			if err != nil {
				return err
			}
			if _, err := b.engine.RecordDownload(context.Background(), doc.ReportID, user, doc.ReportName); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "report ID")
	cmd.Flags().StringVar(&user, "user", "cli", "user recorded on the download event")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runListCommand(b *leaklensInstance) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "list engine runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := b.engine.Runs(context.Background(), limit, offset)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s\t%s\t%s\t%d groups\t%d dropped\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.RunID, r.Status, r.GroupCount, r.DroppedRows)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")
	return cmd
}
