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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibi-reports/leaklens"
	"github.com/ibi-reports/leaklens/config"
	"github.com/ibi-reports/leaklens/database"
	"github.com/ibi-reports/leaklens/internal/notification"
)

// Leaklens represents the CLI application, encapsulating the root Cobra command.
type Leaklens struct {
	cmd *cobra.Command
}

// leaklensInstance holds the engine and its configuration for use by every
// subcommand.
type leaklensInstance struct {
	engine *leaklens.Engine
	cnf    *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the engine before running any command.
func preRun(app *leaklensInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("leaklens.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		engine, err := setupEngine(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.engine = engine
		app.cnf = cnf

		return nil
	}
}

// setupEngine connects the datasource and builds the engine from it.
func setupEngine(cfg *config.Configuration) (*leaklens.Engine, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := leaklens.NewEngine(db)
	if err != nil {
		return nil, fmt.Errorf("error creating engine: %v", err)
	}
	return engine, nil
}

// NewCLI creates the command-line interface for the leaklens application.
func NewCLI() *Leaklens {
	var configFile string
	b := &leaklensInstance{}

	var rootCmd = &cobra.Command{
		Use:   "leaklens",
		Short: "Marketplace reconciliation and leakage detection",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./leaklens.json", "Configuration file for leaklens")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(reconcileCommands(b))
	rootCmd.AddCommand(coverageCommands(b))
	rootCmd.AddCommand(reportCommands(b))
	rootCmd.AddCommand(toolCommands(b))

	return &Leaklens{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Leaklens) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
