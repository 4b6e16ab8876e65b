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
package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_TAT_WINDOW_DAYS = 75
	DEFAULT_REPORT_ROW_CAP  = 10000
	DEFAULT_DOC_THRESHOLD   = 30
	DEFAULT_PERIOD_DAYS     = 30
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"LEAKLENS_DATA_SOURCE_DNS"`
}

// ReconciliationConfig carries the run defaults; every run may override
// them, the classifier itself only ever sees explicit parameters.
type ReconciliationConfig struct {
	TatWindowDays      int     `json:"tat_window_days" envconfig:"LEAKLENS_TAT_WINDOW_DAYS"`
	AmountToleranceAbs float64 `json:"amount_tolerance_abs" envconfig:"LEAKLENS_AMOUNT_TOLERANCE_ABS"`
	AmountTolerancePct float64 `json:"amount_tolerance_pct" envconfig:"LEAKLENS_AMOUNT_TOLERANCE_PCT"`
	MonetaryField      string  `json:"monetary_field" envconfig:"LEAKLENS_MONETARY_FIELD"`
	ReportRowCap       int     `json:"report_row_cap" envconfig:"LEAKLENS_REPORT_ROW_CAP"`
}

// CoverageConfig holds the defaults for the DRR/DOC inventory module.
type CoverageConfig struct {
	DocThreshold float64 `json:"doc_threshold" envconfig:"LEAKLENS_DOC_THRESHOLD"`
	PeriodDays   int     `json:"period_days" envconfig:"LEAKLENS_PERIOD_DAYS"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"LEAKLENS_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName    string               `json:"project_name" envconfig:"LEAKLENS_PROJECT_NAME"`
	ExportDir      string               `json:"export_dir" envconfig:"LEAKLENS_EXPORT_DIR"`
	DataSource     DataSourceConfig     `json:"data_source"`
	Reconciliation ReconciliationConfig `json:"reconciliation"`
	Coverage       CoverageConfig       `json:"coverage"`
	Notification   Notification         `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("leaklens", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called leaklens.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Leaklens"
	}

	if cnf.DataSource.Dns == "" {
		cnf.DataSource.Dns = "leaklens.db"
	}

	if cnf.ExportDir == "" {
		cnf.ExportDir = "."
	}

	if cnf.Reconciliation.TatWindowDays <= 0 {
		cnf.Reconciliation.TatWindowDays = DEFAULT_TAT_WINDOW_DAYS
	}
	if cnf.Reconciliation.AmountToleranceAbs < 0 {
		log.Println("Error: amount tolerance (absolute) cannot be negative.")
		return errors.New("amount_tolerance_abs cannot be negative")
	}
	if cnf.Reconciliation.AmountTolerancePct < 0 {
		log.Println("Error: amount tolerance (percent) cannot be negative.")
		return errors.New("amount_tolerance_pct cannot be negative")
	}
	if cnf.Reconciliation.MonetaryField == "" {
		cnf.Reconciliation.MonetaryField = "refund.amount"
	}
	if cnf.Reconciliation.ReportRowCap <= 0 {
		cnf.Reconciliation.ReportRowCap = DEFAULT_REPORT_ROW_CAP
	}

	if cnf.Coverage.DocThreshold <= 0 {
		cnf.Coverage.DocThreshold = DEFAULT_DOC_THRESHOLD
	}
	if cnf.Coverage.PeriodDays <= 0 {
		cnf.Coverage.PeriodDays = DEFAULT_PERIOD_DAYS
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.ExportDir = strings.TrimSpace(cnf.ExportDir)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Reconciliation.MonetaryField = strings.TrimSpace(cnf.Reconciliation.MonetaryField)

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
