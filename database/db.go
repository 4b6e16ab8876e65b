package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ibi-reports/leaklens/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createRunTable(db)
	if err != nil {
		return nil, err
	}
	err = createReportTable(db)
	if err != nil {
		return nil, err
	}
	err = createReportRegistryTable(db)
	if err != nil {
		return nil, err
	}
	err = createReportDownloadTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createRunTable creates the table tracking engine run lifecycles.
func createRunTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			tool_id TEXT NOT NULL,
			status TEXT NOT NULL,
			group_count INTEGER NOT NULL DEFAULT 0,
			dropped_rows INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		log.Printf("Error creating runs table: %v", err)
	}
	return err
}

// createReportTable creates the table holding full report documents. The
// line-item data and metadata are stored as JSON text.
func createReportTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id TEXT NOT NULL UNIQUE,
			report_name TEXT NOT NULL,
			generated_at TIMESTAMP NOT NULL,
			generated_by TEXT,
			row_count INTEGER NOT NULL,
			column_count INTEGER NOT NULL,
			data TEXT NOT NULL,
			meta_data TEXT
		)
	`)
	if err != nil {
		log.Printf("Error creating reports table: %v", err)
	}
	return err
}

// createReportRegistryTable creates the lightweight index written alongside
// every report document.
func createReportRegistryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS report_registry (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			module_name TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			report_name TEXT NOT NULL,
			generated_at TIMESTAMP NOT NULL,
			generated_by TEXT,
			row_count INTEGER NOT NULL,
			filename TEXT NOT NULL
		)
	`)
	if err != nil {
		log.Printf("Error creating report_registry table: %v", err)
	}
	return err
}

// createReportDownloadTable creates the download audit trail.
func createReportDownloadTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS report_downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id TEXT NOT NULL REFERENCES reports(report_id),
			downloaded_at TIMESTAMP NOT NULL,
			downloaded_by TEXT,
			filename TEXT NOT NULL
		)
	`)
	if err != nil {
		log.Printf("Error creating report_downloads table: %v", err)
	}
	return err
}
