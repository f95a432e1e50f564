package pipeline

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/aluiziolira/go-vitibrasil/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS records (
	category       TEXT    NOT NULL,
	entity         TEXT    NOT NULL,
	classification TEXT    NOT NULL,
	year           INTEGER NOT NULL,
	quantity       INTEGER NOT NULL,
	value          INTEGER,
	sub_category   TEXT    NOT NULL,
	PRIMARY KEY (category, entity, classification, sub_category, year)
)`

const sqliteInsert = `INSERT OR REPLACE INTO records
	(category, entity, classification, year, quantity, value, sub_category)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// SQLiteWriter stores records in a "records" table. An existing file is
// replaced.
type SQLiteWriter struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteWriter creates the database file and schema.
func NewSQLiteWriter(filename string) (*SQLiteWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove old database: %w", err)
	}

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts a batch in one transaction.
func (sw *SQLiteWriter) Write(records []models.Record) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	tx, err := sw.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(sqliteInsert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		var value any
		if r.Value != nil {
			value = *r.Value
		}
		if _, err := stmt.Exec(r.Category.String(), r.Entity, r.Classification, r.Year, r.Quantity, value, r.SubCategory); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", r.Entity, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate ensures at least one record was stored.
func (sw *SQLiteWriter) Validate() error {
	var n int
	if err := sw.db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite database is empty")
	}
	return nil
}
