package store

import (
	"database/sql"
	"fmt"

	"surety_ledger/internal/ledger"

	_ "github.com/mattn/go-sqlite3"
)

// LedgerRepository defines the interface for ledger snapshot persistence
type LedgerRepository interface {
	SaveSnapshot(snap *ledger.Snapshot) error
	LoadSnapshot() (*ledger.Snapshot, error)
}

// DB implements snapshot persistence using SQLite
type DB struct {
	db *sql.DB
}

// New creates and initializes a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := tuneSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to tune database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// tuneSQLite applies the pragmas a small write-heavy checkpoint store wants
func tuneSQLite(db *sql.DB) error {
	// WAL keeps checkpoint writes from blocking concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// NORMAL is safe under WAL and much faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	// Snapshot writes replace whole tables; enforce the vote/airline relation
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// LedgerRepository returns the snapshot repository backed by this database
func (d *DB) LedgerRepository() LedgerRepository {
	return &ledgerRepository{db: d.db}
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			owner TEXT NOT NULL,
			operational INTEGER NOT NULL,
			registered_count INTEGER NOT NULL,
			total_funds_cents INTEGER NOT NULL,
			premiums_cents INTEGER NOT NULL,
			seq INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS airlines (
			identity TEXT PRIMARY KEY,
			registered INTEGER NOT NULL,
			funded INTEGER NOT NULL,
			balance_cents INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS airline_votes (
			candidate TEXT NOT NULL REFERENCES airlines(identity) ON DELETE CASCADE,
			endorser TEXT NOT NULL,
			PRIMARY KEY (candidate, endorser)
		);`,
		`CREATE TABLE IF NOT EXISTS insurance_policies (
			identity TEXT PRIMARY KEY,
			flight_no TEXT NOT NULL,
			paid_cents INTEGER NOT NULL,
			balance_cents INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS oracles (
			identity TEXT PRIMARY KEY
		);`,
	}

	for _, schema := range schemas {
		if _, err := d.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_airline_votes_candidate ON airline_votes(candidate)`,
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
