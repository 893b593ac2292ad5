package store

import (
	"database/sql"
	"errors"
	"fmt"

	"surety_ledger/internal/accounting"
	"surety_ledger/internal/ledger"
)

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository wraps an open database handle
func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// SaveSnapshot replaces the stored state with the given snapshot in a single
// transaction. A snapshot write is all-or-nothing: a failed save leaves the
// previous checkpoint intact.
func (r *ledgerRepository) SaveSnapshot(snap *ledger.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"airline_votes", "airlines", "insurance_policies", "oracles", "ledger_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO ledger_meta (
		id, owner, operational, registered_count, total_funds_cents, premiums_cents, seq
	) VALUES (1, ?, ?, ?, ?, ?, ?)`,
		string(snap.Owner),
		snap.Operational,
		snap.RegisteredCount,
		snap.TotalFunds.Cents(),
		snap.Premiums.Cents(),
		snap.Seq,
	); err != nil {
		return fmt.Errorf("failed to insert meta: %w", err)
	}

	airlineStmt, err := tx.Prepare(`INSERT INTO airlines (
		identity, registered, funded, balance_cents
	) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer airlineStmt.Close()

	voteStmt, err := tx.Prepare(`INSERT INTO airline_votes (candidate, endorser) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer voteStmt.Close()

	for id, rec := range snap.Airlines {
		if _, err := airlineStmt.Exec(string(id), rec.Registered, rec.Funded, rec.Balance.Cents()); err != nil {
			return fmt.Errorf("failed to insert airline: %w", err)
		}
		for _, endorser := range rec.Votes {
			if _, err := voteStmt.Exec(string(id), string(endorser)); err != nil {
				return fmt.Errorf("failed to insert vote: %w", err)
			}
		}
	}

	policyStmt, err := tx.Prepare(`INSERT INTO insurance_policies (
		identity, flight_no, paid_cents, balance_cents
	) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer policyStmt.Close()

	for id, rec := range snap.Policies {
		if _, err := policyStmt.Exec(string(id), rec.FlightNo, rec.PaidAmount.Cents(), rec.Balance.Cents()); err != nil {
			return fmt.Errorf("failed to insert policy: %w", err)
		}
	}

	for _, oracle := range snap.Oracles {
		if _, err := tx.Exec(`INSERT INTO oracles (identity) VALUES (?)`, string(oracle)); err != nil {
			return fmt.Errorf("failed to insert oracle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadSnapshot reads the stored checkpoint. Returns (nil, nil) when the
// database holds no checkpoint yet.
func (r *ledgerRepository) LoadSnapshot() (*ledger.Snapshot, error) {
	snap := &ledger.Snapshot{
		Airlines: make(map[ledger.Identity]ledger.AirlineRecord),
		Policies: make(map[ledger.Identity]ledger.InsuranceRecord),
	}

	var owner string
	var totalFunds, premiums int64
	err := r.db.QueryRow(`SELECT owner, operational, registered_count, total_funds_cents, premiums_cents, seq
		FROM ledger_meta WHERE id = 1`).Scan(
		&owner, &snap.Operational, &snap.RegisteredCount, &totalFunds, &premiums, &snap.Seq,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}
	snap.Owner = ledger.Identity(owner)
	snap.TotalFunds = accounting.Cents(totalFunds)
	snap.Premiums = accounting.Cents(premiums)

	rows, err := r.db.Query(`SELECT identity, registered, funded, balance_cents FROM airlines`)
	if err != nil {
		return nil, fmt.Errorf("failed to read airlines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var rec ledger.AirlineRecord
		var balance int64
		if err := rows.Scan(&id, &rec.Registered, &rec.Funded, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan airline: %w", err)
		}
		rec.Balance = accounting.Cents(balance)
		rec.Votes = []ledger.Identity{}
		snap.Airlines[ledger.Identity(id)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read airlines: %w", err)
	}

	voteRows, err := r.db.Query(`SELECT candidate, endorser FROM airline_votes ORDER BY candidate, endorser`)
	if err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	defer voteRows.Close()
	for voteRows.Next() {
		var candidate, endorser string
		if err := voteRows.Scan(&candidate, &endorser); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		rec := snap.Airlines[ledger.Identity(candidate)]
		rec.Votes = append(rec.Votes, ledger.Identity(endorser))
		snap.Airlines[ledger.Identity(candidate)] = rec
	}
	if err := voteRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}

	policyRows, err := r.db.Query(`SELECT identity, flight_no, paid_cents, balance_cents FROM insurance_policies`)
	if err != nil {
		return nil, fmt.Errorf("failed to read policies: %w", err)
	}
	defer policyRows.Close()
	for policyRows.Next() {
		var id string
		var rec ledger.InsuranceRecord
		var paid, balance int64
		if err := policyRows.Scan(&id, &rec.FlightNo, &paid, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		rec.PaidAmount = accounting.Cents(paid)
		rec.Balance = accounting.Cents(balance)
		snap.Policies[ledger.Identity(id)] = rec
	}
	if err := policyRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read policies: %w", err)
	}

	oracleRows, err := r.db.Query(`SELECT identity FROM oracles ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracles: %w", err)
	}
	defer oracleRows.Close()
	for oracleRows.Next() {
		var id string
		if err := oracleRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan oracle: %w", err)
		}
		snap.Oracles = append(snap.Oracles, ledger.Identity(id))
	}
	if err := oracleRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read oracles: %w", err)
	}

	return snap, nil
}
