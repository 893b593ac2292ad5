package store

import (
	"os"
	"testing"

	"surety_ledger/internal/accounting"
	"surety_ledger/internal/ledger"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	tmpFile := "/tmp/test_surety_" + t.Name() + ".db"
	os.Remove(tmpFile)

	db, err := New(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, db)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
		os.Remove(tmpFile)
	})

	return db
}

func buildLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New("owner-airline", ledger.DefaultParams(), func(ledger.Identity, accounting.Amount) error {
		return nil
	})
	require.NoError(t, err)

	_, err = l.RegisterAirline("owner-airline", "a2")
	require.NoError(t, err)
	_, err = l.Fund("a2", accounting.FromUnits(10))
	require.NoError(t, err)
	_, err = l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)
	_, _, err = l.CreditInsurees("owner-airline", "customer")
	require.NoError(t, err)
	require.NoError(t, l.AuthorizeOracle("owner-airline", "oracle-1"))

	return l
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)
	assert.NotNil(t, db)
}

func TestLoadSnapshotEmpty(t *testing.T) {
	db := setupTestDB(t)

	snap, err := db.LedgerRepository().LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := db.LedgerRepository()

	snap := buildLedger(t).Snapshot()
	require.NoError(t, repo.SaveSnapshot(snap))

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Empty(t, cmp.Diff(snap, loaded))
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	db := setupTestDB(t)
	repo := db.LedgerRepository()

	l := buildLedger(t)
	require.NoError(t, repo.SaveSnapshot(l.Snapshot()))

	// Mutate and checkpoint again; the old rows must be gone.
	_, _, err := l.Pay("customer")
	require.NoError(t, err)
	_, err = l.RegisterAirline("owner-airline", "a3")
	require.NoError(t, err)

	snap := l.Snapshot()
	require.NoError(t, repo.SaveSnapshot(snap))

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(snap, loaded))
	assert.Equal(t, accounting.Amount(0), loaded.Policies["customer"].Balance)
	assert.Equal(t, uint32(3), loaded.RegisteredCount)
}

func TestRestoredLedgerContinues(t *testing.T) {
	db := setupTestDB(t)
	repo := db.LedgerRepository()

	require.NoError(t, repo.SaveSnapshot(buildLedger(t).Snapshot()))

	loaded, err := repo.LoadSnapshot()
	require.NoError(t, err)

	l, err := ledger.FromSnapshot(loaded, ledger.DefaultParams(), func(ledger.Identity, accounting.Amount) error {
		return nil
	})
	require.NoError(t, err)

	// Restored state keeps its policy decisions: a2 is registered, the
	// customer's credit survives, the extra oracle still works.
	assert.True(t, l.IsAirline("a2"))
	assert.Equal(t, accounting.Cents(150), l.InsureeBalance("customer"))
	credit, _, err := l.CreditInsurees("oracle-1", "customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(150), credit)
}
