// Package ledger implements the membership-and-escrow state machine: airline
// admission by endorsement voting and a per-customer insurance escrow. All
// operations take the caller's authenticated identity explicitly; the
// surrounding transport layer owns authentication, the ledger owns policy.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"surety_ledger/internal/accounting"
)

// Identity is the stable, unforgeable caller identity handed in by the
// surrounding system.
type Identity string

// ConsensusFloor is the registered-airline count at which admission switches
// from direct entry to endorsement voting.
const ConsensusFloor = 5

// Airline is one participant record. Records are created lazily on first
// reference and never deleted.
type Airline struct {
	Registered bool
	Funded     bool
	Balance    accounting.Amount
	Votes      map[Identity]struct{}
}

// Insurance is one customer's escrow record. PaidAmount and FlightNo hold
// only the most recent purchase; Balance accumulates credited payouts.
type Insurance struct {
	PaidAmount accounting.Amount
	FlightNo   string
	Balance    accounting.Amount
}

// Params are the fixed policy constants of a ledger instance.
type Params struct {
	RegistrationFee accounting.Amount
	MaxInsuranceFee accounting.Amount
	MinPremium      accounting.Amount
}

// DefaultParams returns the standard fee schedule: 10-unit registration fee,
// 1-unit insurance cap, 1-cent minimum premium.
func DefaultParams() Params {
	return Params{
		RegistrationFee: accounting.FromUnits(10),
		MaxInsuranceFee: accounting.FromUnits(1),
		MinPremium:      accounting.Cents(1),
	}
}

// TransferFunc performs the external value transfer of a payout. It is called
// only after the insuree's balance has been zeroed; returning an error rolls
// the balance back.
type TransferFunc func(to Identity, amount accounting.Amount) error

// Ledger holds the entire contract state. A single mutex serializes calls, so
// each operation sees the state exactly as committed by the previous one and
// applies its own effects all-or-nothing.
type Ledger struct {
	mu sync.Mutex

	owner       Identity
	operational bool
	params      Params
	transfer    TransferFunc

	registered accounting.Counter
	airlines   map[Identity]*Airline
	policies   map[Identity]*Insurance
	oracles    map[Identity]struct{}

	totalFunds accounting.Amount
	premiums   accounting.Amount

	paying map[Identity]struct{}
	seq    uint64
}

// New creates a ledger with the owner pre-registered as the first airline
// (self-endorsed) and as the first authorized oracle.
func New(owner Identity, params Params, transfer TransferFunc) (*Ledger, error) {
	if owner == "" {
		return nil, errors.New("owner identity is required")
	}
	if transfer == nil {
		return nil, errors.New("transfer func is required")
	}
	if params.RegistrationFee <= 0 {
		return nil, errors.New("registration fee must be positive")
	}
	if params.MaxInsuranceFee <= 0 {
		return nil, errors.New("max insurance fee must be positive")
	}

	l := &Ledger{
		owner:       owner,
		operational: true,
		params:      params,
		transfer:    transfer,
		airlines:    make(map[Identity]*Airline),
		policies:    make(map[Identity]*Insurance),
		oracles:     make(map[Identity]struct{}),
		paying:      make(map[Identity]struct{}),
	}
	l.airlines[owner] = &Airline{
		Registered: true,
		Votes:      map[Identity]struct{}{owner: {}},
	}
	l.registered.Inc()
	l.oracles[owner] = struct{}{}
	return l, nil
}

// IsOperational reports whether the mutation gate is open.
func (l *Ledger) IsOperational() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.operational
}

// SetOperatingStatus opens or closes the mutation gate. Owner only; setting
// the current mode again is a no-op success.
func (l *Ledger) SetOperatingStatus(caller Identity, mode bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return ErrNotOwner
	}
	if l.operational != mode {
		l.operational = mode
		l.seq++
	}
	return nil
}

// AuthorizeOracle designates an identity allowed to call CreditInsurees.
// Owner only.
func (l *Ledger) AuthorizeOracle(caller, oracle Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.operational {
		return ErrNotOperational
	}
	if caller != l.owner {
		return ErrNotOwner
	}
	if oracle == "" {
		return fmt.Errorf("oracle identity is required")
	}
	if _, ok := l.oracles[oracle]; !ok {
		l.oracles[oracle] = struct{}{}
		l.seq++
	}
	return nil
}

// Owner returns the owner identity set at initialization.
func (l *Ledger) Owner() Identity {
	return l.owner
}

// Seq returns the mutation sequence number. It advances on every committed
// state change; the checkpoint task uses it to skip clean snapshots.
func (l *Ledger) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// airline returns the caller's record, creating the all-false default lazily.
// Callers must hold l.mu.
func (l *Ledger) airline(id Identity) *Airline {
	a, ok := l.airlines[id]
	if !ok {
		a = &Airline{Votes: make(map[Identity]struct{})}
		l.airlines[id] = a
	}
	return a
}

// policy returns the customer's record, creating the zero default lazily.
// Callers must hold l.mu.
func (l *Ledger) policy(id Identity) *Insurance {
	p, ok := l.policies[id]
	if !ok {
		p = &Insurance{}
		l.policies[id] = p
	}
	return p
}

// AirlineRecord is a detached copy of an Airline for snapshots.
type AirlineRecord struct {
	Registered bool
	Funded     bool
	Balance    accounting.Amount
	Votes      []Identity
}

// InsuranceRecord is a detached copy of an Insurance for snapshots.
type InsuranceRecord struct {
	PaidAmount accounting.Amount
	FlightNo   string
	Balance    accounting.Amount
}

// Snapshot is a consistent copy of the full ledger state, taken under the
// ledger lock. Vote and oracle lists are sorted for deterministic comparison.
type Snapshot struct {
	Owner           Identity
	Operational     bool
	RegisteredCount uint32
	TotalFunds      accounting.Amount
	Premiums        accounting.Amount
	Seq             uint64
	Airlines        map[Identity]AirlineRecord
	Policies        map[Identity]InsuranceRecord
	Oracles         []Identity
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := &Snapshot{
		Owner:           l.owner,
		Operational:     l.operational,
		RegisteredCount: uint32(l.registered),
		TotalFunds:      l.totalFunds,
		Premiums:        l.premiums,
		Seq:             l.seq,
		Airlines:        make(map[Identity]AirlineRecord, len(l.airlines)),
		Policies:        make(map[Identity]InsuranceRecord, len(l.policies)),
		Oracles:         make([]Identity, 0, len(l.oracles)),
	}
	for id, a := range l.airlines {
		votes := make([]Identity, 0, len(a.Votes))
		for v := range a.Votes {
			votes = append(votes, v)
		}
		sort.Slice(votes, func(i, j int) bool { return votes[i] < votes[j] })
		snap.Airlines[id] = AirlineRecord{
			Registered: a.Registered,
			Funded:     a.Funded,
			Balance:    a.Balance,
			Votes:      votes,
		}
	}
	for id, p := range l.policies {
		snap.Policies[id] = InsuranceRecord{
			PaidAmount: p.PaidAmount,
			FlightNo:   p.FlightNo,
			Balance:    p.Balance,
		}
	}
	for o := range l.oracles {
		snap.Oracles = append(snap.Oracles, o)
	}
	sort.Slice(snap.Oracles, func(i, j int) bool { return snap.Oracles[i] < snap.Oracles[j] })
	return snap
}

// FromSnapshot rebuilds a ledger from a saved snapshot. Params and the
// transfer hook come from configuration, not from the snapshot.
func FromSnapshot(snap *Snapshot, params Params, transfer TransferFunc) (*Ledger, error) {
	l, err := New(snap.Owner, params, transfer)
	if err != nil {
		return nil, err
	}

	l.operational = snap.Operational
	l.registered = accounting.Counter(snap.RegisteredCount)
	l.totalFunds = snap.TotalFunds
	l.premiums = snap.Premiums
	l.seq = snap.Seq

	l.airlines = make(map[Identity]*Airline, len(snap.Airlines))
	for id, rec := range snap.Airlines {
		votes := make(map[Identity]struct{}, len(rec.Votes))
		for _, v := range rec.Votes {
			votes[v] = struct{}{}
		}
		l.airlines[id] = &Airline{
			Registered: rec.Registered,
			Funded:     rec.Funded,
			Balance:    rec.Balance,
			Votes:      votes,
		}
	}
	l.policies = make(map[Identity]*Insurance, len(snap.Policies))
	for id, rec := range snap.Policies {
		l.policies[id] = &Insurance{
			PaidAmount: rec.PaidAmount,
			FlightNo:   rec.FlightNo,
			Balance:    rec.Balance,
		}
	}
	l.oracles = make(map[Identity]struct{}, len(snap.Oracles))
	for _, o := range snap.Oracles {
		l.oracles[o] = struct{}{}
	}
	return l, nil
}
