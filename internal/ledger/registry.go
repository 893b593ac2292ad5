package ledger

import "surety_ledger/internal/accounting"

// RegisterAirline records the caller's endorsement of candidate and applies
// the admission policy against the registered count observed at entry.
//
// Below ConsensusFloor registered airlines a single endorsement admits the
// candidate directly. At or above the floor the candidate is admitted once
// its distinct endorsements exceed half the registered count. Endorsements
// are one-per-endorser (a repeat is accepted but does not grow the tally),
// admission is monotonic, and the registered count advances exactly once per
// airline, on its first transition to registered.
//
// Returns the registered-airline count after the call.
func (l *Ledger) RegisterAirline(caller, candidate Identity) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.operational {
		return 0, ErrNotOperational
	}
	endorser, ok := l.airlines[caller]
	if !ok || !endorser.Registered {
		return 0, ErrNotRegisteredAirline
	}

	count := l.registered.Value()
	cand := l.airline(candidate)
	if _, dup := cand.Votes[caller]; !dup {
		cand.Votes[caller] = struct{}{}
		l.seq++
	}

	if cand.Registered {
		return l.registered.Value(), nil
	}
	if count < ConsensusFloor || len(cand.Votes) > count/2 {
		cand.Registered = true
		l.registered.Inc()
		l.seq++
	}
	return l.registered.Value(), nil
}

// IsAirline reports whether candidate currently satisfies the admission
// policy. Unreferenced identities are not airlines.
func (l *Ledger) IsAirline(candidate Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.airlines[candidate]
	return ok && a.Registered
}

// IsFunded reports whether candidate has submitted the registration fee.
func (l *Ledger) IsFunded(candidate Identity) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.airlines[candidate]
	return ok && a.Funded
}

// Votes returns the number of distinct endorsements candidate has received.
func (l *Ledger) Votes(candidate Identity) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.airlines[candidate]
	if !ok {
		return 0
	}
	return len(a.Votes)
}

// RegisteredCount returns the registered-airline count.
func (l *Ledger) RegisteredCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registered.Value()
}

// Fund records the caller's registration stake. The payment must be at least
// the registration fee; it is credited to the caller's airline balance and to
// the pooled total, and marks the caller funded. Funding does not affect the
// admission policy; surrounding systems gate privileges on it.
//
// Returns the pooled balance across all participants after the call.
func (l *Ledger) Fund(caller Identity, value accounting.Amount) (accounting.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.operational {
		return 0, ErrNotOperational
	}
	if value < l.params.RegistrationFee {
		return 0, ErrInsufficientFunds
	}

	a := l.airline(caller)
	newBalance, err := a.Balance.Add(value)
	if err != nil {
		return 0, err
	}
	newTotal, err := l.totalFunds.Add(value)
	if err != nil {
		return 0, err
	}

	a.Balance = newBalance
	a.Funded = true
	l.totalFunds = newTotal
	l.seq++
	return l.totalFunds, nil
}
