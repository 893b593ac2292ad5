package ledger

import (
	"fmt"

	"surety_ledger/internal/accounting"
)

// Buy records an insurance purchase for the caller. The payment must be
// within [MinPremium, MaxInsuranceFee]. The record holds only the most recent
// purchase: a second Buy overwrites the stored payment and flight number, it
// does not accumulate.
//
// Returns the caller's credited payout balance, which this call never changes.
func (l *Ledger) Buy(caller Identity, flightNo string, value accounting.Amount) (accounting.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.operational {
		return 0, ErrNotOperational
	}
	if value > l.params.MaxInsuranceFee {
		return 0, ErrFeeTooHigh
	}
	if value < l.params.MinPremium {
		return 0, ErrPremiumTooLow
	}

	newPremiums, err := l.premiums.Add(value)
	if err != nil {
		return 0, err
	}

	p := l.policy(caller)
	p.PaidAmount = value
	p.FlightNo = flightNo
	l.premiums = newPremiums
	l.seq++
	return p.Balance, nil
}

// CreditInsurees credits the customer with 1.5x their last paid premium,
// truncated to whole cents. Only authorized oracles may call it; the owner is
// authorized at initialization and may designate more via AuthorizeOracle.
//
// Returns the credited delta and the customer's new payout balance.
func (l *Ledger) CreditInsurees(caller, customer Identity) (accounting.Amount, accounting.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.operational {
		return 0, 0, ErrNotOperational
	}
	if _, ok := l.oracles[caller]; !ok {
		return 0, 0, ErrNotOracle
	}

	p := l.policy(customer)
	credit, err := p.PaidAmount.Add(p.PaidAmount.Half())
	if err != nil {
		return 0, 0, err
	}
	newBalance, err := p.Balance.Add(credit)
	if err != nil {
		return 0, 0, err
	}

	p.Balance = newBalance
	if credit > 0 {
		l.seq++
	}
	return credit, p.Balance, nil
}

// InsureeBalance returns the customer's credited payout balance.
func (l *Ledger) InsureeBalance(customer Identity) accounting.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.policies[customer]
	if !ok {
		return 0
	}
	return p.Balance
}

// Pay withdraws the caller's entire credited balance. The balance is zeroed
// and a per-identity in-flight marker set before the external transfer is
// issued, so a reentrant Pay during the transfer sees a zero balance and
// cannot double-withdraw. If the transfer fails the balance is restored and
// the call has no effect.
//
// Returns the amount paid out and the remaining balance, which is always
// zero. A zero-balance Pay succeeds without issuing a transfer.
func (l *Ledger) Pay(caller Identity) (accounting.Amount, accounting.Amount, error) {
	l.mu.Lock()
	if !l.operational {
		l.mu.Unlock()
		return 0, 0, ErrNotOperational
	}
	if _, busy := l.paying[caller]; busy {
		l.mu.Unlock()
		return 0, 0, ErrPayoutInProgress
	}

	p := l.policy(caller)
	amount := p.Balance
	if amount == 0 {
		l.mu.Unlock()
		return 0, 0, nil
	}

	// Zero first, transfer second. The zeroed balance is committed and
	// observable before any value leaves the ledger.
	p.Balance = 0
	l.paying[caller] = struct{}{}
	l.seq++
	l.mu.Unlock()

	transferErr := l.transfer(caller, amount)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.paying, caller)
	if transferErr != nil {
		restored, err := p.Balance.Add(amount)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: rollback failed: %w", ErrTransferFailed, err)
		}
		p.Balance = restored
		l.seq++
		return 0, 0, fmt.Errorf("%w: %w", ErrTransferFailed, transferErr)
	}
	return amount, 0, nil
}
