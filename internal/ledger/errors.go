package ledger

import "errors"

var (
	// ErrNotOperational is returned by every mutating operation while the
	// operational gate is closed.
	ErrNotOperational = errors.New("contract_not_operational")
	// ErrNotOwner is returned when an owner-restricted call comes from any
	// other identity.
	ErrNotOwner = errors.New("caller_is_not_owner")
	// ErrNotRegisteredAirline is returned when a caller that has not passed
	// the admission policy tries to endorse a candidate.
	ErrNotRegisteredAirline = errors.New("caller_is_not_a_registered_airline")
	// ErrNotOracle is returned when an unauthorized identity tries to credit
	// insurees.
	ErrNotOracle = errors.New("caller_is_not_an_authorized_oracle")
	// ErrInsufficientFunds is returned when a funding payment is below the
	// registration fee.
	ErrInsufficientFunds = errors.New("funding_below_registration_fee")
	// ErrFeeTooHigh is returned when an insurance payment exceeds the cap.
	ErrFeeTooHigh = errors.New("insurance_payment_above_cap")
	// ErrPremiumTooLow is returned when an insurance payment is below the
	// minimum premium.
	ErrPremiumTooLow = errors.New("insurance_payment_below_minimum")
	// ErrTransferFailed wraps the payout hook's error when a withdrawal
	// cannot complete. The insuree balance is restored in full.
	ErrTransferFailed = errors.New("payout_transfer_failed")
	// ErrPayoutInProgress is returned to a reentrant Pay call while the
	// caller's transfer is still in flight.
	ErrPayoutInProgress = errors.New("payout_already_in_progress")
)
