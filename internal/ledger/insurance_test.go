package ledger

import (
	"errors"
	"testing"

	"surety_ledger/internal/accounting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyBounds(t *testing.T) {
	l := newTestLedger(t)
	feeCap := DefaultParams().MaxInsuranceFee

	tests := []struct {
		name    string
		value   accounting.Amount
		wantErr error
	}{
		{name: "at cap", value: feeCap},
		{name: "below cap", value: accounting.Cents(37)},
		{name: "above cap", value: feeCap + accounting.Cents(1), wantErr: ErrFeeTooHigh},
		{name: "zero", value: 0, wantErr: ErrPremiumTooLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Buy("customer", "AF1401", tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBuyReturnsBalanceUnchanged(t *testing.T) {
	l := newTestLedger(t)

	balance, err := l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)
	assert.Equal(t, accounting.Amount(0), balance)

	_, _, err = l.CreditInsurees(owner, "customer")
	require.NoError(t, err)

	// A later purchase reports the credited balance without touching it.
	balance, err = l.Buy("customer", "BA042", accounting.Cents(80))
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(150), balance)
	assert.Equal(t, accounting.Cents(150), l.InsureeBalance("customer"))
}

func TestCreditInsurees(t *testing.T) {
	l := newTestLedger(t)

	// 1 unit paid yields a 1.5-unit credit: 100 + floor(100/2) cents.
	_, err := l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)

	credit, balance, err := l.CreditInsurees(owner, "customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(150), credit)
	assert.Equal(t, accounting.Cents(150), balance)

	// Truncation: 35 cents credits 35 + 17 = 52, not 52.5.
	_, err = l.Buy("other", "AF1401", accounting.Cents(35))
	require.NoError(t, err)
	credit, balance, err = l.CreditInsurees(owner, "other")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(52), credit)
	assert.Equal(t, accounting.Cents(52), balance)
}

func TestCreditInsureesOracleOnly(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)

	_, _, err = l.CreditInsurees("stranger", "customer")
	assert.ErrorIs(t, err, ErrNotOracle)
	assert.Equal(t, accounting.Amount(0), l.InsureeBalance("customer"))

	err = l.AuthorizeOracle("stranger", "stranger")
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, l.AuthorizeOracle(owner, "oracle-1"))
	credit, _, err := l.CreditInsurees("oracle-1", "customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(150), credit)
}

func TestCreditInsureesUnknownCustomer(t *testing.T) {
	l := newTestLedger(t)

	// Never-referenced customers credit zero.
	credit, balance, err := l.CreditInsurees(owner, "nobody")
	require.NoError(t, err)
	assert.Equal(t, accounting.Amount(0), credit)
	assert.Equal(t, accounting.Amount(0), balance)
}

func TestBuyOverwritesPreviousPurchase(t *testing.T) {
	l := newTestLedger(t)

	// Two purchases before any credit: only the second flight's payment
	// feeds the next credit computation.
	_, err := l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)
	_, err = l.Buy("customer", "BA042", accounting.Cents(40))
	require.NoError(t, err)

	credit, balance, err := l.CreditInsurees(owner, "customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(60), credit)
	assert.Equal(t, accounting.Cents(60), balance)

	snap := l.Snapshot()
	assert.Equal(t, "BA042", snap.Policies["customer"].FlightNo)
	assert.Equal(t, accounting.Cents(40), snap.Policies["customer"].PaidAmount)
}

func TestRepeatedCreditUsesLastPurchase(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.Buy("customer", "AF1401", accounting.Cents(40))
	require.NoError(t, err)

	// Each credit applies 1.5x of the stored purchase again.
	for i := 1; i <= 3; i++ {
		credit, balance, err := l.CreditInsurees(owner, "customer")
		require.NoError(t, err)
		assert.Equal(t, accounting.Cents(60), credit)
		assert.Equal(t, accounting.Cents(int64(60*i)), balance)
	}
}

func TestPay(t *testing.T) {
	var paid []accounting.Amount
	transfer := func(to Identity, amount accounting.Amount) error {
		paid = append(paid, amount)
		return nil
	}
	l, err := New(owner, DefaultParams(), transfer)
	require.NoError(t, err)

	_, err = l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)
	_, _, err = l.CreditInsurees(owner, "customer")
	require.NoError(t, err)

	amount, remaining, err := l.Pay("customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(150), amount)
	assert.Equal(t, accounting.Amount(0), remaining)
	assert.Equal(t, []accounting.Amount{accounting.Cents(150)}, paid)

	// Second immediate withdrawal finds nothing and issues no transfer.
	amount, remaining, err = l.Pay("customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Amount(0), amount)
	assert.Equal(t, accounting.Amount(0), remaining)
	assert.Len(t, paid, 1)
}

func TestPayTransferFailureRestoresBalance(t *testing.T) {
	transferErr := errors.New("endpoint unreachable")
	l, err := New(owner, DefaultParams(), func(Identity, accounting.Amount) error {
		return transferErr
	})
	require.NoError(t, err)

	_, err = l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)
	_, _, err = l.CreditInsurees(owner, "customer")
	require.NoError(t, err)

	_, _, err = l.Pay("customer")
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.ErrorIs(t, err, transferErr)
	assert.Equal(t, accounting.Cents(150), l.InsureeBalance("customer"))
}

func TestPayReentrantWithdrawal(t *testing.T) {
	// A transfer hook that re-enters Pay hits the in-flight guard; only one
	// transfer carries value.
	var l *Ledger
	var innerErrs []error
	transfer := func(to Identity, amount accounting.Amount) error {
		if len(innerErrs) == 0 {
			_, _, err := l.Pay(to)
			innerErrs = append(innerErrs, err)
		}
		return nil
	}

	var err error
	l, err = New(owner, DefaultParams(), transfer)
	require.NoError(t, err)

	_, err = l.Buy("customer", "AF1401", accounting.Cents(100))
	require.NoError(t, err)
	_, _, err = l.CreditInsurees(owner, "customer")
	require.NoError(t, err)

	amount, _, err := l.Pay("customer")
	require.NoError(t, err)
	assert.Equal(t, accounting.Cents(150), amount)
	require.Len(t, innerErrs, 1)
	assert.ErrorIs(t, innerErrs[0], ErrPayoutInProgress)
	assert.Equal(t, accounting.Amount(0), l.InsureeBalance("customer"))
}
