package types

import "github.com/holiman/uint256"

const (
	// MaxFeeRate is the inclusive upper bound for a configured escrow fee,
	// expressed in percent.
	MaxFeeRate uint32 = 100

	// FeeDenominator converts a fee rate into a proportion of a released
	// amount: fee = amount * rate / FeeDenominator.
	FeeDenominator uint64 = 100
)

// Address identifies a party on the ledger.
type Address = [20]byte

// Account holds the per-identity ledger state: the withdrawable deposit
// balance and the identity's configured escrow fee rate. Accounts are created
// lazily; an identity that has never been funded reads back as a zero account.
type Account struct {
	DepositBalance *uint256.Int
	FeeRate        uint32
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{DepositBalance: uint256.NewInt(0)}
	}
	clone := *a
	if a.DepositBalance != nil {
		clone.DepositBalance = new(uint256.Int).Set(a.DepositBalance)
	} else {
		clone.DepositBalance = uint256.NewInt(0)
	}
	return &clone
}

// EnsureAccount normalises a possibly-nil account into one with a non-nil
// balance.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{DepositBalance: uint256.NewInt(0)}
	}
	if acc.DepositBalance == nil {
		acc.DepositBalance = uint256.NewInt(0)
	}
	return acc
}
