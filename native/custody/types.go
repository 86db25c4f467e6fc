package custody

import (
	"github.com/holiman/uint256"

	"escrowbook/core/types"
)

// Role selects one of the three per-party views over a transaction.
type Role uint8

const (
	RoleBuyer Role = iota
	RoleSeller
	RoleAgent
)

// Valid reports whether the role value is within the supported range.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAgent:
		return true
	default:
		return false
	}
}

// TransactionStatus tracks the custody lifecycle of a transaction.
type TransactionStatus uint8

const (
	// TransactionHeld is the initial state: the attached value is in
	// custody, owned by none of the three parties.
	TransactionHeld TransactionStatus = iota
	// TransactionReleased is terminal: custody moved to the seller net of
	// the agent's fee.
	TransactionReleased
	// TransactionRefunded is terminal: custody returned to the buyer in
	// full.
	TransactionRefunded
)

// Valid reports whether the status value is within the supported range.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionHeld, TransactionReleased, TransactionRefunded:
		return true
	default:
		return false
	}
}

// Transaction is the canonical record of a buyer-funded, three-party escrow.
// It is stored once; the per-role indices hold its id, and the role nonces
// record the position of this record within each party's view at creation
// time. Only the confirmation flags and the status marker mutate after
// creation.
type Transaction struct {
	ID              uint64
	Buyer           types.Address
	Seller          types.Address
	Agent           types.Address
	Notes           [32]byte
	Value           *uint256.Int
	BuyerNonce      uint64
	SellerNonce     uint64
	AgentNonce      uint64
	BuyerConfirmed  bool
	SellerConfirmed bool
	AgentConfirmed  bool
	Status          TransactionStatus
	CreatedAt       uint64
}

// Clone returns a deep copy of the transaction so callers can safely mutate
// the copy without affecting the stored instance.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Value != nil {
		clone.Value = new(uint256.Int).Set(t.Value)
	} else {
		clone.Value = uint256.NewInt(0)
	}
	return &clone
}
