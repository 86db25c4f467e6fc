package events

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"escrowbook/core/types"
)

const (
	TypeDepositReceived = "ledger.deposit"
	TypeFeeUpdated      = "ledger.fee_updated"
)

// DepositReceived is emitted when externally attached value is credited to an
// identity's deposit balance.
type DepositReceived struct {
	Account types.Address
	Value   *uint256.Int
	Balance *uint256.Int
}

func (DepositReceived) EventType() string { return TypeDepositReceived }

func (e DepositReceived) Event() *types.Event {
	return &types.Event{
		Type: TypeDepositReceived,
		Attributes: map[string]string{
			"account": hex.EncodeToString(e.Account[:]),
			"value":   formatAmount(e.Value),
			"balance": formatAmount(e.Balance),
		},
	}
}

// FeeUpdated is emitted when an identity changes its own escrow fee rate.
type FeeUpdated struct {
	Account types.Address
	FeeRate uint32
}

func (FeeUpdated) EventType() string { return TypeFeeUpdated }

func (e FeeUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeUpdated,
		Attributes: map[string]string{
			"account": hex.EncodeToString(e.Account[:]),
			"feeRate": strconv.FormatUint(uint64(e.FeeRate), 10),
		},
	}
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
