package events

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"escrowbook/core/types"
)

const (
	TypeOrderPlaced   = "orderbook.placed"
	TypeOrderFunded   = "orderbook.funded"
	TypeFundsReleased = "orderbook.released"
)

// OrderPlaced is emitted exactly once when a new order is recorded.
type OrderPlaced struct {
	ID     uint64
	Buyer  types.Address
	Seller types.Address
	Amount *uint256.Int
}

func (OrderPlaced) EventType() string { return TypeOrderPlaced }

func (e OrderPlaced) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderPlaced,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(e.ID, 10),
			"buyer":  hex.EncodeToString(e.Buyer[:]),
			"seller": hex.EncodeToString(e.Seller[:]),
			"amount": formatAmount(e.Amount),
		},
	}
}

// OrderFunded is emitted when the buyer moves the order amount from their
// deposit balance into escrow custody.
type OrderFunded struct {
	ID     uint64
	Buyer  types.Address
	Amount *uint256.Int
}

func (OrderFunded) EventType() string { return TypeOrderFunded }

func (e OrderFunded) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderFunded,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(e.ID, 10),
			"buyer":  hex.EncodeToString(e.Buyer[:]),
			"amount": formatAmount(e.Amount),
		},
	}
}

// FundsReleased is emitted when both parties have confirmed an order and the
// custodied amount has been paid out net of fee.
type FundsReleased struct {
	ID     uint64
	Seller types.Address
	Amount *uint256.Int
	Fee    *uint256.Int
}

func (FundsReleased) EventType() string { return TypeFundsReleased }

func (e FundsReleased) Event() *types.Event {
	return &types.Event{
		Type: TypeFundsReleased,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(e.ID, 10),
			"seller": hex.EncodeToString(e.Seller[:]),
			"amount": formatAmount(e.Amount),
			"fee":    formatAmount(e.Fee),
		},
	}
}
