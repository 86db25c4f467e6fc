package orderbook

import (
	"github.com/holiman/uint256"

	"escrowbook/core/types"
)

// OrderStatus tracks the release lifecycle of an order.
type OrderStatus uint8

const (
	// OrderOpen is the initial state: zero or one confirmation recorded,
	// funds possibly in custody.
	OrderOpen OrderStatus = iota
	// OrderReleased is terminal: both parties confirmed and the custodied
	// amount was paid out.
	OrderReleased
)

// Valid reports whether the status value is within the supported range.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderOpen, OrderReleased:
		return true
	default:
		return false
	}
}

// Order is a bilateral buyer/seller agreement over a value amount. Orders are
// never deleted; confirmation flags and the escrow marker are the only fields
// the release protocol mutates.
type Order struct {
	ID              uint64
	Buyer           types.Address
	Seller          types.Address
	Amount          *uint256.Int
	Escrowed        bool
	BuyerConfirmed  bool
	SellerConfirmed bool
	Status          OrderStatus
	CreatedAt       uint64
}

// Clone returns a deep copy of the order so callers can safely mutate the
// copy without affecting the stored instance.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Amount != nil {
		clone.Amount = new(uint256.Int).Set(o.Amount)
	} else {
		clone.Amount = uint256.NewInt(0)
	}
	return &clone
}
