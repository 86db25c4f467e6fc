package events

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"escrowbook/core/types"
)

const (
	TypeTransactionCreated   = "custody.created"
	TypeTransactionConfirmed = "custody.confirmed"
	TypeTransactionReleased  = "custody.released"
	TypeTransactionRefunded  = "custody.refunded"
)

// TransactionCreated is emitted once per newly funded escrow transaction. The
// nonce is the buyer-side index position of the record.
type TransactionCreated struct {
	ID     uint64
	Buyer  types.Address
	Seller types.Address
	Agent  types.Address
	Nonce  uint64
	Value  *uint256.Int
}

func (TransactionCreated) EventType() string { return TypeTransactionCreated }

func (e TransactionCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeTransactionCreated,
		Attributes: map[string]string{
			"id":          strconv.FormatUint(e.ID, 10),
			"buyer":       hex.EncodeToString(e.Buyer[:]),
			"seller":      hex.EncodeToString(e.Seller[:]),
			"escrowAgent": hex.EncodeToString(e.Agent[:]),
			"nonce":       strconv.FormatUint(e.Nonce, 10),
			"value":       formatAmount(e.Value),
		},
	}
}

// TransactionConfirmed is emitted when a participant records a confirmation
// that does not yet complete the release quorum.
type TransactionConfirmed struct {
	ID        uint64
	Confirmer types.Address
}

func (TransactionConfirmed) EventType() string { return TypeTransactionConfirmed }

func (e TransactionConfirmed) Event() *types.Event {
	return &types.Event{
		Type: TypeTransactionConfirmed,
		Attributes: map[string]string{
			"id":        strconv.FormatUint(e.ID, 10),
			"confirmer": hex.EncodeToString(e.Confirmer[:]),
		},
	}
}

// TransactionReleased is emitted when the release quorum is met and custody
// moves to the seller net of the agent's fee.
type TransactionReleased struct {
	ID     uint64
	Seller types.Address
	Agent  types.Address
	Value  *uint256.Int
	Fee    *uint256.Int
}

func (TransactionReleased) EventType() string { return TypeTransactionReleased }

func (e TransactionReleased) Event() *types.Event {
	return &types.Event{
		Type: TypeTransactionReleased,
		Attributes: map[string]string{
			"id":     strconv.FormatUint(e.ID, 10),
			"seller": hex.EncodeToString(e.Seller[:]),
			"agent":  hex.EncodeToString(e.Agent[:]),
			"value":  formatAmount(e.Value),
			"fee":    formatAmount(e.Fee),
		},
	}
}

// TransactionRefunded is emitted when the agent returns custody to the buyer.
type TransactionRefunded struct {
	ID    uint64
	Buyer types.Address
	Value *uint256.Int
}

func (TransactionRefunded) EventType() string { return TypeTransactionRefunded }

func (e TransactionRefunded) Event() *types.Event {
	return &types.Event{
		Type: TypeTransactionRefunded,
		Attributes: map[string]string{
			"id":    strconv.FormatUint(e.ID, 10),
			"buyer": hex.EncodeToString(e.Buyer[:]),
			"value": formatAmount(e.Value),
		},
	}
}
