package custody

import (
	"time"

	"github.com/holiman/uint256"

	"escrowbook/core/events"
	"escrowbook/core/types"
)

// State is the backend the custody engine reads and writes through. The three
// role indices are append-only lists of transaction ids; the canonical record
// is stored once.
type State interface {
	GetAccount(addr types.Address) (*types.Account, error)
	PutAccount(addr types.Address, acc *types.Account) error
	NextTransactionID() (uint64, error)
	TransactionPut(*Transaction) error
	TransactionGet(id uint64) (*Transaction, bool, error)
	TransactionIndexAppend(role Role, addr types.Address, id uint64) (uint64, error)
	TransactionCount(role Role, addr types.Address) (uint64, error)
	TransactionIDAt(role Role, addr types.Address, index uint64) (uint64, bool, error)
}

// Engine implements the escrow transaction store and its quorum release
// protocol: the agent plus at least one of buyer/seller must confirm before
// custody moves to the seller net of the agent's fee.
type Engine struct {
	state   State
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a custody engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// Create records a new transaction funded with the attached value. The value
// is held in custody on the record itself until released or refunded. The
// returned transaction carries the role nonces assigned at creation.
func (e *Engine) Create(buyer, seller, agent types.Address, notes [32]byte, value *uint256.Int) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if value == nil || value.IsZero() {
		return nil, ErrZeroAmount
	}
	if buyer == seller {
		return nil, ErrInvalidParticipants
	}
	id, err := e.state.NextTransactionID()
	if err != nil {
		return nil, err
	}
	buyerNonce, err := e.state.TransactionCount(RoleBuyer, buyer)
	if err != nil {
		return nil, err
	}
	sellerNonce, err := e.state.TransactionCount(RoleSeller, seller)
	if err != nil {
		return nil, err
	}
	agentNonce, err := e.state.TransactionCount(RoleAgent, agent)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{
		ID:          id,
		Buyer:       buyer,
		Seller:      seller,
		Agent:       agent,
		Notes:       notes,
		Value:       new(uint256.Int).Set(value),
		BuyerNonce:  buyerNonce,
		SellerNonce: sellerNonce,
		AgentNonce:  agentNonce,
		Status:      TransactionHeld,
		CreatedAt:   uint64(e.nowFn()),
	}
	if err := e.state.TransactionPut(tx); err != nil {
		return nil, err
	}
	for _, entry := range []struct {
		role  Role
		addr  types.Address
		nonce uint64
	}{
		{RoleBuyer, buyer, buyerNonce},
		{RoleSeller, seller, sellerNonce},
		{RoleAgent, agent, agentNonce},
	} {
		position, err := e.state.TransactionIndexAppend(entry.role, entry.addr, tx.ID)
		if err != nil {
			return nil, err
		}
		if position != entry.nonce {
			return nil, errIndexDiverged(entry.role, entry.nonce, position)
		}
	}
	e.emit(events.TransactionCreated{
		ID:     tx.ID,
		Buyer:  buyer,
		Seller: seller,
		Agent:  agent,
		Nonce:  buyerNonce,
		Value:  tx.Value.Clone(),
	})
	return tx.Clone(), nil
}

// Count returns how many transactions the identity participates in under the
// given role.
func (e *Engine) Count(addr types.Address, role Role) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if !role.Valid() {
		return 0, ErrInvalidRole
	}
	return e.state.TransactionCount(role, addr)
}

// ByRole returns the canonical record referenced from the identity's
// role-specific index at the given position. All three role views of the same
// transaction resolve to one record; only the role nonces differ per view.
func (e *Engine) ByRole(addr types.Address, role Role, index uint64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	id, ok, err := e.state.TransactionIDAt(role, addr, index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return e.loadTransaction(id)
}

// Confirm records the caller's confirmation for every role they hold on the
// transaction. Repeating a confirmation on a held record is a no-op. When the
// quorum is met (agent plus buyer or seller) the release runs atomically with
// the confirmation that completes it.
func (e *Engine) Confirm(id uint64, caller types.Address) error {
	tx, err := e.loadTransaction(id)
	if err != nil {
		return err
	}
	if tx.Status != TransactionHeld {
		return ErrAlreadyConfirmed
	}
	participant := false
	changed := false
	if caller == tx.Buyer {
		participant = true
		if !tx.BuyerConfirmed {
			tx.BuyerConfirmed = true
			changed = true
		}
	}
	if caller == tx.Seller {
		participant = true
		if !tx.SellerConfirmed {
			tx.SellerConfirmed = true
			changed = true
		}
	}
	if caller == tx.Agent {
		participant = true
		if !tx.AgentConfirmed {
			tx.AgentConfirmed = true
			changed = true
		}
	}
	if !participant {
		return ErrNotAuthorized
	}
	if !changed {
		return nil
	}
	if tx.AgentConfirmed && (tx.BuyerConfirmed || tx.SellerConfirmed) {
		return e.release(tx)
	}
	if err := e.state.TransactionPut(tx); err != nil {
		return err
	}
	e.emit(events.TransactionConfirmed{ID: tx.ID, Confirmer: caller})
	return nil
}

// Refund returns the full custody value to the buyer. Only the agent may
// refund; refunding an already refunded transaction is a no-op.
func (e *Engine) Refund(id uint64, caller types.Address) error {
	tx, err := e.loadTransaction(id)
	if err != nil {
		return err
	}
	if tx.Status == TransactionRefunded {
		return nil
	}
	if tx.Status != TransactionHeld {
		return ErrAlreadyConfirmed
	}
	if caller != tx.Agent {
		return ErrNotAuthorized
	}
	buyerAcc, err := e.state.GetAccount(tx.Buyer)
	if err != nil {
		return err
	}
	buyerAcc = types.EnsureAccount(buyerAcc)
	balance, overflow := new(uint256.Int).AddOverflow(buyerAcc.DepositBalance, tx.Value)
	if overflow {
		return ErrOverflow
	}
	buyerAcc.DepositBalance = balance
	tx.Status = TransactionRefunded
	if err := e.state.TransactionPut(tx); err != nil {
		return err
	}
	if err := e.state.PutAccount(tx.Buyer, buyerAcc); err != nil {
		return err
	}
	e.emit(events.TransactionRefunded{ID: tx.ID, Buyer: tx.Buyer, Value: tx.Value.Clone()})
	return nil
}

// release settles a quorum-confirmed transaction: the agent's configured fee
// rate is deducted from the custody value and credited to the agent, and the
// remainder moves to the seller. The record is finalized before any balance
// is credited.
func (e *Engine) release(tx *Transaction) error {
	sellerAcc, err := e.state.GetAccount(tx.Seller)
	if err != nil {
		return err
	}
	sellerAcc = types.EnsureAccount(sellerAcc)
	agentAcc := sellerAcc
	sameAgent := tx.Agent == tx.Seller
	if !sameAgent {
		agentAcc, err = e.state.GetAccount(tx.Agent)
		if err != nil {
			return err
		}
		agentAcc = types.EnsureAccount(agentAcc)
	}
	fee, err := computeFee(tx.Value, agentAcc.FeeRate)
	if err != nil {
		return err
	}
	payout := new(uint256.Int).Sub(tx.Value, fee)
	sellerBalance, overflow := new(uint256.Int).AddOverflow(sellerAcc.DepositBalance, payout)
	if overflow {
		return ErrOverflow
	}
	sellerAcc.DepositBalance = sellerBalance
	agentBalance, overflow := new(uint256.Int).AddOverflow(agentAcc.DepositBalance, fee)
	if overflow {
		return ErrOverflow
	}
	agentAcc.DepositBalance = agentBalance

	tx.Status = TransactionReleased
	if err := e.state.TransactionPut(tx); err != nil {
		return err
	}
	if err := e.state.PutAccount(tx.Seller, sellerAcc); err != nil {
		return err
	}
	if !sameAgent {
		if err := e.state.PutAccount(tx.Agent, agentAcc); err != nil {
			return err
		}
	}
	e.emit(events.TransactionReleased{
		ID:     tx.ID,
		Seller: tx.Seller,
		Agent:  tx.Agent,
		Value:  tx.Value.Clone(),
		Fee:    fee,
	})
	return nil
}

func (e *Engine) loadTransaction(id uint64) (*Transaction, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	tx, ok, err := e.state.TransactionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

func computeFee(value *uint256.Int, feeRate uint32) (*uint256.Int, error) {
	if feeRate == 0 {
		return uint256.NewInt(0), nil
	}
	product, overflow := new(uint256.Int).MulOverflow(value, uint256.NewInt(uint64(feeRate)))
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, uint256.NewInt(types.FeeDenominator)), nil
}
