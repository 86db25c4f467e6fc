package core

import (
	"sync"

	"github.com/holiman/uint256"

	"escrowbook/core/events"
	"escrowbook/core/state"
	"escrowbook/core/types"
	"escrowbook/native/custody"
	"escrowbook/native/ledger"
	"escrowbook/native/orderbook"
	"escrowbook/storage"
)

// Node owns the state manager and the three native engines and serializes
// every operation behind a single lock, so external callers observe one
// global total order over all mutations. The Node is also the event emitter:
// everything the engines emit lands in the persisted journal.
type Node struct {
	mu      sync.RWMutex
	db      storage.Database
	state   *state.Manager
	ledger  *ledger.Engine
	orders  *orderbook.Engine
	custody *custody.Engine
}

// NewNode builds a node over the supplied database. Release fees for orders
// are credited to feeCollector.
func NewNode(db storage.Database, feeCollector types.Address) *Node {
	node := &Node{
		db:      db,
		state:   state.NewManager(db),
		ledger:  ledger.NewEngine(),
		orders:  orderbook.NewEngine(),
		custody: custody.NewEngine(),
	}
	node.ledger.SetState(node.state)
	node.ledger.SetEmitter(node)
	node.orders.SetState(node.state)
	node.orders.SetEmitter(node)
	node.orders.SetFeeCollector(feeCollector)
	node.custody.SetState(node.state)
	node.custody.SetEmitter(node)
	return node
}

// Emit implements events.Emitter by journaling the canonical form of the
// event. Engines emit only after their mutation has been persisted, so a
// journal write failure never corrupts ledger state; the entry is dropped.
func (n *Node) Emit(evt events.Event) {
	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	_, _ = n.state.AppendEvent(payload.Event())
}

// Close releases the underlying database.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.db.Close()
}

// --- Account Ledger ---

// FundAccount credits externally attached value to the identity's deposit
// balance.
func (n *Node) FundAccount(identity types.Address, value *uint256.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.FundAccount(identity, value)
}

// SetEscrowFee sets the caller's own fee rate.
func (n *Node) SetEscrowFee(caller types.Address, feeRate uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.SetFee(caller, feeRate)
}

// GetFunds returns the identity's deposit balance.
func (n *Node) GetFunds(identity types.Address) (*uint256.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.Funds(identity)
}

// GetFee returns the identity's configured fee rate.
func (n *Node) GetFee(identity types.Address) (uint32, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.Fee(identity)
}

// --- Order Store ---

// PlaceOrder records a new order with the caller as buyer and returns its id.
func (n *Node) PlaceOrder(caller, seller types.Address, amount *uint256.Int) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orders.PlaceOrder(caller, seller, amount)
}

// GetOrder returns the order stored under id.
func (n *Node) GetOrder(id uint64) (*orderbook.Order, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.orders.Get(id)
}

// OrdersByBuyer returns the identity's order ids as buyer.
func (n *Node) OrdersByBuyer(identity types.Address) ([]uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.orders.OrdersByBuyer(identity)
}

// OrdersBySeller returns the identity's order ids as seller.
func (n *Node) OrdersBySeller(identity types.Address) ([]uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.orders.OrdersBySeller(identity)
}

// FundOrder moves the order amount from the caller's deposit balance into
// escrow custody.
func (n *Node) FundOrder(caller types.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orders.FundOrder(id, caller)
}

// EscrowedTokens reports the custodied amount for the order under the
// seller's view.
func (n *Node) EscrowedTokens(seller types.Address, id uint64) (*uint256.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.orders.EscrowedTokens(seller, id)
}

// ConfirmOrderAsBuyer records the caller's buyer-side confirmation.
func (n *Node) ConfirmOrderAsBuyer(caller types.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orders.ConfirmBuyer(id, caller)
}

// ConfirmOrderAsSeller records the caller's seller-side confirmation.
func (n *Node) ConfirmOrderAsSeller(caller types.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orders.ConfirmSeller(id, caller)
}

// --- Escrow Transaction Store ---

// CreateTransaction records a new escrow transaction funded with the attached
// value, with the caller as buyer.
func (n *Node) CreateTransaction(caller, seller, agent types.Address, notes [32]byte, value *uint256.Int) (*custody.Transaction, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.custody.Create(caller, seller, agent, notes, value)
}

// TransactionCount returns the identity's transaction count under the role.
func (n *Node) TransactionCount(identity types.Address, role custody.Role) (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.custody.Count(identity, role)
}

// TransactionByRole resolves the identity's role index at the given position
// to the canonical record.
func (n *Node) TransactionByRole(identity types.Address, role custody.Role, index uint64) (*custody.Transaction, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.custody.ByRole(identity, role, index)
}

// ConfirmTransaction records the caller's confirmation for every role they
// hold on the transaction.
func (n *Node) ConfirmTransaction(caller types.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.custody.Confirm(id, caller)
}

// RefundTransaction returns the custody value to the buyer. Agent only.
func (n *Node) RefundTransaction(caller types.Address, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.custody.Refund(id, caller)
}

// --- Event journal ---

// Events returns journaled events whose type matches prefix, oldest first.
func (n *Node) Events(prefix string, limit int) ([]state.JournalEntry, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.Events(prefix, limit)
}
