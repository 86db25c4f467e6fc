package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"escrowbook/core/types"
	"escrowbook/native/orderbook"
	"escrowbook/storage"
)

// NextOrderID allocates the next sequential order id, starting at zero.
func (m *Manager) NextOrderID() (uint64, error) {
	return m.nextSequence([]byte(keyOrderSeq))
}

// OrderPut persists the canonical order record.
func (m *Manager) OrderPut(ord *orderbook.Order) error {
	if ord == nil {
		return fmt.Errorf("state: nil order")
	}
	encoded, err := rlp.EncodeToBytes(ord)
	if err != nil {
		return fmt.Errorf("state: encode order: %w", err)
	}
	return m.db.Put(orderKey(ord.ID), encoded)
}

// OrderGet returns the order stored under id.
func (m *Manager) OrderGet(id uint64) (*orderbook.Order, bool, error) {
	raw, err := m.db.Get(orderKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ord := new(orderbook.Order)
	if err := rlp.DecodeBytes(raw, ord); err != nil {
		return nil, false, fmt.Errorf("state: decode order: %w", err)
	}
	return ord, true, nil
}

// OrderIndexAppend appends the order id to the identity's index for the given
// role. Entries are slot-addressed so existing positions are never rewritten.
func (m *Manager) OrderIndexAppend(role orderbook.IndexRole, addr types.Address, id uint64) error {
	countKey := orderIndexCountKey(byte(role), addr)
	count, err := m.getCounter(countKey)
	if err != nil {
		return err
	}
	if err := m.db.Put(orderIndexSlotKey(byte(role), addr, count), encodeUint64(id)); err != nil {
		return err
	}
	return m.putCounter(countKey, count+1)
}

// OrderIDs returns the identity's order ids for the role, in insertion order.
func (m *Manager) OrderIDs(role orderbook.IndexRole, addr types.Address) ([]uint64, error) {
	count, err := m.getCounter(orderIndexCountKey(byte(role), addr))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, count)
	for position := uint64(0); position < count; position++ {
		raw, err := m.db.Get(orderIndexSlotKey(byte(role), addr, position))
		if err != nil {
			return nil, fmt.Errorf("state: order index slot %d: %w", position, err)
		}
		if len(raw) != 8 {
			return nil, fmt.Errorf("state: malformed order index slot %d", position)
		}
		ids = append(ids, decodeUint64(raw))
	}
	return ids, nil
}
