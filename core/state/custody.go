package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"escrowbook/core/types"
	"escrowbook/native/custody"
	"escrowbook/storage"
)

// NextTransactionID allocates the next sequential transaction id, starting at
// zero.
func (m *Manager) NextTransactionID() (uint64, error) {
	return m.nextSequence([]byte(keyTxSeq))
}

// TransactionPut persists the canonical transaction record. The three role
// indices hold only the id; the body is never duplicated.
func (m *Manager) TransactionPut(tx *custody.Transaction) error {
	if tx == nil {
		return fmt.Errorf("state: nil transaction")
	}
	encoded, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return fmt.Errorf("state: encode transaction: %w", err)
	}
	return m.db.Put(txKey(tx.ID), encoded)
}

// TransactionGet returns the transaction stored under id.
func (m *Manager) TransactionGet(id uint64) (*custody.Transaction, bool, error) {
	raw, err := m.db.Get(txKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tx := new(custody.Transaction)
	if err := rlp.DecodeBytes(raw, tx); err != nil {
		return nil, false, fmt.Errorf("state: decode transaction: %w", err)
	}
	return tx, true, nil
}

// TransactionIndexAppend appends the transaction id to the identity's index
// for the role and returns the position it was appended at.
func (m *Manager) TransactionIndexAppend(role custody.Role, addr types.Address, id uint64) (uint64, error) {
	countKey := txIndexCountKey(byte(role), addr)
	count, err := m.getCounter(countKey)
	if err != nil {
		return 0, err
	}
	if err := m.db.Put(txIndexSlotKey(byte(role), addr, count), encodeUint64(id)); err != nil {
		return 0, err
	}
	if err := m.putCounter(countKey, count+1); err != nil {
		return 0, err
	}
	return count, nil
}

// TransactionCount returns how many transaction references are recorded for
// the identity under the role.
func (m *Manager) TransactionCount(role custody.Role, addr types.Address) (uint64, error) {
	return m.getCounter(txIndexCountKey(byte(role), addr))
}

// TransactionIDAt resolves the identity's role index at the given position.
func (m *Manager) TransactionIDAt(role custody.Role, addr types.Address, position uint64) (uint64, bool, error) {
	count, err := m.getCounter(txIndexCountKey(byte(role), addr))
	if err != nil {
		return 0, false, err
	}
	if position >= count {
		return 0, false, nil
	}
	raw, err := m.db.Get(txIndexSlotKey(byte(role), addr, position))
	if err != nil {
		return 0, false, fmt.Errorf("state: transaction index slot %d: %w", position, err)
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("state: malformed transaction index slot %d", position)
	}
	return decodeUint64(raw), true, nil
}
