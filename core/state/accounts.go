package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"escrowbook/core/types"
	"escrowbook/storage"
)

// GetAccount returns the stored account for addr, or nil when the identity
// has never been written. Callers normalise nil through types.EnsureAccount.
func (m *Manager) GetAccount(addr types.Address) (*types.Account, error) {
	raw, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc := new(types.Account)
	if err := rlp.DecodeBytes(raw, acc); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return acc, nil
}

// PutAccount persists the account under addr.
func (m *Manager) PutAccount(addr types.Address, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account")
	}
	encoded, err := rlp.EncodeToBytes(types.EnsureAccount(acc))
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.db.Put(accountKey(addr), encoded)
}
