package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"escrowbook/storage"
)

// Manager persists ledger state through a storage.Database. It implements the
// state interfaces of the native engines; all encoding decisions (RLP for
// records, JSON for journal entries, big-endian counters) live here so the
// engines stay storage-agnostic.
type Manager struct {
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getCounter(key []byte) (uint64, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed counter at %q", key)
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (m *Manager) putCounter(key []byte, value uint64) error {
	return m.db.Put(key, encodeUint64(value))
}

// nextSequence returns the current counter value and advances it by one.
func (m *Manager) nextSequence(key []byte) (uint64, error) {
	current, err := m.getCounter(key)
	if err != nil {
		return 0, err
	}
	if err := m.putCounter(key, current+1); err != nil {
		return 0, err
	}
	return current, nil
}

func encodeUint64(v uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, v)
	return out
}

func decodeUint64(raw []byte) uint64 {
	return binary.BigEndian.Uint64(raw)
}
