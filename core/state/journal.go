package state

import (
	"encoding/json"
	"fmt"
	"strings"

	"escrowbook/core/types"
)

// JournalEntry is one appended event together with its global sequence
// number.
type JournalEntry struct {
	Sequence uint64      `json:"sequence"`
	Event    types.Event `json:"event"`
}

// AppendEvent appends the event to the journal and returns the sequence it
// was recorded at. The journal is append-only; entries are never rewritten.
func (m *Manager) AppendEvent(evt *types.Event) (uint64, error) {
	if evt == nil {
		return 0, fmt.Errorf("state: nil event")
	}
	sequence, err := m.nextSequence([]byte(keyEventSeq))
	if err != nil {
		return 0, err
	}
	encoded, err := json.Marshal(evt)
	if err != nil {
		return 0, fmt.Errorf("state: encode event: %w", err)
	}
	if err := m.db.Put(eventKey(sequence), encoded); err != nil {
		return 0, err
	}
	return sequence, nil
}

// EventCount returns the number of journaled events.
func (m *Manager) EventCount() (uint64, error) {
	return m.getCounter([]byte(keyEventSeq))
}

// Events returns journal entries whose type starts with prefix, in sequence
// order. A non-positive limit returns all matches; an empty prefix matches
// everything.
func (m *Manager) Events(prefix string, limit int) ([]JournalEntry, error) {
	count, err := m.EventCount()
	if err != nil {
		return nil, err
	}
	entries := make([]JournalEntry, 0)
	for sequence := uint64(0); sequence < count; sequence++ {
		raw, err := m.db.Get(eventKey(sequence))
		if err != nil {
			return nil, fmt.Errorf("state: journal entry %d: %w", sequence, err)
		}
		var evt types.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("state: decode journal entry %d: %w", sequence, err)
		}
		if prefix != "" && !strings.HasPrefix(evt.Type, prefix) {
			continue
		}
		entries = append(entries, JournalEntry{Sequence: sequence, Event: evt})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}
