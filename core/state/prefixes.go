package state

import "escrowbook/core/types"

// Key layout. Record bodies are stored once under their id; index lists are
// stored as a per-identity count plus one slot entry per position, so appends
// never rewrite existing entries.
const (
	prefixAccount    = "acct/"
	prefixOrder      = "ord/"
	keyOrderSeq      = "ord-seq"
	prefixOrderIndex = "ord-idx/"
	prefixTx         = "etx/"
	keyTxSeq         = "etx-seq"
	prefixTxIndex    = "etx-idx/"
	prefixEvent      = "evt/"
	keyEventSeq      = "evt-seq"
	indexCountSuffix = "/cnt"
)

func accountKey(addr types.Address) []byte {
	return append([]byte(prefixAccount), addr[:]...)
}

func orderKey(id uint64) []byte {
	return append([]byte(prefixOrder), encodeUint64(id)...)
}

func orderIndexCountKey(role byte, addr types.Address) []byte {
	key := append([]byte(prefixOrderIndex), role, '/')
	key = append(key, addr[:]...)
	return append(key, indexCountSuffix...)
}

func orderIndexSlotKey(role byte, addr types.Address, position uint64) []byte {
	key := append([]byte(prefixOrderIndex), role, '/')
	key = append(key, addr[:]...)
	key = append(key, '/')
	return append(key, encodeUint64(position)...)
}

func txKey(id uint64) []byte {
	return append([]byte(prefixTx), encodeUint64(id)...)
}

func txIndexCountKey(role byte, addr types.Address) []byte {
	key := append([]byte(prefixTxIndex), role, '/')
	key = append(key, addr[:]...)
	return append(key, indexCountSuffix...)
}

func txIndexSlotKey(role byte, addr types.Address, position uint64) []byte {
	key := append([]byte(prefixTxIndex), role, '/')
	key = append(key, addr[:]...)
	key = append(key, '/')
	return append(key, encodeUint64(position)...)
}

func eventKey(sequence uint64) []byte {
	return append([]byte(prefixEvent), encodeUint64(sequence)...)
}
