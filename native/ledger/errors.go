package ledger

import "errors"

var (
	// ErrOverflow signals that crediting a deposit would exceed the value
	// domain. The stored balance is left unchanged.
	ErrOverflow = errors.New("ledger: balance overflow")

	// ErrFeeOutOfRange signals a fee rate outside [0, MaxFeeRate].
	ErrFeeOutOfRange = errors.New("ledger: fee rate out of range")

	errNilState = errors.New("ledger engine: state not configured")
)
