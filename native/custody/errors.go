package custody

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroAmount rejects transactions created without attached value.
	ErrZeroAmount = errors.New("custody: value must be greater than zero")

	// ErrInvalidParticipants rejects degenerate party combinations.
	ErrInvalidParticipants = errors.New("custody: invalid participants")

	// ErrNotFound signals a transaction reference that was never issued.
	ErrNotFound = errors.New("custody: transaction not found")

	// ErrNotAuthorized signals a caller that is not a participant of the
	// transaction, or lacks the role the operation requires.
	ErrNotAuthorized = errors.New("custody: caller not authorized")

	// ErrAlreadyConfirmed signals an operation on a settled transaction.
	ErrAlreadyConfirmed = errors.New("custody: transaction already settled")

	// ErrInvalidRole signals a role selector outside buyer/seller/agent.
	ErrInvalidRole = errors.New("custody: invalid role")

	// ErrOverflow signals that a balance credit during release would exceed
	// the value domain.
	ErrOverflow = errors.New("custody: balance overflow")

	errNilState = errors.New("custody engine: state not configured")
)

func errIndexDiverged(role Role, nonce, position uint64) error {
	return fmt.Errorf("custody: role %d index appended at %d, expected nonce %d", role, position, nonce)
}
