package orderbook

import "errors"

var (
	// ErrSameParty rejects orders where the buyer and seller are the same
	// identity.
	ErrSameParty = errors.New("orderbook: buyer and seller cannot be the same")

	// ErrZeroAmount rejects orders for a zero value amount.
	ErrZeroAmount = errors.New("orderbook: amount must be greater than zero")

	// ErrNotFound signals an order id that was never issued.
	ErrNotFound = errors.New("orderbook: order not found")

	// ErrNotAuthorized signals a caller that is not the party the operation
	// requires.
	ErrNotAuthorized = errors.New("orderbook: caller not authorized")

	// ErrAlreadyConfirmed signals an operation on a released order.
	ErrAlreadyConfirmed = errors.New("orderbook: order already released")

	// ErrInsufficientCustody signals that the order's funds are not (or
	// cannot be placed) in escrow custody.
	ErrInsufficientCustody = errors.New("orderbook: insufficient custody")

	// ErrOverflow signals that a balance credit during release would exceed
	// the value domain.
	ErrOverflow = errors.New("orderbook: balance overflow")

	errNilState = errors.New("orderbook engine: state not configured")
)
