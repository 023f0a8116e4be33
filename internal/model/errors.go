package model

import "errors"

// Domain error taxonomy. Validation errors and the two solvency errors are
// user-facing rejections and are never retried by the engine;
// ErrPriceUnavailable is retryable by the caller; ErrTransientStore aborts
// the whole operation without committing partial state.
var (
	// ErrInvalidQuantity is returned for zero or negative share quantities.
	ErrInvalidQuantity = errors.New("quantity must be a positive whole number")

	// ErrInvalidSide is returned when an order side is neither buy nor sell.
	ErrInvalidSide = errors.New("side must be buy or sell")

	// ErrInsufficientFunds is returned when a buy costs more than the
	// account's cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares is returned when a sell exceeds the quantity
	// held at execution time.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrPriceUnavailable is returned when no quote exists for a symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrNotFound is returned when an account, order, or position does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner is returned when a caller mutates an order submitted by
	// a different account.
	ErrNotOwner = errors.New("order belongs to another account")

	// ErrNotPending is returned when cancelling or editing an order that
	// has already left the pending state.
	ErrNotPending = errors.New("order is no longer pending")

	// ErrTransientStore wraps storage I/O failures. Operations that hit
	// it commit nothing.
	ErrTransientStore = errors.New("transient store error")
)
