package repository

import "errors"

// Sentinel errors surfaced by the storage layer. The service layer maps
// these onto its own taxonomy; ErrVersionMismatch in particular is never
// shown to callers, it only drives the retry loop.
var (
	ErrNotFound             = errors.New("record not found")
	ErrVersionMismatch      = errors.New("account version mismatch")
	ErrInsufficientFunds    = errors.New("insufficient funds for adjustment")
	ErrDuplicateTransaction = errors.New("transaction id already exists")
	ErrAlreadyFinalized     = errors.New("transaction already finalized")
)
