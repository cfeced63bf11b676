package model

import "errors"

// Sentinel errors shared across decoders, store, and indexer. Each is
// wrapped with context at its call site per spec.md §7.
var (
	ErrInvalidHashLength = errors.New("invalid hash length")

	// Numeric (spec.md §4.1/§7)
	ErrNaN             = errors.New("not a number")
	ErrTooManyDigits   = errors.New("too many fractional digits")
	ErrDecimalsMismatch = errors.New("operands have unequal decimals")

	// SLP structural (spec.md §4.2/§7)
	ErrNotSLPSafe           = errors.New("script is not SLP-safe")
	ErrTooFewPushops        = errors.New("fewer than six push-ops")
	ErrTooManyAmounts       = errors.New("more than nineteen amounts")
	ErrInvalidTokenTypeLen  = errors.New("invalid token type length")
	ErrInvalidTokenHashLen  = errors.New("invalid token hash length")
	ErrInvalidSLPType       = errors.New("invalid slp subtype")
	ErrNoMatch              = errors.New("script does not match SLP template")
	ErrInvalidSLPOutput     = errors.New("invalid SLP output")

	// TradeOffer (spec.md §4.3/§7)
	ErrInvalidPrice = errors.New("invalid trade offer price")
	ErrInvalidPower = errors.New("invalid trade offer power")

	// Token (spec.md §4.4/§7)
	ErrTokenNotMinedYet = errors.New("token not mined yet")
	ErrUnknownTokenID   = errors.New("unknown token id")

	// Storage (spec.md §7)
	ErrConstraintViolation  = errors.New("storage constraint violation")
	ErrSerializationFailure = errors.New("storage serialization failure")

	// Remote (spec.md §7)
	ErrRemoteRequest  = errors.New("remote query request failed")
	ErrRemoteDecode   = errors.New("remote query response decode failed")

	// Protocol (spec.md §6.1/§7) — retained for the wire-collaborator contract
	ErrMagicMismatch    = errors.New("wire magic mismatch")
	ErrChecksumMismatch = errors.New("wire checksum mismatch")
	ErrTruncatedPayload = errors.New("truncated wire payload")
)
