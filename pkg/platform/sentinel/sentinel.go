package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain outcomes.
//
// These represent factual states about resources:
// - ErrNotFound: key does not exist in the store (or has expired there)
// - ErrExpired: token is past its expiry even though the record is still present
// - ErrRevoked: a revocation marker exists for the token
// - ErrUnavailable: store temporarily unavailable; callers may retry
// - ErrMalformed: stored payload or metadata could not be decoded
// - ErrInvalidInput: caller supplied an unusable argument
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrRevoked      = errors.New("revoked")
	ErrUnavailable  = errors.New("unavailable")
	ErrMalformed    = errors.New("malformed")
	ErrInvalidInput = errors.New("invalid input")
)
