package token

import (
	"errors"
	"fmt"
	"time"

	"warden/pkg/platform/sentinel"
)

// Token is the persisted session token payload. The JTI is the storage key and
// is not repeated inside the payload.
type Token struct {
	JTI       string    `json:"-"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Scope     []string  `json:"scope"`
}

// Reasons a token fails validation. Values are persisted in audit metadata.
const (
	ReasonNotFoundOrRevoked = "not_found_or_revoked"
	ReasonExpired           = "expired"
)

// DefaultRevokeReason is recorded when Revoke is called without a reason.
const DefaultRevokeReason = "manual_revoke"

// Validation is the outcome of Service.Validate. Token is set only when Valid.
type Validation struct {
	Valid  bool
	Reason string
	Token  *Token
}

// ErrInvalidToken is wrapped by Validation.Err for every failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Err maps a failed validation onto sentinel errors: missing and revoked tokens
// are indistinguishable and surface as sentinel.ErrRevoked.
func (v Validation) Err() error {
	switch {
	case v.Valid:
		return nil
	case v.Reason == ReasonExpired:
		return fmt.Errorf("%w: %w", ErrInvalidToken, sentinel.ErrExpired)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidToken, sentinel.ErrRevoked)
	}
}
