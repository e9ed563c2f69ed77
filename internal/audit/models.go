package audit

import (
	"encoding/json"
	"time"
)

// Result is the outcome recorded with every audit event.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor ids used when an event has no real user behind it.
const (
	ActorSystem  = "system"
	ActorUnknown = "unknown"
)

// Action names what happened. Values are persisted and must stay stable.
type Action string

const (
	// Access control
	ActionRolePermissionAdded   Action = "role_permission_added"
	ActionRolePermissionRemoved Action = "role_permission_removed"
	ActionRoleAssigned          Action = "role_assigned"
	ActionRoleRemoved           Action = "role_removed"

	// Tokens
	ActionTokenIssued     Action = "token_issued"
	ActionTokenRevoked    Action = "token_revoked"
	ActionTokenValidation Action = "token_validation"

	// Privacy
	ActionPrivacyPrefsUpdated  Action = "privacy_prefs_updated"
	ActionPrivacyConsentUpdate Action = "privacy_consent_update"

	// Deletion queue
	ActionDeleteRequestEnqueued  Action = "delete_request_enqueued"
	ActionDeleteRequestProcessed Action = "delete_request_processed"
)

// Event is one immutable audit record. Metadata is an opaque JSON blob stored
// and returned byte for byte.
type Event struct {
	// ID is assigned by the log on append; empty on events not yet read back.
	ID        string
	UserID    string
	Action    Action
	Result    Result
	Timestamp time.Time
	Metadata  []byte
}

// Metadata encodes v as a JSON metadata blob. Values that cannot be encoded
// yield an empty object so that a bad attribute never blocks an audit write.
func Metadata(v any) []byte {
	if v == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
