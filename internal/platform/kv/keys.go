package kv

import "time"

// Key namespace shared with every other service instance. Changing any pattern
// here orphans existing data.
const (
	AuditEventsKey       = "audit:events"
	DeleteQueueKey       = "privacy:deleteQueue"
	DeleteQueueOffsetKey = "privacy:deleteQueue:offset"
)

func RoleKey(roleID string) string { return "role:" + roleID }

func UserRolesKey(userID string) string { return "userRoles:" + userID }

func TokenKey(jti string) string { return "token:" + jti }

func RevokedKey(jti string) string { return "revoked:" + jti }

func PrivacyPrefsKey(userID string) string { return "privacy:prefs:" + userID }

func PrivacyConsentKey(userID string) string { return "privacy:consent:" + userID }

func AuditByUserKey(userID string) string { return "audit:byUser:" + userID }

// ActiveUsersKey buckets by calendar day in UTC.
func ActiveUsersKey(day time.Time) string {
	return "metrics:activeUsers:" + day.UTC().Format(time.DateOnly)
}
