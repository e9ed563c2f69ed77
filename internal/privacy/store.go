// Package privacy keeps per-user privacy preferences (last write wins) and an
// append-only consent ledger.
package privacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/audit"
	"warden/internal/platform/kv"
	"warden/internal/platform/logger"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// Preferences is a schema-less settings object owned by the caller.
type Preferences map[string]any

// ConsentEntry is one immutable line of the consent ledger.
type ConsentEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Granted   bool      `json:"granted"`
}

type Store struct {
	store   kv.Store
	auditor audit.Recorder
	logger  *slog.Logger
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithAuditor(auditor audit.Recorder) Option {
	return func(s *Store) {
		s.auditor = auditor
	}
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		store:  store,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPreferences replaces the stored preferences of userID.
func (s *Store) SetPreferences(ctx context.Context, userID string, prefs Preferences) error {
	if userID == "" {
		return fmt.Errorf("user id is required: %w", sentinel.ErrInvalidInput)
	}
	if prefs == nil {
		prefs = Preferences{}
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w: %w", sentinel.ErrInvalidInput, err)
	}
	if err := s.store.Set(ctx, kv.PrivacyPrefsKey(userID), string(raw), 0); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}

	audit.Emit(ctx, s.logger, s.auditor, audit.Event{
		UserID:   userID,
		Action:   audit.ActionPrivacyPrefsUpdated,
		Result:   audit.ResultSuccess,
		Metadata: []byte(`{"prefs":` + string(raw) + `}`),
	})
	return nil
}

// GetPreferences returns the preferences of userID; ok is false when none were
// ever set (or they were erased).
func (s *Store) GetPreferences(ctx context.Context, userID string) (Preferences, bool, error) {
	raw, err := s.store.Get(ctx, kv.PrivacyPrefsKey(userID))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load preferences: %w", err)
	}
	var prefs Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, false, fmt.Errorf("decode preferences for %s: %w", userID, sentinel.ErrMalformed)
	}
	return prefs, true, nil
}

// RecordConsent appends a consent decision to the ledger of userID.
func (s *Store) RecordConsent(ctx context.Context, userID, consentType string, granted bool) (ConsentEntry, error) {
	if userID == "" || consentType == "" {
		return ConsentEntry{}, fmt.Errorf("user id and consent type are required: %w", sentinel.ErrInvalidInput)
	}
	entry := ConsentEntry{
		Timestamp: requestcontext.Now(ctx),
		Type:      consentType,
		Granted:   granted,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return ConsentEntry{}, fmt.Errorf("encode consent entry: %w", err)
	}
	if err := s.store.ListAppend(ctx, kv.PrivacyConsentKey(userID), string(raw)); err != nil {
		return ConsentEntry{}, fmt.Errorf("append consent entry: %w", err)
	}

	audit.Emit(ctx, s.logger, s.auditor, audit.Event{
		UserID:   userID,
		Action:   audit.ActionPrivacyConsentUpdate,
		Result:   audit.ResultSuccess,
		Metadata: raw,
	})
	return entry, nil
}

// ConsentHistory returns the ledger of userID in append order.
func (s *Store) ConsentHistory(ctx context.Context, userID string) ([]ConsentEntry, error) {
	lines, err := s.store.ListRange(ctx, kv.PrivacyConsentKey(userID))
	if err != nil {
		return nil, fmt.Errorf("read consent ledger: %w", err)
	}
	entries := make([]ConsentEntry, 0, len(lines))
	for i, line := range lines {
		var entry ConsentEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("consent entry %d for %s: %w", i, userID, sentinel.ErrMalformed)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteUserData erases the preferences and the consent ledger of userID.
// Erasing data that is already gone is a no-op.
func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, kv.PrivacyPrefsKey(userID), kv.PrivacyConsentKey(userID)); err != nil {
		return fmt.Errorf("erase privacy data: %w", err)
	}
	return nil
}
