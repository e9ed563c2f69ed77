// Package token issues, validates and revokes opaque session tokens.
//
// A token is valid iff its record exists, the request clock is before its
// expires_at, and no revocation marker exists for its jti. Revocation markers
// outlive the token they revoke so that a revoked jti can never validate again.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"warden/internal/audit"
	"warden/internal/platform/kv"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

const (
	DefaultTTL               = time.Hour
	DefaultRevokeFallbackTTL = time.Hour

	// minMarkerTTL keeps a marker alive even for a token that is about to expire.
	minMarkerTTL = time.Second
)

// Auditor records audit events; *audit.Trail satisfies it.
type Auditor interface {
	Record(ctx context.Context, event audit.Event) error
}

// ActivityMarker records daily activity; *activity.Tracker satisfies it.
type ActivityMarker interface {
	MarkActive(ctx context.Context, userID string, day time.Time) error
}

type Service struct {
	store             kv.Store
	auditor           Auditor
	activity          ActivityMarker
	logger            *slog.Logger
	metrics           *metrics.Metrics
	tracer            trace.Tracer
	defaultTTL        time.Duration
	revokeFallbackTTL time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithActivity(marker ActivityMarker) Option {
	return func(s *Service) {
		s.activity = marker
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithDefaultTTL sets the lifetime used when Issue is called with ttl == 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithRevokeFallbackTTL sets the marker lifetime used when the revoked token
// cannot be found.
func WithRevokeFallbackTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.revokeFallbackTTL = ttl
		}
	}
}

func New(store kv.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	s := &Service{
		store:             store,
		logger:            logger.Discard(),
		tracer:            otel.Tracer("warden/internal/token"),
		defaultTTL:        DefaultTTL,
		revokeFallbackTTL: DefaultRevokeFallbackTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a token for userID living ttl (0 selects the default lifetime)
// and returns its jti.
func (s *Service) Issue(ctx context.Context, userID string, ttl time.Duration, scope []string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "token.Issue")
	defer span.End()

	if userID == "" {
		return "", s.fail(span, fmt.Errorf("user id is required: %w", sentinel.ErrInvalidInput))
	}
	if ttl < 0 {
		return "", s.fail(span, fmt.Errorf("ttl must not be negative: %w", sentinel.ErrInvalidInput))
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if scope == nil {
		scope = []string{}
	}

	now := requestcontext.Now(ctx)
	tok := Token{
		JTI:       uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Scope:     scope,
	}
	span.SetAttributes(attribute.String("token.jti", tok.JTI))

	raw, err := json.Marshal(tok)
	if err != nil {
		return "", s.fail(span, fmt.Errorf("encode token: %w", err))
	}
	if err := s.store.Set(ctx, kv.TokenKey(tok.JTI), string(raw), ttl); err != nil {
		return "", s.fail(span, fmt.Errorf("save token: %w", err))
	}
	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}

	s.emit(ctx, audit.Event{
		UserID: userID,
		Action: audit.ActionTokenIssued,
		Result: audit.ResultSuccess,
		Metadata: audit.Metadata(map[string]any{
			"jti":         tok.JTI,
			"ttl_seconds": wholeSeconds(ttl),
		}),
	})
	s.markActive(ctx, userID, now)
	return tok.JTI, nil
}

// Validate reports whether jti is currently valid. The returned error is
// reserved for store failures and malformed payloads; an invalid token is a
// Validation with Valid false and a Reason.
func (s *Service) Validate(ctx context.Context, jti string) (Validation, error) {
	ctx, span := s.tracer.Start(ctx, "token.Validate", trace.WithAttributes(attribute.String("token.jti", jti)))
	defer span.End()

	revoked, err := s.store.Exists(ctx, kv.RevokedKey(jti))
	if err != nil {
		return Validation{}, s.fail(span, fmt.Errorf("check revocation: %w", err))
	}
	if revoked {
		return s.reject(ctx, span, jti, audit.ActorUnknown, ReasonNotFoundOrRevoked), nil
	}

	raw, err := s.store.Get(ctx, kv.TokenKey(jti))
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.reject(ctx, span, jti, audit.ActorUnknown, ReasonNotFoundOrRevoked), nil
	}
	if err != nil {
		return Validation{}, s.fail(span, fmt.Errorf("load token: %w", err))
	}

	tok, err := decode(jti, raw)
	if err != nil {
		return Validation{}, s.fail(span, err)
	}

	now := requestcontext.Now(ctx)
	if !now.Before(tok.ExpiresAt) {
		return s.reject(ctx, span, jti, tok.UserID, ReasonExpired), nil
	}

	if s.metrics != nil {
		s.metrics.ObserveValidation("valid")
	}
	s.emit(ctx, audit.Event{
		UserID:   tok.UserID,
		Action:   audit.ActionTokenValidation,
		Result:   audit.ResultSuccess,
		Metadata: audit.Metadata(map[string]string{"jti": jti}),
	})
	s.markActive(ctx, tok.UserID, now)
	return Validation{Valid: true, Token: tok}, nil
}

// Revoke writes a revocation marker for jti that lives at least as long as the
// token could still be presented. Revoking an unknown or already revoked jti
// succeeds.
func (s *Service) Revoke(ctx context.Context, jti, reason string) error {
	ctx, span := s.tracer.Start(ctx, "token.Revoke", trace.WithAttributes(attribute.String("token.jti", jti)))
	defer span.End()

	if jti == "" {
		return s.fail(span, fmt.Errorf("jti is required: %w", sentinel.ErrInvalidInput))
	}
	if reason == "" {
		reason = DefaultRevokeReason
	}

	userID := audit.ActorUnknown
	remaining := s.revokeFallbackTTL
	found := true

	raw, storeTTL, err := s.store.GetWithTTL(ctx, kv.TokenKey(jti))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		found = false
	case err != nil:
		return s.fail(span, fmt.Errorf("load token: %w", err))
	default:
		remaining = storeTTL
		tok, decodeErr := decode(jti, raw)
		if decodeErr != nil {
			s.logger.WarnContext(ctx, "revoking token with unreadable payload",
				"jti", jti,
				"error", decodeErr,
			)
			break
		}
		userID = tok.UserID
		if untilExpiry := tok.ExpiresAt.Sub(requestcontext.Now(ctx)); untilExpiry > remaining {
			remaining = untilExpiry
		}
	}
	markerTTL := max(remaining, minMarkerTTL)

	if err := s.store.Set(ctx, kv.RevokedKey(jti), reason, markerTTL); err != nil {
		return s.fail(span, fmt.Errorf("write revocation marker: %w", err))
	}
	span.SetAttributes(
		attribute.Bool("token.found", found),
		attribute.Int64("token.marker_ttl_seconds", wholeSeconds(markerTTL)),
	)
	if s.metrics != nil {
		s.metrics.IncrementTokensRevoked()
	}

	meta := map[string]any{"jti": jti, "reason": reason}
	if !found {
		meta["token_found"] = false
	}
	s.emit(ctx, audit.Event{
		UserID:   userID,
		Action:   audit.ActionTokenRevoked,
		Result:   audit.ResultSuccess,
		Metadata: audit.Metadata(meta),
	})
	return nil
}

func (s *Service) reject(ctx context.Context, span trace.Span, jti, userID, reason string) Validation {
	span.SetAttributes(attribute.String("token.reject_reason", reason))
	if s.metrics != nil {
		s.metrics.ObserveValidation(reason)
	}
	s.emit(ctx, audit.Event{
		UserID:   userID,
		Action:   audit.ActionTokenValidation,
		Result:   audit.ResultFailure,
		Metadata: audit.Metadata(map[string]string{"jti": jti, "reason": reason}),
	})
	return Validation{Reason: reason}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	audit.Emit(ctx, s.logger, s.auditor, event)
}

// markActive is best effort: a failed activity write never fails the token
// operation.
func (s *Service) markActive(ctx context.Context, userID string, day time.Time) {
	if s.activity == nil {
		return
	}
	if err := s.activity.MarkActive(ctx, userID, day); err != nil {
		s.logger.WarnContext(ctx, "failed to mark user active",
			"user_id", userID,
			"error", err,
		)
	}
}

func decode(jti, raw string) (*Token, error) {
	var tok Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", jti, sentinel.ErrMalformed)
	}
	tok.JTI = jti
	if tok.Scope == nil {
		tok.Scope = []string{}
	}
	return &tok, nil
}

// wholeSeconds rounds d up to whole seconds so a sub-second lifetime never
// reads as zero.
func wholeSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
