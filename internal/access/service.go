// Package access implements role-based access control: roles carry permission
// sets, users carry role sets, and a user holds a permission when any of their
// roles grants it.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"warden/internal/audit"
	"warden/internal/platform/kv"
	"warden/internal/platform/logger"
	"warden/pkg/platform/sentinel"
)

type Service struct {
	store   kv.Store
	auditor audit.Recorder
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAuditor sets where role and permission edits are recorded.
func WithAuditor(auditor audit.Recorder) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func New(store kv.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddPermission grants permission to roleID. Idempotent.
func (s *Service) AddPermission(ctx context.Context, roleID, permission string) error {
	if err := requireNonEmpty("role", roleID, "permission", permission); err != nil {
		return err
	}
	if err := s.store.SetAdd(ctx, kv.RoleKey(roleID), permission); err != nil {
		return fmt.Errorf("add permission to role: %w", err)
	}
	s.emit(ctx, audit.ActorSystem, audit.ActionRolePermissionAdded, map[string]string{
		"role":       roleID,
		"permission": permission,
	})
	return nil
}

// RemovePermission withdraws permission from roleID. Idempotent.
func (s *Service) RemovePermission(ctx context.Context, roleID, permission string) error {
	if err := requireNonEmpty("role", roleID, "permission", permission); err != nil {
		return err
	}
	if err := s.store.SetRemove(ctx, kv.RoleKey(roleID), permission); err != nil {
		return fmt.Errorf("remove permission from role: %w", err)
	}
	s.emit(ctx, audit.ActorSystem, audit.ActionRolePermissionRemoved, map[string]string{
		"role":       roleID,
		"permission": permission,
	})
	return nil
}

// AssignRole gives userID the role roleID. Idempotent.
func (s *Service) AssignRole(ctx context.Context, userID, roleID string) error {
	if err := requireNonEmpty("user", userID, "role", roleID); err != nil {
		return err
	}
	if err := s.store.SetAdd(ctx, kv.UserRolesKey(userID), roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	s.emit(ctx, userID, audit.ActionRoleAssigned, map[string]string{"role": roleID})
	return nil
}

// RemoveRole takes roleID away from userID. Idempotent.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID string) error {
	if err := requireNonEmpty("user", userID, "role", roleID); err != nil {
		return err
	}
	if err := s.store.SetRemove(ctx, kv.UserRolesKey(userID), roleID); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	s.emit(ctx, userID, audit.ActionRoleRemoved, map[string]string{"role": roleID})
	return nil
}

// ClearUserRoles drops every role assignment of userID. Used by account
// deletion; absent assignments are a no-op and nothing is audited here.
func (s *Service) ClearUserRoles(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, kv.UserRolesKey(userID)); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	return nil
}

// RolePermissions returns the current permissions of roleID, sorted.
func (s *Service) RolePermissions(ctx context.Context, roleID string) ([]string, error) {
	perms, err := s.store.SetMembers(ctx, kv.RoleKey(roleID))
	if err != nil {
		return nil, fmt.Errorf("get role permissions: %w", err)
	}
	sort.Strings(perms)
	return perms, nil
}

// UserRoles returns the current roles of userID, sorted.
func (s *Service) UserRoles(ctx context.Context, userID string) ([]string, error) {
	roles, err := s.store.SetMembers(ctx, kv.UserRolesKey(userID))
	if err != nil {
		return nil, fmt.Errorf("get user roles: %w", err)
	}
	sort.Strings(roles)
	return roles, nil
}

// HasPermission reports whether any role of userID grants permission. A user
// with no roles has no permissions; the scan stops at the first granting role.
func (s *Service) HasPermission(ctx context.Context, userID, permission string) (bool, error) {
	roles, err := s.store.SetMembers(ctx, kv.UserRolesKey(userID))
	if err != nil {
		return false, fmt.Errorf("get user roles: %w", err)
	}
	if len(roles) == 0 {
		return false, nil
	}

	for _, role := range roles {
		ok, err := s.store.SetIsMember(ctx, kv.RoleKey(role), permission)
		if err != nil {
			return false, fmt.Errorf("check role %s: %w", role, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) emit(ctx context.Context, actor string, action audit.Action, meta map[string]string) {
	audit.Emit(ctx, s.logger, s.auditor, audit.Event{
		UserID:   actor,
		Action:   action,
		Result:   audit.ResultSuccess,
		Metadata: audit.Metadata(meta),
	})
}

func requireNonEmpty(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%s is required: %w", pairs[i], sentinel.ErrInvalidInput)
		}
	}
	return nil
}
