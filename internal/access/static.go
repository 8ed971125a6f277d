// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// StaticAccessControl implements AccessControl with static role definitions.
//
// roles is immutable after construction. subjects is protected by mu.
type StaticAccessControl struct {
	roles       map[string][]compiledPermission
	defaultRole string
	mu          sync.RWMutex
	subjects    map[string]string
}

type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// NewStaticAccessControl creates a controller from role definitions. Nil roles
// use DefaultRoles. Players without an assignment get defaultRole; an empty
// defaultRole denies them.
func NewStaticAccessControl(roles map[string][]string, defaultRole string) (*StaticAccessControl, error) {
	if roles == nil {
		roles = DefaultRoles()
	}
	compiled, err := compileRoles(roles)
	if err != nil {
		return nil, err
	}
	if _, ok := compiled[defaultRole]; defaultRole != "" && !ok {
		return nil, oops.In("access").Code("UNKNOWN_ROLE").With("role", defaultRole).New("unknown default role")
	}
	return &StaticAccessControl{
		roles:       compiled,
		defaultRole: defaultRole,
		subjects:    make(map[string]string),
	}, nil
}

// compileRoles compiles each "action:resource" pattern with ':' as the
// separator, so "*" stays within one segment and "**" spans them.
func compileRoles(roles map[string][]string) (map[string][]compiledPermission, error) {
	out := make(map[string][]compiledPermission, len(roles))
	for role, patterns := range roles {
		perms := make([]compiledPermission, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(p, ':')
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("role", role).
					With("pattern", p).
					Wrap(err)
			}
			perms = append(perms, compiledPermission{pattern: p, glob: g})
		}
		out[role] = perms
	}
	return out, nil
}

// Check implements AccessControl.
func (s *StaticAccessControl) Check(ctx context.Context, subject, action, resource string) bool {
	if subject == SubjectSystem {
		return true
	}
	prefix, id := ParseSubject(subject)
	if prefix+":" != SubjectPlayer || id == "" {
		return false
	}

	role := s.EffectiveRole(subject)
	requested := action + ":" + resource
	for _, perm := range s.roles[role] {
		if perm.glob.Match(requested) {
			return true
		}
	}
	slog.DebugContext(ctx, "permission denied", "subject", subject, "role", role, "requested", requested)
	return false
}

// AssignRole sets the role for a subject.
func (s *StaticAccessControl) AssignRole(subject, role string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}
	if role == "" {
		return oops.In("access").Code("INVALID_ROLE").New("role cannot be empty")
	}
	if _, ok := s.roles[role]; !ok {
		return oops.In("access").Code("UNKNOWN_ROLE").With("role", role).New("unknown role")
	}

	s.mu.Lock()
	s.subjects[subject] = role
	s.mu.Unlock()
	return nil
}

// RevokeRole removes a subject's role assignment.
func (s *StaticAccessControl) RevokeRole(subject string) error {
	if subject == "" {
		return oops.In("access").Code("INVALID_SUBJECT").New("subject cannot be empty")
	}
	s.mu.Lock()
	delete(s.subjects, subject)
	s.mu.Unlock()
	return nil
}

// EffectiveRole returns the subject's assigned role, or the default role.
func (s *StaticAccessControl) EffectiveRole(subject string) string {
	if role := s.GetRole(subject); role != "" {
		return role
	}
	return s.defaultRole
}

// GetRole returns the role assigned to a subject, or empty string if none.
func (s *StaticAccessControl) GetRole(subject string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subjects[subject]
}
