// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package accesstest provides test helpers for access control.
package accesstest

import (
	"context"
	"sync"

	"github.com/holomush/plotshop/internal/access"
)

// AllowAll is an AccessControl that allows everything.
type AllowAll struct{}

// Check always returns true.
func (AllowAll) Check(_ context.Context, _, _, _ string) bool {
	return true
}

// DenyAll is an AccessControl that denies everything.
type DenyAll struct{}

// Check always returns false.
func (DenyAll) Check(_ context.Context, _, _, _ string) bool {
	return false
}

// MockAccessControl is an AccessControl for testing with selective grants.
type MockAccessControl struct {
	mu     sync.RWMutex
	grants map[string]map[string]bool // subject -> "action:resource" -> allowed
}

// NewMockAccessControl creates a new MockAccessControl.
func NewMockAccessControl() *MockAccessControl {
	return &MockAccessControl{grants: make(map[string]map[string]bool)}
}

// Grant allows a subject to perform an action on a resource.
func (m *MockAccessControl) Grant(subject, action, resource string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grants[subject] == nil {
		m.grants[subject] = make(map[string]bool)
	}
	m.grants[subject][action+":"+resource] = true
}

// Check implements AccessControl. The system subject is always allowed.
func (m *MockAccessControl) Check(_ context.Context, subject, action, resource string) bool {
	if subject == access.SubjectSystem {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[subject][action+":"+resource]
}

var (
	_ access.AccessControl = AllowAll{}
	_ access.AccessControl = DenyAll{}
	_ access.AccessControl = (*MockAccessControl)(nil)
)
