// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package economy defines the ledger that transactions charge and pay out through.
package economy

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Error codes.
const (
	CodeInsufficientFunds = "LEDGER_INSUFFICIENT_FUNDS"
	CodeInvalidAmount     = "LEDGER_INVALID_AMOUNT"
)

// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount is returned for negative or non-finite amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Ledger moves money for players. The world scopes per-world economies.
type Ledger interface {
	Balance(ctx context.Context, player uuid.UUID, world string) (float64, error)
	Withdraw(ctx context.Context, player uuid.UUID, world string, amount float64) error
	Deposit(ctx context.Context, player uuid.UUID, world string, amount float64) error
}

// ValidateAmount rejects negative and non-finite amounts.
func ValidateAmount(amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return oops.Code(CodeInvalidAmount).With("amount", amount).Wrap(ErrInvalidAmount)
	}
	return nil
}

type account struct {
	player uuid.UUID
	world  string
}

// Memory is an in-memory Ledger. Accounts are shared across worlds unless
// PerWorld is set.
type Memory struct {
	mu       sync.Mutex
	balances map[account]float64
	starting float64
	perWorld bool
}

var _ Ledger = (*Memory)(nil)

// MemoryOption configures a Memory ledger.
type MemoryOption func(*Memory)

// WithStartingBalance sets the balance of accounts seen for the first time.
func WithStartingBalance(amount float64) MemoryOption {
	return func(m *Memory) { m.starting = amount }
}

// WithPerWorldAccounts keeps a separate balance per world.
func WithPerWorldAccounts() MemoryOption {
	return func(m *Memory) { m.perWorld = true }
}

// NewMemory creates an empty in-memory ledger.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{balances: make(map[account]float64)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) key(player uuid.UUID, world string) account {
	if !m.perWorld {
		world = ""
	}
	return account{player: player, world: world}
}

func (m *Memory) balanceLocked(k account) float64 {
	b, ok := m.balances[k]
	if !ok {
		return m.starting
	}
	return b
}

// Set overwrites a balance.
func (m *Memory) Set(player uuid.UUID, world string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[m.key(player, world)] = amount
}

// Balance returns the current balance.
func (m *Memory) Balance(_ context.Context, player uuid.UUID, world string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(m.key(player, world)), nil
}

// Withdraw removes amount from the balance.
func (m *Memory) Withdraw(_ context.Context, player uuid.UUID, world string, amount float64) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(player, world)
	b := m.balanceLocked(k)
	if b < amount {
		return oops.Code(CodeInsufficientFunds).
			With("player", player.String()).
			With("balance", b).
			With("amount", amount).
			Wrap(ErrInsufficientFunds)
	}
	m.balances[k] = b - amount
	return nil
}

// Deposit adds amount to the balance.
func (m *Memory) Deposit(_ context.Context, player uuid.UUID, world string, amount float64) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(player, world)
	m.balances[k] = m.balanceLocked(k) + amount
	return nil
}
