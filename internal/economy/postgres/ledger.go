// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres stores economy balances in PostgreSQL with an append-only journal.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/plotshop/internal/economy"
)

// DB is the subset of *pgxpool.Pool the ledger needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Journal entry kinds.
const (
	entryWithdraw = "withdraw"
	entryDeposit  = "deposit"
)

// Ledger implements economy.Ledger on the economy_accounts and economy_journal tables.
type Ledger struct {
	db       DB
	perWorld bool
}

var _ economy.Ledger = (*Ledger)(nil)

// NewLedger creates a ledger. When perWorld is false every world shares one account.
func NewLedger(db DB, perWorld bool) *Ledger {
	return &Ledger{db: db, perWorld: perWorld}
}

func (l *Ledger) scope(world string) string {
	if l.perWorld {
		return world
	}
	return ""
}

// Balance returns the stored balance, or 0 for unknown accounts.
func (l *Ledger) Balance(ctx context.Context, player uuid.UUID, world string) (float64, error) {
	var balance float64
	err := l.db.QueryRow(ctx,
		`SELECT balance FROM economy_accounts WHERE player = $1 AND scope = $2`,
		player.String(), l.scope(world)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, oops.With("operation", "get balance").With("player", player.String()).Wrap(err)
	}
	return balance, nil
}

// Withdraw debits amount. The balance column carries a non-negative check, so an
// overdraft surfaces as a check violation.
func (l *Ledger) Withdraw(ctx context.Context, player uuid.UUID, world string, amount float64) error {
	if err := economy.ValidateAmount(amount); err != nil {
		return err
	}
	return l.apply(ctx, player, world, entryWithdraw, amount, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE economy_accounts SET balance = balance - $3, updated_at = now()
			 WHERE player = $1 AND scope = $2`,
			player.String(), l.scope(world), amount)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation {
				return insufficient(player, amount)
			}
			return oops.With("operation", "debit account").Wrap(err)
		}
		if tag.RowsAffected() == 0 {
			if amount == 0 {
				return nil
			}
			return insufficient(player, amount)
		}
		return nil
	})
}

// Deposit credits amount, creating the account if needed.
func (l *Ledger) Deposit(ctx context.Context, player uuid.UUID, world string, amount float64) error {
	if err := economy.ValidateAmount(amount); err != nil {
		return err
	}
	return l.apply(ctx, player, world, entryDeposit, amount, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO economy_accounts (player, scope, balance) VALUES ($1, $2, $3)
			 ON CONFLICT (player, scope) DO UPDATE
			 SET balance = economy_accounts.balance + EXCLUDED.balance, updated_at = now()`,
			player.String(), l.scope(world), amount)
		if err != nil {
			return oops.With("operation", "credit account").Wrap(err)
		}
		return nil
	})
}

// apply runs change and the matching journal insert in one transaction.
func (l *Ledger) apply(ctx context.Context, player uuid.UUID, world, kind string, amount float64, change func(pgx.Tx) error) (err error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return oops.With("operation", "begin ledger transaction").Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // original error takes precedence
		}
	}()

	if err = change(tx); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO economy_journal (id, player, scope, kind, amount) VALUES ($1, $2, $3, $4, $5)`,
		ulid.Make().String(), player.String(), l.scope(world), kind, amount); err != nil {
		return oops.With("operation", "append journal").Wrap(err)
	}
	if err = tx.Commit(ctx); err != nil {
		return oops.With("operation", "commit ledger transaction").Wrap(err)
	}
	return nil
}

func insufficient(player uuid.UUID, amount float64) error {
	return oops.Code(economy.CodeInsufficientFunds).
		With("player", player.String()).
		With("amount", amount).
		Wrap(economy.ErrInsufficientFunds)
}
