// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/command/handlers"
	"github.com/holomush/plotshop/internal/economy"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/scheduler"
	"github.com/holomush/plotshop/internal/spatial"
	"github.com/holomush/plotshop/internal/stack"
	"github.com/holomush/plotshop/internal/transaction"
	"github.com/holomush/plotshop/pkg/errutil"
)

const world = "overworld"

type harness struct {
	now        time.Time
	registry   *region.Registry
	ledger     *economy.Memory
	players    *players.Memory
	access     *access.StaticAccessControl
	engine     *transaction.Engine
	sched      *scheduler.Scheduler
	services   *command.Services
	dispatcher *command.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		registry: region.NewRegistry(region.NewSettings(map[string]any{
			region.KeyBuyPrice:       100.0,
			region.KeyBuyMoneyBack:   50.0,
			region.KeyRentPrice:      10.0,
			region.KeyRentDuration:   "24h",
			region.KeyRentMoneyBack:  100.0,
			region.KeyRentMaxExtends: 1,
		})),
		ledger: economy.NewMemory(),
		sched:  scheduler.New(time.Millisecond),
	}
	clock := func() time.Time { return h.now }
	h.players = players.NewMemory(clock)
	var err error
	h.access, err = access.NewStaticAccessControl(nil, access.DefaultRole)
	require.NoError(t, err)
	h.engine, err = transaction.NewEngine(transaction.Config{
		Registry: h.registry,
		Spatial:  spatial.NewMemory(),
		Ledger:   h.ledger,
		Players:  h.players,
		Access:   h.access,
		Clock:    clock,
	})
	require.NoError(t, err)

	reg := command.NewRegistry()
	handlers.RegisterAll(reg)
	h.dispatcher, err = command.NewDispatcher(reg, h.access)
	require.NoError(t, err)
	h.services = &command.Services{
		Engine:     h.engine,
		Stack:      stack.NewGenerator(stack.DefaultConfig(), h.engine, h.sched, h.players, &notify.Recorder{}),
		Players:    h.players,
		Selections: command.NewSelections(),
		Commands:   reg,
	}
	return h
}

func (h *harness) player(name string, balance float64) transaction.Actor {
	id := uuid.New()
	h.players.Join(id, name)
	h.ledger.Set(id, world, balance)
	return transaction.Actor{ID: id, Name: name, World: world}
}

func (h *harness) region(t *testing.T, name string, kind region.Kind, offset int) {
	t.Helper()
	_, err := h.engine.Create(context.Background(), transaction.System, transaction.CreateRequest{
		Name:   name,
		World:  world,
		Kind:   kind,
		Cuboid: region.NewCuboid(region.Point{X: offset}, region.Point{X: offset + 4, Y: 4, Z: 4}),
	})
	require.NoError(t, err)
}

// run dispatches input as actor and returns the output, including the
// player message of a failure.
func (h *harness) run(actor transaction.Actor, input string) (string, error) {
	var buf bytes.Buffer
	exec := &command.Execution{Actor: actor, Output: &buf, Services: h.services}
	err := h.dispatcher.Run(context.Background(), input, exec)
	return buf.String(), err
}

func (h *harness) complete(actor transaction.Actor, input string) []string {
	exec := &command.Execution{Actor: actor, Output: &bytes.Buffer{}, Services: h.services}
	return h.dispatcher.Complete(context.Background(), exec, input)
}

func (h *harness) balance(t *testing.T, actor transaction.Actor) float64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), actor.ID, world)
	require.NoError(t, err)
	return b
}

func TestBuyAndSell(t *testing.T) {
	h := newHarness(t)
	h.region(t, "plot01", region.KindBuy, 0)
	alice := h.player("alice", 500)

	out, err := h.run(alice, "buy PLOT01")
	require.NoError(t, err)
	assert.Equal(t, "You now own plot01.\n", out)
	assert.InDelta(t, 400, h.balance(t, alice), 0.001)

	r, _ := h.registry.Get("plot01")
	assert.True(t, r.IsOwnedBy(alice.ID))

	out, err = h.run(alice, "sell plot01")
	require.NoError(t, err)
	assert.Equal(t, "plot01 has been sold.\n", out)
	assert.False(t, r.IsOwned())
	assert.InDelta(t, 450, h.balance(t, alice), 0.001)
}

func TestBuy_Errors(t *testing.T) {
	h := newHarness(t)
	h.region(t, "plot01", region.KindBuy, 0)
	alice := h.player("alice", 50)

	out, err := h.run(alice, "buy")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	assert.Equal(t, "Usage: buy <region>\n", out)

	_, err = h.run(alice, "buy nowhere")
	errutil.AssertErrorCode(t, err, transaction.CodeRegionNotFound)

	out, err = h.run(alice, "buy plot01")
	errutil.AssertErrorCode(t, err, transaction.CodeInsufficientFunds)
	assert.NotEmpty(t, out)
	assert.NotEqual(t, "Something went wrong. Try again.\n", out)
}

func TestRentExtendAndUnrent(t *testing.T) {
	h := newHarness(t)
	h.region(t, "shop01", region.KindRent, 0)
	bob := h.player("bob", 100)

	out, err := h.run(bob, "rent shop01")
	require.NoError(t, err)
	assert.Equal(t, "You rent shop01 until 2026-05-02 12:00 UTC.\n", out)

	out, err = h.run(bob, "rent shop01")
	require.NoError(t, err)
	assert.Equal(t, "You rent shop01 until 2026-05-03 12:00 UTC.\n", out)
	assert.InDelta(t, 80, h.balance(t, bob), 0.001)

	_, err = h.run(bob, "rent shop01")
	errutil.AssertErrorCode(t, err, transaction.CodeExtendLimit)

	out, err = h.run(bob, "unrent shop01")
	require.NoError(t, err)
	assert.Equal(t, "shop01 has been unrented.\n", out)
	assert.InDelta(t, 100, h.balance(t, bob), 0.001, "full refund of unused time")
}

func TestResellAndStopResell(t *testing.T) {
	h := newHarness(t)
	h.region(t, "plot01", region.KindBuy, 0)
	alice := h.player("alice", 500)
	bob := h.player("bob", 500)
	_, err := h.run(alice, "buy plot01")
	require.NoError(t, err)

	_, err = h.run(alice, "resell lots plot01")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	errutil.AssertErrorContext(t, err, "message", "lots is not a valid price.")

	out, err := h.run(alice, "resell 150 plot01")
	require.NoError(t, err)
	assert.Equal(t, "plot01 is now for resale at 150.00.\n", out)
	assert.Equal(t, []string{"plot01"}, h.complete(bob, "buy "))

	out, err = h.run(alice, "stopresell plot01")
	require.NoError(t, err)
	assert.Equal(t, "plot01 is no longer for resale.\n", out)
	assert.Empty(t, h.complete(bob, "buy "))

	_, err = h.run(alice, "resell 150 plot01")
	require.NoError(t, err)
	_, err = h.run(bob, "buy plot01")
	require.NoError(t, err)
	r, _ := h.registry.Get("plot01")
	assert.True(t, r.IsOwnedBy(bob.ID))
	assert.InDelta(t, 550, h.balance(t, alice), 0.001)
}

func TestInfo(t *testing.T) {
	h := newHarness(t)
	h.region(t, "plot01", region.KindBuy, 0)
	h.region(t, "shop01", region.KindRent, 10)
	alice := h.player("alice", 500)

	out, err := h.run(alice, "info")
	require.NoError(t, err)
	assert.Equal(t, "You don't own any regions.\n", out)

	_, err = h.run(alice, "buy plot01")
	require.NoError(t, err)
	_, err = h.run(alice, "rent shop01")
	require.NoError(t, err)

	out, err = h.run(alice, "info")
	require.NoError(t, err)
	assert.Equal(t, "Your regions (2):\n  plot01 (buy, overworld)\n  shop01 (rent, overworld)\n", out)

	out, err = h.run(alice, "info shop01")
	require.NoError(t, err)
	assert.Contains(t, out, "shop01 [rent, rented]")
	assert.Contains(t, out, "Price: 10.00 per 1d")
	assert.Contains(t, out, "Owner: alice")
	assert.Contains(t, out, "Extended: 0/1")

	_, err = h.run(alice, "info nowhere")
	errutil.AssertErrorCode(t, err, transaction.CodeRegionNotFound)
}

func TestStack(t *testing.T) {
	h := newHarness(t)
	carol := h.player("carol", 0)
	ctx := context.Background()

	out, err := h.run(carol, "stack 3 2 plot# buy market")
	errutil.AssertErrorCode(t, err, command.CodePermissionDenied)
	assert.Equal(t, "You don't have permission to do that.\n", out)

	require.NoError(t, h.access.AssignRole(carol.Subject(), "landlord"))
	_, err = h.run(carol, "face 45 0")
	require.NoError(t, err)
	_, err = h.run(carol, "stack 3 2 plot# buy market")
	errutil.AssertErrorCode(t, err, stack.CodeNoSelection)

	_, err = h.run(carol, "select 0 64 0 9 70 9")
	require.NoError(t, err)
	_, err = h.run(carol, "face 45 0")
	require.NoError(t, err)
	_, err = h.run(carol, "stack 3 2 plot# buy market")
	errutil.AssertErrorCode(t, err, stack.CodeUnclearDirection)

	_, err = h.run(carol, "face 270 0")
	require.NoError(t, err)
	out, err = h.run(carol, "stack 3 2 plot# buy market")
	require.NoError(t, err)
	assert.Contains(t, out, "Stacking 3 buy regions east")

	for i := 0; h.sched.Pending() > 0; i++ {
		require.Less(t, i, 100)
		h.sched.Step(ctx)
	}
	assert.Equal(t, []string{"plot01", "plot02", "plot03"}, h.registry.Names())
	g, ok := h.registry.Group("market")
	require.True(t, ok)
	assert.Equal(t, []string{"plot01", "plot02", "plot03"}, g.Members())
}

func TestStack_ArgumentErrors(t *testing.T) {
	h := newHarness(t)
	carol := h.player("carol", 0)
	require.NoError(t, h.access.AssignRole(carol.Subject(), "landlord"))

	tests := []struct {
		input string
		code  string
	}{
		{"stack 3 2 plot#", command.CodeInvalidArgs},
		{"stack x 2 plot# buy", command.CodeInvalidArgs},
		{"stack 0 2 plot# buy", command.CodeInvalidArgs},
		{"stack 3 y plot# buy", command.CodeInvalidArgs},
		{"stack 3 2 plot# lease", region.CodeInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := h.run(carol, tt.input)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
	assert.Zero(t, h.sched.Pending())
}

func TestDeleteRegion(t *testing.T) {
	h := newHarness(t)
	h.region(t, "plot01", region.KindBuy, 0)
	alice := h.player("alice", 0)
	admin := h.player("admin", 0)
	require.NoError(t, h.access.AssignRole(admin.Subject(), "admin"))

	_, err := h.run(alice, "delregion plot01")
	errutil.AssertErrorCode(t, err, command.CodePermissionDenied)

	out, err := h.run(admin, "delregion PLOT01")
	require.NoError(t, err)
	assert.Equal(t, "plot01 has been deleted.\n", out)
	assert.Zero(t, h.registry.Len())
}

func TestHelp(t *testing.T) {
	h := newHarness(t)
	alice := h.player("alice", 0)

	out, err := h.run(alice, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "buy <region>")
	assert.Contains(t, out, "stack <amount> <gap> <name> <rent|buy> [group]")

	out, err = h.run(alice, "help unrent")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: unrent <region>")
	assert.Contains(t, out, "refunds")

	_, err = h.run(alice, "help fly")
	errutil.AssertErrorCode(t, err, command.CodeUnknownCommand)
}

func TestSelectionCommands(t *testing.T) {
	h := newHarness(t)
	alice := h.player("alice", 0)

	out, err := h.run(alice, "tp 1 65 2")
	require.NoError(t, err)
	assert.Equal(t, "Moved to 1,65,2 in overworld.\n", out)
	sel := h.services.Selections.Get(alice.ID)
	require.NotNil(t, sel.Position)
	assert.Equal(t, region.Point{X: 1, Y: 65, Z: 2}, *sel.Position)

	out, err = h.run(alice, "select 5 5 5 0 0 0 nether")
	require.NoError(t, err)
	assert.Equal(t, "Selected (0,0,0)-(5,5,5) in nether.\n", out)

	_, err = h.run(alice, "select 1 2 3")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	_, err = h.run(alice, "tp a b c")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	_, err = h.run(alice, "face up 0")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	_, err = h.run(alice, "face NaN 0")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
	_, err = h.run(alice, "face 0 -Inf")
	errutil.AssertErrorCode(t, err, command.CodeInvalidArgs)
}

func TestCompletion(t *testing.T) {
	h := newHarness(t)
	h.region(t, "plot01", region.KindBuy, 0)
	h.region(t, "plot02", region.KindBuy, 10)
	h.region(t, "shop01", region.KindRent, 20)
	alice := h.player("alice", 500)
	carol := h.player("carol", 0)
	require.NoError(t, h.access.AssignRole(carol.Subject(), "landlord"))
	_, err := h.run(alice, "buy plot01")
	require.NoError(t, err)
	h.engine.EnsureGroup("market")

	assert.Equal(t, []string{"plot02"}, h.complete(alice, "buy p"))
	assert.Equal(t, []string{"shop01"}, h.complete(alice, "rent "))
	assert.Equal(t, []string{"plot01"}, h.complete(alice, "sell "))
	assert.Empty(t, h.complete(alice, "unrent "))
	assert.Equal(t, []string{"plot01"}, h.complete(alice, "resell 100 "))
	assert.Empty(t, h.complete(alice, "resell "))
	assert.Equal(t, []string{"plot01", "plot02", "shop01"}, h.complete(alice, "info "))
	assert.Equal(t, []string{"sell", "select"}, h.complete(alice, "se"))
	assert.Empty(t, h.complete(alice, "stack 1 1 p# "), "stack needs the landlord role")

	assert.Equal(t, []string{"buy", "rent"}, h.complete(carol, "stack 1 1 p# "))
	assert.Equal(t, []string{"market"}, h.complete(carol, "stack 1 1 p# buy m"))
	assert.Equal(t, []string{"stack", "stopresell"}, h.complete(carol, "st"))
}
