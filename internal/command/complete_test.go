// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/access/accesstest"
	"github.com/holomush/plotshop/internal/command"
)

func completionDispatcher(t *testing.T) (*command.Dispatcher, *accesstest.MockAccessControl) {
	t.Helper()
	reg := command.NewRegistry()
	regions := func(_ context.Context, _ *command.Execution, args []string) []string {
		if len(args) != 1 {
			return nil
		}
		return []string{"Plot02", "plot01", "shop01", "plot01"}
	}
	for _, name := range []string{"buy", "rent", "resell", "stack"} {
		require.NoError(t, reg.Register(command.Entry{Name: name, Handler: noop, Complete: regions}))
	}
	require.NoError(t, reg.Register(command.Entry{Name: "help", Handler: noop}))
	ac := accesstest.NewMockAccessControl()
	d, err := command.NewDispatcher(reg, ac)
	require.NoError(t, err)
	return d, ac
}

func TestComplete_CommandNamesRespectPermissions(t *testing.T) {
	d, ac := completionDispatcher(t)
	alice := player("alice")
	for _, name := range []string{"buy", "rent", "resell", "help"} {
		ac.Grant(alice.Subject(), access.ActionExecute, "plotshop."+name)
	}
	ctx := context.Background()

	assert.Equal(t, []string{"rent", "resell"}, d.Complete(ctx, execFor(alice), "re"))
	assert.Equal(t, []string{"buy", "help", "rent", "resell"}, d.Complete(ctx, execFor(alice), ""))
	assert.Empty(t, d.Complete(ctx, execFor(alice), "st"))
}

func TestComplete_Arguments(t *testing.T) {
	d, ac := completionDispatcher(t)
	alice := player("alice")
	ac.Grant(alice.Subject(), access.ActionExecute, "plotshop.buy")
	ctx := context.Background()

	assert.Equal(t, []string{"Plot02", "plot01"}, d.Complete(ctx, execFor(alice), "buy PL"))
	assert.Equal(t, []string{"Plot02", "plot01", "shop01"}, d.Complete(ctx, execFor(alice), "/buy "))
	assert.Empty(t, d.Complete(ctx, execFor(alice), "buy plot01 "))
	assert.Empty(t, d.Complete(ctx, execFor(alice), "stack p"), "no permission")
	assert.Empty(t, d.Complete(ctx, execFor(alice), "help b"), "no completer")
	assert.Empty(t, d.Complete(ctx, execFor(alice), "fly p"))
}

func TestFilterPrefix(t *testing.T) {
	assert.Equal(t, []string{"buy"}, command.FilterPrefix([]string{"rent", "buy", "buy"}, "B"))
	assert.Empty(t, command.FilterPrefix(nil, "x"))
}
