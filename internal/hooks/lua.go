// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/holomush/plotshop/internal/region"
)

// DefaultTimeout bounds a single hook script.
const DefaultTimeout = 250 * time.Millisecond

// Tagger renders a region as replacement tags.
type Tagger interface {
	Tags(r *region.Region, money region.MoneyFormatter) map[string]string
}

type compiled struct {
	before, after *lua.FunctionProto
}

// LuaRunner runs Lua scripts in a fresh sandbox per invocation.
//
// Scripts see a read-only-by-convention table "region" holding the replacement
// tags, the strings "event" and "phase", and a "log" function.
type LuaRunner struct {
	tagger  Tagger
	money   region.MoneyFormatter
	timeout time.Duration
	scripts map[region.Event]compiled
}

var _ Runner = (*LuaRunner)(nil)

// LuaOption configures a LuaRunner.
type LuaOption func(*LuaRunner)

// WithTimeout bounds each script run.
func WithTimeout(d time.Duration) LuaOption {
	return func(r *LuaRunner) { r.timeout = d }
}

// WithMoneyFormatter sets how prices appear in the region table.
func WithMoneyFormatter(f region.MoneyFormatter) LuaOption {
	return func(r *LuaRunner) { r.money = f }
}

// NewLuaRunner compiles scripts up front so syntax errors surface at startup.
func NewLuaRunner(tagger Tagger, scripts map[region.Event]Scripts, opts ...LuaOption) (*LuaRunner, error) {
	r := &LuaRunner{
		tagger:  tagger,
		timeout: DefaultTimeout,
		scripts: make(map[region.Event]compiled, len(scripts)),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, ev := range slices.Sorted(maps.Keys(scripts)) {
		s := scripts[ev]
		var c compiled
		var err error
		if c.before, err = compile(ev, "before", s.Before); err != nil {
			return nil, err
		}
		if c.after, err = compile(ev, "after", s.After); err != nil {
			return nil, err
		}
		r.scripts[ev] = c
	}
	return r, nil
}

func compile(ev region.Event, phase, src string) (*lua.FunctionProto, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	name := string(ev) + "." + phase
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, oops.Code("HOOK_SYNTAX").With("event", string(ev)).With("phase", phase).Wrap(err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, oops.Code("HOOK_COMPILE").With("event", string(ev)).With("phase", phase).Wrap(err)
	}
	return proto, nil
}

func phaseName(before bool) string {
	if before {
		return "before"
	}
	return "after"
}

// Run executes the script for ev, if any. Errors are logged and counted.
func (r *LuaRunner) Run(ctx context.Context, reg *region.Region, ev region.Event, before bool) {
	c, ok := r.scripts[ev]
	if !ok {
		return
	}
	proto := c.after
	if before {
		proto = c.before
	}
	if proto == nil {
		return
	}
	phase := phaseName(before)

	if err := r.exec(ctx, proto, reg, ev, phase); err != nil {
		RecordFailure(ev, phase)
		slog.WarnContext(ctx, "hook script failed",
			"region", reg.Name,
			"event", string(ev),
			"phase", phase,
			"error", err)
	}
}

func (r *LuaRunner) exec(ctx context.Context, proto *lua.FunctionProto, reg *region.Region, ev region.Event, phase string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	L, err := newSandbox(ctx)
	if err != nil {
		return err
	}
	defer L.Close()

	tbl := L.NewTable()
	for k, v := range r.tagger.Tags(reg, r.money) {
		L.SetField(tbl, k, lua.LString(v))
	}
	L.SetGlobal("region", tbl)
	L.SetGlobal("event", lua.LString(ev))
	L.SetGlobal("phase", lua.LString(phase))
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		slog.InfoContext(ctx, "hook", "region", reg.Name, "event", string(ev), "message", L.CheckString(1))
		return 0
	}))

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return oops.Code("HOOK_FAILED").With("event", string(ev)).With("phase", phase).Wrap(err)
	}
	return nil
}
