// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/transaction"
)

// playerNamespace derives stable player IDs from console login names.
var playerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://holomush.dev/plotshop/players"))

// PlayerID returns the ID a console login name maps to. Names are case-insensitive.
func PlayerID(name string) uuid.UUID {
	return uuid.NewSHA1(playerNamespace, []byte(strings.ToLower(name)))
}

// Caller runs a function on the scheduler worker and waits for it.
// *scheduler.Scheduler satisfies it.
type Caller interface {
	Call(ctx context.Context, fn func(ctx context.Context) error) error
}

// syncWriter serializes writes from the console and notifiers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// console reads operator input and runs it as the logged-in player, or as the
// server when nobody is logged in.
type console struct {
	dispatcher *command.Dispatcher
	services   *command.Services
	worker     Caller
	players    *players.Memory
	world      string
	out        io.Writer

	actor transaction.Actor
}

func newConsole(d *command.Dispatcher, services *command.Services, worker Caller, dir *players.Memory, world string, out io.Writer) *console {
	return &console{
		dispatcher: d,
		services:   services,
		worker:     worker,
		players:    dir,
		world:      world,
		out:        out,
		actor:      transaction.System,
	}
}

// Run reads lines from in until EOF, quit, or ctx ends. It returns errQuit
// when the operator asked the server to stop.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("console read failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.handle(ctx, strings.TrimSpace(line)); err != nil {
				return err
			}
		}
	}
}

// errQuit ends the console and the server.
var errQuit = errors.New("console quit")

func (c *console) handle(ctx context.Context, line string) error {
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(word) {
	case "":
		return nil
	case "quit", "exit":
		c.logout()
		return errQuit
	case "login":
		c.login(rest)
	case "logout":
		c.logout()
		c.println("Logged out.")
	case "whoami":
		c.println(c.actor.Name)
	case "complete":
		c.complete(ctx, rest)
	default:
		c.dispatch(ctx, line)
	}
	return nil
}

func (c *console) login(name string) {
	if name == "" || strings.ContainsAny(name, " \t") {
		c.println("Usage: login <name>")
		return
	}
	c.logout()
	id := PlayerID(name)
	c.players.Join(id, name)
	c.actor = transaction.Actor{ID: id, Name: name, World: c.world}
	c.println("Logged in as " + name + ".")
	slog.Info("console login", "player", id.String(), "name", name)
}

func (c *console) logout() {
	if c.actor.IsSystem() {
		return
	}
	c.players.Quit(c.actor.ID)
	c.services.Selections.Clear(c.actor.ID)
	c.actor = transaction.System
}

func (c *console) execution() *command.Execution {
	return &command.Execution{Actor: c.actor, Output: c.out, Services: c.services}
}

func (c *console) dispatch(ctx context.Context, line string) {
	exec := c.execution()
	err := c.worker.Call(ctx, func(ctx context.Context) error {
		return c.dispatcher.Run(ctx, line, exec)
	})
	if err != nil {
		slog.Debug("console command failed", "input", line, "error", err)
	}
}

func (c *console) complete(ctx context.Context, partial string) {
	var candidates []string
	exec := c.execution()
	err := c.worker.Call(ctx, func(ctx context.Context) error {
		candidates = c.dispatcher.Complete(ctx, exec, partial)
		return nil
	})
	if err != nil {
		slog.Debug("console completion failed", "input", partial, "error", err)
		return
	}
	c.println(strings.Join(candidates, " "))
}

func (c *console) println(msg string) {
	if _, err := io.WriteString(c.out, msg+"\n"); err != nil {
		slog.Debug("console write failed", "error", err)
	}
}

// consoleNotifier shows notifications addressed to online players.
type consoleNotifier struct {
	templates notify.Templates
	players   players.Directory
	out       io.Writer
}

// Notify implements notify.Notifier.
func (n consoleNotifier) Notify(_ context.Context, player uuid.UUID, key string, tags map[string]string) {
	if !n.players.IsOnline(player) {
		return
	}
	msg := fmt.Sprintf("[to %s] %s\n", n.players.Name(player), n.templates.Render(key, tags))
	if _, err := io.WriteString(n.out, msg); err != nil {
		slog.Debug("console notify failed", "error", err)
	}
}
