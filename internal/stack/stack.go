// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package stack generates rows of identical regions from one selection.
//
// A stack runs as a Job stepped by the scheduler: every tick it creates a
// bounded number of regions until all candidates have been processed.
package stack

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/plotshop/internal/logging"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/scheduler"
	"github.com/holomush/plotshop/internal/transaction"
	"github.com/holomush/plotshop/pkg/errutil"
)

// Error codes for rejected stack requests.
const (
	CodeInvalidAmount    = "STACK_INVALID_AMOUNT"
	CodeInvalidTemplate  = "STACK_INVALID_TEMPLATE"
	CodeNoSelection      = "STACK_NO_SELECTION"
	CodeUnclearDirection = "STACK_UNCLEAR_DIRECTION"
)

// Placeholder is replaced by the sequence number in name templates.
const Placeholder = "#"

// Config controls stack generation.
type Config struct {
	// RegionsPerTick bounds how many candidates one tick processes.
	RegionsPerTick int `koanf:"regions-per-tick" json:"regions-per-tick"`
	// NumberLength is the minimum width of the zero-padded sequence number.
	NumberLength int `koanf:"number-length" json:"number-length"`
	// Floor and Ceiling are the lowest and highest Y a region may occupy.
	Floor   int `koanf:"world-floor" json:"world-floor"`
	Ceiling int `koanf:"world-ceiling" json:"world-ceiling"`
}

// DefaultConfig returns the default stack settings.
func DefaultConfig() Config {
	return Config{RegionsPerTick: 5, NumberLength: 2, Floor: 0, Ceiling: 256}
}

// Request describes one stack operation.
type Request struct {
	Initiator uuid.UUID
	World     string
	Selection *region.Cuboid
	Facing    Facing
	Amount    int
	Gap       int
	Template  string
	Kind      region.Kind
	Group     string
}

// FormatName substitutes counter, zero-padded to width, into template. Without
// a placeholder the number is appended.
func FormatName(template string, counter, width int) string {
	n := strconv.Itoa(counter)
	if pad := width - len(n); pad > 0 {
		n = strings.Repeat("0", pad) + n
	}
	if strings.Contains(template, Placeholder) {
		return strings.ReplaceAll(template, Placeholder, n)
	}
	return template + n
}

func invalid(code, message string) oops.OopsErrorBuilder {
	return oops.In("stack").Code(code).With("message", message)
}

// ErrNoSelection reports a stack attempt without a selection.
func ErrNoSelection() error {
	return invalid(CodeNoSelection, "Select a region first.").
		Errorf("no selection")
}

// Validate checks the request before any region is created.
func (r Request) Validate(cfg Config) error {
	if r.Amount <= 0 {
		return invalid(CodeInvalidAmount, fmt.Sprintf("%d is not a valid amount.", r.Amount)).
			With("amount", r.Amount).
			Errorf("amount must be positive, got %d", r.Amount)
	}
	if r.Selection == nil {
		return ErrNoSelection()
	}
	if _, err := region.ParseKind(string(r.Kind)); err != nil {
		return err
	}
	sample := FormatName(r.Template, r.Amount, cfg.NumberLength)
	if err := region.ValidateName(sample); err != nil || r.Template == "" {
		return invalid(CodeInvalidTemplate, fmt.Sprintf("%q does not make valid region names.", r.Template)).
			With("template", r.Template).
			Errorf("template %q produces invalid name %q", r.Template, sample)
	}
	if _, ok := facingNames[r.Facing]; !ok {
		return invalid(CodeUnclearDirection, "Face one direction clearly.").
			With("facing", int(r.Facing)).
			Errorf("invalid facing %d", r.Facing)
	}
	return nil
}

// Creator creates regions and reports name availability.
// *transaction.Engine satisfies it.
type Creator interface {
	NameAvailable(world, name string) bool
	Create(ctx context.Context, actor transaction.Actor, req transaction.CreateRequest) (*region.Region, error)
	EnsureGroup(name string)
}

// Scheduler runs recurring tasks.
type Scheduler interface {
	ScheduleRecurring(name string, interval uint64, task scheduler.Task) (cancel func())
}

// Generator starts stack jobs.
type Generator struct {
	cfg      Config
	creator  Creator
	sched    Scheduler
	players  players.Directory
	notifier notify.Notifier
}

// NewGenerator creates a Generator. Non-positive RegionsPerTick becomes 1.
func NewGenerator(cfg Config, creator Creator, sched Scheduler, dir players.Directory, notifier notify.Notifier) *Generator {
	if cfg.RegionsPerTick <= 0 {
		cfg.RegionsPerTick = 1
	}
	return &Generator{cfg: cfg, creator: creator, sched: sched, players: dir, notifier: notifier}
}

// Start validates req and schedules a job for it. It must run on the
// scheduler worker because it may create the target group.
func (g *Generator) Start(ctx context.Context, req Request) (*Job, error) {
	job, err := g.NewJob(req)
	if err != nil {
		return nil, err
	}
	if req.Group != "" {
		g.creator.EnsureGroup(req.Group)
	}
	g.sched.ScheduleRecurring("stack-"+job.ID.String(), 1, job)
	slog.InfoContext(ctx, "stack started",
		"job", job.ID.String(),
		"amount", req.Amount,
		"template", req.Template,
		"kind", string(req.Kind),
		"facing", req.Facing.String(),
		"shift", job.shift.String(),
	)
	return job, nil
}

// NewJob validates req and returns an unscheduled job.
func (g *Generator) NewJob(req Request) (*Job, error) {
	if err := req.Validate(g.cfg); err != nil {
		return nil, err
	}
	kind, _ := region.ParseKind(string(req.Kind))
	req.Kind = kind
	return &Job{
		ID:      ulid.Make(),
		gen:     g,
		req:     req,
		shift:   ShiftVector(*req.Selection, req.Facing, req.Gap),
		counter: 1,
	}, nil
}

// Tally counts the outcome of processed candidates.
type Tally struct {
	Created int
	TooLow  int
	TooHigh int
	Failed  int
}

// Processed returns the number of candidates handled so far.
func (t Tally) Processed() int {
	return t.Created + t.TooLow + t.TooHigh + t.Failed
}

// Job is a resumable stack run. Its only mutable state is the candidate index,
// the name counter and the tally. It implements scheduler.Task.
type Job struct {
	ID ulid.ULID

	gen   *Generator
	req   Request
	shift region.Point

	index   int
	counter int
	tally   Tally
	names   []string
}

// Tally returns the counts so far.
func (j *Job) Tally() Tally {
	return j.tally
}

// Names returns the names of the created regions in creation order.
func (j *Job) Names() []string {
	return j.names
}

// Finished reports whether every candidate has been processed.
func (j *Job) Finished() bool {
	return j.index >= j.req.Amount
}

// Run processes up to RegionsPerTick candidates and reports when finished.
func (j *Job) Run(ctx context.Context) scheduler.Status {
	ctx = logging.With(ctx, "job", j.ID.String())
	for range j.gen.cfg.RegionsPerTick {
		if j.Finished() {
			break
		}
		j.step(ctx)
	}
	if !j.Finished() {
		return scheduler.Continue
	}
	j.finish(ctx)
	return scheduler.Done
}

func (j *Job) nextName() string {
	for {
		name := FormatName(j.req.Template, j.counter, j.gen.cfg.NumberLength)
		if j.gen.creator.NameAvailable(j.req.World, name) {
			return name
		}
		j.counter++
	}
}

// step handles candidate j.index. Every candidate consumes a sequence number,
// including those skipped for being out of bounds.
func (j *Job) step(ctx context.Context) {
	i := j.index
	j.index++
	name := j.nextName()
	j.counter++

	cuboid := j.req.Selection.Shift(j.shift.Scale(i))
	switch {
	case cuboid.Min.Y < j.gen.cfg.Floor:
		j.tally.TooLow++
		RecordRegion(OutcomeTooLow)
		return
	case cuboid.Max.Y > j.gen.cfg.Ceiling:
		j.tally.TooHigh++
		RecordRegion(OutcomeTooHigh)
		return
	}

	_, err := j.gen.creator.Create(ctx, transaction.System, transaction.CreateRequest{
		Name:   name,
		World:  j.req.World,
		Kind:   j.req.Kind,
		Cuboid: cuboid,
		Group:  j.req.Group,
	})
	if err != nil {
		j.tally.Failed++
		RecordRegion(OutcomeFailed)
		errutil.LogWarn(ctx, slog.Default(), "stack candidate failed", err, "candidate", name)
		return
	}
	j.tally.Created++
	j.names = append(j.names, name)
	RecordRegion(OutcomeCreated)
}

func (j *Job) finish(ctx context.Context) {
	slog.InfoContext(ctx, "stack finished",
		"created", j.tally.Created,
		"too_low", j.tally.TooLow,
		"too_high", j.tally.TooHigh,
		"failed", j.tally.Failed,
	)
	if j.req.Initiator == uuid.Nil || j.gen.notifier == nil || j.gen.players == nil {
		return
	}
	if !j.gen.players.IsOnline(j.req.Initiator) {
		return
	}
	j.gen.notifier.Notify(ctx, j.req.Initiator, notify.KeyStackComplete, map[string]string{
		"amount":  strconv.Itoa(j.req.Amount),
		"created": strconv.Itoa(j.tally.Created),
		"toolow":  strconv.Itoa(j.tally.TooLow),
		"toohigh": strconv.Itoa(j.tally.TooHigh),
		"failed":  strconv.Itoa(j.tally.Failed),
	})
}
