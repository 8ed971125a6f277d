// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers keyed messages to players.
package notify

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Message keys sent by the engine.
const (
	KeyBuySuccess       = "buy-success"
	KeyBuySuccessResale = "buy-successResale"
	KeyBuySuccessSeller = "buy-successSeller"
	KeyRentSuccess      = "rent-success"
	KeyRentExtended     = "rent-extended"
	KeySellSuccess      = "sell-success"
	KeyUnrentSuccess    = "unrent-success"
	KeyResellEnabled    = "resell-enabled"
	KeyResellDisabled   = "resell-disabled"
	KeyRentExpireWarn   = "rent-expireWarning"
	KeyRentExpired      = "rent-expired"
	KeyInactiveSold     = "sell-inactive"
	KeyInactiveUnrented = "unrent-inactive"
	KeyStackComplete    = "stack-complete"
)

// Notifier sends a message identified by key, rendered with tags, to a player.
type Notifier interface {
	Notify(ctx context.Context, player uuid.UUID, key string, tags map[string]string)
}

// Templates maps message keys to text with %tag% placeholders.
type Templates map[string]string

// DefaultTemplates are the built-in English messages.
var DefaultTemplates = Templates{
	KeyBuySuccess:       "You bought %region% for %price%.",
	KeyBuySuccessResale: "You bought %region% from %seller% for %resellprice%.",
	KeyBuySuccessSeller: "%buyer% bought your region %region% for %resellprice%.",
	KeyRentSuccess:      "You rented %region% for %price% until %until%.",
	KeyRentExtended:     "You extended your rent of %region% until %until%.",
	KeySellSuccess:      "%region% has been sold.",
	KeyUnrentSuccess:    "%region% has been unrented.",
	KeyResellEnabled:    "%region% is now for resale at %resellprice%.",
	KeyResellDisabled:   "%region% is no longer for resale.",
	KeyRentExpireWarn:   "Your rent of %region% expires at %until%.",
	KeyRentExpired:      "Your rent of %region% has expired.",
	KeyInactiveSold:     "%region% was sold because you were inactive.",
	KeyInactiveUnrented: "%region% was unrented because you were inactive.",
	KeyStackComplete:    "Stacked %created% regions (%toolow% too low, %toohigh% too high).",
}

// Render fills %tag% placeholders. Unknown keys render the key itself.
func (t Templates) Render(key string, tags map[string]string) string {
	text, ok := t[key]
	if !ok {
		text = key
	}
	if len(tags) == 0 {
		return text
	}
	pairs := make([]string, 0, len(tags)*2)
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		pairs = append(pairs, "%"+k+"%", tags[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	templates Templates
}

// NewLogNotifier creates a LogNotifier. Nil templates use DefaultTemplates.
func NewLogNotifier(templates Templates) *LogNotifier {
	if templates == nil {
		templates = DefaultTemplates
	}
	return &LogNotifier{templates: templates}
}

// Notify logs the rendered message.
func (n *LogNotifier) Notify(ctx context.Context, player uuid.UUID, key string, tags map[string]string) {
	slog.InfoContext(ctx, "notify",
		"player", player.String(),
		"key", key,
		"message", n.templates.Render(key, tags))
}

// Message is one recorded notification.
type Message struct {
	Player uuid.UUID
	Key    string
	Tags   map[string]string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records the message.
func (r *Recorder) Notify(_ context.Context, player uuid.UUID, key string, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Player: player, Key: key, Tags: maps.Clone(tags)})
}

// Messages returns a copy of everything recorded.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

// Keys returns the keys sent to player, in order.
func (r *Recorder) Keys(player uuid.UUID) []string {
	var keys []string
	for _, m := range r.Messages() {
		if m.Player == player {
			keys = append(keys, m.Key)
		}
	}
	return keys
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify forwards to every notifier.
func (m Multi) Notify(ctx context.Context, player uuid.UUID, key string, tags map[string]string) {
	for _, n := range m {
		n.Notify(ctx, player, key, tags)
	}
}
