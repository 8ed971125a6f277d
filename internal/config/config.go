// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads and validates the plotshop configuration.
package config

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/holomush/plotshop/internal/access"
	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/economy"
	"github.com/holomush/plotshop/internal/hooks"
	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/logging"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/stack"
	"github.com/holomush/plotshop/internal/sweeper"
)

// Economy backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the complete server configuration.
type Config struct {
	Version            string            `koanf:"version" json:"version" jsonschema:"required"`
	LogFormat          string            `koanf:"log-format" json:"log-format,omitempty" jsonschema:"enum=json,enum=text"`
	LogLevel           string            `koanf:"log-level" json:"log-level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	MetricsAddr        string            `koanf:"metrics-addr" json:"metrics-addr,omitempty"`
	DatabaseURL        string            `koanf:"database-url" json:"database-url,omitempty"`
	AutoMigrate        bool              `koanf:"auto-migrate" json:"auto-migrate,omitempty"`
	Tick               Duration          `koanf:"tick" json:"tick,omitempty"`
	FlushIntervalTicks uint64            `koanf:"flush-interval-ticks" json:"flush-interval-ticks,omitempty"`
	Economy            Economy           `koanf:"economy" json:"economy,omitempty"`
	Stack              stack.Config      `koanf:"stack" json:"stack,omitempty"`
	Sweeper            sweeper.Config    `koanf:"sweeper" json:"sweeper,omitempty"`
	Limits             Limits            `koanf:"limits" json:"limits,omitempty"`
	Defaults           Defaults          `koanf:"defaults" json:"defaults,omitempty"`
	Hooks              map[string]Hook   `koanf:"hooks" json:"hooks,omitempty"`
	RateLimit          RateLimit         `koanf:"rate-limit" json:"rate-limit,omitempty"`
	Access             Access            `koanf:"access" json:"access,omitempty"`
	Messages           map[string]string `koanf:"messages" json:"messages,omitempty"`
}

// Economy configures the ledger and currency display.
type Economy struct {
	Backend         string  `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=memory,enum=postgres"`
	Locale          string  `koanf:"locale" json:"locale,omitempty"`
	CurrencyPrefix  string  `koanf:"currency-prefix" json:"currency-prefix,omitempty"`
	CurrencySuffix  string  `koanf:"currency-suffix" json:"currency-suffix,omitempty"`
	Decimals        int     `koanf:"decimals" json:"decimals,omitempty"`
	StartingBalance float64 `koanf:"starting-balance" json:"starting-balance,omitempty"`
	PerWorld        bool    `koanf:"per-world" json:"per-world,omitempty"`
}

// Caps bounds the regions one player holds. -1 is unlimited.
type Caps struct {
	Total int `koanf:"total" json:"total"`
	Rents int `koanf:"rents" json:"rents"`
	Buys  int `koanf:"buys" json:"buys"`
}

// GroupCaps applies Caps to the members of one region group.
type GroupCaps struct {
	Name  string `koanf:"name" json:"name"`
	Total int    `koanf:"total" json:"total"`
	Rents int    `koanf:"rents" json:"rents"`
	Buys  int    `koanf:"buys" json:"buys"`
}

// Limits configures the limit evaluator.
type Limits struct {
	Default Caps        `koanf:"default" json:"default,omitempty"`
	Groups  []GroupCaps `koanf:"groups" json:"groups,omitempty"`
}

// General holds the settings shared by both region kinds.
type General struct {
	RestrictedToWorld  bool `koanf:"restricted-to-world" json:"restricted-to-world,omitempty"`
	RestrictedToRegion bool `koanf:"restricted-to-region" json:"restricted-to-region,omitempty"`
}

// Buy holds the global buy settings.
type Buy struct {
	Price                 float64  `koanf:"price" json:"price,omitempty"`
	MoneyBack             float64  `koanf:"money-back" json:"money-back,omitempty"`
	InactiveTimeUntilSell Duration `koanf:"inactive-time-until-sell" json:"inactive-time-until-sell,omitempty"`
}

// Rent holds the global rent settings.
type Rent struct {
	Price                   float64  `koanf:"price" json:"price,omitempty"`
	Duration                Duration `koanf:"duration" json:"duration,omitempty"`
	MoneyBack               float64  `koanf:"money-back" json:"money-back,omitempty"`
	MaxExtends              int      `koanf:"max-extends" json:"max-extends,omitempty"`
	MaxRentTime             Duration `koanf:"max-rent-time" json:"max-rent-time,omitempty"`
	InactiveTimeUntilUnrent Duration `koanf:"inactive-time-until-unrent" json:"inactive-time-until-unrent,omitempty"`
	WarningTime             Duration `koanf:"warning-time" json:"warning-time,omitempty"`
}

// Defaults is the global settings layer every region falls back to.
type Defaults struct {
	General General `koanf:"general" json:"general,omitempty"`
	Buy     Buy     `koanf:"buy" json:"buy,omitempty"`
	Rent    Rent    `koanf:"rent" json:"rent,omitempty"`
}

// Hook is the Lua run before and after one region event.
type Hook struct {
	Before string `koanf:"before" json:"before,omitempty"`
	After  string `koanf:"after" json:"after,omitempty"`
}

// RateLimit configures per-player command throttling.
type RateLimit struct {
	Burst     int     `koanf:"burst" json:"burst,omitempty"`
	PerSecond float64 `koanf:"per-second" json:"per-second,omitempty"`
}

// Access configures roles. Assignments map player UUIDs to role names.
type Access struct {
	DefaultRole string              `koanf:"default-role" json:"default-role,omitempty"`
	Roles       map[string][]string `koanf:"roles" json:"roles,omitempty"`
	Assignments map[string]string   `koanf:"assignments" json:"assignments,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Version:            CurrentVersion,
		LogFormat:          "json",
		LogLevel:           "info",
		MetricsAddr:        "127.0.0.1:9100",
		AutoMigrate:        true,
		Tick:               Duration(50 * time.Millisecond),
		FlushIntervalTicks: 20,
		Economy: Economy{
			Backend:  BackendMemory,
			Locale:   "en",
			Decimals: 2,
		},
		Stack:   stack.DefaultConfig(),
		Sweeper: sweeper.DefaultConfig(),
		Limits: Limits{
			Default: Caps{Total: limits.Unlimited, Rents: limits.Unlimited, Buys: limits.Unlimited},
		},
		Defaults: Defaults{
			Buy: Buy{Price: 1000, MoneyBack: 100},
			Rent: Rent{
				Price:      1000,
				Duration:   Duration(24 * time.Hour),
				MoneyBack:  100,
				MaxExtends: limits.Unlimited,
			},
		},
		RateLimit: RateLimit{Burst: command.DefaultBurst, PerSecond: command.DefaultPerSecond},
		Access:    Access{DefaultRole: access.DefaultRole},
	}
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	if _, err := checkVersion(c.Version); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch {
	case c.LogFormat != logging.FormatJSON && c.LogFormat != logging.FormatText:
		return invalid("log-format", c.LogFormat, "must be 'json' or 'text'")
	case c.Tick <= 0:
		return invalid("tick", c.Tick.String(), "must be positive")
	case c.FlushIntervalTicks == 0:
		return invalid("flush-interval-ticks", c.FlushIntervalTicks, "must be positive")
	case c.Economy.Backend != BackendMemory && c.Economy.Backend != BackendPostgres:
		return invalid("economy.backend", c.Economy.Backend, "must be 'memory' or 'postgres'")
	case c.Economy.Backend == BackendPostgres && c.DatabaseURL == "":
		return invalid("database-url", "", "is required by the postgres economy backend")
	case c.Economy.Decimals < 0:
		return invalid("economy.decimals", c.Economy.Decimals, "must not be negative")
	case c.Stack.RegionsPerTick <= 0:
		return invalid("stack.regions-per-tick", c.Stack.RegionsPerTick, "must be positive")
	case c.Stack.Floor > c.Stack.Ceiling:
		return invalid("stack.world-floor", c.Stack.Floor, "must not be above stack.world-ceiling")
	case c.Sweeper.InactiveIntervalTicks == 0 || c.Sweeper.ExpiryIntervalTicks == 0:
		return invalid("sweeper", c.Sweeper, "intervals must be positive")
	case c.Defaults.Rent.Duration <= 0:
		return invalid("defaults.rent.duration", c.Defaults.Rent.Duration.String(), "must be positive")
	case c.Defaults.Buy.MoneyBack < 0 || c.Defaults.Rent.MoneyBack < 0:
		return invalid("defaults", "money-back", "must not be negative")
	}
	for name := range c.Hooks {
		if !knownEvent(name) {
			return invalid("hooks", name, "is not a region event")
		}
	}
	for i, g := range c.Limits.Groups {
		if g.Name == "" {
			return invalid(fmt.Sprintf("limits.groups[%d].name", i), "", "is required")
		}
	}
	return nil
}

func knownEvent(name string) bool {
	for _, ev := range region.Events {
		if string(ev) == name {
			return true
		}
	}
	return false
}

// GlobalSettings returns the defaults as the global settings layer.
func (c *Config) GlobalSettings() region.Settings {
	d := c.Defaults
	return region.NewSettings(map[string]any{
		region.KeyRestrictedToWorld:  d.General.RestrictedToWorld,
		region.KeyRestrictedToRegion: d.General.RestrictedToRegion,
		region.KeyBuyPrice:           d.Buy.Price,
		region.KeyBuyMoneyBack:       d.Buy.MoneyBack,
		region.KeyBuyInactiveTime:    d.Buy.InactiveTimeUntilSell.String(),
		region.KeyRentPrice:          d.Rent.Price,
		region.KeyRentDuration:       d.Rent.Duration.String(),
		region.KeyRentMoneyBack:      d.Rent.MoneyBack,
		region.KeyRentMaxExtends:     d.Rent.MaxExtends,
		region.KeyRentMaxRentTime:    d.Rent.MaxRentTime.String(),
		region.KeyRentInactiveTime:   d.Rent.InactiveTimeUntilUnrent.String(),
		region.KeyRentWarningTime:    d.Rent.WarningTime.String(),
	})
}

// LimitsConfig converts the limit section for the evaluator.
func (c *Config) LimitsConfig() limits.Config {
	cfg := limits.Config{Default: limits.Caps(c.Limits.Default)}
	for _, g := range c.Limits.Groups {
		cfg.Groups = append(cfg.Groups, limits.GroupCaps{
			Group: g.Name,
			Caps:  limits.Caps{Total: g.Total, Rents: g.Rents, Buys: g.Buys},
		})
	}
	return cfg
}

// HookScripts converts the hooks section for the Lua runner.
func (c *Config) HookScripts() map[region.Event]hooks.Scripts {
	out := make(map[region.Event]hooks.Scripts, len(c.Hooks))
	for name, h := range c.Hooks {
		out[region.Event(name)] = hooks.Scripts{Before: h.Before, After: h.After}
	}
	return out
}

// MoneyFormatter returns the configured currency format.
func (c *Config) MoneyFormatter() economy.Formatter {
	e := c.Economy
	return economy.NewFormatter(e.Locale, e.CurrencyPrefix, e.CurrencySuffix, e.Decimals)
}

// RateLimiterConfig converts the rate-limit section.
func (c *Config) RateLimiterConfig() command.RateLimiterConfig {
	return command.RateLimiterConfig{Burst: c.RateLimit.Burst, PerSecond: c.RateLimit.PerSecond}
}

// Templates returns the built-in messages overlaid with the configured ones.
func (c *Config) Templates() notify.Templates {
	out := maps.Clone(notify.DefaultTemplates)
	maps.Copy(out, c.Messages)
	return out
}

// AccessControl builds the role checker and applies the configured
// assignments. Nil roles use the built-in role set.
func (c *Config) AccessControl() (*access.StaticAccessControl, error) {
	ac, err := access.NewStaticAccessControl(c.Access.Roles, c.Access.DefaultRole)
	if err != nil {
		return nil, err
	}
	for player, role := range c.Access.Assignments {
		id, err := uuid.Parse(player)
		if err != nil {
			return nil, invalid("access.assignments", player, "is not a player UUID")
		}
		if err := ac.AssignRole(access.SubjectPlayer+id.String(), role); err != nil {
			return nil, err
		}
	}
	return ac, nil
}
