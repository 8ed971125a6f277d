// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plotshop/internal/config"
	"github.com/holomush/plotshop/internal/hooks"
	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/stack"
	"github.com/holomush/plotshop/pkg/errutil"
)

const sample = `
version: "1.2.0"
log-level: debug
tick: 100ms
economy:
  currency-prefix: "$"
  starting-balance: 250
stack:
  regions-per-tick: 8
  number-length: 3
  world-floor: -64
  world-ceiling: 320
limits:
  default: {total: 5, rents: 2, buys: 3}
  groups:
    - {name: vip, total: 10, rents: 5, buys: 5}
defaults:
  rent:
    price: 40
    duration: 48h
hooks:
  rented:
    after: "x = 1"
messages:
  rent-success: "Rented %region%."
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plotshop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.String("metrics-addr", "", "")
	fs.String("database-url", "", "")
	return fs
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.CurrentVersion, cfg.Version)
	assert.Equal(t, stack.DefaultConfig(), cfg.Stack)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sample), flagSet())
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 100*time.Millisecond, cfg.Tick.Std())
	assert.Equal(t, "$", cfg.Economy.CurrencyPrefix)
	assert.InDelta(t, 250.0, cfg.Economy.StartingBalance, 0.001)
	assert.Equal(t, config.BackendMemory, cfg.Economy.Backend, "untouched keys keep defaults")
	assert.Equal(t, stack.Config{RegionsPerTick: 8, NumberLength: 3, Floor: -64, Ceiling: 320}, cfg.Stack)
	assert.Equal(t, config.Caps{Total: 5, Rents: 2, Buys: 3}, cfg.Limits.Default)
	assert.InDelta(t, 40.0, cfg.Defaults.Rent.Price, 0.001)
	assert.Equal(t, 48*time.Hour, cfg.Defaults.Rent.Duration.Std())
	assert.InDelta(t, 1000.0, cfg.Defaults.Buy.Price, 0.001)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr, "unset flags do not clobber defaults")
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	fs := flagSet()
	require.NoError(t, fs.Set("log-level", "warn"))
	require.NoError(t, fs.Set("database-url", "postgres://localhost/plotshop"))

	cfg, err := config.Load(writeConfig(t, sample), fs)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost/plotshop", cfg.DatabaseURL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown key", "version: \"1.0.0\"\ncolour: red\n", config.CodeInvalidConfig},
		{"missing version", "tick: 50ms\n", config.CodeInvalidConfig},
		{"bad duration", "version: \"1.0.0\"\ntick: fast\n", config.CodeInvalidConfig},
		{"bad backend", "version: \"1.0.0\"\neconomy:\n  backend: sqlite\n", config.CodeInvalidConfig},
		{"malformed yaml", "version: [\n", config.CodeInvalidConfig},
		{"future version", "version: \"2.0.0\"\n", config.CodeUnsupportedVersion},
		{"not semver", "version: \"v1\"\n", config.CodeUnsupportedVersion},
		{"postgres needs url", "version: \"1.0.0\"\neconomy:\n  backend: postgres\n", config.CodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body), nil)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	errutil.AssertErrorCode(t, err, config.CodeInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   string
	}{
		{"zero tick", func(c *config.Config) { c.Tick = 0 }, config.CodeInvalidConfig},
		{"zero flush interval", func(c *config.Config) { c.FlushIntervalTicks = 0 }, config.CodeInvalidConfig},
		{"floor above ceiling", func(c *config.Config) { c.Stack.Floor = 300 }, config.CodeInvalidConfig},
		{"zero sweep interval", func(c *config.Config) { c.Sweeper.ExpiryIntervalTicks = 0 }, config.CodeInvalidConfig},
		{"zero rent duration", func(c *config.Config) { c.Defaults.Rent.Duration = 0 }, config.CodeInvalidConfig},
		{"unknown hook event", func(c *config.Config) {
			c.Hooks = map[string]config.Hook{"leased": {After: "x = 1"}}
		}, config.CodeInvalidConfig},
		{"unnamed group caps", func(c *config.Config) {
			c.Limits.Groups = []config.GroupCaps{{Total: 1}}
		}, config.CodeInvalidConfig},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }, "INVALID_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), tt.code)
		})
	}
}

func TestGlobalSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.Buy.InactiveTimeUntilSell = config.Duration(720 * time.Hour)
	layers := region.Layers{cfg.GlobalSettings()}

	assert.InDelta(t, 1000.0, layers.Float(region.KeyBuyPrice), 0.001)
	assert.InDelta(t, 100.0, layers.Float(region.KeyRentMoneyBack), 0.001)
	assert.Equal(t, 24*time.Hour, layers.Duration(region.KeyRentDuration))
	assert.Equal(t, 720*time.Hour, layers.Duration(region.KeyBuyInactiveTime))
	assert.Zero(t, layers.Duration(region.KeyRentInactiveTime))
	assert.Equal(t, limits.Unlimited, layers.Int(region.KeyRentMaxExtends))
	assert.False(t, layers.Bool(region.KeyRestrictedToWorld))
}

func TestConversions(t *testing.T) {
	cfg := config.Default()
	cfg.Limits = config.Limits{
		Default: config.Caps{Total: 3, Rents: 1, Buys: 2},
		Groups:  []config.GroupCaps{{Name: "vip", Total: 9, Rents: 4, Buys: 5}},
	}
	cfg.Hooks = map[string]config.Hook{"bought": {Before: "a()", After: "b()"}}
	cfg.Messages = map[string]string{notify.KeyBuySuccess: "Yours: %region%"}
	cfg.Economy.CurrencySuffix = " coins"

	assert.Equal(t, limits.Config{
		Default: limits.Caps{Total: 3, Rents: 1, Buys: 2},
		Groups:  []limits.GroupCaps{{Group: "vip", Caps: limits.Caps{Total: 9, Rents: 4, Buys: 5}}},
	}, cfg.LimitsConfig())
	assert.Equal(t, map[region.Event]hooks.Scripts{
		region.EventBought: {Before: "a()", After: "b()"},
	}, cfg.HookScripts())

	templates := cfg.Templates()
	assert.Equal(t, "Yours: %region%", templates[notify.KeyBuySuccess])
	assert.Equal(t, notify.DefaultTemplates[notify.KeyRentSuccess], templates[notify.KeyRentSuccess])
	assert.NotEqual(t, "Yours: %region%", notify.DefaultTemplates[notify.KeyBuySuccess])

	assert.Equal(t, "12.50 coins", cfg.MoneyFormatter().Format(12.5))
	assert.Equal(t, 10, cfg.RateLimiterConfig().Burst)
}

func TestAccessControl(t *testing.T) {
	admin := uuid.New()
	cfg := config.Default()
	cfg.Access.Assignments = map[string]string{admin.String(): "admin"}

	ac, err := cfg.AccessControl()
	require.NoError(t, err)
	assert.Equal(t, "admin", ac.GetRole("player:"+admin.String()))

	cfg.Access.Assignments = map[string]string{"not-a-uuid": "admin"}
	_, err = cfg.AccessControl()
	errutil.AssertErrorCode(t, err, config.CodeInvalidConfig)

	cfg.Access.Assignments = nil
	cfg.Access.DefaultRole = "tourist"
	_, err = cfg.AccessControl()
	errutil.AssertErrorCode(t, err, "UNKNOWN_ROLE")
}

func TestGenerateSchema(t *testing.T) {
	data, err := config.GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), config.SchemaID)
	assert.Contains(t, string(data), `"regions-per-tick"`)
	assert.Contains(t, string(data), `"inactive-time-until-sell"`)
}

func TestValidateSchema_EmptyDocument(t *testing.T) {
	assert.NoError(t, config.ValidateSchema(nil))
}

func TestDuration_Text(t *testing.T) {
	var d config.Duration
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, 90*time.Minute, d.Std())
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", string(text))

	errutil.AssertErrorCode(t, d.UnmarshalText([]byte("soon")), config.CodeInvalidConfig)
}
