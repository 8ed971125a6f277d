// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Error codes.
const (
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeInvalidSchema      = "INVALID_SCHEMA"
	CodeUnsupportedVersion = "UNSUPPORTED_CONFIG_VERSION"
)

// CurrentVersion is the configuration format this build writes.
const CurrentVersion = "1.0.0"

// SupportedVersions is the range of configuration formats this build reads.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// Load builds a Config from the defaults, the YAML file at path and any
// flags the user set, in that order of precedence. An empty path skips the
// file. The result is validated.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return Config{}, oops.In("config").Code(CodeInvalidConfig).With("path", path).Wrapf(err, "read config")
		}
		if err := ValidateSchema(data); err != nil {
			return Config{}, oops.In("config").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.In("config").Code(CodeInvalidConfig).With("path", path).Wrapf(err, "parse config")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return f.Name, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.In("config").Code(CodeInvalidConfig).Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, oops.In("config").Code(CodeInvalidConfig).Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// checkVersion reports whether v falls within SupportedVersions.
func checkVersion(v string) (*semver.Version, error) {
	parsed, err := semver.StrictNewVersion(v)
	if err != nil {
		return nil, oops.In("config").Code(CodeUnsupportedVersion).
			With("version", v).
			With("message", fmt.Sprintf("config version %q is not a semantic version", v)).
			Wrap(err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return nil, oops.In("config").Code(CodeInvalidSchema).Wrap(err)
	}
	if !constraint.Check(parsed) {
		return nil, oops.In("config").Code(CodeUnsupportedVersion).
			With("version", v).
			With("supported", SupportedVersions).
			Errorf("unsupported config version %s", v)
	}
	return parsed, nil
}

func invalid(key string, value any, reason string) error {
	return oops.In("config").Code(CodeInvalidConfig).
		With("key", key).
		With("value", value).
		Errorf("%s %s", key, reason)
}
